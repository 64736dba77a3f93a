package protocol

import (
	"bytes"
	"testing"
)

func TestSliceInputBuffer(t *testing.T) {
	buf := NewSliceInputBuffer([]byte{1, 2, 3, 4, 5})
	buf.Pop(2)
	if buf.Available() != 3 || buf.Data()[0] != 3 {
		t.Errorf("after Pop(2): %v", buf.Data())
	}
	buf.Pop(10)
	if buf.Available() != 0 {
		t.Errorf("Pop past end left %d bytes", buf.Available())
	}
}

func TestScratchOutputPatchLength(t *testing.T) {
	s := NewScratchOutput()
	s.Output([]byte{0xAA})
	cursor := s.CurPosition()
	s.Output([]byte{0, 0x10, 7, 8})
	s.Update(cursor, byte(len(s.DataSince(cursor))))

	if want := []byte{0xAA, 4, 0x10, 7, 8}; !bytes.Equal(s.Result(), want) {
		t.Errorf("Result() = %v, want %v", s.Result(), want)
	}
	if s.DataSince(99) != nil {
		t.Error("DataSince past end should be nil")
	}

	s.Reset()
	if s.CurPosition() != 0 || s.Free() != MessageMax {
		t.Errorf("after Reset pos=%d free=%d", s.CurPosition(), s.Free())
	}
}

func TestScratchOutputOverflow(t *testing.T) {
	s := NewScratchOutput()
	s.Output(make([]byte, MessageMax+10))
	if s.CurPosition() != MessageMax {
		t.Errorf("position = %d, want %d", s.CurPosition(), MessageMax)
	}
}

func TestFifoBuffer(t *testing.T) {
	f := NewFifoBuffer(8)
	if !f.IsEmpty() {
		t.Fatal("new fifo not empty")
	}
	if n := f.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9}); n != 8 {
		t.Errorf("Write = %d, want 8", n)
	}
	if f.Free() != 0 {
		t.Errorf("Free = %d", f.Free())
	}

	out := make([]byte, 3)
	if n := f.Read(out); n != 3 || !bytes.Equal(out, []byte{1, 2, 3}) {
		t.Errorf("Read = %d %v", n, out)
	}
	f.Pop(1)
	if !bytes.Equal(f.Data(), []byte{5, 6, 7, 8}) {
		t.Errorf("Data() = %v", f.Data())
	}
}

func TestFifoBufferWrapAround(t *testing.T) {
	f := NewFifoBuffer(5)
	f.Write([]byte{1, 2, 3, 4})
	f.Pop(3)
	f.Write([]byte{5, 6, 7})

	if got := f.Data(); !bytes.Equal(got, []byte{4, 5, 6, 7}) {
		t.Errorf("wrapped Data() = %v", got)
	}
	f.Pop(2)
	if got := f.Data(); !bytes.Equal(got, []byte{6, 7}) {
		t.Errorf("Data() after Pop = %v", got)
	}
	f.Pop(5)
	if !f.IsEmpty() {
		t.Error("fifo not empty")
	}
}
