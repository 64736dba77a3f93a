package tinycompress

import (
	"bytes"
	"compress/zlib"
	"io"
	"testing"
)

func inflate(t *testing.T, data []byte) []byte {
	t.Helper()
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("zlib.NewReader: %v", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return out
}

func TestWriterRoundTrip(t *testing.T) {
	input := []byte(`{"version":"sysspeed-0.1.0","config":{"CLOCK_FREQ":"180000000"}}`)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	if _, err := w.Write(input[:10]); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := w.Write(input[10:]); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if got := inflate(t, buf.Bytes()); !bytes.Equal(got, input) {
		t.Errorf("round trip mismatch: got %q", got)
	}
}

func TestWriterEmpty(t *testing.T) {
	out := Compress(nil)
	if got := inflate(t, out); len(got) != 0 {
		t.Errorf("expected empty output, got %d bytes", len(got))
	}
}

func TestWriterMultipleBlocks(t *testing.T) {
	input := bytes.Repeat([]byte("0123456789abcdef"), 9000) // > 64 KiB
	out := Compress(input)

	if len(out) <= len(input) {
		t.Fatalf("stored stream should be larger than input")
	}
	if got := inflate(t, out); !bytes.Equal(got, input) {
		t.Errorf("multi block round trip mismatch")
	}
}

func TestWriteAfterClose(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Close()
	if _, err := w.Write([]byte("x")); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
