package protocol

// InputBuffer is a queue of received bytes
type InputBuffer interface {
	// Data returns the queued bytes in order
	Data() []byte

	// Available returns the number of queued bytes
	Available() int

	// Pop drops n bytes from the front
	Pop(n int)
}

// OutputBuffer accumulates outgoing frames and allows patching the length
// byte after the payload has been written.
type OutputBuffer interface {
	Output(data []byte)
	CurPosition() int
	Update(pos int, val byte)
	DataSince(pos int) []byte
}

// SliceInputBuffer is an InputBuffer over a fixed slice
type SliceInputBuffer struct {
	data []byte
}

// NewSliceInputBuffer wraps data
func NewSliceInputBuffer(data []byte) *SliceInputBuffer {
	return &SliceInputBuffer{data: data}
}

func (s *SliceInputBuffer) Data() []byte   { return s.data }
func (s *SliceInputBuffer) Available() int { return len(s.data) }

func (s *SliceInputBuffer) Pop(n int) {
	if n > len(s.data) {
		n = len(s.data)
	}
	s.data = s.data[n:]
}

// ScratchOutput is an OutputBuffer with a fixed backing array. Output beyond
// MessageMax bytes is dropped.
type ScratchOutput struct {
	buf [MessageMax]byte
	pos int
}

// NewScratchOutput returns an empty buffer
func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{}
}

func (s *ScratchOutput) Output(data []byte) {
	s.pos += copy(s.buf[s.pos:], data)
}

func (s *ScratchOutput) CurPosition() int { return s.pos }

func (s *ScratchOutput) Update(pos int, val byte) {
	if pos >= 0 && pos < s.pos {
		s.buf[pos] = val
	}
}

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos < 0 || pos > s.pos {
		return nil
	}
	return s.buf[pos:s.pos]
}

// Result returns everything written since the last Reset
func (s *ScratchOutput) Result() []byte {
	return s.buf[:s.pos]
}

// Reset empties the buffer
func (s *ScratchOutput) Reset() {
	s.pos = 0
}

// Free returns the remaining capacity
func (s *ScratchOutput) Free() int {
	return len(s.buf) - s.pos
}

// FifoBuffer is a byte ring used between the serial port and the transport.
// It is not safe for concurrent use.
type FifoBuffer struct {
	buf   []byte
	head  int // next read
	count int
}

// NewFifoBuffer creates a ring holding up to capacity bytes
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{buf: make([]byte, capacity)}
}

// Write copies as much of data as fits and returns the count
func (f *FifoBuffer) Write(data []byte) int {
	n := 0
	for n < len(data) && f.count < len(f.buf) {
		f.buf[(f.head+f.count)%len(f.buf)] = data[n]
		f.count++
		n++
	}
	return n
}

// Read moves up to len(data) bytes out of the ring
func (f *FifoBuffer) Read(data []byte) int {
	n := 0
	for n < len(data) && f.count > 0 {
		data[n] = f.buf[f.head]
		f.head = (f.head + 1) % len(f.buf)
		f.count--
		n++
	}
	return n
}

// Available returns the number of buffered bytes
func (f *FifoBuffer) Available() int { return f.count }

// Free returns the number of bytes that can still be written
func (f *FifoBuffer) Free() int { return len(f.buf) - f.count }

// Data returns the buffered bytes. The result aliases the ring unless the
// contents wrap, in which case it is a copy.
func (f *FifoBuffer) Data() []byte {
	end := f.head + f.count
	if end <= len(f.buf) {
		return f.buf[f.head:end]
	}
	out := make([]byte, 0, f.count)
	out = append(out, f.buf[f.head:]...)
	return append(out, f.buf[:end-len(f.buf)]...)
}

// Pop drops up to n bytes from the front
func (f *FifoBuffer) Pop(n int) {
	if n > f.count {
		n = f.count
	}
	if n <= 0 {
		return
	}
	f.count -= n
	f.head = (f.head + n) % len(f.buf)
	if f.count == 0 {
		f.head = 0
	}
}

// IsEmpty reports whether nothing is buffered
func (f *FifoBuffer) IsEmpty() bool { return f.count == 0 }

// Reset empties the ring
func (f *FifoBuffer) Reset() {
	f.head = 0
	f.count = 0
}
