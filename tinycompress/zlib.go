// Package tinycompress writes zlib streams made of stored (uncompressed)
// DEFLATE blocks. The output is readable by any zlib decoder and the encoder
// needs no tables, which keeps it small enough for the firmware image.
package tinycompress

import (
	"errors"
	"hash"
	"hash/adler32"
	"io"
)

const (
	// maxStoredBlock is the largest payload a stored block can carry
	maxStoredBlock = 0xFFFF

	zlibCMF = 0x78 // deflate, 32K window
	zlibFLG = 0x01 // fastest level, (CMF<<8|FLG) % 31 == 0
)

// ErrClosed is returned by Write after Close
var ErrClosed = errors.New("tinycompress: write after close")

// Writer buffers input and emits the zlib stream on Close
type Writer struct {
	w      io.Writer
	buf    []byte
	adler  hash.Hash32
	closed bool
}

// NewWriter returns a Writer that writes the compressed stream to w
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:     w,
		adler: adler32.New(),
	}
}

// Write buffers p
func (z *Writer) Write(p []byte) (int, error) {
	if z.closed {
		return 0, ErrClosed
	}
	z.buf = append(z.buf, p...)
	z.adler.Write(p)
	return len(p), nil
}

// Close writes header, blocks and checksum. An empty input still produces a
// valid stream with one empty final block.
func (z *Writer) Close() error {
	if z.closed {
		return nil
	}
	z.closed = true

	if _, err := z.w.Write([]byte{zlibCMF, zlibFLG}); err != nil {
		return err
	}

	data := z.buf
	for {
		n := len(data)
		final := n <= maxStoredBlock
		if !final {
			n = maxStoredBlock
		}
		if err := writeStoredBlock(z.w, data[:n], final); err != nil {
			return err
		}
		data = data[n:]
		if final {
			break
		}
	}

	sum := z.adler.Sum32()
	_, err := z.w.Write([]byte{byte(sum >> 24), byte(sum >> 16), byte(sum >> 8), byte(sum)})
	z.buf = nil
	return err
}

func writeStoredBlock(w io.Writer, p []byte, final bool) error {
	var hdr [5]byte
	if final {
		hdr[0] = 0x01
	}
	n := uint16(len(p))
	hdr[1] = byte(n)
	hdr[2] = byte(n >> 8)
	hdr[3] = byte(^n)
	hdr[4] = byte(^n >> 8)
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(p)
	return err
}

// Compress is a one-shot helper around Writer
func Compress(p []byte) []byte {
	var out sliceWriter
	w := NewWriter(&out)
	w.Write(p)
	w.Close()
	return out
}

type sliceWriter []byte

func (s *sliceWriter) Write(p []byte) (int, error) {
	*s = append(*s, p...)
	return len(p), nil
}
