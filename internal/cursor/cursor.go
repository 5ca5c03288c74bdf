// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cursor provides the little-endian binary codec shared by the
// BAM, BAI and header decoders and encoders.
package cursor

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/biogo/bamio"
)

// Buffer is a read cursor over an in-memory byte slice. All reads are
// bounds checked before any data is consumed.
type Buffer struct {
	off  int
	data []byte
}

// NewBuffer returns a Buffer reading from b.
func NewBuffer(b []byte) *Buffer { return &Buffer{data: b} }

// Len returns the number of unread bytes.
func (b *Buffer) Len() int { return len(b.data) - b.off }

// Offset returns the number of bytes consumed.
func (b *Buffer) Offset() int { return b.off }

func (b *Buffer) need(n int) error {
	if n < 0 {
		return errors.Wrapf(bamio.ErrInvalidEncoding, "cursor: negative length %d", n)
	}
	if b.Len() < n {
		return errors.Wrapf(bamio.ErrTruncatedInput, "cursor: need %d bytes, have %d", n, b.Len())
	}
	return nil
}

// Bytes returns the next n bytes. The returned slice aliases the
// Buffer's data.
func (b *Buffer) Bytes(n int) ([]byte, error) {
	if err := b.need(n); err != nil {
		return nil, err
	}
	s := b.off
	b.off += n
	return b.data[s:b.off:b.off], nil
}

// Skip discards the next n bytes.
func (b *Buffer) Skip(n int) error {
	if err := b.need(n); err != nil {
		return err
	}
	b.off += n
	return nil
}

// Uint8 reads an unsigned byte.
func (b *Buffer) Uint8() (uint8, error) {
	if err := b.need(1); err != nil {
		return 0, err
	}
	b.off++
	return b.data[b.off-1], nil
}

// Int8 reads a signed byte.
func (b *Buffer) Int8() (int8, error) {
	v, err := b.Uint8()
	return int8(v), err
}

// Uint16 reads a little-endian uint16.
func (b *Buffer) Uint16() (uint16, error) {
	p, err := b.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(p), nil
}

// Int16 reads a little-endian int16.
func (b *Buffer) Int16() (int16, error) {
	v, err := b.Uint16()
	return int16(v), err
}

// Uint32 reads a little-endian uint32.
func (b *Buffer) Uint32() (uint32, error) {
	p, err := b.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(p), nil
}

// Int32 reads a little-endian int32.
func (b *Buffer) Int32() (int32, error) {
	v, err := b.Uint32()
	return int32(v), err
}

// Uint64 reads a little-endian uint64.
func (b *Buffer) Uint64() (uint64, error) {
	p, err := b.Bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(p), nil
}

// Int64 reads a little-endian int64.
func (b *Buffer) Int64() (int64, error) {
	v, err := b.Uint64()
	return int64(v), err
}

// Float32 reads a little-endian IEEE 754 float32.
func (b *Buffer) Float32() (float32, error) {
	v, err := b.Uint32()
	return math.Float32frombits(v), err
}

// CString reads a NUL-terminated string, consuming the terminator.
// The returned slice does not include the terminator and aliases the
// Buffer's data.
func (b *Buffer) CString() ([]byte, error) {
	for i, c := range b.data[b.off:] {
		if c == 0 {
			s := b.data[b.off : b.off+i : b.off+i]
			b.off += i + 1
			return s, nil
		}
	}
	return nil, errors.Wrap(bamio.ErrTruncatedInput, "cursor: unterminated string")
}

// LenPrefixed reads an int32 length followed by that many bytes.
// Lengths that are negative or greater than max are rejected.
func (b *Buffer) LenPrefixed(max int) ([]byte, error) {
	n, err := b.Int32()
	if err != nil {
		return nil, err
	}
	if err := checkLen(int64(n), max); err != nil {
		return nil, err
	}
	return b.Bytes(int(n))
}

func checkLen(n int64, max int) error {
	if n < 0 {
		return errors.Wrapf(bamio.ErrInvalidEncoding, "cursor: negative length %d", n)
	}
	if n > int64(max) {
		return errors.Wrapf(bamio.ErrInvalidEncoding, "cursor: length %d exceeds limit %d", n, max)
	}
	return nil
}

// Reader is a read cursor over an io.Reader.
type Reader struct {
	r   io.Reader
	buf [8]byte
}

// NewReader returns a Reader reading from r.
func NewReader(r io.Reader) *Reader { return &Reader{r: r} }

// Full fills p. A read that ends before any byte is consumed returns
// io.EOF; one that ends part way returns ErrTruncatedInput.
func (r *Reader) Full(p []byte) error {
	_, err := io.ReadFull(r.r, p)
	switch err {
	case nil, io.EOF:
		return err
	case io.ErrUnexpectedEOF:
		return errors.Wrapf(bamio.ErrTruncatedInput, "cursor: short read of %d bytes", len(p))
	default:
		return err
	}
}

// readChunk is the largest allocation made by Bytes before the
// data to fill it has been read.
const readChunk = 1 << 16

// Bytes reads exactly n bytes into a new slice. The slice grows as
// data arrives, so a large n in a short stream does not allocate n
// bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.Wrapf(bamio.ErrInvalidEncoding, "cursor: negative length %d", n)
	}
	if n <= readChunk {
		p := make([]byte, n)
		err := r.Full(p)
		if err == io.EOF && n != 0 {
			err = errors.Wrapf(bamio.ErrTruncatedInput, "cursor: short read of %d bytes", n)
		}
		return p, err
	}
	var buf bytes.Buffer
	buf.Grow(readChunk)
	got, err := io.CopyN(&buf, r.r, int64(n))
	if got == int64(n) {
		return buf.Bytes(), nil
	}
	if err == io.EOF {
		if got == 0 {
			return nil, io.EOF
		}
		err = errors.Wrapf(bamio.ErrTruncatedInput, "cursor: short read of %d bytes", n)
	}
	return nil, err
}

// Magic reads len(want) bytes and reports whether they equal want.
func (r *Reader) Magic(want []byte) (bool, error) {
	got := r.buf[:len(want)]
	if err := r.Full(got); err != nil {
		return false, err
	}
	return string(got) == string(want), nil
}

// Uint32 reads a little-endian uint32.
func (r *Reader) Uint32() (uint32, error) {
	if err := r.Full(r.buf[:4]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(r.buf[:4]), nil
}

// Int32 reads a little-endian int32.
func (r *Reader) Int32() (int32, error) {
	v, err := r.Uint32()
	return int32(v), err
}

// Uint64 reads a little-endian uint64.
func (r *Reader) Uint64() (uint64, error) {
	if err := r.Full(r.buf[:8]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(r.buf[:8]), nil
}

// Count reads an int32 element count, rejecting negative values and
// values greater than max before any allocation is made.
func (r *Reader) Count(max int) (int, error) {
	n, err := r.Int32()
	if err != nil {
		return 0, err
	}
	if err := checkLen(int64(n), max); err != nil {
		return 0, err
	}
	return int(n), nil
}

// LenPrefixed reads an int32 length followed by that many bytes.
// Lengths that are negative or greater than max are rejected.
func (r *Reader) LenPrefixed(max int) ([]byte, error) {
	n, err := r.Count(max)
	if err != nil {
		return nil, err
	}
	return r.Bytes(n)
}

// Writer is a little-endian binary writer that retains the first
// error it encounters. Once an error has occurred all subsequent
// writes are no-ops.
type Writer struct {
	w   io.Writer
	buf [8]byte
	err error
}

// NewWriter returns a Writer writing to w.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// Err returns the first error encountered by the Writer.
func (w *Writer) Err() error { return w.err }

// Write writes p to the underlying io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	var n int
	n, w.err = w.w.Write(p)
	return n, w.err
}

// Uint8 writes v.
func (w *Writer) Uint8(v uint8) {
	w.buf[0] = v
	w.Write(w.buf[:1])
}

// Uint16 writes v in little-endian order.
func (w *Writer) Uint16(v uint16) {
	binary.LittleEndian.PutUint16(w.buf[:2], v)
	w.Write(w.buf[:2])
}

// Uint32 writes v in little-endian order.
func (w *Writer) Uint32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	w.Write(w.buf[:4])
}

// Int32 writes v in little-endian order.
func (w *Writer) Int32(v int32) { w.Uint32(uint32(v)) }

// Uint64 writes v in little-endian order.
func (w *Writer) Uint64(v uint64) {
	binary.LittleEndian.PutUint64(w.buf[:8], v)
	w.Write(w.buf[:8])
}

// Float32 writes v in little-endian IEEE 754 order.
func (w *Writer) Float32(v float32) { w.Uint32(math.Float32bits(v)) }

// CString writes s followed by a NUL terminator.
func (w *Writer) CString(s []byte) {
	w.Write(s)
	w.Uint8(0)
}

// LenPrefixed writes the int32 length of p followed by p.
func (w *Writer) LenPrefixed(p []byte) {
	if w.err == nil && int64(len(p)) > math.MaxInt32 {
		w.err = errors.Wrapf(bamio.ErrInvalidEncoding, "cursor: length %d overflows int32", len(p))
		return
	}
	w.Int32(int32(len(p)))
	w.Write(p)
}
