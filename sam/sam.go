// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sam implements SAM file format reading and writing. The SAM format
// is described in the SAM specification.
//
// http://samtools.github.io/hts-specs/SAMv1.pdf
package sam

import (
	"bufio"
	"io"

	"github.com/pkg/errors"

	"github.com/biogo/bamio/internal/handle"
)

// Reader implements SAM format reading.
//
// A Reader is safe for concurrent use, although records are returned
// in stream order to whichever caller reads first.
type Reader struct {
	h *handle.Handle

	r  *bufio.Reader
	bh *Header

	// seenRefs is non-nil for headerless SAM data. References
	// are then synthesized from the record lines.
	seenRefs map[string]*Reference
}

// NewReader returns a new Reader, reading from the given io.Reader.
// Any header lines at the start of the stream are parsed into the
// Reader's Header.
func NewReader(r io.Reader) (*Reader, error) {
	h, _ := NewHeader(nil, nil)
	sr := &Reader{
		h:  handle.New(nil),
		r:  bufio.NewReader(r),
		bh: h,
	}

	p, err := sr.r.Peek(1)
	if err == io.EOF || (err == nil && p[0] != '@') {
		sr.seenRefs = make(map[string]*Reference)
		return sr, nil
	}
	if err != nil {
		return nil, err
	}

	var b []byte
	for {
		l, err := sr.r.ReadBytes('\n')
		b = append(b, l...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		p, err := sr.r.Peek(1)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if p[0] != '@' {
			break
		}
	}

	err = sr.bh.UnmarshalText(b)
	if err != nil {
		return nil, err
	}
	return sr, nil
}

// Header returns the SAM Header held by the Reader.
func (r *Reader) Header() *Header {
	return r.bh
}

// Read returns the next sam.Record in the SAM stream. At the end of the
// stream Read returns io.EOF.
func (r *Reader) Read() (*Record, error) {
	var rec *Record
	err := r.h.Do("sam: read", func() error {
		var err error
		rec, err = r.read()
		return err
	})
	return rec, err
}

func (r *Reader) read() (*Record, error) {
	var b []byte
	for len(b) == 0 {
		var err error
		b, err = r.r.ReadBytes('\n')
		if err != nil && (err != io.EOF || len(b) == 0) {
			return nil, err
		}
		if len(b) != 0 && b[len(b)-1] == '\n' {
			b = b[:len(b)-1]
		}
		if len(b) != 0 && b[len(b)-1] == '\r' {
			b = b[:len(b)-1]
		}
	}
	var rec Record

	// Handle cases where a header was present.
	if r.seenRefs == nil {
		err := rec.UnmarshalSAM(r.bh, b)
		if err != nil {
			return nil, err
		}
		return &rec, nil
	}

	// Handle cases where no SAM header is present.
	err := rec.UnmarshalSAM(nil, b)
	if err != nil {
		return nil, err
	}
	rec.Ref, err = r.synthesize(rec.Ref)
	if err != nil {
		return nil, err
	}
	rec.MateRef, err = r.synthesize(rec.MateRef)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// synthesize returns the Reference the Reader holds for the name of
// ref, adding ref to the Reader's Header if it has not been seen.
func (r *Reader) synthesize(ref *Reference) (*Reference, error) {
	if ref == nil {
		return nil, nil
	}
	if seen, ok := r.seenRefs[ref.name]; ok {
		return seen, nil
	}
	err := r.bh.AddReference(ref)
	if err != nil {
		return nil, err
	}
	r.seenRefs[ref.name] = ref
	return ref, nil
}

// Close closes the Reader. It does not close the underlying io.Reader.
// Calling Close more than once is a no-op; after Close, Read returns an
// error wrapping bamio.ErrHandleClosed.
func (r *Reader) Close() error {
	return r.h.Close()
}

// RecordReader wraps types that can read SAM Records.
type RecordReader interface {
	Read() (*Record, error)
}

// Iterator wraps a Reader to provide a convenient loop interface for reading SAM/BAM data.
// Successive calls to the Next method will step through the features of the provided
// Reader. Iteration stops unrecoverably at EOF or the first error.
type Iterator struct {
	r   RecordReader
	rec *Record
	err error
}

// NewIterator returns a Iterator to read from r.
//
//  i := NewIterator(r)
//  for i.Next() {
//  	fn(i.Record())
//  }
//  return i.Error()
//
func NewIterator(r RecordReader) *Iterator { return &Iterator{r: r} }

// Next advances the Iterator past the next record, which will then be available through
// the Record method. It returns false when the iteration stops, either by reaching the end of the
// input or an error. After Next returns false, the Error method will return any error that
// occurred during iteration, except that if it was io.EOF, Error will return nil.
func (i *Iterator) Next() bool {
	if i.err != nil {
		return false
	}
	i.rec, i.err = i.r.Read()
	return i.err == nil
}

// Error returns the first non-EOF error that was encountered by the Iterator.
func (i *Iterator) Error() error {
	if i.err == io.EOF {
		return nil
	}
	return i.err
}

// Record returns the most recent record read by a call to Next.
func (i *Iterator) Record() *Record { return i.rec }

// Writer implements SAM format writing.
type Writer struct {
	h *handle.Handle

	w     io.Writer
	bh    *Header
	flags int
	buf   []byte
}

// NewWriter returns a Writer to the given io.Writer using h for the SAM
// header. The header is written immediately. The format of flags for SAM
// lines can be FlagDecimal, FlagHex or FlagString.
func NewWriter(w io.Writer, h *Header, flags int) (*Writer, error) {
	if !validFlagFormat(flags) {
		return nil, errors.New("sam: flag format option out of range")
	}
	sw := &Writer{h: handle.New(nil), w: w, bh: h, flags: flags}
	text, _ := h.MarshalText()
	_, err := w.Write(text)
	if err != nil {
		return nil, err
	}
	return sw, nil
}

// Write writes r to the SAM stream. The References of r must belong to
// the Writer's Header, otherwise an error wrapping bamio.ErrHeaderMismatch
// is returned and nothing is written.
func (w *Writer) Write(r *Record) error {
	return w.h.Do("sam: write", func() error {
		err := w.bh.Validate(r)
		if err != nil {
			return err
		}
		w.buf, err = r.AppendSAM(w.buf[:0], w.flags)
		if err != nil {
			return err
		}
		w.buf = append(w.buf, '\n')
		_, err = w.w.Write(w.buf)
		return err
	})
}

// Close closes the Writer. It does not close the underlying io.Writer.
// Calling Close more than once is a no-op.
func (w *Writer) Close() error {
	return w.h.Close()
}

const wordBits = 31

func validLen(i int) bool      { return 1 <= i && i <= 1<<wordBits-1 }
func validPos(i int) bool      { return -1 <= i && i <= (1<<wordBits-1)-1 } // 0-based.
func validTmpltLen(i int) bool { return -(1<<wordBits) <= i && i <= 1<<wordBits-1 }
