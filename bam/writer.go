// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam

import (
	"bytes"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"github.com/biogo/bamio/bgzf"
	"github.com/biogo/bamio/internal/cursor"
	"github.com/biogo/bamio/internal/handle"
	"github.com/biogo/bamio/sam"
)

// Writer implements BAM data writing.
type Writer struct {
	st *handle.Handle

	h *sam.Header

	bg  *bgzf.Writer
	buf bytes.Buffer
}

// NewWriter returns a new Writer using the given SAM header. The
// header is written immediately.
func NewWriter(w io.Writer, h *sam.Header) (*Writer, error) {
	return NewWriterLevel(w, h, gzip.DefaultCompression)
}

func makeWriter(w io.Writer, level int) (*bgzf.Writer, error) {
	if bw, ok := w.(*bgzf.Writer); ok {
		return bw, nil
	}
	return bgzf.NewWriterLevel(w, level)
}

// NewWriterLevel returns a new Writer using the given SAM header with
// the given compression level. Valid values for level are described in
// the compress/gzip documentation.
func NewWriterLevel(w io.Writer, h *sam.Header, level int) (*Writer, error) {
	bg, err := makeWriter(w, level)
	if err != nil {
		return nil, err
	}
	return newWriter(bg, h, handle.Owning(bg))
}

// Create creates the BAM file at path, writing h as its header.
// Closing the returned Writer closes the file.
func Create(path string, h *sam.Header) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	bg := bgzf.NewWriter(f)
	bw, err := newWriter(bg, h, handle.Owning(bg, f))
	if err != nil {
		f.Close()
		return nil, errors.WithMessage(err, path)
	}
	return bw, nil
}

func newWriter(bg *bgzf.Writer, h *sam.Header, closer func() error) (*Writer, error) {
	bw := &Writer{
		st: handle.New(closer),
		bg: bg,
		h:  h,
	}
	err := bw.writeHeader(h)
	if err != nil {
		return nil, err
	}
	// The header occupies its own blocks so that the first
	// record starts at a block boundary.
	err = bw.bg.Flush()
	if err != nil {
		return nil, err
	}
	return bw, nil
}

func (bw *Writer) writeHeader(h *sam.Header) error {
	bw.buf.Reset()
	err := h.EncodeBinary(&bw.buf)
	if err != nil {
		return err
	}
	_, err = bw.bg.Write(bw.buf.Bytes())
	return err
}

// Write writes r to the BAM stream. The References of r must belong to
// the Writer's Header, otherwise an error wrapping bamio.ErrHeaderMismatch
// is returned and nothing is written.
func (bw *Writer) Write(r *sam.Record) error {
	return bw.st.Do("bam: write", func() error {
		err := bw.h.Validate(r)
		if err != nil {
			return err
		}

		// Reserve block_size and fill it in once the
		// length of the record is known.
		bw.buf.Reset()
		bw.buf.Write([]byte{0, 0, 0, 0})
		err = encodeRecord(cursor.NewWriter(&bw.buf), r)
		if err != nil {
			return err
		}
		b := bw.buf.Bytes()
		n := uint32(len(b) - 4)
		b[0], b[1], b[2], b[3] = byte(n), byte(n>>8), byte(n>>16), byte(n>>24)

		_, err = bw.bg.Write(b)
		return err
	})
}

// Close closes the writer, flushing any pending data and writing the
// BGZF end of file marker. If the Writer was returned by Create the
// file is closed. Calling Close more than once is a no-op.
func (bw *Writer) Close() error {
	return bw.st.Close()
}
