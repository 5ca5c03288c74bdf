// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"v.io/x/lib/vlog"

	"github.com/biogo/bamio"
	"github.com/biogo/bamio/bgzf"
	"github.com/biogo/bamio/internal/cursor"
	"github.com/biogo/bamio/internal/handle"
	"github.com/biogo/bamio/sam"
)

// maxRecordSize is the largest block_size accepted for a single record.
const maxRecordSize = 1 << 28

// Reader implements BAM data reading.
//
// A Reader is safe for concurrent use, though the position of the
// underlying stream is shared by all callers.
type Reader struct {
	st *handle.Handle

	r *bgzf.Reader
	h *sam.Header
	c *bgzf.Chunk

	// omit specifies how much of the
	// record should be omitted during
	// a read of the BAM input.
	omit int

	lastChunk bgzf.Chunk
}

// NewReader returns a new Reader using the given io.Reader. The BAM
// header is read before NewReader returns. If r is an io.ReadSeeker
// the Reader supports Seek, SetChunk and index queries. The Reader
// does not close r.
func NewReader(r io.Reader) (*Reader, error) {
	bg, err := bgzf.NewReader(r)
	if err != nil {
		return nil, err
	}
	return newReader(bg, handle.Owning(bg))
}

// Open opens the BAM file at path. Closing the returned Reader closes
// the file.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	bg, err := bgzf.NewReader(f)
	if err != nil {
		f.Close()
		return nil, errors.WithMessage(err, path)
	}
	br, err := newReader(bg, handle.Owning(bg, f))
	if err != nil {
		f.Close()
		return nil, errors.WithMessage(err, path)
	}
	if ok, err := bgzf.HasEOF(f); err == nil && !ok {
		vlog.VI(1).Infof("bam: %s has no BGZF EOF marker; the file may be truncated", path)
	}
	return br, nil
}

func newReader(bg *bgzf.Reader, closer func() error) (*Reader, error) {
	h, _ := sam.NewHeader(nil, nil)
	tx := bg.Begin()
	err := h.DecodeBinary(bg)
	if err != nil {
		bg.Close()
		return nil, err
	}
	return &Reader{
		st:        handle.New(closer),
		r:         bg,
		h:         h,
		lastChunk: tx.End(),
	}, nil
}

// Header returns the SAM Header held by the Reader.
func (br *Reader) Header() *sam.Header {
	return br.h
}

// Omit specifies what portions of the Record to omit reading.
// When o is None, a full sam.Record is returned by Read, when o
// is AuxTags the auxiliary tag data is omitted and when o is
// AllVariableLengthData, sequence, quality and auxiliary data
// is omitted.
func (br *Reader) Omit(o int) {
	br.omit = o
}

// None, AuxTags and AllVariableLengthData are values taken
// by the Reader Omit method.
const (
	None                  = iota // Omit no field data from the record.
	AuxTags                      // Omit auxiliary tag data.
	AllVariableLengthData        // Omit sequence, quality and auxiliary data.
)

// Read returns the next sam.Record in the BAM stream. At the end of the
// stream, or of the current chunk set by SetChunk, Read returns io.EOF.
//
// A record whose declared length exceeds the remaining data is reported
// as an error wrapping bamio.ErrTruncatedRecord.
func (br *Reader) Read() (*sam.Record, error) {
	var rec *sam.Record
	err := br.st.Do("bam: read", func() error {
		var err error
		rec, err = br.read()
		return err
	})
	return rec, err
}

func (br *Reader) read() (*sam.Record, error) {
	if br.c != nil && !br.r.Offset().Less(br.c.End) {
		return nil, io.EOF
	}

	tx := br.r.Begin()
	cr := cursor.NewReader(br.r)
	n, err := cr.Int32()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, truncatedRecord(err, "block size")
	}
	if n < fixedSize || n > maxRecordSize {
		return nil, errors.Wrapf(bamio.ErrInvalidEncoding, "bam: invalid record block size %d", n)
	}
	b, err := cr.Bytes(int(n))
	if err != nil {
		return nil, truncatedRecord(err, "record")
	}
	br.lastChunk = tx.End()

	rec, err := decodeRecord(b, br.h, br.omit)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// truncatedRecord classifies a short read within a record.
func truncatedRecord(err error, field string) error {
	if err == io.EOF || errors.Is(err, bamio.ErrTruncatedInput) {
		return errors.Wrapf(bamio.ErrTruncatedRecord, "bam: reading %s: %v", field, err)
	}
	return errors.Wrapf(err, "bam: reading %s", field)
}

// Seek performs a seek to the specified bgzf.Offset.
func (br *Reader) Seek(off bgzf.Offset) error {
	return br.st.Do("bam: seek", func() error {
		return br.r.Seek(off)
	})
}

// SetChunk sets a limited range of the underlying BGZF file to read, after
// seeking to the start of the given chunk. It may be used to iterate over
// a defined genomic interval. A nil chunk removes the limit.
func (br *Reader) SetChunk(c *bgzf.Chunk) error {
	return br.st.Do("bam: set chunk", func() error {
		return br.setChunk(c)
	})
}

func (br *Reader) setChunk(c *bgzf.Chunk) error {
	if c != nil {
		err := br.r.Seek(c.Begin)
		if err != nil {
			return err
		}
	}
	br.c = c
	return nil
}

// LastChunk returns the bgzf.Chunk corresponding to the last Read operation.
// The bgzf.Chunk returned is only valid if the last Read operation returned a
// nil error.
func (br *Reader) LastChunk() bgzf.Chunk {
	return br.lastChunk
}

// Close closes the Reader. If the Reader was returned by Open the
// underlying file is closed. Calling Close more than once is a no-op;
// after Close, Read returns an error wrapping bamio.ErrHandleClosed.
func (br *Reader) Close() error {
	return br.st.Close()
}
