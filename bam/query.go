// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam

import (
	"io"

	"github.com/pkg/errors"
	"v.io/x/lib/vlog"

	"github.com/biogo/bamio"
	"github.com/biogo/bamio/bgzf"
	"github.com/biogo/bamio/sam"
)

// Iterator wraps a Reader to provide a convenient loop interface for reading BAM data.
// Successive calls to the Next method will step through the features of the provided
// Reader. Iteration stops unrecoverably at EOF or the first error.
type Iterator struct {
	r *Reader

	chunks []bgzf.Chunk

	// When filter is true only records placed on
	// ref overlapping [beg, end) are returned.
	filter   bool
	ref      int
	beg, end int

	rec *sam.Record
	err error
}

// NewIterator returns a Iterator to read from r, limiting the reads to the provided
// chunks. If chunks is nil, all records are read from the current position.
//
//  chunks := idx.Chunks(ref, beg, end)
//  i, err := NewIterator(r, chunks)
//  if err != nil {
//  	return err
//  }
//  for i.Next() {
//  	fn(i.Record())
//  }
//  return i.Close()
//
func NewIterator(r *Reader, chunks []bgzf.Chunk) (*Iterator, error) {
	if chunks == nil {
		return &Iterator{r: r}, nil
	}
	if len(chunks) == 0 {
		return &Iterator{r: r, err: io.EOF}, nil
	}
	err := r.SetChunk(&chunks[0])
	if err != nil {
		return nil, err
	}
	chunks = chunks[1:]
	return &Iterator{r: r, chunks: chunks}, nil
}

// Query returns an Iterator over the records of r placed on the named
// reference that overlap the zero-based half-open interval [beg, end).
// An unknown reference name is reported with an error wrapping
// bamio.ErrUnknownReference.
func Query(r *Reader, idx *Index, ref string, beg, end int) (*Iterator, error) {
	id, ok := r.Header().LookupTarget(ref)
	if !ok {
		return nil, errors.Wrapf(bamio.ErrUnknownReference, "bam: no reference %q in header", ref)
	}
	return r.Fetch(idx, id, beg, end)
}

// Fetch returns an Iterator over the records of the Reader placed on
// the reference with the given ID that overlap the zero-based half-open
// interval [beg, end). A record is returned when [Pos, End()) overlaps
// the interval, except that a mapped record whose alignment consumes
// no reference bases is treated as covering [Pos, Pos+1), as htslib
// does, so that it is found by queries over its position. If beg is
// negative or greater than end an error wrapping
// bamio.ErrRangeOutOfBounds is returned.
func (br *Reader) Fetch(idx *Index, refID, beg, end int) (*Iterator, error) {
	if _, ok := br.h.Ref(refID); !ok {
		return nil, errors.Wrapf(bamio.ErrUnknownReference, "bam: no reference with id %d", refID)
	}
	if beg < 0 || end < beg {
		return nil, errors.Wrapf(bamio.ErrRangeOutOfBounds, "bam: invalid interval [%d,%d)", beg, end)
	}
	if beg == end {
		return &Iterator{r: br, err: io.EOF}, nil
	}
	chunks := idx.Chunks(refID, beg, end)
	vlog.VI(2).Infof("bam: fetch %d:[%d,%d) reads %d chunks", refID, beg, end, len(chunks))
	if chunks == nil {
		chunks = []bgzf.Chunk{}
	}
	it, err := NewIterator(br, chunks)
	if err != nil {
		return nil, err
	}
	it.filter = true
	it.ref, it.beg, it.end = refID, beg, end
	return it, nil
}

// Next advances the Iterator past the next record, which will then be available through
// the Record method. It returns false when the iteration stops, either by reaching the end of the
// input or an error. After Next returns false, the Error method will return any error that
// occurred during iteration, except that if it was io.EOF, Error will return nil.
func (i *Iterator) Next() bool {
	for i.err == nil {
		i.rec, i.err = i.r.Read()
		if i.err == io.EOF {
			i.nextChunk()
			continue
		}
		if i.err != nil {
			return false
		}
		if !i.filter {
			return true
		}

		rec := i.rec
		if rec.Ref.ID() != i.ref || rec.Pos < 0 || rec.Flags&sam.Unmapped != 0 {
			continue
		}
		if rec.Pos >= i.end {
			// The remainder of the chunk is
			// sorted beyond the interval.
			i.nextChunk()
			continue
		}
		end := rec.End()
		if end <= rec.Pos {
			end = rec.Pos + 1
		}
		if end > i.beg {
			return true
		}
	}
	return false
}

// nextChunk moves the Iterator to the start of the next chunk, setting
// i.err to io.EOF when no chunks remain.
func (i *Iterator) nextChunk() {
	if len(i.chunks) == 0 {
		i.err = io.EOF
		return
	}
	i.err = i.r.SetChunk(&i.chunks[0])
	i.chunks = i.chunks[1:]
}

// Error returns the first non-EOF error that was encountered by the Iterator.
func (i *Iterator) Error() error {
	if i.err == io.EOF {
		return nil
	}
	return i.err
}

// Record returns the most recent record read by a call to Next.
func (i *Iterator) Record() *sam.Record { return i.rec }

// Close releases the Iterator's hold on the Reader, removing any
// chunk limit. It returns the first non-EOF error encountered during
// iteration. The Reader itself is not closed.
func (i *Iterator) Close() error {
	i.chunks = nil
	err := i.r.SetChunk(nil)
	if i.err == nil || i.err == io.EOF {
		if errors.Is(err, bamio.ErrHandleClosed) {
			err = nil
		}
		return err
	}
	return i.err
}
