// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fai

import (
	"bufio"
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/exp/mmap"

	"github.com/biogo/bamio"
	"github.com/biogo/bamio/internal/handle"
)

// File is a sequence file with an FAI index. Files returned by Open are
// accessed via mmapped file memory, so integer indexing limits may impact
// on access to large files.
//
// Fetch may be called concurrently.
type File struct {
	st *handle.Handle

	r   io.ReaderAt
	idx *Index
}

// Open opens the FASTA file at path using the FAI index at path+".fai".
// If the index does not exist an error wrapping bamio.ErrIndexNotFound
// is returned.
func Open(path string) (*File, error) {
	idx, err := OpenIndex(path + ".fai")
	if err != nil {
		return nil, err
	}
	f, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	return &File{st: handle.New(f.Close), r: f, idx: idx}, nil
}

// OpenIndex reads the FAI index at path.
func OpenIndex(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(bamio.ErrIndexNotFound, "fai: %v", err)
		}
		return nil, err
	}
	defer f.Close()
	idx, err := ReadFrom(bufio.NewReader(f))
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return idx, nil
}

// NewFile returns a File reading sequence data from r using idx.
// Closing the File does not close r.
func NewFile(r io.ReaderAt, idx *Index) *File {
	return &File{st: handle.New(nil), r: r, idx: idx}
}

// Index returns the index of the File.
func (f *File) Index() *Index { return f.idx }

// Names returns the sequence names of the File in file order.
func (f *File) Names() []string { return f.idx.Names() }

// Len returns the length of the named sequence.
func (f *File) Len(name string) (int, error) {
	rec, ok := f.idx.Get(name)
	if !ok {
		return 0, errors.Wrapf(bamio.ErrUnknownSequence, "fai: no sequence %q", name)
	}
	return rec.Length, nil
}

// Fetch returns the bases of the named sequence in the zero-based
// half-open interval [start, end), without line terminators. An unknown
// name is reported with an error wrapping bamio.ErrUnknownSequence and
// an interval outside the sequence with one wrapping
// bamio.ErrRangeOutOfBounds.
func (f *File) Fetch(name string, start, end int) ([]byte, error) {
	rec, ok := f.idx.Get(name)
	if !ok {
		return nil, errors.Wrapf(bamio.ErrUnknownSequence, "fai: no sequence %q", name)
	}
	if start < 0 || end < start || rec.Length < end {
		return nil, errors.Wrapf(bamio.ErrRangeOutOfBounds, "fai: [%d,%d) outside %s:[0,%d)", start, end, name, rec.Length)
	}
	seq := make([]byte, 0, end-start)
	if start == end {
		return seq, nil
	}
	err := f.st.Share("fai: fetch", func() error {
		beg := rec.position(start)
		raw := make([]byte, rec.position(end-1)+1-beg)
		n, err := f.r.ReadAt(raw, beg)
		if n < len(raw) {
			if err == nil || err == io.EOF {
				return errors.Wrapf(bamio.ErrTruncatedInput, "fai: %s ends before offset %d", name, beg+int64(len(raw)))
			}
			return err
		}
		for p := start; p < end; {
			l := rec.BasesPerLine - p%rec.BasesPerLine
			if l > end-p {
				l = end - p
			}
			off := rec.position(p) - beg
			seq = append(seq, raw[off:off+int64(l)]...)
			p += l
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return seq, nil
}

// Close closes the File. If the File was returned by Open the sequence
// file is unmapped. Calling Close more than once is a no-op; after Close,
// Fetch returns an error wrapping bamio.ErrHandleClosed.
func (f *File) Close() error {
	return f.st.Close()
}
