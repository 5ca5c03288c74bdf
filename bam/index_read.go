// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam

import (
	"bufio"
	"io"
	"os"

	"github.com/pkg/errors"
	"v.io/x/lib/vlog"

	"github.com/biogo/bamio"
	"github.com/biogo/bamio/bgzf"
	"github.com/biogo/bamio/internal/binning"
	"github.com/biogo/bamio/internal/cursor"
)

var baiMagic = [4]byte{'B', 'A', 'I', 0x1}

// Limits on BAI element counts. Counts outside these are rejected
// outright; counts within them only size storage as elements arrive.
const (
	maxRefs      = 1 << 26
	maxBins      = binning.MaxBin + 2
	maxChunks    = 1 << 26
	maxIntervals = 1<<(29-14) + 1
)

// sizeHint returns the initial capacity for a slice of n elements read
// from an index. Counts are untrusted, so larger slices grow as their
// elements are read.
func sizeHint(n int) int {
	const maxHint = 1024
	if n > maxHint {
		return maxHint
	}
	return n
}

// malformed classifies any failure to decode an index.
func malformed(err error, field string) error {
	if err == io.EOF {
		return errors.Wrapf(bamio.ErrMalformedIndex, "bam: reading %s: unexpected end of index", field)
	}
	return errors.Wrapf(bamio.ErrMalformedIndex, "bam: reading %s: %v", field, err)
}

// OpenIndex reads the BAI index at path. If no file exists at path an
// error wrapping bamio.ErrIndexNotFound is returned.
func OpenIndex(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(bamio.ErrIndexNotFound, "bam: %v", err)
		}
		return nil, err
	}
	defer f.Close()
	idx, err := ReadIndex(bufio.NewReader(f))
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return idx, nil
}

// ReadIndex reads the BAI Index from the given io.Reader. Any failure
// to decode the index is reported as an error wrapping
// bamio.ErrMalformedIndex.
func ReadIndex(r io.Reader) (*Index, error) {
	cr := cursor.NewReader(r)
	ok, err := cr.Magic(baiMagic[:])
	if err != nil {
		return nil, malformed(err, "magic")
	}
	if !ok {
		return nil, errors.Wrap(bamio.ErrMalformedIndex, "bam: magic number mismatch")
	}

	var idx Index
	idx.refs, err = readIndices(cr)
	if err != nil {
		return nil, err
	}

	// The count of unplaced reads is optional.
	nUnmapped, err := cr.Uint64()
	switch {
	case err == nil:
		idx.unmapped = &nUnmapped
	case err != io.EOF:
		return nil, malformed(err, "unplaced count")
	}
	vlog.VI(1).Infof("bam: read index for %d references", len(idx.refs))
	return &idx, nil
}

func readIndices(r *cursor.Reader) ([]refIndex, error) {
	n, err := r.Count(maxRefs)
	if err != nil {
		return nil, malformed(err, "reference count")
	}
	if n == 0 {
		return nil, nil
	}
	idx := make([]refIndex, 0, sizeHint(n))
	for i := 0; i < n; i++ {
		var ref refIndex
		ref.bins, ref.stats, err = readBins(r)
		if err != nil {
			return nil, err
		}
		ref.intervals, err = readIntervals(r)
		if err != nil {
			return nil, err
		}
		idx = append(idx, ref)
	}
	return idx, nil
}

func readBins(r *cursor.Reader) ([]bin, *ReferenceStats, error) {
	n, err := r.Count(maxBins)
	if err != nil {
		return nil, nil, malformed(err, "bin count")
	}
	if n == 0 {
		return nil, nil, nil
	}
	var (
		bins  = make([]bin, 0, sizeHint(n))
		stats *ReferenceStats
	)
	for i := 0; i < n; i++ {
		b, err := r.Uint32()
		if err != nil {
			return nil, nil, malformed(err, "bin number")
		}
		if b == binning.StatsBin {
			if stats != nil {
				return nil, nil, errors.Wrap(bamio.ErrMalformedIndex, "bam: duplicate statistics pseudo-bin")
			}
			stats, err = readStats(r)
			if err != nil {
				return nil, nil, err
			}
			continue
		}
		if b > binning.MaxBin {
			return nil, nil, errors.Wrapf(bamio.ErrMalformedIndex, "bam: invalid bin number %d", b)
		}
		chunks, err := readChunks(r)
		if err != nil {
			return nil, nil, err
		}
		bins = append(bins, bin{bin: b, chunks: chunks})
	}
	sortBins(bins)
	return bins, stats, nil
}

func readChunks(r *cursor.Reader) ([]bgzf.Chunk, error) {
	n, err := r.Count(maxChunks)
	if err != nil {
		return nil, malformed(err, "chunk count")
	}
	if n == 0 {
		return nil, nil
	}
	chunks := make([]bgzf.Chunk, 0, sizeHint(n))
	for i := 0; i < n; i++ {
		c, err := readChunk(r)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	sortChunks(chunks)
	return chunks, nil
}

func readChunk(r *cursor.Reader) (bgzf.Chunk, error) {
	beg, err := r.Uint64()
	if err != nil {
		return bgzf.Chunk{}, malformed(err, "chunk begin")
	}
	end, err := r.Uint64()
	if err != nil {
		return bgzf.Chunk{}, malformed(err, "chunk end")
	}
	return bgzf.Chunk{
		Begin: bgzf.OffsetFromVirtual(beg),
		End:   bgzf.OffsetFromVirtual(end),
	}, nil
}

func readStats(r *cursor.Reader) (*ReferenceStats, error) {
	n, err := r.Int32()
	if err != nil {
		return nil, malformed(err, "statistics chunk count")
	}
	if n != 2 {
		return nil, errors.Wrapf(bamio.ErrMalformedIndex, "bam: statistics pseudo-bin holds %d chunks", n)
	}
	var stats ReferenceStats
	stats.Chunk, err = readChunk(r)
	if err != nil {
		return nil, err
	}
	stats.Mapped, err = r.Uint64()
	if err != nil {
		return nil, malformed(err, "mapped count")
	}
	stats.Unmapped, err = r.Uint64()
	if err != nil {
		return nil, malformed(err, "unmapped count")
	}
	return &stats, nil
}

func readIntervals(r *cursor.Reader) ([]bgzf.Offset, error) {
	n, err := r.Count(maxIntervals)
	if err != nil {
		return nil, malformed(err, "interval count")
	}
	if n == 0 {
		return nil, nil
	}
	offsets := make([]bgzf.Offset, 0, sizeHint(n))
	for i := 0; i < n; i++ {
		v, err := r.Uint64()
		if err != nil {
			return nil, malformed(err, "interval")
		}
		offsets = append(offsets, bgzf.OffsetFromVirtual(v))
	}
	return offsets, nil
}
