// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam

import (
	"io"
	"sort"

	"github.com/pkg/errors"

	"github.com/biogo/bamio"
	"github.com/biogo/bamio/bgzf"
	"github.com/biogo/bamio/internal/binning"
	"github.com/biogo/bamio/sam"
)

// Index is a BAI index.
//
// An Index is not modified by queries, so a loaded Index may be used
// by any number of goroutines once construction with Add is complete.
type Index struct {
	refs     []refIndex
	unmapped *uint64

	// lastRef and lastPos hold the sort
	// position of the last added record.
	lastRef int
	lastPos int
}

type refIndex struct {
	// bins is kept in bin number order.
	bins      []bin
	stats     *ReferenceStats
	intervals []bgzf.Offset
}

type bin struct {
	bin    uint32
	chunks []bgzf.Chunk
}

// ReferenceStats holds mapping statistics for a BAM reference.
type ReferenceStats struct {
	// Chunk is the span of the BAM holding alignments
	// to the reference.
	Chunk bgzf.Chunk

	// Mapped is the count of mapped reads.
	Mapped uint64

	// Unmapped is the count of unmapped reads.
	Unmapped uint64
}

// NumRefs returns the number of references in the index.
func (i *Index) NumRefs() int {
	return len(i.refs)
}

// ReferenceStats returns the index statistics for the given reference and true
// if the statistics are valid.
func (i *Index) ReferenceStats(id int) (stats ReferenceStats, ok bool) {
	if id < 0 || id >= len(i.refs) {
		return ReferenceStats{}, false
	}
	s := i.refs[id].stats
	if s == nil {
		return ReferenceStats{}, false
	}
	return *s, true
}

// Unmapped returns the number of unplaced reads and true if the count is valid.
func (i *Index) Unmapped() (n uint64, ok bool) {
	if i.unmapped == nil {
		return 0, false
	}
	return *i.unmapped, true
}

// Add records the SAM record as having being located at the given chunk.
// Records must be added in coordinate order, with unplaced records last.
func (i *Index) Add(r *sam.Record, c bgzf.Chunk) error {
	if i.unmapped == nil {
		i.unmapped = new(uint64)
	}
	if r.Ref == nil || r.Pos < 0 {
		*i.unmapped++
		i.lastRef = -1
		return nil
	}

	end := r.End()
	if end <= r.Pos {
		end = r.Pos + 1
	}
	if !binning.IsValidPos(r.Pos) || !binning.IsValidPos(end) {
		return errors.Wrapf(bamio.ErrInvalidEncoding, "bam: record %q outside indexable range", r.Name)
	}

	rid := r.Ref.ID()
	switch {
	case i.lastRef < 0:
		return errors.New("bam: attempt to add placed record after unplaced records")
	case rid < len(i.refs)-1:
		return errors.New("bam: attempt to add record out of reference ID sort order")
	case rid == len(i.refs)-1 && r.Pos < i.lastPos:
		return errors.New("bam: attempt to add record out of position sort order")
	}
	if rid >= len(i.refs) {
		refs := make([]refIndex, rid+1)
		copy(refs, i.refs)
		i.refs = refs
	}
	i.lastRef, i.lastPos = rid, r.Pos
	ref := &i.refs[rid]

	// Record bin information.
	b := binning.BinFor(r.Pos, end)
	k := sort.Search(len(ref.bins), func(j int) bool { return ref.bins[j].bin >= b })
	if k == len(ref.bins) || ref.bins[k].bin != b {
		ref.bins = append(ref.bins, bin{})
		copy(ref.bins[k+1:], ref.bins[k:])
		ref.bins[k] = bin{bin: b}
	}
	chunks := ref.bins[k].chunks
	if n := len(chunks); n != 0 && (chunks[n-1].End == c.Begin || chunks[n-1].End.File == c.Begin.File) {
		chunks[n-1].End = c.End
	} else {
		ref.bins[k].chunks = append(chunks, c)
	}

	// Record interval tile information. Records are added
	// in order, so the first offset seen for a tile is
	// the smallest.
	last := binning.Tile(end - 1)
	if last >= len(ref.intervals) {
		intervals := make([]bgzf.Offset, last+1)
		copy(intervals, ref.intervals)
		ref.intervals = intervals
	}
	for t := binning.Tile(r.Pos); t <= last; t++ {
		if ref.intervals[t].IsZero() {
			ref.intervals[t] = c.Begin
		}
	}

	// Record index stats.
	if ref.stats == nil {
		ref.stats = &ReferenceStats{Chunk: c}
	} else {
		ref.stats.Chunk.End = c.End
	}
	if r.Flags&sam.Unmapped == 0 {
		ref.stats.Mapped++
	} else {
		ref.stats.Unmapped++
	}

	return nil
}

// BuildIndex reads the remaining records of r and returns an Index
// of them. The records must be in coordinate order.
func BuildIndex(r *Reader) (*Index, error) {
	var idx Index
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		err = idx.Add(rec, r.LastChunk())
		if err != nil {
			return nil, err
		}
	}
	if idx.unmapped == nil {
		idx.unmapped = new(uint64)
	}
	return &idx, nil
}

// Chunks returns a []bgzf.Chunk that corresponds to the given genomic interval
// [beg, end) on the reference with the given ID. The returned chunks are sorted
// by begin offset and overlapping or adjacent chunks are merged. The chunks may
// hold records that do not overlap the interval.
func (i *Index) Chunks(refID, beg, end int) []bgzf.Chunk {
	if refID < 0 || refID >= len(i.refs) {
		return nil
	}
	ref := i.refs[refID]

	// Alignments overlapping [beg, end) cannot begin before
	// the offset of the first populated tile at or after beg.
	t := binning.Tile(beg)
	if beg < 0 {
		t = 0
	}
	if t >= len(ref.intervals) {
		return nil
	}
	var minOff bgzf.Offset
	for _, off := range ref.intervals[t:] {
		if !off.IsZero() {
			minOff = off
			break
		}
	}

	bins := binning.OverlappingBins(beg, end)
	var chunks []bgzf.Chunk
	for _, b := range ref.bins {
		if !bins.Test(uint(b.bin)) {
			continue
		}
		for _, c := range b.chunks {
			if minOff.Less(c.End) {
				chunks = append(chunks, c)
			}
		}
	}
	sortChunks(chunks)
	return adjacent(chunks)
}

// Strategy represents a chunk compression strategy.
type Strategy func([]bgzf.Chunk) []bgzf.Chunk

var (
	// Identity leaves the []bgzf.Chunk unaltered.
	Identity Strategy = identity

	// Adjacent merges contiguous bgzf.Chunks.
	Adjacent Strategy = adjacent

	// Squash merges all bgzf.Chunks into a single bgzf.Chunk.
	Squash Strategy = squash
)

// CompressorStrategy returns a Strategy that will merge bgzf.Chunks
// that have a distance between BGZF block starts less than or equal
// to near.
func CompressorStrategy(near int64) Strategy {
	return func(chunks []bgzf.Chunk) []bgzf.Chunk {
		return mergeWhen(chunks, func(left, right bgzf.Chunk) bool {
			return left.End.File+near >= right.Begin.File
		})
	}
}

func identity(chunks []bgzf.Chunk) []bgzf.Chunk { return chunks }

func adjacent(chunks []bgzf.Chunk) []bgzf.Chunk {
	return mergeWhen(chunks, func(left, right bgzf.Chunk) bool {
		return !left.End.Less(right.Begin)
	})
}

// mergeWhen merges neighbouring chunks of the sorted chunks
// for which join returns true.
func mergeWhen(chunks []bgzf.Chunk, join func(left, right bgzf.Chunk) bool) []bgzf.Chunk {
	if len(chunks) == 0 {
		return nil
	}
	merged := chunks[:1]
	for _, c := range chunks[1:] {
		last := &merged[len(merged)-1]
		if join(*last, c) {
			if last.End.Less(c.End) {
				last.End = c.End
			}
			continue
		}
		merged = append(merged, c)
	}
	return merged
}

func squash(chunks []bgzf.Chunk) []bgzf.Chunk {
	if len(chunks) == 0 {
		return nil
	}
	left := chunks[0].Begin
	right := chunks[0].End
	for _, c := range chunks[1:] {
		if right.Less(c.End) {
			right = c.End
		}
	}
	return []bgzf.Chunk{{Begin: left, End: right}}
}

// MergeChunks applies the given Strategy to all bins in the Index.
// It must not be called while the Index is being queried.
func (i *Index) MergeChunks(s Strategy) {
	if s == nil {
		return
	}
	for _, ref := range i.refs {
		for b, bin := range ref.bins {
			sortChunks(bin.chunks)
			ref.bins[b].chunks = s(bin.chunks)
		}
	}
}

func sortBins(bins []bin) {
	sort.Slice(bins, func(i, j int) bool { return bins[i].bin < bins[j].bin })
}

func sortChunks(chunks []bgzf.Chunk) {
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Begin.Less(chunks[j].Begin) })
}
