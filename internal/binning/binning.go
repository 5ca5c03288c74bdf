// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package binning implements the hierarchical UCSC binning scheme used by
// BAI indexes.
package binning

import "github.com/willf/bitset"

const (
	// TileWidth is the width of a linear index interval.
	TileWidth = 1 << tileShift

	// StatsBin is the bin number of the pseudo-bin holding
	// per-reference statistics.
	StatsBin = 37450

	// MaxBin is the largest real bin number.
	MaxBin = level5 + (1<<(wordBits-tileShift) - 1)

	// UnmappedBin is the bin assigned to unplaced records,
	// BinFor(-1, 0).
	UnmappedBin = level4 + (1<<(wordBits-tileShift-nextShift) - 1)
)

const (
	wordBits  = 29
	tileShift = 14
	nextShift = 3
)

// Bin level offsets. Level 0 is a single bin covering 2^29 bases,
// each following level has eight times as many bins each an eighth
// of the width.
const (
	level0 = ((1 << (iota * nextShift)) - 1) / 7
	level1
	level2
	level3
	level4
	level5
)

var levels = [...]struct {
	offset int
	shift  uint
}{
	{level0, wordBits},
	{level1, wordBits - nextShift},
	{level2, wordBits - 2*nextShift},
	{level3, wordBits - 3*nextShift},
	{level4, wordBits - 4*nextShift},
	{level5, wordBits - 5*nextShift},
}

// IsValidPos returns whether the 0-based position p can be indexed.
func IsValidPos(p int) bool { return -1 <= p && p <= 1<<wordBits-1 }

// BinFor returns the smallest bin that fully contains [beg,end), a
// zero-based half-open interval.
func BinFor(beg, end int) uint32 {
	end--
	for l := len(levels) - 1; l > 0; l-- {
		if beg>>levels[l].shift == end>>levels[l].shift {
			return uint32(levels[l].offset + beg>>levels[l].shift)
		}
	}
	return level0
}

// OverlappingBins returns the set of bins that may hold intervals
// overlapping [beg,end), a zero-based half-open interval.
func OverlappingBins(beg, end int) *bitset.BitSet {
	if beg < 0 {
		beg = 0
	}
	if end > 1<<wordBits {
		end = 1 << wordBits
	}
	bins := bitset.New(MaxBin + 1)
	bins.Set(level0)
	if end <= beg {
		return bins
	}
	end--
	for _, l := range levels[1:] {
		for k := l.offset + beg>>l.shift; k <= l.offset+end>>l.shift; k++ {
			bins.Set(uint(k))
		}
	}
	return bins
}

// Tile returns the linear index interval holding the 0-based position p.
func Tile(p int) int { return p >> tileShift }
