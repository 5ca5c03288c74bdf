// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package binning

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBinFor(t *testing.T) {
	for _, test := range []struct {
		beg, end int
		want     uint32
	}{
		{beg: 0, end: 1, want: 4681},
		{beg: 0, end: 1 << 14, want: 4681},
		{beg: 1<<14 - 1, end: 1<<14 + 1, want: 585},
		{beg: 1 << 14, end: 1<<14 + 100, want: 4682},
		{beg: 0, end: 1 << 17, want: 585},
		{beg: 0, end: 1<<17 + 1, want: 73},
		{beg: 0, end: 1 << 26, want: 1},
		{beg: 0, end: 1<<26 + 1, want: 0},
		{beg: -1, end: 0, want: UnmappedBin},
	} {
		assert.Equal(t, test.want, BinFor(test.beg, test.end), "[%d,%d)", test.beg, test.end)
	}
}

func TestOverlappingBins(t *testing.T) {
	bins := OverlappingBins(0, 1)
	var got []uint
	for i, ok := bins.NextSet(0); ok; i, ok = bins.NextSet(i + 1) {
		got = append(got, i)
	}
	assert.Equal(t, []uint{0, 1, 9, 73, 585, 4681}, got)

	// Every bin an interval is placed into must be in the
	// overlap set of any query that intersects the interval.
	for _, iv := range [][2]int{
		{100, 200},
		{16383, 16385},
		{1 << 20, 1<<20 + 5000},
		{123456, 1234567},
	} {
		b := BinFor(iv[0], iv[1])
		for _, q := range [][2]int{
			{iv[0], iv[0] + 1},
			{iv[1] - 1, iv[1]},
			{iv[0] - 10, iv[1] + 10},
		} {
			assert.True(t, OverlappingBins(q[0], q[1]).Test(uint(b)),
				"bin %d for %v not in overlap set for %v", b, iv, q)
		}
	}
}

func TestOverlappingBinsClamp(t *testing.T) {
	bins := OverlappingBins(-5, 1<<30)
	assert.True(t, bins.Test(0))
	assert.True(t, bins.Test(MaxBin))
	assert.False(t, bins.Test(StatsBin))
}

func TestTile(t *testing.T) {
	assert.Equal(t, 0, Tile(TileWidth-1))
	assert.Equal(t, 1, Tile(TileWidth))
}
