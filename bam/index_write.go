// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam

import (
	"io"

	"github.com/biogo/bamio/bgzf"
	"github.com/biogo/bamio/internal/binning"
	"github.com/biogo/bamio/internal/cursor"
)

// WriteIndex writes the Index to the given io.Writer in BAI format.
func WriteIndex(w io.Writer, idx *Index) error {
	cw := cursor.NewWriter(w)
	cw.Write(baiMagic[:])
	cw.Int32(int32(len(idx.refs)))
	for _, ref := range idx.refs {
		writeBins(cw, ref.bins, ref.stats)
		writeIntervals(cw, ref.intervals)
	}
	if idx.unmapped != nil {
		cw.Uint64(*idx.unmapped)
	}
	return cw.Err()
}

func writeBins(w *cursor.Writer, bins []bin, stats *ReferenceStats) {
	n := len(bins)
	if stats != nil {
		n++
	}
	w.Int32(int32(n))
	for _, b := range bins {
		w.Uint32(b.bin)
		w.Int32(int32(len(b.chunks)))
		for _, c := range b.chunks {
			writeChunk(w, c)
		}
	}
	if stats != nil {
		w.Uint32(binning.StatsBin)
		w.Int32(2)
		writeChunk(w, stats.Chunk)
		w.Uint64(stats.Mapped)
		w.Uint64(stats.Unmapped)
	}
}

func writeChunk(w *cursor.Writer, c bgzf.Chunk) {
	w.Uint64(c.Begin.Virtual())
	w.Uint64(c.End.Virtual())
}

func writeIntervals(w *cursor.Writer, offsets []bgzf.Offset) {
	w.Int32(int32(len(offsets)))
	for _, o := range offsets {
		w.Uint64(o.Virtual())
	}
}
