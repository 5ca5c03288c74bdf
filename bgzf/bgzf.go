// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bgzf implements BGZF, the blocked gzip format used by BAM files.
//
// A BGZF stream is a series of gzip members, each holding at most 64KiB of
// data and each carrying its own compressed size in a gzip extra field. The
// block structure allows a position in the decompressed stream to be
// addressed by a virtual offset: the file offset of the block's gzip member
// and the offset of the byte within the decompressed block.
package bgzf

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

const (
	BlockSize    = 0x0ff00 // Size of input data block.
	MaxBlockSize = 0x10000 // Maximum size of output block.
)

const (
	bgzfExtra = "BC\x02\x00\x00\x00"
	minFrame  = 20 + len(bgzfExtra) // Minimum bgzf header+footer length.

	// Magic EOF block.
	magicBlock = "\x1f\x8b\x08\x04\x00\x00\x00\x00\x00\xff\x06\x00\x42\x43\x02\x00\x1b\x00\x03\x00\x00\x00\x00\x00\x00\x00\x00\x00"
)

func compressBound(srcLen int) int {
	return srcLen + srcLen>>12 + srcLen>>14 + srcLen>>25 + 13 + minFrame
}

func init() {
	if compressBound(BlockSize) > MaxBlockSize {
		panic("bgzf: BlockSize too large")
	}
}

var (
	ErrClosed        = errors.New("bgzf: use of closed writer")
	ErrBlockOverflow = errors.New("bgzf: block overflow")
	ErrNotASeeker    = errors.New("bgzf: not a seeker")
	ErrNoBlockSize   = errors.New("bgzf: could not determine block size")
	ErrNoEnd         = errors.New("bgzf: cannot determine offset from end")
)

// Offset is a BGZF virtual offset.
type Offset struct {
	File  int64
	Block uint16
}

// OffsetFromVirtual returns the Offset encoded in the 64 bit virtual offset v.
func OffsetFromVirtual(v uint64) Offset {
	return Offset{File: int64(v >> 16), Block: uint16(v)}
}

// Virtual returns the 64 bit encoding of the virtual offset.
func (o Offset) Virtual() uint64 {
	return uint64(o.File)<<16 | uint64(o.Block)
}

// Less returns whether o is before p in the stream.
func (o Offset) Less(p Offset) bool {
	return o.File < p.File || (o.File == p.File && o.Block < p.Block)
}

// IsZero returns whether o is the zero Offset.
func (o Offset) IsZero() bool { return o == Offset{} }

// Chunk is a region of a BGZF file.
type Chunk struct {
	Begin Offset
	End   Offset
}

// HasEOF checks for the presence of a BGZF magic EOF block.
// The magic block is defined in the SAM specification. A magic block
// is written by a Writer on calling Close. The ReaderAt must provide
// some method for determining valid ReadAt offsets: a Size() int64
// method or a Stat() (os.FileInfo, error) method.
func HasEOF(r io.ReaderAt) (bool, error) {
	type sizer interface {
		Size() int64
	}
	type stater interface {
		Stat() (os.FileInfo, error)
	}

	var size int64
	switch r := r.(type) {
	case sizer:
		size = r.Size()
	case stater:
		fi, err := r.Stat()
		if err != nil {
			return false, err
		}
		size = fi.Size()
	default:
		return false, ErrNoEnd
	}
	if size < int64(len(magicBlock)) {
		return false, nil
	}

	b := make([]byte, len(magicBlock))
	_, err := r.ReadAt(b, size-int64(len(magicBlock)))
	if err != nil {
		return false, err
	}
	return string(b) == magicBlock, nil
}
