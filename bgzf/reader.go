// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgzf

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"github.com/biogo/bamio"
)

// gzip member header layout up to and including XLEN.
const (
	headerLen = 12
	footerLen = 8
	flagExtra = 1 << 2
)

// Reader implements BGZF blocked gzip decompression.
//
// A Reader is not safe for concurrent use.
type Reader struct {
	r  io.Reader
	br *bufio.Reader

	gz  *gzip.Reader
	src bytes.Reader
	raw []byte

	// data holds the decompressed current block and off
	// the read position within it. base is the file offset
	// of the current block and next the file offset of the
	// block that follows it.
	data []byte
	off  int
	base int64
	next int64

	last Chunk
	err  error
}

// NewReader returns a new BGZF reader. If r is an io.ReadSeeker the
// Reader supports Seek. The first block is read so that a non-BGZF
// stream is reported immediately.
func NewReader(r io.Reader) (*Reader, error) {
	bg := &Reader{
		r:    r,
		br:   bufio.NewReader(r),
		raw:  make([]byte, 0, MaxBlockSize),
		data: make([]byte, 0, MaxBlockSize),
	}
	err := bg.readBlock()
	if err != nil && err != io.EOF {
		return nil, err
	}
	bg.err = err
	return bg, nil
}

// readBlock reads and decompresses the BGZF block at bg.next.
func (bg *Reader) readBlock() error {
	bg.base = bg.next
	bg.data = bg.data[:0]
	bg.off = 0

	raw := bg.raw[:headerLen]
	_, err := io.ReadFull(bg.br, raw)
	switch err {
	case nil:
	case io.EOF:
		return io.EOF
	case io.ErrUnexpectedEOF:
		return errors.Wrapf(bamio.ErrTruncatedInput, "bgzf: short block header at %d", bg.base)
	default:
		return err
	}
	if raw[0] != 0x1f || raw[1] != 0x8b || raw[2] != 8 || raw[3]&flagExtra == 0 {
		return errors.Wrapf(bamio.ErrInvalidEncoding, "bgzf: no BGZF block header at %d", bg.base)
	}
	xlen := int(binary.LittleEndian.Uint16(raw[10:12]))
	if headerLen+xlen+footerLen > MaxBlockSize {
		return errors.Wrapf(bamio.ErrInvalidEncoding, "bgzf: invalid extra field length %d at %d", xlen, bg.base)
	}
	raw = raw[:headerLen+xlen]
	if _, err = io.ReadFull(bg.br, raw[headerLen:]); err != nil {
		return errors.Wrapf(bamio.ErrTruncatedInput, "bgzf: short extra field at %d", bg.base)
	}
	size := blockSize(raw[headerLen:])
	if size < 0 {
		return errors.Wrapf(ErrNoBlockSize, "bgzf: block at %d", bg.base)
	}
	if size < len(raw)+footerLen || size > MaxBlockSize {
		return errors.Wrapf(bamio.ErrInvalidEncoding, "bgzf: invalid block size %d at %d", size, bg.base)
	}
	raw = raw[:size]
	if _, err = io.ReadFull(bg.br, raw[headerLen+xlen:]); err != nil {
		return errors.Wrapf(bamio.ErrTruncatedInput, "bgzf: short block at %d", bg.base)
	}
	bg.next = bg.base + int64(size)

	isize := int(binary.LittleEndian.Uint32(raw[size-4:]))
	if isize > MaxBlockSize {
		return errors.Wrapf(bamio.ErrInvalidEncoding, "bgzf: invalid data size %d at %d", isize, bg.base)
	}
	bg.src.Reset(raw)
	if bg.gz == nil {
		bg.gz, err = gzip.NewReader(&bg.src)
	} else {
		err = bg.gz.Reset(&bg.src)
	}
	if err != nil {
		return errors.Wrapf(err, "bgzf: block at %d", bg.base)
	}
	bg.gz.Multistream(false)
	bg.data = bg.data[:isize]
	if _, err = io.ReadFull(bg.gz, bg.data); err != nil {
		return errors.Wrapf(bamio.ErrInvalidEncoding, "bgzf: block at %d: %v", bg.base, err)
	}
	// Read to the end of the member so the checksum is verified.
	var tail [1]byte
	if n, err := bg.gz.Read(tail[:]); n != 0 || err != io.EOF {
		if err == nil || err == io.EOF {
			err = ErrBlockOverflow
		}
		return errors.Wrapf(bamio.ErrInvalidEncoding, "bgzf: block at %d: %v", bg.base, err)
	}
	return nil
}

// blockSize returns the total size of a BGZF block given its gzip
// extra field, or -1 if the field holds no BGZF subfield.
func blockSize(extra []byte) int {
	for len(extra) >= 4 {
		slen := int(binary.LittleEndian.Uint16(extra[2:4]))
		if len(extra) < 4+slen {
			break
		}
		if extra[0] == 'B' && extra[1] == 'C' && slen == 2 {
			return int(binary.LittleEndian.Uint16(extra[4:6])) + 1
		}
		extra = extra[4+slen:]
	}
	return -1
}

// Read implements io.Reader. Blocks are decompressed as they are
// reached; empty blocks, including the EOF marker, are skipped.
func (bg *Reader) Read(p []byte) (int, error) {
	bg.last.Begin = bg.Offset()
	defer func() { bg.last.End = bg.Offset() }()
	var n int
	for n < len(p) {
		if bg.off == len(bg.data) {
			if bg.err != nil {
				break
			}
			bg.err = bg.readBlock()
			continue
		}
		c := copy(p[n:], bg.data[bg.off:])
		bg.off += c
		n += c
	}
	if n != 0 {
		return n, nil
	}
	return 0, bg.err
}

// ReadByte implements io.ByteReader.
func (bg *Reader) ReadByte() (byte, error) {
	for bg.off == len(bg.data) {
		if bg.err != nil {
			return 0, bg.err
		}
		bg.err = bg.readBlock()
	}
	bg.last.Begin = bg.Offset()
	b := bg.data[bg.off]
	bg.off++
	bg.last.End = bg.Offset()
	return b, nil
}

// Offset returns the virtual offset of the next byte to be read. A
// position at the end of a block is reported as the start of the
// following block.
func (bg *Reader) Offset() Offset {
	if bg.off == len(bg.data) {
		return Offset{File: bg.next}
	}
	return Offset{File: bg.base, Block: uint16(bg.off)}
}

// Seek moves the Reader to the given virtual offset. The underlying
// io.Reader must be an io.ReadSeeker.
func (bg *Reader) Seek(off Offset) error {
	if off.File == bg.base && len(bg.data) != 0 && int(off.Block) <= len(bg.data) && bg.err == nil {
		bg.off = int(off.Block)
		return nil
	}
	rs, ok := bg.r.(io.ReadSeeker)
	if !ok {
		return ErrNotASeeker
	}
	_, err := rs.Seek(off.File, io.SeekStart)
	if err != nil {
		bg.err = err
		return err
	}
	bg.br.Reset(rs)
	bg.err = nil
	bg.base, bg.next = off.File, off.File
	bg.data, bg.off = bg.data[:0], 0
	if off.Block == 0 {
		return nil
	}
	bg.err = bg.readBlock()
	if bg.err != nil {
		if bg.err == io.EOF {
			bg.err = errors.Wrapf(bamio.ErrTruncatedInput, "bgzf: seek past end to %d", off.File)
		}
		return bg.err
	}
	if int(off.Block) > len(bg.data) {
		bg.err = errors.Wrapf(bamio.ErrInvalidEncoding, "bgzf: seek offset %d beyond block length %d", off.Block, len(bg.data))
		return bg.err
	}
	bg.off = int(off.Block)
	return nil
}

// LastChunk returns the region of the stream covered by the most
// recent call to Read.
func (bg *Reader) LastChunk() Chunk { return bg.last }

// Tx marks the start of a read transaction.
type Tx struct {
	r     *Reader
	begin Offset
}

// Begin starts a read transaction at the current offset.
func (bg *Reader) Begin() Tx { return Tx{r: bg, begin: bg.Offset()} }

// End returns the Chunk covering the data read since Begin.
func (t Tx) End() Chunk { return Chunk{Begin: t.begin, End: t.r.Offset()} }

// Close releases the decompressor. It does not close the underlying
// io.Reader.
func (bg *Reader) Close() error {
	if bg.gz == nil {
		return nil
	}
	err := bg.gz.Close()
	bg.gz = nil
	return err
}
