// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgzf

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Writer implements BGZF blocked gzip compression.
//
// Data written to a Writer is buffered until BlockSize bytes are held
// or Flush or Close is called, at which point a single gzip member is
// written to the underlying io.Writer.
type Writer struct {
	w     io.Writer
	level int

	gz         *gzip.Writer
	pending    []byte
	compressed bytes.Buffer

	// coffset is the file offset of the next block to be written.
	coffset int64

	closed bool
	err    error
}

// NewWriter returns a new Writer using the default compression level.
func NewWriter(w io.Writer) *Writer {
	bg, _ := NewWriterLevel(w, gzip.DefaultCompression)
	return bg
}

// NewWriterLevel returns a new Writer using the specified compression
// level. The level must be a valid gzip compression level.
func NewWriterLevel(w io.Writer, level int) (*Writer, error) {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		return nil, errors.Errorf("bgzf: invalid compression level: %d", level)
	}
	return &Writer{
		w:       w,
		level:   level,
		pending: make([]byte, 0, BlockSize),
	}, nil
}

// Write writes p to the compressed stream.
func (bg *Writer) Write(p []byte) (int, error) {
	if bg.closed {
		return 0, ErrClosed
	}
	if bg.err != nil {
		return 0, bg.err
	}
	var n int
	for len(p) > 0 {
		c := copy(bg.pending[len(bg.pending):cap(bg.pending)], p)
		bg.pending = bg.pending[:len(bg.pending)+c]
		p = p[c:]
		n += c
		if len(bg.pending) == cap(bg.pending) {
			if err := bg.writeBlock(); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

// writeBlock compresses the pending data into a single BGZF block
// and writes it to the underlying io.Writer.
func (bg *Writer) writeBlock() error {
	bg.compressed.Reset()
	var err error
	if bg.gz == nil {
		bg.gz, err = gzip.NewWriterLevel(&bg.compressed, bg.level)
		if err != nil {
			bg.err = err
			return err
		}
	} else {
		bg.gz.Reset(&bg.compressed)
	}
	bg.gz.Header.Extra = []byte(bgzfExtra)
	bg.gz.Header.OS = 0xff // Unknown OS value

	if _, err = bg.gz.Write(bg.pending); err != nil {
		bg.err = err
		return err
	}
	if err = bg.gz.Close(); err != nil {
		bg.err = err
		return err
	}

	b := bg.compressed.Bytes()
	if len(b) > MaxBlockSize {
		bg.err = errors.Wrapf(ErrBlockOverflow, "bgzf: compressed block size %d", len(b))
		return bg.err
	}
	// Patch BSIZE, the total block size minus one, into the
	// extra subfield that starts at offset 12.
	bsize := len(b) - 1
	b[16] = byte(bsize)
	b[17] = byte(bsize >> 8)

	n, err := bg.w.Write(b)
	bg.coffset += int64(n)
	if err != nil {
		bg.err = err
		return err
	}
	bg.pending = bg.pending[:0]
	return nil
}

// Flush writes any pending data as a complete block. Flush is a no-op
// if no data is pending.
func (bg *Writer) Flush() error {
	if bg.closed {
		return ErrClosed
	}
	if bg.err != nil {
		return bg.err
	}
	if len(bg.pending) == 0 {
		return nil
	}
	return bg.writeBlock()
}

// Offset returns the virtual offset of the next byte to be written.
func (bg *Writer) Offset() Offset {
	return Offset{File: bg.coffset, Block: uint16(len(bg.pending))}
}

// Close flushes pending data and writes the BGZF EOF marker block.
// It does not close the underlying io.Writer. Calling Close more than
// once is a no-op.
func (bg *Writer) Close() error {
	if bg.closed {
		return nil
	}
	if err := bg.Flush(); err != nil {
		bg.closed = true
		return err
	}
	bg.closed = true
	n, err := io.WriteString(bg.w, magicBlock)
	bg.coffset += int64(n)
	return err
}
