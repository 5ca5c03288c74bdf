// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

import (
	"bytes"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/biogo/bamio"
	"github.com/biogo/bamio/internal/cursor"
)

var bamMagic = [4]byte{'B', 'A', 'M', 0x1}

// Limits on binary header fields. Values beyond these are treated as
// corrupt; values within them are not trusted for allocation.
const (
	maxHeaderText = 1 << 28
	maxRefs       = 1 << 26
	maxNameLen    = 1 << 16

	// maxRefHint is the largest reference count used to
	// size storage before the references have been read.
	maxRefHint = 1 << 10
)

// MarshalBinary implements the encoding.BinaryMarshaler.
func (bh *Header) MarshalBinary() ([]byte, error) {
	var b bytes.Buffer
	err := bh.EncodeBinary(&b)
	if err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// EncodeBinary writes a binary encoding of the Header to the given io.Writer.
// The format of the encoding is defined in the SAM specification, section 4.2.
func (bh *Header) EncodeBinary(w io.Writer) error {
	if int64(len(bh.refs)) > math.MaxInt32 {
		return errors.Wrap(bamio.ErrInvalidEncoding, "sam: too many references")
	}
	cw := cursor.NewWriter(w)
	cw.Write(bamMagic[:])
	text, _ := bh.MarshalText()
	cw.LenPrefixed(text)
	cw.Int32(int32(len(bh.refs)))
	name := make([]byte, 0, 64)
	for _, r := range bh.refs {
		name = append(name[:0], r.name...)
		name = append(name, 0)
		cw.LenPrefixed(name)
		cw.Int32(r.lRef)
	}
	return cw.Err()
}

// UnmarshalBinary implements the encoding.BinaryUnmarshaler interface.
func (bh *Header) UnmarshalBinary(b []byte) error {
	return bh.DecodeBinary(bytes.NewReader(b))
}

// DecodeBinary unmarshals a Header from the given io.Reader. The byte
// stream must be in the format described in the SAM specification,
// section 4.2.
//
// The binary reference list defines the target IDs. @SQ lines in the
// header text contribute their additional fields to the reference of
// the same name.
func (bh *Header) DecodeBinary(r io.Reader) error {
	cr := cursor.NewReader(r)
	ok, err := cr.Magic(bamMagic[:])
	if err != nil {
		return truncated(err, "magic")
	}
	if !ok {
		return errors.Wrap(bamio.ErrInvalidEncoding, "sam: magic number mismatch")
	}
	text, err := cr.LenPrefixed(maxHeaderText)
	if err != nil {
		return truncated(err, "header text")
	}
	nRef, err := cr.Count(maxRefs)
	if err != nil {
		return truncated(err, "reference count")
	}

	h := &Header{seenRefs: make(set)}
	if nRef <= maxRefHint {
		h.refs = make([]*Reference, 0, nRef)
	}
	for i := 0; i < nRef; i++ {
		name, err := cr.LenPrefixed(maxNameLen)
		if err != nil {
			return truncated(err, "reference name")
		}
		if len(name) == 0 || name[len(name)-1] != 0 {
			return errors.Wrapf(bamio.ErrInvalidEncoding, "sam: reference %d name not NUL terminated", i)
		}
		lRef, err := cr.Int32()
		if err != nil {
			return truncated(err, "reference length")
		}
		if lRef < 0 {
			return errors.Wrapf(bamio.ErrInvalidEncoding, "sam: negative length for reference %d", i)
		}
		ref := &Reference{id: -1, name: string(name[:len(name)-1]), lRef: lRef}
		if _, dup := h.seenRefs[ref.name]; dup {
			return errors.Wrapf(errDupReference, "sam: %q", ref.name)
		}
		ref.id = int32(len(h.refs))
		h.seenRefs[ref.name] = ref.id
		h.refs = append(h.refs, ref)
	}
	err = h.unmarshalText(text, true)
	if err != nil {
		return err
	}
	*bh = *h
	return nil
}

// truncated converts an end of stream within a header to a truncation
// error.
func truncated(err error, field string) error {
	if err == io.EOF {
		return errors.Wrapf(bamio.ErrTruncatedInput, "sam: reading %s", field)
	}
	return errors.Wrapf(err, "sam: reading %s", field)
}
