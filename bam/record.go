// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam

import (
	"github.com/pkg/errors"

	"github.com/biogo/bamio"
	"github.com/biogo/bamio/internal/cursor"
	"github.com/biogo/bamio/sam"
)

// fixedSize is the length of the fixed fields of a BAM record
// following block_size:
//
//  refID     int32
//  pos       int32
//  l_name    uint8
//  mapq      uint8
//  bin       uint16
//  n_cigar   uint16
//  flag      uint16
//  l_seq     int32
//  nextRefID int32
//  nextPos   int32
//  tlen      int32
const fixedSize = 32

// corrupt reports a record whose fields overrun its declared length.
func corrupt(err error, field string) error {
	return errors.Wrapf(bamio.ErrInvalidEncoding, "bam: reading %s: %v", field, err)
}

// decodeRecord decodes the record held in b, which does not include
// the leading block_size. len(b) must be at least fixedSize.
func decodeRecord(b []byte, h *sam.Header, omit int) (*sam.Record, error) {
	buf := cursor.NewBuffer(b)

	// The fixed fields are always present.
	refID, _ := buf.Int32()
	pos, _ := buf.Int32()
	nLen, _ := buf.Uint8()
	mapQ, _ := buf.Uint8()
	buf.Skip(2) // The bin is recomputed from the alignment when needed.
	nCigar, _ := buf.Uint16()
	flags, _ := buf.Uint16()
	lSeq, _ := buf.Int32()
	nextRefID, _ := buf.Int32()
	nextPos, _ := buf.Int32()
	tLen, _ := buf.Int32()

	ref, err := refFor(h, refID)
	if err != nil {
		return nil, err
	}
	mateRef, err := refFor(h, nextRefID)
	if err != nil {
		return nil, err
	}
	if pos < -1 || nextPos < -1 {
		return nil, errors.Wrapf(bamio.ErrInvalidEncoding, "bam: invalid position %d/%d", pos, nextPos)
	}
	if lSeq < 0 {
		return nil, errors.Wrapf(bamio.ErrInvalidEncoding, "bam: negative sequence length %d", lSeq)
	}

	name, err := buf.Bytes(int(nLen))
	if err != nil {
		return nil, corrupt(err, "read name")
	}
	if nLen < 2 || name[nLen-1] != 0 {
		return nil, errors.Wrap(bamio.ErrInvalidEncoding, "bam: read name not NUL terminated")
	}

	cigar := make(sam.Cigar, nCigar)
	for i := range cigar {
		v, err := buf.Uint32()
		if err != nil {
			return nil, corrupt(err, "cigar")
		}
		co := sam.CigarOp(v)
		if co.Type() > sam.CigarMismatch {
			return nil, errors.Wrapf(bamio.ErrInvalidEncoding, "bam: invalid cigar operation %d", co.Type())
		}
		cigar[i] = co
	}

	rec := &sam.Record{
		Name:    string(name[:nLen-1]),
		Ref:     ref,
		Pos:     int(pos),
		MapQ:    mapQ,
		Cigar:   cigar,
		Flags:   sam.Flags(flags),
		MateRef: mateRef,
		MatePos: int(nextPos),
		TempLen: int(tLen),
	}
	if omit >= AllVariableLengthData {
		return rec, nil
	}

	seq, err := buf.Bytes(int(lSeq+1) >> 1)
	if err != nil {
		return nil, corrupt(err, "sequence")
	}
	rec.Seq = sam.Seq{Length: int(lSeq), Seq: make([]sam.Doublet, len(seq))}
	for i, d := range seq {
		rec.Seq.Seq[i] = sam.Doublet(d)
	}
	qual, err := buf.Bytes(int(lSeq))
	if err != nil {
		return nil, corrupt(err, "quality")
	}
	if lSeq != 0 {
		rec.Qual = qual
	}
	if omit >= AuxTags {
		return rec, nil
	}

	aux, err := buf.Bytes(buf.Len())
	if err != nil {
		return nil, corrupt(err, "aux fields")
	}
	rec.AuxFields, err = parseAux(aux)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// refFor returns the header Reference with the given id. An id of -1
// is the absent reference.
func refFor(h *sam.Header, id int32) (*sam.Reference, error) {
	if id == -1 {
		return nil, nil
	}
	ref, ok := h.Ref(int(id))
	if !ok {
		return nil, errors.Wrapf(bamio.ErrInvalidEncoding, "bam: reference id %d not in header", id)
	}
	return ref, nil
}

// parseAux decodes the binary auxiliary fields in aux.
func parseAux(aux []byte) (sam.AuxFields, error) {
	if len(aux) == 0 {
		return nil, nil
	}
	buf := cursor.NewBuffer(aux)
	var aa sam.AuxFields
	for buf.Len() != 0 {
		t, err := buf.Bytes(2)
		if err != nil {
			return nil, corrupt(err, "aux tag")
		}
		typ, err := buf.Uint8()
		if err != nil {
			return nil, corrupt(err, "aux type")
		}
		a, err := decodeAux(buf, sam.Tag{t[0], t[1]}, typ)
		if err != nil {
			return nil, err
		}
		aa = append(aa, a)
	}
	return aa, nil
}

func decodeAux(buf *cursor.Buffer, t sam.Tag, typ byte) (sam.Aux, error) {
	var (
		a   sam.Aux
		err error
	)
	switch typ {
	case 'A':
		var c byte
		c, err = buf.Uint8()
		if err == nil {
			a, err = sam.NewCharAux(t, c)
		}
	case 'c', 'C', 's', 'S', 'i', 'I':
		var v int64
		v, err = readInt(buf, typ)
		if err == nil {
			a, err = sam.NewIntAux(t, typ, v)
		}
	case 'f':
		var f float32
		f, err = buf.Float32()
		if err == nil {
			a, err = sam.NewFloatAux(t, f)
		}
	case 'Z', 'H':
		var s []byte
		s, err = buf.CString()
		if err != nil {
			break
		}
		if typ == 'Z' {
			a, err = sam.NewTextAux(t, string(s))
		} else {
			a, err = sam.NewHexAux(t, string(s))
		}
	case 'B':
		a, err = decodeArray(buf, t)
	default:
		return sam.Aux{}, errors.Wrapf(bamio.ErrInvalidEncoding, "bam: unknown aux type %q for tag %s", typ, t)
	}
	if err != nil {
		if errors.Is(err, bamio.ErrTruncatedInput) {
			return sam.Aux{}, corrupt(err, "aux "+t.String())
		}
		return sam.Aux{}, errors.WithMessage(err, "bam: aux "+t.String())
	}
	return a, nil
}

func decodeArray(buf *cursor.Buffer, t sam.Tag) (sam.Aux, error) {
	sub, err := buf.Uint8()
	if err != nil {
		return sam.Aux{}, err
	}
	size := elemSize(sub)
	if size == 0 {
		return sam.Aux{}, errors.Wrapf(bamio.ErrInvalidEncoding, "bam: unknown array type %q", sub)
	}
	n, err := buf.Int32()
	if err != nil {
		return sam.Aux{}, err
	}
	if n < 0 || int(n) > buf.Len()/size {
		return sam.Aux{}, errors.Wrapf(bamio.ErrInvalidEncoding, "bam: invalid array length %d", n)
	}
	if sub == 'f' {
		v := make([]float32, n)
		for i := range v {
			v[i], _ = buf.Float32()
		}
		return sam.NewFloatArrayAux(t, v)
	}
	v := make([]int64, n)
	for i := range v {
		v[i], _ = readInt(buf, sub)
	}
	return sam.NewIntArrayAux(t, sub, v)
}

func elemSize(typ byte) int {
	switch typ {
	case 'c', 'C':
		return 1
	case 's', 'S':
		return 2
	case 'i', 'I', 'f':
		return 4
	}
	return 0
}

func readInt(buf *cursor.Buffer, typ byte) (int64, error) {
	switch typ {
	case 'c':
		v, err := buf.Int8()
		return int64(v), err
	case 'C':
		v, err := buf.Uint8()
		return int64(v), err
	case 's':
		v, err := buf.Int16()
		return int64(v), err
	case 'S':
		v, err := buf.Uint16()
		return int64(v), err
	case 'i':
		v, err := buf.Int32()
		return int64(v), err
	case 'I':
		v, err := buf.Uint32()
		return int64(v), err
	}
	panic("bam: not an integer type")
}

func writeInt(w *cursor.Writer, typ byte, v int64) {
	switch typ {
	case 'c', 'C':
		w.Uint8(uint8(v))
	case 's', 'S':
		w.Uint16(uint16(v))
	case 'i', 'I':
		w.Uint32(uint32(v))
	default:
		panic("bam: not an integer type")
	}
}

// encodeRecord writes the binary form of r, without the leading
// block_size, to w.
func encodeRecord(w *cursor.Writer, r *sam.Record) error {
	if len(r.Name) == 0 || len(r.Name) > 254 {
		return errors.Wrapf(bamio.ErrInvalidEncoding, "bam: invalid read name length %d", len(r.Name))
	}
	if len(r.Cigar) > 0xffff {
		return errors.Wrapf(bamio.ErrInvalidEncoding, "bam: too many cigar operations: %d", len(r.Cigar))
	}
	if len(r.Seq.Seq) != (r.Seq.Length+1)>>1 {
		return errors.Wrapf(bamio.ErrInvalidEncoding, "bam: sequence length %d inconsistent with %d doublets", r.Seq.Length, len(r.Seq.Seq))
	}
	if r.Qual != nil && len(r.Qual) != r.Seq.Length {
		return errors.Wrap(bamio.ErrInvalidEncoding, "bam: sequence/quality length mismatch")
	}
	if r.Pos < -1 || r.Pos > maxInt32 || r.MatePos < -1 || r.MatePos > maxInt32 {
		return errors.Wrapf(bamio.ErrInvalidEncoding, "bam: position out of range: %d/%d", r.Pos, r.MatePos)
	}
	bin := r.Bin()
	if bin < 0 {
		return errors.Wrapf(bamio.ErrInvalidEncoding, "bam: record %q outside indexable range", r.Name)
	}

	w.Int32(int32(r.Ref.ID()))
	w.Int32(int32(r.Pos))
	w.Uint8(uint8(len(r.Name) + 1))
	w.Uint8(r.MapQ)
	w.Uint16(uint16(bin))
	w.Uint16(uint16(len(r.Cigar)))
	w.Uint16(uint16(r.Flags))
	w.Int32(int32(r.Seq.Length))
	w.Int32(int32(r.MateRef.ID()))
	w.Int32(int32(r.MatePos))
	w.Int32(int32(r.TempLen))
	w.CString([]byte(r.Name))
	for _, co := range r.Cigar {
		w.Uint32(uint32(co))
	}
	for _, d := range r.Seq.Seq {
		w.Uint8(uint8(d))
	}
	if r.Qual != nil {
		w.Write(r.Qual)
	} else {
		for i := 0; i < r.Seq.Length; i++ {
			w.Uint8(0xff)
		}
	}
	for _, a := range r.AuxFields {
		encodeAux(w, a)
	}
	return w.Err()
}

func encodeAux(w *cursor.Writer, a sam.Aux) {
	t := a.Tag()
	w.Write(t[:])
	w.Uint8(a.Type())
	switch a.Type() {
	case 'A':
		c, _ := a.Char()
		w.Uint8(c)
	case 'c', 'C', 's', 'S', 'i', 'I':
		v, _ := a.Int()
		writeInt(w, a.Type(), v)
	case 'f':
		f, _ := a.Float()
		w.Float32(f)
	case 'Z', 'H':
		s, _ := a.Text()
		w.CString([]byte(s))
	case 'B':
		sub := a.ArrayType()
		w.Uint8(sub)
		if sub == 'f' {
			v, _ := a.FloatArray()
			w.Int32(int32(len(v)))
			for _, f := range v {
				w.Float32(f)
			}
			return
		}
		v, _ := a.IntArray()
		w.Int32(int32(len(v)))
		for _, e := range v {
			writeInt(w, sub, e)
		}
	}
}

const maxInt32 = int(^uint32(0) >> 1)
