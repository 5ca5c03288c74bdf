// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	"github.com/biogo/bamio"
	"github.com/biogo/bamio/internal/binning"
)

// Record represents a SAM/BAM record.
//
// Pos and MatePos are 0-based, with -1 indicating an absent position.
// A nil Ref or MateRef indicates an unplaced record or mate. A Seq of
// zero length is an absent sequence, and a nil Qual or one holding only
// 0xff bytes is an absent quality string.
type Record struct {
	Name      string
	Ref       *Reference
	Pos       int
	MapQ      byte
	Cigar     Cigar
	Flags     Flags
	MateRef   *Reference
	MatePos   int
	TempLen   int
	Seq       Seq
	Qual      []byte
	AuxFields AuxFields
}

// NewRecord returns a Record, checking for consistency of the provided
// attributes.
func NewRecord(name string, ref, mRef *Reference, p, mPos, tLen int, mapQ byte, co []CigarOp, seq, qual []byte, aux []Aux) (*Record, error) {
	if !(validPos(p) && validPos(mPos) && validTmpltLen(tLen) && validLen(len(seq)) && (qual == nil || validLen(len(qual)))) {
		return nil, errors.Wrap(bamio.ErrInvalidEncoding, "sam: value out of range")
	}
	if len(name) == 0 || len(name) > 254 {
		return nil, errors.Wrap(bamio.ErrInvalidEncoding, "sam: name absent or too long")
	}
	if qual != nil && len(qual) != len(seq) {
		return nil, errors.Wrap(bamio.ErrInvalidEncoding, "sam: sequence/quality length mismatch")
	}
	if ref != nil {
		if ref.id < 0 {
			return nil, errors.New("sam: linking to invalid reference")
		}
	} else {
		if p != -1 {
			return nil, errors.New("sam: specified position != -1 without reference")
		}
	}
	if mRef != nil {
		if mRef.id < 0 {
			return nil, errors.New("sam: linking to invalid mate reference")
		}
	} else {
		if mPos != -1 {
			return nil, errors.New("sam: specified mate position != -1 without mate reference")
		}
	}
	r := &Record{
		Name:      name,
		Ref:       ref,
		Pos:       p,
		MapQ:      mapQ,
		Cigar:     co,
		MateRef:   mRef,
		MatePos:   mPos,
		TempLen:   tLen,
		Seq:       NewSeq(seq),
		Qual:      qual,
		AuxFields: aux,
	}
	return r, nil
}

// IsValidRecord returns whether the record satisfies the conditions that
// it has the Unmapped flag set if it not placed; that the MateUnmapped
// flag is set if it paired its mate is unplaced; that the CIGAR length
// matches the sequence and quality string lengths if they are non-zero; and
// that the Paired, ProperPair, Unmapped and MateUnmapped flags are consistent.
func IsValidRecord(r *Record) bool {
	if (r.Ref == nil || r.Pos == -1) && r.Flags&Unmapped == 0 {
		return false
	}
	if r.Flags&Paired != 0 && (r.MateRef == nil || r.MatePos == -1) && r.Flags&MateUnmapped == 0 {
		return false
	}
	if r.Flags&(Unmapped|ProperPair) == Unmapped|ProperPair {
		return false
	}
	if r.Flags&(Paired|MateUnmapped|ProperPair) == Paired|MateUnmapped|ProperPair {
		return false
	}
	if len(r.Qual) != 0 && r.Seq.Length != len(r.Qual) {
		return false
	}
	if r.Seq.Length != 0 && len(r.Cigar) != 0 && !r.Cigar.IsValid(r.Seq.Length) {
		return false
	}
	return true
}

// Tag returns the Aux field with the given tag and true. If no field
// matches, the zero Aux and false are returned.
func (r *Record) Tag(t Tag) (Aux, bool) {
	return r.AuxFields.Get(t)
}

func (r *Record) tag(t Tag) (Aux, error) {
	a, ok := r.AuxFields.Get(t)
	if !ok {
		return Aux{}, errors.Wrapf(bamio.ErrTagAbsent, "sam: record %q has no %s tag", r.Name, t)
	}
	return a, nil
}

// IntTag returns the value of the integer field with the given tag.
// If the field is absent the error wraps bamio.ErrTagAbsent and if it
// is not an integer the error wraps bamio.ErrTagType.
func (r *Record) IntTag(t Tag) (int64, error) {
	a, err := r.tag(t)
	if err != nil {
		return 0, err
	}
	return a.Int()
}

// FloatTag returns the value of the float field with the given tag.
func (r *Record) FloatTag(t Tag) (float32, error) {
	a, err := r.tag(t)
	if err != nil {
		return 0, err
	}
	return a.Float()
}

// StringTag returns the value of the string or hex field with the
// given tag.
func (r *Record) StringTag(t Tag) (string, error) {
	a, err := r.tag(t)
	if err != nil {
		return "", err
	}
	return a.Text()
}

// CharTag returns the value of the character field with the given tag.
func (r *Record) CharTag(t Tag) (byte, error) {
	a, err := r.tag(t)
	if err != nil {
		return 0, err
	}
	return a.Char()
}

// RefID returns the reference ID for the Record.
func (r *Record) RefID() int {
	return r.Ref.ID()
}

// RefName returns the reference name for the Record, "*" if it is
// unplaced.
func (r *Record) RefName() string {
	return r.Ref.Name()
}

// Start returns the lower-coordinate end of the alignment.
func (r *Record) Start() int {
	return r.Pos
}

// Pos1 returns the 1-based position of the Record, 0 if it is unplaced.
func (r *Record) Pos1() int {
	return r.Pos + 1
}

// Bin returns the BAM index bin of the record.
func (r *Record) Bin() int {
	if r.Ref == nil || r.Pos < 0 {
		return binning.UnmappedBin
	}
	end := r.End()
	if end <= r.Pos {
		end = r.Pos + 1
	}
	if !binning.IsValidPos(r.Pos) || !binning.IsValidPos(end) {
		return -1
	}
	return int(binning.BinFor(r.Pos, end))
}

// Len returns the length of the alignment on the reference.
func (r *Record) Len() int {
	return r.End() - r.Start()
}

// End returns the exclusive end of the alignment on the reference,
// the position plus the reference length of the CIGAR.
func (r *Record) End() int {
	return r.Pos + r.Cigar.RefLen()
}

// Strand returns an int8 indicating the strand of the alignment. A positive return indicates
// alignment in the forward orientation, a negative returns indicates alignment in the reverse
// orientation.
func (r *Record) Strand() int8 {
	if r.Flags&Reverse == Reverse {
		return -1
	}
	return 1
}

// IsMapped returns whether the record is placed and not flagged as unmapped.
func (r *Record) IsMapped() bool { return r.Flags&Unmapped == 0 && r.Ref != nil && r.Pos >= 0 }

// IsUnmapped returns whether the record is flagged as unmapped.
func (r *Record) IsUnmapped() bool { return r.Flags&Unmapped != 0 }

// IsPaired returns whether the record is flagged as paired.
func (r *Record) IsPaired() bool { return r.Flags&Paired != 0 }

// IsReverse returns whether the record is flagged as reverse complemented.
func (r *Record) IsReverse() bool { return r.Flags&Reverse != 0 }

// IsSecondary returns whether the record is flagged as a secondary alignment.
func (r *Record) IsSecondary() bool { return r.Flags&Secondary != 0 }

// IsDuplicate returns whether the record is flagged as a duplicate.
func (r *Record) IsDuplicate() bool { return r.Flags&Duplicate != 0 }

// SeqString returns the ASCII sequence of the record, "*" if absent.
func (r *Record) SeqString() string { return string(formatSeq(r.Seq)) }

// QualString returns the Phred+33 encoded quality string of the
// record, "*" if absent.
func (r *Record) QualString() string { return string(formatQual(r.Qual)) }

// String returns a string representation of the Record.
func (r *Record) String() string {
	end := r.End()
	return fmt.Sprintf("%s %v %v %d %s:%d..%d (%d) %d %s:%d %d %s %v %v",
		r.Name,
		r.Flags,
		r.Cigar,
		r.MapQ,
		r.Ref.Name(),
		r.Pos,
		end,
		r.Bin(),
		end-r.Pos,
		r.MateRef.Name(),
		r.MatePos,
		r.TempLen,
		r.Seq.Expand(),
		r.Qual,
		r.AuxFields,
	)
}

// Equal returns whether r and o hold the same values in every field.
// References are compared by ID and name, absent quality strings are
// equal regardless of representation and integer fields are compared
// by value regardless of width.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.Name != o.Name ||
		!sameRef(r.Ref, o.Ref) ||
		r.Pos != o.Pos ||
		r.MapQ != o.MapQ ||
		r.Flags != o.Flags ||
		!sameRef(r.MateRef, o.MateRef) ||
		r.MatePos != o.MatePos ||
		r.TempLen != o.TempLen ||
		len(r.Cigar) != len(o.Cigar) ||
		len(r.AuxFields) != len(o.AuxFields) ||
		!r.Seq.Equal(o.Seq) {
		return false
	}
	for i, co := range r.Cigar {
		if o.Cigar[i] != co {
			return false
		}
	}
	if missingQual(r.Qual) != missingQual(o.Qual) {
		return false
	}
	if !missingQual(r.Qual) && !bytes.Equal(r.Qual, o.Qual) {
		return false
	}
	for i, a := range r.AuxFields {
		if !a.Equal(o.AuxFields[i]) {
			return false
		}
	}
	return true
}

func sameRef(a, b *Reference) bool {
	return a.ID() == b.ID() && a.Name() == b.Name()
}

func missingQual(q []byte) bool {
	for _, v := range q {
		if v != 0xff {
			return false
		}
	}
	return true
}

// UnmarshalText implements the encoding.TextUnmarshaler. It calls UnmarshalSAM with
// a nil Header.
func (r *Record) UnmarshalText(b []byte) error {
	return r.UnmarshalSAM(nil, b)
}

// UnmarshalSAM parses a SAM format alignment line in the provided []byte, using
// references from the provided Header. Reference names absent from a non-nil
// Header result in an error wrapping bamio.ErrUnknownTarget. If a nil Header
// is passed to UnmarshalSAM and the SAM data include non-empty reference and
// mate reference names, fake references with zero length and an ID of -1 are
// created to hold the reference names.
func (r *Record) UnmarshalSAM(h *Header, b []byte) error {
	f := bytes.Split(b, []byte{'\t'})
	if len(f) < 11 {
		return errors.Wrapf(bamio.ErrInvalidEncoding, "sam: missing SAM fields: have %d, need 11", len(f))
	}
	*r = Record{Name: string(f[0])}
	var err error
	r.Flags, err = ParseFlags(f[1])
	if err != nil {
		return err
	}
	r.Ref, err = referenceForName(h, string(f[2]))
	if err != nil {
		return err
	}
	r.Pos, err = parseInt(f[3], "position")
	if err != nil {
		return err
	}
	r.Pos--
	if !validPos(r.Pos) {
		return errors.Wrapf(bamio.ErrInvalidEncoding, "sam: position out of range: %s", f[3])
	}
	mapQ, err := strconv.ParseUint(string(f[4]), 10, 8)
	if err != nil {
		return errors.Wrapf(bamio.ErrInvalidEncoding, "sam: failed to parse map quality: %v", err)
	}
	r.MapQ = byte(mapQ)
	r.Cigar, err = ParseCigar(f[5])
	if err != nil {
		return err
	}
	if bytes.Equal(f[6], []byte{'='}) || (r.Ref != nil && bytes.Equal(f[2], f[6])) {
		r.MateRef = r.Ref
	} else {
		r.MateRef, err = referenceForName(h, string(f[6]))
		if err != nil {
			return err
		}
	}
	r.MatePos, err = parseInt(f[7], "mate position")
	if err != nil {
		return err
	}
	r.MatePos--
	if !validPos(r.MatePos) {
		return errors.Wrapf(bamio.ErrInvalidEncoding, "sam: mate position out of range: %s", f[7])
	}
	r.TempLen, err = parseInt(f[8], "template length")
	if err != nil {
		return err
	}
	if !validTmpltLen(r.TempLen) {
		return errors.Wrapf(bamio.ErrInvalidEncoding, "sam: template length out of range: %s", f[8])
	}
	if !bytes.Equal(f[9], []byte{'*'}) {
		r.Seq = NewSeq(f[9])
		if len(r.Cigar) != 0 && !r.Cigar.IsValid(r.Seq.Length) {
			return errors.Wrapf(bamio.ErrInvalidEncoding, "sam: sequence/CIGAR length mismatch: %d != %d", r.Seq.Length, r.Cigar.QueryLen())
		}
	}
	if !bytes.Equal(f[10], []byte{'*'}) {
		r.Qual = append(r.Qual, f[10]...)
		for i, q := range r.Qual {
			if q < 33 || q > 126 {
				return errors.Wrapf(bamio.ErrInvalidEncoding, "sam: invalid quality character %q", q)
			}
			r.Qual[i] -= 33
		}
	} else if r.Seq.Length != 0 {
		r.Qual = make([]byte, r.Seq.Length)
		for i := range r.Qual {
			r.Qual[i] = 0xff
		}
	}
	if len(r.Qual) != 0 && len(r.Qual) != r.Seq.Length {
		return errors.Wrapf(bamio.ErrInvalidEncoding, "sam: sequence/quality length mismatch: %d != %d", r.Seq.Length, len(r.Qual))
	}
	for _, aux := range f[11:] {
		a, err := ParseAux(aux)
		if err != nil {
			return err
		}
		r.AuxFields = append(r.AuxFields, a)
	}
	return nil
}

func parseInt(b []byte, field string) (int, error) {
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, errors.Wrapf(bamio.ErrInvalidEncoding, "sam: failed to parse %s: %v", field, err)
	}
	return n, nil
}

func referenceForName(h *Header, name string) (*Reference, error) {
	if name == "*" {
		return nil, nil
	}
	if h == nil {
		// Without a Header, return a fake Reference.
		return &Reference{
			id:   -1,
			name: name,
		}, nil
	}
	id, ok := h.seenRefs[name]
	if !ok {
		return nil, errors.Wrapf(bamio.ErrUnknownTarget, "sam: no reference with name %q", name)
	}
	return h.refs[id], nil
}

// MarshalText implements encoding.TextMarshaler. It calls MarshalSAM with FlagDecimal.
func (r *Record) MarshalText() ([]byte, error) {
	return r.MarshalSAM(FlagDecimal)
}

// MarshalSAM formats a Record as SAM using the specified flag format. Acceptable
// formats are FlagDecimal, FlagHex and FlagString.
func (r *Record) MarshalSAM(flags int) ([]byte, error) {
	return r.AppendSAM(nil, flags)
}

// AppendSAM appends the SAM formatted Record to dst using the specified
// flag format and returns the extended buffer. No line terminator is
// appended.
func (r *Record) AppendSAM(dst []byte, flags int) ([]byte, error) {
	if !validFlagFormat(flags) {
		return dst, errors.New("sam: flag format option out of range")
	}
	if len(r.Qual) != 0 && len(r.Qual) != r.Seq.Length {
		return dst, errors.Wrap(bamio.ErrInvalidEncoding, "sam: sequence/quality length mismatch")
	}
	dst = append(dst, r.Name...)
	dst = append(dst, '\t')
	dst = appendFlags(dst, r.Flags, flags)
	dst = append(dst, '\t')
	dst = append(dst, r.Ref.Name()...)
	dst = append(dst, '\t')
	dst = strconv.AppendInt(dst, int64(r.Pos+1), 10)
	dst = append(dst, '\t')
	dst = strconv.AppendUint(dst, uint64(r.MapQ), 10)
	dst = append(dst, '\t')
	if len(r.Cigar) == 0 {
		dst = append(dst, '*')
	}
	for _, co := range r.Cigar {
		dst = co.appendTo(dst)
	}
	dst = append(dst, '\t')
	dst = append(dst, formatMate(r.Ref, r.MateRef)...)
	dst = append(dst, '\t')
	dst = strconv.AppendInt(dst, int64(r.MatePos+1), 10)
	dst = append(dst, '\t')
	dst = strconv.AppendInt(dst, int64(r.TempLen), 10)
	dst = append(dst, '\t')
	dst = append(dst, formatSeq(r.Seq)...)
	dst = append(dst, '\t')
	dst = append(dst, formatQual(r.Qual)...)
	for _, a := range r.AuxFields {
		dst = a.appendTo(append(dst, '\t'))
	}
	return dst, nil
}

func formatMate(ref, mate *Reference) string {
	if mate != nil && ref != nil && sameRef(ref, mate) {
		return "="
	}
	return mate.Name()
}

func formatSeq(s Seq) []byte {
	if s.Length == 0 {
		return []byte{'*'}
	}
	return s.Expand()
}

func formatQual(q []byte) []byte {
	if missingQual(q) {
		return []byte{'*'}
	}
	a := make([]byte, len(q))
	for i, p := range q {
		a[i] = p + 33
	}
	return a
}
