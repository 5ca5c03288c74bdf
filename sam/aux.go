// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

import (
	"bytes"
	"encoding/hex"
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/biogo/bamio"
)

// A Tag represents an auxiliary tag label.
type Tag [2]byte

// NewTag returns a Tag from the tag string. It panics if len(tag) != 2.
func NewTag(tag string) Tag {
	var t Tag
	if len(tag) != 2 {
		panic("sam: illegal tag length")
	}
	copy(t[:], tag)
	return t
}

// String returns a string representation of a Tag.
func (t Tag) String() string { return string(t[:]) }

func isAlpha(c byte) bool { return ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z') }
func isDigit(c byte) bool { return '0' <= c && c <= '9' }

// valid returns whether t matches [A-Za-z][A-Za-z0-9].
func (t Tag) valid() bool { return isAlpha(t[0]) && (isAlpha(t[1]) || isDigit(t[1])) }

// An Aux represents an auxiliary data field from a SAM alignment record.
//
// The value held by an Aux is one of the closed set of SAM field types:
//
//  A - printable character
//  c, C, s, S, i, I - integer of the indicated width and signedness
//  f - float32
//  Z - printable string
//  H - hex encoded byte array
//  B - integer or float32 array with element type c, C, s, S, i, I or f
//
// The zero Aux is not valid. Aux values are constructed with NewAux,
// the typed constructors or ParseAux and are read with the typed
// accessors, which return an error wrapping bamio.ErrTagType when the
// field holds a value of a different type.
type Aux struct {
	tag Tag
	typ byte
	sub byte // Element type of a B array.

	i  int64
	f  float32
	s  string
	ia []int64
	fa []float32
}

var auxKind = [256]byte{
	'A': 'A',
	'c': 'i', 'C': 'i',
	's': 'i', 'S': 'i',
	'i': 'i', 'I': 'i',
	'f': 'f',
	'Z': 'Z',
	'H': 'H',
	'B': 'B',
}

func intRange(typ byte) (min, max int64) {
	switch typ {
	case 'c':
		return math.MinInt8, math.MaxInt8
	case 'C':
		return 0, math.MaxUint8
	case 's':
		return math.MinInt16, math.MaxInt16
	case 'S':
		return 0, math.MaxUint16
	case 'i':
		return math.MinInt32, math.MaxInt32
	case 'I':
		return 0, math.MaxUint32
	}
	return 1, 0
}

// intType returns the smallest integer type able to hold v.
func intType(v int64) (byte, error) {
	switch {
	case v < math.MinInt32 || v > math.MaxUint32:
		return 0, errors.Wrapf(bamio.ErrInvalidEncoding, "sam: integer aux value out of range: %d", v)
	case v < 0:
		switch {
		case v >= math.MinInt8:
			return 'c', nil
		case v >= math.MinInt16:
			return 's', nil
		}
		return 'i', nil
	case v <= math.MaxUint8:
		return 'C', nil
	case v <= math.MaxUint16:
		return 'S', nil
	}
	return 'I', nil
}

func checkTag(t Tag) error {
	if !t.valid() {
		return errors.Wrapf(bamio.ErrInvalidEncoding, "sam: invalid aux tag: %q", t[:])
	}
	return nil
}

// NewIntAux returns an integer Aux with the given SAM type, one of
// c, C, s, S, i or I. If typ is zero, the smallest type able to hold
// v is used.
func NewIntAux(t Tag, typ byte, v int64) (Aux, error) {
	if err := checkTag(t); err != nil {
		return Aux{}, err
	}
	if typ == 0 {
		var err error
		typ, err = intType(v)
		if err != nil {
			return Aux{}, err
		}
	}
	if auxKind[typ] != 'i' {
		return Aux{}, errors.Errorf("sam: %q is not an integer aux type", typ)
	}
	if min, max := intRange(typ); v < min || max < v {
		return Aux{}, errors.Wrapf(bamio.ErrInvalidEncoding, "sam: value %d out of range for aux type %c", v, typ)
	}
	return Aux{tag: t, typ: typ, i: v}, nil
}

// NewCharAux returns a character Aux. The character must be printable.
func NewCharAux(t Tag, c byte) (Aux, error) {
	if err := checkTag(t); err != nil {
		return Aux{}, err
	}
	if c < '!' || '~' < c {
		return Aux{}, errors.Wrapf(bamio.ErrInvalidEncoding, "sam: non-printable character aux value: %q", c)
	}
	return Aux{tag: t, typ: 'A', i: int64(c)}, nil
}

// NewFloatAux returns a float Aux.
func NewFloatAux(t Tag, f float32) (Aux, error) {
	if err := checkTag(t); err != nil {
		return Aux{}, err
	}
	return Aux{tag: t, typ: 'f', f: f}, nil
}

// NewTextAux returns a string Aux. The text may contain spaces and
// printable characters only.
func NewTextAux(t Tag, s string) (Aux, error) {
	if err := checkTag(t); err != nil {
		return Aux{}, err
	}
	for i := 0; i < len(s); i++ {
		if s[i] < ' ' || '~' < s[i] {
			return Aux{}, errors.Wrapf(bamio.ErrInvalidEncoding, "sam: invalid byte in string aux value: %q", s[i])
		}
	}
	return Aux{tag: t, typ: 'Z', s: s}, nil
}

// NewHexAux returns a hex array Aux from its hex text encoding.
func NewHexAux(t Tag, text string) (Aux, error) {
	if err := checkTag(t); err != nil {
		return Aux{}, err
	}
	if len(text)%2 != 0 {
		return Aux{}, errors.Wrapf(bamio.ErrInvalidEncoding, "sam: odd length hex aux value: %q", text)
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		if !isDigit(c) && !('A' <= c && c <= 'F') && !('a' <= c && c <= 'f') {
			return Aux{}, errors.Wrapf(bamio.ErrInvalidEncoding, "sam: invalid hex aux value: %q", text)
		}
	}
	return Aux{tag: t, typ: 'H', s: text}, nil
}

// NewIntArrayAux returns an integer array Aux with the given element
// type, one of c, C, s, S, i or I.
func NewIntArrayAux(t Tag, sub byte, v []int64) (Aux, error) {
	if err := checkTag(t); err != nil {
		return Aux{}, err
	}
	if auxKind[sub] != 'i' {
		return Aux{}, errors.Errorf("sam: %q is not an integer array type", sub)
	}
	min, max := intRange(sub)
	for _, e := range v {
		if e < min || max < e {
			return Aux{}, errors.Wrapf(bamio.ErrInvalidEncoding, "sam: value %d out of range for array type %c", e, sub)
		}
	}
	return Aux{tag: t, typ: 'B', sub: sub, ia: append([]int64(nil), v...)}, nil
}

// NewFloatArrayAux returns a float array Aux.
func NewFloatArrayAux(t Tag, v []float32) (Aux, error) {
	if err := checkTag(t); err != nil {
		return Aux{}, err
	}
	return Aux{tag: t, typ: 'B', sub: 'f', fa: append([]float32(nil), v...)}, nil
}

// NewAux returns a new Aux with the given tag and value. The SAM type
// is determined by the dynamic type of value:
//
//  int8, uint8, int16, uint16, int32, uint32 - c, C, s, S, i, I
//  int, int64, uint, uint64 - smallest integer type holding the value
//  float32, float64 - f
//  string, []byte - Z
//  []int8, []int16, []uint16, []int32, []uint32, []float32 - B
//
// Character and hex fields and unsigned byte arrays are made with
// NewCharAux, NewHexAux and NewIntArrayAux.
func NewAux(t Tag, value interface{}) (Aux, error) {
	switch v := value.(type) {
	case int8:
		return NewIntAux(t, 'c', int64(v))
	case uint8:
		return NewIntAux(t, 'C', int64(v))
	case int16:
		return NewIntAux(t, 's', int64(v))
	case uint16:
		return NewIntAux(t, 'S', int64(v))
	case int32:
		return NewIntAux(t, 'i', int64(v))
	case uint32:
		return NewIntAux(t, 'I', int64(v))
	case int:
		return NewIntAux(t, 0, int64(v))
	case int64:
		return NewIntAux(t, 0, v)
	case uint:
		if uint64(v) > math.MaxUint32 {
			return Aux{}, errors.Wrapf(bamio.ErrInvalidEncoding, "sam: integer aux value out of range: %d", v)
		}
		return NewIntAux(t, 0, int64(v))
	case uint64:
		if v > math.MaxUint32 {
			return Aux{}, errors.Wrapf(bamio.ErrInvalidEncoding, "sam: integer aux value out of range: %d", v)
		}
		return NewIntAux(t, 0, int64(v))
	case float32:
		return NewFloatAux(t, v)
	case float64:
		return NewFloatAux(t, float32(v))
	case string:
		return NewTextAux(t, v)
	case []byte:
		return NewTextAux(t, string(v))
	case []int8:
		a := make([]int64, len(v))
		for i, e := range v {
			a[i] = int64(e)
		}
		return NewIntArrayAux(t, 'c', a)
	case []int16:
		a := make([]int64, len(v))
		for i, e := range v {
			a[i] = int64(e)
		}
		return NewIntArrayAux(t, 's', a)
	case []uint16:
		a := make([]int64, len(v))
		for i, e := range v {
			a[i] = int64(e)
		}
		return NewIntArrayAux(t, 'S', a)
	case []int32:
		a := make([]int64, len(v))
		for i, e := range v {
			a[i] = int64(e)
		}
		return NewIntArrayAux(t, 'i', a)
	case []uint32:
		a := make([]int64, len(v))
		for i, e := range v {
			a[i] = int64(e)
		}
		return NewIntArrayAux(t, 'I', a)
	case []float32:
		return NewFloatArrayAux(t, v)
	}
	return Aux{}, errors.Errorf("sam: unsupported aux value type %T", value)
}

// ParseAux returns an Aux parsed from the given SAM TAG:TYPE:VALUE text.
func ParseAux(text []byte) (Aux, error) {
	if len(text) < 5 || text[2] != ':' || text[4] != ':' {
		return Aux{}, errors.Wrapf(bamio.ErrInvalidEncoding, "sam: invalid aux tag field: %q", text)
	}
	t := Tag{text[0], text[1]}
	typ := text[3]
	val := text[5:]
	var (
		a   Aux
		err error
	)
	switch typ {
	case 'A':
		if len(val) != 1 {
			return Aux{}, errors.Wrapf(bamio.ErrInvalidEncoding, "sam: invalid aux tag field: %q", text)
		}
		a, err = NewCharAux(t, val[0])
	case 'i':
		var v int64
		v, err = strconv.ParseInt(string(val), 10, 64)
		if err == nil {
			a, err = NewIntAux(t, 0, v)
		}
	case 'f':
		var f float64
		f, err = strconv.ParseFloat(string(val), 32)
		if err == nil {
			a, err = NewFloatAux(t, float32(f))
		}
	case 'Z':
		a, err = NewTextAux(t, string(val))
	case 'H':
		a, err = NewHexAux(t, string(val))
	case 'B':
		a, err = parseArray(t, val)
	default:
		return Aux{}, errors.Wrapf(bamio.ErrInvalidEncoding, "sam: unknown aux type %q in %q", typ, text)
	}
	if err != nil {
		if errors.Is(err, bamio.ErrInvalidEncoding) {
			return Aux{}, err
		}
		return Aux{}, errors.Wrapf(bamio.ErrInvalidEncoding, "sam: invalid aux tag field %q: %v", text, err)
	}
	return a, nil
}

func parseArray(t Tag, val []byte) (Aux, error) {
	if len(val) == 0 || (len(val) > 1 && val[1] != ',') {
		return Aux{}, errors.Wrapf(bamio.ErrInvalidEncoding, "sam: invalid array aux value: %q", val)
	}
	sub := val[0]
	var fields [][]byte
	if len(val) > 2 {
		fields = bytes.Split(val[2:], []byte{','})
	}
	if sub == 'f' {
		a := make([]float32, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(string(f), 32)
			if err != nil {
				return Aux{}, err
			}
			a[i] = float32(v)
		}
		return NewFloatArrayAux(t, a)
	}
	if auxKind[sub] != 'i' {
		return Aux{}, errors.Wrapf(bamio.ErrInvalidEncoding, "sam: invalid array aux type: %q", sub)
	}
	a := make([]int64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(string(f), 10, 64)
		if err != nil {
			return Aux{}, err
		}
		a[i] = v
	}
	return NewIntArrayAux(t, sub, a)
}

// Tag returns the Tag of the Aux.
func (a Aux) Tag() Tag { return a.tag }

// Type returns a byte corresponding to the type of the auxiliary tag.
// Returned values are in {'A', 'c', 'C', 's', 'S', 'i', 'I', 'f', 'Z', 'H', 'B'}.
func (a Aux) Type() byte { return a.typ }

// Kind returns a byte corresponding to the kind of the auxiliary tag.
// Returned values are in {'A', 'i', 'f', 'Z', 'H', 'B'}.
func (a Aux) Kind() byte { return auxKind[a.typ] }

// ArrayType returns the element type of a B array, or zero if the
// Aux is not an array.
func (a Aux) ArrayType() byte { return a.sub }

func (a Aux) typeErr(want string) error {
	return errors.Wrapf(bamio.ErrTagType, "sam: %s tag has type %c, not %s", a.tag, a.typ, want)
}

// Char returns the value of an A field.
func (a Aux) Char() (byte, error) {
	if a.typ != 'A' {
		return 0, a.typeErr("character")
	}
	return byte(a.i), nil
}

// Int returns the value of an integer field of any width.
func (a Aux) Int() (int64, error) {
	if auxKind[a.typ] != 'i' {
		return 0, a.typeErr("integer")
	}
	return a.i, nil
}

// Float returns the value of an f field.
func (a Aux) Float() (float32, error) {
	if a.typ != 'f' {
		return 0, a.typeErr("float")
	}
	return a.f, nil
}

// Text returns the value of a Z field or the hex text of an H field.
func (a Aux) Text() (string, error) {
	if a.typ != 'Z' && a.typ != 'H' {
		return "", a.typeErr("string")
	}
	return a.s, nil
}

// Hex returns the decoded bytes of an H field.
func (a Aux) Hex() ([]byte, error) {
	if a.typ != 'H' {
		return nil, a.typeErr("hex")
	}
	return hex.DecodeString(a.s)
}

// IntArray returns the elements of an integer B array.
func (a Aux) IntArray() ([]int64, error) {
	if a.typ != 'B' || a.sub == 'f' {
		return nil, a.typeErr("integer array")
	}
	return a.ia, nil
}

// FloatArray returns the elements of a float B array.
func (a Aux) FloatArray() ([]float32, error) {
	if a.typ != 'B' || a.sub != 'f' {
		return nil, a.typeErr("float array")
	}
	return a.fa, nil
}

// Value returns v containing the value of the auxiliary tag as a
// Go value of the corresponding width.
func (a Aux) Value() interface{} {
	switch a.typ {
	case 'A':
		return byte(a.i)
	case 'c':
		return int8(a.i)
	case 'C':
		return uint8(a.i)
	case 's':
		return int16(a.i)
	case 'S':
		return uint16(a.i)
	case 'i':
		return int32(a.i)
	case 'I':
		return uint32(a.i)
	case 'f':
		return a.f
	case 'Z', 'H':
		return a.s
	case 'B':
		if a.sub == 'f' {
			return a.fa
		}
		return a.ia
	}
	return nil
}

// Equal returns whether a and o hold the same tag and value. Integer
// fields are compared by value regardless of their width.
func (a Aux) Equal(o Aux) bool {
	if a.tag != o.tag || a.Kind() != o.Kind() {
		return false
	}
	switch a.Kind() {
	case 'A', 'i':
		return a.i == o.i
	case 'f':
		return a.f == o.f
	case 'Z', 'H':
		return a.s == o.s
	case 'B':
		if a.sub != o.sub || len(a.ia) != len(o.ia) || len(a.fa) != len(o.fa) {
			return false
		}
		for i := range a.ia {
			if a.ia[i] != o.ia[i] {
				return false
			}
		}
		for i := range a.fa {
			if a.fa[i] != o.fa[i] {
				return false
			}
		}
		return true
	}
	return false
}

// String returns the SAM text representation of an Aux.
func (a Aux) String() string { return string(a.appendTo(nil)) }

func appendFloat(b []byte, f float32) []byte {
	return strconv.AppendFloat(b, float64(f), 'g', -1, 32)
}

func (a Aux) appendTo(b []byte) []byte {
	b = append(b, a.tag[0], a.tag[1], ':')
	switch a.Kind() {
	case 'A':
		return append(b, 'A', ':', byte(a.i))
	case 'i':
		b = append(b, "i:"...)
		return strconv.AppendInt(b, a.i, 10)
	case 'f':
		return appendFloat(append(b, "f:"...), a.f)
	case 'Z', 'H':
		b = append(b, a.typ, ':')
		return append(b, a.s...)
	case 'B':
		b = append(b, 'B', ':', a.sub)
		for _, v := range a.ia {
			b = strconv.AppendInt(append(b, ','), v, 10)
		}
		for _, v := range a.fa {
			b = appendFloat(append(b, ','), v)
		}
		return b
	}
	return append(b, '?')
}

// AuxFields is a set of auxiliary fields.
type AuxFields []Aux

// Get returns the auxiliary field identified by the given tag and
// whether it was found.
func (a AuxFields) Get(tag Tag) (Aux, bool) {
	for _, f := range a {
		if f.tag == tag {
			return f, true
		}
	}
	return Aux{}, false
}
