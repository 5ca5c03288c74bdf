// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

import (
	"bytes"
	"strconv"

	"github.com/pkg/errors"
	"v.io/x/lib/vlog"

	"github.com/biogo/bamio"
)

var (
	errBadHeader     = errors.WithMessage(bamio.ErrInvalidEncoding, "sam: malformed header line")
	errDupReference  = errors.WithMessage(bamio.ErrInvalidEncoding, "sam: duplicate reference name")
	errDupTag        = errors.WithMessage(bamio.ErrInvalidEncoding, "sam: duplicate field")
	errBadLen        = errors.WithMessage(bamio.ErrInvalidEncoding, "sam: reference length out of range")
	errUsedReference = errors.New("sam: reference already used")
)

// SortOrder indicates the sort order of a SAM or BAM file.
type SortOrder int

const (
	UnknownOrder SortOrder = iota
	Unsorted
	QueryName
	Coordinate
)

var (
	sortOrder = [...]string{
		UnknownOrder: "unknown",
		Unsorted:     "unsorted",
		QueryName:    "queryname",
		Coordinate:   "coordinate",
	}
	sortOrderMap = map[string]SortOrder{
		"unknown":    UnknownOrder,
		"unsorted":   Unsorted,
		"queryname":  QueryName,
		"coordinate": Coordinate,
	}
)

// String returns the string representation of a SortOrder.
func (so SortOrder) String() string {
	if so < Unsorted || so > Coordinate {
		return sortOrder[UnknownOrder]
	}
	return sortOrder[so]
}

// GroupOrder indicates the grouping order of a SAM or BAM file.
type GroupOrder int

const (
	GroupUnspecified GroupOrder = iota
	GroupNone
	GroupQuery
	GroupReference
)

var (
	groupOrder = [...]string{
		GroupUnspecified: "none",
		GroupNone:        "none",
		GroupQuery:       "query",
		GroupReference:   "reference",
	}
	groupOrderMap = map[string]GroupOrder{
		"none":      GroupNone,
		"query":     GroupQuery,
		"reference": GroupReference,
	}
)

// String returns the string representation of a GroupOrder.
func (g GroupOrder) String() string {
	if g < GroupNone || g > GroupReference {
		return groupOrder[GroupUnspecified]
	}
	return groupOrder[g]
}

var (
	headerTag     = Tag{'H', 'D'}
	versionTag    = Tag{'V', 'N'}
	sortOrderTag  = Tag{'S', 'O'}
	groupOrderTag = Tag{'G', 'O'}
	refDictTag    = Tag{'S', 'Q'}
	refNameTag    = Tag{'S', 'N'}
	refLengthTag  = Tag{'L', 'N'}
)

type set map[string]int32

// Header is a SAM or BAM header.
//
// The reference dictionary is held as an ordered list of References
// whose position defines their target ID, with a name index for
// constant time lookup. Header lines other than @HD and @SQ, such as
// @RG, @PG and @CO lines, are retained verbatim and in order.
type Header struct {
	Version    string
	SortOrder  SortOrder
	GroupOrder GroupOrder
	otherTags  []tagPair

	refs     []*Reference
	seenRefs set

	lines []string
}

// NewHeader returns a new Header based on the given text and list
// of References. If there is a conflict between the text and the
// given References NewHeader will return a non-nil error.
func NewHeader(text []byte, r []*Reference) (*Header, error) {
	bh := &Header{seenRefs: set{}}
	for _, ref := range r {
		err := bh.AddReference(ref)
		if err != nil {
			return nil, err
		}
	}
	if text != nil {
		err := bh.UnmarshalText(text)
		if err != nil {
			return nil, err
		}
	}
	return bh, nil
}

// Get returns the string representation of the value associated with the
// given @HD line tag. If the tag is not present the empty string is returned.
func (bh *Header) Get(t Tag) string {
	switch t {
	case versionTag:
		return bh.Version
	case sortOrderTag:
		return bh.SortOrder.String()
	case groupOrderTag:
		return bh.GroupOrder.String()
	}
	for _, tp := range bh.otherTags {
		if t == tp.tag {
			return tp.value
		}
	}
	return ""
}

// Set sets the value associated with the given @HD line tag to the specified
// value. If value is the empty string and the tag may be absent, it is deleted
// or set to a meaningful default (SO:UnknownOrder and GO:GroupUnspecified),
// otherwise an error is returned.
func (bh *Header) Set(t Tag, value string) error {
	switch t {
	case versionTag:
		if value == "" {
			return errBadHeader
		}
		bh.Version = value
	case sortOrderTag:
		if value == "" {
			bh.SortOrder = UnknownOrder
			return nil
		}
		sortOrder, ok := sortOrderMap[value]
		if !ok {
			return errBadHeader
		}
		bh.SortOrder = sortOrder
	case groupOrderTag:
		if value == "" {
			bh.GroupOrder = GroupUnspecified
			return nil
		}
		groupOrder, ok := groupOrderMap[value]
		if !ok {
			return errBadHeader
		}
		bh.GroupOrder = groupOrder
	default:
		bh.otherTags = setTag(bh.otherTags, t, value)
	}
	return nil
}

// Clone returns a deep copy of the receiver.
func (bh *Header) Clone() *Header {
	c := &Header{
		Version:    bh.Version,
		SortOrder:  bh.SortOrder,
		GroupOrder: bh.GroupOrder,
		otherTags:  append([]tagPair(nil), bh.otherTags...),
		refs:       make([]*Reference, len(bh.refs)),
		seenRefs:   make(set, len(bh.seenRefs)),
		lines:      append([]string(nil), bh.lines...),
	}
	for i, r := range bh.refs {
		c.refs[i] = r.Clone()
		c.refs[i].id = r.id
	}
	for k, v := range bh.seenRefs {
		c.seenRefs[k] = v
	}
	return c
}

// Refs returns the Header's list of References. The returned slice
// should not be altered.
func (bh *Header) Refs() []*Reference {
	return bh.refs
}

// Ref returns the Reference with the given target ID and whether it
// exists.
func (bh *Header) Ref(id int) (*Reference, bool) {
	if id < 0 || id >= len(bh.refs) {
		return nil, false
	}
	return bh.refs[id], true
}

// LookupTarget returns the target ID of the named reference and
// whether it is present.
func (bh *Header) LookupTarget(name string) (int, bool) {
	id, ok := bh.seenRefs[name]
	if !ok {
		return -1, false
	}
	return int(id), true
}

// RefByName returns the named Reference. If the name is not in the
// Header an error wrapping bamio.ErrUnknownReference is returned.
func (bh *Header) RefByName(name string) (*Reference, error) {
	id, ok := bh.seenRefs[name]
	if !ok {
		return nil, errors.Wrapf(bamio.ErrUnknownReference, "sam: no reference with name %q", name)
	}
	return bh.refs[id], nil
}

// AddReference adds r to the Header. If a Reference with the same name
// is already present, r must agree with its length and any fields r
// sets are merged into the existing Reference.
func (bh *Header) AddReference(r *Reference) error {
	if bh.seenRefs == nil {
		bh.seenRefs = set{}
	}
	if dupID, dup := bh.seenRefs[r.name]; dup {
		er := bh.refs[dupID]
		if er == r {
			return nil
		}
		if er.lRef != r.lRef {
			return errors.Wrapf(errDupReference, "sam: %q", r.name)
		}
		for _, tp := range r.otherTags {
			er.otherTags = setTag(er.otherTags, tp.tag, tp.value)
		}
		return nil
	}
	if r.id >= 0 {
		return errUsedReference
	}
	if !validRefName(r.name) {
		return errors.Wrapf(bamio.ErrInvalidEncoding, "sam: invalid reference name %q", r.name)
	}
	r.id = int32(len(bh.refs))
	bh.seenRefs[r.name] = r.id
	bh.refs = append(bh.refs, r)
	return nil
}

// Lines returns the header lines other than @HD and @SQ, without line
// terminators, in the order they were read or added. The returned
// slice should not be altered.
func (bh *Header) Lines() []string {
	return bh.lines
}

// AddLine appends a header line such as an @RG, @PG or @CO line. The
// line must not include a line terminator and must not be an @HD or
// @SQ line.
func (bh *Header) AddLine(l string) error {
	if !validLine([]byte(l)) {
		return errors.Wrapf(errBadHeader, "sam: %q", l)
	}
	var t Tag
	copy(t[:], l[1:3])
	if t == headerTag || t == refDictTag {
		return errors.Wrapf(errBadHeader, "sam: %s lines cannot be added with AddLine", t)
	}
	bh.lines = append(bh.lines, l)
	return nil
}

func validLine(l []byte) bool {
	return len(l) >= 3 && l[0] == '@' && isAlpha(l[1]) && (isAlpha(l[2]) || isDigit(l[2])) &&
		(len(l) == 3 || l[3] == '\t') && bytes.IndexAny(l, "\r\n") < 0
}

// Validate checks that the References of r belong to the Header. If they
// do not an error wrapping bamio.ErrHeaderMismatch is returned.
func (bh *Header) Validate(r *Record) error {
	for _, ref := range [...]*Reference{r.Ref, r.MateRef} {
		if ref == nil {
			continue
		}
		hr, ok := bh.Ref(ref.ID())
		if !ok || hr.name != ref.name {
			return errors.Wrapf(bamio.ErrHeaderMismatch, "sam: record %q refers to reference %q (id %d) not in header", r.Name, ref.name, ref.ID())
		}
	}
	return nil
}

// MarshalText implements the encoding.TextMarshaler interface.
func (bh *Header) MarshalText() ([]byte, error) {
	var b []byte
	b = bh.appendHD(b)
	for _, r := range bh.refs {
		b = append(b, r.String()...)
		b = append(b, '\n')
	}
	return bh.appendLines(b), nil
}

// Text returns the header text other than the reference dictionary,
// the @HD line followed by all other header lines.
func (bh *Header) Text() []byte {
	return bh.appendLines(bh.appendHD(nil))
}

func (bh *Header) appendHD(b []byte) []byte {
	if bh.Version == "" {
		return b
	}
	b = append(b, "@HD\tVN:"...)
	b = append(b, bh.Version...)
	if bh.SortOrder != UnknownOrder {
		b = append(b, "\tSO:"...)
		b = append(b, bh.SortOrder.String()...)
	}
	if bh.GroupOrder != GroupUnspecified {
		b = append(b, "\tGO:"...)
		b = append(b, bh.GroupOrder.String()...)
	}
	for _, tp := range bh.otherTags {
		b = tp.appendTo(b)
	}
	return append(b, '\n')
}

func (bh *Header) appendLines(b []byte) []byte {
	for _, l := range bh.lines {
		b = append(b, l...)
		b = append(b, '\n')
	}
	return b
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
// @SQ lines naming References already present in the Header must
// agree with their lengths.
func (bh *Header) UnmarshalText(text []byte) error {
	return bh.unmarshalText(text, false)
}

// unmarshalText parses SAM header text into bh. If reconcile is true,
// the Header's References are authoritative: @SQ lines only contribute
// additional fields to References of the same name and are otherwise
// ignored.
func (bh *Header) unmarshalText(text []byte, reconcile bool) error {
	if bh.seenRefs == nil {
		bh.seenRefs = set{}
	}
	var t Tag
	for i, l := range bytes.Split(text, []byte{'\n'}) {
		if len(l) > 0 && l[len(l)-1] == '\r' {
			l = l[:len(l)-1]
		}
		if len(l) == 0 {
			continue
		}
		// Binary headers are often NUL padded.
		if reconcile && l[0] == 0 {
			continue
		}
		if !validLine(l) {
			return errors.Wrapf(errBadHeader, "line %d: %q", i+1, l)
		}
		copy(t[:], l[1:3])
		var err error
		switch t {
		case headerTag:
			err = headerLine(l, bh)
		case refDictTag:
			err = referenceLine(l, bh, reconcile)
		default:
			bh.lines = append(bh.lines, string(l))
		}
		if err != nil {
			return errors.Wrapf(err, "line %d: %q", i+1, l)
		}
	}
	return nil
}

// splitFields returns the TAG:VALUE fields of a header line, rejecting
// malformed and duplicated tags.
func splitFields(l []byte) ([]tagPair, error) {
	fields := bytes.Split(l, []byte{'\t'})[1:]
	tags := make([]tagPair, 0, len(fields))
	seen := make(map[Tag]struct{}, len(fields))
	for _, f := range fields {
		if len(f) < 3 || f[2] != ':' {
			return nil, errBadHeader
		}
		t := Tag{f[0], f[1]}
		if _, ok := seen[t]; ok {
			return nil, errDupTag
		}
		seen[t] = struct{}{}
		tags = append(tags, tagPair{tag: t, value: string(f[3:])})
	}
	return tags, nil
}

func headerLine(l []byte, bh *Header) error {
	if bh.Version != "" {
		return errBadHeader
	}
	fields, err := splitFields(l)
	if err != nil {
		return err
	}
	for _, f := range fields {
		switch f.tag {
		case versionTag:
			bh.Version = f.value
		case sortOrderTag:
			bh.SortOrder = sortOrderMap[f.value]
		case groupOrderTag:
			bh.GroupOrder = groupOrderMap[f.value]
		default:
			bh.otherTags = append(bh.otherTags, f)
		}
	}
	if bh.Version == "" {
		return errBadHeader
	}
	return nil
}

func referenceLine(l []byte, bh *Header, reconcile bool) error {
	fields, err := splitFields(l)
	if err != nil {
		return err
	}
	var (
		rf       = &Reference{id: -1}
		nok, lok bool
	)
	for _, f := range fields {
		switch f.tag {
		case refNameTag:
			rf.name = f.value
			nok = true
		case refLengthTag:
			n, err := strconv.Atoi(f.value)
			if err != nil {
				return errBadHeader
			}
			if !validLen(n) {
				return errBadLen
			}
			rf.lRef = int32(n)
			lok = true
		default:
			rf.otherTags = append(rf.otherTags, f)
		}
	}
	if !nok || !lok {
		return errBadHeader
	}
	if reconcile {
		id, ok := bh.seenRefs[rf.name]
		if !ok {
			vlog.VI(1).Infof("sam: ignoring @SQ line for %q absent from binary reference list", rf.name)
			return nil
		}
		er := bh.refs[id]
		if er.lRef != rf.lRef {
			vlog.VI(1).Infof("sam: @SQ length %d for %q disagrees with binary length %d", rf.lRef, rf.name, er.lRef)
		}
		for _, tp := range rf.otherTags {
			er.otherTags = setTag(er.otherTags, tp.tag, tp.value)
		}
		return nil
	}
	return bh.AddReference(rf)
}
