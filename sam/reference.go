// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/biogo/bamio"
)

// Reference is a mapping reference.
type Reference struct {
	id   int32
	name string
	lRef int32

	// otherTags holds @SQ fields other than SN and LN in
	// the order they were given.
	otherTags []tagPair
}

// NewReference returns a new Reference based on the given parameters.
// The name must be non-empty and length must be a valid reference
// length according to the SAM specification, [1, 1<<31).
func NewReference(name string, length int) (*Reference, error) {
	if !validLen(length) {
		return nil, errors.Wrapf(errBadLen, "sam: reference %q length %d", name, length)
	}
	if !validRefName(name) {
		return nil, errors.Wrapf(bamio.ErrInvalidEncoding, "sam: invalid reference name %q", name)
	}
	return &Reference{
		id:   -1, // This is altered by a Header when added.
		name: name,
		lRef: int32(length),
	}, nil
}

// validRefName returns whether name is a valid SAM reference name.
func validRefName(name string) bool {
	if name == "" || name == "*" || name == "=" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] <= ' ' || '~' < name[i] {
			return false
		}
	}
	return true
}

// ID returns the header ID of the Reference.
func (r *Reference) ID() int {
	if r == nil {
		return -1
	}
	return int(r.id)
}

// Name returns the reference name.
func (r *Reference) Name() string {
	if r == nil {
		return "*"
	}
	return r.name
}

// Len returns the length of the reference sequence.
func (r *Reference) Len() int {
	if r == nil {
		return -1
	}
	return int(r.lRef)
}

// SetLen sets the length of the reference sequence to l. The given length
// must be a valid SAM reference length.
func (r *Reference) SetLen(l int) error {
	if !validLen(l) {
		return errBadLen
	}
	r.lRef = int32(l)
	return nil
}

// Get returns the value of the @SQ field with the given tag, such as
// M5, AS, SP or UR. If the field is not present the empty string is
// returned.
func (r *Reference) Get(t Tag) string {
	switch t {
	case refNameTag:
		return r.Name()
	case refLengthTag:
		return strconv.Itoa(r.Len())
	}
	if r == nil {
		return ""
	}
	for _, tp := range r.otherTags {
		if tp.tag == t {
			return tp.value
		}
	}
	return ""
}

// Set sets the @SQ field with the given tag to value. An empty value
// deletes the field. The SN and LN fields cannot be set with Set.
func (r *Reference) Set(t Tag, value string) error {
	if t == refNameTag || t == refLengthTag {
		return errors.Wrapf(errBadHeader, "sam: cannot set %s with Set", t)
	}
	r.otherTags = setTag(r.otherTags, t, value)
	return nil
}

// String returns a string representation of the Reference according to the
// SAM specification section 1.3,
func (r *Reference) String() string {
	b := make([]byte, 0, 32)
	b = append(b, "@SQ\tSN:"...)
	b = append(b, r.name...)
	b = append(b, "\tLN:"...)
	b = strconv.AppendInt(b, int64(r.lRef), 10)
	for _, tp := range r.otherTags {
		b = tp.appendTo(b)
	}
	return string(b)
}

// Clone returns a deep copy of the Reference. The clone is not
// associated with any Header.
func (r *Reference) Clone() *Reference {
	if r == nil {
		return nil
	}
	cr := *r
	cr.id = -1
	cr.otherTags = append([]tagPair(nil), r.otherTags...)
	return &cr
}

func equalRefs(a, b *Reference) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.name != b.name || a.lRef != b.lRef || len(a.otherTags) != len(b.otherTags) {
		return false
	}
	for i, tp := range a.otherTags {
		if b.otherTags[i] != tp {
			return false
		}
	}
	return true
}

// tagPair is a header line field.
type tagPair struct {
	tag   Tag
	value string
}

func (tp tagPair) appendTo(b []byte) []byte {
	b = append(b, '\t', tp.tag[0], tp.tag[1], ':')
	return append(b, tp.value...)
}

func setTag(tags []tagPair, t Tag, value string) []tagPair {
	for i, tp := range tags {
		if tp.tag != t {
			continue
		}
		if value == "" {
			return append(tags[:i:i], tags[i+1:]...)
		}
		tags[i].value = value
		return tags
	}
	if value == "" {
		return tags
	}
	return append(tags, tagPair{tag: t, value: value})
}
