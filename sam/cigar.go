// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/biogo/bamio"
)

// Cigar is a set of CIGAR operations.
type Cigar []CigarOp

// IsValid returns whether the CIGAR string is valid for a record of the given
// sequence length. Validity is defined by the sum of query consuming operations
// matching the given length and clipping operations only being present at the
// ends of alignments.
func (c Cigar) IsValid(length int) bool {
	for i, co := range c {
		ct := co.Type()
		if ct >= lastCigar {
			return false
		}
		if ct == CigarHardClipped && i != 0 && i != len(c)-1 {
			return false
		}
		if ct == CigarSoftClipped && i != 0 && i != len(c)-1 {
			if c[i-1].Type() != CigarHardClipped && c[i+1].Type() != CigarHardClipped {
				return false
			}
		}
		length -= co.Len() * ct.Consumes().Query
	}
	return length == 0
}

// String returns the CIGAR string for c.
func (c Cigar) String() string {
	if len(c) == 0 {
		return "*"
	}
	b := make([]byte, 0, 4*len(c))
	for _, co := range c {
		b = co.appendTo(b)
	}
	return string(b)
}

// Lengths returns the number of reference and read bases described by the Cigar.
func (c Cigar) Lengths() (ref, read int) {
	for _, co := range c {
		con := co.Type().Consumes()
		ref += co.Len() * con.Reference
		read += co.Len() * con.Query
	}
	return ref, read
}

// RefLen returns the number of reference bases covered by the Cigar, the
// sum of the M, D, N, = and X operation lengths.
func (c Cigar) RefLen() int {
	ref, _ := c.Lengths()
	return ref
}

// QueryLen returns the number of read bases described by the Cigar, the
// sum of the M, I, S, = and X operation lengths.
func (c Cigar) QueryLen() int {
	_, read := c.Lengths()
	return read
}

// CigarOp is a single CIGAR operation including the operation type and the
// length of the operation.
type CigarOp uint32

// NewCigarOp returns a CIGAR operation of the specified type with length n.
func NewCigarOp(t CigarOpType, n int) CigarOp {
	return CigarOp(t) | (CigarOp(n) << 4)
}

// Type returns the type of the CIGAR operation for the CigarOp.
func (co CigarOp) Type() CigarOpType { return CigarOpType(co & 0xf) }

// Len returns the number of positions affected by the CigarOp CIGAR operation.
func (co CigarOp) Len() int { return int(co >> 4) }

// String returns the string representation of the CigarOp
func (co CigarOp) String() string { return string(co.appendTo(nil)) }

func (co CigarOp) appendTo(b []byte) []byte {
	b = strconv.AppendInt(b, int64(co.Len()), 10)
	return append(b, co.Type().String()...)
}

// A CigarOpType represents the type of operation described by a CigarOp.
type CigarOpType byte

const (
	CigarMatch       CigarOpType = iota // Alignment match (can be a sequence match or mismatch).
	CigarInsertion                      // Insertion to the reference.
	CigarDeletion                       // Deletion from the reference.
	CigarSkipped                        // Skipped region from the reference.
	CigarSoftClipped                    // Soft clipping (clipped sequences present in SEQ).
	CigarHardClipped                    // Hard clipping (clipped sequences NOT present in SEQ).
	CigarPadded                         // Padding (silent deletion from padded reference).
	CigarEqual                          // Sequence match.
	CigarMismatch                       // Sequence mismatch.
	lastCigar
)

var cigarOps = []string{"M", "I", "D", "N", "S", "H", "P", "=", "X", "?"}

// Consumes returns the CIGAR operation alignment consumption characteristics for the CigarOpType.
//
// The Consume values for each of the CigarOpTypes is as follows:
//
//                    Query  Reference
//  CigarMatch          1        1
//  CigarInsertion      1        0
//  CigarDeletion       0        1
//  CigarSkipped        0        1
//  CigarSoftClipped    1        0
//  CigarHardClipped    0        0
//  CigarPadded         0        0
//  CigarEqual          1        1
//  CigarMismatch       1        1
//
func (ct CigarOpType) Consumes() Consume {
	if ct > lastCigar {
		ct = lastCigar
	}
	return consume[ct]
}

// String returns the string representation of a CigarOpType.
func (ct CigarOpType) String() string {
	if ct > lastCigar {
		ct = lastCigar
	}
	return cigarOps[ct]
}

// Consume describes how CIGAR operations consume alignment bases.
type Consume struct {
	Query, Reference int
}

var consume = []Consume{
	CigarMatch:       {Query: 1, Reference: 1},
	CigarInsertion:   {Query: 1, Reference: 0},
	CigarDeletion:    {Query: 0, Reference: 1},
	CigarSkipped:     {Query: 0, Reference: 1},
	CigarSoftClipped: {Query: 1, Reference: 0},
	CigarHardClipped: {Query: 0, Reference: 0},
	CigarPadded:      {Query: 0, Reference: 0},
	CigarEqual:       {Query: 1, Reference: 1},
	CigarMismatch:    {Query: 1, Reference: 1},
	lastCigar:        {},
}

var cigarOpTypeLookup [256]CigarOpType

func init() {
	for i := range cigarOpTypeLookup {
		cigarOpTypeLookup[i] = lastCigar
	}
	for op, c := range []byte{'M', 'I', 'D', 'N', 'S', 'H', 'P', '=', 'X'} {
		cigarOpTypeLookup[c] = CigarOpType(op)
	}
}

// maxCigarOpLen is the largest operation length that fits in the
// 28 bits available in a packed CigarOp.
const maxCigarOpLen = 1<<28 - 1

// ParseCigar returns a Cigar parsed from the provided byte slice.
// The text must be "*" or one or more <length><op> pairs where
// length is a decimal number and op is one of MIDNSHP=X.
func ParseCigar(b []byte) (Cigar, error) {
	if len(b) == 1 && b[0] == '*' {
		return nil, nil
	}
	if len(b) == 0 {
		return nil, errors.Wrap(bamio.ErrMalformedCigar, "sam: empty cigar")
	}
	var c Cigar
	for i := 0; i < len(b); {
		n, j := 0, i
		for ; j < len(b) && '0' <= b[j] && b[j] <= '9'; j++ {
			n = n*10 + int(b[j]-'0')
			if n > maxCigarOpLen {
				return nil, errors.Wrapf(bamio.ErrMalformedCigar, "sam: cigar operation length overflow in %q at %d", b, i)
			}
		}
		if j == i {
			return nil, errors.Wrapf(bamio.ErrMalformedCigar, "sam: missing cigar operation length in %q at %d", b, i)
		}
		if j == len(b) {
			return nil, errors.Wrapf(bamio.ErrMalformedCigar, "sam: missing cigar operation in %q", b)
		}
		op := cigarOpTypeLookup[b[j]]
		if op == lastCigar {
			return nil, errors.Wrapf(bamio.ErrMalformedCigar, "sam: unknown cigar operation %q in %q", b[j], b)
		}
		c = append(c, NewCigarOp(op, n))
		i = j + 1
	}
	return c, nil
}
