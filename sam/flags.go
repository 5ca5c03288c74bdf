// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/biogo/bamio"
)

// A Flags represents a BAM record's alignment FLAG field.
type Flags uint16

const (
	Paired        Flags = 1 << iota // The read is paired in sequencing, no matter whether it is mapped in a pair.
	ProperPair                      // The read is mapped in a proper pair.
	Unmapped                        // The read itself is unmapped; conflictive with ProperPair.
	MateUnmapped                    // The mate is unmapped.
	Reverse                         // The read is mapped to the reverse strand.
	MateReverse                     // The mate is mapped to the reverse strand.
	Read1                           // This is read1.
	Read2                           // This is read2.
	Secondary                       // Not primary alignment.
	QCFail                          // QC failure.
	Duplicate                       // Optical or PCR duplicate.
	Supplementary                   // Supplementary alignment, indicates alignment is part of a chimeric alignment.
)

const (
	flagLetters = "pPuUrR12sfdS"

	// If 0x01 is unset, no assumptions can be made about 0x02, 0x08, 0x20, 0x40 and 0x80
	pairedMask = ProperPair | MateUnmapped | MateReverse | Read1 | Read2
)

// String representation of BAM alignment flags:
//  0x001 - p - Paired
//  0x002 - P - ProperPair
//  0x004 - u - Unmapped
//  0x008 - U - MateUnmapped
//  0x010 - r - Reverse
//  0x020 - R - MateReverse
//  0x040 - 1 - Read1
//  0x080 - 2 - Read2
//  0x100 - s - Secondary
//  0x200 - f - QCFail
//  0x400 - d - Duplicate
//  0x800 - S - Supplementary
//
// Note that flag bits are represented high order to the right.
func (f Flags) String() string {
	if f&Paired == 0 {
		f &^= pairedMask
	}
	b := make([]byte, len(flagLetters))
	for i, c := range flagLetters {
		if f&(1<<uint(i)) != 0 {
			b[i] = byte(c)
		} else {
			b[i] = '-'
		}
	}
	return string(b)
}

// Flag format constants.
const (
	FlagDecimal = iota
	FlagHex
	FlagString
)

func validFlagFormat(format int) bool { return FlagDecimal <= format && format <= FlagString }

func appendFlags(dst []byte, f Flags, format int) []byte {
	switch format {
	case FlagHex:
		dst = append(dst, "0x"...)
		return strconv.AppendUint(dst, uint64(f), 16)
	case FlagString:
		if f&Paired == 0 {
			f &^= pairedMask
		}
		if f == 0 {
			return append(dst, '0')
		}
		for i, c := range flagLetters {
			if f&(1<<uint(i)) != 0 {
				dst = append(dst, byte(c))
			}
		}
		return dst
	default:
		return strconv.AppendUint(dst, uint64(f), 10)
	}
}

// ParseFlags parses the SAM FLAG column. Decimal, hexadecimal with a
// 0x prefix and the letter form written by FlagString are accepted.
func ParseFlags(b []byte) (Flags, error) {
	if len(b) == 0 {
		return 0, errors.Wrap(bamio.ErrInvalidEncoding, "sam: empty flags")
	}
	if '0' <= b[0] && b[0] <= '9' {
		text, base := string(b), 10
		if len(b) > 2 && b[0] == '0' && (b[1] == 'x' || b[1] == 'X') {
			text, base = text[2:], 16
		}
		f, err := strconv.ParseUint(text, base, 16)
		if err != nil {
			return 0, errors.Wrapf(bamio.ErrInvalidEncoding, "sam: failed to parse flags: %v", err)
		}
		return Flags(f), nil
	}
	var f Flags
	for _, c := range b {
		i := indexByte(flagLetters, c)
		if i < 0 {
			return 0, errors.Wrapf(bamio.ErrInvalidEncoding, "sam: invalid flag letter %q", c)
		}
		f |= 1 << uint(i)
	}
	return f, nil
}

func indexByte(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}
