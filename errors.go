// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bamio holds the error values shared by the bamio packages.
//
// The sam, bam, bgzf and fai packages wrap these values with context,
// so callers should classify failures with errors.Is rather than by
// comparing error strings:
//
//  _, err := f.Fetch("chrZZZ", 0, 10)
//  if errors.Is(err, bamio.ErrUnknownSequence) {
//  	// No such sequence; not an I/O failure.
//  }
//
// End of a stream is always reported as an unwrapped io.EOF.
package bamio

import "errors"

var (
	// ErrTruncatedInput is returned when fewer bytes remain
	// than a fixed-size or length-prefixed field requires.
	ErrTruncatedInput = errors.New("truncated input")

	// ErrTruncatedRecord is returned when a BAM record's declared
	// length cannot be satisfied by the remaining data.
	ErrTruncatedRecord = errors.New("truncated record")

	// ErrInvalidEncoding is returned for structurally invalid
	// but well-bounded data such as a negative length prefix.
	ErrInvalidEncoding = errors.New("invalid encoding")

	// ErrMalformedCigar is returned when CIGAR text does not
	// follow the <length><op> grammar.
	ErrMalformedCigar = errors.New("malformed cigar")

	// ErrMalformedIndex is returned when a BAI or FAI index
	// cannot be decoded.
	ErrMalformedIndex = errors.New("malformed index")

	// ErrUnknownTarget is returned when a SAM line names a
	// reference that is not in the active header.
	ErrUnknownTarget = errors.New("unknown target")

	// ErrUnknownReference is returned when a region query names
	// a reference that is not in the header.
	ErrUnknownReference = errors.New("unknown reference")

	// ErrUnknownSequence is returned when a FASTA fetch names a
	// sequence that is not in the index.
	ErrUnknownSequence = errors.New("unknown sequence")

	// ErrRangeOutOfBounds is returned for coordinates outside
	// the valid range of a known sequence.
	ErrRangeOutOfBounds = errors.New("range out of bounds")

	// ErrHeaderMismatch is returned when a record written to a
	// stream refers to a reference outside the stream's header.
	ErrHeaderMismatch = errors.New("header mismatch")

	// ErrIndexNotFound is returned when a companion index
	// file does not exist.
	ErrIndexNotFound = errors.New("index not found")

	// ErrHandleClosed is returned by operations on a closed
	// reader, writer or file handle.
	ErrHandleClosed = errors.New("handle closed")

	// ErrTagAbsent is returned by typed auxiliary tag lookups
	// when the record has no field with the requested tag.
	ErrTagAbsent = errors.New("tag absent")

	// ErrTagType is returned by typed auxiliary tag accessors
	// when the field holds a value of a different type.
	ErrTagType = errors.New("tag type mismatch")

	// ErrVerification is returned when two representations
	// of the same data disagree.
	ErrVerification = errors.New("verification failed")
)
