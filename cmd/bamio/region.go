// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/biogo/bamio"
)

// region is a zero-based half-open interval on a named sequence.
type region struct {
	name     string
	beg, end int
}

// parseRegion parses s as name, name:beg or name:beg-end with one-based
// inclusive coordinates, as used by samtools. Commas in coordinates are
// ignored. seqLen returns the length of a named sequence and false if
// the name is not known, in which case the returned error wraps
// unknown. A name holding a colon is matched whole before any
// coordinate suffix is considered.
func parseRegion(s string, seqLen func(string) (int, bool), unknown error) (region, error) {
	if n, ok := seqLen(s); ok {
		return region{name: s, end: n}, nil
	}
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return region{}, errors.Wrapf(unknown, "no sequence %q", s)
	}
	name := s[:i]
	n, ok := seqLen(name)
	if !ok {
		return region{}, errors.Wrapf(unknown, "no sequence %q", name)
	}

	coords := strings.Replace(s[i+1:], ",", "", -1)
	begText, endText := coords, ""
	if j := strings.IndexByte(coords, '-'); j >= 0 {
		begText, endText = coords[:j], coords[j+1:]
	}
	beg, err := strconv.Atoi(begText)
	if err != nil {
		return region{}, errors.Errorf("invalid region %q: %v", s, err)
	}
	end := n
	if endText != "" {
		end, err = strconv.Atoi(endText)
		if err != nil {
			return region{}, errors.Errorf("invalid region %q: %v", s, err)
		}
	}
	if beg < 1 || end < beg-1 {
		return region{}, errors.Wrapf(bamio.ErrRangeOutOfBounds, "invalid region %q", s)
	}
	if end > n {
		end = n
	}
	if beg-1 > end {
		beg = end + 1
	}
	return region{name: name, beg: beg - 1, end: end}, nil
}

// String returns the region in one-based inclusive form.
func (r region) String() string {
	return r.name + ":" + strconv.Itoa(r.beg+1) + "-" + strconv.Itoa(r.end)
}
