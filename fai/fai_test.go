// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fai

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biogo/bamio"
)

const fn654386 = `>FN654386.1
TTTTTCAAAGACGTTAAGAGCATCAAACAGAATCATTTTGTTCTCGGATGAGAAGCTGAAAACGAGATTC
TCGTGTTGCTTCTCGGTCATACCAAAGACC
>FN654386.2
GCGAACTGATGGTCAAGCACAGCTAGAACGTCTTCGTTTGAAGCTGGAGACGATTGCCGCGCAGGCAACT
CGCCGACATCGACGATGTCTTCGTAGTCAT
>FN654386.3
CTGAATTGAGCCGCGGGCGATTGATTCGTGTCGGCGCGTCAGGAGGAAGTTCAAGTCGGAATCTCGCGTT
TTCATTAATCATTTGTACTGGATCTGTTCG
`

func index(recs ...Record) *Index {
	var idx Index
	for _, r := range recs {
		if err := idx.add(r); err != nil {
			panic(err)
		}
	}
	return &idx
}

func TestNewIndex(t *testing.T) {
	for _, test := range []struct {
		name string
		in   string
		want *Index
	}{
		{
			name: "empty",
			in:   ``,
			want: &Index{},
		},
		{
			// Index validated against samtools faidx for this set of sequences.
			name: "simple",
			in:   fn654386,
			want: index(
				Record{Name: "FN654386.1", Length: 100, Start: 12, BasesPerLine: 70, BytesPerLine: 71},
				Record{Name: "FN654386.2", Length: 100, Start: 126, BasesPerLine: 70, BytesPerLine: 71},
				Record{Name: "FN654386.3", Length: 100, Start: 240, BasesPerLine: 70, BytesPerLine: 71},
			),
		},
		{
			// Index validated against samtools faidx for this set of sequences.
			name: "descriptions",
			in: `>FN654386.1	descriptive text separated by tab
TTTTTCAAAGACGTTAAGAGCATCAAACAGAATCATTTTGTTCTCGGATGAGAAGCTGAAAACGAGATTC
TCGTGTTGCTTCTCGGTCATACCAAAGACC
>FN654386.2 descriptive text separated by space
GCGAACTGATGGTCAAGCACAGCTAGAACGTCTTCGTTTGAAGCTGGAGACGATTGCCGCGCAGGCAACT
CGCCGACATCGACGATGTCTTCGTAGTCAT
`,
			want: index(
				Record{Name: "FN654386.1", Length: 100, Start: 46, BasesPerLine: 70, BytesPerLine: 71},
				Record{Name: "FN654386.2", Length: 100, Start: 196, BasesPerLine: 70, BytesPerLine: 71},
			),
		},
		{
			name: "crlf",
			in:   ">s1\r\nACGTACGT\r\nACG\r\n>s2\r\nTTTT\r\n",
			want: index(
				Record{Name: "s1", Length: 11, Start: 5, BasesPerLine: 8, BytesPerLine: 10},
				Record{Name: "s2", Length: 4, Start: 25, BasesPerLine: 4, BytesPerLine: 6},
			),
		},
		{
			name: "no final newline",
			in:   ">s1\nACGT\nAC",
			want: index(Record{Name: "s1", Length: 6, Start: 4, BasesPerLine: 4, BytesPerLine: 5}),
		},
		{
			name: "blank lines after header",
			in:   ">s\n\nACGT\nAC\n>t\r\n\r\n\r\nGG\r\n",
			want: index(
				Record{Name: "s", Length: 6, Start: 4, BasesPerLine: 4, BytesPerLine: 5},
				Record{Name: "t", Length: 2, Start: 20, BasesPerLine: 2, BytesPerLine: 4},
			),
		},
		{
			name: "empty sequence",
			in:   ">s1\n>s2\nAC\n",
			want: index(
				Record{Name: "s1", Length: 0, Start: 4},
				Record{Name: "s2", Length: 2, Start: 8, BasesPerLine: 2, BytesPerLine: 3},
			),
		},
	} {
		got, err := NewIndex(strings.NewReader(test.in))
		require.NoError(t, err, test.name)
		assert.Equal(t, test.want.Records(), got.Records(), test.name)
		assert.Equal(t, test.want.Names(), got.Names(), test.name)
	}
}

func TestNewIndexErrors(t *testing.T) {
	for _, test := range []struct {
		name string
		in   string
	}{
		{"missing name", ">FN654386.1\nACGT\n>\nACGT\n"},
		{"blank name", ">FN654386.1\nACGT\n>    \nACGT\n"},
		{"duplicate name", ">FN654386.1\nACGT\n>FN654386.1\nACGT\n"},
		{"short line", ">s\nACGTACGT\nACGT\nACGTACGT\n"},
		{"long line", ">s\nACGT\nACGTACGT\n"},
		{"blank line", ">s\nACGT\n\nACGT\n"},
		{"data before header", "ACGT\n>s\nACGT\n"},
	} {
		_, err := NewIndex(strings.NewReader(test.in))
		assert.True(t, errors.Is(err, bamio.ErrInvalidEncoding), "%s: got %v", test.name, err)
	}
}

func TestReadFrom(t *testing.T) {
	const text = `NODE_7194_length_226_cov_2.672566	246	35	60	61
NODE_7195_length_193_cov_2.906736	213	321	60	61
NODE_7419_length_181_cov_4.668508	201	573	60	61
`
	idx, err := ReadFrom(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
	rec, ok := idx.Get("NODE_7195_length_193_cov_2.906736")
	require.True(t, ok)
	assert.Equal(t, Record{Name: "NODE_7195_length_193_cov_2.906736", Length: 213, Start: 321, BasesPerLine: 60, BytesPerLine: 61}, rec)
	_, ok = idx.Get("NODE_0")
	assert.False(t, ok)

	var buf bytes.Buffer
	require.NoError(t, WriteTo(&buf, idx))
	assert.Equal(t, text, buf.String())

	empty, err := ReadFrom(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestReadFromErrors(t *testing.T) {
	for _, test := range []struct {
		name string
		in   string
	}{
		{"duplicate", "a\t10\t3\t10\t11\na\t10\t20\t10\t11\n"},
		{"short record", "a\t10\t3\t10\n"},
		{"long record", "a\t10\t3\t10\t11\t0\n"},
		{"not a number", "a\tten\t3\t10\t11\n"},
		{"negative", "a\t10\t-3\t10\t11\n"},
		{"zero width", "a\t10\t3\t0\t0\n"},
		{"narrow line", "a\t10\t3\t10\t9\n"},
		{"empty name", "\t10\t3\t10\t11\n"},
	} {
		_, err := ReadFrom(strings.NewReader(test.in))
		assert.True(t, errors.Is(err, bamio.ErrMalformedIndex), "%s: got %v", test.name, err)
	}
}

func TestWriteToOrder(t *testing.T) {
	idx := index(
		Record{Name: "b", Length: 4, Start: 20, BasesPerLine: 4, BytesPerLine: 5},
		Record{Name: "a", Length: 4, Start: 3, BasesPerLine: 4, BytesPerLine: 5},
	)
	var buf bytes.Buffer
	require.NoError(t, WriteTo(&buf, idx))
	assert.Equal(t, "a\t4\t3\t4\t5\nb\t4\t20\t4\t5\n", buf.String())
}

func TestPosition(t *testing.T) {
	r := Record{Name: "s", Length: 100, Start: 12, BasesPerLine: 70, BytesPerLine: 71}
	assert.Equal(t, int64(12), r.Position(0))
	assert.Equal(t, int64(81), r.Position(69))
	assert.Equal(t, int64(83), r.Position(70))
	assert.Panics(t, func() { r.Position(100) })
	assert.Panics(t, func() { r.Position(-1) })
}
