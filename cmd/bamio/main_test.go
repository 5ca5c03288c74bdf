// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biogo/bamio"
)

const records = `r1	0	chr1	10	60	10M	*	0	0	ACGTACGTAC	IIIIIIIIII
r2	0	chr1	100	60	10M	*	0	0	ACGTACGTAC	*
r3	16	chr2	50	60	5M	*	0	0	ACGTA	IIIII
r4	4	*	0	0	*	*	0	0	ACGT	IIII
`

const samText = "@HD\tVN:1.6\tSO:coordinate\n" +
	"@SQ\tSN:chr1\tLN:1000\n" +
	"@SQ\tSN:chr2\tLN:500\n" +
	records

func run(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(ioutil.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func tempDir(t *testing.T) string {
	dir, err := ioutil.TempDir("", "bamio")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestBAMCommands(t *testing.T) {
	dir := tempDir(t)
	samPath := filepath.Join(dir, "in.sam")
	bamPath := filepath.Join(dir, "in.bam")
	require.NoError(t, ioutil.WriteFile(samPath, []byte(samText), 0o644))

	_, err := run(t, "convert", samPath, bamPath)
	require.NoError(t, err)

	out, err := run(t, "view", "--no-header", bamPath)
	require.NoError(t, err)
	assert.Equal(t, records, out)

	out, err = run(t, "view", bamPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "@HD\t"), "missing header:\n%s", out)
	assert.True(t, strings.HasSuffix(out, records))

	_, err = run(t, "query", bamPath, "chr1")
	assert.True(t, errors.Is(err, bamio.ErrIndexNotFound), "got %v", err)

	_, err = run(t, "index", bamPath)
	require.NoError(t, err)

	out, err = run(t, "query", "--count", bamPath, "chr1", "chr2", "chr1:1-50")
	require.NoError(t, err)
	assert.Equal(t, "chr1:1-1000\t2\nchr2:1-500\t1\nchr1:1-50\t1\n", out)

	out, err = run(t, "query", bamPath, "chr1:15-1,000")
	require.NoError(t, err)
	lines := strings.SplitAfter(records, "\n")
	assert.Equal(t, lines[0]+lines[1], out)

	_, err = run(t, "query", bamPath, "chr9:1-10")
	assert.True(t, errors.Is(err, bamio.ErrUnknownReference), "got %v", err)
	_, err = run(t, "view", bamPath, "chr9")
	assert.True(t, errors.Is(err, bamio.ErrUnknownReference), "got %v", err)

	roundTrip := filepath.Join(dir, "out.sam")
	_, err = run(t, "convert", bamPath, roundTrip)
	require.NoError(t, err)
	got, err := ioutil.ReadFile(roundTrip)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(got), records))

	_, err = run(t, "convert", "--verify", "--level", "9", samPath, filepath.Join(dir, "verified.bam"))
	require.NoError(t, err)

	changed := filepath.Join(dir, "changed.sam")
	require.NoError(t, ioutil.WriteFile(changed, []byte(strings.Replace(samText, "chr1\t100", "chr1\t101", 1)), 0o644))
	err = compare(bamPath, changed)
	assert.True(t, errors.Is(err, bamio.ErrVerification), "got %v", err)
	require.NoError(t, compare(bamPath, roundTrip))

	_, err = run(t, "convert", samPath, filepath.Join(dir, "out.cram"))
	assert.Error(t, err)
}

func TestFaidx(t *testing.T) {
	dir := tempDir(t)
	path := filepath.Join(dir, "seq.fa")
	const fasta = ">s1 first\nACGTACGTAC\nGGGGCCCCTT\nAA\n>s2\nTTTT\n"
	require.NoError(t, ioutil.WriteFile(path, []byte(fasta), 0o644))

	out, err := run(t, "faidx", "--width", "4", path, "s1:9-13", "s2", "s1:21-30")
	require.NoError(t, err)
	assert.Equal(t, ">s1:9-13\nACGG\nG\n>s2\nTTTT\n>s1:21-30\nAA\n", out)

	fai, err := ioutil.ReadFile(path + ".fai")
	require.NoError(t, err)
	assert.Equal(t, "s1\t22\t10\t10\t11\ns2\t4\t39\t4\t5\n", string(fai))

	_, err = run(t, "faidx", path, "s3")
	assert.True(t, errors.Is(err, bamio.ErrUnknownSequence), "got %v", err)
	_, err = run(t, "faidx", path, "s1:0-3")
	assert.True(t, errors.Is(err, bamio.ErrRangeOutOfBounds), "got %v", err)
}

func TestParseRegion(t *testing.T) {
	lengths := map[string]int{"chr1": 1000, "HLA:1": 50}
	seqLen := func(name string) (int, bool) {
		n, ok := lengths[name]
		return n, ok
	}
	for _, test := range []struct {
		in   string
		want region
	}{
		{"chr1", region{"chr1", 0, 1000}},
		{"chr1:100", region{"chr1", 99, 1000}},
		{"chr1:100-200", region{"chr1", 99, 200}},
		{"chr1:1,000-2,000", region{"chr1", 999, 1000}},
		{"HLA:1", region{"HLA:1", 0, 50}},
		{"HLA:1:5-6", region{"HLA:1", 4, 6}},
	} {
		got, err := parseRegion(test.in, seqLen, bamio.ErrUnknownSequence)
		require.NoError(t, err, test.in)
		assert.Equal(t, test.want, got, test.in)
	}
	for _, in := range []string{"chr2", "chr1:x", "chr1:0-5", "chr1:10-5", "chr1:5-y"} {
		_, err := parseRegion(in, seqLen, bamio.ErrUnknownSequence)
		assert.Error(t, err, in)
	}
	_, err := parseRegion("chr2:1-10", seqLen, bamio.ErrUnknownReference)
	assert.True(t, errors.Is(err, bamio.ErrUnknownReference), "got %v", err)
}
