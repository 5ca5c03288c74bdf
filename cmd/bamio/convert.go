// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"v.io/x/lib/vlog"

	"github.com/biogo/bamio"
	"github.com/biogo/bamio/bam"
	"github.com/biogo/bamio/sam"
)

func newConvertCmd() *cobra.Command {
	var (
		level  int
		verify bool
	)
	cmd := &cobra.Command{
		Use:   "convert <in.sam|in.bam> <out.sam|out.bam>",
		Short: "Convert between SAM and BAM",
		Long: `Convert an alignment file between SAM and BAM formats. The format of
each file is chosen by its extension.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := convert(args[0], args[1], level)
			if err != nil || !verify {
				return err
			}
			return compare(args[0], args[1])
		},
	}
	cmd.Flags().IntVar(&level, "level", gzip.DefaultCompression, "BAM compression level")
	cmd.Flags().BoolVar(&verify, "verify", false, "check that the output holds the same records as the input")
	return cmd
}

type format int

const (
	samFormat format = iota
	bamFormat
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sam":
		return samFormat, nil
	case ".bam":
		return bamFormat, nil
	}
	return 0, errors.Errorf("unknown alignment format for %q", path)
}

// newRecordReader returns a reader of f in the given format and the
// header it holds.
func newRecordReader(f io.Reader, typ format) (sam.RecordReader, *sam.Header, error) {
	switch typ {
	case samFormat:
		sr, err := sam.NewReader(bufio.NewReader(f))
		if err != nil {
			return nil, nil, err
		}
		return sr, sr.Header(), nil
	default:
		br, err := bam.NewReader(bufio.NewReader(f))
		if err != nil {
			return nil, nil, err
		}
		return br, br.Header(), nil
	}
}

// convert copies the alignments in the file at src to a new file at dst.
func convert(src, dst string, level int) error {
	inFormat, err := formatOf(src)
	if err != nil {
		return err
	}
	outFormat, err := formatOf(dst)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	r, h, err := newRecordReader(in, inFormat)
	if err != nil {
		return errors.WithMessage(err, src)
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(out)
	var w recordWriter
	switch outFormat {
	case samFormat:
		w, err = sam.NewWriter(bw, h, sam.FlagDecimal)
	case bamFormat:
		w, err = bam.NewWriterLevel(bw, h, level)
	}
	if err != nil {
		out.Close()
		return err
	}

	err = copyRecords(w, r)
	if err == nil {
		err = w.Close()
	}
	if err == nil {
		err = bw.Flush()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.WithMessage(err, dst)
	}
	vlog.VI(1).Infof("converted %s to %s", src, dst)
	return nil
}

// compare reads the alignment files at a and b and returns an error
// wrapping bamio.ErrVerification if they do not hold equal records in
// the same order.
func compare(a, b string) error {
	var (
		r [2]sam.RecordReader
		h [2]*sam.Header
	)
	for i, path := range []string{a, b} {
		typ, err := formatOf(path)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r[i], h[i], err = newRecordReader(f, typ)
		if err != nil {
			return errors.WithMessage(err, path)
		}
	}

	ra, rb := h[0].Refs(), h[1].Refs()
	if len(ra) != len(rb) {
		return errors.Wrapf(bamio.ErrVerification, "%s has %d references but %s has %d", a, len(ra), b, len(rb))
	}
	for i := range ra {
		if ra[i].Name() != rb[i].Name() || ra[i].Len() != rb[i].Len() {
			return errors.Wrapf(bamio.ErrVerification, "reference %d differs: %v and %v", i, ra[i], rb[i])
		}
	}

	for n := 0; ; n++ {
		x, errA := r[0].Read()
		y, errB := r[1].Read()
		if errA == io.EOF && errB == io.EOF {
			vlog.VI(1).Infof("verified %d records", n)
			return nil
		}
		if errA != nil && errA != io.EOF {
			return errors.WithMessage(errA, a)
		}
		if errB != nil && errB != io.EOF {
			return errors.WithMessage(errB, b)
		}
		if errA == io.EOF || errB == io.EOF {
			return errors.Wrapf(bamio.ErrVerification, "record counts differ after %d records", n)
		}
		if !x.Equal(y) {
			return errors.Wrapf(bamio.ErrVerification, "record %d differs: %q and %q", n, x.Name, y.Name)
		}
	}
}
