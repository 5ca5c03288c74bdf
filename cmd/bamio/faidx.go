// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"io"
	"os"

	"github.com/exascience/pargo/parallel"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"v.io/x/lib/vlog"

	"github.com/biogo/bamio"
	"github.com/biogo/bamio/fai"
)

func newFaidxCmd() *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "faidx <in.fa> [region...]",
		Short: "Index a FASTA file and fetch subsequences",
		Long: `Build the FAI index <in.fa>.fai if it does not exist and print the
requested regions as FASTA.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if width < 1 {
				return errors.Errorf("invalid line width %d", width)
			}
			return faidx(cmd.OutOrStdout(), args[0], args[1:], width)
		},
	}
	cmd.Flags().IntVar(&width, "width", 60, "output line width")
	return cmd
}

func faidx(out io.Writer, path string, regions []string, width int) error {
	f, err := fai.Open(path)
	if errors.Is(err, bamio.ErrIndexNotFound) {
		err = buildFAI(path)
		if err != nil {
			return err
		}
		f, err = fai.Open(path)
	}
	if err != nil {
		return err
	}
	defer f.Close()

	idx := f.Index()
	seqLen := func(name string) (int, bool) {
		rec, ok := idx.Get(name)
		return rec.Length, ok
	}
	regs := make([]region, len(regions))
	for i, s := range regions {
		regs[i], err = parseRegion(s, seqLen, bamio.ErrUnknownSequence)
		if err != nil {
			return err
		}
	}

	seqs := make([][]byte, len(regs))
	errs := make([]error, len(regs))
	if len(regs) != 0 {
		parallel.Range(0, len(regs), 0, func(low, high int) {
			for i := low; i < high; i++ {
				seqs[i], errs[i] = f.Fetch(regs[i].name, regs[i].beg, regs[i].end)
			}
		})
	}

	w := bufio.NewWriter(out)
	for i, reg := range regs {
		if errs[i] != nil {
			return errs[i]
		}
		w.WriteString(">" + regions[i] + "\n")
		for seq := seqs[i]; len(seq) != 0; {
			n := width
			if n > len(seq) {
				n = len(seq)
			}
			w.Write(seq[:n])
			w.WriteByte('\n')
			seq = seq[n:]
		}
		vlog.VI(2).Infof("fetched %s", reg)
	}
	return w.Flush()
}

// buildFAI writes the FAI index for the FASTA file at path to path+".fai".
func buildFAI(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()
	idx, err := fai.NewIndex(in)
	if err != nil {
		return errors.WithMessage(err, path)
	}
	out, err := os.Create(path + ".fai")
	if err != nil {
		return err
	}
	err = fai.WriteTo(out, idx)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	vlog.Infof("wrote index for %d sequences to %s.fai", idx.Len(), path)
	return nil
}
