// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"os"

	"github.com/spf13/cobra"
	"v.io/x/lib/vlog"

	"github.com/biogo/bamio/bam"
)

func newIndexCmd() *cobra.Command {
	var near int64
	cmd := &cobra.Command{
		Use:   "index <in.bam>",
		Short: "Build a BAI index for a coordinate sorted BAM file",
		Long: `Build a BAI index for a coordinate sorted BAM file and write it to
<in.bam>.bai.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return index(args[0], near)
		},
	}
	cmd.Flags().Int64Var(&near, "merge", 0, "merge chunks whose BGZF blocks are within this many bytes")
	return cmd
}

func index(path string, near int64) error {
	br, err := bam.Open(path)
	if err != nil {
		return err
	}
	defer br.Close()
	idx, err := bam.BuildIndex(br)
	if err != nil {
		return err
	}
	if near > 0 {
		idx.MergeChunks(bam.CompressorStrategy(near))
	}

	f, err := os.Create(path + ".bai")
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	err = bam.WriteIndex(w, idx)
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	n, _ := idx.Unmapped()
	vlog.Infof("indexed %d references of %s with %d unplaced records", idx.NumRefs(), path, n)
	return nil
}
