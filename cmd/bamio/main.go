// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The bamio command reads, converts and indexes SAM, BAM and FASTA files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"v.io/x/lib/vlog"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose int
	root := &cobra.Command{
		Use:   "bamio",
		Short: "SAM, BAM and FASTA file tools",
		Long: `bamio reads and writes SAM and BAM alignment files, builds and
queries BAI indexes and fetches FASTA subsequences using FAI indexes.

Regions are written name, name:beg or name:beg-end using one-based
inclusive coordinates.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return vlog.Log.Configure(
				vlog.OverridePriorConfiguration(true),
				vlog.LogToStderr(true),
				vlog.Level(verbose),
			)
		},
	}
	root.PersistentFlags().IntVarP(&verbose, "verbose", "v", 0, "trace logging verbosity")

	root.AddCommand(
		newViewCmd(),
		newQueryCmd(),
		newConvertCmd(),
		newIndexCmd(),
		newFaidxCmd(),
	)
	return root
}
