// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"v.io/x/lib/vlog"

	"github.com/biogo/bamio"
	"github.com/biogo/bamio/bam"
	"github.com/biogo/bamio/sam"
)

var flagFormats = map[string]int{
	"decimal": sam.FlagDecimal,
	"hex":     sam.FlagHex,
	"string":  sam.FlagString,
}

func newViewCmd() *cobra.Command {
	var (
		noHeader bool
		flags    string
	)
	cmd := &cobra.Command{
		Use:   "view <in.bam> [region...]",
		Short: "Print a BAM file as SAM",
		Long: `Print the header and records of a BAM file as SAM text.

When regions are given only records overlapping them are printed. Region
queries use the BAI index at <in.bam>.bai.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, ok := flagFormats[flags]
			if !ok {
				return errors.Errorf("unknown flag format %q", flags)
			}
			return view(cmd.OutOrStdout(), args[0], args[1:], format, !noHeader)
		},
	}
	cmd.Flags().BoolVar(&noHeader, "no-header", false, "omit the SAM header")
	cmd.Flags().StringVar(&flags, "flags", "decimal", "flag format: decimal, hex or string")
	return cmd
}

func newQueryCmd() *cobra.Command {
	var count bool
	cmd := &cobra.Command{
		Use:   "query <in.bam> <region>...",
		Short: "Print or count the records of a BAM file overlapping regions",
		Long: `Query a BAM file through its BAI index at <in.bam>.bai and print the
overlapping records as SAM lines without a header.

Examples:
  bamio query sample.bam chr1:1000000-2000000
  bamio query sample.bam chr1:1,000,000-2,000,000 chr2 --count`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !count {
				return view(cmd.OutOrStdout(), args[0], args[1:], sam.FlagDecimal, false)
			}
			return eachRegion(args[0], args[1:], func(reg region, _ *sam.Header, it *bam.Iterator) error {
				var n int
				for it.Next() {
					n++
				}
				if it.Error() != nil {
					return it.Error()
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", reg, n)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&count, "count", false, "print only the number of records in each region")
	return cmd
}

// recordWriter is satisfied by the SAM and BAM writers.
type recordWriter interface {
	Write(*sam.Record) error
	Close() error
}

// lineWriter writes SAM record lines without a header.
type lineWriter struct {
	w     io.Writer
	flags int
	buf   []byte
}

func (w *lineWriter) Write(r *sam.Record) error {
	var err error
	w.buf, err = r.AppendSAM(w.buf[:0], w.flags)
	if err != nil {
		return err
	}
	w.buf = append(w.buf, '\n')
	_, err = w.w.Write(w.buf)
	return err
}

func (w *lineWriter) Close() error { return nil }

// samWriter returns a SAM writer to out for h. If header is false the
// header text is not written.
func samWriter(out io.Writer, h *sam.Header, flags int, header bool) (recordWriter, error) {
	if !header {
		return &lineWriter{w: out, flags: flags}, nil
	}
	return sam.NewWriter(out, h, flags)
}

// view writes the records of the BAM file at path to out as SAM. If
// regions is not empty only records overlapping the regions are
// written.
func view(out io.Writer, path string, regions []string, flags int, header bool) error {
	if len(regions) != 0 {
		var sw recordWriter
		return eachRegion(path, regions, func(reg region, h *sam.Header, it *bam.Iterator) error {
			if sw == nil {
				var err error
				sw, err = samWriter(out, h, flags, header)
				if err != nil {
					return err
				}
			}
			for it.Next() {
				err := sw.Write(it.Record())
				if err != nil {
					return err
				}
			}
			return it.Error()
		})
	}

	br, err := bam.Open(path)
	if err != nil {
		return err
	}
	defer br.Close()
	sw, err := samWriter(out, br.Header(), flags, header)
	if err != nil {
		return err
	}
	err = copyRecords(sw, br)
	if err != nil {
		sw.Close()
		return err
	}
	return sw.Close()
}

// copyRecords writes all remaining records of r to w.
func copyRecords(w recordWriter, r sam.RecordReader) error {
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		err = w.Write(rec)
		if err != nil {
			return err
		}
	}
}

// eachRegion calls fn with an iterator over the records of the BAM file
// at path overlapping each of the regions in turn.
func eachRegion(path string, regions []string, fn func(region, *sam.Header, *bam.Iterator) error) error {
	br, err := bam.Open(path)
	if err != nil {
		return err
	}
	defer br.Close()
	idx, err := bam.OpenIndex(path + ".bai")
	if err != nil {
		return err
	}

	h := br.Header()
	seqLen := func(name string) (int, bool) {
		ref, err := h.RefByName(name)
		if err != nil {
			return 0, false
		}
		return ref.Len(), true
	}
	for _, s := range regions {
		reg, err := parseRegion(s, seqLen, bamio.ErrUnknownReference)
		if err != nil {
			return err
		}
		vlog.VI(1).Infof("querying %s", reg)
		it, err := bam.Query(br, idx, reg.name, reg.beg, reg.end)
		if err != nil {
			return err
		}
		err = fn(reg, h, it)
		it.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
