// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bam implements BAM file format reading, writing and indexing.
// The BAM format is described in the SAM specification.
//
// http://samtools.github.io/hts-specs/SAMv1.pdf
//
// Region queries use a BAI index, either read with ReadIndex or
// OpenIndex, or built from a coordinate sorted BAM with BuildIndex:
//
//  it, err := bam.Query(r, idx, "chr1", 10000, 20000)
//  if err != nil {
//  	return err
//  }
//  defer it.Close()
//  for it.Next() {
//  	fn(it.Record())
//  }
//  return it.Error()
package bam
