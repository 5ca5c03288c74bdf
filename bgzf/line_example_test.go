// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgzf_test

import (
	"bytes"
	"fmt"
	"io"
	"log"

	"github.com/biogo/bamio/bgzf"
)

func ExampleReader_ReadByte() {
	// Write some FASTA-like lines into a bgzf buffer,
	// one block per hundred lines.
	var buf bytes.Buffer
	w := bgzf.NewWriter(&buf)
	for i := 0; i < 300; i++ {
		fmt.Fprintf(w, ">seq%d\n", i)
		if i%100 == 99 {
			w.Flush()
		}
	}
	err := w.Close()
	if err != nil {
		log.Fatalf("failed to close bgzf writer: %v", err)
	}

	// The text to search for.
	const line = ">seq150\n"

	// Read the data until the line is found and output the
	// line number and whether its bgzf.Chunk lies in the
	// second block.
	r, err := bgzf.NewReader(&buf)
	if err != nil {
		log.Fatal(err)
	}
	var n int
	var first bgzf.Chunk
	for {
		n++
		b, chunk, err := readLine(r)
		if err != nil {
			if err == io.EOF {
				break
			}
			log.Fatal(err)
		}
		if n == 1 {
			first = chunk
		}
		if string(b) == line {
			fmt.Printf("line:%d first block:%t block offset:%d\n", n, chunk.Begin.File == first.Begin.File, chunk.Begin.Block)
			break
		}
	}

	// Output:
	//
	// line:151 first block:false block offset:400
}

// readLine returns a line terminated by a '\n' and the bgzf.Chunk that contains
// the line, including the newline character. If the end of file is reached before
// a newline, the unterminated line and corresponding chunk are returned.
func readLine(r *bgzf.Reader) ([]byte, bgzf.Chunk, error) {
	tx := r.Begin()
	var (
		data []byte
		b    byte
		err  error
	)
	for {
		b, err = r.ReadByte()
		if err != nil {
			break
		}
		data = append(data, b)
		if b == '\n' {
			break
		}
	}
	chunk := tx.End()
	return data, chunk, err
}
