// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fai implements FAI fasta sequence file index handling.
//
// The index format is described by samtools faidx:
//
// http://www.htslib.org/doc/faidx.html
package fai

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"sort"
	"strconv"

	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"

	"github.com/biogo/bamio"
)

const (
	nameField = iota
	lengthField
	startField
	basesField
	bytesField
)

// Index is an FAI index. It holds the Records of a FASTA file by name
// and in file order.
type Index struct {
	byName map[string]int
	recs   []Record
}

func (idx *Index) add(r Record) error {
	if idx.byName == nil {
		idx.byName = make(map[string]int)
	}
	if _, exists := idx.byName[r.Name]; exists {
		return errors.Errorf("fai: duplicate sequence name %q", r.Name)
	}
	idx.byName[r.Name] = len(idx.recs)
	idx.recs = append(idx.recs, r)
	return nil
}

// Get returns the Record for the named sequence.
func (idx *Index) Get(name string) (Record, bool) {
	i, ok := idx.byName[name]
	if !ok {
		return Record{}, false
	}
	return idx.recs[i], true
}

// Len returns the number of sequences in the index.
func (idx *Index) Len() int { return len(idx.recs) }

// Names returns the sequence names of the index in file order.
func (idx *Index) Names() []string {
	names := make([]string, len(idx.recs))
	for i, r := range idx.recs {
		names[i] = r.Name
	}
	return names
}

// Records returns the Records of the index in file order.
func (idx *Index) Records() []Record {
	return append([]Record(nil), idx.recs...)
}

// NewIndex returns a new Index constructed from the FASTA sequence
// in the provided io.Reader. Lines may be terminated by "\n" or
// "\r\n". All lines of a sequence except the last must have the
// same length.
func NewIndex(fasta io.Reader) (*Index, error) {
	r := bufio.NewReader(fasta)

	var (
		idx    Index
		rec    Record
		inSeq  bool
		offset int64

		// short is set when a line shorter than the sequence's
		// line width has been seen; only a header may follow.
		short bool
	)
	flush := func() error {
		if !inSeq {
			return nil
		}
		return idx.add(rec)
	}
	for {
		line, err := r.ReadBytes('\n')
		if len(line) == 0 && err != nil {
			if err != io.EOF {
				return nil, err
			}
			break
		}
		n := len(line)
		b := bytes.TrimRight(line, "\r\n")

		switch {
		case len(b) != 0 && b[0] == '>':
			if err := flush(); err != nil {
				return nil, errors.Wrap(bamio.ErrInvalidEncoding, err.Error())
			}
			f := bytes.Fields(b[1:])
			if len(f) == 0 {
				return nil, errors.Wrapf(bamio.ErrInvalidEncoding, "fai: missing sequence name at offset %d", offset)
			}
			rec = Record{Name: string(f[0]), Start: offset + int64(n)}
			inSeq, short = true, false
		case len(b) == 0:
			// Blank lines before the first line of a sequence are
			// skipped; those within a sequence may only end it.
			switch {
			case !inSeq:
			case rec.Length == 0:
				rec.Start = offset + int64(n)
			default:
				short = true
			}
		case !inSeq:
			return nil, errors.Wrapf(bamio.ErrInvalidEncoding, "fai: sequence data before header at offset %d", offset)
		default:
			if short {
				return nil, errors.Wrapf(bamio.ErrInvalidEncoding, "fai: inconsistent line width in %q at offset %d", rec.Name, offset)
			}
			switch {
			case rec.BasesPerLine == 0:
				rec.BasesPerLine = len(b)
				rec.BytesPerLine = n
			case len(b) > rec.BasesPerLine || n > rec.BytesPerLine:
				return nil, errors.Wrapf(bamio.ErrInvalidEncoding, "fai: unexpected long line in %q at offset %d", rec.Name, offset)
			case len(b) < rec.BasesPerLine:
				short = true
			}
			rec.Length += len(b)
		}
		offset += int64(n)
		if err == io.EOF {
			break
		}
	}
	if err := flush(); err != nil {
		return nil, errors.Wrap(bamio.ErrInvalidEncoding, err.Error())
	}
	return &idx, nil
}

// Record is a single FAI index record.
type Record struct {
	// Name is the name of the sequence.
	Name string
	// Length is the length of the sequence.
	Length int
	// Start is the starting seek offset of
	// the sequence.
	Start int64
	// BasesPerLine is the number of sequences
	// bases per line.
	BasesPerLine int
	// BytesPerLine is the number of bytes
	// used to represent each line.
	BytesPerLine int
}

// Position returns the seek offset of the sequence position p for the
// given Record. Position panics if p is not within the sequence.
func (r Record) Position(p int) int64 {
	if p < 0 || r.Length <= p {
		panic("fai: index out of range")
	}
	return r.position(p)
}

func (r Record) position(p int) int64 {
	return r.Start + int64(p/r.BasesPerLine)*int64(r.BytesPerLine) + int64(p%r.BasesPerLine)
}

// ReadFrom returns an Index from the stream provided by an io.Reader. Any
// failure to parse the index, including duplicate names and inconsistent
// line geometry, is reported as an error wrapping bamio.ErrMalformedIndex.
func ReadFrom(r io.Reader) (*Index, error) {
	tr := csv.NewReader(r)
	tr.Comma = '\t'
	tr.FieldsPerRecord = 5
	tr.LazyQuotes = true
	tr.ReuseRecord = true

	var idx Index
	for line := 1; ; line++ {
		fields, err := tr.Read()
		if err == io.EOF {
			return &idx, nil
		}
		if err != nil {
			return nil, errors.Wrapf(bamio.ErrMalformedIndex, "fai: %v", err)
		}
		rec, err := parseRecord(fields)
		if err != nil {
			return nil, errors.Wrapf(bamio.ErrMalformedIndex, "fai: line %d: %v", line, err)
		}
		err = idx.add(rec)
		if err != nil {
			return nil, errors.Wrapf(bamio.ErrMalformedIndex, "line %d: %v", line, err)
		}
	}
}

func parseRecord(fields []string) (Record, error) {
	var (
		rec = Record{Name: fields[nameField]}
		v   [bytesField + 1]int64
		err error
	)
	if rec.Name == "" {
		return Record{}, errors.New("empty sequence name")
	}
	for i := lengthField; i <= bytesField; i++ {
		v[i], err = strconv.ParseInt(fields[i], 10, 64)
		if err != nil {
			return Record{}, err
		}
		if v[i] < 0 {
			return Record{}, errors.Errorf("negative value in column %d", i+1)
		}
	}
	rec.Length = int(v[lengthField])
	rec.Start = v[startField]
	rec.BasesPerLine = int(v[basesField])
	rec.BytesPerLine = int(v[bytesField])
	if rec.Length != 0 && rec.BasesPerLine == 0 {
		return Record{}, errors.New("zero line width")
	}
	if rec.BytesPerLine < rec.BasesPerLine {
		return Record{}, errors.Errorf("line length %d shorter than line width %d", rec.BytesPerLine, rec.BasesPerLine)
	}
	return rec, nil
}

// WriteTo writes the the given index to w in order of ascending start position.
func WriteTo(w io.Writer, idx *Index) error {
	recs := idx.Records()
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Start < recs[j].Start })
	tw := tsv.NewWriter(w)
	for _, r := range recs {
		tw.WriteString(r.Name)
		tw.WriteInt64(int64(r.Length))
		tw.WriteInt64(r.Start)
		tw.WriteInt64(int64(r.BasesPerLine))
		tw.WriteInt64(int64(r.BytesPerLine))
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}
