// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"

	"github.com/kortschak/utter"
	"github.com/pkg/errors"
	"gopkg.in/check.v1"

	"github.com/biogo/bamio"
	"github.com/biogo/bamio/bgzf"
	"github.com/biogo/bamio/internal/cursor"
	"github.com/biogo/bamio/sam"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

// isErr is a checker reporting whether an error wraps the given target.
var isErr check.Checker = &isErrChecker{
	&check.CheckerInfo{Name: "isErr", Params: []string{"obtained", "target"}},
}

type isErrChecker struct {
	*check.CheckerInfo
}

func (checker *isErrChecker) Check(params []interface{}, names []string) (bool, string) {
	err, ok := params[0].(error)
	if !ok {
		return false, "obtained value is not an error"
	}
	target, ok := params[1].(error)
	if !ok {
		return false, "target is not an error"
	}
	return errors.Is(err, target), ""
}

const exampleSAM = `@HD	VN:1.5	SO:coordinate
@SQ	SN:ref	LN:45
@CO	Alignments from the SAM specification.
r001	99	ref	7	30	8M2I4M1D3M	=	37	39	TTAGATAAAGGATACTG	*
r002	0	ref	9	30	3S6M1P1I4M	*	0	0	AAAAGATAAGGATA	*
r003	0	ref	9	30	5S6M	*	0	0	GCCTAAGCTAA	*	SA:Z:ref,29,-,6H5M,17,0;
r004	0	ref	16	30	6M14N5M	*	0	0	ATAGCTTCAGC	*
r003	2064	ref	29	17	6H5M	*	0	0	TAGGC	*	SA:Z:ref,9,+,5S6M,30,1;
r001	147	ref	37	30	9M	=	7	-39	CAGCGGCAT	*	NM:i:1
`

func readSAM(c *check.C, text string) (*sam.Header, []*sam.Record) {
	sr, err := sam.NewReader(strings.NewReader(text))
	c.Assert(err, check.Equals, nil)
	var recs []*sam.Record
	for {
		r, err := sr.Read()
		if err == io.EOF {
			break
		}
		c.Assert(err, check.Equals, nil)
		recs = append(recs, r)
	}
	return sr.Header(), recs
}

func writeBAM(c *check.C, h *sam.Header, recs []*sam.Record) []byte {
	var buf bytes.Buffer
	bw, err := NewWriter(&buf, h)
	c.Assert(err, check.Equals, nil)
	for _, r := range recs {
		c.Assert(bw.Write(r), check.Equals, nil, check.Commentf("record %s", r.Name))
	}
	c.Assert(bw.Close(), check.Equals, nil)
	return buf.Bytes()
}

func readAll(c *check.C, br *Reader) []*sam.Record {
	var recs []*sam.Record
	for {
		r, err := br.Read()
		if err == io.EOF {
			break
		}
		c.Assert(err, check.Equals, nil)
		recs = append(recs, r)
	}
	return recs
}

func (s *S) TestRoundTrip(c *check.C) {
	h, want := readSAM(c, exampleSAM)
	data := writeBAM(c, h, want)

	ok, err := bgzf.HasEOF(bytes.NewReader(data))
	c.Check(err, check.Equals, nil)
	c.Check(ok, check.Equals, true)

	br, err := NewReader(bytes.NewReader(data))
	c.Assert(err, check.Equals, nil)
	wantText, _ := h.MarshalText()
	gotText, _ := br.Header().MarshalText()
	c.Check(string(gotText), check.Equals, string(wantText))

	got := readAll(c, br)
	c.Assert(got, check.HasLen, len(want))
	for i := range want {
		c.Check(got[i].Equal(want[i]), check.Equals, true,
			check.Commentf("record %d:\ngot: %s\nwant:%s", i, utter.Sdump(got[i]), utter.Sdump(want[i])))
	}
	c.Check(br.Close(), check.Equals, nil)
}

func (s *S) TestSAMEquivalence(c *check.C) {
	h, recs := readSAM(c, exampleSAM)
	br, err := NewReader(bytes.NewReader(writeBAM(c, h, recs)))
	c.Assert(err, check.Equals, nil)

	var buf bytes.Buffer
	sw, err := sam.NewWriter(&buf, br.Header(), sam.FlagDecimal)
	c.Assert(err, check.Equals, nil)
	for _, r := range readAll(c, br) {
		c.Assert(sw.Write(r), check.Equals, nil)
	}
	c.Check(buf.String(), check.Equals, exampleSAM)
}

func (s *S) TestOmit(c *check.C) {
	h, recs := readSAM(c, exampleSAM)
	data := writeBAM(c, h, recs)
	for _, omit := range []int{AuxTags, AllVariableLengthData} {
		br, err := NewReader(bytes.NewReader(data))
		c.Assert(err, check.Equals, nil)
		br.Omit(omit)
		got := readAll(c, br)
		c.Assert(got, check.HasLen, len(recs))
		for i, r := range got {
			c.Check(r.AuxFields, check.HasLen, 0)
			c.Check(r.Cigar, check.DeepEquals, recs[i].Cigar)
			if omit == AllVariableLengthData {
				c.Check(r.Seq.Length, check.Equals, 0)
			} else {
				c.Check(r.Seq.Equal(recs[i].Seq), check.Equals, true)
			}
		}
	}
}

func mustAux(a sam.Aux, err error) sam.Aux {
	if err != nil {
		panic(err)
	}
	return a
}

func (s *S) TestAuxBinary(c *check.C) {
	tag := sam.NewTag
	aux := sam.AuxFields{
		mustAux(sam.NewCharAux(tag("XA"), 'x')),
		mustAux(sam.NewIntAux(tag("Xc"), 'c', -128)),
		mustAux(sam.NewIntAux(tag("XC"), 'C', 255)),
		mustAux(sam.NewIntAux(tag("Xs"), 's', -32768)),
		mustAux(sam.NewIntAux(tag("XS"), 'S', 65535)),
		mustAux(sam.NewIntAux(tag("Xi"), 'i', -1<<31)),
		mustAux(sam.NewIntAux(tag("XI"), 'I', 1<<32-1)),
		mustAux(sam.NewFloatAux(tag("Xf"), 1.5)),
		mustAux(sam.NewTextAux(tag("XZ"), "hello world")),
		mustAux(sam.NewHexAux(tag("XH"), "1AE301")),
		mustAux(sam.NewIntArrayAux(tag("XB"), 's', []int64{-1, 0, 1000})),
		mustAux(sam.NewIntArrayAux(tag("Xb"), 'C', []int64{})),
		mustAux(sam.NewFloatArrayAux(tag("XF"), []float32{0.25, -2})),
	}
	var buf bytes.Buffer
	w := cursor.NewWriter(&buf)
	for _, a := range aux {
		encodeAux(w, a)
	}
	c.Assert(w.Err(), check.Equals, nil)

	got, err := parseAux(buf.Bytes())
	c.Assert(err, check.Equals, nil)
	c.Assert(got, check.HasLen, len(aux))
	for i, a := range aux {
		c.Check(got[i].Equal(a), check.Equals, true, check.Commentf("%v != %v", got[i], a))
	}

	for _, bad := range [][]byte{
		[]byte("XAq"),              // Unknown type.
		[]byte("XZZabc"),           // Unterminated string.
		[]byte("XBBs\x05\x00\x00"), // Short count.
		[]byte("XBBs\x05\x00\x00\x00\x01\x00"), // Array longer than data.
		[]byte("XBBq\x01\x00\x00\x00\x01"),     // Unknown array type.
		[]byte("XA"),                           // Missing type.
	} {
		_, err := parseAux(bad)
		c.Check(err, isErr, bamio.ErrInvalidEncoding, check.Commentf("%q", bad))
	}
}

// bamWith returns a BGZF stream holding the binary header of h
// followed by raw.
func bamWith(c *check.C, h *sam.Header, raw []byte) []byte {
	var payload bytes.Buffer
	c.Assert(h.EncodeBinary(&payload), check.Equals, nil)
	payload.Write(raw)
	var buf bytes.Buffer
	bg := bgzf.NewWriter(&buf)
	_, err := bg.Write(payload.Bytes())
	c.Assert(err, check.Equals, nil)
	c.Assert(bg.Close(), check.Equals, nil)
	return buf.Bytes()
}

func encoded(c *check.C, r *sam.Record) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0})
	c.Assert(encodeRecord(cursor.NewWriter(&buf), r), check.Equals, nil)
	b := buf.Bytes()
	n := len(b) - 4
	b[0], b[1], b[2], b[3] = byte(n), byte(n>>8), byte(n>>16), byte(n>>24)
	return b
}

func (s *S) TestTruncatedRecord(c *check.C) {
	h, recs := readSAM(c, exampleSAM)
	rec := encoded(c, recs[0])

	for _, n := range []int{5, fixedSize, len(rec) - 1} {
		br, err := NewReader(bytes.NewReader(bamWith(c, h, rec[:n])))
		c.Assert(err, check.Equals, nil)
		_, err = br.Read()
		c.Check(err, isErr, bamio.ErrTruncatedRecord, check.Commentf("length %d", n))
	}

	// A partial block size.
	br, err := NewReader(bytes.NewReader(bamWith(c, h, rec[:2])))
	c.Assert(err, check.Equals, nil)
	_, err = br.Read()
	c.Check(err, isErr, bamio.ErrTruncatedRecord)

	// A complete record followed by a clean end.
	br, err = NewReader(bytes.NewReader(bamWith(c, h, rec)))
	c.Assert(err, check.Equals, nil)
	_, err = br.Read()
	c.Check(err, check.Equals, nil)
	_, err = br.Read()
	c.Check(err, check.Equals, io.EOF)
}

func (s *S) TestInvalidRecord(c *check.C) {
	h, recs := readSAM(c, exampleSAM)
	for _, t := range []struct {
		name  string
		patch func(b []byte)
	}{
		{"reference out of header", func(b []byte) { b[4] = 7 }},
		{"mate reference out of header", func(b []byte) { b[24] = 3 }},
		{"negative sequence length", func(b []byte) { b[23] = 0x80 }},
		{"unterminated name", func(b []byte) { b[fixedSize+4+4] = 'x' }},
		{"invalid cigar operation", func(b []byte) { b[fixedSize+4+5] = 0x0f }},
		{"short block size", func(b []byte) { b[0], b[1] = 4, 0 }},
	} {
		rec := encoded(c, recs[0])
		t.patch(rec)
		br, err := NewReader(bytes.NewReader(bamWith(c, h, rec)))
		c.Assert(err, check.Equals, nil)
		_, err = br.Read()
		c.Check(err, isErr, bamio.ErrInvalidEncoding, check.Commentf("%s", t.name))
	}
}

func (s *S) TestWriterHeaderMismatch(c *check.C) {
	h, recs := readSAM(c, exampleSAM)
	ref, err := sam.NewReference("chr1", 45)
	c.Assert(err, check.Equals, nil)
	_, err = sam.NewHeader(nil, []*sam.Reference{ref})
	c.Assert(err, check.Equals, nil)

	var buf bytes.Buffer
	bw, err := NewWriter(&buf, h)
	c.Assert(err, check.Equals, nil)
	r := *recs[1]
	r.Ref = ref
	c.Check(bw.Write(&r), isErr, bamio.ErrHeaderMismatch)
	c.Check(bw.Write(recs[1]), check.Equals, nil)
	c.Check(bw.Close(), check.Equals, nil)

	br, err := NewReader(&buf)
	c.Assert(err, check.Equals, nil)
	got := readAll(c, br)
	c.Assert(got, check.HasLen, 1)
	c.Check(got[0].Name, check.Equals, "r002")
}

func (s *S) TestClose(c *check.C) {
	h, recs := readSAM(c, exampleSAM)

	var buf bytes.Buffer
	bw, err := NewWriter(&buf, h)
	c.Assert(err, check.Equals, nil)
	c.Check(bw.Close(), check.Equals, nil)
	c.Check(bw.Close(), check.Equals, nil)
	c.Check(bw.Write(recs[0]), isErr, bamio.ErrHandleClosed)

	br, err := NewReader(bytes.NewReader(buf.Bytes()))
	c.Assert(err, check.Equals, nil)
	c.Check(br.Close(), check.Equals, nil)
	c.Check(br.Close(), check.Equals, nil)
	_, err = br.Read()
	c.Check(err, isErr, bamio.ErrHandleClosed)
}

func (s *S) TestFiles(c *check.C) {
	dir, err := ioutil.TempDir("", "bamio")
	c.Assert(err, check.Equals, nil)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "spec.bam")

	h, recs := readSAM(c, exampleSAM)
	bw, err := Create(path, h)
	c.Assert(err, check.Equals, nil)
	for _, r := range recs {
		c.Assert(bw.Write(r), check.Equals, nil)
	}
	c.Assert(bw.Close(), check.Equals, nil)

	f, err := os.Open(path)
	c.Assert(err, check.Equals, nil)
	ok, err := bgzf.HasEOF(f)
	f.Close()
	c.Check(err, check.Equals, nil)
	c.Check(ok, check.Equals, true)

	br, err := Open(path)
	c.Assert(err, check.Equals, nil)
	c.Check(readAll(c, br), check.HasLen, len(recs))
	c.Check(br.Close(), check.Equals, nil)

	_, err = Open(filepath.Join(dir, "missing.bam"))
	c.Check(os.IsNotExist(errors.Cause(err)), check.Equals, true)
}

// simulated returns a coordinate sorted set of records over the
// references of h followed by unplaced records.
func simulated(h *sam.Header, perRef int, seed int64) []*sam.Record {
	rnd := rand.New(rand.NewSource(seed))
	const bases = "ACGT"
	seq := func(n int) ([]byte, []byte) {
		s := make([]byte, n)
		q := make([]byte, n)
		for i := range s {
			s[i] = bases[rnd.Intn(len(bases))]
			q[i] = byte(rnd.Intn(41))
		}
		return s, q
	}

	var recs []*sam.Record
	for _, ref := range h.Refs() {
		pos := make([]int, perRef)
		for i := range pos {
			pos[i] = rnd.Intn(ref.Len() - 50000)
		}
		sort.Ints(pos)
		for i, p := range pos {
			var (
				co    sam.Cigar
				flags sam.Flags
				n     = 20 + rnd.Intn(80)
			)
			switch rnd.Intn(12) {
			case 0:
				// Placed but unmapped.
				flags = sam.Unmapped
			case 1:
				// Mapped with no alignment length.
			case 2, 3:
				co = sam.Cigar{
					sam.NewCigarOp(sam.CigarMatch, n/2),
					sam.NewCigarOp(sam.CigarSkipped, 1+rnd.Intn(40000)),
					sam.NewCigarOp(sam.CigarMatch, n-n/2),
				}
			case 4:
				co = sam.Cigar{
					sam.NewCigarOp(sam.CigarSoftClipped, 5),
					sam.NewCigarOp(sam.CigarMatch, n-10),
					sam.NewCigarOp(sam.CigarDeletion, 1+rnd.Intn(10)),
					sam.NewCigarOp(sam.CigarSoftClipped, 5),
				}
			default:
				co = sam.Cigar{sam.NewCigarOp(sam.CigarMatch, n)}
			}
			if rnd.Intn(2) == 0 {
				flags |= sam.Reverse
			}
			s, q := seq(n)
			r := &sam.Record{
				Name:    fmt.Sprintf("r%d.%d", ref.ID(), i),
				Ref:     ref,
				Pos:     p,
				MapQ:    byte(rnd.Intn(61)),
				Cigar:   co,
				Flags:   flags,
				MatePos: -1,
				Seq:     sam.NewSeq(s),
				Qual:    q,
			}
			if rnd.Intn(3) == 0 {
				r.AuxFields = sam.AuxFields{mustAux(sam.NewIntAux(sam.NewTag("NM"), 0, int64(rnd.Intn(10))))}
			}
			recs = append(recs, r)
		}
	}
	for i := 0; i < 25; i++ {
		s, q := seq(50)
		recs = append(recs, &sam.Record{
			Name:    fmt.Sprintf("u%d", i),
			Pos:     -1,
			Flags:   sam.Unmapped,
			MatePos: -1,
			Seq:     sam.NewSeq(s),
			Qual:    q,
		})
	}
	return recs
}

func simulatedHeader(c *check.C) *sam.Header {
	var refs []*sam.Reference
	for _, r := range []struct {
		name string
		len  int
	}{
		{"chr1", 2000000},
		{"chr2", 600000},
		{"chr3", 300000},
	} {
		ref, err := sam.NewReference(r.name, r.len)
		c.Assert(err, check.Equals, nil)
		refs = append(refs, ref)
	}
	h, err := sam.NewHeader([]byte("@HD\tVN:1.5\tSO:coordinate\n"), refs)
	c.Assert(err, check.Equals, nil)
	return h
}

// overlaps is the linear scan equivalent of a region query.
func overlaps(r *sam.Record, ref, beg, end int) bool {
	if r.Ref.ID() != ref || r.Pos < 0 || r.Flags&sam.Unmapped != 0 || beg >= end {
		return false
	}
	e := r.End()
	if e <= r.Pos {
		e = r.Pos + 1
	}
	return r.Pos < end && beg < e
}

func names(recs []*sam.Record) []string {
	n := make([]string, len(recs))
	for i, r := range recs {
		n[i] = r.Name
	}
	return n
}

func (s *S) TestRegionQuery(c *check.C) {
	h := simulatedHeader(c)
	recs := simulated(h, 3000, 1)
	data := writeBAM(c, h, recs)

	br, err := NewReader(bytes.NewReader(data))
	c.Assert(err, check.Equals, nil)
	built, err := BuildIndex(br)
	c.Assert(err, check.Equals, nil)

	var buf bytes.Buffer
	c.Assert(WriteIndex(&buf, built), check.Equals, nil)
	loaded, err := ReadIndex(&buf)
	c.Assert(err, check.Equals, nil)

	rnd := rand.New(rand.NewSource(2))
	type interval struct{ ref, beg, end int }
	queries := []interval{
		{0, 0, 2000000},
		{1, 0, 1},
		{2, 299999, 300000},
		{1, 1000, 1000},
		{0, 1 << 20, 1<<20 + 1},
	}
	for i := 0; i < 200; i++ {
		ref := rnd.Intn(len(h.Refs()))
		beg := rnd.Intn(h.Refs()[ref].Len())
		queries = append(queries, interval{ref, beg, beg + rnd.Intn(60000)})
	}

	for _, idx := range []*Index{built, loaded} {
		for _, q := range queries {
			var want []*sam.Record
			for _, r := range recs {
				if overlaps(r, q.ref, q.beg, q.end) {
					want = append(want, r)
				}
			}

			it, err := br.Fetch(idx, q.ref, q.beg, q.end)
			c.Assert(err, check.Equals, nil)
			var got []*sam.Record
			for it.Next() {
				got = append(got, it.Record())
			}
			c.Assert(it.Close(), check.Equals, nil)
			c.Check(names(got), check.DeepEquals, names(want), check.Commentf("query %+v", q))
		}
	}

	// A name based query.
	it, err := Query(br, loaded, "chr2", 1000, 200000)
	c.Assert(err, check.Equals, nil)
	var n int
	for it.Next() {
		c.Check(it.Record().Ref.Name(), check.Equals, "chr2")
		n++
	}
	c.Check(it.Close(), check.Equals, nil)
	c.Check(n > 0, check.Equals, true)

	// Closing an Iterator leaves the Reader usable.
	stats, ok := loaded.ReferenceStats(0)
	c.Assert(ok, check.Equals, true)
	c.Assert(br.Seek(stats.Chunk.Begin), check.Equals, nil)
	rec, err := br.Read()
	c.Assert(err, check.Equals, nil)
	c.Check(rec.Name, check.Equals, recs[0].Name)
}

func (s *S) TestQueryNoReferenceBases(c *check.C) {
	h, recs := readSAM(c, "@SQ\tSN:ref\tLN:45\n"+
		"z001\t0\tref\t21\t30\t5S\t*\t0\t0\tACGTA\t*\n"+
		"z002\t0\tref\t30\t30\t5M\t*\t0\t0\tACGTA\t*\n")
	c.Assert(recs[0].End(), check.Equals, recs[0].Pos)
	data := writeBAM(c, h, recs)
	br, err := NewReader(bytes.NewReader(data))
	c.Assert(err, check.Equals, nil)
	idx, err := BuildIndex(br)
	c.Assert(err, check.Equals, nil)

	for _, t := range []struct {
		beg, end int
		want     []string
	}{
		{beg: 20, end: 21, want: []string{"z001"}},
		{beg: 0, end: 45, want: []string{"z001", "z002"}},
		{beg: 0, end: 20, want: []string{}},
		{beg: 21, end: 29, want: []string{}},
	} {
		it, err := br.Fetch(idx, 0, t.beg, t.end)
		c.Assert(err, check.Equals, nil)
		got := []string{}
		for it.Next() {
			got = append(got, it.Record().Name)
		}
		c.Check(it.Error(), check.Equals, nil)
		c.Check(got, check.DeepEquals, t.want, check.Commentf("[%d,%d)", t.beg, t.end))
		c.Check(it.Close(), check.Equals, nil)
	}
}

func (s *S) TestQueryErrors(c *check.C) {
	h := simulatedHeader(c)
	data := writeBAM(c, h, simulated(h, 10, 3))
	br, err := NewReader(bytes.NewReader(data))
	c.Assert(err, check.Equals, nil)
	idx, err := BuildIndex(br)
	c.Assert(err, check.Equals, nil)

	_, err = Query(br, idx, "chrZZZ", 0, 10)
	c.Check(err, isErr, bamio.ErrUnknownReference)
	_, err = br.Fetch(idx, 3, 0, 10)
	c.Check(err, isErr, bamio.ErrUnknownReference)
	_, err = br.Fetch(idx, 0, -1, 10)
	c.Check(err, isErr, bamio.ErrRangeOutOfBounds)
	_, err = br.Fetch(idx, 0, 20, 10)
	c.Check(err, isErr, bamio.ErrRangeOutOfBounds)
}

func (s *S) TestIndexStats(c *check.C) {
	h := simulatedHeader(c)
	recs := simulated(h, 500, 4)
	br, err := NewReader(bytes.NewReader(writeBAM(c, h, recs)))
	c.Assert(err, check.Equals, nil)
	idx, err := BuildIndex(br)
	c.Assert(err, check.Equals, nil)

	c.Check(idx.NumRefs(), check.Equals, 3)
	mapped := make([]uint64, 3)
	unmapped := make([]uint64, 3)
	var unplaced uint64
	for _, r := range recs {
		switch {
		case r.Ref == nil:
			unplaced++
		case r.Flags&sam.Unmapped != 0:
			unmapped[r.Ref.ID()]++
		default:
			mapped[r.Ref.ID()]++
		}
	}
	for id := 0; id < 3; id++ {
		stats, ok := idx.ReferenceStats(id)
		c.Assert(ok, check.Equals, true)
		c.Check(stats.Mapped, check.Equals, mapped[id])
		c.Check(stats.Unmapped, check.Equals, unmapped[id])
	}
	_, ok := idx.ReferenceStats(3)
	c.Check(ok, check.Equals, false)
	n, ok := idx.Unmapped()
	c.Check(ok, check.Equals, true)
	c.Check(n, check.Equals, unplaced)
}

func (s *S) TestIndexRoundTrip(c *check.C) {
	h := simulatedHeader(c)
	br, err := NewReader(bytes.NewReader(writeBAM(c, h, simulated(h, 1000, 5))))
	c.Assert(err, check.Equals, nil)
	idx, err := BuildIndex(br)
	c.Assert(err, check.Equals, nil)

	var buf bytes.Buffer
	c.Assert(WriteIndex(&buf, idx), check.Equals, nil)
	got, err := ReadIndex(bytes.NewReader(buf.Bytes()))
	c.Assert(err, check.Equals, nil)
	c.Check(got.refs, check.DeepEquals, idx.refs)
	c.Check(*got.unmapped, check.Equals, *idx.unmapped)

	var again bytes.Buffer
	c.Assert(WriteIndex(&again, got), check.Equals, nil)
	c.Check(again.Bytes(), check.DeepEquals, buf.Bytes())
}

func (s *S) TestMalformedIndex(c *check.C) {
	h := simulatedHeader(c)
	br, err := NewReader(bytes.NewReader(writeBAM(c, h, simulated(h, 20, 6))))
	c.Assert(err, check.Equals, nil)
	idx, err := BuildIndex(br)
	c.Assert(err, check.Equals, nil)
	var buf bytes.Buffer
	c.Assert(WriteIndex(&buf, idx), check.Equals, nil)
	data := buf.Bytes()

	for n := 0; n < len(data); n++ {
		_, err := ReadIndex(bytes.NewReader(data[:n]))
		if n == len(data)-8 {
			// The unplaced count is optional.
			c.Check(err, check.Equals, nil)
			continue
		}
		c.Check(err, isErr, bamio.ErrMalformedIndex, check.Commentf("length %d", n))
	}

	for _, bad := range [][]byte{
		[]byte("BAM\x01\x00\x00\x00\x00"),
		[]byte("BAI\x01\xff\xff\xff\xff"),
		[]byte("BAI\x01\x01\x00\x00\x00\xff\xff\xff\xff"),
		[]byte("BAI\x01\x01\x00\x00\x00\x01\x00\x00\x00\x4a\x92\x00\x00\x01\x00\x00\x00"),
	} {
		_, err := ReadIndex(bytes.NewReader(bad))
		c.Check(err, isErr, bamio.ErrMalformedIndex, check.Commentf("%q", bad))
	}

	_, err = OpenIndex(filepath.Join(os.TempDir(), "bamio-no-such-index.bai"))
	c.Check(err, isErr, bamio.ErrIndexNotFound)
}

func (s *S) TestIndexLargeCounts(c *check.C) {
	for _, t := range []struct {
		name string
		data string
	}{
		{name: "references", data: "BAI\x01\x00\x00\x00\x04"},
		{name: "chunks", data: "BAI\x01\x01\x00\x00\x00\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x04"},
		{name: "intervals", data: "BAI\x01\x01\x00\x00\x00\x00\x00\x00\x00\x00\x80\x00\x00"},
	} {
		var before, after runtime.MemStats
		runtime.ReadMemStats(&before)
		_, err := ReadIndex(strings.NewReader(t.data))
		runtime.ReadMemStats(&after)
		c.Check(err, isErr, bamio.ErrMalformedIndex, check.Commentf("%s", t.name))
		alloc := after.TotalAlloc - before.TotalAlloc
		c.Check(alloc < 1<<20, check.Equals, true, check.Commentf("%s: allocated %d bytes", t.name, alloc))
	}
}

func (s *S) TestIndexAddOrder(c *check.C) {
	h := simulatedHeader(c)
	refs := h.Refs()
	rec := func(ref *sam.Reference, pos int) *sam.Record {
		return &sam.Record{
			Name:  "r",
			Ref:   ref,
			Pos:   pos,
			Cigar: sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 10)},
		}
	}
	var chunk bgzf.Chunk

	var idx Index
	c.Check(idx.Add(rec(refs[0], 100), chunk), check.Equals, nil)
	c.Check(idx.Add(rec(refs[0], 50), chunk), check.NotNil)
	c.Check(idx.Add(rec(refs[1], 10), chunk), check.Equals, nil)
	c.Check(idx.Add(rec(refs[0], 200), chunk), check.NotNil)
	c.Check(idx.Add(&sam.Record{Name: "u", Pos: -1}, chunk), check.Equals, nil)
	c.Check(idx.Add(rec(refs[2], 10), chunk), check.NotNil)
}

func (s *S) TestStrategies(c *check.C) {
	chunk := func(b, e int64) bgzf.Chunk {
		return bgzf.Chunk{Begin: bgzf.Offset{File: b}, End: bgzf.Offset{File: e}}
	}
	in := func() []bgzf.Chunk {
		return []bgzf.Chunk{chunk(0, 10), chunk(10, 20), chunk(15, 18), chunk(30, 40), chunk(100, 200)}
	}
	for _, t := range []struct {
		name string
		s    Strategy
		want []bgzf.Chunk
	}{
		{"identity", Identity, in()},
		{"adjacent", Adjacent, []bgzf.Chunk{chunk(0, 20), chunk(30, 40), chunk(100, 200)}},
		{"squash", Squash, []bgzf.Chunk{chunk(0, 200)}},
		{"compressor", CompressorStrategy(10), []bgzf.Chunk{chunk(0, 40), chunk(100, 200)}},
	} {
		c.Check(t.s(in()), check.DeepEquals, t.want, check.Commentf("%s", t.name))
	}
	c.Check(Adjacent(nil), check.IsNil)
}
