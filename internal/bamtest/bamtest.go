// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bamtest provides helpers for constructing and inspecting BAM
// data in tests.
package bamtest

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
)

// Header returns a SAM header with two reference sequences, chr1 and
// chr2, followed by the given program lines, for example
// "@PG\tID:lima\tPN:lima".
func Header(progs ...string) (*sam.Header, error) {
	var text strings.Builder
	text.WriteString("@HD\tVN:1.6\tSO:unknown\n")
	text.WriteString("@SQ\tSN:chr1\tLN:100000\n")
	text.WriteString("@SQ\tSN:chr2\tLN:50000\n")
	for _, p := range progs {
		text.WriteString(p)
		text.WriteByte('\n')
	}
	return sam.NewHeader([]byte(text.String()), nil)
}

// LimaHeader returns a Header with ccs and lima program lines.
func LimaHeader() (*sam.Header, error) {
	return Header(
		"@PG\tID:ccs\tPN:ccs\tVN:6.4.0",
		"@PG\tID:lima\tPN:lima\tVN:2.7.1\tPP:ccs",
	)
}

// Record returns a record named name aligned to the first reference of
// h at position pos with the given auxiliary fields.
func Record(h *sam.Header, name string, pos int, aux ...sam.Aux) (*sam.Record, error) {
	seq := []byte("ACGTACGTAC")
	qual := bytes.Repeat([]byte{30}, len(seq))
	cigar := []sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, len(seq))}
	return sam.NewRecord(name, h.Refs()[0], nil, pos, -1, 0, 60, cigar, seq, qual, aux)
}

// Encode returns the BAM encoding of h and recs.
func Encode(h *sam.Header, recs []*sam.Record) ([]byte, error) {
	var buf bytes.Buffer
	bw, err := bam.NewWriter(&buf, h, 1)
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		err = bw.Write(r)
		if err != nil {
			return nil, err
		}
	}
	err = bw.Close()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes the BAM encoding of h and recs to path.
func WriteFile(path string, h *sam.Header, recs []*sam.Record) error {
	b, err := Encode(h, recs)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Decode returns the header and records of the BAM data read from r.
func Decode(r io.Reader) (*sam.Header, []*sam.Record, error) {
	br, err := bam.NewReader(r, 1)
	if err != nil {
		return nil, nil, err
	}
	defer br.Close()
	var recs []*sam.Record
	for {
		rec, err := br.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		recs = append(recs, rec)
	}
	return br.Header(), recs, nil
}

// ReadFile returns the header and records of the BAM file at path.
func ReadFile(path string) (*sam.Header, []*sam.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Names returns the names of recs.
func Names(recs []*sam.Record) []string {
	names := make([]string, len(recs))
	for i, r := range recs {
		names[i] = r.Name
	}
	return names
}

// Programs returns the SAM text of the program lines of h.
func Programs(h *sam.Header) []string {
	var progs []string
	for _, p := range h.Progs() {
		progs = append(progs, fmt.Sprint(p))
	}
	return progs
}
