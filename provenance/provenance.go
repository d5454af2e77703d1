// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package provenance records the processing history of a BAM file in
// the program (@PG) lines of its SAM header.
package provenance

import (
	"bytes"

	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"
)

const (
	// ProgramID is the program UID and name written by Add.
	ProgramID = "callao"

	// LimaID is the program UID written by the lima demultiplexer.
	LimaID = "lima"
)

// HasProgram returns whether h holds a program with the given UID.
func HasProgram(h *sam.Header, uid string) bool {
	for _, p := range h.Progs() {
		if p.UID() == uid {
			return true
		}
	}
	return false
}

// HasLima returns whether h records that the file was processed by
// lima. Without lima processing the bc tags of a file are unlikely to
// hold barcode pairs.
func HasLima(h *sam.Header) bool { return HasProgram(h, LimaID) }

// Last returns the last program added to h, or nil if h has no
// programs.
//
// Last is the insertion order tail of the program list. This is not
// necessarily the tail of the chain formed by the programs' PP fields
// when an upstream tool has reordered the header.
func Last(h *sam.Header) *sam.Program {
	progs := h.Progs()
	if len(progs) == 0 {
		return nil
	}
	return progs[len(progs)-1]
}

// Add adds a program line for this tool to h, recording the version and
// command line of the run and linking it to the last program already in
// h. An existing program with the same UID is replaced.
//
// The returned header must be used in place of h. It is h unless a
// replacement was required, in which case it is a new header equal to h
// less the replaced program.
func Add(h *sam.Header, commandLine, version string) (*sam.Header, error) {
	if HasProgram(h, ProgramID) {
		var err error
		h, err = without(h, ProgramID)
		if err != nil {
			return nil, errors.Wrapf(err, "provenance: failed to replace %s program", ProgramID)
		}
	}
	var prev string
	if last := Last(h); last != nil {
		prev = last.UID()
	}
	err := h.AddProgram(sam.NewProgram(ProgramID, ProgramID, commandLine, prev, version))
	if err != nil {
		return nil, errors.Wrapf(err, "provenance: failed to add %s program", ProgramID)
	}
	return h, nil
}

// without returns a copy of h with the program identified by uid
// removed. The copy is built from the text form of h.
func without(h *sam.Header, uid string) (*sam.Header, error) {
	text, err := h.MarshalText()
	if err != nil {
		return nil, err
	}
	id := []byte("ID:" + uid)
	var buf bytes.Buffer
	for _, l := range bytes.Split(text, []byte{'\n'}) {
		if len(l) == 0 || isProgramLine(l, id) {
			continue
		}
		buf.Write(l)
		buf.WriteByte('\n')
	}
	return sam.NewHeader(buf.Bytes(), nil)
}

func isProgramLine(l, id []byte) bool {
	if !bytes.HasPrefix(l, []byte("@PG\t")) {
		return false
	}
	for _, f := range bytes.Split(l, []byte{'\t'})[1:] {
		if bytes.Equal(f, id) {
			return true
		}
	}
	return false
}
