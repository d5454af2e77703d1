// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package barcode provides the barcode pair model used to route lima
// demultiplexed BAM records, and the routing tables that map pairs to
// output destinations.
package barcode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	"github.com/biogo/hts/sam"
)

// Tag is the auxiliary tag lima uses to record the barcode pair
// assigned to a read.
var Tag = sam.NewTag("bc")

var (
	// ErrMissing is returned when a record has no bc tag.
	ErrMissing = errors.New("barcode: bc tag missing")

	// ErrNotUint16Array is returned when the bc tag is not a B:S array.
	ErrNotUint16Array = errors.New("barcode: bc tag is not a uint16 array")

	// ErrTruncated is returned when the declared length of the bc array
	// does not agree with the data held by the tag.
	ErrTruncated = errors.New("barcode: bc array truncated")
)

// LengthError is returned when a well-formed bc array does not hold
// exactly two elements.
type LengthError struct {
	N int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("barcode: bc array with length %d", e.N)
}

// Pair is an ordered pair of zero-based barcode indices. I and J are
// held in the order they are stored in the bc tag.
type Pair struct {
	I, J uint16
}

// String returns the "i,j" representation of the pair.
func (p Pair) String() string {
	return strconv.Itoa(int(p.I)) + "," + strconv.Itoa(int(p.J))
}

// BAM B array layout: tag[2] type['B'] subtype count[4] values...
const (
	arrayHeaderLen = 8
	uint16Size     = 2
)

// FromAux returns the Pair held in a bc auxiliary field. The raw field
// data is examined directly so that malformed arrays are reported as
// errors rather than causing a panic.
//
// The returned error is ErrNotUint16Array if a is not a B:S array,
// ErrTruncated if the array data is inconsistent with its declared
// length and a *LengthError if the array does not hold two elements.
func FromAux(a sam.Aux) (Pair, error) {
	if len(a) < 4 || a.Type() != 'B' || a[3] != 'S' {
		return Pair{}, ErrNotUint16Array
	}
	if len(a) < arrayHeaderLen {
		return Pair{}, ErrTruncated
	}
	n := uint64(binary.LittleEndian.Uint32(a[4:arrayHeaderLen]))
	if uint64(len(a)-arrayHeaderLen) != n*uint16Size {
		return Pair{}, ErrTruncated
	}
	if n != 2 {
		return Pair{}, &LengthError{N: int(n)}
	}
	return Pair{
		I: binary.LittleEndian.Uint16(a[8:10]),
		J: binary.LittleEndian.Uint16(a[10:12]),
	}, nil
}

// FromRecord returns the Pair held in the bc field of r. If r has no
// bc field ErrMissing is returned, otherwise the behaviour is that of
// FromAux.
func FromRecord(r *sam.Record) (Pair, error) {
	a := r.AuxFields.Get(Tag)
	if a == nil {
		return Pair{}, ErrMissing
	}
	return FromAux(a)
}

// NewAux returns a bc auxiliary field holding v as a B:S array.
func NewAux(v ...uint16) sam.Aux {
	a := make(sam.Aux, arrayHeaderLen+len(v)*uint16Size)
	copy(a, []byte{Tag[0], Tag[1], 'B', 'S'})
	binary.LittleEndian.PutUint32(a[4:arrayHeaderLen], uint32(len(v)))
	for i, e := range v {
		binary.LittleEndian.PutUint16(a[arrayHeaderLen+i*uint16Size:], e)
	}
	return a
}

// Aux returns the bc auxiliary field encoding p.
func (p Pair) Aux() sam.Aux { return NewAux(p.I, p.J) }
