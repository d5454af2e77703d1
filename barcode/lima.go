// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package barcode

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
	gzip "github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
)

// Adapter is a named, indexed adapter from a lima barcode file. The
// sample index is one-based; an adapter's position in the barcode file
// is the zero-based value written by lima into the bc tag.
type Adapter struct {
	Name  string
	Index int
}

func (a Adapter) String() string { return a.Name + "_" + strconv.Itoa(a.Index) }

// ReadLimaFasta reads the adapters of a lima barcode FASTA file from r.
// Sequence names must have the form <adapter>_<index>, for example A_1
// and Q_1; anything after a second underscore is ignored.
func ReadLimaFasta(r io.Reader) ([]Adapter, error) {
	sc := seqio.NewScanner(fasta.NewReader(r, linear.NewSeq("", nil, alphabet.DNA)))
	var adapters []Adapter
	for sc.Next() {
		name := sc.Seq().Name()
		if f := strings.Fields(name); len(f) != 0 {
			name = f[0]
		}
		parts := strings.Split(name, "_")
		if len(parts) < 2 {
			return nil, fmt.Errorf("barcode: cannot extract index from barcode name %q", name)
		}
		ix, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("barcode: cannot extract index from barcode name %q: %v", name, err)
		}
		adapters = append(adapters, Adapter{Name: parts[0], Index: ix})
	}
	if err := sc.Error(); err != nil {
		return nil, err
	}
	return adapters, nil
}

// OpenLimaFasta opens the barcode file at path for reading. Files with
// a .xz or .gz extension are decompressed.
func OpenLimaFasta(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch filepath.Ext(path) {
	case ".xz":
		r, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return readCloser{Reader: r, f: f}, nil
	case ".gz":
		r, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return readCloser{Reader: r, z: r, f: f}, nil
	default:
		return f, nil
	}
}

// readCloser closes the decompressor z, if any, and the file f.
type readCloser struct {
	io.Reader
	z io.Closer
	f *os.File
}

func (r readCloser) Close() error {
	if r.z != nil {
		r.z.Close()
	}
	return r.f.Close()
}

// OutputPath returns the output path for sample index ix given the
// output stem. Any extension on stem is replaced. A leading dot of the
// stem's base name does not start an extension.
func OutputPath(stem string, ix int) string {
	ext := filepath.Ext(stem)
	if ext == filepath.Base(stem) {
		ext = ""
	}
	return strings.TrimSuffix(stem, ext) + "." + strconv.Itoa(ix) + ".bam"
}

// LimaTable returns a routing table for the given adapters. Each sample
// index must be represented by exactly two adapters; the pair routed
// for the index is the sorted pair of the adapters' positions, since
// lima writes the bc tag in sorted order.
//
// If include is not empty only the listed sample indexes are routed.
// If artifacts is true, reads where the same adapter was found at both
// ends are routed to the output of that adapter's sample index.
func LimaTable(adapters []Adapter, stem string, include []int, artifacts bool) (Table, error) {
	if len(adapters) > math.MaxUint16+1 {
		return nil, fmt.Errorf("barcode: too many adapters: %d", len(adapters))
	}
	positions := make(map[Adapter]int, len(adapters))
	for i, a := range adapters {
		positions[a] = i
	}
	ixToPos := make(map[int][]int)
	for _, a := range adapters {
		ixToPos[a.Index] = append(ixToPos[a.Index], positions[a])
	}
	for ix, pos := range ixToPos {
		if len(pos) != 2 {
			return nil, fmt.Errorf("barcode: index %d has %d adapters: should only have two adapters (A and Q) for each index", ix, len(pos))
		}
		sort.Ints(pos)
	}

	selected := make(map[int]bool, len(ixToPos))
	if len(include) == 0 {
		for ix := range ixToPos {
			selected[ix] = true
		}
	} else {
		for _, ix := range include {
			if _, ok := ixToPos[ix]; ok {
				selected[ix] = true
			}
		}
	}

	t := make(Table, len(selected))
	for ix := range selected {
		pos := ixToPos[ix]
		t[Pair{I: uint16(pos[0]), J: uint16(pos[1])}] = OutputPath(stem, ix)
	}
	if artifacts {
		for i, a := range adapters {
			if selected[a.Index] {
				t[Pair{I: uint16(i), J: uint16(i)}] = OutputPath(stem, a.Index)
			}
		}
	}
	return t, nil
}
