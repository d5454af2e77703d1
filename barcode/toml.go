// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package barcode

import (
	"fmt"
	"io"
	"math"

	"github.com/pelletier/go-toml"
)

// routeFile is the TOML layout of a routing table:
//
//	[[route]]
//	pair = [0, 1]
//	output = "sample1.bam"
type routeFile struct {
	Route []route `toml:"route"`
}

type route struct {
	Pair   []int64 `toml:"pair"`
	Output string  `toml:"output"`
}

// ReadTOML reads a routing table in TOML format from r.
func ReadTOML(r io.Reader) (Table, error) {
	var f routeFile
	err := toml.NewDecoder(r).Decode(&f)
	if err != nil {
		return nil, fmt.Errorf("barcode: invalid routing table: %v", err)
	}
	t := make(Table, len(f.Route))
	for i, rt := range f.Route {
		if len(rt.Pair) != 2 {
			return nil, fmt.Errorf("barcode: route %d: pair must have two elements, has %d", i, len(rt.Pair))
		}
		for _, v := range rt.Pair {
			if v < 0 || v > math.MaxUint16 {
				return nil, fmt.Errorf("barcode: route %d: barcode index %d out of range", i, v)
			}
		}
		if rt.Output == "" {
			return nil, fmt.Errorf("barcode: route %d: missing output", i)
		}
		p := Pair{I: uint16(rt.Pair[0]), J: uint16(rt.Pair[1])}
		if _, dup := t[p]; dup {
			return nil, fmt.Errorf("barcode: route %d: duplicate pair %v", i, p)
		}
		t[p] = rt.Output
	}
	return t, nil
}
