// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package barcode

import (
	"sort"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Table maps barcode pairs to output destination paths. Pairs that are
// not present in the table are not routed. More than one pair may map
// to the same destination, in which case the records of all those pairs
// are written to a single output.
//
// A Table must not be modified once it has been handed to a router.
type Table map[Pair]string

// FromMap returns a Table holding the pairs and destinations in m.
func FromMap(m map[[2]uint16]string) Table {
	t := make(Table, len(m))
	for k, v := range m {
		t[Pair{I: k[0], J: k[1]}] = v
	}
	return t
}

// Lookup returns the destination for p and whether p is routed.
func (t Table) Lookup(p Pair) (string, bool) {
	dst, ok := t[p]
	return dst, ok
}

// Destinations returns the set of distinct destinations in the table
// in lexical order.
func (t Table) Destinations() []string {
	set := make(map[string]struct{}, len(t))
	for _, dst := range t {
		set[dst] = struct{}{}
	}
	paths := maps.Keys(set)
	slices.Sort(paths)
	return paths
}

// Pairs returns the pairs routed to dst, sorted by I then J.
func (t Table) Pairs(dst string) []Pair {
	var pairs []Pair
	for p, d := range t {
		if d == dst {
			pairs = append(pairs, p)
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].I != pairs[j].I {
			return pairs[i].I < pairs[j].I
		}
		return pairs[i].J < pairs[j].J
	})
	return pairs
}
