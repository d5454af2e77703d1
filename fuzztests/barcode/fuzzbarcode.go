// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fuzzbarcode

import (
	"github.com/biogo/hts/sam"

	"github.com/mdl/callao/barcode"
)

func Fuzz(data []byte) int {
	a := append(sam.Aux{'b', 'c'}, data...)
	p, err := barcode.FromAux(a)
	if err != nil {
		return 0
	}
	if q, _ := barcode.FromAux(p.Aux()); q != p {
		panic("barcode: pair does not survive encoding")
	}
	return 1
}
