// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build boom
// +build boom

package demux

import (
	"context"
	"path/filepath"

	"github.com/biogo/boom"
	"gopkg.in/check.v1"

	"github.com/mdl/callao/barcode"
	"github.com/mdl/callao/internal/bamtest"
)

// TestBoomReadsOutputs checks that htslib agrees with biogo/hts on the
// content of split outputs.
func (s *S) TestBoomReadsOutputs(c *check.C) {
	dir := c.MkDir()
	in := filepath.Join(dir, "in.bam")
	h, err := bamtest.LimaHeader()
	c.Assert(err, check.Equals, nil)
	writeInput(c, in, h, []rec{
		{"r1", bc(0, 1)},
		{"r2", bc(2, 3)},
		{"r3", nil},
		{"r4", bc(0, 1)},
	})

	a := filepath.Join(dir, "A.bam")
	b := filepath.Join(dir, "B.bam")
	log, _ := newLogger()
	_, err = Split(context.Background(), Config{
		CommandLine: "callao",
		Input:       in,
		Table:       barcode.FromMap(map[[2]uint16]string{{0, 1}: a, {2, 3}: b}),
		Logger:      log,
	})
	c.Assert(err, check.Equals, nil)

	for _, path := range []string{a, b} {
		br, err := boom.OpenBAM(path)
		c.Assert(err, check.Equals, nil)
		var names []string
		for {
			r, _, err := br.Read()
			if err != nil {
				break
			}
			names = append(names, r.Name())
		}
		br.Close()
		c.Check(names, check.DeepEquals, outputNames(c, path), check.Commentf("%s", path))
	}
}
