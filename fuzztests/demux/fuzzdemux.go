// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fuzzdemux

import (
	"bytes"
	"io"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/bgzf"
	"github.com/sirupsen/logrus"

	"github.com/mdl/callao/barcode"
	"github.com/mdl/callao/demux"
	"github.com/mdl/callao/provenance"
)

var (
	table = barcode.FromMap(map[[2]uint16]string{
		{0, 1}: "a",
		{1, 0}: "a",
		{2, 3}: "b",
	})

	log = func() *logrus.Logger {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l
	}()
)

func Fuzz(data []byte) int {
	buf := bytes.Buffer{}
	w := bgzf.NewWriter(&buf, 1)
	if n, err := w.Write(data); err != nil || n != len(data) {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}

	r, err := bam.NewReader(&buf, 1)
	if err != nil {
		return 0
	}
	defer r.Close()
	h, err := provenance.Add(r.Header(), "callao fuzz", "")
	if err != nil {
		return 0
	}

	writers := make(map[string]demux.Writer)
	var outputs []*bam.Writer
	for _, dst := range table.Destinations() {
		bw, err := bam.NewWriter(io.Discard, h, 1)
		if err != nil {
			return 0
		}
		writers[dst] = bw
		outputs = append(outputs, bw)
	}
	rt := demux.NewRouter(table, writers, log)
	for {
		rec, err := demux.ReadRecord(r)
		if err != nil {
			break
		}
		if _, err := rt.Route(rec); err != nil {
			break
		}
	}
	for _, bw := range outputs {
		bw.Close()
	}
	if rt.Stats().Written() != 0 {
		return 1
	}
	return 0
}
