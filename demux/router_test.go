// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package demux

import (
	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/check.v1"

	"github.com/mdl/callao/barcode"
	"github.com/mdl/callao/internal/bamtest"
)

type recorder struct {
	names []string
	err   error
}

func (w *recorder) Write(r *sam.Record) error {
	if w.err != nil {
		return w.err
	}
	w.names = append(w.names, r.Name)
	return nil
}

func (s *S) TestRoute(c *check.C) {
	h, err := bamtest.LimaHeader()
	c.Assert(err, check.Equals, nil)

	badType := sam.Aux{'b', 'c', 'Z', 'x', 0}
	wrongSubtype := sam.Aux{'b', 'c', 'B', 'C', 2, 0, 0, 0, 1, 2}
	short := sam.Aux{'b', 'c', 'B', 'S', 2, 0, 0, 0, 1, 0}

	a := &recorder{}
	table := barcode.FromMap(map[[2]uint16]string{
		{0, 1}: "A",
		{1, 0}: "A",
		{3, 3}: "unopened",
	})
	log, hook := newLogger()
	rt := NewRouter(table, map[string]Writer{"A": a}, log)

	for _, t := range []struct {
		name string
		aux  []sam.Aux
		want Disposition
	}{
		{name: "r1", aux: []sam.Aux{barcode.NewAux(0, 1)}, want: Routed},
		{name: "r2", want: MissingTag},
		{name: "r3", aux: []sam.Aux{barcode.NewAux(1, 0)}, want: Routed},
		{name: "r4", aux: []sam.Aux{barcode.NewAux(1)}, want: MalformedTag},
		{name: "r5", aux: []sam.Aux{badType}, want: MalformedTag},
		{name: "r6", aux: []sam.Aux{wrongSubtype}, want: MalformedTag},
		{name: "r7", aux: []sam.Aux{short}, want: MalformedTag},
		{name: "r8", aux: []sam.Aux{barcode.NewAux(2, 2)}, want: UnroutedPair},
		{name: "r9", aux: []sam.Aux{barcode.NewAux(3, 3)}, want: NoWriter},
		{name: "r10", aux: []sam.Aux{barcode.NewAux()}, want: MalformedTag},
	} {
		r, err := bamtest.Record(h, t.name, 0, t.aux...)
		c.Assert(err, check.Equals, nil)
		got, err := rt.Route(r)
		c.Check(err, check.Equals, nil)
		c.Check(got, check.Equals, t.want, check.Commentf("%s: got %v want %v", t.name, got, t.want))
	}

	c.Check(a.names, check.DeepEquals, []string{"r1", "r3"})
	c.Check(rt.Stats(), check.DeepEquals, Stats{
		Records:      10,
		Routed:       map[string]int{"A": 2},
		MissingTag:   1,
		MalformedTag: 5,
		UnroutedPair: 1,
		NoWriter:     1,
	})

	var lengths []string
	for _, msg := range entriesAt(hook, logrus.DebugLevel) {
		if msg == "bc array with length 1, that's weird!" || msg == "bc array with length 0, that's weird!" {
			lengths = append(lengths, msg)
		}
	}
	c.Check(lengths, check.DeepEquals, []string{
		"bc array with length 1, that's weird!",
		"bc array with length 0, that's weird!",
	})
	c.Check(entriesAt(hook, logrus.WarnLevel), check.HasLen, 0)
}

func (s *S) TestRouteWriteError(c *check.C) {
	h, err := bamtest.Header()
	c.Assert(err, check.Equals, nil)

	fail := errors.New("disk full")
	rt := NewRouter(
		barcode.FromMap(map[[2]uint16]string{{0, 1}: "A"}),
		map[string]Writer{"A": &recorder{err: fail}},
		nil,
	)
	r, err := bamtest.Record(h, "r1", 0, barcode.NewAux(0, 1))
	c.Assert(err, check.Equals, nil)
	_, err = rt.Route(r)
	c.Assert(err, check.NotNil)
	c.Check(KindOf(err), check.Equals, IoError)
	c.Check(errors.Cause(err), check.Equals, fail)
	c.Check(rt.Stats().Written(), check.Equals, 0)
}

func (s *S) TestStatsCopy(c *check.C) {
	rt := NewRouter(barcode.Table{}, nil, nil)
	st := rt.Stats()
	st.Routed["x"] = 1
	c.Check(rt.Stats().Routed, check.HasLen, 0)
	c.Check(Disposition(42).String(), check.Equals, "unknown disposition")
	c.Check(NoWriter.String(), check.Equals, "no writer")
}
