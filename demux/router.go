// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package demux

import (
	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mdl/callao/barcode"
)

// Writer is the destination of routed records. *bam.Writer satisfies
// Writer.
type Writer interface {
	Write(*sam.Record) error
}

// Disposition is the outcome of routing a record.
type Disposition int

const (
	// Routed records were written to their destination.
	Routed Disposition = iota

	// MissingTag records have no bc tag.
	MissingTag

	// MalformedTag records have a bc tag that is not a two
	// element uint16 array.
	MalformedTag

	// UnroutedPair records have a barcode pair that is not in
	// the routing table.
	UnroutedPair

	// NoWriter records have a barcode pair whose destination
	// has no writer.
	NoWriter
)

var dispositionNames = [...]string{
	Routed:       "routed",
	MissingTag:   "missing tag",
	MalformedTag: "malformed tag",
	UnroutedPair: "unrouted pair",
	NoWriter:     "no writer",
}

func (d Disposition) String() string {
	if d < Routed || int(d) >= len(dispositionNames) {
		return "unknown disposition"
	}
	return dispositionNames[d]
}

// Stats holds the counts of routing outcomes.
type Stats struct {
	// Records is the number of records examined.
	Records int

	// Routed holds the number of records written to
	// each destination.
	Routed map[string]int

	MissingTag   int
	MalformedTag int
	UnroutedPair int
	NoWriter     int
}

// Written returns the total number of routed records.
func (s Stats) Written() int {
	var n int
	for _, c := range s.Routed {
		n += c
	}
	return n
}

// Dropped returns the total number of records that were not routed.
func (s Stats) Dropped() int {
	return s.MissingTag + s.MalformedTag + s.UnroutedPair + s.NoWriter
}

type route struct {
	path string
	w    Writer
}

// Router routes records to writers according to the barcode pair held
// in their bc tag.
type Router struct {
	routes map[barcode.Pair]route
	log    logrus.FieldLogger

	stats Stats
}

// NewRouter returns a Router that writes records with a barcode pair in
// t to the writer for the pair's destination. Pairs whose destination
// is missing from writers are dropped. If log is nil, the logrus
// standard logger is used.
func NewRouter(t barcode.Table, writers map[string]Writer, log logrus.FieldLogger) *Router {
	if log == nil {
		log = logrus.StandardLogger()
	}
	rt := &Router{
		routes: make(map[barcode.Pair]route, len(t)),
		log:    log,
		stats:  Stats{Routed: make(map[string]int)},
	}
	for p, path := range t {
		rt.routes[p] = route{path: path, w: writers[path]}
	}
	return rt
}

// Route writes r to the writer for its barcode pair and returns the
// disposition of the record. Records that cannot be routed are dropped
// without error. The returned error is non-nil only when the write
// fails, and is an *Error of kind IoError.
func (rt *Router) Route(r *sam.Record) (Disposition, error) {
	rt.stats.Records++

	p, err := barcode.FromRecord(r)
	if err != nil {
		if err == barcode.ErrMissing {
			rt.stats.MissingTag++
			return MissingTag, nil
		}
		var lerr *barcode.LengthError
		if errors.As(err, &lerr) {
			rt.log.Debugf("bc array with length %d, that's weird!", lerr.N)
		} else {
			rt.log.WithField("read", r.Name).Debugf("ignoring bc tag: %v", err)
		}
		rt.stats.MalformedTag++
		return MalformedTag, nil
	}

	dst, ok := rt.routes[p]
	if !ok {
		rt.stats.UnroutedPair++
		return UnroutedPair, nil
	}
	if dst.w == nil {
		rt.stats.NoWriter++
		return NoWriter, nil
	}

	err = dst.w.Write(r)
	if err != nil {
		return Routed, &Error{Kind: IoError, Op: "write", Path: dst.path, Err: err}
	}
	rt.stats.Routed[dst.path]++
	return Routed, nil
}

// Stats returns a copy of the routing counts accumulated so far.
func (rt *Router) Stats() Stats {
	s := rt.stats
	s.Routed = make(map[string]int, len(rt.stats.Routed))
	for k, v := range rt.stats.Routed {
		s.Routed[k] = v
	}
	return s
}
