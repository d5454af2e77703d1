// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pool provides a set of BAM writers sharing a single SAM header,
// each bound to one output path.
package pool

import (
	"compress/gzip"
	"os"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned when writing to a Handle that has been closed.
var ErrClosed = errors.New("pool: write to closed handle")

// Options control the construction of BAM writers.
type Options struct {
	// Level is the gzip compression level of the BGZF
	// blocks. The zero value is gzip.DefaultCompression.
	Level int

	// Concurrency is the number of BGZF compressors used
	// for each output. Values less than one are treated
	// as one.
	Concurrency int

	// Logger receives diagnostics. If nil the logrus
	// standard logger is used.
	Logger logrus.FieldLogger
}

// Validate returns an error if the options cannot be used to
// construct a BAM writer.
func (o Options) Validate() error {
	if o.Level != 0 && (o.Level < gzip.HuffmanOnly || o.Level > gzip.BestCompression) {
		return errors.Errorf("pool: invalid compression level %d", o.Level)
	}
	return nil
}

func (o Options) level() int {
	if o.Level == 0 {
		return gzip.DefaultCompression
	}
	return o.Level
}

func (o Options) concurrency() int {
	if o.Concurrency < 1 {
		return 1
	}
	return o.Concurrency
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger == nil {
		return logrus.StandardLogger()
	}
	return o.Logger
}

// Handle is a BAM writer bound to an output path. The SAM header has
// been written to the output before the Handle is returned by Open.
type Handle struct {
	path string
	f    *os.File
	bw   *bam.Writer

	n      int
	closed bool
}

// Path returns the output path of the handle.
func (h *Handle) Path() string { return h.path }

// Written returns the number of records written to the handle.
func (h *Handle) Written() int { return h.n }

// Write writes r to the output.
func (h *Handle) Write(r *sam.Record) error {
	if h.closed {
		return ErrClosed
	}
	err := h.bw.Write(r)
	if err != nil {
		return errors.Wrapf(err, "pool: failed to write record %q to %s", r.Name, h.path)
	}
	h.n++
	return nil
}

// Close flushes the BAM stream, writes the BGZF end of file marker
// and closes the output file. Close may be called more than once; only
// the first call has an effect.
func (h *Handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	err := h.bw.Close()
	ferr := h.f.Close()
	if err != nil {
		return errors.Wrapf(err, "pool: failed to finalize %s", h.path)
	}
	if ferr != nil {
		return errors.Wrapf(ferr, "pool: failed to close %s", h.path)
	}
	return nil
}

// Pool holds one Handle for each distinct output path.
type Pool struct {
	handles map[string]*Handle
	log     logrus.FieldLogger
}

// Open returns a Pool with a Handle for each distinct path in paths.
// Outputs are created if absent and truncated if present, and h is
// written to each before Open returns. Paths are opened in lexical
// order.
//
// Open returns an error without creating any output if opts is not
// valid. If any output cannot be opened or its header cannot be written,
// the outputs already created by Open are closed and removed, and the
// error is returned.
func Open(h *sam.Header, paths []string, opts Options) (*Pool, error) {
	err := opts.Validate()
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	uniq := maps.Keys(set)
	slices.Sort(uniq)

	p := &Pool{
		handles: make(map[string]*Handle, len(uniq)),
		log:     opts.logger(),
	}
	for _, path := range uniq {
		hd, err := open(h, path, opts)
		if err != nil {
			p.discard()
			return nil, err
		}
		p.handles[path] = hd
		p.log.WithField("output", path).Debug("Opened output BAM")
	}
	return p, nil
}

func open(h *sam.Header, path string, opts Options) (*Handle, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "pool: failed to open %s", path)
	}
	bw, err := bam.NewWriterLevel(f, h, opts.level(), opts.concurrency())
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, errors.Wrapf(err, "pool: failed to write header to %s", path)
	}
	return &Handle{path: path, f: f, bw: bw}, nil
}

// discard closes and removes every output of the pool.
func (p *Pool) discard() {
	for path, h := range p.handles {
		if err := h.Close(); err != nil {
			p.log.WithError(err).WithField("output", path).Debug("Failed to close output BAM")
		}
		if err := os.Remove(path); err != nil {
			p.log.WithError(err).WithField("output", path).Debug("Failed to remove output BAM")
		}
	}
	p.handles = nil
}

// Get returns the Handle for path.
func (p *Pool) Get(path string) (*Handle, bool) {
	h, ok := p.handles[path]
	return h, ok
}

// Len returns the number of handles in the pool.
func (p *Pool) Len() int { return len(p.handles) }

// Paths returns the output paths of the pool in lexical order.
func (p *Pool) Paths() []string {
	paths := maps.Keys(p.handles)
	slices.Sort(paths)
	return paths
}

// Close closes every handle in the pool, returning the first error
// encountered. Handles are closed concurrently.
func (p *Pool) Close() error {
	var g errgroup.Group
	for _, h := range p.handles {
		h := h
		g.Go(func() error {
			err := h.Close()
			if err != nil {
				return err
			}
			p.log.WithFields(logrus.Fields{
				"output":  h.path,
				"records": h.Written(),
			}).Debug("Closed output BAM")
			return nil
		})
	}
	return g.Wait()
}

// Abort closes every handle in the pool, logging rather than returning
// any error. Abort is intended for cleanup after a failure, where the
// causing failure must be reported.
func (p *Pool) Abort() {
	for _, path := range p.Paths() {
		if err := p.handles[path].Close(); err != nil {
			p.log.WithError(err).WithField("output", path).Warn("Failed to close output BAM")
		}
	}
}
