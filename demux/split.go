// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package demux splits a BAM stream into several BAM files according to
// the barcode pair held in the bc tag of each record.
package demux

import (
	"context"
	"io"
	"os"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mdl/callao/barcode"
	"github.com/mdl/callao/internal/pool"
	"github.com/mdl/callao/provenance"
)

// Config holds the parameters of a Split run.
type Config struct {
	// CommandLine is recorded in the CL field of the
	// callao program line.
	CommandLine string

	// Version is recorded in the VN field of the callao
	// program line. It is omitted if empty.
	Version string

	// Input is the path of the BAM file to split.
	Input string

	// Table maps barcode pairs to output paths.
	Table barcode.Table

	// ReadConcurrency is the number of BGZF decompressors
	// used by the reader. Values less than one are treated
	// as one.
	ReadConcurrency int

	// Pool configures the output writers.
	Pool pool.Options

	// Logger receives diagnostics. If nil the logrus standard
	// logger is used.
	Logger logrus.FieldLogger
}

func (c Config) logger() logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}

func (c Config) readConcurrency() int {
	if c.ReadConcurrency < 1 {
		return 1
	}
	return c.ReadConcurrency
}

// Split reads the BAM file cfg.Input and writes each record carrying a
// barcode pair in cfg.Table to the pair's destination. Every destination
// in the table receives the input header with a callao program line
// appended, even if no record is routed to it. Records without a
// routable pair are dropped.
//
// Errors returned by Split are of type *Error. Invalid writer options
// are reported before any file is opened. On error, outputs that
// were opened are closed but not removed.
func Split(ctx context.Context, cfg Config) (Stats, error) {
	log := cfg.logger()
	ilog := log.WithField("input", cfg.Input)

	err := cfg.Pool.Validate()
	if err != nil {
		return Stats{}, &Error{Kind: ConfigError, Op: "check options", Err: err}
	}

	ilog.Infof("Reading from %s", cfg.Input)
	f, err := os.Open(cfg.Input)
	if err != nil {
		return Stats{}, &Error{Kind: IoError, Op: "open", Path: cfg.Input, Err: err}
	}
	defer f.Close()

	br, err := bam.NewReader(f, cfg.readConcurrency())
	if err != nil {
		return Stats{}, &Error{Kind: readKind(err), Op: "read header", Path: cfg.Input, Err: err}
	}
	defer br.Close()

	h := br.Header()
	if !provenance.HasLima(h) {
		ilog.Warn("lima not found in BAM header, callao may not work properly!")
	}
	h, err = provenance.Add(h, cfg.CommandLine, cfg.Version)
	if err != nil {
		return Stats{}, &Error{Kind: HeaderError, Op: "add program", Path: cfg.Input, Err: err}
	}

	opts := cfg.Pool
	if opts.Logger == nil {
		opts.Logger = log
	}
	p, err := pool.Open(h, cfg.Table.Destinations(), opts)
	if err != nil {
		return Stats{}, &Error{Kind: IoError, Op: "open outputs", Err: err}
	}
	writers := make(map[string]Writer, p.Len())
	for _, path := range p.Paths() {
		hd, _ := p.Get(path)
		writers[path] = hd
	}
	rt := NewRouter(cfg.Table, writers, log)

	err = stream(ctx, br, rt, cfg.Input, log)
	if err != nil {
		p.Abort()
		return rt.Stats(), err
	}
	err = p.Close()
	if err != nil {
		return rt.Stats(), &Error{Kind: IoError, Op: "close outputs", Err: err}
	}

	stats := rt.Stats()
	ilog.WithFields(logrus.Fields{
		"records": stats.Records,
		"routed":  stats.Written(),
		"dropped": stats.Dropped(),
	}).Info("Done")
	return stats, nil
}

// stream routes every record of br through rt in input order.
func stream(ctx context.Context, br *bam.Reader, rt *Router, path string, log logrus.FieldLogger) error {
	log.Debug("Reading records from BAM")
	for {
		err := ctx.Err()
		if err != nil {
			return &Error{Kind: Canceled, Op: "read", Path: path, Err: err}
		}
		r, err := ReadRecord(br)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return &Error{Kind: readKind(err), Op: "read record", Path: path, Err: err}
		}
		_, err = rt.Route(r)
		if err != nil {
			return err
		}
	}
}

// ReadRecord returns the next record of br. A panic raised by the
// decoder on malformed record data is returned as an error.
func ReadRecord(br *bam.Reader) (r *sam.Record, err error) {
	defer func() {
		if v := recover(); v != nil {
			r = nil
			err = errors.Errorf("bam: malformed record: %v", v)
		}
	}()
	return br.Read()
}
