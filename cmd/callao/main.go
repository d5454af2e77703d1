// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The callao command splits a BAM file previously tagged with lima into
// separate files for each sample index.
//
// As input it needs the barcode FASTA file that was given to lima, to
// identify proper and improper pairs of barcodes. Adapter names should
// look like A_1, Q_1, A_2, Q_2, etc. where A and Q are the names of the
// 5' and 3' adapters and 1, 2, ... denote the sample index.
//
// By default only reads with an A-Q pair are written. When artifacts are
// included, reads with A-A or Q-Q pairs are also written. If a series of
// INDEX arguments is given only those samples are written, otherwise a
// BAM is written for every sample in the barcode file.
//
// Alternatively, an explicit routing table can be given in TOML:
//
//	[[route]]
//	pair = [0, 1]
//	output = "sample1.bam"
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/mdl/callao"
	"github.com/mdl/callao/barcode"
	"github.com/mdl/callao/demux"
	"github.com/mdl/callao/internal/pool"
)

// newApp returns the callao application for the command line args.
func newApp(args []string) *cli.App {
	cliCmd := "callao " + strings.Join(args[1:], " ")

	// -v is taken by verbose.
	cli.VersionFlag = &cli.BoolFlag{Name: "version", Usage: "print the version"}

	return &cli.App{
		Name:      "callao",
		Usage:     "split a lima-tagged BAM file into one BAM per sample index",
		ArgsUsage: "[INDEX...]",
		Version:   callao.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input-bam", Required: true, TakesFile: true, Usage: "BAM file with barcode tags from lima"},
			&cli.StringFlag{Name: "output-stem", Usage: "Basename for outputs, a suffix is appended per index"},
			&cli.StringFlag{Name: "barcode-fasta", TakesFile: true, Usage: "FASTA file of indexed adapters used for lima (may be .gz or .xz compressed)"},
			&cli.StringFlag{Name: "barcode-map", TakesFile: true, Usage: "TOML routing table, conflicts with --barcode-fasta"},
			&cli.BoolFlag{Name: "include-artifacts", Usage: "Include artifacts (A-A and Q-Q)"},
			&cli.IntFlag{Name: "threads", Value: 1, Usage: "Number of BGZF compression threads for reading and for each output"},
			&cli.IntFlag{Name: "compression-level", Value: 0, Usage: "gzip compression level of outputs (-2 to 9), 0 for the default"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "Set log level (panic, fatal, error, warn, info, debug, trace)", EnvVars: []string{"LOG_LEVEL"}},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Log at debug level"},
		},
		Action: func(c *cli.Context) error {
			return split(c, cliCmd)
		},
	}
}

func split(c *cli.Context, cliCmd string) error {
	logLevel, err := logrus.ParseLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	if c.Bool("verbose") && logLevel < logrus.DebugLevel {
		logLevel = logrus.DebugLevel
	}
	logrus.SetLevel(logLevel)

	logrus.Debugf("Invoked with: %s", cliCmd)

	opts := pool.Options{
		Level:       c.Int("compression-level"),
		Concurrency: c.Int("threads"),
	}
	err = opts.Validate()
	if err != nil {
		return errors.Wrap(err, "invalid --compression-level")
	}

	table, err := routingTable(c)
	if err != nil {
		return err
	}
	dsts := table.Destinations()
	logrus.Debugf("Writing to %d output BAMs", len(dsts))
	for _, dst := range dsts {
		logrus.WithField("output", dst).Debugf("Routing pairs %v", table.Pairs(dst))
	}

	_, err = demux.Split(c.Context, demux.Config{
		CommandLine:     cliCmd,
		Version:         callao.Version,
		Input:           c.String("input-bam"),
		Table:           table,
		ReadConcurrency: c.Int("threads"),
		Pool:            opts,
	})
	return err
}

// routingTable returns the routing table described by the barcode
// options and INDEX arguments of c.
func routingTable(c *cli.Context) (barcode.Table, error) {
	fastaPath := c.String("barcode-fasta")
	mapPath := c.String("barcode-map")
	switch {
	case fastaPath != "" && mapPath != "":
		return nil, errors.New("--barcode-fasta and --barcode-map are mutually exclusive")
	case mapPath != "":
		if c.Args().Present() || c.Bool("include-artifacts") {
			return nil, errors.New("INDEX arguments and --include-artifacts require --barcode-fasta")
		}
		f, err := os.Open(mapPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return barcode.ReadTOML(f)
	case fastaPath != "":
		stem := c.String("output-stem")
		if stem == "" {
			return nil, errors.New("--barcode-fasta requires --output-stem")
		}
		include, err := indexes(c.Args().Slice())
		if err != nil {
			return nil, err
		}

		logrus.Debugf("Reading barcodes from %s", fastaPath)
		r, err := barcode.OpenLimaFasta(fastaPath)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		adapters, err := barcode.ReadLimaFasta(r)
		if err != nil {
			return nil, errors.Wrap(err, "failed to extract indexes from barcode names, is this the right file?")
		}
		if c.Bool("include-artifacts") {
			logrus.Debug("Including artifact pairings in output")
		}
		return barcode.LimaTable(adapters, stem, include, c.Bool("include-artifacts"))
	default:
		return nil, errors.New("one of --barcode-fasta or --barcode-map is required")
	}
}

func indexes(args []string) ([]int, error) {
	var include []int
	for _, a := range args {
		ix, err := strconv.Atoi(a)
		if err != nil {
			return nil, errors.Errorf("invalid INDEX %q", a)
		}
		include = append(include, ix)
	}
	return include, nil
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Args).RunContext(ctx, os.Args); err != nil {
		stop()
		logrus.Fatal(err)
	}
}
