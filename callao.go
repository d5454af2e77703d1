// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package callao splits lima-demultiplexed BAM files by barcode pair.
//
// Each record of the input carries the barcode pair assigned by lima
// in its bc tag. SplitBAM writes every record whose pair is routed to a
// destination into that destination's BAM file, preserving the input
// order, and records the run as a callao program line in the header of
// each output.
package callao

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mdl/callao/barcode"
	"github.com/mdl/callao/demux"
)

// Version is the version recorded in the program line of output
// headers. It is set at build time with
//
//	-ldflags "-X github.com/mdl/callao.Version=x.y.z"
var Version = "0.1.0"

var (
	bridge sync.Once

	mu     sync.Mutex
	logger logrus.FieldLogger
)

// SetLogger sets the destination of diagnostics emitted by SplitBAM.
// If SetLogger is not called before the first call to SplitBAM, the
// logrus standard logger is used. Setting a nil logger restores the
// standard logger.
func SetLogger(l logrus.FieldLogger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

func log() logrus.FieldLogger {
	bridge.Do(func() {
		mu.Lock()
		if logger == nil {
			logger = logrus.StandardLogger()
		}
		mu.Unlock()
	})
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		return logrus.StandardLogger()
	}
	return logger
}

// SplitBAM writes each record of the BAM file inputBAM to the output
// path that barcodeMap gives for the record's barcode pair. Records
// without a routable pair are dropped. cliCmd is recorded as the
// command line of the callao program line added to each output header.
//
// SplitBAM blocks until the input has been consumed and every output
// closed. The returned error, if not nil, is a *demux.Error.
func SplitBAM(ctx context.Context, cliCmd, inputBAM string, barcodeMap map[[2]uint16]string) error {
	_, err := demux.Split(ctx, demux.Config{
		CommandLine: cliCmd,
		Version:     Version,
		Input:       inputBAM,
		Table:       barcode.FromMap(barcodeMap),
		Logger:      log(),
	})
	return err
}
