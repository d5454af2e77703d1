// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package demux

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// Kind is the category of a fatal demultiplexing error.
type Kind int

const (
	// UnknownKind is the Kind of errors not returned by this package.
	UnknownKind Kind = iota

	// IoError indicates an open, read, write or close failure.
	IoError

	// DecodeError indicates a malformed BAM header or record.
	DecodeError

	// HeaderError indicates that the program record could not be
	// added to the header.
	HeaderError

	// Canceled indicates that the context of the run was canceled
	// or timed out.
	Canceled

	// ConfigError indicates that the run configuration is not
	// valid. No file is opened.
	ConfigError
)

var kindNames = [...]string{
	UnknownKind: "unknown error",
	IoError:     "i/o error",
	DecodeError: "decode error",
	HeaderError: "header error",
	Canceled:    "canceled",
	ConfigError: "configuration error",
}

func (k Kind) String() string {
	if k < UnknownKind || int(k) >= len(kindNames) {
		return kindNames[UnknownKind]
	}
	return kindNames[k]
}

// Error is a fatal demultiplexing error.
type Error struct {
	Kind Kind

	// Op is the operation that failed.
	Op string

	// Path is the file involved in the failure, if any.
	Path string

	Err error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("demux: %s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("demux: %s: %s %s: %v", e.Kind, e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Cause returns the underlying error.
func (e *Error) Cause() error { return e.Err }

// KindOf returns the Kind of err if err is or wraps an *Error, and
// UnknownKind otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return UnknownKind
}

// readKind classifies an error returned while reading BAM input.
// Failures of the underlying file are I/O errors; anything else is a
// failure to decode the stream.
func readKind(err error) Kind {
	var pe *os.PathError
	if errors.As(err, &pe) {
		return IoError
	}
	return DecodeError
}
