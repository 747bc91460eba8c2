// Package api is common to the FIFF packages: storage interfaces and the
// error taxonomy every reader and writer reports through.
package api

import (
	"errors"
	"io"
)

// ReaderAtCloser is a random access store that must be released.
type ReaderAtCloser interface {
	io.ReaderAt
	io.Closer
}

var (
	// ErrFormat is returned when an expected block or tag is absent or a
	// record cannot be decoded (unknown type code, truncated payload).
	ErrFormat = errors.New("invalid file structure")

	// ErrSelectionRange is returned when a data set selector is negative or
	// not smaller than the number of selectable data sets.
	ErrSelectionRange = errors.New("data set selector out of range")

	// ErrDataConsistency is returned when counts or shapes found in the file
	// (or handed to a writer) disagree with each other.
	ErrDataConsistency = errors.New("inconsistent data")

	// ErrUnsupported is returned for format features that are recognized
	// but not implemented.
	ErrUnsupported = errors.New("unsupported feature")

	// ErrInternal is an internal error not otherwise specified here
	ErrInternal = errors.New("internal error")
)
