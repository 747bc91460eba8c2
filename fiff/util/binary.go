// Package util holds the big-endian read and write helpers shared by the
// FIFF codec. Every helper throws its error with go-thrower; callers recover
// with thrower.RecoverError at their API boundary.
package util

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/batchatco/go-native-fiff/fiff/api"
	"github.com/batchatco/go-thrower"
)

// ByteOrder is the byte order of every FIFF field.
var ByteOrder = binary.BigEndian

// MustWriteRaw wraps Write and throws an error if it fails.
func MustWriteRaw(w io.Writer, p []byte) {
	_, err := w.Write(p)
	thrower.ThrowIfError(err)
}

// MustReadAt reads exactly n bytes at pos. A short read means the file is
// truncated and is thrown as api.ErrFormat.
func MustReadAt(r io.ReaderAt, pos int64, n int) []byte {
	if n < 0 {
		thrower.Throw(fmt.Errorf("%w: negative length %d at %d", api.ErrFormat, n, pos))
	}
	b := make([]byte, n)
	got, err := r.ReadAt(b, pos)
	if got == n {
		return b
	}
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		thrower.Throw(fmt.Errorf("%w: truncated at offset %d (want %d bytes, got %d)",
			api.ErrFormat, pos, n, got))
	}
	thrower.Throw(err)
	return nil
}
