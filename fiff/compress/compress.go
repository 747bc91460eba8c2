// Package compress handles FIFF files stored inside a gzip, zstd or lz4
// container.
//
// A FIFF file needs random access, so a compressed file is inflated into
// memory before it is indexed. Compression on write is streamed.
package compress

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Format identifies a container.
type Format int

const (
	None Format = iota
	Gzip
	Zstd
	LZ4
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

var formatNames = map[Format]string{
	None: "none",
	Gzip: "gzip",
	Zstd: "zstd",
	LZ4:  "lz4",
}

var extensions = map[string]Format{
	".gz":  Gzip,
	".zst": Zstd,
	".lz4": LZ4,
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat returns the format called name.
func ParseFormat(name string) (Format, error) {
	for f, n := range formatNames {
		if strings.EqualFold(n, name) {
			return f, nil
		}
	}
	return None, fmt.Errorf("unknown compression %q", name)
}

// Detect returns the container format whose magic number starts head.
func Detect(head []byte) Format {
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return Gzip
	case bytes.HasPrefix(head, zstdMagic):
		return Zstd
	case bytes.HasPrefix(head, lz4Magic):
		return LZ4
	}
	return None
}

// FormatFromName returns the container implied by the extension of name.
func FormatFromName(name string) Format {
	return extensions[strings.ToLower(filepath.Ext(name))]
}

// NewReader returns a reader that inflates r.
func NewReader(f Format, r io.Reader) (io.ReadCloser, error) {
	switch f {
	case None:
		return io.NopCloser(r), nil
	case Gzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr, nil
	case Zstd:
		d, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	}
	return nil, fmt.Errorf("unsupported compression: %s", f)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// NewWriter returns a writer that compresses into w. Closing it flushes the
// container trailer but does not close w.
func NewWriter(f Format, w io.Writer) (io.WriteCloser, error) {
	switch f {
	case None:
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case Zstd:
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		return zw, nil
	case LZ4:
		return lz4.NewWriter(w), nil
	}
	return nil, fmt.Errorf("unsupported compression: %s", f)
}

// Decompress inflates all of r.
func Decompress(f Format, r io.Reader) ([]byte, error) {
	zr, err := NewReader(f, r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	b, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f, err)
	}
	return b, nil
}
