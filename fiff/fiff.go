// Package fiff reads and writes evoked responses in the FIFF format used by
// MNE and Neuromag systems.
//
// Files may be wrapped in gzip, zstd or lz4; the container is detected on
// read and chosen from the file name (or WithCompression) on write.
package fiff

import (
	"fmt"

	"github.com/batchatco/go-native-fiff/fiff/api"
	"github.com/batchatco/go-native-fiff/fiff/compress"
	"github.com/batchatco/go-native-fiff/fiff/evoked"
	"github.com/batchatco/go-native-fiff/fiff/tree"
	"github.com/batchatco/go-native-fiff/internal"
	"github.com/batchatco/go-native-fiff/internal/options"
)

var logger = internal.Default()

// Open opens a FIFF file by name and indexes its blocks. The caller must
// close it.
func Open(fname string) (*tree.File, error) {
	return tree.Open(fname)
}

type readOptions struct {
	set      int
	baseline *evoked.Baseline
}

// ReadOption configures ReadEvoked.
type ReadOption = options.Option[*readOptions]

// WithSet selects the data set to read. Data sets are numbered from zero
// across the file. The default is the first one.
func WithSet(index int) ReadOption {
	return options.New(func(o *readOptions) error {
		if index < 0 {
			return fmt.Errorf("%w: data set selector must be positive, got %d", api.ErrSelectionRange, index)
		}
		o.set = index
		return nil
	})
}

// WithBaseline subtracts the mean of every channel over [tmin, tmax]
// seconds.
func WithBaseline(tmin, tmax float64) ReadOption {
	return options.NoError(func(o *readOptions) {
		o.baseline = evoked.Window(tmin, tmax)
	})
}

// WithBaselineFrom is WithBaseline with the window extended to the end of
// the data.
func WithBaselineFrom(tmin float64) ReadOption {
	return options.NoError(func(o *readOptions) {
		o.baseline = &evoked.Baseline{Min: &tmin}
	})
}

// WithBaselineUntil is WithBaseline with the window starting at the first
// sample.
func WithBaselineUntil(tmax float64) ReadOption {
	return options.NoError(func(o *readOptions) {
		o.baseline = &evoked.Baseline{Max: &tmax}
	})
}

// ReadEvoked reads one evoked data set from the file at path.
func ReadEvoked(path string, opts ...ReadOption) (*evoked.Evoked, error) {
	o := &readOptions{}
	if err := options.Apply(o, opts...); err != nil {
		return nil, err
	}
	return evoked.Read(path, o.set, o.baseline)
}

// WriteOption configures WriteEvoked.
type WriteOption = options.Option[*evoked.Config]

// WithCompression overrides the container chosen from the file name.
func WithCompression(f compress.Format) WriteOption {
	return options.NoError(func(c *evoked.Config) {
		c.Compression = f
	})
}

// WithoutCarryOver keeps the subject, HPI, digitizer and processing history
// blocks of the source file out of the output.
func WithoutCarryOver() WriteOption {
	return options.NoError(func(c *evoked.Config) {
		c.CarryOver = false
	})
}

// WriteEvoked writes one or more data sets to a new file at path.
func WriteEvoked(path string, datasets []*evoked.Evoked, opts ...WriteOption) error {
	cfg := evoked.DefaultConfig(path)
	if err := options.Apply(&cfg, opts...); err != nil {
		return err
	}
	return evoked.WriteFile(path, cfg, datasets...)
}

// SetLogLevel sets the logging level to the given level, and returns
// the old level. The lowest level is 0 (fatal messages only) and the
// highest level is 3 (errors, warnings and progress messages).
func SetLogLevel(level int) int {
	old := logger.LogLevel()
	switch level {
	case 0:
		logger.SetLogLevel(internal.LevelFatal)
	case 1:
		logger.SetLogLevel(internal.LevelError)
	case 2:
		logger.SetLogLevel(internal.LevelWarn)
	default:
		logger.SetLogLevel(internal.LevelInfo)
	}
	return int(old)
}
