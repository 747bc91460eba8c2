// Package evoked reads and writes evoked (averaged) responses stored in FIFF
// files.
//
// A file may hold several evoked blocks, each with one or more aspects. The
// aspects are numbered across the whole file: the ordinary aspects of the
// first evoked block, then its signal-minus-shield aspects, then those of the
// next block, and so on.
package evoked

import (
	"fmt"

	"github.com/batchatco/go-native-fiff/fiff/api"
	"github.com/batchatco/go-native-fiff/fiff/meas"
	"github.com/batchatco/go-native-fiff/fiff/tree"
	"gonum.org/v1/gonum/mat"
)

// Evoked is one assembled data set. Data has one row per channel of Info
// and one column per sample; Times holds the time of each sample in seconds.
type Evoked struct {
	Info       *meas.Info
	Nave       int
	AspectKind int32
	First      int
	Last       int
	Comment    string
	Times      []float64
	Data       *mat.Dense
}

// Baseline is the time window, in seconds, whose mean is subtracted from
// every channel. A nil bound extends the window to that end of the data.
type Baseline struct {
	Min *float64
	Max *float64
}

// Window returns the baseline [lo, hi].
func Window(lo, hi float64) *Baseline {
	return &Baseline{Min: &lo, Max: &hi}
}

// NSamp returns the number of samples.
func (ev *Evoked) NSamp() int {
	return ev.Last - ev.First + 1
}

// Read reads data set number index of the file at path. A nil baseline
// leaves the data uncorrected.
func Read(path string, index int, baseline *Baseline) (*Evoked, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: data set selector must be positive, got %d", api.ErrSelectionRange, index)
	}
	logger.Infof("reading %s ...", path)
	f, err := tree.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadFile(f, index, baseline)
}

// ReadFile reads data set number index of an open file.
func ReadFile(f *tree.File, index int, baseline *Baseline) (*Evoked, error) {
	info, measNode, err := meas.Read(f)
	if err != nil {
		return nil, err
	}
	u, err := Select(f.Tree, measNode, index)
	if err != nil {
		return nil, err
	}
	return Assemble(f, u, info, baseline)
}
