package evoked

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/batchatco/go-native-fiff/fiff/api"
	"github.com/batchatco/go-native-fiff/fiff/compress"
	"github.com/batchatco/go-native-fiff/fiff/meas"
	"github.com/batchatco/go-native-fiff/fiff/tag"
	"github.com/batchatco/go-native-fiff/fiff/tree"
	"github.com/batchatco/go-native-fiff/internal"
	"github.com/batchatco/go-thrower"
	"gonum.org/v1/gonum/mat"
)

// Config controls how data sets are written.
type Config struct {
	// Compression wraps the output in a container.
	Compression compress.Format

	// CarryOver copies the subject, HPI, digitizer and processing history
	// blocks from Info.Filename when it is set.
	CarryOver bool
}

// DefaultConfig returns the configuration used by Write for path.
func DefaultConfig(path string) Config {
	return Config{
		Compression: compress.FormatFromName(path),
		CarryOver:   true,
	}
}

// Blocks copied from the source file, in this order.
var carriedBlocks = []tag.Block{
	tag.BlockSubject,
	tag.BlockHPIMeas,
	tag.BlockHPIResult,
	tag.BlockIsotrak,
	tag.BlockProcessingHistory,
}

// Write writes datasets to a new file at path. The measurement info of the
// first data set is the measurement info of the file; the channels and
// sample rate of the others are kept with their evoked blocks.
func Write(path string, datasets ...*Evoked) error {
	return WriteFile(path, DefaultConfig(path), datasets...)
}

// WriteFile is Write with an explicit configuration. Nothing is created
// when a data set fails validation. The source file is read completely
// before path is created, so it may be the file being replaced.
func WriteFile(path string, cfg Config, datasets ...*Evoked) (err error) {
	if err := Validate(datasets...); err != nil {
		return err
	}
	src, err := openSource(datasets[0].Info, cfg)
	if err != nil {
		return err
	}
	if src != nil {
		defer src.Close()
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	return writeTo(file, datasets, cfg, src)
}

// WriteTo writes datasets to w.
func WriteTo(w io.Writer, cfg Config, datasets ...*Evoked) error {
	if err := Validate(datasets...); err != nil {
		return err
	}
	src, err := openSource(datasets[0].Info, cfg)
	if err != nil {
		return err
	}
	if src != nil {
		defer src.Close()
	}
	return writeTo(w, datasets, cfg, src)
}

func openSource(info *meas.Info, cfg Config) (*tree.File, error) {
	if !cfg.CarryOver || info.Filename == "" {
		return nil, nil
	}
	src, err := tree.OpenMemory(info.Filename)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", info.Filename, err)
	}
	return src, nil
}

func writeTo(w io.Writer, datasets []*Evoked, cfg Config, src *tree.File) (err error) {
	zw, err := compress.NewWriter(cfg.Compression, w)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, zw.Close())
	}()
	defer thrower.RecoverError(&err)
	emit(tag.NewWriter(zw), datasets, src)
	return nil
}

// Validate checks that datasets can be written together.
func Validate(datasets ...*Evoked) (err error) {
	defer thrower.RecoverError(&err)
	assertf(len(datasets) > 0, api.ErrDataConsistency, "no data sets to write")
	for i, ev := range datasets {
		validate(i, ev)
		for _, ch := range ev.Info.Chs {
			if !internal.IsValidChannelName(ch.Name) {
				logger.Warnf("data set %d: channel name %q will be stored as %q",
					i, ch.Name, internal.ChannelName(ch.Name))
			}
		}
	}
	info := datasets[0].Info
	assertf(len(info.Comps) == 0, api.ErrUnsupported,
		"%d compensation matrices cannot be written", len(info.Comps))
	for _, ct := range []*tag.CoordTrans{info.DevHeadT, info.CtfHeadT} {
		if ct != nil {
			assertf(invertible(ct), api.ErrDataConsistency, "transform %d->%d is singular", ct.From, ct.To)
		}
	}
	return nil
}

func validate(i int, ev *Evoked) {
	assertf(ev != nil && ev.Info != nil && ev.Data != nil, api.ErrDataConsistency,
		"data set %d is incomplete", i)
	info := ev.Info
	assertf(len(info.Chs) == info.NChan, api.ErrDataConsistency,
		"data set %d: %d channel records for %d channels", i, len(info.Chs), info.NChan)
	rows, cols := ev.Data.Dims()
	assertf(rows == info.NChan, api.ErrDataConsistency,
		"data set %d: %d data rows for %d channels", i, rows, info.NChan)
	assertf(cols == ev.NSamp(), api.ErrDataConsistency,
		"data set %d: %d samples, first %d and last %d", i, cols, ev.First, ev.Last)
	assertf(len(ev.Times) == cols, api.ErrDataConsistency,
		"data set %d: %d times for %d samples", i, len(ev.Times), cols)
	assertf(ev.Nave >= 1, api.ErrDataConsistency, "data set %d: nave %d", i, ev.Nave)
	for k, ch := range info.Chs {
		assertf(ch.Cal != 0, api.ErrDataConsistency, "data set %d: channel %d has zero calibration", i, k)
	}
}

func invertible(ct *tag.CoordTrans) bool {
	m := mat.NewDense(4, 4, nil)
	for i := range ct.Trans {
		m.SetRow(i, ct.Trans[i][:])
	}
	return mat.Det(m) != 0
}

func emit(w *tag.Writer, datasets []*Evoked, src *tree.File) {
	info := datasets[0].Info

	w.StartFile(tag.NewID())
	w.StartBlock(tag.BlockMeas)
	w.WriteID(tag.KindBlockID, tag.NewID())
	if info.MeasID != nil {
		w.WriteID(tag.KindParentBlockID, *info.MeasID)
	}

	w.StartBlock(tag.BlockMeasInfo)
	haveHPIResult, haveIsotrak := false, false
	if src != nil {
		for _, block := range carriedBlocks {
			nodes := src.Tree.Find(tree.RootID, block)
			thrower.ThrowIfError(src.CopyTree(w, nodes))
			switch {
			case len(nodes) == 0:
			case block == tag.BlockHPIResult:
				haveHPIResult = true
			case block == tag.BlockIsotrak:
				haveIsotrak = true
			}
		}
	}

	w.WriteFloat(tag.KindSFreq, info.SFreq)
	w.WriteFloat(tag.KindHighpass, info.Highpass)
	w.WriteFloat(tag.KindLowpass, info.Lowpass)
	w.WriteInt(tag.KindNChan, int32(info.NChan))
	if info.MeasDate != nil {
		w.WriteInt(tag.KindMeasDate, info.MeasDate...)
	}

	// an HPI result block carries its own transforms
	if !haveHPIResult {
		if info.DevHeadT != nil {
			w.WriteCoordTrans(*info.DevHeadT)
		}
		if info.CtfHeadT != nil {
			w.WriteCoordTrans(*info.CtfHeadT)
		}
	}

	writeChannels(w, info.Chs)

	if len(info.Dig) > 0 && !haveIsotrak {
		w.StartBlock(tag.BlockIsotrak)
		for _, d := range info.Dig {
			w.WriteDigPoint(d)
		}
		w.EndBlock(tag.BlockIsotrak)
	}

	thrower.ThrowIfError(meas.WriteProjections(w, info.Projs))
	thrower.ThrowIfError(meas.WriteCompensation(w, info.Comps))

	if len(info.Bads) > 0 {
		w.StartBlock(tag.BlockMNEBadChannels)
		w.WriteNameList(tag.KindMNEChNameList, info.Bads)
		w.EndBlock(tag.BlockMNEBadChannels)
	}
	w.EndBlock(tag.BlockMeasInfo)

	w.StartBlock(tag.BlockProcessedData)
	for _, ev := range datasets {
		emitEvoked(w, ev, info)
	}
	w.EndBlock(tag.BlockProcessedData)

	w.EndBlock(tag.BlockMeas)
	w.EndFile()
	logger.Infof("wrote %d evoked data sets, %d bytes", len(datasets), w.Count())
}

// writeChannels writes chs renumbered by position, leaving chs alone.
func writeChannels(w *tag.Writer, chs []tag.ChannelInfo) {
	chs = slices.Clone(chs)
	for k := range chs {
		chs[k].ScanNo = int32(k)
		w.WriteChannelInfo(chs[k])
	}
}

// emitEvoked writes one data set. Channels and sample rate that differ from
// the file's measurement info are written into the evoked block, where they
// take precedence on read.
func emitEvoked(w *tag.Writer, ev *Evoked, info *meas.Info) {
	w.StartBlock(tag.BlockEvoked)
	if ev.Comment != "" {
		w.WriteString(tag.KindComment, ev.Comment)
	}
	w.WriteInt(tag.KindFirstSample, int32(ev.First))
	w.WriteInt(tag.KindLastSample, int32(ev.Last))
	if ev.Info.SFreq != info.SFreq {
		w.WriteFloat(tag.KindSFreq, ev.Info.SFreq)
	}
	if !slices.Equal(ev.Info.Chs, info.Chs) {
		w.WriteInt(tag.KindNChan, int32(ev.Info.NChan))
		writeChannels(w, ev.Info.Chs)
	}

	w.StartBlock(tag.BlockAspect)
	w.WriteInt(tag.KindAspectKind, ev.AspectKind)
	w.WriteInt(tag.KindNave, int32(ev.Nave))
	decal := make([]float64, ev.Info.NChan)
	for k, ch := range ev.Info.Chs {
		decal[k] = 1 / ch.Cal
	}
	var epoch mat.Dense
	epoch.Mul(mat.NewDiagDense(len(decal), decal), ev.Data)
	w.WriteFloatMatrix(tag.KindEpoch, &epoch)
	w.EndBlock(tag.BlockAspect)
	w.EndBlock(tag.BlockEvoked)
}
