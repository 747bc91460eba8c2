package evoked

import (
	"github.com/batchatco/go-native-fiff/fiff/api"
	"github.com/batchatco/go-native-fiff/fiff/meas"
	"github.com/batchatco/go-native-fiff/fiff/tag"
	"github.com/batchatco/go-native-fiff/fiff/tree"
	"github.com/batchatco/go-thrower"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const defaultComment = "No comment"

// field stores the value of one tag into a builder.
type field[B any] func(b B, tg *tag.Tag) error

// scanBlock runs the field of every tag in the directory of node that has
// one. Tags of other kinds are ignored.
func scanBlock[B any](f *tree.File, node tree.NodeID, fields map[tag.Kind]field[B], b B) {
	for _, e := range f.Tree.Node(node).Directory {
		set, ok := fields[e.Kind]
		if !ok {
			continue
		}
		tg, err := f.ReadTag(e)
		thrower.ThrowIfError(err)
		thrower.ThrowIfError(set(b, tg))
	}
}

// evokedBuilder collects the tags of an evoked block.
type evokedBuilder struct {
	comment *string
	first   *int32
	last    *int32
	nchan   int32
	sfreq   float64
	chs     []tag.ChannelInfo
}

var evokedFields = map[tag.Kind]field[*evokedBuilder]{
	tag.KindComment: func(b *evokedBuilder, tg *tag.Tag) error {
		s, err := tg.Text()
		b.comment = &s
		return err
	},
	tag.KindFirstSample: func(b *evokedBuilder, tg *tag.Tag) error {
		v, err := tg.Int()
		b.first = &v
		return err
	},
	tag.KindLastSample: func(b *evokedBuilder, tg *tag.Tag) error {
		v, err := tg.Int()
		b.last = &v
		return err
	},
	tag.KindNChan: func(b *evokedBuilder, tg *tag.Tag) (err error) {
		b.nchan, err = tg.Int()
		return err
	},
	tag.KindSFreq: func(b *evokedBuilder, tg *tag.Tag) (err error) {
		b.sfreq, err = tg.Float()
		return err
	},
	tag.KindChInfo: func(b *evokedBuilder, tg *tag.Tag) error {
		ch, err := tg.ChannelInfo()
		b.chs = append(b.chs, ch)
		return err
	},
}

// aspectBuilder collects the tags of an aspect block.
type aspectBuilder struct {
	comment *string
	kind    *int32
	nave    int32
	epochs  []*mat.Dense
}

var aspectFields = map[tag.Kind]field[*aspectBuilder]{
	tag.KindComment: func(b *aspectBuilder, tg *tag.Tag) error {
		s, err := tg.Text()
		b.comment = &s
		return err
	},
	tag.KindAspectKind: func(b *aspectBuilder, tg *tag.Tag) error {
		v, err := tg.Int()
		b.kind = &v
		return err
	},
	tag.KindNave: func(b *aspectBuilder, tg *tag.Tag) (err error) {
		b.nave, err = tg.Int()
		return err
	},
	tag.KindEpoch: func(b *aspectBuilder, tg *tag.Tag) error {
		m, err := tg.Matrix()
		b.epochs = append(b.epochs, m)
		return err
	},
}

// layout returns the channel layout in effect for the evoked block: a copy of
// info with the local overrides applied.
func (b *evokedBuilder) layout(info *meas.Info) *meas.Info {
	info = info.Clone()
	if b.nchan > 0 {
		assertf(len(b.chs) > 0, api.ErrDataConsistency,
			"local channel information was not found when it was expected")
		assertf(len(b.chs) == int(b.nchan), api.ErrDataConsistency,
			"%d local channel definitions for %d channels", len(b.chs), b.nchan)
		info.Chs = b.chs
		info.NChan = int(b.nchan)
		logger.Infof("found channel information in evoked data, nchan = %d", b.nchan)
	}
	if b.sfreq > 0 {
		info.SFreq = b.sfreq
	}
	return info
}

// stack arranges the epochs as an nchan by nsamp matrix.
func (b *aspectBuilder) stack(nchan int) *mat.Dense {
	n := len(b.epochs)
	assertf(n > 0, api.ErrDataConsistency, "aspect holds no epoch data")
	assertf(n == 1 || n == nchan, api.ErrDataConsistency,
		"number of epoch tags is unreasonable (nepoch = %d nchan = %d)", n, nchan)
	if n == 1 {
		data := b.epochs[0]
		if _, c := data.Dims(); c == 1 && nchan == 1 {
			data = mat.DenseCopyOf(data.T())
		}
		return data
	}
	rows := make([][]float64, n)
	for k, e := range b.epochs {
		r, c := e.Dims()
		switch {
		case r == 1:
			rows[k] = mat.Row(nil, 0, e)
		case c == 1:
			rows[k] = mat.Col(nil, 0, e)
		default:
			failf(api.ErrDataConsistency, "epoch %d is %dx%d, want a single row", k, r, c)
		}
		assertf(len(rows[k]) == len(rows[0]), api.ErrDataConsistency,
			"epoch %d has %d samples, epoch 0 has %d", k, len(rows[k]), len(rows[0]))
	}
	data := mat.NewDense(n, len(rows[0]), nil)
	for k, row := range rows {
		data.SetRow(k, row)
	}
	return data
}

// Assemble builds the data set u of f. info is the measurement info of f; it
// is not modified.
func Assemble(f *tree.File, u Unit, info *meas.Info, baseline *Baseline) (ev *Evoked, err error) {
	defer thrower.RecoverError(&err)
	return assemble(f, u, info, baseline), nil
}

func assemble(f *tree.File, u Unit, info *meas.Info, baseline *Baseline) *Evoked {
	eb := &evokedBuilder{}
	scanBlock(f, u.Evoked, evokedFields, eb)
	ab := &aspectBuilder{nave: 1}
	scanBlock(f, u.Aspect, aspectFields, ab)

	assertf(eb.first != nil, api.ErrFormat, "first sample missing")
	assertf(eb.last != nil, api.ErrFormat, "last sample missing")
	assertf(ab.kind != nil, api.ErrFormat, "aspect kind missing")
	first, last := int(*eb.first), int(*eb.last)
	nsamp := last - first + 1
	assertf(nsamp > 0, api.ErrDataConsistency, "last sample %d precedes first sample %d", last, first)

	info = eb.layout(info)
	assertf(info.SFreq > 0, api.ErrDataConsistency, "sampling frequency %g", info.SFreq)
	comment := defaultComment
	if eb.comment != nil {
		comment = *eb.comment
	}
	if ab.comment != nil {
		comment = *ab.comment
	}
	logger.Infof("found the data of interest: t = %10.2f ... %10.2f ms (%s)",
		1000*float64(first)/info.SFreq, 1000*float64(last)/info.SFreq, comment)
	if len(info.Comps) > 0 {
		logger.Infof("%d CTF compensation matrices available", len(info.Comps))
	}
	logger.Infof("nave = %d aspect type = %d", ab.nave, *ab.kind)

	raw := ab.stack(info.NChan)
	rows, cols := raw.Dims()
	assertf(cols == nsamp, api.ErrDataConsistency, "incorrect number of samples (%d instead of %d)", cols, nsamp)
	assertf(rows == info.NChan, api.ErrDataConsistency, "%d data rows for %d channels", rows, info.NChan)

	cals := make([]float64, info.NChan)
	for k, ch := range info.Chs {
		cals[k] = ch.Cal
	}
	data := mat.NewDense(rows, cols, nil)
	data.Mul(mat.NewDiagDense(len(cals), cals), raw)

	times := make([]float64, nsamp)
	for i := range times {
		times[i] = float64(first+i) / info.SFreq
	}

	if baseline != nil {
		logger.Info("applying baseline correction")
		baseline.apply(times, data)
	} else {
		logger.Info("no baseline correction applied")
	}

	return &Evoked{
		Info:       info,
		Nave:       int(ab.nave),
		AspectKind: *ab.kind,
		First:      first,
		Last:       last,
		Comment:    comment,
		Times:      times,
		Data:       data,
	}
}

// window returns the half-open sample range [imin, imax) of the baseline.
func (b *Baseline) window(times []float64) (imin, imax int) {
	imin, imax = 0, len(times)
	if b.Min != nil {
		imin = -1
		for i, t := range times {
			if t >= *b.Min {
				imin = i
				break
			}
		}
		assertf(imin >= 0, api.ErrDataConsistency, "baseline start %g is after the last sample", *b.Min)
	}
	if b.Max != nil {
		imax = -1
		for i := len(times) - 1; i >= 0; i-- {
			if times[i] <= *b.Max {
				imax = i + 1
				break
			}
		}
		assertf(imax >= 0, api.ErrDataConsistency, "baseline end %g is before the first sample", *b.Max)
	}
	assertf(imin < imax, api.ErrDataConsistency, "baseline window [%d, %d) is empty", imin, imax)
	return imin, imax
}

// apply subtracts from every row of data its mean over the baseline window.
func (b *Baseline) apply(times []float64, data *mat.Dense) {
	imin, imax := b.window(times)
	rows, _ := data.Dims()
	for k := 0; k < rows; k++ {
		row := data.RawRowView(k)
		floats.AddConst(-stat.Mean(row[imin:imax], nil), row)
	}
}
