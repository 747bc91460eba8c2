package evoked

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/batchatco/go-native-fiff/fiff/api"
	"github.com/batchatco/go-native-fiff/fiff/compress"
	"github.com/batchatco/go-native-fiff/fiff/meas"
	"github.com/batchatco/go-native-fiff/fiff/tag"
	"github.com/batchatco/go-native-fiff/fiff/tree"
	"github.com/batchatco/go-thrower"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	sfreq = 600
	first = -100
	last  = 300
	nsamp = last - first + 1
)

var devHead = tag.CoordTrans{
	From: tag.CoordDevice,
	To:   tag.CoordHead,
	Trans: [4][4]float64{
		{1, 0, 0, 0},
		{0, 1, 0, 0.25},
		{0, 0, 1, 0.5},
		{0, 0, 0, 1},
	},
}

func channel(k int) tag.ChannelInfo {
	return tag.ChannelInfo{
		ScanNo: int32(k + 10),
		LogNo:  int32(k + 1),
		Kind:   1,
		Cal:    float64(k + 1),
		Name:   "MEG " + string(rune('A'+k)),
	}
}

// projector weighs every channel by 0.5.
func projector(nchan int) meas.Projection {
	names := make([]string, nchan)
	for k := range names {
		names[k] = channel(k).Name
	}
	return meas.Projection{
		Kind:   tag.ProjItemField,
		Active: true,
		Desc:   "PCA-v1",
		Data: meas.NamedMatrix{
			NRow:     1,
			NCol:     nchan,
			ColNames: names,
			Data:     mat.NewDense(1, nchan, slices.Repeat([]float64{0.5}, nchan)),
		},
	}
}

// source builds a file with nchan channels calibrated 1, 2, ... whose
// processed data block is filled by body.
func source(t *testing.T, nchan int, body func(w *tag.Writer)) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := tag.NewWriter(&buf)
	err := func() (err error) {
		defer thrower.RecoverError(&err)
		w.StartFile(tag.NewID())
		w.StartBlock(tag.BlockMeas)
		w.WriteID(tag.KindBlockID, tag.NewID())
		w.StartBlock(tag.BlockMeasInfo)
		w.WriteInt(tag.KindNChan, int32(nchan))
		w.WriteFloat(tag.KindSFreq, sfreq)
		w.WriteFloat(tag.KindLowpass, 100)
		w.WriteFloat(tag.KindHighpass, 0)
		for k := 0; k < nchan; k++ {
			w.WriteChannelInfo(channel(k))
		}
		w.StartBlock(tag.BlockHPIResult)
		w.WriteCoordTrans(devHead)
		w.EndBlock(tag.BlockHPIResult)
		w.StartBlock(tag.BlockIsotrak)
		w.WriteDigPoint(tag.DigPoint{Kind: 1, Ident: 1, R: [3]float64{0, 0.1, 0}})
		w.EndBlock(tag.BlockIsotrak)
		thrower.ThrowIfError(meas.WriteProjections(w, []meas.Projection{projector(nchan)}))
		w.StartBlock(tag.BlockMNEBadChannels)
		w.WriteNameList(tag.KindMNEChNameList, []string{channel(0).Name})
		w.EndBlock(tag.BlockMNEBadChannels)
		w.EndBlock(tag.BlockMeasInfo)
		w.StartBlock(tag.BlockProcessedData)
		body(w)
		w.EndBlock(tag.BlockProcessedData)
		w.EndBlock(tag.BlockMeas)
		w.EndFile()
		return nil
	}()
	require.NoError(t, err)
	return buf.Bytes()
}

func open(t *testing.T, b []byte) *tree.File {
	t.Helper()
	f, err := tree.New(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)
	return f
}

func save(t *testing.T, b []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source-ave.fif")
	require.NoError(t, os.WriteFile(path, b, 0o644))
	return path
}

// ramp returns a 2 x nsamp epoch: a ramp 0, 1, 2, ... and a constant 1.
func ramp() *mat.Dense {
	m := mat.NewDense(2, nsamp, nil)
	for i := 0; i < nsamp; i++ {
		m.Set(0, i, float64(i))
		m.Set(1, i, 1)
	}
	return m
}

func startEvoked(w *tag.Writer, comment string) {
	w.StartBlock(tag.BlockEvoked)
	if comment != "" {
		w.WriteString(tag.KindComment, comment)
	}
	w.WriteInt(tag.KindFirstSample, first)
	w.WriteInt(tag.KindLastSample, last)
}

func aspect(w *tag.Writer, block tag.Block, comment string, epochs ...mat.Matrix) {
	w.StartBlock(block)
	if comment != "" {
		w.WriteString(tag.KindComment, comment)
	}
	w.WriteInt(tag.KindAspectKind, tag.AspectAverage)
	w.WriteInt(tag.KindNave, 10)
	for _, e := range epochs {
		w.WriteFloatMatrix(tag.KindEpoch, e)
	}
	w.EndBlock(block)
}

func auditory(w *tag.Writer) {
	startEvoked(w, "auditory")
	aspect(w, tag.BlockAspect, "", ramp())
	w.EndBlock(tag.BlockEvoked)
}

func TestRead(t *testing.T) {
	path := save(t, source(t, 2, auditory))
	ev, err := Read(path, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, "auditory", ev.Comment)
	assert.Equal(t, 10, ev.Nave)
	assert.Equal(t, tag.AspectAverage, ev.AspectKind)
	assert.Equal(t, first, ev.First)
	assert.Equal(t, last, ev.Last)
	assert.Equal(t, nsamp, ev.NSamp())
	assert.Equal(t, path, ev.Info.Filename)

	r, c := ev.Data.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, nsamp, c)
	require.Len(t, ev.Times, nsamp)
	assert.Equal(t, -100.0/600, ev.Times[0])
	assert.Equal(t, 0.0, ev.Times[100])
	assert.Equal(t, 0.5, ev.Times[400])
	for i, tm := range ev.Times {
		assert.Equal(t, float64(first+i)/sfreq, tm)
	}

	// calibration multiplies channel k by k+1
	assert.Equal(t, 7.0, ev.Data.At(0, 7))
	assert.Equal(t, 2.0, ev.Data.At(1, 7))

	require.NotNil(t, ev.Info.DevHeadT)
	assert.Equal(t, 0.5, ev.Info.DevHeadT.Trans[2][3])
	assert.Len(t, ev.Info.Dig, 1)

	_, err = Read(path, -1, nil)
	assert.ErrorIs(t, err, api.ErrSelectionRange)
	_, err = Read(path, 1, nil)
	assert.ErrorIs(t, err, api.ErrSelectionRange)
	_, err = Read(filepath.Join(t.TempDir(), "missing.fif"), 0, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSelect(t *testing.T) {
	b := source(t, 2, func(w *tag.Writer) {
		startEvoked(w, "left")
		aspect(w, tag.BlockAspect, "a0", ramp())
		aspect(w, tag.BlockSmshAspect, "s0", ramp())
		aspect(w, tag.BlockAspect, "a1", ramp())
		w.EndBlock(tag.BlockEvoked)
		startEvoked(w, "right")
		aspect(w, tag.BlockAspect, "", ramp())
		w.EndBlock(tag.BlockEvoked)
	})
	f := open(t, b)
	_, measNode, err := meas.Read(f)
	require.NoError(t, err)

	sets, err := Sets(f.Tree, measNode)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, 3, sets[0].Count())
	assert.Equal(t, 1, sets[1].Count())
	units := Units(sets)
	require.Len(t, units, 4)
	assert.True(t, units[2].Shielded)
	assert.False(t, units[1].Shielded)

	// shielded aspects follow the ordinary ones of the same evoked block
	for i, want := range []string{"a0", "a1", "s0", "right"} {
		ev, err := ReadFile(f, i, nil)
		require.NoError(t, err, i)
		assert.Equal(t, want, ev.Comment, i)
	}

	_, err = Select(f.Tree, measNode, 4)
	assert.ErrorIs(t, err, api.ErrSelectionRange)
	_, err = Select(f.Tree, measNode, -1)
	assert.ErrorIs(t, err, api.ErrSelectionRange)

	empty := open(t, source(t, 2, func(w *tag.Writer) {}))
	_, measNode, err = meas.Read(empty)
	require.NoError(t, err)
	_, err = Select(empty.Tree, measNode, 0)
	assert.ErrorIs(t, err, api.ErrFormat)
}

func TestEpochLayouts(t *testing.T) {
	read := func(t *testing.T, nchan int, epochs ...mat.Matrix) (*Evoked, error) {
		t.Helper()
		f := open(t, source(t, nchan, func(w *tag.Writer) {
			startEvoked(w, "")
			aspect(w, tag.BlockAspect, "", epochs...)
			w.EndBlock(tag.BlockEvoked)
		}))
		return ReadFile(f, 0, nil)
	}
	full := ramp()

	t.Run("rows", func(t *testing.T) {
		ev, err := read(t, 2, full.RowView(0).T(), full.RowView(1).T())
		require.NoError(t, err)
		assert.Equal(t, "No comment", ev.Comment)
		assert.Equal(t, 9.0, ev.Data.At(0, 9))
		assert.Equal(t, 2.0, ev.Data.At(1, 9))
	})

	t.Run("columns", func(t *testing.T) {
		ev, err := read(t, 2, full.RowView(0), full.RowView(1))
		require.NoError(t, err)
		r, c := ev.Data.Dims()
		assert.Equal(t, 2, r)
		assert.Equal(t, nsamp, c)
		assert.Equal(t, 9.0, ev.Data.At(0, 9))
	})

	t.Run("single channel column", func(t *testing.T) {
		ev, err := read(t, 1, full.RowView(0))
		require.NoError(t, err)
		r, c := ev.Data.Dims()
		assert.Equal(t, 1, r)
		assert.Equal(t, nsamp, c)
		assert.Equal(t, 400.0, ev.Data.At(0, 400))
	})

	t.Run("wrong epoch count", func(t *testing.T) {
		_, err := read(t, 2, full.RowView(0).T(), full.RowView(1).T(), full.RowView(1).T())
		assert.ErrorIs(t, err, api.ErrDataConsistency)
	})

	t.Run("no epoch", func(t *testing.T) {
		_, err := read(t, 2)
		assert.ErrorIs(t, err, api.ErrDataConsistency)
	})

	t.Run("wrong sample count", func(t *testing.T) {
		_, err := read(t, 2, full.Slice(0, 2, 0, nsamp-1))
		assert.ErrorIs(t, err, api.ErrDataConsistency)
	})

	t.Run("wrong row count", func(t *testing.T) {
		_, err := read(t, 1, full)
		assert.ErrorIs(t, err, api.ErrDataConsistency)
	})
}

func TestMissingTags(t *testing.T) {
	for name, body := range map[string]func(w *tag.Writer){
		"first": func(w *tag.Writer) {
			w.StartBlock(tag.BlockEvoked)
			w.WriteInt(tag.KindLastSample, last)
			aspect(w, tag.BlockAspect, "", ramp())
			w.EndBlock(tag.BlockEvoked)
		},
		"last": func(w *tag.Writer) {
			w.StartBlock(tag.BlockEvoked)
			w.WriteInt(tag.KindFirstSample, first)
			aspect(w, tag.BlockAspect, "", ramp())
			w.EndBlock(tag.BlockEvoked)
		},
		"aspect kind": func(w *tag.Writer) {
			startEvoked(w, "")
			w.StartBlock(tag.BlockAspect)
			w.WriteFloatMatrix(tag.KindEpoch, ramp())
			w.EndBlock(tag.BlockAspect)
			w.EndBlock(tag.BlockEvoked)
		},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadFile(open(t, source(t, 2, body)), 0, nil)
			assert.ErrorIs(t, err, api.ErrFormat)
		})
	}

	// nave defaults to one
	f := open(t, source(t, 2, func(w *tag.Writer) {
		startEvoked(w, "")
		w.StartBlock(tag.BlockAspect)
		w.WriteInt(tag.KindAspectKind, tag.AspectStdErr)
		w.WriteFloatMatrix(tag.KindEpoch, ramp())
		w.EndBlock(tag.BlockAspect)
		w.EndBlock(tag.BlockEvoked)
	}))
	ev, err := ReadFile(f, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, ev.Nave)
	assert.Equal(t, tag.AspectStdErr, ev.AspectKind)
}

func TestLocalChannels(t *testing.T) {
	local := tag.ChannelInfo{Kind: 2, Cal: 3, Name: "EEG 001"}
	f := open(t, source(t, 2, func(w *tag.Writer) {
		startEvoked(w, "")
		w.WriteInt(tag.KindNChan, 1)
		w.WriteFloat(tag.KindSFreq, 300)
		w.WriteChannelInfo(local)
		aspect(w, tag.BlockAspect, "", ramp().RowView(1).T())
		w.EndBlock(tag.BlockEvoked)
	}))
	info, _, err := meas.Read(f)
	require.NoError(t, err)
	ev, err := ReadFile(f, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, ev.Info.NChan)
	assert.Equal(t, 300.0, ev.Info.SFreq)
	assert.Equal(t, []string{"EEG 001"}, ev.Info.ChNames())
	assert.Equal(t, 3.0, ev.Data.At(0, 0))
	assert.Equal(t, -100.0/300, ev.Times[0])
	assert.Equal(t, 2, info.NChan, "file info is left alone")

	f = open(t, source(t, 2, func(w *tag.Writer) {
		startEvoked(w, "")
		w.WriteInt(tag.KindNChan, 1)
		aspect(w, tag.BlockAspect, "", ramp().RowView(1).T())
		w.EndBlock(tag.BlockEvoked)
	}))
	_, err = ReadFile(f, 0, nil)
	assert.ErrorIs(t, err, api.ErrDataConsistency)
}

func TestBaseline(t *testing.T) {
	f := open(t, source(t, 2, auditory))

	ev, err := ReadFile(f, 0, Window(-100.0/600, 0))
	require.NoError(t, err)
	// the ramp averages 50 over its first 101 samples
	assert.InDelta(t, -50.0, ev.Data.At(0, 0), 1e-9)
	assert.InDelta(t, 0.0, ev.Data.At(1, 0), 1e-9)
	for k := 0; k < 2; k++ {
		assert.InDelta(t, 0.0, stat.Mean(ev.Data.RawRowView(k)[:101], nil), 1e-9)
	}

	zero := 0.0
	upper, err := ReadFile(f, 0, &Baseline{Max: &zero})
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(ev.Data, upper.Data, 1e-12))

	whole, err := ReadFile(f, 0, &Baseline{})
	require.NoError(t, err)
	assert.InDelta(t, -200.0, whole.Data.At(0, 0), 1e-9)

	_, err = ReadFile(f, 0, Window(1, 2))
	assert.ErrorIs(t, err, api.ErrDataConsistency)
	_, err = ReadFile(f, 0, Window(-2, -1))
	assert.ErrorIs(t, err, api.ErrDataConsistency)
	_, err = ReadFile(f, 0, Window(0.1, 0.05))
	assert.ErrorIs(t, err, api.ErrDataConsistency)
}

func TestWriteRoundTrip(t *testing.T) {
	path := save(t, source(t, 2, auditory))
	ev, err := Read(path, 0, nil)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out-ave.fif")
	require.NoError(t, Write(out, ev))
	got, err := Read(out, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, ev.Comment, got.Comment)
	assert.Equal(t, ev.Nave, got.Nave)
	assert.Equal(t, ev.AspectKind, got.AspectKind)
	assert.Equal(t, ev.First, got.First)
	assert.Equal(t, ev.Last, got.Last)
	assert.Equal(t, ev.Times, got.Times)
	assert.True(t, mat.EqualApprox(ev.Data, got.Data, 1e-4))
	assert.Equal(t, ev.Info.ChNames(), got.Info.ChNames())
	for k, ch := range got.Info.Chs {
		assert.Equal(t, int32(k), ch.ScanNo)
		assert.Equal(t, ev.Info.Chs[k].Cal, ch.Cal)
	}
	require.NotNil(t, got.Info.DevHeadT)
	assert.Equal(t, 0.25, got.Info.DevHeadT.Trans[1][3])
	assert.Len(t, got.Info.Dig, 1)
	assert.Equal(t, []string{"MEG A"}, got.Info.Bads)
	require.Len(t, got.Info.Projs, 1)
	p := got.Info.Projs[0]
	assert.Equal(t, "PCA-v1", p.Desc)
	assert.True(t, p.Active)
	assert.Equal(t, tag.ProjItemField, p.Kind)
	assert.Equal(t, []string{"MEG A", "MEG B"}, p.Data.ColNames)
	assert.True(t, mat.Equal(ev.Info.Projs[0].Data.Data, p.Data.Data))

	// the HPI result and digitizer blocks are copied once and the transform
	// is not written again
	f, err := tree.Open(out)
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.Tree.Find(tree.RootID, tag.BlockHPIResult), 1)
	assert.Len(t, f.Tree.Find(tree.RootID, tag.BlockIsotrak), 1)
	infoNode := f.Tree.Find(tree.RootID, tag.BlockMeasInfo)[0]
	for _, e := range f.Tree.Node(infoNode).Directory {
		assert.NotEqual(t, tag.KindCoordTrans, e.Kind)
	}
}

func TestWriteWithoutSource(t *testing.T) {
	ev, err := Read(save(t, source(t, 2, auditory)), 0, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteTo(&buf, Config{}, ev, ev))
	f := open(t, buf.Bytes())
	assert.Empty(t, f.Tree.Find(tree.RootID, tag.BlockHPIResult))
	assert.Len(t, f.Tree.Find(tree.RootID, tag.BlockIsotrak), 1, "written from info")
	assert.Len(t, f.Tree.Find(tree.RootID, tag.BlockEvoked), 2)

	got, err := ReadFile(f, 1, nil)
	require.NoError(t, err)
	require.NotNil(t, got.Info.DevHeadT)
	assert.Equal(t, devHead.Trans, got.Info.DevHeadT.Trans)
	assert.True(t, mat.EqualApprox(ev.Data, got.Data, 1e-4))
}

func TestWriteSameFile(t *testing.T) {
	path := save(t, source(t, 2, auditory))
	ev, err := Read(path, 0, nil)
	require.NoError(t, err)
	ev.Comment = "replaced"

	require.NoError(t, Write(path, ev))
	got, err := Read(path, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "replaced", got.Comment)
	assert.Len(t, got.Info.Dig, 1)
	assert.True(t, mat.EqualApprox(ev.Data, got.Data, 1e-4))
}

func TestWriteCompressed(t *testing.T) {
	ev, err := Read(save(t, source(t, 2, auditory)), 0, nil)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out-ave.fif.gz")
	require.NoError(t, Write(out, ev))
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, compress.Gzip, compress.Detect(b))

	got, err := Read(out, 0, nil)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(ev.Data, got.Data, 1e-4))

	out = filepath.Join(t.TempDir(), "out-ave.fif")
	require.NoError(t, WriteFile(out, Config{Compression: compress.Zstd, CarryOver: true}, ev))
	got, err = Read(out, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, ev.Comment, got.Comment)
}

func TestWriteInvalid(t *testing.T) {
	good, err := Read(save(t, source(t, 2, auditory)), 0, nil)
	require.NoError(t, err)

	with := func(fn func(ev *Evoked)) *Evoked {
		ev := *good
		ev.Info = good.Info.Clone()
		fn(&ev)
		return &ev
	}
	for name, tc := range map[string]struct {
		ev  *Evoked
		err error
	}{
		"compensation": {with(func(ev *Evoked) {
			ev.Info.Comps = []meas.Compensation{{Kind: 1}}
		}), api.ErrUnsupported},
		"rows": {with(func(ev *Evoked) {
			ev.Data = mat.NewDense(1, nsamp, nil)
		}), api.ErrDataConsistency},
		"samples": {with(func(ev *Evoked) { ev.Last++ }), api.ErrDataConsistency},
		"times": {with(func(ev *Evoked) {
			ev.Times = ev.Times[1:]
		}), api.ErrDataConsistency},
		"nave": {with(func(ev *Evoked) { ev.Nave = 0 }), api.ErrDataConsistency},
		"calibration": {with(func(ev *Evoked) {
			ev.Info.Chs[1].Cal = 0
		}), api.ErrDataConsistency},
		"singular transform": {with(func(ev *Evoked) {
			ev.Info.DevHeadT = &tag.CoordTrans{From: tag.CoordDevice, To: tag.CoordHead}
		}), api.ErrDataConsistency},
		"no data": {with(func(ev *Evoked) { ev.Data = nil }), api.ErrDataConsistency},
	} {
		t.Run(name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "out-ave.fif")
			err := Write(out, tc.ev)
			assert.ErrorIs(t, err, tc.err)
			_, err = os.Stat(out)
			assert.ErrorIs(t, err, os.ErrNotExist, "nothing is created")
		})
	}

	assert.ErrorIs(t, Validate(), api.ErrDataConsistency)
	assert.NoError(t, Validate(good, good))
}

func TestWriteMixedDatasets(t *testing.T) {
	a, err := Read(save(t, source(t, 2, auditory)), 0, nil)
	require.NoError(t, err)

	b := *a
	b.Info = a.Info.Clone()
	b.Info.Chs[1].Cal = 10
	b.Info.SFreq = 1200
	b.Comment = "recalibrated"

	c := *a
	c.Info = a.Info.Clone()
	c.Info.NChan = 1
	c.Info.Chs = c.Info.Chs[:1]
	c.Data = mat.DenseCopyOf(a.Data.Slice(0, 1, 0, nsamp))

	var buf bytes.Buffer
	require.NoError(t, WriteTo(&buf, Config{}, a, &b, &c))
	f := open(t, buf.Bytes())

	got, err := ReadFile(f, 0, nil)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(a.Data, got.Data, 1e-4))
	assert.Equal(t, 600.0, got.Info.SFreq)

	got, err = ReadFile(f, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "recalibrated", got.Comment)
	assert.Equal(t, 1200.0, got.Info.SFreq)
	assert.Equal(t, 10.0, got.Info.Chs[1].Cal)
	assert.True(t, mat.EqualApprox(b.Data, got.Data, 1e-4))
	assert.Equal(t, -100.0/1200, got.Times[0])

	got, err = ReadFile(f, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Info.NChan)
	assert.Equal(t, []string{"MEG A"}, got.Info.ChNames())
	assert.True(t, mat.EqualApprox(c.Data, got.Data, 1e-4))

	// the first data set matches the file info, so its block has no overrides
	evokedNodes := f.Tree.Find(tree.RootID, tag.BlockEvoked)
	require.Len(t, evokedNodes, 3)
	_, err = f.FindTag(evokedNodes[0], tag.KindChInfo)
	assert.ErrorIs(t, err, tag.ErrNotFound)
	_, err = f.FindTag(evokedNodes[0], tag.KindSFreq)
	assert.ErrorIs(t, err, tag.ErrNotFound)
}
