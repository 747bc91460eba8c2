package tag

import (
	"math"

	"github.com/batchatco/go-native-fiff/fiff/api"
	"github.com/batchatco/go-native-fiff/fiff/util"
	"github.com/batchatco/go-native-fiff/internal"
	"gonum.org/v1/gonum/mat"
)

// Wire sizes of the fixed-layout structures.
const (
	ChInfoSize     = 4*13 + 4*7 + 16
	IDSize         = 5 * 4
	DigPointSize   = 5 * 4
	CoordTransSize = 4*2*12 + 4*2
	DirEntrySize   = 4 * 4

	chNameSize = 16
)

// ChannelInfo describes one channel.
type ChannelInfo struct {
	ScanNo   int32
	LogNo    int32
	Kind     int32
	Range    float64
	Cal      float64
	CoilType int32
	Loc      [12]float64 // coil origin followed by the x, y and z unit vectors
	Unit     int32
	UnitMul  int32
	Name     string
}

// DigPoint is a digitized 3-D location.
type DigPoint struct {
	Kind  int32
	Ident int32
	R     [3]float64
}

// CoordTrans is an affine transform between two coordinate frames. Only
// Trans is used when writing; the inverse is recomputed.
type CoordTrans struct {
	From     int32
	To       int32
	Trans    [4][4]float64
	InvTrans [4][4]float64
}

// ID identifies a file or a block.
type ID struct {
	Version int32
	Machid  [2]int32
	Secs    int32
	Usecs   int32
}

// DirEntry is one record of an on-disk directory.
type DirEntry struct {
	Kind Kind
	Type Type
	Size int32
	Pos  int32
}

// cursor decodes consecutive big-endian fields.
type cursor struct {
	b   []byte
	off int
}

func (c *cursor) int32() int32 {
	v := int32(util.ByteOrder.Uint32(c.b[c.off:]))
	c.off += 4
	return v
}

func (c *cursor) float32() float64 {
	v := math.Float32frombits(util.ByteOrder.Uint32(c.b[c.off:]))
	c.off += 4
	return float64(v)
}

func (c *cursor) bytes(n int) []byte {
	v := c.b[c.off : c.off+n]
	c.off += n
	return v
}

func appendInt32(b []byte, v int32) []byte {
	return util.ByteOrder.AppendUint32(b, uint32(v))
}

func appendFloat32(b []byte, v float64) []byte {
	return util.ByteOrder.AppendUint32(b, math.Float32bits(float32(v)))
}

func checkStructs(b []byte, size int, what string) int {
	assertf(len(b)%size == 0, api.ErrFormat,
		"%s payload of %d bytes is not a multiple of %d", what, len(b), size)
	return len(b) / size
}

func decodeChannelInfos(b []byte) any {
	n := checkStructs(b, ChInfoSize, "channel info")
	chs := make([]ChannelInfo, n)
	c := &cursor{b: b}
	for i := range chs {
		ch := &chs[i]
		ch.ScanNo = c.int32()
		ch.LogNo = c.int32()
		ch.Kind = c.int32()
		ch.Range = c.float32()
		ch.Cal = c.float32()
		ch.CoilType = c.int32()
		for j := range ch.Loc {
			ch.Loc[j] = c.float32()
		}
		ch.Unit = c.int32()
		ch.UnitMul = c.int32()
		name := c.bytes(chNameSize)
		end := 0
		for end < len(name) && name[end] != 0 {
			end++
		}
		ch.Name = string(name[:end])
	}
	return chs
}

func appendChannelInfo(b []byte, ch ChannelInfo) []byte {
	start := len(b)
	b = appendInt32(b, ch.ScanNo)
	b = appendInt32(b, ch.LogNo)
	b = appendInt32(b, ch.Kind)
	b = appendFloat32(b, ch.Range)
	b = appendFloat32(b, ch.Cal)
	b = appendInt32(b, ch.CoilType)
	for _, v := range ch.Loc {
		b = appendFloat32(b, v)
	}
	b = appendInt32(b, ch.Unit)
	b = appendInt32(b, ch.UnitMul)
	var name [chNameSize]byte
	copy(name[:], internal.ChannelName(ch.Name))
	b = append(b, name[:]...)
	assertf(len(b)-start == ChInfoSize, api.ErrInternal, "channel info encoded to %d bytes", len(b)-start)
	return b
}

func decodeDigPoints(b []byte) any {
	n := checkStructs(b, DigPointSize, "digitizer point")
	pts := make([]DigPoint, n)
	c := &cursor{b: b}
	for i := range pts {
		pts[i].Kind = c.int32()
		pts[i].Ident = c.int32()
		for j := range pts[i].R {
			pts[i].R[j] = c.float32()
		}
	}
	return pts
}

func appendDigPoint(b []byte, d DigPoint) []byte {
	b = appendInt32(b, d.Kind)
	b = appendInt32(b, d.Ident)
	for _, v := range d.R {
		b = appendFloat32(b, v)
	}
	return b
}

func decodeCoordTranses(b []byte) any {
	n := checkStructs(b, CoordTransSize, "coordinate transform")
	cts := make([]CoordTrans, n)
	c := &cursor{b: b}
	readAffine := func(t *[4][4]float64) {
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				t[i][j] = c.float32()
			}
		}
		for i := 0; i < 3; i++ {
			t[i][3] = c.float32()
		}
		t[3] = [4]float64{0, 0, 0, 1}
	}
	for i := range cts {
		cts[i].From = c.int32()
		cts[i].To = c.int32()
		readAffine(&cts[i].Trans)
		readAffine(&cts[i].InvTrans)
	}
	return cts
}

func appendAffine(b []byte, t *mat.Dense) []byte {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			b = appendFloat32(b, t.At(i, j))
		}
	}
	for i := 0; i < 3; i++ {
		b = appendFloat32(b, t.At(i, 3))
	}
	return b
}

func appendCoordTrans(b []byte, ct CoordTrans) []byte {
	fwd := mat.NewDense(4, 4, nil)
	for i := range ct.Trans {
		fwd.SetRow(i, ct.Trans[i][:])
	}
	var inv mat.Dense
	if err := inv.Inverse(fwd); err != nil {
		failf(api.ErrDataConsistency, "transform %d->%d cannot be inverted: %v", ct.From, ct.To, err)
	}
	b = appendInt32(b, ct.From)
	b = appendInt32(b, ct.To)
	b = appendAffine(b, fwd)
	return appendAffine(b, &inv)
}

func decodeIDs(b []byte) any {
	n := checkStructs(b, IDSize, "id")
	ids := make([]ID, n)
	c := &cursor{b: b}
	for i := range ids {
		ids[i].Version = c.int32()
		ids[i].Machid[0] = c.int32()
		ids[i].Machid[1] = c.int32()
		ids[i].Secs = c.int32()
		ids[i].Usecs = c.int32()
	}
	return ids
}

func appendID(b []byte, id ID) []byte {
	b = appendInt32(b, id.Version)
	b = appendInt32(b, id.Machid[0])
	b = appendInt32(b, id.Machid[1])
	b = appendInt32(b, id.Secs)
	return appendInt32(b, id.Usecs)
}

func decodeDirEntries(b []byte) any {
	n := checkStructs(b, DirEntrySize, "directory")
	dir := make([]DirEntry, n)
	c := &cursor{b: b}
	for i := range dir {
		dir[i].Kind = Kind(c.int32())
		dir[i].Type = Type(c.int32())
		dir[i].Size = c.int32()
		dir[i].Pos = c.int32()
	}
	return dir
}
