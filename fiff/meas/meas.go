// Package meas reads the measurement info block of a FIFF file and writes
// the projector and compensation blocks that belong to it.
package meas

import (
	"slices"

	"github.com/batchatco/go-native-fiff/fiff/api"
	"github.com/batchatco/go-native-fiff/fiff/tag"
	"github.com/batchatco/go-native-fiff/fiff/tree"
	"github.com/batchatco/go-thrower"
)

// Info is the acquisition metadata shared by every data set of a file.
type Info struct {
	// Filename is the file the info was read from; empty for info built in
	// memory.
	Filename string
	FileID   tag.ID
	MeasID   *tag.ID

	SFreq    float64
	Highpass float64
	Lowpass  float64
	NChan    int
	MeasDate []int32 // seconds and microseconds, nil if unknown

	DevHeadT *tag.CoordTrans
	CtfHeadT *tag.CoordTrans

	Chs   []tag.ChannelInfo
	Dig   []tag.DigPoint
	Projs []Projection
	Comps []Compensation
	Bads  []string
}

// ChNames returns the channel names in channel order.
func (info *Info) ChNames() []string {
	names := make([]string, len(info.Chs))
	for i, ch := range info.Chs {
		names[i] = ch.Name
	}
	return names
}

// Clone returns a copy of info whose slices can be modified independently.
func (info *Info) Clone() *Info {
	c := *info
	c.MeasDate = slices.Clone(info.MeasDate)
	c.Chs = slices.Clone(info.Chs)
	c.Dig = slices.Clone(info.Dig)
	c.Projs = slices.Clone(info.Projs)
	c.Comps = slices.Clone(info.Comps)
	c.Bads = slices.Clone(info.Bads)
	if info.MeasID != nil {
		id := *info.MeasID
		c.MeasID = &id
	}
	if info.DevHeadT != nil {
		t := *info.DevHeadT
		c.DevHeadT = &t
	}
	if info.CtfHeadT != nil {
		t := *info.CtfHeadT
		c.CtfHeadT = &t
	}
	return &c
}

// Read parses the measurement info of f. It also returns the measurement
// block, under which the data blocks live.
func Read(f *tree.File) (info *Info, measNode tree.NodeID, err error) {
	defer thrower.RecoverError(&err)
	info, measNode = read(f)
	return info, measNode, nil
}

func isDevHead(ct tag.CoordTrans) bool {
	return ct.From == tag.CoordDevice && ct.To == tag.CoordHead
}

func isCtfHead(ct tag.CoordTrans) bool {
	return ct.From == tag.CoordCtfHead && ct.To == tag.CoordHead
}

func read(f *tree.File) (*Info, tree.NodeID) {
	meas := f.Tree.Find(tree.RootID, tag.BlockMeas)
	assertf(len(meas) > 0, api.ErrFormat, "could not find measurement data")
	measNode := meas[0]
	measInfo := f.Tree.Find(measNode, tag.BlockMeasInfo)
	assertf(len(measInfo) > 0, api.ErrFormat, "could not find measurement info")
	infoNode := measInfo[0]

	info := &Info{Filename: f.Name, FileID: f.ID, NChan: -1}
	haveSFreq := false
	for _, e := range f.Tree.Node(infoNode).Directory {
		switch e.Kind {
		case tag.KindNChan:
			info.NChan = int(readInt(f, e))
		case tag.KindSFreq:
			info.SFreq = readFloat(f, e)
			haveSFreq = true
		case tag.KindChInfo:
			info.Chs = append(info.Chs, readChannelInfo(f, e))
		case tag.KindLowpass:
			info.Lowpass = readFloat(f, e)
		case tag.KindHighpass:
			info.Highpass = readFloat(f, e)
		case tag.KindMeasDate:
			info.MeasDate = readInts(f, e)
		case tag.KindCoordTrans:
			info.setTransform(readCoordTrans(f, e))
		}
	}
	assertf(info.NChan >= 0, api.ErrFormat, "number of channels is not defined")
	assertf(haveSFreq, api.ErrFormat, "sampling frequency is not defined")
	assertf(len(info.Chs) > 0 || info.NChan == 0, api.ErrFormat, "channel information not defined")
	assertf(len(info.Chs) == info.NChan, api.ErrDataConsistency,
		"%d channel records for %d channels", len(info.Chs), info.NChan)

	if info.DevHeadT == nil || info.CtfHeadT == nil {
		for _, hpi := range f.Tree.Find(infoNode, tag.BlockHPIResult) {
			for _, e := range f.Tree.Node(hpi).Directory {
				if e.Kind == tag.KindCoordTrans {
					info.setTransform(readCoordTrans(f, e))
				}
			}
		}
	}

	if isotrak := f.Tree.Find(infoNode, tag.BlockIsotrak); len(isotrak) > 0 {
		for _, e := range f.Tree.Node(isotrak[0]).Directory {
			if e.Kind == tag.KindDigPoint {
				info.Dig = append(info.Dig, readDigPoint(f, e))
			}
		}
	}

	info.Projs = readProjections(f, infoNode)
	info.Comps = readCompensation(f, infoNode)
	info.Bads = readBads(f, measNode)
	info.MeasID = measID(f, measNode, infoNode)
	logger.Infof("measurement info: %d channels at %g Hz, %d projectors, %d compensators, %d bad channels",
		info.NChan, info.SFreq, len(info.Projs), len(info.Comps), len(info.Bads))
	return info, measNode
}

// setTransform keeps the first device to head and the first CTF head to head
// transform.
func (info *Info) setTransform(ct tag.CoordTrans) {
	switch {
	case isDevHead(ct) && info.DevHeadT == nil:
		info.DevHeadT = &ct
	case isCtfHead(ct) && info.CtfHeadT == nil:
		info.CtfHeadT = &ct
	}
}

func readBads(f *tree.File, measNode tree.NodeID) []string {
	blocks := f.Tree.Find(measNode, tag.BlockMNEBadChannels)
	if len(blocks) == 0 {
		return nil
	}
	e, ok := findEntry(f, blocks[0], tag.KindMNEChNameList)
	if !ok {
		return nil
	}
	return tag.SplitNames(readText(f, e))
}

// measID picks the first id found among the parent and own ids of the
// measurement info block and the measurement block, falling back to the file
// id.
func measID(f *tree.File, measNode, infoNode tree.NodeID) *tag.ID {
	mi := f.Tree.Node(infoNode)
	m := f.Tree.Node(measNode)
	for _, id := range []*tag.ID{mi.ParentID, mi.ID, m.ID, m.ParentID} {
		if id != nil {
			v := *id
			return &v
		}
	}
	v := f.ID
	return &v
}
