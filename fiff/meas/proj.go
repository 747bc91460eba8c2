package meas

import (
	"github.com/batchatco/go-native-fiff/fiff/api"
	"github.com/batchatco/go-native-fiff/fiff/tag"
	"github.com/batchatco/go-native-fiff/fiff/tree"
	"github.com/batchatco/go-thrower"
	"gonum.org/v1/gonum/mat"
)

// NamedMatrix is a matrix with optional row and column names.
type NamedMatrix struct {
	NRow     int
	NCol     int
	RowNames []string
	ColNames []string
	Data     *mat.Dense
}

// Projection is one signal space projection operator.
type Projection struct {
	Kind   int32
	Active bool
	Desc   string
	Data   NamedMatrix // one row per vector, one column per channel
}

func readProjections(f *tree.File, infoNode tree.NodeID) []Projection {
	blocks := f.Tree.Find(infoNode, tag.BlockProj)
	if len(blocks) == 0 {
		return nil
	}
	items := f.Tree.Find(blocks[0], tag.BlockProjItem)
	projs := make([]Projection, 0, len(items))
	for _, item := range items {
		projs = append(projs, readProjection(f, item))
	}
	return projs
}

func readProjection(f *tree.File, item tree.NodeID) Projection {
	var p Projection
	var desc, name string
	haveKind, haveNVec := false, false
	var nvec int
	var names []string
	var vectors *mat.Dense
	for _, e := range f.Tree.Node(item).Directory {
		switch e.Kind {
		case tag.KindDescription:
			desc = readText(f, e)
		case tag.KindName:
			name = readText(f, e)
		case tag.KindProjItemKind:
			p.Kind = readInt(f, e)
			haveKind = true
		case tag.KindProjItemNVec:
			nvec = int(readInt(f, e))
			haveNVec = true
		case tag.KindProjItemChNameList:
			names = tag.SplitNames(readText(f, e))
		case tag.KindProjItemVectors:
			vectors = readMatrix(f, e)
		case tag.KindMNEProjItemActive:
			p.Active = readInt(f, e) != 0
		}
	}
	p.Desc = desc
	if p.Desc == "" {
		p.Desc = name
	}
	assertf(haveKind, api.ErrFormat, "projection item kind missing")
	assertf(haveNVec, api.ErrFormat, "number of projection vectors not specified")
	assertf(names != nil, api.ErrFormat, "projection item channel list missing")
	assertf(vectors != nil, api.ErrFormat, "projection item data missing")
	rows, cols := vectors.Dims()
	assertf(cols == len(names), api.ErrDataConsistency,
		"projection %q has %d columns for %d channel names", p.Desc, cols, len(names))
	assertf(rows == nvec, api.ErrDataConsistency,
		"projection %q has %d vectors, %d declared", p.Desc, rows, nvec)
	p.Data = NamedMatrix{NRow: nvec, NCol: len(names), ColNames: names, Data: vectors}
	return p
}

// WriteProjections writes the projector block. Nothing is written when projs
// is empty.
func WriteProjections(w *tag.Writer, projs []Projection) (err error) {
	defer thrower.RecoverError(&err)
	if len(projs) == 0 {
		return nil
	}
	w.StartBlock(tag.BlockProj)
	for _, p := range projs {
		w.StartBlock(tag.BlockProjItem)
		w.WriteString(tag.KindName, p.Desc)
		w.WriteInt(tag.KindProjItemKind, p.Kind)
		if p.Kind == tag.ProjItemField {
			w.WriteFloat(tag.KindProjItemTime, 0)
		}
		w.WriteInt(tag.KindProjItemNVec, int32(p.Data.NRow))
		active := int32(0)
		if p.Active {
			active = 1
		}
		w.WriteInt(tag.KindMNEProjItemActive, active)
		w.WriteNameList(tag.KindProjItemChNameList, p.Data.ColNames)
		w.WriteFloatMatrix(tag.KindProjItemVectors, p.Data.Data)
		w.EndBlock(tag.BlockProjItem)
	}
	w.EndBlock(tag.BlockProj)
	return nil
}
