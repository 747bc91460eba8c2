package meas

import (
	"github.com/batchatco/go-native-fiff/fiff/tag"
	"github.com/batchatco/go-native-fiff/fiff/tree"
	"github.com/batchatco/go-thrower"
	"gonum.org/v1/gonum/mat"
)

// Throwing accessors used while scanning a directory.

func readTag(f *tree.File, e tree.Entry) *tag.Tag {
	tg, err := f.ReadTag(e)
	thrower.ThrowIfError(err)
	return tg
}

func readInt(f *tree.File, e tree.Entry) int32 {
	v, err := readTag(f, e).Int()
	thrower.ThrowIfError(err)
	return v
}

func readInts(f *tree.File, e tree.Entry) []int32 {
	v, err := readTag(f, e).Ints()
	thrower.ThrowIfError(err)
	return v
}

func readFloat(f *tree.File, e tree.Entry) float64 {
	v, err := readTag(f, e).Float()
	thrower.ThrowIfError(err)
	return v
}

func readText(f *tree.File, e tree.Entry) string {
	v, err := readTag(f, e).Text()
	thrower.ThrowIfError(err)
	return v
}

func readMatrix(f *tree.File, e tree.Entry) *mat.Dense {
	v, err := readTag(f, e).Matrix()
	thrower.ThrowIfError(err)
	return v
}

func readCoordTrans(f *tree.File, e tree.Entry) tag.CoordTrans {
	v, err := readTag(f, e).CoordTrans()
	thrower.ThrowIfError(err)
	return v
}

func readChannelInfo(f *tree.File, e tree.Entry) tag.ChannelInfo {
	v, err := readTag(f, e).ChannelInfo()
	thrower.ThrowIfError(err)
	return v
}

func readDigPoint(f *tree.File, e tree.Entry) tag.DigPoint {
	v, err := readTag(f, e).DigPoint()
	thrower.ThrowIfError(err)
	return v
}

// findEntry returns the first entry of kind in the directory of node.
func findEntry(f *tree.File, node tree.NodeID, kind tag.Kind) (tree.Entry, bool) {
	for _, e := range f.Tree.Node(node).Directory {
		if e.Kind == kind {
			return e, true
		}
	}
	return tree.Entry{}, false
}
