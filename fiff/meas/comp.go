package meas

import (
	"github.com/batchatco/go-native-fiff/fiff/api"
	"github.com/batchatco/go-native-fiff/fiff/tag"
	"github.com/batchatco/go-native-fiff/fiff/tree"
	"github.com/batchatco/go-thrower"
)

// Compensation is one set of CTF gradient compensation coefficients. The
// coefficients are kept as stored; no recalibration is applied.
type Compensation struct {
	Kind       int32
	Calibrated bool
	Data       NamedMatrix
}

func readCompensation(f *tree.File, infoNode tree.NodeID) []Compensation {
	var comps []Compensation
	for _, node := range f.Tree.Find(infoNode, tag.BlockMNECtfCompData) {
		var c Compensation
		e, ok := findEntry(f, node, tag.KindMNECtfCompKind)
		assertf(ok, api.ErrFormat, "compensation type not found")
		c.Kind = readInt(f, e)
		if e, ok := findEntry(f, node, tag.KindMNECtfCompCalibrated); ok {
			c.Calibrated = readInt(f, e) != 0
		}
		c.Data = readNamedMatrix(f, node, tag.KindMNECtfCompData)
		comps = append(comps, c)
	}
	return comps
}

// readNamedMatrix reads the matrix of the given kind held by a named matrix
// block below node, or by node itself.
func readNamedMatrix(f *tree.File, node tree.NodeID, kind tag.Kind) NamedMatrix {
	if _, ok := findEntry(f, node, kind); !ok {
		found := false
		for _, child := range f.Tree.Find(node, tag.BlockMNENamedMatrix) {
			if _, ok := findEntry(f, child, kind); ok {
				node = child
				found = true
				break
			}
		}
		assertf(found, api.ErrFormat, "named matrix of kind %d not found", kind)
	}
	e, _ := findEntry(f, node, kind)
	m := NamedMatrix{Data: readMatrix(f, e)}
	rows, cols := m.Data.Dims()
	m.NRow, m.NCol = rows, cols
	if e, ok := findEntry(f, node, tag.KindMNENRow); ok {
		assertf(int(readInt(f, e)) == rows, api.ErrDataConsistency, "named matrix row count mismatch")
	}
	if e, ok := findEntry(f, node, tag.KindMNENCol); ok {
		assertf(int(readInt(f, e)) == cols, api.ErrDataConsistency, "named matrix column count mismatch")
	}
	if e, ok := findEntry(f, node, tag.KindMNERowNames); ok {
		m.RowNames = tag.SplitNames(readText(f, e))
		assertf(len(m.RowNames) == rows, api.ErrDataConsistency, "named matrix row names mismatch")
	}
	if e, ok := findEntry(f, node, tag.KindMNEColNames); ok {
		m.ColNames = tag.SplitNames(readText(f, e))
		assertf(len(m.ColNames) == cols, api.ErrDataConsistency, "named matrix column names mismatch")
	}
	return m
}

// WriteCompensation writes the compensation block. An empty list writes
// nothing; any compensation data fails with api.ErrUnsupported because named
// matrices cannot be encoded.
func WriteCompensation(w *tag.Writer, comps []Compensation) (err error) {
	defer thrower.RecoverError(&err)
	if len(comps) == 0 {
		return nil
	}
	w.WriteNamedMatrix(tag.KindMNECtfCompData)
	return nil
}
