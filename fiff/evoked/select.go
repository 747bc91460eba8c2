package evoked

import (
	"github.com/batchatco/go-native-fiff/fiff/api"
	"github.com/batchatco/go-native-fiff/fiff/tag"
	"github.com/batchatco/go-native-fiff/fiff/tree"
	"github.com/batchatco/go-thrower"
)

// Set groups the aspect blocks of one evoked block. Ordinary and
// signal-minus-shield aspects are kept apart.
type Set struct {
	Evoked   tree.NodeID
	Aspects  []tree.NodeID
	Shielded []tree.NodeID
}

// Count returns the number of selectable data sets in s.
func (s Set) Count() int {
	return len(s.Aspects) + len(s.Shielded)
}

// Unit is one selectable data set: an aspect block and the evoked block that
// holds it.
type Unit struct {
	Evoked   tree.NodeID
	Aspect   tree.NodeID
	Shielded bool
}

// Sets returns the evoked sets of the measurement block measNode in file
// order.
func Sets(t *tree.Tree, measNode tree.NodeID) (sets []Set, err error) {
	defer thrower.RecoverError(&err)
	return findSets(t, measNode), nil
}

func findSets(t *tree.Tree, measNode tree.NodeID) []Set {
	assertf(len(t.Find(measNode, tag.BlockProcessedData)) > 0, api.ErrFormat, "could not find processed data")
	evoked := t.Find(measNode, tag.BlockEvoked)
	assertf(len(evoked) > 0, api.ErrFormat, "could not find evoked data")
	sets := make([]Set, len(evoked))
	for i, ev := range evoked {
		sets[i] = Set{
			Evoked:   ev,
			Aspects:  t.Find(ev, tag.BlockAspect),
			Shielded: t.Find(ev, tag.BlockSmshAspect),
		}
	}
	return sets
}

// Units flattens sets into selection order: for each evoked block, its
// ordinary aspects and then its shielded aspects, each in file order.
func Units(sets []Set) []Unit {
	var units []Unit
	for _, s := range sets {
		for _, a := range s.Aspects {
			units = append(units, Unit{Evoked: s.Evoked, Aspect: a})
		}
		for _, a := range s.Shielded {
			units = append(units, Unit{Evoked: s.Evoked, Aspect: a, Shielded: true})
		}
	}
	return units
}

// Select returns data set number index of the measurement block measNode.
func Select(t *tree.Tree, measNode tree.NodeID, index int) (u Unit, err error) {
	defer thrower.RecoverError(&err)
	return selectUnit(t, measNode, index), nil
}

func selectUnit(t *tree.Tree, measNode tree.NodeID, index int) Unit {
	sets := findSets(t, measNode)
	total := 0
	for _, s := range sets {
		total += s.Count()
	}
	logger.Infof("%d evoked data sets containing a total of %d data aspects", len(sets), total)
	assertf(index >= 0 && index < total, api.ErrSelectionRange,
		"data set selector %d, %d data sets available", index, total)
	p := 0
	for _, s := range sets {
		if index < p+s.Count() {
			return Units([]Set{s})[index-p]
		}
		p += s.Count()
	}
	failf(api.ErrInternal, "data set %d not found among %d", index, total)
	return Unit{}
}
