// Package tree indexes a FIFF file: its flat directory of tags and the block
// tree built over it.
package tree

import (
	"io"

	"github.com/batchatco/go-native-fiff/fiff/api"
	"github.com/batchatco/go-native-fiff/fiff/tag"
	"github.com/batchatco/go-thrower"
)

// Entry locates one tag. Pos is absolute and can be used to re-read the tag.
type Entry struct {
	Kind tag.Kind
	Type tag.Type
	Size int32
	Pos  int64
}

// NodeID addresses a node of a Tree.
type NodeID int

// RootID is the node holding the top-level tags of a file.
const RootID NodeID = 0

// Node is one block. Its directory holds the tags that belong directly to
// the block; nested blocks are children. Block start and end tags appear in
// neither.
type Node struct {
	Block     tag.Block
	ID        *tag.ID
	ParentID  *tag.ID
	Directory []Entry
	Children  []NodeID
}

// Tree is an arena of nodes.
type Tree struct {
	nodes []Node
}

// Node returns the node addressed by id.
func (t *Tree) Node(id NodeID) *Node {
	return &t.nodes[id]
}

// Len returns the number of nodes, the root included.
func (t *Tree) Len() int {
	return len(t.nodes)
}

func (t *Tree) add(n Node) NodeID {
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

// Find returns, in pre-order, every node of kind block in the subtree rooted
// at from, from itself included.
func (t *Tree) Find(from NodeID, block tag.Block) []NodeID {
	var found []NodeID
	stack := []NodeID{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := t.Node(id)
		if n.Block == block {
			found = append(found, id)
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return found
}

// Build builds the block tree of dir. Tags holding block kinds and ids are
// read from r.
func Build(r io.ReaderAt, dir []Entry) (t *Tree, err error) {
	defer thrower.RecoverError(&err)
	return build(r, dir), nil
}

func readEntry(r io.ReaderAt, e Entry) *tag.Tag {
	tg, err := tag.Read(r, e.Pos)
	thrower.ThrowIfError(err)
	return tg
}

func readID(r io.ReaderAt, e Entry) *tag.ID {
	id, err := readEntry(r, e).ID()
	thrower.ThrowIfError(err)
	return &id
}

func build(r io.ReaderAt, dir []Entry) *Tree {
	t := &Tree{}
	root := t.add(Node{Block: tag.BlockRoot})
	stack := []NodeID{root}
	for _, e := range dir {
		top := stack[len(stack)-1]
		switch e.Kind {
		case tag.KindBlockStart:
			kind, err := readEntry(r, e).Int()
			thrower.ThrowIfError(err)
			id := t.add(Node{Block: tag.Block(kind)})
			t.nodes[top].Children = append(t.nodes[top].Children, id)
			stack = append(stack, id)
		case tag.KindBlockEnd:
			assertf(len(stack) > 1, api.ErrFormat, "block end at %d without a block start", e.Pos)
			kind, err := readEntry(r, e).Int()
			thrower.ThrowIfError(err)
			if tag.Block(kind) != t.nodes[top].Block {
				logger.Warnf("block %d closed by end of block %d at %d", t.nodes[top].Block, kind, e.Pos)
			}
			stack = stack[:len(stack)-1]
		default:
			n := &t.nodes[top]
			n.Directory = append(n.Directory, e)
			switch {
			case e.Kind == tag.KindFileID && top == root:
				n.ID = readID(r, e)
			case e.Kind == tag.KindBlockID:
				n.ID = readID(r, e)
			case e.Kind == tag.KindParentBlockID:
				n.ParentID = readID(r, e)
			}
		}
	}
	assertf(len(stack) == 1, api.ErrFormat, "%d blocks not terminated", len(stack)-1)
	return t
}
