package tree

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/batchatco/go-native-fiff/fiff/api"
	"github.com/batchatco/go-native-fiff/fiff/compress"
	"github.com/batchatco/go-native-fiff/fiff/tag"
	"github.com/batchatco/go-native-fiff/fiff/util"
	"github.com/batchatco/go-thrower"
)

// File is an indexed FIFF file open for random access.
type File struct {
	Name string
	ID   tag.ID
	Tree *Tree
	Dir  []Entry

	src    api.ReaderAtCloser
	size   int64
	closed bool
}

// nopCloser is a stream that the File does not own.
type nopCloser struct {
	io.ReaderAt
}

func (nopCloser) Close() error { return nil }

// Open opens and indexes the file at path. Compressed containers are
// inflated into memory; plain files are read on demand.
func Open(path string) (*File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	format, size, err := sniff(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	if format == compress.None {
		f, err := New(file, size)
		if err != nil {
			file.Close()
			return nil, err
		}
		f.Name = path
		f.src = file
		return f, nil
	}
	logger.Infof("%s is %s compressed", path, format)
	b, err := compress.Decompress(format, file)
	file.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", api.ErrFormat, path, err)
	}
	return newMemory(path, b)
}

// sniff returns the container format and the size of file.
func sniff(file *os.File) (compress.Format, int64, error) {
	fi, err := file.Stat()
	if err != nil {
		return compress.None, 0, err
	}
	head := make([]byte, 4)
	n, err := file.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		return compress.None, 0, err
	}
	return compress.Detect(head[:n]), fi.Size(), nil
}

// OpenMemory reads the whole file at path into memory and indexes it. The
// file itself is closed before OpenMemory returns.
func OpenMemory(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if format := compress.Detect(b); format != compress.None {
		b, err = compress.Decompress(format, bytes.NewReader(b))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", api.ErrFormat, path, err)
		}
	}
	return newMemory(path, b)
}

func newMemory(path string, b []byte) (*File, error) {
	f, err := New(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, err
	}
	f.Name = path
	return f, nil
}

// New indexes the FIFF stream of the given size held by r. Closing the
// returned File does not close r.
func New(r io.ReaderAt, size int64) (f *File, err error) {
	defer thrower.RecoverError(&err)
	dir := readDirectory(r, size)
	t := build(r, dir)
	root := t.Node(RootID)
	assertf(root.ID != nil, api.ErrFormat, "file id missing")
	return &File{
		ID:   *root.ID,
		Tree: t,
		Dir:  dir,
		src:  nopCloser{r},
		size: size,
	}, nil
}

// Close releases the underlying file, if any. Only the first call has an
// effect.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return f.src.Close()
}

// Size returns the size of the (inflated) stream.
func (f *File) Size() int64 {
	return f.size
}

// ReadTag reads the tag located by e.
func (f *File) ReadTag(e Entry) (*tag.Tag, error) {
	return tag.Read(f.src, e.Pos)
}

// FindTag reads the first tag of the given kind in the directory of node.
// It returns tag.ErrNotFound if there is none.
func (f *File) FindTag(node NodeID, kind tag.Kind) (*tag.Tag, error) {
	for _, e := range f.Tree.Node(node).Directory {
		if e.Kind == kind {
			return f.ReadTag(e)
		}
	}
	return nil, fmt.Errorf("%w: kind %d in block %d", tag.ErrNotFound, kind, f.Tree.Node(node).Block)
}

var idTags = map[tag.Kind]bool{
	tag.KindBlockID:       true,
	tag.KindParentBlockID: true,
	tag.KindParentFileID:  true,
}

// CopyTree writes the blocks rooted at nodes to w. Tags are copied verbatim
// except the id tags, which are replaced: a block that had an id gets a new
// one, with this file and the old block id recorded as its parents.
func (f *File) CopyTree(w *tag.Writer, nodes []NodeID) (err error) {
	defer thrower.RecoverError(&err)
	for _, id := range nodes {
		f.copyNode(w, id)
	}
	return nil
}

func (f *File) copyNode(w *tag.Writer, id NodeID) {
	n := f.Tree.Node(id)
	w.StartBlock(n.Block)
	if n.ID != nil {
		w.WriteID(tag.KindParentFileID, f.ID)
		w.WriteID(tag.KindBlockID, tag.NewID())
		w.WriteID(tag.KindParentBlockID, *n.ID)
	}
	for _, e := range n.Directory {
		if idTags[e.Kind] {
			continue
		}
		w.WriteTag(e.Kind, e.Type, util.MustReadAt(f.src, e.Pos+tag.HeaderSize, int(e.Size)))
	}
	for _, child := range n.Children {
		f.copyNode(w, child)
	}
	w.EndBlock(n.Block)
}
