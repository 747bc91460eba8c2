package tree

import (
	"io"

	"github.com/batchatco/go-native-fiff/fiff/api"
	"github.com/batchatco/go-native-fiff/fiff/tag"
	"github.com/batchatco/go-thrower"
)

// ReadDirectory returns the directory of a file of the given size. The
// directory tag named by the directory pointer is used when there is one;
// otherwise the tags are scanned following their next links.
func ReadDirectory(r io.ReaderAt, size int64) (dir []Entry, err error) {
	defer thrower.RecoverError(&err)
	return readDirectory(r, size), nil
}

func readHeader(r io.ReaderAt, pos int64) *tag.Tag {
	tg, err := tag.ReadHeader(r, pos)
	thrower.ThrowIfError(err)
	return tg
}

func toEntry(tg *tag.Tag) Entry {
	return Entry{Kind: tg.Kind, Type: tg.Type, Size: tg.Size, Pos: tg.Pos}
}

func readDirectory(r io.ReaderAt, size int64) []Entry {
	first := readHeader(r, 0)
	assertf(first.Kind == tag.KindFileID && first.Type == tag.TypeID, api.ErrFormat,
		"file does not start with a file id (kind %d, type %d)", first.Kind, first.Type)
	second := tag.HeaderSize + int64(first.Size)
	if second+tag.HeaderSize <= size {
		if readHeader(r, second).Kind == tag.KindDirPointer {
			where, err := readEntry(r, Entry{Pos: second}).Int()
			thrower.ThrowIfError(err)
			if where > 0 {
				return readDirectoryTag(r, int64(where), size)
			}
		}
	}
	return scan(r, size)
}

func readDirectoryTag(r io.ReaderAt, pos, size int64) []Entry {
	dt := readEntry(r, Entry{Pos: pos})
	assertf(dt.Kind == tag.KindDir, api.ErrFormat, "directory pointer %d names tag kind %d", pos, dt.Kind)
	entries, err := dt.DirEntries()
	thrower.ThrowIfError(err)
	dir := make([]Entry, len(entries))
	for i, de := range entries {
		p := int64(de.Pos)
		assertf(p >= 0 && p+tag.HeaderSize+int64(de.Size) <= size, api.ErrFormat,
			"directory entry %d points outside the file (%d)", i, p)
		dir[i] = Entry{Kind: de.Kind, Type: de.Type, Size: de.Size, Pos: p}
	}
	logger.Infof("directory with %d entries read from %d", len(dir), pos)
	return dir
}

// scan walks the tag chain. Every position must lie inside the file and may
// be visited once; the chain ends at a next of -1 or at the end of the file.
func scan(r io.ReaderAt, size int64) []Entry {
	var dir []Entry
	visited := make(map[int64]bool)
	pos := int64(0)
	for pos < size {
		assertf(!visited[pos], api.ErrFormat, "tag chain loops back to %d", pos)
		visited[pos] = true
		tg := readHeader(r, pos)
		end := pos + tag.HeaderSize + int64(tg.Size)
		assertf(end <= size, api.ErrFormat, "tag %d at %d runs past the end of the file", tg.Kind, pos)
		dir = append(dir, toEntry(tg))
		switch {
		case tg.Next == tag.NextSeq:
			pos = end
		case tg.Next > 0:
			pos = int64(tg.Next)
			assertf(pos < size, api.ErrFormat, "tag at %d jumps outside the file to %d", tg.Pos, pos)
		default:
			return dir
		}
	}
	return dir
}
