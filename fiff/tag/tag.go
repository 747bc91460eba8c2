// Package tag implements the FIFF tagged-record codec: the 16-byte header,
// payload decoding by type code and the encoders used by Writer.
package tag

import (
	"fmt"
	"io"
	"math"

	"github.com/batchatco/go-native-fiff/fiff/api"
	"github.com/batchatco/go-native-fiff/fiff/util"
	"github.com/batchatco/go-thrower"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrUnknownType  = fmt.Errorf("%w: unknown tag type", api.ErrFormat)
	ErrTypeMismatch = fmt.Errorf("%w: unexpected tag type", api.ErrFormat)
	ErrNamedMatrix  = fmt.Errorf("%w: named matrix encoding", api.ErrUnsupported)
	ErrNotFound     = fmt.Errorf("%w: tag not found", api.ErrFormat)
)

// Tag is one decoded record. Pos is the file offset of its header.
//
// Data holds []byte, []int16, []uint16, []int32, []uint32, []float32,
// []float64, string, []ChannelInfo, []ID, []DirEntry, []DigPoint,
// []CoordTrans or *mat.Dense, depending on Type. Void tags carry nil.
type Tag struct {
	Kind Kind
	Type Type
	Size int32
	Next int32
	Pos  int64
	Data any
}

type decoder func(b []byte) any

var decoders = map[Type]decoder{
	TypeVoid:       func([]byte) any { return nil },
	TypeByte:       func(b []byte) any { return append([]byte(nil), b...) },
	TypeShort:      decodeShorts,
	TypeUShort:     decodeUShorts,
	TypeInt:        decodeInts,
	TypeJulian:     decodeInts,
	TypeUInt:       decodeUInts,
	TypeFloat:      decodeFloats,
	TypeDouble:     decodeDoubles,
	TypeString:     func(b []byte) any { return string(b) },
	TypeChInfo:     decodeChannelInfos,
	TypeID:         decodeIDs,
	TypeDirEntry:   decodeDirEntries,
	TypeDigPoint:   decodeDigPoints,
	TypeCoordTrans: decodeCoordTranses,
}

// ReadHeader reads only the header of the tag at pos.
func ReadHeader(r io.ReaderAt, pos int64) (t *Tag, err error) {
	defer thrower.RecoverError(&err)
	return readHeader(r, pos), nil
}

// Read reads and decodes the tag at pos.
func Read(r io.ReaderAt, pos int64) (t *Tag, err error) {
	defer thrower.RecoverError(&err)
	return readTag(r, pos), nil
}

// Decode decodes a payload of the given type.
func Decode(typ Type, payload []byte) (data any, err error) {
	defer thrower.RecoverError(&err)
	return decode(typ, payload), nil
}

func readHeader(r io.ReaderAt, pos int64) *Tag {
	b := util.MustReadAt(r, pos, HeaderSize)
	t := &Tag{
		Kind: Kind(util.ByteOrder.Uint32(b[0:])),
		Type: Type(util.ByteOrder.Uint32(b[4:])),
		Size: int32(util.ByteOrder.Uint32(b[8:])),
		Next: int32(util.ByteOrder.Uint32(b[12:])),
		Pos:  pos,
	}
	assertf(t.Size >= 0, api.ErrFormat, "tag %d at %d has negative size %d", t.Kind, pos, t.Size)
	return t
}

func readTag(r io.ReaderAt, pos int64) *Tag {
	t := readHeader(r, pos)
	payload := util.MustReadAt(r, pos+HeaderSize, int(t.Size))
	t.Data = decode(t.Type, payload)
	return t
}

func decode(typ Type, b []byte) any {
	coding := uint32(typ) & matrixCodingMask
	switch coding {
	case 0:
		dec, ok := decoders[typ]
		if !ok {
			failf(ErrUnknownType, "type %d", typ)
		}
		return dec(b)
	case matrixDense:
		return decodeDense(Type(uint32(typ)&elementMask), b)
	case matrixCCS, matrixRCS:
		failf(api.ErrUnsupported, "sparse matrix coding 0x%08x", coding)
	}
	failf(ErrUnknownType, "matrix coding 0x%08x", coding)
	return nil
}

func checkElems(b []byte, size int, typ Type) int {
	assertf(len(b)%size == 0, api.ErrFormat,
		"payload of %d bytes is not a multiple of %d for type %d", len(b), size, typ)
	return len(b) / size
}

func decodeShorts(b []byte) any {
	v := make([]int16, checkElems(b, 2, TypeShort))
	for i := range v {
		v[i] = int16(util.ByteOrder.Uint16(b[2*i:]))
	}
	return v
}

func decodeUShorts(b []byte) any {
	v := make([]uint16, checkElems(b, 2, TypeUShort))
	for i := range v {
		v[i] = util.ByteOrder.Uint16(b[2*i:])
	}
	return v
}

func decodeInts(b []byte) any {
	v := make([]int32, checkElems(b, 4, TypeInt))
	for i := range v {
		v[i] = int32(util.ByteOrder.Uint32(b[4*i:]))
	}
	return v
}

func decodeUInts(b []byte) any {
	v := make([]uint32, checkElems(b, 4, TypeUInt))
	for i := range v {
		v[i] = util.ByteOrder.Uint32(b[4*i:])
	}
	return v
}

func decodeFloats(b []byte) any {
	v := make([]float32, checkElems(b, 4, TypeFloat))
	for i := range v {
		v[i] = math.Float32frombits(util.ByteOrder.Uint32(b[4*i:]))
	}
	return v
}

func decodeDoubles(b []byte) any {
	v := make([]float64, checkElems(b, 8, TypeDouble))
	for i := range v {
		v[i] = math.Float64frombits(util.ByteOrder.Uint64(b[8*i:]))
	}
	return v
}

// The trailer of a dense matrix lists the dimensions fastest-varying first,
// followed by their count.
func decodeDense(elem Type, b []byte) any {
	assertf(len(b) >= 4, api.ErrFormat, "matrix payload of %d bytes", len(b))
	ndim := int32(util.ByteOrder.Uint32(b[len(b)-4:]))
	if ndim > 2 {
		failf(api.ErrUnsupported, "matrix with %d dimensions", ndim)
	}
	assertf(ndim >= 1, api.ErrFormat, "matrix with %d dimensions", ndim)
	trailer := int(ndim+1) * 4
	assertf(len(b) >= trailer, api.ErrFormat, "matrix payload of %d bytes", len(b))
	dims := make([]int64, ndim)
	for i := range dims {
		dims[i] = int64(int32(util.ByteOrder.Uint32(b[len(b)-trailer+4*i:])))
		assertf(dims[i] >= 0, api.ErrFormat, "negative matrix dimension %d", dims[i])
	}
	rows, cols := int64(1), dims[0]
	if ndim == 2 {
		rows = dims[1]
	}

	var size int64
	var at func(p []byte) float64
	switch elem {
	case TypeFloat:
		size = 4
		at = func(p []byte) float64 { return float64(math.Float32frombits(util.ByteOrder.Uint32(p))) }
	case TypeDouble:
		size = 8
		at = func(p []byte) float64 { return math.Float64frombits(util.ByteOrder.Uint64(p)) }
	case TypeInt:
		size = 4
		at = func(p []byte) float64 { return float64(int32(util.ByteOrder.Uint32(p))) }
	default:
		failf(ErrUnknownType, "matrix element type %d", elem)
	}
	body := b[:len(b)-trailer]
	assertf(cols == 0 || rows <= int64(len(body))/(cols*size), api.ErrFormat,
		"%dx%d matrix does not fit in %d bytes", rows, cols, len(body))
	assertf(rows*cols*size == int64(len(body)), api.ErrFormat,
		"%dx%d matrix in %d bytes", rows, cols, len(body))
	if rows == 0 || cols == 0 {
		return new(mat.Dense)
	}
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = at(body[int64(i)*size:])
	}
	return mat.NewDense(int(rows), int(cols), data)
}

func (t *Tag) mismatch(want string) error {
	return fmt.Errorf("%w: kind %d at %d has type %d, want %s", ErrTypeMismatch, t.Kind, t.Pos, t.Type, want)
}

// Int returns the first element of an integer tag.
func (t *Tag) Int() (int32, error) {
	v, err := t.Ints()
	if err != nil {
		return 0, err
	}
	if len(v) == 0 {
		return 0, fmt.Errorf("%w: kind %d at %d is empty", api.ErrFormat, t.Kind, t.Pos)
	}
	return v[0], nil
}

// Ints returns the elements of an integer tag.
func (t *Tag) Ints() ([]int32, error) {
	v, ok := t.Data.([]int32)
	if !ok {
		return nil, t.mismatch("int")
	}
	return v, nil
}

// Float returns the first element of a float or double tag.
func (t *Tag) Float() (float64, error) {
	switch v := t.Data.(type) {
	case []float32:
		if len(v) > 0 {
			return float64(v[0]), nil
		}
	case []float64:
		if len(v) > 0 {
			return v[0], nil
		}
	default:
		return 0, t.mismatch("float")
	}
	return 0, fmt.Errorf("%w: kind %d at %d is empty", api.ErrFormat, t.Kind, t.Pos)
}

// Text returns the payload of a string tag.
func (t *Tag) Text() (string, error) {
	v, ok := t.Data.(string)
	if !ok {
		return "", t.mismatch("string")
	}
	return v, nil
}

// Matrix returns a matrix tag. Float vectors are returned as a single row.
func (t *Tag) Matrix() (*mat.Dense, error) {
	switch v := t.Data.(type) {
	case *mat.Dense:
		return v, nil
	case []float32:
		if len(v) == 0 {
			return new(mat.Dense), nil
		}
		row := make([]float64, len(v))
		for i, f := range v {
			row[i] = float64(f)
		}
		return mat.NewDense(1, len(row), row), nil
	case []float64:
		if len(v) == 0 {
			return new(mat.Dense), nil
		}
		return mat.NewDense(1, len(v), append([]float64(nil), v...)), nil
	}
	return nil, t.mismatch("matrix")
}

// ChannelInfos returns the records of a channel info tag.
func (t *Tag) ChannelInfos() ([]ChannelInfo, error) {
	v, ok := t.Data.([]ChannelInfo)
	if !ok {
		return nil, t.mismatch("channel info")
	}
	return v, nil
}

// ChannelInfo returns the single record of a channel info tag.
func (t *Tag) ChannelInfo() (ChannelInfo, error) {
	v, err := t.ChannelInfos()
	if err != nil {
		return ChannelInfo{}, err
	}
	if len(v) != 1 {
		return ChannelInfo{}, fmt.Errorf("%w: %d channel records in one tag", api.ErrFormat, len(v))
	}
	return v[0], nil
}

// DigPoint returns the first record of a digitizer point tag.
func (t *Tag) DigPoint() (DigPoint, error) {
	v, ok := t.Data.([]DigPoint)
	if !ok || len(v) == 0 {
		return DigPoint{}, t.mismatch("dig point")
	}
	return v[0], nil
}

// CoordTrans returns the first record of a coordinate transform tag.
func (t *Tag) CoordTrans() (CoordTrans, error) {
	v, ok := t.Data.([]CoordTrans)
	if !ok || len(v) == 0 {
		return CoordTrans{}, t.mismatch("coord trans")
	}
	return v[0], nil
}

// ID returns the first record of an id tag.
func (t *Tag) ID() (ID, error) {
	v, ok := t.Data.([]ID)
	if !ok || len(v) == 0 {
		return ID{}, t.mismatch("id")
	}
	return v[0], nil
}

// DirEntries returns the records of a directory tag.
func (t *Tag) DirEntries() ([]DirEntry, error) {
	v, ok := t.Data.([]DirEntry)
	if !ok {
		return nil, t.mismatch("dir entry")
	}
	return v, nil
}

// Encode returns the header and payload of a sequential tag.
func Encode(kind Kind, typ Type, payload []byte) []byte {
	b := make([]byte, 0, HeaderSize+len(payload))
	b = appendHeader(b, kind, typ, int32(len(payload)), NextSeq)
	return append(b, payload...)
}

func appendHeader(b []byte, kind Kind, typ Type, size, next int32) []byte {
	b = appendInt32(b, int32(kind))
	b = appendInt32(b, int32(typ))
	b = appendInt32(b, size)
	return appendInt32(b, next)
}
