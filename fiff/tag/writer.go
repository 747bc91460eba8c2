package tag

import (
	"bufio"
	"io"
	"math"

	"github.com/batchatco/go-native-fiff/fiff/util"
	"github.com/batchatco/go-thrower"
	"gonum.org/v1/gonum/mat"
)

type countedWriter struct {
	w     *bufio.Writer
	count int64
}

func (c *countedWriter) Count() int64 {
	return c.count
}

func (c *countedWriter) Flush() error {
	return c.w.Flush()
}

func (c *countedWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.count += int64(n)
	return n, err
}

// Writer emits sequential tags. Its methods throw on failure; callers recover
// with thrower.RecoverError.
type Writer struct {
	bf *countedWriter
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{bf: &countedWriter{w: bufio.NewWriter(w)}}
}

// Count returns the number of bytes written so far.
func (tw *Writer) Count() int64 {
	return tw.bf.Count()
}

func (tw *Writer) Flush() error {
	return tw.bf.Flush()
}

// WriteTag writes one tag with the given payload.
func (tw *Writer) WriteTag(kind Kind, typ Type, payload []byte) {
	tw.writeHeader(kind, typ, int32(len(payload)), NextSeq)
	util.MustWriteRaw(tw.bf, payload)
}

func (tw *Writer) writeHeader(kind Kind, typ Type, size, next int32) {
	util.MustWriteRaw(tw.bf, appendHeader(make([]byte, 0, HeaderSize), kind, typ, size, next))
}

// StartFile writes the file id followed by empty directory and free list
// pointers.
func (tw *Writer) StartFile(id ID) {
	tw.WriteID(KindFileID, id)
	tw.WriteInt(KindDirPointer, -1)
	tw.WriteInt(KindFreeList, -1)
}

// EndFile writes the terminating tag and flushes.
func (tw *Writer) EndFile() {
	tw.writeHeader(KindNop, TypeVoid, 0, NextNone)
	thrower.ThrowIfError(tw.Flush())
}

func (tw *Writer) StartBlock(b Block) {
	tw.WriteInt(KindBlockStart, int32(b))
}

func (tw *Writer) EndBlock(b Block) {
	tw.WriteInt(KindBlockEnd, int32(b))
}

func (tw *Writer) WriteInt(kind Kind, v ...int32) {
	b := make([]byte, 0, 4*len(v))
	for _, x := range v {
		b = appendInt32(b, x)
	}
	tw.WriteTag(kind, TypeInt, b)
}

// WriteFloat writes single precision values.
func (tw *Writer) WriteFloat(kind Kind, v ...float64) {
	b := make([]byte, 0, 4*len(v))
	for _, x := range v {
		b = appendFloat32(b, x)
	}
	tw.WriteTag(kind, TypeFloat, b)
}

func (tw *Writer) WriteDouble(kind Kind, v ...float64) {
	b := make([]byte, 0, 8*len(v))
	for _, x := range v {
		b = util.ByteOrder.AppendUint64(b, math.Float64bits(x))
	}
	tw.WriteTag(kind, TypeDouble, b)
}

func (tw *Writer) WriteString(kind Kind, s string) {
	tw.WriteTag(kind, TypeString, []byte(s))
}

// WriteNameList writes names as one colon separated string.
func (tw *Writer) WriteNameList(kind Kind, names []string) {
	tw.WriteString(kind, JoinNames(names))
}

// WriteFloatMatrix writes m as a dense single precision matrix.
func (tw *Writer) WriteFloatMatrix(kind Kind, m mat.Matrix) {
	tw.WriteTag(kind, TypeMatrixFloat, EncodeFloatMatrix(m))
}

func (tw *Writer) WriteID(kind Kind, id ID) {
	tw.WriteTag(kind, TypeID, appendID(make([]byte, 0, IDSize), id))
}

func (tw *Writer) WriteCoordTrans(ct CoordTrans) {
	tw.WriteTag(KindCoordTrans, TypeCoordTrans, appendCoordTrans(make([]byte, 0, CoordTransSize), ct))
}

func (tw *Writer) WriteChannelInfo(ch ChannelInfo) {
	tw.WriteTag(KindChInfo, TypeChInfo, appendChannelInfo(make([]byte, 0, ChInfoSize), ch))
}

func (tw *Writer) WriteDigPoint(d DigPoint) {
	tw.WriteTag(KindDigPoint, TypeDigPoint, appendDigPoint(make([]byte, 0, DigPointSize), d))
}

// WriteNamedMatrix always fails: named matrices cannot be written.
func (tw *Writer) WriteNamedMatrix(kind Kind) {
	failf(ErrNamedMatrix, "kind %d", kind)
}

// EncodeFloatMatrix returns the payload of a dense single precision matrix:
// the elements in row-major order followed by the column count, the row count
// and the dimension count.
func EncodeFloatMatrix(m mat.Matrix) []byte {
	rows, cols := m.Dims()
	b := make([]byte, 0, 4*(rows*cols+3))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			b = appendFloat32(b, m.At(i, j))
		}
	}
	b = appendInt32(b, int32(cols))
	b = appendInt32(b, int32(rows))
	return appendInt32(b, 2)
}
