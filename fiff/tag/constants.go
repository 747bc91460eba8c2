package tag

// Kind identifies the meaning of a tag.
type Kind int32

// Type identifies the encoding of a tag payload.
type Type int32

// Block identifies the kind of a block opened by a KindBlockStart tag.
type Block int32

// File structure tags.
const (
	KindFileID        Kind = 100
	KindDirPointer    Kind = 101
	KindDir           Kind = 102
	KindBlockID       Kind = 103
	KindBlockStart    Kind = 104
	KindBlockEnd      Kind = 105
	KindFreeList      Kind = 106
	KindNop           Kind = 108
	KindParentFileID  Kind = 109
	KindParentBlockID Kind = 110
)

// Measurement and data tags.
const (
	KindName        Kind = 3
	KindNChan       Kind = 200
	KindSFreq       Kind = 201
	KindChInfo      Kind = 203
	KindMeasDate    Kind = 204
	KindComment     Kind = 206
	KindNave        Kind = 207
	KindFirstSample Kind = 208
	KindLastSample  Kind = 209
	KindAspectKind  Kind = 210
	KindDigPoint    Kind = 213
	KindLowpass     Kind = 219
	KindBadChs      Kind = 220
	KindCoordTrans  Kind = 222
	KindHighpass    Kind = 223
	KindEpoch       Kind = 302
)

// KindDescription shares its code with KindComment.
const KindDescription = KindComment

// Projector, named matrix and compensation tags.
const (
	KindProjItemKind       Kind = 3411
	KindProjItemTime       Kind = 3412
	KindProjItemNVec       Kind = 3414
	KindProjItemVectors    Kind = 3415
	KindProjItemChNameList Kind = 3417

	KindMNERowNames   Kind = 3502
	KindMNEColNames   Kind = 3503
	KindMNENRow       Kind = 3504
	KindMNENCol       Kind = 3505
	KindMNEChNameList Kind = 3507

	KindMNECtfCompKind       Kind = 3531
	KindMNECtfCompData       Kind = 3532
	KindMNECtfCompCalibrated Kind = 3533

	KindMNEProjItemActive Kind = 3560
)

// Block kinds.
const (
	BlockRoot              Block = 0
	BlockMeas              Block = 100
	BlockMeasInfo          Block = 101
	BlockRawData           Block = 102
	BlockProcessedData     Block = 103
	BlockEvoked            Block = 104
	BlockAspect            Block = 105
	BlockSubject           Block = 106
	BlockIsotrak           Block = 107
	BlockHPIMeas           Block = 108
	BlockHPIResult         Block = 109
	BlockHPICoil           Block = 110
	BlockContinuousData    Block = 112
	BlockSmshAspect        Block = 120
	BlockProj              Block = 313
	BlockProjItem          Block = 314
	BlockMNE               Block = 350
	BlockMNEBadChannels    Block = 359
	BlockMNENamedMatrix    Block = 366
	BlockMNECtfComp        Block = 370
	BlockMNECtfCompData    Block = 371
	BlockProcessingHistory Block = 900
)

// Payload types.
const (
	TypeVoid       Type = 0
	TypeByte       Type = 1
	TypeShort      Type = 2
	TypeInt        Type = 3
	TypeFloat      Type = 4
	TypeDouble     Type = 5
	TypeJulian     Type = 6
	TypeUShort     Type = 7
	TypeUInt       Type = 8
	TypeString     Type = 10
	TypeChInfo     Type = 30
	TypeID         Type = 31
	TypeDirEntry   Type = 32
	TypeDigPoint   Type = 33
	TypeCoordTrans Type = 35
)

// Matrix codings live in the upper 16 bits of the type, the element type in
// the lower 16.
const (
	matrixCodingMask uint32 = 0xFFFF0000
	matrixDense      uint32 = 0x40000000
	matrixCCS        uint32 = 0x40100000
	matrixRCS        uint32 = 0x40200000
	elementMask      uint32 = 0x0000FFFF

	TypeMatrixFloat  = Type(matrixDense | uint32(TypeFloat))
	TypeMatrixDouble = Type(matrixDense | uint32(TypeDouble))
	TypeMatrixInt    = Type(matrixDense | uint32(TypeInt))
)

// Values of the next field of a tag header.
const (
	NextSeq  int32 = 0
	NextNone int32 = -1
)

// Coordinate frames.
const (
	CoordDevice  int32 = 1
	CoordHead    int32 = 4
	CoordCtfHead int32 = 1004
)

// Aspect kinds.
const (
	AspectAverage      int32 = 100
	AspectStdErr       int32 = 101
	AspectSingle       int32 = 102
	AspectSubAverage   int32 = 103
	AspectAltAverage   int32 = 104
	AspectSample       int32 = 105
	AspectPowerDensity int32 = 106
	AspectDipoleWave   int32 = 200
)

// ProjItemField is the projector kind whose items carry a time tag.
const ProjItemField int32 = 1

// HeaderSize is the size of the fixed tag header.
const HeaderSize = 16
