package media

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
)

// Array file format constants.
//
// Layout: header (magic, version, dtype, ndim), ndim int64 dims, raw
// little-endian element data, CRC-32C of everything preceding the trailer.
const (
	arrayMagic      = 0x414C4152 // "ALAR" — AutoLibra ARray
	arrayVersion    = 1
	arrayHeaderSize = 12 // magic(4) + version(2) + dtype(2) + ndim(4)
	arrayCRCSize    = 4
	arrayMaxDims    = 32
	arrayMaxBytes   = 1 << 31 // 2 GB per array file
)

var arrayCRCTable = crc32.MakeTable(crc32.Castagnoli)

// DType is the element type of an Array.
type DType string

const (
	Float64 DType = "float64"
	Float32 DType = "float32"
	Int64   DType = "int64"
	Int32   DType = "int32"
	Uint8   DType = "uint8"
)

var dtypeCodes = map[DType]uint16{
	Float64: 1,
	Float32: 2,
	Int64:   3,
	Int32:   4,
	Uint8:   5,
}

var dtypesByCode = map[uint16]DType{
	1: Float64,
	2: Float32,
	3: Int64,
	4: Int32,
	5: Uint8,
}

// Size returns the element size in bytes, or 0 for an unknown dtype.
func (d DType) Size() int {
	switch d {
	case Float64, Int64:
		return 8
	case Float32, Int32:
		return 4
	case Uint8:
		return 1
	}
	return 0
}

// Array is an N-dimensional numeric array payload. Data holds the elements
// in row-major order, little-endian.
type Array struct {
	DType DType
	Shape []int64
	Data  []byte
}

// Elements returns the element count implied by the shape.
func (a *Array) Elements() int64 {
	n := int64(1)
	for _, dim := range a.Shape {
		n *= dim
	}
	return n
}

func (a *Array) validate() error {
	size := a.DType.Size()
	if size == 0 {
		return fmt.Errorf("media: unknown dtype %q", a.DType)
	}
	if len(a.Shape) == 0 || len(a.Shape) > arrayMaxDims {
		return fmt.Errorf("media: array must have between 1 and %d dimensions, got %d", arrayMaxDims, len(a.Shape))
	}
	for _, dim := range a.Shape {
		if dim < 0 {
			return fmt.Errorf("media: negative dimension %d in shape %v", dim, a.Shape)
		}
	}
	want := a.Elements() * int64(size)
	if want > arrayMaxBytes {
		return fmt.Errorf("media: array of %d bytes exceeds limit", want)
	}
	if int64(len(a.Data)) != want {
		return fmt.Errorf("media: shape %v implies %d bytes, have %d", a.Shape, want, len(a.Data))
	}
	return nil
}

// NewFloat64Array builds a Float64 array from values in row-major order.
func NewFloat64Array(shape []int64, values []float64) (*Array, error) {
	data := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(data[8*i:], math.Float64bits(v))
	}
	return newArray(Float64, shape, data)
}

// NewFloat32Array builds a Float32 array from values in row-major order.
func NewFloat32Array(shape []int64, values []float32) (*Array, error) {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(v))
	}
	return newArray(Float32, shape, data)
}

// NewInt64Array builds an Int64 array from values in row-major order.
func NewInt64Array(shape []int64, values []int64) (*Array, error) {
	data := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(data[8*i:], uint64(v))
	}
	return newArray(Int64, shape, data)
}

// NewInt32Array builds an Int32 array from values in row-major order.
func NewInt32Array(shape []int64, values []int32) (*Array, error) {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[4*i:], uint32(v))
	}
	return newArray(Int32, shape, data)
}

// NewUint8Array builds a Uint8 array (e.g. image bytes) from values in
// row-major order.
func NewUint8Array(shape []int64, values []byte) (*Array, error) {
	data := make([]byte, len(values))
	copy(data, values)
	return newArray(Uint8, shape, data)
}

func newArray(dtype DType, shape []int64, data []byte) (*Array, error) {
	a := &Array{
		DType: dtype,
		Shape: append([]int64(nil), shape...),
		Data:  data,
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Float64s decodes the element data as float64 values.
func (a *Array) Float64s() ([]float64, error) {
	if a.DType != Float64 {
		return nil, fmt.Errorf("media: array dtype is %s, not %s", a.DType, Float64)
	}
	out := make([]float64, a.Elements())
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(a.Data[8*i:]))
	}
	return out, nil
}

// Float32s decodes the element data as float32 values.
func (a *Array) Float32s() ([]float32, error) {
	if a.DType != Float32 {
		return nil, fmt.Errorf("media: array dtype is %s, not %s", a.DType, Float32)
	}
	out := make([]float32, a.Elements())
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(a.Data[4*i:]))
	}
	return out, nil
}

// Int64s decodes the element data of any integer dtype as int64 values.
func (a *Array) Int64s() ([]int64, error) {
	out := make([]int64, a.Elements())
	switch a.DType {
	case Int64:
		for i := range out {
			out[i] = int64(binary.LittleEndian.Uint64(a.Data[8*i:]))
		}
	case Int32:
		for i := range out {
			out[i] = int64(int32(binary.LittleEndian.Uint32(a.Data[4*i:])))
		}
	case Uint8:
		for i := range out {
			out[i] = int64(a.Data[i])
		}
	default:
		return nil, fmt.Errorf("media: array dtype %s is not an integer type", a.DType)
	}
	return out, nil
}

// Equal reports whether two arrays have identical dtype, shape, and data.
func (a *Array) Equal(b *Array) bool {
	if a.DType != b.DType || len(a.Shape) != len(b.Shape) {
		return false
	}
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] {
			return false
		}
	}
	return bytes.Equal(a.Data, b.Data)
}

// encodeArray serializes an array into the .array file format.
func encodeArray(a *Array) ([]byte, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, arrayHeaderSize+8*len(a.Shape)+len(a.Data)+arrayCRCSize)
	var scratch [8]byte

	binary.LittleEndian.PutUint32(scratch[:4], arrayMagic)
	buf = append(buf, scratch[:4]...)
	binary.LittleEndian.PutUint16(scratch[:2], arrayVersion)
	buf = append(buf, scratch[:2]...)
	binary.LittleEndian.PutUint16(scratch[:2], dtypeCodes[a.DType])
	buf = append(buf, scratch[:2]...)
	binary.LittleEndian.PutUint32(scratch[:4], uint32(len(a.Shape)))
	buf = append(buf, scratch[:4]...)
	for _, dim := range a.Shape {
		binary.LittleEndian.PutUint64(scratch[:8], uint64(dim))
		buf = append(buf, scratch[:8]...)
	}
	buf = append(buf, a.Data...)

	binary.LittleEndian.PutUint32(scratch[:4], crc32.Checksum(buf, arrayCRCTable))
	buf = append(buf, scratch[:4]...)
	return buf, nil
}

// decodeArray parses the .array file format, verifying framing and CRC.
func decodeArray(raw []byte) (*Array, error) {
	if len(raw) < arrayHeaderSize+arrayCRCSize {
		return nil, fmt.Errorf("%w: file too short (%d bytes)", ErrCorruptPayload, len(raw))
	}

	body, trailer := raw[:len(raw)-arrayCRCSize], raw[len(raw)-arrayCRCSize:]
	if crc32.Checksum(body, arrayCRCTable) != binary.LittleEndian.Uint32(trailer) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptPayload)
	}

	if binary.LittleEndian.Uint32(body[0:4]) != arrayMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptPayload)
	}
	if v := binary.LittleEndian.Uint16(body[4:6]); v != arrayVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptPayload, v)
	}
	dtype, ok := dtypesByCode[binary.LittleEndian.Uint16(body[6:8])]
	if !ok {
		return nil, fmt.Errorf("%w: unknown dtype code", ErrCorruptPayload)
	}
	ndim := binary.LittleEndian.Uint32(body[8:12])
	if ndim == 0 || ndim > arrayMaxDims {
		return nil, fmt.Errorf("%w: implausible dimension count %d", ErrCorruptPayload, ndim)
	}
	if int64(len(body)) < arrayHeaderSize+8*int64(ndim) {
		return nil, fmt.Errorf("%w: truncated shape", ErrCorruptPayload)
	}

	shape := make([]int64, ndim)
	off := arrayHeaderSize
	for i := range shape {
		shape[i] = int64(binary.LittleEndian.Uint64(body[off:]))
		off += 8
	}

	a := &Array{DType: dtype, Shape: shape, Data: body[off:]}
	if err := a.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	return a, nil
}
