package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrShortBuffer is returned when the buffer ends before the value does.
	ErrShortBuffer = errors.New("codec: buffer too short")
	// ErrOverflow is returned when a value does not fit the kind's width.
	ErrOverflow = errors.New("codec: value does not fit width")
	// ErrUnknownKind is returned by LookupKind for unrecognised names.
	ErrUnknownKind = errors.New("codec: unknown kind")
)

// Kind describes a fixed-width primitive: its C-style name, byte width,
// signedness and whether it is an IEEE-754 float.
type Kind struct {
	Name   string
	Size   int
	Signed bool
	Float  bool
}

// Built-in kinds.
var (
	Byte   = Kind{Name: "byte", Size: 1, Signed: true}
	UByte  = Kind{Name: "ubyte", Size: 1}
	Short  = Kind{Name: "short", Size: 2, Signed: true}
	UShort = Kind{Name: "ushort", Size: 2}
	Int    = Kind{Name: "int", Size: 4, Signed: true}
	UInt   = Kind{Name: "uint", Size: 4}
	Long   = Kind{Name: "long", Size: 8, Signed: true}
	ULong  = Kind{Name: "ulong", Size: 8}
	Float  = Kind{Name: "float", Size: 4, Signed: true, Float: true}
	Double = Kind{Name: "double", Size: 8, Signed: true, Float: true}
)

var kinds = map[string]Kind{
	Byte.Name:   Byte,
	UByte.Name:  UByte,
	Short.Name:  Short,
	UShort.Name: UShort,
	Int.Name:    Int,
	UInt.Name:   UInt,
	Long.Name:   Long,
	ULong.Name:  ULong,
	Float.Name:  Float,
	Double.Name: Double,
}

// LookupKind returns the built-in kind registered under name.
func LookupKind(name string) (Kind, error) {
	k, ok := kinds[name]
	if !ok {
		return Kind{}, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
	return k, nil
}

// String returns the kind name.
func (k Kind) String() string {
	return k.Name
}

// fits reports whether v is representable in k's width.
func (k Kind) fits(v int64) bool {
	bits := uint(k.Size * 8)
	if bits >= 64 {
		return k.Signed || v >= 0
	}
	if k.Signed {
		lo := -(int64(1) << (bits - 1))
		hi := int64(1)<<(bits-1) - 1
		return v >= lo && v <= hi
	}
	return v >= 0 && v <= int64(1)<<bits-1
}

// AppendInt appends the little-endian encoding of v to dst.
func (k Kind) AppendInt(dst []byte, v int64) ([]byte, error) {
	if k.Float {
		return k.AppendFloat(dst, float64(v))
	}
	if !k.fits(v) {
		return dst, fmt.Errorf("%w: %d as %s", ErrOverflow, v, k.Name)
	}
	switch k.Size {
	case 1:
		return append(dst, byte(v)), nil
	case 2:
		return binary.LittleEndian.AppendUint16(dst, uint16(v)), nil
	case 4:
		return binary.LittleEndian.AppendUint32(dst, uint32(v)), nil
	case 8:
		return binary.LittleEndian.AppendUint64(dst, uint64(v)), nil
	}
	return dst, fmt.Errorf("codec: unsupported width %d", k.Size)
}

// Int decodes an integer of kind k at off.
func (k Kind) Int(buf []byte, off int) (int64, error) {
	if off < 0 || len(buf)-off < k.Size {
		return 0, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, k.Size, off, len(buf)-off)
	}
	b := buf[off : off+k.Size]
	switch k.Size {
	case 1:
		if k.Signed {
			return int64(int8(b[0])), nil
		}
		return int64(b[0]), nil
	case 2:
		u := binary.LittleEndian.Uint16(b)
		if k.Signed {
			return int64(int16(u)), nil
		}
		return int64(u), nil
	case 4:
		u := binary.LittleEndian.Uint32(b)
		if k.Signed {
			return int64(int32(u)), nil
		}
		return int64(u), nil
	case 8:
		u := binary.LittleEndian.Uint64(b)
		if !k.Signed && u > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d as %s", ErrOverflow, u, k.Name)
		}
		return int64(u), nil
	}
	return 0, fmt.Errorf("codec: unsupported width %d", k.Size)
}

// AppendFloat appends the little-endian IEEE-754 encoding of v to dst.
func (k Kind) AppendFloat(dst []byte, v float64) ([]byte, error) {
	switch {
	case !k.Float:
		return dst, fmt.Errorf("%w: float as %s", ErrOverflow, k.Name)
	case k.Size == 4:
		if !math.IsInf(v, 0) && !math.IsNaN(v) && math.Abs(v) > math.MaxFloat32 {
			return dst, fmt.Errorf("%w: %g as %s", ErrOverflow, v, k.Name)
		}
		return binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(v))), nil
	default:
		return binary.LittleEndian.AppendUint64(dst, math.Float64bits(v)), nil
	}
}

// Float64 decodes a float of kind k at off.
func (k Kind) Float64(buf []byte, off int) (float64, error) {
	if !k.Float {
		return 0, fmt.Errorf("codec: %s is not a float kind", k.Name)
	}
	if off < 0 || len(buf)-off < k.Size {
		return 0, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, k.Size, off, len(buf)-off)
	}
	if k.Size == 4 {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))), nil
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[off:])), nil
}
