// Package codec provides the fixed-width primitives that cstruct layouts are
// built from.
//
// Every value is encoded little-endian. A Kind names a primitive by its
// C-style name and knows its width:
//
//	byte    1  signed      ubyte   1  unsigned
//	short   2  signed      ushort  2  unsigned
//	int     4  signed      uint    4  unsigned
//	long    8  signed      ulong   8  unsigned
//	float   4  IEEE-754    double  8  IEEE-754
//
// Integers are carried as int64 on both sides. An unsigned 64-bit value
// above math.MaxInt64 cannot be represented and decodes as ErrOverflow.
//
// # Usage
//
//	buf, err := codec.Int.AppendInt(nil, 42)
//	if err != nil {
//	    return err
//	}
//	v, err := codec.Int.Int(buf, 0) // 42
//
// Raw byte runs are read with Slice, which always copies so decoded values
// never alias the input buffer.
//
// # Error Handling
//
// Reading past the end of a buffer returns ErrShortBuffer. Writing a value
// that does not fit the kind's width returns ErrOverflow. Both are wrapped
// with the offending offset or value and can be matched with errors.Is.
//
// # Thread Safety
//
// Kinds are plain values and every function is free of shared state.
package codec
