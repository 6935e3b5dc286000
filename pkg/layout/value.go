package layout

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Value is a sealed interface over the values a field can hold.
// Only Int, Real, Bytes, List and *Record implement it. A nil Value means
// the field is absent, which only nullable fields accept.
type Value interface {
	layoutValue()
}

// Int is an integer field value. All integer ctypes decode to Int.
type Int int64

func (Int) layoutValue() {}

// Real is a floating point field value.
type Real float64

func (Real) layoutValue() {}

// Bytes is a raw byte run: string, null string and varchar values.
type Bytes []byte

func (Bytes) layoutValue() {}

// List holds the elements of an array field.
type List []Value

func (List) layoutValue() {}

func (*Record) layoutValue() {}

// Str converts s to a Bytes value.
func Str(s string) Bytes {
	return Bytes(s)
}

// Ints builds a List of Int values.
func Ints(vs ...int64) List {
	out := make(List, len(vs))
	for i, v := range vs {
		out[i] = Int(v)
	}
	return out
}

// ValueKind classifies values for type constraints.
type ValueKind int

const (
	KindAbsent ValueKind = iota
	KindInteger
	KindReal
	KindBytes
	KindList
	KindRecord
)

func (k ValueKind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	default:
		return "absent"
	}
}

// KindOf returns the kind of v.
func KindOf(v Value) ValueKind {
	switch x := v.(type) {
	case Int:
		return KindInteger
	case Real:
		return KindReal
	case Bytes:
		return KindBytes
	case List:
		return KindList
	case *Record:
		if x == nil {
			return KindAbsent
		}
		return KindRecord
	default:
		return KindAbsent
	}
}

// Equal reports whether a and b hold the same value. Records compare by
// definition and field values.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case Int:
		y, ok := b.(Int)
		return ok && x == y
	case Real:
		y, ok := b.(Real)
		return ok && x == y
	case Bytes:
		y, ok := b.(Bytes)
		return ok && bytes.Equal(x, y)
	case List:
		y, ok := b.(List)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case *Record:
		y, ok := b.(*Record)
		return ok && x.Equal(y)
	}
	return false
}

func cloneValue(v Value) Value {
	switch x := v.(type) {
	case Bytes:
		if x == nil {
			return Bytes{}
		}
		return append(Bytes(nil), x...)
	case List:
		out := make(List, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	case *Record:
		if x == nil {
			return nil
		}
		return x.Clone()
	}
	return v
}

func lengthOf(v Value) (int, error) {
	switch x := v.(type) {
	case Bytes:
		return len(x), nil
	case List:
		return len(x), nil
	}
	return 0, fmt.Errorf("%w: %s has no length", ErrWrongType, KindOf(v))
}

func formatValue(v Value) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case Int:
		return strconv.FormatInt(int64(x), 10)
	case Real:
		return strconv.FormatFloat(float64(x), 'g', -1, 64)
	case Bytes:
		return strconv.Quote(string(x))
	case List:
		parts := make([]string, len(x))
		for i := range x {
			parts[i] = formatValue(x[i])
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *Record:
		if x == nil {
			return "None"
		}
		return x.String()
	}
	return fmt.Sprintf("%v", v)
}
