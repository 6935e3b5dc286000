package layout

import (
	"fmt"

	"github.com/ssargent/cstruct/pkg/codec"
)

// kind is the byte-level behaviour of a field: which options it accepts,
// which constraints it always carries, and how its value maps to bytes.
type kind interface {
	typeName() string
	options() optionTable
	implicit() []Constraint
	zero() Value
	width(ctx *Context) (int, error)
	write(ctx *Context) ([]byte, error)
	read(ctx *Context) (Value, int, error)
}

// VarString is the layout behind varchar fields: a uint count followed by
// that many bytes.
var VarString = MustDefine("VarString",
	UIntField("length"),
	StringField("text", Ref("length")),
)

type numericKind struct {
	ck codec.Kind
}

func (k numericKind) typeName() string { return k.ck.Name }

func (k numericKind) options() optionTable {
	return commonOptions().with(OptCType, ctypeOption)
}

func (k numericKind) implicit() []Constraint {
	if k.ck.Float {
		return []Constraint{newType(KindReal, nil)}
	}
	return []Constraint{newType(KindInteger, nil)}
}

func (k numericKind) zero() Value {
	if k.ck.Float {
		return Real(0)
	}
	return Int(0)
}

func (k numericKind) width(ctx *Context) (int, error) { return k.ck.Size, nil }

func (k numericKind) write(ctx *Context) ([]byte, error) {
	switch v := ctx.Value.(type) {
	case Int:
		return k.ck.AppendInt(nil, int64(v))
	case Real:
		if !k.ck.Float {
			return nil, fmt.Errorf("%w: %s field cannot hold a real", ErrWrongType, k.ck.Name)
		}
		return k.ck.AppendFloat(nil, float64(v))
	}
	return nil, fmt.Errorf("%w: %s field cannot hold %s", ErrWrongType, k.ck.Name, KindOf(ctx.Value))
}

func (k numericKind) read(ctx *Context) (Value, int, error) {
	if k.ck.Float {
		f, err := k.ck.Float64(ctx.Buf, ctx.Offset)
		if err != nil {
			return nil, 0, err
		}
		return Real(f), k.ck.Size, nil
	}
	i, err := k.ck.Int(ctx.Buf, ctx.Offset)
	if err != nil {
		return nil, 0, err
	}
	return Int(i), k.ck.Size, nil
}

// rawBytes is shared by string and null string fields: the value is
// written as is and read back with the length stashed by a constraint.
type rawBytes struct{}

func (rawBytes) zero() Value { return Bytes{} }

func (rawBytes) width(ctx *Context) (int, error) {
	b, err := stashedBytes(ctx)
	return len(b), err
}

func (rawBytes) write(ctx *Context) ([]byte, error) {
	b, err := stashedBytes(ctx)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

func (rawBytes) read(ctx *Context) (Value, int, error) {
	n, ok := ctx.Stashed(StashLength)
	if !ok || n == -1 {
		n = codec.Remaining(ctx.Buf, ctx.Offset)
	}
	if n < 0 {
		return nil, 0, fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}
	b, err := codec.Slice(ctx.Buf, ctx.Offset, n)
	if err != nil {
		return nil, 0, err
	}
	return Bytes(b), n, nil
}

func stashedBytes(ctx *Context) (Bytes, error) {
	b, ok := ctx.Value.(Bytes)
	if !ok {
		return nil, fmt.Errorf("%w: expected bytes, got %s", ErrWrongType, KindOf(ctx.Value))
	}
	if n, ok := ctx.Stashed(StashLength); ok && n != len(b) {
		return nil, fmt.Errorf("%w: resolved %d bytes for a %d byte value", ErrInvalidLength, n, len(b))
	}
	return b, nil
}

type stringKind struct{ rawBytes }

func (stringKind) typeName() string { return "string" }

func (stringKind) options() optionTable {
	return commonOptions().with(OptLength, lengthOption(padBytes))
}

func (stringKind) implicit() []Constraint {
	return []Constraint{newType(KindBytes, nil)}
}

type nullStringKind struct{ rawBytes }

func (nullStringKind) typeName() string { return "nullstring" }

func (nullStringKind) options() optionTable {
	return commonOptions().with(OptMaxLength, maxLengthOption)
}

func (nullStringKind) implicit() []Constraint {
	return []Constraint{newType(KindBytes, nil), newTerminator()}
}

func (nullStringKind) zero() Value { return Bytes{0} }

type arrayKind struct {
	elem *Field
}

func (k *arrayKind) typeName() string { return "array" }

func (k *arrayKind) options() optionTable {
	return commonOptions().with(OptLength, lengthOption(k.pad))
}

func (k *arrayKind) implicit() []Constraint {
	return []Constraint{newType(KindList, nil), newElements(k.elem)}
}

func (k *arrayKind) zero() Value { return List{} }

func (k *arrayKind) pad(ctx *Context, v Value, n int) (Value, error) {
	list, _ := v.(List)
	out := append(List(nil), list...)
	for i := 0; i < n; i++ {
		e, err := k.elem.assign(ctx.Record, k.elem.Default())
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (k *arrayKind) list(ctx *Context) (List, error) {
	list, ok := ctx.Value.(List)
	if !ok {
		return nil, fmt.Errorf("%w: expected list, got %s", ErrWrongType, KindOf(ctx.Value))
	}
	if n, ok := ctx.Stashed(StashLength); ok && n != len(list) {
		return nil, fmt.Errorf("%w: resolved %d elements for a %d element value", ErrInvalidLength, n, len(list))
	}
	return list, nil
}

func (k *arrayKind) width(ctx *Context) (int, error) {
	list, err := k.list(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, item := range list {
		n, err := k.elem.measure(ctx.Record, item, ctx.Offset+total)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (k *arrayKind) write(ctx *Context) ([]byte, error) {
	list, err := k.list(ctx)
	if err != nil {
		return nil, err
	}
	var out []byte
	for _, item := range list {
		b, err := k.elem.emit(ctx.Record, item, ctx.Offset+len(out))
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

func (k *arrayKind) read(ctx *Context) (Value, int, error) {
	count, ok := ctx.Stashed(StashLength)
	if !ok {
		count = -1
	}
	if count < -1 {
		return nil, 0, fmt.Errorf("%w: %d", ErrInvalidLength, count)
	}
	list := List{}
	off := ctx.Offset
	for i := 0; count == -1 || i < count; i++ {
		if count == -1 && off >= len(ctx.Buf) {
			break
		}
		v, n, err := k.elem.decode(ctx.Record, ctx.Buf, off)
		if err != nil {
			return nil, 0, fmt.Errorf("element %d: %w", i, err)
		}
		if count == -1 && n == 0 {
			break
		}
		list = append(list, v)
		off += n
	}
	return list, off - ctx.Offset, nil
}

type structKind struct {
	def *Definition
}

func (k structKind) typeName() string { return k.def.Name() }

func (k structKind) options() optionTable { return commonOptions() }

func (k structKind) implicit() []Constraint {
	return []Constraint{newType(KindRecord, k.def)}
}

func (k structKind) zero() Value {
	rec, err := k.def.New(nil)
	if err != nil {
		return nil
	}
	return rec
}

func (k structKind) record(ctx *Context) (*Record, error) {
	rec, ok := ctx.Value.(*Record)
	if !ok || rec == nil {
		return nil, fmt.Errorf("%w: expected %s record, got %s", ErrWrongType, k.def.Name(), KindOf(ctx.Value))
	}
	return rec, nil
}

func (k structKind) width(ctx *Context) (int, error) {
	rec, err := k.record(ctx)
	if err != nil {
		return 0, err
	}
	widths, err := rec.dryRun(ctx.Offset)
	if err != nil {
		return 0, err
	}
	return sum(widths), nil
}

func (k structKind) write(ctx *Context) ([]byte, error) {
	rec, err := k.record(ctx)
	if err != nil {
		return nil, err
	}
	return rec.emit(ctx.Offset, nil)
}

func (k structKind) read(ctx *Context) (Value, int, error) {
	rec, next, err := k.def.Decode(ctx.Buf, ctx.Offset)
	if err != nil {
		return nil, 0, err
	}
	return rec, next - ctx.Offset, nil
}

type varcharKind struct{}

func (varcharKind) typeName() string { return "varchar" }

func (varcharKind) options() optionTable { return commonOptions() }

func (varcharKind) implicit() []Constraint {
	return []Constraint{newType(KindBytes, nil)}
}

func (varcharKind) zero() Value { return Bytes{} }

func (varcharKind) wrap(ctx *Context) (*Record, error) {
	return VarString.New(map[string]Value{"text": ctx.Value})
}

func (k varcharKind) width(ctx *Context) (int, error) {
	rec, err := k.wrap(ctx)
	if err != nil {
		return 0, err
	}
	widths, err := rec.dryRun(ctx.Offset)
	if err != nil {
		return 0, err
	}
	return sum(widths), nil
}

func (k varcharKind) write(ctx *Context) ([]byte, error) {
	rec, err := k.wrap(ctx)
	if err != nil {
		return nil, err
	}
	return rec.Encode(ctx.Offset)
}

func (varcharKind) read(ctx *Context) (Value, int, error) {
	rec, next, err := VarString.Decode(ctx.Buf, ctx.Offset)
	if err != nil {
		return nil, 0, err
	}
	return rec.Get("text"), next - ctx.Offset, nil
}

func sum(ns []int) int {
	total := 0
	for _, n := range ns {
		total += n
	}
	return total
}
