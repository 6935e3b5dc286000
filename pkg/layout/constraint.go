package layout

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/ssargent/cstruct/pkg/codec"
)

// Constraint priorities. Lower runs first on decode and assign, last on
// encode.
const (
	PriorityOffset     = 100
	PriorityPrefix     = 500
	PriorityType       = 600
	PriorityLength     = 700
	PriorityMaxLength  = 750
	PriorityTerminator = 760
	PriorityBounds     = 800
)

// Constraint is a priority-ranked rule attached to a field.
//
// BeforeDecode is a structural precheck: a non-nil error means the field
// is not present at the cursor. BeforeEncode runs during the dry run and
// may derive values, OnEncode runs right before bytes are produced, and
// OnAssign validates a value being stored and may rewrite ctx.Value.
type Constraint interface {
	fmt.Stringer
	Name() string
	Priority() int
	// Keyword is the option name the constraint was declared under, empty
	// for constraints a field kind adds implicitly.
	Keyword() string
	BeforeDecode(ctx *Context) error
	BeforeEncode(ctx *Context) error
	OnEncode(ctx *Context) error
	OnAssign(ctx *Context) error
}

type baseConstraint struct {
	name     string
	priority int
	keyword  string
}

func (b baseConstraint) Name() string                    { return b.name }
func (b baseConstraint) Priority() int                   { return b.priority }
func (b baseConstraint) Keyword() string                 { return b.keyword }
func (b baseConstraint) String() string                  { return b.name }
func (b baseConstraint) BeforeDecode(ctx *Context) error { return nil }
func (b baseConstraint) BeforeEncode(ctx *Context) error { return nil }
func (b baseConstraint) OnEncode(ctx *Context) error     { return nil }
func (b baseConstraint) OnAssign(ctx *Context) error     { return nil }

// offsetConstraint pins a field to an absolute position. A literal is
// checked in both directions; a field reference is checked on decode and
// written back with the field's position during the encode dry run.
type offsetConstraint struct {
	baseConstraint
	target Param
}

func newOffset(keyword string, target Param) (*offsetConstraint, error) {
	switch target.(type) {
	case Literal, FieldRef:
	default:
		return nil, fmt.Errorf("%w: offset takes a number or a field name, got %v", ErrInvalidParam, target)
	}
	return &offsetConstraint{
		baseConstraint: baseConstraint{name: "offset", priority: PriorityOffset, keyword: keyword},
		target:         target,
	}, nil
}

func (c *offsetConstraint) String() string { return "offset=" + c.target.String() }

func (c *offsetConstraint) BeforeDecode(ctx *Context) error {
	want, err := resolve(c.target, ctx)
	if err != nil {
		return err
	}
	if want != ctx.Offset {
		return fmt.Errorf("%w: field at %d, declared %d", ErrOffsetMismatch, ctx.Offset, want)
	}
	return nil
}

func (c *offsetConstraint) BeforeEncode(ctx *Context) error {
	ref, ok := c.target.(FieldRef)
	if !ok {
		return nil
	}
	return ctx.Record.Set(string(ref), Int(ctx.Offset))
}

func (c *offsetConstraint) OnEncode(ctx *Context) error {
	lit, ok := c.target.(Literal)
	if !ok {
		return nil
	}
	if int(lit) != ctx.Offset {
		return fmt.Errorf("%w: field at %d, declared %d", ErrOffsetMismatch, ctx.Offset, int(lit))
	}
	return nil
}

// prefixConstraint requires literal bytes at the cursor. The bytes belong
// to the field's own value; nothing is written for them on encode.
type prefixConstraint struct {
	baseConstraint
	expected []byte
}

func newPrefix(keyword string, expected []byte) *prefixConstraint {
	return &prefixConstraint{
		baseConstraint: baseConstraint{name: "prefix", priority: PriorityPrefix, keyword: keyword},
		expected:       append([]byte(nil), expected...),
	}
}

func (c *prefixConstraint) String() string { return "prefix=0x" + hex.EncodeToString(c.expected) }

func (c *prefixConstraint) BeforeDecode(ctx *Context) error {
	if !codec.HasPrefix(ctx.Buf, ctx.Offset, c.expected) {
		return fmt.Errorf("%w: want 0x%s at offset %d", ErrPrefixMismatch, hex.EncodeToString(c.expected), ctx.Offset)
	}
	return nil
}

// Expected returns a copy of the prefix bytes.
func (c *prefixConstraint) Expected() []byte {
	return append([]byte(nil), c.expected...)
}

// typeConstraint restricts assigned values to one kind. Integers assigned
// to a real field are widened. For records the definition must match too.
type typeConstraint struct {
	baseConstraint
	want ValueKind
	def  *Definition
}

func newType(want ValueKind, def *Definition) *typeConstraint {
	return &typeConstraint{
		baseConstraint: baseConstraint{name: "type", priority: PriorityType},
		want:           want,
		def:            def,
	}
}

func (c *typeConstraint) String() string {
	if c.def != nil {
		return "type=" + c.def.Name()
	}
	return "type=" + c.want.String()
}

func (c *typeConstraint) OnAssign(ctx *Context) error {
	if i, ok := ctx.Value.(Int); ok && c.want == KindReal {
		ctx.Value = Real(i)
		return nil
	}
	got := KindOf(ctx.Value)
	if got != c.want {
		return fmt.Errorf("%w: field %s accepts only %s values, got %s", ErrWrongType, ctx.Field.Name(), c.want, got)
	}
	switch x := ctx.Value.(type) {
	case Bytes:
		ctx.Value = cloneValue(x)
	case List:
		ctx.Value = append(List(nil), x...)
	case *Record:
		if c.def != nil && x.Definition() != c.def {
			return fmt.Errorf("%w: field %s accepts only %s records, got %s",
				ErrWrongType, ctx.Field.Name(), c.def.Name(), x.Definition().Name())
		}
	}
	return nil
}

// boundsConstraint rejects values outside [lower, upper].
type boundsConstraint struct {
	baseConstraint
	lower, upper int64
}

var ctypeBounds = map[string][2]int64{
	"byte":   {-127, 128},
	"ubyte":  {0, 255},
	"short":  {-(1 << 15) + 1, 1 << 15},
	"ushort": {0, 1<<16 - 1},
	"int":    {-(1 << 31) + 1, 1 << 31},
	"uint":   {0, 1<<32 - 1},
	"long":   {math.MinInt64 + 1, math.MaxInt64},
	"ulong":  {0, math.MaxInt64},
}

// newBounds returns nil for kinds that carry no bounds (float, double).
func newBounds(keyword, ctype string) (*boundsConstraint, error) {
	k, err := codec.LookupKind(ctype)
	if err != nil {
		return nil, err
	}
	if k.Float {
		return nil, nil
	}
	b := ctypeBounds[ctype]
	return &boundsConstraint{
		baseConstraint: baseConstraint{name: "bounds", priority: PriorityBounds, keyword: keyword},
		lower:          b[0],
		upper:          b[1],
	}, nil
}

// Bounds returns the inclusive range.
func (c *boundsConstraint) Bounds() (lower, upper int64) { return c.lower, c.upper }

func (c *boundsConstraint) String() string {
	return fmt.Sprintf("bounds=[%d,%d]", c.lower, c.upper)
}

func (c *boundsConstraint) OnAssign(ctx *Context) error {
	v, ok := ctx.Value.(Int)
	if !ok {
		return fmt.Errorf("%w: bounds apply to integers, got %s", ErrWrongType, KindOf(ctx.Value))
	}
	if int64(v) < c.lower || int64(v) > c.upper {
		return fmt.Errorf("%w: field %s value %d not in [%d, %d]", ErrOutOfBounds, ctx.Field.Name(), int64(v), c.lower, c.upper)
	}
	return nil
}

// padFunc extends v by n units for a fixed length.
type padFunc func(ctx *Context, v Value, n int) (Value, error)

// lengthConstraint resolves the byte length or element count of a field.
// On decode the resolved length is stashed under key. On assign a literal
// caps the value (padding it when pad is set), a field reference is
// written back with the value's length and a computed property receives
// it. The encode dry run repeats the write-back.
type lengthConstraint struct {
	baseConstraint
	source Param
	key    string
	pad    padFunc
}

func newLength(name, keyword string, priority int, source Param, pad padFunc) (*lengthConstraint, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: %s needs a parameter", ErrInvalidParam, name)
	}
	return &lengthConstraint{
		baseConstraint: baseConstraint{name: name, priority: priority, keyword: keyword},
		source:         source,
		key:            name,
		pad:            pad,
	}, nil
}

// Source returns the parameter the length comes from.
func (c *lengthConstraint) Source() Param { return c.source }

func (c *lengthConstraint) String() string { return c.name + "=" + c.source.String() }

// BeforeDecode stashes the resolved length. Only a literal may be -1;
// a negative length read from the record is invalid.
func (c *lengthConstraint) BeforeDecode(ctx *Context) error {
	n, err := resolve(c.source, ctx)
	if err != nil {
		return err
	}
	if _, lit := c.source.(Literal); !lit && n < 0 {
		return fmt.Errorf("%w: %s resolved to %d", ErrInvalidLength, c.source, n)
	}
	ctx.Stash(c.key, n)
	return nil
}

// BeforeEncode writes the value's length back into its source so the
// emitted count always matches the emitted value.
func (c *lengthConstraint) BeforeEncode(ctx *Context) error {
	n, err := c.stashValueLength(ctx)
	if err != nil {
		return err
	}
	return c.writeBack(ctx, n)
}

func (c *lengthConstraint) OnEncode(ctx *Context) error {
	_, err := c.stashValueLength(ctx)
	return err
}

func (c *lengthConstraint) stashValueLength(ctx *Context) (int, error) {
	n, err := lengthOf(ctx.Value)
	if err != nil {
		return 0, err
	}
	ctx.Stash(c.key, n)
	return n, nil
}

func (c *lengthConstraint) OnAssign(ctx *Context) error {
	n, err := lengthOf(ctx.Value)
	if err != nil {
		return err
	}
	if lit, ok := c.source.(Literal); ok {
		return c.check(ctx, n, int(lit))
	}
	return c.writeBack(ctx, n)
}

func (c *lengthConstraint) writeBack(ctx *Context, n int) error {
	switch src := c.source.(type) {
	case Computed:
		if src.Set == nil {
			return nil
		}
		return src.Set(ctx, n)
	case FieldRef:
		return ctx.Record.Set(string(src), Int(n))
	}
	return nil
}

func (c *lengthConstraint) check(ctx *Context, n, limit int) error {
	if limit < 0 {
		return nil
	}
	if n > limit {
		return fmt.Errorf("%w: field %s holds %d, limit %d", ErrTooLong, ctx.Field.Name(), n, limit)
	}
	if n < limit && c.pad != nil {
		v, err := c.pad(ctx, ctx.Value, limit-n)
		if err != nil {
			return err
		}
		ctx.Value = v
	}
	return nil
}

// terminatorConstraint finds the NUL ending a null string on decode,
// which must fall within a stashed max_length, and requires assigned
// values to end in NUL.
type terminatorConstraint struct {
	baseConstraint
}

func newTerminator() *terminatorConstraint {
	return &terminatorConstraint{
		baseConstraint: baseConstraint{name: "terminator", priority: PriorityTerminator},
	}
}

func (c *terminatorConstraint) BeforeDecode(ctx *Context) error {
	idx := codec.IndexByte(ctx.Buf, ctx.Offset, 0)
	if idx < 0 {
		return fmt.Errorf("%w: no NUL after offset %d", ErrUnterminated, ctx.Offset)
	}
	n := idx + 1
	if limit, ok := ctx.Stashed(StashMaxLength); ok && limit >= 0 && limit < n {
		return fmt.Errorf("%w: no NUL within max_length %d after offset %d", ErrUnterminated, limit, ctx.Offset)
	}
	ctx.Stash(StashLength, n)
	return nil
}

func (c *terminatorConstraint) BeforeEncode(ctx *Context) error { return c.stash(ctx) }

func (c *terminatorConstraint) OnEncode(ctx *Context) error { return c.stash(ctx) }

func (c *terminatorConstraint) stash(ctx *Context) error {
	n, err := lengthOf(ctx.Value)
	if err != nil {
		return err
	}
	ctx.Stash(StashLength, n)
	return nil
}

func (c *terminatorConstraint) OnAssign(ctx *Context) error {
	b, ok := ctx.Value.(Bytes)
	if !ok {
		return fmt.Errorf("%w: null string needs bytes, got %s", ErrWrongType, KindOf(ctx.Value))
	}
	if len(b) == 0 || b[len(b)-1] != 0 {
		return fmt.Errorf("%w: field %s value must end with a NUL byte", ErrUnterminated, ctx.Field.Name())
	}
	return nil
}

// elementsConstraint assigns each array element through the element
// field so element-level constraints apply.
type elementsConstraint struct {
	baseConstraint
	elem *Field
}

func newElements(elem *Field) *elementsConstraint {
	return &elementsConstraint{
		baseConstraint: baseConstraint{name: "elements", priority: PriorityType},
		elem:           elem,
	}
}

func (c *elementsConstraint) String() string { return "elements=" + c.elem.Type() }

func (c *elementsConstraint) OnAssign(ctx *Context) error {
	list, ok := ctx.Value.(List)
	if !ok {
		return fmt.Errorf("%w: array needs a list, got %s", ErrWrongType, KindOf(ctx.Value))
	}
	out := make(List, len(list))
	for i, item := range list {
		v, err := c.elem.assign(ctx.Record, item)
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v
	}
	ctx.Value = out
	return nil
}

func padBytes(_ *Context, v Value, n int) (Value, error) {
	b, _ := v.(Bytes)
	return append(append(Bytes(nil), b...), bytes.Repeat([]byte{0}, n)...), nil
}
