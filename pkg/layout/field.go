package layout

import (
	"errors"
	"slices"
)

// Field is the built descriptor of one declared field. It is read-only
// once its definition has been built.
type Field struct {
	name        string
	index       int
	kind        kind
	def         Value
	constraints []Constraint
	omit        map[string]bool
	nullable    bool
}

func (f *Field) Name() string { return f.name }

// Index is the declaration index the field was ordered by.
func (f *Field) Index() int { return f.index }

// Type names the field kind: a ctype, "string", "nullstring", "array",
// "varchar" or the nested definition's name.
func (f *Field) Type() string { return f.kind.typeName() }

// Nullable reports whether the field may be absent. Only fields with an
// omit-on-failure option are nullable.
func (f *Field) Nullable() bool { return f.nullable }

// Omits reports whether a failure of constraints declared under keyword
// makes the field absent.
func (f *Field) Omits(keyword string) bool { return keyword != "" && f.omit[keyword] }

// Default returns a copy of the field's default value.
func (f *Field) Default() Value { return cloneValue(f.def) }

// Constraints returns the field's constraints in priority order.
func (f *Field) Constraints() []Constraint { return slices.Clone(f.constraints) }

// Element returns the element field of an array, nil otherwise.
func (f *Field) Element() *Field {
	if k, ok := f.kind.(*arrayKind); ok {
		return k.elem
	}
	return nil
}

// Layout returns the definition of a nested record field, nil otherwise.
func (f *Field) Layout() *Definition {
	switch k := f.kind.(type) {
	case structKind:
		return k.def
	case varcharKind:
		return VarString
	}
	return nil
}

// addConstraint keeps constraints sorted by ascending priority. Equal
// priorities stay in insertion order.
func (f *Field) addConstraint(c Constraint) {
	i := len(f.constraints)
	for i > 0 && f.constraints[i-1].Priority() > c.Priority() {
		i--
	}
	f.constraints = slices.Insert(f.constraints, i, c)
}

func (f *Field) decode(acc Accessor, buf []byte, off int) (Value, int, error) {
	ctx := &Context{Record: acc, Field: f, Buf: buf, Offset: off}
	for _, c := range f.constraints {
		if err := c.BeforeDecode(ctx); err != nil {
			if f.Omits(c.Keyword()) {
				return nil, 0, nil
			}
			return nil, 0, &DecodeError{Field: f.name, Constraint: c, Offset: off, Err: err}
		}
	}
	v, n, err := f.kind.read(ctx)
	if err != nil {
		return nil, 0, &DecodeError{Field: f.name, Offset: off, Err: err}
	}
	return v, n, nil
}

func (f *Field) measure(acc Accessor, v Value, off int) (int, error) {
	if v == nil && f.nullable {
		return 0, nil
	}
	ctx := &Context{Record: acc, Field: f, Offset: off, Value: v}
	for i := len(f.constraints) - 1; i >= 0; i-- {
		c := f.constraints[i]
		if err := c.BeforeEncode(ctx); err != nil {
			return 0, f.encodeError(c, v, off, err)
		}
	}
	n, err := f.kind.width(ctx)
	if err != nil {
		return 0, f.encodeError(nil, v, off, err)
	}
	return n, nil
}

func (f *Field) emit(acc Accessor, v Value, off int) ([]byte, error) {
	if v == nil && f.nullable {
		return nil, nil
	}
	ctx := &Context{Record: acc, Field: f, Offset: off, Value: v}
	for i := len(f.constraints) - 1; i >= 0; i-- {
		c := f.constraints[i]
		if err := c.OnEncode(ctx); err != nil {
			return nil, f.encodeError(c, v, off, err)
		}
	}
	b, err := f.kind.write(ctx)
	if err != nil {
		return nil, f.encodeError(nil, v, off, err)
	}
	return b, nil
}

func (f *Field) assign(acc Accessor, v Value) (Value, error) {
	if v == nil && f.nullable {
		return nil, nil
	}
	ctx := &Context{Record: acc, Field: f, Value: v}
	for _, c := range f.constraints {
		if err := c.OnAssign(ctx); err != nil {
			if structured(err) {
				return nil, err
			}
			return nil, &ValueError{Field: f.name, Value: v, Constraint: c, Err: err}
		}
	}
	return ctx.Value, nil
}

func (f *Field) encodeError(c Constraint, v Value, off int, err error) error {
	if structured(err) {
		return err
	}
	if errors.Is(err, ErrOffsetMismatch) {
		return &PackError{Field: f.name, Offset: off, Constraint: c, Err: err}
	}
	return &ValueError{Field: f.name, Value: v, Constraint: c, Err: err}
}
