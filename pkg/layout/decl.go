package layout

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ssargent/cstruct/pkg/codec"
)

// Decl is a field declaration: a name, a kind, options and an optional
// default. Decls are turned into Fields by Define.
type Decl struct {
	name       string
	index      int
	hasIndex   bool
	kind       kind
	elem       *Decl
	opts       []Option
	def        Value
	hasDefault bool
	err        error
}

// At sets the declaration index used to order fields. Fields without an
// explicit index use their position in the Define call.
func (d *Decl) At(index int) *Decl {
	d.index = index
	d.hasIndex = true
	return d
}

// Default sets the value a field takes when a record is built without it.
func (d *Decl) Default(v Value) *Decl {
	d.def = v
	d.hasDefault = true
	return d
}

// Name returns the declared field name.
func (d *Decl) Name() string { return d.name }

// NumericField declares an integer or floating point field. The ctype option
// selects the width and adds bounds; without it the field is a 4-byte
// signed int with no bounds.
func NumericField(name string, opts ...Option) *Decl {
	ctype := "int"
	for _, o := range opts {
		if o.name == OptCType {
			ctype = o.ctype
		}
	}
	d := &Decl{name: name, opts: opts}
	ck, err := codec.LookupKind(ctype)
	if err != nil {
		d.err = err
		ck = codec.Int
	}
	d.kind = numericKind{ck: ck}
	return d
}

func withCType(ctype string, opts []Option) []Option {
	return append(slices.Clone(opts), CType(ctype))
}

// Shorthands for NumericField with a fixed ctype.
func IntField(name string, opts ...Option) *Decl { return NumericField(name, withCType("int", opts)...) }
func UIntField(name string, opts ...Option) *Decl { return NumericField(name, withCType("uint", opts)...) }
func ShortField(name string, opts ...Option) *Decl { return NumericField(name, withCType("short", opts)...) }
func UShortField(name string, opts ...Option) *Decl { return NumericField(name, withCType("ushort", opts)...) }
func ByteField(name string, opts ...Option) *Decl { return NumericField(name, withCType("byte", opts)...) }
func UByteField(name string, opts ...Option) *Decl { return NumericField(name, withCType("ubyte", opts)...) }
func LongField(name string, opts ...Option) *Decl { return NumericField(name, withCType("long", opts)...) }
func ULongField(name string, opts ...Option) *Decl { return NumericField(name, withCType("ulong", opts)...) }
func FloatField(name string, opts ...Option) *Decl { return NumericField(name, withCType("float", opts)...) }
func DoubleField(name string, opts ...Option) *Decl { return NumericField(name, withCType("double", opts)...) }

// StringField declares a byte string of the given length: a Literal (-1 for
// the rest of the buffer), a FieldRef to a count field, or a Computed
// property. Shorter values are zero padded to a literal length. A nil
// length leaves it to a Length option in opts; without one the string runs
// to the end of the buffer.
func StringField(name string, length Param, opts ...Option) *Decl {
	return &Decl{name: name, kind: stringKind{}, opts: withLength(length, opts)}
}

func withLength(length Param, opts []Option) []Option {
	if length == nil {
		return opts
	}
	return append(slices.Clone(opts), Length(length))
}

// NullStringField declares a NUL terminated string. The terminator is part of
// the value.
func NullStringField(name string, opts ...Option) *Decl {
	return &Decl{name: name, kind: nullStringKind{}, opts: opts}
}

// ArrayField declares a run of elements all shaped like elem. Short values are
// padded with elem's default up to a literal length.
func ArrayField(name string, length Param, elem *Decl, opts ...Option) *Decl {
	d := &Decl{name: name, elem: elem, opts: withLength(length, opts)}
	if elem == nil {
		d.err = errors.New("layout: array field needs an element declaration")
	}
	return d
}

// StructField declares a nested record of the given definition.
func StructField(name string, def *Definition, opts ...Option) *Decl {
	d := &Decl{name: name, kind: structKind{def: def}, opts: opts}
	if def == nil {
		d.err = errors.New("layout: struct field needs a definition")
	}
	return d
}

// VarcharField declares a string stored as a uint count followed by its bytes.
func VarcharField(name string, opts ...Option) *Decl {
	return &Decl{name: name, kind: varcharKind{}, opts: opts}
}

// build turns the declaration into a field of owner. Fields already in
// owner are the ones a reference may name.
func (d *Decl) build(owner *Definition, index int) (*Field, error) {
	fail := func(err error) (*Field, error) {
		return nil, &DefinitionError{Definition: owner.name, Field: d.name, Err: err}
	}
	if d.err != nil {
		return fail(d.err)
	}
	if d.name == "" {
		return fail(errors.New("layout: field needs a name"))
	}

	k := d.kind
	if d.elem != nil {
		ed := *d.elem
		ed.name = d.name + "[]"
		elem, err := ed.build(owner, 0)
		if err != nil {
			return nil, err
		}
		k = &arrayKind{elem: elem}
	}

	f := &Field{name: d.name, index: index, kind: k}
	table := k.options()
	for _, o := range dedupe(d.opts) {
		ctor, ok := table[o.name]
		if !ok {
			return fail(fmt.Errorf("%w: %q on %s field", ErrUnknownOption, o.name, k.typeName()))
		}
		if err := owner.checkRef(o.param); err != nil {
			return fail(err)
		}
		c, err := ctor(o)
		if err != nil {
			return fail(err)
		}
		if c == nil {
			continue
		}
		f.addConstraint(c)
		if o.omit {
			if f.omit == nil {
				f.omit = make(map[string]bool)
			}
			f.omit[c.Keyword()] = true
		}
	}
	for _, c := range k.implicit() {
		f.addConstraint(c)
	}
	f.nullable = len(f.omit) > 0

	if d.hasDefault {
		f.def = cloneValue(d.def)
	} else {
		f.def = k.zero()
	}
	return f, nil
}
