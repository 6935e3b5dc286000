package layout

import (
	"fmt"
	"strconv"
)

// Param is the argument of an offset, length or max_length option: a
// Literal, a FieldRef or a Computed property.
type Param interface {
	param()
	String() string
}

// Literal is a fixed numeric parameter. A length of -1 means "the rest of
// the buffer" on decode and "unlimited" on assign.
type Literal int

func (Literal) param() {}

func (l Literal) String() string { return strconv.Itoa(int(l)) }

// FieldRef names an earlier integer field of the same record.
type FieldRef string

func (FieldRef) param() {}

func (r FieldRef) String() string { return "@" + string(r) }

// Computed is a derived property. Get supplies the length on decode, Set
// receives the value's length on assign. A nil Set leaves assignment
// unchanged.
type Computed struct {
	Name string
	Get  func(ctx *Context) (int, error)
	Set  func(ctx *Context, n int) error
}

func (Computed) param() {}

func (c Computed) String() string { return "<" + c.Name + ">" }

// Lit returns a literal parameter.
func Lit(n int) Literal { return Literal(n) }

// Ref returns a reference to the named field.
func Ref(name string) FieldRef { return FieldRef(name) }

// resolve returns the integer a parameter denotes in ctx.
func resolve(p Param, ctx *Context) (int, error) {
	switch x := p.(type) {
	case Literal:
		return int(x), nil
	case FieldRef:
		v, ok := ctx.Record.Get(string(x)).(Int)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrMissingRef, string(x))
		}
		return int(v), nil
	case Computed:
		if x.Get == nil {
			return 0, fmt.Errorf("%w: %s", ErrMissingProperty, x.Name)
		}
		return x.Get(ctx)
	}
	return 0, fmt.Errorf("%w: %v", ErrInvalidParam, p)
}
