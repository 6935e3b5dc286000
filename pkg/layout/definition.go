package layout

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Definition is an ordered, immutable list of fields. It is safe to share
// across goroutines; the records it builds are not.
type Definition struct {
	name    string
	fields  []*Field
	index   map[string]int
	pending map[string]bool
}

// Define builds a definition from declarations. Fields are ordered by
// declaration index (their position unless set with At), ties keep their
// position. Options are checked against each kind's accepted set and field
// references must name an earlier integer field.
func Define(name string, decls ...*Decl) (*Definition, error) {
	return (&Definition{}).Extend(name, decls...)
}

// MustDefine is like Define but panics on error. It is meant for package
// level definitions.
func MustDefine(name string, decls ...*Decl) *Definition {
	d, err := Define(name, decls...)
	if err != nil {
		panic(err)
	}
	return d
}

// Extend returns a new definition holding d's fields followed by the given
// declarations, ordered among themselves.
func (d *Definition) Extend(name string, decls ...*Decl) (*Definition, error) {
	if name == "" {
		return nil, &DefinitionError{Definition: d.name, Err: errors.New("layout: definition needs a name")}
	}
	nd := &Definition{
		name:    name,
		fields:  slices.Clone(d.fields),
		index:   make(map[string]int, len(d.fields)+len(decls)),
		pending: make(map[string]bool, len(decls)),
	}
	for i, f := range nd.fields {
		nd.index[f.name] = i
	}

	type entry struct {
		decl  *Decl
		index int
	}
	entries := make([]entry, 0, len(decls))
	for i, decl := range decls {
		if decl == nil {
			return nil, &DefinitionError{Definition: name, Err: fmt.Errorf("layout: declaration %d is nil", i)}
		}
		idx := i
		if decl.hasIndex {
			idx = decl.index
		}
		entries = append(entries, entry{decl: decl, index: idx})
		nd.pending[decl.name] = true
	}
	sort.SliceStable(entries, func(a, b int) bool { return entries[a].index < entries[b].index })

	for _, e := range entries {
		if _, dup := nd.index[e.decl.name]; dup {
			return nil, &DefinitionError{Definition: name, Field: e.decl.name, Err: ErrDuplicateField}
		}
		f, err := e.decl.build(nd, e.index)
		if err != nil {
			return nil, err
		}
		delete(nd.pending, f.name)
		nd.index[f.name] = len(nd.fields)
		nd.fields = append(nd.fields, f)
	}
	nd.pending = nil
	return nd, nil
}

// checkRef validates a FieldRef parameter against the fields built so far.
func (d *Definition) checkRef(p Param) error {
	ref, ok := p.(FieldRef)
	if !ok {
		return nil
	}
	name := string(ref)
	i, ok := d.index[name]
	if !ok {
		if d.pending[name] {
			return fmt.Errorf("%w: %q", ErrForwardRef, name)
		}
		return fmt.Errorf("%w: no field %q", ErrBadRef, name)
	}
	if nk, ok := d.fields[i].kind.(numericKind); !ok || nk.ck.Float {
		return fmt.Errorf("%w: %q is a %s field, not an integer", ErrBadRef, name, d.fields[i].Type())
	}
	return nil
}

func (d *Definition) Name() string { return d.name }

// Fields returns the fields in layout order.
func (d *Definition) Fields() []*Field { return slices.Clone(d.fields) }

// Field looks up a field by name.
func (d *Definition) Field(name string) (*Field, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.fields[i], true
}

func (d *Definition) String() string {
	parts := make([]string, len(d.fields))
	for i, f := range d.fields {
		parts[i] = f.name + " " + f.Type()
	}
	return d.name + "{" + strings.Join(parts, ", ") + "}"
}

// New builds a record. Missing fields take their defaults; every value is
// assigned in layout order so constraints validate and derive as usual.
func (d *Definition) New(values map[string]Value) (*Record, error) {
	var unknown []string
	for name := range values {
		if _, ok := d.index[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &UnresolvedFieldsError{Definition: d.name, Names: unknown}
	}

	r := &Record{def: d, values: make([]Value, len(d.fields))}
	for i, f := range d.fields {
		v, ok := values[f.name]
		if !ok {
			v = f.Default()
		}
		if err := r.set(i, v); err != nil {
			return nil, err
		}
	}
	return r, nil
}
