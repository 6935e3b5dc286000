package layout

import (
	"strings"
)

// Record is one instance of a Definition. Setting a field runs its
// constraints, which may update sibling fields. Encoding may also write
// resolved offsets back into fields, so a record must not be shared
// between goroutines without synchronisation.
type Record struct {
	def    *Definition
	values []Value
}

func (r *Record) Definition() *Definition { return r.def }

// Get returns a field's value, nil when the field is absent or unknown.
// The returned value must not be modified.
func (r *Record) Get(name string) Value {
	i, ok := r.def.index[name]
	if !ok {
		return nil
	}
	return r.values[i]
}

// Set assigns a field through its constraints.
func (r *Record) Set(name string, v Value) error {
	i, ok := r.def.index[name]
	if !ok {
		return &UnresolvedFieldsError{Definition: r.def.name, Names: []string{name}}
	}
	return r.set(i, v)
}

func (r *Record) set(i int, v Value) error {
	out, err := r.def.fields[i].assign(r, v)
	if err != nil {
		return err
	}
	r.values[i] = out
	return nil
}

// Int returns an integer field's value.
func (r *Record) Int(name string) (int64, bool) {
	v, ok := r.Get(name).(Int)
	return int64(v), ok
}

// Bytes returns a copy of a byte field's value.
func (r *Record) Bytes(name string) ([]byte, bool) {
	v, ok := r.Get(name).(Bytes)
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

// Sub returns a nested record field's value.
func (r *Record) Sub(name string) (*Record, bool) {
	v, ok := r.Get(name).(*Record)
	return v, ok && v != nil
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	out := &Record{def: r.def, values: make([]Value, len(r.values))}
	for i, v := range r.values {
		out.values[i] = cloneValue(v)
	}
	return out
}

// Equal reports whether o has the same definition and field values.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.def != o.def {
		return false
	}
	for i := range r.values {
		if !Equal(r.values[i], o.values[i]) {
			return false
		}
	}
	return true
}

// String renders the record as Name(field = value, ...).
func (r *Record) String() string {
	var sb strings.Builder
	sb.WriteString(r.def.name)
	sb.WriteByte('(')
	for i, f := range r.def.fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.name)
		sb.WriteString(" = ")
		sb.WriteString(formatValue(r.values[i]))
	}
	sb.WriteByte(')')
	return sb.String()
}
