package schema

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/cstruct/pkg/codec"
	"github.com/ssargent/cstruct/pkg/layout"
)

var (
	// ErrUnknownLayout is returned when a name does not resolve to a layout.
	ErrUnknownLayout = errors.New("schema: unknown layout")
	// ErrInvalidField is returned for malformed field entries.
	ErrInvalidField = errors.New("schema: invalid field")
)

// HexPrefix marks a byte string written as hex digits.
const HexPrefix = "hex:"

// Document is the on-disk schema file.
type Document struct {
	Layouts []LayoutSpec `yaml:"layouts"`
}

// LayoutSpec declares one layout.
type LayoutSpec struct {
	Name    string           `yaml:"name"`
	Extends string           `yaml:"extends,omitempty"`
	Fields  []map[string]any `yaml:"fields"`
}

// structural keys of a field entry; every other key is an option.
var structural = map[string]bool{
	"name":    true,
	"type":    true,
	"default": true,
	"index":   true,
	"element": true,
	"layout":  true,
}

// Registry holds named layouts. VarString is always present.
type Registry struct {
	defs  map[string]*layout.Definition
	order []string
}

// NewRegistry returns a registry holding only the builtin layouts.
func NewRegistry() *Registry {
	r := &Registry{defs: make(map[string]*layout.Definition)}
	r.defs[layout.VarString.Name()] = layout.VarString
	return r
}

// Register adds a definition under its name.
func (r *Registry) Register(def *layout.Definition) error {
	if _, exists := r.defs[def.Name()]; exists {
		return fmt.Errorf("schema: layout %q already registered", def.Name())
	}
	r.defs[def.Name()] = def
	r.order = append(r.order, def.Name())
	return nil
}

// Lookup returns the named definition.
func (r *Registry) Lookup(name string) (*layout.Definition, error) {
	def, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayout, name)
	}
	return def, nil
}

// Names lists registered layouts in registration order. Builtins are not
// listed.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// LoadFile reads a schema file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return Parse(data)
}

// Load reads a schema document from rd.
func Load(rd io.Reader) (*Registry, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	return Parse(data)
}

// Parse builds a registry from a YAML schema document. Layouts may extend
// or embed only layouts declared before them.
func Parse(data []byte) (*Registry, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	r := NewRegistry()
	for _, spec := range doc.Layouts {
		def, err := r.build(spec)
		if err != nil {
			return nil, err
		}
		if err := r.Register(def); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) build(spec LayoutSpec) (*layout.Definition, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("%w: layout without a name", ErrInvalidField)
	}
	decls := make([]*layout.Decl, 0, len(spec.Fields))
	for i, f := range spec.Fields {
		d, err := r.decl(f)
		if err != nil {
			return nil, fmt.Errorf("layout %s field %d: %w", spec.Name, i, err)
		}
		decls = append(decls, d)
	}
	if spec.Extends == "" {
		return layout.Define(spec.Name, decls...)
	}
	base, err := r.Lookup(spec.Extends)
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", spec.Name, err)
	}
	return base.Extend(spec.Name, decls...)
}

func (r *Registry) decl(spec map[string]any) (*layout.Decl, error) {
	name, _ := spec["name"].(string)
	typ, _ := spec["type"].(string)
	if typ == "" {
		return nil, fmt.Errorf("%w: %q has no type", ErrInvalidField, name)
	}

	opts, err := options(spec)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", name, err)
	}

	var d *layout.Decl
	switch typ {
	case "numeric":
		d = layout.NumericField(name, opts...)
	case "string":
		d = layout.StringField(name, nil, opts...)
	case "nullstring":
		d = layout.NullStringField(name, opts...)
	case "varchar":
		d = layout.VarcharField(name, opts...)
	case "array":
		raw, ok := spec["element"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: array %q needs an element mapping", ErrInvalidField, name)
		}
		elem, err := r.decl(raw)
		if err != nil {
			return nil, fmt.Errorf("array %q element: %w", name, err)
		}
		d = layout.ArrayField(name, nil, elem, opts...)
	case "struct":
		ref, _ := spec["layout"].(string)
		def, err := r.Lookup(ref)
		if err != nil {
			return nil, fmt.Errorf("struct %q: %w", name, err)
		}
		d = layout.StructField(name, def, opts...)
	default:
		if def, ok := r.defs[typ]; ok {
			d = layout.StructField(name, def, opts...)
			break
		}
		if _, err := codec.LookupKind(typ); err != nil {
			return nil, fmt.Errorf("%w: field %q has unknown type %q", ErrInvalidField, name, typ)
		}
		d = layout.NumericField(name, append(opts, layout.CType(typ))...)
	}

	if raw, ok := spec["index"]; ok {
		idx, ok := raw.(int)
		if !ok {
			return nil, fmt.Errorf("%w: index of %q must be an integer", ErrInvalidField, name)
		}
		d.At(idx)
	}
	if raw, ok := spec["default"]; ok {
		v, err := scalarValue(raw)
		if err != nil {
			return nil, fmt.Errorf("default of %q: %w", name, err)
		}
		d.Default(v)
	}
	return d, nil
}

// options converts every non-structural key of a field entry. Keys are
// visited in sorted order so errors are deterministic.
func options(spec map[string]any) ([]layout.Option, error) {
	keys := make([]string, 0, len(spec))
	for k := range spec {
		if !structural[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	opts := make([]layout.Option, 0, len(keys))
	for _, key := range keys {
		name, omit := layout.ParseOptionName(key)
		opt, err := option(name, spec[key])
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", key, err)
		}
		if omit {
			opt = opt.OrOmit()
		}
		opts = append(opts, opt)
	}
	return opts, nil
}

func option(name layout.OptionName, raw any) (layout.Option, error) {
	switch name {
	case layout.OptOffset:
		p, err := param(raw)
		return layout.Offset(p), err
	case layout.OptLength:
		p, err := param(raw)
		return layout.Length(p), err
	case layout.OptMaxLength:
		p, err := param(raw)
		return layout.MaxLength(p), err
	case layout.OptPrefix:
		s, ok := raw.(string)
		if !ok {
			return layout.Option{}, fmt.Errorf("%w: prefix must be a string", ErrInvalidField)
		}
		b, err := ParseBytes(s)
		return layout.Prefix(b), err
	case layout.OptCType:
		s, ok := raw.(string)
		if !ok {
			return layout.Option{}, fmt.Errorf("%w: ctype must be a string", ErrInvalidField)
		}
		return layout.CType(s), nil
	}
	return layout.Option{}, fmt.Errorf("%w: unknown key", ErrInvalidField)
}

func param(raw any) (layout.Param, error) {
	switch v := raw.(type) {
	case int:
		return layout.Lit(v), nil
	case string:
		return layout.Ref(v), nil
	}
	return nil, fmt.Errorf("%w: want a number or a field name, got %T", ErrInvalidField, raw)
}

// ParseBytes decodes a byte string, hex encoded when it starts with
// HexPrefix.
func ParseBytes(s string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(s, HexPrefix); ok {
		b, err := hex.DecodeString(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: bad hex string: %v", ErrInvalidField, err)
		}
		return b, nil
	}
	return []byte(s), nil
}

// scalarValue converts a YAML default without knowing the field kind. The
// field's constraints check and widen it on assignment.
func scalarValue(raw any) (layout.Value, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case int:
		return layout.Int(v), nil
	case float64:
		return layout.Real(v), nil
	case string:
		b, err := ParseBytes(v)
		return layout.Bytes(b), err
	case []any:
		out := make(layout.List, len(v))
		for i, item := range v {
			iv, err := scalarValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = iv
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: unsupported default %T", ErrInvalidField, raw)
}
