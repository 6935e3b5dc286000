package schema

import (
	"github.com/ssargent/cstruct/pkg/layout"
)

// FieldInfo describes one field for listings.
type FieldInfo struct {
	Name        string      `json:"name" yaml:"name"`
	Type        string      `json:"type" yaml:"type"`
	Nullable    bool        `json:"nullable" yaml:"nullable"`
	Constraints []string    `json:"constraints" yaml:"constraints"`
	Element     *FieldInfo  `json:"element,omitempty" yaml:"element,omitempty"`
	Fields      []FieldInfo `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// LayoutInfo describes a layout.
type LayoutInfo struct {
	Name   string      `json:"name" yaml:"name"`
	Fields []FieldInfo `json:"fields" yaml:"fields"`
}

// Describe lists the fields of def with their constraints in priority
// order. Nested layouts are expanded.
func Describe(def *layout.Definition) LayoutInfo {
	info := LayoutInfo{Name: def.Name()}
	for _, f := range def.Fields() {
		info.Fields = append(info.Fields, describeField(f))
	}
	return info
}

func describeField(f *layout.Field) FieldInfo {
	fi := FieldInfo{Name: f.Name(), Type: f.Type(), Nullable: f.Nullable()}
	for _, c := range f.Constraints() {
		s := c.String()
		if f.Omits(c.Keyword()) {
			s += " (omit)"
		}
		fi.Constraints = append(fi.Constraints, s)
	}
	if elem := f.Element(); elem != nil {
		e := describeField(elem)
		fi.Element = &e
	}
	if def := f.Layout(); def != nil && f.Type() != "varchar" {
		fi.Fields = Describe(def).Fields
	}
	return fi
}
