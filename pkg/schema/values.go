package schema

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/cstruct/pkg/layout"
)

// Values converts a decoded YAML mapping into field values of def. Nested
// records are built from nested mappings. Unknown names are left for New
// to report.
func Values(def *layout.Definition, raw map[string]any) (map[string]layout.Value, error) {
	out := make(map[string]layout.Value, len(raw))
	for name, v := range raw {
		f, ok := def.Field(name)
		if !ok {
			out[name] = nil
			continue
		}
		val, err := fieldValue(f, v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out[name] = val
	}
	return out, nil
}

// NewRecord builds a record of def from a YAML mapping.
func NewRecord(def *layout.Definition, raw map[string]any) (*layout.Record, error) {
	vals, err := Values(def, raw)
	if err != nil {
		return nil, err
	}
	return def.New(vals)
}

// UnmarshalRecord parses a YAML document of field values.
func UnmarshalRecord(def *layout.Definition, data []byte) (*layout.Record, error) {
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to parse values: %v", ErrInvalidField, err)
	}
	return NewRecord(def, raw)
}

func fieldValue(f *layout.Field, raw any) (layout.Value, error) {
	if raw == nil {
		return nil, nil
	}
	if elem := f.Element(); elem != nil {
		items, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: want a sequence, got %T", ErrInvalidField, raw)
		}
		out := make(layout.List, len(items))
		for i, item := range items {
			v, err := fieldValue(elem, item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	}
	if def := f.Layout(); def != nil && f.Type() != "varchar" {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: want a mapping, got %T", ErrInvalidField, raw)
		}
		return NewRecord(def, m)
	}
	return scalarValue(raw)
}

// Node renders a record as a YAML mapping in field order.
func Node(rec *layout.Record) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, f := range rec.Definition().Fields() {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Name()}
		n.Content = append(n.Content, key, valueNode(rec.Get(f.Name())))
	}
	return n
}

func valueNode(v layout.Value) *yaml.Node {
	switch x := v.(type) {
	case layout.Int:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(int64(x), 10)}
	case layout.Real:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(float64(x), 'g', -1, 64)}
	case layout.Bytes:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Style: yaml.DoubleQuotedStyle, Value: FormatBytes(x)}
	case layout.List:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
		for _, item := range x {
			n.Content = append(n.Content, valueNode(item))
		}
		return n
	case *layout.Record:
		if x != nil {
			return Node(x)
		}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

// FormatBytes renders b as text when it is valid UTF-8 and as HexPrefix
// followed by hex digits otherwise.
func FormatBytes(b []byte) string {
	if utf8.Valid(b) && !strings.HasPrefix(string(b), HexPrefix) {
		return string(b)
	}
	return HexPrefix + hex.EncodeToString(b)
}

// Marshal renders a record as a YAML document.
func Marshal(rec *layout.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Node(rec)); err != nil {
		return nil, fmt.Errorf("failed to render record: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to render record: %w", err)
	}
	return buf.Bytes(), nil
}
