package layout

import (
	"fmt"
	"strings"
)

// OptionName is a recognised declaration option.
type OptionName string

const (
	OptOffset    OptionName = "offset"
	OptPrefix    OptionName = "prefix"
	OptCType     OptionName = "ctype"
	OptLength    OptionName = "length"
	OptMaxLength OptionName = "max_length"
)

// OmitSuffix marks an option as omit-on-failure in textual declarations.
const OmitSuffix = "__omit"

// ParseOptionName splits a textual option key such as "prefix__omit"
// into its name and omit flag.
func ParseOptionName(key string) (OptionName, bool) {
	if name, ok := strings.CutSuffix(key, OmitSuffix); ok {
		return OptionName(name), true
	}
	return OptionName(key), false
}

// Option is one declaration option of a field.
type Option struct {
	name   OptionName
	param  Param
	prefix []byte
	ctype  string
	omit   bool
}

// Offset pins the field to an absolute position, a Literal or a FieldRef.
func Offset(p Param) Option { return Option{name: OptOffset, param: p} }

// Prefix requires the field's bytes to start with b.
func Prefix(b []byte) Option {
	return Option{name: OptPrefix, prefix: append([]byte(nil), b...)}
}

// CType selects the numeric width and signedness, and its bounds.
func CType(name string) Option { return Option{name: OptCType, ctype: name} }

// Length sets a string length or array count.
func Length(p Param) Option { return Option{name: OptLength, param: p} }

// MaxLength caps a null string.
func MaxLength(p Param) Option { return Option{name: OptMaxLength, param: p} }

// OrOmit makes a failure of this option's constraint on decode mean "the
// field is absent" rather than an error. It also makes the field nullable.
func (o Option) OrOmit() Option {
	o.omit = true
	return o
}

// Name returns the option name.
func (o Option) Name() OptionName { return o.name }

// Omit reports whether the option is omit-on-failure.
func (o Option) Omit() bool { return o.omit }

func (o Option) String() string {
	var arg string
	switch o.name {
	case OptPrefix:
		arg = fmt.Sprintf("%q", o.prefix)
	case OptCType:
		arg = o.ctype
	default:
		if o.param != nil {
			arg = o.param.String()
		}
	}
	key := string(o.name)
	if o.omit {
		key += OmitSuffix
	}
	return key + "=" + arg
}

// optionCtor turns an option into a constraint. A nil constraint with a
// nil error means the option adds nothing for this kind.
type optionCtor func(o Option) (Constraint, error)

// optionTable is the closed set of options a field kind accepts.
type optionTable map[OptionName]optionCtor

func commonOptions() optionTable {
	return optionTable{
		OptOffset: func(o Option) (Constraint, error) {
			return newOffset(string(o.name), o.param)
		},
		OptPrefix: func(o Option) (Constraint, error) {
			return newPrefix(string(o.name), o.prefix), nil
		},
	}
}

func (t optionTable) with(name OptionName, ctor optionCtor) optionTable {
	out := make(optionTable, len(t)+1)
	for k, v := range t {
		out[k] = v
	}
	out[name] = ctor
	return out
}

func lengthOption(pad padFunc) optionCtor {
	return func(o Option) (Constraint, error) {
		return newLength(StashLength, string(o.name), PriorityLength, o.param, pad)
	}
}

func maxLengthOption(o Option) (Constraint, error) {
	return newLength(StashMaxLength, string(o.name), PriorityMaxLength, o.param, nil)
}

func ctypeOption(o Option) (Constraint, error) {
	c, err := newBounds(string(o.name), o.ctype)
	if err != nil || c == nil {
		return nil, err
	}
	return c, nil
}

// dedupe keeps the last occurrence of each option, in first-seen order.
func dedupe(opts []Option) []Option {
	pos := make(map[OptionName]int, len(opts))
	out := make([]Option, 0, len(opts))
	for _, o := range opts {
		if i, ok := pos[o.name]; ok {
			out[i] = o
			continue
		}
		pos[o.name] = len(out)
		out = append(out, o)
	}
	return out
}
