package layout

import (
	"errors"
	"fmt"
	"strings"
)

// Constraint failure reasons.
var (
	ErrPrefixMismatch  = errors.New("layout: prefix mismatch")
	ErrOffsetMismatch  = errors.New("layout: offset mismatch")
	ErrUnterminated    = errors.New("layout: unterminated null string")
	ErrWrongType       = errors.New("layout: wrong value type")
	ErrOutOfBounds     = errors.New("layout: value out of bounds")
	ErrTooLong         = errors.New("layout: value exceeds length")
	ErrInvalidLength   = errors.New("layout: invalid length")
	ErrMissingRef      = errors.New("layout: referenced field has no integer value")
	ErrUnstableLayout  = errors.New("layout: dry run and emit disagree on field width")
	ErrUnknownField    = errors.New("layout: unknown field")
	ErrUnknownOption   = errors.New("layout: option not accepted by field kind")
	ErrDuplicateField  = errors.New("layout: duplicate field")
	ErrForwardRef      = errors.New("layout: reference to a field declared later")
	ErrBadRef          = errors.New("layout: invalid field reference")
	ErrInvalidParam    = errors.New("layout: invalid option parameter")
	ErrMissingProperty = errors.New("layout: computed property has no getter")
)

// DecodeError reports a structural decode failure. Constraint is nil when
// the failure came from reading the value itself (short buffer, nested
// record).
type DecodeError struct {
	Field      string
	Constraint Constraint
	Offset     int
	Err        error
}

func (e *DecodeError) Error() string {
	if e.Constraint == nil {
		return fmt.Sprintf("layout: decode field %q at offset %d: %v", e.Field, e.Offset, e.Err)
	}
	return fmt.Sprintf("layout: decode field %q at offset %d: constraint %s failed: %v",
		e.Field, e.Offset, e.Constraint, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ValueError reports a value rejected on assignment or encode.
type ValueError struct {
	Field      string
	Value      Value
	Constraint Constraint
	Err        error
}

func (e *ValueError) Error() string {
	if e.Constraint == nil {
		return fmt.Sprintf("layout: field %q value %s: %v", e.Field, formatValue(e.Value), e.Err)
	}
	return fmt.Sprintf("layout: field %q value %s rejected by %s: %v",
		e.Field, formatValue(e.Value), e.Constraint, e.Err)
}

func (e *ValueError) Unwrap() error { return e.Err }

// PackError reports a field whose explicit offset does not match its
// position during encode.
type PackError struct {
	Field      string
	Offset     int
	Constraint Constraint
	Err        error
}

func (e *PackError) Error() string {
	return fmt.Sprintf("layout: explicit offset of field %q was set, but position %d doesn't match: %v",
		e.Field, e.Offset, e.Err)
}

func (e *PackError) Unwrap() error { return e.Err }

// UnresolvedFieldsError lists names passed to New that the definition
// does not declare.
type UnresolvedFieldsError struct {
	Definition string
	Names      []string
}

func (e *UnresolvedFieldsError) Error() string {
	return fmt.Sprintf("layout: %s: unresolved fields: %s", e.Definition, strings.Join(e.Names, ", "))
}

func (e *UnresolvedFieldsError) Unwrap() error { return ErrUnknownField }

// DefinitionError reports an invalid declaration.
type DefinitionError struct {
	Definition string
	Field      string
	Err        error
}

func (e *DefinitionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("layout: define %s: %v", e.Definition, e.Err)
	}
	return fmt.Sprintf("layout: define %s.%s: %v", e.Definition, e.Field, e.Err)
}

func (e *DefinitionError) Unwrap() error { return e.Err }

// structured reports whether err already carries field context.
func structured(err error) bool {
	var (
		ve *ValueError
		pe *PackError
		de *DecodeError
	)
	return errors.As(err, &ve) || errors.As(err, &pe) || errors.As(err, &de)
}
