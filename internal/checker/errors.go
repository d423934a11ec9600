// Package checker implements the type checker (C4): it lowers an untyped
// syntax tree into a typed tree, validating every operator, pattern, and
// call against the persistent environment.
package checker

import (
	"fmt"

	"github.com/funvibe/fluxcore/internal/types"
)

// IdentifierNotFoundError reports a name that resolves to neither a local
// binder, a node, nor a data slot.
type IdentifierNotFoundError struct{ Name string }

func (e *IdentifierNotFoundError) Error() string {
	return fmt.Sprintf("identifier not found: %s", e.Name)
}

// TypeMismatchError reports an expected-vs-actual type disagreement.
type TypeMismatchError struct {
	Context  string
	Expected types.Type
	Actual   types.Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Context, e.Expected.String(), e.Actual.String())
}

// ArgCountError reports a function call, variant construction, or tuple
// pattern whose argument/field count doesn't match the declaration.
type ArgCountError struct {
	Context  string
	Expected int
	Actual   int
}

func (e *ArgCountError) Error() string {
	return fmt.Sprintf("%s: expected %d arguments, got %d", e.Context, e.Expected, e.Actual)
}

// InvalidFunctionValueError reports a function name used in value
// position (functions are not first-class; only callable via fnCall).
type InvalidFunctionValueError struct{ Name string }

func (e *InvalidFunctionValueError) Error() string {
	return fmt.Sprintf("%s is a function and cannot be used as a value; call it instead", e.Name)
}

// InvalidPatternError reports a pattern inconsistent with its scrutinee's
// type.
type InvalidPatternError struct {
	ScrutineeType types.Type
	Detail        string
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("pattern invalid for type %s: %s", e.ScrutineeType.String(), e.Detail)
}

// ArmTypeMismatchError reports match/if branches disagreeing in type.
type ArmTypeMismatchError struct {
	First, Other types.Type
}

func (e *ArmTypeMismatchError) Error() string {
	return fmt.Sprintf("branch type mismatch: %s vs %s", e.First.String(), e.Other.String())
}

// ResourceLimitError reports a body exceeding one of the VM's fixed-width
// encoding limits (§7): more than 255 locals in one frame. Variant field
// and tuple arity limits are reported as *types.ArityLimitError instead.
type ResourceLimitError struct {
	Kind  string
	Limit int
}

func (e *ResourceLimitError) Error() string {
	return fmt.Sprintf("too many %s (> %d)", e.Kind, e.Limit)
}
