// Package ast defines the untyped surface syntax tree fluxcore's checker
// consumes, and the typed tree it produces. The concrete grammar and its
// parser live in internal/syntax; this package only fixes the shapes
// internal/checker, internal/depgraph and internal/emit agree on.
package ast

// TypeExpr is a textual type reference as written by the user: either a
// builtin name ("Int", "Bool"), a user type name, or a tuple of element
// type expressions. internal/checker resolves these against the type
// registry into types.Type values.
type TypeExpr struct {
	Name    string     // "Int", "Bool", or a user type name; empty for tuples
	IsTuple bool
	Elems   []TypeExpr // populated when IsTuple
}
