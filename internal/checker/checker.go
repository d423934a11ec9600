package checker

import (
	"github.com/funvibe/fluxcore/internal/ast"
	"github.com/funvibe/fluxcore/internal/env"
	"github.com/funvibe/fluxcore/internal/types"
)

// localBinding is one entry of the checker's scope stack: a binder name
// visible to identifier resolution, innermost first.
type localBinding struct {
	name string
	typ  types.Type
}

// Checker lowers untyped expressions to typed ones against a persistent
// Environment. A Checker is single-use per top-level body: callers create
// one per node/data/function body being checked so the locals stack starts
// empty, exactly mirroring the emitter's per-body symbol table (§3
// "symbol-table depth at the start and end of emitting any top-level body
// is zero").
type Checker struct {
	env    *env.Environment
	locals []localBinding
	// definingType holds the name of a type declaration currently being
	// checked, so a variant field that refers back to its own type (e.g.
	// `type L = Nil | Cons(Int, L)`) resolves to a nominal stub instead of
	// a not-found error. Equality on User never deep-walks Variants (see
	// internal/types), so the stub is sound even before the real variant
	// list is known.
	definingType string
}

// New returns a Checker bound to env.
func New(e *env.Environment) *Checker {
	return &Checker{env: e}
}

// pushLocal introduces a new innermost binder, returning a function that
// removes it again (used for pattern/let/call scopes via defer).
func (c *Checker) pushLocal(name string, typ types.Type) func() {
	c.locals = append(c.locals, localBinding{name: name, typ: typ})
	n := len(c.locals)
	return func() { c.locals = c.locals[:n-1] }
}

// resolveIdent implements §4.4's scope order: local binders (innermost
// first), then node slots, then data slots.
func (c *Checker) resolveIdent(name string) (ast.TIdent, error) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			return ast.TIdent{Name: name, Source: ast.SourceLocal, Typ: c.locals[i].typ}, nil
		}
	}
	if off, ok := c.env.Nodes.Offset(name); ok {
		return ast.TIdent{Name: name, Source: ast.SourceNode, Offset: off, Typ: c.env.Nodes.Get(off).Type}, nil
	}
	if off, ok := c.env.Data.Offset(name); ok {
		return ast.TIdent{Name: name, Source: ast.SourceData, Offset: off, Typ: c.env.Data.Get(off).Type}, nil
	}
	if _, ok := c.env.Funcs.Offset(name); ok {
		return ast.TIdent{}, &InvalidFunctionValueError{Name: name}
	}
	return ast.TIdent{}, &IdentifierNotFoundError{Name: name}
}

// ResolveTypeExpr resolves a surface type expression against the type
// registry, producing a concrete types.Type.
func (c *Checker) ResolveTypeExpr(te ast.TypeExpr) (types.Type, error) {
	if te.IsTuple {
		elems := make([]types.Type, len(te.Elems))
		for i, e := range te.Elems {
			t, err := c.ResolveTypeExpr(e)
			if err != nil {
				return nil, err
			}
			elems[i] = t
		}
		if len(elems) > types.MaxTupleArity {
			return nil, &types.ArityLimitError{Kind: "tuple", Name: "(tuple)", Limit: types.MaxTupleArity, Got: len(elems)}
		}
		return types.Tuple{Elems: elems}, nil
	}
	switch te.Name {
	case "Int":
		return types.Int{}, nil
	case "Bool":
		return types.Bool{}, nil
	default:
		if c.definingType != "" && te.Name == c.definingType {
			return types.User{Name: te.Name}, nil
		}
		u, err := c.env.Types.LookupType(te.Name)
		if err != nil {
			return nil, err
		}
		return u, nil
	}
}
