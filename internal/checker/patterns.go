package checker

import (
	"github.com/funvibe/fluxcore/internal/ast"
	"github.com/funvibe/fluxcore/internal/types"
)

// checkPattern types p against scrutineeType (§4.4 "Pattern matching").
// It returns the typed pattern and a cleanup function that pops whatever
// locals it pushed; callers must defer the cleanup once the arm body has
// been checked.
func (c *Checker) checkPattern(p ast.Pattern, scrutineeType types.Type) (ast.TPattern, func(), error) {
	switch pat := p.(type) {
	case ast.WildcardPattern:
		return ast.TPattern{Kind: ast.PatternWildcard}, func() {}, nil

	case ast.IdentPattern:
		pop := c.pushLocal(pat.Name, scrutineeType)
		return ast.TPattern{Kind: ast.PatternIdent, Name: pat.Name}, pop, nil

	case ast.IntPattern:
		if _, ok := scrutineeType.(types.Int); !ok {
			return ast.TPattern{}, nil, &InvalidPatternError{ScrutineeType: scrutineeType, Detail: "integer literal pattern needs Int scrutinee"}
		}
		return ast.TPattern{Kind: ast.PatternInt, IntVal: pat.Value}, func() {}, nil

	case ast.BoolPattern:
		if _, ok := scrutineeType.(types.Bool); !ok {
			return ast.TPattern{}, nil, &InvalidPatternError{ScrutineeType: scrutineeType, Detail: "boolean literal pattern needs Bool scrutinee"}
		}
		return ast.TPattern{Kind: ast.PatternBool, BoolVal: pat.Value}, func() {}, nil

	case ast.VariantPattern:
		owner, tag, fields, err := c.env.Types.LookupVariant(pat.Variant)
		if err != nil {
			return ast.TPattern{}, nil, err
		}
		if !types.Equal(owner, scrutineeType) {
			return ast.TPattern{}, nil, &InvalidPatternError{ScrutineeType: scrutineeType, Detail: "variant pattern " + pat.Variant + " belongs to a different sum type"}
		}
		if len(pat.Fields) != len(fields) {
			return ast.TPattern{}, nil, &ArgCountError{Context: "variant pattern " + pat.Variant, Expected: len(fields), Actual: len(pat.Fields)}
		}
		subFields := make([]ast.TPattern, len(pat.Fields))
		fieldIsObj := make([]bool, len(pat.Fields))
		var pops []func()
		for i, sub := range pat.Fields {
			tp, pop, err := c.checkPattern(sub, fields[i])
			if err != nil {
				for j := len(pops) - 1; j >= 0; j-- {
					pops[j]()
				}
				return ast.TPattern{}, nil, err
			}
			subFields[i] = tp
			fieldIsObj[i] = fields[i].IsObject()
			pops = append(pops, pop)
		}
		cleanup := func() {
			for j := len(pops) - 1; j >= 0; j-- {
				pops[j]()
			}
		}
		return ast.TPattern{Kind: ast.PatternVariant, Tag: tag, Fields: subFields, FieldTypes: fields, FieldIsObject: fieldIsObj}, cleanup, nil

	case ast.TuplePattern:
		tup, ok := scrutineeType.(types.Tuple)
		if !ok {
			return ast.TPattern{}, nil, &InvalidPatternError{ScrutineeType: scrutineeType, Detail: "tuple pattern needs Tuple scrutinee"}
		}
		if len(pat.Elems) != len(tup.Elems) {
			return ast.TPattern{}, nil, &ArgCountError{Context: "tuple pattern", Expected: len(tup.Elems), Actual: len(pat.Elems)}
		}
		subFields := make([]ast.TPattern, len(pat.Elems))
		fieldIsObj := make([]bool, len(pat.Elems))
		var pops []func()
		for i, sub := range pat.Elems {
			tp, pop, err := c.checkPattern(sub, tup.Elems[i])
			if err != nil {
				for j := len(pops) - 1; j >= 0; j-- {
					pops[j]()
				}
				return ast.TPattern{}, nil, err
			}
			subFields[i] = tp
			fieldIsObj[i] = tup.Elems[i].IsObject()
			pops = append(pops, pop)
		}
		cleanup := func() {
			for j := len(pops) - 1; j >= 0; j-- {
				pops[j]()
			}
		}
		return ast.TPattern{Kind: ast.PatternTuple, Fields: subFields, FieldTypes: tup.Elems, FieldIsObject: fieldIsObj}, cleanup, nil

	default:
		panic("checker: unhandled pattern kind")
	}
}

func isCatchAll(k ast.PatternKind) bool {
	return k == ast.PatternIdent || k == ast.PatternWildcard
}

func (c *Checker) checkMatch(n ast.Match) (ast.TypedExpr, error) {
	scrutinee, err := c.CheckExpr(n.Scrutinee)
	if err != nil {
		return nil, err
	}
	st := scrutinee.Type()
	_, isSum := st.(types.User)

	arms := make([]ast.TMatchArm, len(n.Arms))
	var armType types.Type
	var lastKind ast.PatternKind
	for i, a := range n.Arms {
		tp, pop, err := c.checkPattern(a.Pattern, st)
		if err != nil {
			return nil, err
		}
		body, err := c.CheckExpr(a.Body)
		pop()
		if err != nil {
			return nil, err
		}
		if i == 0 {
			armType = body.Type()
		} else if !types.Equal(armType, body.Type()) {
			return nil, &ArmTypeMismatchError{First: armType, Other: body.Type()}
		}
		arms[i] = ast.TMatchArm{Pattern: tp, Body: body}
		lastKind = tp.Kind
	}
	return ast.TMatch{
		Scrutinee:   scrutinee,
		ScrutineeID: st,
		IsSum:       isSum,
		Arms:        arms,
		Typ:         armType,
		HasCatchAll: isCatchAll(lastKind),
	}, nil
}
