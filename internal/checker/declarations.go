package checker

import (
	"github.com/funvibe/fluxcore/internal/ast"
	"github.com/funvibe/fluxcore/internal/env"
	"github.com/funvibe/fluxcore/internal/types"
)

// CheckTypeDecl resolves every variant's field types and returns the
// registry-ready Variant list. It does not itself call DefineType; the
// pipeline does that as a separate step so a checking failure never
// mutates the registry.
func (c *Checker) CheckTypeDecl(d ast.TypeDecl) ([]types.Variant, error) {
	c.definingType = d.Name
	defer func() { c.definingType = "" }()

	variants := make([]types.Variant, len(d.Variants))
	for i, v := range d.Variants {
		fields := make([]types.Type, len(v.Fields))
		for j, fte := range v.Fields {
			t, err := c.ResolveTypeExpr(fte)
			if err != nil {
				return nil, err
			}
			fields[j] = t
		}
		if len(fields) > types.MaxVariantFields {
			return nil, &types.ArityLimitError{Kind: "variant", Name: v.Name, Limit: types.MaxVariantFields, Got: len(fields)}
		}
		variants[i] = types.Variant{Name: v.Name, Tag: i + 1, Fields: fields}
	}
	return variants, nil
}

// CheckedNode is the output of checking a node declaration: everything the
// pipeline needs to register the slot and feed the dependency analyzer.
type CheckedNode struct {
	Def  env.NodeDef
	Init ast.TypedExpr // nil if no init
	Val  ast.TypedExpr
}

// CheckNodeDecl types a node declaration (§4.4 "Variable-definition
// rules"): if Init is given, Init.Type == Val.Type == declared type;
// otherwise Val.Type == declared type.
func (c *Checker) CheckNodeDecl(d ast.NodeDecl) (CheckedNode, error) {
	declared, err := c.ResolveTypeExpr(d.Type)
	if err != nil {
		return CheckedNode{}, err
	}
	var init ast.TypedExpr
	if d.Init != nil {
		init, err = c.CheckExpr(d.Init)
		if err != nil {
			return CheckedNode{}, err
		}
		if !types.Equal(init.Type(), declared) {
			return CheckedNode{}, &TypeMismatchError{Context: "node " + d.Name + " init", Expected: declared, Actual: init.Type()}
		}
	}
	val, err := c.CheckExpr(d.Val)
	if err != nil {
		return CheckedNode{}, err
	}
	if !types.Equal(val.Type(), declared) {
		return CheckedNode{}, &TypeMismatchError{Context: "node " + d.Name, Expected: declared, Actual: val.Type()}
	}
	return CheckedNode{
		Def:  env.NodeDef{Name: d.Name, Type: declared, HasValue: d.Init != nil},
		Init: init,
		Val:  val,
	}, nil
}

// CheckedData is the output of checking a data declaration.
type CheckedData struct {
	Def env.DataDef
	Val ast.TypedExpr
}

// CheckDataDecl types a data declaration: Val.Type must equal the
// declared type.
func (c *Checker) CheckDataDecl(d ast.DataDecl) (CheckedData, error) {
	declared, err := c.ResolveTypeExpr(d.Type)
	if err != nil {
		return CheckedData{}, err
	}
	val, err := c.CheckExpr(d.Val)
	if err != nil {
		return CheckedData{}, err
	}
	if !types.Equal(val.Type(), declared) {
		return CheckedData{}, &TypeMismatchError{Context: "data " + d.Name, Expected: declared, Actual: val.Type()}
	}
	return CheckedData{Def: env.DataDef{Name: d.Name, Type: declared}, Val: val}, nil
}

// CheckedFunc is the output of checking a function declaration.
type CheckedFunc struct {
	Def  env.FuncDef
	Body ast.TypedExpr
}

// CheckFuncDecl types a function declaration: parameters are bound
// in-scope while checking the body, whose type must equal the declared
// return type.
func (c *Checker) CheckFuncDecl(d ast.FuncDecl) (CheckedFunc, error) {
	ret, err := c.ResolveTypeExpr(d.Return)
	if err != nil {
		return CheckedFunc{}, err
	}
	params := make([]env.Param, len(d.Params))
	var pops []func()
	defer func() {
		for i := len(pops) - 1; i >= 0; i-- {
			pops[i]()
		}
	}()
	for i, p := range d.Params {
		pt, err := c.ResolveTypeExpr(p.Type)
		if err != nil {
			return CheckedFunc{}, err
		}
		params[i] = env.Param{Name: p.Name, Type: pt}
		pops = append(pops, c.pushLocal(p.Name, pt))
	}
	body, err := c.CheckExpr(d.Body)
	if err != nil {
		return CheckedFunc{}, err
	}
	if !types.Equal(body.Type(), ret) {
		return CheckedFunc{}, &TypeMismatchError{Context: "function " + d.Name + " body", Expected: ret, Actual: body.Type()}
	}
	return CheckedFunc{Def: env.FuncDef{Name: d.Name, Params: params, Return: ret}, Body: body}, nil
}
