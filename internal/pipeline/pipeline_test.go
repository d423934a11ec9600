package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/funvibe/fluxcore/internal/ast"
	"github.com/funvibe/fluxcore/internal/env"
)

func intType() ast.TypeExpr  { return ast.TypeExpr{Name: "Int"} }
func boolType() ast.TypeExpr { return ast.TypeExpr{Name: "Bool"} }

// Scenario 1 (§8): a type-definition-only submission transmits no
// byte-code, and registers the type with its variants' 1-based tags.
func TestScenarioTypeDefinitionOnly(t *testing.T) {
	p := New(env.New())
	res, err := p.Submit([]ast.Submission{{TypeDecl: &ast.TypeDecl{
		Name: "Maybe",
		Variants: []ast.VariantDecl{
			{Name: "Nothing"},
			{Name: "Just", Fields: []ast.TypeExpr{intType()}},
		},
	}}})
	require.NoError(t, err)
	require.Nil(t, res.Bytecode)

	u, err := p.Env.Types.LookupType("Maybe")
	require.NoError(t, err)
	require.Len(t, u.Variants, 2)
	require.Equal(t, 1, u.Variants[0].Tag)
	require.Equal(t, 2, u.Variants[1].Tag)
	require.Len(t, u.Variants[1].Fields, 1)
}

// Scenario 2 (§8): data + function + evaluation across three submissions.
func TestScenarioDataFuncEval(t *testing.T) {
	p := New(env.New())

	res, err := p.Submit([]ast.Submission{{DataDecl: &ast.DataDecl{
		Name: "x", Type: intType(), Val: ast.IntLit{Value: 3},
	}}})
	require.NoError(t, err)
	require.NotNil(t, res.Bytecode) // init block: SetData x

	off, ok := p.Env.Data.Offset("x")
	require.True(t, ok)
	require.Equal(t, 0, off)

	res, err = p.Submit([]ast.Submission{{FuncDecl: &ast.FuncDecl{
		Name:   "add",
		Params: []ast.ParamDecl{{Name: "a", Type: intType()}, {Name: "b", Type: intType()}},
		Return: intType(),
		Body:   ast.Binary{Op: ast.OpAdd, Left: ast.Ident{Name: "a"}, Right: ast.Ident{Name: "b"}},
	}}})
	require.NoError(t, err)
	require.NotNil(t, res.Bytecode)

	foff, ok := p.Env.Funcs.Offset("add")
	require.True(t, ok)
	require.Equal(t, 0, foff)

	res, err = p.Submit([]ast.Submission{{Eval: ast.Call{
		Func: "add",
		Args: []ast.Expr{ast.Ident{Name: "x"}, ast.IntLit{Value: 4}},
	}}})
	require.NoError(t, err)
	require.NotNil(t, res.Bytecode)
	require.Equal(t, byte(1), res.Bytecode[0]) // tagEval
}

// Scenario 3 (§8): a reactive node using @last on itself.
func TestScenarioReactiveNodeWithLast(t *testing.T) {
	p := New(env.New())
	res, err := p.Submit([]ast.Submission{{NodeDecl: &ast.NodeDecl{
		Name: "counter",
		Type: intType(),
		Init: ast.IntLit{Value: 0},
		Val:  ast.Binary{Op: ast.OpAdd, Left: ast.Last{Name: "counter"}, Right: ast.IntLit{Value: 1}},
	}}})
	require.NoError(t, err)
	require.NotNil(t, res.Bytecode)
	require.Equal(t, byte(0), res.Bytecode[0]) // tagDef

	off, ok := p.Env.Nodes.Offset("counter")
	require.True(t, ok)
	slot := p.Env.Nodes.Get(off)
	require.True(t, slot.AtLast[off])
	require.Len(t, p.Env.Last.LiveSnapshot(), 1)
}

// Scenario 4 (§8): a same-submission cycle on current-value edges is
// rejected, and the environment is left untouched.
func TestScenarioCycleRejected(t *testing.T) {
	p := New(env.New())
	_, err := p.Submit([]ast.Submission{
		{NodeDecl: &ast.NodeDecl{Name: "a", Type: intType(), Val: ast.Binary{Op: ast.OpAdd, Left: ast.Ident{Name: "b"}, Right: ast.IntLit{Value: 1}}}},
		{NodeDecl: &ast.NodeDecl{Name: "b", Type: intType(), Val: ast.Binary{Op: ast.OpAdd, Left: ast.Ident{Name: "a"}, Right: ast.IntLit{Value: 1}}}},
	})
	require.Error(t, err)
	require.Equal(t, 0, p.Env.Nodes.Len())
}

// Scenario 5 (§8): re-typing a node with a live dependent is rejected
// alone, but accepted when submitted jointly with the dependent rewritten
// to match.
func TestScenarioRetypeWithDependent(t *testing.T) {
	p := New(env.New())
	_, err := p.Submit([]ast.Submission{
		{NodeDecl: &ast.NodeDecl{Name: "a", Type: intType(), Val: ast.IntLit{Value: 1}}},
	})
	require.NoError(t, err)
	_, err = p.Submit([]ast.Submission{
		{NodeDecl: &ast.NodeDecl{Name: "b", Type: intType(), Val: ast.Binary{Op: ast.OpAdd, Left: ast.Ident{Name: "a"}, Right: ast.IntLit{Value: 1}}}},
	})
	require.NoError(t, err)

	_, err = p.Submit([]ast.Submission{
		{NodeDecl: &ast.NodeDecl{Name: "a", Type: boolType(), Val: ast.BoolLit{Value: true}}},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "changes type")

	// Submitted jointly with b rewritten to match, it is accepted.
	res, err := p.Submit([]ast.Submission{
		{NodeDecl: &ast.NodeDecl{Name: "a", Type: boolType(), Val: ast.BoolLit{Value: true}}},
		{NodeDecl: &ast.NodeDecl{Name: "b", Type: boolType(), Val: ast.Ident{Name: "a"}}},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Bytecode)
}

// Self-recursive functions may call themselves: the signature
// pre-registration phase makes the offset visible before the body is
// checked.
func TestSelfRecursiveFunction(t *testing.T) {
	p := New(env.New())
	res, err := p.Submit([]ast.Submission{{FuncDecl: &ast.FuncDecl{
		Name:   "countdown",
		Params: []ast.ParamDecl{{Name: "n", Type: intType()}},
		Return: intType(),
		Body: ast.If{
			Cond: ast.Binary{Op: ast.OpLeq, Left: ast.Ident{Name: "n"}, Right: ast.IntLit{Value: 0}},
			Then: ast.IntLit{Value: 0},
			Else: ast.Call{Func: "countdown", Args: []ast.Expr{ast.Binary{Op: ast.OpSub, Left: ast.Ident{Name: "n"}, Right: ast.IntLit{Value: 1}}}},
		},
	}}})
	require.NoError(t, err)
	require.NotNil(t, res.Bytecode)
}

// Rolling back a rejected submission must not leave a partially-applied
// type definition behind.
func TestRollbackLeavesTypesUntouched(t *testing.T) {
	p := New(env.New())
	_, err := p.Submit([]ast.Submission{
		{TypeDecl: &ast.TypeDecl{Name: "Flag", Variants: []ast.VariantDecl{{Name: "On"}, {Name: "Off"}}}},
		{DataDecl: &ast.DataDecl{Name: "bad", Type: intType(), Val: ast.Ident{Name: "missing"}}},
	})
	require.Error(t, err)
	_, err = p.Env.Types.LookupType("Flag")
	require.Error(t, err)
}
