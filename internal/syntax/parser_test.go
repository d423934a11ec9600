package syntax

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/funvibe/fluxcore/internal/ast"
)

func TestParseTypeDecl(t *testing.T) {
	subs, err := ParseSubmissions(`type Maybe = Nothing | Just(Int)`)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.NotNil(t, subs[0].TypeDecl)
	require.Equal(t, "Maybe", subs[0].TypeDecl.Name)
	require.Len(t, subs[0].TypeDecl.Variants, 2)
	require.Equal(t, "Just", subs[0].TypeDecl.Variants[1].Name)
	require.Len(t, subs[0].TypeDecl.Variants[1].Fields, 1)
}

func TestParseNodeDeclWithLastAndInit(t *testing.T) {
	subs, err := ParseSubmissions(`node counter: Int = @last counter + 1 init 0`)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	nd := subs[0].NodeDecl
	require.NotNil(t, nd)
	require.Equal(t, "counter", nd.Name)
	require.Equal(t, ast.IntLit{Value: 0}, nd.Init)

	bin, ok := nd.Val.(ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.OpAdd, bin.Op)
	require.Equal(t, ast.Last{Name: "counter"}, bin.Left)
	require.Equal(t, ast.IntLit{Value: 1}, bin.Right)
}

func TestParseDataAndFuncAndEval(t *testing.T) {
	subs, err := ParseSubmissions(`
data x: Int = 3
func add(a: Int, b: Int): Int = a + b
eval add(x, 4)
`)
	require.NoError(t, err)
	require.Len(t, subs, 3)
	require.Equal(t, "x", subs[0].DataDecl.Name)
	require.Equal(t, "add", subs[1].FuncDecl.Name)
	require.Len(t, subs[1].FuncDecl.Params, 2)
	call, ok := subs[2].Eval.(ast.Call)
	require.True(t, ok)
	require.Equal(t, "add", call.Func)
	require.Len(t, call.Args, 2)
}

func TestOperatorPrecedence(t *testing.T) {
	subs, err := ParseSubmissions(`eval 1 + 2 * 3 == 7 && true`)
	require.NoError(t, err)
	top, ok := subs[0].Eval.(ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.OpAnd, top.Op)

	eq, ok := top.Left.(ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.OpEq, eq.Op)

	add, ok := eq.Left.(ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.OpAdd, add.Op)

	mul, ok := add.Right.(ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.OpMul, mul.Op)
}

func TestParseIfAndTuple(t *testing.T) {
	subs, err := ParseSubmissions(`eval if 1 == 1 then (1, 2) else (3, 4)`)
	require.NoError(t, err)
	ifExpr, ok := subs[0].Eval.(ast.If)
	require.True(t, ok)
	then, ok := ifExpr.Then.(ast.TupleConstruct)
	require.True(t, ok)
	require.Len(t, then.Elems, 2)
}

func TestParseMatch(t *testing.T) {
	subs, err := ParseSubmissions(`eval match Just(4) { Nothing -> 0, Just(n) -> n }`)
	require.NoError(t, err)
	m, ok := subs[0].Eval.(ast.Match)
	require.True(t, ok)
	require.Len(t, m.Arms, 2)
	vp, ok := m.Arms[1].Pattern.(ast.VariantPattern)
	require.True(t, ok)
	require.Equal(t, "Just", vp.Variant)
	require.Len(t, vp.Fields, 1)
}

func TestParseLetBlock(t *testing.T) {
	subs, err := ParseSubmissions(`eval let a: Int = 1, let b: Int = a + 1, b * 2`)
	require.NoError(t, err)
	blk, ok := subs[0].Eval.(ast.Block)
	require.True(t, ok)
	require.Len(t, blk.Stmts, 2)
	require.Equal(t, "a", blk.Stmts[0].Name)
}

func TestParseErrorOnGarbage(t *testing.T) {
	_, err := ParseSubmissions(`node : Int = 1`)
	require.Error(t, err)
}
