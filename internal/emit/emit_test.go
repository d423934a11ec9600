package emit

import (
	"fmt"
	"testing"

	"github.com/funvibe/fluxcore/internal/ast"
	"github.com/funvibe/fluxcore/internal/checker"
	"github.com/funvibe/fluxcore/internal/env"
	"github.com/funvibe/fluxcore/internal/types"
	"github.com/stretchr/testify/require"
)

func TestEmitIntLiteralNarrowestFit(t *testing.T) {
	require.Equal(t, []byte{byte(Int0)}, emitIntLiteral(nil, 0))
	require.Equal(t, []byte{byte(Int6)}, emitIntLiteral(nil, 6))
	require.Equal(t, []byte{byte(IntI8), 7}, emitIntLiteral(nil, 7))
	require.Equal(t, []byte{byte(IntI8), 0x80}, emitIntLiteral(nil, -128))
	require.Equal(t, []byte{byte(IntI16), 0x00, 0x01}, emitIntLiteral(nil, 256))
	require.Equal(t, []byte{byte(IntI32), 0x00, 0x00, 0x01, 0x00}, emitIntLiteral(nil, 65536))
}

func TestEmitIndexedShortAndWideForms(t *testing.T) {
	out := emitIndexed(nil, GetLocal0, 7, GetLocalU8, GetLocalU16, GetLocalU32, 3)
	require.Equal(t, []byte{byte(GetLocal3)}, out)

	out = emitIndexed(nil, GetLocal0, 7, GetLocalU8, GetLocalU16, GetLocalU32, 200)
	require.Equal(t, []byte{byte(GetLocalU8), 200}, out)

	out = emitIndexed(nil, GetLocal0, 7, GetLocalU8, GetLocalU16, GetLocalU32, 70000)
	require.Equal(t, byte(GetLocalU32), out[0])
	require.Len(t, out, 5)
}

// Scenario 2 (§8): data x : Int = 3; func add(a,b): Int = a+b; add(x, 4).
func TestScenarioDataFuncCallEval(t *testing.T) {
	nodes := env.NewNodeTable()
	data := env.NewDataTable()
	funcs := env.NewFuncTable()
	last := env.NewLastManager()
	c := New(nodes, data, funcs, last)

	xOff, _ := data.Register(env.DataDef{Name: "x", Type: types.Int{}})
	addOff, _ := funcs.Register(env.FuncDef{
		Name:   "add",
		Params: []env.Param{{Name: "a", Type: types.Int{}}, {Name: "b", Type: types.Int{}}},
		Return: types.Int{},
	})
	require.Equal(t, 0, xOff)
	require.Equal(t, 0, addOff)

	call := ast.TCall{
		FuncOffset: addOff,
		Args: []ast.TypedExpr{
			ast.TIdent{Name: "x", Source: ast.SourceData, Offset: xOff, Typ: types.Int{}},
			ast.TIntLit{Value: 4},
		},
		Typ: types.Int{},
	}
	code, err := c.CompileEval(call)
	require.NoError(t, err)

	expected := emitFullWidthOnly(nil, GetDataU8, GetDataU16, GetDataU32, xOff)
	expected = append(expected, emitIntLiteral(nil, 4)...)
	expected = append(expected, byte(CallU8), 2, 0)
	expected = append(expected, byte(Print), byte(Halt))
	require.Equal(t, expected, code)
}

// Scenario 3 (§8): node counter : Int { 0 } = counter@last + 1.
func TestScenarioReactiveNodeWithLast(t *testing.T) {
	nodes := env.NewNodeTable()
	last := env.NewLastManager()
	off, _, err := nodes.Register(env.NodeDef{Name: "counter", Type: types.Int{}, HasValue: true}, map[string]bool{"counter": true}, last)
	require.NoError(t, err)

	val := ast.TBinary{
		Op:    ast.OpAdd,
		Left:  ast.TLast{NodeOffset: off, Typ: types.Int{}},
		Right: ast.TIntLit{Value: 1},
		Typ:   types.Int{},
	}

	// Dependency analysis would have added one @last ref for counter by
	// this point (depgraph.Collect), giving it a live history slot 0.
	last.AddRef(off)

	c := New(nodes, env.NewDataTable(), env.NewFuncTable(), last)
	body, err := c.CompileNodeBody(off, val, nil)
	require.NoError(t, err)

	expected := emitIndexed(nil, GetLast0, 4, GetLastU8, GetLastU16, GetLastU32, 0)
	expected = append(expected, emitIntLiteral(nil, 1)...)
	expected = append(expected, byte(Add))
	expected = append(expected, emitFullWidthOnly(nil, EndUpdateNodeU8, EndUpdateNodeU16, EndUpdateNodeU32, off)...)
	require.Equal(t, expected, body)

	update := c.CompileUpdateBody([]int{off}, true)
	wantUpdate := emitFullWidthOnly(nil, GetNodeU8, GetNodeU16, GetNodeU32, off)
	wantUpdate = append(wantUpdate, emitIndexed(nil, SetLast0, 4, SetLastU8, SetLastU16, SetLastU32, 0)...)
	wantUpdate = append(wantUpdate, emitFullWidthOnly(nil, UpdateNodeU8, UpdateNodeU16, UpdateNodeU32, off)...)
	wantUpdate = append(wantUpdate, byte(Halt))
	require.Equal(t, wantUpdate, update)
}

// Scenario 6 (§8): type T = A(Int) | B; func f(x:T):Int = match x { A(n)->n, B->0 }.
func TestScenarioPatternMatchOnSumType(t *testing.T) {
	owner := types.User{Name: "T", Variants: []types.Variant{
		{Name: "A", Tag: 1, Fields: []types.Type{types.Int{}}},
		{Name: "B", Tag: 2},
	}}

	body := ast.TMatch{
		Scrutinee:   ast.TIdent{Name: "x", Source: ast.SourceLocal, Typ: owner},
		ScrutineeID: owner,
		IsSum:       true,
		Typ:         types.Int{},
		HasCatchAll: false,
		Arms: []ast.TMatchArm{
			{
				Pattern: ast.TPattern{Kind: ast.PatternVariant, Tag: 1, Fields: []ast.TPattern{{Kind: ast.PatternIdent, Name: "n"}}, FieldTypes: []types.Type{types.Int{}}, FieldIsObject: []bool{false}},
				Body:    ast.TIdent{Name: "n", Source: ast.SourceLocal, Typ: types.Int{}},
			},
			{
				Pattern: ast.TPattern{Kind: ast.PatternVariant, Tag: 2},
				Body:    ast.TIntLit{Value: 0},
			},
		},
	}

	nodes := env.NewNodeTable()
	last := env.NewLastManager()
	c := New(nodes, env.NewDataTable(), env.NewFuncTable(), last)

	code, err := c.CompileFuncBody([]env.Param{{Name: "x", Type: owner}}, body)
	require.NoError(t, err)

	require.NotEmpty(t, code)
	// x occupies local 0 (object-typed: its DropLocalObj must appear before Return).
	lastTwo := code[len(code)-2:]
	require.Equal(t, []byte{byte(DropLocalObj0), byte(Return)}, lastTwo)
	// An Abort must be present since the match has no catch-all arm.
	require.Contains(t, code, byte(Abort))
}

// §7: a frame with more than 255 locals must be rejected at compile time
// rather than overflow the 8-bit local-index opcodes.
func TestCompileFuncBodyTooManyLocalsRejected(t *testing.T) {
	params := make([]env.Param, 256)
	for i := range params {
		params[i] = env.Param{Name: fmt.Sprintf("p%d", i), Type: types.Int{}}
	}

	nodes := env.NewNodeTable()
	last := env.NewLastManager()
	c := New(nodes, env.NewDataTable(), env.NewFuncTable(), last)

	_, err := c.CompileFuncBody(params, ast.TIntLit{Value: 0})
	require.Error(t, err)
	var limitErr *checker.ResourceLimitError
	require.ErrorAs(t, err, &limitErr)
	require.Equal(t, "local variables", limitErr.Kind)
	require.Equal(t, 255, limitErr.Limit)
}

func TestSerializeEvalPayload(t *testing.T) {
	eval := []byte{byte(Int1), byte(Print), byte(Halt)}
	out := Serialize(Bundle{Eval: eval})
	require.Equal(t, tagEval, out[0])
	size := int(out[1]) | int(out[2])<<8
	require.Equal(t, len(out), size)
	require.Equal(t, eval, out[3:])
}

func TestSerializeDefPayloadFraming(t *testing.T) {
	b := Bundle{
		InitBytes:   []byte{byte(Halt)},
		UpdateBytes: []byte{byte(Halt)},
		NLast:       1,
		NodeBodies:  []SlotBody{{Slot: 0, Body: []byte{byte(Return)}}},
		NNewNodes:   1,
	}
	out := Serialize(b)
	require.Equal(t, tagDef, out[0])
	size := int(out[1]) | int(out[2])<<8
	require.Equal(t, len(out), size)
}
