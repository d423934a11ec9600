package checker

import (
	"github.com/funvibe/fluxcore/internal/ast"
	"github.com/funvibe/fluxcore/internal/types"
)

var arithOps = map[ast.BinOp]bool{
	ast.OpAdd: true, ast.OpSub: true, ast.OpMul: true, ast.OpDiv: true, ast.OpMod: true,
	ast.OpShiftL: true, ast.OpShiftR: true, ast.OpBitAnd: true, ast.OpBitOr: true, ast.OpBitXor: true,
}

var cmpOps = map[ast.BinOp]bool{
	ast.OpLt: true, ast.OpLeq: true, ast.OpGt: true, ast.OpGeq: true,
}

var eqOps = map[ast.BinOp]bool{ast.OpEq: true, ast.OpNeq: true}
var logicOps = map[ast.BinOp]bool{ast.OpAnd: true, ast.OpOr: true}

// CheckExpr lowers e to a typed expression (§4.4).
func (c *Checker) CheckExpr(e ast.Expr) (ast.TypedExpr, error) {
	switch n := e.(type) {
	case ast.IntLit:
		return ast.TIntLit{Value: n.Value}, nil

	case ast.BoolLit:
		return ast.TBoolLit{Value: n.Value}, nil

	case ast.Ident:
		return c.resolveIdent(n.Name)

	case ast.Last:
		// Validity of use (whether x was newly introduced without an init)
		// is checked later by internal/depgraph's Collect; here we only
		// resolve x's node offset and type.
		off, ok := c.env.Nodes.Offset(n.Name)
		if !ok {
			return nil, &IdentifierNotFoundError{Name: n.Name}
		}
		return ast.TLast{NodeOffset: off, Typ: c.env.Nodes.Get(off).Type}, nil

	case ast.Binary:
		return c.checkBinary(n)

	case ast.Unary:
		return c.checkUnary(n)

	case ast.If:
		return c.checkIf(n)

	case ast.Call:
		return c.checkCall(n)

	case ast.VariantConstruct:
		return c.checkVariantConstruct(n)

	case ast.TupleConstruct:
		return c.checkTupleConstruct(n)

	case ast.Block:
		return c.checkBlock(n)

	case ast.Match:
		return c.checkMatch(n)

	default:
		panic("checker: unhandled expression kind")
	}
}

func (c *Checker) checkBinary(n ast.Binary) (ast.TypedExpr, error) {
	left, err := c.CheckExpr(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.CheckExpr(n.Right)
	if err != nil {
		return nil, err
	}

	switch {
	case arithOps[n.Op]:
		if err := expect("left operand", types.Int{}, left.Type()); err != nil {
			return nil, err
		}
		if err := expect("right operand", types.Int{}, right.Type()); err != nil {
			return nil, err
		}
		return ast.TBinary{Op: n.Op, Left: left, Right: right, Typ: types.Int{}}, nil

	case cmpOps[n.Op]:
		if err := expect("left operand", types.Int{}, left.Type()); err != nil {
			return nil, err
		}
		if err := expect("right operand", types.Int{}, right.Type()); err != nil {
			return nil, err
		}
		return ast.TBinary{Op: n.Op, Left: left, Right: right, Typ: types.Bool{}}, nil

	case eqOps[n.Op]:
		// §4.4 / §9 open question: == and != are restricted to Int, matching
		// the emitter's lack of an object-equality opcode.
		if err := expect("left operand", types.Int{}, left.Type()); err != nil {
			return nil, err
		}
		if err := expect("right operand", types.Int{}, right.Type()); err != nil {
			return nil, err
		}
		return ast.TBinary{Op: n.Op, Left: left, Right: right, Typ: types.Bool{}}, nil

	case logicOps[n.Op]:
		if err := expect("left operand", types.Bool{}, left.Type()); err != nil {
			return nil, err
		}
		if err := expect("right operand", types.Bool{}, right.Type()); err != nil {
			return nil, err
		}
		return ast.TBinary{Op: n.Op, Left: left, Right: right, Typ: types.Bool{}}, nil

	default:
		panic("checker: unhandled binary operator")
	}
}

func (c *Checker) checkUnary(n ast.Unary) (ast.TypedExpr, error) {
	operand, err := c.CheckExpr(n.Operand)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case ast.OpNot:
		if err := expect("operand", types.Bool{}, operand.Type()); err != nil {
			return nil, err
		}
		return ast.TUnary{Op: n.Op, Operand: operand, Typ: types.Bool{}}, nil
	case ast.OpNegate:
		if err := expect("operand", types.Int{}, operand.Type()); err != nil {
			return nil, err
		}
		return ast.TUnary{Op: n.Op, Operand: operand, Typ: types.Int{}}, nil
	default:
		panic("checker: unhandled unary operator")
	}
}

func (c *Checker) checkIf(n ast.If) (ast.TypedExpr, error) {
	cond, err := c.CheckExpr(n.Cond)
	if err != nil {
		return nil, err
	}
	if err := expect("if condition", types.Bool{}, cond.Type()); err != nil {
		return nil, err
	}
	then, err := c.CheckExpr(n.Then)
	if err != nil {
		return nil, err
	}
	els, err := c.CheckExpr(n.Else)
	if err != nil {
		return nil, err
	}
	if !types.Equal(then.Type(), els.Type()) {
		return nil, &ArmTypeMismatchError{First: then.Type(), Other: els.Type()}
	}
	return ast.TIf{Cond: cond, Then: then, Else: els, Typ: then.Type()}, nil
}

func (c *Checker) checkCall(n ast.Call) (ast.TypedExpr, error) {
	off, ok := c.env.Funcs.Offset(n.Func)
	if !ok {
		return nil, &IdentifierNotFoundError{Name: n.Func}
	}
	fn := c.env.Funcs.Get(off)
	if len(n.Args) != len(fn.Params) {
		return nil, &ArgCountError{Context: "call to " + n.Func, Expected: len(fn.Params), Actual: len(n.Args)}
	}
	args := make([]ast.TypedExpr, len(n.Args))
	for i, a := range n.Args {
		t, err := c.CheckExpr(a)
		if err != nil {
			return nil, err
		}
		if !types.Equal(t.Type(), fn.Params[i].Type) {
			return nil, &TypeMismatchError{Context: "argument " + fn.Params[i].Name, Expected: fn.Params[i].Type, Actual: t.Type()}
		}
		args[i] = t
	}
	return ast.TCall{FuncOffset: off, Args: args, Typ: fn.Return}, nil
}

func (c *Checker) checkVariantConstruct(n ast.VariantConstruct) (ast.TypedExpr, error) {
	owner, tag, fields, err := c.env.Types.LookupVariant(n.Variant)
	if err != nil {
		return nil, err
	}
	if len(n.Args) != len(fields) {
		return nil, &ArgCountError{Context: "variant " + n.Variant, Expected: len(fields), Actual: len(n.Args)}
	}
	args := make([]ast.TypedExpr, len(n.Args))
	for i, a := range n.Args {
		t, err := c.CheckExpr(a)
		if err != nil {
			return nil, err
		}
		if !types.Equal(t.Type(), fields[i]) {
			return nil, &TypeMismatchError{Context: "variant field", Expected: fields[i], Actual: t.Type()}
		}
		args[i] = t
	}
	maxEntry := 0
	for _, v := range owner.Variants {
		if len(v.Fields) > maxEntry {
			maxEntry = len(v.Fields)
		}
	}
	return ast.TVariantConstruct{Owner: owner, Variant: n.Variant, Tag: tag, MaxEntry: maxEntry, Args: args}, nil
}

func (c *Checker) checkTupleConstruct(n ast.TupleConstruct) (ast.TypedExpr, error) {
	elems := make([]ast.TypedExpr, len(n.Elems))
	elemTypes := make([]types.Type, len(n.Elems))
	for i, e := range n.Elems {
		t, err := c.CheckExpr(e)
		if err != nil {
			return nil, err
		}
		elems[i] = t
		elemTypes[i] = t.Type()
	}
	return ast.TTupleConstruct{Elems: elems, Typ: types.Tuple{Elems: elemTypes}}, nil
}

func (c *Checker) checkBlock(n ast.Block) (ast.TypedExpr, error) {
	var pops []func()
	defer func() {
		for i := len(pops) - 1; i >= 0; i-- {
			pops[i]()
		}
	}()

	stmts := make([]ast.TLetStmt, len(n.Stmts))
	for i, s := range n.Stmts {
		declared, err := c.ResolveTypeExpr(s.Type)
		if err != nil {
			return nil, err
		}
		val, err := c.CheckExpr(s.Val)
		if err != nil {
			return nil, err
		}
		if !types.Equal(val.Type(), declared) {
			return nil, &TypeMismatchError{Context: "let " + s.Name, Expected: declared, Actual: val.Type()}
		}
		stmts[i] = ast.TLetStmt{Name: s.Name, Val: val, IsObject: declared.IsObject()}
		pops = append(pops, c.pushLocal(s.Name, declared))
	}
	final, err := c.CheckExpr(n.Final)
	if err != nil {
		return nil, err
	}
	return ast.TBlock{Stmts: stmts, Final: final, Typ: final.Type()}, nil
}

func expect(context string, want, got types.Type) error {
	if !types.Equal(want, got) {
		return &TypeMismatchError{Context: context, Expected: want, Actual: got}
	}
	return nil
}
