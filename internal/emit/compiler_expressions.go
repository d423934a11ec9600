package emit

import (
	"github.com/funvibe/fluxcore/internal/ast"
	"github.com/funvibe/fluxcore/internal/types"
)

var binOpcode = map[ast.BinOp]Opcode{
	ast.OpAdd: Add, ast.OpSub: Sub, ast.OpMul: Mul, ast.OpDiv: Div, ast.OpMod: Mod,
	ast.OpShiftL: ShiftL, ast.OpShiftR: ShiftR,
	ast.OpBitAnd: BitAnd, ast.OpBitOr: BitOr, ast.OpBitXor: BitXor,
	ast.OpEq: Eq, ast.OpNeq: Neq,
	ast.OpLt: Ls, ast.OpLeq: Leq, ast.OpGt: Gt, ast.OpGeq: Geq,
}

// compileExpr lowers one typed expression into its byte-code, threading
// the compile-time local scope so identifier and pattern-binder loads
// resolve to the right slot.
func (c *Compiler) compileExpr(e ast.TypedExpr, sc *scope) []byte {
	switch n := e.(type) {
	case ast.TIntLit:
		return emitIntLiteral(nil, n.Value)

	case ast.TBoolLit:
		if n.Value {
			return []byte{byte(PushTrue)}
		}
		return []byte{byte(PushFalse)}

	case ast.TIdent:
		return c.compileIdent(n, sc)

	case ast.TLast:
		return c.compileLast(n)

	case ast.TBinary:
		return c.compileBinary(n, sc)

	case ast.TUnary:
		operand := c.compileExpr(n.Operand, sc)
		op := Not
		if n.Op == ast.OpNegate {
			op = Minus
		}
		return append(operand, byte(op))

	case ast.TIf:
		return c.compileIf(n, sc)

	case ast.TCall:
		return c.compileCall(n, sc)

	case ast.TVariantConstruct:
		return c.compileVariantConstruct(n, sc)

	case ast.TTupleConstruct:
		return c.compileTupleConstruct(n, sc)

	case ast.TBlock:
		return c.compileBlock(n, sc)

	case ast.TMatch:
		return c.compileMatch(n, sc)

	default:
		panic("emit: unhandled typed expression kind")
	}
}

func (c *Compiler) compileIdent(n ast.TIdent, sc *scope) []byte {
	switch n.Source {
	case ast.SourceLocal:
		lv, ok := sc.resolve(n.Name)
		if !ok {
			panic("emit: unresolved local identifier " + n.Name)
		}
		return emitIndexed(nil, GetLocal0, 7, GetLocalU8, GetLocalU16, GetLocalU32, lv.slot)
	case ast.SourceNode:
		if n.Typ.IsObject() {
			return emitFullWidthOnly(nil, GetNodeRefU8, GetNodeRefU16, GetNodeRefU32, n.Offset)
		}
		return emitFullWidthOnly(nil, GetNodeU8, GetNodeU16, GetNodeU32, n.Offset)
	case ast.SourceData:
		if n.Typ.IsObject() {
			return emitFullWidthOnly(nil, GetDataRefU8, GetDataRefU16, GetDataRefU32, n.Offset)
		}
		return emitFullWidthOnly(nil, GetDataU8, GetDataU16, GetDataU32, n.Offset)
	default:
		panic("emit: unknown identifier source")
	}
}

// compileLast lowers `@last x` (§4.6): a live history slot is preferred;
// otherwise (the only reader is the node itself, no save was performed
// this tick) it reads the node's current value directly.
func (c *Compiler) compileLast(n ast.TLast) []byte {
	if h, live := c.last.CurrentOffset(n.NodeOffset); live {
		if n.Typ.IsObject() {
			return emitIndexed(nil, GetLastRef0, 4, GetLastRefU8, GetLastRefU16, GetLastRefU32, h)
		}
		return emitIndexed(nil, GetLast0, 4, GetLastU8, GetLastU16, GetLastU32, h)
	}
	if n.Typ.IsObject() {
		return emitFullWidthOnly(nil, GetNodeRefU8, GetNodeRefU16, GetNodeRefU32, n.NodeOffset)
	}
	return emitFullWidthOnly(nil, GetNodeU8, GetNodeU16, GetNodeU32, n.NodeOffset)
}

func (c *Compiler) compileBinary(n ast.TBinary, sc *scope) []byte {
	switch n.Op {
	case ast.OpAnd:
		return c.compileShortCircuit(n, sc, PushFalse)
	case ast.OpOr:
		return c.compileShortCircuit(n, sc, PushTrue)
	default:
		left := c.compileExpr(n.Left, sc)
		right := c.compileExpr(n.Right, sc)
		op, ok := binOpcode[n.Op]
		if !ok {
			panic("emit: unhandled binary operator")
		}
		out := append(left, right...)
		return append(out, byte(op))
	}
}

// compileShortCircuit lowers `&&`/`||` (§4.6): a conditional jump past
// the second operand, with a constant push on the short path. shortConst
// is PushFalse for `&&` (short-circuits on a false left operand) or
// PushTrue for `||` (short-circuits on a true left operand).
func (c *Compiler) compileShortCircuit(n ast.TBinary, sc *scope, shortConst Opcode) []byte {
	left := c.compileExpr(n.Left, sc)
	right := c.compileExpr(n.Right, sc)

	shortPath := []byte{byte(shortConst)}
	jumpPast := emitJump(nil, J0, J1, J8, J32, len(shortPath))

	dispToShort := len(right) + len(jumpPast)
	je := emitJump(nil, Je0, Je1, Je8, Je32, dispToShort)

	out := append([]byte{}, left...)
	out = append(out, byte(shortConst))
	out = append(out, je...)
	out = append(out, right...)
	out = append(out, jumpPast...)
	out = append(out, shortPath...)
	return out
}

// compileIf lowers `if cond then e1 else e2` (§4.6): evaluate cond; push
// false; Je to the else-arm; then-arm; unconditional jump past else;
// else-arm. Je/Jne are fused compare-and-branch instructions: they pop
// two operands, test (in)equality, and jump by the displacement if the
// test holds — no separate equality opcode is needed for the branch
// test itself.
func (c *Compiler) compileIf(n ast.TIf, sc *scope) []byte {
	cond := c.compileExpr(n.Cond, sc)
	thenBytes := c.compileExpr(n.Then, sc)
	elseBytes := c.compileExpr(n.Else, sc)

	jumpPastElse := emitJump(nil, J0, J1, J8, J32, len(elseBytes))
	dispToElse := len(thenBytes) + len(jumpPastElse)
	je := emitJump(nil, Je0, Je1, Je8, Je32, dispToElse)

	out := append([]byte{}, cond...)
	out = append(out, byte(PushFalse))
	out = append(out, je...)
	out = append(out, thenBytes...)
	out = append(out, jumpPastElse...)
	out = append(out, elseBytes...)
	return out
}

// compileCall emits `fnCall(id, args)` (§4.6): each argument in order,
// then Call — one opcode sized to func_offset's width, an nargs:u8
// immediate, then the func_offset immediate of that same width.
func (c *Compiler) compileCall(n ast.TCall, sc *scope) []byte {
	var out []byte
	for _, a := range n.Args {
		out = append(out, c.compileExpr(a, sc)...)
	}
	var op Opcode
	switch {
	case n.FuncOffset <= 0xFF:
		op = CallU8
	case n.FuncOffset <= 0xFFFF:
		op = CallU16
	default:
		op = CallU32
	}
	out = append(out, byte(op))
	out = appendU8(out, len(n.Args))
	switch op {
	case CallU8:
		out = appendU8(out, n.FuncOffset)
	case CallU16:
		out = appendU16(out, n.FuncOffset)
	default:
		out = appendU32(out, n.FuncOffset)
	}
	return out
}

// emitAllocObj appends AllocObj's opcode selected by nEntry, the object's
// max entry count (the largest variant field count of a sum, or a tuple's
// arity): short 0..6, else a u8 immediate — field counts never exceed 255,
// so no wider form exists — followed by the packed u32 header word.
func emitAllocObj(buf []byte, nEntry int, header uint32) []byte {
	if nEntry < 7 {
		buf = append(buf, byte(AllocObj0)+byte(nEntry))
	} else {
		buf = append(buf, byte(AllocObjU8))
		buf = appendU8(buf, nEntry)
	}
	return appendU32(buf, int(header))
}

func (c *Compiler) compileVariantConstruct(n ast.TVariantConstruct, sc *scope) []byte {
	var out []byte
	argTypes := make([]types.Type, len(n.Args))
	for i, a := range n.Args {
		out = append(out, c.compileExpr(a, sc)...)
		argTypes[i] = a.Type()
	}
	return emitAllocObj(out, n.MaxEntry, objHeader(n.Tag, len(n.Args), argTypes))
}

func (c *Compiler) compileTupleConstruct(n ast.TTupleConstruct, sc *scope) []byte {
	var out []byte
	elemTypes := make([]types.Type, len(n.Elems))
	for i, a := range n.Elems {
		out = append(out, c.compileExpr(a, sc)...)
		elemTypes[i] = a.Type()
	}
	return emitAllocObj(out, len(n.Elems), objHeader(1, len(n.Elems), elemTypes))
}

func (c *Compiler) compileBlock(n ast.TBlock, sc *scope) []byte {
	base := sc.depth()
	var out []byte
	var slots []int
	for _, stmt := range n.Stmts {
		out = append(out, c.compileExpr(stmt.Val, sc)...)
		slot := sc.push(stmt.Name, stmt.IsObject)
		out = append(out, emitIndexed(nil, SetLocal0, 7, SetLocalU8, SetLocalU16, SetLocalU32, slot)...)
		slots = append(slots, slot)
	}
	out = append(out, c.compileExpr(n.Final, sc)...)
	for i := len(n.Stmts) - 1; i >= 0; i-- {
		if n.Stmts[i].IsObject {
			out = append(out, emitIndexed(nil, DropLocalObj0, 7, DropLocalObjU8, DropLocalObjU16, DropLocalObjU32, slots[i])...)
		}
	}
	sc.truncate(base, nil)
	return out
}
