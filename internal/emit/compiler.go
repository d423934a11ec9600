package emit

import (
	"github.com/funvibe/fluxcore/internal/ast"
	"github.com/funvibe/fluxcore/internal/checker"
	"github.com/funvibe/fluxcore/internal/env"
	"github.com/funvibe/fluxcore/internal/types"
)

// recoverResourceLimit turns a *checker.ResourceLimitError panic raised by
// scope.push into a returned error, re-panicking anything else.
func recoverResourceLimit(err *error) {
	if r := recover(); r != nil {
		if e, ok := r.(*checker.ResourceLimitError); ok {
			*err = e
			return
		}
		panic(r)
	}
}

// Compiler is the code emitter (C6): it walks typed AST and produces
// variable-width byte-code, consulting the live environment only to
// decide object-vs-value opcode forms and @last slot liveness.
type Compiler struct {
	nodes *env.NodeTable
	data  *env.DataTable
	funcs *env.FuncTable
	last  *env.LastManager
}

// New returns a code emitter bound to the given environment tables. The
// emitter never mutates them; it only reads offsets, types and @last
// liveness to pick opcodes.
func New(nodes *env.NodeTable, data *env.DataTable, funcs *env.FuncTable, last *env.LastManager) *Compiler {
	return &Compiler{nodes: nodes, data: data, funcs: funcs, last: last}
}

// prologue prepends the AllocLocal instruction sizing the frame for extra
// (non-parameter) local slots, once the body has been fully compiled and
// its high-water mark is known.
func prologue(body []byte, extraLocals int) []byte {
	if extraLocals <= 0 {
		return body
	}
	var alloc []byte
	if extraLocals <= 6 {
		alloc = append(alloc, byte(AllocLocal1)+byte(extraLocals-1))
	} else {
		alloc = emitFullWidthOnly(nil, AllocLocalU8, AllocLocalU16, AllocLocalU32, extraLocals)
	}
	out := make([]byte, 0, len(alloc)+len(body))
	out = append(out, alloc...)
	return append(out, body...)
}

// CompileNodeBody emits a node-value body (§4.6 "Node-value body"): the
// emitter mirrors the VM's pushed return address with one anonymous
// symbol-table entry, emits the value expression, then the sink/epilogue
// instructions.
func (c *Compiler) CompileNodeBody(offset int, val ast.TypedExpr, outputOffset *int) (out []byte, err error) {
	defer recoverResourceLimit(&err)

	sc := newScope()
	sc.push("", false) // anonymous return-address slot
	body := c.compileExpr(val, sc)

	if outputOffset != nil {
		body = append(body, emitIndexed(nil, OutputAction0, 4, OutputActionU8, OutputActionU16, OutputActionU32, *outputOffset)...)
	}

	if val.Type().IsObject() {
		body = append(body, emitFullWidthOnly(nil, EndUpdateNodeObjU8, EndUpdateNodeObjU16, EndUpdateNodeObjU32, offset)...)
	} else {
		body = append(body, emitFullWidthOnly(nil, EndUpdateNodeU8, EndUpdateNodeU16, EndUpdateNodeU32, offset)...)
	}

	extra := sc.maxSlots - 1
	return prologue(body, extra), nil
}

// CompileFuncBody emits a function body (§4.6 "Function body"): each
// parameter is bound as a local occupying the call convention's incoming
// frame slots; object-typed parameters are dropped before Return.
func (c *Compiler) CompileFuncBody(params []env.Param, body ast.TypedExpr) (out []byte, err error) {
	defer recoverResourceLimit(&err)

	sc := newScope()
	for _, p := range params {
		sc.push(p.Name, p.Type.IsObject())
	}
	code := c.compileExpr(body, sc)
	for _, p := range params {
		if p.Type.IsObject() {
			lv, _ := sc.resolve(p.Name)
			code = append(code, emitIndexed(nil, DropLocalObj0, 7, DropLocalObjU8, DropLocalObjU16, DropLocalObjU32, lv.slot)...)
		}
	}
	code = append(code, byte(Return))

	extra := sc.maxSlots - len(params)
	return prologue(code, extra), nil
}

// NewDataBinding and NewNodeInit are init-block entries consumed by
// CompileInitBody.
type NewDataBinding struct {
	Offset int
	Val    ast.TypedExpr
}

type NewNodeInit struct {
	Offset       int
	Val          ast.TypedExpr
	ExistedAsObj bool // true if overwriting a previously-existing object-typed slot
}

// CompileInitBody emits the init block (§4.6 "Init body"): every newly
// defined data slot's value, followed by every node's init value, each
// stored by value or by (overwrite) reference, terminated by Halt.
func (c *Compiler) CompileInitBody(dataBindings []NewDataBinding, nodeInits []NewNodeInit) (out []byte, err error) {
	defer recoverResourceLimit(&err)

	sc := newScope()
	var code []byte
	for _, d := range dataBindings {
		code = append(code, c.compileExpr(d.Val, sc)...)
		if d.Val.Type().IsObject() {
			code = append(code, emitFullWidthOnly(nil, SetDataRefU8, SetDataRefU16, SetDataRefU32, d.Offset)...)
		} else {
			code = append(code, emitFullWidthOnly(nil, SetDataU8, SetDataU16, SetDataU32, d.Offset)...)
		}
	}
	for _, n := range nodeInits {
		code = append(code, c.compileExpr(n.Val, sc)...)
		if n.ExistedAsObj && n.Val.Type().IsObject() {
			code = append(code, emitFullWidthOnly(nil, SetNodeRefU8, SetNodeRefU16, SetNodeRefU32, n.Offset)...)
		} else {
			code = append(code, emitFullWidthOnly(nil, SetNodeU8, SetNodeU16, SetNodeU32, n.Offset)...)
		}
	}
	code = append(code, byte(Halt))
	return prologue(code, sc.maxSlots), nil
}

// CompileUpdateBody emits the per-tick global update block (§4.6 "Update
// body"): the @last save-prologue, the topologically-ordered node
// updates, and the @last drop-epilogue.
func (c *Compiler) CompileUpdateBody(order []int, hasNodeDefs bool) []byte {
	if !hasNodeDefs {
		return nil
	}
	var code []byte

	liveSlots := c.last.LiveSnapshot()
	for h, slot := range liveSlots {
		if !slot.Live {
			continue
		}
		n := c.nodes.Get(slot.NodeOffset)
		if n.Type.IsObject() {
			code = append(code, emitFullWidthOnly(nil, GetNodeRefU8, GetNodeRefU16, GetNodeRefU32, slot.NodeOffset)...)
		} else {
			code = append(code, emitFullWidthOnly(nil, GetNodeU8, GetNodeU16, GetNodeU32, slot.NodeOffset)...)
		}
		code = append(code, emitIndexed(nil, SetLast0, 4, SetLastU8, SetLastU16, SetLastU32, h)...)
	}

	for _, offset := range order {
		n := c.nodes.Get(offset)
		switch n.InputKind {
		case env.InputDev:
			code = append(code, emitIndexed(nil, UpdateDev0, 4, UpdateDevU8, UpdateDevU16, UpdateDevU32, offset)...)
		case env.InputNone:
			continue
		default:
			code = append(code, emitFullWidthOnly(nil, UpdateNodeU8, UpdateNodeU16, UpdateNodeU32, offset)...)
		}
	}

	for h, slot := range liveSlots {
		if !slot.Live {
			continue
		}
		n := c.nodes.Get(slot.NodeOffset)
		if n.Type.IsObject() {
			code = append(code, emitIndexed(nil, DropLast0, 4, DropLastU8, DropLastU16, DropLastU32, h)...)
		}
	}

	code = append(code, byte(Halt))
	return code
}

// CompileEval emits an Eval payload's instruction stream (§8 scenario 2):
// the expression's value, then Print/PrintObj, then Halt.
func (c *Compiler) CompileEval(e ast.TypedExpr) (out []byte, err error) {
	defer recoverResourceLimit(&err)

	sc := newScope()
	code := c.compileExpr(e, sc)
	if e.Type().IsObject() {
		code = append(code, byte(PrintObj))
	} else {
		code = append(code, byte(Print))
	}
	code = append(code, byte(Halt))
	return prologue(code, sc.maxSlots), nil
}

// objHeader packs the AllocObj header word (§6): tag:7 | reserved:1 |
// n_entry:3 | obj_bitmap:7 | refcount:14, refcount initialized to 1.
func objHeader(tag, nEntry int, fieldTypes []types.Type) uint32 {
	var bitmap uint32
	for i, t := range fieldTypes {
		if t.IsObject() {
			bitmap |= 1 << uint(i)
		}
	}
	return (uint32(tag) << 25) | (uint32(nEntry) << 21) | (bitmap << 14) | 1
}
