// Package emit implements the stack-machine code generator (C6) and the
// byte-code serializer (C7): it walks a typed AST and produces the
// variable-width instruction stream the VM decodes (§4.6, §6).
package emit

// Opcode is a single VM instruction byte. The numeric assignments are a
// stable wire contract with the VM (§6) — renumbering any of these breaks
// every previously-compiled image.
type Opcode byte

const (
	// --- Stack/arith: opcode only, no immediate ---
	Add Opcode = iota
	Sub
	Mul
	Div
	Mod
	Not
	Minus
	Eq
	Neq
	Leq
	Ls
	Geq
	Gt
	ShiftL
	ShiftR
	BitAnd
	BitOr
	BitXor
	PushTrue
	PushFalse
	ObjTag
	Halt
	Return
	Abort
	Print
	PrintObj

	// --- Int literal: short forms 0..6, then signed i8/i16/i32 ---
	Int0
	Int1
	Int2
	Int3
	Int4
	Int5
	Int6
	IntI8
	IntI16
	IntI32

	// --- Local slot family: GetLocal/SetLocal/DropLocalObj, short 0..6 + u8/u16/u32 ---
	GetLocal0
	GetLocal1
	GetLocal2
	GetLocal3
	GetLocal4
	GetLocal5
	GetLocal6
	GetLocalU8
	GetLocalU16
	GetLocalU32

	SetLocal0
	SetLocal1
	SetLocal2
	SetLocal3
	SetLocal4
	SetLocal5
	SetLocal6
	SetLocalU8
	SetLocalU16
	SetLocalU32

	DropLocalObj0
	DropLocalObj1
	DropLocalObj2
	DropLocalObj3
	DropLocalObj4
	DropLocalObj5
	DropLocalObj6
	DropLocalObjU8
	DropLocalObjU16
	DropLocalObjU32

	// --- AllocLocal: short 1..6 + u8/u16/u32 (high-water mark, never 0) ---
	AllocLocal1
	AllocLocal2
	AllocLocal3
	AllocLocal4
	AllocLocal5
	AllocLocal6
	AllocLocalU8
	AllocLocalU16
	AllocLocalU32

	// --- Pop: short 0..6 + u8/u16/u32 ---
	Pop0
	Pop1
	Pop2
	Pop3
	Pop4
	Pop5
	Pop6
	PopU8
	PopU16
	PopU32

	// --- ObjField / ObjFieldRef: short 0..6 + u8/u16/u32 ---
	ObjField0
	ObjField1
	ObjField2
	ObjField3
	ObjField4
	ObjField5
	ObjField6
	ObjFieldU8
	ObjFieldU16
	ObjFieldU32

	ObjFieldRef0
	ObjFieldRef1
	ObjFieldRef2
	ObjFieldRef3
	ObjFieldRef4
	ObjFieldRef5
	ObjFieldRef6
	ObjFieldRefU8
	ObjFieldRefU16
	ObjFieldRefU32

	// --- UpdateDev: short 0..3 + u8/u16/u32 ---
	UpdateDev0
	UpdateDev1
	UpdateDev2
	UpdateDev3
	UpdateDevU8
	UpdateDevU16
	UpdateDevU32

	// --- OutputAction: short 0..3 + u8/u16/u32 ---
	OutputAction0
	OutputAction1
	OutputAction2
	OutputAction3
	OutputActionU8
	OutputActionU16
	OutputActionU32

	// --- @last family: Get/Set x value/ref, short 0..3 + u8/u16/u32 ---
	GetLast0
	GetLast1
	GetLast2
	GetLast3
	GetLastU8
	GetLastU16
	GetLastU32

	SetLast0
	SetLast1
	SetLast2
	SetLast3
	SetLastU8
	SetLastU16
	SetLastU32

	GetLastRef0
	GetLastRef1
	GetLastRef2
	GetLastRef3
	GetLastRefU8
	GetLastRefU16
	GetLastRefU32

	SetLastRef0
	SetLastRef1
	SetLastRef2
	SetLastRef3
	SetLastRefU8
	SetLastRefU16
	SetLastRefU32

	// --- DropLast: releases an object-typed @last slot's refcount at the
	// end of the update epilogue, short 0..3 + u8/u16/u32 ---
	DropLast0
	DropLast1
	DropLast2
	DropLast3
	DropLastU8
	DropLastU16
	DropLastU32

	// --- AllocObj: max_entry short 0..6, else explicit u8; u32 header word always follows ---
	AllocObj0
	AllocObj1
	AllocObj2
	AllocObj3
	AllocObj4
	AllocObj5
	AllocObj6
	AllocObjU8

	// --- Jump families: short 0, 1 then u8/u32 displacement (no u16, per wire contract) ---
	J0
	J1
	J8
	J32

	Je0
	Je1
	Je8
	Je32

	Jne0
	Jne1
	Jne8
	Jne32

	// --- Node slot family: no short forms, u8/u16/u32 only ---
	GetNodeU8
	GetNodeU16
	GetNodeU32

	GetNodeRefU8
	GetNodeRefU16
	GetNodeRefU32

	SetNodeU8
	SetNodeU16
	SetNodeU32

	SetNodeRefU8
	SetNodeRefU16
	SetNodeRefU32

	UpdateNodeU8
	UpdateNodeU16
	UpdateNodeU32

	EndUpdateNodeU8
	EndUpdateNodeU16
	EndUpdateNodeU32

	EndUpdateNodeObjU8
	EndUpdateNodeObjU16
	EndUpdateNodeObjU32

	// --- Data slot family: no short forms, u8/u16/u32 only ---
	GetDataU8
	GetDataU16
	GetDataU32

	GetDataRefU8
	GetDataRefU16
	GetDataRefU32

	SetDataU8
	SetDataU16
	SetDataU32

	SetDataRefU8
	SetDataRefU16
	SetDataRefU32

	// --- Call: nargs u8 always follows the opcode, then func_offset width ---
	CallU8
	CallU16
	CallU32
)

// OpcodeNames maps every opcode to its mnemonic, for disassembly and
// debug dumps (mirrors the teacher's OpcodeNames table).
var OpcodeNames = map[Opcode]string{
	Add: "ADD", Sub: "SUB", Mul: "MUL", Div: "DIV", Mod: "MOD",
	Not: "NOT", Minus: "MINUS", Eq: "EQ", Neq: "NEQ", Leq: "LEQ", Ls: "LS",
	Geq: "GEQ", Gt: "GT", ShiftL: "SHL", ShiftR: "SHR",
	BitAnd: "BAND", BitOr: "BOR", BitXor: "BXOR",
	PushTrue: "TRUE", PushFalse: "FALSE", ObjTag: "OBJ_TAG",
	Halt: "HALT", Return: "RETURN", Abort: "ABORT",
	Print: "PRINT", PrintObj: "PRINT_OBJ",
}
