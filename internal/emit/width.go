package emit

import "encoding/binary"

// appendU8/u16/u32 append a little-endian unsigned immediate (§6 "exact
// byte layout"); signed i8/i16/i32 literal immediates use the same
// encoding, two's-complement, since Go's byte() / uint16() / uint32()
// conversions of a negative int already produce the right bit pattern.

func appendU8(buf []byte, v int) []byte  { return append(buf, byte(v)) }
func appendU16(buf []byte, v int) []byte { return binary.LittleEndian.AppendUint16(buf, uint16(v)) }
func appendU32(buf []byte, v int) []byte { return binary.LittleEndian.AppendUint32(buf, uint32(v)) }

// emitIndexed appends the narrowest-fitting opcode (and immediate, if
// any) that addresses index n within a short/u8/u16/u32 opcode family.
// shortBase is the family's first short opcode and shortCount how many
// consecutive short opcodes it owns (e.g. GetLocal0..GetLocal6 => 7);
// n below shortCount needs no immediate at all.
func emitIndexed(buf []byte, shortBase Opcode, shortCount int, u8, u16, u32 Opcode, n int) []byte {
	switch {
	case n < shortCount:
		return append(buf, byte(shortBase)+byte(n))
	case n <= 0xFF:
		buf = append(buf, byte(u8))
		return appendU8(buf, n)
	case n <= 0xFFFF:
		buf = append(buf, byte(u16))
		return appendU16(buf, n)
	default:
		buf = append(buf, byte(u32))
		return appendU32(buf, n)
	}
}

// emitFullWidthOnly appends the u8/u16/u32 form of a family with no short
// opcodes at all (node/data slot access, Call's func_offset).
func emitFullWidthOnly(buf []byte, u8, u16, u32 Opcode, n int) []byte {
	switch {
	case n <= 0xFF:
		buf = append(buf, byte(u8))
		return appendU8(buf, n)
	case n <= 0xFFFF:
		buf = append(buf, byte(u16))
		return appendU16(buf, n)
	default:
		buf = append(buf, byte(u32))
		return appendU32(buf, n)
	}
}

// emitIntLiteral appends the narrowest Int encoding (§6): dedicated short
// opcodes for 0..6, otherwise the narrowest signed width that holds v.
func emitIntLiteral(buf []byte, v int64) []byte {
	if v >= 0 && v <= 6 {
		return append(buf, byte(Int0)+byte(v))
	}
	switch {
	case v >= -128 && v <= 127:
		buf = append(buf, byte(IntI8))
		return appendU8(buf, int(int8(v)))
	case v >= -32768 && v <= 32767:
		buf = append(buf, byte(IntI16))
		return binary.LittleEndian.AppendUint16(buf, uint16(int16(v)))
	default:
		buf = append(buf, byte(IntI32))
		return binary.LittleEndian.AppendUint32(buf, uint32(int32(v)))
	}
}

// emitJump appends the narrowest jump opcode (short/u8/u32 — there is no
// u16 jump form, per the wire contract) for a forward displacement of
// disp bytes, counted from the byte immediately after this instruction.
func emitJump(buf []byte, short0, short1, op8, op32 Opcode, disp int) []byte {
	switch {
	case disp == 0:
		return append(buf, byte(short0))
	case disp == 1:
		return append(buf, byte(short1))
	case disp <= 0xFF:
		buf = append(buf, byte(op8))
		return appendU8(buf, disp)
	default:
		buf = append(buf, byte(op32))
		return appendU32(buf, disp)
	}
}

// jumpWidth reports how many bytes emitJump would produce for disp,
// without writing anything. No emitter path calls it; jump sizes are
// taken from the bytes emitJump returns.
func jumpWidth(disp int) int {
	switch {
	case disp == 0, disp == 1:
		return 1
	case disp <= 0xFF:
		return 2
	default:
		return 5
	}
}
