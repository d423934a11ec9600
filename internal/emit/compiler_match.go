package emit

import "github.com/funvibe/fluxcore/internal/ast"

// compileMatch lowers a pattern-match expression (§4.6): the scrutinee is
// stored in a fresh local M (and, for a sum-typed scrutinee, its tag
// cached in a second local); each arm tests against M/tag and falls
// through to the next arm's test on mismatch; an unmatched sum/int match
// with no catch-all arm reaches Abort.
func (c *Compiler) compileMatch(n ast.TMatch, sc *scope) []byte {
	base := sc.depth()
	var out []byte

	out = append(out, c.compileExpr(n.Scrutinee, sc)...)
	mSlot := sc.push("", n.Scrutinee.Type().IsObject())
	out = append(out, emitIndexed(nil, SetLocal0, 7, SetLocalU8, SetLocalU16, SetLocalU32, mSlot)...)

	tagSlot := -1
	if n.IsSum {
		out = append(out, emitIndexed(nil, GetLocal0, 7, GetLocalU8, GetLocalU16, GetLocalU32, mSlot)...)
		out = append(out, byte(ObjTag))
		tagSlot = sc.push("", false)
		out = append(out, emitIndexed(nil, SetLocal0, 7, SetLocalU8, SetLocalU16, SetLocalU32, tagSlot)...)
	}

	scrutineeIsObject := n.Scrutinee.Type().IsObject()
	var tail []byte
	if !n.HasCatchAll {
		tail = []byte{byte(Abort)}
	}
	for i := len(n.Arms) - 1; i >= 0; i-- {
		tail = c.compileArm(n.Arms[i], mSlot, tagSlot, scrutineeIsObject, sc, tail)
	}
	out = append(out, tail...)

	if n.Scrutinee.Type().IsObject() {
		out = append(out, emitIndexed(nil, DropLocalObj0, 7, DropLocalObjU8, DropLocalObjU16, DropLocalObjU32, mSlot)...)
	}
	sc.truncate(base, nil)
	return out
}

// compileArm builds one arm's code, prepending it to rest (the already
// assembled code for every later arm plus the trailing Abort, if any),
// since each arm's forward-jump displacements depend only on what follows
// it — computable bottom-up without any later patch pass.
func (c *Compiler) compileArm(arm ast.TMatchArm, mSlot, tagSlot int, scrutineeIsObject bool, sc *scope, rest []byte) []byte {
	armBase := sc.depth()
	bodyAndBindings := c.compileArmBody(arm, mSlot, scrutineeIsObject, sc)
	sc.truncate(armBase, nil)

	jumpToEnd := emitJump(nil, J0, J1, J8, J32, len(rest))
	skip := len(bodyAndBindings) + len(jumpToEnd)

	test := c.compileArmTest(arm.Pattern, mSlot, tagSlot, skip)

	out := append([]byte{}, test...)
	out = append(out, bodyAndBindings...)
	out = append(out, jumpToEnd...)
	out = append(out, rest...)
	return out
}

// compileArmTest emits the reload+compare+Jne-over-skip for the arm's
// top-level pattern; wildcard/ident patterns never fail to match, so no
// test is emitted for them.
func (c *Compiler) compileArmTest(p ast.TPattern, mSlot, tagSlot, skip int) []byte {
	switch p.Kind {
	case ast.PatternWildcard, ast.PatternIdent:
		return nil
	case ast.PatternInt:
		out := emitIndexed(nil, GetLocal0, 7, GetLocalU8, GetLocalU16, GetLocalU32, mSlot)
		out = emitIntLiteral(out, p.IntVal)
		return emitJune(out, skip)
	case ast.PatternBool:
		out := emitIndexed(nil, GetLocal0, 7, GetLocalU8, GetLocalU16, GetLocalU32, mSlot)
		if p.BoolVal {
			out = append(out, byte(PushTrue))
		} else {
			out = append(out, byte(PushFalse))
		}
		return emitJune(out, skip)
	case ast.PatternVariant:
		out := emitIndexed(nil, GetLocal0, 7, GetLocalU8, GetLocalU16, GetLocalU32, tagSlot)
		out = emitIntLiteral(out, int64(p.Tag))
		return emitJune(out, skip)
	case ast.PatternTuple:
		return nil
	default:
		panic("emit: unhandled pattern kind in test position")
	}
}

// emitJune appends the Jne instruction (jump-if-not-equal, fused compare)
// skipping skip bytes when the two just-pushed operands differ.
func emitJune(buf []byte, skip int) []byte {
	return emitJump(buf, Jne0, Jne1, Jne8, Jne32, skip)
}

// compileArmBody emits the field-binder reloads (for variant/tuple
// patterns), pushes each as a local, compiles the arm body, then pops the
// pattern-introduced locals (dropping any that are object-typed).
func (c *Compiler) compileArmBody(arm ast.TMatchArm, mSlot int, scrutineeIsObject bool, sc *scope) []byte {
	base := sc.depth()
	var out []byte

	switch arm.Pattern.Kind {
	case ast.PatternIdent:
		out = append(out, emitIndexed(nil, GetLocal0, 7, GetLocalU8, GetLocalU16, GetLocalU32, mSlot)...)
		slot := sc.push(arm.Pattern.Name, scrutineeIsObject)
		out = append(out, emitIndexed(nil, SetLocal0, 7, SetLocalU8, SetLocalU16, SetLocalU32, slot)...)

	case ast.PatternVariant, ast.PatternTuple:
		for i, sub := range arm.Pattern.Fields {
			if sub.Kind == ast.PatternWildcard {
				continue
			}
			out = append(out, emitIndexed(nil, GetLocal0, 7, GetLocalU8, GetLocalU16, GetLocalU32, mSlot)...)
			out = append(out, emitIndexed(nil, ObjField0, 7, ObjFieldU8, ObjFieldU16, ObjFieldU32, i)...)
			name := sub.Name
			isObj := false
			if i < len(arm.Pattern.FieldIsObject) {
				isObj = arm.Pattern.FieldIsObject[i]
			}
			slot := sc.push(name, isObj)
			out = append(out, emitIndexed(nil, SetLocal0, 7, SetLocalU8, SetLocalU16, SetLocalU32, slot)...)
		}

	case ast.PatternWildcard, ast.PatternInt, ast.PatternBool:
		// no binding introduced

	default:
		panic("emit: unhandled pattern kind in body position")
	}

	out = append(out, c.compileExpr(arm.Body, sc)...)

	bound := sc.depth() - base
	for i := 0; i < bound; i++ {
		lv := sc.pop()
		if lv.isObject {
			out = append(out, emitIndexed(nil, DropLocalObj0, 7, DropLocalObjU8, DropLocalObjU16, DropLocalObjU32, lv.slot)...)
		}
	}
	return out
}
