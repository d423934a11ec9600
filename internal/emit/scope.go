package emit

import "github.com/funvibe/fluxcore/internal/checker"

// maxLocals is the largest local-variable count a frame may hold (§7
// caps it at 255 to match the reference compiler), so every local index
// fits the short or u8 forms of the local-index opcodes
// (GetLocal/SetLocal/DropLocalObj and friends).
const maxLocals = 255

// localVar is one compile-time local binding: its runtime slot index and
// whether values of its type are heap objects (and therefore need a
// DropLocalObj at scope exit).
type localVar struct {
	name     string
	slot     int
	isObject bool
}

// scope is the compile-time mirror of the VM's per-call local-variable
// stack (the teacher's compiler_scope.go idiom, generalized from lexical
// closures to this language's flat let-block locals). It assigns stable
// slot indices as `let` bindings and function parameters come into view,
// and tracks the high-water mark AllocLocal must reserve.
type scope struct {
	locals   []localVar
	maxSlots int
}

func newScope() *scope { return &scope{} }

// push introduces a new local binding and returns its slot index. It
// panics with a *checker.ResourceLimitError if doing so would exceed
// maxLocals; the package's public Compile* entry points recover this and
// return it as an ordinary error.
func (s *scope) push(name string, isObject bool) int {
	slot := len(s.locals)
	if slot >= maxLocals {
		panic(&checker.ResourceLimitError{Kind: "local variables", Limit: maxLocals})
	}
	s.locals = append(s.locals, localVar{name: name, slot: slot, isObject: isObject})
	if slot+1 > s.maxSlots {
		s.maxSlots = slot + 1
	}
	return slot
}

// pop discards the most recently pushed binding, returning it so the
// caller can decide whether to emit a DropLocalObj.
func (s *scope) pop() localVar {
	last := s.locals[len(s.locals)-1]
	s.locals = s.locals[:len(s.locals)-1]
	return last
}

// resolve finds the innermost-scoped slot bound to name.
func (s *scope) resolve(name string) (localVar, bool) {
	for i := len(s.locals) - 1; i >= 0; i-- {
		if s.locals[i].name == name {
			return s.locals[i], true
		}
	}
	return localVar{}, false
}

// depth reports the number of live locals, for save/restore around
// sub-expression compilation that pushes and must fully unwind its own
// bindings (match arms, nested blocks).
func (s *scope) depth() int { return len(s.locals) }

// truncate discards every local above depth n, in LIFO order, invoking
// drop for each one that held an object value.
func (s *scope) truncate(n int, drop func(localVar)) {
	for len(s.locals) > n {
		v := s.pop()
		if drop != nil {
			drop(v)
		}
	}
}
