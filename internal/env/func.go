package env

import "github.com/funvibe/fluxcore/internal/types"

// Param is one function parameter: an identifier and its declared type.
type Param struct {
	Name string
	Type types.Type
}

// FuncSlot is one entry of the function directory.
type FuncSlot struct {
	Offset int
	Name   string
	Params []Param
	Return types.Type
	IsNew  bool
}

// FuncDef is the surface-level description of a function submitted for
// registration.
type FuncDef struct {
	Name   string
	Params []Param
	Return types.Type
}

// FuncTable is the function directory (C2). Redefinition overwrites in
// place; the signature may change arbitrarily.
type FuncTable struct {
	slots  []FuncSlot
	byName map[string]int
}

// NewFuncTable returns an empty function directory.
func NewFuncTable() *FuncTable {
	return &FuncTable{byName: make(map[string]int)}
}

// Offset returns the offset of the function named name, if registered.
func (t *FuncTable) Offset(name string) (int, bool) {
	off, ok := t.byName[name]
	return off, ok
}

// Get returns the function slot at offset.
func (t *FuncTable) Get(offset int) FuncSlot { return t.slots[offset] }

// Len returns the number of registered function slots.
func (t *FuncTable) Len() int { return len(t.slots) }

// All returns a copy of every function slot, ordered by offset.
func (t *FuncTable) All() []FuncSlot {
	out := make([]FuncSlot, len(t.slots))
	copy(out, t.slots)
	return out
}

// Register installs or overwrites a function binding.
func (t *FuncTable) Register(def FuncDef) (offset int, wasNew bool) {
	slot := FuncSlot{Name: def.Name, Params: def.Params, Return: def.Return, IsNew: true}
	if existing, ok := t.byName[def.Name]; ok {
		slot.Offset = existing
		t.slots[existing] = slot
		return existing, false
	}
	slot.Offset = len(t.slots)
	t.slots = append(t.slots, slot)
	t.byName[def.Name] = slot.Offset
	return slot.Offset, true
}

// ClearIsNew resets every slot's IsNew flag.
func (t *FuncTable) ClearIsNew() {
	for i := range t.slots {
		t.slots[i].IsNew = false
	}
}

// Snapshot returns a copy for submission rollback.
func (t *FuncTable) Snapshot() *FuncTable {
	cp := &FuncTable{
		slots:  append([]FuncSlot(nil), t.slots...),
		byName: make(map[string]int, len(t.byName)),
	}
	for k, v := range t.byName {
		cp.byName[k] = v
	}
	return cp
}

// Restore replaces the receiver's contents with snapshot's.
func (t *FuncTable) Restore(snapshot *FuncTable) {
	t.slots = snapshot.slots
	t.byName = snapshot.byName
}
