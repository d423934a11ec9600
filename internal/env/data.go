package env

import "github.com/funvibe/fluxcore/internal/types"

// DataSlot is one entry of the data directory: a one-shot, dependency-free
// constant-like binding computed at init time.
type DataSlot struct {
	Offset int
	Name   string
	Type   types.Type
	IsNew  bool
}

// DataDef is the surface-level description of a data binding submitted for
// registration.
type DataDef struct {
	Name string
	Type types.Type
}

// DataTable is the data directory (C2). Any redefinition overwrites in
// place; the type signature may change arbitrarily since data has no
// dependents to protect.
type DataTable struct {
	slots  []DataSlot
	byName map[string]int
}

// NewDataTable returns an empty data directory.
func NewDataTable() *DataTable {
	return &DataTable{byName: make(map[string]int)}
}

// Offset returns the offset of the data binding named name, if registered.
func (t *DataTable) Offset(name string) (int, bool) {
	off, ok := t.byName[name]
	return off, ok
}

// Get returns the data slot at offset.
func (t *DataTable) Get(offset int) DataSlot { return t.slots[offset] }

// Len returns the number of registered data slots.
func (t *DataTable) Len() int { return len(t.slots) }

// All returns a copy of every data slot, ordered by offset.
func (t *DataTable) All() []DataSlot {
	out := make([]DataSlot, len(t.slots))
	copy(out, t.slots)
	return out
}

// Register installs or overwrites a data binding.
func (t *DataTable) Register(def DataDef) (offset int, wasNew bool) {
	if existing, ok := t.byName[def.Name]; ok {
		t.slots[existing] = DataSlot{Offset: existing, Name: def.Name, Type: def.Type, IsNew: true}
		return existing, false
	}
	slot := DataSlot{Offset: len(t.slots), Name: def.Name, Type: def.Type, IsNew: true}
	t.slots = append(t.slots, slot)
	t.byName[def.Name] = slot.Offset
	return slot.Offset, true
}

// ClearIsNew resets every slot's IsNew flag.
func (t *DataTable) ClearIsNew() {
	for i := range t.slots {
		t.slots[i].IsNew = false
	}
}

// Snapshot returns a copy for submission rollback.
func (t *DataTable) Snapshot() *DataTable {
	cp := &DataTable{
		slots:  append([]DataSlot(nil), t.slots...),
		byName: make(map[string]int, len(t.byName)),
	}
	for k, v := range t.byName {
		cp.byName[k] = v
	}
	return cp
}

// Restore replaces the receiver's contents with snapshot's.
func (t *DataTable) Restore(snapshot *DataTable) {
	t.slots = snapshot.slots
	t.byName = snapshot.byName
}
