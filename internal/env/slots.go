// Package env implements the persistent compiler environment (C2, C3):
// the node/data/function slot directories with stable offsets, and the
// @last reference-counting manager.
package env

import (
	"fmt"
	"sort"

	"github.com/funvibe/fluxcore/internal/types"
)

// InputKind classifies where a node's value comes from.
type InputKind int

const (
	InputNone InputKind = iota // pre-registered slot with no user-supplied body yet
	InputDev                   // device input, pre-registered, never user-redefinable
	InputUser                  // registered by a user node declaration; carries a live Val to recompute every tick
)

// NodeSlot is one entry of the node directory (§3 "Node slot").
type NodeSlot struct {
	Offset       int
	Name         string
	Type         types.Type
	Prev         map[int]bool // immediate node dependencies (current-value edges)
	AtLast       map[int]bool // history dependencies
	IsNew        bool         // true only for the submission that introduced/overwrote it
	HasValue     bool         // true iff an initial value has ever been defined
	OutputOffset *int         // set for device output sinks
	InputKind    InputKind
}

func newNodeSlot(offset int, name string, typ types.Type) NodeSlot {
	return NodeSlot{
		Offset: offset,
		Name:   name,
		Type:   typ,
		Prev:   make(map[int]bool),
		AtLast: make(map[int]bool),
	}
}

func (n NodeSlot) clone() NodeSlot {
	cp := n
	cp.Prev = make(map[int]bool, len(n.Prev))
	for k := range n.Prev {
		cp.Prev[k] = true
	}
	cp.AtLast = make(map[int]bool, len(n.AtLast))
	for k := range n.AtLast {
		cp.AtLast[k] = true
	}
	if n.OutputOffset != nil {
		v := *n.OutputOffset
		cp.OutputOffset = &v
	}
	return cp
}

// NodeDef is the surface-level description of a node submitted for
// registration: its name, declared type, and whether it carries an init
// value (HasValue).
type NodeDef struct {
	Name     string
	Type     types.Type
	HasValue bool
}

// OverwriteDevInputError reports an attempt to redefine a pre-registered
// device-input node.
type OverwriteDevInputError struct{ Name string }

func (e *OverwriteDevInputError) Error() string {
	return fmt.Sprintf("cannot overwrite device input node %q", e.Name)
}

// ConflictNodeTypeError reports a node whose type is changing while a
// downstream node (not itself being redefined in this submission) still
// depends on its old type.
type ConflictNodeTypeError struct {
	Name       string
	Dependents []string
}

func (e *ConflictNodeTypeError) Error() string {
	sort.Strings(e.Dependents)
	return fmt.Sprintf("node %q changes type but is still depended on by %v", e.Name, e.Dependents)
}

// NodeTable is the node directory (C2).
type NodeTable struct {
	slots   []NodeSlot
	byName  map[string]int // name -> offset
}

// NewNodeTable returns an empty node directory.
func NewNodeTable() *NodeTable {
	return &NodeTable{byName: make(map[string]int)}
}

// Offset returns the offset of the node named name, if registered.
func (t *NodeTable) Offset(name string) (int, bool) {
	off, ok := t.byName[name]
	return off, ok
}

// Get returns the node slot at offset.
func (t *NodeTable) Get(offset int) NodeSlot { return t.slots[offset] }

// Len returns the number of registered node slots.
func (t *NodeTable) Len() int { return len(t.slots) }

// All returns a copy of every node slot, ordered by offset.
func (t *NodeTable) All() []NodeSlot {
	out := make([]NodeSlot, len(t.slots))
	copy(out, t.slots)
	return out
}

// AddInputNode pre-registers a device-input node (not subject to the
// ordinary user-registration policy; never user-overwritable).
func (t *NodeTable) AddInputNode(name string, typ types.Type) int {
	slot := newNodeSlot(len(t.slots), name, typ)
	slot.InputKind = InputDev
	slot.HasValue = true
	t.slots = append(t.slots, slot)
	t.byName[name] = slot.Offset
	return slot.Offset
}

// AddOutputNode pre-registers a sink node bound to device output channel 0
// (a multi-output system would assign distinct offsets here).
func (t *NodeTable) AddOutputNode(name string, typ types.Type) int {
	slot := newNodeSlot(len(t.slots), name, typ)
	zero := 0
	slot.OutputOffset = &zero
	t.slots = append(t.slots, slot)
	t.byName[name] = slot.Offset
	return slot.Offset
}

// Register installs or overwrites a user node definition (§4.2). redefined
// is the set of node names being (re)defined within the same submission,
// used for the conflict-node-type check: a type-changing redefinition is
// rejected if any dependent of the old slot is not itself in redefined.
// The dependents of a slot are the nodes whose Prev set currently contains
// its offset.
func (t *NodeTable) Register(def NodeDef, redefined map[string]bool, last *LastManager) (offset int, wasNew bool, err error) {
	existingOffset, exists := t.byName[def.Name]
	if !exists {
		slot := newNodeSlot(len(t.slots), def.Name, def.Type)
		slot.IsNew = true
		slot.HasValue = def.HasValue
		slot.InputKind = InputUser
		t.slots = append(t.slots, slot)
		t.byName[def.Name] = slot.Offset
		return slot.Offset, true, nil
	}

	old := t.slots[existingOffset]
	if old.InputKind == InputDev {
		return 0, false, &OverwriteDevInputError{Name: def.Name}
	}

	if !types.Equal(old.Type, def.Type) {
		var dependents []string
		for _, s := range t.slots {
			if s.Offset == existingOffset {
				continue
			}
			if s.Prev[existingOffset] && !redefined[s.Name] {
				dependents = append(dependents, s.Name)
			}
		}
		if len(dependents) > 0 {
			return 0, false, &ConflictNodeTypeError{Name: def.Name, Dependents: dependents}
		}
	}

	for old := range t.slots[existingOffset].AtLast {
		last.RemoveRef(old)
	}

	newSlot := newNodeSlot(existingOffset, def.Name, def.Type)
	newSlot.IsNew = true
	newSlot.HasValue = def.HasValue || old.HasValue
	newSlot.InputKind = InputUser
	newSlot.OutputOffset = old.OutputOffset
	t.slots[existingOffset] = newSlot
	return existingOffset, false, nil
}

// SetDeps records the prev/atlast sets computed by the dependency
// analyzer for the node at offset (called after Register, once the typed
// AST has been walked).
func (t *NodeTable) SetDeps(offset int, prev, atlast map[int]bool) {
	t.slots[offset].Prev = prev
	t.slots[offset].AtLast = atlast
}

// ClearIsNew resets every slot's IsNew flag; called at the start of each
// submission so IsNew reflects only the submission currently in progress.
func (t *NodeTable) ClearIsNew() {
	for i := range t.slots {
		t.slots[i].IsNew = false
	}
}

// Snapshot returns a deep copy for submission rollback.
func (t *NodeTable) Snapshot() *NodeTable {
	cp := &NodeTable{
		slots:  make([]NodeSlot, len(t.slots)),
		byName: make(map[string]int, len(t.byName)),
	}
	for i, s := range t.slots {
		cp.slots[i] = s.clone()
	}
	for k, v := range t.byName {
		cp.byName[k] = v
	}
	return cp
}

// Restore replaces the receiver's contents with snapshot's.
func (t *NodeTable) Restore(snapshot *NodeTable) {
	t.slots = snapshot.slots
	t.byName = snapshot.byName
}
