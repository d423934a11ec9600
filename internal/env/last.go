package env

// lastEntry is one pair in the @last arena (C3): the node offset it is
// currently bound to, and how many live readers observe that node's
// previous-tick value. A refcount of zero marks the slot as free for
// reuse by the next allocation, mirroring the upvalue-slot reuse idiom
// the teacher's compiler uses for its closure upvalue arena.
type lastEntry struct {
	nodeOffset int
	refcount   int
	bound      bool // true once this entry has ever been assigned a node
}

// LastManager is the reference-counted @last (previous-tick) slot
// allocator (C3). Entries are allocated on first demand and their slot
// reused once refcount falls back to zero; allocation order is preserved
// across reuse so history-slot indices stay stable for as long as the
// entry is live.
type LastManager struct {
	entries []lastEntry
}

// NewLastManager returns an empty @last arena.
func NewLastManager() *LastManager {
	return &LastManager{}
}

// AddRef increments the refcount of the live entry for offset, reusing a
// refcount-0 entry or appending a new one if none exists yet.
func (m *LastManager) AddRef(offset int) {
	for i := range m.entries {
		if m.entries[i].bound && m.entries[i].refcount > 0 && m.entries[i].nodeOffset == offset {
			m.entries[i].refcount++
			return
		}
	}
	for i := range m.entries {
		if m.entries[i].refcount == 0 {
			m.entries[i].nodeOffset = offset
			m.entries[i].refcount = 1
			m.entries[i].bound = true
			return
		}
	}
	m.entries = append(m.entries, lastEntry{nodeOffset: offset, refcount: 1, bound: true})
}

// RemoveRef decrements the refcount of the live entry for offset. It is a
// caller bug to call this without a matching prior AddRef; fluxcore's own
// caller (NodeTable.Register, releasing a redefined node's old atlast set)
// guarantees this
// holds, so a mismatch panics rather than silently corrupting the arena.
func (m *LastManager) RemoveRef(offset int) {
	for i := range m.entries {
		if m.entries[i].bound && m.entries[i].refcount > 0 && m.entries[i].nodeOffset == offset {
			m.entries[i].refcount--
			return
		}
	}
	panic("env: RemoveRef called for offset with no live @last entry")
}

// CurrentOffset returns the history-slot index for nodeOffset, if a live
// entry exists.
func (m *LastManager) CurrentOffset(nodeOffset int) (int, bool) {
	for i := range m.entries {
		if m.entries[i].bound && m.entries[i].refcount > 0 && m.entries[i].nodeOffset == nodeOffset {
			return i, true
		}
	}
	return 0, false
}

// LastSlot is one line of a live_snapshot(): either a live node offset, or
// an empty (unallocated or freed) slot.
type LastSlot struct {
	NodeOffset int
	Live       bool
}

// LiveSnapshot returns one LastSlot per entry in allocation order. This is
// the source of truth for the update block's save-prologue/drop-epilogue
// (§4.6).
func (m *LastManager) LiveSnapshot() []LastSlot {
	out := make([]LastSlot, len(m.entries))
	for i, e := range m.entries {
		out[i] = LastSlot{NodeOffset: e.nodeOffset, Live: e.refcount > 0}
	}
	return out
}

// Snapshot returns a deep copy for submission rollback.
func (m *LastManager) Snapshot() *LastManager {
	return &LastManager{entries: append([]lastEntry(nil), m.entries...)}
}

// Restore replaces the receiver's contents with snapshot's.
func (m *LastManager) Restore(snapshot *LastManager) {
	m.entries = snapshot.entries
}
