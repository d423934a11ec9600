package env

import "github.com/funvibe/fluxcore/internal/types"

// Environment is the full persistent compiler state threaded across REPL
// submissions: the type registry, the three slot directories, and the
// @last arena (§3, §5). A submission mutates it in place; on failure the
// simplest discipline (and the one fluxcore uses) is to snapshot at entry
// and restore on error.
type Environment struct {
	Types *types.Registry
	Nodes *NodeTable
	Data  *DataTable
	Funcs *FuncTable
	Last  *LastManager
}

// New returns a fresh, empty environment.
func New() *Environment {
	return &Environment{
		Types: types.NewRegistry(),
		Nodes: NewNodeTable(),
		Data:  NewDataTable(),
		Funcs: NewFuncTable(),
		Last:  NewLastManager(),
	}
}

// Snapshot captures the entire environment so a failed submission can be
// rolled back to exactly this point (§5, §7).
type Snapshot struct {
	types *types.Registry
	nodes *NodeTable
	data  *DataTable
	funcs *FuncTable
	last  *LastManager
}

// Snapshot takes a copy of the current environment.
func (e *Environment) Snapshot() Snapshot {
	return Snapshot{
		types: e.Types.Snapshot(),
		nodes: e.Nodes.Snapshot(),
		data:  e.Data.Snapshot(),
		funcs: e.Funcs.Snapshot(),
		last:  e.Last.Snapshot(),
	}
}

// Restore rolls the environment back to a previously captured snapshot.
func (e *Environment) Restore(s Snapshot) {
	e.Types.Restore(s.types)
	e.Nodes.Restore(s.nodes)
	e.Data.Restore(s.data)
	e.Funcs.Restore(s.funcs)
	e.Last.Restore(s.last)
}

// ClearIsNew resets every slot's IsNew flag; called at the start of each
// submission, before any registration for that submission happens.
func (e *Environment) ClearIsNew() {
	e.Nodes.ClearIsNew()
	e.Data.ClearIsNew()
	e.Funcs.ClearIsNew()
}
