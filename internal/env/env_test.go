package env

import (
	"testing"

	"github.com/funvibe/fluxcore/internal/types"
	"github.com/stretchr/testify/require"
)

func TestNodeRegisterNewAssignsStableOffsets(t *testing.T) {
	nt := NewNodeTable()
	last := NewLastManager()
	off1, isNew1, err := nt.Register(NodeDef{Name: "a", Type: types.Int{}, HasValue: true}, map[string]bool{"a": true}, last)
	require.NoError(t, err)
	require.True(t, isNew1)
	require.Equal(t, 0, off1)

	off2, isNew2, err := nt.Register(NodeDef{Name: "b", Type: types.Int{}, HasValue: true}, map[string]bool{"b": true}, last)
	require.NoError(t, err)
	require.True(t, isNew2)
	require.Equal(t, 1, off2)
}

func TestNodeOverwritePreservesOffsetAndOutput(t *testing.T) {
	nt := NewNodeTable()
	last := NewLastManager()
	outOff := nt.AddOutputNode("led", types.Bool{})

	off, isNew, err := nt.Register(NodeDef{Name: "led", Type: types.Int{}, HasValue: true}, map[string]bool{"led": true}, last)
	require.NoError(t, err)
	require.False(t, isNew)
	require.Equal(t, outOff, off)
	require.NotNil(t, nt.Get(off).OutputOffset)
	require.Equal(t, 0, *nt.Get(off).OutputOffset)
}

func TestDevInputOverwriteRejected(t *testing.T) {
	nt := NewNodeTable()
	last := NewLastManager()
	nt.AddInputNode("gpio16", types.Int{})

	_, _, err := nt.Register(NodeDef{Name: "gpio16", Type: types.Int{}, HasValue: true}, map[string]bool{"gpio16": true}, last)
	require.Error(t, err)
	require.IsType(t, &OverwriteDevInputError{}, err)
}

func TestConflictNodeTypeWhenDependentNotRedefined(t *testing.T) {
	nt := NewNodeTable()
	last := NewLastManager()

	aOff, _, err := nt.Register(NodeDef{Name: "a", Type: types.Int{}, HasValue: true}, map[string]bool{"a": true}, last)
	require.NoError(t, err)
	bOff, _, err := nt.Register(NodeDef{Name: "b", Type: types.Int{}, HasValue: true}, map[string]bool{"b": true}, last)
	require.NoError(t, err)
	nt.SetDeps(bOff, map[int]bool{aOff: true}, map[int]bool{})

	_, _, err = nt.Register(NodeDef{Name: "a", Type: types.Bool{}, HasValue: true}, map[string]bool{"a": true}, last)
	require.Error(t, err)
	cErr, ok := err.(*ConflictNodeTypeError)
	require.True(t, ok)
	require.Equal(t, []string{"b"}, cErr.Dependents)
}

func TestConflictNodeTypeAcceptedWhenDependentAlsoRedefined(t *testing.T) {
	nt := NewNodeTable()
	last := NewLastManager()

	aOff, _, err := nt.Register(NodeDef{Name: "a", Type: types.Int{}, HasValue: true}, map[string]bool{"a": true, "b": true}, last)
	require.NoError(t, err)
	bOff, _, err := nt.Register(NodeDef{Name: "b", Type: types.Int{}, HasValue: true}, map[string]bool{"a": true, "b": true}, last)
	require.NoError(t, err)
	nt.SetDeps(bOff, map[int]bool{aOff: true}, map[int]bool{})

	_, _, err = nt.Register(NodeDef{Name: "a", Type: types.Bool{}, HasValue: true}, map[string]bool{"a": true, "b": true}, last)
	require.NoError(t, err)
}

func TestNodeTypeNarrowingWithNoDependentsAccepted(t *testing.T) {
	nt := NewNodeTable()
	last := NewLastManager()
	_, _, err := nt.Register(NodeDef{Name: "a", Type: types.Int{}, HasValue: true}, map[string]bool{"a": true}, last)
	require.NoError(t, err)
	_, _, err = nt.Register(NodeDef{Name: "a", Type: types.Bool{}, HasValue: true}, map[string]bool{"a": true}, last)
	require.NoError(t, err)
}

func TestNodeOverwriteReleasesOldAtLastRefs(t *testing.T) {
	nt := NewNodeTable()
	last := NewLastManager()
	off, _, err := nt.Register(NodeDef{Name: "a", Type: types.Int{}, HasValue: true}, map[string]bool{"a": true}, last)
	require.NoError(t, err)
	last.AddRef(off)
	nt.SetDeps(off, map[int]bool{}, map[int]bool{off: true})

	_, _, err = nt.Register(NodeDef{Name: "a", Type: types.Int{}, HasValue: true}, map[string]bool{"a": true}, last)
	require.NoError(t, err)
	_, live := last.CurrentOffset(off)
	require.False(t, live)
}

func TestLastManagerAddRefReuseAndSnapshot(t *testing.T) {
	m := NewLastManager()
	m.AddRef(5)
	m.AddRef(5)
	idx, live := m.CurrentOffset(5)
	require.True(t, live)
	require.Equal(t, 0, idx)

	m.RemoveRef(5)
	m.RemoveRef(5)
	_, live = m.CurrentOffset(5)
	require.False(t, live)

	m.AddRef(9) // must reuse the freed slot 0, not append
	snap := m.LiveSnapshot()
	require.Len(t, snap, 1)
	require.True(t, snap[0].Live)
	require.Equal(t, 9, snap[0].NodeOffset)
}

func TestDataAndFuncOverwriteArbitraryRetype(t *testing.T) {
	dt := NewDataTable()
	off, isNew := dt.Register(DataDef{Name: "x", Type: types.Int{}})
	require.True(t, isNew)
	off2, isNew2 := dt.Register(DataDef{Name: "x", Type: types.Bool{}})
	require.False(t, isNew2)
	require.Equal(t, off, off2)
	require.Equal(t, types.Bool{}, dt.Get(off2).Type)

	ft := NewFuncTable()
	foff, _ := ft.Register(FuncDef{Name: "f", Params: nil, Return: types.Int{}})
	foff2, isNewF := ft.Register(FuncDef{Name: "f", Params: []Param{{Name: "a", Type: types.Bool{}}}, Return: types.Bool{}})
	require.False(t, isNewF)
	require.Equal(t, foff, foff2)
}

func TestEnvironmentSnapshotRestore(t *testing.T) {
	e := New()
	e.Data.Register(DataDef{Name: "x", Type: types.Int{}})
	snap := e.Snapshot()
	e.Data.Register(DataDef{Name: "y", Type: types.Int{}})
	e.Restore(snap)
	_, ok := e.Data.Offset("y")
	require.False(t, ok)
	_, ok = e.Data.Offset("x")
	require.True(t, ok)
}
