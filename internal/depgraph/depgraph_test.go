package depgraph

import (
	"testing"

	"github.com/funvibe/fluxcore/internal/ast"
	"github.com/funvibe/fluxcore/internal/env"
	"github.com/funvibe/fluxcore/internal/types"
	"github.com/stretchr/testify/require"
)

func TestCollectSelfCurrentValueIsCircular(t *testing.T) {
	nodes := env.NewNodeTable()
	last := env.NewLastManager()
	off, _, err := nodes.Register(env.NodeDef{Name: "a", Type: types.Int{}, HasValue: true}, map[string]bool{"a": true}, last)
	require.NoError(t, err)

	val := ast.TIdent{Name: "a", Source: ast.SourceNode, Offset: off, Typ: types.Int{}}
	_, err = Collect(val, off, nodes, last)
	require.Error(t, err)
	require.IsType(t, &CircularRefError{}, err)
}

func TestCollectSelfLastIsLegalAndAddsNoSelfEdge(t *testing.T) {
	nodes := env.NewNodeTable()
	last := env.NewLastManager()
	off, _, err := nodes.Register(env.NodeDef{Name: "counter", Type: types.Int{}, HasValue: true}, map[string]bool{"counter": true}, last)
	require.NoError(t, err)

	// counter@last + 1
	val := ast.TBinary{
		Op:   ast.OpAdd,
		Left: ast.TLast{NodeOffset: off, Typ: types.Int{}},
		Right: ast.TIntLit{Value: 1},
		Typ:  types.Int{},
	}
	deps, err := Collect(val, off, nodes, last)
	require.NoError(t, err)
	require.Empty(t, deps.Prev)
	require.True(t, deps.AtLast[off]) // self-history still holds one atlast ref

	idx, live := last.CurrentOffset(off)
	require.True(t, live) // one ref was added for self-history
	require.Equal(t, 0, idx)
}

func TestCollectLastOnNewNodeWithoutInitIsInvalid(t *testing.T) {
	nodes := env.NewNodeTable()
	last := env.NewLastManager()
	xOff, _, err := nodes.Register(env.NodeDef{Name: "x", Type: types.Int{}, HasValue: false}, map[string]bool{"x": true}, last)
	require.NoError(t, err)
	yOff, _, err := nodes.Register(env.NodeDef{Name: "y", Type: types.Int{}, HasValue: true}, map[string]bool{"y": true}, last)
	require.NoError(t, err)

	val := ast.TLast{NodeOffset: xOff, Typ: types.Int{}}
	_, err = Collect(val, yOff, nodes, last)
	require.Error(t, err)
	require.IsType(t, &InvalidLastError{}, err)
}

func TestCollectLastAddsRefAndPrevEdge(t *testing.T) {
	nodes := env.NewNodeTable()
	last := env.NewLastManager()
	aOff, _, err := nodes.Register(env.NodeDef{Name: "a", Type: types.Int{}, HasValue: true}, map[string]bool{"a": true}, last)
	require.NoError(t, err)
	bOff, _, err := nodes.Register(env.NodeDef{Name: "b", Type: types.Int{}, HasValue: true}, map[string]bool{"b": true}, last)
	require.NoError(t, err)

	val := ast.TBinary{
		Op:   ast.OpAdd,
		Left: ast.TIdent{Name: "a", Source: ast.SourceNode, Offset: aOff, Typ: types.Int{}},
		Right: ast.TLast{NodeOffset: aOff, Typ: types.Int{}},
		Typ:  types.Int{},
	}
	deps, err := Collect(val, bOff, nodes, last)
	require.NoError(t, err)
	require.True(t, deps.Prev[aOff])
	require.True(t, deps.AtLast[aOff])
	idx, live := last.CurrentOffset(aOff)
	require.True(t, live)
	require.Equal(t, 0, idx)
}

func TestTopoSortLinearChain(t *testing.T) {
	a := env.NodeSlot{Offset: 0, Prev: map[int]bool{}}
	b := env.NodeSlot{Offset: 1, Prev: map[int]bool{0: true}}
	c := env.NodeSlot{Offset: 2, Prev: map[int]bool{1: true}}
	order, err := TopoSort([]env.NodeSlot{c, a, b})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2}, order)
}

func TestTopoSortCycleIsRejected(t *testing.T) {
	a := env.NodeSlot{Offset: 0, Prev: map[int]bool{1: true}}
	b := env.NodeSlot{Offset: 1, Prev: map[int]bool{0: true}}
	_, err := TopoSort([]env.NodeSlot{a, b})
	require.Error(t, err)
	require.IsType(t, &CircularRefError{}, err)
}

func TestTopoSortDeterministicAcrossRuns(t *testing.T) {
	nodes := []env.NodeSlot{
		{Offset: 0, Prev: map[int]bool{}},
		{Offset: 1, Prev: map[int]bool{0: true}},
		{Offset: 2, Prev: map[int]bool{0: true}},
		{Offset: 3, Prev: map[int]bool{1: true, 2: true}},
	}
	first, err := TopoSort(nodes)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := TopoSort(nodes)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}
