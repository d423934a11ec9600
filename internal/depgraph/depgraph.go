// Package depgraph implements the dataflow-dependency analyzer (C5): it
// walks a node's typed value expression to extract current-value (prev)
// and history (@last/atlast) dependencies, and topologically sorts the
// node graph into the VM's per-tick update order.
package depgraph

import (
	"fmt"

	"github.com/funvibe/fluxcore/internal/ast"
	"github.com/funvibe/fluxcore/internal/env"
)

// CircularRefError reports a node whose current-value expression refers to
// itself, or a cycle discovered by the topological sort.
type CircularRefError struct{ Detail string }

func (e *CircularRefError) Error() string { return "circular reference: " + e.Detail }

// InvalidLastError reports an `@last x` where x was introduced in the same
// submission without an init value.
type InvalidLastError struct{ Name string }

func (e *InvalidLastError) Error() string {
	return fmt.Sprintf("invalid @last: node %q was just introduced without an init value", e.Name)
}

// Deps is the result of walking one node's typed value expression.
type Deps struct {
	Prev   map[int]bool // current-value dependencies
	AtLast map[int]bool // history dependencies
}

// Collect walks val (the typed value expression of the node at selfOffset)
// and extracts its prev/atlast sets (§4.5). It also drives the @last
// manager's refcounting: every distinct x observed via @last (the node
// itself included) gets exactly one AddRef, matching the invariant that
// refcount equals the number of nodes whose atlast set contains the
// referenced node (a node referring to the same x via @last twice in one
// expression — legal, if unusual — still adds one ref and one AtLast
// entry, which NodeTable.Register releases once on redefinition).
func Collect(val ast.TypedExpr, selfOffset int, nodes *env.NodeTable, last *env.LastManager) (Deps, error) {
	d := Deps{Prev: make(map[int]bool), AtLast: make(map[int]bool)}
	if err := walk(val, selfOffset, nodes, last, &d); err != nil {
		return Deps{}, err
	}
	return d, nil
}

func walk(e ast.TypedExpr, selfOffset int, nodes *env.NodeTable, last *env.LastManager, d *Deps) error {
	switch n := e.(type) {
	case ast.TIntLit, ast.TBoolLit:
		return nil

	case ast.TIdent:
		if n.Source != ast.SourceNode {
			return nil
		}
		if n.Offset == selfOffset {
			return &CircularRefError{Detail: fmt.Sprintf("node %q refers to its own current value", n.Name)}
		}
		d.Prev[n.Offset] = true
		return nil

	case ast.TLast:
		// Self-history is always legal (no InvalidLast check, no prev edge),
		// but it still holds one @last ref like any other history read.
		if n.NodeOffset != selfOffset {
			target := nodes.Get(n.NodeOffset)
			if target.IsNew && !target.HasValue {
				return &InvalidLastError{Name: target.Name}
			}
		}
		if !d.AtLast[n.NodeOffset] {
			d.AtLast[n.NodeOffset] = true
			last.AddRef(n.NodeOffset)
		}
		return nil

	case ast.TBinary:
		if err := walk(n.Left, selfOffset, nodes, last, d); err != nil {
			return err
		}
		return walk(n.Right, selfOffset, nodes, last, d)

	case ast.TUnary:
		return walk(n.Operand, selfOffset, nodes, last, d)

	case ast.TIf:
		if err := walk(n.Cond, selfOffset, nodes, last, d); err != nil {
			return err
		}
		if err := walk(n.Then, selfOffset, nodes, last, d); err != nil {
			return err
		}
		return walk(n.Else, selfOffset, nodes, last, d)

	case ast.TCall:
		for _, a := range n.Args {
			if err := walk(a, selfOffset, nodes, last, d); err != nil {
				return err
			}
		}
		return nil

	case ast.TVariantConstruct:
		for _, a := range n.Args {
			if err := walk(a, selfOffset, nodes, last, d); err != nil {
				return err
			}
		}
		return nil

	case ast.TTupleConstruct:
		for _, a := range n.Elems {
			if err := walk(a, selfOffset, nodes, last, d); err != nil {
				return err
			}
		}
		return nil

	case ast.TBlock:
		// Local binders shadow outer node names for the purposes of this
		// walk; since identifiers were already resolved during checking
		// (TIdent.Source reflects the scope that won), a let-bound local
		// with the same name as a node simply never produces a
		// Source==SourceNode reference here, so no explicit shadow
		// bookkeeping is needed at this stage.
		for _, s := range n.Stmts {
			if err := walk(s.Val, selfOffset, nodes, last, d); err != nil {
				return err
			}
		}
		return walk(n.Final, selfOffset, nodes, last, d)

	case ast.TMatch:
		if err := walk(n.Scrutinee, selfOffset, nodes, last, d); err != nil {
			return err
		}
		for _, arm := range n.Arms {
			if err := walk(arm.Body, selfOffset, nodes, last, d); err != nil {
				return err
			}
		}
		return nil

	default:
		panic("depgraph: unhandled typed expression kind")
	}
}

// TopoSort computes Kahn's-algorithm topological order over nodes' prev
// edges (§4.5). The result is the VM's per-tick update order.
func TopoSort(nodes []env.NodeSlot) ([]int, error) {
	indegree := make(map[int]int, len(nodes))
	dependents := make(map[int][]int) // offset -> nodes that list it in Prev
	for _, n := range nodes {
		indegree[n.Offset] = len(n.Prev)
	}
	for _, n := range nodes {
		for dep := range n.Prev {
			dependents[dep] = append(dependents[dep], n.Offset)
		}
	}

	var queue []int
	for _, n := range nodes {
		if indegree[n.Offset] == 0 {
			queue = append(queue, n.Offset)
		}
	}

	var order []int
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)
		for _, dep := range dependents[cur] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(order) != len(nodes) {
		return nil, &CircularRefError{Detail: "update graph contains a cycle"}
	}
	return order, nil
}
