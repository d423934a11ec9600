// Package pipeline orchestrates one REPL submission end to end (§2's
// "Submission flow"): type-registry mutation, slot-table mutation, type
// checking, dependency-graph update, topological sort, code emission, and
// serialization, with whole-environment snapshot/rollback on any failure
// (§5, §7).
package pipeline

import (
	"log"

	"github.com/google/uuid"

	"github.com/funvibe/fluxcore/internal/ast"
	"github.com/funvibe/fluxcore/internal/checker"
	"github.com/funvibe/fluxcore/internal/depgraph"
	"github.com/funvibe/fluxcore/internal/emit"
	"github.com/funvibe/fluxcore/internal/env"
)

// Pipeline threads a single persistent Environment across submissions.
type Pipeline struct {
	Env *env.Environment
}

// New returns a pipeline bound to e.
func New(e *env.Environment) *Pipeline {
	return &Pipeline{Env: e}
}

// Result is what one Submit call produces. Bytecode is nil when the
// submission defined only types (§8 scenario 1: no byte-code transmitted).
type Result struct {
	SubmissionID uuid.UUID
	Bytecode     []byte
}

type pendingNode struct {
	offset       int
	wasNew       bool
	existedAsObj bool
	init         ast.TypedExpr
	val          ast.TypedExpr
	outputOffset *int
}

type pendingFunc struct {
	offset int
	params []env.Param
	body   ast.TypedExpr
}

// Submit type-checks and compiles one batch of REPL submissions as a
// single atomic unit: either every declaration in subs is accepted and
// registered, or none are (the environment is rolled back to its
// pre-submission snapshot on the first error encountered). A batch of more
// than one NodeDecl models the "joint redefinition" case (§8 scenario 5):
// declaring a node's new type alongside the dependent node rewritten to
// match it, in one submission.
func (p *Pipeline) Submit(subs []ast.Submission) (*Result, error) {
	id := uuid.New()
	snapshot := p.Env.Snapshot()

	res, err := p.submit(id, subs)
	if err != nil {
		log.Printf("pipeline[%s]: submission rejected: %v", id, err)
		p.Env.Restore(snapshot)
		return nil, err
	}
	log.Printf("pipeline[%s]: submission accepted, %d bytes emitted", id, len(res.Bytecode))
	return res, nil
}

func (p *Pipeline) submit(id uuid.UUID, subs []ast.Submission) (*Result, error) {
	p.Env.ClearIsNew()

	if err := p.defineTypes(subs); err != nil {
		return nil, err
	}

	funcOffsets, err := p.preRegisterFuncSignatures(subs)
	if err != nil {
		return nil, err
	}

	redefined := make(map[string]bool)
	for _, sub := range subs {
		if sub.NodeDecl != nil {
			redefined[sub.NodeDecl.Name] = true
		}
	}

	var pendingNodes []pendingNode
	var dataBindings []emit.NewDataBinding
	var newData int
	var pendingFuncs []pendingFunc
	var evalExpr ast.TypedExpr
	hasEval := false

	for _, sub := range subs {
		switch {
		case sub.NodeDecl != nil:
			pn, err := p.checkAndRegisterNode(*sub.NodeDecl, redefined)
			if err != nil {
				return nil, err
			}
			pendingNodes = append(pendingNodes, pn)

		case sub.DataDecl != nil:
			c := checker.New(p.Env)
			checked, err := c.CheckDataDecl(*sub.DataDecl)
			if err != nil {
				return nil, err
			}
			offset, wasNew := p.Env.Data.Register(checked.Def)
			dataBindings = append(dataBindings, emit.NewDataBinding{Offset: offset, Val: checked.Val})
			if wasNew {
				newData++
			}

		case sub.FuncDecl != nil:
			c := checker.New(p.Env)
			checked, err := c.CheckFuncDecl(*sub.FuncDecl)
			if err != nil {
				return nil, err
			}
			pendingFuncs = append(pendingFuncs, pendingFunc{
				offset: funcOffsets[sub.FuncDecl.Name],
				params: checked.Def.Params,
				body:   checked.Body,
			})

		case sub.Eval != nil:
			c := checker.New(p.Env)
			typed, err := c.CheckExpr(sub.Eval)
			if err != nil {
				return nil, err
			}
			evalExpr = typed
			hasEval = true
		}
	}

	if hasEval {
		comp := emit.New(p.Env.Nodes, p.Env.Data, p.Env.Funcs, p.Env.Last)
		evalBytes, err := comp.CompileEval(evalExpr)
		if err != nil {
			return nil, err
		}
		return &Result{SubmissionID: id, Bytecode: emit.Serialize(emit.Bundle{Eval: evalBytes})}, nil
	}

	if len(pendingNodes) == 0 && len(dataBindings) == 0 && len(pendingFuncs) == 0 {
		// Type-definition-only submission: nothing to transmit.
		return &Result{SubmissionID: id}, nil
	}

	comp := emit.New(p.Env.Nodes, p.Env.Data, p.Env.Funcs, p.Env.Last)

	var nodeBodies []emit.SlotBody
	var nodeInits []emit.NewNodeInit
	var newNodes int
	for _, pn := range pendingNodes {
		body, err := comp.CompileNodeBody(pn.offset, pn.val, pn.outputOffset)
		if err != nil {
			return nil, err
		}
		nodeBodies = append(nodeBodies, emit.SlotBody{Slot: pn.offset, Body: body})
		if pn.init != nil {
			nodeInits = append(nodeInits, emit.NewNodeInit{Offset: pn.offset, Val: pn.init, ExistedAsObj: pn.existedAsObj})
		}
		if pn.wasNew {
			newNodes++
		}
	}

	var funcBodies []emit.SlotBody
	var newFuncs int
	for _, pf := range pendingFuncs {
		body, err := comp.CompileFuncBody(pf.params, pf.body)
		if err != nil {
			return nil, err
		}
		funcBodies = append(funcBodies, emit.SlotBody{Slot: pf.offset, Body: body})
		newFuncs++
	}

	order, err := depgraph.TopoSort(p.Env.Nodes.All())
	if err != nil {
		return nil, err
	}

	initBytes, err := comp.CompileInitBody(dataBindings, nodeInits)
	if err != nil {
		return nil, err
	}
	updateBytes := comp.CompileUpdateBody(order, len(pendingNodes) > 0)

	bundle := emit.Bundle{
		InitBytes:   initBytes,
		UpdateBytes: updateBytes,
		NLast:       len(p.Env.Last.LiveSnapshot()),
		NodeBodies:  nodeBodies,
		FuncBodies:  funcBodies,
		NNewNodes:   newNodes,
		NNewFuncs:   newFuncs,
		NNewData:    newData,
	}
	return &Result{SubmissionID: id, Bytecode: emit.Serialize(bundle)}, nil
}

// defineTypes runs the registry mutation phase (§2): every TypeDecl in the
// batch is checked and defined before any node/data/func/eval is touched,
// since their field/param/return type expressions may reference it.
func (p *Pipeline) defineTypes(subs []ast.Submission) error {
	for _, sub := range subs {
		if sub.TypeDecl == nil {
			continue
		}
		c := checker.New(p.Env)
		variants, err := c.CheckTypeDecl(*sub.TypeDecl)
		if err != nil {
			return err
		}
		if err := p.Env.Types.DefineType(sub.TypeDecl.Name, variants); err != nil {
			return err
		}
	}
	return nil
}

// preRegisterFuncSignatures installs every function's (params, return)
// signature into the function table before any body is checked, so a
// function may call itself or a peer declared later in the same batch.
func (p *Pipeline) preRegisterFuncSignatures(subs []ast.Submission) (map[string]int, error) {
	offsets := make(map[string]int)
	for _, sub := range subs {
		if sub.FuncDecl == nil {
			continue
		}
		c := checker.New(p.Env)
		ret, err := c.ResolveTypeExpr(sub.FuncDecl.Return)
		if err != nil {
			return nil, err
		}
		params := make([]env.Param, len(sub.FuncDecl.Params))
		for i, pd := range sub.FuncDecl.Params {
			pt, err := c.ResolveTypeExpr(pd.Type)
			if err != nil {
				return nil, err
			}
			params[i] = env.Param{Name: pd.Name, Type: pt}
		}
		offset, _ := p.Env.Funcs.Register(env.FuncDef{Name: sub.FuncDecl.Name, Params: params, Return: ret})
		offsets[sub.FuncDecl.Name] = offset
	}
	return offsets, nil
}

// checkAndRegisterNode type-checks one node declaration, registers its
// slot, and runs the dependency analyzer over its typed value expression
// (§4.5), recording the resulting prev/atlast sets on the slot.
func (p *Pipeline) checkAndRegisterNode(d ast.NodeDecl, redefined map[string]bool) (pendingNode, error) {
	existingOffset, existed := p.Env.Nodes.Offset(d.Name)
	existedAsObj := existed && p.Env.Nodes.Get(existingOffset).Type.IsObject()

	c := checker.New(p.Env)
	if !existed {
		// Reserve the new node's slot first so its own name (e.g. in
		// `counter@last`) resolves while its expressions are checked.
		declared, err := c.ResolveTypeExpr(d.Type)
		if err != nil {
			return pendingNode{}, err
		}
		if _, _, err := p.Env.Nodes.Register(env.NodeDef{Name: d.Name, Type: declared, HasValue: d.Init != nil}, redefined, p.Env.Last); err != nil {
			return pendingNode{}, err
		}
	}
	checked, err := c.CheckNodeDecl(d)
	if err != nil {
		return pendingNode{}, err
	}

	offset, wasNew, err := p.Env.Nodes.Register(checked.Def, redefined, p.Env.Last)
	if err != nil {
		return pendingNode{}, err
	}
	wasNew = wasNew || !existed

	deps, err := depgraph.Collect(checked.Val, offset, p.Env.Nodes, p.Env.Last)
	if err != nil {
		return pendingNode{}, err
	}
	p.Env.Nodes.SetDeps(offset, deps.Prev, deps.AtLast)

	return pendingNode{
		offset:       offset,
		wasNew:       wasNew,
		existedAsObj: existedAsObj,
		init:         checked.Init,
		val:          checked.Val,
		outputOffset: p.Env.Nodes.Get(offset).OutputOffset,
	}, nil
}
