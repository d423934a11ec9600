package ast

// VariantDecl is one constructor clause of a `type` declaration, as
// written: a name and its field type expressions (not yet resolved).
type VariantDecl struct {
	Name   string
	Fields []TypeExpr
}

// TypeDecl declares a named sum type: `type Maybe = Nothing | Just(Int)`.
type TypeDecl struct {
	Name     string
	Variants []VariantDecl
}

// ParamDecl is one function parameter as written.
type ParamDecl struct {
	Name string
	Type TypeExpr
}

// NodeDecl declares a reactive node: `node counter : Int { 0 } = counter@last + 1`.
// Init is nil when the node has no initial value (in which case Val is
// evaluated once per tick with no seed for tick zero, per the VM's own
// convention — out of scope here).
type NodeDecl struct {
	Name string
	Type TypeExpr
	Init Expr // optional
	Val  Expr
}

// DataDecl declares a one-shot binding: `data x : Int = 3`.
type DataDecl struct {
	Name string
	Type TypeExpr
	Val  Expr
}

// FuncDecl declares a function: `func add(a : Int, b : Int) : Int = a + b`.
type FuncDecl struct {
	Name   string
	Params []ParamDecl
	Return TypeExpr
	Body   Expr
}

// Submission is one REPL line: exactly one of TypeDecl, NodeDecl, DataDecl,
// FuncDecl, or a bare expression to evaluate.
type Submission struct {
	TypeDecl *TypeDecl
	NodeDecl *NodeDecl
	DataDecl *DataDecl
	FuncDecl *FuncDecl
	Eval     Expr
}
