package syntax

import (
	"fmt"
	"strconv"

	"github.com/funvibe/fluxcore/internal/ast"
)

// Precedence levels, lowest to highest. The surface grammar's ladder
// (§9: logical -> bitwise -> comparison -> shift -> add -> factor) is
// encoded here as a single table rather than as distinct grammar rules;
// every level resolves to the same ast.Binary node.
const (
	_ int = iota
	LOWEST
	LOGICAL_OR
	LOGICAL_AND
	BITWISE_OR
	BITWISE_XOR
	BITWISE_AND
	EQUALITY
	COMPARISON
	SHIFT
	SUM
	PRODUCT
	PREFIX
)

var precedences = map[TokenType]int{
	PIPE_PIPE: LOGICAL_OR,
	AMP_AMP:   LOGICAL_AND,
	PIPE:      BITWISE_OR,
	CARET:     BITWISE_XOR,
	AMP:       BITWISE_AND,
	EQ:        EQUALITY,
	NOT_EQ:    EQUALITY,
	LT:        COMPARISON,
	LEQ:       COMPARISON,
	GT:        COMPARISON,
	GEQ:       COMPARISON,
	SHL:       SHIFT,
	SHR:       SHIFT,
	PLUS:      SUM,
	MINUS:     SUM,
	STAR:      PRODUCT,
	SLASH:     PRODUCT,
	PERCENT:   PRODUCT,
}

var binOps = map[TokenType]ast.BinOp{
	PLUS:      ast.OpAdd,
	MINUS:     ast.OpSub,
	STAR:      ast.OpMul,
	SLASH:     ast.OpDiv,
	PERCENT:   ast.OpMod,
	SHL:       ast.OpShiftL,
	SHR:       ast.OpShiftR,
	AMP:       ast.OpBitAnd,
	PIPE:      ast.OpBitOr,
	CARET:     ast.OpBitXor,
	EQ:        ast.OpEq,
	NOT_EQ:    ast.OpNeq,
	LT:        ast.OpLt,
	LEQ:       ast.OpLeq,
	GT:        ast.OpGt,
	GEQ:       ast.OpGeq,
	AMP_AMP:   ast.OpAnd,
	PIPE_PIPE: ast.OpOr,
}

// ParseError reports a syntax error with its source position.
type ParseError struct {
	Msg       string
	Line, Col int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}

// Parser consumes a token stream and builds ast.Submission values.
type Parser struct {
	l *Lexer

	curToken  Token
	peekToken Token

	errs []error
}

// NewParser returns a parser over source.
func NewParser(source string) *Parser {
	p := &Parser{l: NewLexer(source)}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curIs(t TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekIs(t TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) expect(t TokenType) bool {
	if p.peekIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %q", tokenName(t), p.peekToken.String())
	return false
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errs = append(p.errs, &ParseError{Msg: fmt.Sprintf(format, args...), Line: p.curToken.Line, Col: p.curToken.Column})
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return LOWEST
}

// ParseSubmissions parses one or more top-level declarations/evaluations
// out of source, returning them as a single batch suitable for
// pipeline.Pipeline.Submit. A parse error anywhere aborts the whole batch,
// mirroring the all-or-nothing semantics of the submission it feeds.
func ParseSubmissions(source string) ([]ast.Submission, error) {
	p := NewParser(source)
	var subs []ast.Submission
	for !p.curIs(EOF) {
		sub := p.parseSubmission()
		if len(p.errs) > 0 {
			return nil, p.errs[0]
		}
		subs = append(subs, sub)
		p.nextToken()
	}
	if len(p.errs) > 0 {
		return nil, p.errs[0]
	}
	return subs, nil
}

func (p *Parser) parseSubmission() ast.Submission {
	switch p.curToken.Type {
	case KW_TYPE:
		return ast.Submission{TypeDecl: p.parseTypeDecl()}
	case KW_NODE:
		return ast.Submission{NodeDecl: p.parseNodeDecl()}
	case KW_DATA:
		return ast.Submission{DataDecl: p.parseDataDecl()}
	case KW_FUNC:
		return ast.Submission{FuncDecl: p.parseFuncDecl()}
	case KW_EVAL:
		p.nextToken()
		return ast.Submission{Eval: p.parseExpression(LOWEST)}
	default:
		p.errorf("expected a type/node/data/func/eval declaration, got %q", p.curToken.String())
		return ast.Submission{}
	}
}

// parseTypeExpr parses "Int", "Bool", a user type name, or a parenthesized
// tuple "(T1, T2, ...)".
func (p *Parser) parseTypeExpr() ast.TypeExpr {
	if p.curIs(LPAREN) {
		p.nextToken()
		te := ast.TypeExpr{IsTuple: true}
		te.Elems = append(te.Elems, p.parseTypeExpr())
		for p.peekIs(COMMA) {
			p.nextToken()
			p.nextToken()
			te.Elems = append(te.Elems, p.parseTypeExpr())
		}
		p.expect(RPAREN)
		return te
	}
	if !p.curIs(IDENT) && p.curToken.Type != KW_LAST {
		p.errorf("expected a type name, got %q", p.curToken.String())
		return ast.TypeExpr{}
	}
	return ast.TypeExpr{Name: p.curToken.Literal}
}

// parseTypeDecl parses `type Name = V1 | V2(T1, T2) | ...`.
func (p *Parser) parseTypeDecl() *ast.TypeDecl {
	if !p.expect(IDENT) {
		return nil
	}
	name := p.curToken.Literal
	if !p.expect(ASSIGN) {
		return nil
	}
	p.nextToken()

	decl := &ast.TypeDecl{Name: name}
	for {
		if !p.curIs(IDENT) {
			p.errorf("expected a variant name, got %q", p.curToken.String())
			return nil
		}
		v := ast.VariantDecl{Name: p.curToken.Literal}
		if p.peekIs(LPAREN) {
			p.nextToken()
			p.nextToken()
			if !p.curIs(RPAREN) {
				v.Fields = append(v.Fields, p.parseTypeExpr())
				for p.peekIs(COMMA) {
					p.nextToken()
					p.nextToken()
					v.Fields = append(v.Fields, p.parseTypeExpr())
				}
			}
			p.expect(RPAREN)
		}
		decl.Variants = append(decl.Variants, v)
		if !p.peekIs(PIPE_BAR) {
			break
		}
		p.nextToken()
		p.nextToken()
	}
	return decl
}

// parseNodeDecl parses `node name: T = expr` or `node name: T = expr init expr`.
func (p *Parser) parseNodeDecl() *ast.NodeDecl {
	if !p.expect(IDENT) {
		return nil
	}
	name := p.curToken.Literal
	if !p.expect(COLON) {
		return nil
	}
	p.nextToken()
	typ := p.parseTypeExpr()
	if !p.expect(ASSIGN) {
		return nil
	}
	p.nextToken()
	val := p.parseExpression(LOWEST)

	decl := &ast.NodeDecl{Name: name, Type: typ, Val: val}
	if p.peekIs(KW_INIT) {
		p.nextToken()
		p.nextToken()
		decl.Init = p.parseExpression(LOWEST)
	}
	return decl
}

// parseDataDecl parses `data name: T = expr`.
func (p *Parser) parseDataDecl() *ast.DataDecl {
	if !p.expect(IDENT) {
		return nil
	}
	name := p.curToken.Literal
	if !p.expect(COLON) {
		return nil
	}
	p.nextToken()
	typ := p.parseTypeExpr()
	if !p.expect(ASSIGN) {
		return nil
	}
	p.nextToken()
	val := p.parseExpression(LOWEST)
	return &ast.DataDecl{Name: name, Type: typ, Val: val}
}

// parseFuncDecl parses `func name(p1: T1, p2: T2): Ret = expr`.
func (p *Parser) parseFuncDecl() *ast.FuncDecl {
	if !p.expect(IDENT) {
		return nil
	}
	name := p.curToken.Literal
	if !p.expect(LPAREN) {
		return nil
	}

	var params []ast.ParamDecl
	if !p.peekIs(RPAREN) {
		p.nextToken()
		params = append(params, p.parseParamDecl())
		for p.peekIs(COMMA) {
			p.nextToken()
			p.nextToken()
			params = append(params, p.parseParamDecl())
		}
	}
	if !p.expect(RPAREN) {
		return nil
	}
	if !p.expect(COLON) {
		return nil
	}
	p.nextToken()
	ret := p.parseTypeExpr()
	if !p.expect(ASSIGN) {
		return nil
	}
	p.nextToken()
	body := p.parseExpression(LOWEST)
	return &ast.FuncDecl{Name: name, Params: params, Return: ret, Body: body}
}

func (p *Parser) parseParamDecl() ast.ParamDecl {
	if !p.curIs(IDENT) {
		p.errorf("expected a parameter name, got %q", p.curToken.String())
		return ast.ParamDecl{}
	}
	name := p.curToken.Literal
	if !p.expect(COLON) {
		return ast.ParamDecl{}
	}
	p.nextToken()
	return ast.ParamDecl{Name: name, Type: p.parseTypeExpr()}
}

// parseExpression is the Pratt-parser core: a prefix production for
// curToken followed by zero or more infix productions while the next
// operator binds tighter than precedence.
func (p *Parser) parseExpression(precedence int) ast.Expr {
	left := p.parsePrefix()
	if left == nil {
		return nil
	}
	for !p.peekIs(EOF) && precedence < p.peekPrecedence() {
		if _, ok := binOps[p.peekToken.Type]; !ok {
			break
		}
		p.nextToken()
		left = p.parseInfix(left)
	}
	return left
}

func (p *Parser) parsePrefix() ast.Expr {
	switch p.curToken.Type {
	case INT:
		v, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
		if err != nil {
			p.errorf("invalid integer literal %q", p.curToken.Literal)
			return nil
		}
		return ast.IntLit{Value: v}
	case TRUE:
		return ast.BoolLit{Value: true}
	case FALSE:
		return ast.BoolLit{Value: false}
	case BANG:
		p.nextToken()
		return ast.Unary{Op: ast.OpNot, Operand: p.parseExpression(PREFIX)}
	case MINUS:
		p.nextToken()
		return ast.Unary{Op: ast.OpNegate, Operand: p.parseExpression(PREFIX)}
	case AT:
		if !p.expect(KW_LAST) {
			return nil
		}
		if !p.expect(IDENT) {
			return nil
		}
		return ast.Last{Name: p.curToken.Literal}
	case LPAREN:
		return p.parseParenOrTuple()
	case KW_IF:
		return p.parseIf()
	case KW_MATCH:
		return p.parseMatch()
	case KW_LET:
		return p.parseBlock()
	case IDENT:
		return p.parseIdentOrCallOrVariant()
	default:
		p.errorf("unexpected token %q in expression", p.curToken.String())
		return nil
	}
}

func (p *Parser) parseInfix(left ast.Expr) ast.Expr {
	op, ok := binOps[p.curToken.Type]
	if !ok {
		p.errorf("unexpected operator %q", p.curToken.String())
		return nil
	}
	prec := precedences[p.curToken.Type]
	p.nextToken()
	right := p.parseExpression(prec)
	return ast.Binary{Op: op, Left: left, Right: right}
}

func (p *Parser) parseParenOrTuple() ast.Expr {
	p.nextToken()
	first := p.parseExpression(LOWEST)
	if p.peekIs(COMMA) {
		elems := []ast.Expr{first}
		for p.peekIs(COMMA) {
			p.nextToken()
			p.nextToken()
			elems = append(elems, p.parseExpression(LOWEST))
		}
		p.expect(RPAREN)
		return ast.TupleConstruct{Elems: elems}
	}
	p.expect(RPAREN)
	return first
}

func (p *Parser) parseIf() ast.Expr {
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if !p.expect(KW_THEN) {
		return nil
	}
	p.nextToken()
	then := p.parseExpression(LOWEST)
	if !p.expect(KW_ELSE) {
		return nil
	}
	p.nextToken()
	els := p.parseExpression(LOWEST)
	return ast.If{Cond: cond, Then: then, Else: els}
}

// parseIdentOrCallOrVariant tells a bare identifier from an application by
// whether a '(' follows, and then a variant construction `Name(args...)`
// from a call `name(args...)` by capitalization (isVariantName); the
// checker then resolves the name against the registry or function table.
func (p *Parser) parseIdentOrCallOrVariant() ast.Expr {
	name := p.curToken.Literal
	if !p.peekIs(LPAREN) {
		return ast.Ident{Name: name}
	}
	p.nextToken()
	var args []ast.Expr
	if !p.peekIs(RPAREN) {
		p.nextToken()
		args = append(args, p.parseExpression(LOWEST))
		for p.peekIs(COMMA) {
			p.nextToken()
			p.nextToken()
			args = append(args, p.parseExpression(LOWEST))
		}
	}
	p.expect(RPAREN)
	if isVariantName(name) {
		return ast.VariantConstruct{Variant: name, Args: args}
	}
	return ast.Call{Func: name, Args: args}
}

// isVariantName treats a capitalized identifier as a variant constructor.
// The type registry does not itself require capitalized variant names, so
// a lowercase variant name is parsed as a call or identifier instead.
func isVariantName(name string) bool {
	return len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z'
}

func (p *Parser) parseBlock() ast.Expr {
	var blk ast.Block
	for p.curIs(KW_LET) {
		p.nextToken()
		if !p.curIs(IDENT) {
			p.errorf("expected a binding name, got %q", p.curToken.String())
			return nil
		}
		name := p.curToken.Literal
		if !p.expect(COLON) {
			return nil
		}
		p.nextToken()
		typ := p.parseTypeExpr()
		if !p.expect(ASSIGN) {
			return nil
		}
		p.nextToken()
		val := p.parseExpression(LOWEST)
		blk.Stmts = append(blk.Stmts, ast.LetStmt{Name: name, Type: typ, Val: val})
		if !p.expect(COMMA) {
			return nil
		}
		p.nextToken()
	}
	blk.Final = p.parseExpression(LOWEST)
	return blk
}

func (p *Parser) parseMatch() ast.Expr {
	p.nextToken()
	scrutinee := p.parseExpression(LOWEST)
	if !p.expect(LBRACE) {
		return nil
	}
	p.nextToken()

	var arms []ast.MatchArm
	for !p.curIs(RBRACE) {
		pat := p.parsePattern()
		if !p.expect(ARROW) {
			return nil
		}
		p.nextToken()
		body := p.parseExpression(LOWEST)
		arms = append(arms, ast.MatchArm{Pattern: pat, Body: body})
		if p.peekIs(COMMA) {
			p.nextToken()
		}
		p.nextToken()
	}
	return ast.Match{Scrutinee: scrutinee, Arms: arms}
}

func (p *Parser) parsePattern() ast.Pattern {
	switch p.curToken.Type {
	case UNDERSCORE:
		return ast.WildcardPattern{}
	case TRUE:
		return ast.BoolPattern{Value: true}
	case FALSE:
		return ast.BoolPattern{Value: false}
	case INT:
		v, _ := strconv.ParseInt(p.curToken.Literal, 10, 64)
		return ast.IntPattern{Value: v}
	case LPAREN:
		p.nextToken()
		var elems []ast.Pattern
		elems = append(elems, p.parsePattern())
		for p.peekIs(COMMA) {
			p.nextToken()
			p.nextToken()
			elems = append(elems, p.parsePattern())
		}
		p.expect(RPAREN)
		return ast.TuplePattern{Elems: elems}
	case IDENT:
		name := p.curToken.Literal
		if isVariantName(name) && p.peekIs(LPAREN) {
			p.nextToken()
			p.nextToken()
			var fields []ast.Pattern
			if !p.curIs(RPAREN) {
				fields = append(fields, p.parsePattern())
				for p.peekIs(COMMA) {
					p.nextToken()
					p.nextToken()
					fields = append(fields, p.parsePattern())
				}
			}
			p.expect(RPAREN)
			return ast.VariantPattern{Variant: name, Fields: fields}
		}
		if isVariantName(name) {
			return ast.VariantPattern{Variant: name}
		}
		return ast.IdentPattern{Name: name}
	default:
		p.errorf("unexpected token %q in pattern", p.curToken.String())
		return nil
	}
}
