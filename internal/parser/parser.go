// Package parser turns a token stream from internal/lexer into the syntax
// tree defined by internal/ast, via a recursive-descent, precedence-climbing
// grammar over expressions, statements, and command chains.
package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/mikkeldamsgaard/slash-go/internal/ast"
	"github.com/mikkeldamsgaard/slash-go/internal/lexer"
)

// Error is a parse-time diagnostic. It carries its own location and is
// surfaced verbatim as the "parse error" variant of diagnostic reporting.
type Error struct {
	Msg string
	Pos lexer.Pos
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s\nAt line %d column %d:\n===>   %s", e.Msg, e.Pos.Line, e.Pos.Column, e.Pos.Text)
}

// Parser consumes a Lexer's token stream and produces an *ast.File. It keeps
// one token of lookahead (p.tok) for ordinary recursive-descent parsing, and
// drops to the lexer's raw rune primitives for command-chain statements,
// rewinding the lexer via lexer.Pos.Offset whenever it needs to move between
// the two modes (see parseExprOrChainStatement and scanTerm).
type Parser struct {
	lx  *lexer.Lexer
	tok lexer.Token2

	prevLine int // line on which the token before p.tok ended
}

// Parse parses a complete script.
func Parse(src string) (*ast.File, error) {
	p := &Parser{lx: lexer.New(src)}
	p.advance()
	var stmts []ast.Stmt
	p.skipSemis()
	for p.tok.Kind != lexer.EOF {
		st, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
		p.skipSemis()
	}
	return &ast.File{Stmts: stmts}, nil
}

func (p *Parser) advance() {
	p.prevLine = p.lx.CurrentPos().Line
	p.tok = p.lx.Next()
}

func (p *Parser) skipSemis() {
	for p.tok.Kind == lexer.Semi {
		p.advance()
	}
}

func (p *Parser) errorf(pos lexer.Pos, format string, args ...any) error {
	return &Error{Msg: fmt.Sprintf(format, args...), Pos: pos}
}

func (p *Parser) expect(k lexer.Kind, what string) (lexer.Token2, error) {
	if p.tok.Kind != k {
		return lexer.Token2{}, p.errorf(p.tok.Pos, "expected %s, got %q", what, p.tok.Literal)
	}
	t := p.tok
	p.advance()
	return t, nil
}

func (p *Parser) expectIdent(what string) (string, lexer.Pos, error) {
	if p.tok.Kind != lexer.IDENT {
		return "", lexer.Pos{}, p.errorf(p.tok.Pos, "expected %s, got %q", what, p.tok.Literal)
	}
	name, pos := p.tok.Literal, p.tok.Pos
	p.advance()
	return name, pos, nil
}

// ---- Blocks and statement dispatch -----------------------------------------

func (p *Parser) parseBlock() (*ast.Block, error) {
	lb, err := p.expect(lexer.LBrace, "'{'")
	if err != nil {
		return nil, err
	}
	blk := &ast.Block{Pos: lb.Pos}
	p.skipSemis()
	for p.tok.Kind != lexer.RBrace {
		if p.tok.Kind == lexer.EOF {
			return nil, p.errorf(p.tok.Pos, "unterminated block, expected '}'")
		}
		st, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		blk.Stmts = append(blk.Stmts, st)
		p.skipSemis()
	}
	p.advance() // '}'
	return blk, nil
}

func (p *Parser) parseStatement() (ast.Stmt, error) {
	switch p.tok.Kind {
	case lexer.KwLet:
		return p.parseLet()
	case lexer.KwIf:
		return p.parseIf()
	case lexer.KwWhile:
		return p.parseWhile()
	case lexer.KwFor:
		return p.parseFor()
	case lexer.KwMatch:
		return p.parseMatch()
	case lexer.KwFunc:
		return p.parseFuncDecl()
	case lexer.KwReturn:
		pos := p.tok.Pos
		p.advance()
		if p.atStmtEnd() {
			return &ast.Return{Pos: pos}, nil
		}
		expr, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		return &ast.Return{Expr: expr, Pos: pos}, nil
	case lexer.KwBreak:
		pos := p.tok.Pos
		p.advance()
		return &ast.Break{Pos: pos}, nil
	case lexer.KwContinue:
		pos := p.tok.Pos
		p.advance()
		return &ast.Continue{Pos: pos}, nil
	case lexer.KwExport:
		return p.parseExport()
	default:
		return p.parseExprOrChainStatement()
	}
}

func (p *Parser) atStmtEnd() bool {
	switch p.tok.Kind {
	case lexer.Semi, lexer.RBrace, lexer.EOF:
		return true
	}
	return false
}

func (p *Parser) parseLet() (ast.Stmt, error) {
	pos := p.tok.Pos
	p.advance() // 'let'
	name, _, err := p.expectIdent("variable name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Assign, "'='"); err != nil {
		return nil, err
	}
	expr, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	return &ast.Let{Name: name, Expr: expr, Pos: pos}, nil
}

func (p *Parser) parseExport() (ast.Stmt, error) {
	pos := p.tok.Pos
	p.advance() // 'export'
	name, _, err := p.expectIdent("variable name")
	if err != nil {
		return nil, err
	}
	exp := &ast.Export{Name: name, Pos: pos}
	if p.tok.Kind == lexer.Assign {
		p.advance()
		expr, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		exp.Expr = expr
	}
	return exp, nil
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	pos := p.tok.Pos
	node := &ast.If{Pos: pos}
	for {
		p.advance() // 'if' or 'else'
		if p.tok.Kind == lexer.LBrace {
			// trailing "else { ... }"
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			node.Clauses = append(node.Clauses, ast.IfClause{Body: body})
			break
		}
		if len(node.Clauses) > 0 {
			// "else if": consume the 'if' that follows 'else'
			if _, err := p.expect(lexer.KwIf, "'if' or '{' after 'else'"); err != nil {
				return nil, err
			}
		}
		cond, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		node.Clauses = append(node.Clauses, ast.IfClause{Cond: cond, Body: body})
		if p.tok.Kind != lexer.KwElse {
			break
		}
	}
	return node, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	pos := p.tok.Pos
	p.advance() // 'while'
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.While{Cond: cond, Body: body, Pos: pos}, nil
}

func (p *Parser) parseFor() (ast.Stmt, error) {
	pos := p.tok.Pos
	p.advance() // 'for'
	name, _, err := p.expectIdent("loop variable")
	if err != nil {
		return nil, err
	}
	switch p.tok.Kind {
	case lexer.KwIn:
		p.advance()
		expr, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ast.ForIn{Var: name, Expr: expr, Body: body, Pos: pos}, nil
	case lexer.Assign:
		p.advance()
		init, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Semi, "';'"); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Semi, "';'"); err != nil {
			return nil, err
		}
		updateName, _, err := p.expectIdent("loop variable")
		if err != nil {
			return nil, err
		}
		if updateName != name {
			return nil, p.errorf(pos, "for-loop update must target %q, got %q", name, updateName)
		}
		if _, err := p.expect(lexer.Assign, "'='"); err != nil {
			return nil, err
		}
		update, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ast.ForC{Var: name, Init: init, Cond: cond, Update: update, Body: body, Pos: pos}, nil
	default:
		return nil, p.errorf(p.tok.Pos, "expected 'in' or '=' after for-loop variable")
	}
}

func (p *Parser) parseMatch() (ast.Stmt, error) {
	pos := p.tok.Pos
	p.advance() // 'match'
	expr, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LBrace, "'{'"); err != nil {
		return nil, err
	}
	m := &ast.Match{Expr: expr, Pos: pos}
	p.skipSemis()
	for p.tok.Kind != lexer.RBrace {
		arm, err := p.parseMatchArm()
		if err != nil {
			return nil, err
		}
		m.Arms = append(m.Arms, arm)
		p.skipSemis()
	}
	p.advance() // '}'
	return m, nil
}

func (p *Parser) parseMatchArm() (ast.MatchArm, error) {
	if p.tok.Kind == lexer.Underscore {
		p.advance()
		if _, err := p.expect(lexer.FatArrow, "'=>'"); err != nil {
			return ast.MatchArm{}, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return ast.MatchArm{}, err
		}
		return ast.MatchArm{CatchAll: true, Body: body}, nil
	}
	var cands []ast.MatchCandidate
	for {
		from, err := p.parseExpr(0)
		if err != nil {
			return ast.MatchArm{}, err
		}
		cand := ast.MatchCandidate{From: from}
		if p.tok.Kind == lexer.Arrow {
			p.advance()
			to, err := p.parseExpr(0)
			if err != nil {
				return ast.MatchArm{}, err
			}
			cand.To = to
		}
		cands = append(cands, cand)
		if p.tok.Kind == lexer.Semi {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.FatArrow, "'=>'"); err != nil {
		return ast.MatchArm{}, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return ast.MatchArm{}, err
	}
	return ast.MatchArm{Candidates: cands, Body: body}, nil
}

func (p *Parser) parseFuncDecl() (ast.Stmt, error) {
	pos := p.tok.Pos
	p.advance() // 'func'
	name, _, err := p.expectIdent("function name")
	if err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FuncDecl{Name: name, Params: params, Body: body, Pos: pos}, nil
}

func (p *Parser) parseParamList() ([]string, error) {
	if _, err := p.expect(lexer.LParen, "'('"); err != nil {
		return nil, err
	}
	var params []string
	for p.tok.Kind != lexer.RParen {
		name, _, err := p.expectIdent("parameter name")
		if err != nil {
			return nil, err
		}
		params = append(params, name)
		if p.tok.Kind == lexer.Comma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return nil, err
	}
	return params, nil
}

// ---- Expression-led statements: plain expression, assignment forms, or a
// command chain. Reusing the ordinary expression parser first and only
// falling back to raw chain scanning keeps the grammar's genuine ambiguity
// (an identifier can start either a call expression or a shell word) to a
// single backtrack point, governed by whitespace adjacency between terms.

func (p *Parser) parseExprOrChainStatement() (ast.Stmt, error) {
	startPos := p.tok.Pos
	expr, err := p.tryParseExpr(0)
	if err == nil && p.looksLikeOrdinaryStatementTail() {
		pos := expr.Position()
		if p.tok.Kind == lexer.Assign {
			p.advance()
			rhs, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			switch t := expr.(type) {
			case *ast.Ident:
				return &ast.Assign{Name: t.Name, Expr: rhs, Pos: pos}, nil
			case *ast.Index:
				if id, ok := t.X.(*ast.Ident); ok {
					return &ast.IndexAssign{Name: id.Name, Index: t.Idx, Expr: rhs, Pos: pos}, nil
				}
			case *ast.Dot:
				if id, ok := t.X.(*ast.Ident); ok {
					return &ast.DotAssign{Name: id.Name, Field: t.Field, Expr: rhs, Pos: pos}, nil
				}
			}
			return nil, p.errorf(pos, "invalid assignment target")
		}
		return &ast.ExprStmt{Expr: expr, Pos: pos}, nil
	}

	// Not an ordinary statement: this is a command chain. Rewind to the
	// very start of the statement and raw-scan it.
	p.lx.RewindTo(startPos)
	return p.parseChain()
}

// looksLikeOrdinaryStatementTail reports whether the current lookahead is
// consistent with what follows a complete ordinary-statement expression:
// an assignment '=', or the statement terminator (';', '}', end of input, or
// a line break before the next token). Anything else on the same line
// (another bare word, a pipe, a redirect, a capture marker) means the line
// was actually a command chain, not an expression statement.
func (p *Parser) looksLikeOrdinaryStatementTail() bool {
	switch p.tok.Kind {
	case lexer.Semi, lexer.RBrace, lexer.EOF, lexer.Assign:
		return true
	}
	return p.tok.Pos.Line > p.prevLine
}

// tryParseExpr parses an expression but never lets a genuine parse error
// escape as fatal: a malformed expression is simply evidence that the
// statement is a command chain, which the caller falls back to.
func (p *Parser) tryParseExpr(minPrec int) (ast.Node, error) {
	if !p.startsExpr() {
		return nil, p.errorf(p.tok.Pos, "not an expression")
	}
	return p.parseExpr(minPrec)
}

func (p *Parser) startsExpr() bool {
	switch p.tok.Kind {
	case lexer.IDENT, lexer.NUMBER, lexer.STRING, lexer.Dollar, lexer.LParen,
		lexer.LBracket, lexer.LBrace, lexer.KwNot, lexer.Pipe, lexer.Minus:
		return true
	}
	return false
}

// ---- Expressions ------------------------------------------------------------
//
// Precedence, lowest to highest: the arg-list/slice
// constructor and map-field constructor are realized directly as the comma-
// and colon-delimited syntax of call arguments, list/map literals and slice
// indexers rather than as generic binary operators — an idiomatic rendering
// of the same productions a hand-written recursive-descent parser would
// choose. What remains as genuine binary-operator precedence is:
//
//	1 or
//	2 and
//	3 == !=
//	4 < >  (<= >= included alongside)
//	5 + -
//	6 * /
//	7 ^        (right-assoc)
//	8 infix .
//
// with call/indexer postfix binding tightest of all.

var binPrec = map[lexer.Kind]int{
	lexer.KwOr:  1,
	lexer.KwAnd: 2,
	lexer.EqEq:  3, lexer.NotEq: 3,
	lexer.Lt: 4, lexer.Gt: 4, lexer.Le: 4, lexer.Ge: 4,
	lexer.Plus: 5, lexer.Minus: 5,
	lexer.Star: 6, lexer.Slash: 6,
	lexer.Caret: 7,
}

var binOp = map[lexer.Kind]ast.BinOp{
	lexer.KwOr: ast.OpOr, lexer.KwAnd: ast.OpAnd,
	lexer.EqEq: ast.OpEq, lexer.NotEq: ast.OpNeq,
	lexer.Lt: ast.OpLt, lexer.Gt: ast.OpGt, lexer.Le: ast.OpLe, lexer.Ge: ast.OpGe,
	lexer.Plus: ast.OpAdd, lexer.Minus: ast.OpSub,
	lexer.Star: ast.OpMul, lexer.Slash: ast.OpDiv,
	lexer.Caret: ast.OpPow,
}

func (p *Parser) parseExpr(minPrec int) (ast.Node, error) {
	left, err := p.parseDot()
	if err != nil {
		return nil, err
	}
	for {
		prec, ok := binPrec[p.tok.Kind]
		if !ok || prec < minPrec {
			return left, nil
		}
		opTok := p.tok
		nextMin := prec + 1
		if opTok.Kind == lexer.Caret {
			nextMin = prec // right-associative
		}
		p.advance()
		right, err := p.parseExpr(nextMin)
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: binOp[opTok.Kind], Left: left, Right: right, Pos: opTok.Pos}
	}
}

// parseDot handles the infix '.' operator, one level tighter than the
// arithmetic/comparison/logical operators and one level looser than
// call/indexer postfix.
func (p *Parser) parseDot() (ast.Node, error) {
	left, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == lexer.Dot && !p.tok.SpaceBefore {
		pos := p.tok.Pos
		p.advance()
		name, _, err := p.expectIdent("field name")
		if err != nil {
			return nil, err
		}
		left = &ast.Dot{X: left, Field: name, Pos: pos}
		left, err = p.parsePostfixOn(left)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

// parsePostfix parses a primary expression followed by any number of call
// and index postfixes, the tightest-binding level in the table.
func (p *Parser) parsePostfix() (ast.Node, error) {
	prim, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.parsePostfixOn(prim)
}

func (p *Parser) parsePostfixOn(n ast.Node) (ast.Node, error) {
	for {
		// Call '(' and index '[' only bind as postfixes when adjacent (no
		// space before them): `f(x)` is a call, but `f (x)` with intervening
		// space leaves `f` as a bare expression so the enclosing statement
		// parser falls back to reading the rest of the line as a command
		// chain whose second term is the parenthesized expression `(x)`.
		if (p.tok.Kind == lexer.LParen || p.tok.Kind == lexer.LBracket) && p.tok.SpaceBefore {
			return n, nil
		}
		switch p.tok.Kind {
		case lexer.LParen:
			args, pos, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			n = &ast.Call{Fn: n, Args: args, Pos: pos}
		case lexer.LBracket:
			pos := p.tok.Pos
			p.advance()
			idx, err := p.parseIndexOrSlice()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RBracket, "']'"); err != nil {
				return nil, err
			}
			if sl, ok := idx.(*ast.SliceExpr); ok {
				sl.X = n
				sl.Pos = pos
				n = sl
			} else {
				n = &ast.Index{X: n, Idx: idx, Pos: pos}
			}
		default:
			return n, nil
		}
	}
}

func (p *Parser) parseArgList() ([]ast.Node, lexer.Pos, error) {
	lp := p.tok.Pos
	p.advance() // '('
	var args []ast.Node
	for p.tok.Kind != lexer.RParen {
		a, err := p.parseExpr(0)
		if err != nil {
			return nil, lexer.Pos{}, err
		}
		args = append(args, a)
		if p.tok.Kind == lexer.Comma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return nil, lexer.Pos{}, err
	}
	return args, lp, nil
}

// parseIndexOrSlice parses the contents of `[ ... ]`: either a single index
// expression, or `from..to`. Both bounds are required for a slice.
func (p *Parser) parseIndexOrSlice() (ast.Node, error) {
	first, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != lexer.DotDot {
		return first, nil
	}
	pos := p.tok.Pos
	p.advance()
	to, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	return &ast.SliceExpr{From: first, To: to, Pos: pos}, nil
}

func (p *Parser) parsePrimary() (ast.Node, error) {
	tok := p.tok
	switch tok.Kind {
	case lexer.NUMBER:
		p.advance()
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, p.errorf(tok.Pos, "invalid number literal %q", tok.Literal)
		}
		return &ast.NumberLit{Value: v, Pos: tok.Pos}, nil
	case lexer.Minus:
		p.advance()
		operand, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		if n, ok := operand.(*ast.NumberLit); ok {
			return &ast.NumberLit{Value: -n.Value, Pos: tok.Pos}, nil
		}
		return &ast.Binary{Op: ast.OpSub, Left: &ast.NumberLit{Value: 0, Pos: tok.Pos}, Right: operand, Pos: tok.Pos}, nil
	case lexer.STRING:
		p.advance()
		return &ast.StringLit{Value: tok.Literal, Pos: tok.Pos}, nil
	case lexer.IDENT:
		p.advance()
		return &ast.Ident{Name: tok.Literal, Pos: tok.Pos}, nil
	case lexer.Dollar:
		p.advance()
		name, _, err := p.expectIdent("environment variable name")
		if err != nil {
			return nil, err
		}
		return &ast.EnvRef{Name: name, Pos: tok.Pos}, nil
	case lexer.KwNot:
		p.advance()
		x, err := p.parseDot()
		if err != nil {
			return nil, err
		}
		return &ast.Not{X: x, Pos: tok.Pos}, nil
	case lexer.LParen:
		p.advance()
		inner, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	case lexer.LBracket:
		p.advance()
		lit := &ast.ListLit{Pos: tok.Pos}
		for p.tok.Kind != lexer.RBracket {
			e, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			lit.Elems = append(lit.Elems, e)
			if p.tok.Kind == lexer.Comma {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(lexer.RBracket, "']'"); err != nil {
			return nil, err
		}
		return lit, nil
	case lexer.LBrace:
		return p.parseMapLit()
	case lexer.Pipe:
		return p.parseAnonFunc()
	}
	return nil, p.errorf(tok.Pos, "unexpected token %q in expression", tok.Literal)
}

func (p *Parser) parseMapLit() (ast.Node, error) {
	pos := p.tok.Pos
	p.advance() // '{'
	lit := &ast.MapLit{Pos: pos}
	for p.tok.Kind != lexer.RBrace {
		key, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if id, ok := key.(*ast.Ident); ok {
			// a bare identifier key names the field itself: {name: v} == {"name": v}
			key = &ast.StringLit{Value: id.Name, Pos: id.Pos}
		}
		if _, err := p.expect(lexer.Colon, "':'"); err != nil {
			return nil, err
		}
		val, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		lit.Fields = append(lit.Fields, ast.MapField{Key: key, Value: val})
		if p.tok.Kind == lexer.Comma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RBrace, "'}'"); err != nil {
		return nil, err
	}
	return lit, nil
}

func (p *Parser) parseAnonFunc() (ast.Node, error) {
	pos := p.tok.Pos
	p.advance() // '|'
	var params []string
	for p.tok.Kind != lexer.Pipe {
		name, _, err := p.expectIdent("parameter name")
		if err != nil {
			return nil, err
		}
		params = append(params, name)
		if p.tok.Kind == lexer.Comma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.Pipe, "'|'"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.AnonFunc{Params: params, Body: body, Pos: pos}, nil
}

// ---- Command chains ---------------------------------------------------------
//
// Chains are scanned directly off the lexer's raw rune primitives rather
// than its code tokenizer: shell words have none of the code grammar's
// escaping/operator rules, and adjacency (not whitespace)
// is what glues terms into one argument. A parenthesized chain term is the
// one place the two modes interleave: scanTerm primes the code tokenizer
// for the nested expression, then rewinds the raw cursor to resume.

func (p *Parser) parseChain() (*ast.Chain, error) {
	pos := p.lx.CurrentPos()
	primary, err := p.scanCommand()
	if err != nil {
		return nil, err
	}
	chain := &ast.Chain{Primary: primary, Pos: pos}
	for {
		p.lx.SkipIntraLineSpace()
		if p.lx.ChainLineEnded() {
			break
		}
		switch r := p.lx.Rune(); {
		case r == '|':
			p.lx.Advance()
			p.lx.SkipIntraLineSpace()
			cmd, err := p.scanCommand()
			if err != nil {
				return nil, err
			}
			chain.Pipes = append(chain.Pipes, cmd)
		case r == '>':
			p.lx.Advance()
			appendMode := false
			if p.lx.Rune() == '>' {
				p.lx.Advance()
				appendMode = true
			}
			p.lx.SkipIntraLineSpace()
			term, err := p.scanArgument()
			if err != nil {
				return nil, err
			}
			if len(term) == 0 {
				return nil, p.rawErrorf("expected a redirect target")
			}
			chain.RedirTerm = term
			chain.Append = appendMode
		case r == '$' && p.lx.RuneAt(1) == '>':
			p.lx.Advance()
			p.lx.Advance()
			p.lx.SkipIntraLineSpace()
			name := p.scanIdentRaw()
			if name == "" {
				return nil, p.rawErrorf("expected a capture variable name after '$>'")
			}
			chain.Capture = name
		default:
			return nil, p.rawErrorf("unexpected character %q in command chain", string(r))
		}
	}
	// resynchronize the token-mode lookahead for the statement loop that
	// called us (it expects p.tok, not raw lexer state, from here on).
	p.advance()
	return chain, nil
}

func (p *Parser) rawErrorf(format string, args ...any) error {
	return p.errorf(p.lx.CurrentPos(), format, args...)
}

func (p *Parser) scanCommand() (ast.Command, error) {
	pos := p.lx.CurrentPos()
	var args [][]ast.ChainTerm
	for {
		p.lx.SkipIntraLineSpace()
		if p.atChainStructuralOrEnd() {
			break
		}
		arg, err := p.scanArgument()
		if err != nil {
			return ast.Command{}, err
		}
		if len(arg) == 0 {
			break
		}
		args = append(args, arg)
	}
	if len(args) == 0 {
		return ast.Command{}, p.rawErrorf("expected a command")
	}
	return ast.Command{Args: args, Pos: pos}, nil
}

func (p *Parser) atChainStructuralOrEnd() bool {
	if p.lx.ChainLineEnded() {
		return true
	}
	r := p.lx.Rune()
	if r == '|' || r == '>' {
		return true
	}
	if r == '$' && p.lx.RuneAt(1) == '>' {
		return true
	}
	return false
}

// scanArgument scans one whitespace-delimited argument: one or more
// adjacent terms glued with no intervening whitespace.
func (p *Parser) scanArgument() ([]ast.ChainTerm, error) {
	var terms []ast.ChainTerm
	for {
		if p.lx.ChainLineEnded() {
			break
		}
		r := p.lx.Rune()
		if r == ' ' || r == '\t' {
			break
		}
		if r == '|' || r == '>' || (r == '$' && p.lx.RuneAt(1) == '>') {
			break
		}
		term, err := p.scanTerm()
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return terms, nil
}

func (p *Parser) scanTerm() (ast.ChainTerm, error) {
	switch r := p.lx.Rune(); {
	case r == '"':
		s, err := p.scanRawQuotedString()
		if err != nil {
			return ast.ChainTerm{}, err
		}
		return ast.ChainTerm{Kind: ast.TermString, Text: s}, nil
	case r == '$':
		p.lx.Advance()
		name := p.scanIdentRaw()
		if name == "" {
			return ast.ChainTerm{}, p.rawErrorf("expected a variable name after '$'")
		}
		return ast.ChainTerm{Kind: ast.TermEnvRef, Name: name}, nil
	case r == '(':
		p.lx.Advance() // consume '(' raw
		p.advance()    // prime the code tokenizer on the first token inside
		expr, err := p.parseExpr(0)
		if err != nil {
			return ast.ChainTerm{}, err
		}
		if p.tok.Kind != lexer.RParen {
			return ast.ChainTerm{}, p.errorf(p.tok.Pos, "expected ')' to close expression in command term")
		}
		// resume raw scanning just past ')', so that whitespace after it
		// still separates arguments
		rp := p.tok.Pos
		p.lx.RewindTo(lexer.Pos{Line: rp.Line, Column: rp.Column + 1, Offset: rp.Offset + 1})
		return ast.ChainTerm{Kind: ast.TermExpr, Expr: expr}, nil
	default:
		w, err := p.scanWordRaw()
		if err != nil {
			return ast.ChainTerm{}, err
		}
		return ast.ChainTerm{Kind: ast.TermWord, Text: w}, nil
	}
}

// scanRawQuotedString decodes the same four escapes as a code-mode STRING
// token; it is duplicated rather than shared because it
// operates through the raw rune primitives instead of the tokenizer.
func (p *Parser) scanRawQuotedString() (string, error) {
	startPos := p.lx.CurrentPos()
	p.lx.Advance() // opening quote
	var b strings.Builder
	for {
		if p.lx.AtEOF() {
			return "", p.errorf(startPos, "unterminated string literal")
		}
		r := p.lx.Rune()
		if r == '"' {
			break
		}
		p.lx.Advance()
		if r == '\\' && !p.lx.AtEOF() {
			switch p.lx.Rune() {
			case 'n':
				b.WriteRune('\n')
				p.lx.Advance()
			case 't':
				b.WriteRune('\t')
				p.lx.Advance()
			case 'r':
				b.WriteRune('\r')
				p.lx.Advance()
			case '"':
				b.WriteRune('"')
				p.lx.Advance()
			default:
				b.WriteRune('\\')
			}
			continue
		}
		b.WriteRune(r)
	}
	p.lx.Advance() // closing quote
	return b.String(), nil
}

// scanWordRaw scans a bare command word. A backslash simply drops and keeps
// the following rune verbatim — a different rule from string-literal escape
// decoding (unescape_prg_or_arg).
func (p *Parser) scanWordRaw() (string, error) {
	var b strings.Builder
	for {
		if p.lx.ChainLineEnded() {
			break
		}
		r := p.lx.Rune()
		if r == ' ' || r == '\t' || r == '"' || r == '$' || r == '(' || r == '|' || r == '>' {
			break
		}
		p.lx.Advance()
		if r == '\\' && !p.lx.AtEOF() {
			b.WriteRune(p.lx.Advance())
			continue
		}
		b.WriteRune(r)
	}
	return b.String(), nil
}

func (p *Parser) scanIdentRaw() string {
	var b strings.Builder
	for !p.lx.AtEOF() && isIdentRune(p.lx.Rune()) {
		b.WriteRune(p.lx.Advance())
	}
	return b.String()
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
