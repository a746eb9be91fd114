package parser

import (
	"testing"

	"github.com/mikkeldamsgaard/slash-go/internal/ast"
)

func TestParseLetAndExprStmt(t *testing.T) {
	file, err := Parse(`let x = 1 + 2`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(file.Stmts) != 1 {
		t.Fatalf("got %d statements, want 1", len(file.Stmts))
	}
	let, ok := file.Stmts[0].(*ast.Let)
	if !ok {
		t.Fatalf("got %T, want *ast.Let", file.Stmts[0])
	}
	if let.Name != "x" {
		t.Fatalf("got name %q, want x", let.Name)
	}
	bin, ok := let.Expr.(*ast.Binary)
	if !ok || bin.Op != ast.OpAdd {
		t.Fatalf("got %#v, want an OpAdd binary", let.Expr)
	}
}

func TestParseCallNoSpaceIsACall(t *testing.T) {
	file, err := Parse(`f(1, 2)`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	stmt, ok := file.Stmts[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("got %T, want *ast.ExprStmt", file.Stmts[0])
	}
	call, ok := stmt.Expr.(*ast.Call)
	if !ok {
		t.Fatalf("got %T, want *ast.Call", stmt.Expr)
	}
	if len(call.Args) != 2 {
		t.Fatalf("got %d args, want 2", len(call.Args))
	}
}

// A space before '(' breaks the postfix-call reading, so "echo (1)" must
// parse as a command chain, not a call.
func TestParseSpaceBeforeParenIsChainNotCall(t *testing.T) {
	file, err := Parse(`echo (1)`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := file.Stmts[0].(*ast.Chain); !ok {
		t.Fatalf("got %T, want *ast.Chain", file.Stmts[0])
	}
}

func TestParseBareWordsIsChain(t *testing.T) {
	file, err := Parse(`echo hello world`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ch, ok := file.Stmts[0].(*ast.Chain)
	if !ok {
		t.Fatalf("got %T, want *ast.Chain", file.Stmts[0])
	}
	if len(ch.Primary.Args) != 3 {
		t.Fatalf("got %d args, want 3", len(ch.Primary.Args))
	}
}

func TestParsePipelineAndRedirect(t *testing.T) {
	file, err := Parse(`cat file | grep foo > out.txt`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ch := file.Stmts[0].(*ast.Chain)
	if len(ch.Pipes) != 1 {
		t.Fatalf("got %d pipe stages, want 1", len(ch.Pipes))
	}
	if ch.RedirTerm == nil {
		t.Fatal("expected a redirect target")
	}
}

func TestParseCaptureChain(t *testing.T) {
	file, err := Parse(`ls $> result`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ch := file.Stmts[0].(*ast.Chain)
	if ch.Capture != "result" {
		t.Fatalf("got capture %q, want result", ch.Capture)
	}
}

func TestParsePowerIsRightAssociative(t *testing.T) {
	file, err := Parse(`2 ^ 3 ^ 2`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	top := file.Stmts[0].(*ast.ExprStmt).Expr.(*ast.Binary)
	if top.Op != ast.OpPow {
		t.Fatalf("got op %v", top.Op)
	}
	// Right-associative: the right child is itself a ^ binary, not the left.
	if _, ok := top.Right.(*ast.Binary); !ok {
		t.Fatalf("expected right-associative nesting, got %#v", top.Right)
	}
	if _, ok := top.Left.(*ast.NumberLit); !ok {
		t.Fatalf("expected a flat left operand, got %#v", top.Left)
	}
}

func TestParseIfElseIfElse(t *testing.T) {
	file, err := Parse(`
if x == 1 {
	y = 1
} else if x == 2 {
	y = 2
} else {
	y = 3
}
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ifStmt := file.Stmts[0].(*ast.If)
	if len(ifStmt.Clauses) != 3 {
		t.Fatalf("got %d clauses, want 3", len(ifStmt.Clauses))
	}
	if ifStmt.Clauses[2].Cond != nil {
		t.Fatal("trailing else clause must have a nil condition")
	}
}

func TestParseForInVsForC(t *testing.T) {
	file, err := Parse(`for v in xs { println(v) }`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := file.Stmts[0].(*ast.ForIn); !ok {
		t.Fatalf("got %T, want *ast.ForIn", file.Stmts[0])
	}

	file, err = Parse(`for i = 0; i < 10; i = i + 1 { println(i) }`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := file.Stmts[0].(*ast.ForC); !ok {
		t.Fatalf("got %T, want *ast.ForC", file.Stmts[0])
	}
}

func TestParseMatchRangeAndCatchAll(t *testing.T) {
	file, err := Parse(`
match n {
	0 -> 9 => { println("digit") }
	_ => { println("other") }
}
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	m := file.Stmts[0].(*ast.Match)
	if len(m.Arms) != 2 {
		t.Fatalf("got %d arms, want 2", len(m.Arms))
	}
	if m.Arms[0].Candidates[0].To == nil {
		t.Fatal("expected a range candidate with a To bound")
	}
	if !m.Arms[1].CatchAll {
		t.Fatal("expected the second arm to be the catch-all")
	}
}

func TestParseInvalidSyntaxReturnsParseError(t *testing.T) {
	if _, err := Parse(`let`); err == nil {
		t.Fatal("expected a parse error")
	} else if _, ok := err.(*Error); !ok {
		t.Fatalf("got %T, want *parser.Error", err)
	}
}

func TestParseDotFieldAccessNoSpace(t *testing.T) {
	file, err := Parse(`t.name`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	stmt := file.Stmts[0].(*ast.ExprStmt)
	dot, ok := stmt.Expr.(*ast.Dot)
	if !ok {
		t.Fatalf("got %T, want *ast.Dot", stmt.Expr)
	}
	if dot.Field != "name" {
		t.Fatalf("got field %q, want name", dot.Field)
	}
}

func TestParseAnonFunc(t *testing.T) {
	file, err := Parse(`let add = |a, b| { return a + b }`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	let := file.Stmts[0].(*ast.Let)
	fn, ok := let.Expr.(*ast.AnonFunc)
	if !ok {
		t.Fatalf("got %T, want *ast.AnonFunc", let.Expr)
	}
	if len(fn.Params) != 2 {
		t.Fatalf("got %d params, want 2", len(fn.Params))
	}
}
