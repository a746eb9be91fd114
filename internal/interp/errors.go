package interp

import (
	"fmt"

	"github.com/mikkeldamsgaard/slash-go/internal/ast"
)

// Pos re-exports ast.Pos (itself a re-export of lexer.Pos) so callers of
// this package don't need to import either lexer or ast just to build a
// Diagnostic.
type Pos = ast.Pos

// Diagnostic is the runtime error model: message, 1-based line/column, the
// offending source line, and a flag distinguishing a grammar-level (parse)
// error from a runtime one. Parse errors are constructed by internal/parser
// (parser.Error) and surfaced unchanged; this type covers every
// evaluator/executor/chain-runner failure.
type Diagnostic struct {
	Msg    string
	Pos    Pos
	IsParse bool
}

func (d *Diagnostic) Error() string {
	if d.IsParse {
		return d.Msg
	}
	return fmt.Sprintf("%s\nAt line %d column %d:\n===>   %s", d.Msg, d.Pos.Line, d.Pos.Column, d.Pos.Text)
}

// newDiag builds a runtime diagnostic located at pos.
func newDiag(pos Pos, format string, args ...any) error {
	return &Diagnostic{Msg: fmt.Sprintf(format, args...), Pos: pos}
}

// wrapDiag attaches pos to an error raised by the value algebra (value.go's
// operations return plain errors with no span, since they don't have
// access to the syntax tree) so every diagnostic that reaches the top of
// run() carries a location.
func wrapDiag(pos Pos, err error) error {
	if err == nil {
		return nil
	}
	if d, ok := err.(*Diagnostic); ok {
		return d
	}
	return &Diagnostic{Msg: err.Error(), Pos: pos}
}
