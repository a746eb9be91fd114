package interp

import (
	"fmt"

	"github.com/mikkeldamsgaard/slash-go/internal/ast"
)

// execKind tags the non-local control flow a statement can produce.
type execKind int

const (
	execNone execKind = iota
	execBreak
	execContinue
	execReturn
)

type execResult struct {
	kind  execKind
	value Value
	pos   Pos
}

var noneResult = execResult{kind: execNone}

// execBlockStmts executes stmts directly in scope (no further derivation),
// stopping early on any non-None result. Used both for a genuine Block
// (after the caller derives a child scope) and for file/function-body
// execution, which supply the scope to run in directly.
func (in *Interp) execBlockStmts(scope *Scope, stmts []ast.Stmt) (execResult, error) {
	for _, st := range stmts {
		res, err := in.execStmt(scope, st)
		if err != nil {
			return noneResult, err
		}
		if res.kind != execNone {
			return res, nil
		}
	}
	return noneResult, nil
}

func (in *Interp) execBlock(scope *Scope, blk *ast.Block) (execResult, error) {
	return in.execBlockStmts(scope.Derived(), blk.Stmts)
}

func (in *Interp) execStmt(scope *Scope, st ast.Stmt) (execResult, error) {
	switch s := st.(type) {
	case *ast.Block:
		return in.execBlock(scope, s)

	case *ast.Let:
		v, err := in.Eval(scope, s.Expr)
		if err != nil {
			return noneResult, err
		}
		if v.IsNone() {
			return noneResult, newDiag(s.Pos, "expression used to initialize %q yields no value", s.Name)
		}
		scope.Declare(s.Name, v)
		return noneResult, nil

	case *ast.Assign:
		v, err := in.Eval(scope, s.Expr)
		if err != nil {
			return noneResult, err
		}
		if v.IsNone() {
			return noneResult, newDiag(s.Pos, "expression assigned to %q yields no value", s.Name)
		}
		if err := scope.Assign(s.Name, v); err != nil {
			return noneResult, newDiag(s.Pos, "%s", err)
		}
		return noneResult, nil

	case *ast.IndexAssign:
		return noneResult, in.execIndexAssign(scope, s)

	case *ast.DotAssign:
		return noneResult, in.execDotAssign(scope, s)

	case *ast.FuncDecl:
		fn := &Function{Name: s.Name, Params: s.Params, Body: s.Body, Scope: scope, IsUser: true}
		scope.Declare(s.Name, FuncValue(fn))
		return noneResult, nil

	case *ast.ExprStmt:
		_, err := in.Eval(scope, s.Expr)
		return noneResult, err

	case *ast.Return:
		if s.Expr == nil {
			return execResult{kind: execReturn, value: None(), pos: s.Pos}, nil
		}
		v, err := in.Eval(scope, s.Expr)
		if err != nil {
			return noneResult, err
		}
		return execResult{kind: execReturn, value: v, pos: s.Pos}, nil

	case *ast.Break:
		return execResult{kind: execBreak, pos: s.Pos}, nil

	case *ast.Continue:
		return execResult{kind: execContinue, pos: s.Pos}, nil

	case *ast.Export:
		return noneResult, in.execExport(scope, s)

	case *ast.If:
		return in.execIf(scope, s)

	case *ast.While:
		return in.execWhile(scope, s)

	case *ast.ForIn:
		return in.execForIn(scope, s)

	case *ast.ForC:
		return in.execForC(scope, s)

	case *ast.Match:
		return in.execMatch(scope, s)

	case *ast.Chain:
		return noneResult, in.execChain(scope, s)

	default:
		return noneResult, fmt.Errorf("internal error: unhandled statement node %T", st)
	}
}

func (in *Interp) execIndexAssign(scope *Scope, s *ast.IndexAssign) error {
	target, ok := scope.Lookup(s.Name)
	if !ok {
		return newDiag(s.Pos, "variable %q is not defined", s.Name)
	}
	idx, err := in.Eval(scope, s.Index)
	if err != nil {
		return err
	}
	v, err := in.Eval(scope, s.Expr)
	if err != nil {
		return err
	}
	if v.IsNone() {
		return newDiag(s.Pos, "expression assigned to %q yields no value", s.Name)
	}
	switch target.Kind() {
	case KindList:
		if !idx.IsNumber() {
			return newDiag(s.Pos, "list index must be a number, got %s", idx.Kind())
		}
		i := int(idx.AsNumber())
		list := target.AsList()
		if i < 0 || i >= len(list) {
			return newDiag(s.Pos, "list index %d out of range (len %d)", i, len(list))
		}
		target.SetIndex(i, v)
		return nil
	case KindTable:
		if !idx.IsString() {
			return newDiag(s.Pos, "table index must be a string, got %s", idx.Kind())
		}
		target.SetField(idx.AsString(), v)
		return nil
	default:
		return newDiag(s.Pos, "cannot index-assign into a %s", target.Kind())
	}
}

func (in *Interp) execDotAssign(scope *Scope, s *ast.DotAssign) error {
	target, ok := scope.Lookup(s.Name)
	if !ok {
		return newDiag(s.Pos, "variable %q is not defined", s.Name)
	}
	if !target.IsTable() {
		return newDiag(s.Pos, "cannot assign field %q on a %s", s.Field, target.Kind())
	}
	v, err := in.Eval(scope, s.Expr)
	if err != nil {
		return err
	}
	if v.IsNone() {
		return newDiag(s.Pos, "expression assigned to %q.%s yields no value", s.Name, s.Field)
	}
	target.SetField(s.Field, v)
	return nil
}

func (in *Interp) execExport(scope *Scope, s *ast.Export) error {
	if s.Expr == nil {
		if !scope.Has(s.Name) {
			return newDiag(s.Pos, "cannot export undefined variable %q", s.Name)
		}
		scope.AddExport(s.Name)
		return nil
	}
	v, err := in.Eval(scope, s.Expr)
	if err != nil {
		return err
	}
	if v.IsNone() {
		return newDiag(s.Pos, "expression used to initialize exported %q yields no value", s.Name)
	}
	scope.Declare(s.Name, v)
	scope.AddExport(s.Name)
	return nil
}

func (in *Interp) execIf(scope *Scope, s *ast.If) (execResult, error) {
	for _, clause := range s.Clauses {
		if clause.Cond == nil {
			return in.execBlock(scope, clause.Body)
		}
		cond, err := in.Eval(scope, clause.Cond)
		if err != nil {
			return noneResult, err
		}
		if cond.Truthy() {
			return in.execBlock(scope, clause.Body)
		}
	}
	return noneResult, nil
}

func (in *Interp) execWhile(scope *Scope, s *ast.While) (execResult, error) {
	for {
		cond, err := in.Eval(scope, s.Cond)
		if err != nil {
			return noneResult, err
		}
		if !cond.Truthy() {
			return noneResult, nil
		}
		res, err := in.execBlock(scope, s.Body)
		if err != nil {
			return noneResult, err
		}
		switch res.kind {
		case execBreak:
			return noneResult, nil
		case execReturn:
			return res, nil
		case execContinue, execNone:
			// fall through to re-test the condition
		}
	}
}

// execForIn iterates a snapshot of the list taken at loop entry: mutating the
// source list from inside the body must not affect iteration.
func (in *Interp) execForIn(scope *Scope, s *ast.ForIn) (execResult, error) {
	v, err := in.Eval(scope, s.Expr)
	if err != nil {
		return noneResult, err
	}
	if !v.IsList() {
		return noneResult, newDiag(s.Pos, "for-in requires a list, got %s", v.Kind())
	}
	snapshot := append([]Value(nil), v.AsList()...)
	for _, elem := range snapshot {
		child := scope.Derived()
		child.Declare(s.Var, elem)
		res, err := in.execBlockStmts(child, s.Body.Stmts)
		if err != nil {
			return noneResult, err
		}
		switch res.kind {
		case execBreak:
			return noneResult, nil
		case execReturn:
			return res, nil
		}
	}
	return noneResult, nil
}

func (in *Interp) execForC(scope *Scope, s *ast.ForC) (execResult, error) {
	loopScope := scope.Derived()
	init, err := in.Eval(scope, s.Init)
	if err != nil {
		return noneResult, err
	}
	loopScope.Declare(s.Var, init)
	for {
		cond, err := in.Eval(loopScope, s.Cond)
		if err != nil {
			return noneResult, err
		}
		if !cond.Truthy() {
			return noneResult, nil
		}
		res, err := in.execBlock(loopScope, s.Body)
		if err != nil {
			return noneResult, err
		}
		switch res.kind {
		case execBreak:
			return noneResult, nil
		case execReturn:
			return res, nil
		}
		next, err := in.Eval(loopScope, s.Update)
		if err != nil {
			return noneResult, err
		}
		if err := loopScope.Assign(s.Var, next); err != nil {
			return noneResult, newDiag(s.Pos, "%s", err)
		}
	}
}

func (in *Interp) execMatch(scope *Scope, s *ast.Match) (execResult, error) {
	subject, err := in.Eval(scope, s.Expr)
	if err != nil {
		return noneResult, err
	}
	for _, arm := range s.Arms {
		if arm.CatchAll {
			return in.execBlock(scope, arm.Body)
		}
		matched, err := matchArm(in, scope, subject, arm)
		if err != nil {
			return noneResult, err
		}
		if matched {
			return in.execBlock(scope, arm.Body)
		}
	}
	return noneResult, nil
}

func matchArm(in *Interp, scope *Scope, subject Value, arm ast.MatchArm) (bool, error) {
	for _, c := range arm.Candidates {
		if c.To == nil {
			v, err := in.Eval(scope, c.From)
			if err != nil {
				return false, err
			}
			eq, err := Equals(subject, v)
			if err != nil {
				return false, wrapDiag(c.From.Position(), err)
			}
			if eq {
				return true, nil
			}
			continue
		}
		lo, err := in.Eval(scope, c.From)
		if err != nil {
			return false, err
		}
		hi, err := in.Eval(scope, c.To)
		if err != nil {
			return false, err
		}
		loCmp, err := Compare(subject, lo)
		if err != nil {
			return false, wrapDiag(c.From.Position(), err)
		}
		hiCmp, err := Compare(subject, hi)
		if err != nil {
			return false, wrapDiag(c.To.Position(), err)
		}
		if loCmp >= 0 && hiCmp <= 0 {
			return true, nil
		}
	}
	return false, nil
}
