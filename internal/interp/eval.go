package interp

import (
	"fmt"

	"github.com/mikkeldamsgaard/slash-go/internal/ast"
)

// Eval walks an expression node to a Value, resolving variables, literals,
// calls, indexers, slices, dot access and anonymous functions. The
// ambiguity a bare comma could otherwise carry (an argument list vs. a
// table field list) is resolved once, at parse time, by
// internal/parser into internal/ast nodes: Call.Args, ListLit.Elems and MapLit.Fields
// are already the right shape, so Eval only ever produces or consumes a
// single Value — there is no deferred, unresolved-sort expression left for
// it to handle, since ast.Dot already carries its field name as a plain
// string rather than a sub-expression to resolve lazily.
func (in *Interp) Eval(scope *Scope, n ast.Node) (Value, error) {
	switch e := n.(type) {
	case *ast.NumberLit:
		return Number(e.Value), nil

	case *ast.StringLit:
		return String(e.Value), nil

	case *ast.Ident:
		v, ok := scope.Lookup(e.Name)
		if !ok {
			return Value{}, newDiag(e.Pos, "identifier %q could not be resolved", e.Name)
		}
		return v, nil

	case *ast.EnvRef:
		if v, ok := scope.Lookup(e.Name); ok {
			return v, nil
		}
		if v, ok := in.env[e.Name]; ok {
			return String(v), nil
		}
		return Value{}, newDiag(e.Pos, "environment reference %q could not be resolved", e.Name)

	case *ast.ListLit:
		elems := make([]Value, 0, len(e.Elems))
		for _, el := range e.Elems {
			v, err := in.Eval(scope, el)
			if err != nil {
				return Value{}, err
			}
			if v.IsNone() {
				return Value{}, newDiag(el.Position(), "expression used as a list element yields no value")
			}
			elems = append(elems, v)
		}
		return List(elems), nil

	case *ast.MapLit:
		fields := map[string]Value{}
		for _, f := range e.Fields {
			kv, err := in.Eval(scope, f.Key)
			if err != nil {
				return Value{}, err
			}
			if !kv.IsString() {
				return Value{}, newDiag(f.Key.Position(), "table keys must be strings, got %s", kv.Kind())
			}
			vv, err := in.Eval(scope, f.Value)
			if err != nil {
				return Value{}, err
			}
			if vv.IsNone() {
				return Value{}, newDiag(f.Value.Position(), "expression used as a table value yields no value")
			}
			fields[kv.AsString()] = vv
		}
		return Table(fields), nil

	case *ast.AnonFunc:
		return FuncValue(&Function{Params: e.Params, Body: e.Body, Scope: scope, IsUser: true}), nil

	case *ast.Not:
		x, err := in.Eval(scope, e.X)
		if err != nil {
			return Value{}, err
		}
		if x.Truthy() {
			return Number(0), nil
		}
		return Number(1), nil

	case *ast.Binary:
		return in.evalBinary(scope, e)

	case *ast.Dot:
		x, err := in.Eval(scope, e.X)
		if err != nil {
			return Value{}, err
		}
		if !x.IsTable() {
			return Value{}, newDiag(e.Pos, "cannot access field %q on a %s", e.Field, x.Kind())
		}
		v, ok := x.AsTable()[e.Field]
		if !ok {
			return Value{}, newDiag(e.Pos, "identifier %q could not be resolved", e.Field)
		}
		return v, nil

	case *ast.Index:
		return in.evalIndex(scope, e)

	case *ast.SliceExpr:
		// The parser produces `x[from..to]` as a SliceExpr whose X is the
		// sliced expression.
		if e.X == nil {
			return Value{}, newDiag(e.Pos, "range expression is only valid inside an indexer")
		}
		x, err := in.Eval(scope, e.X)
		if err != nil {
			return Value{}, err
		}
		return in.evalSlice(scope, x, e)

	case *ast.Call:
		return in.evalCall(scope, e)

	default:
		return Value{}, fmt.Errorf("internal error: unhandled expression node %T", n)
	}
}

func (in *Interp) evalBinary(scope *Scope, e *ast.Binary) (Value, error) {
	l, err := in.Eval(scope, e.Left)
	if err != nil {
		return Value{}, err
	}
	if l.IsNone() {
		return Value{}, newDiag(e.Left.Position(), "expression yields no value")
	}
	r, err := in.Eval(scope, e.Right)
	if err != nil {
		return Value{}, err
	}
	if r.IsNone() {
		return Value{}, newDiag(e.Right.Position(), "expression yields no value")
	}

	switch e.Op {
	case ast.OpAdd:
		v, err := Add(l, r)
		return v, wrapDiag(e.Pos, err)
	case ast.OpSub:
		v, err := Sub(l, r)
		return v, wrapDiag(e.Pos, err)
	case ast.OpMul:
		v, err := Mul(l, r)
		return v, wrapDiag(e.Pos, err)
	case ast.OpDiv:
		v, err := Div(l, r)
		return v, wrapDiag(e.Pos, err)
	case ast.OpPow:
		v, err := Pow(l, r)
		return v, wrapDiag(e.Pos, err)
	case ast.OpOr:
		return Or(l, r), nil
	case ast.OpAnd:
		return And(l, r), nil
	case ast.OpEq:
		eq, err := Equals(l, r)
		if err != nil {
			return Value{}, wrapDiag(e.Pos, err)
		}
		return boolNumber(eq), nil
	case ast.OpNeq:
		eq, err := Equals(l, r)
		if err != nil {
			return Value{}, wrapDiag(e.Pos, err)
		}
		return boolNumber(!eq), nil
	case ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe:
		cmp, err := Compare(l, r)
		if err != nil {
			return Value{}, wrapDiag(e.Pos, err)
		}
		switch e.Op {
		case ast.OpLt:
			return boolNumber(cmp < 0), nil
		case ast.OpGt:
			return boolNumber(cmp > 0), nil
		case ast.OpLe:
			return boolNumber(cmp <= 0), nil
		default:
			return boolNumber(cmp >= 0), nil
		}
	default:
		return Value{}, fmt.Errorf("internal error: unhandled binary operator %d", e.Op)
	}
}

func boolNumber(b bool) Value {
	if b {
		return Number(1)
	}
	return Number(0)
}

func (in *Interp) evalIndex(scope *Scope, e *ast.Index) (Value, error) {
	x, err := in.Eval(scope, e.X)
	if err != nil {
		return Value{}, err
	}
	if sl, ok := e.Idx.(*ast.SliceExpr); ok {
		return in.evalSlice(scope, x, sl)
	}
	idx, err := in.Eval(scope, e.Idx)
	if err != nil {
		return Value{}, err
	}
	v, err := LookupByIndex(x, idx)
	return v, wrapDiag(e.Pos, err)
}

func (in *Interp) evalSlice(scope *Scope, x Value, sl *ast.SliceExpr) (Value, error) {
	fv, err := in.Eval(scope, sl.From)
	if err != nil {
		return Value{}, err
	}
	if !fv.IsNumber() {
		return Value{}, newDiag(sl.Pos, "slice bound must be a number, got %s", fv.Kind())
	}
	from := int(int32(fv.AsNumber()))
	tv, err := in.Eval(scope, sl.To)
	if err != nil {
		return Value{}, err
	}
	if !tv.IsNumber() {
		return Value{}, newDiag(sl.Pos, "slice bound must be a number, got %s", tv.Kind())
	}
	to := int(int32(tv.AsNumber()))
	if !x.IsList() {
		return Value{}, newDiag(sl.Pos, "cannot slice %s", x.Kind())
	}
	v, err := Slice(x, from, to)
	return v, wrapDiag(sl.Pos, err)
}

func (in *Interp) evalCall(scope *Scope, e *ast.Call) (Value, error) {
	fnVal, err := in.Eval(scope, e.Fn)
	if err != nil {
		return Value{}, err
	}
	if fnVal.Kind() != KindFunction {
		return Value{}, newDiag(e.Pos, "cannot call a %s", fnVal.Kind())
	}
	args := make([]Value, 0, len(e.Args))
	for _, a := range e.Args {
		v, err := in.Eval(scope, a)
		if err != nil {
			return Value{}, err
		}
		if v.IsNone() {
			return Value{}, newDiag(a.Position(), "expression used as a call argument yields no value")
		}
		args = append(args, v)
	}
	return in.callFunction(scope, fnVal.AsFunction(), args, e.Pos)
}

// callBuiltin invokes a built-in, making callerScope available to the few
// built-ins that need it (include, lookup_env_var) via in.includeScope,
// restoring the previous value afterward to support nested calls.
func (in *Interp) callBuiltin(callerScope *Scope, f *Function, args []Value, pos Pos) (Value, error) {
	prev := in.includeScope
	in.includeScope = callerScope
	defer func() { in.includeScope = prev }()
	return f.Builtin(in, args, pos)
}

// callFunction invokes a Function value, dispatching to a builtin's Go
// implementation or executing a user function's body in a fresh child of
// its captured scope.
func (in *Interp) callFunction(callerScope *Scope, f *Function, args []Value, pos Pos) (Value, error) {
	if !f.IsUser {
		return in.callBuiltin(callerScope, f, args, pos)
	}
	if len(args) != len(f.Params) {
		return Value{}, newDiag(pos, "function expects %d argument(s), got %d", len(f.Params), len(args))
	}
	child := f.Scope.Derived()
	for i, p := range f.Params {
		child.Declare(p, args[i])
	}
	result, err := in.execBlockStmts(child, f.Body.Stmts)
	if err != nil {
		return Value{}, err
	}
	switch result.kind {
	case execReturn:
		return result.value, nil
	case execBreak, execContinue:
		return Value{}, newDiag(result.pos, "break/continue outside of a loop")
	default:
		return None(), nil
	}
}
