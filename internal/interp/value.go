package interp

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/mikkeldamsgaard/slash-go/internal/ast"
)

// Kind identifies which alternative of the Value tagged union is populated.
type Kind int

const (
	// KindNone is the zero Kind: it is what a call to a function/builtin
	// that never executes `return` produces. Using it where a Value is
	// required (e.g. as a call argument, or the RHS of `let`) is a runtime
	// error: "a call used in an expression that yields no value".
	KindNone Kind = iota
	KindNumber
	KindString
	KindList
	KindTable
	KindFunction
	KindProcessResult
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "no value"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindTable:
		return "table"
	case KindFunction:
		return "function"
	case KindProcessResult:
		return "process_result"
	default:
		return "unknown"
	}
}

// listCell and tableCell back List and Table's reference semantics: a Value
// of kind List/Table just holds a pointer to one of these, so copying the
// Value copies the pointer, not the contents — a shared mutable container.
type listCell struct{ elems []Value }
type tableCell struct{ fields map[string]Value }

// Builtin is a built-in function's implementation. args are already
// evaluated; pos is the call site, used to locate any diagnostic the
// built-in raises.
type Builtin func(interp *Interp, args []Value, pos ast.Pos) (Value, error)

// Function is either a built-in (name + Go callable) or a user-defined
// closure (parameter names, body, and the scope it was declared in).
type Function struct {
	Name    string // builtin or declared function name, "" for an anonymous function
	Builtin Builtin

	Params []string
	Body   *ast.Block
	Scope  *Scope // captured defining scope
	IsUser bool
}

// ProcessResult is the value produced by a captured command chain.
// ExitCode is nil when the process was terminated by a signal rather than
// exiting normally.
type ProcessResult struct {
	ExitCode *int
	Stdout   string
	Stderr   string
}

// Value is the tagged union every Slash runtime datum is an instance of.
// The zero Value is None (KindNone).
type Value struct {
	kind Kind

	num    float64
	str    string
	list   *listCell
	table  *tableCell
	fn     *Function
	result *ProcessResult
}

// None is the value a function/builtin call yields when it has no
// `return` statement — distinct from every other Value kind.
func None() Value { return Value{kind: KindNone} }

func (v Value) IsNone() bool { return v.kind == KindNone }

func Number(f float64) Value { return Value{kind: KindNumber, num: f} }
func String(s string) Value { return Value{kind: KindString, str: s} }

func List(elems []Value) Value {
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return Value{kind: KindList, list: &listCell{elems: cp}}
}

func Table(fields map[string]Value) Value {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Value{kind: KindTable, table: &tableCell{fields: cp}}
}

func FuncValue(fn *Function) Value { return Value{kind: KindFunction, fn: fn} }

func ProcessResultValue(r ProcessResult) Value { return Value{kind: KindProcessResult, result: &r} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNumber() bool        { return v.kind == KindNumber }
func (v Value) IsString() bool        { return v.kind == KindString }
func (v Value) IsList() bool          { return v.kind == KindList }
func (v Value) IsTable() bool         { return v.kind == KindTable }
func (v Value) IsFunction() bool      { return v.kind == KindFunction }
func (v Value) IsProcessResult() bool { return v.kind == KindProcessResult }

// AsNumber/AsString/etc do not check the kind: on a mismatch AsNumber,
// AsString and AsFunction return a zero value, while AsList, AsTable and
// AsProcessResult panic. Callers check Kind() (or an Is* method) first.
func (v Value) AsNumber() float64      { return v.num }
func (v Value) AsString() string       { return v.str }
func (v Value) AsList() []Value        { return v.list.elems }
func (v Value) AsTable() map[string]Value { return v.table.fields }
func (v Value) AsFunction() *Function  { return v.fn }
func (v Value) AsProcessResult() ProcessResult { return *v.result }

// SetIndex mutates a List in place.
func (v Value) SetIndex(i int, nv Value) { v.list.elems[i] = nv }

// SetField mutates a Table in place.
func (v Value) SetField(k string, nv Value) { v.table.fields[k] = nv }

// Len returns list/table length or string byte length.
func (v Value) Len() (int, error) {
	switch v.kind {
	case KindString:
		return len(v.str), nil
	case KindList:
		return len(v.list.elems), nil
	case KindTable:
		return len(v.table.fields), nil
	default:
		return 0, fmt.Errorf("len: expected string, list or table, got %s", v.kind)
	}
}

// Truthy reports a Value's truthiness.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNumber:
		return v.num != 0
	case KindString:
		return v.str != ""
	case KindList:
		return len(v.list.elems) > 0
	case KindTable:
		return len(v.table.fields) > 0
	case KindFunction:
		return true
	case KindProcessResult:
		return v.result.ExitCode != nil && *v.result.ExitCode == 0
	default:
		return false
	}
}

// Add handles Number+Number, String+String (concatenation), and List+List
// (concatenation into a fresh list).
func Add(a, b Value) (Value, error) {
	switch {
	case a.kind == KindNumber && b.kind == KindNumber:
		return Number(a.num + b.num), nil
	case a.kind == KindString && b.kind == KindString:
		return String(a.str + b.str), nil
	case a.kind == KindList && b.kind == KindList:
		out := make([]Value, 0, len(a.list.elems)+len(b.list.elems))
		out = append(out, a.list.elems...)
		out = append(out, b.list.elems...)
		return List(out), nil
	default:
		return Value{}, fmt.Errorf("cannot add %s and %s", a.kind, b.kind)
	}
}

func arithNumOp(name string, a, b Value, f func(x, y float64) float64) (Value, error) {
	if a.kind != KindNumber || b.kind != KindNumber {
		return Value{}, fmt.Errorf("%s: expected numbers, got %s and %s", name, a.kind, b.kind)
	}
	return Number(f(a.num, b.num)), nil
}

func Sub(a, b Value) (Value, error) {
	return arithNumOp("subtract", a, b, func(x, y float64) float64 { return x - y })
}

func Mul(a, b Value) (Value, error) {
	return arithNumOp("multiply", a, b, func(x, y float64) float64 { return x * y })
}

func Div(a, b Value) (Value, error) {
	return arithNumOp("divide", a, b, func(x, y float64) float64 { return x / y })
}

func Pow(a, b Value) (Value, error) {
	return arithNumOp("power", a, b, math.Pow)
}

// Or/And return 1/0 Numbers from the truthiness of already-evaluated
// operands.
func Or(a, b Value) Value {
	if a.Truthy() || b.Truthy() {
		return Number(1)
	}
	return Number(0)
}

func And(a, b Value) Value {
	if a.Truthy() && b.Truthy() {
		return Number(1)
	}
	return Number(0)
}

// Equals compares scalars of matching kind, and List elementwise; Table
// equality is deliberately an error, and mismatched kinds are a comparison
// error too.
func Equals(a, b Value) (bool, error) {
	if a.kind != b.kind {
		return false, fmt.Errorf("cannot compare %s and %s", a.kind, b.kind)
	}
	switch a.kind {
	case KindNumber:
		return a.num == b.num, nil
	case KindString:
		return a.str == b.str, nil
	case KindList:
		if len(a.list.elems) != len(b.list.elems) {
			return false, nil
		}
		for i := range a.list.elems {
			eq, err := Equals(a.list.elems[i], b.list.elems[i])
			if err != nil || !eq {
				return eq, err
			}
		}
		return true, nil
	case KindTable:
		return false, fmt.Errorf("table equality is undefined")
	default:
		return false, fmt.Errorf("cannot compare values of kind %s", a.kind)
	}
}

// Compare orders Number and String only (lexicographic for strings);
// returns -1/0/1.
func Compare(a, b Value) (int, error) {
	if a.kind != b.kind || (a.kind != KindNumber && a.kind != KindString) {
		return 0, fmt.Errorf("cannot order %s and %s", a.kind, b.kind)
	}
	if a.kind == KindNumber {
		switch {
		case a.num < b.num:
			return -1, nil
		case a.num > b.num:
			return 1, nil
		default:
			return 0, nil
		}
	}
	return strings.Compare(a.str, b.str), nil
}

// LookupByIndex indexes a List or Table by position or key.
func LookupByIndex(a, idx Value) (Value, error) {
	switch a.kind {
	case KindList:
		if idx.kind != KindNumber {
			return Value{}, fmt.Errorf("list index must be a number, got %s", idx.kind)
		}
		i := int(int32(idx.num))
		if i < 0 || i >= len(a.list.elems) {
			return Value{}, fmt.Errorf("list index %d out of range (len %d)", i, len(a.list.elems))
		}
		return a.list.elems[i], nil
	case KindTable:
		if idx.kind != KindString {
			return Value{}, fmt.Errorf("table index must be a string, got %s", idx.kind)
		}
		v, ok := a.table.fields[idx.str]
		if !ok {
			return Value{}, fmt.Errorf("table has no key %q", idx.str)
		}
		return v, nil
	default:
		return Value{}, fmt.Errorf("cannot index into %s", a.kind)
	}
}

// Slice returns a fresh sub-list; List only.
func Slice(a Value, from, to int) (Value, error) {
	if a.kind != KindList {
		return Value{}, fmt.Errorf("cannot slice %s", a.kind)
	}
	n := len(a.list.elems)
	if from < 0 || to < from || to > n {
		return Value{}, fmt.Errorf("invalid slice bounds [%d:%d] for list of length %d", from, to, n)
	}
	out := make([]Value, to-from)
	copy(out, a.list.elems[from:to])
	return List(out), nil
}

// ToString renders raw text for String, JSON rendering otherwise.
func ToString(v Value) string {
	if v.kind == KindString {
		return v.str
	}
	return ToJSON(v)
}

// ToJSON renders a Value as JSON.
func ToJSON(v Value) string {
	var b strings.Builder
	writeJSON(&b, v)
	return b.String()
}

func writeJSON(b *strings.Builder, v Value) {
	switch v.kind {
	case KindNumber:
		b.WriteString(formatNumber(v.num))
	case KindString:
		b.WriteString(jsonQuote(v.str))
	case KindList:
		b.WriteByte('[')
		for i, e := range v.list.elems {
			if i > 0 {
				b.WriteString(", ")
			}
			writeJSON(b, e)
		}
		b.WriteByte(']')
	case KindTable:
		keys := make([]string, 0, len(v.table.fields))
		for k := range v.table.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys) // deterministic rendering; field order is otherwise unspecified
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(jsonQuote(k))
			b.WriteString(": ")
			writeJSON(b, v.table.fields[k])
		}
		b.WriteByte('}')
	case KindFunction:
		b.WriteString(`"<<function>>"`)
	case KindProcessResult:
		b.WriteByte('{')
		wrote := false
		if v.result.ExitCode != nil {
			b.WriteString(`"exit_code": `)
			b.WriteString(strconv.Itoa(*v.result.ExitCode))
			wrote = true
		}
		if wrote {
			b.WriteString(", ")
		}
		b.WriteString(`"stdout": `)
		b.WriteString(jsonQuote(v.result.Stdout))
		b.WriteString(`, "stderr": `)
		b.WriteString(jsonQuote(v.result.Stderr))
		b.WriteByte('}')
	}
}

func jsonQuote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
