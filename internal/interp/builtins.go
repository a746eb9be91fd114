package interp

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mikkeldamsgaard/slash-go/internal/ast"
	"github.com/mikkeldamsgaard/slash-go/internal/parser"
)

// registerBuiltins seeds root with every built-in Function value.
func registerBuiltins(root *Scope) {
	for name, fn := range map[string]Builtin{
		"print":             biPrint,
		"println":           biPrintln,
		"eprint":            biEprint,
		"eprintln":          biEprintln,
		"len":               biLen,
		"to_str":            biToStr,
		"parse_number":      biParseNumber,
		"is_number":         biKindPredicate(KindNumber),
		"is_string":         biKindPredicate(KindString),
		"is_list":           biKindPredicate(KindList),
		"is_table":          biKindPredicate(KindTable),
		"is_function":       biKindPredicate(KindFunction),
		"is_process_result": biKindPredicate(KindProcessResult),
		"stdout":            biStdout,
		"stderr":            biStderr,
		"exit_code":         biExitCode,
		"exit":              biExit,
		"include":           biInclude,
		"cwd":               biCwd,
		"split":             biSplit,
		"starts_with":       biStartsWith,
		"join":              biJoin,
		"path_of_script":    biPathOfScript,
		"args":              biArgs,
		"lookup_env_var":    biLookupEnvVar,
	} {
		root.Declare(name, FuncValue(&Function{Name: name, Builtin: fn}))
	}
}

func arityErr(pos ast.Pos, name string, want, got int) error {
	return newDiag(pos, "%s: expected %d argument(s), got %d", name, want, got)
}

func typeErr(pos ast.Pos, name string, want string, got Kind) error {
	return newDiag(pos, "%s: expected %s, got %s", name, want, got)
}

func joinArgs(args []Value, sep string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = ToString(a)
	}
	return strings.Join(parts, sep)
}

func biPrint(in *Interp, args []Value, pos ast.Pos) (Value, error) {
	fmt.Fprint(in.stdout, joinArgs(args, " "))
	return None(), nil
}

func biPrintln(in *Interp, args []Value, pos ast.Pos) (Value, error) {
	fmt.Fprintln(in.stdout, joinArgs(args, " "))
	return None(), nil
}

func biEprint(in *Interp, args []Value, pos ast.Pos) (Value, error) {
	fmt.Fprint(in.stderr, joinArgs(args, " "))
	return None(), nil
}

func biEprintln(in *Interp, args []Value, pos ast.Pos) (Value, error) {
	fmt.Fprintln(in.stderr, joinArgs(args, " "))
	return None(), nil
}

func biLen(in *Interp, args []Value, pos ast.Pos) (Value, error) {
	if len(args) != 1 {
		return Value{}, arityErr(pos, "len", 1, len(args))
	}
	n, err := args[0].Len()
	if err != nil {
		return Value{}, newDiag(pos, "%s", err)
	}
	return Number(float64(n)), nil
}

func biToStr(in *Interp, args []Value, pos ast.Pos) (Value, error) {
	if len(args) != 1 {
		return Value{}, arityErr(pos, "to_str", 1, len(args))
	}
	return String(ToString(args[0])), nil
}

func biParseNumber(in *Interp, args []Value, pos ast.Pos) (Value, error) {
	if len(args) != 1 {
		return Value{}, arityErr(pos, "parse_number", 1, len(args))
	}
	if !args[0].IsString() {
		return Value{}, typeErr(pos, "parse_number", "string", args[0].Kind())
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(args[0].AsString()), 64)
	if err != nil {
		return Value{}, newDiag(pos, "parse_number: %q is not a valid number", args[0].AsString())
	}
	return Number(f), nil
}

func biKindPredicate(k Kind) Builtin {
	return func(in *Interp, args []Value, pos ast.Pos) (Value, error) {
		if len(args) != 1 {
			return Value{}, arityErr(pos, "is_"+strings.ToLower(k.String()), 1, len(args))
		}
		return boolNumber(args[0].Kind() == k), nil
	}
}

func biStdout(in *Interp, args []Value, pos ast.Pos) (Value, error) {
	if len(args) != 1 || !args[0].IsProcessResult() {
		return Value{}, typeErr(pos, "stdout", "process_result", kindOf(args, 0))
	}
	return String(args[0].AsProcessResult().Stdout), nil
}

func biStderr(in *Interp, args []Value, pos ast.Pos) (Value, error) {
	if len(args) != 1 || !args[0].IsProcessResult() {
		return Value{}, typeErr(pos, "stderr", "process_result", kindOf(args, 0))
	}
	return String(args[0].AsProcessResult().Stderr), nil
}

func biExitCode(in *Interp, args []Value, pos ast.Pos) (Value, error) {
	if len(args) != 1 || !args[0].IsProcessResult() {
		return Value{}, typeErr(pos, "exit_code", "process_result", kindOf(args, 0))
	}
	r := args[0].AsProcessResult()
	if r.ExitCode == nil {
		return Value{}, newDiag(pos, "exit_code: process terminated abnormally, no exit code")
	}
	return Number(float64(*r.ExitCode)), nil
}

func kindOf(args []Value, i int) Kind {
	if i < len(args) {
		return args[i].Kind()
	}
	return KindNone
}

func biExit(in *Interp, args []Value, pos ast.Pos) (Value, error) {
	if len(args) != 1 || !args[0].IsNumber() {
		return Value{}, typeErr(pos, "exit", "number", kindOf(args, 0))
	}
	return Value{}, &exitError{code: int(args[0].AsNumber())}
}

// biInclude resolves path relative to the interpreter's include_dir if not
// absolute, parses it as a full file, and executes it into the caller's
// current scope. This is the one built-in that needs the calling scope,
// which reaches it via in.includeScope (see evalCall/callFunction).
func biInclude(in *Interp, args []Value, pos ast.Pos) (Value, error) {
	if len(args) != 1 || !args[0].IsString() {
		return Value{}, typeErr(pos, "include", "string", kindOf(args, 0))
	}
	path := args[0].AsString()
	if !filepath.IsAbs(path) {
		path = filepath.Join(in.includeDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Value{}, newDiag(pos, "include: %s", err)
	}
	file, err := parser.Parse(string(data))
	if err != nil {
		return Value{}, newDiag(pos, "include: %s", err)
	}
	scope := in.includeScope
	if scope == nil {
		scope = in.root
	}
	res, err := in.execBlockStmts(scope, file.Stmts)
	if err != nil {
		return Value{}, err
	}
	if res.kind != execNone {
		return Value{}, newDiag(pos, "include: stray break/continue/return in included file")
	}
	return None(), nil
}

func biCwd(in *Interp, args []Value, pos ast.Pos) (Value, error) {
	if len(args) != 0 {
		return Value{}, arityErr(pos, "cwd", 0, len(args))
	}
	wd, err := os.Getwd()
	if err != nil {
		return Value{}, newDiag(pos, "cwd: %s", err)
	}
	return String(wd), nil
}

func biSplit(in *Interp, args []Value, pos ast.Pos) (Value, error) {
	if len(args) != 2 {
		return Value{}, arityErr(pos, "split", 2, len(args))
	}
	if !args[0].IsString() || !args[1].IsString() {
		return Value{}, typeErr(pos, "split", "string, string", kindOf(args, 0))
	}
	parts := strings.Split(args[0].AsString(), args[1].AsString())
	out := make([]Value, len(parts))
	for i, p := range parts {
		out[i] = String(p)
	}
	return List(out), nil
}

func biStartsWith(in *Interp, args []Value, pos ast.Pos) (Value, error) {
	if len(args) != 2 {
		return Value{}, arityErr(pos, "starts_with", 2, len(args))
	}
	if !args[0].IsString() || !args[1].IsString() {
		return Value{}, typeErr(pos, "starts_with", "string, string", kindOf(args, 0))
	}
	return boolNumber(strings.HasPrefix(args[0].AsString(), args[1].AsString())), nil
}

func biJoin(in *Interp, args []Value, pos ast.Pos) (Value, error) {
	if len(args) != 2 {
		return Value{}, arityErr(pos, "join", 2, len(args))
	}
	if !args[0].IsList() || !args[1].IsString() {
		return Value{}, typeErr(pos, "join", "list, string", kindOf(args, 0))
	}
	list := args[0].AsList()
	parts := make([]string, len(list))
	for i, v := range list {
		if !v.IsString() {
			return Value{}, newDiag(pos, "join: list element %d is a %s, not a string", i, v.Kind())
		}
		parts[i] = v.AsString()
	}
	return String(strings.Join(parts, args[1].AsString())), nil
}

func biPathOfScript(in *Interp, args []Value, pos ast.Pos) (Value, error) {
	if len(args) != 0 {
		return Value{}, arityErr(pos, "path_of_script", 0, len(args))
	}
	abs, err := filepath.Abs(in.includeDir)
	if err != nil {
		return Value{}, newDiag(pos, "path_of_script: %s", err)
	}
	return String(abs), nil
}

func biArgs(in *Interp, args []Value, pos ast.Pos) (Value, error) {
	if len(args) != 0 {
		return Value{}, arityErr(pos, "args", 0, len(args))
	}
	out := make([]Value, len(in.args))
	for i, a := range in.args {
		out[i] = String(a)
	}
	return List(out), nil
}

func biLookupEnvVar(in *Interp, args []Value, pos ast.Pos) (Value, error) {
	if len(args) != 1 || !args[0].IsString() {
		return Value{}, typeErr(pos, "lookup_env_var", "string", kindOf(args, 0))
	}
	name := args[0].AsString()
	scope := in.includeScope
	if scope == nil {
		scope = in.root
	}
	if v, ok := scope.Lookup(name); ok {
		return v, nil
	}
	if v, ok := in.env[name]; ok {
		return String(v), nil
	}
	return Value{}, newDiag(pos, "lookup_env_var: %q is not defined", name)
}
