// Package interp implements the Slash language runtime: the value algebra,
// scope chain, expression evaluator, built-in function table, statement
// executor and command-chain runner.
package interp

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mikkeldamsgaard/slash-go/internal/ast"
	"github.com/mikkeldamsgaard/slash-go/internal/parser"
)

// Options configures an Interp: every field defaults to something sane when
// left zero, so the common case is `New(Options{})`.
type Options struct {
	// Stdin, Stdout and Stderr are the I/O sinks the interpreter is
	// parameterized by. Default to os.Stdin,
	// os.Stdout and os.Stderr.
	Stdin          io.Reader
	Stdout, Stderr io.Writer

	// Args are the script's positional CLI arguments, exposed via the
	// `args()` builtin. Defaults to nil (no arguments), i.e.
	// the host already stripped the program name and script path.
	Args []string

	// Env is the inherited process environment, in "key=value" form.
	// Defaults to os.Environ().
	Env []string

	// IncludeDir is the base directory `include()` resolves relative paths
	// against, and what `path_of_script()` returns. Defaults
	// to the current working directory.
	IncludeDir string
}

// Interp is the interpreter façade: parse, seed built-ins, execute, surface
// errors.
type Interp struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	env        map[string]string
	args       []string
	includeDir string

	root *Scope

	// includeScope is the scope a builtin that needs "the caller's current
	// scope" (include, lookup_env_var) should act on; callFunction sets it
	// around every builtin invocation.
	includeScope *Scope

	exiting  bool
	exitCode int
}

// New constructs an interpreter with its root scope seeded with built-ins.
func New(opts Options) *Interp {
	in := &Interp{
		stdin:      opts.Stdin,
		stdout:     opts.Stdout,
		stderr:     opts.Stderr,
		args:       opts.Args,
		includeDir: opts.IncludeDir,
		root:       NewRootScope(),
	}
	if in.stdin == nil {
		in.stdin = os.Stdin
	}
	if in.stdout == nil {
		in.stdout = os.Stdout
	}
	if in.stderr == nil {
		in.stderr = os.Stderr
	}
	envList := opts.Env
	if envList == nil {
		envList = os.Environ()
	}
	in.env = map[string]string{}
	for _, kv := range envList {
		if k, v, ok := strings.Cut(kv, "="); ok {
			in.env[k] = v
		}
	}
	if in.includeDir == "" {
		if wd, err := os.Getwd(); err == nil {
			in.includeDir = wd
		}
	}
	registerBuiltins(in.root)
	return in
}

// exitError is the sentinel used to unwind out of Run when the `exit`
// built-in fires; it is never shown to the user, only its code is used.
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit(%d)", e.code) }

// Run parses and executes src to completion at the root scope, returning
// the process exit code: 0 on clean completion, 1 on any unhandled
// diagnostic (already written to Stderr), or whatever the script passed to
// exit(n).
func (in *Interp) Run(src string) int {
	file, err := parser.Parse(src)
	if err != nil {
		fmt.Fprintln(in.stderr, err.Error())
		return 1
	}
	return in.RunFile(file)
}

// RunFile executes an already-parsed file at the root scope. Used directly
// by tests that want to skip re-parsing, and indirectly by Run.
func (in *Interp) RunFile(file *ast.File) int {
	result, err := in.execBlockStmts(in.root, file.Stmts)
	if err != nil {
		if ee, ok := err.(*exitError); ok {
			return ee.code
		}
		fmt.Fprintln(in.stderr, err.Error())
		return 1
	}
	switch result.kind {
	case execBreak, execContinue:
		fmt.Fprintln(in.stderr, (&Diagnostic{Msg: "break/continue outside of a loop", Pos: result.pos}).Error())
		return 1
	case execReturn:
		fmt.Fprintln(in.stderr, (&Diagnostic{Msg: "return outside of a function", Pos: result.pos}).Error())
		return 1
	}
	return 0
}

// RootScope exposes the root scope: the frame seeded with the built-ins and
// holding the script's top-level declarations.
func (in *Interp) RootScope() *Scope { return in.root }
