package interp

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/mikkeldamsgaard/slash-go/internal/ast"
	"golang.org/x/sync/errgroup"
)

// execChain runs a parsed command chain: builds the primary
// command plus any pipe stages, wires stdio between stages, and handles the
// terminal redirect/capture/passthrough of the final stage.
func (in *Interp) execChain(scope *Scope, ch *ast.Chain) error {
	stages := make([]*exec.Cmd, 0, 1+len(ch.Pipes))
	cmd, err := in.buildCommand(scope, ch.Primary)
	if err != nil {
		return err
	}
	stages = append(stages, cmd)
	for _, pipeCmd := range ch.Pipes {
		c, err := in.buildCommand(scope, pipeCmd)
		if err != nil {
			return err
		}
		stages = append(stages, c)
	}

	stages[0].Stdin = in.stdin
	for i := 1; i < len(stages); i++ {
		// an OS pipe: the downstream stage sees EOF once the upstream exits
		out, err := stages[i-1].StdoutPipe()
		if err != nil {
			return newDiag(ch.Pos, "pipe: %s", err)
		}
		stages[i].Stdin = out
	}

	var redirectFile *os.File
	var stdoutBuf, stderrBuf bytes.Buffer
	final := stages[len(stages)-1]

	switch {
	case ch.RedirTerm != nil:
		path, err := in.renderTerms(scope, ch.RedirTerm)
		if err != nil {
			return err
		}
		flags := os.O_CREATE | os.O_WRONLY
		if ch.Append {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		f, err := os.OpenFile(path, flags, 0644)
		if err != nil {
			return newDiag(ch.Pos, "redirect: %s", err)
		}
		redirectFile = f
		final.Stdout = f
	case ch.Capture != "":
		final.Stdout = &stdoutBuf
	default:
		final.Stdout = in.stdout
	}
	final.Stderr = &stderrBuf

	for _, s := range stages {
		if err := s.Start(); err != nil {
			if redirectFile != nil {
				redirectFile.Close()
			}
			return newDiag(ch.Pos, "failed to start %q: %s", s.Path, err)
		}
	}
	// Upstream stages are waited on concurrently, purely to drain their
	// pipes; their exit status is not the chain's result — only the final
	// stage's is (shell pipeline semantics), matched below via finalErr.
	g := &errgroup.Group{}
	for _, s := range stages[:len(stages)-1] {
		s := s
		g.Go(func() error { s.Wait(); return nil })
	}
	finalErr := final.Wait()
	g.Wait()
	if redirectFile != nil {
		redirectFile.Close()
	}

	if ch.Capture == "" && ch.RedirTerm == nil {
		fmt.Fprint(in.stderr, stderrBuf.String())
	}

	if ch.Capture != "" {
		result := ProcessResult{Stdout: stdoutBuf.String(), Stderr: stderrBuf.String()}
		if code, ok := exitCodeOf(finalErr); ok {
			result.ExitCode = &code
		}
		scope.Declare(ch.Capture, ProcessResultValue(result))
		return nil
	}

	// Without a capture, a non-zero exit does not raise: only
	// a spawn failure (already returned above) is a diagnostic.
	return nil
}

// exitCodeOf extracts the exit code from an *exec.ExitError, or reports an
// abnormal (signal) termination via ok=false, or a clean exit via code=0.
func exitCodeOf(err error) (code int, ok bool) {
	if err == nil {
		return 0, true
	}
	if ee, isExit := err.(*exec.ExitError); isExit {
		if ee.ExitCode() < 0 {
			return 0, false
		}
		return ee.ExitCode(), true
	}
	return 0, false
}

// buildCommand turns one ast.Command into an *exec.Cmd with its argv and
// environment resolved, but without wiring stdio (the caller does that once
// it knows this stage's position in the pipeline).
func (in *Interp) buildCommand(scope *Scope, c ast.Command) (*exec.Cmd, error) {
	argv := make([]string, len(c.Args))
	for i, termGroup := range c.Args {
		arg, err := in.renderTerms(scope, termGroup)
		if err != nil {
			return nil, err
		}
		argv[i] = arg
	}
	if len(argv) == 0 {
		return nil, newDiag(c.Pos, "command has no program name")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	env, err := in.materializeEnv(scope)
	if err != nil {
		return nil, err
	}
	cmd.Env = env
	return cmd, nil
}

// renderTerms concatenates a whitespace-delimited argument's adjacent terms
// into one string.
func (in *Interp) renderTerms(scope *Scope, terms []ast.ChainTerm) (string, error) {
	var b strings.Builder
	for _, t := range terms {
		switch t.Kind {
		case ast.TermWord, ast.TermString:
			b.WriteString(t.Text)
		case ast.TermEnvRef:
			if v, ok := scope.Lookup(t.Name); ok {
				b.WriteString(ToString(v))
			} else if v, ok := in.env[t.Name]; ok {
				b.WriteString(v)
			} else {
				return "", fmt.Errorf("environment reference %q could not be resolved", t.Name)
			}
		case ast.TermExpr:
			v, err := in.Eval(scope, t.Expr)
			if err != nil {
				return "", err
			}
			if v.IsNone() {
				return "", newDiag(t.Expr.Position(), "expression used as a command term yields no value")
			}
			b.WriteString(ToString(v))
		}
	}
	return b.String(), nil
}

// materializeEnv builds the child process environment: the scope's exports
// win over identically-named ambient variables.
func (in *Interp) materializeEnv(scope *Scope) ([]string, error) {
	exports, err := scope.Exports()
	if err != nil {
		return nil, err
	}
	merged := make(map[string]string, len(exports)+len(in.env))
	for k, v := range in.env {
		merged[k] = v
	}
	for k, v := range exports {
		merged[k] = v
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys) // deterministic ordering; the OS doesn't care but tests appreciate it
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+merged[k])
	}
	return out, nil
}
