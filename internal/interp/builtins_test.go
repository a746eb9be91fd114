package interp

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"
)

func TestBuiltinLenStringIsByteLength(t *testing.T) {
	out, _, code := runScript(t, `println(len("héllo"))`)
	if code != 0 {
		t.Fatalf("code %d", code)
	}
	// "é" is two UTF-8 bytes, so byte length is 6, not the 5-rune count.
	if strings.TrimSpace(out) != "6" {
		t.Fatalf("got %q, want 6", out)
	}
}

func TestBuiltinParseNumberRoundTrip(t *testing.T) {
	out, _, code := runScript(t, `println(parse_number(to_str(3.5)))`)
	if code != 0 || strings.TrimSpace(out) != "3.5" {
		t.Fatalf("got %q code %d", out, code)
	}
}

func TestBuiltinKindPredicates(t *testing.T) {
	out, _, code := runScript(t, `
println(is_number(1))
println(is_string(1))
println(is_list([1]))
println(is_table({a: 1}))
`)
	if code != 0 {
		t.Fatalf("code %d", code)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	want := []string{"1", "0", "1", "1"}
	for i, w := range want {
		if lines[i] != w {
			t.Fatalf("line %d: got %q want %q", i, lines[i], w)
		}
	}
}

func TestBuiltinSplitJoinStartsWith(t *testing.T) {
	out, _, code := runScript(t, `
let parts = split("a,b,c", ",")
println(to_str(parts))
println(join(parts, "-"))
println(starts_with("hello", "he"))
`)
	if code != 0 {
		t.Fatalf("code %d", code)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if lines[0] != `["a", "b", "c"]` || lines[1] != "a-b-c" || lines[2] != "1" {
		t.Fatalf("got %v", lines)
	}
}

func TestBuiltinJoinRejectsNonStringElement(t *testing.T) {
	_, _, code := runScript(t, `join([1, 2], ",")`)
	if code == 0 {
		t.Fatal("expected join to error on a non-string list element")
	}
}

func TestBuiltinArgsExposesScriptArguments(t *testing.T) {
	var out bytes.Buffer
	in := New(Options{Stdout: &out, Args: []string{"a", "b"}})
	code := in.Run(`println(to_str(args()))`)
	if code != 0 || strings.TrimSpace(out.String()) != `["a", "b"]` {
		t.Fatalf("got %q code %d", out.String(), code)
	}
}

func TestBuiltinLookupEnvVarPrefersScope(t *testing.T) {
	var out bytes.Buffer
	in := New(Options{Stdout: &out, Env: []string{"FOO=ambient"}})
	code := in.Run(`let FOO = "scoped"; println(lookup_env_var("FOO"))`)
	if code != 0 || strings.TrimSpace(out.String()) != "scoped" {
		t.Fatalf("got %q code %d", out.String(), code)
	}
}

func TestBuiltinLookupEnvVarFallsBackToProcessEnvironment(t *testing.T) {
	var out bytes.Buffer
	in := New(Options{Stdout: &out, Env: []string{"FOO=ambient"}})
	code := in.Run(`println(lookup_env_var("FOO"))`)
	if code != 0 || strings.TrimSpace(out.String()) != "ambient" {
		t.Fatalf("got %q code %d", out.String(), code)
	}
}

func TestBuiltinLookupEnvVarUndefinedIsError(t *testing.T) {
	var out bytes.Buffer
	in := New(Options{Stdout: &out, Env: nil})
	code := in.Run(`lookup_env_var("DEFINITELY_NOT_SET_ANYWHERE")`)
	if code == 0 {
		t.Fatal("expected an error for an undefined environment reference")
	}
}

func TestBuiltinExitSetsProcessExitCode(t *testing.T) {
	_, _, code := runScript(t, `exit(7)`)
	if code != 7 {
		t.Fatalf("got %d, want 7", code)
	}
}

// TestBuiltinInclude unpacks a two-file txtar archive (a root script plus an
// included file) and checks that `include()` executes the child into the
// caller's current scope.
func TestBuiltinInclude(t *testing.T) {
	archive := txtar.Parse([]byte(`
-- root.slash --
let shared = 1
include("child.slash")
println(shared)
-- child.slash --
shared = shared + 41
`))
	dir := t.TempDir()
	for _, f := range archive.Files {
		if err := os.WriteFile(filepath.Join(dir, f.Name), f.Data, 0644); err != nil {
			t.Fatalf("writing fixture %s: %v", f.Name, err)
		}
	}
	rootSrc, err := os.ReadFile(filepath.Join(dir, "root.slash"))
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}

	var out bytes.Buffer
	in := New(Options{Stdout: &out, IncludeDir: dir})
	code := in.Run(string(rootSrc))
	if code != 0 || strings.TrimSpace(out.String()) != "42" {
		t.Fatalf("got %q code %d", out.String(), code)
	}
}
