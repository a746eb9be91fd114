package interp

import (
	"bytes"
	"strings"
	"testing"
)

func runScript(t *testing.T, src string) (stdout, stderr string, code int) {
	t.Helper()
	var out, errBuf bytes.Buffer
	in := New(Options{Stdout: &out, Stderr: &errBuf, Env: []string{}})
	code = in.Run(src)
	return out.String(), errBuf.String(), code
}

func TestEvalArithmeticPrecedence(t *testing.T) {
	out, _, code := runScript(t, `println(1 + 2 * 3)`)
	if code != 0 || strings.TrimSpace(out) != "7" {
		t.Fatalf("got %q code %d", out, code)
	}
}

func TestEvalPowerIsRightAssociative(t *testing.T) {
	// 2 ^ (3 ^ 2) = 2 ^ 9 = 512, not (2 ^ 3) ^ 2 = 64.
	out, _, code := runScript(t, `println(2 ^ 3 ^ 2)`)
	if code != 0 || strings.TrimSpace(out) != "512" {
		t.Fatalf("got %q code %d", out, code)
	}
}

func TestEvalComparisonAndEquality(t *testing.T) {
	out, _, code := runScript(t, `println(1 < 2); println(2 == 2)`)
	if code != 0 || strings.TrimSpace(out) != "1\n1" {
		t.Fatalf("got %q code %d", out, code)
	}
}

func TestEvalListLiteralAndIndex(t *testing.T) {
	out, _, code := runScript(t, `let xs = [10, 20, 30]; println(xs[1])`)
	if code != 0 || strings.TrimSpace(out) != "20" {
		t.Fatalf("got %q code %d", out, code)
	}
}

func TestEvalSliceIndex(t *testing.T) {
	out, _, code := runScript(t, `let xs = [1, 2, 3, 4]; println(to_str(xs[1..3]))`)
	if code != 0 || strings.TrimSpace(out) != "[2, 3]" {
		t.Fatalf("got %q code %d", out, code)
	}
}

func TestEvalMapLiteralAndDot(t *testing.T) {
	out, _, code := runScript(t, `let t = { name: "al", age: 9 }; println(t.name)`)
	if code != 0 || strings.TrimSpace(out) != "al" {
		t.Fatalf("got %q code %d", out, code)
	}
}

func TestEvalAnonFuncClosureCapturesByReference(t *testing.T) {
	out, _, code := runScript(t, `
let n = 1
let f = |x| { return x + n }
n = 10
println(f(1))
`)
	if code != 0 || strings.TrimSpace(out) != "11" {
		t.Fatalf("got %q code %d", out, code)
	}
}

func TestEvalCallYieldingNoValueIsRuntimeError(t *testing.T) {
	_, errOut, code := runScript(t, `
func f() { let x = 1 }
let y = f()
`)
	if code == 0 {
		t.Fatal("expected a runtime error for a call used as an expression with no value")
	}
	if errOut == "" {
		t.Fatal("expected a diagnostic on stderr")
	}
}

func TestEvalNotOperator(t *testing.T) {
	out, _, code := runScript(t, `println(not 0); println(not 1)`)
	if code != 0 {
		t.Fatalf("code %d", code)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if lines[0] != "1" || lines[1] != "0" {
		t.Fatalf("got %v", lines)
	}
}

func TestEvalEnvRefPrefersScopeOverEnvironment(t *testing.T) {
	var out bytes.Buffer
	in := New(Options{Stdout: &out, Env: []string{"NAME=ambient"}})
	code := in.Run(`let NAME = "scoped"; println($NAME)`)
	if code != 0 || strings.TrimSpace(out.String()) != "scoped" {
		t.Fatalf("got %q code %d", out.String(), code)
	}
}
