package interp

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestChainPrimaryWritesToInterpreterStdout(t *testing.T) {
	var out, errBuf bytes.Buffer
	in := New(Options{Stdout: &out, Stderr: &errBuf, Env: []string{}})
	code := in.Run(`echo hello world`)
	if code != 0 {
		t.Fatalf("code %d, stderr %q", code, errBuf.String())
	}
	if strings.TrimSpace(out.String()) != "hello world" {
		t.Fatalf("got %q", out.String())
	}
}

func TestChainPipeline(t *testing.T) {
	var out bytes.Buffer
	in := New(Options{Stdout: &out, Env: []string{}})
	code := in.Run(`echo "b
a
c" | sort`)
	if code != 0 {
		t.Fatalf("code %d", code)
	}
	if strings.TrimSpace(out.String()) != "a\nb\nc" {
		t.Fatalf("got %q", out.String())
	}
}

func TestChainCaptureBindsProcessResult(t *testing.T) {
	out, _, code := runScript(t, `
echo hi $> res
println(stdout(res))
println(exit_code(res))
`)
	if code != 0 {
		t.Fatalf("code %d", code)
	}
	// stdout(res) keeps echo's trailing newline, and println adds another,
	// so a blank line separates "hi" from the exit code.
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || lines[0] != "hi" || lines[1] != "" || lines[2] != "0" {
		t.Fatalf("got %v", lines)
	}
}

func TestChainNonZeroExitDoesNotRaiseWithoutCapture(t *testing.T) {
	_, _, code := runScript(t, `sh -c "exit 3"`)
	if code != 0 {
		t.Fatalf("an uncaptured non-zero exit must not abort the script, got code %d", code)
	}
}

func TestChainCaptureObservesNonZeroExit(t *testing.T) {
	out, _, code := runScript(t, `
sh -c "exit 3" $> res
println(exit_code(res))
`)
	if code != 0 || strings.TrimSpace(out) != "3" {
		t.Fatalf("got %q code %d", out, code)
	}
}

func TestChainRedirectToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	var out bytes.Buffer
	in := New(Options{Stdout: &out, Env: []string{}})
	code := in.Run(`echo written > ` + path)
	if code != 0 {
		t.Fatalf("code %d", code)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading redirect target: %v", err)
	}
	if strings.TrimSpace(string(data)) != "written" {
		t.Fatalf("got %q", data)
	}
}

func TestChainAppendRedirect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(path, []byte("first\n"), 0644); err != nil {
		t.Fatalf("seeding file: %v", err)
	}
	var out bytes.Buffer
	in := New(Options{Stdout: &out, Env: []string{}})
	code := in.Run(`echo second >> ` + path)
	if code != 0 {
		t.Fatalf("code %d", code)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading redirect target: %v", err)
	}
	if string(data) != "first\nsecond\n" {
		t.Fatalf("got %q", data)
	}
}

func TestChainExportedVariableReachesChildEnvironment(t *testing.T) {
	out, _, code := runScript(t, `
export GREETING = "howdy"
sh -c "echo $GREETING"
`)
	if code != 0 || strings.TrimSpace(out) != "howdy" {
		t.Fatalf("got %q code %d", out, code)
	}
}

func TestChainExportWinsOverAmbientEnvironment(t *testing.T) {
	var out bytes.Buffer
	in := New(Options{Stdout: &out, Env: []string{"GREETING=ambient"}})
	code := in.Run(`
export GREETING = "exported"
sh -c "echo $GREETING"
`)
	if code != 0 || strings.TrimSpace(out.String()) != "exported" {
		t.Fatalf("got %q code %d", out.String(), code)
	}
}

func TestChainInterpolatedExpressionTerm(t *testing.T) {
	out, _, code := runScript(t, `
let n = 1 + 2
echo (n)
`)
	if code != 0 || strings.TrimSpace(out) != "3" {
		t.Fatalf("got %q code %d", out, code)
	}
}
