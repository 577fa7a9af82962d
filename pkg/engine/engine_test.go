package engine

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/chazu/aerofuse/pkg/assembly"
)

func TestEvaluateEmptyString(t *testing.T) {
	eng := NewEngine()

	m, evalErrs, err := eng.Evaluate("")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if m == nil {
		t.Fatal("expected non-nil model")
	}
	if m.Len() != 0 {
		t.Errorf("expected empty model, got %d components", m.Len())
	}
	if m.UID != DefaultModelUID {
		t.Errorf("uid = %q, want %q", m.UID, DefaultModelUID)
	}
}

func TestEvaluateWhitespaceOnly(t *testing.T) {
	eng := NewEngine()

	m, evalErrs, err := eng.Evaluate("   \n\t  \n  ")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if m == nil || m.Len() != 0 {
		t.Fatalf("expected empty model, got %+v", m)
	}
}

func TestEvaluateMultipleExpressions(t *testing.T) {
	eng := NewEngine()

	source := `
(def x 10)
(def y 20)
(+ x y)
`
	m, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if m == nil || m.Len() != 0 {
		t.Fatalf("expected empty model, got %+v", m)
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	eng := NewEngine()

	// Unmatched paren is a parse error.
	m, evalErrs, err := eng.Evaluate("(+ 1 2")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if m != nil {
		t.Fatal("expected nil model on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for syntax error")
	}
	if evalErrs[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	eng := NewEngine()

	m, evalErrs, err := eng.Evaluate("(+ 1 undefined-symbol)")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if m != nil {
		t.Fatal("expected nil model on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvaluateSyntaxErrorHasLineInfo(t *testing.T) {
	eng := NewEngine()

	source := "(+ 1 2)\n(+ 3"
	_, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error")
	}

	// Line info depends on the zygomys message format.
	e := evalErrs[0]
	if e.Message == "" {
		t.Error("eval error message should not be empty")
	}
	if e.Line > 0 {
		t.Logf("extracted line info: line=%d, message=%q", e.Line, e.Message)
	} else {
		t.Logf("no line info extracted (line=0), message=%q", e.Message)
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Message: "something went wrong"}
	s := e.Error()
	if !strings.Contains(s, "line 5") {
		t.Errorf("Error() should contain line info, got: %s", s)
	}
	if !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() should contain message, got: %s", s)
	}

	e2 := EvalError{Message: "no location"}
	if s2 := e2.Error(); strings.Contains(s2, "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", s2)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	eng := NewEngine()

	for i := 0; i < 5; i++ {
		m, evalErrs, err := eng.Evaluate(`(component "body" (box :min (vec3 0 0 0) :max (vec3 1 1 1)))`)
		if err != nil {
			t.Fatalf("iteration %d: unexpected fatal error: %v", i, err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("iteration %d: unexpected eval errors: %v", i, evalErrs)
		}
		if m.Len() != 1 {
			t.Errorf("iteration %d: expected 1 component, got %d", i, m.Len())
		}
	}
}

func TestEvaluateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "glider.lisp")
	src := `(aircraft "glider")

; body first
(component "body" (box :min (vec3 0 -1 0) :max (vec3 4 1 1)))
(component "wing"
  (box :min (vec3 1 0.5 0.25) :max (vec3 2 3 0.75))
  :parent "body")
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	m, evalErrs, err := NewEngine().EvaluateFile(path)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if m.UID != "glider" {
		t.Errorf("uid = %q, want glider", m.UID)
	}
	for uid, line := range map[string]int{"body": 4, "wing": 5} {
		c := m.Lookup(uid)
		if c == nil {
			t.Fatalf("component %q missing", uid)
		}
		if c.Source.File != "glider.lisp" || c.Source.Line != line {
			t.Errorf("%s source = %s, want glider.lisp:%d", uid, c.Source, line)
		}
	}
}

func TestEvaluateFileMissing(t *testing.T) {
	_, _, err := NewEngine().EvaluateFile(filepath.Join(t.TempDir(), "nope.lisp"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "read script") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestComponentLines(t *testing.T) {
	src := `; (component "commented" ...)
(component "a" g)
  (component  "b" g) (component "c" g)
(component "a" g)`
	got := componentLines(src)
	want := map[string]int{"a": 2, "b": 3, "c": 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for uid, line := range want {
		if got[uid] != line {
			t.Errorf("%s: line %d, want %d", uid, got[uid], line)
		}
	}
}

func TestSetTimeout(t *testing.T) {
	eng := NewEngine()
	eng.SetTimeout(time.Second)
	if eng.timeout != time.Second {
		t.Errorf("timeout = %s, want 1s", eng.timeout)
	}
	eng.SetTimeout(0)
	if eng.timeout != EvalTimeout {
		t.Errorf("timeout = %s, want default %s", eng.timeout, EvalTimeout)
	}
}

func TestEvaluateTimeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	eng := NewEngine()
	eng.SetTimeout(50 * time.Millisecond)

	// A run that blocks until released exercises the timeout plumbing
	// without a runaway interpreter.
	release := make(chan struct{})
	defer close(release)
	j := eng.start(func() outcome {
		<-release
		return outcome{}
	})

	start := time.Now()
	_, _, err := eng.wait(j)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got: %v", err)
	}
	if !strings.Contains(err.Error(), "timed out after 50ms") {
		t.Errorf("expected timeout error message, got: %v", err)
	}
	if elapsed := time.Since(start); elapsed > EvalTimeout {
		t.Errorf("timeout took %s", elapsed)
	}
}

func TestEvaluateGenerationDiscardsStale(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	eng := NewEngine()
	first := eng.start(func() outcome {
		return outcome{model: assembly.New("first")}
	})
	second := eng.start(func() outcome {
		return outcome{model: assembly.New("second")}
	})

	if _, _, err := eng.wait(first); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded for stale run, got: %v", err)
	}
	m, _, err := eng.wait(second)
	if err != nil {
		t.Fatalf("latest run failed: %v", err)
	}
	if m.UID != "second" {
		t.Errorf("model = %q, want second", m.UID)
	}
}

func TestEvaluatePanicBecomesError(t *testing.T) {
	eng := NewEngine()
	j := eng.start(func() outcome { panic("boom") })
	_, _, err := eng.wait(j)
	if err == nil || !strings.Contains(err.Error(), "panic during evaluation: boom") {
		t.Errorf("expected panic error, got: %v", err)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{
			name:     "error on line format",
			msg:      "Error on line 5: unexpected token\n",
			wantLine: 5,
			wantMsg:  "unexpected token",
		},
		{
			name:     "no line info",
			msg:      "some generic error",
			wantLine: 0,
			wantMsg:  "some generic error",
		},
		{
			name:     "line format lowercase",
			msg:      "error on line 12: missing paren",
			wantLine: 12,
			wantMsg:  "missing paren",
		},
		{
			name:     "short line format",
			msg:      "line 3: box requires :min",
			wantLine: 3,
			wantMsg:  "box requires :min",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

// errString is a simple error type for testing.
type errString string

func (e errString) Error() string { return string(e) }
