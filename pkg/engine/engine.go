// Package engine provides the Lisp evaluation engine for aerofuse.
// It wraps zygomys in a sandboxed environment and produces an
// assembly.Model from user source code.
package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/aerofuse/pkg/assembly"
)

// DefaultModelUID is the model UID used when a script has no (aircraft ...)
// form.
const DefaultModelUID = "aircraft"

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter for model evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	timeout    time.Duration
}

// NewEngine creates a new Engine instance with the default EvalTimeout.
func NewEngine() *Engine {
	return &Engine{timeout: EvalTimeout}
}

// SetTimeout changes the evaluation time limit. Non-positive values
// restore EvalTimeout.
func (e *Engine) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = EvalTimeout
	}
	e.mu.Lock()
	e.timeout = d
	e.mu.Unlock()
}

// Evaluate takes Lisp source code and produces a new Model.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns model + nil errors + nil error
//   - On parse/eval failure: returns nil model + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*assembly.Model, []EvalError, error) {
	return e.run("", source)
}

// EvaluateFile reads and evaluates the script at path. Components record
// the file and line that defined them.
func (e *Engine) EvaluateFile(path string) (*assembly.Model, []EvalError, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read script: %w", err)
	}
	return e.run(filepath.Base(path), string(src))
}

func (e *Engine) run(file, source string) (*assembly.Model, []EvalError, error) {
	j := e.start(func() outcome {
		m, errs, err := e.evaluate(file, source)
		return outcome{model: m, errs: errs, err: err}
	})
	return e.wait(j)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(file, source string) (*assembly.Model, []EvalError, error) {
	m := assembly.New(DefaultModelUID)

	// Empty source is a valid program that produces an empty model.
	if strings.TrimSpace(source) == "" {
		return m, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, m)

	err := env.LoadString(preprocessSource(source))
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	_, err = env.Run()
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	lines := componentLines(source)
	for _, c := range m.Components {
		c.Source = assembly.SourceRef{File: file, Line: lines[c.UID]}
	}
	return m, nil, nil
}

// componentPattern matches the head of a (component "uid" ...) form.
var componentPattern = regexp.MustCompile(`\(\s*component\s+"([^"]+)"`)

// componentLines maps each component UID to the line of its first
// (component ...) form. Forms built at run time, e.g. inside a loop,
// share the line of the loop body.
func componentLines(source string) map[string]int {
	lines := make(map[string]int)
	for i, line := range strings.Split(source, "\n") {
		if j := strings.Index(line, ";"); j >= 0 {
			line = line[:j]
		}
		for _, m := range componentPattern.FindAllStringSubmatch(line, -1) {
			if _, ok := lines[m[1]]; !ok {
				lines[m[1]] = i + 1
			}
		}
	}
	return lines
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?is)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
