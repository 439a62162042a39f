// Package stepdriver implements the step tracer driver (component C4):
// parse, instrument, and interpret a source fragment against a fresh
// execution context, after appending a synthetic call to the entry
// function with the supplied test data as keyword arguments.
//
// Grounded on pkg/kernel/engine.Engine.Run for the run-lifecycle shape (a
// RunConfig in, a RunResult out, time.Since duration bookkeeping); run IDs
// use google/uuid the way pkg/kernel/engine assigns a run UUID per
// invocation.
package stepdriver

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/algotrace/tracequery/pkg/execctx"
	"github.com/algotrace/tracequery/pkg/interp"
	"github.com/algotrace/tracequery/pkg/lang/parser"
	"github.com/algotrace/tracequery/pkg/langvalue"
	"github.com/algotrace/tracequery/pkg/query"
	"github.com/algotrace/tracequery/pkg/transform"
)

// RunConfig describes one traced execution.
type RunConfig struct {
	// Source is the user-supplied program text.
	Source string
	// EntryFunction, if set, is appended as a call after Source:
	// "entry_function(**test_data)".
	EntryFunction string
	// TestData supplies the synthetic call's keyword arguments. Values
	// must be renderable as source literals (see renderLiteral).
	TestData map[string]langvalue.Value
}

// RunResult is the outcome of one traced run.
type RunResult struct {
	RunID    string
	Duration time.Duration
	Context  *execctx.Context
}

// Run parses cfg.Source with the synthetic entry call appended,
// transforms it, interprets it, and returns the populated execution
// context. A parse failure is wrapped as a *query.InvalidSourceError.
func Run(cfg RunConfig) (*RunResult, error) {
	start := time.Now()

	src := cfg.Source
	if cfg.EntryFunction != "" {
		call, err := buildEntryCall(cfg.EntryFunction, cfg.TestData)
		if err != nil {
			return nil, fmt.Errorf("stepdriver: building entry call: %w", err)
		}
		src = strings.TrimRight(src, "\n") + "\n" + call + "\n"
	}

	prog, err := parser.Parse(src)
	if err != nil {
		return nil, &query.InvalidSourceError{Detail: err.Error()}
	}

	transformed := transform.Program(prog)

	it := interp.New()
	ctx, err := it.Run(transformed)
	if err != nil {
		return nil, fmt.Errorf("stepdriver: running traced program: %w", err)
	}

	return &RunResult{
		RunID:    uuid.NewString(),
		Duration: time.Since(start),
		Context:  ctx,
	}, nil
}

// buildEntryCall renders "entry_function(k0=v0, k1=v1, ...)" with
// test_data's keys in deterministic (sorted) order, since Go maps don't
// preserve insertion order and the call-site order only needs to be
// reproducible, not meaningful (the callee binds kwargs by name).
func buildEntryCall(entryFunction string, testData map[string]langvalue.Value) (string, error) {
	keys := make([]string, 0, len(testData))
	for k := range testData {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		lit, err := renderLiteral(testData[k])
		if err != nil {
			return "", fmt.Errorf("test_data[%q]: %w", k, err)
		}
		parts[i] = fmt.Sprintf("%s=%s", k, lit)
	}
	return fmt.Sprintf("%s(%s)", entryFunction, strings.Join(parts, ", ")), nil
}

// renderLiteral turns a langvalue.Value into the scripting language's own
// literal syntax, so test fixture data (typically decoded from JSON/YAML)
// can be spliced directly into source text for the driver to parse.
func renderLiteral(v langvalue.Value) (string, error) {
	switch t := v.(type) {
	case nil:
		return "None", nil
	case bool:
		if t {
			return "True", nil
		}
		return "False", nil
	case int:
		return fmt.Sprintf("%d", t), nil
	case int64:
		return fmt.Sprintf("%d", t), nil
	case float64:
		return fmt.Sprintf("%g", t), nil
	case string:
		return fmt.Sprintf("%q", t), nil
	case []langvalue.Value:
		parts := make([]string, len(t))
		for i, e := range t {
			lit, err := renderLiteral(e)
			if err != nil {
				return "", err
			}
			parts[i] = lit
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case []any:
		conv := make([]langvalue.Value, len(t))
		copy(conv, t)
		return renderLiteral(conv)
	case map[string]any:
		d := langvalue.NewDict()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			d.Set(k, t[k])
		}
		return renderLiteral(d)
	case *langvalue.Dict:
		var parts []string
		for p := t.Oldest(); p != nil; p = p.Next() {
			lit, err := renderLiteral(p.Value)
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("%q: %s", p.Key, lit))
		}
		return "{" + strings.Join(parts, ", ") + "}", nil
	default:
		return "", fmt.Errorf("value of type %T has no literal rendering", v)
	}
}
