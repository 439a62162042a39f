package querycompile

import (
	"errors"
	"testing"

	"github.com/algotrace/tracequery/pkg/execctx"
	"github.com/algotrace/tracequery/pkg/query"
)

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

// TestGenerateQuery_ModifierTypeMismatchErrors exercises spec.md §4.5's
// "compilation errors (modifier mismatches) fail before execution" —
// `arguments` only makes sense on a function target.
func TestGenerateQuery_ModifierTypeMismatchErrors(t *testing.T) {
	ctx := execctx.New()
	gen := NewGenerator(ctx)
	_, err := gen.GenerateQuery([]TargetElement{
		{Type: "loop", Modifier: "arguments"},
	}, OutputList)
	var qe *query.QueryEngineError
	if !errors.As(err, &qe) {
		t.Fatalf("err = %v, want *query.QueryEngineError", err)
	}
}

func TestGenerateQuery_LoopIterationsOnlyForLoop(t *testing.T) {
	ctx := execctx.New()
	gen := NewGenerator(ctx)
	_, err := gen.GenerateQuery([]TargetElement{
		{Type: "branch", Modifier: "loop_iterations"},
	}, OutputList)
	if err == nil {
		t.Fatal("expected a modifier-mismatch error")
	}
}

func TestGenerateQuery_BranchModifiersOnlyForBranch(t *testing.T) {
	ctx := execctx.New()
	gen := NewGenerator(ctx)
	_, err := gen.GenerateQuery([]TargetElement{
		{Type: "function", Modifier: "branch_true"},
	}, OutputList)
	if err == nil {
		t.Fatal("expected a modifier-mismatch error")
	}
}

// TestGenerateQuery_E4_BranchTrueFalseCount builds a branch trace by hand
// (bypassing the interpreter) to exercise spec.md §8's E4 scenario at the
// compiler level.
func TestGenerateQuery_E4_BranchTrueFalseCount(t *testing.T) {
	ctx := execctx.New()
	f := ctx.BeginBranch(1, "x > 0", true)
	f.Close()

	gen := NewGenerator(ctx)
	q, err := gen.GenerateQuery([]TargetElement{{Type: "branch", Modifier: "branch_true"}}, OutputCount)
	if err != nil {
		t.Fatalf("GenerateQuery: %v", err)
	}
	rows, err := q.Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := rows[0].(map[string]any)["count"]; got != 1 {
		t.Errorf("branch_true count = %v, want 1", got)
	}

	gen2 := NewGenerator(ctx)
	q2, err := gen2.GenerateQuery([]TargetElement{{Type: "branch", Modifier: "branch_false"}}, OutputCount)
	if err != nil {
		t.Fatalf("GenerateQuery: %v", err)
	}
	rows2, err := q2.Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := rows2[0].(map[string]any)["count"]; got != 0 {
		t.Errorf("branch_false count = %v, want 0", got)
	}
}

// TestGenerateQuery_UnnamedVariableProjectsNameAndValue exercises
// DESIGN.md's Open Question (b): a final variable target without a name
// projects {name, value} pairs, not bare values.
func TestGenerateQuery_UnnamedVariableProjectsNameAndValue(t *testing.T) {
	ctx := execctx.New()
	ctx.RecordVariable(1, "y", "y", int64(1))

	gen := NewGenerator(ctx)
	q, err := gen.GenerateQuery([]TargetElement{{Type: "variable"}}, OutputList)
	if err != nil {
		t.Fatalf("GenerateQuery: %v", err)
	}
	rows, err := q.Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	m, ok := rows[0].(map[string]any)
	if !ok {
		t.Fatalf("row = %T, want map[string]any", rows[0])
	}
	if m["name"] != "y" || m["value"] != int64(1) {
		t.Fatalf("row = %v, want {name:y value:1}", m)
	}
}

// TestGenerateQuery_NamedVariableProjectsBareValue confirms the
// name-specified branch of the same rule projects to the bare value.
func TestGenerateQuery_NamedVariableProjectsBareValue(t *testing.T) {
	ctx := execctx.New()
	ctx.RecordVariable(1, "y", "y", int64(1))

	gen := NewGenerator(ctx)
	q, err := gen.GenerateQuery([]TargetElement{{Type: "variable", Name: strp("y")}}, OutputList)
	if err != nil {
		t.Fatalf("GenerateQuery: %v", err)
	}
	rows, err := q.Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rows) != 1 || rows[0] != int64(1) {
		t.Fatalf("got %v, want [1]", rows)
	}
}

// TestGenerateQuery_NestedContainment exercises spec.md §8's E5 scenario:
// a variable assigned inside a loop iteration is found via the
// loop-then-variable target chain's time-range containment join.
func TestGenerateQuery_NestedContainment(t *testing.T) {
	ctx := execctx.New()
	loop := ctx.BeginLoop(1, "for")
	for i := 0; i < 2; i++ {
		it, err := ctx.BeginLoopIteration(1)
		if err != nil {
			t.Fatalf("BeginLoopIteration: %v", err)
		}
		ctx.RecordVariable(2, "x", "x", int64(i))
		it.Close()
	}
	loop.Close()
	// a variable recorded outside the loop shouldn't be swept in.
	ctx.RecordVariable(3, "x", "x", int64(99))

	line := 1
	gen := NewGenerator(ctx)
	q, err := gen.GenerateQuery([]TargetElement{
		{Type: "loop", LineNumber: &line},
		{Type: "variable", Name: strp("x")},
	}, OutputList)
	if err != nil {
		t.Fatalf("GenerateQuery: %v", err)
	}
	rows, err := q.Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 (only the in-loop snapshots)", len(rows))
	}
	for _, r := range rows {
		if r == int64(99) {
			t.Errorf("out-of-loop snapshot leaked into containment join: %v", rows)
		}
	}
}

func TestGenerateQuery_WithLineNumberFilter(t *testing.T) {
	ctx := execctx.New()
	f1 := ctx.BeginLoop(1, "for")
	f1.Close()
	f2 := ctx.BeginLoop(5, "while")
	f2.Close()

	gen := NewGenerator(ctx)
	q, err := gen.GenerateQuery([]TargetElement{{Type: "loop", LineNumber: intp(5)}}, OutputCount)
	if err != nil {
		t.Fatalf("GenerateQuery: %v", err)
	}
	rows, err := q.Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := rows[0].(map[string]any)["count"]; got != 1 {
		t.Errorf("count = %v, want 1", got)
	}
}
