package stepdriver

import (
	"testing"

	"github.com/algotrace/tracequery/pkg/langvalue"
	"github.com/algotrace/tracequery/pkg/querycompile"
)

// TestRun_E1_ForLoopIterationCount exercises a three-pass for loop whose
// loop-count and iteration-count queries both resolve via the compiled
// pipeline.
func TestRun_E1_ForLoopIterationCount(t *testing.T) {
	src := "for i in range(3):\n    x = i * 2\n"
	res, err := Run(RunConfig{Source: src})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	line := 1
	gen := querycompile.NewGenerator(res.Context)
	q, err := gen.GenerateQuery([]querycompile.TargetElement{{Type: "loop", LineNumber: &line}}, querycompile.OutputCount)
	if err != nil {
		t.Fatalf("GenerateQuery: %v", err)
	}
	rows, err := q.Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("count query returned %d rows, want 1", len(rows))
	}
	if got := rows[0].(map[string]any)["count"]; got != 1 {
		t.Errorf("loop count = %v, want 1", got)
	}

	gen2 := querycompile.NewGenerator(res.Context)
	q2, err := gen2.GenerateQuery([]querycompile.TargetElement{
		{Type: "loop", LineNumber: &line, Modifier: "loop_iterations"},
	}, querycompile.OutputCount)
	if err != nil {
		t.Fatalf("GenerateQuery: %v", err)
	}
	rows2, err := q2.Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := rows2[0].(map[string]any)["count"]; got != 3 {
		t.Errorf("loop_iterations count = %v, want 3", got)
	}
}

// TestRun_E3_FunctionArgumentsAndReturn exercises a two-argument function
// call's captured arguments dict and return value.
func TestRun_E3_FunctionArgumentsAndReturn(t *testing.T) {
	src := "def f(a, b):\n    return a + b\nf(3, 4)\n"
	res, err := Run(RunConfig{Source: src})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	name := "f"
	gen := querycompile.NewGenerator(res.Context)
	q, err := gen.GenerateQuery([]querycompile.TargetElement{
		{Type: "function", Name: &name, Modifier: "arguments"},
	}, querycompile.OutputList)
	if err != nil {
		t.Fatalf("GenerateQuery: %v", err)
	}
	rows, err := q.Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("arguments query returned %d rows, want 1", len(rows))
	}
	args, ok := rows[0].(*langvalue.Dict)
	if !ok {
		t.Fatalf("arguments row has type %T, want *langvalue.Dict", rows[0])
	}
	if v, present := args.Get("_arg0"); !present || v != int64(3) {
		t.Errorf("_arg0 = %v, want 3", v)
	}
	if v, present := args.Get("_arg1"); !present || v != int64(4) {
		t.Errorf("_arg1 = %v, want 4", v)
	}

	gen2 := querycompile.NewGenerator(res.Context)
	q2, err := gen2.GenerateQuery([]querycompile.TargetElement{
		{Type: "function", Name: &name, Modifier: "return_value"},
	}, querycompile.OutputList)
	if err != nil {
		t.Fatalf("GenerateQuery: %v", err)
	}
	rows2, err := q2.Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rows2) != 1 {
		t.Fatalf("return_value query returned %d rows, want 1", len(rows2))
	}
	if got, ok := rows2[0].(int64); !ok || got != 7 {
		t.Errorf("return_value = %v, want 7", rows2[0])
	}
}

// TestRun_FunctionArguments_MutationDoesNotRetroactivelyChangeRecordedArgs
// exercises a function that mutates its list argument in place — the
// recorded FunctionCall.Arguments snapshot must keep the call-site value,
// not whatever the argument looks like after the callee has run.
func TestRun_FunctionArguments_MutationDoesNotRetroactivelyChangeRecordedArgs(t *testing.T) {
	src := "def mutate(lst):\n    lst[0] = 99\nmutate([1, 2, 3])\n"
	res, err := Run(RunConfig{Source: src})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	name := "mutate"
	gen := querycompile.NewGenerator(res.Context)
	q, err := gen.GenerateQuery([]querycompile.TargetElement{
		{Type: "function", Name: &name, Modifier: "arguments"},
	}, querycompile.OutputList)
	if err != nil {
		t.Fatalf("GenerateQuery: %v", err)
	}
	rows, err := q.Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("arguments query returned %d rows, want 1", len(rows))
	}
	args, ok := rows[0].(*langvalue.Dict)
	if !ok {
		t.Fatalf("arguments row has type %T, want *langvalue.Dict", rows[0])
	}
	lst, present := args.Get("_arg0")
	if !present {
		t.Fatalf("_arg0 not present in recorded arguments")
	}
	got, ok := lst.([]langvalue.Value)
	if !ok {
		t.Fatalf("_arg0 has type %T, want []langvalue.Value", lst)
	}
	want := []langvalue.Value{int64(1), int64(2), int64(3)}
	if len(got) != len(want) {
		t.Fatalf("_arg0 = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("_arg0[%d] = %v, want %v (mutation inside mutate() leaked into the recorded snapshot)", i, got[i], want[i])
		}
	}
}

// TestRun_InvalidSource confirms a parse failure is reported as an error.
func TestRun_InvalidSource(t *testing.T) {
	_, err := Run(RunConfig{Source: "if :\n"})
	if err == nil {
		t.Fatal("expected an error for malformed source")
	}
}

// TestRun_EntryCallWithTestData confirms the synthetic entry-point call
// the entry function with test data bound as keyword arguments is
// appended and runs.
func TestRun_EntryCallWithTestData(t *testing.T) {
	src := "def add(x, y):\n    return x + y\n"
	res, err := Run(RunConfig{
		Source:        src,
		EntryFunction: "add",
		TestData:      map[string]any{"x": int64(2), "y": int64(3)},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RunID == "" {
		t.Error("expected a non-empty RunID")
	}

	name := "add"
	gen := querycompile.NewGenerator(res.Context)
	q, err := gen.GenerateQuery([]querycompile.TargetElement{
		{Type: "function", Name: &name, Modifier: "return_value"},
	}, querycompile.OutputList)
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
	if got, ok := rows[0].(int64); !ok || got != 5 {
		t.Errorf("return_value = %v, want 5", rows[0])
	}
}
