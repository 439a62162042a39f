package execctx

import (
	"errors"
	"testing"

	"github.com/algotrace/tracequery/pkg/langvalue"
	"github.com/algotrace/tracequery/pkg/query"
	"github.com/algotrace/tracequery/pkg/tracemodel"
)

// TestNew_GlobalScope checks the implicit global scope and id numbering
// from spec.md §3: scope_id starts at 0, execution_id starts at 1.
func TestNew_GlobalScope(t *testing.T) {
	ctx := New()
	if ctx.GlobalScope.ID != 0 {
		t.Fatalf("global scope id = %d, want 0", ctx.GlobalScope.ID)
	}
	if ctx.GlobalScope.Type != tracemodel.ScopeGlobal {
		t.Fatalf("global scope type = %q, want global", ctx.GlobalScope.Type)
	}
	if ctx.CurrentExecutionID() != 0 {
		t.Fatalf("CurrentExecutionID at top level = %d, want 0", ctx.CurrentExecutionID())
	}
}

// TestBeginLoop_IDsAndClose confirms execution_id allocation order and the
// execution_id < end_execution_id invariant (invariant 3).
func TestBeginLoop_IDsAndClose(t *testing.T) {
	ctx := New()
	f := ctx.BeginLoop(1, "for")
	loop := f.Row().(*tracemodel.LoopExecution)
	if loop.ExecutionID != 1 {
		t.Fatalf("first execution_id = %d, want 1", loop.ExecutionID)
	}
	it, err := ctx.BeginLoopIteration(2)
	if err != nil {
		t.Fatalf("BeginLoopIteration: %v", err)
	}
	it.Close()
	f.Close()

	if loop.EndExecutionID == nil {
		t.Fatal("loop frame never closed")
	}
	if !(loop.ExecutionID < *loop.EndExecutionID) {
		t.Errorf("execution_id %d not < end_execution_id %d", loop.ExecutionID, *loop.EndExecutionID)
	}
	if loop.NumIterations != 1 {
		t.Errorf("NumIterations = %d, want 1", loop.NumIterations)
	}
}

// TestBeginLoopIteration_NoActiveLoop confirms the "no active loop
// execution" RuntimeTraceError (spec.md §4.2).
func TestBeginLoopIteration_NoActiveLoop(t *testing.T) {
	ctx := New()
	_, err := ctx.BeginLoopIteration(1)
	if err == nil {
		t.Fatal("expected an error with no active loop")
	}
	var rte *query.RuntimeTraceError
	if !errors.As(err, &rte) {
		t.Fatalf("err = %v (%T), want *query.RuntimeTraceError", err, err)
	}
}

// TestBeginFunctionCall_ScopeLifetime confirms a FunctionCall's scope is
// opened on push and popped on EndFunctionCall (invariant 5), and that no
// VariableSnapshot recorded afterward carries its scope_id.
func TestBeginFunctionCall_ScopeLifetime(t *testing.T) {
	ctx := New()
	args := langvalue.NewDict()
	args.Set("_arg0", int64(3))
	frame := ctx.BeginFunctionCall(1, "f", "f", args)
	fnScope := ctx.CurrentScope()
	if fnScope.ID == ctx.GlobalScope.ID {
		t.Fatal("function call did not open a new scope")
	}
	ctx.RecordVariable(1, "x", "x", int64(3))
	ctx.EndFunctionCall(frame, int64(7), true)

	if ctx.CurrentScope().ID != ctx.GlobalScope.ID {
		t.Fatalf("scope not restored after EndFunctionCall: got %d", ctx.CurrentScope().ID)
	}
	ctx.RecordVariable(2, "y", "y", int64(1))
	for _, v := range ctx.Variables {
		if v.Name == "y" && v.ScopeID == fnScope.ID {
			t.Error("variable recorded after pop still carries the popped function scope")
		}
	}

	fc := frame.Row().(*tracemodel.FunctionCall)
	if fc.ReturnValue != int64(7) || !fc.HasReturnValue {
		t.Errorf("return value = %v (has=%v), want 7 (true)", fc.ReturnValue, fc.HasReturnValue)
	}
}

// TestRecordVariable_DeepCopyIndependence confirms invariant 7: a snapshot
// is unaffected by later mutation of the source value.
func TestRecordVariable_DeepCopyIndependence(t *testing.T) {
	ctx := New()
	list := []langvalue.Value{int64(1), int64(2)}
	snap := ctx.RecordVariable(1, "xs", "xs", list)
	list[0] = int64(99)
	got := snap.Value.([]langvalue.Value)
	if got[0] != int64(1) {
		t.Errorf("snapshot mutated after source changed: got %v", got[0])
	}
}

// TestAllItems_ConcatenatesTraceAndVariables confirms the seed relation
// the query engine starts from (spec.md §4.4: "trace ++ variables").
func TestAllItems_ConcatenatesTraceAndVariables(t *testing.T) {
	ctx := New()
	f := ctx.BeginBranch(1, "x > 0", true)
	f.Close()
	ctx.RecordVariable(1, "y", "y", int64(1))

	items := ctx.AllItems()
	if len(items) != 2 {
		t.Fatalf("len(AllItems()) = %d, want 2", len(items))
	}
	if _, ok := items[0].(*tracemodel.BranchExecution); !ok {
		t.Errorf("items[0] = %T, want *tracemodel.BranchExecution", items[0])
	}
	if _, ok := items[1].(*tracemodel.VariableSnapshot); !ok {
		t.Errorf("items[1] = %T, want *tracemodel.VariableSnapshot", items[1])
	}
}
