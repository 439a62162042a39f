package tracemodel

import "testing"

func TestNewScope_RegistersWithParent(t *testing.T) {
	root := NewScope(0, ScopeGlobal, "", nil)
	child := NewScope(1, ScopeFunction, "f", root)
	if len(root.Children) != 1 || root.Children[0] != child {
		t.Fatalf("parent children = %v, want [child]", root.Children)
	}
	if child.Parent != root {
		t.Fatalf("child.Parent = %v, want root", child.Parent)
	}
}

func TestNewScope_AppendOrdered(t *testing.T) {
	root := NewScope(0, ScopeGlobal, "", nil)
	a := NewScope(1, ScopeFunction, "a", root)
	b := NewScope(2, ScopeFunction, "b", root)
	if len(root.Children) != 2 || root.Children[0] != a || root.Children[1] != b {
		t.Fatalf("children order = %v, want [a b]", root.Children)
	}
}

func TestStatementBase_Close(t *testing.T) {
	loop := &LoopExecution{StatementBase: StatementBase{ExecutionID: 1, StmtType: StmtLoop}, LoopType: "for"}
	if loop.EndExecutionID != nil {
		t.Fatal("EndExecutionID should be nil before close")
	}
	loop.Close(5)
	if loop.EndExecutionID == nil || *loop.EndExecutionID != 5 {
		t.Fatalf("EndExecutionID = %v, want 5", loop.EndExecutionID)
	}
}

func TestBase_ReturnsSharedStatementBase(t *testing.T) {
	var rows []StatementExecution = []StatementExecution{
		&LoopExecution{StatementBase: StatementBase{ExecutionID: 1, StmtType: StmtLoop}},
		&LoopIteration{StatementBase: StatementBase{ExecutionID: 2, StmtType: StmtLoopIteration}},
		&FunctionCall{StatementBase: StatementBase{ExecutionID: 3, StmtType: StmtFunctionCall}},
		&BranchExecution{StatementBase: StatementBase{ExecutionID: 4, StmtType: StmtBranch}},
	}
	for i, row := range rows {
		if row.Base().ExecutionID != i+1 {
			t.Errorf("row %d Base().ExecutionID = %d, want %d", i, row.Base().ExecutionID, i+1)
		}
	}
}
