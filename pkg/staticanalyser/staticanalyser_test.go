package staticanalyser

import (
	"testing"

	"github.com/algotrace/tracequery/pkg/lang/parser"
)

func mustParse(t *testing.T, src string) *Analysis {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return Analyse(prog)
}

func TestAnalyse_FindsFunctionDefinitionAndCallSite(t *testing.T) {
	a := mustParse(t, "def add(a, b):\n    return a + b\ntotal = add(1, 2)\n")
	defs, calls := 0, 0
	for _, fn := range a.Functions {
		if fn.IsDefinition {
			defs++
			if fn.Name != "add" || len(fn.Parameters) != 2 {
				t.Errorf("definition = %+v, want name=add params=[a b]", fn)
			}
		} else {
			calls++
			if fn.Name != "add" {
				t.Errorf("call site name = %q, want add", fn.Name)
			}
		}
	}
	if defs != 1 || calls != 1 {
		t.Fatalf("got %d definitions, %d call sites, want 1 and 1", defs, calls)
	}
}

func TestAnalyse_FindsLoopsAndBranches(t *testing.T) {
	a := mustParse(t, "for i in range(3):\n    if i > 1:\n        x = i\n    else:\n        x = 0\nwhile x > 0:\n    x = x - 1\n")
	if len(a.Loops) != 2 {
		t.Fatalf("got %d loops, want 2", len(a.Loops))
	}
	if a.Loops[0].LoopType != "for" || a.Loops[1].LoopType != "while" {
		t.Errorf("loop types = %q, %q, want for, while", a.Loops[0].LoopType, a.Loops[1].LoopType)
	}
	if len(a.Branches) != 1 {
		t.Fatalf("got %d branches, want 1", len(a.Branches))
	}
}

func TestAnalyse_ScopesTrackAssignedVariables(t *testing.T) {
	a := mustParse(t, "x = 1\ndef f(y):\n    z = y + x\n    return z\n")
	if !a.RootScope.Variables["x"] {
		t.Error("root scope missing variable x")
	}
	fn := a.Functions[0]
	if !fn.Scope.Variables["y"] || !fn.Scope.Variables["z"] {
		t.Errorf("function scope = %+v, want y and z assigned", fn.Scope.Variables)
	}
	visible := fn.Scope.VisibleVariables()
	if !visible["x"] {
		t.Error("function scope should see enclosing x via VisibleVariables")
	}
}

func TestAnalyse_AttributeAndSubscriptTargetsTrackBaseObject(t *testing.T) {
	a := mustParse(t, "stack.top = 1\narr[0] = 2\n")
	vars := a.Variables()
	if !vars["stack"] || !vars["arr"] {
		t.Errorf("variables = %v, want stack and arr tracked as base objects", vars)
	}
}
