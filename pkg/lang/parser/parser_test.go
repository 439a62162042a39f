package parser

import (
	"testing"

	"github.com/algotrace/tracequery/pkg/lang/ast"
)

func parseOne(t *testing.T, src string) ast.Stmt {
	t.Helper()
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	if len(prog.Body.Stmts) != 1 {
		t.Fatalf("Parse(%q) produced %d statements, want 1", src, len(prog.Body.Stmts))
	}
	return prog.Body.Stmts[0]
}

func TestParse_Assignment(t *testing.T) {
	stmt := parseOne(t, "x = 1\n")
	assign, ok := stmt.(*ast.Assign)
	if !ok {
		t.Fatalf("got %T, want *ast.Assign", stmt)
	}
	if len(assign.Targets) != 1 {
		t.Fatalf("got %d targets, want 1", len(assign.Targets))
	}
	if ident, ok := assign.Targets[0].(*ast.Ident); !ok || ident.Name != "x" {
		t.Fatalf("target = %#v, want Ident(x)", assign.Targets[0])
	}
	if lit, ok := assign.Value.(*ast.IntLit); !ok || lit.Value != 1 {
		t.Fatalf("value = %#v, want IntLit(1)", assign.Value)
	}
}

func TestParse_TupleDestructuring(t *testing.T) {
	stmt := parseOne(t, "a, b = 1, 2\n")
	assign := stmt.(*ast.Assign)
	tup, ok := assign.Targets[0].(*ast.Tuple)
	if !ok {
		t.Fatalf("target = %#v, want *ast.Tuple", assign.Targets[0])
	}
	if len(tup.Elems) != 2 {
		t.Fatalf("tuple has %d elems, want 2", len(tup.Elems))
	}
}

func TestParse_AugAssign(t *testing.T) {
	stmt := parseOne(t, "sum += num\n")
	aug, ok := stmt.(*ast.AugAssign)
	if !ok {
		t.Fatalf("got %T, want *ast.AugAssign", stmt)
	}
	if aug.Op != "+" {
		t.Fatalf("op = %q, want +", aug.Op)
	}
}

func TestParse_AnnAssignNoValue(t *testing.T) {
	stmt := parseOne(t, "x: int\n")
	ann, ok := stmt.(*ast.AnnAssign)
	if !ok {
		t.Fatalf("got %T, want *ast.AnnAssign", stmt)
	}
	if ann.Value != nil {
		t.Fatalf("value = %#v, want nil for bare annotation", ann.Value)
	}
}

func TestParse_IfElifElseChain(t *testing.T) {
	src := "if a:\n    x = 1\nelif b:\n    x = 2\nelse:\n    x = 3\n"
	stmt := parseOne(t, src)
	top, ok := stmt.(*ast.If)
	if !ok {
		t.Fatalf("got %T, want *ast.If", stmt)
	}
	if len(top.OrElse.Stmts) != 1 {
		t.Fatalf("top-level else branch has %d stmts, want 1 nested If", len(top.OrElse.Stmts))
	}
	elif, ok := top.OrElse.Stmts[0].(*ast.If)
	if !ok {
		t.Fatalf("elif branch = %T, want nested *ast.If", top.OrElse.Stmts[0])
	}
	if len(elif.OrElse.Stmts) != 1 {
		t.Fatalf("elif else has %d stmts, want 1", len(elif.OrElse.Stmts))
	}
}

func TestParse_ForLoop(t *testing.T) {
	stmt := parseOne(t, "for i in range(3):\n    x = i\n")
	forStmt, ok := stmt.(*ast.For)
	if !ok {
		t.Fatalf("got %T, want *ast.For", stmt)
	}
	if ident, ok := forStmt.Target.(*ast.Ident); !ok || ident.Name != "i" {
		t.Fatalf("target = %#v, want Ident(i)", forStmt.Target)
	}
	call, ok := forStmt.Iter.(*ast.Call)
	if !ok {
		t.Fatalf("iter = %#v, want *ast.Call", forStmt.Iter)
	}
	if fn, ok := call.Func.(*ast.Ident); !ok || fn.Name != "range" {
		t.Fatalf("call func = %#v, want Ident(range)", call.Func)
	}
}

func TestParse_ForLoopTupleTarget(t *testing.T) {
	stmt := parseOne(t, "for a, b in pairs:\n    x = a\n")
	forStmt := stmt.(*ast.For)
	if _, ok := forStmt.Target.(*ast.Tuple); !ok {
		t.Fatalf("target = %#v, want *ast.Tuple", forStmt.Target)
	}
}

func TestParse_WhileLoop(t *testing.T) {
	stmt := parseOne(t, "while num > 0:\n    num -= 1\n")
	while, ok := stmt.(*ast.While)
	if !ok {
		t.Fatalf("got %T, want *ast.While", stmt)
	}
	bin, ok := while.Test.(*ast.Binary)
	if !ok || bin.Op != ">" {
		t.Fatalf("test = %#v, want Binary(>)", while.Test)
	}
}

func TestParse_FuncDef(t *testing.T) {
	stmt := parseOne(t, "def f(a, b):\n    return a + b\n")
	fn, ok := stmt.(*ast.FuncDef)
	if !ok {
		t.Fatalf("got %T, want *ast.FuncDef", stmt)
	}
	if fn.Name != "f" || len(fn.Params) != 2 {
		t.Fatalf("fn = %#v, want name f with 2 params", fn)
	}
	if len(fn.Body.Stmts) != 1 {
		t.Fatalf("fn body has %d stmts, want 1", len(fn.Body.Stmts))
	}
	ret, ok := fn.Body.Stmts[0].(*ast.Return)
	if !ok {
		t.Fatalf("body[0] = %T, want *ast.Return", fn.Body.Stmts[0])
	}
	if ret.Value == nil {
		t.Fatal("return value is nil, want a + b")
	}
}

func TestParse_ClassDef(t *testing.T) {
	src := "class Foo:\n    def bar(self):\n        return 1\n"
	stmt := parseOne(t, src)
	cls, ok := stmt.(*ast.ClassDef)
	if !ok {
		t.Fatalf("got %T, want *ast.ClassDef", stmt)
	}
	if cls.Name != "Foo" || len(cls.Methods) != 1 {
		t.Fatalf("cls = %#v, want Foo with 1 method", cls)
	}
	if cls.Methods[0].Name != "bar" {
		t.Fatalf("method name = %q, want bar", cls.Methods[0].Name)
	}
}

func TestParse_CallWithPositionalAndKeywordArgs(t *testing.T) {
	stmt := parseOne(t, "f(1, 2, k=3)\n")
	es, ok := stmt.(*ast.ExprStmt)
	if !ok {
		t.Fatalf("got %T, want *ast.ExprStmt", stmt)
	}
	call, ok := es.X.(*ast.Call)
	if !ok {
		t.Fatalf("got %T, want *ast.Call", es.X)
	}
	if len(call.Args) != 2 {
		t.Fatalf("positional args = %d, want 2", len(call.Args))
	}
	if len(call.Kwargs) != 1 || call.Kwargs[0].Name != "k" {
		t.Fatalf("kwargs = %#v, want [k=3]", call.Kwargs)
	}
}

func TestParse_AttributeAndSubscriptTargets(t *testing.T) {
	stmt := parseOne(t, "obj.attr = 1\n")
	assign := stmt.(*ast.Assign)
	if _, ok := assign.Targets[0].(*ast.Attr); !ok {
		t.Fatalf("target = %#v, want *ast.Attr", assign.Targets[0])
	}

	stmt2 := parseOne(t, "items[0] = 1\n")
	assign2 := stmt2.(*ast.Assign)
	if _, ok := assign2.Targets[0].(*ast.Subscript); !ok {
		t.Fatalf("target = %#v, want *ast.Subscript", assign2.Targets[0])
	}
}

func TestParse_ConditionSourceSpanPreserved(t *testing.T) {
	stmt := parseOne(t, "if x > 0:\n    y = 1\n")
	ifStmt := stmt.(*ast.If)
	if got := ifStmt.Test.Source(); got != "x > 0" {
		t.Fatalf("condition source = %q, want %q", got, "x > 0")
	}
}

func TestParse_ListAndDictLiterals(t *testing.T) {
	stmt := parseOne(t, "x = [1, 2, 3]\n")
	assign := stmt.(*ast.Assign)
	list, ok := assign.Value.(*ast.ListLit)
	if !ok || len(list.Elems) != 3 {
		t.Fatalf("value = %#v, want ListLit of 3", assign.Value)
	}

	stmt2 := parseOne(t, `x = {"a": 1}` + "\n")
	assign2 := stmt2.(*ast.Assign)
	dict, ok := assign2.Value.(*ast.DictLit)
	if !ok || len(dict.Entries) != 1 {
		t.Fatalf("value = %#v, want DictLit of 1 entry", assign2.Value)
	}
}

func TestParse_InvalidSyntaxErrors(t *testing.T) {
	_, err := Parse("if :\n")
	if err == nil {
		t.Fatal("expected a parse error for malformed if")
	}
}
