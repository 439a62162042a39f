// Package interp tree-walks the transformed AST produced by pkg/transform
// against a pkg/execctx.Context, recording the execution trace C2 defines
// as a side effect of ordinary evaluation.
//
// Go has no exec/eval for a foreign dynamically-typed language, so this
// package is that missing piece: it actually runs the instrumented program
// so the trace gets populated. Shaped like
// _examples/opal-lang-opal/runtime/execution's context-threaded
// tree-walker: one Interp struct holding run-wide state (function/class
// registry, the execution context), evalExpr/execStmt dispatching on the
// concrete node type.
package interp

import (
	"fmt"

	"github.com/algotrace/tracequery/pkg/execctx"
	"github.com/algotrace/tracequery/pkg/lang/ast"
	"github.com/algotrace/tracequery/pkg/langvalue"
)

// Interp runs one transformed program to completion, accumulating its
// trace in ctx. Not reentrant across goroutines: one Interp serves exactly
// one single-threaded run against its own execution context.
type Interp struct {
	ctx       *execctx.Context
	global    *Env
	functions map[string]*ast.FuncDef
	classes   map[string]*ast.ClassDef
}

// New creates an interpreter with a fresh execution context.
func New() *Interp {
	return &Interp{
		ctx:       execctx.New(),
		global:    newEnv(nil),
		functions: map[string]*ast.FuncDef{},
		classes:   map[string]*ast.ClassDef{},
	}
}

// Context returns the execution context accumulating this run's trace.
func (it *Interp) Context() *execctx.Context { return it.ctx }

// Run executes prog's top-level body (already rewritten by pkg/transform)
// against the global scope, returning the populated execution context.
func (it *Interp) Run(prog *ast.Program) (*execctx.Context, error) {
	if _, _, err := it.execBlock(it.global, prog.Body); err != nil {
		return nil, err
	}
	return it.ctx, nil
}

// Env is a lexical variable scope. Functions (including methods) open a
// fresh Env parented directly to the global scope — the language has no
// closures over an enclosing function's locals, only global lookup and a
// single local frame.
type Env struct {
	vars   map[string]langvalue.Value
	parent *Env
}

func newEnv(parent *Env) *Env {
	return &Env{vars: map[string]langvalue.Value{}, parent: parent}
}

func (e *Env) get(name string) (langvalue.Value, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// set always binds in the current scope (Python's local-by-default
// assignment semantics), never in an enclosing one.
func (e *Env) set(name string, v langvalue.Value) { e.vars[name] = v }

// ---- statement execution ----

// execBlock runs every statement in b in order, stopping and propagating
// a value as soon as one of them returns.
func (it *Interp) execBlock(env *Env, b ast.Block) (langvalue.Value, bool, error) {
	for _, s := range b.Stmts {
		v, returned, err := it.execStmt(env, s)
		if err != nil {
			return nil, false, err
		}
		if returned {
			return v, true, nil
		}
	}
	return nil, false, nil
}

func (it *Interp) execStmt(env *Env, s ast.Stmt) (langvalue.Value, bool, error) {
	switch n := s.(type) {
	case *ast.FuncDef:
		it.functions[n.Name] = n
		return nil, false, nil
	case *ast.ClassDef:
		it.classes[n.Name] = n
		return nil, false, nil
	case *ast.Return:
		if n.Value == nil {
			return nil, true, nil
		}
		v, err := it.evalExpr(env, n.Value)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	case *ast.TrackLoop:
		return it.execTrackLoop(env, n)
	case *ast.TrackBranch:
		return it.execTrackBranch(env, n)
	case *ast.TrackAssign:
		return it.execTrackAssign(env, n)
	case *ast.ExprStmt:
		_, err := it.evalExpr(env, n.X)
		return nil, false, err
	case *ast.Assign:
		return nil, false, it.execAssign(env, n)
	case *ast.AugAssign:
		return nil, false, it.execAugAssign(env, n)
	case *ast.AnnAssign:
		if n.Value == nil {
			return nil, false, nil
		}
		return nil, false, it.execAnnAssign(env, n)
	default:
		return nil, false, fmt.Errorf("interp: unsupported statement %T at line %d", s, s.Pos())
	}
}

// ---- rule 1: loops ----

func (it *Interp) execTrackLoop(env *Env, n *ast.TrackLoop) (langvalue.Value, bool, error) {
	switch orig := n.Orig.(type) {
	case *ast.For:
		return it.execFor(env, n.Line, orig)
	case *ast.While:
		return it.execWhile(env, n.Line, orig)
	default:
		return nil, false, fmt.Errorf("interp: TrackLoop wraps unexpected %T", orig)
	}
}

func (it *Interp) execFor(env *Env, line int, orig *ast.For) (val langvalue.Value, returned bool, err error) {
	frame := it.ctx.BeginLoop(line, "for")
	defer frame.Close()

	iterVal, err := it.evalExpr(env, orig.Iter)
	if err != nil {
		return nil, false, err
	}
	items, err := asIterable(iterVal, line)
	if err != nil {
		return nil, false, err
	}
	iterStmt := orig.Body.Stmts[0].(*ast.TrackLoopIter)
	for _, item := range items {
		if err := bindTarget(env, orig.Target, item); err != nil {
			return nil, false, err
		}
		v, ret, err := it.execTrackLoopIter(env, iterStmt)
		if err != nil {
			return nil, false, err
		}
		if ret {
			return v, true, nil
		}
	}
	return nil, false, nil
}

func (it *Interp) execWhile(env *Env, line int, orig *ast.While) (langvalue.Value, bool, error) {
	frame := it.ctx.BeginLoop(line, "while")
	defer frame.Close()

	iterStmt := orig.Body.Stmts[0].(*ast.TrackLoopIter)
	for {
		cond, err := it.evalExpr(env, orig.Test)
		if err != nil {
			return nil, false, err
		}
		if !langvalue.Truthy(cond) {
			break
		}
		v, ret, err := it.execTrackLoopIter(env, iterStmt)
		if err != nil {
			return nil, false, err
		}
		if ret {
			return v, true, nil
		}
	}
	return nil, false, nil
}

func (it *Interp) execTrackLoopIter(env *Env, n *ast.TrackLoopIter) (langvalue.Value, bool, error) {
	frame, err := it.ctx.BeginLoopIteration(n.Line)
	if err != nil {
		return nil, false, err
	}
	defer frame.Close()

	for _, name := range n.IterVars {
		if v, ok := env.get(name); ok {
			it.ctx.RecordVariable(n.Line, name, name, v)
		}
	}
	return it.execBlock(env, n.Body)
}

// bindTarget assigns item to a for-loop's (possibly destructured) target.
func bindTarget(env *Env, target ast.Expr, item langvalue.Value) error {
	switch n := target.(type) {
	case *ast.Ident:
		env.set(n.Name, item)
		return nil
	case *ast.Tuple:
		list, ok := item.([]langvalue.Value)
		if !ok || len(list) != len(n.Elems) {
			return fmt.Errorf("line %d: cannot unpack iteration value into %d targets", target.Pos(), len(n.Elems))
		}
		for i, e := range n.Elems {
			if err := bindTarget(env, e, list[i]); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("line %d: invalid for-loop target", target.Pos())
	}
}

func asIterable(v langvalue.Value, line int) ([]langvalue.Value, error) {
	switch t := v.(type) {
	case []langvalue.Value:
		return t, nil
	case *langvalue.Dict:
		out := make([]langvalue.Value, 0, t.Len())
		for p := t.Oldest(); p != nil; p = p.Next() {
			out = append(out, p.Key)
		}
		return out, nil
	case string:
		out := make([]langvalue.Value, 0, len(t))
		for _, r := range t {
			out = append(out, string(r))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("line %d: value of type %T is not iterable", line, v)
	}
}

// ---- rule 2: branches ----

func (it *Interp) execTrackBranch(env *Env, n *ast.TrackBranch) (langvalue.Value, bool, error) {
	testVal, err := it.evalExpr(env, n.Orig.Test)
	if err != nil {
		return nil, false, err
	}
	result := langvalue.Truthy(testVal)
	frame := it.ctx.BeginBranch(n.Line, n.Orig.Test.Source(), result)
	defer frame.Close()

	if result {
		return it.execBlock(env, n.Orig.Body)
	}
	return it.execBlock(env, n.Orig.OrElse)
}

// ---- rule 3: assignment ----

func (it *Interp) execTrackAssign(env *Env, n *ast.TrackAssign) (langvalue.Value, bool, error) {
	if err := it.execOrig(env, n.Orig); err != nil {
		return nil, false, err
	}
	for _, t := range n.Targets {
		if v, ok := env.get(t.Name); ok {
			it.ctx.RecordVariable(n.Line, t.Name, t.AccessPath, v)
		}
	}
	return nil, false, nil
}

// execOrig runs the statement a TrackAssign wraps: a real assignment, or
// (for the post-call-mutation case) a bare method-call expression
// statement.
func (it *Interp) execOrig(env *Env, s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.Assign:
		return it.execAssign(env, n)
	case *ast.AugAssign:
		return it.execAugAssign(env, n)
	case *ast.AnnAssign:
		return it.execAnnAssign(env, n)
	case *ast.ExprStmt:
		_, err := it.evalExpr(env, n.X)
		return err
	default:
		return fmt.Errorf("interp: TrackAssign wraps unexpected %T", s)
	}
}

func (it *Interp) execAssign(env *Env, n *ast.Assign) error {
	val, err := it.evalExpr(env, n.Value)
	if err != nil {
		return err
	}
	for _, t := range n.Targets {
		if err := it.assignTo(env, t, val); err != nil {
			return err
		}
	}
	return nil
}

func (it *Interp) execAugAssign(env *Env, n *ast.AugAssign) error {
	cur, err := it.evalExpr(env, n.Target)
	if err != nil {
		return err
	}
	rhs, err := it.evalExpr(env, n.Value)
	if err != nil {
		return err
	}
	newVal, err := applyBinary(n.Op, cur, rhs, n.Line)
	if err != nil {
		return err
	}
	return it.assignTo(env, n.Target, newVal)
}

func (it *Interp) execAnnAssign(env *Env, n *ast.AnnAssign) error {
	val, err := it.evalExpr(env, n.Value)
	if err != nil {
		return err
	}
	return it.assignTo(env, n.Target, val)
}

func (it *Interp) assignTo(env *Env, target ast.Expr, val langvalue.Value) error {
	switch n := target.(type) {
	case *ast.Ident:
		env.set(n.Name, val)
		return nil
	case *ast.Tuple:
		list, ok := val.([]langvalue.Value)
		if !ok || len(list) != len(n.Elems) {
			return fmt.Errorf("line %d: cannot unpack assignment into %d targets", target.Pos(), len(n.Elems))
		}
		for i, e := range n.Elems {
			if err := it.assignTo(env, e, list[i]); err != nil {
				return err
			}
		}
		return nil
	case *ast.Attr:
		recv, err := it.evalExpr(env, n.Value)
		if err != nil {
			return err
		}
		inst, ok := recv.(*langvalue.Instance)
		if !ok {
			return fmt.Errorf("line %d: cannot set attribute %q on non-instance value", target.Pos(), n.Name)
		}
		inst.Fields.Set(n.Name, val)
		return nil
	case *ast.Subscript:
		recv, err := it.evalExpr(env, n.Value)
		if err != nil {
			return err
		}
		idx, err := it.evalExpr(env, n.Index)
		if err != nil {
			return err
		}
		return setSubscript(recv, idx, val, target.Pos())
	default:
		return fmt.Errorf("line %d: invalid assignment target", target.Pos())
	}
}

func setSubscript(recv, idx, val langvalue.Value, line int) error {
	switch r := recv.(type) {
	case []langvalue.Value:
		i, ok := asIndex(idx)
		if !ok || i < 0 || i >= len(r) {
			return fmt.Errorf("line %d: list index out of range", line)
		}
		r[i] = val
		return nil
	case *langvalue.Dict:
		key, ok := idx.(string)
		if !ok {
			return fmt.Errorf("line %d: dict keys must be strings", line)
		}
		r.Set(key, val)
		return nil
	default:
		return fmt.Errorf("line %d: cannot index into value of type %T", line, recv)
	}
}

func asIndex(v langvalue.Value) (int, bool) {
	i, ok := v.(int64)
	return int(i), ok
}
