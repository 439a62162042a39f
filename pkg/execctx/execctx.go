// Package execctx implements the execution context (component C2): the
// monotonic id counters, the execution/scope stacks, and the scoped
// "open/close" discipline every traced frame follows.
//
// Grounded on original_source/src/models/tracer_models.py::ExecutionContext
// and its StatementExecutionTracker context manager; the push-on-enter,
// pop-on-exit-even-on-panic behavior is reproduced with Go's defer, which
// is the idiom pkg/kernel/engine/engine.go uses for its own run-scoped
// cleanup (close the trace writer, flush run state).
package execctx

import (
	"github.com/algotrace/tracequery/pkg/langvalue"
	"github.com/algotrace/tracequery/pkg/query"
	"github.com/algotrace/tracequery/pkg/tracemodel"
)

// Context holds everything accumulated during a single traced run.
type Context struct {
	ExecutionTrace []tracemodel.StatementExecution
	Variables      []tracemodel.VariableSnapshot

	execCounter int
	scopeCounter int
	varCounter  int

	execStack  []int // execution_id stack (LIFO), "0" sentinel at the bottom
	frameStack []*Frame // open frames parallel to execStack (nil at the bottom sentinel)
	scopeStack []*Scope

	GlobalScope *Scope
}

// Scope is an alias of tracemodel.Scope, used for the scope stack; the
// same value is what the trace rows reference, so no conversion is needed.
type Scope = tracemodel.Scope

// New creates a fresh execution context with one implicit global scope,
// matching ExecutionContext.__init__'s initial scope_stack = [global_scope].
func New() *Context {
	ctx := &Context{}
	ctx.GlobalScope = tracemodel.NewScope(ctx.nextScopeID(), tracemodel.ScopeGlobal, "", nil)
	ctx.scopeStack = []*Scope{ctx.GlobalScope}
	ctx.execStack = []int{0}
	ctx.frameStack = []*Frame{nil}
	return ctx
}

func (c *Context) nextExecID() int {
	c.execCounter++
	return c.execCounter
}

func (c *Context) nextScopeID() int {
	id := c.scopeCounter
	c.scopeCounter++
	return id
}

func (c *Context) nextVarID() int {
	c.varCounter++
	return c.varCounter
}

// CurrentExecutionID returns the execution_id of the innermost open frame,
// or 0 if none is open (top level).
func (c *Context) CurrentExecutionID() int {
	return c.execStack[len(c.execStack)-1]
}

// CurrentScope returns the innermost open lexical scope.
func (c *Context) CurrentScope() *Scope {
	return c.scopeStack[len(c.scopeStack)-1]
}

// CurrentFrame returns the innermost open frame, or nil at top level.
func (c *Context) CurrentFrame() *Frame {
	return c.frameStack[len(c.frameStack)-1]
}

func (c *Context) pushExec(id int, f *Frame) {
	c.execStack = append(c.execStack, id)
	c.frameStack = append(c.frameStack, f)
}

func (c *Context) popExec() {
	c.execStack = c.execStack[:len(c.execStack)-1]
	c.frameStack = c.frameStack[:len(c.frameStack)-1]
}

func (c *Context) pushScope(s *Scope) {
	c.scopeStack = append(c.scopeStack, s)
}

func (c *Context) popScope() {
	c.scopeStack = c.scopeStack[:len(c.scopeStack)-1]
}

// Frame is a handle to an open StatementExecution row. Close must be
// called exactly once (normally via defer) to stamp EndExecutionID with
// the last execution_id allocated while the frame was open.
type Frame struct {
	ctx  *Context
	row  tracemodel.StatementExecution
}

// openFrame allocates a new execution_id, appends row to the trace,
// pushes the id onto the execution stack, and returns a Frame the caller
// must Close. This is the Go shape of the original's
// StatementExecutionTracker.__enter__.
func (c *Context) openFrame(row tracemodel.StatementExecution) *Frame {
	base := row.Base()
	base.ExecutionID = c.nextExecID()
	base.ScopeID = c.CurrentScope().ID
	c.ExecutionTrace = append(c.ExecutionTrace, row)
	f := &Frame{ctx: c, row: row}
	c.pushExec(base.ExecutionID, f)
	return f
}

// Close pops the execution stack and stamps EndExecutionID with the
// last execution_id allocated while this frame was open, nested frames
// included (i.e. the counter's current value), run whether the body returned
// normally or panicked — callers invoke it via `defer frame.Close()`.
func (f *Frame) Close() {
	f.ctx.popExec()
	f.row.Base().Close(f.ctx.execCounter)
}

// Row returns the underlying trace row so callers can fill in
// variant-specific fields (e.g. BranchExecution.ConditionResult) before
// or after Close.
func (f *Frame) Row() tracemodel.StatementExecution { return f.row }

// BeginLoop opens a LoopExecution frame.
func (c *Context) BeginLoop(line int, loopType string) *Frame {
	return c.openFrame(&tracemodel.LoopExecution{
		StatementBase: tracemodel.StatementBase{LineNumber: line, StmtType: tracemodel.StmtLoop},
		LoopType:      loopType,
	})
}

// BeginLoopIteration opens a LoopIteration frame nested in the currently
// open LoopExecution frame. Its frame stays open for the whole iteration
// body, so nested statements fall within its [ExecutionID, EndExecutionID]
// range. Mirrors create_loop_iteration's "no active loop" guard, which
// the original raises as a plain RuntimeError — here RuntimeTraceError.
func (c *Context) BeginLoopIteration(line int) (*Frame, error) {
	cur := c.CurrentFrame()
	loop, ok := rowAs[*tracemodel.LoopExecution](cur)
	if !ok {
		return nil, &query.RuntimeTraceError{Detail: "no active loop execution to record iteration for"}
	}
	row := &tracemodel.LoopIteration{
		StatementBase:   tracemodel.StatementBase{LineNumber: line, StmtType: tracemodel.StmtLoopIteration},
		LoopExecutionID: loop.ExecutionID,
		IterationNum:    loop.NumIterations,
	}
	loop.NumIterations++
	return c.openFrame(row), nil
}

func rowAs[T tracemodel.StatementExecution](f *Frame) (T, bool) {
	var zero T
	if f == nil {
		return zero, false
	}
	t, ok := f.row.(T)
	return t, ok
}

// BeginFunctionCall opens a FunctionCall frame and pushes a new function
// scope, mirroring the original's scope_stack.append(new_scope) inside
// the call tracker.
func (c *Context) BeginFunctionCall(line int, funcName, funcFullName string, args *langvalue.Dict) *Frame {
	enclosing := c.CurrentExecutionID()
	row := &tracemodel.FunctionCall{
		StatementBase:   tracemodel.StatementBase{LineNumber: line, StmtType: tracemodel.StmtFunctionCall},
		FuncName:        funcName,
		FuncFullName:    funcFullName,
		Arguments:       args,
		EnclosingExecID: enclosing,
	}
	frame := c.openFrame(row)
	newScope := tracemodel.NewScope(c.nextScopeID(), tracemodel.ScopeFunction, funcFullName, c.CurrentScope())
	c.pushScope(newScope)
	return frame
}

// EndFunctionCall closes the call frame and pops its scope; call exactly
// once when the call returns (normally or via panic-recover at the
// interpreter boundary).
func (c *Context) EndFunctionCall(frame *Frame, retVal langvalue.Value, hasRet bool) {
	if fc, ok := frame.row.(*tracemodel.FunctionCall); ok {
		fc.ReturnValue = langvalue.DeepCopy(retVal)
		fc.HasReturnValue = hasRet
	}
	frame.Close()
	c.popScope()
}

// BeginBranch opens a BranchExecution frame.
func (c *Context) BeginBranch(line int, conditionStr string, result bool) *Frame {
	return c.openFrame(&tracemodel.BranchExecution{
		StatementBase:   tracemodel.StatementBase{LineNumber: line, StmtType: tracemodel.StmtBranch},
		ConditionStr:    conditionStr,
		ConditionResult: result,
	})
}

// RecordVariable appends a VariableSnapshot — these live in Variables, not
// ExecutionTrace, mirroring ExecutionContext.record_variable appending to
// self.variables in the original. accessPath is the full assignment
// target text (e.g. "items[0]" or "obj.field") when it differs from name.
func (c *Context) RecordVariable(line int, name, accessPath string, value langvalue.Value) *tracemodel.VariableSnapshot {
	snap := tracemodel.VariableSnapshot{
		ExecutionID: c.CurrentExecutionID(),
		ScopeID:     c.CurrentScope().ID,
		LineNumber:  line,
		StmtType:    tracemodel.StmtVariable,
		Name:        name,
		Value:       langvalue.DeepCopy(value),
		AccessPath:  accessPath,
		VarID:       c.nextVarID(),
	}
	c.Variables = append(c.Variables, snap)
	return &c.Variables[len(c.Variables)-1]
}

// AllItems returns execution_trace ++ variables, the flat relation the
// query engine (C5) seeds a query from.
func (c *Context) AllItems() []any {
	out := make([]any, 0, len(c.ExecutionTrace)+len(c.Variables))
	for _, e := range c.ExecutionTrace {
		out = append(out, e)
	}
	for i := range c.Variables {
		out = append(out, &c.Variables[i])
	}
	return out
}
