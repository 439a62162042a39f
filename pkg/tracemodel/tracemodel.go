// Package tracemodel defines the execution-trace row types produced by a
// traced run: scopes, the four statement-execution row kinds, and
// variable snapshots.
//
// Grounded on original_source/src/models/tracer_models.py — the dataclass
// hierarchy (StatementExecution base + five subclasses, Scope, Variable)
// is carried over field-for-field; Go has no dataclass inheritance, so the
// shared fields live in StatementBase and every row embeds it.
package tracemodel

import "github.com/algotrace/tracequery/pkg/langvalue"

// ScopeType distinguishes the three nesting contexts a Scope can open.
type ScopeType string

const (
	ScopeGlobal   ScopeType = "global"
	ScopeFunction ScopeType = "function"
	ScopeClass    ScopeType = "class"
)

// Scope is a node in the lexical scope tree opened during a run. Function
// and class bodies open a child scope; the run starts inside one implicit
// global scope.
type Scope struct {
	ID       int
	Type     ScopeType
	Name     string // function/class name, "" for the global scope
	Parent   *Scope
	Children []*Scope
}

// NewScope creates a scope and, if parent is non-nil, links it as a child
// — mirroring Scope.__post_init__'s auto-registration in the original.
func NewScope(id int, typ ScopeType, name string, parent *Scope) *Scope {
	s := &Scope{ID: id, Type: typ, Name: name, Parent: parent}
	if parent != nil {
		parent.Children = append(parent.Children, s)
	}
	return s
}

// StmtType is the discriminator the query engine filters rows on
// (`stmt_type`).
type StmtType string

const (
	StmtLoop          StmtType = "loop"
	StmtLoopIteration StmtType = "loop_iteration"
	StmtFunctionCall  StmtType = "function"
	StmtBranch        StmtType = "branch"
)

// StatementBase carries the fields common to every execution row.
type StatementBase struct {
	ExecutionID int
	ScopeID     int
	LineNumber  int
	StmtType    StmtType

	// EndExecutionID is nil while the frame is still open; once closed it
	// is the inclusive upper bound of every execution_id nested within
	// this frame, used by the query compiler's time-range containment
	// checks (see pkg/querycompile).
	EndExecutionID *int
}

// Close sets EndExecutionID, mirroring the original's "close" step on
// context-manager exit (normal or abnormal).
func (b *StatementBase) Close(endExecutionID int) {
	id := endExecutionID
	b.EndExecutionID = &id
}

// StatementExecution is implemented by every row kind in ExecutionContext's
// execution_trace list.
type StatementExecution interface {
	Base() *StatementBase
}

// LoopExecution records one `for`/`while` statement's entire run (spanning
// every iteration).
type LoopExecution struct {
	StatementBase
	LoopType      string // "for" | "while"
	NumIterations int    // count of iterations started so far
}

func (l *LoopExecution) Base() *StatementBase { return &l.StatementBase }

// LoopIteration records a single pass through a loop body. Its frame
// stays open for the iteration's entire body, so nested branches/calls/
// variables fall within [ExecutionID, EndExecutionID].
type LoopIteration struct {
	StatementBase
	LoopExecutionID int
	IterationNum    int
}

func (l *LoopIteration) Base() *StatementBase { return &l.StatementBase }

// FunctionCall records one call's lifetime: its arguments (insertion
// ordered, per spec invariant), return value once it returns, and the
// enclosing call's execution id (0 at top level).
type FunctionCall struct {
	StatementBase
	FuncName         string
	FuncFullName     string // qualified with enclosing class, e.g. "Foo.bar"
	Arguments        *langvalue.Dict
	ReturnValue      langvalue.Value
	HasReturnValue   bool
	EnclosingExecID  int // func_call_exec_ctx_id: enclosing call's execution_id, or 0
	FuncDefLineNumber int
}

func (f *FunctionCall) Base() *StatementBase { return &f.StatementBase }

// BranchExecution records one evaluation of an if/elif/else chain.
type BranchExecution struct {
	StatementBase
	ConditionStr    string // unparsed source text of the tested condition
	ConditionResult bool
}

func (b *BranchExecution) Base() *StatementBase { return &b.StatementBase }

// VariableSnapshot records one assignment's resulting value. Unlike the
// StatementExecution rows, it has no EndExecutionID — it's a point-in-time
// fact, not a frame.
type VariableSnapshot struct {
	ExecutionID int
	ScopeID     int
	LineNumber  int
	StmtType    StmtType // always "variable"
	Name        string
	Value       langvalue.Value
	AccessPath  string // e.g. "obj.field" or "items[0]" for non-plain-name targets
	VarID       int    // monotonic id disambiguating repeated assignments to the same name
}

const StmtVariable StmtType = "variable"
