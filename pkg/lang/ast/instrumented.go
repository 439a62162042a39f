package ast

// The nodes below are never produced by the parser. pkg/transform inserts
// them into a copy of the parsed tree; pkg/interp is the only consumer
// that understands them. Keeping them in this package (rather than
// transform's own tree type) means transform can return a plain ast.Block
// and interp needs only one tree-walking switch.

// TrackCall wraps a call expression so the interpreter opens a function
// frame (push/pop on the execution and scope stacks) around its
// evaluation. FuncName/FuncFullName are resolved once, at transform time,
// from the callee's syntactic shape (plain identifier or dotted attribute
// chain); an unresolvable shape (subscripted callable, call result called
// again, ...) resolves to "<lambda_or_unknown>" for both.
type TrackCall struct {
	ExprBase
	FuncName     string
	FuncFullName string
	Inner        *Call
}

// TrackLoopIter marks the body of a single for/while iteration so the
// interpreter records a LoopIteration row before running Body. IterVars
// holds the name(s) bound by a for-loop's target (destructured tuples
// included) so the interpreter can snapshot them before Body runs; it's
// empty for "while".
type TrackLoopIter struct {
	StmtBase
	LoopKind string // "for" | "while"
	IterVars []string
	Body     Block
}

// TrackLoop wraps an entire For/While statement so the interpreter opens
// and closes a LoopExecution frame around all iterations. Orig's own Body
// holds exactly one statement, a *TrackLoopIter, which the interpreter
// runs once per pass.
type TrackLoop struct {
	StmtBase
	Orig Stmt // *For or *While
}

// TrackBranch wraps an If statement so the interpreter records a
// BranchExecution row capturing the evaluated condition and which arm
// ran. elif chains are nested Ifs (per the parser's flattening into
// OrElse) and are each wrapped individually, one BranchExecution per test.
type TrackBranch struct {
	StmtBase
	Orig *If
}

// TargetInfo names one assignment-bound variable: the base name whose
// value is deep-copied for the snapshot, and the full syntactic access
// path of the target it came from (e.g. "obj.field", "items[0]").
type TargetInfo struct {
	Name       string
	AccessPath string
}

// TrackAssign wraps a statement so the interpreter records a
// VariableSnapshot for each bound target after Orig runs. Orig is
// normally *Assign, *AugAssign, or *AnnAssign; the transformer also uses
// it to wrap a bare method-call expression statement (*ExprStmt) so a
// mutating call like "obj.push(x)" still snapshots obj afterward.
type TrackAssign struct {
	StmtBase
	Orig    Stmt
	Targets []TargetInfo
}
