// Package staticanalyser walks a parsed program and builds a lexical tree
// of its functions, loops, branches, and variable scopes — the summary a
// question-spec form builder uses to offer a user "pick a loop" or "pick
// a function" instead of asking for raw line numbers.
//
// Grounded on original_source/src/core/static_analyser/static_analyser.py
// (an ast.NodeVisitor with enter/leave scope and enter/leave code-block
// pairs) and original_source/src/models/static_analyser_models.py for the
// Scope/CodeElement/Function/Loop/Branch shapes; the enter/leave-pair walk
// structure mirrors _examples/viant-linager/analyzer's scope-stack idiom,
// adapted to walk pkg/lang/ast instead of a tree-sitter parse tree.
package staticanalyser

import "github.com/algotrace/tracequery/pkg/lang/ast"

// Scope is one lexical variable scope: the names assigned within it plus
// a link to its enclosing scope.
type Scope struct {
	Parent    *Scope
	Variables map[string]bool
	Children  []*Scope
}

func newScope(parent *Scope) *Scope {
	s := &Scope{Parent: parent, Variables: map[string]bool{}}
	if parent != nil {
		parent.Children = append(parent.Children, s)
	}
	return s
}

// VisibleVariables returns every name visible from this scope: its own
// plus every enclosing scope's.
func (s *Scope) VisibleVariables() map[string]bool {
	out := map[string]bool{}
	for cur := s; cur != nil; cur = cur.Parent {
		for name := range cur.Variables {
			out[name] = true
		}
	}
	return out
}

// ElementKind distinguishes the code elements a form builder lists.
type ElementKind string

const (
	ElementRoot     ElementKind = "root"
	ElementFunction ElementKind = "function"
	ElementLoop     ElementKind = "loop"
	ElementBranch   ElementKind = "branch"
)

// Element is one node of the code-element tree: a function definition or
// call site, a loop, or a branch, with its line, enclosing scope, and
// child elements.
type Element struct {
	Kind     ElementKind
	Line     int
	Scope    *Scope
	Parent   *Element
	Children []*Element

	// Function fields.
	Name         string
	Parameters   []string
	IsDefinition bool

	// Loop fields.
	LoopType string // "for" | "while"

	// Branch fields.
	Condition string
}

func newElement(kind ElementKind, line int, scope *Scope, parent *Element) *Element {
	e := &Element{Kind: kind, Line: line, Scope: scope, Parent: parent}
	if parent != nil {
		parent.Children = append(parent.Children, e)
	}
	return e
}

// Functions returns every Function-kind element in this element's subtree.
func (e *Element) Functions() []*Element { return e.collect(ElementFunction) }

// Loops returns every Loop-kind element in this element's subtree.
func (e *Element) Loops() []*Element { return e.collect(ElementLoop) }

// Branches returns every Branch-kind element in this element's subtree.
func (e *Element) Branches() []*Element { return e.collect(ElementBranch) }

func (e *Element) collect(kind ElementKind) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Kind == kind {
			out = append(out, c)
		}
		out = append(out, c.collect(kind)...)
	}
	return out
}

// Analysis is the result of walking one program: its root scope, root
// element, and flattened indexes of every function/loop/branch found.
type Analysis struct {
	RootScope   *Scope
	RootElement *Element
	Functions   []*Element
	Loops       []*Element
	Branches    []*Element
}

// Variables returns every variable name assigned anywhere in the program.
func (a *Analysis) Variables() map[string]bool {
	out := map[string]bool{}
	var walk func(s *Scope)
	walk = func(s *Scope) {
		for name := range s.Variables {
			out[name] = true
		}
		for _, c := range s.Children {
			walk(c)
		}
	}
	walk(a.RootScope)
	return out
}

type analyser struct {
	scope   *Scope
	element *Element
}

// Analyse walks prog's (untransformed) body and returns its lexical
// summary.
func Analyse(prog *ast.Program) *Analysis {
	rootScope := newScope(nil)
	rootElement := newElement(ElementRoot, 0, rootScope, nil)
	a := &analyser{scope: rootScope, element: rootElement}
	a.block(prog.Body)

	return &Analysis{
		RootScope:   rootScope,
		RootElement: rootElement,
		Functions:   rootElement.Functions(),
		Loops:       rootElement.Loops(),
		Branches:    rootElement.Branches(),
	}
}

func (a *analyser) enterScope() (restore func()) {
	prev := a.scope
	a.scope = newScope(prev)
	return func() { a.scope = prev }
}

func (a *analyser) enterElement(e *Element) (restore func()) {
	prev := a.element
	a.element = e
	return func() { a.element = prev }
}

func (a *analyser) block(b ast.Block) {
	for _, stmt := range b.Stmts {
		a.stmt(stmt)
	}
}

func (a *analyser) stmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.ClassDef:
		restore := a.enterScope()
		for _, m := range n.Methods {
			a.stmt(m)
		}
		restore()
	case *ast.FuncDef:
		restore := a.enterScope()
		params := make([]string, len(n.Params))
		for i, p := range n.Params {
			params[i] = p.Name
			a.scope.Variables[p.Name] = true
		}
		fn := newElement(ElementFunction, n.Line, a.scope, a.element)
		fn.Name = n.Name
		fn.Parameters = params
		fn.IsDefinition = true
		restoreEl := a.enterElement(fn)
		a.block(n.Body)
		restoreEl()
		restore()
	case *ast.For:
		loop := newElement(ElementLoop, n.Line, a.scope, a.element)
		loop.LoopType = "for"
		restore := a.enterElement(loop)
		for _, name := range targetNames(n.Target) {
			a.scope.Variables[name] = true
		}
		a.block(n.Body)
		restore()
	case *ast.While:
		loop := newElement(ElementLoop, n.Line, a.scope, a.element)
		loop.LoopType = "while"
		restore := a.enterElement(loop)
		a.block(n.Body)
		restore()
	case *ast.If:
		branch := newElement(ElementBranch, n.Line, a.scope, a.element)
		branch.Condition = n.Test.Source()
		restore := a.enterElement(branch)
		a.block(n.Body)
		a.block(n.OrElse)
		restore()
	case *ast.Assign:
		for _, t := range n.Targets {
			for _, name := range targetNames(t) {
				a.scope.Variables[name] = true
			}
		}
		a.expr(n.Value)
	case *ast.AugAssign:
		for _, name := range targetNames(n.Target) {
			a.scope.Variables[name] = true
		}
		a.expr(n.Value)
	case *ast.AnnAssign:
		for _, name := range targetNames(n.Target) {
			a.scope.Variables[name] = true
		}
		if n.Value != nil {
			a.expr(n.Value)
		}
	case *ast.ExprStmt:
		a.expr(n.X)
	case *ast.Return:
		if n.Value != nil {
			a.expr(n.Value)
		}
	}
}

// expr records call-site Function elements (is_definition=false) seen in
// an expression position, matching the original visitor's visit_Call.
func (a *analyser) expr(e ast.Expr) {
	switch n := e.(type) {
	case *ast.Call:
		name := callFuncName(n.Func)
		call := newElement(ElementFunction, n.Line, a.scope, a.element)
		call.Name = name
		call.IsDefinition = false
		for _, arg := range n.Args {
			a.expr(arg)
		}
	case *ast.Binary:
		a.expr(n.X)
		a.expr(n.Y)
	case *ast.Unary:
		a.expr(n.X)
	case *ast.Attr:
		a.expr(n.Value)
	case *ast.Subscript:
		a.expr(n.Value)
		a.expr(n.Index)
	case *ast.ListLit:
		for _, el := range n.Elems {
			a.expr(el)
		}
	case *ast.DictLit:
		for _, entry := range n.Entries {
			a.expr(entry.Key)
			a.expr(entry.Value)
		}
	}
}

func callFuncName(fn ast.Expr) string {
	switch n := fn.(type) {
	case *ast.Ident:
		return n.Name
	case *ast.Attr:
		return n.Name
	default:
		return "<unknown>"
	}
}

// targetNames extracts the variable(s) an assignment target binds: a bare
// name directly, the base object for attribute/subscript targets, and
// every element of a tuple target.
func targetNames(t ast.Expr) []string {
	switch n := t.(type) {
	case *ast.Ident:
		return []string{n.Name}
	case *ast.Tuple:
		var names []string
		for _, el := range n.Elems {
			names = append(names, targetNames(el)...)
		}
		return names
	case *ast.Attr:
		if base := baseName(n); base != "" {
			return []string{base}
		}
	case *ast.Subscript:
		if base := baseName(n); base != "" {
			return []string{base}
		}
	}
	return nil
}

func baseName(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.Ident:
		return n.Name
	case *ast.Attr:
		return baseName(n.Value)
	case *ast.Subscript:
		return baseName(n.Value)
	default:
		return ""
	}
}
