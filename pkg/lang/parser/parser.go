// Package parser builds a pkg/lang/ast tree via recursive descent with a
// Pratt-style expression parser, the structural idiom used by
// _examples/opal-lang-opal/core's parser (one method per grammar
// production, a small precedence table driving binary-operator parsing).
package parser

import (
	"fmt"

	"github.com/algotrace/tracequery/pkg/lang/ast"
	"github.com/algotrace/tracequery/pkg/lang/lexer"
	"github.com/algotrace/tracequery/pkg/lang/token"
)

type Parser struct {
	toks []token.Token
	pos  int
	src  []rune
}

func Parse(src string) (*ast.Program, error) {
	lx := lexer.New(src)
	toks, err := lx.Tokenize()
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks, src: []rune(src)}
	return p.parseProgram()
}

func (p *Parser) cur() token.Token  { return p.toks[p.pos] }
func (p *Parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	if !p.at(k) {
		return token.Token{}, fmt.Errorf("parser: line %d: expected %s, got %s %q", p.cur().Line, k, p.cur().Kind, p.cur().Lit)
	}
	return p.advance(), nil
}

func (p *Parser) skipNewlines() {
	for p.at(token.NEWLINE) {
		p.advance()
	}
}

func (p *Parser) parseProgram() (*ast.Program, error) {
	body, err := p.parseBlockTopLevel()
	if err != nil {
		return nil, err
	}
	return &ast.Program{Body: body}, nil
}

func (p *Parser) parseBlockTopLevel() (ast.Block, error) {
	var b ast.Block
	p.skipNewlines()
	for !p.at(token.EOF) {
		s, err := p.parseStmt()
		if err != nil {
			return b, err
		}
		b.Stmts = append(b.Stmts, s)
		p.skipNewlines()
	}
	return b, nil
}

// parseSuite parses `:` NEWLINE INDENT stmt+ DEDENT
func (p *Parser) parseSuite() (ast.Block, error) {
	var b ast.Block
	if _, err := p.expect(token.COLON); err != nil {
		return b, err
	}
	if _, err := p.expect(token.NEWLINE); err != nil {
		return b, err
	}
	p.skipNewlines()
	if _, err := p.expect(token.INDENT); err != nil {
		return b, err
	}
	for !p.at(token.DEDENT) && !p.at(token.EOF) {
		s, err := p.parseStmt()
		if err != nil {
			return b, err
		}
		b.Stmts = append(b.Stmts, s)
		p.skipNewlines()
	}
	if _, err := p.expect(token.DEDENT); err != nil {
		return b, err
	}
	return b, nil
}

func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch p.cur().Kind {
	case token.KW_IF:
		return p.parseIf()
	case token.KW_FOR:
		return p.parseFor()
	case token.KW_WHILE:
		return p.parseWhile()
	case token.KW_DEF:
		return p.parseFuncDef()
	case token.KW_CLASS:
		return p.parseClassDef()
	case token.KW_RETURN:
		return p.parseReturn()
	default:
		return p.parseSimpleStmt()
	}
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	line := p.cur().Line
	p.advance() // if/elif
	test, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	node := &ast.If{Test: test, Body: body}
	node.Line = line

	switch p.cur().Kind {
	case token.KW_ELIF:
		orElse, err := p.parseIf()
		if err != nil {
			return nil, err
		}
		node.OrElse = ast.Block{Stmts: []ast.Stmt{orElse}}
	case token.KW_ELSE:
		p.advance()
		orElse, err := p.parseSuite()
		if err != nil {
			return nil, err
		}
		node.OrElse = orElse
	}
	return node, nil
}

func (p *Parser) parseFor() (ast.Stmt, error) {
	line := p.cur().Line
	p.advance()
	target, err := p.parseTargetExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.KW_IN); err != nil {
		return nil, err
	}
	iter, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	n := &ast.For{Target: target, Iter: iter, Body: body}
	n.Line = line
	return n, nil
}

// parseTargetExpr parses `name`, `a, b` or `(a, b)` loop targets.
func (p *Parser) parseTargetExpr() (ast.Expr, error) {
	if p.at(token.LPAREN) {
		line := p.cur().Line
		p.advance()
		var elems []ast.Expr
		for !p.at(token.RPAREN) {
			e, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if p.at(token.COMMA) {
				p.advance()
			}
		}
		p.advance()
		return &ast.Tuple{ExprBase: ast.NewExprBase(line, ""), Elems: elems}, nil
	}
	first, err := p.parsePrimary()
	if err != nil || !p.at(token.COMMA) {
		return first, err
	}
	elems := []ast.Expr{first}
	for p.at(token.COMMA) {
		p.advance()
		e, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	return &ast.Tuple{ExprBase: ast.NewExprBase(first.Pos(), ""), Elems: elems}, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	line := p.cur().Line
	p.advance()
	test, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	n := &ast.While{Test: test, Body: body}
	n.Line = line
	return n, nil
}

func (p *Parser) parseFuncDef() (ast.Stmt, error) {
	line := p.cur().Line
	p.advance()
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var params []ast.Param
	for !p.at(token.RPAREN) {
		pn, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		prm := ast.Param{Name: pn.Lit}
		if p.at(token.ASSIGN) {
			p.advance()
			def, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			prm.Default = def
		}
		params = append(params, prm)
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	n := &ast.FuncDef{Name: name.Lit, Params: params, Body: body}
	n.Line = line
	return n, nil
}

func (p *Parser) parseClassDef() (ast.Stmt, error) {
	line := p.cur().Line
	p.advance()
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.COLON); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.NEWLINE); err != nil {
		return nil, err
	}
	p.skipNewlines()
	if _, err := p.expect(token.INDENT); err != nil {
		return nil, err
	}
	var methods []*ast.FuncDef
	for !p.at(token.DEDENT) && !p.at(token.EOF) {
		if !p.at(token.KW_DEF) {
			return nil, fmt.Errorf("parser: line %d: only method defs allowed in class body", p.cur().Line)
		}
		m, err := p.parseFuncDef()
		if err != nil {
			return nil, err
		}
		methods = append(methods, m.(*ast.FuncDef))
		p.skipNewlines()
	}
	if _, err := p.expect(token.DEDENT); err != nil {
		return nil, err
	}
	n := &ast.ClassDef{Name: name.Lit, Methods: methods}
	n.Line = line
	return n, nil
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	line := p.cur().Line
	p.advance()
	n := &ast.Return{}
	n.Line = line
	if !p.at(token.NEWLINE) && !p.at(token.EOF) {
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		n.Value = v
	}
	return n, nil
}

func (p *Parser) parseSimpleStmt() (ast.Stmt, error) {
	startLine := p.cur().Line
	// tuple parses `x` as-is and a bare comma list `a, b` as an *ast.Tuple.
	tuple := func() (ast.Expr, error) {
		x, err := p.parseExpr()
		if err != nil || !p.at(token.COMMA) {
			return x, err
		}
		elems, src := []ast.Expr{x}, x.Source()
		for p.at(token.COMMA) {
			p.advance()
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems, src = append(elems, e), src+", "+e.Source()
		}
		return &ast.Tuple{ExprBase: ast.NewExprBase(startLine, src), Elems: elems}, nil
	}
	first, err := tuple()
	if err != nil {
		return nil, err
	}

	switch p.cur().Kind {
	case token.COLON: // annotated assignment: name: Type = expr
		p.advance()
		typeName, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		var value ast.Expr
		if p.at(token.ASSIGN) {
			p.advance()
			value, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		n := &ast.AnnAssign{Target: first, Annotation: typeName.Lit, Value: value}
		n.Line = startLine
		return n, nil
	case token.ASSIGN:
		targets := []ast.Expr{first}
		var value ast.Expr
		for p.at(token.ASSIGN) {
			p.advance()
			v, err := tuple()
			if err != nil {
				return nil, err
			}
			if p.at(token.ASSIGN) {
				targets = append(targets, v)
				continue
			}
			value = v
		}
		n := &ast.Assign{Targets: targets, Value: value}
		n.Line = startLine
		return n, nil
	case token.PLUS_EQ, token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ:
		opTok := p.advance()
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		op := map[token.Kind]string{
			token.PLUS_EQ: "+", token.MINUS_EQ: "-", token.STAR_EQ: "*", token.SLASH_EQ: "/",
		}[opTok.Kind]
		n := &ast.AugAssign{Target: first, Op: op, Value: v}
		n.Line = startLine
		return n, nil
	default:
		n := &ast.ExprStmt{X: first}
		n.Line = startLine
		return n, nil
	}
}

// ---- expressions (Pratt parser) ----

var precedence = map[token.Kind]int{
	token.KW_OR:  1,
	token.KW_AND: 2,
	token.EQ:     3, token.NEQ: 3, token.LT: 3, token.LE: 3, token.GT: 3, token.GE: 3,
	token.KW_IN: 3,
	token.PLUS:  4, token.MINUS: 4,
	token.STAR: 5, token.SLASH: 5, token.PERCENT: 5,
}

func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseBinary(0)
}

func (p *Parser) parseBinary(minPrec int) (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		if p.at(token.KW_NOT) && p.toks[p.pos+1].Kind == token.KW_IN {
			prec := precedence[token.KW_IN]
			if prec < minPrec {
				break
			}
			startLine := p.cur().Line
			p.advance()
			p.advance()
			right, err := p.parseBinary(prec + 1)
			if err != nil {
				return nil, err
			}
			left = mkBinary(startLine, left, "not in", right)
			continue
		}
		prec, has := precedence[p.cur().Kind]
		if !has || prec < minPrec {
			break
		}
		opTok := p.advance()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = mkBinary(opTok.Line, left, opTok.Kind.String(), right)
	}
	return left, nil
}

func mkBinary(line int, x ast.Expr, op string, y ast.Expr) ast.Expr {
	n := &ast.Binary{Op: op, X: x, Y: y}
	n.Line = line
	n.Src = x.Source() + " " + op + " " + y.Source()
	return n
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	switch p.cur().Kind {
	case token.MINUS:
		line := p.cur().Line
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n := &ast.Unary{Op: "-", X: x}
		n.Line = line
		n.Src = "-" + x.Source()
		return n, nil
	case token.KW_NOT:
		line := p.cur().Line
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n := &ast.Unary{Op: "not", X: x}
		n.Line = line
		n.Src = "not " + x.Source()
		return n, nil
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Kind {
		case token.DOT:
			p.advance()
			name, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			n := &ast.Attr{Value: expr, Name: name.Lit}
			n.Line = expr.Pos()
			n.Src = expr.Source() + "." + name.Lit
			expr = n
		case token.LBRACKET:
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRACKET); err != nil {
				return nil, err
			}
			n := &ast.Subscript{Value: expr, Index: idx}
			n.Line = expr.Pos()
			n.Src = expr.Source() + "[" + idx.Source() + "]"
			expr = n
		case token.LPAREN:
			call, err := p.parseCallArgs(expr)
			if err != nil {
				return nil, err
			}
			expr = call
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseCallArgs(fn ast.Expr) (ast.Expr, error) {
	p.advance() // (
	call := &ast.Call{Func: fn}
	call.Line = fn.Pos()
	for !p.at(token.RPAREN) {
		if p.at(token.IDENT) && p.toks[p.pos+1].Kind == token.ASSIGN {
			name := p.advance().Lit
			p.advance() // =
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			call.Kwargs = append(call.Kwargs, ast.KwArg{Name: name, Value: v})
		} else {
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, v)
		}
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	call.Src = fn.Source() + "(...)"
	return call, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	t := p.cur()
	switch t.Kind {
	case token.INT:
		p.advance()
		var v int64
		fmt.Sscan(t.Lit, &v)
		return &ast.IntLit{ExprBase: ast.NewExprBase(t.Line, t.Lit), Value: v}, nil
	case token.FLOAT:
		p.advance()
		var v float64
		fmt.Sscan(t.Lit, &v)
		return &ast.FloatLit{ExprBase: ast.NewExprBase(t.Line, t.Lit), Value: v}, nil
	case token.STRING:
		p.advance()
		return &ast.StringLit{ExprBase: ast.NewExprBase(t.Line, fmt.Sprintf("%q", t.Lit)), Value: t.Lit}, nil
	case token.KW_TRUE:
		p.advance()
		return &ast.BoolLit{ExprBase: ast.NewExprBase(t.Line, "True"), Value: true}, nil
	case token.KW_FALSE:
		p.advance()
		return &ast.BoolLit{ExprBase: ast.NewExprBase(t.Line, "False"), Value: false}, nil
	case token.KW_NIL:
		p.advance()
		return &ast.NilLit{ExprBase: ast.NewExprBase(t.Line, "None")}, nil
	case token.IDENT:
		p.advance()
		return &ast.Ident{ExprBase: ast.NewExprBase(t.Line, t.Lit), Name: t.Lit}, nil
	case token.LPAREN:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return inner, nil
	case token.LBRACKET:
		return p.parseListLit()
	case token.LBRACE:
		return p.parseDictLit()
	default:
		return nil, fmt.Errorf("parser: line %d: unexpected token %s %q", t.Line, t.Kind, t.Lit)
	}
}

func (p *Parser) parseListLit() (ast.Expr, error) {
	line := p.cur().Line
	p.advance()
	n := &ast.ListLit{}
	n.Line = line
	for !p.at(token.RBRACKET) {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		n.Elems = append(n.Elems, e)
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	if _, err := p.expect(token.RBRACKET); err != nil {
		return nil, err
	}
	n.Src = "[...]"
	return n, nil
}

func (p *Parser) parseDictLit() (ast.Expr, error) {
	line := p.cur().Line
	p.advance()
	n := &ast.DictLit{}
	n.Line = line
	for !p.at(token.RBRACE) {
		k, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.COLON); err != nil {
			return nil, err
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		n.Entries = append(n.Entries, ast.DictEntry{Key: k, Value: v})
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	n.Src = "{...}"
	return n, nil
}
