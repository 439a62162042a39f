// Package lexer scans source text into tokens, grounded on the
// hand-written scanner structure used by _examples/opal-lang-opal's
// pkgs/lexer (a rune-cursor struct with peek/advance helpers, one method
// per token family). Indentation is significant, Python-style: the lexer
// emits synthetic INDENT/DEDENT/NEWLINE tokens so the parser never has to
// look at raw whitespace.
package lexer

import (
	"fmt"
	"strings"

	"github.com/algotrace/tracequery/pkg/lang/token"
)

type Lexer struct {
	src       []rune
	pos       int
	line      int
	col       int
	indents   []int
	pending   []token.Token
	atLineStart bool
	parenDepth  int
}

func New(src string) *Lexer {
	return &Lexer{
		src:         []rune(src),
		line:        1,
		col:         1,
		indents:     []int{0},
		atLineStart: true,
	}
}

func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(off int) rune {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() rune {
	r := l.peek()
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

// Tokenize scans the entire source and returns the full token stream,
// terminated by an EOF token.
func (l *Lexer) Tokenize() ([]token.Token, error) {
	var out []token.Token
	for {
		if len(l.pending) > 0 {
			out = append(out, l.pending[0])
			l.pending = l.pending[1:]
			continue
		}
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.Kind == token.EOF {
			return out, nil
		}
	}
}

func (l *Lexer) next() (token.Token, error) {
	if l.atLineStart && l.parenDepth == 0 {
		if tok, ok, err := l.handleIndentation(); ok || err != nil {
			return tok, err
		}
	}
	l.skipInlineSpaceAndComments()

	if l.pos >= len(l.src) {
		if len(l.indents) > 1 {
			l.indents = l.indents[:len(l.indents)-1]
			return l.mk(token.DEDENT, ""), nil
		}
		return l.mk(token.EOF, ""), nil
	}

	line, col := l.line, l.col
	r := l.peek()

	switch {
	case r == '\n':
		l.advance()
		l.atLineStart = true
		if l.parenDepth > 0 {
			return l.next()
		}
		return token.Token{Kind: token.NEWLINE, Line: line, Column: col}, nil
	case isDigit(r):
		return l.lexNumber()
	case isIdentStart(r):
		return l.lexIdentOrKeyword()
	case r == '"' || r == '\'':
		return l.lexString()
	default:
		return l.lexOperator()
	}
}

func (l *Lexer) handleIndentation() (token.Token, bool, error) {
	start := l.pos
	width := 0
	for l.pos < len(l.src) {
		r := l.src[l.pos]
		if r == ' ' {
			width++
			l.pos++
		} else if r == '\t' {
			width += 8
			l.pos++
		} else {
			break
		}
	}
	l.col += l.pos - start

	if l.pos >= len(l.src) || l.peek() == '\n' || l.peek() == '#' {
		return token.Token{}, false, nil
	}

	l.atLineStart = false
	cur := l.indents[len(l.indents)-1]
	if width > cur {
		l.indents = append(l.indents, width)
		return l.mk(token.INDENT, ""), true, nil
	}
	if width < cur {
		l.indents = l.indents[:len(l.indents)-1]
		extra := 0
		for len(l.indents) > 0 && l.indents[len(l.indents)-1] > width {
			l.indents = l.indents[:len(l.indents)-1]
			extra++
		}
		if len(l.indents) == 0 || l.indents[len(l.indents)-1] != width {
			return token.Token{}, false, fmt.Errorf("lexer: inconsistent indentation at line %d", l.line)
		}
		for i := 0; i < extra; i++ {
			l.pending = append(l.pending, l.mk(token.DEDENT, ""))
		}
		return l.mk(token.DEDENT, ""), true, nil
	}
	return token.Token{}, false, nil
}

func (l *Lexer) skipInlineSpaceAndComments() {
	for {
		r := l.peek()
		if r == ' ' || r == '\t' || r == '\r' {
			l.advance()
			continue
		}
		if r == '#' {
			for l.peek() != '\n' && l.pos < len(l.src) {
				l.advance()
			}
			continue
		}
		break
	}
}

func (l *Lexer) mk(k token.Kind, lit string) token.Token {
	return token.Token{Kind: k, Lit: lit, Line: l.line, Column: l.col}
}

func isDigit(r rune) bool      { return r >= '0' && r <= '9' }
func isIdentStart(r rune) bool { return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
func isIdentCont(r rune) bool  { return isIdentStart(r) || isDigit(r) }

func (l *Lexer) lexNumber() (token.Token, error) {
	line, col := l.line, l.col
	var sb strings.Builder
	isFloat := false
	for isDigit(l.peek()) {
		sb.WriteRune(l.advance())
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		isFloat = true
		sb.WriteRune(l.advance())
		for isDigit(l.peek()) {
			sb.WriteRune(l.advance())
		}
	}
	k := token.INT
	if isFloat {
		k = token.FLOAT
	}
	return token.Token{Kind: k, Lit: sb.String(), Line: line, Column: col}, nil
}

func (l *Lexer) lexIdentOrKeyword() (token.Token, error) {
	line, col := l.line, l.col
	var sb strings.Builder
	for isIdentCont(l.peek()) {
		sb.WriteRune(l.advance())
	}
	name := sb.String()
	if kw, ok := token.Keywords[name]; ok {
		return token.Token{Kind: kw, Lit: name, Line: line, Column: col}, nil
	}
	return token.Token{Kind: token.IDENT, Lit: name, Line: line, Column: col}, nil
}

func (l *Lexer) lexString() (token.Token, error) {
	line, col := l.line, l.col
	quote := l.advance()
	var sb strings.Builder
	for l.peek() != quote {
		if l.pos >= len(l.src) {
			return token.Token{}, fmt.Errorf("lexer: unterminated string at line %d", line)
		}
		r := l.advance()
		if r == '\\' {
			esc := l.advance()
			switch esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			default:
				sb.WriteRune(esc)
			}
			continue
		}
		sb.WriteRune(r)
	}
	l.advance() // closing quote
	return token.Token{Kind: token.STRING, Lit: sb.String(), Line: line, Column: col}, nil
}

func (l *Lexer) lexOperator() (token.Token, error) {
	line, col := l.line, l.col
	r := l.advance()
	two := func(next rune, k2 token.Kind, k1 token.Kind) (token.Token, error) {
		if l.peek() == next {
			l.advance()
			return token.Token{Kind: k2, Line: line, Column: col}, nil
		}
		return token.Token{Kind: k1, Line: line, Column: col}, nil
	}
	switch r {
	case '+':
		return two('=', token.PLUS_EQ, token.PLUS)
	case '-':
		return two('=', token.MINUS_EQ, token.MINUS)
	case '*':
		return two('=', token.STAR_EQ, token.STAR)
	case '/':
		return two('=', token.SLASH_EQ, token.SLASH)
	case '%':
		return token.Token{Kind: token.PERCENT, Line: line, Column: col}, nil
	case '=':
		return two('=', token.EQ, token.ASSIGN)
	case '!':
		if l.peek() == '=' {
			l.advance()
			return token.Token{Kind: token.NEQ, Line: line, Column: col}, nil
		}
		return token.Token{}, fmt.Errorf("lexer: unexpected '!' at line %d", line)
	case '<':
		return two('=', token.LE, token.LT)
	case '>':
		return two('=', token.GE, token.GT)
	case ':':
		return token.Token{Kind: token.COLON, Line: line, Column: col}, nil
	case ',':
		return token.Token{Kind: token.COMMA, Line: line, Column: col}, nil
	case '.':
		return token.Token{Kind: token.DOT, Line: line, Column: col}, nil
	case '(':
		l.parenDepth++
		return token.Token{Kind: token.LPAREN, Line: line, Column: col}, nil
	case ')':
		l.parenDepth--
		return token.Token{Kind: token.RPAREN, Line: line, Column: col}, nil
	case '[':
		l.parenDepth++
		return token.Token{Kind: token.LBRACKET, Line: line, Column: col}, nil
	case ']':
		l.parenDepth--
		return token.Token{Kind: token.RBRACKET, Line: line, Column: col}, nil
	case '{':
		l.parenDepth++
		return token.Token{Kind: token.LBRACE, Line: line, Column: col}, nil
	case '}':
		l.parenDepth--
		return token.Token{Kind: token.RBRACE, Line: line, Column: col}, nil
	default:
		return token.Token{}, fmt.Errorf("lexer: unexpected character %q at line %d", r, line)
	}
}
