package sexpr

import (
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/chazu/tinyvm/pkg/ast"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokError
	tokLParen
	tokRParen
	tokSymbol
	tokInt
	tokChar
	tokString
)

type token struct {
	typ  tokenType
	text string
	pos  ast.Position
}

func (t token) String() string {
	switch t.typ {
	case tokEOF:
		return "end of input"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	}
	return fmt.Sprintf("%q", t.text)
}

type lexer struct {
	src  string
	off  int
	line int
	col  int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

func (l *lexer) peek() rune {
	if l.off >= len(l.src) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.off:])
	return r
}

func (l *lexer) advance(n int) {
	for _, r := range l.src[l.off : l.off+n] {
		if r == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
	}
	l.off += n
}

func (l *lexer) skipSpaceAndComments() {
	for l.off < len(l.src) {
		r := l.peek()
		switch {
		case r == ';':
			for l.off < len(l.src) && l.peek() != '\n' {
				l.advance(utf8.RuneLen(l.peek()))
			}
		case unicode.IsSpace(r):
			l.advance(utf8.RuneLen(r))
		default:
			return
		}
	}
}

func isDelimiter(r rune) bool {
	return r == -1 || r == '(' || r == ')' || r == ';' || r == '"' || r == '\'' || unicode.IsSpace(r)
}

func (l *lexer) next() token {
	l.skipSpaceAndComments()
	pos := ast.Position{Line: l.line, Column: l.col}
	if l.off >= len(l.src) {
		return token{typ: tokEOF, pos: pos}
	}
	switch r := l.peek(); r {
	case '(':
		l.advance(1)
		return token{typ: tokLParen, text: "(", pos: pos}
	case ')':
		l.advance(1)
		return token{typ: tokRParen, text: ")", pos: pos}
	case '"', '\'':
		quoted, err := strconv.QuotedPrefix(l.src[l.off:])
		if err != nil {
			l.off = len(l.src)
			return token{typ: tokError, text: "unterminated literal", pos: pos}
		}
		l.advance(len(quoted))
		value, err := strconv.Unquote(quoted)
		if err != nil {
			return token{typ: tokError, text: fmt.Sprintf("bad literal %s", quoted), pos: pos}
		}
		if r == '\'' {
			return token{typ: tokChar, text: value, pos: pos}
		}
		return token{typ: tokString, text: value, pos: pos}
	}

	start := l.off
	for !isDelimiter(l.peek()) {
		l.advance(utf8.RuneLen(l.peek()))
	}
	text := l.src[start:l.off]
	if isInteger(text) {
		return token{typ: tokInt, text: text, pos: pos}
	}
	return token{typ: tokSymbol, text: text, pos: pos}
}

func isInteger(s string) bool {
	if len(s) > 0 && s[0] == '-' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
