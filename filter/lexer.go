package filter

import (
	"strings"

	"github.com/log2timeline/acstore/errors"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokInt
	tokString
	tokIdent // field name, or the keywords and/or/not/true/false
	tokEq
	tokNe
	tokLt
	tokLe
	tokGt
	tokGe
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string // raw text for idents; decoded text for strings
	ival int64
}

// lexer tokenizes a filter expression. It is deliberately minimal: the
// grammar has no attribute access, no call syntax, and no subscripting, so
// the token set above is exhaustive.
type lexer struct {
	src string
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: src}
}

func (l *lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			l.pos++
			continue
		}
		break
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// next returns the next token, advancing the lexer.
func (l *lexer) next() (token, error) {
	l.skipSpace()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF}, nil
	}

	c := l.src[l.pos]

	switch c {
	case '(':
		l.pos++
		return token{kind: tokLParen}, nil
	case ')':
		l.pos++
		return token{kind: tokRParen}, nil
	case '=':
		if l.pos+1 < len(l.src) && l.src[l.pos+1] == '=' {
			l.pos += 2
			return token{kind: tokEq}, nil
		}
		return token{}, errors.ParseErrorf("unexpected '=' at position %d, did you mean '=='?", l.pos)
	case '!':
		if l.pos+1 < len(l.src) && l.src[l.pos+1] == '=' {
			l.pos += 2
			return token{kind: tokNe}, nil
		}
		return token{}, errors.ParseErrorf("unexpected '!' at position %d", l.pos)
	case '<':
		if l.pos+1 < len(l.src) && l.src[l.pos+1] == '=' {
			l.pos += 2
			return token{kind: tokLe}, nil
		}
		l.pos++
		return token{kind: tokLt}, nil
	case '>':
		if l.pos+1 < len(l.src) && l.src[l.pos+1] == '=' {
			l.pos += 2
			return token{kind: tokGe}, nil
		}
		l.pos++
		return token{kind: tokGt}, nil
	case '"', '\'':
		return l.lexString(c)
	}

	if isDigit(c) {
		return l.lexInt()
	}
	if isIdentStart(c) {
		return l.lexIdent()
	}

	return token{}, errors.ParseErrorf("unexpected character %q at position %d", c, l.pos)
}

func (l *lexer) lexInt() (token, error) {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	text := l.src[start:l.pos]
	var n int64
	for i := 0; i < len(text); i++ {
		n = n*10 + int64(text[i]-'0')
	}
	return token{kind: tokInt, ival: n, text: text}, nil
}

func (l *lexer) lexIdent() (token, error) {
	start := l.pos
	for l.pos < len(l.src) && isIdentCont(l.src[l.pos]) {
		l.pos++
	}
	return token{kind: tokIdent, text: l.src[start:l.pos]}, nil
}

func (l *lexer) lexString(quote byte) (token, error) {
	start := l.pos
	l.pos++ // consume opening quote
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token{}, errors.ParseErrorf("unterminated string literal starting at position %d", start)
		}
		c := l.src[l.pos]
		if c == quote {
			l.pos++
			return token{kind: tokString, text: sb.String()}, nil
		}
		if c == '\\' && l.pos+1 < len(l.src) {
			next := l.src[l.pos+1]
			switch next {
			case quote, '\\':
				sb.WriteByte(next)
				l.pos += 2
				continue
			}
		}
		sb.WriteByte(c)
		l.pos++
	}
}
