package filter

import (
	"github.com/log2timeline/acstore/errors"
)

// grammar (conventional precedence, lowest to highest):
//
//	expr       := orExpr
//	orExpr     := andExpr ("or" andExpr)*
//	andExpr    := unary ("and" unary)*
//	unary      := "not" unary | comparison
//	comparison := atom (compareOp atom)?
//	atom       := literal | field | "(" expr ")"
//	compareOp  := "==" | "!=" | "<" | "<=" | ">" | ">="

type parser struct {
	lex  *lexer
	cur  token
	seen map[string]bool
	order []string
}

// Parse compiles src into a Predicate, rejecting anything outside the
// restricted grammar described at the top of this file.
func Parse(src string) (*Predicate, error) {
	p := &parser{lex: newLexer(src), seen: map[string]bool{}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokEOF {
		return nil, errors.ParseErrorf("unexpected trailing input in filter expression")
	}
	return &Predicate{Root: root, Fields: p.order}, nil
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *parser) isKeyword(kw string) bool {
	return p.cur.kind == tokIdent && p.cur.text == kw
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("or") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("and") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &And{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.isKeyword("not") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Not{Expr: inner}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	op, ok := compareOpFor(p.cur.kind)
	if !ok {
		return left, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	right, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	return &Comparison{Left: left, Op: op, Right: right}, nil
}

func compareOpFor(k tokenKind) (Op, bool) {
	switch k {
	case tokEq:
		return Eq, true
	case tokNe:
		return Ne, true
	case tokLt:
		return Lt, true
	case tokLe:
		return Le, true
	case tokGt:
		return Gt, true
	case tokGe:
		return Ge, true
	default:
		return 0, false
	}
}

func (p *parser) parseAtom() (Expr, error) {
	switch p.cur.kind {
	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur.kind != tokRParen {
			return nil, errors.ParseErrorf("expected ')' in filter expression")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return inner, nil
	case tokInt:
		n := p.cur.ival
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Kind: LiteralInt, Int: n}, nil
	case tokString:
		s := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Kind: LiteralString, Str: s}, nil
	case tokIdent:
		text := p.cur.text
		switch text {
		case "true", "false":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return &Literal{Kind: LiteralBool, Bool: text == "true"}, nil
		case "and", "or", "not":
			return nil, errors.ParseErrorf("unexpected keyword %q in filter expression", text)
		default:
			if err := p.advance(); err != nil {
				return nil, err
			}
			if !p.seen[text] {
				p.seen[text] = true
				p.order = append(p.order, text)
			}
			return &Field{Name: text}, nil
		}
	default:
		return nil, errors.ParseErrorf("unexpected token in filter expression")
	}
}
