package solver

import (
	"fmt"
	"math/big"
	"strconv"
	"unicode"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokFunc
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokCaret
	tokLParen
	tokRParen
	tokIllegal
)

type token struct {
	kind tokenKind
	text string
}

// knownNames are matched before falling back to single-letter variables,
// longest first. Function names only count when "(" follows.
var knownNames = []string{"asin", "acos", "atan", "sqrt", "sin", "cos", "tan", "log", "exp", "abs", "ln", "pi"}

const constPi = "pi"

type lexer struct {
	s string
	i int
}

func (l *lexer) next() token {
	for l.i < len(l.s) && unicode.IsSpace(rune(l.s[l.i])) {
		l.i++
	}
	if l.i >= len(l.s) {
		return token{kind: tokEOF}
	}

	switch l.s[l.i] {
	case '+':
		l.i++
		return token{kind: tokPlus, text: "+"}
	case '-':
		l.i++
		return token{kind: tokMinus, text: "-"}
	case '*':
		l.i++
		return token{kind: tokStar, text: "*"}
	case '/':
		l.i++
		return token{kind: tokSlash, text: "/"}
	case '^':
		l.i++
		return token{kind: tokCaret, text: "^"}
	case '(':
		l.i++
		return token{kind: tokLParen, text: "("}
	case ')':
		l.i++
		return token{kind: tokRParen, text: ")"}
	}

	ch := l.s[l.i]
	if isLetter(ch) {
		for _, name := range knownNames {
			end := l.i + len(name)
			if end > len(l.s) || l.s[l.i:end] != name {
				continue
			}
			if name == constPi {
				l.i = end
				return token{kind: tokIdent, text: name}
			}
			if end < len(l.s) && l.s[end] == '(' {
				l.i = end
				return token{kind: tokFunc, text: name}
			}
		}
		// Adjacent letters are separate variables: "xy" is x*y.
		l.i++
		return token{kind: tokIdent, text: string(ch)}
	}
	if ch == '.' || isDigit(ch) {
		start := l.i
		for l.i < len(l.s) && isDigit(l.s[l.i]) {
			l.i++
		}
		if l.i < len(l.s) && l.s[l.i] == '.' {
			l.i++
			for l.i < len(l.s) && isDigit(l.s[l.i]) {
				l.i++
			}
		}
		txt := l.s[start:l.i]
		if txt == "." || (l.i < len(l.s) && l.s[l.i] == '.') {
			return token{kind: tokIllegal, text: txt}
		}
		return token{kind: tokNumber, text: txt}
	}

	l.i++
	return token{kind: tokIllegal, text: string(ch)}
}

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }

type parser struct {
	l   lexer
	cur token
}

// parse reads a whole expression; trailing input is an error
func parse(s string) (node, error) {
	p := &parser{l: lexer{s: s}}
	p.next()
	if p.cur.kind == tokEOF {
		return nil, fmt.Errorf("%w: empty expression", ErrParse)
	}
	ex, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %q", ErrParse, p.cur.text)
	}
	return ex, nil
}

func (p *parser) next() { p.cur = p.l.next() }

func (p *parser) parseSum() (node, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokPlus || p.cur.kind == tokMinus {
		op := p.cur.text[0]
		p.next()
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		left = nodeBinary{op: op, left: left, right: right}
	}
	return left, nil
}

// parseProduct also accepts implicit multiplication when a variable, call
// or parenthesis directly follows an operand ("2(x+1)", "xy").
func (p *parser) parseProduct() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op byte
		switch p.cur.kind {
		case tokStar, tokSlash:
			op = p.cur.text[0]
			p.next()
		case tokIdent, tokFunc, tokLParen:
			op = '*'
		default:
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = nodeBinary{op: op, left: left, right: right}
	}
}

// parseUnary binds looser than "^", so -x^2 is -(x^2).
func (p *parser) parseUnary() (node, error) {
	if p.cur.kind == tokPlus || p.cur.kind == tokMinus {
		op := p.cur.text[0]
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if op == '+' {
			return x, nil
		}
		return nodeUnary{op: op, x: x}, nil
	}
	return p.parsePower()
}

// parsePower is right-associative; the exponent may carry a sign (2^-1).
func (p *parser) parsePower() (node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.cur.kind == tokCaret {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return nodeBinary{op: '^', left: left, right: right}, nil
	}
	return left, nil
}

func (p *parser) parsePrimary() (node, error) {
	switch p.cur.kind {
	case tokNumber:
		txt := p.cur.text
		p.next()
		r, ok := new(big.Rat).SetString(txt)
		if !ok {
			return nil, fmt.Errorf("%w: bad number %q", ErrParse, txt)
		}
		f, err := strconv.ParseFloat(txt, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q", ErrParse, txt)
		}
		return nodeNumber{text: txt, rat: r, f: f}, nil
	case tokIdent:
		name := p.cur.text
		p.next()
		return nodeIdent{name: name}, nil
	case tokFunc:
		name := p.cur.text
		p.next()
		if p.cur.kind != tokLParen {
			return nil, fmt.Errorf("%w: expected '(' after %s", ErrParse, name)
		}
		p.next()
		arg, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if p.cur.kind != tokRParen {
			return nil, fmt.Errorf("%w: expected ')'", ErrParse)
		}
		p.next()
		return nodeCall{name: name, arg: arg}, nil
	case tokLParen:
		p.next()
		ex, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if p.cur.kind != tokRParen {
			return nil, fmt.Errorf("%w: expected ')'", ErrParse)
		}
		p.next()
		return nodeParen{x: ex}, nil
	case tokEOF:
		return nil, fmt.Errorf("%w: unexpected end of expression", ErrParse)
	default:
		return nil, fmt.Errorf("%w: unexpected %q", ErrParse, p.cur.text)
	}
}
