package calculator

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrMalformedExpression is returned when the input is not a valid
	// four-operator arithmetic expression.
	ErrMalformedExpression = errors.New("malformed expression")

	// ErrNonFinite is returned when an expression evaluates to ±Inf or NaN,
	// for example on division by zero.
	ErrNonFinite = errors.New("non-finite result")
)

const maxDepth = 256

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokNumber
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokPercent
	tokLParen
	tokRParen
	tokInvalid
)

type token struct {
	kind tokenKind
	pos  int
	text string
	num  float64
}

type lexer struct {
	s string
	i int
}

func (l *lexer) next() token {
	for l.i < len(l.s) {
		r, size := utf8.DecodeRuneInString(l.s[l.i:])
		if !unicode.IsSpace(r) {
			break
		}
		l.i += size
	}
	if l.i >= len(l.s) {
		return token{kind: tokEOF, pos: l.i}
	}

	start := l.i
	r, size := utf8.DecodeRuneInString(l.s[l.i:])

	kind := tokInvalid
	switch r {
	case '+':
		kind = tokPlus
	case '-', '−':
		kind = tokMinus
	case '*', '×':
		kind = tokStar
	case '/', '÷':
		kind = tokSlash
	case '%':
		kind = tokPercent
	case '(':
		kind = tokLParen
	case ')':
		kind = tokRParen
	}
	if kind != tokInvalid {
		l.i += size
		return token{kind: kind, pos: start, text: string(r)}
	}

	if r == '.' || (r >= '0' && r <= '9') {
		l.i = scanNumber(l.s, l.i)
		txt := l.s[start:l.i]
		f, err := strconv.ParseFloat(txt, 64)
		if err != nil {
			return token{kind: tokInvalid, pos: start, text: txt}
		}
		return token{kind: tokNumber, pos: start, text: txt, num: f}
	}

	l.i += size
	return token{kind: tokInvalid, pos: start, text: string(r)}
}

// scanNumber returns the end offset of the numeric literal starting at i.
// Accepted forms: "12", "1.5", ".5", "5." and an optional exponent ("1e+21").
func scanNumber(s string, i int) int {
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && s[k] >= '0' && s[k] <= '9' {
			k++
		}
		if k > j {
			i = k
		}
	}
	return i
}

type parser struct {
	l     lexer
	cur   token
	depth int
}

func (p *parser) advance() {
	p.cur = p.l.next()
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s at offset %d", ErrMalformedExpression, fmt.Sprintf(format, args...), p.cur.pos)
}

// Evaluate parses and computes a four-operator infix expression using
// float64 arithmetic. Multiplication and division bind tighter than addition
// and subtraction; operators of equal precedence associate left to right.
//
// The token set is closed: digits, '.', exponents on literals, + - * / and
// their display glyphs (− × ÷), postfix % (divide by 100), parentheses and
// whitespace. Any other input is rejected with ErrMalformedExpression.
func Evaluate(expr string) (float64, error) {
	p := &parser{l: lexer{s: expr}}
	p.advance()

	if p.cur.kind == tokEOF {
		return 0, p.errorf("empty expression")
	}

	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.cur.kind != tokEOF {
		return 0, p.errorf("unexpected %q", p.cur.text)
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s evaluates to %g", ErrNonFinite, expr, v)
	}

	return v, nil
}

func (p *parser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}

	for p.cur.kind == tokPlus || p.cur.kind == tokMinus {
		op := p.cur.kind
		p.advance()

		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}

		if op == tokPlus {
			left += right
		} else {
			left -= right
		}
	}

	return left, nil
}

func (p *parser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}

	for p.cur.kind == tokStar || p.cur.kind == tokSlash {
		op := p.cur.kind
		p.advance()

		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}

		if op == tokStar {
			left *= right
		} else {
			left /= right
		}
	}

	return left, nil
}

func (p *parser) parseUnary() (float64, error) {
	switch p.cur.kind {
	case tokPlus, tokMinus:
		neg := p.cur.kind == tokMinus

		if err := p.enter(); err != nil {
			return 0, err
		}
		defer p.leave()

		p.advance()
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if neg {
			v = -v
		}
		return v, nil
	}

	return p.parsePostfix()
}

func (p *parser) parsePostfix() (float64, error) {
	v, err := p.parsePrimary()
	if err != nil {
		return 0, err
	}

	for p.cur.kind == tokPercent {
		v /= 100
		p.advance()
	}

	return v, nil
}

func (p *parser) parsePrimary() (float64, error) {
	switch p.cur.kind {
	case tokNumber:
		v := p.cur.num
		p.advance()
		return v, nil

	case tokLParen:
		if err := p.enter(); err != nil {
			return 0, err
		}
		defer p.leave()

		p.advance()
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.cur.kind != tokRParen {
			return 0, p.errorf("missing closing parenthesis")
		}
		p.advance()
		return v, nil

	case tokEOF:
		return 0, p.errorf("unexpected end of expression")
	}

	return 0, p.errorf("unexpected %q", p.cur.text)
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return p.errorf("nesting deeper than %d", maxDepth)
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}
