package canvas

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// FormulaError is a calculated-field formula that could not be evaluated.
type FormulaError struct {
	Formula string
	Pos     int
	Msg     string
}

func (e *FormulaError) Error() string {
	return fmt.Sprintf("formula %q: %s at position %d", e.Formula, e.Msg, e.Pos)
}

// Evaluate computes an arithmetic formula over vars. The grammar is numbers, variables
// (bare or as {{name}}), + - * / %, unary minus, parentheses and the functions
// min, max, sum, avg, abs, round, floor and ceil. Nothing else is executed.
func Evaluate(formula string, vars map[string]float64) (float64, error) {
	p := &formulaParser{src: formula, vars: vars}
	if err := p.tokenize(); err != nil {
		return 0, err
	}
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return 0, p.errorf(tok.pos, "unexpected %q", tok.text)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, p.errorf(0, "result is not a finite number")
	}
	return v, nil
}

// FormatNumber renders v with a fixed number of decimals.
func FormatNumber(v float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokNum
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokKind
	text string
	num  float64
	pos  int
}

type formulaParser struct {
	src    string
	vars   map[string]float64
	tokens []token
	i      int
}

func (p *formulaParser) errorf(pos int, format string, args ...interface{}) error {
	return &FormulaError{Formula: p.src, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *formulaParser) tokenize() error {
	src := p.src
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c >= '0' && c <= '9' || c == '.':
			j := i
			for j < len(src) && (src[j] >= '0' && src[j] <= '9' || src[j] == '.') {
				j++
			}
			n, err := strconv.ParseFloat(src[i:j], 64)
			if err != nil {
				return p.errorf(i, "bad number %q", src[i:j])
			}
			p.tokens = append(p.tokens, token{kind: tokNum, text: src[i:j], num: n, pos: i})
			i = j
		case strings.HasPrefix(src[i:], openDelim):
			end := strings.Index(src[i:], closeDelim)
			if end < 0 {
				return p.errorf(i, "unterminated placeholder")
			}
			name := strings.TrimSpace(src[i+len(openDelim) : i+end])
			if !isIdentifier(name) {
				return p.errorf(i, "bad placeholder %q", src[i:i+end+len(closeDelim)])
			}
			p.tokens = append(p.tokens, token{kind: tokIdent, text: name, pos: i})
			i += end + len(closeDelim)
		case c == '_' || unicode.IsLetter(rune(c)):
			j := i
			for j < len(src) && (src[j] == '_' || unicode.IsLetter(rune(src[j])) || src[j] >= '0' && src[j] <= '9') {
				j++
			}
			p.tokens = append(p.tokens, token{kind: tokIdent, text: src[i:j], pos: i})
			i = j
		case strings.IndexByte("+-*/%", c) >= 0:
			p.tokens = append(p.tokens, token{kind: tokOp, text: string(c), pos: i})
			i++
		case c == '(':
			p.tokens = append(p.tokens, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			p.tokens = append(p.tokens, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == ',':
			p.tokens = append(p.tokens, token{kind: tokComma, text: ",", pos: i})
			i++
		default:
			return p.errorf(i, "unexpected character %q", c)
		}
	}
	p.tokens = append(p.tokens, token{kind: tokEOF, pos: len(src)})
	return nil
}

func (p *formulaParser) peek() token { return p.tokens[p.i] }

func (p *formulaParser) next() token {
	tok := p.tokens[p.i]
	if tok.kind != tokEOF {
		p.i++
	}
	return tok
}

// expr := term (('+' | '-') term)*
func (p *formulaParser) expr() (float64, error) {
	left, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokOp || (tok.text != "+" && tok.text != "-") {
			return left, nil
		}
		p.next()
		right, err := p.term()
		if err != nil {
			return 0, err
		}
		if tok.text == "+" {
			left += right
		} else {
			left -= right
		}
	}
}

// term := unary (('*' | '/' | '%') unary)*
func (p *formulaParser) term() (float64, error) {
	left, err := p.unary()
	if err != nil {
		return 0, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokOp || (tok.text != "*" && tok.text != "/" && tok.text != "%") {
			return left, nil
		}
		p.next()
		right, err := p.unary()
		if err != nil {
			return 0, err
		}
		switch tok.text {
		case "*":
			left *= right
		case "/":
			if right == 0 {
				return 0, p.errorf(tok.pos, "division by zero")
			}
			left /= right
		case "%":
			if right == 0 {
				return 0, p.errorf(tok.pos, "division by zero")
			}
			left = math.Mod(left, right)
		}
	}
}

// unary := ('-' | '+') unary | primary
func (p *formulaParser) unary() (float64, error) {
	tok := p.peek()
	if tok.kind == tokOp && (tok.text == "-" || tok.text == "+") {
		p.next()
		v, err := p.unary()
		if err != nil {
			return 0, err
		}
		if tok.text == "-" {
			return -v, nil
		}
		return v, nil
	}
	return p.primary()
}

// primary := number | ident | ident '(' args ')' | '(' expr ')'
func (p *formulaParser) primary() (float64, error) {
	tok := p.next()
	switch tok.kind {
	case tokNum:
		return tok.num, nil
	case tokLParen:
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return 0, p.errorf(closing.pos, "missing )")
		}
		return v, nil
	case tokIdent:
		if p.peek().kind == tokLParen {
			return p.call(tok)
		}
		v, ok := p.vars[tok.text]
		if !ok {
			return 0, p.errorf(tok.pos, "unknown variable %q", tok.text)
		}
		return v, nil
	case tokEOF:
		return 0, p.errorf(tok.pos, "unexpected end of formula")
	default:
		return 0, p.errorf(tok.pos, "unexpected %q", tok.text)
	}
}

func (p *formulaParser) call(name token) (float64, error) {
	p.next() // (
	var args []float64
	if p.peek().kind != tokRParen {
		for {
			v, err := p.expr()
			if err != nil {
				return 0, err
			}
			args = append(args, v)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if closing := p.next(); closing.kind != tokRParen {
		return 0, p.errorf(closing.pos, "missing )")
	}

	arity := func(min, max int) error {
		if len(args) < min || (max >= 0 && len(args) > max) {
			return p.errorf(name.pos, "%s: wrong number of arguments (%d)", name.text, len(args))
		}
		return nil
	}

	fn := strings.ToLower(name.text)
	switch fn {
	case "min", "max":
		if err := arity(1, -1); err != nil {
			return 0, err
		}
		v := args[0]
		for _, a := range args[1:] {
			if (fn == "min" && a < v) || (fn == "max" && a > v) {
				v = a
			}
		}
		return v, nil
	case "sum", "avg":
		if err := arity(1, -1); err != nil {
			return 0, err
		}
		var total float64
		for _, a := range args {
			total += a
		}
		if fn == "avg" {
			return total / float64(len(args)), nil
		}
		return total, nil
	case "abs":
		if err := arity(1, 1); err != nil {
			return 0, err
		}
		return math.Abs(args[0]), nil
	case "floor":
		if err := arity(1, 1); err != nil {
			return 0, err
		}
		return math.Floor(args[0]), nil
	case "ceil":
		if err := arity(1, 1); err != nil {
			return 0, err
		}
		return math.Ceil(args[0]), nil
	case "round":
		if err := arity(1, 2); err != nil {
			return 0, err
		}
		digits := 0.0
		if len(args) == 2 {
			digits = args[1]
		}
		pow := math.Pow(10, digits)
		return math.Round(args[0]*pow) / pow, nil
	default:
		return 0, p.errorf(name.pos, "unknown function %q", name.text)
	}
}
