package tools

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// evalExpression evaluates an arithmetic expression with the usual math
// functions and constants. It backs the calculate_math tool and never
// executes anything beyond arithmetic, which is the whole point: tool
// arguments come from the remote model.
func evalExpression(input string) (float64, error) {
	p := &exprParser{input: input}
	val, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected %q at position %d", p.input[p.pos], p.pos)
	}
	if math.IsInf(val, 0) || math.IsNaN(val) {
		return 0, fmt.Errorf("expression is not finite")
	}
	return val, nil
}

var exprConstants = map[string]float64{
	"pi":  math.Pi,
	"e":   math.E,
	"tau": 2 * math.Pi,
}

var exprUnaryFuncs = map[string]func(float64) float64{
	"sqrt":  math.Sqrt,
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"asin":  math.Asin,
	"acos":  math.Acos,
	"atan":  math.Atan,
	"log":   math.Log,
	"log10": math.Log10,
	"log2":  math.Log2,
	"exp":   math.Exp,
	"abs":   math.Abs,
	"floor": math.Floor,
	"ceil":  math.Ceil,
	"round": math.Round,
}

var exprBinaryFuncs = map[string]func(float64, float64) float64{
	"pow":   math.Pow,
	"min":   math.Min,
	"max":   math.Max,
	"atan2": math.Atan2,
	"mod":   math.Mod,
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch p.peek() {
		case '*':
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			left *= right
		case '/':
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		case '%':
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("modulo by zero")
			}
			left = math.Mod(left, right)
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseUnary() (float64, error) {
	p.skipSpaces()
	switch p.peek() {
	case '-':
		p.pos++
		val, err := p.parseUnary()
		return -val, err
	case '+':
		p.pos++
		return p.parseUnary()
	}
	return p.parsePower()
}

func (p *exprParser) parsePower() (float64, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	// Right-associative, and "**" is accepted as an alias.
	if p.peek() == '^' {
		p.pos++
		exp, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	if strings.HasPrefix(p.input[p.pos:], "**") {
		p.pos += 2
		exp, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *exprParser) parsePrimary() (float64, error) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, fmt.Errorf("unexpected end of expression")
	}

	c := p.input[p.pos]
	if c == '(' {
		p.pos++
		val, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if err := p.expect(')'); err != nil {
			return 0, err
		}
		return val, nil
	}
	if c >= '0' && c <= '9' || c == '.' {
		return p.parseNumber()
	}
	if unicode.IsLetter(rune(c)) || c == '_' {
		return p.parseIdent()
	}
	return 0, fmt.Errorf("unexpected %q at position %d", c, p.pos)
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c >= '0' && c <= '9' || c == '.' || c == 'e' || c == 'E' {
			p.pos++
			continue
		}
		if (c == '+' || c == '-') && p.pos > start {
			prev := p.input[p.pos-1]
			if prev == 'e' || prev == 'E' {
				p.pos++
				continue
			}
		}
		break
	}
	val, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return val, nil
}

func (p *exprParser) parseIdent() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := rune(p.input[p.pos])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' {
			p.pos++
			continue
		}
		break
	}
	name := strings.ToLower(p.input[start:p.pos])

	p.skipSpaces()
	if p.peek() != '(' {
		if val, ok := exprConstants[name]; ok {
			return val, nil
		}
		return 0, fmt.Errorf("unknown constant %q", name)
	}

	p.pos++ // consume '('
	args := []float64{}
	p.skipSpaces()
	if p.peek() != ')' {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return 0, err
			}
			args = append(args, arg)
			p.skipSpaces()
			if p.peek() != ',' {
				break
			}
			p.pos++
		}
	}
	if err := p.expect(')'); err != nil {
		return 0, err
	}

	if fn, ok := exprUnaryFuncs[name]; ok {
		if len(args) != 1 {
			return 0, fmt.Errorf("%s expects 1 argument, got %d", name, len(args))
		}
		return fn(args[0]), nil
	}
	if fn, ok := exprBinaryFuncs[name]; ok {
		if len(args) != 2 {
			return 0, fmt.Errorf("%s expects 2 arguments, got %d", name, len(args))
		}
		return fn(args[0], args[1]), nil
	}
	return 0, fmt.Errorf("unknown function %q", name)
}

func (p *exprParser) expect(c byte) error {
	p.skipSpaces()
	if p.pos >= len(p.input) || p.input[p.pos] != c {
		return fmt.Errorf("expected %q at position %d", c, p.pos)
	}
	p.pos++
	return nil
}

func (p *exprParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}
