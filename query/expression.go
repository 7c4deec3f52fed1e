package query

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	aggregatePatternRe = regexp.MustCompile(`(?i)^\s*(COUNT|SUM|AVG|MIN|MAX)\s*\(`)
	arithmeticRe       = regexp.MustCompile(`[+\-*/]`)
	placeholderRe      = regexp.MustCompile(`\{(\d+)\}`)
	identRe            = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	// numericSafeRe whitelist-validates a substituted expression before
	// evaluation. Anything outside digits, arithmetic operators, parens,
	// decimal points and whitespace fails closed.
	numericSafeRe = regexp.MustCompile(`^[0-9+\-*/(). \t]+$`)
)

// IsExpression reports whether a SELECT item is an arithmetic expression
// rather than a plain column, wildcard or aggregate call.
func IsExpression(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return false
	}
	if aggregatePatternRe.MatchString(s) {
		return false
	}
	return arithmeticRe.MatchString(s)
}

// ParseExpression substitutes column references in an arithmetic expression
// with row-index placeholders ({0}, {1}, ...) resolved through the column
// map. Unresolvable identifiers are left in place so evaluation fails
// closed.
func ParseExpression(s string, cols ColumnMap) string {
	return identRe.ReplaceAllStringFunc(s, func(name string) string {
		if _, reserved := reservedWords[strings.ToLower(name)]; reserved {
			return name
		}
		letter, ok := cols.Resolve(name)
		if !ok {
			return name
		}
		idx := ColumnToIndex(letter)
		if idx < 0 {
			return name
		}
		return fmt.Sprintf("{%d}", idx)
	})
}

// EvaluateExpression evaluates a parsed expression against one row.
// Returns nil on any non-numeric cell, malformed expression, or non-finite
// result; it never propagates an error to the caller so one bad cell cannot
// abort a whole aggregate query.
func EvaluateExpression(parsed string, row []interface{}) *float64 {
	substituted := placeholderRe.ReplaceAllStringFunc(parsed, func(ph string) string {
		idx, err := strconv.Atoi(ph[1 : len(ph)-1])
		if err != nil || idx < 0 || idx >= len(row) {
			return ph
		}
		num, ok := ToFloat(row[idx])
		if !ok {
			return ph
		}
		return "(" + strconv.FormatFloat(num, 'f', -1, 64) + ")"
	})

	if !numericSafeRe.MatchString(substituted) {
		return nil
	}

	result, ok := evalArithmetic(substituted)
	if !ok || math.IsNaN(result) || math.IsInf(result, 0) {
		return nil
	}
	return &result
}

// arithParser is a minimal recursive-descent evaluator over the whitelisted
// numeric grammar: addExpr := mulExpr (('+'|'-') mulExpr)*, mulExpr :=
// unary (('*'|'/') unary)*, unary := ['-'] primary, primary := number |
// '(' addExpr ')'.
type arithParser struct {
	input string
	pos   int
}

func evalArithmetic(s string) (float64, bool) {
	p := &arithParser{input: s}
	result, ok := p.parseAddSub()
	if !ok {
		return 0, false
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return 0, false
	}
	return result, true
}

func (p *arithParser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *arithParser) parseAddSub() (float64, bool) {
	left, ok := p.parseMulDiv()
	if !ok {
		return 0, false
	}
	for {
		p.skipSpaces()
		if p.pos >= len(p.input) {
			return left, true
		}
		op := p.input[p.pos]
		if op != '+' && op != '-' {
			return left, true
		}
		p.pos++
		right, ok := p.parseMulDiv()
		if !ok {
			return 0, false
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *arithParser) parseMulDiv() (float64, bool) {
	left, ok := p.parseUnary()
	if !ok {
		return 0, false
	}
	for {
		p.skipSpaces()
		if p.pos >= len(p.input) {
			return left, true
		}
		op := p.input[p.pos]
		if op != '*' && op != '/' {
			return left, true
		}
		p.pos++
		right, ok := p.parseUnary()
		if !ok {
			return 0, false
		}
		if op == '*' {
			left *= right
		} else {
			left /= right
		}
	}
}

func (p *arithParser) parseUnary() (float64, bool) {
	p.skipSpaces()
	if p.pos < len(p.input) && p.input[p.pos] == '-' {
		p.pos++
		value, ok := p.parseUnary()
		return -value, ok
	}
	return p.parsePrimary()
}

func (p *arithParser) parsePrimary() (float64, bool) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, false
	}
	if p.input[p.pos] == '(' {
		p.pos++
		value, ok := p.parseAddSub()
		if !ok {
			return 0, false
		}
		p.skipSpaces()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return 0, false
		}
		p.pos++
		return value, true
	}

	start := p.pos
	for p.pos < len(p.input) && (p.input[p.pos] >= '0' && p.input[p.pos] <= '9' || p.input[p.pos] == '.') {
		p.pos++
	}
	if p.pos == start {
		return 0, false
	}
	value, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
