package query

import "strconv"

// Parser builds a boolean-expression AST from a token stream.
//
// Grammar (left-associative, OR binds looser than AND):
//
//	orExpr  := andExpr ('OR' andExpr)*
//	andExpr := term ('AND' term)*
//	term    := '(' orExpr ')' | COLUMN ('IS' ['NOT'] 'NULL' | operator value)
type Parser struct {
	clause string
	tokens []Token
	pos    int
}

// NewParser creates a parser over a pre-lexed token stream.
func NewParser(clause string, tokens []Token) *Parser {
	return &Parser{clause: clause, tokens: tokens}
}

// ParseWhereClause tokenizes and parses a WHERE/HAVING clause into an AST.
// Malformed clauses abort with a ParseError; there is no error recovery.
func ParseWhereClause(clause string) (Expression, error) {
	tokens, err := Tokenize(clause)
	if err != nil {
		return nil, err
	}

	p := NewParser(clause, tokens)
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.current(); tok.Type != TokenEOF {
		return nil, newParseError(clause, tok.Pos, "unexpected token %q after expression", tok.Value)
	}
	return expr, nil
}

func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF, Pos: len(p.clause)}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *Parser) parseOr() (Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &OrExpr{Left: left, Right: right}
	}

	return left, nil
}

func (p *Parser) parseAnd() (Expression, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenAnd {
		p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &AndExpr{Left: left, Right: right}
	}

	return left, nil
}

func (p *Parser) parseTerm() (Expression, error) {
	tok := p.current()

	switch tok.Type {
	case TokenLeftParen:
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.current(); closing.Type != TokenRightParen {
			return nil, newParseError(p.clause, closing.Pos, "expected closing parenthesis")
		}
		p.advance()
		return expr, nil

	case TokenColumn:
		p.advance()
		return p.parsePredicate(tok.Value)

	case TokenBoolean:
		// Bare TRUE/FALSE, e.g. `WHERE TRUE` to target all rows.
		p.advance()
		return &BoolExpr{Value: tok.Value == "true"}, nil

	default:
		return nil, newParseError(p.clause, tok.Pos, "expected column or parenthesized group, got %q", tok.Value)
	}
}

// parsePredicate parses the operator/value (or IS [NOT] NULL) that must
// follow a column reference.
func (p *Parser) parsePredicate(column string) (Expression, error) {
	tok := p.current()

	switch tok.Type {
	case TokenIs:
		p.advance()
		isNull := true
		if p.current().Type == TokenNot {
			p.advance()
			isNull = false
		}
		if nullTok := p.current(); nullTok.Type != TokenNull {
			return nil, newParseError(p.clause, nullTok.Pos, "expected NULL after IS")
		}
		p.advance()
		return &NullCheckExpr{Column: column, IsNull: isNull}, nil

	case TokenOperator, TokenStringOp:
		p.advance()
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return &ComparisonExpr{Column: column, Operator: tok.Value, Value: value}, nil

	default:
		return nil, newParseError(p.clause, tok.Pos, "expected operator after column %q", column)
	}
}

func (p *Parser) parseValue() (Literal, error) {
	tok := p.current()

	switch tok.Type {
	case TokenString:
		p.advance()
		return Literal{Kind: LiteralString, Str: tok.Value}, nil
	case TokenNumber:
		num, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return Literal{}, newParseError(p.clause, tok.Pos, "malformed number %q", tok.Value)
		}
		p.advance()
		return Literal{Kind: LiteralNumber, Num: num, Str: tok.Value}, nil
	case TokenBoolean:
		p.advance()
		return Literal{Kind: LiteralBool, Bool: tok.Value == "true"}, nil
	case TokenNull:
		p.advance()
		return Literal{Kind: LiteralNull}, nil
	case TokenDate:
		p.advance()
		return Literal{Kind: LiteralDate, Str: tok.Value}, nil
	default:
		return Literal{}, newParseError(p.clause, tok.Pos, "expected literal value, got %q", tok.Value)
	}
}
