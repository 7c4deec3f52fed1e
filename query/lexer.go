package query

import (
	"strings"
	"time"
	"unicode"
)

// Lexer tokenizes WHERE/HAVING clause strings. Identifiers are expected to
// already be resolved column letters (see ResolveColumnNames); anything that
// is not a keyword, literal or operator becomes a COLUMN token.
type Lexer struct {
	input string
	pos   int
	ch    rune
	now   func() time.Time
}

// NewLexer creates a new lexer over a clause string.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, now: time.Now}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.pos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = rune(l.input[l.pos])
	}
	l.pos++
}

func (l *Lexer) peekChar() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	return rune(l.input[l.pos])
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// readString reads a quoted string supporting both backslash escapes
// (\" \' \\ \n \t \r) and SQL-style escaping by doubling the quote. Input
// ending before the closing quote is a parse error.
func (l *Lexer) readString(quote rune) (string, error) {
	var result strings.Builder
	start := l.pos - 1
	l.readChar() // skip opening quote

	for l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				result.WriteRune('\n')
			case 't':
				result.WriteRune('\t')
			case 'r':
				result.WriteRune('\r')
			case '\\':
				result.WriteRune('\\')
			case '\'', '"':
				result.WriteRune(l.ch)
			default:
				result.WriteRune(l.ch)
			}
			l.readChar()
			continue
		}
		if l.ch == quote {
			// Doubled quote escapes the quote character.
			if l.peekChar() == quote {
				result.WriteRune(quote)
				l.readChar()
				l.readChar()
				continue
			}
			break
		}
		result.WriteRune(l.ch)
		l.readChar()
	}

	if l.ch != quote {
		return "", newParseError(l.input, start, "unterminated string literal")
	}
	l.readChar() // skip closing quote

	return result.String(), nil
}

// readNumber reads a number: optional leading minus, digits, a single
// decimal point.
func (l *Lexer) readNumber() string {
	var result strings.Builder

	if l.ch == '-' {
		result.WriteRune(l.ch)
		l.readChar()
	}

	sawDot := false
	for unicode.IsDigit(l.ch) || (l.ch == '.' && !sawDot) {
		if l.ch == '.' {
			sawDot = true
		}
		result.WriteRune(l.ch)
		l.readChar()
	}
	return result.String()
}

// readWord reads an identifier or keyword.
func (l *Lexer) readWord() string {
	var result strings.Builder
	for unicode.IsLetter(l.ch) || unicode.IsDigit(l.ch) || l.ch == '_' {
		result.WriteRune(l.ch)
		l.readChar()
	}
	return result.String()
}

// NextToken returns the next token. Unrecognized characters are skipped
// rather than rejected; the parser reports anything structurally wrong.
func (l *Lexer) NextToken() (Token, error) {
	for {
		l.skipWhitespace()
		start := l.pos - 1

		switch {
		case l.ch == 0:
			return Token{Type: TokenEOF, Pos: start}, nil
		case l.ch == '(':
			l.readChar()
			return Token{Type: TokenLeftParen, Value: "(", Pos: start}, nil
		case l.ch == ')':
			l.readChar()
			return Token{Type: TokenRightParen, Value: ")", Pos: start}, nil
		case l.ch == '\'' || l.ch == '"':
			value, err := l.readString(l.ch)
			if err != nil {
				return Token{}, err
			}
			return Token{Type: TokenString, Value: value, Pos: start}, nil
		case l.ch == '=':
			l.readChar()
			return Token{Type: TokenOperator, Value: "=", Pos: start}, nil
		case l.ch == '<':
			l.readChar()
			if l.ch == '>' {
				l.readChar()
				return Token{Type: TokenOperator, Value: "<>", Pos: start}, nil
			}
			if l.ch == '=' {
				l.readChar()
				return Token{Type: TokenOperator, Value: "<=", Pos: start}, nil
			}
			return Token{Type: TokenOperator, Value: "<", Pos: start}, nil
		case l.ch == '>':
			l.readChar()
			if l.ch == '=' {
				l.readChar()
				return Token{Type: TokenOperator, Value: ">=", Pos: start}, nil
			}
			return Token{Type: TokenOperator, Value: ">", Pos: start}, nil
		case l.ch == '!':
			if l.peekChar() == '=' {
				l.readChar()
				l.readChar()
				return Token{Type: TokenOperator, Value: "!=", Pos: start}, nil
			}
			l.readChar() // skip unrecognized character
			continue
		case unicode.IsDigit(l.ch) || (l.ch == '-' && unicode.IsDigit(l.peekChar())):
			return Token{Type: TokenNumber, Value: l.readNumber(), Pos: start}, nil
		case unicode.IsLetter(l.ch) || l.ch == '_':
			word := l.readWord()
			return l.wordToken(word, start)
		default:
			l.readChar() // skip unrecognized character
		}
	}
}

// wordToken classifies a word as a keyword, literal or column reference.
// Keyword recognition is case-insensitive.
func (l *Lexer) wordToken(word string, start int) (Token, error) {
	switch strings.ToUpper(word) {
	case "AND":
		return Token{Type: TokenAnd, Value: word, Pos: start}, nil
	case "OR":
		return Token{Type: TokenOr, Value: word, Pos: start}, nil
	case "IS":
		return Token{Type: TokenIs, Value: word, Pos: start}, nil
	case "NOT":
		return Token{Type: TokenNot, Value: word, Pos: start}, nil
	case "NULL":
		return Token{Type: TokenNull, Value: word, Pos: start}, nil
	case "TRUE":
		return Token{Type: TokenBoolean, Value: "true", Pos: start}, nil
	case "FALSE":
		return Token{Type: TokenBoolean, Value: "false", Pos: start}, nil
	case "CONTAINS":
		return Token{Type: TokenStringOp, Value: "contains", Pos: start}, nil
	case "STARTS":
		if err := l.expectWith(start, "STARTS"); err != nil {
			return Token{}, err
		}
		return Token{Type: TokenStringOp, Value: "starts with", Pos: start}, nil
	case "ENDS":
		if err := l.expectWith(start, "ENDS"); err != nil {
			return Token{}, err
		}
		return Token{Type: TokenStringOp, Value: "ends with", Pos: start}, nil
	case "DATE":
		return l.dateLiteral(start)
	case "NOW":
		if err := l.expectParens(start, "NOW"); err != nil {
			return Token{}, err
		}
		return Token{Type: TokenDate, Value: l.now().Format(time.RFC3339), Pos: start}, nil
	case "TODAY":
		if err := l.expectParens(start, "TODAY"); err != nil {
			return Token{}, err
		}
		return Token{Type: TokenDate, Value: l.now().Format("2006-01-02"), Pos: start}, nil
	default:
		return Token{Type: TokenColumn, Value: word, Pos: start}, nil
	}
}

// expectWith consumes the WITH that must follow STARTS/ENDS.
func (l *Lexer) expectWith(start int, kw string) error {
	l.skipWhitespace()
	word := l.readWord()
	if !strings.EqualFold(word, "WITH") {
		return newParseError(l.input, start, "%s must be followed by WITH", kw)
	}
	return nil
}

// expectParens consumes the () that must follow NOW/TODAY.
func (l *Lexer) expectParens(start int, kw string) error {
	l.skipWhitespace()
	if l.ch != '(' {
		return newParseError(l.input, start, "%s must be followed by ()", kw)
	}
	l.readChar()
	l.skipWhitespace()
	if l.ch != ')' {
		return newParseError(l.input, start, "%s must be followed by ()", kw)
	}
	l.readChar()
	return nil
}

// dateLiteral reads the quoted ISO string that must follow DATE.
func (l *Lexer) dateLiteral(start int) (Token, error) {
	l.skipWhitespace()
	if l.ch != '\'' && l.ch != '"' {
		return Token{}, newParseError(l.input, start, "DATE must be followed by a quoted literal")
	}
	value, err := l.readString(l.ch)
	if err != nil {
		return Token{}, err
	}
	return Token{Type: TokenDate, Value: value, Pos: start}, nil
}

// Tokenize returns all tokens from the clause, terminated by an EOF token.
func Tokenize(clause string) ([]Token, error) {
	lexer := NewLexer(clause)
	var tokens []Token

	for {
		tok, err := lexer.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}
