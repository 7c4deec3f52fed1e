package query

import "fmt"

// ValidationError reports a malformed statement, clause, range or parameter.
// It is surfaced before any network call is made.
type ValidationError struct {
	Field    string
	Value    interface{}
	Expected string
}

// NewValidationError creates a ValidationError.
func NewValidationError(field string, value interface{}, expected string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Expected: expected}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v (expected %s)", e.Field, e.Value, e.Expected)
}

// ParseError is the ValidationError variant raised by the lexer and parser.
// It carries the clause text and the byte offset of the offending token.
type ParseError struct {
	Clause string
	Pos    int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d in %q: %s", e.Pos, e.Clause, e.Msg)
}

func newParseError(clause string, pos int, format string, args ...interface{}) *ParseError {
	return &ParseError{Clause: clause, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
