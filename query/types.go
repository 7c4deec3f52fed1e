// Package query implements the SQL dialect used to address spreadsheet data.
//
// It contains a lexer and recursive-descent parser for WHERE/HAVING clauses,
// a row evaluator with type-aware comparison, clause-level statement
// splitting for SELECT/INSERT/UPDATE/DELETE, and bidirectional resolution
// between spreadsheet column letters (A, B, ... AA) and header names.
//
// Example usage:
//
//	cols := query.BuildColumnMap([]string{"Name", "Age"})
//	expr, err := query.ParseWhereClause(query.ResolveColumnNames("Age > 26", cols))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	match, err := expr.Evaluate(row, cols)
package query

// TokenType represents the type of a token in a WHERE/HAVING clause.
type TokenType int

const (
	TokenColumn TokenType = iota
	TokenString
	TokenNumber
	TokenBoolean
	TokenNull
	TokenDate
	TokenOperator // = <> != < <= > >=
	TokenStringOp // contains, starts with, ends with
	TokenAnd
	TokenOr
	TokenIs
	TokenNot
	TokenLeftParen
	TokenRightParen
	TokenEOF
)

// Token represents a lexical token. Pos is the byte offset of the token in
// the clause it was lexed from.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// LiteralKind discriminates comparison target values.
type LiteralKind int

const (
	LiteralString LiteralKind = iota
	LiteralNumber
	LiteralBool
	LiteralNull
	LiteralDate
)

// Literal is a typed comparison target produced by the parser. Str holds the
// raw text for string and date kinds; Num and Bool hold the decoded value
// for their kinds.
type Literal struct {
	Kind LiteralKind
	Str  string
	Num  float64
	Bool bool
}

// Expression is a boolean expression over one row. Implementations form the
// WHERE/HAVING AST: OR of ANDs of comparisons, null checks and parenthesized
// groups. The tree is immutable once built.
type Expression interface {
	Evaluate(row []interface{}, cols ColumnMap) (bool, error)
}

// ComparisonExpr compares a column (by canonical letter) against a literal.
type ComparisonExpr struct {
	Column   string
	Operator string // = <> != < <= > >= contains "starts with" "ends with"
	Value    Literal
}

// NullCheckExpr is `column IS [NOT] NULL`.
type NullCheckExpr struct {
	Column string
	IsNull bool
}

// BoolExpr is a bare TRUE/FALSE term, e.g. `WHERE TRUE` to target all rows.
type BoolExpr struct {
	Value bool
}

// AndExpr is the conjunction of two expressions.
type AndExpr struct {
	Left  Expression
	Right Expression
}

// OrExpr is the disjunction of two expressions.
type OrExpr struct {
	Left  Expression
	Right Expression
}

// TableType distinguishes sheet-backed tables from caller-supplied
// in-memory virtual tables.
type TableType int

const (
	TableSheet TableType = iota
	TableVirtual
)

// TableReference describes one FROM/JOIN operand, resolved once per
// statement.
type TableReference struct {
	Type   TableType
	Name   string // virtual table id; empty for sheet tables
	Source string // original text (e.g. "Sheet1!A1:C10" or ":users")
	Alias  string
}

// JoinType represents the type of join operation.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
)

// JoinClause represents one `[LEFT|RIGHT] JOIN <table> ON <cond>` clause.
// On keeps the raw condition text; it is resolved by the join engine.
type JoinClause struct {
	Type  JoinType
	Table TableReference
	On    string
}

// TableData is an in-memory table: ordered headers plus row-oriented cells.
// Cell values are untyped (string/number/boolean/nil as returned by the
// source). Rows may be ragged; readers treat missing cells as null.
type TableData struct {
	Headers []string
	Rows    [][]interface{}
}

// MatchedRow pairs a row with its position in the source table: the 1-based
// sheet row for sheet tables, or the data array index for virtual tables.
type MatchedRow struct {
	RowNumber int
	Row       []interface{}
}

// OrderByItem represents one `column [ASC|DESC]` sort term, with Column
// already resolved to a canonical column letter.
type OrderByItem struct {
	Column string
	Desc   bool
}

// InsertStatement is the parsed form of an INSERT statement. Columns is
// empty for positional inserts; Rows holds decoded literal values, one slice
// per VALUES tuple.
type InsertStatement struct {
	FromClause string // optional INTO target
	Columns    []string
	Rows       [][]interface{}
}

// UpdateStatement is the clause breakdown of an UPDATE statement.
type UpdateStatement struct {
	SetClause     string
	FromClause    string // optional, virtual-table targets
	WhereClause   string
	OrderByClause string
	Limit         *int
}

// DeleteStatement is the clause breakdown of a DELETE statement.
type DeleteStatement struct {
	FromClause    string
	WhereClause   string
	OrderByClause string
	Limit         *int
}

// SelectStatement is the clause breakdown of a SELECT statement. Clause
// fields hold raw text; resolution happens against the loaded table.
type SelectStatement struct {
	SelectClause  string
	From          *TableReference
	Joins         []JoinClause
	WhereClause   string
	GroupByClause string
	HavingClause  string
	OrderByClause string
	Limit         *int
	Offset        *int
}
