package query

import (
	"regexp"
	"strconv"
	"strings"
)

// Operation names returned by DetectOperation.
const (
	OpSelect = "SELECT"
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// DetectOperation classifies a statement by its leading keyword.
func DetectOperation(stmt string) (string, error) {
	fields := strings.Fields(stmt)
	if len(fields) == 0 {
		return "", NewValidationError("statement", stmt, "non-empty SQL statement")
	}
	op := strings.ToUpper(fields[0])
	switch op {
	case OpSelect, OpInsert, OpUpdate, OpDelete:
		return op, nil
	default:
		return "", NewValidationError("statement", stmt, "statement starting with SELECT, INSERT, UPDATE or DELETE")
	}
}

// maskQuoted blanks the contents of quoted strings while preserving string
// length, so clause keywords can be located without tripping over quoted
// text. Both escape styles of the dialect are honored.
func maskQuoted(s string) string {
	out := []byte(s)
	i := 0
	for i < len(out) {
		ch := out[i]
		if ch != '\'' && ch != '"' {
			i++
			continue
		}
		quote := ch
		i++
		for i < len(out) {
			if out[i] == '\\' && i+1 < len(out) {
				out[i], out[i+1] = ' ', ' '
				i += 2
				continue
			}
			if out[i] == quote {
				if i+1 < len(out) && out[i+1] == quote {
					out[i], out[i+1] = ' ', ' '
					i += 2
					continue
				}
				i++
				break
			}
			out[i] = ' '
			i++
		}
	}
	return string(out)
}

// clauseMark locates one clause keyword in a masked statement.
type clauseMark struct {
	keyword string
	start   int
	end     int
}

var clauseRe = regexp.MustCompile(
	`(?i)\b(LEFT\s+JOIN|RIGHT\s+JOIN|INNER\s+JOIN|JOIN|FROM|WHERE|GROUP\s+BY|HAVING|ORDER\s+BY|LIMIT|OFFSET|SET|VALUES|ON)\b`)

var wsRe = regexp.MustCompile(`\s+`)

// markClauses finds every clause keyword in a masked statement, in order.
// Each boundary rule stays an independently testable lookup over this list
// rather than one monolithic statement regex.
func markClauses(masked string) []clauseMark {
	var marks []clauseMark
	for _, loc := range clauseRe.FindAllStringSubmatchIndex(masked, -1) {
		keyword := wsRe.ReplaceAllString(strings.ToUpper(masked[loc[2]:loc[3]]), " ")
		marks = append(marks, clauseMark{keyword: keyword, start: loc[0], end: loc[1]})
	}
	return marks
}

// firstMark returns the first occurrence of keyword at or after from, or nil.
func firstMark(marks []clauseMark, keyword string, from int) *clauseMark {
	for i := range marks {
		if marks[i].keyword == keyword && marks[i].start >= from {
			return &marks[i]
		}
	}
	return nil
}

// nextBoundary returns the start of the first mark after pos, or len.
func nextBoundary(marks []clauseMark, pos int, length int) int {
	for i := range marks {
		if marks[i].start >= pos {
			return marks[i].start
		}
	}
	return length
}

var intoRe = regexp.MustCompile(`(?i)^\s*INTO\b`)

// ParseInsertStatement parses `INSERT [INTO <table>] [(columns)] VALUES
// (tuple)[, (tuple)...]`. Without a column list the tuples are positional.
// Values are decoded to typed literals immediately; only literal values are
// accepted.
func ParseInsertStatement(stmt string) (*InsertStatement, error) {
	masked := maskQuoted(stmt)
	marks := markClauses(masked)

	values := firstMark(marks, "VALUES", 0)
	if values == nil {
		return nil, NewValidationError("statement", stmt, "INSERT statement with a VALUES clause")
	}

	headStart := strings.Index(strings.ToUpper(masked), "INSERT")
	if headStart < 0 {
		return nil, NewValidationError("statement", stmt, "statement starting with INSERT")
	}
	headStart += len("INSERT")
	head := stmt[headStart:values.start]
	headMasked := masked[headStart:values.start]

	if loc := intoRe.FindStringIndex(headMasked); loc != nil {
		head = head[loc[1]:]
		headMasked = headMasked[loc[1]:]
	}

	out := &InsertStatement{}
	if open := strings.Index(headMasked, "("); open >= 0 {
		closing := strings.LastIndex(headMasked, ")")
		if closing < open {
			return nil, NewValidationError("statement", stmt, "closed column list before VALUES")
		}
		for _, col := range SplitList(head[open+1 : closing]) {
			col = strings.TrimSpace(col)
			if col == "" {
				return nil, NewValidationError("columns", head[open:closing+1], "non-empty column names")
			}
			out.Columns = append(out.Columns, col)
		}
		if len(out.Columns) == 0 {
			return nil, NewValidationError("columns", head, "at least one column name")
		}
		out.FromClause = strings.TrimSpace(head[:open])
	} else {
		out.FromClause = strings.TrimSpace(head)
	}

	for _, tuple := range SplitList(stmt[values.end:]) {
		tuple = strings.TrimSpace(tuple)
		if tuple == "" {
			continue
		}
		if !strings.HasPrefix(tuple, "(") || !strings.HasSuffix(tuple, ")") {
			return nil, NewValidationError("values", tuple, "parenthesized value tuple")
		}
		var row []interface{}
		for _, text := range SplitList(tuple[1 : len(tuple)-1]) {
			v, err := ParseScalarLiteral(strings.TrimSpace(text))
			if err != nil {
				return nil, err
			}
			row = append(row, v)
		}
		if len(row) == 0 {
			return nil, NewValidationError("values", tuple, "at least one value per tuple")
		}
		if len(out.Columns) > 0 && len(row) != len(out.Columns) {
			return nil, NewValidationError("values", tuple, "one value per named column")
		}
		out.Rows = append(out.Rows, row)
	}
	if len(out.Rows) == 0 {
		return nil, NewValidationError("values", stmt, "at least one VALUES tuple")
	}
	return out, nil
}

// ParseUpdateStatement splits an UPDATE statement into its clauses. The
// target table may be named between UPDATE and SET or in a FROM clause after
// SET, but not both. WHERE is mandatory; a statement that should touch every
// row must say WHERE TRUE.
func ParseUpdateStatement(stmt string) (*UpdateStatement, error) {
	masked := maskQuoted(stmt)
	marks := markClauses(masked)

	set := firstMark(marks, "SET", 0)
	if set == nil {
		return nil, NewValidationError("statement", stmt, "UPDATE statement with a SET clause")
	}
	where := firstMark(marks, "WHERE", set.end)
	if where == nil {
		return nil, NewValidationError("statement", stmt, "WHERE clause; use WHERE TRUE to target all rows")
	}

	out := &UpdateStatement{}

	headStart := strings.Index(strings.ToUpper(masked), "UPDATE")
	if headStart < 0 {
		return nil, NewValidationError("statement", stmt, "statement starting with UPDATE")
	}
	out.FromClause = strings.TrimSpace(stmt[headStart+len("UPDATE") : set.start])

	setEnd := where.start
	if from := firstMark(marks, "FROM", set.end); from != nil && from.start < where.start {
		if out.FromClause != "" {
			return nil, NewValidationError("statement", stmt, "a single target table, either before SET or in a FROM clause")
		}
		setEnd = from.start
		out.FromClause = strings.TrimSpace(stmt[from.end:where.start])
	}
	out.SetClause = strings.TrimSpace(stmt[set.end:setEnd])
	if out.SetClause == "" {
		return nil, NewValidationError("setClause", stmt, "at least one column = value assignment")
	}

	whereClause, orderBy, limit, err := splitTail(stmt, marks, where.end)
	if err != nil {
		return nil, err
	}
	out.WhereClause = whereClause
	out.OrderByClause = orderBy
	out.Limit = limit

	if out.WhereClause == "" {
		return nil, NewValidationError("whereClause", stmt, "non-empty WHERE condition; use WHERE TRUE to target all rows")
	}
	return out, nil
}

// ParseDeleteStatement splits a DELETE statement into its clauses. WHERE is
// mandatory, same as for UPDATE.
func ParseDeleteStatement(stmt string) (*DeleteStatement, error) {
	masked := maskQuoted(stmt)
	marks := markClauses(masked)

	where := firstMark(marks, "WHERE", 0)
	if where == nil {
		return nil, NewValidationError("statement", stmt, "WHERE clause; use WHERE TRUE to target all rows")
	}

	out := &DeleteStatement{}
	if from := firstMark(marks, "FROM", 0); from != nil && from.start < where.start {
		out.FromClause = strings.TrimSpace(stmt[from.end:where.start])
	}

	whereClause, orderBy, limit, err := splitTail(stmt, marks, where.end)
	if err != nil {
		return nil, err
	}
	out.WhereClause = whereClause
	out.OrderByClause = orderBy
	out.Limit = limit

	if out.WhereClause == "" {
		return nil, NewValidationError("whereClause", stmt, "non-empty WHERE condition; use WHERE TRUE to target all rows")
	}
	return out, nil
}

// splitTail scans the statement tail after WHERE for ORDER BY and LIMIT.
// Whichever keyword appears first bounds the prior clause.
func splitTail(stmt string, marks []clauseMark, whereEnd int) (whereClause, orderByClause string, limit *int, err error) {
	order := firstMark(marks, "ORDER BY", whereEnd)
	limitMark := firstMark(marks, "LIMIT", whereEnd)

	whereStop := len(stmt)
	if order != nil && order.start < whereStop {
		whereStop = order.start
	}
	if limitMark != nil && limitMark.start < whereStop {
		whereStop = limitMark.start
	}
	whereClause = strings.TrimSpace(stmt[whereEnd:whereStop])

	if order != nil {
		orderStop := len(stmt)
		if limitMark != nil && limitMark.start > order.start {
			orderStop = limitMark.start
		}
		orderByClause = strings.TrimSpace(stmt[order.end:orderStop])
	}

	if limitMark != nil {
		limitStop := len(stmt)
		if order != nil && order.start > limitMark.start {
			limitStop = order.start
		}
		n, perr := ParseLimitClause(stmt[limitMark.end:limitStop])
		if perr != nil {
			return "", "", nil, perr
		}
		limit = &n
	}

	return whereClause, orderByClause, limit, nil
}

// ParseOrderByClause parses comma-separated `column [ASC|DESC]` terms,
// default ASC. Aliased (alias.column) and virtual-table-qualified
// (:table.column) references resolve through the column map.
func ParseOrderByClause(clause string, cols ColumnMap) ([]OrderByItem, error) {
	var items []OrderByItem
	for _, term := range splitTopLevel(clause, ',') {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}

		desc := false
		fields := strings.Fields(term)
		ref := fields[0]
		if len(fields) > 1 {
			switch strings.ToUpper(fields[len(fields)-1]) {
			case "DESC":
				desc = true
				ref = strings.Join(fields[:len(fields)-1], " ")
			case "ASC":
				ref = strings.Join(fields[:len(fields)-1], " ")
			default:
				ref = strings.Join(fields, " ")
			}
		}

		letter, ok := cols.Resolve(ref)
		if !ok {
			return nil, NewValidationError("orderBy", ref, "known column name or letter")
		}
		items = append(items, OrderByItem{Column: letter, Desc: desc})
	}
	if len(items) == 0 {
		return nil, NewValidationError("orderBy", clause, "at least one column [ASC|DESC] term")
	}
	return items, nil
}

// ParseLimitClause requires a bare non-negative integer.
func ParseLimitClause(text string) (int, error) {
	text = strings.TrimSpace(text)
	n, err := strconv.Atoi(text)
	if err != nil || n < 0 {
		return 0, NewValidationError("limit", text, "bare non-negative integer")
	}
	return n, nil
}

// ParseOffsetClause requires a bare non-negative integer.
func ParseOffsetClause(text string) (int, error) {
	text = strings.TrimSpace(text)
	n, err := strconv.Atoi(text)
	if err != nil || n < 0 {
		return 0, NewValidationError("offset", text, "bare non-negative integer")
	}
	return n, nil
}

// ParseFromClause extracts the main table (virtual `:name` or sheet range)
// with optional alias, then any `[LEFT|RIGHT] JOIN <table> [AS alias] ON
// <cond>` clauses, each bounded by the next clause keyword or end of
// statement. Returns a nil reference when the statement has no FROM clause;
// the caller falls back to its range parameter.
func ParseFromClause(stmt string) (*TableReference, []JoinClause, error) {
	masked := maskQuoted(stmt)
	marks := markClauses(masked)

	from := firstMark(marks, "FROM", 0)
	if from == nil {
		return nil, nil, nil
	}

	stop := nextBoundary(marks, from.end, len(stmt))
	mainRef, err := parseTableRef(stmt[from.end:stop])
	if err != nil {
		return nil, nil, err
	}

	var joins []JoinClause
	pos := stop
	for {
		join := joinMarkAt(marks, pos)
		if join == nil {
			break
		}

		joinType := JoinInner
		switch join.keyword {
		case "LEFT JOIN":
			joinType = JoinLeft
		case "RIGHT JOIN":
			joinType = JoinRight
		}

		on := firstMark(marks, "ON", join.end)
		if on == nil {
			return nil, nil, NewValidationError("join", stmt[join.start:], "JOIN clause with an ON condition")
		}
		tableRef, err := parseTableRef(stmt[join.end:on.start])
		if err != nil {
			return nil, nil, err
		}

		condStop := joinOrClauseBoundary(marks, on.end, len(stmt))
		cond := strings.TrimSpace(stmt[on.end:condStop])
		if cond == "" {
			return nil, nil, NewValidationError("join", stmt[join.start:condStop], "ON condition of the form alias.column = alias.column")
		}

		joins = append(joins, JoinClause{Type: joinType, Table: *tableRef, On: cond})
		pos = condStop
	}

	return mainRef, joins, nil
}

// joinMarkAt returns the JOIN mark starting exactly at the next boundary
// after pos, or nil when the next clause is not a join.
func joinMarkAt(marks []clauseMark, pos int) *clauseMark {
	for i := range marks {
		if marks[i].start < pos {
			continue
		}
		switch marks[i].keyword {
		case "JOIN", "INNER JOIN", "LEFT JOIN", "RIGHT JOIN":
			return &marks[i]
		default:
			return nil
		}
	}
	return nil
}

// joinOrClauseBoundary returns the start of the next JOIN or clause keyword
// after pos, skipping ON marks that belong to the current condition.
func joinOrClauseBoundary(marks []clauseMark, pos int, length int) int {
	for i := range marks {
		if marks[i].start < pos || marks[i].keyword == "ON" {
			continue
		}
		if marks[i].start >= pos {
			return marks[i].start
		}
	}
	return length
}

// parseTableRef parses one FROM/JOIN operand: a `:name` virtual table or a
// sheet range, followed by an optional `[AS] alias`.
func parseTableRef(text string) (*TableReference, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, NewValidationError("from", text, "table reference (:name or Sheet!range)")
	}

	ref := &TableReference{Source: fields[0]}
	if strings.HasPrefix(fields[0], ":") {
		ref.Type = TableVirtual
		ref.Name = strings.TrimPrefix(fields[0], ":")
		if ref.Name == "" {
			return nil, NewValidationError("from", text, "virtual table name after ':'")
		}
	} else {
		ref.Type = TableSheet
	}

	switch len(fields) {
	case 1:
	case 2:
		ref.Alias = fields[1]
	case 3:
		if !strings.EqualFold(fields[1], "AS") {
			return nil, NewValidationError("from", text, "table reference followed by [AS] alias")
		}
		ref.Alias = fields[2]
	default:
		return nil, NewValidationError("from", text, "table reference followed by [AS] alias")
	}
	if strings.EqualFold(ref.Alias, "AS") {
		return nil, NewValidationError("from", text, "alias name after AS")
	}
	return ref, nil
}

// ParseSelectStatement splits a SELECT statement into its clauses.
func ParseSelectStatement(stmt string) (*SelectStatement, error) {
	trimmed := strings.TrimSpace(stmt)
	if !strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		return nil, NewValidationError("statement", stmt, "statement starting with SELECT")
	}
	selectEnd := strings.Index(strings.ToUpper(stmt), "SELECT") + len("SELECT")

	masked := maskQuoted(stmt)
	marks := markClauses(masked)

	out := &SelectStatement{}
	out.SelectClause = strings.TrimSpace(stmt[selectEnd:nextBoundary(marks, selectEnd, len(stmt))])
	if out.SelectClause == "" {
		return nil, NewValidationError("selectClause", stmt, "column list or *")
	}

	mainRef, joins, err := ParseFromClause(stmt)
	if err != nil {
		return nil, err
	}
	out.From = mainRef
	out.Joins = joins

	clauseAfter := func(keyword string) string {
		mark := firstMark(marks, keyword, 0)
		if mark == nil {
			return ""
		}
		return strings.TrimSpace(stmt[mark.end:nextBoundary(marks, mark.end, len(stmt))])
	}

	out.WhereClause = clauseAfter("WHERE")
	out.GroupByClause = clauseAfter("GROUP BY")
	out.HavingClause = clauseAfter("HAVING")
	out.OrderByClause = clauseAfter("ORDER BY")

	if text := clauseAfter("LIMIT"); text != "" {
		n, err := ParseLimitClause(text)
		if err != nil {
			return nil, err
		}
		out.Limit = &n
	}
	if text := clauseAfter("OFFSET"); text != "" {
		n, err := ParseOffsetClause(text)
		if err != nil {
			return nil, err
		}
		out.Offset = &n
	}

	return out, nil
}

// SplitList splits a comma-separated list at the top level, ignoring commas
// inside quoted strings or parentheses. Used for SELECT item lists, GROUP BY
// lists and VALUES tuples.
func SplitList(s string) []string {
	return splitTopLevel(s, ',')
}

// splitTopLevel splits on a separator, ignoring separators inside quotes or
// parentheses.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	var quote byte

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == '\\' {
				i++
				continue
			}
			if ch == quote {
				if i+1 < len(s) && s[i+1] == quote {
					i++
					continue
				}
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// ParseScalarLiteral parses one literal value as used in SET assignments and
// INSERT VALUES lists: quoted strings, numbers, booleans, NULL and DATE
// literals. A bare word is taken as an unquoted string for permissiveness.
func ParseScalarLiteral(text string) (interface{}, error) {
	tokens, err := Tokenize(text)
	if err != nil {
		return nil, err
	}
	if len(tokens) != 2 || tokens[1].Type != TokenEOF {
		return nil, NewValidationError("value", text, "single literal value")
	}

	tok := tokens[0]
	switch tok.Type {
	case TokenString, TokenDate:
		return tok.Value, nil
	case TokenNumber:
		num, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, NewValidationError("value", text, "well-formed number")
		}
		return num, nil
	case TokenBoolean:
		return tok.Value == "true", nil
	case TokenNull:
		return nil, nil
	case TokenColumn:
		return tok.Value, nil
	default:
		return nil, NewValidationError("value", text, "literal value")
	}
}
