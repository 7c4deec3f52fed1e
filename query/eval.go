package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// dateFormats are tried in order when coercing a cell to a date. The list
// mirrors what spreadsheet sources actually emit: ISO timestamps, ISO
// dates, and common slash-separated forms.
var dateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"1/2/2006",
}

// Evaluate returns the conjunction of both sides.
func (e *AndExpr) Evaluate(row []interface{}, cols ColumnMap) (bool, error) {
	left, err := e.Left.Evaluate(row, cols)
	if err != nil {
		return false, err
	}
	if !left {
		return false, nil
	}
	return e.Right.Evaluate(row, cols)
}

// Evaluate returns the disjunction of both sides.
func (e *OrExpr) Evaluate(row []interface{}, cols ColumnMap) (bool, error) {
	left, err := e.Left.Evaluate(row, cols)
	if err != nil {
		return false, err
	}
	if left {
		return true, nil
	}
	return e.Right.Evaluate(row, cols)
}

// Evaluate returns the literal boolean.
func (e *BoolExpr) Evaluate(row []interface{}, cols ColumnMap) (bool, error) {
	return e.Value, nil
}

// Evaluate checks the cell for null. Undefined and empty-string cells count
// as null.
func (e *NullCheckExpr) Evaluate(row []interface{}, cols ColumnMap) (bool, error) {
	cell := cellValue(row, e.Column)
	if IsNullCell(cell) {
		return e.IsNull, nil
	}
	return !e.IsNull, nil
}

// Evaluate compares the cell against the literal. Comparison is type-aware:
// date targets compare by epoch millisecond when the cell parses as a date,
// numeric targets compare numerically when the cell is numeric, everything
// else falls back to case-sensitive string comparison. Null operands never
// error: `=` against null is true only when both sides are null; any other
// operator against a null operand is false.
func (e *ComparisonExpr) Evaluate(row []interface{}, cols ColumnMap) (bool, error) {
	cell := cellValue(row, e.Column)

	if e.Value.Kind == LiteralNull {
		if e.Operator == "=" {
			return IsNullCell(cell), nil
		}
		return false, nil
	}
	if IsNullCell(cell) {
		return false, nil
	}

	switch e.Operator {
	case "contains", "starts with", "ends with":
		return compareStringOp(CellString(cell), e.Operator, literalString(e.Value)), nil
	case "=", "<>", "!=", "<", "<=", ">", ">=":
		return e.compareOrdered(cell)
	default:
		return false, fmt.Errorf("unsupported operator %q", e.Operator)
	}
}

func (e *ComparisonExpr) compareOrdered(cell interface{}) (bool, error) {
	// Date targets first: compare by epoch millisecond when the cell is
	// parseable as a date, otherwise fall through to string comparison.
	if e.Value.Kind == LiteralDate {
		target, ok := parseDate(e.Value.Str)
		if ok {
			if cellTime, ok := parseDateValue(cell); ok {
				return compareOrderedInts(cellTime.UnixMilli(), e.Operator, target.UnixMilli()), nil
			}
		}
		return compareOrderedStrings(CellString(cell), e.Operator, e.Value.Str), nil
	}

	if e.Value.Kind == LiteralNumber {
		if num, ok := ToFloat(cell); ok {
			return compareOrderedFloats(num, e.Operator, e.Value.Num), nil
		}
		return compareOrderedStrings(CellString(cell), e.Operator, e.Value.Str), nil
	}

	if e.Value.Kind == LiteralBool {
		if b, ok := cell.(bool); ok {
			switch e.Operator {
			case "=":
				return b == e.Value.Bool, nil
			case "<>", "!=":
				return b != e.Value.Bool, nil
			}
			return false, nil
		}
		return compareOrderedStrings(CellString(cell), e.Operator, strconv.FormatBool(e.Value.Bool)), nil
	}

	return compareOrderedStrings(CellString(cell), e.Operator, e.Value.Str), nil
}

// cellValue looks a column letter up in a row. Out-of-range indices read as
// nil; rows may be ragged.
func cellValue(row []interface{}, letter string) interface{} {
	idx := ColumnToIndex(letter)
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

// IsNullCell treats nil and empty-string cells as null.
func IsNullCell(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok && s == "" {
		return true
	}
	return false
}

// CellString renders a cell for string comparison.
func CellString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

func literalString(lit Literal) string {
	switch lit.Kind {
	case LiteralNumber:
		if lit.Str != "" {
			return lit.Str
		}
		return strconv.FormatFloat(lit.Num, 'f', -1, 64)
	case LiteralBool:
		return strconv.FormatBool(lit.Bool)
	default:
		return lit.Str
	}
}

// ToFloat converts a cell to float64 when it is numeric, including numeric
// strings as returned by the values API.
func ToFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		num, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return num, true
	default:
		return 0, false
	}
}

// parseDate parses a date literal string.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseDateValue coerces a cell to a date.
func parseDateValue(v interface{}) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	return parseDate(s)
}

func compareOrderedFloats(left float64, operator string, right float64) bool {
	switch operator {
	case "=":
		return left == right
	case "<>", "!=":
		return left != right
	case "<":
		return left < right
	case "<=":
		return left <= right
	case ">":
		return left > right
	case ">=":
		return left >= right
	default:
		return false
	}
}

func compareOrderedInts(left int64, operator string, right int64) bool {
	switch operator {
	case "=":
		return left == right
	case "<>", "!=":
		return left != right
	case "<":
		return left < right
	case "<=":
		return left <= right
	case ">":
		return left > right
	case ">=":
		return left >= right
	default:
		return false
	}
}

// compareOrderedStrings compares case-sensitively, matching spreadsheet
// query semantics.
func compareOrderedStrings(left, operator, right string) bool {
	switch operator {
	case "=":
		return left == right
	case "<>", "!=":
		return left != right
	case "<":
		return left < right
	case "<=":
		return left <= right
	case ">":
		return left > right
	case ">=":
		return left >= right
	default:
		return false
	}
}

func compareStringOp(left, operator, right string) bool {
	switch operator {
	case "contains":
		return strings.Contains(left, right)
	case "starts with":
		return strings.HasPrefix(left, right)
	case "ends with":
		return strings.HasSuffix(left, right)
	default:
		return false
	}
}

// FilterRows evaluates an expression against every row and returns the
// matches. RowNumber is assigned from firstRowNumber upward so sheet-backed
// tables can report 1-based sheet rows (data starts below the header) and
// virtual tables can report array indices.
func FilterRows(rows [][]interface{}, expr Expression, cols ColumnMap, firstRowNumber int) ([]MatchedRow, error) {
	matched := make([]MatchedRow, 0)
	for i, row := range rows {
		ok, err := expr.Evaluate(row, cols)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, MatchedRow{RowNumber: firstRowNumber + i, Row: row})
		}
	}
	return matched, nil
}

// CompareCells orders two cells for ORDER BY and MIN/MAX: nulls first, then
// numerically when both sides are numeric, then lexically.
func CompareCells(a, b interface{}) int {
	aNull, bNull := IsNullCell(a), IsNullCell(b)
	if aNull && bNull {
		return 0
	}
	if aNull {
		return -1
	}
	if bNull {
		return 1
	}

	aNum, aOK := ToFloat(a)
	bNum, bOK := ToFloat(b)
	if aOK && bOK {
		switch {
		case aNum < bNum:
			return -1
		case aNum > bNum:
			return 1
		default:
			return 0
		}
	}

	aStr, bStr := CellString(a), CellString(b)
	switch {
	case aStr < bStr:
		return -1
	case aStr > bStr:
		return 1
	default:
		return 0
	}
}

// SortMatchedRows sorts matched rows by the ORDER BY terms, stably so that
// ties keep their natural order. Rows with equal keys fall back to their
// original row numbers, keeping LIMIT deterministic.
func SortMatchedRows(matched []MatchedRow, orderBy []OrderByItem) {
	sort.SliceStable(matched, func(i, j int) bool {
		for _, item := range orderBy {
			cmp := CompareCells(cellValue(matched[i].Row, item.Column), cellValue(matched[j].Row, item.Column))
			if cmp == 0 {
				continue
			}
			if item.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return matched[i].RowNumber < matched[j].RowNumber
	})
}
