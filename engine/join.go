package engine

import (
	"context"
	"strings"

	"github.com/whichguy/sheetsql/query"
)

// joinTables folds each JOIN clause into the running table, left to right.
// Joined tables carry alias-qualified headers so `alias.column` references
// keep working across the combined row.
func (e *Engine) joinTables(ctx context.Context, req Request, main *loadedTable, joins []query.JoinClause) (*loadedTable, error) {
	combined := qualifyTable(main)
	for _, join := range joins {
		right, err := e.loadTable(ctx, req, join.Table)
		if err != nil {
			return nil, err
		}
		combined, err = performJoin(combined, qualifyTable(right), join)
		if err != nil {
			return nil, err
		}
	}
	return combined, nil
}

// qualifyTable prefixes headers with the table's alias or name. Tables
// without either keep their headers bare.
func qualifyTable(table *loadedTable) *loadedTable {
	prefix := table.ref.Alias
	if prefix == "" {
		prefix = table.ref.Name
	}
	if prefix == "" {
		prefix = sheetName(table.ref.Source)
	}
	if prefix == "" {
		return table
	}

	headers := make([]string, len(table.data.Headers))
	for i, header := range table.data.Headers {
		if strings.Contains(header, ".") {
			headers[i] = header
			continue
		}
		headers[i] = prefix + "." + header
	}
	out := *table
	out.data.Headers = headers
	return &out
}

// performJoin nested-loop joins two tables on an equality condition. LEFT
// keeps unmatched left rows with null padding on the right, RIGHT keeps
// unmatched right rows with null padding on the left.
func performJoin(left, right *loadedTable, join query.JoinClause) (*loadedTable, error) {
	leftIdx, rightIdx, err := resolveJoinCondition(join.On, left, right)
	if err != nil {
		return nil, err
	}

	leftWidth, rightWidth := len(left.data.Headers), len(right.data.Headers)
	headers := make([]string, 0, leftWidth+rightWidth)
	headers = append(headers, left.data.Headers...)
	headers = append(headers, right.data.Headers...)

	var rows [][]interface{}
	rightMatched := make([]bool, len(right.data.Rows))

	for _, lrow := range left.data.Rows {
		key := cellAt(lrow, leftIdx)
		matched := false
		for j, rrow := range right.data.Rows {
			if !joinKeysEqual(key, cellAt(rrow, rightIdx)) {
				continue
			}
			rows = append(rows, concatRow(lrow, leftWidth, rrow, rightWidth))
			matched = true
			rightMatched[j] = true
		}
		if !matched && join.Type == query.JoinLeft {
			rows = append(rows, concatRow(lrow, leftWidth, nil, rightWidth))
		}
	}

	if join.Type == query.JoinRight {
		for j, rrow := range right.data.Rows {
			if !rightMatched[j] {
				rows = append(rows, concatRow(nil, leftWidth, rrow, rightWidth))
			}
		}
	}

	return &loadedTable{
		data:         query.TableData{Headers: headers, Rows: rows},
		firstDataRow: 1,
	}, nil
}

// resolveJoinCondition parses `x = y` and assigns each side to the table
// whose columns it names. Either order is accepted.
func resolveJoinCondition(on string, left, right *loadedTable) (leftIdx, rightIdx int, err error) {
	parts := strings.SplitN(on, "=", 2)
	if len(parts) != 2 {
		return 0, 0, query.NewValidationError("join", on, "ON condition of the form alias.column = alias.column")
	}

	leftCols := query.BuildColumnMap(left.data.Headers)
	rightCols := query.BuildColumnMap(right.data.Headers)
	leftIdx, rightIdx = -1, -1

	for _, side := range parts {
		ref := strings.TrimSpace(side)
		if letter, ok := leftCols.Resolve(ref); ok && leftIdx < 0 {
			leftIdx = query.ColumnToIndex(letter)
			continue
		}
		if letter, ok := rightCols.Resolve(ref); ok && rightIdx < 0 {
			rightIdx = query.ColumnToIndex(letter)
			continue
		}
		return 0, 0, query.NewValidationError("join", ref, "column resolvable in exactly one joined table")
	}
	if leftIdx < 0 || rightIdx < 0 {
		return 0, 0, query.NewValidationError("join", on, "one column from each side of the join")
	}
	return leftIdx, rightIdx, nil
}

// joinKeysEqual matches join keys by case-insensitive string equality.
// Null and empty cells match each other, so a nil key on one side joins
// an empty string on the other.
func joinKeysEqual(a, b interface{}) bool {
	if query.IsNullCell(a) || query.IsNullCell(b) {
		return query.IsNullCell(a) && query.IsNullCell(b)
	}
	return strings.EqualFold(query.CellString(a), query.CellString(b))
}

// concatRow builds a combined row of exactly leftWidth+rightWidth cells,
// null-padding ragged or absent sides.
func concatRow(lrow []interface{}, leftWidth int, rrow []interface{}, rightWidth int) []interface{} {
	out := make([]interface{}, leftWidth+rightWidth)
	for i := 0; i < leftWidth && i < len(lrow); i++ {
		out[i] = lrow[i]
	}
	for i := 0; i < rightWidth && i < len(rrow); i++ {
		out[leftWidth+i] = rrow[i]
	}
	return out
}
