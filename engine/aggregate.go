package engine

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/whichguy/sheetsql/query"
	"github.com/whichguy/sheetsql/sheets"
)

// aggregateRows executes the GROUP BY / aggregate path of a SELECT. Without
// a GROUP BY clause every matched row falls into a single group. HAVING and
// ORDER BY run against the result table: each result column gets a synthetic
// letter by position, and aggregate calls in those clauses are rewritten to
// the letter of the matching SELECT item before resolution.
func aggregateRows(stmt *query.SelectStatement, items []selectItem, matched []query.MatchedRow, cols query.ColumnMap) (*sheets.DataTable, error) {
	groupIdx, err := parseGroupByIndices(stmt.GroupByClause, cols)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		switch item.kind {
		case itemStar:
			return nil, query.NewValidationError("selectClause", item.text, "explicit columns or aggregate calls in aggregate queries")
		case itemExpression:
			return nil, query.NewValidationError("selectClause", item.text, "plain columns or aggregate calls in aggregate queries")
		case itemColumn:
			if !containsIndex(groupIdx, item.index) {
				return nil, query.NewValidationError("selectClause", item.text, "non-aggregated column to appear in GROUP BY")
			}
		}
	}

	groups, order := groupRows(matched, groupIdx)

	results := make([]query.MatchedRow, 0, len(order))
	for i, key := range order {
		rows := groups[key]
		out := make([]interface{}, len(items))
		for j, item := range items {
			if item.kind == itemColumn {
				out[j] = cellAt(rows[0].Row, item.index)
			} else {
				out[j] = computeAggregate(item, rows)
			}
		}
		results = append(results, query.MatchedRow{RowNumber: i + 1, Row: out})
	}

	resultCols := query.BuildColumnMap(itemLabels(items))

	if stmt.HavingClause != "" {
		expr, err := compileWhere(substituteAggregates(stmt.HavingClause, items), resultCols)
		if err != nil {
			return nil, err
		}
		filtered := results[:0]
		for _, r := range results {
			ok, err := expr.Evaluate(r.Row, resultCols)
			if err != nil {
				return nil, err
			}
			if ok {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	if stmt.OrderByClause != "" {
		orderBy, err := query.ParseOrderByClause(substituteAggregates(stmt.OrderByClause, items), resultCols)
		if err != nil {
			return nil, err
		}
		query.SortMatchedRows(results, orderBy)
	}

	results = applyOffsetLimit(results, stmt.Offset, stmt.Limit)

	rows := make([][]interface{}, len(results))
	for i, r := range results {
		rows[i] = r.Row
	}
	return buildDataTable(items, rows), nil
}

// parseGroupByIndices resolves a GROUP BY list to source column indices.
func parseGroupByIndices(clause string, cols query.ColumnMap) ([]int, error) {
	if strings.TrimSpace(clause) == "" {
		return nil, nil
	}
	var indices []int
	for _, term := range query.SplitList(clause) {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		letter, ok := cols.Resolve(term)
		if !ok {
			return nil, query.NewValidationError("groupBy", term, "known column name or letter")
		}
		indices = append(indices, query.ColumnToIndex(letter))
	}
	if len(indices) == 0 {
		return nil, query.NewValidationError("groupBy", clause, "at least one column reference")
	}
	return indices, nil
}

// groupRows buckets matched rows by their composite key, preserving
// first-appearance order. The key is the JSON encoding of the key cells so
// distinct value tuples never collide.
func groupRows(matched []query.MatchedRow, groupIdx []int) (map[string][]query.MatchedRow, []string) {
	groups := make(map[string][]query.MatchedRow)
	var order []string
	for _, m := range matched {
		key := groupKey(m.Row, groupIdx)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], m)
	}
	return groups, order
}

func groupKey(row []interface{}, groupIdx []int) string {
	cells := make([]interface{}, len(groupIdx))
	for i, idx := range groupIdx {
		cells[i] = cellAt(row, idx)
	}
	encoded, err := json.Marshal(cells)
	if err != nil {
		return fmt.Sprint(cells...)
	}
	return string(encoded)
}

// computeAggregate evaluates one aggregate call over a group. COUNT(*)
// counts rows, COUNT(col) counts non-null cells, SUM and AVG fold numeric
// cells and return null when the group has none, MIN and MAX order cells
// with the same comparator ORDER BY uses.
func computeAggregate(item selectItem, rows []query.MatchedRow) interface{} {
	switch item.fn {
	case "COUNT":
		if item.argIndex < 0 {
			return float64(len(rows))
		}
		n := 0
		for _, r := range rows {
			if !query.IsNullCell(cellAt(r.Row, item.argIndex)) {
				n++
			}
		}
		return float64(n)

	case "SUM", "AVG":
		sum, n := 0.0, 0
		for _, r := range rows {
			if v, ok := query.ToFloat(cellAt(r.Row, item.argIndex)); ok {
				sum += v
				n++
			}
		}
		if n == 0 {
			return nil
		}
		if item.fn == "AVG" {
			return sum / float64(n)
		}
		return sum

	case "MIN", "MAX":
		var best interface{}
		for _, r := range rows {
			cell := cellAt(r.Row, item.argIndex)
			if query.IsNullCell(cell) {
				continue
			}
			if best == nil {
				best = cell
				continue
			}
			cmp := query.CompareCells(cell, best)
			if (item.fn == "MIN" && cmp < 0) || (item.fn == "MAX" && cmp > 0) {
				best = cell
			}
		}
		return best

	default:
		return nil
	}
}

// substituteAggregates rewrites aggregate-call text in a HAVING or ORDER BY
// clause to the synthetic letter of the matching result column.
func substituteAggregates(clause string, items []selectItem) string {
	for j, item := range items {
		if item.kind != itemAggregate {
			continue
		}
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(item.text))
		clause = re.ReplaceAllString(clause, query.IndexToColumn(j))
	}
	return clause
}

func itemLabels(items []selectItem) []string {
	labels := make([]string, len(items))
	for i, item := range items {
		labels[i] = item.label
	}
	return labels
}

func containsIndex(indices []int, idx int) bool {
	for _, v := range indices {
		if v == idx {
			return true
		}
	}
	return false
}

func cellAt(row []interface{}, idx int) interface{} {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}
