package engine

import (
	"context"
	"strconv"
	"strings"

	"github.com/whichguy/sheetsql/query"
	"github.com/whichguy/sheetsql/sheets"
)

// maxCellsPerBatch caps how many single-cell writes one values.batchUpdate
// call carries. Larger updates are split into sequential batches.
const maxCellsPerBatch = 50000

// setAssignment is one `column = value` term of a SET clause. The value is
// either a literal or an arithmetic expression over the row's own columns.
type setAssignment struct {
	index   int
	letter  string
	literal interface{}
	expr    string
	isExpr  bool
}

// parseSetClause parses the SET clause against the target table's columns.
// Values are tried as literals first; anything that does not tokenize as a
// single literal is treated as an arithmetic expression.
func parseSetClause(clause string, cols query.ColumnMap) ([]setAssignment, error) {
	var assignments []setAssignment
	for _, part := range query.SplitList(clause) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := topLevelEquals(part)
		if eq < 0 {
			return nil, query.NewValidationError("setClause", part, "column = value assignment")
		}

		ref := strings.TrimSpace(part[:eq])
		valueText := strings.TrimSpace(part[eq+1:])
		letter, ok := cols.Resolve(ref)
		if !ok {
			return nil, query.NewValidationError("setClause", ref, "known column name or letter")
		}

		a := setAssignment{letter: letter, index: query.ColumnToIndex(letter)}
		if lit, err := query.ParseScalarLiteral(valueText); err == nil {
			a.literal = lit
		} else if query.IsExpression(valueText) {
			a.isExpr = true
			a.expr = query.ParseExpression(valueText, cols)
		} else {
			return nil, query.NewValidationError("setClause", valueText, "literal value or arithmetic expression")
		}
		assignments = append(assignments, a)
	}
	if len(assignments) == 0 {
		return nil, query.NewValidationError("setClause", clause, "at least one column = value assignment")
	}
	return assignments, nil
}

// topLevelEquals finds the first '=' outside quoted strings.
func topLevelEquals(s string) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == '\\' {
				i++
				continue
			}
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case '=':
			return i
		}
	}
	return -1
}

// assignmentValue computes the value one assignment writes into one row.
// Expressions that fail to evaluate write null.
func assignmentValue(a setAssignment, row []interface{}) interface{} {
	if !a.isExpr {
		return a.literal
	}
	if v := query.EvaluateExpression(a.expr, row); v != nil {
		return *v
	}
	return nil
}

// executeUpdate runs an UPDATE. Matched rows can be ordered and limited so
// statements like `UPDATE SET ... WHERE ... ORDER BY Age DESC LIMIT 1`
// target a deterministic subset.
func (e *Engine) executeUpdate(ctx context.Context, req Request) (*Result, error) {
	stmt, err := query.ParseUpdateStatement(req.Statement)
	if err != nil {
		return nil, err
	}
	ref, err := parseFromText(req, stmt.FromClause)
	if err != nil {
		return nil, err
	}
	table, err := e.loadTable(ctx, req, ref)
	if err != nil {
		return nil, err
	}

	cols := query.BuildColumnMap(table.data.Headers)
	assignments, err := parseSetClause(stmt.SetClause, cols)
	if err != nil {
		return nil, err
	}
	matched, err := matchRows(table, stmt.WhereClause, cols)
	if err != nil {
		return nil, err
	}
	matched, err = orderAndLimit(matched, stmt.OrderByClause, stmt.Limit, cols)
	if err != nil {
		return nil, err
	}

	if ref.Type == query.TableVirtual {
		return updateVirtual(req, ref, matched, assignments)
	}
	return e.updateSheet(ctx, req, table, matched, assignments)
}

// orderAndLimit applies a mutation statement's ORDER BY and LIMIT to the
// matched rows. Without ORDER BY the natural row order decides which rows a
// LIMIT keeps.
func orderAndLimit(matched []query.MatchedRow, orderByClause string, limit *int, cols query.ColumnMap) ([]query.MatchedRow, error) {
	if strings.TrimSpace(orderByClause) != "" {
		orderBy, err := query.ParseOrderByClause(orderByClause, cols)
		if err != nil {
			return nil, err
		}
		query.SortMatchedRows(matched, orderBy)
	}
	if limit != nil && *limit < len(matched) {
		matched = matched[:*limit]
	}
	return matched, nil
}

// updateVirtual applies assignments in memory and returns the whole mutated
// table, headers first, so the caller can feed it back as a data source.
func updateVirtual(req Request, ref query.TableReference, matched []query.MatchedRow, assignments []setAssignment) (*Result, error) {
	source := req.DataSources[ref.Name]
	out := make([][]interface{}, len(source))
	copy(out, source)

	rowNumbers := make([]int, 0, len(matched))
	for _, m := range matched {
		updated := make([]interface{}, len(m.Row))
		copy(updated, m.Row)
		for _, a := range assignments {
			for len(updated) <= a.index {
				updated = append(updated, nil)
			}
			updated[a.index] = assignmentValue(a, m.Row)
		}
		out[m.RowNumber] = updated
		rowNumbers = append(rowNumbers, m.RowNumber)
	}

	return &Result{
		Operation:      query.OpUpdate,
		Data:           out,
		UpdatedRows:    len(matched),
		UpdatedColumns: updatedColumns(matched, assignments),
		UpdatedCells:   len(matched) * len(assignments),
		RowNumbers:     rowNumbers,
	}, nil
}

// updateSheet writes one single-cell ValueRange per assignment per matched
// row, batched under the cell cap.
func (e *Engine) updateSheet(ctx context.Context, req Request, table *loadedTable, matched []query.MatchedRow, assignments []setAssignment) (*Result, error) {
	spreadsheetID, err := e.spreadsheetID(ctx, req)
	if err != nil {
		return nil, err
	}

	var data []sheets.ValueRange
	rowNumbers := make([]int, 0, len(matched))
	for _, m := range matched {
		rowNumbers = append(rowNumbers, m.RowNumber)
		for _, a := range assignments {
			v := assignmentValue(a, m.Row)
			if v == nil {
				// USER_ENTERED skips JSON nulls; an empty string clears
				// the cell.
				v = ""
			}
			data = append(data, sheets.ValueRange{
				Range:  cellRef(table.rangeText, a.index, m.RowNumber),
				Values: [][]interface{}{{v}},
			})
		}
	}

	res := &Result{
		Operation:      query.OpUpdate,
		UpdatedRows:    len(matched),
		UpdatedColumns: updatedColumns(matched, assignments),
		RowNumbers:     rowNumbers,
	}
	for start := 0; start < len(data); start += maxCellsPerBatch {
		end := start + maxCellsPerBatch
		if end > len(data) {
			end = len(data)
		}
		resp, err := e.Client.ValuesBatchUpdate(ctx, spreadsheetID, data[start:end])
		if err != nil {
			return nil, err
		}
		res.UpdatedCells += resp.TotalUpdatedCells
	}
	if len(matched) > 0 {
		res.UpdatedRange = boundingRange(table.rangeText, matched, assignments)
	}
	return res, nil
}

func updatedColumns(matched []query.MatchedRow, assignments []setAssignment) int {
	if len(matched) == 0 {
		return 0
	}
	return len(assignments)
}

// boundingRange is the smallest A1 rectangle covering every written cell.
func boundingRange(rangeText string, matched []query.MatchedRow, assignments []setAssignment) string {
	minRow, maxRow := matched[0].RowNumber, matched[0].RowNumber
	for _, m := range matched[1:] {
		if m.RowNumber < minRow {
			minRow = m.RowNumber
		}
		if m.RowNumber > maxRow {
			maxRow = m.RowNumber
		}
	}
	minIdx, maxIdx := assignments[0].index, assignments[0].index
	for _, a := range assignments[1:] {
		if a.index < minIdx {
			minIdx = a.index
		}
		if a.index > maxIdx {
			maxIdx = a.index
		}
	}

	startCol, _ := rangeOrigin(rangeText)
	rng := query.IndexToColumn(startCol+minIdx) + strconv.Itoa(minRow) +
		":" + query.IndexToColumn(startCol+maxIdx) + strconv.Itoa(maxRow)
	if name := sheetName(rangeText); name != "" {
		rng = name + "!" + rng
	}
	return rng
}
