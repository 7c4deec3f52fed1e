package engine

import (
	"context"
	"strings"

	"github.com/whichguy/sheetsql/query"
	"github.com/whichguy/sheetsql/sheets"
)

// executeSelect runs a SELECT. Statements without a FROM clause against a
// spreadsheet are delegated to the Visualization Query engine, which speaks
// its own dialect natively (scalar functions, label, format). Everything
// else runs locally against fetched or caller-supplied rows.
func (e *Engine) executeSelect(ctx context.Context, req Request) (*Result, error) {
	stmt, err := query.ParseSelectStatement(req.Statement)
	if err != nil {
		return nil, err
	}

	if stmt.From == nil && (req.SpreadsheetID != "" || req.ScriptID != "") {
		return e.delegateSelect(ctx, req)
	}

	ref := stmt.From
	if ref == nil {
		r, err := defaultTableRef(req)
		if err != nil {
			return nil, err
		}
		ref = &r
	}
	table, err := e.loadTable(ctx, req, *ref)
	if err != nil {
		return nil, err
	}
	source := "values"
	if ref.Type == query.TableVirtual {
		source = "dataSources"
	}
	baseRows, baseCols := len(table.data.Rows), len(table.data.Headers)

	if len(stmt.Joins) > 0 {
		table, err = e.joinTables(ctx, req, table, stmt.Joins)
		if err != nil {
			return nil, err
		}
	}

	cols := query.BuildColumnMap(table.data.Headers)
	items, err := parseSelectItems(stmt.SelectClause, cols, table.data.Headers)
	if err != nil {
		return nil, err
	}

	matched, err := matchRows(table, stmt.WhereClause, cols)
	if err != nil {
		return nil, err
	}

	var dt *sheets.DataTable
	if stmt.GroupByClause != "" || hasAggregate(items) {
		dt, err = aggregateRows(stmt, items, matched, cols)
		if err != nil {
			return nil, err
		}
	} else {
		if stmt.HavingClause != "" {
			return nil, query.NewValidationError("having", stmt.HavingClause, "HAVING together with GROUP BY or aggregates")
		}
		if stmt.OrderByClause != "" {
			orderBy, err := query.ParseOrderByClause(stmt.OrderByClause, cols)
			if err != nil {
				return nil, err
			}
			query.SortMatchedRows(matched, orderBy)
		}
		matched = applyOffsetLimit(matched, stmt.Offset, stmt.Limit)
		items = expandStar(items, table.data.Headers)
		dt = buildDataTable(items, projectRows(items, matched))
	}

	res := &Result{Operation: query.OpSelect, Data: dt}
	if req.ReturnMetadata {
		res.Metadata = &Metadata{Source: source, RowCount: baseRows, ColumnCount: baseCols}
	}
	return res, nil
}

// delegateSelect forwards the statement text unmodified to the
// Visualization Query endpoint.
func (e *Engine) delegateSelect(ctx context.Context, req Request) (*Result, error) {
	if err := e.requireClient(); err != nil {
		return nil, err
	}
	spreadsheetID, err := e.spreadsheetID(ctx, req)
	if err != nil {
		return nil, err
	}
	dt, err := e.Client.GvizQuery(ctx, spreadsheetID, req.Statement, req.Range)
	if err != nil {
		return nil, err
	}

	res := &Result{Operation: query.OpSelect, Data: dt}
	if req.ReturnMetadata {
		res.Metadata = &Metadata{Source: "visualization", RowCount: len(dt.Rows), ColumnCount: len(dt.Cols)}
	}
	return res, nil
}

// compileWhere resolves header names to column letters and parses the
// condition.
func compileWhere(clause string, cols query.ColumnMap) (query.Expression, error) {
	return query.ParseWhereClause(query.ResolveColumnNames(clause, cols))
}

// matchRows filters the table by an optional WHERE clause. An empty clause
// matches every row.
func matchRows(table *loadedTable, whereClause string, cols query.ColumnMap) ([]query.MatchedRow, error) {
	if strings.TrimSpace(whereClause) == "" {
		matched := make([]query.MatchedRow, len(table.data.Rows))
		for i, row := range table.data.Rows {
			matched[i] = query.MatchedRow{RowNumber: table.firstDataRow + i, Row: row}
		}
		return matched, nil
	}
	expr, err := compileWhere(whereClause, cols)
	if err != nil {
		return nil, err
	}
	return query.FilterRows(table.data.Rows, expr, cols, table.firstDataRow)
}

// applyOffsetLimit slices the matched rows, offset before limit.
func applyOffsetLimit(matched []query.MatchedRow, offset, limit *int) []query.MatchedRow {
	if offset != nil {
		if *offset >= len(matched) {
			return nil
		}
		matched = matched[*offset:]
	}
	if limit != nil && *limit < len(matched) {
		matched = matched[:*limit]
	}
	return matched
}

// projectRows evaluates the SELECT items against each matched row.
// Expression items that fail to evaluate yield null cells.
func projectRows(items []selectItem, matched []query.MatchedRow) [][]interface{} {
	out := make([][]interface{}, len(matched))
	for i, m := range matched {
		row := make([]interface{}, len(items))
		for j, item := range items {
			switch item.kind {
			case itemColumn:
				if item.index >= 0 && item.index < len(m.Row) {
					row[j] = m.Row[item.index]
				}
			case itemExpression:
				if v := query.EvaluateExpression(item.expr, m.Row); v != nil {
					row[j] = *v
				}
			}
		}
		out[i] = row
	}
	return out
}

// buildDataTable shapes projected rows into the Visualization response
// format so sheet-backed and local results look the same to callers.
func buildDataTable(items []selectItem, rows [][]interface{}) *sheets.DataTable {
	dt := &sheets.DataTable{
		Cols: make([]sheets.Col, len(items)),
		Rows: make([]sheets.Row, len(rows)),
	}
	for j, item := range items {
		dt.Cols[j] = sheets.Col{
			ID:    query.IndexToColumn(j),
			Label: item.label,
			Type:  inferColumnType(rows, j),
		}
	}
	for i, row := range rows {
		cells := make([]sheets.Cell, len(row))
		for j, v := range row {
			cells[j] = sheets.Cell{V: v}
		}
		dt.Rows[i] = sheets.Row{C: cells}
	}
	return dt
}

// inferColumnType types a result column by its first non-null value. Cells
// keep their original values; the type is advisory, as in the Visualization
// response.
func inferColumnType(rows [][]interface{}, idx int) string {
	for _, row := range rows {
		if idx >= len(row) || query.IsNullCell(row[idx]) {
			continue
		}
		switch row[idx].(type) {
		case bool:
			return "boolean"
		case float64, float32, int, int32, int64:
			return "number"
		default:
			return "string"
		}
	}
	return "string"
}
