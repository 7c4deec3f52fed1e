package engine

import (
	"context"
	"fmt"

	"github.com/whichguy/sheetsql/query"
)

// executeInsert runs an INSERT. Positional tuples fill columns left to
// right; a column list addresses columns by name or letter and leaves the
// rest blank.
func (e *Engine) executeInsert(ctx context.Context, req Request) (*Result, error) {
	stmt, err := query.ParseInsertStatement(req.Statement)
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
	rows, hints, err := buildInsertRows(stmt, cols, table.data.Headers)
	if err != nil {
		return nil, err
	}

	if ref.Type == query.TableVirtual {
		return insertVirtual(req, ref, rows, hints)
	}
	return e.insertSheet(ctx, req, table, rows, hints)
}

// buildInsertRows shapes VALUES tuples into full-width table rows.
func buildInsertRows(stmt *query.InsertStatement, cols query.ColumnMap, headers []string) ([][]interface{}, []string, error) {
	width := len(headers)
	var hints []string

	if len(stmt.Columns) == 0 {
		rows := make([][]interface{}, len(stmt.Rows))
		for i, tuple := range stmt.Rows {
			if len(tuple) > width {
				return nil, nil, query.NewValidationError(
					"values", fmt.Sprintf("tuple %d", i+1),
					fmt.Sprintf("at most %d values to match the table's columns", width))
			}
			if len(tuple) < width {
				hints = append(hints, fmt.Sprintf(
					"tuple %d supplies %d of %d columns; remaining cells are blank", i+1, len(tuple), width))
			}
			row := make([]interface{}, width)
			copy(row, tuple)
			rows[i] = row
		}
		return rows, hints, nil
	}

	indices := make([]int, len(stmt.Columns))
	for i, col := range stmt.Columns {
		letter, ok := cols.Resolve(col)
		if !ok {
			return nil, nil, query.NewValidationError("columns", col, "known column name or letter")
		}
		indices[i] = query.ColumnToIndex(letter)
	}

	rows := make([][]interface{}, len(stmt.Rows))
	for i, tuple := range stmt.Rows {
		row := make([]interface{}, width)
		for j, v := range tuple {
			row[indices[j]] = v
		}
		rows[i] = row
	}
	return rows, hints, nil
}

// insertVirtual appends rows in memory and returns the grown table, headers
// first.
func insertVirtual(req Request, ref query.TableReference, rows [][]interface{}, hints []string) (*Result, error) {
	source := req.DataSources[ref.Name]
	out := make([][]interface{}, 0, len(source)+len(rows))
	out = append(out, source...)

	rowNumbers := make([]int, 0, len(rows))
	for _, row := range rows {
		rowNumbers = append(rowNumbers, len(out))
		out = append(out, row)
	}

	return &Result{
		Operation:   query.OpInsert,
		Data:        out,
		UpdatedRows: len(rows),
		RowNumbers:  rowNumbers,
		Hints:       hints,
	}, nil
}

// insertSheet appends rows below the range's table via values.append. Nil
// cells are written as empty strings so the appended rows keep their shape.
func (e *Engine) insertSheet(ctx context.Context, req Request, table *loadedTable, rows [][]interface{}, hints []string) (*Result, error) {
	spreadsheetID, err := e.spreadsheetID(ctx, req)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		for i, v := range row {
			if v == nil {
				row[i] = ""
			}
		}
	}

	resp, err := e.Client.ValuesAppend(ctx, spreadsheetID, table.rangeText, rows)
	if err != nil {
		return nil, err
	}

	res := &Result{Operation: query.OpInsert, UpdatedRows: len(rows), Hints: hints}
	if resp.Updates != nil {
		res.UpdatedRange = resp.Updates.UpdatedRange
		res.UpdatedRows = resp.Updates.UpdatedRows
		res.UpdatedColumns = resp.Updates.UpdatedColumns
		res.UpdatedCells = resp.Updates.UpdatedCells

		if resp.Updates.UpdatedRange != "" {
			_, startRow := rangeOrigin(resp.Updates.UpdatedRange)
			for i := 0; i < len(rows); i++ {
				res.RowNumbers = append(res.RowNumbers, startRow+i)
			}
		}
	}
	return res, nil
}
