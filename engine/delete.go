package engine

import (
	"context"
	"sort"

	"github.com/whichguy/sheetsql/query"
)

// executeDelete runs a DELETE. Like UPDATE, ORDER BY and LIMIT bound which
// matched rows are removed.
func (e *Engine) executeDelete(ctx context.Context, req Request) (*Result, error) {
	stmt, err := query.ParseDeleteStatement(req.Statement)
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
	matched, err := matchRows(table, stmt.WhereClause, cols)
	if err != nil {
		return nil, err
	}
	matched, err = orderAndLimit(matched, stmt.OrderByClause, stmt.Limit, cols)
	if err != nil {
		return nil, err
	}

	if ref.Type == query.TableVirtual {
		return deleteVirtual(req, ref, matched)
	}
	return e.deleteSheet(ctx, req, table, matched)
}

// deleteVirtual removes matched rows in memory and returns the remaining
// table, headers first.
func deleteVirtual(req Request, ref query.TableReference, matched []query.MatchedRow) (*Result, error) {
	source := req.DataSources[ref.Name]

	drop := make(map[int]struct{}, len(matched))
	rowNumbers := make([]int, 0, len(matched))
	for _, m := range matched {
		drop[m.RowNumber] = struct{}{}
		rowNumbers = append(rowNumbers, m.RowNumber)
	}
	sort.Ints(rowNumbers)

	out := make([][]interface{}, 0, len(source)-len(drop))
	for i, row := range source {
		if _, gone := drop[i]; gone {
			continue
		}
		out = append(out, row)
	}

	return &Result{
		Operation:   query.OpDelete,
		Data:        out,
		DeletedRows: len(matched),
		RowNumbers:  rowNumbers,
	}, nil
}

// deleteSheet removes matched rows with one atomic spreadsheets.batchUpdate.
// Deletions are ordered bottom-up so each DeleteDimension request still
// addresses the row it matched.
func (e *Engine) deleteSheet(ctx context.Context, req Request, table *loadedTable, matched []query.MatchedRow) (*Result, error) {
	rowNumbers := make([]int, 0, len(matched))
	for _, m := range matched {
		rowNumbers = append(rowNumbers, m.RowNumber)
	}
	sort.Ints(rowNumbers)

	res := &Result{
		Operation:   query.OpDelete,
		DeletedRows: len(matched),
		RowNumbers:  rowNumbers,
	}
	if len(matched) == 0 {
		return res, nil
	}

	spreadsheetID, err := e.spreadsheetID(ctx, req)
	if err != nil {
		return nil, err
	}
	sheetID, err := e.Client.SheetID(ctx, spreadsheetID, sheetName(table.rangeText))
	if err != nil {
		return nil, err
	}

	descending := make([]int, len(rowNumbers))
	copy(descending, rowNumbers)
	sort.Sort(sort.Reverse(sort.IntSlice(descending)))

	if err := e.Client.DeleteRows(ctx, spreadsheetID, sheetID, descending); err != nil {
		return nil, err
	}
	return res, nil
}
