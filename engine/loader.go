package engine

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/whichguy/sheetsql/query"
)

// loadedTable is a table plus the bookkeeping mutations need: where row
// numbers start and which range the data came from.
type loadedTable struct {
	data query.TableData
	ref  query.TableReference
	// firstDataRow is the row number of the first data row: 1-based sheet
	// row for sheet tables, index into the source 2D array for virtual
	// tables (headers sit at index 0, so data starts at 1).
	firstDataRow int
	// rangeText is the A1 range the table was fetched from; empty for
	// virtual tables.
	rangeText string
}

// loadTable fetches one table per its reference: virtual tables come from
// the request's dataSources, sheet tables from a values.get of the range.
func (e *Engine) loadTable(ctx context.Context, req Request, ref query.TableReference) (*loadedTable, error) {
	if ref.Type == query.TableVirtual {
		return loadVirtualTable(req, ref)
	}

	if err := e.requireClient(); err != nil {
		return nil, err
	}
	spreadsheetID, err := e.spreadsheetID(ctx, req)
	if err != nil {
		return nil, err
	}

	rng := ref.Source
	if rng == "" {
		rng = req.Range
	}
	if rng == "" {
		return nil, query.NewValidationError("range", "", "A1 range for sheet-backed tables")
	}

	vr, err := e.Client.ValuesGet(ctx, spreadsheetID, rng)
	if err != nil {
		return nil, err
	}
	if len(vr.Values) == 0 {
		return nil, query.NewValidationError("range", rng, "range with a header row")
	}

	headers := make([]string, len(vr.Values[0]))
	for i, cell := range vr.Values[0] {
		headers[i] = query.CellString(cell)
	}

	_, startRow := rangeOrigin(rng)
	return &loadedTable{
		data:         query.TableData{Headers: headers, Rows: vr.Values[1:]},
		ref:          ref,
		firstDataRow: startRow + 1,
		rangeText:    rng,
	}, nil
}

// loadVirtualTable pulls a virtual table out of the request's dataSources.
func loadVirtualTable(req Request, ref query.TableReference) (*loadedTable, error) {
	if len(req.DataSources) == 0 {
		return nil, query.NewValidationError("dataSources", nil, "dataSources when referencing virtual table :"+ref.Name)
	}
	data, ok := req.DataSources[ref.Name]
	if !ok {
		return nil, query.NewValidationError("dataSources", ref.Name, "a dataSources entry for :"+ref.Name)
	}
	if len(data) == 0 {
		return nil, query.NewValidationError("dataSources", ref.Name, "non-empty 2D array with a header row")
	}

	headers := make([]string, len(data[0]))
	for i, cell := range data[0] {
		headers[i] = query.CellString(cell)
	}
	return &loadedTable{
		data:         query.TableData{Headers: headers, Rows: data[1:]},
		ref:          ref,
		firstDataRow: 1,
	}, nil
}

// defaultTableRef picks the statement target when no FROM clause names one:
// the request range when a spreadsheet is addressed, otherwise the sole
// virtual table.
func defaultTableRef(req Request) (query.TableReference, error) {
	if req.SpreadsheetID != "" || req.ScriptID != "" {
		return query.TableReference{Type: query.TableSheet, Source: req.Range}, nil
	}
	if len(req.DataSources) == 1 {
		for name := range req.DataSources {
			return query.TableReference{Type: query.TableVirtual, Name: name, Source: ":" + name}, nil
		}
	}
	return query.TableReference{}, query.NewValidationError(
		"statement", req.Statement, "a FROM clause, a spreadsheet target, or exactly one dataSources entry")
}

// parseFromText turns an optional FROM clause text into a table reference.
func parseFromText(req Request, fromClause string) (query.TableReference, error) {
	if strings.TrimSpace(fromClause) == "" {
		return defaultTableRef(req)
	}
	ref, _, err := query.ParseFromClause("FROM " + fromClause)
	if err != nil {
		return query.TableReference{}, err
	}
	return *ref, nil
}

// cellOriginRe matches the leading cell of an A1 reference with the sheet
// prefix already stripped. Column letters are capped at three so a bare
// sheet name like "Sheet1" is never mistaken for a cell.
var cellOriginRe = regexp.MustCompile(`^\$?([A-Za-z]{1,3})\$?(\d+)`)

// rangeOrigin extracts the zero-based start column and 1-based start row of
// an A1 range. A bare sheet name (no cell) starts at A1.
func rangeOrigin(rng string) (startCol, startRow int) {
	if bang := strings.LastIndex(rng, "!"); bang >= 0 {
		rng = rng[bang+1:]
	}
	match := cellOriginRe.FindStringSubmatch(rng)
	if match == nil {
		return 0, 1
	}
	col := query.ColumnToIndex(match[1])
	row, err := strconv.Atoi(match[2])
	if col < 0 || err != nil || row < 1 {
		return 0, 1
	}
	return col, row
}

// sheetName returns the sheet part of an A1 range, or "" when the range
// addresses the default sheet.
func sheetName(rng string) string {
	bang := strings.Index(rng, "!")
	if bang < 0 {
		// A bare name with no cell reference is itself a sheet name.
		if !cellOriginRe.MatchString(rng) {
			return strings.Trim(rng, "'")
		}
		return ""
	}
	return strings.Trim(rng[:bang], "'")
}

// cellRef builds an A1 single-cell reference within the loaded range:
// column index is relative to the range's first column.
func cellRef(rangeText string, colIndex, rowNumber int) string {
	startCol, _ := rangeOrigin(rangeText)
	letter := query.IndexToColumn(startCol + colIndex)
	cell := letter + strconv.Itoa(rowNumber)
	if name := sheetName(rangeText); name != "" {
		return name + "!" + cell
	}
	return cell
}
