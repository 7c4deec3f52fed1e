// Package engine executes SQL statements against Google Sheets ranges and
// caller-supplied in-memory virtual tables.
//
// One statement is one request-scoped pipeline: split the statement into
// clauses, resolve column references against the target table's headers,
// filter rows with the WHERE evaluator, then project, join, aggregate or
// mutate. Nothing is cached across statements; every execution re-fetches
// headers and rows so results always reflect current data.
package engine

import (
	"context"

	"github.com/pkg/errors"

	"github.com/whichguy/sheetsql/query"
	"github.com/whichguy/sheetsql/sheets"
)

// Request is one statement execution request.
type Request struct {
	// Statement is the SQL text. Required.
	Statement string `json:"statement"`
	// Range is the A1 notation target, required for sheet-backed
	// operations without a FROM clause.
	Range string `json:"range,omitempty"`
	// SpreadsheetID and ScriptID are mutually substitutable; a script id
	// is resolved to its bound spreadsheet.
	SpreadsheetID string `json:"spreadsheetId,omitempty"`
	ScriptID      string `json:"scriptId,omitempty"`
	// ReturnMetadata adds table metadata to SELECT responses.
	ReturnMetadata bool `json:"returnMetadata,omitempty"`
	// DataSources maps virtual table names to 2D arrays whose first row
	// is the header row.
	DataSources map[string][][]interface{} `json:"dataSources,omitempty"`
}

// Result is the response for any operation. Data holds a
// *sheets.DataTable for SELECT and a 2D array (headers first) for
// virtual-table mutations.
type Result struct {
	Operation      string      `json:"operation"`
	Data           interface{} `json:"data,omitempty"`
	UpdatedRange   string      `json:"updatedRange,omitempty"`
	UpdatedRows    int         `json:"updatedRows,omitempty"`
	UpdatedColumns int         `json:"updatedColumns,omitempty"`
	UpdatedCells   int         `json:"updatedCells,omitempty"`
	DeletedRows    int         `json:"deletedRows,omitempty"`
	RowNumbers     []int       `json:"rowNumbers,omitempty"`
	Hints          []string    `json:"hints,omitempty"`
	Metadata       *Metadata   `json:"metadata,omitempty"`
}

// Metadata describes the table a SELECT read from.
type Metadata struct {
	Source      string `json:"source"`
	RowCount    int    `json:"rowCount"`
	ColumnCount int    `json:"columnCount"`
}

// ScriptResolver resolves an Apps Script project id to the spreadsheet it
// is bound to.
type ScriptResolver interface {
	SpreadsheetID(ctx context.Context, scriptID string) (string, error)
}

// Engine is the SQL tool facade. Client may be nil when every statement
// targets virtual tables only.
type Engine struct {
	Client   *sheets.Client
	Resolver ScriptResolver
}

// New creates an engine.
func New(client *sheets.Client, resolver ScriptResolver) *Engine {
	return &Engine{Client: client, Resolver: resolver}
}

// Execute classifies the statement and dispatches to the pure-sheet,
// pure-virtual or hybrid execution path.
func (e *Engine) Execute(ctx context.Context, req Request) (*Result, error) {
	if req.Statement == "" {
		return nil, query.NewValidationError("statement", req.Statement, "non-empty SQL statement")
	}

	op, err := query.DetectOperation(req.Statement)
	if err != nil {
		return nil, err
	}

	switch op {
	case query.OpSelect:
		return e.executeSelect(ctx, req)
	case query.OpInsert:
		return e.executeInsert(ctx, req)
	case query.OpUpdate:
		return e.executeUpdate(ctx, req)
	case query.OpDelete:
		return e.executeDelete(ctx, req)
	default:
		return nil, query.NewValidationError("statement", req.Statement, "SELECT, INSERT, UPDATE or DELETE")
	}
}

// spreadsheetID returns the target spreadsheet, resolving a script id when
// no spreadsheet id was given.
func (e *Engine) spreadsheetID(ctx context.Context, req Request) (string, error) {
	if req.SpreadsheetID != "" {
		return req.SpreadsheetID, nil
	}
	if req.ScriptID == "" {
		return "", query.NewValidationError("spreadsheetId", "", "spreadsheetId or scriptId")
	}
	if e.Resolver == nil {
		return "", query.NewValidationError("scriptId", req.ScriptID, "a configured script resolver to use scriptId")
	}
	id, err := e.Resolver.SpreadsheetID(ctx, req.ScriptID)
	if err != nil {
		return "", errors.Wrap(err, "resolve script to spreadsheet")
	}
	return id, nil
}

// requireClient guards sheet-backed paths.
func (e *Engine) requireClient() error {
	if e.Client == nil {
		return query.NewValidationError("spreadsheetId", "", "a Sheets client and credentials for sheet-backed tables")
	}
	return nil
}
