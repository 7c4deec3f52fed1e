// Command sheetsql-mcp exposes the SQL engine as an MCP stdio server with a
// single sheets_sql tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/whichguy/sheetsql/config"
	"github.com/whichguy/sheetsql/engine"
	"github.com/whichguy/sheetsql/query"
	"github.com/whichguy/sheetsql/sheets"
)

// SQLInput defines parameters for the sheets_sql tool.
type SQLInput struct {
	Statement      string                     `json:"statement" jsonschema_description:"SQL statement: SELECT, INSERT, UPDATE or DELETE"`
	Range          string                     `json:"range,omitempty" jsonschema_description:"A1 range for sheet-backed statements without a FROM clause"`
	SpreadsheetID  string                     `json:"spreadsheetId,omitempty" jsonschema_description:"Target spreadsheet id"`
	ScriptID       string                     `json:"scriptId,omitempty" jsonschema_description:"Apps Script project id, resolved to its bound spreadsheet"`
	ReturnMetadata bool                       `json:"returnMetadata,omitempty" jsonschema_description:"Include table metadata with SELECT results"`
	DataSources    map[string][][]interface{} `json:"dataSources,omitempty" jsonschema_description:"Virtual tables: name to 2D array, first row is the header row"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	var client *sheets.Client
	var resolver engine.ScriptResolver
	if cfg.Token != "" {
		client = sheets.NewClient(sheets.StaticToken(cfg.Token))
		client.HTTP.Timeout = cfg.HTTPTimeout
		resolver = sheets.NewScriptResolver(sheets.StaticToken(cfg.Token))
	}
	eng := engine.New(client, resolver)

	s := server.NewMCPServer("sheetsql", "1.0.0", server.WithToolCapabilities(false))

	tool := mcp.NewTool(
		"sheets_sql",
		mcp.WithDescription("Run a SQL statement against Google Sheets ranges or supplied virtual tables. SELECT returns a data table; mutations return updated/deleted row counts. UPDATE and DELETE require a WHERE clause (use WHERE TRUE to target all rows)."),
		mcp.WithString("statement", mcp.Required(), mcp.Description("SQL statement: SELECT, INSERT, UPDATE or DELETE")),
		mcp.WithString("range", mcp.Description("A1 range for sheet-backed statements without a FROM clause")),
		mcp.WithString("spreadsheetId", mcp.Description("Target spreadsheet id")),
		mcp.WithString("scriptId", mcp.Description("Apps Script project id, resolved to its bound spreadsheet")),
		mcp.WithBoolean("returnMetadata", mcp.DefaultBool(false), mcp.Description("Include table metadata with SELECT results")),
		mcp.WithObject("dataSources", mcp.Description("Virtual tables: name to 2D array, first row is the header row")),
		mcp.WithOutputSchema[engine.Result](),
	)

	s.AddTool(tool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in SQLInput) (*mcp.CallToolResult, error) {
		if in.Statement == "" {
			return mcp.NewToolResultError("VALIDATION: statement is required"), nil
		}

		res, err := eng.Execute(ctx, engine.Request{
			Statement:      in.Statement,
			Range:          in.Range,
			SpreadsheetID:  in.SpreadsheetID,
			ScriptID:       in.ScriptID,
			ReturnMetadata: in.ReturnMetadata,
			DataSources:    in.DataSources,
		})
		if err != nil {
			var validation *query.ValidationError
			var parse *query.ParseError
			switch {
			case errors.As(err, &validation):
				return mcp.NewToolResultError(fmt.Sprintf("VALIDATION: %v", err)), nil
			case errors.As(err, &parse):
				return mcp.NewToolResultError(fmt.Sprintf("PARSE: %v", err)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("EXECUTION_FAILED: %v", err)), nil
		}

		return mcp.NewToolResultStructured(res, res.Operation+" executed"), nil
	}))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
