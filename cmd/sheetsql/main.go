package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/whichguy/sheetsql/config"
	"github.com/whichguy/sheetsql/engine"
	"github.com/whichguy/sheetsql/output"
	"github.com/whichguy/sheetsql/reader"
	"github.com/whichguy/sheetsql/sheets"
)

// loadFlag collects repeated -load name=path flags into virtual tables.
type loadFlag struct {
	sources map[string][][]interface{}
}

func (l *loadFlag) String() string {
	names := make([]string, 0, len(l.sources))
	for name := range l.sources {
		names = append(names, name)
	}
	return strings.Join(names, ",")
}

func (l *loadFlag) Set(value string) error {
	eq := strings.Index(value, "=")
	if eq <= 0 || eq == len(value)-1 {
		return fmt.Errorf("want name=path, got %q", value)
	}
	name, path := value[:eq], value[eq+1:]

	data, err := reader.Load(path)
	if err != nil {
		return err
	}
	if l.sources == nil {
		l.sources = make(map[string][][]interface{})
	}
	l.sources[name] = data
	return nil
}

var (
	queryFlag       = flag.String("q", "", "SQL statement (e.g., \"SELECT * FROM :users WHERE age > 30\")")
	spreadsheetFlag = flag.String("spreadsheet", "", "Spreadsheet id (overrides sheets.spreadsheet_id)")
	scriptFlag      = flag.String("script", "", "Apps Script project id, resolved to its bound spreadsheet")
	rangeFlag       = flag.String("range", "", "A1 range for sheet-backed statements without a FROM clause")
	formatFlag      = flag.String("f", "table", "Output format: table, csv, jsonl")
	metaFlag        = flag.Bool("meta", false, "Include table metadata with SELECT results")
	loads           loadFlag
)

func main() {
	flag.Var(&loads, "load", "Load a virtual table from a file: name=path (.parquet or .csv, repeatable)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -q <statement> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Run SQL against Google Sheets ranges and local files.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -q \"SELECT * WHERE A > 30\" -spreadsheet <id> -range Sheet1!A1:C10\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -q \"SELECT city, COUNT(*) FROM :users GROUP BY city\" -load users=users.parquet\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -q \"UPDATE SET Age = 31 WHERE Name = 'Alice'\" -spreadsheet <id> -range Sheet1!A1:C10\n", os.Args[0])
	}
	flag.Parse()

	if *queryFlag == "" {
		fmt.Fprintf(os.Stderr, "Error: missing -q statement\n\n")
		flag.Usage()
		os.Exit(1)
	}

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

	spreadsheetID := *spreadsheetFlag
	if spreadsheetID == "" && *scriptFlag == "" {
		spreadsheetID = cfg.SpreadsheetID
	}
	rng := *rangeFlag
	if rng == "" {
		rng = cfg.DefaultRange
	}

	req := engine.Request{
		Statement:      *queryFlag,
		Range:          rng,
		SpreadsheetID:  spreadsheetID,
		ScriptID:       *scriptFlag,
		ReturnMetadata: *metaFlag,
		DataSources:    loads.sources,
	}

	res, err := engine.New(client, resolver).Execute(context.Background(), req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if dt, ok := res.Data.(*sheets.DataTable); ok {
		if err := output.New(*formatFlag, os.Stdout).Format(dt); err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		if res.Metadata != nil {
			fmt.Fprintf(os.Stderr, "# source=%s rows=%d columns=%d\n",
				res.Metadata.Source, res.Metadata.RowCount, res.Metadata.ColumnCount)
		}
		return
	}

	encoded, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding result: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(encoded))
}
