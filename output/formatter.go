// Package output renders query result tables to text formats.
//
// Supported formats:
//   - Table: aligned ASCII table for terminals
//   - CSV: comma-separated values with header row
//   - JSON Lines: one JSON object per result row
//
// Example usage:
//
//	formatter := output.NewTableFormatter(os.Stdout)
//	if err := formatter.Format(result); err != nil {
//	    log.Fatal(err)
//	}
package output

import (
	"io"

	"github.com/whichguy/sheetsql/sheets"
)

// Formatter renders one result table.
type Formatter interface {
	// Format writes the table in the formatter's specific format
	Format(dt *sheets.DataTable) error

	// SetOutput changes the output writer
	SetOutput(w io.Writer)
}

// New returns the formatter for a format name: "table", "csv" or "jsonl".
// Unknown names fall back to the table formatter.
func New(format string, w io.Writer) Formatter {
	switch format {
	case "csv":
		return NewCSVFormatter(w)
	case "jsonl":
		return NewJSONFormatter(w)
	default:
		return NewTableFormatter(w)
	}
}
