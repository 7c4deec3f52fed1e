package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/whichguy/sheetsql/sheets"
)

// CSVFormatter outputs result rows as CSV.
type CSVFormatter struct {
	writer io.Writer
}

// NewCSVFormatter creates a new CSV formatter.
func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{writer: w}
}

// SetOutput sets the output writer.
func (c *CSVFormatter) SetOutput(w io.Writer) {
	c.writer = w
}

// Format writes the column labels as the header record, then one record per
// row.
func (c *CSVFormatter) Format(dt *sheets.DataTable) error {
	csvWriter := csv.NewWriter(c.writer)

	if err := csvWriter.Write(columnLabels(dt)); err != nil {
		return err
	}

	for _, row := range dt.Rows {
		record := make([]string, len(row.C))
		for i, cell := range row.C {
			record[i] = formatValue(cell.V)
		}
		if err := csvWriter.Write(record); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}

// formatValue converts a cell to its string form.
func formatValue(v interface{}) string {
	if v == nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		// Sanitize against CSV injection by prefixing characters that
		// could trigger formula execution in spreadsheet applications.
		if len(val) > 0 {
			switch val[0] {
			case '=', '+', '-', '@', '\t', '\r', '\n', '|':
				return "'" + strings.ReplaceAll(val, "'", "''")
			}
		}
		return val
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", val)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32, float64:
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
