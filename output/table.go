package output

import (
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/whichguy/sheetsql/sheets"
)

// TableFormatter renders results as an aligned terminal table.
type TableFormatter struct {
	writer io.Writer
}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// SetOutput sets the output writer.
func (t *TableFormatter) SetOutput(w io.Writer) {
	t.writer = w
}

// Format writes the table with column labels as the header row.
func (t *TableFormatter) Format(dt *sheets.DataTable) error {
	table := tablewriter.NewWriter(t.writer)
	table.SetHeader(columnLabels(dt))

	for _, row := range dt.Rows {
		record := make([]string, len(row.C))
		for i, cell := range row.C {
			record[i] = formatValue(cell.V)
		}
		table.Append(record)
	}

	table.Render()
	return nil
}

func columnLabels(dt *sheets.DataTable) []string {
	labels := make([]string, len(dt.Cols))
	for i, col := range dt.Cols {
		labels[i] = col.Label
		if labels[i] == "" {
			labels[i] = col.ID
		}
	}
	return labels
}
