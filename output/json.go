package output

import (
	"encoding/json"
	"io"

	"github.com/whichguy/sheetsql/sheets"
)

// JSONFormatter outputs result rows as JSON Lines.
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON Lines formatter.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// SetOutput sets the output writer.
func (j *JSONFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// Format writes one JSON object per row, keyed by column label.
func (j *JSONFormatter) Format(dt *sheets.DataTable) error {
	labels := columnLabels(dt)
	encoder := json.NewEncoder(j.writer)

	for _, row := range dt.Rows {
		obj := make(map[string]interface{}, len(labels))
		for i, cell := range row.C {
			if i >= len(labels) {
				break
			}
			obj[labels[i]] = cell.V
		}
		if err := encoder.Encode(obj); err != nil {
			return err
		}
	}
	return nil
}
