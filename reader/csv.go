package reader

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// LoadCSV reads a CSV file into a virtual table. The first record is the
// header row. Cells that parse as numbers or booleans are typed; everything
// else stays a string.
func LoadCSV(path string) ([][]interface{}, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty CSV file %q: want a header row", path)
	}

	table := make([][]interface{}, len(records))
	for i, record := range records {
		row := make([]interface{}, len(record))
		for j, cell := range record {
			if i == 0 {
				// Header names stay verbatim.
				row[j] = cell
				continue
			}
			row[j] = typedCell(cell)
		}
		table[i] = row
	}
	return table, nil
}

func typedCell(s string) interface{} {
	if s == "" {
		return ""
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	switch s {
	case "true", "TRUE", "True":
		return true
	case "false", "FALSE", "False":
		return false
	}
	return s
}
