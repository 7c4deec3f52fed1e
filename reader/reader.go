// Package reader loads local tabular files into virtual table data sources.
//
// Supported formats are Apache Parquet (via the parquet-go library) and CSV.
// Every loader returns a 2D array whose first row is the header row, the
// shape the engine expects for a dataSources entry.
package reader

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Load reads one file into a virtual table, choosing the format by file
// extension.
func Load(path string) ([][]interface{}, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return LoadParquet(path)
	case ".csv":
		return LoadCSV(path)
	default:
		return nil, fmt.Errorf("unsupported table file %q: want .parquet or .csv", path)
	}
}
