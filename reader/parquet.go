package reader

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// Reader reads a parquet file as a table. It maintains both an OS file
// handle and a parquet file handle to enable proper resource cleanup.
type Reader struct {
	file   *os.File
	pqFile *parquet.File
}

// NewReader creates a new parquet reader for the specified file path.
//
// The file is opened and validated as a parquet file. Returns an error if
// the file doesn't exist or is not a valid parquet file.
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	return &Reader{
		file:   file,
		pqFile: pqFile,
	}, nil
}

// ReadTable reads every row into a 2D array, headers first. Column order
// follows the parquet schema, so the output is stable across runs.
//
// The entire file is loaded into memory, so this method may not be suitable
// for very large files.
func (r *Reader) ReadTable() ([][]interface{}, error) {
	fields := r.pqFile.Schema().Fields()
	headers := make([]interface{}, len(fields))
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = field.Name()
		headers[i] = field.Name()
	}

	table := [][]interface{}{headers}

	pr := parquet.NewReader(r.pqFile)
	defer func() { _ = pr.Close() }()

	for {
		row := make(map[string]interface{})
		err := pr.Read(&row)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		cells := make([]interface{}, len(names))
		for i, name := range names {
			cells[i] = row[name]
		}
		table = append(table, cells)
	}

	return table, nil
}

// Close closes the parquet reader and releases associated resources. It is
// safe to call Close multiple times.
func (r *Reader) Close() error {
	if r.file != nil {
		file := r.file
		r.file = nil
		return file.Close()
	}
	return nil
}

// LoadParquet reads a whole parquet file into a virtual table.
func LoadParquet(path string) ([][]interface{}, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return r.ReadTable()
}
