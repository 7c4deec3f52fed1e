package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/whichguy/sheetsql/sheets"
)

func sampleTable() *sheets.DataTable {
	return &sheets.DataTable{
		Cols: []sheets.Col{
			{ID: "A", Label: "Name", Type: "string"},
			{ID: "B", Label: "Age", Type: "number"},
		},
		Rows: []sheets.Row{
			{C: []sheets.Cell{{V: "Alice"}, {V: 30.0}}},
			{C: []sheets.Cell{{V: "Bob"}, {V: nil}}},
		},
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	tests := []struct {
		format string
		want   string
	}{
		{format: "csv", want: "*output.CSVFormatter"},
		{format: "jsonl", want: "*output.JSONFormatter"},
		{format: "table", want: "*output.TableFormatter"},
		{format: "bogus", want: "*output.TableFormatter"},
	}
	for _, tt := range tests {
		f := New(tt.format, &buf)
		if got := typeName(f); got != tt.want {
			t.Errorf("New(%q) = %s, want %s", tt.format, got, tt.want)
		}
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case *CSVFormatter:
		return "*output.CSVFormatter"
	case *JSONFormatter:
		return "*output.JSONFormatter"
	case *TableFormatter:
		return "*output.TableFormatter"
	default:
		return "unknown"
	}
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVFormatter(&buf).Format(sampleTable()); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	want := "Name,Age\nAlice,30\nBob,\n"
	if got := buf.String(); got != want {
		t.Errorf("CSV output = %q, want %q", got, want)
	}
}

func TestCSVFormatter_LabelFallsBackToID(t *testing.T) {
	dt := &sheets.DataTable{
		Cols: []sheets.Col{{ID: "A", Label: ""}},
		Rows: []sheets.Row{},
	}

	var buf bytes.Buffer
	if err := NewCSVFormatter(&buf).Format(dt); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if got := buf.String(); got != "A\n" {
		t.Errorf("header = %q, want %q", got, "A\n")
	}
}

func TestFormatValue_InjectionGuard(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "=SUM(A1)", want: "'=SUM(A1)"},
		{in: "+1234", want: "'+1234"},
		{in: "-cmd", want: "'-cmd"},
		{in: "@import", want: "'@import"},
		{in: "plain", want: "plain"},
		{in: "='quoted'", want: "'=''quoted''"},
	}

	for _, tt := range tests {
		if got := formatValue(tt.in); got != tt.want {
			t.Errorf("formatValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatValue_Types(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{in: nil, want: ""},
		{in: 42, want: "42"},
		{in: 3.5, want: "3.5"},
		{in: 30.0, want: "30"},
		{in: true, want: "true"},
	}

	for _, tt := range tests {
		if got := formatValue(tt.in); got != tt.want {
			t.Errorf("formatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONFormatter(&buf).Format(sampleTable()); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}

	var first map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal first line: %v", err)
	}
	if first["Name"] != "Alice" || first["Age"] != 30.0 {
		t.Errorf("first line = %v", first)
	}

	var second map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("unmarshal second line: %v", err)
	}
	if second["Age"] != nil {
		t.Errorf("null cell = %v, want nil", second["Age"])
	}
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTableFormatter(&buf).Format(sampleTable()); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"NAME", "AGE", "Alice", "Bob", "30"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}
