package query

import (
	"testing"
)

func TestComparisonExpr_NullSemantics(t *testing.T) {
	cols := BuildColumnMap([]string{"X"})

	tests := []struct {
		name   string
		clause string
		cell   interface{}
		want   bool
	}{
		{name: "equals null matches nil", clause: "A = NULL", cell: nil, want: true},
		{name: "equals null matches empty string", clause: "A = NULL", cell: "", want: true},
		{name: "equals null against value", clause: "A = NULL", cell: "x", want: false},
		{name: "greater than null is false", clause: "A > NULL", cell: "x", want: false},
		{name: "not equal null is false", clause: "A <> NULL", cell: nil, want: false},
		{name: "null cell never compares", clause: "A > 5", cell: nil, want: false},
		{name: "empty cell never compares", clause: "A = ''", cell: "", want: false},
		{name: "null check true", clause: "A IS NULL", cell: nil, want: true},
		{name: "null check empty string", clause: "A IS NULL", cell: "", want: true},
		{name: "not null check", clause: "A IS NOT NULL", cell: 0.0, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := ParseWhereClause(tt.clause)
			if err != nil {
				t.Fatalf("ParseWhereClause() error = %v", err)
			}
			got, err := expr.Evaluate([]interface{}{tt.cell}, cols)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q, cell=%v) = %v, want %v", tt.clause, tt.cell, got, tt.want)
			}
		})
	}
}

func TestComparisonExpr_TypeCoercion(t *testing.T) {
	cols := BuildColumnMap([]string{"X"})

	tests := []struct {
		name   string
		clause string
		cell   interface{}
		want   bool
	}{
		{name: "numeric string against number", clause: "A > 26", cell: "30", want: true},
		{name: "non-numeric string falls back", clause: "A = 26", cell: "abc", want: false},
		{name: "date compare after parse", clause: "A > DATE '2024-01-01'", cell: "2024-06-15", want: true},
		{name: "date compare slash format", clause: "A < DATE '2024-01-01'", cell: "12/31/2023", want: true},
		{name: "date target unparseable cell", clause: "A = DATE '2024-01-01'", cell: "2024-01-01", want: true},
		{name: "bool equality", clause: "A = TRUE", cell: true, want: true},
		{name: "bool inequality", clause: "A <> TRUE", cell: false, want: true},
		{name: "bool against string cell", clause: "A = TRUE", cell: "true", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := ParseWhereClause(tt.clause)
			if err != nil {
				t.Fatalf("ParseWhereClause() error = %v", err)
			}
			got, err := expr.Evaluate([]interface{}{tt.cell}, cols)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q, cell=%v) = %v, want %v", tt.clause, tt.cell, got, tt.want)
			}
		})
	}
}

func TestFilterRows(t *testing.T) {
	cols := BuildColumnMap([]string{"Name", "Age"})
	rows := [][]interface{}{
		{"Alice", 30.0},
		{"Bob", 25.0},
		{"Carol", 35.0},
	}

	expr, err := ParseWhereClause("B > 26")
	if err != nil {
		t.Fatalf("ParseWhereClause() error = %v", err)
	}

	matched, err := FilterRows(rows, expr, cols, 2)
	if err != nil {
		t.Fatalf("FilterRows() error = %v", err)
	}

	if len(matched) != 2 {
		t.Fatalf("FilterRows() matched %d rows, want 2", len(matched))
	}
	if matched[0].RowNumber != 2 || matched[0].Row[0] != "Alice" {
		t.Errorf("first match = %+v, want Alice at row 2", matched[0])
	}
	if matched[1].RowNumber != 4 || matched[1].Row[0] != "Carol" {
		t.Errorf("second match = %+v, want Carol at row 4", matched[1])
	}
}

func TestCompareCells(t *testing.T) {
	tests := []struct {
		name string
		a, b interface{}
		want int
	}{
		{name: "both null", a: nil, b: "", want: 0},
		{name: "null sorts first", a: nil, b: 1.0, want: -1},
		{name: "value after null", a: "x", b: nil, want: 1},
		{name: "numeric order", a: 2.0, b: 10.0, want: -1},
		{name: "numeric string order", a: "2", b: "10", want: -1},
		{name: "lexical fallback", a: "2", b: "abc", want: -1},
		{name: "equal strings", a: "x", b: "x", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompareCells(tt.a, tt.b); got != tt.want {
				t.Errorf("CompareCells(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSortMatchedRows(t *testing.T) {
	matched := []MatchedRow{
		{RowNumber: 2, Row: []interface{}{"Alice", 30.0}},
		{RowNumber: 3, Row: []interface{}{"Bob", 25.0}},
		{RowNumber: 4, Row: []interface{}{"Carol", 25.0}},
	}

	SortMatchedRows(matched, []OrderByItem{{Column: "B"}, {Column: "A", Desc: true}})

	wantOrder := []string{"Carol", "Bob", "Alice"}
	for i, want := range wantOrder {
		if matched[i].Row[0] != want {
			t.Errorf("matched[%d] = %v, want %s", i, matched[i].Row[0], want)
		}
	}
}

func TestSortMatchedRows_StableTiebreak(t *testing.T) {
	matched := []MatchedRow{
		{RowNumber: 5, Row: []interface{}{"x", 1.0}},
		{RowNumber: 2, Row: []interface{}{"x", 1.0}},
		{RowNumber: 3, Row: []interface{}{"x", 1.0}},
	}

	SortMatchedRows(matched, []OrderByItem{{Column: "B"}})

	// Equal keys fall back to row-number order.
	wantRows := []int{2, 3, 5}
	for i, want := range wantRows {
		if matched[i].RowNumber != want {
			t.Errorf("matched[%d].RowNumber = %d, want %d", i, matched[i].RowNumber, want)
		}
	}
}
