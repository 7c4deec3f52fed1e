package query

import (
	"testing"
)

func TestParseWhereClause_Evaluate(t *testing.T) {
	cols := BuildColumnMap([]string{"Name", "Age", "City"})
	row := []interface{}{"Alice", 30.0, "Berlin"}

	tests := []struct {
		name   string
		clause string
		want   bool
	}{
		{name: "simple greater than", clause: "B > 26", want: true},
		{name: "simple less than", clause: "B < 26", want: false},
		{name: "equality on string", clause: "A = 'Alice'", want: true},
		{name: "case sensitive string", clause: "A = 'alice'", want: false},
		{name: "and both true", clause: "B > 26 AND C = 'Berlin'", want: true},
		{name: "and one false", clause: "B > 26 AND C = 'Paris'", want: false},
		{name: "or short circuit", clause: "B > 26 OR C = 'Paris'", want: true},
		{name: "precedence or of ands", clause: "B < 26 AND C = 'Berlin' OR A = 'Alice'", want: true},
		{name: "parenthesized group", clause: "B < 26 AND (C = 'Berlin' OR A = 'Alice')", want: false},
		{name: "contains", clause: "C contains 'erl'", want: true},
		{name: "starts with", clause: "A starts with 'Al'", want: true},
		{name: "ends with", clause: "A ends with 'ce'", want: true},
		{name: "is null on populated", clause: "A IS NULL", want: false},
		{name: "is not null", clause: "A IS NOT NULL", want: true},
		{name: "bare true", clause: "TRUE", want: true},
		{name: "bare false", clause: "FALSE", want: false},
		{name: "not equal", clause: "B <> 31", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := ParseWhereClause(tt.clause)
			if err != nil {
				t.Fatalf("ParseWhereClause() error = %v", err)
			}
			got, err := expr.Evaluate(row, cols)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.clause, got, tt.want)
			}
		})
	}
}

func TestParseWhereClause_Errors(t *testing.T) {
	tests := []struct {
		name   string
		clause string
	}{
		{name: "missing value", clause: "A >"},
		{name: "missing column", clause: "> 30"},
		{name: "incomplete and", clause: "A > 30 AND"},
		{name: "incomplete or", clause: "A > 30 OR"},
		{name: "unclosed paren", clause: "(A > 30"},
		{name: "trailing tokens", clause: "A > 30 B"},
		{name: "missing operator", clause: "A 30"},
		{name: "is without null", clause: "A IS 30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWhereClause(tt.clause)
			if err == nil {
				t.Errorf("ParseWhereClause() expected error for clause: %s", tt.clause)
			}
		})
	}
}

// TestParseWhereClause_BooleanAgreement cross-checks the evaluator against a
// reference evaluation of the same truth table for nested AND/OR trees.
func TestParseWhereClause_BooleanAgreement(t *testing.T) {
	cols := BuildColumnMap([]string{"P", "Q", "R"})

	clause := "(A = 1 OR B = 1) AND (B = 1 OR C = 1) OR A = 1 AND C = 1"
	reference := func(p, q, r bool) bool {
		return (p || q) && (q || r) || p && r
	}

	expr, err := ParseWhereClause(clause)
	if err != nil {
		t.Fatalf("ParseWhereClause() error = %v", err)
	}

	toCell := func(b bool) interface{} {
		if b {
			return 1.0
		}
		return 0.0
	}

	for i := 0; i < 8; i++ {
		p, q, r := i&4 != 0, i&2 != 0, i&1 != 0
		row := []interface{}{toCell(p), toCell(q), toCell(r)}

		got, err := expr.Evaluate(row, cols)
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if want := reference(p, q, r); got != want {
			t.Errorf("Evaluate(p=%v q=%v r=%v) = %v, want %v", p, q, r, got, want)
		}
	}
}
