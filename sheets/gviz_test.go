package sheets

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const gvizBody = `/*O_o*/
google.visualization.Query.setResponse({"version":"0.6","status":"ok","table":{
"cols":[{"id":"A","label":"Name","type":"string"},{"id":"B","label":"Age","type":"number"}],
"rows":[{"c":[{"v":"Alice"},{"v":30}]},{"c":[{"v":"Bob"},null]}]}});`

func TestGvizQuery(t *testing.T) {
	var gotTq, gotRange string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotTq = r.URL.Query().Get("tq")
		gotRange = r.URL.Query().Get("range")
		_, _ = w.Write([]byte(gvizBody))
	})

	dt, err := c.GvizQuery(context.Background(), "sheet-id", "SELECT A, B WHERE B > 20", "Sheet1!A1:B10")
	if err != nil {
		t.Fatalf("GvizQuery() error = %v", err)
	}

	if gotTq != "SELECT A, B WHERE B > 20" {
		t.Errorf("tq = %q", gotTq)
	}
	if gotRange != "Sheet1!A1:B10" {
		t.Errorf("range = %q", gotRange)
	}

	want := &DataTable{
		Cols: []Col{
			{ID: "A", Label: "Name", Type: "string"},
			{ID: "B", Label: "Age", Type: "number"},
		},
		Rows: []Row{
			{C: []Cell{{V: "Alice"}, {V: 30.0}}},
			{C: []Cell{{V: "Bob"}, {V: nil}}},
		},
	}
	if diff := cmp.Diff(want, dt); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestParseGvizResponse_NullCell(t *testing.T) {
	dt, err := parseGvizResponse(
		`google.visualization.Query.setResponse({"status":"ok","table":{` +
			`"cols":[{"id":"A","label":"","type":"string"}],` +
			`"rows":[{"c":[{"v":null}]}]}});`)
	if err != nil {
		t.Fatalf("parseGvizResponse() error = %v", err)
	}
	if len(dt.Rows) != 1 || len(dt.Rows[0].C) != 1 {
		t.Fatalf("rows = %+v", dt.Rows)
	}
	if dt.Rows[0].C[0].V != nil {
		t.Errorf("cell = %v, want nil", dt.Rows[0].C[0].V)
	}
}

func TestParseGvizResponse_Error(t *testing.T) {
	_, err := parseGvizResponse(
		`google.visualization.Query.setResponse({"status":"error","errors":[` +
			`{"message":"INVALID_QUERY","detailed_message":"Invalid query: NO_COLUMN: C"}]});`)
	if err == nil {
		t.Fatal("parseGvizResponse() expected error")
	}
	if got := err.Error(); got != "gviz query failed: Invalid query: NO_COLUMN: C" {
		t.Errorf("error = %q", got)
	}
}

func TestParseGvizResponse_Malformed(t *testing.T) {
	if _, err := parseGvizResponse("<html>redirect</html>"); err == nil {
		t.Error("parseGvizResponse() expected error for non JSONP body")
	}
}
