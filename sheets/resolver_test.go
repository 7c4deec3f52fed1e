package sheets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestScriptResolver_SpreadsheetID(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"scriptId":"script-1","parentId":"sheet-9"}`))
	}))
	t.Cleanup(srv.Close)

	r := NewScriptResolver(StaticToken("test-token"))
	r.BaseURL = srv.URL

	id, err := r.SpreadsheetID(context.Background(), "script-1")
	if err != nil {
		t.Fatalf("SpreadsheetID() error = %v", err)
	}
	if id != "sheet-9" {
		t.Errorf("SpreadsheetID() = %q, want sheet-9", id)
	}
	if gotPath != "/projects/script-1" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestScriptResolver_Unbound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"scriptId":"script-1"}`))
	}))
	t.Cleanup(srv.Close)

	r := NewScriptResolver(StaticToken("test-token"))
	r.BaseURL = srv.URL

	if _, err := r.SpreadsheetID(context.Background(), "script-1"); err == nil {
		t.Error("SpreadsheetID() expected error for unbound script")
	}
}
