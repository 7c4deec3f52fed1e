package sheets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// DataTable is the Google Visualization wire format for a result table.
// SELECT results are shaped this way regardless of whether they came from
// the gviz endpoint or from local execution.
type DataTable struct {
	Cols []Col `json:"cols"`
	Rows []Row `json:"rows"`
}

// Col describes one result column.
type Col struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// Row is one result row.
type Row struct {
	C []Cell `json:"c"`
}

// Cell is one result cell.
type Cell struct {
	V interface{} `json:"v"`
}

// GvizQuery forwards a statement to the Visualization Query endpoint and
// returns its response table unmodified. The endpoint's SQL dialect differs
// from the locally executed one (it accepts ROW(), for example); the split
// is deliberate and documented rather than papered over.
func (c *Client) GvizQuery(ctx context.Context, spreadsheetID, statement, rng string) (*DataTable, error) {
	values := url.Values{}
	values.Set("tqx", "out:json")
	values.Set("tq", statement)
	values.Set("headers", "1")
	if rng != "" {
		values.Set("range", rng)
	}
	rawURL := fmt.Sprintf("%s/spreadsheets/d/%s/gviz/tq?%s",
		c.GvizURL, url.PathEscape(spreadsheetID), values.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build gviz request")
	}
	token, err := c.Tokens.Token(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "acquire access token")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read gviz response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: string(raw)}
	}

	return parseGvizResponse(string(raw))
}

// parseGvizResponse unwraps the JSONP envelope
// (`google.visualization.Query.setResponse({...})`) and extracts the table.
func parseGvizResponse(body string) (*DataTable, error) {
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return nil, errors.Errorf("malformed gviz response: %.120s", body)
	}
	payload := body[start : end+1]

	if status := gjson.Get(payload, "status"); status.String() == "error" {
		detail := gjson.Get(payload, "errors.0.detailed_message").String()
		if detail == "" {
			detail = gjson.Get(payload, "errors.0.message").String()
		}
		return nil, errors.Errorf("gviz query failed: %s", detail)
	}

	table := &DataTable{Cols: []Col{}, Rows: []Row{}}
	gjson.Get(payload, "table.cols").ForEach(func(_, col gjson.Result) bool {
		table.Cols = append(table.Cols, Col{
			ID:    col.Get("id").String(),
			Label: col.Get("label").String(),
			Type:  col.Get("type").String(),
		})
		return true
	})
	gjson.Get(payload, "table.rows").ForEach(func(_, row gjson.Result) bool {
		cells := make([]Cell, 0, len(table.Cols))
		row.Get("c").ForEach(func(_, cell gjson.Result) bool {
			v := cell.Get("v")
			if !v.Exists() || v.Type == gjson.Null {
				cells = append(cells, Cell{V: nil})
			} else {
				cells = append(cells, Cell{V: v.Value()})
			}
			return true
		})
		table.Rows = append(table.Rows, Row{C: cells})
		return true
	})

	return table, nil
}
