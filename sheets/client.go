// Package sheets is the REST adapter for the Google Sheets surface the
// engine consumes: spreadsheets.values get/append/batchUpdate, the
// spreadsheet-level batchUpdate used for row deletion, the Visualization
// gviz/tq query endpoint, and the Apps Script project lookup that resolves
// a script id to its bound spreadsheet.
//
// Calls are independently awaited, never retried, and never cached; a
// non-2xx response surfaces as an *HTTPError carrying the status code and
// raw body.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	// DefaultBaseURL is the Sheets API v4 endpoint.
	DefaultBaseURL = "https://sheets.googleapis.com/v4"
	// DefaultGvizURL hosts the Visualization Query endpoint.
	DefaultGvizURL = "https://docs.google.com"
)

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource wrapping a fixed access token.
type StaticToken string

// Token returns the wrapped token.
func (t StaticToken) Token(ctx context.Context) (string, error) {
	if t == "" {
		return "", errors.New("empty access token")
	}
	return string(t), nil
}

// HTTPError is a non-2xx response from the Sheets or Visualization API.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("sheets API error: status %d: %s", e.Status, e.Body)
}

// Client calls the Sheets REST API. The zero value is not usable; create
// one with NewClient.
type Client struct {
	BaseURL string
	GvizURL string
	HTTP    *http.Client
	Tokens  TokenSource
}

// NewClient creates a client with default endpoints and a 30 second
// timeout.
func NewClient(tokens TokenSource) *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		GvizURL: DefaultGvizURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		Tokens:  tokens,
	}
}

// ValueRange mirrors the values API wire object.
type ValueRange struct {
	Range          string          `json:"range,omitempty"`
	MajorDimension string          `json:"majorDimension,omitempty"`
	Values         [][]interface{} `json:"values,omitempty"`
}

// UpdateValuesResponse mirrors the per-range update summary.
type UpdateValuesResponse struct {
	SpreadsheetID  string `json:"spreadsheetId"`
	UpdatedRange   string `json:"updatedRange"`
	UpdatedRows    int    `json:"updatedRows"`
	UpdatedColumns int    `json:"updatedColumns"`
	UpdatedCells   int    `json:"updatedCells"`
}

// AppendResponse mirrors values.append.
type AppendResponse struct {
	SpreadsheetID string                `json:"spreadsheetId"`
	TableRange    string                `json:"tableRange"`
	Updates       *UpdateValuesResponse `json:"updates"`
}

// BatchUpdateValuesResponse mirrors values.batchUpdate.
type BatchUpdateValuesResponse struct {
	SpreadsheetID       string                  `json:"spreadsheetId"`
	TotalUpdatedRows    int                     `json:"totalUpdatedRows"`
	TotalUpdatedColumns int                     `json:"totalUpdatedColumns"`
	TotalUpdatedCells   int                     `json:"totalUpdatedCells"`
	Responses           []*UpdateValuesResponse `json:"responses"`
}

// ValuesGet fetches a range. The first row of the result is the header row
// by the engine's convention.
func (c *Client) ValuesGet(ctx context.Context, spreadsheetID, rng string) (*ValueRange, error) {
	path := fmt.Sprintf("%s/spreadsheets/%s/values/%s",
		c.BaseURL, url.PathEscape(spreadsheetID), url.PathEscape(rng))

	var out ValueRange
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, errors.Wrapf(err, "get values %s", rng)
	}
	return &out, nil
}

// ValuesAppend appends rows after the last data row of the range's table.
func (c *Client) ValuesAppend(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) (*AppendResponse, error) {
	path := fmt.Sprintf("%s/spreadsheets/%s/values/%s:append?valueInputOption=USER_ENTERED&insertDataOption=INSERT_ROWS",
		c.BaseURL, url.PathEscape(spreadsheetID), url.PathEscape(rng))

	body := ValueRange{Values: values}
	var out AppendResponse
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, errors.Wrapf(err, "append values %s", rng)
	}
	return &out, nil
}

// ValuesBatchUpdate writes multiple value ranges in one call.
func (c *Client) ValuesBatchUpdate(ctx context.Context, spreadsheetID string, data []ValueRange) (*BatchUpdateValuesResponse, error) {
	path := fmt.Sprintf("%s/spreadsheets/%s/values:batchUpdate",
		c.BaseURL, url.PathEscape(spreadsheetID))

	body := map[string]interface{}{
		"valueInputOption": "USER_ENTERED",
		"data":             data,
	}
	var out BatchUpdateValuesResponse
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, errors.Wrap(err, "batch update values")
	}
	return &out, nil
}

// DeleteRows issues one atomic spreadsheets.batchUpdate containing a
// DeleteDimension request per row. Rows must already be sorted in
// descending order so earlier deletions cannot shift the indices of later
// ones; rows are 1-based sheet rows.
func (c *Client) DeleteRows(ctx context.Context, spreadsheetID string, sheetID int64, rows []int) error {
	path := fmt.Sprintf("%s/spreadsheets/%s:batchUpdate",
		c.BaseURL, url.PathEscape(spreadsheetID))

	requests := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		requests = append(requests, map[string]interface{}{
			"deleteDimension": map[string]interface{}{
				"range": map[string]interface{}{
					"sheetId":    sheetID,
					"dimension":  "ROWS",
					"startIndex": row - 1,
					"endIndex":   row,
				},
			},
		})
	}

	body := map[string]interface{}{"requests": requests}
	if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return errors.Wrap(err, "delete rows")
	}
	return nil
}

// sheetProperties is the subset of the spreadsheet metadata the engine
// needs to turn a sheet name into a grid id.
type sheetProperties struct {
	Sheets []struct {
		Properties struct {
			SheetID int64  `json:"sheetId"`
			Title   string `json:"title"`
		} `json:"properties"`
	} `json:"sheets"`
}

// SheetID resolves a sheet title to its numeric grid id. An empty title
// resolves to the first sheet.
func (c *Client) SheetID(ctx context.Context, spreadsheetID, title string) (int64, error) {
	path := fmt.Sprintf("%s/spreadsheets/%s?fields=sheets.properties(sheetId,title)",
		c.BaseURL, url.PathEscape(spreadsheetID))

	var out sheetProperties
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return 0, errors.Wrap(err, "get sheet properties")
	}
	for _, sheet := range out.Sheets {
		if title == "" || sheet.Properties.Title == title {
			return sheet.Properties.SheetID, nil
		}
	}
	return 0, errors.Errorf("sheet %q not found in spreadsheet %s", title, spreadsheetID)
}

// do performs one authenticated JSON round trip. Each request carries a
// fresh correlation id so server-side logs can be matched to statements.
func (c *Client) do(ctx context.Context, method, rawURL string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request body")
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return errors.Wrap(err, "build request")
	}

	token, err := c.Tokens.Token(ctx)
	if err != nil {
		return errors.Wrap(err, "acquire access token")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{Status: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(err, "decode response body")
	}
	return nil
}
