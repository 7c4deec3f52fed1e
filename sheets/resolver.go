package sheets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// DefaultScriptURL is the Apps Script API endpoint.
const DefaultScriptURL = "https://script.googleapis.com/v1"

// ScriptResolver resolves an Apps Script project id to the spreadsheet the
// script is container-bound to, via the project's parentId.
type ScriptResolver struct {
	BaseURL string
	HTTP    *http.Client
	Tokens  TokenSource
}

// NewScriptResolver creates a resolver with the default endpoint.
func NewScriptResolver(tokens TokenSource) *ScriptResolver {
	return &ScriptResolver{
		BaseURL: DefaultScriptURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		Tokens:  tokens,
	}
}

// SpreadsheetID looks up the bound spreadsheet of a script project.
func (r *ScriptResolver) SpreadsheetID(ctx context.Context, scriptID string) (string, error) {
	rawURL := fmt.Sprintf("%s/projects/%s", r.BaseURL, url.PathEscape(scriptID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "build script lookup request")
	}
	token, err := r.Tokens.Token(ctx)
	if err != nil {
		return "", errors.Wrap(err, "acquire access token")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := r.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read script lookup response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &HTTPError{Status: resp.StatusCode, Body: string(raw)}
	}

	parentID := gjson.GetBytes(raw, "parentId").String()
	if parentID == "" {
		return "", errors.Errorf("script %s is not bound to a spreadsheet", scriptID)
	}
	return parentID, nil
}
