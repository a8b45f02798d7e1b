// Package apiclient talks to the patients REST API that stores intake records,
// comments, case categories and user profiles. Every call carries the bearer
// token of the user driving the form.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
)

const maxErrorBody = 4096

// APIError is a failed call. Message is what the API said went wrong.
type APIError struct {
	Status  int
	Method  string
	Path    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// HTTPClient exposes the underlying client, mostly so tests can intercept it.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

func (c *Client) do(ctx context.Context, token, method, path string, query url.Values, in, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "failed to encode %s %s body", method, path)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return errors.Wrapf(err, "failed to build %s %s", method, path)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s %s response", method, path)
	}

	if resp.StatusCode >= http.StatusBadRequest || gjson.GetBytes(data, "ok").Type == gjson.False {
		return &APIError{
			Status:  resp.StatusCode,
			Method:  method,
			Path:    path,
			Message: errorMessage(resp.StatusCode, data),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "failed to decode %s %s response", method, path)
	}
	return nil
}

// errorMessage picks the error, message or details field of a JSON body and
// falls back to the raw text.
func errorMessage(status int, data []byte) string {
	if gjson.ValidBytes(data) {
		for _, field := range []string{"error", "message", "details"} {
			v := gjson.GetBytes(data, field)
			if !v.Exists() || v.Type == gjson.Null {
				continue
			}
			if v.Type == gjson.String {
				if v.Str != "" {
					return v.Str
				}
				continue
			}
			if v.IsObject() && v.Get("message").Type == gjson.String {
				return v.Get("message").Str
			}
			return v.Raw
		}
	}
	text := strings.TrimSpace(string(data))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	if text == "" {
		return http.StatusText(status)
	}
	return text
}
