package handlers

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
)

// maxAttempts bounds the retry loop for one backend call. Only transport
// errors are retried; a received response, whatever its status, is final.
const maxAttempts = 3

// Client talks to the school-management CRUD backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// backendResponse is the decoded outcome of one backend call.
type backendResponse struct {
	StatusCode int
	Body       map[string]any
}

// OK reports whether the backend accepted the request.
func (r *backendResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ErrorMessage extracts the backend's error description, if any.
func (r *backendResponse) ErrorMessage() string {
	for _, key := range []string{"error", "detail", "message"} {
		if v, ok := r.Body[key].(string); ok && v != "" {
			return v
		}
	}
	return fmt.Sprintf("backend returned status %d", r.StatusCode)
}

// do sends one JSON request to the backend, retrying transport failures up
// to maxAttempts times. Application errors (4xx, 5xx) are returned as a
// response, never retried.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) (*backendResponse, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return decodeResponse(resp)
	}
	return nil, fmt.Errorf("calling school backend %s %s: %w", method, path, lastErr)
}

func decodeResponse(resp *http.Response) (*backendResponse, error) {
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading backend response: %w", err)
	}

	out := &backendResponse{StatusCode: resp.StatusCode, Body: map[string]any{}}
	if len(raw) > 0 {
		// A non-JSON body is kept verbatim under "message".
		if err := json.Unmarshal(raw, &out.Body); err != nil {
			out.Body = map[string]any{"message": strings.TrimSpace(string(raw))}
		}
	}
	return out, nil
}
