// Package backend is the REST client for the upstream commerce API. All
// persistence and business logic (inventory, pricing, order processing,
// authentication) live behind this boundary; the bridge only forwards calls
// and normalizes errors.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

type Client struct {
	baseURL      *url.URL
	httpClient   *http.Client
	serviceToken string
}

// Config collects the client's construction parameters.
type Config struct {
	// APIURL is the upstream API base URL.
	APIURL string

	// ServiceToken authorizes calls made without a caller-supplied token.
	ServiceToken string

	// HTTPClient issues the requests. The zero value uses
	// http.DefaultClient, which main configures with the instrumented
	// transport and request timeout.
	HTTPClient *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.APIURL == "" {
		return nil, errors.New("backend API URL must be configured")
	}

	u, err := url.Parse(cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("could not parse backend API URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:      u,
		httpClient:   httpClient,
		serviceToken: cfg.ServiceToken,
	}, nil
}

// StatusError is a failed upstream response: a non-2xx status and the message
// the backend supplied with it.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.StatusCode, e.Message)
}

// Status implements the handler error mapping: upstream client errors pass
// through, anything else collapses to a 502.
func (e *StatusError) Status() (int, string) {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return e.StatusCode, e.Message
	}
	return http.StatusBadGateway, http.StatusText(http.StatusBadGateway)
}

// do issues a request against the upstream API. A non-empty token is attached
// as a bearer credential; otherwise the service token is used when present.
// The response body, if out is non-nil, is decoded as JSON.
func (c *Client) do(ctx context.Context, method, path, token string, query url.Values, body, out any) error {
	u := c.baseURL.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s request: %w", method, path, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return fmt.Errorf("building %s %s request: %w", method, path, err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token == "" {
		token = c.serviceToken
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body, resp.StatusCode),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding %s %s response: %w", method, path, err)
		}
	}

	return nil
}

// errorMessage extracts the backend's error message from a failure body,
// falling back to the standard status text.
func errorMessage(body io.Reader, status int) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}

	data, err := io.ReadAll(io.LimitReader(body, 4<<10))
	if err == nil && json.Unmarshal(data, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}

	if msg := strings.TrimSpace(string(data)); msg != "" && !strings.HasPrefix(msg, "{") {
		return msg
	}
	return http.StatusText(status)
}
