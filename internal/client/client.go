// Package client talks to the control API of a running `devpilot serve`.
// Service processes belong to the serving engine, so lifecycle commands go
// through here instead of a one-shot engine.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"devpilot/internal/config"
	"devpilot/internal/constants"
	"devpilot/internal/errors"
)

// Client represents the HTTP client for the devpilot control API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for serverURL. A missing scheme defaults to http.
func New(serverURL string) (*Client, error) {
	if !strings.Contains(serverURL, "://") {
		serverURL = "http://" + serverURL
	}
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Host == "" {
		return nil, errors.InvalidInput(serverURL, "a server URL such as http://localhost:8090")
	}

	return &Client{
		baseURL: strings.TrimSuffix(u.String(), "/"),
		httpClient: &http.Client{
			Timeout: constants.DefaultClientTimeout,
		},
	}, nil
}

// FromConfig creates a client for the address `devpilot serve` listens on.
// Wildcard bind addresses are dialled on loopback.
func FromConfig(cfg config.ServerConfig) *Client {
	host := cfg.Host
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port == 0 {
		port = constants.DefaultServerPort
	}

	c, _ := New("http://" + net.JoinHostPort(host, strconv.Itoa(port)))
	return c
}

// BaseURL returns the server the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest performs an HTTP request. Transport failures are reported as
// an unreachable server.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.ServerUnreachable(c.baseURL, err)
	}
	return resp, nil
}

// decode reads a JSON body into v
func decode(resp *http.Response, v interface{}) error {
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// responseError turns an error response into the server's PilotError
func responseError(resp *http.Response) error {
	var body errors.HTTPErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error.Code == "" {
		return fmt.Errorf("unexpected response: %s", resp.Status)
	}
	pe := errors.NewWithDetails(body.Error.Code, body.Error.Message, body.Error.Details)
	pe.HTTPStatus = resp.StatusCode
	return pe
}

// Health checks that the control API is up
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}
	return nil
}
