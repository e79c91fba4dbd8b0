package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"

	"devpilot/internal/errors"
)

// NewJSONRequest creates a new HTTP request with JSON body
func NewJSONRequest(method, url string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// DecodeJSON decodes JSON from a reader
func DecodeJSON(r io.Reader, v interface{}) error {
	return json.NewDecoder(r).Decode(v)
}

// ParseErrorResponse decodes the error body written by the HTTP error handler
func ParseErrorResponse(r io.Reader) (*errors.HTTPErrorResponse, error) {
	var resp errors.HTTPErrorResponse
	if err := DecodeJSON(r, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HealthServer is a test service exposing a health endpoint whose status code
// can be flipped at runtime
type HealthServer struct {
	*httptest.Server
	code atomic.Int32
	hits atomic.Int32
}

// NewHealthServer starts a server answering every path with code and a
// {"status": ...} body. It is closed when the test ends.
func NewHealthServer(t testing.TB, code int) *HealthServer {
	t.Helper()
	hs := &HealthServer{}
	hs.code.Store(int32(code))
	hs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hs.hits.Add(1)
		status := int(hs.code.Load())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		label := "ok"
		if status >= http.StatusBadRequest {
			label = "down"
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": label})
	}))
	t.Cleanup(hs.Close)
	return hs
}

// SetCode changes the status code returned from now on
func (hs *HealthServer) SetCode(code int) {
	hs.code.Store(int32(code))
}

// Hits returns how many requests were served
func (hs *HealthServer) Hits() int {
	return int(hs.hits.Load())
}

// Port returns the port the server listens on
func (hs *HealthServer) Port() int {
	u, err := url.Parse(hs.URL)
	if err != nil {
		return 0
	}
	p, _ := strconv.Atoi(u.Port())
	return p
}
