package upstream

import (
	"net/http"
	"time"
)

// DefaultTimeout bounds the wait for response headers, each gap between
// streamed lines, and a whole buffered completion.
const DefaultTimeout = 60 * time.Second

// HTTPClient is an interface for making HTTP requests
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient creates the HTTP client used for upstream calls. Only the
// wait for response headers is bounded here; http.Client.Timeout would also
// cover the body and cut long streams. On js/wasm builds net/http is backed
// by fetch, so the same client serves the worker.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	return &http.Client{
		Transport: transport,
	}
}
