package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dvcrn/reasoning-proxy/internal/upstream"
)

type memoryKeys struct {
	mu        sync.Mutex
	key       string
	refreshes int
}

func (m *memoryKeys) GetAPIKey() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.key == "" {
		return "", errors.New("no key")
	}
	return m.key, nil
}

func (m *memoryKeys) RefreshAPIKey() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes++
	return nil
}

func (m *memoryKeys) SetAPIKey(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.key = key
	return nil
}

// readOnlyKeys satisfies only KeyFetcher.
type readOnlyKeys struct{ key string }

func (r readOnlyKeys) GetAPIKey() (string, error) { return r.key, nil }
func (r readOnlyKeys) RefreshAPIKey() error       { return nil }

type fixture struct {
	server   *Server
	upstream *httptest.Server
	keys     *memoryKeys
	// received is the last request body seen by the fake upstream.
	received map[string]any
	headers  http.Header
}

func newFixture(t *testing.T, handler http.HandlerFunc, opts Options) *fixture {
	t.Helper()
	f := &fixture{keys: &memoryKeys{key: "sk-or-test-key-123456"}}
	f.upstream = httptest.NewServer(handler)
	t.Cleanup(f.upstream.Close)

	if opts.Client == nil {
		opts.Client = upstream.NewClient(f.upstream.Client(), f.upstream.URL)
	}
	f.server = New(zerolog.Nop(), f.keys, opts)
	return f
}
