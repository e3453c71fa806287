package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStream(t *testing.T) {
	var gotHeaders http.Header
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/chat/completions", r.URL.Path)
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": OPENROUTER PROCESSING\n\n")
		fmt.Fprint(w, "data: {\"id\":\"gen-1\"}\r\n\r\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), srv.URL+"/api/v1/")
	stream, err := client.OpenStream(context.Background(), map[string]any{"model": "deepseek/deepseek-r1", "stream": true}, "Bearer sk-or-secret")
	require.NoError(t, err)
	defer stream.Close()

	var lines []string
	for line, err := range stream.Lines() {
		require.NoError(t, err)
		lines = append(lines, line)
	}

	assert.Equal(t, []string{": OPENROUTER PROCESSING", "", `data: {"id":"gen-1"}`, "", "data: [DONE]", ""}, lines)
	assert.Equal(t, "Bearer sk-or-secret", gotHeaders.Get("Authorization"))
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "text/event-stream", gotHeaders.Get("Accept"))
	assert.Equal(t, DefaultReferer, gotHeaders.Get("HTTP-Referer"))
	assert.Equal(t, DefaultTitle, gotHeaders.Get("X-Title"))
	assert.Equal(t, "deepseek/deepseek-r1", gotBody["model"])

	assert.NoError(t, stream.Close())
}

func TestOpenStreamAttribution(t *testing.T) {
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), srv.URL, WithAttribution("https://example.com/", ""))
	stream, err := client.OpenStream(context.Background(), map[string]any{}, "k")
	require.NoError(t, err)
	stream.Close()

	assert.Equal(t, "https://example.com/", gotHeaders.Get("HTTP-Referer"))
	assert.Empty(t, gotHeaders.Get("X-Title"))
}

func TestOpenStreamStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"No auth credentials found","code":401}}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.Client(), srv.URL).OpenStream(context.Background(), map[string]any{}, "bad")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, "No auth credentials found", statusErr.Message)
	assert.Equal(t, "upstream returned 401: No auth credentials found", err.Error())
}

func TestStatusErrorPlainBody(t *testing.T) {
	err := newStatusError(http.StatusBadGateway, "502 Bad Gateway", []byte("upstream down\n"))
	assert.Empty(t, err.Message)
	assert.Equal(t, "upstream returned 502: upstream down", err.Error())

	err = newStatusError(http.StatusBadGateway, "502 Bad Gateway", nil)
	assert.Equal(t, "upstream returned 502: 502 Bad Gateway", err.Error())
}

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		fmt.Fprint(w, `{"id":"gen-1","choices":[{"message":{"content":"42","reasoning":"hm"}}]}`)
	}))
	defer srv.Close()

	resp, err := NewClient(srv.Client(), srv.URL).Complete(context.Background(), map[string]any{"stream": false}, "k")
	require.NoError(t, err)
	assert.Equal(t, "gen-1", resp["id"])
}

func TestCompleteInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.Client(), srv.URL).Complete(context.Background(), map[string]any{}, "k")
	assert.ErrorContains(t, err, "failed to decode upstream response")
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(NewHTTPClient(50*time.Millisecond), srv.URL)
	_, err := client.OpenStream(context.Background(), map[string]any{}, "k")
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestStreamOutlivesTimeoutWhileActive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i := range 6 {
			fmt.Fprintf(w, "data: %d\n\n", i)
			flusher.Flush()
			time.Sleep(100 * time.Millisecond)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	timeout := 300 * time.Millisecond
	client := NewClient(NewHTTPClient(timeout), srv.URL, WithTimeout(timeout))
	stream, err := client.OpenStream(context.Background(), map[string]any{}, "k")
	require.NoError(t, err)
	defer stream.Close()

	var data []string
	for line, err := range stream.Lines() {
		require.NoError(t, err)
		if line != "" {
			data = append(data, line)
		}
	}
	assert.Equal(t, []string{
		"data: 0", "data: 1", "data: 2", "data: 3", "data: 4", "data: 5", "data: [DONE]",
	}, data)
}

func TestStreamIdleTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: first\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), srv.URL, WithTimeout(100*time.Millisecond))
	stream, err := client.OpenStream(context.Background(), map[string]any{}, "k")
	require.NoError(t, err)
	defer stream.Close()

	var lines []string
	var streamErr error
	for line, err := range stream.Lines() {
		if err != nil {
			streamErr = err
			break
		}
		lines = append(lines, line)
	}
	assert.Equal(t, []string{"data: first", ""}, lines)
	require.Error(t, streamErr)
	assert.ErrorIs(t, streamErr, ErrIdleTimeout)
	assert.True(t, IsTimeout(streamErr))
}

func TestIdleTimeoutBeforeHeaders(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(srv.Client(), srv.URL, WithTimeout(50*time.Millisecond))
	_, err := client.OpenStream(context.Background(), map[string]any{}, "k")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIdleTimeout)
	assert.True(t, IsTimeout(err))
}

func TestCompleteTotalTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":`)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), srv.URL, WithTimeout(100*time.Millisecond))
	_, err := client.Complete(context.Background(), map[string]any{}, "k")
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestStreamReadErrorIsYielded(t *testing.T) {
	stream := newStream(context.Background(), nil, errReader{}, nil, 0)
	var errs []error
	for _, err := range stream.Lines() {
		if err != nil {
			errs = append(errs, err)
		}
	}
	require.Len(t, errs, 1)
	assert.ErrorContains(t, errs[0], "failed to read upstream stream")
	assert.NoError(t, stream.Close())
	assert.NoError(t, stream.Close())
}

func TestStreamStopsEarly(t *testing.T) {
	stream := newStream(context.Background(), nil, nopCloser{strings.NewReader("a\nb\nc\n")}, nil, 0)
	var got []string
	for line := range stream.Lines() {
		got = append(got, line)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestKeyPreview(t *testing.T) {
	assert.Equal(t, "", KeyPreview(""))
	assert.Equal(t, "…", KeyPreview("short"))
	assert.Equal(t, "sk-or-…abcdef", KeyPreview("sk-or-v1-0123456789abcdef"))
	assert.Equal(t, "token", bareToken("  bearer token "))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.False(t, IsTimeout(errors.New("connection refused")))
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("connection reset by peer") }
func (errReader) Close() error             { return nil }

type nopCloser struct{ *strings.Reader }

func (nopCloser) Close() error { return nil }
