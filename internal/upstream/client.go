package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the OpenRouter API root.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	DefaultReferer = "https://openwebui.com/"
	DefaultTitle   = "Open WebUI"

	maxErrorBody = 64 * 1024
)

// Client talks to an OpenAI-compatible chat completion API.
type Client struct {
	httpClient HTTPClient
	baseURL    string
	referer    string
	title      string
	timeout    time.Duration
	logger     zerolog.Logger
}

type Option func(*Client)

// WithAttribution sets the HTTP-Referer and X-Title headers OpenRouter uses
// to attribute traffic. Empty values omit the header.
func WithAttribution(referer, title string) Option {
	return func(c *Client) {
		c.referer = referer
		c.title = title
	}
}

// WithTimeout sets how long a stream may go without a line and how long a
// buffered completion may take in total. Non-positive values keep
// DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(httpClient HTTPClient, baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		referer:    DefaultReferer,
		title:      DefaultTitle,
		timeout:    DefaultTimeout,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// OpenStream posts a streaming chat completion and returns the open stream.
// A non-2xx answer is returned as *StatusError with the body already closed.
// The request is cancelled once the upstream stays silent for the client
// timeout; an active stream is never cut.
func (c *Client) OpenStream(ctx context.Context, body map[string]any, apiKey string) (*Stream, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	idle := time.AfterFunc(c.timeout, func() { cancel(ErrIdleTimeout) })

	resp, err := c.post(ctx, body, apiKey, "text/event-stream")
	if err != nil {
		idle.Stop()
		if errors.Is(context.Cause(ctx), ErrIdleTimeout) {
			err = fmt.Errorf("%w: %v", ErrIdleTimeout, err)
		}
		cancel(nil)
		return nil, err
	}
	return newStream(ctx, cancel, resp.Body, idle, c.timeout), nil
}

// Complete posts a non-streaming chat completion and returns the decoded
// response object.
func (c *Client) Complete(ctx context.Context, body map[string]any, apiKey string) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.post(ctx, body, apiKey, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("failed to read upstream response: %w", ctxErr)
		}
		return nil, fmt.Errorf("failed to decode upstream response: %w", err)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, body map[string]any, apiKey, accept string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal upstream request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream request: %w", err)
	}

	bareKey := bareToken(apiKey)
	req.Header.Set("Authorization", "Bearer "+bareKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		req.Header.Set("X-Title", c.title)
	}

	c.logger.Debug().
		Str("url", url).
		Str("authorization_preview", "Bearer "+KeyPreview(bareKey)).
		Str("model", fmt.Sprint(body["model"])).
		Msg("Upstream request (sanitized)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send upstream request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn().
			Int("status_code", resp.StatusCode).
			Str("content_type", resp.Header.Get("Content-Type")).
			Str("response_body", string(errBody)).
			Msg("Received error response from upstream API")
		return nil, newStatusError(resp.StatusCode, resp.Status, errBody)
	}

	c.logger.Debug().
		Int("status_code", resp.StatusCode).
		Str("content_type", resp.Header.Get("Content-Type")).
		Msg("Received response from upstream API")

	return resp, nil
}

// bareToken strips a pasted "Bearer " prefix so the header is never doubled.
func bareToken(token string) string {
	token = strings.TrimSpace(token)
	if len(token) >= 7 && strings.EqualFold(token[:7], "Bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

// KeyPreview returns a log-safe preview of a secret.
func KeyPreview(key string) string {
	if len(key) > 12 {
		return key[:6] + "…" + key[len(key)-6:]
	}
	if key == "" {
		return ""
	}
	return "…"
}
