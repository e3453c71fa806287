package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dvcrn/reasoning-proxy/internal/reasoning"
	"github.com/dvcrn/reasoning-proxy/internal/upstream"
)

const maxRequestBody = 10 * 1024 * 1024

func (s *Server) chatCompletionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := decodeRequestBody(w, r)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Rejected chat completion request")
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	upstreamBody := reasoning.NormalizeRequest(body)
	model, _ := upstreamBody["model"].(string)

	apiKey, err := s.keys.GetAPIKey()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to get upstream API key")
		writeJSONError(w, http.StatusInternalServerError, "upstream API key unavailable")
		return
	}

	s.logger.Info().
		Str("requested_model", fmt.Sprint(body["model"])).
		Str("model", model).
		Bool("stream", reasoning.IsStreaming(upstreamBody)).
		Msg("Forwarding chat completion")

	if reasoning.IsStreaming(upstreamBody) {
		s.streamCompletion(w, r, upstreamBody, model, apiKey)
		return
	}
	s.bufferedCompletion(w, r, upstreamBody, apiKey)
}

func decodeRequestBody(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if body == nil {
		return nil, errors.New("request body must be a JSON object")
	}
	return body, nil
}

func (s *Server) streamCompletion(w http.ResponseWriter, r *http.Request, body map[string]any, model, apiKey string) {
	stream, err := s.client.OpenStream(r.Context(), body, apiKey)
	if err != nil {
		writeJSONError(w, s.upstreamErrorStatus(err), err.Error())
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	var out io.Writer = w
	flusher, canFlush := w.(http.Flusher)
	if canFlush {
		flusher.Flush()
		out = sseFlushWriter{w: w, f: flusher}
	} else {
		s.logger.Warn().Msg("ResponseWriter does not support flushing - streaming may be buffered")
	}

	tr := reasoning.NewTransducer(model)
	start := time.Now()
	n, err := reasoning.WriteChunks(out, tr.Transform(reasoning.DecodeEvents(stream.Lines())))
	if err != nil {
		// Headers are gone; ending the body without [DONE] is the only signal left.
		evt := s.logger.Error()
		if errors.Is(err, context.Canceled) {
			evt = s.logger.Info()
		}
		evt.Err(err).
			Int("chunks", n).
			Str("phase", tr.Phase().String()).
			Msg("Streaming response aborted")
		return
	}

	s.logger.Debug().
		Int("chunks", n).
		Dur("elapsed", time.Since(start)).
		Str("phase", tr.Phase().String()).
		Bool("finished", tr.Finished()).
		Msg("Streaming response completed")
	if !tr.Finished() {
		s.logger.Warn().Str("model", model).Msg("Upstream stream ended without a finish reason")
	}
}

func (s *Server) bufferedCompletion(w http.ResponseWriter, r *http.Request, body map[string]any, apiKey string) {
	resp, err := s.client.Complete(r.Context(), body, apiKey)
	if err != nil {
		writeJSONError(w, s.upstreamErrorStatus(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, reasoning.ReshapeResponse(resp)); err != nil {
		s.logger.Error().Err(err).Msg("Error writing response body to client")
	}
}

// upstreamErrorStatus maps an upstream failure to the status reported to
// the host. A 401 drops the cached key so the next request re-reads it.
func (s *Server) upstreamErrorStatus(err error) int {
	var statusErr *upstream.StatusError
	switch {
	case errors.As(err, &statusErr):
		if statusErr.StatusCode == http.StatusUnauthorized {
			s.logger.Warn().Msg("Received 401 Unauthorized, refreshing API key")
			if rerr := s.keys.RefreshAPIKey(); rerr != nil {
				s.logger.Error().Err(rerr).Msg("Failed to refresh API key after 401 error")
			}
		}
		return statusErr.StatusCode
	case upstream.IsTimeout(err):
		s.logger.Error().Err(err).Msg("Upstream request timed out")
		return http.StatusGatewayTimeout
	default:
		s.logger.Error().Err(err).Msg("Upstream request failed")
		return http.StatusBadGateway
	}
}
