//go:build !js || !wasm

package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dvcrn/reasoning-proxy/internal/reasoning"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Access is gated by accessMiddleware, not by origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// websocketHandler serves one streamed completion per connection: the host
// sends the request as a single text message and receives one text frame
// per chunk payload, ending with [DONE].
func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxRequestBody)

	_, msg, err := conn.ReadMessage()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read websocket request")
		return
	}

	var body map[string]any
	if err := json.Unmarshal(msg, &body); err != nil || body == nil {
		s.closeWebsocketWithError(conn, "invalid JSON body")
		return
	}

	upstreamBody := reasoning.NormalizeRequest(body)
	upstreamBody["stream"] = true
	model, _ := upstreamBody["model"].(string)

	apiKey, err := s.keys.GetAPIKey()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to get upstream API key")
		s.closeWebsocketWithError(conn, "upstream API key unavailable")
		return
	}

	stream, err := s.client.OpenStream(r.Context(), upstreamBody, apiKey)
	if err != nil {
		s.upstreamErrorStatus(err)
		s.closeWebsocketWithError(conn, err.Error())
		return
	}
	defer stream.Close()

	tr := reasoning.NewTransducer(model)
	frames := 0
	for chunk, err := range tr.Transform(reasoning.DecodeEvents(stream.Lines())) {
		if err != nil {
			s.logger.Error().Err(err).Int("frames", frames).Msg("Websocket stream aborted")
			s.closeWebsocketWithError(conn, err.Error())
			return
		}
		payload, err := reasoning.MarshalPayload(chunk)
		if err != nil {
			s.closeWebsocketWithError(conn, err.Error())
			return
		}
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.logger.Info().Err(err).Msg("Websocket client went away")
			return
		}
		frames++
	}

	s.logger.Debug().
		Int("frames", frames).
		Str("phase", tr.Phase().String()).
		Msg("Websocket stream completed")
	closeWebsocket(conn, websocket.CloseNormalClosure, "")
}

func (s *Server) closeWebsocketWithError(conn *websocket.Conn, msg string) {
	payload, _ := json.Marshal(map[string]string{"error": msg})
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to send websocket error")
		return
	}
	closeWebsocket(conn, websocket.CloseInternalServerErr, "")
}

func closeWebsocket(conn *websocket.Conn, code int, text string) {
	deadline := time.Now().Add(wsWriteTimeout)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}
