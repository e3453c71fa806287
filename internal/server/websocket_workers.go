//go:build js && wasm

package server

import "net/http"

// Workers cannot hijack the connection, so the websocket endpoint is not
// available there.
func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, http.StatusNotImplemented, "websocket streaming is not supported in this runtime")
}
