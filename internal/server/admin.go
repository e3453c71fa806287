package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dvcrn/reasoning-proxy/internal/credentials"
	"github.com/dvcrn/reasoning-proxy/internal/upstream"
)

// credentialsHandler handles POST /admin/credentials for replacing the upstream API key
func (s *Server) credentialsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	store, ok := s.keys.(credentials.KeyStore)
	if !ok {
		s.logger.Error().Msg("Credentials source does not support key updates")
		writeJSONError(w, http.StatusBadRequest, "Key updates not supported by current credentials source")
		return
	}

	var reqBody struct {
		APIKey string `json:"apiKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		s.logger.Error().Err(err).Msg("Failed to parse request body")
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	apiKey := strings.TrimSpace(reqBody.APIKey)
	if apiKey == "" {
		writeJSONError(w, http.StatusBadRequest, "Missing required field: apiKey")
		return
	}

	if err := store.SetAPIKey(apiKey); err != nil {
		s.logger.Error().Err(err).Msg("Failed to update API key")
		writeJSONError(w, http.StatusInternalServerError, "Failed to update credentials")
		return
	}

	s.logger.Info().Str("key_preview", upstream.KeyPreview(apiKey)).Msg("Upstream API key updated")

	_ = writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Credentials updated successfully",
	})
}

// credentialsStatusHandler handles GET /admin/credentials/status
func (s *Server) credentialsStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	_, writable := s.keys.(credentials.KeyStore)
	response := map[string]any{
		"writable": writable,
	}

	apiKey, err := s.keys.GetAPIKey()
	response["hasCredentials"] = err == nil
	if err != nil {
		response["error"] = err.Error()
	} else {
		response["keyPreview"] = upstream.KeyPreview(apiKey)
	}

	_ = writeJSON(w, http.StatusOK, response)
}
