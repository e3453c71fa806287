package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

var (
	errMissingKey    = errors.New("missing Authorization or X-API-Key header")
	errMalformedAuth = errors.New("invalid Authorization header format")
)

// providedKey extracts a key from either 'Authorization: Bearer <key>' or
// 'X-API-Key: <key>'.
func providedKey(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", errMalformedAuth
		}
		return parts[1], nil
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key, nil
	}
	return "", errMissingKey
}

func keysEqual(provided, want string) bool {
	return subtle.ConstantTimeCompare([]byte(provided), []byte(want)) == 1
}

func (s *Server) checkKey(w http.ResponseWriter, r *http.Request, want, scope string) bool {
	provided, err := providedKey(r)
	if err == nil && !keysEqual(provided, want) {
		err = errors.New("invalid API key")
	}
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("scope", scope).
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Str("remote_addr", r.RemoteAddr).
			Msg("Rejected unauthorized request")
		msg := "Unauthorized"
		if errors.Is(err, errMalformedAuth) {
			msg = err.Error()
		}
		writeJSONError(w, http.StatusUnauthorized, msg)
		return false
	}
	return true
}

// accessMiddleware guards the public endpoints when a proxy key is configured.
func (s *Server) accessMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.proxyKey == "" {
			next(w, r)
			return
		}
		if !s.checkKey(w, r, s.proxyKey, "proxy") {
			return
		}
		next(w, r)
	}
}

// adminMiddleware checks for a valid admin API key. The admin API is
// disabled when no key is configured.
func (s *Server) adminMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminKey == "" {
			s.logger.Error().Msg("Admin API key not configured")
			writeJSONError(w, http.StatusInternalServerError, "Admin API not configured")
			return
		}
		if !s.checkKey(w, r, s.adminKey, "admin") {
			return
		}

		s.logger.Info().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Str("remote_addr", r.RemoteAddr).
			Msg("Admin request authorized")

		next(w, r)
	}
}
