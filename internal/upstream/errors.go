package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrIdleTimeout is reported when the upstream sends nothing for longer than
// the client timeout. It matches context.DeadlineExceeded.
var ErrIdleTimeout = fmt.Errorf("upstream idle for too long: %w", context.DeadlineExceeded)

// StatusError is returned when the upstream answers with a non-2xx status.
// It is produced before any body line is read.
type StatusError struct {
	StatusCode int
	Status     string
	Body       []byte
	// Message is error.message from the upstream JSON body, when present.
	Message string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.TrimSpace(string(e.Body))
	}
	if msg == "" {
		msg = e.Status
	}
	if len(msg) > 300 {
		msg = msg[:300] + "…"
	}
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, msg)
}

func newStatusError(statusCode int, status string, body []byte) *StatusError {
	se := &StatusError{StatusCode: statusCode, Status: status, Body: body}
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		se.Message = envelope.Error.Message
	}
	return se
}

// IsTimeout reports whether err was caused by the upstream deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
