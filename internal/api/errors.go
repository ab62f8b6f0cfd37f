package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"balance-history/internal/domain"
	"balance-history/internal/history"
	"balance-history/internal/near"
	"balance-history/internal/storage"
)

// requestError is a client mistake in the request itself.
type requestError struct {
	msg string
}

func (e *requestError) Error() string {
	return e.msg
}

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// errorBody is the JSON body of every error response.
type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// classify maps err to an HTTP status and a stable code. Messages of
// server-side failures are not exposed.
func classify(err error) (status int, code string, expose bool) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, "invalid_request", true
	case errors.Is(err, domain.ErrInvalidCursor):
		return http.StatusBadRequest, "invalid_cursor", true
	case errors.Is(err, history.ErrConflictingStart):
		return http.StatusBadRequest, "invalid_request", true
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "block_not_found", true
	case errors.Is(err, near.ErrChainQuery):
		return http.StatusBadGateway, "chain_query_failed", true
	case errors.Is(err, near.ErrUnavailable), errors.Is(err, storage.ErrTransientIO):
		return http.StatusServiceUnavailable, "unavailable", false
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout", false
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "canceled", false
	default:
		return http.StatusInternalServerError, "internal", false
	}
}

// writeError logs err and writes the mapped response. It returns the status.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) int {
	status, code, expose := classify(err)

	logger := zerolog.Ctx(r.Context())
	ev := logger.Warn()
	if status >= http.StatusInternalServerError {
		ev = logger.Error()
	}
	ev.Err(err).Int("status", status).Str("code", code).Msg("request failed")

	msg := err.Error()
	if !expose {
		msg = http.StatusText(status)
	}
	writeJSON(w, r, status, errorBody{
		Error:     msg,
		Code:      code,
		RequestID: requestID(r.Context()),
	})
	return status
}
