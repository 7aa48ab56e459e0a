package web

// errors.go maps pipeline errors onto HTTP responses.
//
// The technical error is logged with the request id; the client gets the
// user-facing message from core.MapError:
//
//	{"error": "...", "message": "...", "action": "...", "code": "STG001"}

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/busreg/internal/core"
	"github.com/JonMunkholm/busreg/internal/logging"
)

var (
	errFileTooLarge = errors.New("file too large")
	errNoFile       = errors.New("no file provided")
	errNotCSV       = errors.New("invalid csv: expected a .csv file")
	errBadRequest   = errors.New("bad request")
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrPreviousProcessNotCompleted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound),
		errors.Is(err, core.ErrReportNotFound),
		errors.Is(err, core.ErrNoStagedProcess):
		return http.StatusNotFound
	case errors.Is(err, core.ErrStagingInProgress),
		errors.Is(err, core.ErrReportPending):
		return http.StatusTooEarly
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrTooManySubmissions):
		return http.StatusTooManyRequests
	case errors.Is(err, errFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrNoIdentity):
		return http.StatusUnauthorized
	case errors.Is(err, errNoFile),
		errors.Is(err, errNotCSV),
		errors.Is(err, errBadRequest),
		errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, core.ErrUndecodable):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the mapped JSON error.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request rejected", attrs...)
	}
	if !core.IsUserFacing(err) {
		logger.Warn("no user-facing message for error", "error", err.Error(), "path", r.URL.Path)
	}

	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}
