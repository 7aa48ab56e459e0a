// Package logging provides structured logging configuration using log/slog.
//
// Loggers obtained from a request context carry chi's request id, and
// pipeline loggers carry the submission and submitter ids, so every line
// written while a submission is processed can be correlated after the
// HTTP request that started it has returned.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Setup configures the global slog logger based on level and format.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) {
	slog.SetDefault(New(os.Stdout, level, format))
}

// New builds a logger writing to w. Used by Setup and by the CLI, which
// logs to stderr so command output stays machine readable.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type ctxKey struct{}

// FromContext returns a logger enriched with request context.
//
// A logger stored with WithLogger wins; otherwise the default logger is used
// and the chi request id, when present, is attached as request_id.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}

	logger := slog.Default()
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	return logger
}

// WithLogger stores logger in ctx so downstream calls to FromContext reuse it.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// WithFields returns a logger with additional structured fields.
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}

// ForSubmission returns the logger used for the lifetime of one pipeline run.
//
//	logger := logging.ForSubmission(ctx, submissionID, submitterID)
//	logger.Info("rows parsed", "rows", len(rows))
func ForSubmission(ctx context.Context, submissionID, submitterID string) *slog.Logger {
	return WithFields(ctx, "submission_id", submissionID, "submitter_id", submitterID)
}
