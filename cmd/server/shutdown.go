package main

import (
	"context"
	"log/slog"
)

type submissionDrainer interface {
	ActiveSubmissions() int
	WaitForSubmissions(ctx context.Context) error
}

type httpShutdowner interface {
	Shutdown(ctx context.Context) error
}

// gracefulShutdown drains in-flight submissions before closing the HTTP
// server, then drains again for submissions accepted in the meantime. It
// returns only once both are done or ctx expires, so main's deferred pool
// and cache closes never run under a live pipeline.
func gracefulShutdown(ctx context.Context, svc submissionDrainer, srv httpShutdowner) {
	drain(ctx, svc)

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	drain(ctx, svc)
}

func drain(ctx context.Context, svc submissionDrainer) {
	active := svc.ActiveSubmissions()
	if active == 0 {
		return
	}
	slog.Info("waiting for submissions to complete", "active", active)
	if err := svc.WaitForSubmissions(ctx); err != nil {
		slog.Warn("submissions did not complete in time", "error", err)
		return
	}
	slog.Info("all submissions completed")
}
