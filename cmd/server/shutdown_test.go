package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeService struct {
	active int
	calls  *[]string
}

func (f *fakeService) ActiveSubmissions() int { return f.active }

func (f *fakeService) WaitForSubmissions(ctx context.Context) error {
	*f.calls = append(*f.calls, "wait")
	f.active = 0
	return nil
}

type fakeServer struct {
	calls *[]string
	svc   *fakeService
	late  int
}

func (f *fakeServer) Shutdown(ctx context.Context) error {
	*f.calls = append(*f.calls, "shutdown")
	f.svc.active = f.late
	return nil
}

func TestGracefulShutdown_DrainsBeforeClosingServer(t *testing.T) {
	var calls []string
	svc := &fakeService{active: 2, calls: &calls}
	srv := &fakeServer{calls: &calls, svc: svc}

	gracefulShutdown(context.Background(), svc, srv)

	assert.Equal(t, []string{"wait", "shutdown"}, calls)
}

func TestGracefulShutdown_DrainsSubmissionsAcceptedDuringShutdown(t *testing.T) {
	var calls []string
	svc := &fakeService{active: 1, calls: &calls}
	srv := &fakeServer{calls: &calls, svc: svc, late: 1}

	gracefulShutdown(context.Background(), svc, srv)

	assert.Equal(t, []string{"wait", "shutdown", "wait"}, calls)
}

func TestGracefulShutdown_IdleSkipsWait(t *testing.T) {
	var calls []string
	svc := &fakeService{calls: &calls}
	srv := &fakeServer{calls: &calls, svc: svc}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	gracefulShutdown(ctx, svc, srv)

	assert.Equal(t, []string{"shutdown"}, calls)
}
