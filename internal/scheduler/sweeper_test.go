package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/terralink/portal/internal/auth/domain"
	"github.com/terralink/portal/internal/config"
	"go.uber.org/zap"
)

type stubAuth struct {
	domain.Service
	calls   atomic.Int64
	removed int64
	err     error
}

func (s *stubAuth) SweepExpiredSessions(ctx context.Context) (int64, error) {
	s.calls.Add(1)
	return s.removed, s.err
}

func waitForCalls(t *testing.T, stub *stubAuth, want int64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if stub.calls.Load() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("sweep calls = %d, want at least %d", stub.calls.Load(), want)
}

func TestSweeperRunsOnInterval(t *testing.T) {
	stub := &stubAuth{removed: 2}
	s := NewSweeper(config.Config{SweepInterval: 10 * time.Millisecond}, stub, nil, zap.NewNop())

	go s.Run()
	waitForCalls(t, stub, 3)
	s.Stop()
}

func TestSweeperSurvivesErrors(t *testing.T) {
	stub := &stubAuth{err: errors.New("db down")}
	s := NewSweeper(config.Config{SweepInterval: 10 * time.Millisecond}, stub, nil, zap.NewNop())

	go s.Run()
	waitForCalls(t, stub, 3)
	s.Stop()
}

func TestSweeperStops(t *testing.T) {
	stub := &stubAuth{}
	s := NewSweeper(config.Config{SweepInterval: 10 * time.Millisecond}, stub, nil, zap.NewNop())

	go s.Run()
	waitForCalls(t, stub, 1)
	s.Stop()

	after := stub.calls.Load()
	time.Sleep(50 * time.Millisecond)
	if got := stub.calls.Load(); got != after {
		t.Fatalf("sweeper kept running after Stop: %d -> %d", after, got)
	}
}
