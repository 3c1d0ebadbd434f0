package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mtlprog/rebalancer/internal/domain"
)

type mockSweeper struct {
	callCount atomic.Int32
	err       error
}

func (m *mockSweeper) SweepActive(_ context.Context) ([]domain.RebalanceResult, error) {
	m.callCount.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return []domain.RebalanceResult{{Owner: "GOWNER", TradesExecuted: 2}}, nil
}

type mockHook struct {
	callCount atomic.Int32
	last      atomic.Value
}

func (m *mockHook) Export(_ context.Context, results []domain.RebalanceResult) error {
	m.callCount.Add(1)
	m.last.Store(results)
	return nil
}

func TestRebalanceWorkerRunsAndShutdown(t *testing.T) {
	sweeper := &mockSweeper{}
	hook := &mockHook{}
	w := NewRebalanceWorker(sweeper, 20*time.Millisecond, hook)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if got := sweeper.callCount.Load(); got < 1 {
		t.Errorf("sweep count = %d, want >= 1", got)
	}
	if hook.callCount.Load() != sweeper.callCount.Load() {
		t.Errorf("hook calls = %d, sweeps = %d", hook.callCount.Load(), sweeper.callCount.Load())
	}
	results, _ := hook.last.Load().([]domain.RebalanceResult)
	if len(results) != 1 || results[0].Owner != "GOWNER" {
		t.Errorf("hook received %+v", results)
	}
}

func TestRebalanceWorkerSkipsHookOnSweepError(t *testing.T) {
	sweeper := &mockSweeper{err: errors.New("oracle down")}
	hook := &mockHook{}
	w := NewRebalanceWorker(sweeper, 20*time.Millisecond, hook)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if sweeper.callCount.Load() < 1 {
		t.Error("worker never swept")
	}
	if hook.callCount.Load() != 0 {
		t.Error("hook called after a failed sweep")
	}
}

func TestRebalanceWorkerWithoutHook(t *testing.T) {
	sweeper := &mockSweeper{}
	w := NewRebalanceWorker(sweeper, 10*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if sweeper.callCount.Load() < 1 {
		t.Error("worker never swept")
	}
}
