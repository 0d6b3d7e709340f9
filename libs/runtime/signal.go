package runtime

import (
	"context"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Workers runs named background loops and lets shutdown wait for them to return.
type Workers struct {
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewWorkers(logger *slog.Logger) *Workers {
	return &Workers{logger: logger}
}

func (w *Workers) Go(ctx context.Context, name string, run func(context.Context)) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.logger.Info("worker started", "worker", name)
		run(ctx)
		w.logger.Info("worker stopped", "worker", name)
	}()
}

// Wait blocks until every worker returned or the timeout elapsed.
func (w *Workers) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
