package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/linkerlin/mentiondigest/internal/clock"
	"github.com/linkerlin/mentiondigest/internal/db"
	"github.com/linkerlin/mentiondigest/internal/metrics"
	"github.com/linkerlin/mentiondigest/internal/queue"
	"github.com/linkerlin/mentiondigest/internal/types"
)

// Runner polls for due triggers and runs their handlers on a queue keyed by
// handler name.
type Runner struct {
	db       *db.DB
	handlers Registry
	queue    *queue.GroupQueue
	clock    clock.Clock
	interval time.Duration

	mu       sync.Mutex
	inflight map[string]bool // trigger ids queued or running
}

// NewRunner creates a Runner.
func NewRunner(d *db.DB, handlers Registry, q *queue.GroupQueue, clk clock.Clock, interval time.Duration) *Runner {
	return &Runner{
		db:       d,
		handlers: handlers,
		queue:    q,
		clock:    clk,
		interval: interval,
		inflight: make(map[string]bool),
	}
}

// Run checks for due triggers immediately and then every interval until ctx
// is cancelled. It waits for running handlers before returning.
func (r *Runner) Run(ctx context.Context) error {
	slog.Info("runner started", "interval", r.interval, "handlers", r.handlers.Names())
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			r.queue.Wait()
			slog.Info("runner stopped")
			return ctx.Err()
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick enqueues every due trigger that is not already in flight and returns
// how many were enqueued.
func (r *Runner) Tick(ctx context.Context) int {
	now := r.clock.Now()
	due, err := r.db.GetDueTriggers(ctx, now)
	if err != nil {
		slog.Error("get due triggers", "err", err)
		return 0
	}

	n := 0
	for _, t := range due {
		if !t.IsDue(now) || !r.claim(t.ID) {
			continue
		}
		metrics.TriggersFiredTotal.WithLabelValues(t.Handler).Inc()
		if r.queue.IsRunning(t.Handler) {
			slog.Info("handler busy, trigger queued", "trigger", t.ID, "handler", t.Handler,
				"pending", r.queue.PendingCount(t.Handler)+1)
		}
		t := t
		r.queue.Enqueue(ctx, t.Handler, func(ctx context.Context) {
			defer r.release(t.ID)
			r.fire(ctx, t)
		})
		n++
	}
	return n
}

func (r *Runner) fire(ctx context.Context, t types.Trigger) {
	started := r.clock.Now()

	var result string
	h, err := r.handlers.Lookup(t.Handler)
	if err != nil {
		slog.Error("trigger bound to unknown handler", "trigger", t.ID, "handler", t.Handler)
		result = "error: " + err.Error()
	} else {
		slog.Info("running trigger", "trigger", t.ID, "handler", t.Handler)
		result = h(ctx)
		slog.Info("trigger completed", "trigger", t.ID, "handler", t.Handler, "result", result)
	}

	var nextRun *time.Time
	next, err := NextRun(t.Schedule, t.Timezone, r.clock.Now())
	if err != nil {
		slog.Error("trigger disabled, cannot compute next run", "trigger", t.ID, "err", err)
	} else {
		nextRun = &next
	}

	// A cancelled run context must not lose the bookkeeping write.
	if err := r.db.UpdateTriggerRun(context.WithoutCancel(ctx), t.ID, started, result, nextRun); err != nil {
		slog.Error("update trigger run", "trigger", t.ID, "err", err)
	}
}

func (r *Runner) claim(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inflight[id] {
		return false
	}
	r.inflight[id] = true
	return true
}

func (r *Runner) release(id string) {
	r.mu.Lock()
	delete(r.inflight, id)
	r.mu.Unlock()
}
