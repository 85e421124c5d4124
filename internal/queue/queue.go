// Package queue runs jobs with a global concurrency cap while keeping jobs
// that share a key strictly sequential.
package queue

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Job is a unit of work that the queue will execute.
type Job func(ctx context.Context)

// GroupQueue manages per-key FIFO queues with a global concurrency limit.
type GroupQueue struct {
	sem     *semaphore.Weighted
	mu      sync.Mutex
	queues  map[string][]Job
	running map[string]bool
	wg      sync.WaitGroup
}

// New creates a GroupQueue limited to maxConcurrent simultaneous jobs.
func New(maxConcurrent int64) *GroupQueue {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &GroupQueue{
		sem:     semaphore.NewWeighted(maxConcurrent),
		queues:  make(map[string][]Job),
		running: make(map[string]bool),
	}
}

// Enqueue adds job to key's queue and returns immediately. ctx is forwarded
// to the job; once it is cancelled, jobs still waiting are dropped.
func (q *GroupQueue) Enqueue(ctx context.Context, key string, job Job) {
	q.wg.Add(1)
	q.mu.Lock()
	q.queues[key] = append(q.queues[key], job)
	q.mu.Unlock()
	q.dispatch(ctx)
}

// Wait blocks until every enqueued job has finished or been dropped.
func (q *GroupQueue) Wait() {
	q.wg.Wait()
}

// PendingCount returns the number of jobs waiting behind key.
func (q *GroupQueue) PendingCount(key string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queues[key])
}

// IsRunning reports whether a job for key is in flight.
func (q *GroupQueue) IsRunning(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running[key]
}

// dispatch starts the head job of every idle key.
func (q *GroupQueue) dispatch(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for key, jobs := range q.queues {
		if len(jobs) == 0 || q.running[key] {
			continue
		}
		job := jobs[0]
		if len(jobs) == 1 {
			delete(q.queues, key)
		} else {
			q.queues[key] = jobs[1:]
		}
		q.running[key] = true
		go q.run(ctx, key, job)
	}
}

func (q *GroupQueue) run(ctx context.Context, key string, job Job) {
	defer q.wg.Done()
	defer func() {
		q.mu.Lock()
		q.running[key] = false
		q.mu.Unlock()
		q.dispatch(ctx)
	}()

	if err := q.sem.Acquire(ctx, 1); err != nil {
		slog.Warn("queued job dropped", "key", key, "err", err)
		return
	}
	defer q.sem.Release(1)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("queued job panicked", "key", key, "panic", r)
		}
	}()
	job(ctx)
}
