package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"nowplaying-bot/internal/botcore"
)

const defaultBuffer = 1024

// Queue runs named jobs on bounded worker pools. Jobs are persisted in a
// Store before dispatch and reloaded by Run.
type Queue struct {
	store   Store
	logger  *zap.Logger
	metrics *metrics
	buffer  int
	backoff func(attempt int) time.Duration

	mu      sync.Mutex
	workers map[string]*worker
	queued  map[string]struct{}
	running bool
	wg      sync.WaitGroup
}

type worker struct {
	name        string
	concurrency int
	handler     botcore.JobHandler
	jobs        chan Job
}

// Option configures a Queue.
type Option func(*Queue)

// WithBackoff sets the delay after failed attempt n (n starts at 1):
// base*2^(n-1) capped at ceiling.
func WithBackoff(base, ceiling time.Duration) Option {
	return func(q *Queue) { q.backoff = exponential(base, ceiling) }
}

// WithBuffer sets how many jobs per name can wait for a worker.
func WithBuffer(n int) Option {
	return func(q *Queue) { q.buffer = n }
}

var (
	_ botcore.Queue     = (*Queue)(nil)
	_ botcore.Registrar = (*Queue)(nil)
)

// New builds a queue. A nil store keeps jobs in memory only.
func New(store Store, logger *zap.Logger, opts ...Option) *Queue {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &Queue{
		store:   store,
		logger:  logger,
		metrics: newMetrics(),
		buffer:  defaultBuffer,
		backoff: exponential(time.Second, time.Minute),
		workers: make(map[string]*worker),
		queued:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Register binds a handler to a job name. It must be called before Run.
func (q *Queue) Register(name string, concurrency int, handler botcore.JobHandler) {
	if concurrency <= 0 {
		concurrency = 1
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.workers[name] = &worker{
		name:        name,
		concurrency: concurrency,
		handler:     handler,
		jobs:        make(chan Job, q.buffer),
	}
}

// Enqueue persists the job and hands it to the workers of its name.
func (q *Queue) Enqueue(ctx context.Context, name string, payload any, opts botcore.JobOptions) error {
	q.mu.Lock()
	w, ok := q.workers[name]
	q.mu.Unlock()
	if !ok {
		return fmt.Errorf("no handler registered for job %q", name)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", name, err)
	}
	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	job := Job{
		ID:               uuid.NewString(),
		Name:             name,
		Payload:          raw,
		MaxAttempts:      attempts,
		RemoveOnComplete: opts.RemoveOnComplete,
		Status:           StatusPending,
		CreatedAt:        time.Now().UTC(),
	}
	q.mu.Lock()
	q.queued[job.ID] = struct{}{}
	q.mu.Unlock()

	if err := q.store.Save(ctx, job); err != nil {
		q.finish(job.ID)
		return fmt.Errorf("save job: %w", err)
	}

	select {
	case w.jobs <- job:
		q.metrics.enqueued.WithLabelValues(name).Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run restores pending jobs from the store, starts the workers and blocks
// until ctx is done and every worker has returned.
func (q *Queue) Run(ctx context.Context) error {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return fmt.Errorf("queue is already running")
	}
	q.running = true
	workers := make([]*worker, 0, len(q.workers))
	for _, w := range q.workers {
		workers = append(workers, w)
	}
	q.mu.Unlock()

	restored, err := q.leftovers(ctx)
	if err != nil {
		q.logger.Error("load pending jobs", zap.Error(err))
	}

	for _, w := range workers {
		for i := 0; i < w.concurrency; i++ {
			q.wg.Add(1)
			go q.work(ctx, w)
		}
		q.logger.Info("queue workers started", zap.String("job", w.name), zap.Int("concurrency", w.concurrency))
	}

	if len(restored) > 0 {
		q.logger.Info("restoring pending jobs", zap.Int("count", len(restored)))
	}
	for _, job := range restored {
		select {
		case q.workers[job.Name].jobs <- job:
		case <-ctx.Done():
		}
	}

	<-ctx.Done()
	q.wg.Wait()
	return ctx.Err()
}

// leftovers returns stored pending jobs that were not enqueued by this
// process, marking them as queued.
func (q *Queue) leftovers(ctx context.Context) ([]Job, error) {
	pending, err := q.store.Pending(ctx)
	if err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Job, 0, len(pending))
	for _, job := range pending {
		if _, seen := q.queued[job.ID]; seen {
			continue
		}
		if _, ok := q.workers[job.Name]; !ok {
			q.logger.Warn("skip pending job without handler", zap.String("job", job.Name), zap.String("job_id", job.ID))
			continue
		}
		q.queued[job.ID] = struct{}{}
		out = append(out, job)
	}
	return out, nil
}

func (q *Queue) work(ctx context.Context, w *worker) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-w.jobs:
			q.process(ctx, w, job)
		}
	}
}

func (q *Queue) process(ctx context.Context, w *worker, job Job) {
	job.Attempts++
	logger := q.logger.With(
		zap.String("job", job.Name),
		zap.String("job_id", job.ID),
		zap.Int("attempt", job.Attempts),
	)

	started := time.Now()
	err := call(ctx, w.handler, job.Payload)
	q.metrics.duration.WithLabelValues(job.Name).Observe(time.Since(started).Seconds())

	if err == nil {
		q.metrics.processed.WithLabelValues(job.Name, "completed").Inc()
		defer q.finish(job.ID)
		if job.RemoveOnComplete {
			if err := q.store.Delete(ctx, job.ID); err != nil {
				logger.Warn("delete completed job", zap.Error(err))
			}
			return
		}
		job.Status = StatusCompleted
		if err := q.store.Save(ctx, job); err != nil {
			logger.Warn("save completed job", zap.Error(err))
		}
		return
	}

	job.LastError = err.Error()
	if job.Attempts >= job.MaxAttempts {
		q.metrics.processed.WithLabelValues(job.Name, "failed").Inc()
		defer q.finish(job.ID)
		job.Status = StatusFailed
		if err := q.store.Save(ctx, job); err != nil {
			logger.Warn("save failed job", zap.Error(err))
		}
		logger.Error("job failed permanently", zap.Error(err))
		return
	}

	q.metrics.processed.WithLabelValues(job.Name, "retried").Inc()
	if err := q.store.Save(ctx, job); err != nil {
		logger.Warn("save retried job", zap.Error(err))
	}
	delay := q.backoff(job.Attempts)
	logger.Warn("job failed, retrying", zap.Duration("delay", delay), zap.Error(err))

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return
		}
		select {
		case w.jobs <- job:
		case <-ctx.Done():
		}
	}()
}

func (q *Queue) finish(id string) {
	q.mu.Lock()
	delete(q.queued, id)
	q.mu.Unlock()
}

func call(ctx context.Context, handler botcore.JobHandler, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return handler(ctx, payload)
}

// exponential doubles the delay from base up to ceiling. The delay is
// derived from the attempt number, so a job reloaded from the store resumes
// at the same step.
func exponential(base, ceiling time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		b := backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(base),
			backoff.WithMaxInterval(ceiling),
			backoff.WithMultiplier(2),
			backoff.WithRandomizationFactor(0),
			backoff.WithMaxElapsedTime(0),
		)
		d := b.NextBackOff()
		for i := 1; i < attempt; i++ {
			d = b.NextBackOff()
		}
		return min(d, ceiling)
	}
}
