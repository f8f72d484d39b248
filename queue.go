package beeq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// Handler processes one job. A nil return marks the job succeeded; an error
// return (or a panic, which is recovered) marks it failed. The context is the
// one passed to Process.
type Handler[T any] func(ctx context.Context, job *Job[T]) error

// JobCounts reports the queue's per-state population.
type JobCounts struct {
	Waiting   int64
	Active    int64
	Succeeded int64
	Failed    int64
}

// Queue is a handle on one named job queue. All durable state lives in
// Redis; a Queue carries only configuration, the borrowed client, and the
// local dispatch-loop bookkeeping, so any number of Queue values across any
// number of processes may serve the same name.
type Queue[T any] struct {
	name   string
	client *redis.Client
	keys   keySet
	opts   Options
	logger *slog.Logger
	events *emitter
	tel    *telemetry

	mu         sync.Mutex
	processing bool
	closed     bool
	cancel     context.CancelFunc
	workers    sync.WaitGroup
}

// NewQueue constructs a queue named name over the given Redis client. The
// client is shared, not owned: connection lifecycle stays with the caller.
func NewQueue[T any](name string, client *redis.Client, opts Options) (*Queue[T], error) {
	if name == "" {
		return nil, fmt.Errorf("queue name is required")
	}
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	opts = opts.withDefaults()
	tel, err := newTelemetry(opts.Tracer, opts.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to init telemetry: %w", err)
	}

	return &Queue[T]{
		name:   name,
		client: client,
		keys:   newKeySet(opts.Prefix, name),
		opts:   opts,
		logger: opts.Logger.With("queue", name),
		events: newEmitter(),
		tel:    tel,
	}, nil
}

// Name returns the queue's logical name.
func (q *Queue[T]) Name() string {
	return q.name
}

// On registers a handler for a lifecycle event. Registration order is
// preserved per event.
func (q *Queue[T]) On(event Event, handler EventHandler) {
	q.events.on(event, handler)
}

// Add constructs a job with a generated id and admits it. Returns the
// admitted id, or an empty id when a job with the same identity already
// exists (unreachable with generated ids; relevant for NewJob + Save).
func (q *Queue[T]) Add(ctx context.Context, data T) (string, error) {
	return q.NewJob(data).Save(ctx)
}

// Process starts the dispatch loop: concurrency goroutines that each block on
// the waiting list, execute the handler, and run completion bookkeeping. The
// call returns once the loop is started; cancel ctx or call Close to stop it.
//
// Each dequeue attempt is a BRPOPLPUSH bounded by PollInterval, so the
// waiting-to-active move is atomic and a returned id can never be seen by a
// second consumer, in this process or any other.
func (q *Queue[T]) Process(ctx context.Context, concurrency int, handler Handler[T]) error {
	if concurrency < 1 {
		return ErrInvalidConcurrency
	}
	if handler == nil {
		return fmt.Errorf("handler is required")
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if q.processing {
		q.mu.Unlock()
		return ErrAlreadyProcessing
	}
	q.processing = true
	loopCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	for i := 0; i < concurrency; i++ {
		q.workers.Add(1)
		go func(workerNum int) {
			defer q.workers.Done()
			q.dispatchLoop(loopCtx, workerNum, handler)
		}(i)
	}
	q.mu.Unlock()

	q.logger.Info("processing started", "concurrency", concurrency)
	return nil
}

// dispatchLoop is the body of one concurrency slot. Errors are contained
// here: a failing iteration logs and continues, it never halts the loop.
func (q *Queue[T]) dispatchLoop(ctx context.Context, workerNum int, handler Handler[T]) {
	logger := q.logger.With("worker_num", workerNum)
	logger.Debug("dispatch loop started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("dispatch loop stopped", "reason", "context_cancelled")
			return
		default:
		}

		id, err := q.client.BRPopLPush(ctx, q.keys.waiting, q.keys.active, q.opts.PollInterval).Result()
		if err == redis.Nil {
			// Poll timeout with nothing waiting; loop around to
			// re-check the context.
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("dispatch loop stopped", "reason", "context_error")
				return
			}
			logger.Error("failed to dequeue", "error", err)
			// Back off so a dead store does not spin the loop.
			select {
			case <-ctx.Done():
				return
			case <-time.After(q.opts.PollInterval):
			}
			continue
		}

		q.runJob(ctx, id, handler, logger)
	}
}

// runJob loads, executes, and finishes one dequeued job id.
func (q *Queue[T]) runJob(ctx context.Context, id string, handler Handler[T], logger *slog.Logger) {
	ctx, span := q.tel.startSpan(ctx, "beeq.process",
		attribute.String("queue.name", q.name),
		attribute.String("job.id", id),
	)

	job, err := q.GetJob(ctx, id)
	if err != nil {
		// The id stays in the active list; RequeueOrphans will recover
		// it if the record still exists.
		logger.Error("failed to load job", "job_id", id, "error", err)
		endSpan(span, err)
		return
	}
	if job == nil {
		// Removed between pop and load: already handled elsewhere.
		// Drop the stale active entry and move on.
		logger.Warn("job record missing, skipping", "job_id", id)
		if err := q.client.LRem(ctx, q.keys.active, 0, id).Err(); err != nil {
			logger.Error("failed to drop stale active entry", "job_id", id, "error", err)
		}
		endSpan(span, nil)
		return
	}

	job.Status = StatusActive
	started := time.Now()
	execErr := q.invokeHandler(ctx, job, handler)
	elapsed := time.Since(started)

	// Bookkeeping must commit even when shutdown cancelled the dispatch
	// context mid-handler, or a drained job would be redelivered.
	if err := q.finishJob(context.WithoutCancel(ctx), job, execErr, elapsed); err != nil {
		logger.Error("failed to finish job", "job_id", id, "error", err)
		endSpan(span, err)
		return
	}

	if span != nil {
		span.SetAttributes(attribute.String("job.status", string(job.Status)))
	}
	endSpan(span, execErr)
}

// invokeHandler runs the handler, converting a panic into an ordinary
// execution failure so the job still reaches a terminal state.
func (q *Queue[T]) invokeHandler(ctx context.Context, job *Job[T], handler Handler[T]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, job)
}

// finishJob runs completion bookkeeping for exactly one terminal transition,
// as a single MULTI/EXEC batch: remove the id from active, then either retain
// the terminal record (rewrite the hash entry, index the id in the status
// set) or purge the hash entry, per retention policy. The matching event
// fires only after the transaction commits.
func (q *Queue[T]) finishJob(ctx context.Context, job *Job[T], execErr error, elapsed time.Duration) error {
	status, event, remove := StatusSucceeded, EventSucceeded, q.opts.RemoveOnSuccess
	retainSet := q.keys.succeeded
	if execErr != nil {
		status, event, remove = StatusFailed, EventFailed, q.opts.RemoveOnFailure
		retainSet = q.keys.failed
	}
	job.Status = status

	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, q.keys.active, 0, job.ID)
	if remove {
		pipe.HDel(ctx, q.keys.jobs, job.ID)
	} else {
		payload, err := job.marshalRecord(status)
		if err != nil {
			return err
		}
		pipe.HSet(ctx, q.keys.jobs, job.ID, payload)
		pipe.SAdd(ctx, retainSet, job.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to finish job %s: %w", job.ID, err)
	}

	q.tel.recordCompletion(ctx, q.name, status, elapsed)
	q.events.emit(event, job.ID, execErr)
	return nil
}

// RemoveJob atomically purges all bookkeeping for id, unless the job sits in
// a retained terminal state, in which case nothing is touched. Returns
// whether a purge happened.
func (q *Queue[T]) RemoveJob(ctx context.Context, id string) (bool, error) {
	removed, err := removeScript.Run(ctx, q.client,
		[]string{q.keys.succeeded, q.keys.failed, q.keys.waiting, q.keys.active, q.keys.jobs},
		id,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to remove job %s: %w", id, err)
	}
	return removed == 1, nil
}

// Destroy deletes every key belonging to the queue's namespace. Best-effort
// bulk delete with no partial-failure recovery; a subsequent Add starts from
// a clean state.
func (q *Queue[T]) Destroy(ctx context.Context) error {
	err := q.client.Del(ctx,
		q.keys.jobs, q.keys.waiting, q.keys.active, q.keys.succeeded, q.keys.failed,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to destroy queue %s: %w", q.name, err)
	}
	return nil
}

// Counts reads the per-state population in one pipelined round trip.
func (q *Queue[T]) Counts(ctx context.Context) (JobCounts, error) {
	pipe := q.client.Pipeline()
	waiting := pipe.LLen(ctx, q.keys.waiting)
	active := pipe.LLen(ctx, q.keys.active)
	succeeded := pipe.SCard(ctx, q.keys.succeeded)
	failed := pipe.SCard(ctx, q.keys.failed)
	if _, err := pipe.Exec(ctx); err != nil {
		return JobCounts{}, fmt.Errorf("failed to count jobs: %w", err)
	}

	return JobCounts{
		Waiting:   waiting.Val(),
		Active:    active.Val(),
		Succeeded: succeeded.Val(),
		Failed:    failed.Val(),
	}, nil
}

// RequeueOrphans moves every id left in the active list back to waiting and
// returns how many were moved. Run it on startup, before Process, to recover
// jobs stranded by a crash between dequeue and completion. It must not run
// while handlers are executing: an in-flight job is indistinguishable from an
// orphan.
func (q *Queue[T]) RequeueOrphans(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.client.RPopLPush(ctx, q.keys.active, q.keys.waiting).Err()
		if err == redis.Nil {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("failed to requeue orphans: %w", err)
		}
		moved++
	}
}

// Ping verifies store connectivity.
func (q *Queue[T]) Ping(ctx context.Context) error {
	if err := q.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping store: %w", err)
	}
	return nil
}

// Close stops the dispatch loop and waits up to timeout for in-flight
// handlers to finish. Safe to call more than once. Returns ErrCloseTimeout
// when the drain deadline passes; the workers keep draining in the background
// in that case.
func (q *Queue[T]) Close(timeout time.Duration) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	cancel := q.cancel
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		q.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("queue closed")
		return nil
	case <-time.After(timeout):
		q.logger.Warn("close timeout exceeded", "timeout", timeout)
		return ErrCloseTimeout
	}
}
