// Package beeq implements a Redis-backed job queue with FIFO delivery,
// bounded concurrency, and at-least-once processing semantics.
//
// A Queue is a lightweight handle over a shared Redis connection. Producers
// admit jobs with Add (or NewJob followed by Save), and consumers run Process
// with a handler and a concurrency limit. Correctness does not depend on any
// in-process locking: admission and removal run as server-side Lua scripts,
// the waiting-to-active handoff is a single blocking BRPOPLPUSH, and
// completion bookkeeping executes as one MULTI/EXEC transaction. Multiple
// processes may run Process against the same queue name; each job is
// delivered to exactly one of them.
//
// # Core Components
//
// Queue: Orchestrates admission, the concurrency-bounded dispatch loop,
// completion bookkeeping, and lifecycle events. Parameterized over the
// payload type.
//
// Job: A unit of work with an identity, a status, and a typed payload.
// Payloads are serialized as JSON and are otherwise opaque to the queue.
//
// Events: Observers register with On for "succeeded" and "failed"
// notifications, fired exactly once per terminal transition.
//
// # Job Lifecycle
//
// A job moves through a fixed state machine:
//
//	created -> waiting -> active -> succeeded | failed
//
// No transition skips a state and the terminal states are final. There is no
// automatic redelivery: a job that was dequeued but never completed (for
// example because the process crashed) stays in the active list until
// RequeueOrphans moves it back to waiting.
//
// # Redis Key Schema
//
// All keys for a queue live under a common prefix ("bq" by default):
//
//   - bq:<name>:jobs - hash of job id to serialized {data, status}
//   - bq:<name>:waiting - list of job ids awaiting dispatch (FIFO)
//   - bq:<name>:active - list of job ids checked out to a handler
//   - bq:<name>:succeeded - set of retained successful job ids
//   - bq:<name>:failed - set of retained failed job ids
//
// A job id appears in at most one of waiting/active at a time, and in at most
// one of succeeded/failed once terminal. The jobs hash entry for a terminal
// job exists iff the matching retention flag kept it.
//
// # Usage
//
// Creating a queue and admitting work:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	q, err := beeq.NewQueue[EmailPayload]("email", client, beeq.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	id, err := q.Add(ctx, EmailPayload{To: "ops@example.com"})
//
// Processing with three concurrent handlers:
//
//	q.On(beeq.EventSucceeded, func(jobID string, _ error) {
//		fmt.Println("done:", jobID)
//	})
//	err = q.Process(ctx, 3, func(ctx context.Context, job *beeq.Job[EmailPayload]) error {
//		return send(ctx, job.Data)
//	})
//
// Process returns as soon as the dispatch loop is started. Cancel the context
// or call Close to stop it.
//
// # Error Handling
//
// Duplicate admission and job-not-found are not errors: Save returns an empty
// id for a duplicate, and GetJob returns a nil job when the id is absent.
// Store failures inside the dispatch loop are logged and contained so a
// failing iteration cannot halt the scheduler. Handler errors and panics are
// captured and routed through completion bookkeeping so every dispatched job
// reaches a terminal state.
//
// # Thread Safety
//
// Queue is safe for concurrent use by multiple goroutines. The Redis client
// is borrowed, never owned; its lifecycle belongs to the caller.
package beeq
