package beeq

import "errors"

// Sentinel errors for common queue error conditions.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrInvalidConcurrency indicates Process was called with a concurrency
	// that is not a positive integer.
	ErrInvalidConcurrency = errors.New("concurrency must be a positive integer")

	// ErrAlreadyProcessing indicates Process was called on a queue whose
	// dispatch loop is already running.
	ErrAlreadyProcessing = errors.New("queue is already processing")

	// ErrQueueClosed indicates an operation was attempted on a closed queue.
	ErrQueueClosed = errors.New("queue is closed")

	// ErrCloseTimeout indicates Close gave up waiting for in-flight handlers
	// to finish. The workers keep draining in the background.
	ErrCloseTimeout = errors.New("timed out waiting for handlers to finish")
)

// Note: duplicate admission and job-not-found are deliberately NOT errors.
// Save reports a duplicate with an empty id and GetJob reports a missing job
// with a nil Job, both alongside a nil error.
