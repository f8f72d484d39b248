package beeq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// Status is a job's position in the lifecycle state machine.
type Status string

const (
	// StatusCreated is the in-memory state before admission.
	StatusCreated Status = "created"

	// StatusWaiting means the job is durably recorded and queued for dispatch.
	StatusWaiting Status = "waiting"

	// StatusActive means the job has been handed to exactly one handler.
	StatusActive Status = "active"

	// StatusSucceeded is the terminal state for a handler that returned nil.
	StatusSucceeded Status = "succeeded"

	// StatusFailed is the terminal state for a handler that returned an
	// error or panicked.
	StatusFailed Status = "failed"
)

// Job is a unit of work owned by a Queue. The payload type T must be
// JSON-serializable; the queue never inspects it.
type Job[T any] struct {
	// ID uniquely identifies the job within its queue's jobs hash. NewJob
	// assigns a UUID; set it before Save to use an explicit identity for
	// idempotent re-submission.
	ID string

	// Status tracks the job through created -> waiting -> active ->
	// succeeded/failed. Mutated locally; the durable copy lives in the
	// jobs hash.
	Status Status

	// Data is the payload handed to the handler.
	Data T

	// queue is borrowed from the owning Queue for the duration of any
	// operation, never owned.
	queue *Queue[T]
}

// jobRecord is the wire form stored in the jobs hash.
type jobRecord struct {
	Data   json.RawMessage `json:"data"`
	Status Status          `json:"status"`
}

// Save serializes the job and admits it into the waiting state. The hash
// entry and the waiting-list entry are written atomically by a server-side
// script.
//
// Returns the admitted id, or an empty id with a nil error when a job with
// the same id already exists. The duplicate case is a deliberate
// de-duplication guard, not a failure: the stored payload is left untouched.
func (j *Job[T]) Save(ctx context.Context) (string, error) {
	q := j.queue
	ctx, span := q.tel.startSpan(ctx, "beeq.save",
		attribute.String("queue.name", q.name),
		attribute.String("job.id", j.ID),
	)

	// The stored snapshot is already in the waiting state; the in-memory
	// status only follows once admission is confirmed.
	payload, err := j.marshalRecord(StatusWaiting)
	if err != nil {
		endSpan(span, err)
		return "", err
	}

	id, err := admitScript.Run(ctx, q.client,
		[]string{q.keys.jobs, q.keys.waiting},
		j.ID, payload,
	).Text()
	if err == redis.Nil {
		// Admission declined: the id is already present.
		endSpan(span, nil)
		return "", nil
	}
	if err != nil {
		endSpan(span, err)
		return "", fmt.Errorf("failed to admit job %s: %w", j.ID, err)
	}

	j.Status = StatusWaiting
	endSpan(span, nil)
	return id, nil
}

// marshalRecord serializes the job's {data, status} envelope with the given
// status.
func (j *Job[T]) marshalRecord(status Status) (string, error) {
	data, err := json.Marshal(j.Data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job %s payload: %w", j.ID, err)
	}
	record, err := json.Marshal(jobRecord{Data: data, Status: status})
	if err != nil {
		return "", fmt.Errorf("failed to marshal job %s record: %w", j.ID, err)
	}
	return string(record), nil
}

// NewJob constructs a job owned by this queue in the created state. A UUID is
// assigned when the caller does not overwrite ID before Save; the client is
// the single authority for id generation, admission only confirms or rejects.
func (q *Queue[T]) NewJob(data T) *Job[T] {
	return &Job[T]{
		ID:     uuid.New().String(),
		Status: StatusCreated,
		Data:   data,
		queue:  q,
	}
}

// GetJob reads the stored record for id and rehydrates it into a Job
// preserving the stored status.
//
// A missing id yields (nil, nil): a valid outcome when the job was
// concurrently removed, not an error.
func (q *Queue[T]) GetJob(ctx context.Context, id string) (*Job[T], error) {
	raw, err := q.client.HGet(ctx, q.keys.jobs, id).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}

	var record jobRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", id, err)
	}

	job := &Job[T]{
		ID:     id,
		Status: record.Status,
		queue:  q,
	}
	if len(record.Data) > 0 {
		if err := json.Unmarshal(record.Data, &job.Data); err != nil {
			return nil, fmt.Errorf("failed to decode job %s payload: %w", id, err)
		}
	}
	return job, nil
}
