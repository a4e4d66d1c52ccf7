package transfer

import (
	"time"

	"github.com/sdejongh/vrtnorris/pkg/models"
)

// JobStatus represents the state of a task inside the pool
type JobStatus string

const (
	// JobPending indicates the task is queued
	JobPending JobStatus = "pending"
	// JobProcessing indicates a worker is running the task
	JobProcessing JobStatus = "processing"
	// JobCompleted indicates the task succeeded, possibly after retries
	JobCompleted JobStatus = "completed"
	// JobFailed indicates the task exhausted its retries
	JobFailed JobStatus = "failed"
)

// job wraps an immutable TransferTask with the bookkeeping of one pool run
type job struct {
	task models.TransferTask

	status   JobStatus
	err      error
	attempts int
	workerID int
	duration time.Duration
}

func newJob(task models.TransferTask) *job {
	return &job{task: task, status: JobPending}
}

// MarkProcessing marks the job as picked up by a worker
func (j *job) MarkProcessing(workerID int) {
	j.status = JobProcessing
	j.workerID = workerID
}

// MarkCompleted marks the job as successful
func (j *job) MarkCompleted(attempts int, duration time.Duration) {
	j.status = JobCompleted
	j.attempts = attempts
	j.duration = duration
}

// MarkError marks the job as failed with its last error
func (j *job) MarkError(err error, attempts int, duration time.Duration) {
	j.status = JobFailed
	j.err = err
	j.attempts = attempts
	j.duration = duration
}
