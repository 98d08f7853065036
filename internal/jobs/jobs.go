// Package jobs dispatches verified job messages to registered handlers.
// It is deliberately small: a job class names a handler, the handler runs
// once per delivery. Retry and scheduling policy live with the queue, not
// here.
package jobs

import "context"

// Description is the decoded job payload delivered by the queue daemon.
// Field names follow the wire mapping produced by the enqueuing side.
type Description struct {
	JobClass   string `json:"job_class"`
	JobID      string `json:"job_id,omitempty"`
	QueueName  string `json:"queue_name,omitempty"`
	Arguments  []any  `json:"arguments,omitempty"`
	EnqueuedAt string `json:"enqueued_at,omitempty"`
}

// HandlerFunc executes one delivered job.
type HandlerFunc func(ctx context.Context, job Description) error
