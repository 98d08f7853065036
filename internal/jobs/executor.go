package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrUnknownJobClass is returned when a delivery names a job class with no
// registered handler. Unknown classes never execute anything.
var ErrUnknownJobClass = errors.New("unknown job class")

// ErrMissingJobClass is returned when a delivered payload carries no
// job_class field.
var ErrMissingJobClass = errors.New("payload has no job_class")

// Executor maps job classes to handlers and runs them for delivered
// payloads. Safe for concurrent use.
type Executor struct {
	handlers map[string]HandlerFunc
	mu       sync.RWMutex
	log      zerolog.Logger
}

// NewExecutor creates an empty executor.
func NewExecutor(log zerolog.Logger) *Executor {
	return &Executor{
		handlers: make(map[string]HandlerFunc),
		log:      log.With().Str("component", "jobs").Logger(),
	}
}

// Register adds a handler for a job class.
// If the class already has a handler, it will be replaced.
func (e *Executor) Register(jobClass string, fn HandlerFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.handlers[jobClass] = fn
}

// Handles returns true if a handler is registered for the job class.
func (e *Executor) Handles(jobClass string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	_, exists := e.handlers[jobClass]
	return exists
}

// Classes returns all registered job classes, sorted.
func (e *Executor) Classes() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	classes := make([]string, 0, len(e.handlers))
	for class := range e.handlers {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	return classes
}

// Perform decodes the delivered payload mapping and runs the matching
// handler synchronously. Lookup failures are errors; nothing runs for them.
func (e *Executor) Perform(ctx context.Context, payload map[string]any) error {
	job := describe(payload)
	if job.JobClass == "" {
		return ErrMissingJobClass
	}

	e.mu.RLock()
	handler, ok := e.handlers[job.JobClass]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJobClass, job.JobClass)
	}

	e.log.Debug().
		Str("job_class", job.JobClass).
		Str("job_id", job.JobID).
		Msg("Executing job")

	start := time.Now()
	if err := handler(ctx, job); err != nil {
		return fmt.Errorf("job %s (%s) failed: %w", job.JobClass, job.JobID, err)
	}

	e.log.Debug().
		Str("job_class", job.JobClass).
		Str("job_id", job.JobID).
		Dur("duration_ms", time.Since(start)).
		Msg("Job completed")

	return nil
}

// describe extracts the typed description from a decoded payload mapping.
// Unknown fields are ignored, missing fields stay zero.
func describe(payload map[string]any) Description {
	var d Description
	if v, ok := payload["job_class"].(string); ok {
		d.JobClass = v
	}
	if v, ok := payload["job_id"].(string); ok {
		d.JobID = v
	}
	if v, ok := payload["queue_name"].(string); ok {
		d.QueueName = v
	}
	if v, ok := payload["arguments"].([]any); ok {
		d.Arguments = v
	}
	if v, ok := payload["enqueued_at"].(string); ok {
		d.EnqueuedAt = v
	}
	return d
}
