package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrUnknownTask is returned when a trigger names a task that was never
// registered. Unknown names never execute anything.
var ErrUnknownTask = errors.New("unknown task")

// Registry holds all registered tasks and provides lookup by name.
type Registry struct {
	tasks map[string]Task
	mu    sync.RWMutex
	log   zerolog.Logger
}

// NewRegistry creates a new task registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		tasks: make(map[string]Task),
		log:   log.With().Str("component", "tasks").Logger(),
	}
}

// Register adds a task to the registry.
// If a task with the same name already exists, it will be replaced.
func (r *Registry) Register(t Task) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks[t.Name()] = t
}

// Get returns a task by name.
func (r *Registry) Get(name string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[name]
	return t, ok
}

// Has returns true if a task with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.tasks[name]
	return exists
}

// Names returns all registered task names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tasks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tasks)
}

// RunTask resolves name and runs the task synchronously. A name that does
// not resolve is an error and nothing is executed.
func (r *Registry) RunTask(ctx context.Context, name string) error {
	t, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTask, name)
	}

	r.log.Debug().Str("task", name).Msg("Running periodic task")

	start := time.Now()
	if err := t.Run(ctx); err != nil {
		return fmt.Errorf("task %q failed: %w", name, err)
	}

	r.log.Debug().
		Str("task", name).
		Dur("duration_ms", time.Since(start)).
		Msg("Periodic task completed")
	return nil
}
