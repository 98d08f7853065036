// Package tasks holds the periodic tasks the queue daemon may trigger and
// resolves trigger names to runnable units.
package tasks

import "context"

// Task represents a named periodic task
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

type funcTask struct {
	name string
	fn   func(ctx context.Context) error
}

func (t funcTask) Name() string { return t.name }

func (t funcTask) Run(ctx context.Context) error { return t.fn(ctx) }

// Func wraps a plain function as a Task.
func Func(name string, fn func(ctx context.Context) error) Task {
	return funcTask{name: name, fn: fn}
}
