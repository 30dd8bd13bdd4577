package worker

import (
	"context"
	"time"
)

// TaskFunc is the body of a supervised task
type TaskFunc func(ctx context.Context) error

// Task is a handle on one supervised goroutine
type Task struct {
	ID        string
	StartedAt time.Time

	done chan struct{}
	err  error
}

func newTask(id string) *Task {
	return &Task{
		ID:        id,
		StartedAt: time.Now(),
		done:      make(chan struct{}),
	}
}

// Done is closed when the task returns
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Running reports whether the task has not returned yet
func (t *Task) Running() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// Err returns the task result. It is nil until Done is closed.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task returns or ctx ends
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
