package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// ErrStopped is returned when a task is submitted after Stop
var ErrStopped = errors.New("supervisor stopped")

// Supervisor runs one goroutine per task and keeps a handle on each running
// task so callers can tell running jobs from finished ones and shut down
// cleanly.
type Supervisor struct {
	mu    sync.Mutex
	tasks map[string]*Task

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSupervisor creates a new supervisor
func NewSupervisor() *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())

	return &Supervisor{
		tasks:  make(map[string]*Task),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Go starts fn in its own goroutine under id
func (s *Supervisor) Go(id string, fn TaskFunc) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return nil, ErrStopped
	}
	if _, exists := s.tasks[id]; exists {
		return nil, fmt.Errorf("task %s already running", id)
	}

	task := newTask(id)
	s.tasks[id] = task
	s.wg.Add(1)

	go s.run(task, fn)

	slog.Debug("Task started", "task_id", id)
	return task, nil
}

// run executes a task, turning a panic into a task error
func (s *Supervisor) run(task *Task, fn TaskFunc) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			task.err = fmt.Errorf("task panicked: %v", r)
			slog.Error("Task panic recovered",
				"task_id", task.ID,
				"error", r,
				"stack_trace", string(debug.Stack()),
			)
		}

		s.mu.Lock()
		delete(s.tasks, task.ID)
		s.mu.Unlock()

		close(task.done)
	}()

	task.err = fn(s.ctx)
}

// Lookup returns the handle of a running task
func (s *Supervisor) Lookup(id string) (*Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	return task, ok
}

// Active returns the number of running tasks
func (s *Supervisor) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stop cancels the task context and waits for running tasks until ctx ends
func (s *Supervisor) Stop(ctx context.Context) error {
	slog.Info("Stopping task supervisor", "active_tasks", s.Active())

	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("All tasks stopped")
		return nil
	case <-ctx.Done():
		slog.Warn("Timeout waiting for tasks to stop", "active_tasks", s.Active())
		return ctx.Err()
	}
}
