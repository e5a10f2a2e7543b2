package graph

import (
	"context"
	"errors"
)

// Task is the future of an asynchronous session operation. Its effects
// on the session are applied before Done is closed.
type Task struct {
	done chan struct{}
	err  error
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

func doneTask(err error) *Task {
	t := newTask()
	t.finish(err)
	return t
}

func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
}

// Done is closed once the task has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the task's error. It is only meaningful after Done.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// join returns a task that finishes when all of tasks have, carrying
// their joined errors.
func join(tasks ...*Task) *Task {
	switch len(tasks) {
	case 0:
		return doneTask(nil)
	case 1:
		return tasks[0]
	}
	out := newTask()
	go func() {
		errs := make([]error, 0, len(tasks))
		for _, t := range tasks {
			<-t.done
			errs = append(errs, t.err)
		}
		out.finish(errors.Join(errs...))
	}()
	return out
}
