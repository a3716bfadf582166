// Package shutdownqueue provides a process-wide LIFO queue of named cleanup
// tasks, drained once at the end of main:
//
//	shutdownqueue.Add("http server", srv.Shutdown)
//	...
//	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//	defer cancel()
//	err := shutdownqueue.Shutdown(ctx)
//
// Tasks run once, in reverse order of registration. Panics are recovered and
// reported as errors. Shutdown is idempotent and returns an aggregated error
// via errors.Join.
package shutdownqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Task is a shutdown function. It should honor ctx and return an error
// if it can't finish (or ctx is canceled).
type Task func(ctx context.Context) error

type namedTask struct {
	name string
	run  Task
}

type queue struct {
	mu     sync.Mutex
	tasks  []namedTask
	closed bool
}

var q = &queue{tasks: make([]namedTask, 0, 8)}

// Add registers a named task to be run on Shutdown, in LIFO order.
// If t is nil or shutdown has already started, Add does nothing.
func Add(name string, t Task) {
	if t == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.tasks = append(q.tasks, namedTask{name: name, run: t})
}

// AddCloser registers c.Close as a task. Handy for clients without a
// context-aware shutdown (DB pools, Kafka writers, Redis clients).
func AddCloser(name string, c interface{ Close() error }) {
	if c == nil {
		return
	}

	Add(name, func(context.Context) error { return c.Close() })
}

// Shutdown drains all registered tasks in LIFO order.
//
// If ctx is canceled mid-drain, Shutdown stops early and returns the context
// error joined with any task errors collected so far.
func Shutdown(ctx context.Context) error {
	q.mu.Lock()

	if q.closed && len(q.tasks) == 0 {
		q.mu.Unlock()

		return nil
	}

	q.closed = true
	tasks := q.tasks
	q.tasks = nil

	q.mu.Unlock()

	var errs []error

	for i := len(tasks) - 1; i >= 0; i-- {
		select {
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("shutdown canceled before %q: %w", tasks[i].name, ctx.Err()))

			return errors.Join(errs...)
		default:
		}

		err := runTask(ctx, tasks[i])
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func runTask(ctx context.Context, t namedTask) (err error) {
	start := time.Now()

	defer func() {
		r := recover()
		if r != nil {
			err = fmt.Errorf("panic in shutdown task %q: %v", t.name, r)
		}

		slog.Info("shutdown task finished",
			"task", t.name,
			"duration", time.Since(start),
			"error", err,
		)
	}()

	err = t.run(ctx)
	if err != nil {
		return fmt.Errorf("shutdown %s: %w", t.name, err)
	}

	return nil
}
