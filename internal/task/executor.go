// internal/task/executor.go
package task

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Executor owns one-shot delayed tasks.
// Each task runs on its own goroutine once its delay elapses and is removed
// from the executor when it returns. A running task is never interrupted.
type Executor struct {
	mu      sync.Mutex
	log     logrus.FieldLogger
	next    uint64
	pending map[uint64]*entry
	stopped bool
	wg      sync.WaitGroup
}

type entry struct {
	name    string
	timer   *time.Timer
	started bool
}

// NewExecutor creates an empty executor.
func NewExecutor(log logrus.FieldLogger) *Executor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Executor{
		log:     log,
		pending: make(map[uint64]*entry),
	}
}

// After schedules fn to run once after delay. It returns false if the
// executor has been stopped.
func (e *Executor) After(name string, delay time.Duration, fn func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return false
	}

	id := e.next
	e.next++
	ent := &entry{name: name}
	e.pending[id] = ent
	e.wg.Add(1)

	ent.timer = time.AfterFunc(delay, func() {
		e.mu.Lock()
		if e.stopped && !ent.started {
			// Stop won the race; it already released the wait slot.
			e.mu.Unlock()
			return
		}
		ent.started = true
		e.mu.Unlock()

		e.run(id, ent, fn)
	})

	e.log.WithFields(logrus.Fields{"task": name, "delay": delay}).Info("task scheduled")
	return true
}

func (e *Executor) run(id uint64, ent *entry, fn func()) {
	log := e.log.WithField("task", ent.name)
	start := time.Now()

	defer func() {
		e.mu.Lock()
		delete(e.pending, id)
		e.mu.Unlock()
		e.wg.Done()
		log.WithField("elapsed", time.Since(start)).Info("task finished")
	}()

	log.Info("task started")
	fn()
}

// Pending reports how many tasks have not finished yet, running or not.
func (e *Executor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Stop cancels every task whose delay has not elapsed. Tasks already
// running continue; use Wait to block until they finish.
func (e *Executor) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return
	}
	e.stopped = true

	for id, ent := range e.pending {
		if ent.started {
			continue
		}
		ent.timer.Stop()
		delete(e.pending, id)
		e.wg.Done()
		e.log.WithField("task", ent.name).Info("task cancelled before start")
	}
}

// Wait blocks until every scheduled task has finished or been cancelled.
func (e *Executor) Wait() {
	e.wg.Wait()
}
