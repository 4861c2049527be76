// Package eventloop schedules asynchronous work against a sobek runtime.
//
// Script never suspends; only the event loop does. Any native operation
// that script should await is registered as a task: the loop hands script a
// pending promise immediately, runs the task on its own goroutine, and
// settles the promise when the task's completion message arrives. All
// engine access - script execution and promise settlement alike - happens
// on the goroutine driving Run.
package eventloop

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/grafana/sobek"
	"github.com/sirupsen/logrus"
)

// TaskID identifies one in-flight task. IDs are unique for the lifetime of
// the process; wraparound is not a practical concern.
type TaskID uint32

var nextTaskID atomic.Uint32

func newTaskID() TaskID {
	return TaskID(nextTaskID.Add(1))
}

// TaskFunc is the native half of a task. It runs on its own goroutine, may
// block, and reports how the task's promise should settle.
type TaskFunc func() Outcome

type taskMessage struct {
	id      TaskID
	outcome Outcome
}

// pendingTask pins the promise's resolver functions until the completion
// message for the task is delivered.
type pendingTask struct {
	resolve func(result interface{})
	reject  func(reason interface{})
}

// EventLoop owns the pending task table and the completion channel. There
// is exactly one consumer (Run) and arbitrarily many producers (the task
// goroutines).
type EventLoop struct {
	rt     *sobek.Runtime
	logger logrus.FieldLogger

	completions chan taskMessage

	// done is closed when Run stops consuming completions, so that task
	// goroutines blocked on the bounded channel can give up and exit.
	done     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	pending map[TaskID]pendingTask
}

// New returns an event loop bound to rt. queueSize bounds the completion
// channel; zero or negative picks a sane default.
func New(rt *sobek.Runtime, logger logrus.FieldLogger, queueSize int) *EventLoop {
	if queueSize <= 0 {
		queueSize = 100
	}
	return &EventLoop{
		rt:          rt,
		logger:      logger,
		completions: make(chan taskMessage, queueSize),
		done:        make(chan struct{}),
		pending:     make(map[TaskID]pendingTask),
	}
}

// NewTask registers fn as an asynchronous task and returns the promise that
// will settle with its outcome. Must be called on the loop goroutine (it
// creates engine values); the returned promise is uniquely bound to fn.
func (e *EventLoop) NewTask(fn TaskFunc) *sobek.Promise {
	promise, resolve, reject := e.rt.NewPromise()
	id := newTaskID()

	e.mu.Lock()
	e.pending[id] = pendingTask{resolve: resolve, reject: reject}
	e.mu.Unlock()

	go func() {
		outcome := runTask(fn)
		select {
		case e.completions <- taskMessage{id: id, outcome: outcome}:
		case <-e.done:
			// The loop stopped consuming; the completion is dropped and
			// the promise stays pending.
		}
	}()

	return promise
}

// runTask invokes fn, converting a panic into a rejection so that a buggy
// task surfaces to script instead of hanging its promise forever.
func runTask(fn TaskFunc) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Reject(StringValue([]byte(fmt.Sprintf("task panicked: %v", r))))
		}
	}()
	return fn()
}

// Run drives the loop until every pending task has settled or ctx is done.
// It is the single consumer of the completion channel and must run on the
// same goroutine that executes script.
func (e *EventLoop) Run(ctx context.Context) error {
	for {
		if e.pendingCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			e.stop()
			return ctx.Err()
		case msg := <-e.completions:
			e.settle(msg)
		}
	}
}

// stop tells producers the loop is no longer consuming. Without it, a task
// goroutine whose send doesn't fit the bounded channel would block forever
// once Run has bailed out.
func (e *EventLoop) stop() {
	e.stopOnce.Do(func() { close(e.done) })
}

// settle removes the pending entry and invokes the matching resolver arm.
// Calling the resolver on the loop goroutine, with no script frames live,
// makes the engine run the promise's reactions (and any microtasks they
// queue) to completion before the call returns - so continuations of this
// settlement are done before the next message is dequeued.
func (e *EventLoop) settle(msg taskMessage) {
	e.mu.Lock()
	task, ok := e.pending[msg.id]
	if ok {
		delete(e.pending, msg.id)
	}
	e.mu.Unlock()

	if !ok {
		// Can only happen on an internal bookkeeping bug; don't crash the
		// loop over it.
		e.logger.WithField("task_id", msg.id).Debug("dropping completion for unknown task")
		return
	}

	value := msg.outcome.value.toJS(e.rt)
	if msg.outcome.rejected {
		task.reject(value)
	} else {
		task.resolve(value)
	}
}

func (e *EventLoop) pendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}
