package pluto

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// getPollInterval is the bounded wait task.Get uses internally so the
// caller keeps observing GC safepoint requests while blocked (spec §5
// "Timeouts": "task.get uses a 10 ms condvar timeout internally").
const getPollInterval = 10 * time.Millisecond

// taskPayload is the synchronization block a Task cell owns, per spec
// §3.1's Task layout ([closure][result][error][done][sync_ptr][detached]
// [cancelled]).
type taskPayload struct {
	mu   sync.Mutex
	cond *sync.Cond

	done      bool
	result    Value
	err       error
	cancelled bool
	detached  bool
}

func newTaskPayload() *taskPayload {
	p := &taskPayload{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// slots is the tracer entry point for a Task cell: only the result value
// (if it holds a cell reference) is traced; the error and closure are not
// managed-cell graph members in this port.
func (p *taskPayload) slots() []Value {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.result.Ref != nil {
		return []Value{p.result}
	}
	return nil
}

// close releases the synchronization block. Go's GC reclaims the
// sync.Mutex/sync.Cond once dereferenced; this exists so sweep has an
// explicit, spec-mirroring finalization step (§4.1 step 5) rather than
// relying on finalizeCell's caller to know Task internals.
func (p *taskPayload) close() {
	p.mu.Lock()
	p.result = Value{}
	p.mu.Unlock()
}

// TaskHandle is the user-facing reference to a spawned task, wrapping the
// GC cell and its synchronization block. ID gives deadlock/trace
// diagnostics (spec §6.4) a stable label independent of the cell's address.
type TaskHandle struct {
	ID      uuid.UUID
	cell    *Cell
	payload *taskPayload
	mutator *Mutator // the child mutator executing the closure
}

// ErrTaskCancelled is raised by Get when a cancelled task finished with
// neither a result nor an error (spec §4.4).
var ErrTaskCancelled = newSentinel("pluto: task cancelled")

// TaskSpawn allocates a task handle and starts it on a new goroutine,
// mirroring the production entry trampoline of spec §4.4: register stack,
// run closure, capture result/error, signal done, deregister, decrement
// active count. caller is the mutator requesting the spawn — its pushed
// root set is unaffected; the new task gets its own Mutator.
func (h *Heap) TaskSpawn(caller *Mutator, closure func(child *Mutator) (Value, error)) *TaskHandle {
	cell := h.alloc(caller, TagTask, 56, 0)
	payload := newTaskPayload()
	cell.task = payload
	handle := &TaskHandle{ID: uuid.New(), cell: cell, payload: payload}

	finish := func(child *Mutator, result Value, err error) {
		payload.mu.Lock()
		payload.result, payload.err, payload.done = result, err, true
		detached := payload.detached
		payload.cond.Broadcast()
		payload.mu.Unlock()

		if detached && err != nil {
			// spec §7: "detached-task errors are printed to stderr and then
			// swallowed" — never propagated, process continues.
			reportDetachedError(err)
		}
	}

	if caller != nil && caller.fiber != nil {
		// Under the test scheduler a spawned task is itself a fiber, so
		// its interleaving with the caller and siblings is under the
		// same deterministic/DPOR control (spec §4.3: tasks and channel
		// operations share one schedule).
		f := caller.fiber.sched.Spawn(func(child *Mutator) (Value, error) {
			result, err := closure(child)
			finish(child, result, err)
			return result, err
		})
		handle.mutator = f.mutator
		f.mutator.setCurrentTask(handle)
		return handle
	}

	child := NewMutator()
	handle.mutator = child
	child.setCurrentTask(handle)

	h.RegisterMutator(child)
	h.activeTasks.Add(1)

	go func() {
		defer h.DeregisterMutator(child)
		defer h.activeTasks.Add(-1)

		result, err := closure(child)
		finish(child, result, err)
	}()

	return handle
}

// reportDetachedError is the stderr sink for spec §8 scenario 6; overridable
// by runtime.go so it can route through the structured logger instead.
var reportDetachedError = func(err error) {
	defaultDetachedErrorSink(err)
}

// TaskGet waits for the task to finish and returns its result, copying any
// error into the caller's error slot rather than raising across the task
// boundary (spec §7: "task.get() on a task that ended in error copies the
// error into the caller's slot").
func (h *Heap) TaskGet(caller *Mutator, t *TaskHandle) (Value, error) {
	if caller != nil && caller.fiber != nil {
		return fiberTaskGet(caller.fiber, t)
	}
	p := t.payload
	p.mu.Lock()
	for !p.done {
		p.mu.Unlock()
		h.Safepoint(caller)
		p.mu.Lock()
		if p.done {
			break
		}
		waitWithTimeout(p, getPollInterval)
	}
	result, err, cancelled := p.result, p.err, p.cancelled
	p.mu.Unlock()

	if cancelled && result.Ref == nil && result.Prim == 0 && err == nil {
		if caller != nil {
			caller.RaiseError(ErrTaskCancelled)
		}
		return Value{}, ErrTaskCancelled
	}
	if err != nil && caller != nil {
		caller.RaiseError(err)
	}
	return result, err
}

// waitWithTimeout wakes p.cond.Wait() after d even with no Broadcast, so
// TaskGet's loop can re-check safepoints; sync.Cond has no native timeout
// so this spins a helper goroutine per call, same approach spec's own
// "short bounded timeout" condvar wait implies at the C level.
func waitWithTimeout(p *taskPayload, d time.Duration) {
	timer := time.AfterFunc(d, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	p.cond.Wait()
	timer.Stop()
}

// TaskDetach marks the task detached; idempotent (spec §8: "task.detach(t)
// called twice: equivalent to once").
func (h *Heap) TaskDetach(t *TaskHandle) {
	p := t.payload
	p.mu.Lock()
	wasDone, err, wasDetached := p.done, p.err, p.detached
	p.detached = true
	p.mu.Unlock()
	if !wasDetached && wasDone && err != nil {
		reportDetachedError(err)
	}
}

// TaskCancel sets the sticky cancelled flag and wakes any waiter so it can
// re-check. Cancellation is advisory: spec §4.4/§5 only raises
// TaskCancelled when the task wakes from a channel wait or finishes with
// no result/error.
func (h *Heap) TaskCancel(t *TaskHandle) {
	p := t.payload
	p.mu.Lock()
	p.cancelled = true
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Cancelled reports the sticky cancellation flag.
func (t *TaskHandle) Cancelled() bool {
	t.payload.mu.Lock()
	defer t.payload.mu.Unlock()
	return t.payload.cancelled
}

// Done reports whether the task has finished.
func (t *TaskHandle) Done() bool {
	t.payload.mu.Lock()
	defer t.payload.mu.Unlock()
	return t.payload.done
}

// Cell exposes the backing GC cell, e.g. for PushRoot/deep-copy.
func (t *TaskHandle) Cell() *Cell { return t.cell }
