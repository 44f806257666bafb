package pluto

import (
	"sync"

	"github.com/google/uuid"
)

// Mutator is any execution context that allocates or mutates managed
// state: an OS thread in production, a fiber in test mode. The collector
// scans every registered mutator's root set as part of root discovery
// (spec §4.1 step 3).
//
// Go gives no portable way to walk a goroutine's native stack, so this is
// the explicit-registration analog spec §9 sanctions ("arena-allocated
// cells with dense integer indices... avoids the aliasing hazards of raw
// pointers"): code that wants a local kept alive across a safepoint pushes
// it here instead of relying on conservative stack scanning.
type Mutator struct {
	ID uuid.UUID

	mu    sync.Mutex
	roots []*Cell

	currentErr  error
	currentTask *TaskHandle

	stopped bool // set true while quiesced for a collection cycle

	// fiber is non-nil when this mutator is executing under the test-mode
	// cooperative scheduler rather than as a free-running production
	// goroutine; channel/task/select operations branch on it.
	fiber *Fiber
}

// NewMutator creates an unregistered mutator. Callers register it with a
// Heap via Heap.RegisterMutator before allocating through it.
func NewMutator() *Mutator {
	return &Mutator{ID: uuid.New()}
}

// PushRoot registers c as reachable from this mutator's locals until the
// matching PopRoot. This is the safepoint-era substitute for scanning a
// native stack word-by-word.
func (m *Mutator) PushRoot(c *Cell) {
	if c == nil {
		return
	}
	m.mu.Lock()
	m.roots = append(m.roots, c)
	m.mu.Unlock()
}

// PopRoot unregisters the most recently pushed root.
func (m *Mutator) PopRoot() {
	m.mu.Lock()
	if n := len(m.roots); n > 0 {
		m.roots = m.roots[:n-1]
	}
	m.mu.Unlock()
}

func (m *Mutator) snapshotRoots() []*Cell {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Cell, len(m.roots), len(m.roots)+2)
	copy(out, m.roots)
	if m.currentTask != nil && m.currentTask.cell != nil {
		out = append(out, m.currentTask.cell)
	}
	return out
}

// RaiseError sets this mutator's current-error slot (spec §7: errors are
// per-task thread-local).
func (m *Mutator) RaiseError(err error) {
	m.mu.Lock()
	m.currentErr = err
	m.mu.Unlock()
}

// HasError reports whether the current-error slot is set.
func (m *Mutator) HasError() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentErr != nil
}

// GetError returns the current-error slot's value.
func (m *Mutator) GetError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentErr
}

// ClearError clears the current-error slot.
func (m *Mutator) ClearError() {
	m.mu.Lock()
	m.currentErr = nil
	m.mu.Unlock()
}

func (m *Mutator) setCurrentTask(t *TaskHandle) {
	m.mu.Lock()
	m.currentTask = t
	m.mu.Unlock()
}

// RegisterMutator adds m to the set the collector scans during STW.
func (h *Heap) RegisterMutator(m *Mutator) {
	h.mutators.Store(m, struct{}{})
}

// DeregisterMutator removes m from the scanned set, e.g. when a task's
// backing goroutine exits or a fiber completes.
func (h *Heap) DeregisterMutator(m *Mutator) {
	h.mutators.Delete(m)
}

func (h *Heap) forEachMutator(fn func(*Mutator)) {
	h.mutators.Range(func(k, _ any) bool {
		fn(k.(*Mutator))
		return true
	})
}
