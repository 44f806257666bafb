package pluto

import (
	"sync"
	"sync/atomic"
)

// stwSpinBudget bounds how long the collector busy-waits for mutators to
// quiesce before giving up and proceeding with whatever roots it has
// (spec §4.1 step 1: "a bounded spin-count expires (robustness fallback)").
// The open question in spec §9 flags this as possibly unsafe; it is kept as
// a logged, non-fatal fallback per the spec's explicit wording rather than
// promoted to fatal, since nothing in spec.md asks for that escalation.
const stwSpinBudget = 1_000_000

// collector owns the STW handshake and the mark-sweep algorithm for one
// Heap. Go has no portable signal-based "flush registers to stack and
// spin" primitive (that mechanism is specific to the source runtime's
// native-thread model), so quiescing here is cooperative: every mutator
// calls Safepoint at the suspension points spec §5 names (alloc, channel
// ops, task.get), and a stop request simply parks callers that observe it
// on resumeCh until the cycle finishes. This is the same idea Go's own
// runtime used before signal-based async preemption landed in 1.14.
type collector struct {
	h *Heap

	stopRequested atomic.Bool
	stoppedCount  atomic.Int32

	resumeMu sync.Mutex
	resumeCh chan struct{}

	log diagnosticSink
}

// diagnosticSink decouples the collector from any particular logger;
// Runtime wires a zerolog-backed implementation (internal/rtlog) while
// tests can use a no-op.
type diagnosticSink interface {
	Warn(msg string, kv ...any)
	Fatal(msg string, kv ...any)
}

type nopSink struct{}

func (nopSink) Warn(string, ...any)  {}
func (nopSink) Fatal(string, ...any) {}

func newCollector(h *Heap) *collector {
	return &collector{h: h, log: nopSink{}}
}

// SetDiagnostics wires a logging sink for GC diagnostics (spec §6.4).
func (h *Heap) SetDiagnostics(sink diagnosticSink) {
	if sink == nil {
		sink = nopSink{}
	}
	h.gc.log = sink
}

// Safepoint is the cooperative poll point generated code (or this port's
// callers) must reach periodically. If a collection is in progress, the
// calling mutator parks here until it resumes.
func (h *Heap) Safepoint(m *Mutator) {
	c := h.gc
	if !c.stopRequested.Load() {
		return
	}
	c.resumeMu.Lock()
	ch := c.resumeCh
	c.resumeMu.Unlock()
	if ch == nil {
		return
	}
	if m != nil {
		m.mu.Lock()
		m.stopped = true
		m.mu.Unlock()
	}
	c.stoppedCount.Add(1)
	<-ch
	c.stoppedCount.Add(-1)
	if m != nil {
		m.mu.Lock()
		m.stopped = false
		m.mu.Unlock()
	}
}

// collect runs one full mark-sweep cycle. self, if non-nil, is the
// mutator on whose behalf the triggering allocation happened; its roots
// are still scanned (spec §4.1 step 3a/3b: "the collector's own spilled
// register file... the collector's own stack") but it is excluded from the
// quiesce head-count since it cannot simultaneously be collecting and
// parked on its own Safepoint.
func (c *collector) collect(self *Mutator) {
	h := c.h
	if !h.gcRunning.CompareAndSwap(false, true) {
		return // another collection already in flight
	}
	defer h.gcRunning.Store(false)

	// --- 1. stop-the-world entry ---
	c.resumeMu.Lock()
	c.resumeCh = make(chan struct{})
	c.resumeMu.Unlock()
	c.stopRequested.Store(true)

	expected := 0
	h.forEachMutator(func(m *Mutator) {
		if m != self {
			expected++
		}
	})

	spin := 0
	for spin < stwSpinBudget && int(c.stoppedCount.Load()) < expected {
		spin++
	}
	if spin >= stwSpinBudget && int(c.stoppedCount.Load()) < expected {
		c.log.Warn("pluto: STW quiesce timed out, proceeding with partial roots",
			"expected", expected, "quiesced", c.stoppedCount.Load())
	}

	h.mu.Lock()
	defer func() {
		h.mu.Unlock()
		// --- 7. resume ---
		c.resumeMu.Lock()
		close(c.resumeCh)
		c.resumeCh = nil
		c.resumeMu.Unlock()
		c.stopRequested.Store(false)
	}()

	// --- 2. interval index ---
	idx := buildIntervalIndex(h)

	// --- 3. root discovery + mark ---
	var worklist []*Cell
	mark := func(target *Cell) {
		if target != nil && target.mark == 0 {
			target.mark = 1
			worklist = append(worklist, target)
		}
	}
	markWord := func(addr uintptr) {
		if owner, ok := idx.lookup(addr); ok {
			mark(owner)
		}
	}

	h.forEachMutator(func(m *Mutator) {
		for _, root := range m.snapshotRoots() {
			markWord(cellAddr(root))
		}
	})

	// --- 4. tracing ---
	for len(worklist) > 0 {
		n := len(worklist) - 1
		cell := worklist[n]
		worklist = worklist[:n]
		for _, child := range cell.refs() {
			mark(child)
		}
	}

	// --- 5. sweep ---
	var survivingBytes uint64
	cur := h.head
	for cur != nil {
		next := cur.next
		if cur.mark == 0 {
			h.unlink(cur)
			finalizeCell(cur)
			h.liveBytes -= uint64(cur.size)
		} else {
			cur.mark = 0
			survivingBytes += uint64(cur.size)
		}
		cur = next
	}

	// --- 6. threshold ---
	h.threshold = survivingBytes * 2
	if h.threshold < defaultFloor {
		h.threshold = defaultFloor
	}
}

// finalizeCell releases resources a cell owns outside the Go GC's view:
// Task/Channel synchronization objects, per spec §4.1 step 5 ("freeing
// their side buffers and synchronization objects").
func finalizeCell(c *Cell) {
	switch c.tag {
	case TagTask:
		c.task.close()
	case TagChannel:
		c.ch.close()
	}
}
