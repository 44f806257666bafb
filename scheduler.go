package pluto

import (
	"fmt"
	"math/rand"
)

// FiberFunc is the body a scheduled fiber runs to completion.
type FiberFunc func(m *Mutator) (Value, error)

// Scheduler drives a fixed set of fibers to completion one baton-turn at a
// time, per spec §4.2/§4.3. Exactly one fiber ever holds the baton, so user
// code under test never races even though each fiber is a real goroutine.
type Scheduler struct {
	h        *Heap
	strategy Strategy
	rng      *rand.Rand
	log      diagnosticSink

	fibers    []*Fiber
	yielded   chan *Fiber
	rrCursor  int
	deadlock  bool
	deadlines []string // diagnostic lines from the most recent deadlock

	dpor *dporEngine // non-nil only under StrategyExhaustive
}

// NewScheduler constructs a scheduler bound to h. seed feeds StrategyRandom's
// choice among ready fibers; StrategyExhaustive does not use it (its
// baseline always picks the lowest-index runnable fiber). maxSchedules and maxDepth bound
// StrategyExhaustive's DPOR exploration (spec §4.3/§9, internal/rtconfig's
// PLUTO_MAX_SCHEDULES/PLUTO_MAX_DEPTH); pass 0 for either to use the package
// defaults, which every non-Exhaustive strategy does since it ignores them.
func NewScheduler(h *Heap, strategy Strategy, seed int64, maxSchedules, maxDepth int) *Scheduler {
	s := &Scheduler{
		h:        h,
		strategy: strategy,
		rng:      rand.New(rand.NewSource(seed)),
		log:      nopSink{},
		yielded:  make(chan *Fiber),
	}
	if strategy == StrategyExhaustive {
		s.dpor = newDPOREngine(seed, maxSchedules, maxDepth)
	}
	return s
}

// SetDiagnostics wires a logging sink for scheduling diagnostics.
func (s *Scheduler) SetDiagnostics(sink diagnosticSink) {
	if sink == nil {
		sink = nopSink{}
	}
	s.log = sink
}

// Spawn registers a fiber body. Under every strategy but Sequential it does
// not start running until Run drives it; under StrategySequential it runs
// fn to completion immediately, inline on the calling goroutine, per spec
// §4.2: "spawn runs the closure to completion before returning. No
// parallelism." — there is no baton handoff to defer.
func (s *Scheduler) Spawn(fn FiberFunc) *Fiber {
	f := newFiber(len(s.fibers), s)
	s.fibers = append(s.fibers, f)
	s.h.RegisterMutator(f.mutator)

	if s.strategy == StrategySequential {
		f.state = FiberRunning
		result, err := fn(f.mutator)
		f.result, f.err = result, err
		f.state = FiberCompleted
		close(f.finished)
		s.h.DeregisterMutator(f.mutator)
		return f
	}

	go func() {
		<-f.turn
		result, err := fn(f.mutator)
		f.result, f.err = result, err
		f.state = FiberCompleted
		close(f.finished)
		s.h.DeregisterMutator(f.mutator)
		s.yielded <- f
	}()
	return f
}

// yield is called by the cooperative op implementations in fiberops.go
// from inside a fiber's goroutine. If ready() already holds it
// returns immediately without giving up the baton; otherwise it parks the
// fiber as Blocked and hands control back to the driver loop, resuming only
// once the driver re-schedules it (spec §4.2: "parks until the requested
// condition is observed true by the scheduler").
func (s *Scheduler) yield(f *Fiber, reason BlockReason, ready func() bool) {
	if ready() {
		return
	}
	f.state = FiberBlocked
	f.reason = reason
	f.readyCheck = ready
	s.yielded <- f
	<-f.turn
	f.state = FiberRunning
}

// Run drives every spawned fiber to completion and returns the first error
// a fiber body returned, plus a deadlock diagnostic (spec §6.4) if the run
// ended with live fibers still blocked.
func (s *Scheduler) Run() error {
	if len(s.fibers) == 0 {
		return nil
	}
	for {
		f := s.pickNext()
		if f == nil {
			if s.allCompleted() {
				return s.firstError()
			}
			s.reportDeadlock()
			return fmt.Errorf("pluto: scheduler deadlock: %d fiber(s) blocked", s.countBlocked())
		}
		f.state = FiberRunning
		f.turn <- struct{}{}
		<-s.yielded
	}
}

func (s *Scheduler) allCompleted() bool {
	for _, f := range s.fibers {
		if f.state != FiberCompleted {
			return false
		}
	}
	return true
}

func (s *Scheduler) countBlocked() int {
	n := 0
	for _, f := range s.fibers {
		if f.state == FiberBlocked {
			n++
		}
	}
	return n
}

func (s *Scheduler) firstError() error {
	for _, f := range s.fibers {
		if f.err != nil {
			return f.err
		}
	}
	return nil
}

// pickNext recomputes readiness for every blocked fiber and selects the
// next one to run per s.strategy. Returns nil when nothing is runnable.
func (s *Scheduler) pickNext() *Fiber {
	var runnable []*Fiber
	for _, f := range s.fibers {
		switch f.state {
		case FiberReady:
			runnable = append(runnable, f)
		case FiberBlocked:
			if f.readyCheck != nil && f.readyCheck() {
				runnable = append(runnable, f)
			}
		}
	}
	if len(runnable) == 0 {
		return nil
	}
	switch s.strategy {
	case StrategySequential:
		// Fixed spawn-order priority: always resume the lowest-index
		// runnable fiber, matching spec §4.2's deterministic baseline.
		return runnable[0]
	case StrategyRoundRobin:
		for i := 0; i < len(s.fibers); i++ {
			idx := (s.rrCursor + i) % len(s.fibers)
			cand := s.fibers[idx]
			for _, r := range runnable {
				if r == cand {
					s.rrCursor = (idx + 1) % len(s.fibers)
					return cand
				}
			}
		}
		return runnable[0]
	case StrategyRandom:
		return runnable[s.rng.Intn(len(runnable))]
	case StrategyExhaustive:
		return s.dpor.pick(runnable, s.fibers)
	default:
		return runnable[0]
	}
}

func (s *Scheduler) reportDeadlock() {
	lines := make([]string, 0, len(s.fibers))
	for _, f := range s.fibers {
		if f.state == FiberBlocked {
			lines = append(lines, f.Describe())
		}
	}
	s.deadlock = true
	s.deadlines = lines
	s.log.Warn("pluto: deadlock detected", "blocked", lines)
}
