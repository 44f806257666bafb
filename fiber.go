package pluto

import "fmt"

// Strategy selects how the test-mode scheduler picks among ready fibers
// (spec §4.2).
type Strategy uint8

const (
	StrategySequential Strategy = iota
	StrategyRoundRobin
	StrategyRandom
	StrategyExhaustive
)

func (s Strategy) String() string {
	switch s {
	case StrategySequential:
		return "sequential"
	case StrategyRoundRobin:
		return "round-robin"
	case StrategyRandom:
		return "random"
	case StrategyExhaustive:
		return "exhaustive"
	default:
		return "unknown"
	}
}

// BlockReason is why a fiber yielded, surfaced in deadlock diagnostics
// (spec §4.2: "diagnostic naming each blocked fiber and its reason").
type BlockReason uint8

const (
	BlockNone BlockReason = iota
	BlockTaskGet
	BlockChanSend
	BlockChanRecv
	BlockSelect
)

func (r BlockReason) String() string {
	switch r {
	case BlockTaskGet:
		return "TaskGet"
	case BlockChanSend:
		return "ChanSend"
	case BlockChanRecv:
		return "ChanRecv"
	case BlockSelect:
		return "Select"
	default:
		return "none"
	}
}

// FiberState is the fiber's scheduling state (spec §4.2).
type FiberState uint8

const (
	FiberReady FiberState = iota
	FiberRunning
	FiberBlocked
	FiberCompleted
)

// Fiber is a cooperatively scheduled mutator. Go gives every goroutine its
// own real stack that Go's own GC already scans; per spec §9's design
// note, a target language may pick "stackful coroutines, OS-level fibers,
// or a CPS transform" as long as it can suspend/resume at defined points
// and save/restore per-fiber TLS. Here each fiber is a goroutine gated by
// a baton (turn) so only one fiber's user code ever executes at a time,
// which is what makes the test-mode "no data races are possible" claim
// (spec §5) true: the Go scheduler may run the goroutine, but it never
// does anything observable without holding the baton.
type Fiber struct {
	idx     int // spawn order, stable across re-runs of the same program
	mutator *Mutator
	sched   *Scheduler

	state  FiberState
	reason BlockReason

	turn     chan struct{} // receiving this is "you have the baton"
	finished chan struct{}

	result Value
	err    error // closure's returned error, not a runtime failure

	readyCheck func() bool // set while Blocked; re-tested by the driver

	// touched records every channel this fiber accessed during the
	// current schedule, the raw material for DPOR's dependency matrix
	// (spec §4.3: "records its channel into the running fiber's set").
	touched map[*channelPayload]struct{}
}

func newFiber(idx int, sched *Scheduler) *Fiber {
	m := NewMutator()
	f := &Fiber{
		idx:      idx,
		mutator:  m,
		sched:    sched,
		turn:     make(chan struct{}, 1),
		finished: make(chan struct{}),
		touched:  make(map[*channelPayload]struct{}),
	}
	m.fiber = f
	return f
}

func (f *Fiber) recordTouch(p *channelPayload) {
	f.touched[p] = struct{}{}
}

// Describe renders a one-line diagnostic for deadlock reports.
func (f *Fiber) Describe() string {
	return fmt.Sprintf("fiber[%d] state=%v reason=%v", f.idx, f.stateName(), f.reason)
}

func (f *Fiber) stateName() string {
	switch f.state {
	case FiberReady:
		return "Ready"
	case FiberRunning:
		return "Running"
	case FiberBlocked:
		return "Blocked"
	case FiberCompleted:
		return "Completed"
	default:
		return "?"
	}
}
