package pluto

import (
	"fmt"

	"github.com/ngrantham/pluto/internal/rtconfig"
	"github.com/ngrantham/pluto/internal/rtlog"
)

// Runtime is the single mutable instance a host process constructs, per
// spec §9's design note: "wrap the heap, scheduler, and diagnostic state in
// one struct the embedding program owns, rather than package-level
// globals." Every stable entry point of spec §6.1 is a method here.
type Runtime struct {
	Heap   *Heap
	Log    *rtlog.Logger
	Config rtconfig.Config

	strategy Strategy
}

// NewRuntime builds a Runtime from the process environment (.env + PLUTO_*
// variables, via internal/rtconfig) and wires its logger into both the GC
// and, once one exists, the fiber scheduler.
func NewRuntime(strategy Strategy) (*Runtime, error) {
	cfg, err := rtconfig.Load()
	if err != nil {
		return nil, err
	}
	log := rtlog.New(cfg.LogLevel)

	h := NewHeap()
	h.SetDiagnostics(log)

	rt := &Runtime{Heap: h, Log: log, Config: cfg, strategy: strategy}
	reportDetachedError = func(err error) {
		log.Warn("pluto: detached task error", "error", err.Error())
	}
	return rt, nil
}

// NewScheduler builds a scheduler under this runtime's configured strategy
// and seed, with diagnostics wired to the same logger as the heap.
func (rt *Runtime) NewScheduler() *Scheduler {
	s := NewScheduler(rt.Heap, rt.strategy, rt.Config.TestSeed, rt.Config.MaxSchedules, rt.Config.MaxDepth)
	s.SetDiagnostics(rt.Log)
	return s
}

// RunExhaustive drives factory under DPOR and logs an "Exhaustive: schedules
// explored" summary with the schedule count and a failure count regardless
// of outcome. Exploration stops at the first failing schedule, so the
// failure count is 0 or 1.
func (rt *Runtime) RunExhaustive(factory func(s *Scheduler)) error {
	explored, err := RunExhaustive(rt.Heap, rt.Config.TestSeed, rt.Config.MaxSchedules, rt.Config.MaxDepth, factory)
	failures := 0
	if err != nil {
		failures = 1
	}
	rt.Log.Info("Exhaustive: schedules explored", "schedules", explored, "failures", failures)
	if err != nil {
		return fmt.Errorf("pluto: %w", err)
	}
	return nil
}
