package pluto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func runRendezvous(h *Heap, s *Scheduler) (*ChannelHandle, []*Fiber) {
	ch := h.ChanCreate(nil, 1)
	f1 := s.Spawn(func(m *Mutator) (Value, error) {
		return Value{}, h.ChanSend(m, ch, Value{Prim: 1})
	})
	f2 := s.Spawn(func(m *Mutator) (Value, error) {
		_, err := h.ChanRecv(m, ch)
		return Value{}, err
	})
	return ch, []*Fiber{f1, f2}
}

func TestSchedulerSequentialSpawnRunsInline(t *testing.T) {
	// spec §4.2: "spawn runs the closure to completion before returning.
	// No parallelism" — under Sequential, Spawn must not defer the body
	// behind a baton handoff.
	h := NewHeap()
	s := NewScheduler(h, StrategySequential, 1, 0, 0)
	ran := false
	f := s.Spawn(func(m *Mutator) (Value, error) {
		ran = true
		return Value{}, nil
	})
	require.True(t, ran)
	require.Equal(t, FiberCompleted, f.state)
}

func TestSchedulerSequentialRunsToCompletion(t *testing.T) {
	h := NewHeap()
	s := NewScheduler(h, StrategySequential, 1, 0, 0)
	_, fibers := runRendezvous(h, s)
	require.NoError(t, s.Run())
	for _, f := range fibers {
		require.Equal(t, FiberCompleted, f.state)
	}
}

func TestSchedulerRoundRobinRunsToCompletion(t *testing.T) {
	h := NewHeap()
	s := NewScheduler(h, StrategyRoundRobin, 1, 0, 0)
	runRendezvous(h, s)
	require.NoError(t, s.Run())
}

func TestSchedulerRandomRunsToCompletion(t *testing.T) {
	h := NewHeap()
	s := NewScheduler(h, StrategyRandom, 7, 0, 0)
	runRendezvous(h, s)
	require.NoError(t, s.Run())
}

func TestSchedulerDetectsDeadlock(t *testing.T) {
	h := NewHeap()
	s := NewScheduler(h, StrategyRoundRobin, 1, 0, 0)
	ch := h.ChanCreate(nil, 1) // nobody ever sends
	s.Spawn(func(m *Mutator) (Value, error) {
		_, err := h.ChanRecv(m, ch)
		return Value{}, err
	})
	err := s.Run()
	require.Error(t, err)
}

func TestRunExhaustiveExploresBothOrderingsWithNoFailures(t *testing.T) {
	// spec §8 scenario 3: a two-fiber rendezvous has exactly 2 valid
	// interleavings (send-first-arrives vs recv-first-arrives at the
	// decision point); exhaustive exploration should find 0 failures.
	h := NewHeap()
	explored, err := RunExhaustive(h, 1, 0, 0, func(s *Scheduler) {
		runRendezvous(h, s)
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, explored, 2)
}

func TestExhaustiveScheduleCapsComeFromCaller(t *testing.T) {
	// internal/rtconfig.Config.MaxSchedules/MaxDepth must actually reach
	// the DPOR engine rather than a hardcoded default.
	h := NewHeap()
	s := NewScheduler(h, StrategyExhaustive, 1, 5, 50)
	require.Equal(t, 5, s.dpor.maxSchedules)
	require.Equal(t, 50, s.dpor.maxDepth)

	s2 := NewScheduler(h, StrategyExhaustive, 1, 0, 0)
	require.Equal(t, defaultMaxSchedules, s2.dpor.maxSchedules)
	require.Equal(t, defaultMaxDepth, s2.dpor.maxDepth)
}
