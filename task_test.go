package pluto

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTaskSpawnAndGet(t *testing.T) {
	h := NewHeap()
	caller := NewMutator()
	h.RegisterMutator(caller)
	defer h.DeregisterMutator(caller)

	th := h.TaskSpawn(caller, func(child *Mutator) (Value, error) {
		return Value{Prim: 42}, nil
	})
	v, err := h.TaskGet(caller, th)
	require.NoError(t, err)
	require.Equal(t, uint64(42), v.Prim)
	require.True(t, th.Done())
}

func TestTaskGetCopiesErrorIntoCallerSlot(t *testing.T) {
	// spec §7: "task.get() on a task that ended in error copies the error
	// into the caller's slot".
	h := NewHeap()
	caller := NewMutator()
	h.RegisterMutator(caller)
	defer h.DeregisterMutator(caller)

	boom := errors.New("boom")
	th := h.TaskSpawn(caller, func(child *Mutator) (Value, error) {
		return Value{}, boom
	})
	_, err := h.TaskGet(caller, th)
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, caller.GetError(), boom)
}

func TestTaskDetachIsIdempotentAndReportsErrorOnce(t *testing.T) {
	h := NewHeap()
	caller := NewMutator()
	h.RegisterMutator(caller)
	defer h.DeregisterMutator(caller)

	var mu sync.Mutex
	var reports int
	orig := reportDetachedError
	reportDetachedError = func(err error) {
		mu.Lock()
		reports++
		mu.Unlock()
	}
	defer func() { reportDetachedError = orig }()

	done := make(chan struct{})
	th := h.TaskSpawn(caller, func(child *Mutator) (Value, error) {
		<-done
		return Value{}, errors.New("boom")
	})
	close(done)
	_, _ = h.TaskGet(caller, th) // drains done/complete

	h.TaskDetach(th)
	h.TaskDetach(th) // equivalent to once

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, reports)
}

func TestTaskCancelWithNoResultRaisesTaskCancelled(t *testing.T) {
	h := NewHeap()
	caller := NewMutator()
	h.RegisterMutator(caller)
	defer h.DeregisterMutator(caller)

	block := make(chan struct{})
	th := h.TaskSpawn(caller, func(child *Mutator) (Value, error) {
		<-block
		return Value{}, nil
	})
	h.TaskCancel(th)
	close(block)

	_, err := h.TaskGet(caller, th)
	require.ErrorIs(t, err, ErrTaskCancelled)
}
