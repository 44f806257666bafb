package pluto

import (
	"math/rand"
	"time"
	"unsafe"
)

// SelectOp is the direction of one select arm (spec §6.2: "ops are 0 for
// recv and 1 for send").
type SelectOp uint8

const (
	SelectRecv SelectOp = 0
	SelectSend SelectOp = 1
)

// SelectArm is one (channel, op, value) triple. Value is the input for a
// send arm and is ignored for a recv arm; Select returns the received value
// instead of writing it back into the arm.
type SelectArm struct {
	Ch    *ChannelHandle
	Op    SelectOp
	Value Value
}

const (
	selectInitialBackoff = 100 * time.Microsecond
	selectMaxBackoff      = 1 * time.Millisecond
)

// fisherYates returns a random permutation of [0, n), matching the
// teacher's polling-selector shape (selector.go's Select loop) but with
// the fairness source spec §4.4 mandates: "Shuffle an index permutation
// using Fisher-Yates seeded from time + buffer address."
func fisherYates(n int, seed int64) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	r := rand.New(rand.NewSource(seed))
	for i := n - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}

// Select multiplexes over heterogeneous send/recv arms, completing exactly
// one ready arm per call and returning its original index, or -1 when a
// default case exists and nothing was ready (spec §4.4, §6.2).
//
// Returns ErrChannelClosed if there is no default arm and every channel
// involved is closed with nothing left to deliver.
func (h *Heap) Select(m *Mutator, arms []SelectArm, hasDefault bool) (int, Value, error) {
	if len(arms) == 0 {
		return -1, Value{}, nil
	}
	if m != nil && m.fiber != nil {
		return fiberSelect(m.fiber, arms, hasDefault)
	}
	seed := time.Now().UnixNano() ^ int64(uintptr(unsafe.Pointer(&arms[0])))
	backoff := selectInitialBackoff

	for {
		h.Safepoint(m)
		perm := fisherYates(len(arms), seed)
		allClosed := true

		for _, idx := range perm {
			arm := arms[idx]
			p := arm.Ch.payload
			p.mu.Lock()
			if !p.closed {
				allClosed = false
			}
			switch arm.Op {
			case SelectRecv:
				if p.count > 0 {
					v := p.buf[p.head]
					p.buf[p.head] = Value{}
					p.head = (p.head + 1) % p.capacity
					p.count--
					p.notFull.Signal()
					p.mu.Unlock()
					return idx, v, nil
				}
			case SelectSend:
				if p.count < p.capacity && !p.closed {
					p.buf[p.tail] = arm.Value
					p.tail = (p.tail + 1) % p.capacity
					p.count++
					p.notEmpty.Signal()
					p.mu.Unlock()
					return idx, Value{}, nil
				}
			}
			p.mu.Unlock()
		}

		if hasDefault {
			return -1, Value{}, nil
		}
		if allClosed {
			if m != nil {
				m.RaiseError(ErrChannelClosed)
			}
			return -1, Value{}, ErrChannelClosed
		}

		seed++
		time.Sleep(backoff)
		if backoff < selectMaxBackoff {
			backoff *= 2
			if backoff > selectMaxBackoff {
				backoff = selectMaxBackoff
			}
		}
	}
}

// DecodeSelectBuffer builds arms from the three sections of the ABI buffer
// spec §6.2 describes ([handles…][ops…][values…]), passed in already split
// into three parallel slices, for callers bridging from the symbol-table
// entry point (abi.go).
func DecodeSelectBuffer(handles []*ChannelHandle, ops []SelectOp, values []Value) []SelectArm {
	arms := make([]SelectArm, len(handles))
	for i := range handles {
		arms[i] = SelectArm{Ch: handles[i], Op: ops[i], Value: values[i]}
	}
	return arms
}
