package pluto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectRecvsFromReadyArm(t *testing.T) {
	h := NewHeap()
	a := h.ChanCreate(nil, 1)
	b := h.ChanCreate(nil, 1)
	require.NoError(t, h.ChanTrySend(nil, b, Value{Prim: 9}))

	arms := []SelectArm{
		{Ch: a, Op: SelectRecv},
		{Ch: b, Op: SelectRecv},
	}
	idx, v, err := h.Select(nil, arms, false)
	require.NoError(t, err)
	require.Equal(t, 1, idx)
	require.Equal(t, uint64(9), v.Prim)
}

func TestSelectDefaultWhenNothingReady(t *testing.T) {
	h := NewHeap()
	a := h.ChanCreate(nil, 1)
	arms := []SelectArm{{Ch: a, Op: SelectRecv}}
	idx, _, err := h.Select(nil, arms, true)
	require.NoError(t, err)
	require.Equal(t, -1, idx)
}

func TestSelectFairnessAcrossManyIterations(t *testing.T) {
	// spec §8 scenario 2: 400 selects over 4 ready channels, every arm
	// picked at least 80 times (an even 100 expectation with headroom).
	h := NewHeap()
	chans := make([]*ChannelHandle, 4)
	arms := make([]SelectArm, 4)
	for i := range chans {
		chans[i] = h.ChanCreate(nil, 1)
		require.NoError(t, h.ChanTrySend(nil, chans[i], Value{Prim: uint64(i)}))
		arms[i] = SelectArm{Ch: chans[i], Op: SelectRecv}
	}

	counts := make([]int, 4)
	for n := 0; n < 400; n++ {
		idx, v, err := h.Select(nil, arms, false)
		require.NoError(t, err)
		counts[idx]++
		// refill so every arm stays ready for the next round
		require.NoError(t, h.ChanTrySend(nil, chans[idx], v))
	}
	for _, c := range counts {
		require.GreaterOrEqual(t, c, 80)
	}
}

func TestSelectRaisesChannelClosedWhenAllClosedNoDefault(t *testing.T) {
	h := NewHeap()
	a := h.ChanCreate(nil, 1)
	h.ChanClose(a)
	arms := []SelectArm{{Ch: a, Op: SelectRecv}}
	_, _, err := h.Select(nil, arms, false)
	require.ErrorIs(t, err, ErrChannelClosed)
}
