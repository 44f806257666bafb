package pluto

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChannelProducerConsumerOrdering(t *testing.T) {
	// spec §8 scenario 1: capacity-1 channel preserves send order.
	h := NewHeap()
	ch := h.ChanCreate(nil, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			require.NoError(t, h.ChanSend(nil, ch, Value{Prim: uint64(i)}))
		}
		h.ChanSenderDec(ch)
	}()

	for i := 0; i < 100; i++ {
		v, err := h.ChanRecv(nil, ch)
		require.NoError(t, err)
		require.Equal(t, uint64(i), v.Prim)
	}
	_, err := h.ChanRecv(nil, ch)
	require.ErrorIs(t, err, ErrChannelClosed)
	wg.Wait()
}

func TestChannelCloseIsIdempotent(t *testing.T) {
	// spec §8: "chan.close called twice: equivalent to once".
	h := NewHeap()
	ch := h.ChanCreate(nil, 1)
	h.ChanClose(ch)
	require.NotPanics(t, func() { h.ChanClose(ch) })
	require.True(t, ch.Closed())
}

func TestChannelTrySendTryRecv(t *testing.T) {
	h := NewHeap()
	ch := h.ChanCreate(nil, 1)

	require.NoError(t, h.ChanTrySend(nil, ch, Value{Prim: 1}))
	require.ErrorIs(t, h.ChanTrySend(nil, ch, Value{Prim: 2}), ErrChannelFull)

	v, err := h.ChanTryRecv(nil, ch)
	require.NoError(t, err)
	require.Equal(t, uint64(1), v.Prim)

	_, err = h.ChanTryRecv(nil, ch)
	require.ErrorIs(t, err, ErrChannelEmpty)
}

func TestChannelSenderRefCounting(t *testing.T) {
	h := NewHeap()
	ch := h.ChanCreate(nil, 1)
	h.ChanSenderInc(ch) // now 2 logical senders
	require.Equal(t, int64(2), ch.SenderCount())

	h.ChanSenderDec(ch)
	require.False(t, ch.Closed())

	h.ChanSenderDec(ch) // last sender: 1 -> 0 closes the channel
	require.True(t, ch.Closed())
}

func TestChannelRecvAfterCloseDrainsBuffered(t *testing.T) {
	h := NewHeap()
	ch := h.ChanCreate(nil, 2)
	require.NoError(t, h.ChanTrySend(nil, ch, Value{Prim: 7}))
	h.ChanClose(ch)

	v, err := h.ChanRecv(nil, ch)
	require.NoError(t, err)
	require.Equal(t, uint64(7), v.Prim)

	_, err = h.ChanRecv(nil, ch)
	require.ErrorIs(t, err, ErrChannelClosed)
}
