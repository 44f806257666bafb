package pluto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringBytesRoundTrip(t *testing.T) {
	h := NewHeap()
	m := NewMutator()
	h.RegisterMutator(m)
	defer h.DeregisterMutator(m)

	original := h.NewString(m, []byte("hello, pluto"))
	bytes := h.StringToBytes(m, original)
	back := h.BytesToString(m, bytes)
	require.Equal(t, original.Bytes(), back.Bytes())
}

func TestStringSliceToOwnedMatchesSliceView(t *testing.T) {
	h := NewHeap()
	m := NewMutator()
	h.RegisterMutator(m)
	defer h.DeregisterMutator(m)

	backing := h.NewString(m, []byte("hello, pluto"))
	slice := h.NewStringSlice(m, backing, 7, 5)
	require.Equal(t, []byte("pluto"), StringData(slice))

	owned := h.StringSliceToOwned(m, slice)
	require.Equal(t, StringData(slice), StringData(owned))
}

func TestMapInsertGetRemove(t *testing.T) {
	h := NewHeap()
	m := NewMutator()
	h.RegisterMutator(m)
	defer h.DeregisterMutator(m)

	mp := h.NewMap(m, 4)
	key := Value{Prim: 7}
	val := Value{Prim: 100}

	h.MapInsert(m, mp, key, val)
	got, ok := h.MapGet(mp, key)
	require.True(t, ok)
	require.Equal(t, val, got)

	h.MapRemove(mp, key)
	require.False(t, h.MapContains(mp, key))
}

func TestMapGrowsPastLoadFactor(t *testing.T) {
	h := NewHeap()
	m := NewMutator()
	h.RegisterMutator(m)
	defer h.DeregisterMutator(m)

	mp := h.NewMap(m, 4)
	for i := 0; i < 100; i++ {
		h.MapInsert(m, mp, Value{Prim: uint64(i)}, Value{Prim: uint64(i * 2)})
	}
	require.Greater(t, mp.mapCap, 4)
	for i := 0; i < 100; i++ {
		v, ok := h.MapGet(mp, Value{Prim: uint64(i)})
		require.True(t, ok)
		require.Equal(t, uint64(i*2), v.Prim)
	}
}

func TestSetInsertContainsRemove(t *testing.T) {
	h := NewHeap()
	m := NewMutator()
	h.RegisterMutator(m)
	defer h.DeregisterMutator(m)

	s := h.NewSet(m, 4)
	h.SetInsert(m, s, Value{Prim: 3})
	require.True(t, h.SetContains(s, Value{Prim: 3}))
	h.SetRemove(s, Value{Prim: 3})
	require.False(t, h.SetContains(s, Value{Prim: 3}))
}

func TestIdleGCCycleProducesNoChange(t *testing.T) {
	h := NewHeap()
	m := NewMutator()
	h.RegisterMutator(m)
	defer h.DeregisterMutator(m)

	root := h.NewObject(m, 0)
	m.PushRoot(root)

	before := h.LiveCells()
	h.Collect()
	h.Collect()
	require.Equal(t, before, h.LiveCells())
}
