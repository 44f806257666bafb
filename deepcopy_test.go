package pluto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeepCopyClonesObjectGraph(t *testing.T) {
	h := NewHeap()
	m := NewMutator()
	h.RegisterMutator(m)
	defer h.DeregisterMutator(m)

	child := h.NewObject(m, 1)
	child.fields[0] = Value{Prim: 5}
	root := h.NewObject(m, 1)
	root.fields[0] = Value{Ref: child}

	clone := h.DeepCopy(m, root)
	require.NotSame(t, root, clone)
	require.NotSame(t, child, clone.fields[0].Ref)
	require.Equal(t, uint64(5), clone.fields[0].Ref.fields[0].Prim)

	// mutating the clone must not affect the original
	clone.fields[0].Ref.fields[0] = Value{Prim: 99}
	require.Equal(t, uint64(5), child.fields[0].Prim)
}

func TestDeepCopyPreservesCycles(t *testing.T) {
	h := NewHeap()
	m := NewMutator()
	h.RegisterMutator(m)
	defer h.DeregisterMutator(m)

	a := h.NewObject(m, 1)
	b := h.NewObject(m, 1)
	a.fields[0] = Value{Ref: b}
	b.fields[0] = Value{Ref: a}

	clone := h.DeepCopy(m, a)
	require.Same(t, clone, clone.fields[0].Ref.fields[0].Ref, "cycle must close back onto the same clone, not recurse forever")
}

func TestDeepCopySharesStringTaskChannelByIdentity(t *testing.T) {
	h := NewHeap()
	m := NewMutator()
	h.RegisterMutator(m)
	defer h.DeregisterMutator(m)

	str := h.NewString(m, []byte("hello"))
	ch := h.ChanCreate(m, 1)
	task := h.TaskSpawn(m, func(child *Mutator) (Value, error) { return Value{}, nil })
	_, _ = h.TaskGet(m, task)

	root := h.NewObject(m, 3)
	root.fields[0] = Value{Ref: str}
	root.fields[1] = Value{Ref: ch.cell}
	root.fields[2] = Value{Ref: task.cell}

	clone := h.DeepCopy(m, root)
	require.Same(t, str, clone.fields[0].Ref)
	require.Same(t, ch.cell, clone.fields[1].Ref)
	require.Same(t, task.cell, clone.fields[2].Ref)
}

func TestDeepCopyClonesArrayBytesMapSet(t *testing.T) {
	h := NewHeap()
	m := NewMutator()
	h.RegisterMutator(m)
	defer h.DeregisterMutator(m)

	arr := h.NewArray(m, 2)
	arr.length = 2
	arr.data[0] = Value{Prim: 1}
	arr.data[1] = Value{Prim: 2}

	bytes := h.NewBytes(m, []byte{1, 2, 3})

	root := h.NewObject(m, 2)
	root.fields[0] = Value{Ref: arr}
	root.fields[1] = Value{Ref: bytes}

	clone := h.DeepCopy(m, root)
	require.NotSame(t, arr, clone.fields[0].Ref)
	require.Equal(t, uint64(2), clone.fields[0].Ref.data[1].Prim)
	require.NotSame(t, bytes, clone.fields[1].Ref)
	require.Equal(t, []byte{1, 2, 3}, clone.fields[1].Ref.raw)
}
