package pluto

import (
	"sync"
	"sync/atomic"
)

const defaultFloor = 256 * 1024 // spec §4.1 step 6: floor = 256 KiB

// Heap is the GC-managed arena: a single linked list of live cells plus the
// bookkeeping the collector needs to decide when to run. One Heap backs one
// Runtime; spec §9 calls for this to be encapsulated rather than ambient
// global state.
type Heap struct {
	mu   sync.Mutex // serializes alloc + STW initiation (spec §4.1)
	head *Cell      // sentinel-free intrusive doubly linked list
	tail *Cell

	liveCells int
	liveBytes uint64
	threshold uint64

	gcRunning atomic.Bool
	gc        *collector

	mutators    sync.Map // *Mutator -> struct{}, registered roots for STW scan
	activeTasks atomic.Int64
}

// ActiveTasks reports the number of task-backing goroutines currently
// registered (spawned but not yet finished).
func (h *Heap) ActiveTasks() int64 { return h.activeTasks.Load() }

// NewHeap returns an empty heap with the default initial threshold.
func NewHeap() *Heap {
	h := &Heap{threshold: defaultFloor}
	h.gc = newCollector(h)
	return h
}

func (h *Heap) link(c *Cell) {
	c.prev = h.tail
	if h.tail != nil {
		h.tail.next = c
	} else {
		h.head = c
	}
	h.tail = c
	h.liveCells++
}

func (h *Heap) unlink(c *Cell) {
	if c.prev != nil {
		c.prev.next = c.next
	} else {
		h.head = c.next
	}
	if c.next != nil {
		c.next.prev = c.prev
	} else {
		h.tail = c.prev
	}
	c.next, c.prev = nil, nil
	h.liveCells--
}

func (h *Heap) account(c *Cell, size uint32) {
	c.size = size
	h.liveBytes += uint64(size)
	h.link(c)
}

// alloc is the single entry every cell constructor funnels through,
// mirroring spec §4.1's uniform alloc(tag, user_size, field_count) contract.
// m identifies the calling mutator (nil for allocations made outside any
// registered mutator, e.g. setup code and tests) so a collection triggered
// here knows which mutator to exclude from the STW quiesce count.
//
// Collection is triggered *before* the new allocation is counted (spec
// §4.1), and must happen without h.mu held since collect() takes it itself
// for the sweep/list phases.
func (h *Heap) alloc(m *Mutator, tag Tag, size uint32, fieldCount uint16) *Cell {
	h.Safepoint(m)
	h.mu.Lock()
	needCollect := h.liveBytes+uint64(size) > h.threshold && !h.gcRunning.Load()
	h.mu.Unlock()

	if needCollect {
		h.gc.collect(m)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	c := &Cell{tag: tag, fieldCount: fieldCount}
	h.account(c, size)
	return c
}

const valueSize = 16 // two 8-byte words per Value (Ref, Prim), per spec's 8-byte-slot model rounded up for Go's pointer+uint64 pair

// NewObject allocates an Object cell with fieldCount traced slots.
func (h *Heap) NewObject(m *Mutator, fieldCount int) *Cell {
	c := h.alloc(m, TagObject, uint32(fieldCount*valueSize), uint16(fieldCount))
	c.fields = make([]Value, fieldCount)
	return c
}

// NewString allocates an immutable String cell from the given bytes.
func (h *Heap) NewString(m *Mutator, data []byte) *Cell {
	c := h.alloc(m, TagString, uint32(len(data)+8+1), 0)
	c.str = append([]byte(nil), data...)
	return c
}

// NewStringSlice returns a view into an owned String cell. Per spec,
// slice-of-slice is flattened at construction: if backing is itself a
// StringSlice, the new slice is rebased onto the original String.
func (h *Heap) NewStringSlice(m *Mutator, backing *Cell, offset, length int) *Cell {
	root, base := backing, offset
	if backing.tag == TagStringSlice {
		root = backing.sliceBacking
		base = backing.sliceOffset + offset
	}
	c := h.alloc(m, TagStringSlice, 24, 0)
	c.sliceBacking, c.sliceOffset, c.sliceLen = root, base, length
	return c
}

// NewArray allocates an Array cell with the given capacity; length starts
// at zero and callers set length and data directly.
func (h *Heap) NewArray(m *Mutator, capacity int) *Cell {
	c := h.alloc(m, TagArray, uint32(capacity*valueSize+16), 0)
	c.data = make([]Value, capacity)
	c.capacity = capacity
	return c
}

// NewBytes allocates a raw Bytes cell copying data into owned storage.
func (h *Heap) NewBytes(m *Mutator, data []byte) *Cell {
	c := h.alloc(m, TagBytes, uint32(len(data)+16), 0)
	c.raw = append([]byte(nil), data...)
	return c
}

// NewTrait allocates a Trait cell: data is a managed cell, vtable is a
// static descriptor address never traced by the collector.
func (h *Heap) NewTrait(m *Mutator, data *Cell, vtable uintptr) *Cell {
	c := h.alloc(m, TagTrait, 16, 1)
	c.traitData, c.traitVTable = data, vtable
	return c
}

func nextPow2(n int) int {
	if n < 1 {
		n = 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// NewMap allocates a Map cell with a power-of-two capacity hint.
func (h *Heap) NewMap(m *Mutator, capacityHint int) *Cell {
	cap := nextPow2(capacityHint)
	c := h.alloc(m, TagMap, uint32(cap*valueSize*2+cap+24), 0)
	c.mapKeys = make([]Value, cap)
	c.mapVals = make([]Value, cap)
	c.mapMeta = make([]byte, cap)
	c.mapCap = cap
	return c
}

// NewSet allocates a Set cell with a power-of-two capacity hint.
func (h *Heap) NewSet(m *Mutator, capacityHint int) *Cell {
	cap := nextPow2(capacityHint)
	c := h.alloc(m, TagSet, uint32(cap*valueSize+cap+16), 0)
	c.setKeys = make([]Value, cap)
	c.setMeta = make([]byte, cap)
	c.setCap = cap
	return c
}

// LiveBytes reports the heap's current accounted byte count.
func (h *Heap) LiveBytes() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.liveBytes
}

// LiveCells reports the number of cells currently linked into the heap.
func (h *Heap) LiveCells() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.liveCells
}

// Collect forces a synchronous mark-sweep cycle regardless of threshold,
// used by tests exercising spec §8 scenario 5 and by explicit user calls.
func (h *Heap) Collect() {
	h.gc.collect(nil)
}
