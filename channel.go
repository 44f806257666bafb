package pluto

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// channelPayload is the synchronization block a Channel cell owns: a
// mutex-guarded circular buffer plus two condvars, exactly the production
// design of spec §4.4 ("Acquire the channel mutex. Wait on not_full...").
type channelPayload struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	buf      []Value
	capacity int
	head     int
	tail     int
	count    int
	closed   bool

	senderCount atomic.Int64
}

func newChannelPayload(capacity int) *channelPayload {
	p := &channelPayload{buf: make([]Value, capacity), capacity: capacity}
	p.notFull = sync.NewCond(&p.mu)
	p.notEmpty = sync.NewCond(&p.mu)
	p.senderCount.Store(1) // spec §9 open question: sender_count starts at 1 on creation
	return p
}

// occupied returns the live window of the ring buffer, head through
// head+count-1 mod capacity, for the collector to trace (spec §4.1 step 4:
// "Channel traces only occupied buffer slots").
func (p *channelPayload) occupied() []Value {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Value, 0, p.count)
	for i := 0; i < p.count; i++ {
		out = append(out, p.buf[(p.head+i)%p.capacity])
	}
	return out
}

func (p *channelPayload) close() {
	p.mu.Lock()
	p.closed = true
	p.notFull.Broadcast()
	p.notEmpty.Broadcast()
	p.mu.Unlock()
}

// ChannelHandle is the user-facing reference to a created channel. ID
// gives select/deadlock diagnostics (spec §6.4) a stable label independent
// of the cell's address.
type ChannelHandle struct {
	ID      uuid.UUID
	cell    *Cell
	payload *channelPayload
}

// Cell exposes the backing GC cell.
func (c *ChannelHandle) Cell() *Cell { return c.cell }

// channelSize accounts for the header plus a capacity-sized Value ring,
// per spec §3.1's Channel layout.
func channelSize(capacity int) uint32 { return uint32(capacity*valueSize + 48) }

// ChanCreate allocates a bounded channel with sender_count starting at 1.
func (h *Heap) ChanCreate(m *Mutator, capacity int) *ChannelHandle {
	if capacity < 1 {
		capacity = 1
	}
	cell := h.alloc(m, TagChannel, channelSize(capacity), 0)
	payload := newChannelPayload(capacity)
	cell.ch = payload
	return &ChannelHandle{ID: uuid.New(), cell: cell, payload: payload}
}

func cancelledTask(m *Mutator) bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	t := m.currentTask
	m.mu.Unlock()
	return t != nil && t.Cancelled()
}

// ChanSend blocks until the value is accepted or the channel is closed,
// per spec §4.4. It is also a safepoint (spec §5: "suspension points... any
// channel operation").
func (h *Heap) ChanSend(m *Mutator, ch *ChannelHandle, v Value) error {
	h.Safepoint(m)
	if m != nil && m.fiber != nil {
		return fiberChanSend(m.fiber, ch.payload, v)
	}
	p := ch.payload
	p.mu.Lock()
	for p.count == p.capacity && !p.closed {
		if cancelledTask(m) {
			p.mu.Unlock()
			if m != nil {
				m.RaiseError(ErrTaskCancelled)
			}
			return ErrTaskCancelled
		}
		p.notFull.Wait()
	}
	if p.closed {
		p.mu.Unlock()
		if m != nil {
			m.RaiseError(ErrChannelClosed)
		}
		return ErrChannelClosed
	}
	p.buf[p.tail] = v
	p.tail = (p.tail + 1) % p.capacity
	p.count++
	p.notEmpty.Signal()
	p.mu.Unlock()
	return nil
}

// ChanRecv blocks until a value is available or the channel is closed and
// drained, per spec §4.4.
func (h *Heap) ChanRecv(m *Mutator, ch *ChannelHandle) (Value, error) {
	h.Safepoint(m)
	if m != nil && m.fiber != nil {
		return fiberChanRecv(m.fiber, ch.payload)
	}
	p := ch.payload
	p.mu.Lock()
	for p.count == 0 && !p.closed {
		if cancelledTask(m) {
			p.mu.Unlock()
			if m != nil {
				m.RaiseError(ErrTaskCancelled)
			}
			return Value{}, ErrTaskCancelled
		}
		p.notEmpty.Wait()
	}
	if p.count == 0 && p.closed {
		p.mu.Unlock()
		if m != nil {
			m.RaiseError(ErrChannelClosed)
		}
		return Value{}, ErrChannelClosed
	}
	v := p.buf[p.head]
	p.buf[p.head] = Value{}
	p.head = (p.head + 1) % p.capacity
	p.count--
	p.notFull.Signal()
	p.mu.Unlock()
	return v, nil
}

// ChanTrySend is the non-blocking variant; it raises ErrChannelFull rather
// than waiting.
func (h *Heap) ChanTrySend(m *Mutator, ch *ChannelHandle, v Value) error {
	p := ch.payload
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		if m != nil {
			m.RaiseError(ErrChannelClosed)
		}
		return ErrChannelClosed
	}
	if p.count == p.capacity {
		if m != nil {
			m.RaiseError(ErrChannelFull)
		}
		return ErrChannelFull
	}
	p.buf[p.tail] = v
	p.tail = (p.tail + 1) % p.capacity
	p.count++
	p.notEmpty.Signal()
	return nil
}

// ChanTryRecv is the non-blocking variant; it raises ErrChannelEmpty rather
// than waiting.
func (h *Heap) ChanTryRecv(m *Mutator, ch *ChannelHandle) (Value, error) {
	p := ch.payload
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.count == 0 {
		if p.closed {
			if m != nil {
				m.RaiseError(ErrChannelClosed)
			}
			return Value{}, ErrChannelClosed
		}
		if m != nil {
			m.RaiseError(ErrChannelEmpty)
		}
		return Value{}, ErrChannelEmpty
	}
	v := p.buf[p.head]
	p.buf[p.head] = Value{}
	p.head = (p.head + 1) % p.capacity
	p.count--
	p.notFull.Signal()
	return v, nil
}

// ChanClose explicitly closes the channel; idempotent (spec §8: "chan.close
// called twice: equivalent to once").
func (h *Heap) ChanClose(ch *ChannelHandle) {
	ch.payload.close()
}

// ChanSenderInc registers another logical sender endpoint (spec §9 open
// question: "Implementers should define an explicit clone_sender
// operation" — this is that operation).
func (h *Heap) ChanSenderInc(ch *ChannelHandle) {
	ch.payload.senderCount.Add(1)
}

// ChanSenderDec releases a sender endpoint; the transition from 1 to 0
// closes the channel and wakes every waiter (spec §3.2, §4.4). Underflow
// (decrementing past zero) is guarded against rather than allowed to wrap.
func (h *Heap) ChanSenderDec(ch *ChannelHandle) {
	p := ch.payload
	for {
		cur := p.senderCount.Load()
		if cur <= 0 {
			return
		}
		if p.senderCount.CompareAndSwap(cur, cur-1) {
			if cur == 1 {
				p.close()
			}
			return
		}
	}
}

// SenderCount reports the current logical sender reference count.
func (ch *ChannelHandle) SenderCount() int64 { return ch.payload.senderCount.Load() }

// Closed reports whether the channel has been closed.
func (ch *ChannelHandle) Closed() bool {
	ch.payload.mu.Lock()
	defer ch.payload.mu.Unlock()
	return ch.payload.closed
}

// Len reports the number of buffered values.
func (ch *ChannelHandle) Len() int {
	ch.payload.mu.Lock()
	defer ch.payload.mu.Unlock()
	return ch.payload.count
}
