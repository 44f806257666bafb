package pluto

// Cooperative op implementations used when a Mutator is running under a
// Scheduler (m.fiber != nil). These mirror the production lock/condvar
// versions in channel.go/task.go/select.go exactly in outcome, but never
// block inside sync.Cond.Wait: a fiber that can't make progress records its
// block reason and hands the baton back via Scheduler.yield, so the driver
// loop (not the OS scheduler) decides what runs next (spec §4.2/§4.3).

func fiberChanSend(f *Fiber, p *channelPayload, v Value) error {
	f.recordTouch(p)
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			f.mutator.RaiseError(ErrChannelClosed)
			return ErrChannelClosed
		}
		if p.count < p.capacity {
			p.buf[p.tail] = v
			p.tail = (p.tail + 1) % p.capacity
			p.count++
			p.notEmpty.Signal()
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()

		if f.mutator.currentTask != nil && f.mutator.currentTask.Cancelled() {
			f.mutator.RaiseError(ErrTaskCancelled)
			return ErrTaskCancelled
		}
		f.sched.yield(f, BlockChanSend, func() bool {
			p.mu.Lock()
			ready := p.count < p.capacity || p.closed
			p.mu.Unlock()
			return ready
		})
	}
}

func fiberChanRecv(f *Fiber, p *channelPayload) (Value, error) {
	f.recordTouch(p)
	for {
		p.mu.Lock()
		if p.count > 0 {
			v := p.buf[p.head]
			p.buf[p.head] = Value{}
			p.head = (p.head + 1) % p.capacity
			p.count--
			p.notFull.Signal()
			p.mu.Unlock()
			return v, nil
		}
		if p.closed {
			p.mu.Unlock()
			f.mutator.RaiseError(ErrChannelClosed)
			return Value{}, ErrChannelClosed
		}
		p.mu.Unlock()

		if f.mutator.currentTask != nil && f.mutator.currentTask.Cancelled() {
			f.mutator.RaiseError(ErrTaskCancelled)
			return Value{}, ErrTaskCancelled
		}
		f.sched.yield(f, BlockChanRecv, func() bool {
			p.mu.Lock()
			ready := p.count > 0 || p.closed
			p.mu.Unlock()
			return ready
		})
	}
}

func fiberTaskGet(f *Fiber, t *TaskHandle) (Value, error) {
	p := t.payload
	f.sched.yield(f, BlockTaskGet, func() bool {
		p.mu.Lock()
		ready := p.done
		p.mu.Unlock()
		return ready
	})
	p.mu.Lock()
	result, err, cancelled := p.result, p.err, p.cancelled
	p.mu.Unlock()
	if cancelled && result.Ref == nil && result.Prim == 0 && err == nil {
		f.mutator.RaiseError(ErrTaskCancelled)
		return Value{}, ErrTaskCancelled
	}
	if err != nil {
		f.mutator.RaiseError(err)
	}
	return result, err
}

// fiberSelect is select.go's Select, re-expressed without a real-time
// backoff sleep: the permutation still comes from fisherYates (spec §4.4's
// fairness requirement applies identically in test mode), but instead of
// sleeping between unready passes, the fiber yields to the scheduler, which
// decides how the next decision point is chosen, including replaying
// DPOR-forced orders.
func fiberSelect(f *Fiber, arms []SelectArm, hasDefault bool) (int, Value, error) {
	for _, arm := range arms {
		f.recordTouch(arm.Ch.payload)
	}
	seed := int64(f.idx)
	attempt := 0
	for {
		perm := fisherYates(len(arms), seed+int64(attempt))
		attempt++
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
			f.mutator.RaiseError(ErrChannelClosed)
			return -1, Value{}, ErrChannelClosed
		}

		f.sched.yield(f, BlockSelect, func() bool {
			allClosed := true
			for _, arm := range arms {
				p := arm.Ch.payload
				p.mu.Lock()
				ready := (arm.Op == SelectRecv && p.count > 0) ||
					(arm.Op == SelectSend && p.count < p.capacity && !p.closed)
				if !p.closed {
					allClosed = false
				}
				p.mu.Unlock()
				if ready {
					return true
				}
			}
			return allClosed
		})
	}
}
