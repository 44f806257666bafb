package pluto

// abi.go gives generated native code the flat symbol table spec §6.1
// describes, as methods on *Runtime rather than bare package functions, so
// a process can run more than one runtime (e.g. one per test). Each one
// forwards to the Heap/Mutator methods defined alongside their subsystem.

// Alloc is the `alloc(tag, user_size, field_count)` entry point (§6.1);
// generated code never calls this directly for the well-known kinds — it
// uses the typed New* constructors — but it is kept as the single funnel
// point the collector's threshold check observes (§4.1).
func (rt *Runtime) Alloc(m *Mutator, tag Tag, size uint32, fieldCount uint16) *Cell {
	return rt.Heap.alloc(m, tag, size, fieldCount)
}

// Safepoint is the cooperative GC poll point (§6.1/§5).
func (rt *Runtime) Safepoint(m *Mutator) { rt.Heap.Safepoint(m) }

// RaiseError sets the calling mutator's per-task error slot (§6.1).
func (rt *Runtime) RaiseError(m *Mutator, err error) { m.RaiseError(err) }

// HasError, GetError, and ClearError are the error-slot accessors (§6.1).
func (rt *Runtime) HasError(m *Mutator) bool  { return m.HasError() }
func (rt *Runtime) GetError(m *Mutator) error { return m.GetError() }
func (rt *Runtime) ClearError(m *Mutator)     { m.ClearError() }

// TaskSpawn starts a new task (§6.1).
func (rt *Runtime) TaskSpawn(m *Mutator, closure func(*Mutator) (Value, error)) *TaskHandle {
	return rt.Heap.TaskSpawn(m, closure)
}

// TaskGet waits for and reads a task's result (§6.1).
func (rt *Runtime) TaskGet(m *Mutator, t *TaskHandle) (Value, error) {
	return rt.Heap.TaskGet(m, t)
}

// TaskDetach and TaskCancel are the task lifecycle operations (§6.1).
func (rt *Runtime) TaskDetach(t *TaskHandle) { rt.Heap.TaskDetach(t) }
func (rt *Runtime) TaskCancel(t *TaskHandle) { rt.Heap.TaskCancel(t) }

// DeepCopy isolates a graph (§6.1).
func (rt *Runtime) DeepCopy(m *Mutator, root *Cell) *Cell {
	return rt.Heap.DeepCopy(m, root)
}

// ChanCreate creates a bounded channel (§6.1).
func (rt *Runtime) ChanCreate(m *Mutator, capacity int) *ChannelHandle {
	return rt.Heap.ChanCreate(m, capacity)
}

// ChanSend / ChanRecv are the blocking channel operations (§6.1).
func (rt *Runtime) ChanSend(m *Mutator, ch *ChannelHandle, v Value) error {
	return rt.Heap.ChanSend(m, ch, v)
}
func (rt *Runtime) ChanRecv(m *Mutator, ch *ChannelHandle) (Value, error) {
	return rt.Heap.ChanRecv(m, ch)
}

// ChanTrySend / ChanTryRecv are the non-blocking variants (§6.1).
func (rt *Runtime) ChanTrySend(m *Mutator, ch *ChannelHandle, v Value) error {
	return rt.Heap.ChanTrySend(m, ch, v)
}
func (rt *Runtime) ChanTryRecv(m *Mutator, ch *ChannelHandle) (Value, error) {
	return rt.Heap.ChanTryRecv(m, ch)
}

// ChanClose is the explicit-closure entry point (§6.1).
func (rt *Runtime) ChanClose(ch *ChannelHandle) { rt.Heap.ChanClose(ch) }

// ChanSenderInc / ChanSenderDec manage the sender reference count (§6.1).
func (rt *Runtime) ChanSenderInc(ch *ChannelHandle) { rt.Heap.ChanSenderInc(ch) }
func (rt *Runtime) ChanSenderDec(ch *ChannelHandle) { rt.Heap.ChanSenderDec(ch) }

// Select multiplexes over send/recv arms built from the §6.2 buffer layout
// via DecodeSelectBuffer.
func (rt *Runtime) Select(m *Mutator, arms []SelectArm, hasDefault bool) (int, Value, error) {
	return rt.Heap.Select(m, arms, hasDefault)
}
