package pluto

import "hash/maphash"

// valueops.go implements the small generated-code-level operations spec §8's
// round-trip laws exercise on top of the String/Array/Map/Set primitives:
// string/bytes conversion, slice flattening, and open-addressed map/set
// insert/get/remove/contains with linear probing (spec §3.1: "meta is one
// byte per slot, 0 = empty, >=0x80 = occupied").

var hashSeed = maphash.MakeSeed()

// hashValue hashes a Value's identity: a cell reference hashes by its
// payload bytes when available (String/Bytes) or by pointer identity
// otherwise, and a pure primitive hashes its raw bits.
func hashValue(v Value) uint64 {
	var h maphash.Hash
	h.SetSeed(hashSeed)
	if v.Ref != nil {
		switch v.Ref.tag {
		case TagString:
			h.Write(v.Ref.str)
		case TagBytes:
			h.Write(v.Ref.raw)
		default:
			addr := cellAddr(v.Ref)
			var ab [8]byte
			for i := range ab {
				ab[i] = byte(addr)
				addr >>= 8
			}
			h.Write(ab[:])
		}
	}
	var buf [8]byte
	p := v.Prim
	for i := range buf {
		buf[i] = byte(p)
		p >>= 8
	}
	h.Write(buf[:])
	return h.Sum64()
}

func valuesEqual(a, b Value) bool {
	if a.Ref != nil || b.Ref != nil {
		if a.Ref == nil || b.Ref == nil {
			return false
		}
		if a.Ref == b.Ref {
			return true
		}
		if a.Ref.tag == TagString && b.Ref.tag == TagString {
			return string(a.Ref.str) == string(b.Ref.str)
		}
		if a.Ref.tag == TagBytes && b.Ref.tag == TagBytes {
			return string(a.Ref.raw) == string(b.Ref.raw)
		}
		return false
	}
	return a.Prim == b.Prim
}

// StringToBytes returns a Bytes cell copying a String cell's payload.
func (h *Heap) StringToBytes(m *Mutator, s *Cell) *Cell {
	return h.NewBytes(m, s.str)
}

// BytesToString returns a String cell copying a Bytes cell's payload.
// string_to_bytes composed with bytes_to_string is identity on valid
// strings (spec §8 round-trip law).
func (h *Heap) BytesToString(m *Mutator, b *Cell) *Cell {
	return h.NewString(m, b.raw)
}

// StringSliceToOwned materializes a StringSlice view as its own owned
// String cell.
func (h *Heap) StringSliceToOwned(m *Mutator, slice *Cell) *Cell {
	return h.NewString(m, slice.Bytes())
}

// StringData returns the (ptr-equivalent, len) view spec §8 calls
// `__pluto_string_data`: here, simply the backing byte slice, identical
// whether read from an owned String or a StringSlice view over one.
func StringData(c *Cell) []byte { return c.Bytes() }

// mapGrow doubles a Map cell's backing table in place. It only replaces
// the side-buffer slices c owns (spec §3.2: "side buffers owned 1:1 by
// their header"), never the Cell itself, so the heap's linked-list
// identity and the collector's live-byte accounting stay correct — unlike
// allocating a whole new cell and copying it over the old one, which would
// silently orphan whichever cell ended up unlinked.
func mapGrow(h *Heap, c *Cell) {
	oldKeys, oldVals, oldMeta, oldCap := c.mapKeys, c.mapVals, c.mapMeta, c.mapCap
	newCap := oldCap * 2

	delta := uint64(newCap-oldCap) * uint64(valueSize*2+1)
	h.mu.Lock()
	h.liveBytes += delta
	c.size += uint32(delta)
	h.mu.Unlock()

	c.mapKeys = make([]Value, newCap)
	c.mapVals = make([]Value, newCap)
	c.mapMeta = make([]byte, newCap)
	c.mapCap = newCap
	c.mapCount = 0
	for i, meta := range oldMeta {
		if meta&metaOccupied != 0 {
			mapInsertInto(c, oldKeys[i], oldVals[i])
		}
	}
}

func mapInsertInto(c *Cell, k, v Value) {
	hv := hashValue(k)
	cap := c.mapCap
	for i := 0; i < cap; i++ {
		slot := int((hv + uint64(i)) % uint64(cap))
		if c.mapMeta[slot]&metaOccupied == 0 {
			c.mapMeta[slot] = metaOccupied
			c.mapKeys[slot] = k
			c.mapVals[slot] = v
			c.mapCount++
			return
		}
		if valuesEqual(c.mapKeys[slot], k) {
			c.mapVals[slot] = v
			return
		}
	}
}

// MapInsert inserts or updates k -> v, growing the backing table (doubling
// capacity, still a power of two per spec §3.2) past a 70% load factor.
func (h *Heap) MapInsert(m *Mutator, c *Cell, k, v Value) {
	if c.mapCount*10 >= c.mapCap*7 {
		mapGrow(h, c)
	}
	mapInsertInto(c, k, v)
}

// MapGet returns the value for k and whether it was present.
func (h *Heap) MapGet(c *Cell, k Value) (Value, bool) {
	hv := hashValue(k)
	cap := c.mapCap
	for i := 0; i < cap; i++ {
		slot := int((hv + uint64(i)) % uint64(cap))
		if c.mapMeta[slot]&metaOccupied == 0 {
			return Value{}, false
		}
		if valuesEqual(c.mapKeys[slot], k) {
			return c.mapVals[slot], true
		}
	}
	return Value{}, false
}

// MapContains reports whether k is present.
func (h *Heap) MapContains(c *Cell, k Value) bool {
	_, ok := h.MapGet(c, k)
	return ok
}

// MapRemove deletes k if present. Open addressing requires a full
// backward-shift deletion so later probes along the same chain still
// resolve; re-inserting every subsequent entry in the cluster is the
// simplest correct approach and cheap at the load factors MapInsert
// maintains.
func (h *Heap) MapRemove(c *Cell, k Value) {
	hv := hashValue(k)
	cap := c.mapCap
	for i := 0; i < cap; i++ {
		slot := int((hv + uint64(i)) % uint64(cap))
		if c.mapMeta[slot]&metaOccupied == 0 {
			return
		}
		if valuesEqual(c.mapKeys[slot], k) {
			c.mapMeta[slot] = metaEmpty
			c.mapKeys[slot] = Value{}
			c.mapVals[slot] = Value{}
			c.mapCount--
			rehashCluster(c, slot)
			return
		}
	}
}

func rehashCluster(c *Cell, hole int) {
	cap := c.mapCap
	i := (hole + 1) % cap
	for c.mapMeta[i]&metaOccupied != 0 {
		k, v := c.mapKeys[i], c.mapVals[i]
		c.mapMeta[i] = metaEmpty
		c.mapKeys[i] = Value{}
		c.mapVals[i] = Value{}
		c.mapCount--
		mapInsertInto(c, k, v)
		i = (i + 1) % cap
	}
}

// SetInsert, SetContains, and SetRemove mirror the Map operations above
// over the key-only Set layout.
func (h *Heap) SetInsert(m *Mutator, c *Cell, k Value) {
	if c.setCount*10 >= c.setCap*7 {
		h.setGrow(c)
	}
	setInsertInto(c, k)
}

// setGrow mirrors mapGrow: grow the owned side buffers in place rather
// than allocating a replacement cell.
func (h *Heap) setGrow(c *Cell) {
	oldKeys, oldMeta, oldCap := c.setKeys, c.setMeta, c.setCap
	newCap := oldCap * 2

	delta := uint64(newCap-oldCap) * uint64(valueSize+1)
	h.mu.Lock()
	h.liveBytes += delta
	c.size += uint32(delta)
	h.mu.Unlock()

	c.setKeys = make([]Value, newCap)
	c.setMeta = make([]byte, newCap)
	c.setCap = newCap
	c.setCount = 0
	for i, meta := range oldMeta {
		if meta&metaOccupied != 0 {
			setInsertInto(c, oldKeys[i])
		}
	}
}

func setInsertInto(c *Cell, k Value) {
	hv := hashValue(k)
	cap := c.setCap
	for i := 0; i < cap; i++ {
		slot := int((hv + uint64(i)) % uint64(cap))
		if c.setMeta[slot]&metaOccupied == 0 {
			c.setMeta[slot] = metaOccupied
			c.setKeys[slot] = k
			c.setCount++
			return
		}
		if valuesEqual(c.setKeys[slot], k) {
			return
		}
	}
}

func (h *Heap) SetContains(c *Cell, k Value) bool {
	hv := hashValue(k)
	cap := c.setCap
	for i := 0; i < cap; i++ {
		slot := int((hv + uint64(i)) % uint64(cap))
		if c.setMeta[slot]&metaOccupied == 0 {
			return false
		}
		if valuesEqual(c.setKeys[slot], k) {
			return true
		}
	}
	return false
}

func (h *Heap) SetRemove(c *Cell, k Value) {
	hv := hashValue(k)
	cap := c.setCap
	for i := 0; i < cap; i++ {
		slot := int((hv + uint64(i)) % uint64(cap))
		if c.setMeta[slot]&metaOccupied == 0 {
			return
		}
		if valuesEqual(c.setKeys[slot], k) {
			c.setMeta[slot] = metaEmpty
			c.setKeys[slot] = Value{}
			c.setCount--
			rehashSetCluster(c, slot)
			return
		}
	}
}

func rehashSetCluster(c *Cell, hole int) {
	cap := c.setCap
	i := (hole + 1) % cap
	for c.setMeta[i]&metaOccupied != 0 {
		k := c.setKeys[i]
		c.setMeta[i] = metaEmpty
		c.setKeys[i] = Value{}
		c.setCount--
		setInsertInto(c, k)
		i = (i + 1) % cap
	}
}
