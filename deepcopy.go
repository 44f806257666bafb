package pluto

// DeepCopy clones a cell graph rooted at root, following the per-tag
// sharing rules: String, Task, and Channel cells carry identity that a
// clone must not duplicate (a copied Task handle would no longer refer to
// the same running computation, and two Strings with equal bytes are
// already interchangeable), so they are returned as-is. Object, Array,
// Bytes, Trait, Map, and Set cells are structurally cloned. Cycles are
// preserved rather than re-entered infinitely by recording every cell
// already cloned in this call before recursing into its children.
func (h *Heap) DeepCopy(m *Mutator, root *Cell) *Cell {
	visited := make(map[*Cell]*Cell)
	return deepCopyCell(h, m, root, visited)
}

func deepCopyCell(h *Heap, m *Mutator, c *Cell, visited map[*Cell]*Cell) *Cell {
	if c == nil {
		return nil
	}
	switch c.tag {
	case TagString, TagTask, TagChannel:
		return c
	}
	if clone, ok := visited[c]; ok {
		return clone
	}

	switch c.tag {
	case TagObject:
		clone := h.NewObject(m, len(c.fields))
		visited[c] = clone
		for i, v := range c.fields {
			clone.fields[i] = deepCopyValue(h, m, v, visited)
		}
		return clone

	case TagArray:
		clone := h.NewArray(m, c.capacity)
		visited[c] = clone
		clone.length = c.length
		for i := 0; i < c.length; i++ {
			clone.data[i] = deepCopyValue(h, m, c.data[i], visited)
		}
		return clone

	case TagBytes:
		clone := h.NewBytes(m, c.raw)
		visited[c] = clone
		return clone

	case TagStringSlice:
		// Shares the same flattening rule as construction: the backing
		// String is never cloned (see the TagString case above).
		clone := h.NewStringSlice(m, c.sliceBacking, c.sliceOffset, c.sliceLen)
		visited[c] = clone
		return clone

	case TagTrait:
		clone := h.NewTrait(m, nil, c.traitVTable)
		visited[c] = clone
		clone.traitData = deepCopyCell(h, m, c.traitData, visited)
		return clone

	case TagMap:
		clone := h.NewMap(m, c.mapCap)
		visited[c] = clone
		for i, meta := range c.mapMeta {
			if meta&metaOccupied == 0 {
				continue
			}
			clone.mapMeta[i] = metaOccupied
			clone.mapKeys[i] = deepCopyValue(h, m, c.mapKeys[i], visited)
			clone.mapVals[i] = deepCopyValue(h, m, c.mapVals[i], visited)
		}
		clone.mapCount = c.mapCount
		return clone

	case TagSet:
		clone := h.NewSet(m, c.setCap)
		visited[c] = clone
		for i, meta := range c.setMeta {
			if meta&metaOccupied == 0 {
				continue
			}
			clone.setMeta[i] = metaOccupied
			clone.setKeys[i] = deepCopyValue(h, m, c.setKeys[i], visited)
		}
		clone.setCount = c.setCount
		return clone

	default:
		return c
	}
}

func deepCopyValue(h *Heap, m *Mutator, v Value, visited map[*Cell]*Cell) Value {
	if v.Ref == nil {
		return v
	}
	return Value{Ref: deepCopyCell(h, m, v.Ref, visited)}
}
