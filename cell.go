package pluto

import "fmt"

// Tag identifies the payload layout of a managed cell, per the header
// described in the runtime's data model.
type Tag uint8

const (
	TagObject Tag = iota
	TagString
	TagStringSlice
	TagArray
	TagBytes
	TagTrait
	TagMap
	TagSet
	TagTask
	TagChannel
)

func (t Tag) String() string {
	switch t {
	case TagObject:
		return "Object"
	case TagString:
		return "String"
	case TagStringSlice:
		return "StringSlice"
	case TagArray:
		return "Array"
	case TagBytes:
		return "Bytes"
	case TagTrait:
		return "Trait"
	case TagMap:
		return "Map"
	case TagSet:
		return "Set"
	case TagTask:
		return "Task"
	case TagChannel:
		return "Channel"
	default:
		return fmt.Sprintf("Tag(%d)", uint8(t))
	}
}

// Value is a single 8-byte payload slot. It either holds a reference to
// another managed cell (Ref != nil) or an opaque primitive word. Only Ref
// is ever traced by the collector.
type Value struct {
	Ref  *Cell
	Prim uint64
}

// IsRef reports whether the slot carries a managed-cell reference.
func (v Value) IsRef() bool { return v.Ref != nil }

// meta byte states for Map/Set slot occupancy, mirroring the header's
// one-byte-per-slot metadata array.
const (
	metaEmpty    byte = 0x00
	metaOccupied byte = 0x80
)

// Cell is a single heap allocation: the 16-byte header of the spec plus a
// Go-native rendition of the tagged payload. Every live Cell is threaded
// into its owning Heap's linked list exactly once (next/prev).
type Cell struct {
	next, prev *Cell
	size       uint32
	mark       uint8
	tag        Tag
	fieldCount uint16

	// Object / Trait: field_count traced slots.
	fields []Value

	// String: owns its bytes; no internal references.
	str []byte

	// StringSlice: view into an owned String cell. Slice-of-slice is
	// flattened at construction so sliceBacking is always a TagString cell.
	sliceBacking *Cell
	sliceOffset  int
	sliceLen     int

	// Array: data is the side buffer, traced up to length.
	data     []Value
	length   int
	capacity int

	// Bytes: raw side buffer, untraced (no refs can live in raw bytes).
	raw []byte

	// Trait: only traitData is traced; vtable is a pointer into an
	// immutable descriptor table emitted ahead of time, never GC-managed.
	traitData   *Cell
	traitVTable uintptr

	// Map / Set: cap is always a power of two; meta is the occupancy
	// array (metaEmpty / metaOccupied).
	mapKeys, mapVals []Value
	mapMeta          []byte
	mapCount, mapCap int

	setKeys        []Value
	setMeta        []byte
	setCount       int
	setCap         int

	// Task / Channel: payload owned by task.go / channel.go, attached via
	// the opaque fields below to avoid import-cycle-shaped layering while
	// keeping a single GC package (the runtime requires these four
	// subsystems to share one mark/sweep view of the heap).
	task *taskPayload
	ch   *channelPayload
}

// Slots returns every slot the collector should trace for this cell,
// restricted to occupied entries for Map/Set and to the live window for
// Array/Channel buffers (spec: "Map and Set scan occupied slots only";
// "Channel traces only occupied buffer slots").
func (c *Cell) Slots() []Value {
	switch c.tag {
	case TagObject, TagTrait:
		return c.fields
	case TagArray:
		if c.length > len(c.data) {
			return c.data
		}
		return c.data[:c.length]
	case TagMap:
		out := make([]Value, 0, c.mapCount*2)
		for i, m := range c.mapMeta {
			if m&metaOccupied != 0 {
				out = append(out, c.mapKeys[i], c.mapVals[i])
			}
		}
		return out
	case TagSet:
		out := make([]Value, 0, c.setCount)
		for i, m := range c.setMeta {
			if m&metaOccupied != 0 {
				out = append(out, c.setKeys[i])
			}
		}
		return out
	case TagChannel:
		return c.ch.occupied()
	case TagTask:
		return c.task.slots()
	default:
		return nil
	}
}

// refs returns the child cells directly reachable from this cell (Trait's
// data pointer, StringSlice's backing string, plus whatever Slots yields).
func (c *Cell) refs() []*Cell {
	var out []*Cell
	if c.tag == TagTrait && c.traitData != nil {
		out = append(out, c.traitData)
	}
	if c.tag == TagStringSlice && c.sliceBacking != nil {
		out = append(out, c.sliceBacking)
	}
	for _, v := range c.Slots() {
		if v.Ref != nil {
			out = append(out, v.Ref)
		}
	}
	return out
}

// Tag reports the cell's payload tag.
func (c *Cell) Tag() Tag { return c.tag }

// Len reports the logical length for Array/Bytes/String cells.
func (c *Cell) Len() int {
	switch c.tag {
	case TagArray:
		return c.length
	case TagBytes:
		return len(c.raw)
	case TagString:
		return len(c.str)
	case TagStringSlice:
		return c.sliceLen
	default:
		return 0
	}
}

// Bytes returns the owned byte payload of a String or Bytes cell.
func (c *Cell) Bytes() []byte {
	switch c.tag {
	case TagString:
		return c.str
	case TagBytes:
		return c.raw
	case TagStringSlice:
		return c.sliceBacking.str[c.sliceOffset : c.sliceOffset+c.sliceLen]
	default:
		return nil
	}
}
