package tree

type slotKind uint8

const (
	slotNone slotKind = iota
	slotList
	slotNode
	slotRow
	slotTagged
)

// Slot addresses the location where a value under construction will land:
// a list index, a node field, a row field, or a tagged payload. It replaces
// raw in-place addresses with an owner-plus-index handle, so a child parse
// can fill its destination without the owner ever copying the value back.
//
// Only the still-open enclosing frame may store through a slot; storing into
// a sealed container panics, since that would break the immutability of
// values already returned to callers.
type Slot struct {
	kind   slotKind
	list   *List
	node   *Node
	row    *Row
	tagged *Tagged
	index  int
}

// ListSlot addresses item i of l.
func ListSlot(l *List, i int) Slot { return Slot{kind: slotList, list: l, index: i} }

// NodeSlot addresses field i of n.
func NodeSlot(n *Node, i int) Slot { return Slot{kind: slotNode, node: n, index: i} }

// RowSlot addresses field i of r.
func RowSlot(r *Row, i int) Slot { return Slot{kind: slotRow, row: r, index: i} }

// TaggedSlot addresses the payload of t.
func TaggedSlot(t *Tagged) Slot { return Slot{kind: slotTagged, tagged: t} }

// Valid reports whether the slot addresses anything.
func (s Slot) Valid() bool { return s.kind != slotNone }

// Load returns the current slot contents, nil if unfilled.
func (s Slot) Load() Value {
	switch s.kind {
	case slotList:
		return s.list.items[s.index]
	case slotNode:
		return s.node.fields[s.index]
	case slotRow:
		return s.row.fields[s.index]
	case slotTagged:
		return s.tagged.payload
	}
	return nil
}

// Store writes v into the slot.
func (s Slot) Store(v Value) {
	switch s.kind {
	case slotList:
		if s.list.sealed {
			panic("tree: store into sealed list")
		}
		s.list.items[s.index] = v
	case slotNode:
		if s.node.sealed {
			panic("tree: store into sealed node")
		}
		s.node.fields[s.index] = v
	case slotRow:
		s.row.fields[s.index] = v
	case slotTagged:
		s.tagged.payload = v
	default:
		panic("tree: store into invalid slot")
	}
}
