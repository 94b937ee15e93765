package tree

// NodeMeta describes one element type's record shape: the type name and the
// flattened field names, base-type fields first. One NodeMeta instance is
// shared by every node of its type.
type NodeMeta struct {
	TypeName string
	Fields   []string
}

// FieldIndex returns the slot index of a field name, or -1.
func (m *NodeMeta) FieldIndex(name string) int {
	for i, f := range m.Fields {
		if f == name {
			return i
		}
	}
	return -1
}

// Node is a typed record with a fixed set of named field slots. List-shaped
// element types additionally carry ordered content. A node is mutable only
// while its parse frame is open; Seal freezes it and its content.
type Node struct {
	meta    *NodeMeta
	fields  []Value
	content *List
	sealed  bool
}

// NewNode returns an unsealed node with all fields unfilled. When withContent
// is true the node carries a content list allocated from hint.
func NewNode(meta *NodeMeta, withContent bool, hint int) *Node {
	n := &Node{meta: meta, fields: make([]Value, len(meta.Fields))}
	if withContent {
		n.content = NewList(hint)
	}
	return n
}

// Meta returns the shared record shape.
func (n *Node) Meta() *NodeMeta { return n.meta }

// TypeName returns the schema type name of the node.
func (n *Node) TypeName() string { return n.meta.TypeName }

// NumFields returns the declared field count.
func (n *Node) NumFields() int { return len(n.fields) }

// Field returns field i. It panics if i is out of range.
func (n *Node) Field(i int) Value {
	if i < 0 || i >= len(n.fields) {
		panic("tree: node field index out of range")
	}
	return n.fields[i]
}

// FieldByName returns the named field.
func (n *Node) FieldByName(name string) (Value, bool) {
	i := n.meta.FieldIndex(name)
	if i < 0 {
		return nil, false
	}
	return n.fields[i], true
}

// Content returns the ordered content list, or nil for record-only types.
func (n *Node) Content() *List { return n.content }

// Sealed reports whether the node is frozen.
func (n *Node) Sealed() bool { return n.sealed }

// Seal freezes the node, its content list, and any list-valued fields.
func (n *Node) Seal() {
	n.sealed = true
	if n.content != nil {
		n.content.Seal()
	}
	for _, f := range n.fields {
		if l, ok := f.(*List); ok {
			l.Seal()
		}
	}
}
