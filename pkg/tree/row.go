package tree

// RowMeta describes one tuple-sequence row shape: the owning type name and
// the ordered field (element) names. One RowMeta instance is shared by every
// row of its content group.
type RowMeta struct {
	TypeName string
	Fields   []string
}

// Row is one repetition of an ordered tuple-content group. Fields fill in
// strictly ascending declared order; enforcement lives in the parser, which
// inspects fill state through Filled.
type Row struct {
	meta   *RowMeta
	fields []Value
}

// NewRow returns a row with all fields unfilled.
func NewRow(meta *RowMeta) *Row {
	return &Row{meta: meta, fields: make([]Value, len(meta.Fields))}
}

// Meta returns the shared row shape.
func (r *Row) Meta() *RowMeta { return r.meta }

// Len returns the declared field count.
func (r *Row) Len() int { return len(r.fields) }

// At returns field i. It panics if i is out of range.
func (r *Row) At(i int) Value {
	if i < 0 || i >= len(r.fields) {
		panic("tree: row index out of range")
	}
	return r.fields[i]
}

// Filled reports whether field i has been stored.
func (r *Row) Filled(i int) bool {
	return r.fields[i] != nil
}
