package tree

import "iter"

// List is an ordered sequence that is append-only until sealed and immutable
// afterwards. Capacity starts from a size hint and doubles thereafter.
type List struct {
	items  []Value
	hint   int
	sealed bool
}

// NewList returns an unsealed list whose first allocation reserves hint slots.
func NewList(hint int) *List {
	if hint < 1 {
		hint = 1
	}
	return &List{hint: hint}
}

// Len returns the number of items, including reserved but unfilled slots.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// At returns the item at index i. It panics if i is out of range.
func (l *List) At(i int) Value {
	if l == nil || i < 0 || i >= len(l.items) {
		panic("tree: list index out of range")
	}
	return l.items[i]
}

// All returns an iterator over the list in document order. Every call yields
// a fresh cursor over the same content; iteration is repeatable.
func (l *List) All() iter.Seq[Value] {
	return func(yield func(Value) bool) {
		if l == nil {
			return
		}
		for _, v := range l.items {
			if !yield(v) {
				return
			}
		}
	}
}

// Sealed reports whether the list is frozen.
func (l *List) Sealed() bool { return l.sealed }

// Append adds v to the end of the list. It panics on a sealed list.
func (l *List) Append(v Value) {
	if l.sealed {
		panic("tree: append to sealed list")
	}
	l.grow()
	l.items = append(l.items, v)
}

// Reserve appends an unfilled slot and returns a handle to it. The slot must
// be stored through before the list is sealed.
func (l *List) Reserve() Slot {
	l.Append(nil)
	return Slot{kind: slotList, list: l, index: len(l.items) - 1}
}

// Seal freezes the list. Sealing twice is a no-op.
func (l *List) Seal() { l.sealed = true }

func (l *List) grow() {
	if len(l.items) < cap(l.items) {
		return
	}
	next := cap(l.items) * 2
	if next == 0 {
		next = l.hint
	}
	items := make([]Value, len(l.items), next)
	copy(items, l.items)
	l.items = items
}

// last returns the final item, or nil for an empty list.
func (l *List) last() Value {
	if l == nil || len(l.items) == 0 {
		return nil
	}
	return l.items[len(l.items)-1]
}
