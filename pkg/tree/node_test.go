package tree

import "testing"

func TestNodeFields(t *testing.T) {
	meta := &NodeMeta{TypeName: "point", Fields: []string{"x", "y", "label"}}
	n := NewNode(meta, false, 0)

	NodeSlot(n, 0).Store(3)
	NodeSlot(n, 1).Store(4)
	NodeSlot(n, 2).Store(Absent)
	n.Seal()

	if n.TypeName() != "point" || n.NumFields() != 3 {
		t.Fatalf("node shape = %q/%d, want point/3", n.TypeName(), n.NumFields())
	}
	if v, ok := n.FieldByName("y"); !ok || v != 4 {
		t.Fatalf(`FieldByName("y") = %v, %v`, v, ok)
	}
	if v, ok := n.FieldByName("label"); !ok || v != Absent {
		t.Fatalf(`FieldByName("label") = %v, %v, want Absent`, v, ok)
	}
	if _, ok := n.FieldByName("z"); ok {
		t.Fatalf(`FieldByName("z") unexpectedly found`)
	}
}

func TestNodeSealFreezesContent(t *testing.T) {
	meta := &NodeMeta{TypeName: "para", Fields: nil}
	n := NewNode(meta, true, 2)
	n.Content().Append("text")
	n.Seal()

	if !n.Sealed() || !n.Content().Sealed() {
		t.Fatalf("Seal() left node or content unsealed")
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("store into sealed node did not panic")
		}
	}()
	NodeSlot(n, 0).Store("x")
}

func TestRecordOnlyNodeHasNoContent(t *testing.T) {
	n := NewNode(&NodeMeta{TypeName: "leaf"}, false, 0)
	if n.Content() != nil {
		t.Fatalf("record-only node has content list")
	}
}

func TestRowFill(t *testing.T) {
	meta := &RowMeta{TypeName: "memberdef", Fields: []string{"name", "kind", "id"}}
	r := NewRow(meta)

	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", r.Len())
	}
	if r.Filled(0) {
		t.Fatalf("fresh row reports field 0 filled")
	}
	RowSlot(r, 0).Store("first")
	if !r.Filled(0) || r.At(0) != "first" {
		t.Fatalf("row field 0 = %v filled=%v", r.At(0), r.Filled(0))
	}
	if r.Meta() != meta {
		t.Fatalf("Meta() not shared")
	}
}

func TestTaggedPayload(t *testing.T) {
	tv := NewTagged("para")
	if tv.Name() != "para" || tv.Value() != nil {
		t.Fatalf("fresh tagged = %q/%v", tv.Name(), tv.Value())
	}
	TaggedSlot(tv).Store("body")
	if tv.Value() != "body" {
		t.Fatalf("Value() = %v, want body", tv.Value())
	}
}

func TestSlotZeroValue(t *testing.T) {
	var s Slot
	if s.Valid() {
		t.Fatalf("zero slot reports valid")
	}
	if s.Load() != nil {
		t.Fatalf("zero slot Load() != nil")
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("store through zero slot did not panic")
		}
	}()
	s.Store("x")
}

func TestMarkersAreDistinct(t *testing.T) {
	if Absent == Empty {
		t.Fatalf("Absent and Empty compare equal")
	}
}
