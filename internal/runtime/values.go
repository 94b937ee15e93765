package runtime

import (
	"fmt"

	"github.com/jacoelho/xmltree/pkg/tree"
)

const listHint = 5

// KeywordArg assigns a record field by name when constructing nodes
// explicitly rather than by parsing.
type KeywordArg struct {
	Name  string
	Value tree.Value
}

// NewNode constructs a sealed node of the given type outside of parsing.
// Positional values fill fields in declared order across the type's
// inheritance chain (base fields first); keyword arguments are resolved
// through the field name table and may not repeat a field. Content supplies
// the ordered content stream for list-shaped types and must be nil
// otherwise. Unset optional fields default to Absent; unset repeated fields
// default to an empty list; unset required fields are an error.
func (s *Schema) NewNode(id TypeID, content []tree.Value, positional []tree.Value, keywords []KeywordArg) (*tree.Node, error) {
	et := s.Type(id)
	if content != nil && !et.HasContentList() {
		return nil, fmt.Errorf("new %s node: type takes no content", et.Name)
	}

	maxArgs := len(et.Meta.Fields)
	given := len(positional) + len(keywords)
	if given > maxArgs {
		return nil, fmt.Errorf("new %s node: takes at most %d arguments, %d given", et.Name, maxArgs, given)
	}

	hint := listHint
	if len(content) > 0 {
		hint = len(content)
	}
	node := tree.NewNode(et.Meta, et.HasContentList(), hint)
	for _, v := range content {
		node.Content().Append(v)
	}

	isList := et.listFields()
	for i, v := range positional {
		tree.NodeSlot(node, i).Store(normalizeField(v, isList[i]))
	}

	for _, kw := range keywords {
		slot := et.FieldSlot(s.FieldNames.Lookup(kw.Name))
		if slot < 0 {
			return nil, fmt.Errorf("new %s node: unknown keyword argument %q", et.Name, kw.Name)
		}
		if node.Field(slot) != nil {
			return nil, fmt.Errorf("new %s node: received more than one value for %q", et.Name, kw.Name)
		}
		tree.NodeSlot(node, slot).Store(normalizeField(kw.Value, isList[slot]))
	}

	if err := et.finalizeFields(node); err != nil {
		return nil, err
	}
	node.Seal()
	return node, nil
}

// listFields marks which record slots hold repeated-child lists.
func (t *ElementType) listFields() []bool {
	isList := make([]bool, len(t.Meta.Fields))
	for _, c := range t.Children {
		if c.Repeated {
			isList[c.Field] = true
		}
	}
	return isList
}

func normalizeField(v tree.Value, wantList bool) tree.Value {
	if !wantList {
		return v
	}
	switch vv := v.(type) {
	case *tree.List:
		return vv
	case []tree.Value:
		l := tree.NewList(max(len(vv), 1))
		for _, item := range vv {
			l.Append(item)
		}
		return l
	default:
		l := tree.NewList(1)
		l.Append(v)
		return l
	}
}

// finalizeFields applies the defaulting and required-field rules shared by
// explicit construction: Absent for unset optionals, an empty list for unset
// repeated children, an error for unset required fields.
func (t *ElementType) finalizeFields(node *tree.Node) error {
	for i := range t.Attrs {
		a := &t.Attrs[i]
		if node.Field(a.Field) != nil {
			continue
		}
		if !a.Optional {
			return fmt.Errorf("new %s node: missing argument %q", t.Name, t.Meta.Fields[a.Field])
		}
		tree.NodeSlot(node, a.Field).Store(tree.Absent)
	}
	for i := range t.Children {
		c := &t.Children[i]
		if node.Field(c.Field) != nil {
			continue
		}
		switch {
		case c.Repeated:
			tree.NodeSlot(node, c.Field).Store(tree.NewList(1))
		case c.Optional:
			tree.NodeSlot(node, c.Field).Store(tree.Absent)
		default:
			return fmt.Errorf("new %s node: missing argument %q", t.Name, t.Meta.Fields[c.Field])
		}
	}
	return nil
}
