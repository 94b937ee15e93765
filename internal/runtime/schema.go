// Package runtime holds the immutable compiled-schema representation used by
// parse sessions: flat ID-indexed element-type descriptors, dense dispatch
// tables resolved at build time, enumeration catalogs, and the perfect-hash
// name tables for elements, attributes, and record fields.
//
// A Schema is built once (see internal/runtimebuild) and is safe for
// concurrent use by any number of simultaneous parses.
package runtime

import (
	"github.com/jacoelho/xmltree/internal/mph"
	"github.com/jacoelho/xmltree/pkg/tree"
)

// TypeID indexes Schema.Types.
type TypeID int32

// EnumID indexes Schema.Enums or Schema.CharEnums depending on the rule.
type EnumID int32

// Coerce selects the attribute or leaf token coercion rule.
type Coerce uint8

const (
	// CoerceString stores the token verbatim.
	CoerceString Coerce = iota
	// CoerceInt parses a base-10 integer.
	CoerceInt
	// CoerceBool parses the tokens "yes" and "no".
	CoerceBool
	// CoerceEnum resolves the token against an enumeration catalog.
	CoerceEnum
	// CoerceCharEnum accepts exactly one allowed character.
	CoerceCharEnum
)

// ContentShape classifies an element type's content stream.
type ContentShape uint8

const (
	// ContentNone means the type has no content stream, only fields.
	ContentNone ContentShape = iota
	// ContentBare is a sequence of items of untagged kinds.
	ContentBare
	// ContentTuple is a repeating sequence of fixed ordered rows.
	ContentTuple
	// ContentUnion is a sequence of discriminant-tagged alternatives.
	ContentUnion
)

// AttrPolicy controls handling of unrecognized attributes.
type AttrPolicy uint8

const (
	// OtherAttrWarn emits a warning and ignores the attribute.
	OtherAttrWarn AttrPolicy = iota
	// OtherAttrError fails the parse.
	OtherAttrError
)

// TargetKind classifies what a child or content item parses into.
type TargetKind uint8

const (
	// TargetElement recurses into another element type.
	TargetElement TargetKind = iota
	// TargetString is a free-text leaf.
	TargetString
	// TargetEmpty is an empty leaf yielding the Empty marker.
	TargetEmpty
	// TargetChar is a single-character-from-integer leaf.
	TargetChar
	// TargetEnum is an enumeration leaf resolved from element text.
	TargetEnum
	// TargetCharEnum is a character-enumeration leaf.
	TargetCharEnum
)

// TypeRef points a rule at its parse target.
type TypeRef struct {
	Kind TargetKind
	Type TypeID
	Enum EnumID
}

// AttrRule describes one declared attribute of an element type.
type AttrRule struct {
	Name     string
	Field    int
	Coerce   Coerce
	Enum     EnumID
	Optional bool
}

// ChildRule describes one declared child of an element type.
type ChildRule struct {
	Name     string
	Field    int
	Target   TypeRef
	Repeated bool
	Optional bool
}

// ContentRule describes one kind admitted by a content stream. For tuple
// content, TupleIndex is the field's position within a row.
type ContentRule struct {
	Name       string
	Target     TypeRef
	TupleIndex int
}

// ElementType is one compiled element descriptor. Attribute, child, and
// field rules are flattened across the inheritance chain, base types first.
// The ByCode tables map global name codes to rule indices (-1 for absent)
// and are resolved once at schema build time.
type ElementType struct {
	Name      string
	Meta      *tree.NodeMeta
	RowMeta   *tree.RowMeta
	Attrs     []AttrRule
	Children  []ChildRule
	Content   []ContentRule
	Shape     ContentShape
	AllowText bool
	OtherAttr AttrPolicy

	AttrByCode    []int16
	ChildByCode   []int16
	ContentByCode []int16
	FieldByCode   []int16
}

// HasContentList reports whether nodes of this type carry a content list.
func (t *ElementType) HasContentList() bool { return t.Shape != ContentNone }

// AttrIndex returns the attribute-rule index for a global attribute code.
func (t *ElementType) AttrIndex(code int) int {
	return indexFor(t.AttrByCode, code)
}

// ChildIndex returns the child-rule index for a global element code.
func (t *ElementType) ChildIndex(code int) int {
	return indexFor(t.ChildByCode, code)
}

// ContentIndex returns the content-rule index for a global element code.
func (t *ElementType) ContentIndex(code int) int {
	return indexFor(t.ContentByCode, code)
}

// FieldSlot returns the record slot for a global field code, or -1.
func (t *ElementType) FieldSlot(code int) int {
	return indexFor(t.FieldByCode, code)
}

func indexFor(table []int16, code int) int {
	if code < 0 || code >= len(table) {
		return -1
	}
	return int(table[code])
}

// Enum is one compiled enumeration catalog. Members are ordered; Table maps
// an XML token to its member index.
type Enum struct {
	Name    string
	Members []tree.EnumValue
	Table   mph.Table
}

// Lookup resolves an XML token to its member.
func (e *Enum) Lookup(token string) (tree.EnumValue, bool) {
	i := e.Table.Lookup(token)
	if i < 0 {
		return tree.EnumValue{}, false
	}
	return e.Members[i], true
}

// CharEnum is a compiled character-enumeration catalog.
type CharEnum struct {
	Name string
	// Values is the allowed character set, used verbatim in diagnostics.
	Values string
}

// Contains reports whether c is an allowed character.
func (e *CharEnum) Contains(c byte) bool {
	for i := 0; i < len(e.Values); i++ {
		if e.Values[i] == c {
			return true
		}
	}
	return false
}

// Root is one declared root-element kind.
type Root struct {
	Name string
	Type TypeID
}

// Schema is the compiled, immutable schema shared by all parses.
type Schema struct {
	Types     []ElementType
	Enums     []Enum
	CharEnums []CharEnum
	Roots     []Root

	// ElementNames, AttributeNames, and FieldNames are independent perfect
	// hash tables over the schema's global name sets.
	ElementNames   mph.Table
	AttributeNames mph.Table
	FieldNames     mph.Table

	// RootByCode maps a global element code to an index into Roots, -1
	// for elements that are not declared roots.
	RootByCode []int16
}

// Type returns the descriptor for id.
func (s *Schema) Type(id TypeID) *ElementType { return &s.Types[id] }

// RootIndex returns the Roots index for a global element code, or -1.
func (s *Schema) RootIndex(code int) int {
	return indexFor(s.RootByCode, code)
}

// TypeByName returns the descriptor with the given type name, or nil.
// Intended for construction and tests, not for the parse hot path.
func (s *Schema) TypeByName(name string) *ElementType {
	if id, ok := s.TypeIDByName(name); ok {
		return &s.Types[id]
	}
	return nil
}

// TypeIDByName returns the ID of the named type.
func (s *Schema) TypeIDByName(name string) (TypeID, bool) {
	for i := range s.Types {
		if s.Types[i].Name == name {
			return TypeID(i), true
		}
	}
	return 0, false
}
