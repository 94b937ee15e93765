// Package schemadef is the declarative description of a compiled XML schema:
// element types with attributes, children and content shapes, enumeration
// catalogs, and the declared root-element set. A description is compiled
// into runtime dispatch tables by the engine; it carries no behavior itself.
package schemadef

// Builtin type names usable wherever a type is referenced.
const (
	// TypeString is a free-text leaf.
	TypeString = "string"
	// TypeInteger is a base-10 integer token (attributes only).
	TypeInteger = "integer"
	// TypeBool is a "yes"/"no" token (attributes only).
	TypeBool = "bool"
	// TypeEmpty is an empty leaf yielding a fixed marker value.
	TypeEmpty = "empty"
	// TypeChar is a leaf that turns a numeric "value" attribute in [0,127]
	// into the corresponding character.
	TypeChar = "char"
)

// ContentShape names the content model of a list-shaped element type.
type ContentShape string

const (
	// ShapeBare admits a plain sequence of one or more untagged kinds.
	ShapeBare ContentShape = "bare"
	// ShapeTuple admits repeating rows of ordered optional fields.
	ShapeTuple ContentShape = "tuple"
	// ShapeUnion admits tagged alternatives.
	ShapeUnion ContentShape = "union"
)

// Schema is a complete schema description.
type Schema struct {
	// Roots declares the permitted document root elements.
	Roots []Root
	// Types declares the element types.
	Types []Type
	// Enums declares enumeration catalogs referencable as attribute or
	// leaf types.
	Enums []Enum
	// CharEnums declares single-character enumerations.
	CharEnums []CharEnum
}

// Root maps a root element name to its element type.
type Root struct {
	Name string
	Type string
}

// Type describes one element type. A type with Content is list-shaped: its
// nodes carry an ordered content stream in addition to record fields.
type Type struct {
	Name string
	// Bases lists inherited types; their fields come first in record order.
	Bases []string
	// Attributes declares the recognized attributes.
	Attributes []Attribute
	// OtherAttrError makes unrecognized attributes fatal instead of a
	// warning.
	OtherAttrError bool
	// Children declares named singular or repeated child elements stored
	// in record fields.
	Children []Child
	// Content declares the ordered content stream, if any.
	Content []ContentItem
	// Shape selects the content model; required when Content is set.
	Shape ContentShape
	// AllowText admits character data into the content stream, coalesced
	// with adjacent text runs.
	AllowText bool
}

// Attribute declares one attribute: its XML name, the record field it fills
// (defaults to Name), and its type — a builtin, an enum, or a char enum.
type Attribute struct {
	Name     string
	Field    string
	Type     string
	Optional bool
}

// Child declares one named child element.
type Child struct {
	Name     string
	Field    string
	Type     string
	Repeated bool
	Optional bool
}

// ContentItem declares one kind admitted by a content stream. For tuple
// shapes the declaration order is the row order; for union shapes Name is
// the discriminant tag.
type ContentItem struct {
	Name string
	Type string
}

// Enum declares an enumeration catalog.
type Enum struct {
	Name    string
	Members []EnumMember
}

// EnumMember is one enumeration member. ID renames the member identifier
// when it must differ from the XML token; an empty ID means the token is
// the identifier.
type EnumMember struct {
	Token string
	ID    string
}

// CharEnum declares a single-character enumeration over an allowed set.
type CharEnum struct {
	Name   string
	Values string
}

// FieldName returns the record field an attribute fills.
func (a Attribute) FieldName() string {
	if a.Field != "" {
		return a.Field
	}
	return a.Name
}

// FieldName returns the record field a child fills.
func (c Child) FieldName() string {
	if c.Field != "" {
		return c.Field
	}
	return c.Name
}

// Identifier returns the member identifier, applying renaming.
func (m EnumMember) Identifier() string {
	if m.ID != "" {
		return m.ID
	}
	return m.Token
}
