// Package tree holds the immutable value model produced by schema-driven
// parsing: frozen lists, tagged union items, fixed tuple rows, and typed
// record nodes, together with the pending-slot handles used to fill them
// in place during construction.
//
// Values are plain Go values where possible: character data is string,
// integer attributes are int, boolean attributes are bool. Containers are
// mutable only while their enclosing parse frame is open and are sealed
// before they are handed to callers.
package tree

// Value is any parsed value: string, int, bool, EnumValue, the Absent and
// Empty markers, or one of *List, *Tagged, *Row, *Node.
type Value any

type marker string

func (m marker) String() string { return string(m) }

// Absent marks an optional attribute or child that was not supplied.
var Absent Value = marker("<absent>")

// Empty is the fixed value produced by empty leaf elements.
var Empty Value = marker("<empty>")

// EnumValue is one resolved member of a schema enumeration.
type EnumValue struct {
	// Type is the enumeration type name.
	Type string
	// Name is the member identifier, which may differ from the XML token
	// when the schema renames members.
	Name string
	// Token is the XML token as it appears in documents.
	Token string
}

// String returns the member identifier.
func (e EnumValue) String() string { return e.Name }
