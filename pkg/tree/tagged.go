package tree

// Tagged is one item of union-shaped content: a discriminant name paired
// with a payload value. The payload is reserved at creation and filled in
// place by the nested parse.
type Tagged struct {
	name    string
	payload Value
}

// NewTagged returns a tagged value with an unfilled payload.
func NewTagged(name string) *Tagged {
	return &Tagged{name: name}
}

// Name returns the discriminant.
func (t *Tagged) Name() string { return t.name }

// Value returns the payload.
func (t *Tagged) Value() Value { return t.payload }
