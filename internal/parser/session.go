// Package parser implements the schema-driven parse session: an explicit
// stack of parse frames fed by tokenizer events. Each open element owns one
// frame holding the node under construction and the slot the finished value
// lands in; dispatch, coercion, and validation all run off the compiled
// schema tables.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jacoelho/xmltree/errors"
	"github.com/jacoelho/xmltree/internal/runtime"
	"github.com/jacoelho/xmltree/pkg/tree"
)

// listHint is the initial capacity of content and repeated-child lists.
const listHint = 5

// Attr is one attribute as delivered by the tokenizer.
type Attr struct {
	Name  string
	Value string
}

// WarnFunc observes a continuable diagnostic. Returning a non-nil error
// escalates the warning and aborts the parse.
type WarnFunc func(errors.Warning) error

type frameKind uint8

const (
	frameElement frameKind = iota
	frameString
	frameEnum
	frameCharEnum
	// frameInert balances the stack for leaves whose value was stored
	// when the element opened.
	frameInert
)

// frame is the per-open-element parse state.
type frame struct {
	kind frameKind
	typ  *runtime.ElementType
	node *tree.Node
	dest tree.Slot
	enum runtime.EnumID
	acc  []byte
}

// Session consumes tokenizer events for one document and assembles the typed
// tree. A session is single-use between calls to Reset and is not safe for
// concurrent use. The first fatal error sticks: every later event returns it
// unchanged.
type Session struct {
	schema   *runtime.Schema
	warn     WarnFunc
	maxDepth int

	stack  frameStack
	line   int
	ignore int
	root   *tree.Tagged
	err    *errors.ParseError
}

// NewSession returns a session for one parse of schema. warn may be nil.
// maxDepth bounds the number of open elements; zero means unbounded.
func NewSession(schema *runtime.Schema, warn WarnFunc, maxDepth int) *Session {
	return &Session{schema: schema, warn: warn, maxDepth: maxDepth}
}

// Reset prepares the session for another document, keeping allocated stack
// blocks.
func (s *Session) Reset() {
	s.stack.reset()
	s.line = 0
	s.ignore = 0
	s.root = nil
	s.err = nil
}

// SetLine records the 1-based input line attached to subsequent diagnostics.
func (s *Session) SetLine(line int) { s.line = line }

// SetWarnFunc replaces the warning observer.
func (s *Session) SetWarnFunc(warn WarnFunc) { s.warn = warn }

// SetMaxDepth replaces the open-element bound.
func (s *Session) SetMaxDepth(n int) { s.maxDepth = n }

func (s *Session) failf(code errors.Code, format string, args ...any) error {
	s.err = errors.NewValidation(code, s.line, format, args...)
	return s.err
}

func (s *Session) warnf(code errors.Code, format string, args ...any) error {
	if s.warn == nil {
		return nil
	}
	w := errors.Warning{Code: code, Message: fmt.Sprintf(format, args...), Line: s.line}
	if s.warn(w) != nil {
		s.err = w.Escalate()
		return s.err
	}
	return nil
}

// StartElement handles an element-open event.
func (s *Session) StartElement(name string, attrs []Attr) error {
	if s.err != nil {
		return s.err
	}
	if s.ignore > 0 {
		s.ignore++
		return nil
	}
	if s.maxDepth > 0 && s.stack.depth >= s.maxDepth {
		s.err = errors.NewResource(errors.CodeDepthExceeded, s.line, "element nesting exceeds %d open elements", s.maxDepth)
		return s.err
	}

	code := s.schema.ElementNames.Lookup(name)
	f := s.stack.top()
	if f == nil {
		return s.startRoot(name, code, attrs)
	}
	if f.kind == frameElement {
		handled, err := s.startChild(f, code, attrs)
		if handled || err != nil {
			return err
		}
	}
	if err := s.warnf(errors.CodeWarnUnexpectedElement, "unexpected element %q", name); err != nil {
		return err
	}
	s.ignore = 1
	return nil
}

func (s *Session) startRoot(name string, code int, attrs []Attr) error {
	ri := s.schema.RootIndex(code)
	if ri < 0 {
		if err := s.warnf(errors.CodeWarnUnexpectedElement, "unexpected element %q", name); err != nil {
			return err
		}
		s.ignore = 1
		return nil
	}
	if s.root != nil {
		return s.failf(errors.CodeMultipleRoots, "cannot have more than one root element")
	}
	tg := tree.NewTagged(name)
	s.root = tg
	return s.startType(s.schema.Type(s.schema.Roots[ri].Type), tree.TaggedSlot(tg), attrs)
}

// startChild dispatches an element against the open frame's child and
// content rules. It reports false when neither table recognizes the name.
func (s *Session) startChild(f *frame, code int, attrs []Attr) (bool, error) {
	et := f.typ
	if ci := et.ChildIndex(code); ci >= 0 {
		rule := &et.Children[ci]
		var dest tree.Slot
		if rule.Repeated {
			dest = f.node.Field(rule.Field).(*tree.List).Reserve()
		} else {
			if f.node.Field(rule.Field) != nil {
				return true, s.failf(errors.CodeDuplicateElement, "%q cannot appear more than once in this context", rule.Name)
			}
			dest = tree.NodeSlot(f.node, rule.Field)
		}
		return true, s.startTarget(rule.Target, dest, attrs)
	}
	if et.Shape != runtime.ContentNone {
		if ki := et.ContentIndex(code); ki >= 0 {
			rule := &et.Content[ki]
			dest, err := s.contentSlot(f, rule)
			if err != nil {
				return true, err
			}
			return true, s.startTarget(rule.Target, dest, attrs)
		}
	}
	return false, nil
}

// contentSlot allocates the destination of one content item according to the
// open type's content shape.
func (s *Session) contentSlot(f *frame, rule *runtime.ContentRule) (tree.Slot, error) {
	content := f.node.Content()
	switch f.typ.Shape {
	case runtime.ContentTuple:
		return s.tupleSlot(f, rule)
	case runtime.ContentUnion:
		// A character leaf joins a trailing text run instead of getting
		// its own tagged entry.
		if rule.Target.Kind == runtime.TargetChar {
			if n := content.Len(); n > 0 {
				if _, ok := content.At(n - 1).(string); ok {
					return tree.ListSlot(content, n-1), nil
				}
			}
		}
		tg := tree.NewTagged(rule.Name)
		content.Append(tg)
		return tree.TaggedSlot(tg), nil
	default:
		return content.Reserve(), nil
	}
}

// tupleSlot places one tuple-content item. Rows fill in strictly ascending
// field order; a new row may open only once the previous row is complete.
func (s *Session) tupleSlot(f *frame, rule *runtime.ContentRule) (tree.Slot, error) {
	content := f.node.Content()
	fields := f.typ.RowMeta.Fields
	size := len(fields)
	i := rule.TupleIndex
	n := content.Len()

	if i == 0 {
		if n > 0 {
			if row, ok := content.At(n - 1).(*tree.Row); ok && !row.Filled(size - 1) {
				return tree.Slot{}, s.failf(errors.CodeTupleOrder,
					"%q element can only come after %q element or be the first in its group",
					fields[0], fields[size-1])
			}
		}
		row := tree.NewRow(f.typ.RowMeta)
		content.Append(row)
		return tree.RowSlot(row, 0), nil
	}
	if n > 0 {
		if row, ok := content.At(n - 1).(*tree.Row); ok && row.Filled(i - 1) {
			return tree.RowSlot(row, i), nil
		}
	}
	return tree.Slot{}, s.failf(errors.CodeTupleOrder,
		"%q element can only come after %q element", fields[i], fields[i-1])
}

// startTarget opens the frame a child or content rule parses into.
func (s *Session) startTarget(ref runtime.TypeRef, dest tree.Slot, attrs []Attr) error {
	switch ref.Kind {
	case runtime.TargetElement:
		return s.startType(s.schema.Type(ref.Type), dest, attrs)
	case runtime.TargetString:
		if err := s.warnAttrs(attrs); err != nil {
			return err
		}
		f := s.stack.push()
		f.kind = frameString
		f.dest = dest
		return nil
	case runtime.TargetEmpty:
		if err := s.warnAttrs(attrs); err != nil {
			return err
		}
		dest.Store(tree.Empty)
		s.stack.push().kind = frameInert
		return nil
	case runtime.TargetChar:
		return s.startChar(dest, attrs)
	case runtime.TargetEnum, runtime.TargetCharEnum:
		if err := s.warnAttrs(attrs); err != nil {
			return err
		}
		f := s.stack.push()
		if ref.Kind == runtime.TargetEnum {
			f.kind = frameEnum
		} else {
			f.kind = frameCharEnum
		}
		f.dest = dest
		f.enum = ref.Enum
		return nil
	}
	panic("parser: unknown target kind")
}

// startChar handles a character leaf: the "value" attribute names a code
// point in [0,127], defaulting to a space. When the destination already
// holds a text run the character is appended to it.
func (s *Session) startChar(dest tree.Slot, attrs []Attr) error {
	c := byte(' ')
	for i := range attrs {
		if attrs[i].Name != "value" {
			if err := s.warnf(errors.CodeWarnUnexpectedAttribute, "unexpected attribute %q", attrs[i].Name); err != nil {
				return err
			}
			continue
		}
		v, err := parseInt(attrs[i].Value)
		if err != nil {
			return s.failf(errors.CodeInvalidToken, "cannot parse integer")
		}
		if v < 0 || v > 127 {
			return s.failf(errors.CodeInvalidToken, `"value" must be between 0 and 127`)
		}
		c = byte(v)
	}
	if prev, ok := dest.Load().(string); ok {
		dest.Store(prev + string(rune(c)))
	} else {
		dest.Store(string(rune(c)))
	}
	s.stack.push().kind = frameInert
	return nil
}

// startType opens an element frame: the node is created and stored into its
// destination immediately, repeated-child lists are pre-created, attributes
// are coerced, and missing attributes are defaulted or rejected.
func (s *Session) startType(et *runtime.ElementType, dest tree.Slot, attrs []Attr) error {
	node := tree.NewNode(et.Meta, et.HasContentList(), listHint)
	dest.Store(node)

	for i := range et.Children {
		if et.Children[i].Repeated {
			tree.NodeSlot(node, et.Children[i].Field).Store(tree.NewList(listHint))
		}
	}

	for i := range attrs {
		if err := s.applyAttr(et, node, &attrs[i]); err != nil {
			return err
		}
	}
	for i := range et.Attrs {
		rule := &et.Attrs[i]
		if node.Field(rule.Field) != nil {
			continue
		}
		if !rule.Optional {
			return s.failf(errors.CodeMissingAttribute, "missing %q attribute", rule.Name)
		}
		tree.NodeSlot(node, rule.Field).Store(tree.Absent)
	}

	f := s.stack.push()
	f.kind = frameElement
	f.typ = et
	f.node = node
	f.dest = dest
	return nil
}

func (s *Session) applyAttr(et *runtime.ElementType, node *tree.Node, a *Attr) error {
	code := s.schema.AttributeNames.Lookup(a.Name)
	ai := et.AttrIndex(code)
	if ai < 0 {
		if et.OtherAttr == runtime.OtherAttrError {
			return s.failf(errors.CodeUnexpectedAttribute, "unexpected attribute %q", a.Name)
		}
		return s.warnf(errors.CodeWarnUnexpectedAttribute, "unexpected attribute %q", a.Name)
	}
	rule := &et.Attrs[ai]
	if node.Field(rule.Field) != nil {
		// First occurrence wins.
		return s.warnf(errors.CodeWarnDuplicateAttribute, "duplicate attribute %q", a.Name)
	}
	v, err := s.coerceAttr(rule, a)
	if err != nil {
		return err
	}
	tree.NodeSlot(node, rule.Field).Store(v)
	return nil
}

func (s *Session) coerceAttr(rule *runtime.AttrRule, a *Attr) (tree.Value, error) {
	switch rule.Coerce {
	case runtime.CoerceString:
		return a.Value, nil
	case runtime.CoerceInt:
		n, err := parseInt(a.Value)
		if err != nil {
			return nil, s.failf(errors.CodeInvalidToken, "cannot parse integer")
		}
		return n, nil
	case runtime.CoerceBool:
		switch a.Value {
		case "yes":
			return true, nil
		case "no":
			return false, nil
		}
		return nil, s.failf(errors.CodeInvalidToken, `%q must be "yes" or "no"`, a.Name)
	case runtime.CoerceEnum:
		ev, ok := s.schema.Enums[rule.Enum].Lookup(a.Value)
		if !ok {
			return nil, s.failf(errors.CodeInvalidEnum, "%q is not one of the allowed enumeration values", a.Value)
		}
		return ev, nil
	case runtime.CoerceCharEnum:
		return s.coerceCharEnum(rule.Enum, a.Value)
	}
	panic("parser: unknown coercion")
}

func (s *Session) coerceCharEnum(id runtime.EnumID, token string) (tree.Value, error) {
	if len(token) != 1 {
		return nil, s.failf(errors.CodeInvalidToken, "value must be a single character")
	}
	ce := &s.schema.CharEnums[id]
	if !ce.Contains(token[0]) {
		return nil, s.failf(errors.CodeInvalidEnum,
			"%q is not one of the allowed character values; must be one of %q", token, ce.Values)
	}
	return token, nil
}

func (s *Session) warnAttrs(attrs []Attr) error {
	for i := range attrs {
		if err := s.warnf(errors.CodeWarnUnexpectedAttribute, "unexpected attribute %q", attrs[i].Name); err != nil {
			return err
		}
	}
	return nil
}

// Text handles a character-data event. Runs may arrive split at arbitrary
// points; consecutive runs coalesce.
func (s *Session) Text(data string) error {
	if s.err != nil {
		return s.err
	}
	if s.ignore > 0 {
		return nil
	}
	if f := s.stack.top(); f != nil {
		switch f.kind {
		case frameString, frameEnum, frameCharEnum:
			f.acc = append(f.acc, data...)
			return nil
		case frameElement:
			if f.typ.AllowText {
				appendText(f.node.Content(), data)
				return nil
			}
		}
	}
	if isWhitespace(data) {
		return nil
	}
	return s.warnf(errors.CodeWarnUnexpectedText, "unexpected character data")
}

// appendText merges data with a trailing text run or starts a new one.
func appendText(content *tree.List, data string) {
	if n := content.Len(); n > 0 {
		if prev, ok := content.At(n - 1).(string); ok {
			tree.ListSlot(content, n-1).Store(prev + data)
			return
		}
	}
	content.Append(data)
}

// EndElement handles an element-close event. The tokenizer guarantees tag
// balance, so the name is not re-checked here.
func (s *Session) EndElement(string) error {
	if s.err != nil {
		return s.err
	}
	if s.ignore > 0 {
		s.ignore--
		return nil
	}
	f := s.stack.top()
	if f == nil {
		return nil
	}
	if err := s.finishFrame(f); err != nil {
		return err
	}
	s.stack.pop()
	return nil
}

func (s *Session) finishFrame(f *frame) error {
	switch f.kind {
	case frameString:
		f.dest.Store(string(f.acc))
	case frameEnum:
		token := string(f.acc)
		ev, ok := s.schema.Enums[f.enum].Lookup(token)
		if !ok {
			return s.failf(errors.CodeInvalidEnum, "%q is not one of the allowed enumeration values", token)
		}
		f.dest.Store(ev)
	case frameCharEnum:
		v, err := s.coerceCharEnum(f.enum, string(f.acc))
		if err != nil {
			return err
		}
		f.dest.Store(v)
	case frameElement:
		return s.finishElement(f)
	}
	return nil
}

// finishElement applies the end-of-element checks: required children,
// optional-child defaulting, and tuple-row completeness, then seals the node.
func (s *Session) finishElement(f *frame) error {
	et := f.typ
	for i := range et.Children {
		rule := &et.Children[i]
		if rule.Repeated {
			if !rule.Optional && f.node.Field(rule.Field).(*tree.List).Len() < 1 {
				return s.failf(errors.CodeEmptyList, "at least one %q child is required", rule.Name)
			}
			continue
		}
		if f.node.Field(rule.Field) == nil {
			if !rule.Optional {
				return s.failf(errors.CodeMissingElement, "missing %q child", rule.Name)
			}
			tree.NodeSlot(f.node, rule.Field).Store(tree.Absent)
		}
	}
	if et.Shape == runtime.ContentTuple && len(et.Content) > 1 {
		if err := s.checkTupleComplete(f); err != nil {
			return err
		}
	}
	f.node.Seal()
	return nil
}

func (s *Session) checkTupleComplete(f *frame) error {
	content := f.node.Content()
	n := content.Len()
	if n == 0 {
		return nil
	}
	row, ok := content.At(n - 1).(*tree.Row)
	if !ok {
		return nil
	}
	fields := f.typ.RowMeta.Fields
	i := len(fields)
	for i > 0 && !row.Filled(i - 1) {
		i--
	}
	if i != len(fields) {
		return s.failf(errors.CodeTupleIncomplete, "%q element must come after %q element", fields[i], fields[i-1])
	}
	return nil
}

// Finish ends the document and returns the root value tagged with the root
// element name.
func (s *Session) Finish() (*tree.Tagged, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.root == nil {
		s.err = errors.NewValidation(errors.CodeNoRoot, 0, "document without a recognized root element")
		return nil, s.err
	}
	return s.root, nil
}

func parseInt(s string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return int(n), err
}

func isWhitespace(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r', '\v':
		default:
			return false
		}
	}
	return true
}
