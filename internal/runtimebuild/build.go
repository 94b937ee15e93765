// Package runtimebuild compiles a declarative schema description into the
// immutable runtime tables parse sessions dispatch on: it resolves type
// references, flattens inheritance chains, collects the global name sets,
// and generates the perfect-hash tables and dense per-type dispatch arrays.
package runtimebuild

import (
	"fmt"
	"slices"

	"github.com/jacoelho/xmltree/internal/mph"
	"github.com/jacoelho/xmltree/internal/runtime"
	"github.com/jacoelho/xmltree/pkg/schemadef"
	"github.com/jacoelho/xmltree/pkg/tree"
)

// hashSeed keeps generated tables reproducible across builds of the same
// description.
const hashSeed = 0x786d6c74726565 // "xmltree"

type builder struct {
	def       *schemadef.Schema
	typeIDs   map[string]runtime.TypeID
	enumIDs   map[string]runtime.EnumID
	charIDs   map[string]runtime.EnumID
	flattened map[string]*flatType
}

type flatType struct {
	attrs    []schemadef.Attribute
	children []schemadef.Child
	content  []schemadef.ContentItem
	fields   []string
	shape    schemadef.ContentShape
	allow    bool
	otherErr bool
}

// Build compiles def. The returned schema is immutable and safe for
// concurrent parses.
func Build(def *schemadef.Schema) (*runtime.Schema, error) {
	if def == nil {
		return nil, fmt.Errorf("schema build: nil description")
	}
	if len(def.Roots) == 0 {
		return nil, fmt.Errorf("schema build: no root elements declared")
	}

	b := &builder{
		def:       def,
		typeIDs:   make(map[string]runtime.TypeID, len(def.Types)),
		enumIDs:   make(map[string]runtime.EnumID, len(def.Enums)),
		charIDs:   make(map[string]runtime.EnumID, len(def.CharEnums)),
		flattened: make(map[string]*flatType, len(def.Types)),
	}
	if err := b.index(); err != nil {
		return nil, err
	}
	for i := range def.Types {
		if _, err := b.flatten(def.Types[i].Name, nil); err != nil {
			return nil, err
		}
	}

	s := &runtime.Schema{}
	if err := b.buildEnums(s); err != nil {
		return nil, err
	}
	if err := b.buildNameTables(s); err != nil {
		return nil, err
	}
	if err := b.buildTypes(s); err != nil {
		return nil, err
	}
	if err := b.buildRoots(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (b *builder) index() error {
	for i := range b.def.Types {
		name := b.def.Types[i].Name
		if name == "" {
			return fmt.Errorf("schema build: type with empty name")
		}
		if _, dup := b.typeIDs[name]; dup {
			return fmt.Errorf("schema build: duplicate type %q", name)
		}
		b.typeIDs[name] = runtime.TypeID(i)
	}
	for i := range b.def.Enums {
		name := b.def.Enums[i].Name
		if _, clash := b.typeIDs[name]; clash {
			return fmt.Errorf("schema build: enum %q clashes with a type name", name)
		}
		if _, dup := b.enumIDs[name]; dup {
			return fmt.Errorf("schema build: duplicate enum %q", name)
		}
		b.enumIDs[name] = runtime.EnumID(i)
	}
	for i := range b.def.CharEnums {
		name := b.def.CharEnums[i].Name
		if _, dup := b.charIDs[name]; dup {
			return fmt.Errorf("schema build: duplicate char enum %q", name)
		}
		b.charIDs[name] = runtime.EnumID(i)
	}
	return nil
}

func (b *builder) typeDef(name string) *schemadef.Type {
	id, ok := b.typeIDs[name]
	if !ok {
		return nil
	}
	return &b.def.Types[id]
}

// flatten resolves a type's inheritance chain into one flat rule set,
// base fields first. chain guards against inheritance cycles.
func (b *builder) flatten(name string, chain []string) (*flatType, error) {
	if ft, done := b.flattened[name]; done {
		return ft, nil
	}
	if slices.Contains(chain, name) {
		return nil, fmt.Errorf("schema build: inheritance cycle through %q", name)
	}
	td := b.typeDef(name)
	if td == nil {
		return nil, fmt.Errorf("schema build: unknown type %q", name)
	}

	ft := &flatType{
		shape:    td.Shape,
		allow:    td.AllowText,
		otherErr: td.OtherAttrError,
	}
	chain = append(chain, name)
	for _, base := range td.Bases {
		bft, err := b.flatten(base, chain)
		if err != nil {
			return nil, err
		}
		ft.attrs = append(ft.attrs, bft.attrs...)
		ft.children = append(ft.children, bft.children...)
		ft.content = append(ft.content, bft.content...)
		ft.allow = ft.allow || bft.allow
		if bft.shape != "" {
			if ft.shape != "" && ft.shape != bft.shape {
				return nil, fmt.Errorf("schema build: %q mixes content shapes %q and %q", name, ft.shape, bft.shape)
			}
			ft.shape = bft.shape
		}
	}
	ft.attrs = append(ft.attrs, td.Attributes...)
	ft.children = append(ft.children, td.Children...)
	ft.content = append(ft.content, td.Content...)

	seen := make(map[string]struct{})
	for _, a := range ft.attrs {
		if _, dup := seen[a.FieldName()]; dup {
			return nil, fmt.Errorf("schema build: field %q appears more than once in %q", a.FieldName(), name)
		}
		seen[a.FieldName()] = struct{}{}
		ft.fields = append(ft.fields, a.FieldName())
	}
	for _, c := range ft.children {
		if _, dup := seen[c.FieldName()]; dup {
			return nil, fmt.Errorf("schema build: field %q appears more than once in %q", c.FieldName(), name)
		}
		seen[c.FieldName()] = struct{}{}
		ft.fields = append(ft.fields, c.FieldName())
	}

	if len(ft.content) > 0 && ft.shape == "" {
		return nil, fmt.Errorf("schema build: %q declares content without a shape", name)
	}
	if len(ft.content) == 0 && ft.shape != "" {
		return nil, fmt.Errorf("schema build: %q declares shape %q without content", name, ft.shape)
	}
	if ft.allow && ft.shape == "" {
		return nil, fmt.Errorf("schema build: %q allows text without content", name)
	}
	names := make(map[string]struct{})
	for _, it := range ft.content {
		if _, dup := names[it.Name]; dup {
			return nil, fmt.Errorf("schema build: content name %q appears more than once in %q", it.Name, name)
		}
		names[it.Name] = struct{}{}
	}

	b.flattened[name] = ft
	return ft, nil
}

func (b *builder) buildEnums(s *runtime.Schema) error {
	s.Enums = make([]runtime.Enum, len(b.def.Enums))
	for i, e := range b.def.Enums {
		if len(e.Members) == 0 {
			return fmt.Errorf("schema build: enum %q has no members", e.Name)
		}
		tokens := make([]string, len(e.Members))
		members := make([]tree.EnumValue, len(e.Members))
		for j, m := range e.Members {
			tokens[j] = m.Token
			members[j] = tree.EnumValue{Type: e.Name, Name: m.Identifier(), Token: m.Token}
		}
		table, err := mph.Generate(tokens, hashSeed+uint64(i))
		if err != nil {
			return fmt.Errorf("schema build: enum %q: %w", e.Name, err)
		}
		s.Enums[i] = runtime.Enum{Name: e.Name, Members: members, Table: table}
	}
	s.CharEnums = make([]runtime.CharEnum, len(b.def.CharEnums))
	for i, e := range b.def.CharEnums {
		if e.Values == "" {
			return fmt.Errorf("schema build: char enum %q has no values", e.Name)
		}
		s.CharEnums[i] = runtime.CharEnum{Name: e.Name, Values: e.Values}
	}
	return nil
}

// buildNameTables collects the global element, attribute, and field name
// sets and generates one independent hash table for each.
func (b *builder) buildNameTables(s *runtime.Schema) error {
	elements := make(map[string]struct{})
	attributes := make(map[string]struct{})
	fields := make(map[string]struct{})

	for _, r := range b.def.Roots {
		elements[r.Name] = struct{}{}
	}
	for _, ft := range b.flattened {
		for _, a := range ft.attrs {
			attributes[a.Name] = struct{}{}
		}
		for _, c := range ft.children {
			elements[c.Name] = struct{}{}
		}
		for _, it := range ft.content {
			elements[it.Name] = struct{}{}
		}
		for _, f := range ft.fields {
			fields[f] = struct{}{}
		}
	}

	var err error
	if s.ElementNames, err = nameTable(elements, hashSeed+101); err != nil {
		return err
	}
	if len(attributes) > 0 {
		if s.AttributeNames, err = nameTable(attributes, hashSeed+102); err != nil {
			return err
		}
	}
	if len(fields) > 0 {
		if s.FieldNames, err = nameTable(fields, hashSeed+103); err != nil {
			return err
		}
	}
	return nil
}

func nameTable(set map[string]struct{}, seed uint64) (mph.Table, error) {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	t, err := mph.Generate(keys, seed)
	if err != nil {
		return mph.Table{}, fmt.Errorf("schema build: %w", err)
	}
	return t, nil
}

func (b *builder) buildTypes(s *runtime.Schema) error {
	s.Types = make([]runtime.ElementType, len(b.def.Types))
	for i := range b.def.Types {
		name := b.def.Types[i].Name
		ft := b.flattened[name]
		et := &s.Types[i]
		et.Name = name
		et.Meta = &tree.NodeMeta{TypeName: name, Fields: ft.fields}
		et.AllowText = ft.allow
		if ft.otherErr {
			et.OtherAttr = runtime.OtherAttrError
		}
		switch ft.shape {
		case "":
			et.Shape = runtime.ContentNone
		case schemadef.ShapeBare:
			et.Shape = runtime.ContentBare
		case schemadef.ShapeTuple:
			et.Shape = runtime.ContentTuple
		case schemadef.ShapeUnion:
			et.Shape = runtime.ContentUnion
		default:
			return fmt.Errorf("schema build: %q has unknown content shape %q", name, ft.shape)
		}

		if err := b.buildAttrRules(s, et, ft); err != nil {
			return err
		}
		if err := b.buildChildRules(s, et, ft); err != nil {
			return err
		}
		if err := b.buildContentRules(s, et, ft); err != nil {
			return err
		}
		b.buildFieldTable(s, et, ft)
	}
	return nil
}

func (b *builder) buildAttrRules(s *runtime.Schema, et *runtime.ElementType, ft *flatType) error {
	et.Attrs = make([]runtime.AttrRule, len(ft.attrs))
	et.AttrByCode = denseTable(s.AttributeNames.Len())
	for i, a := range ft.attrs {
		rule := runtime.AttrRule{Name: a.Name, Field: et.Meta.FieldIndex(a.FieldName()), Optional: a.Optional}
		switch a.Type {
		case schemadef.TypeString:
			rule.Coerce = runtime.CoerceString
		case schemadef.TypeInteger:
			rule.Coerce = runtime.CoerceInt
		case schemadef.TypeBool:
			rule.Coerce = runtime.CoerceBool
		default:
			if id, ok := b.enumIDs[a.Type]; ok {
				rule.Coerce = runtime.CoerceEnum
				rule.Enum = id
			} else if id, ok := b.charIDs[a.Type]; ok {
				rule.Coerce = runtime.CoerceCharEnum
				rule.Enum = id
			} else {
				return fmt.Errorf("schema build: attribute %q of %q has unknown type %q", a.Name, et.Name, a.Type)
			}
		}
		et.Attrs[i] = rule
		code := s.AttributeNames.Lookup(a.Name)
		if et.AttrByCode[code] >= 0 {
			return fmt.Errorf("schema build: attribute %q declared twice in %q", a.Name, et.Name)
		}
		et.AttrByCode[code] = int16(i)
	}
	return nil
}

func (b *builder) buildChildRules(s *runtime.Schema, et *runtime.ElementType, ft *flatType) error {
	et.Children = make([]runtime.ChildRule, len(ft.children))
	et.ChildByCode = denseTable(s.ElementNames.Len())
	for i, c := range ft.children {
		target, err := b.resolveTarget(c.Type, et.Name, c.Name)
		if err != nil {
			return err
		}
		et.Children[i] = runtime.ChildRule{
			Name:     c.Name,
			Field:    et.Meta.FieldIndex(c.FieldName()),
			Target:   target,
			Repeated: c.Repeated,
			Optional: c.Optional,
		}
		code := s.ElementNames.Lookup(c.Name)
		if et.ChildByCode[code] >= 0 {
			return fmt.Errorf("schema build: child %q declared twice in %q", c.Name, et.Name)
		}
		et.ChildByCode[code] = int16(i)
	}
	return nil
}

func (b *builder) buildContentRules(s *runtime.Schema, et *runtime.ElementType, ft *flatType) error {
	et.Content = make([]runtime.ContentRule, len(ft.content))
	et.ContentByCode = denseTable(s.ElementNames.Len())
	for i, it := range ft.content {
		target, err := b.resolveTarget(it.Type, et.Name, it.Name)
		if err != nil {
			return err
		}
		et.Content[i] = runtime.ContentRule{Name: it.Name, Target: target, TupleIndex: i}
		code := s.ElementNames.Lookup(it.Name)
		if et.ChildByCode[code] >= 0 {
			return fmt.Errorf("schema build: %q is both child and content of %q", it.Name, et.Name)
		}
		if et.ContentByCode[code] >= 0 {
			return fmt.Errorf("schema build: content %q declared twice in %q", it.Name, et.Name)
		}
		et.ContentByCode[code] = int16(i)
	}
	if et.Shape == runtime.ContentTuple {
		fields := make([]string, len(ft.content))
		for i, it := range ft.content {
			fields[i] = it.Name
		}
		et.RowMeta = &tree.RowMeta{TypeName: et.Name, Fields: fields}
	}
	return nil
}

func (b *builder) buildFieldTable(s *runtime.Schema, et *runtime.ElementType, ft *flatType) {
	et.FieldByCode = denseTable(s.FieldNames.Len())
	for slot, f := range ft.fields {
		et.FieldByCode[s.FieldNames.Lookup(f)] = int16(slot)
	}
}

// resolveTarget maps a type reference to its parse target.
func (b *builder) resolveTarget(ref, owner, child string) (runtime.TypeRef, error) {
	switch ref {
	case schemadef.TypeString:
		return runtime.TypeRef{Kind: runtime.TargetString}, nil
	case schemadef.TypeEmpty:
		return runtime.TypeRef{Kind: runtime.TargetEmpty}, nil
	case schemadef.TypeChar:
		return runtime.TypeRef{Kind: runtime.TargetChar}, nil
	case schemadef.TypeInteger, schemadef.TypeBool:
		return runtime.TypeRef{}, fmt.Errorf("schema build: %q of %q: type %q is attribute-only", child, owner, ref)
	}
	if id, ok := b.typeIDs[ref]; ok {
		return runtime.TypeRef{Kind: runtime.TargetElement, Type: id}, nil
	}
	if id, ok := b.enumIDs[ref]; ok {
		return runtime.TypeRef{Kind: runtime.TargetEnum, Enum: id}, nil
	}
	if id, ok := b.charIDs[ref]; ok {
		return runtime.TypeRef{Kind: runtime.TargetCharEnum, Enum: id}, nil
	}
	return runtime.TypeRef{}, fmt.Errorf("schema build: %q of %q references unknown type %q", child, owner, ref)
}

func (b *builder) buildRoots(s *runtime.Schema) error {
	s.Roots = make([]runtime.Root, len(b.def.Roots))
	s.RootByCode = denseTable(s.ElementNames.Len())
	for i, r := range b.def.Roots {
		id, ok := b.typeIDs[r.Type]
		if !ok {
			return fmt.Errorf("schema build: root %q references unknown type %q", r.Name, r.Type)
		}
		s.Roots[i] = runtime.Root{Name: r.Name, Type: id}
		code := s.ElementNames.Lookup(r.Name)
		if s.RootByCode[code] >= 0 {
			return fmt.Errorf("schema build: duplicate root element %q", r.Name)
		}
		s.RootByCode[code] = int16(i)
	}
	return nil
}

func denseTable(n int) []int16 {
	t := make([]int16, n)
	for i := range t {
		t[i] = -1
	}
	return t
}
