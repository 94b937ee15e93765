package xmltree_test

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"

	"github.com/jacoelho/xmltree"
	"github.com/jacoelho/xmltree/errors"
	"github.com/jacoelho/xmltree/pkg/schemadef"
	"github.com/jacoelho/xmltree/pkg/tree"
)

func indexSchema() *schemadef.Schema {
	return &schemadef.Schema{
		Roots: []schemadef.Root{{Name: "doxygenindex", Type: "index"}},
		Types: []schemadef.Type{
			{
				Name: "index",
				Attributes: []schemadef.Attribute{
					{Name: "version", Type: schemadef.TypeString},
				},
				Children: []schemadef.Child{
					{Name: "compound", Field: "compounds", Type: "compound", Repeated: true},
				},
			},
			{
				Name: "compound",
				Attributes: []schemadef.Attribute{
					{Name: "refid", Type: schemadef.TypeString},
					{Name: "kind", Type: "CompoundKind"},
				},
				Children: []schemadef.Child{
					{Name: "name", Type: schemadef.TypeString},
					{Name: "brief", Type: "para", Optional: true},
				},
			},
			{
				Name:      "para",
				Shape:     schemadef.ShapeUnion,
				AllowText: true,
				Content: []schemadef.ContentItem{
					{Name: "bold", Type: schemadef.TypeString},
					{Name: "sp", Type: schemadef.TypeChar},
				},
			},
		},
		Enums: []schemadef.Enum{
			{Name: "CompoundKind", Members: []schemadef.EnumMember{
				{Token: "class"}, {Token: "struct"}, {Token: "union"},
				{Token: "namespace"}, {Token: "file"}, {Token: "dir"},
				{Token: "group"}, {Token: "page"},
			}},
		},
	}
}

const indexDoc = `<?xml version="1.0" encoding="UTF-8"?>
<doxygenindex version="1.9.8">
  <compound refid="classfoo" kind="class">
    <name>Foo</name>
    <brief>see <bold>Bar</bold><sp value="33"/> instead</brief>
  </compound>
  <compound refid="structbar" kind="struct">
    <name>Bar</name>
  </compound>
</doxygenindex>
`

func compileIndex(t *testing.T) *xmltree.Engine {
	t.Helper()
	engine, err := xmltree.Compile(indexSchema())
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	return engine
}

// flatten renders a parsed tree into a comparable form.
func flatten(v tree.Value) any {
	switch n := v.(type) {
	case *tree.Node:
		out := map[string]any{"!type": n.TypeName()}
		for i := 0; i < n.NumFields(); i++ {
			out[n.Meta().Fields[i]] = flatten(n.Field(i))
		}
		if c := n.Content(); c != nil {
			var items []any
			for item := range c.All() {
				items = append(items, flatten(item))
			}
			out["!content"] = items
		}
		return out
	case *tree.List:
		items := make([]any, 0, n.Len())
		for item := range n.All() {
			items = append(items, flatten(item))
		}
		return items
	case *tree.Tagged:
		return map[string]any{"!tag": n.Name(), "!value": flatten(n.Value())}
	case *tree.Row:
		items := make([]any, 0, n.Len())
		for i := 0; i < n.Len(); i++ {
			items = append(items, flatten(n.At(i)))
		}
		return items
	default:
		return v
	}
}

func TestParseDocument(t *testing.T) {
	engine := compileIndex(t)
	res, err := engine.Parse(strings.NewReader(indexDoc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if res.Kind != "doxygenindex" {
		t.Fatalf("Kind = %q, want %q", res.Kind, "doxygenindex")
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("warnings = %v, want none", res.Warnings)
	}

	want := map[string]any{
		"!type":   "index",
		"version": "1.9.8",
		"compounds": []any{
			map[string]any{
				"!type": "compound",
				"refid": "classfoo",
				"kind":  tree.EnumValue{Type: "CompoundKind", Name: "class", Token: "class"},
				"name":  "Foo",
				"brief": map[string]any{
					"!type": "para",
					"!content": []any{
						"see ",
						map[string]any{"!tag": "bold", "!value": "Bar"},
						map[string]any{"!tag": "sp", "!value": "!"},
						" instead",
					},
				},
			},
			map[string]any{
				"!type": "compound",
				"refid": "structbar",
				"kind":  tree.EnumValue{Type: "CompoundKind", Name: "struct", Token: "struct"},
				"name":  "Bar",
				"brief": tree.Absent,
			},
		},
	}
	if diff := cmp.Diff(want, flatten(res.Value)); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestParseBytesChunkedEquivalence(t *testing.T) {
	engine := compileIndex(t)

	whole, err := engine.ParseBytes([]byte(indexDoc))
	if err != nil {
		t.Fatalf("ParseBytes() error: %v", err)
	}
	chunked, err := engine.Parse(strings.NewReader(indexDoc), xmltree.WithChunkSize(1))
	if err != nil {
		t.Fatalf("Parse(chunked) error: %v", err)
	}
	if diff := cmp.Diff(flatten(whole.Value), flatten(chunked.Value)); diff != "" {
		t.Fatalf("chunked parse differs (-whole +chunked):\n%s", diff)
	}
}

func TestParseByteOrderMark(t *testing.T) {
	engine := compileIndex(t)
	doc := "\xEF\xBB\xBF" + indexDoc
	if _, err := engine.Parse(strings.NewReader(doc)); err != nil {
		t.Fatalf("Parse() with BOM error: %v", err)
	}
}

func TestParseMalformed(t *testing.T) {
	engine := compileIndex(t)
	_, err := engine.Parse(strings.NewReader(`<doxygenindex version="1"><unknown></doxygenindex>`))
	if !errors.IsTokenizer(err) {
		t.Fatalf("err = %v, want tokenizer error", err)
	}
	pe, _ := errors.AsParseError(err)
	if pe.Line != 1 {
		t.Fatalf("line = %d, want 1", pe.Line)
	}
}

func TestParseValidationError(t *testing.T) {
	engine := compileIndex(t)
	doc := `<doxygenindex version="1">
  <compound refid="x" kind="class">
  </compound>
</doxygenindex>`
	_, err := engine.Parse(strings.NewReader(doc))
	if !errors.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
	pe, _ := errors.AsParseError(err)
	if want := `Error on line 3: missing "name" child`; pe.Error() != want {
		t.Fatalf("error = %q, want %q", pe.Error(), want)
	}
}

func TestParseWarnings(t *testing.T) {
	engine := compileIndex(t)
	doc := `<doxygenindex version="1" extra="x">
  <unknown><nested/></unknown>
  <compound refid="x" kind="class"><name>X</name></compound>
</doxygenindex>`

	var seen []errors.Warning
	res, err := engine.Parse(strings.NewReader(doc), xmltree.WithWarningHandler(func(w errors.Warning) error {
		seen = append(seen, w)
		return nil
	}))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if diff := cmp.Diff(res.Warnings, seen); diff != "" {
		t.Fatalf("handler and result disagree:\n%s", diff)
	}
	if len(res.Warnings) != 2 {
		t.Fatalf("warnings = %v, want 2", res.Warnings)
	}
	if got := res.Warnings[0].String(); got != `Warning on line 1: unexpected attribute "extra"` {
		t.Fatalf("warning[0] = %q", got)
	}
	if got := res.Warnings[1].String(); got != `Warning on line 2: unexpected element "unknown"` {
		t.Fatalf("warning[1] = %q", got)
	}
}

func TestParseEscalateWarnings(t *testing.T) {
	engine := compileIndex(t)
	doc := `<doxygenindex version="1" extra="x"></doxygenindex>`
	_, err := engine.Parse(strings.NewReader(doc), xmltree.WithEscalateWarnings())
	pe, ok := errors.AsParseError(err)
	if !ok || pe.Code != errors.CodeWarnEscalated {
		t.Fatalf("err = %v, want escalated warning", err)
	}
	if pe.Message != `unexpected attribute "extra"` {
		t.Fatalf("message = %q", pe.Message)
	}
}

func TestParseWarningLogger(t *testing.T) {
	engine := compileIndex(t)
	logger, hook := logrustest.NewNullLogger()
	doc := `<doxygenindex version="1">
  <bogus/>
  <compound refid="x" kind="class"><name>X</name></compound>
</doxygenindex>`
	if _, err := engine.Parse(strings.NewReader(doc), xmltree.WithWarningLogger(logger)); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	entries := hook.AllEntries()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Level != logrus.WarnLevel {
		t.Fatalf("level = %v, want warn", e.Level)
	}
	if e.Message != `unexpected element "bogus"` {
		t.Fatalf("message = %q", e.Message)
	}
	if e.Data["line"] != 2 || e.Data["code"] != string(errors.CodeWarnUnexpectedElement) {
		t.Fatalf("fields = %v", e.Data)
	}
}

func TestParseMaxDepth(t *testing.T) {
	engine := compileIndex(t)
	_, err := engine.Parse(strings.NewReader(indexDoc), xmltree.WithMaxDepth(2))
	if !errors.IsResource(err) {
		t.Fatalf("err = %v, want resource error", err)
	}
}

func TestParseDeclaredEncoding(t *testing.T) {
	engine := compileIndex(t)
	doc := `<?xml version="1.0" encoding="iso-8859-1"?>
<doxygenindex version="1"><compound refid="x" kind="class"><name>X</name></compound></doxygenindex>`

	if _, err := engine.Parse(strings.NewReader(doc)); err == nil {
		t.Fatal("Parse() error = nil, want charset error")
	}

	identity := func(charset string, input io.Reader) (io.Reader, error) {
		if charset != "iso-8859-1" {
			return nil, fmt.Errorf("unexpected charset %q", charset)
		}
		return input, nil
	}
	if _, err := engine.Parse(strings.NewReader(doc), xmltree.WithCharsetReader(identity)); err != nil {
		t.Fatalf("Parse() with charset reader error: %v", err)
	}
}

func TestConcurrentParses(t *testing.T) {
	engine := compileIndex(t)
	var wg sync.WaitGroup
	errCh := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if _, err := engine.Parse(strings.NewReader(indexDoc)); err != nil {
					errCh <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent Parse() error: %v", err)
	}
}

func TestEngineNewNode(t *testing.T) {
	engine := compileIndex(t)

	n, err := engine.NewNode("compound", nil,
		[]tree.Value{"classfoo"},
		xmltree.Keyword{Name: "kind", Value: tree.EnumValue{Type: "CompoundKind", Name: "class", Token: "class"}},
		xmltree.Keyword{Name: "name", Value: "Foo"})
	if err != nil {
		t.Fatalf("NewNode() error: %v", err)
	}
	if got, _ := n.FieldByName("refid"); got != "classfoo" {
		t.Fatalf("refid = %v, want %q", got, "classfoo")
	}
	if got, _ := n.FieldByName("brief"); got != tree.Absent {
		t.Fatalf("brief = %v, want Absent", got)
	}

	if _, err := engine.NewNode("nosuch", nil, nil); err == nil {
		t.Fatal("NewNode(nosuch) error = nil")
	}
}
