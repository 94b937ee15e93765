// Package xmltree parses XML documents against a compiled schema into
// immutable typed trees. A schema description is compiled once into flat
// dispatch tables; the resulting engine is safe for concurrent use and
// pools per-document parse sessions.
package xmltree

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jacoelho/xmltree/errors"
	"github.com/jacoelho/xmltree/internal/parser"
	"github.com/jacoelho/xmltree/internal/runtime"
	"github.com/jacoelho/xmltree/internal/runtimebuild"
	"github.com/jacoelho/xmltree/pkg/schemadef"
	"github.com/jacoelho/xmltree/pkg/tree"
)

// Engine holds one compiled schema and parses many documents against it.
// It is safe for concurrent use by multiple goroutines.
type Engine struct {
	rt       *runtime.Schema
	maxDepth int
	pool     sync.Pool
}

// Result is the outcome of a successful parse.
type Result struct {
	// Kind is the root element name.
	Kind string
	// Value is the root node of the typed tree.
	Value tree.Value
	// Warnings lists the continuable diagnostics in document order.
	Warnings []errors.Warning
}

// Keyword assigns a record field by name in explicit node construction.
type Keyword struct {
	Name  string
	Value tree.Value
}

// Compile turns a schema description into an engine.
func Compile(def *schemadef.Schema, opts ...CompileOption) (*Engine, error) {
	cfg := applyCompileOptions(opts)
	rt, err := runtimebuild.Build(def)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return newEngine(rt, cfg.maxDepth), nil
}

// Parse reads one document and returns its typed tree.
func (e *Engine) Parse(r io.Reader, opts ...ParseOption) (*Result, error) {
	if e == nil || e.rt == nil {
		return nil, fmt.Errorf("parse: schema not compiled")
	}
	if r == nil {
		return nil, fmt.Errorf("parse: nil reader")
	}
	cfg := applyParseOptions(opts)
	return e.parse(r, &cfg)
}

// ParseBytes parses one in-memory document.
func (e *Engine) ParseBytes(data []byte, opts ...ParseOption) (*Result, error) {
	if e == nil || e.rt == nil {
		return nil, fmt.Errorf("parse: schema not compiled")
	}
	cfg := applyParseOptions(opts)
	return e.parse(bytes.NewReader(data), &cfg)
}

// NewNode constructs a sealed node of the named type without parsing.
// Positional values fill record fields in declared order; keywords fill the
// rest by name. Content is only accepted for list-shaped types.
func (e *Engine) NewNode(typeName string, content []tree.Value, positional []tree.Value, keywords ...Keyword) (*tree.Node, error) {
	if e == nil || e.rt == nil {
		return nil, fmt.Errorf("new node: schema not compiled")
	}
	id, ok := e.rt.TypeIDByName(typeName)
	if !ok {
		return nil, fmt.Errorf("new node: unknown type %q", typeName)
	}
	var kws []runtime.KeywordArg
	if len(keywords) > 0 {
		kws = make([]runtime.KeywordArg, len(keywords))
		for i, kw := range keywords {
			kws[i] = runtime.KeywordArg{Name: kw.Name, Value: kw.Value}
		}
	}
	return e.rt.NewNode(id, content, positional, kws)
}

func (e *Engine) parse(r io.Reader, cfg *parseOptions) (*Result, error) {
	var warnings []errors.Warning
	warn := func(w errors.Warning) error {
		warnings = append(warnings, w)
		if cfg.logger != nil {
			cfg.logger.WithFields(logrus.Fields{
				"code": string(w.Code),
				"line": w.Line,
			}).Warn(w.Message)
		}
		if cfg.warn != nil {
			if err := cfg.warn(w); err != nil {
				return err
			}
		}
		if cfg.escalate {
			return w.Escalate()
		}
		return nil
	}

	maxDepth := e.maxDepth
	if cfg.maxDepthSet {
		maxDepth = cfg.maxDepth
	}

	session := e.acquire(warn, maxDepth)
	defer e.release(session)

	doc, err := newDocumentReader(r, cfg.chunkSize)
	if err != nil {
		return nil, errors.NewTokenizer(0, "%v", err)
	}
	dec := xml.NewDecoder(doc)
	dec.CharsetReader = cfg.charsetReader

	if err := drive(dec, session); err != nil {
		return nil, err
	}
	root, err := session.Finish()
	if err != nil {
		return nil, err
	}
	return &Result{Kind: root.Name(), Value: root.Value(), Warnings: warnings}, nil
}

func newEngine(rt *runtime.Schema, maxDepth int) *Engine {
	e := &Engine{rt: rt, maxDepth: maxDepth}
	e.pool.New = func() any {
		return parser.NewSession(rt, nil, 0)
	}
	return e
}

func (e *Engine) acquire(warn parser.WarnFunc, maxDepth int) *parser.Session {
	session := e.pool.Get().(*parser.Session)
	session.SetWarnFunc(warn)
	session.SetMaxDepth(maxDepth)
	return session
}

func (e *Engine) release(s *parser.Session) {
	s.SetWarnFunc(nil)
	s.Reset()
	e.pool.Put(s)
}
