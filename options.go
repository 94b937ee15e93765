package xmltree

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/jacoelho/xmltree/errors"
)

// CompileOption configures schema compilation.
type CompileOption interface{ apply(*compileOptions) }

// ParseOption configures one parse.
type ParseOption interface{ apply(*parseOptions) }

type compileOptions struct {
	maxDepth int
}

type parseOptions struct {
	warn          func(errors.Warning) error
	logger        logrus.FieldLogger
	escalate      bool
	maxDepth      int
	maxDepthSet   bool
	chunkSize     int
	charsetReader func(charset string, input io.Reader) (io.Reader, error)
}

type compileOptionFunc func(*compileOptions)

func (f compileOptionFunc) apply(cfg *compileOptions) {
	if cfg == nil {
		return
	}
	f(cfg)
}

type parseOptionFunc func(*parseOptions)

func (f parseOptionFunc) apply(cfg *parseOptions) {
	if cfg == nil {
		return
	}
	f(cfg)
}

// WithDefaultMaxDepth sets the engine-wide bound on open elements.
// Zero means unbounded.
func WithDefaultMaxDepth(n int) CompileOption {
	return compileOptionFunc(func(cfg *compileOptions) {
		cfg.maxDepth = n
	})
}

// WithMaxDepth overrides the open-element bound for one parse.
func WithMaxDepth(n int) ParseOption {
	return parseOptionFunc(func(cfg *parseOptions) {
		cfg.maxDepth = n
		cfg.maxDepthSet = true
	})
}

// WithWarningHandler installs a warning observer. Returning a non-nil error
// from the handler escalates the warning and aborts the parse. Warnings are
// collected on the Result regardless of the handler.
func WithWarningHandler(h func(errors.Warning) error) ParseOption {
	return parseOptionFunc(func(cfg *parseOptions) {
		cfg.warn = h
	})
}

// WithWarningLogger logs each warning to the given logger at warn level,
// carrying the warning code and input line as fields.
func WithWarningLogger(l logrus.FieldLogger) ParseOption {
	return parseOptionFunc(func(cfg *parseOptions) {
		cfg.logger = l
	})
}

// WithEscalateWarnings turns every warning into a fatal parse error.
func WithEscalateWarnings() ParseOption {
	return parseOptionFunc(func(cfg *parseOptions) {
		cfg.escalate = true
	})
}

// WithChunkSize bounds the size of the reads handed to the tokenizer.
// Values below 1 are ignored.
func WithChunkSize(n int) ParseOption {
	return parseOptionFunc(func(cfg *parseOptions) {
		if n > 0 {
			cfg.chunkSize = n
		}
	})
}

// WithCharsetReader installs a converter for documents that declare an
// encoding other than UTF-8.
func WithCharsetReader(f func(charset string, input io.Reader) (io.Reader, error)) ParseOption {
	return parseOptionFunc(func(cfg *parseOptions) {
		cfg.charsetReader = f
	})
}

func applyCompileOptions(opts []CompileOption) compileOptions {
	var cfg compileOptions
	for _, o := range opts {
		if o != nil {
			o.apply(&cfg)
		}
	}
	return cfg
}

func applyParseOptions(opts []ParseOption) parseOptions {
	cfg := parseOptions{chunkSize: defaultChunkSize}
	for _, o := range opts {
		if o != nil {
			o.apply(&cfg)
		}
	}
	return cfg
}
