// Package errors defines the diagnostic types produced while parsing
// schema-described XML documents: fatal parse errors and continuable
// warnings, both carrying best-effort line numbers.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a fatal parse error.
type Kind uint8

const (
	// KindTokenizer indicates malformed XML reported by the tokenizer.
	KindTokenizer Kind = iota
	// KindValidation indicates a schema-constraint violation.
	KindValidation
	// KindResource indicates an exhausted parser resource.
	KindResource
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindTokenizer:
		return "tokenizer"
	case KindValidation:
		return "validation"
	case KindResource:
		return "resource"
	}
	return "unknown"
}

// Code identifies a specific error or warning condition.
type Code string

const (
	// CodeMalformed indicates the tokenizer rejected the input.
	CodeMalformed Code = "xml-malformed"
	// CodeEncoding indicates input text could not be normalized to UTF-8.
	CodeEncoding Code = "xml-encoding"

	// CodeMissingAttribute indicates a required attribute is absent.
	CodeMissingAttribute Code = "missing-attribute"
	// CodeInvalidToken indicates an attribute or leaf token failed coercion.
	CodeInvalidToken Code = "invalid-token"
	// CodeInvalidEnum indicates a token matched no enumeration member.
	CodeInvalidEnum Code = "invalid-enum"
	// CodeDuplicateElement indicates a non-repeatable child appeared twice.
	CodeDuplicateElement Code = "duplicate-element"
	// CodeMissingElement indicates a required singular child is absent.
	CodeMissingElement Code = "missing-element"
	// CodeEmptyList indicates a required repeated child appeared zero times.
	CodeEmptyList Code = "empty-list-element"
	// CodeTupleOrder indicates a tuple-sequence field arrived out of order.
	CodeTupleOrder Code = "tuple-order"
	// CodeTupleIncomplete indicates a tuple-sequence ended mid-row.
	CodeTupleIncomplete Code = "tuple-incomplete"
	// CodeMultipleRoots indicates a second root element was encountered.
	CodeMultipleRoots Code = "multiple-roots"
	// CodeNoRoot indicates end of input without a recognized root element.
	CodeNoRoot Code = "no-root"
	// CodeUnexpectedAttribute indicates an attribute the schema rejects.
	CodeUnexpectedAttribute Code = "unexpected-attribute"

	// CodeDepthExceeded indicates the frame stack depth limit was reached.
	CodeDepthExceeded Code = "depth-exceeded"

	// CodeWarnUnexpectedElement flags an unrecognized element.
	CodeWarnUnexpectedElement Code = "unexpected-element"
	// CodeWarnUnexpectedAttribute flags an unrecognized attribute.
	CodeWarnUnexpectedAttribute Code = "unexpected-attribute"
	// CodeWarnDuplicateAttribute flags a repeated attribute.
	CodeWarnDuplicateAttribute Code = "duplicate-attribute"
	// CodeWarnUnexpectedText flags character data where none is allowed.
	CodeWarnUnexpectedText Code = "unexpected-character-data"
	// CodeWarnEscalated marks a warning promoted to a fatal error.
	CodeWarnEscalated Code = "warning-escalated"
)

// ParseError is a fatal parse diagnostic. Any ParseError aborts the whole
// parse; no partial tree is returned alongside one.
type ParseError struct {
	Kind    Kind
	Code    Code
	Message string
	// Line is the 1-based input line, or 0 when no position applies.
	Line int
}

// Error formats the diagnostic with its line number when one is known.
func (e *ParseError) Error() string {
	if e == nil {
		return "parse error <nil>"
	}
	if e.Line > 0 {
		return fmt.Sprintf("Error on line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("Error: %s", e.Message)
}

// Warning is a continuable parse diagnostic. Warnings never abort the parse
// unless escalation is configured, in which case they are converted to
// validation errors.
type Warning struct {
	Code    Code
	Message string
	Line    int
}

// String formats the warning with its line number.
func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("Warning on line %d: %s", w.Line, w.Message)
	}
	return fmt.Sprintf("Warning: %s", w.Message)
}

// Escalate converts the warning into a fatal validation error.
func (w Warning) Escalate() *ParseError {
	return &ParseError{Kind: KindValidation, Code: CodeWarnEscalated, Message: w.Message, Line: w.Line}
}

// NewTokenizer builds a tokenizer error with a line number.
func NewTokenizer(line int, format string, args ...any) *ParseError {
	return &ParseError{Kind: KindTokenizer, Code: CodeMalformed, Message: fmt.Sprintf(format, args...), Line: line}
}

// NewValidation builds a validation error with a code and line number.
func NewValidation(code Code, line int, format string, args ...any) *ParseError {
	return &ParseError{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...), Line: line}
}

// NewResource builds a resource-exhaustion error.
func NewResource(code Code, line int, format string, args ...any) *ParseError {
	return &ParseError{Kind: KindResource, Code: code, Message: fmt.Sprintf(format, args...), Line: line}
}

// AsParseError extracts a ParseError from an error chain.
func AsParseError(err error) (*ParseError, bool) {
	if err == nil {
		return nil, false
	}
	var pe *ParseError
	if errors.As(err, &pe) && pe != nil {
		return pe, true
	}
	return nil, false
}

// IsValidation reports whether err is a fatal validation error.
func IsValidation(err error) bool {
	pe, ok := AsParseError(err)
	return ok && pe.Kind == KindValidation
}

// IsTokenizer reports whether err is a tokenizer error.
func IsTokenizer(err error) bool {
	pe, ok := AsParseError(err)
	return ok && pe.Kind == KindTokenizer
}

// IsResource reports whether err is a resource error.
func IsResource(err error) bool {
	pe, ok := AsParseError(err)
	return ok && pe.Kind == KindResource
}
