package xmltree

import (
	"bufio"
	"encoding/xml"
	"io"

	"github.com/jacoelho/xmltree/errors"
	"github.com/jacoelho/xmltree/internal/parser"
)

// defaultChunkSize bounds the reads handed to the tokenizer so arbitrarily
// large documents are consumed in fixed-size pieces.
const defaultChunkSize = 1 << 20

var utf8BOM = [3]byte{0xEF, 0xBB, 0xBF}

// chunkReader caps every Read at the configured chunk size.
type chunkReader struct {
	r    io.Reader
	size int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(p) > c.size {
		p = p[:c.size]
	}
	return c.r.Read(p)
}

// newDocumentReader prepares the input stream: reads are chunked and a
// leading UTF-8 byte order mark is dropped.
func newDocumentReader(r io.Reader, chunkSize int) (io.Reader, error) {
	br := bufio.NewReader(&chunkReader{r: r, size: chunkSize})
	head, err := br.Peek(3)
	if err == nil && head[0] == utf8BOM[0] && head[1] == utf8BOM[1] && head[2] == utf8BOM[2] {
		if _, err := br.Discard(3); err != nil {
			return nil, err
		}
	}
	return br, nil
}

// drive feeds tokenizer events into the session until end of input and
// returns the finished root. Comments, processing instructions, and
// directives are skipped. RawToken leaves tag balance unchecked, so the
// driver keeps its own stack of open names.
func drive(dec *xml.Decoder, s *parser.Session) error {
	var attrs []parser.Attr
	var open []string
	for {
		tok, err := dec.RawToken()
		if err != nil {
			if err == io.EOF {
				if len(open) > 0 {
					line, _ := dec.InputPos()
					return errors.NewTokenizer(line, "unexpected end of input: %q is not closed", open[len(open)-1])
				}
				return nil
			}
			return tokenizerError(dec, err)
		}
		line, _ := dec.InputPos()
		s.SetLine(line)

		switch t := tok.(type) {
		case xml.StartElement:
			name := rawName(t.Name)
			attrs = attrs[:0]
			for _, a := range t.Attr {
				attrs = append(attrs, parser.Attr{Name: rawName(a.Name), Value: a.Value})
			}
			open = append(open, name)
			err = s.StartElement(name, attrs)
		case xml.EndElement:
			name := rawName(t.Name)
			if len(open) == 0 || open[len(open)-1] != name {
				return errors.NewTokenizer(line, "mismatched closing tag %q", name)
			}
			open = open[:len(open)-1]
			err = s.EndElement(name)
		case xml.CharData:
			err = s.Text(string(t))
		}
		if err != nil {
			return err
		}
	}
}

// rawName reassembles the unprocessed element or attribute name. Namespace
// prefixes stay part of the name; the schema decides what is recognized.
func rawName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func tokenizerError(dec *xml.Decoder, err error) error {
	if se, ok := err.(*xml.SyntaxError); ok {
		return errors.NewTokenizer(se.Line, "%s", se.Msg)
	}
	line, _ := dec.InputPos()
	return errors.NewTokenizer(line, "%v", err)
}
