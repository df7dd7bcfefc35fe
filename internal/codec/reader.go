// Package codec translates between model.Content and the XML body stored
// inside each archive.
//
// Decoding is a forward-only pass over encoding/xml tokens. The reader keeps
// an explicit element depth so every sub-decoder can consume exactly its own
// subtree, and so unknown elements can be skipped without a DOM.
package codec

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/baiirun/openfocus/internal/model"
)

// reader is a pull-style token stream that tracks element depth.
type reader struct {
	dec   *xml.Decoder
	depth int
}

func newReader(r io.Reader) *reader {
	return &reader{dec: xml.NewDecoder(r)}
}

// next returns the next token, adjusting depth for start and end tags.
func (r *reader) next() (xml.Token, error) {
	tok, err := r.dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected end of document at depth %d", model.ErrParse, r.depth)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrParse, err)
	}
	switch tok.(type) {
	case xml.StartElement:
		r.depth++
	case xml.EndElement:
		r.depth--
	}
	return tok, nil
}

// skip consumes the rest of the element whose start tag was just read.
func (r *reader) skip() error {
	target := r.depth - 1
	for r.depth > target {
		if _, err := r.next(); err != nil {
			return err
		}
	}
	return nil
}

// text consumes the rest of a leaf element and returns its character data.
// ok is false when the element held no character data at all. Nested
// elements are skipped.
func (r *reader) text() (s string, ok bool, err error) {
	target := r.depth - 1
	var b strings.Builder
	for r.depth > target {
		tok, err := r.next()
		if err != nil {
			return "", false, err
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			if err := r.skip(); err != nil {
				return "", false, err
			}
		}
	}
	s = b.String()
	return s, s != "", nil
}

// blank reports whether a typed leaf holds no value. Whitespace alone is
// how the format spells an unset date, number or flag.
func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func attr(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// idref returns the idref attribute of se, or nil when it is missing.
func idref(se xml.StartElement) *string {
	if v := attr(se, "idref"); v != "" {
		return &v
	}
	return nil
}
