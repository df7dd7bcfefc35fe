package codec

import (
	"encoding/xml"
	"fmt"

	"github.com/baiirun/openfocus/internal/model"
)

// decodePlist consumes a <plist> element and returns its single top-level
// value, or nil when the plist is empty.
func decodePlist(rd *reader) (*model.PlistValue, error) {
	target := rd.depth - 1
	var out *model.PlistValue
	for rd.depth > target {
		tok, err := rd.next()
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if out != nil {
			if err := rd.skip(); err != nil {
				return nil, err
			}
			continue
		}
		v, err := decodePlistValue(rd, se)
		if err != nil {
			return nil, err
		}
		out = &v
	}
	return out, nil
}

// decodePlistValue decodes the value whose start tag was just read.
// Only strings and dictionaries are understood. Every other kind is consumed
// and returned as a PlistUnsupported placeholder naming the element.
func decodePlistValue(rd *reader, se xml.StartElement) (model.PlistValue, error) {
	switch se.Name.Local {
	case "string":
		s, _, err := rd.text()
		if err != nil {
			return model.PlistValue{}, err
		}
		return model.PlistStringValue(s), nil
	case "dict":
		return decodePlistDict(rd)
	default:
		if err := rd.skip(); err != nil {
			return model.PlistValue{}, err
		}
		return model.PlistValue{Kind: model.PlistUnsupported, String: se.Name.Local}, nil
	}
}

// decodePlistDict reads alternating <key> and value elements up to the
// dictionary's end tag.
func decodePlistDict(rd *reader) (model.PlistValue, error) {
	target := rd.depth - 1
	dict := map[string]model.PlistValue{}
	var key *string
	for rd.depth > target {
		tok, err := rd.next()
		if err != nil {
			return model.PlistValue{}, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Local == "key" {
			if key != nil {
				return model.PlistValue{}, fmt.Errorf("%w: plist key %q has no value", model.ErrParse, *key)
			}
			k, _, err := rd.text()
			if err != nil {
				return model.PlistValue{}, err
			}
			key = &k
			continue
		}
		if key == nil {
			return model.PlistValue{}, fmt.Errorf("%w: plist <%s> without a key", model.ErrParse, se.Name.Local)
		}
		v, err := decodePlistValue(rd, se)
		if err != nil {
			return model.PlistValue{}, err
		}
		dict[*key] = v
		key = nil
	}
	if key != nil {
		return model.PlistValue{}, fmt.Errorf("%w: plist key %q has no value", model.ErrParse, *key)
	}
	return model.PlistValue{Kind: model.PlistDict, Dict: dict}, nil
}
