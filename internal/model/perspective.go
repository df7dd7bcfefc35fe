package model

import (
	"maps"
	"time"
)

// Perspective is a saved view. Its settings live in a property list.
type Perspective struct {
	ID    string
	Added *time.Time
	Plist *PlistValue
}

// Clone returns a deep copy of p.
func (p Perspective) Clone() Perspective {
	c := p
	c.Added = clonePtr(p.Added)
	if p.Plist != nil {
		v := p.Plist.Clone()
		c.Plist = &v
	}
	return c
}

// PlistKind identifies which property-list value a PlistValue holds.
type PlistKind string

const (
	PlistString PlistKind = "string"
	PlistDict   PlistKind = "dict"
	// PlistUnsupported marks arrays, data, numbers, booleans and dates. They
	// are skipped when decoding; String holds the element name.
	PlistUnsupported PlistKind = "unsupported"
)

// PlistValue is a string leaf or a dictionary of values.
type PlistValue struct {
	Kind   PlistKind
	String string
	Dict   map[string]PlistValue
}

// PlistStringValue wraps s as a string leaf.
func PlistStringValue(s string) PlistValue {
	return PlistValue{Kind: PlistString, String: s}
}

// Lookup walks nested dictionaries by key.
func (v PlistValue) Lookup(keys ...string) (PlistValue, bool) {
	cur := v
	for _, k := range keys {
		if cur.Kind != PlistDict {
			return PlistValue{}, false
		}
		next, ok := cur.Dict[k]
		if !ok {
			return PlistValue{}, false
		}
		cur = next
	}
	return cur, true
}

// Clone returns a deep copy of v.
func (v PlistValue) Clone() PlistValue {
	c := v
	if v.Dict != nil {
		c.Dict = maps.Clone(v.Dict)
		for k, child := range c.Dict {
			c.Dict[k] = child.Clone()
		}
	}
	return c
}
