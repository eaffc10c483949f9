// Package ndn holds the typed NDN data model described in the core design:
// Name, Interest, Data, MetaInfo, and Signature variants, independent of
// their TLV wire encoding (see internal/wire).
package ndn

import (
	"bytes"
	"strings"
)

// ComponentType distinguishes a component's flavor on the wire.
type ComponentType uint64

const (
	// ComponentGeneric is an ordinary, opaque name component.
	ComponentGeneric ComponentType = 8
	// ComponentImplicitSha256Digest is an implicit digest component, usually
	// the final component of a Data packet's full name.
	ComponentImplicitSha256Digest ComponentType = 1
)

// Component is one opaque, typed segment of a Name.
type Component struct {
	Type  ComponentType
	Value []byte
}

// NewGenericComponent builds a generic component from a UTF-8 string.
func NewGenericComponent(s string) Component {
	return Component{Type: ComponentGeneric, Value: []byte(s)}
}

// Equal reports whether two components have the same type and value.
func (c Component) Equal(o Component) bool {
	return c.Type == o.Type && bytes.Equal(c.Value, o.Value)
}

// Compare orders components first by type, then by value length, then
// lexicographically by value: the order of their canonical TLV encoding.
func (c Component) Compare(o Component) int {
	if c.Type != o.Type {
		if c.Type < o.Type {
			return -1
		}
		return 1
	}
	if len(c.Value) != len(o.Value) {
		if len(c.Value) < len(o.Value) {
			return -1
		}
		return 1
	}
	return bytes.Compare(c.Value, o.Value)
}

func (c Component) String() string {
	if c.Type == ComponentGeneric {
		return string(c.Value)
	}
	return string(c.Value)
}

// Name is an ordered sequence of components. Equality is component-wise;
// ordering is lexicographic over the canonical byte encoding. Appending a
// component always yields a Name of which the receiver is a prefix.
type Name struct {
	Components []Component
}

// ParseURI builds a Name from a "/a/b/c" style URI using generic components
// only. Leading/trailing slashes and empty segments are ignored.
func ParseURI(uri string) Name {
	var n Name
	for _, seg := range strings.Split(uri, "/") {
		if seg == "" {
			continue
		}
		n.Components = append(n.Components, NewGenericComponent(seg))
	}
	return n
}

// Append returns a new Name with c appended; the receiver is unmodified and
// remains a prefix of the result.
func (n Name) Append(c Component) Name {
	out := make([]Component, len(n.Components)+1)
	copy(out, n.Components)
	out[len(n.Components)] = c
	return Name{Components: out}
}

// AppendGeneric is a convenience wrapper around Append for string segments.
func (n Name) AppendGeneric(s string) Name {
	return n.Append(NewGenericComponent(s))
}

// Size returns the number of components.
func (n Name) Size() int {
	return len(n.Components)
}

// Equal reports component-wise equality.
func (n Name) Equal(o Name) bool {
	if len(n.Components) != len(o.Components) {
		return false
	}
	for i := range n.Components {
		if !n.Components[i].Equal(o.Components[i]) {
			return false
		}
	}
	return true
}

// Compare orders two names component by component, shorter-is-smaller on a
// common prefix.
func (n Name) Compare(o Name) int {
	for i := 0; i < len(n.Components) && i < len(o.Components); i++ {
		if c := n.Components[i].Compare(o.Components[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(n.Components) < len(o.Components):
		return -1
	case len(n.Components) > len(o.Components):
		return 1
	default:
		return 0
	}
}

// IsPrefixOf reports whether n is a prefix of o.
func (n Name) IsPrefixOf(o Name) bool {
	if len(n.Components) > len(o.Components) {
		return false
	}
	for i := range n.Components {
		if !n.Components[i].Equal(o.Components[i]) {
			return false
		}
	}
	return true
}

// String renders the Name as a "/a/b/c" URI using each component's raw bytes.
func (n Name) String() string {
	if len(n.Components) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, c := range n.Components {
		b.WriteByte('/')
		b.WriteString(c.String())
	}
	return b.String()
}
