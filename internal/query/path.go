// Package query models store-independent predicates over product documents.
//
// A predicate is a small tree of And/Or/Equals/Range/ElemMatch nodes addressing
// fields through Path values. Store bindings render the tree into their own
// query language; Match evaluates it against in-memory documents.
package query

import "strings"

// Path addresses a field inside a document as a sequence of keys
type Path []string

// NewPath copies segments into a new Path
func NewPath(segments ...string) Path {
	p := make(Path, len(segments))
	copy(p, segments)
	return p
}

// Child returns a new Path extended by segments; p is left untouched
func (p Path) Child(segments ...string) Path {
	out := make(Path, 0, len(p)+len(segments))
	out = append(out, p...)
	return append(out, segments...)
}

// Dotted joins the segments with "." as document stores expect
func (p Path) Dotted() string {
	return strings.Join(p, ".")
}

// IsZero reports whether the path has no segments
func (p Path) IsZero() bool {
	return len(p) == 0
}

// Valid reports whether every segment is a safe field name
func (p Path) Valid() bool {
	if len(p) == 0 {
		return false
	}
	for _, s := range p {
		if !ValidSegment(s) {
			return false
		}
	}
	return true
}

// ValidSegment rejects names that a store could interpret as an operator or a nested path
func ValidSegment(s string) bool {
	if s == "" || strings.HasPrefix(s, "$") {
		return false
	}
	return !strings.ContainsAny(s, ".\x00")
}
