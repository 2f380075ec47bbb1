package query

// Kind tags the variant held by a Node
type Kind int

const (
	KindMatchAll Kind = iota
	KindAnd
	KindOr
	KindEquals
	KindRange
	KindElemMatch
)

func (k Kind) String() string {
	switch k {
	case KindMatchAll:
		return "match_all"
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	case KindEquals:
		return "equals"
	case KindRange:
		return "range"
	case KindElemMatch:
		return "elem_match"
	default:
		return "unknown"
	}
}

// Node is one element of a predicate tree.
//
//   - And/Or use Children.
//   - Equals uses Path and Value.
//   - Range uses Path with Min and/or Max, both inclusive.
//   - ElemMatch uses Path (the array) and Elem, evaluated relative to each element.
type Node struct {
	Kind     Kind
	Path     Path
	Value    interface{}
	Min      *float64
	Max      *float64
	Children []Node
	Elem     *Node
}

// MatchAll matches every document
func MatchAll() Node {
	return Node{Kind: KindMatchAll}
}

// IsMatchAll reports whether n places no constraint
func (n Node) IsMatchAll() bool {
	return n.Kind == KindMatchAll
}

// And requires every child. MatchAll children are dropped, a single child is
// returned as is, and no children yields MatchAll.
func And(children ...Node) Node {
	kept := make([]Node, 0, len(children))
	for _, c := range children {
		if c.IsMatchAll() {
			continue
		}
		kept = append(kept, c)
	}
	switch len(kept) {
	case 0:
		return MatchAll()
	case 1:
		return kept[0]
	}
	return Node{Kind: KindAnd, Children: kept}
}

// Or requires at least one child. A single child is returned as is; any
// MatchAll child makes the whole disjunction MatchAll.
func Or(children ...Node) Node {
	for _, c := range children {
		if c.IsMatchAll() {
			return MatchAll()
		}
	}
	if len(children) == 1 {
		return children[0]
	}
	out := make([]Node, len(children))
	copy(out, children)
	return Node{Kind: KindOr, Children: out}
}

// Equals matches when the field equals v
func Equals(path Path, v interface{}) Node {
	return Node{Kind: KindEquals, Path: path, Value: v}
}

// Range matches when the field lies in [min, max]; a nil side is unbounded
func Range(path Path, min, max *float64) Node {
	return Node{Kind: KindRange, Path: path, Min: min, Max: max}
}

// ElemMatch matches when some element of the array at path satisfies elem
func ElemMatch(path Path, elem Node) Node {
	e := elem
	return Node{Kind: KindElemMatch, Path: path, Elem: &e}
}

// Float returns a pointer to v, for building Range bounds
func Float(v float64) *float64 {
	return &v
}
