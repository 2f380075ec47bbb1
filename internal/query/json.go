package query

import "encoding/json"

type nodeJSON struct {
	Kind     string   `json:"kind"`
	Path     string   `json:"path,omitempty"`
	Value    any      `json:"value,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Children []Node   `json:"children,omitempty"`
	Elem     *Node    `json:"elem,omitempty"`
}

// MarshalJSON writes the tree with readable kinds and dotted paths, for
// debugging endpoints and logs
func (n Node) MarshalJSON() ([]byte, error) {
	out := nodeJSON{
		Kind:     n.Kind.String(),
		Path:     n.Path.Dotted(),
		Min:      n.Min,
		Max:      n.Max,
		Children: n.Children,
		Elem:     n.Elem,
	}
	if n.Kind == KindEquals {
		out.Value = n.Value
		if n.Value == nil {
			return json.Marshal(struct {
				nodeJSON
				Null any `json:"value"`
			}{nodeJSON: out})
		}
	}
	return json.Marshal(out)
}
