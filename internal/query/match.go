package query

import (
	"encoding/json"
	"math"
)

// Match evaluates n against doc with document-store semantics: a path that
// crosses an array fans out over its elements, and a leaf array matches when
// any of its elements does.
func Match(n Node, doc map[string]interface{}) bool {
	switch n.Kind {
	case KindMatchAll:
		return true
	case KindAnd:
		for _, c := range n.Children {
			if !Match(c, doc) {
				return false
			}
		}
		return true
	case KindOr:
		for _, c := range n.Children {
			if Match(c, doc) {
				return true
			}
		}
		return false
	case KindEquals:
		for _, v := range leafValues(resolve(doc, n.Path)) {
			if equalValues(v, n.Value) {
				return true
			}
		}
		return false
	case KindRange:
		for _, v := range leafValues(resolve(doc, n.Path)) {
			f, ok := toNumber(v)
			if !ok {
				continue
			}
			if n.Min != nil && f < *n.Min {
				continue
			}
			if n.Max != nil && f > *n.Max {
				continue
			}
			return true
		}
		return false
	case KindElemMatch:
		if n.Elem == nil {
			return false
		}
		for _, v := range resolve(doc, n.Path) {
			for _, elem := range asSlice(v) {
				if m, ok := asMap(elem); ok && Match(*n.Elem, m) {
					return true
				}
			}
		}
		return false
	}
	return false
}

// resolve walks path from doc and returns every value reached
func resolve(doc map[string]interface{}, path Path) []interface{} {
	current := []interface{}{doc}
	for _, seg := range path {
		var next []interface{}
		for _, v := range current {
			if m, ok := asMap(v); ok {
				if child, ok := m[seg]; ok {
					next = append(next, child)
				}
				continue
			}
			for _, elem := range asSlice(v) {
				if m, ok := asMap(elem); ok {
					if child, ok := m[seg]; ok {
						next = append(next, child)
					}
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

// leafValues expands arrays one level so scalars inside them can be compared
func leafValues(values []interface{}) []interface{} {
	var out []interface{}
	for _, v := range values {
		out = append(out, v)
		if s := asSlice(v); s != nil {
			out = append(out, s...)
		}
	}
	return out
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[string]string:
		out := make(map[string]interface{}, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	}
	return nil, false
}

func asSlice(v interface{}) []interface{} {
	switch s := v.(type) {
	case []interface{}:
		return s
	case []map[string]interface{}:
		out := make([]interface{}, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out
	case []string:
		out := make([]interface{}, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out
	case []float64:
		out := make([]interface{}, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out
	}
	return nil
}

func equalValues(a, b interface{}) bool {
	if fa, ok := toNumber(a); ok {
		fb, ok := toNumber(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return false
}

// toNumber accepts Go numeric kinds only; numeric strings are not coerced
func toNumber(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
