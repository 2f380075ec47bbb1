package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FilterSpec is the caller-supplied filter for a single property key.
// A bare scalar means exact match without conversion; an object carries
// a value and/or bounds plus optional units.
type FilterSpec struct {
	Scalar   interface{}
	IsObject bool

	Value   interface{}
	Min     interface{}
	Max     interface{}
	Unit    string
	MinUnit string
	MaxUnit string
}

// FilterSet maps property keys to their filter specification
type FilterSet map[string]FilterSpec

// ScalarFilter builds an exact-match filter
func ScalarFilter(v interface{}) FilterSpec {
	return FilterSpec{Scalar: v}
}

// ValueFilter builds a unit-aware equality filter
func ValueFilter(v interface{}, unit string) FilterSpec {
	return FilterSpec{IsObject: true, Value: v, Unit: unit}
}

// RangeFilter builds a unit-aware range filter; pass nil for an open side
func RangeFilter(min, max interface{}, unit string) FilterSpec {
	return FilterSpec{IsObject: true, Min: min, Max: max, Unit: unit}
}

// Empty reports whether the filter should be skipped entirely
func (f FilterSpec) Empty() bool {
	if f.IsObject {
		return false
	}
	return isBlank(f.Scalar)
}

// HasValue reports whether an object filter carries a usable value
func (f FilterSpec) HasValue() bool {
	return f.IsObject && !isBlank(f.Value)
}

// HasMin reports whether an object filter carries a lower bound
func (f FilterSpec) HasMin() bool {
	return f.IsObject && !isBlank(f.Min)
}

// HasMax reports whether an object filter carries an upper bound
func (f FilterSpec) HasMax() bool {
	return f.IsObject && !isBlank(f.Max)
}

func isBlank(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return true
	}
	return false
}

type filterObject struct {
	Value   interface{} `json:"value"`
	Min     interface{} `json:"min"`
	Max     interface{} `json:"max"`
	Unit    *string     `json:"unit"`
	MinUnit *string     `json:"minUnit"`
	MaxUnit *string     `json:"maxUnit"`
}

// UnmarshalJSON accepts either a bare scalar or a {value,min,max,unit,minUnit,maxUnit} object
func (f *FilterSpec) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = FilterSpec{}
		return nil
	}

	switch trimmed[0] {
	case '{':
		var obj filterObject
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		*f = FilterSpec{
			IsObject: true,
			Value:    obj.Value,
			Min:      obj.Min,
			Max:      obj.Max,
			Unit:     deref(obj.Unit),
			MinUnit:  deref(obj.MinUnit),
			MaxUnit:  deref(obj.MaxUnit),
		}
		return nil
	case '[':
		return fmt.Errorf("%w: list values are not supported", ErrInvalidFilter)
	}

	var scalar interface{}
	if err := json.Unmarshal(trimmed, &scalar); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	*f = FilterSpec{Scalar: scalar}
	return nil
}

// MarshalJSON writes the filter back in the shape it was decoded from
func (f FilterSpec) MarshalJSON() ([]byte, error) {
	if !f.IsObject {
		return json.Marshal(f.Scalar)
	}
	obj := map[string]interface{}{}
	if f.Value != nil {
		obj["value"] = f.Value
	}
	if f.Min != nil {
		obj["min"] = f.Min
	}
	if f.Max != nil {
		obj["max"] = f.Max
	}
	if f.Unit != "" {
		obj["unit"] = f.Unit
	}
	if f.MinUnit != "" {
		obj["minUnit"] = f.MinUnit
	}
	if f.MaxUnit != "" {
		obj["maxUnit"] = f.MaxUnit
	}
	return json.Marshal(obj)
}

// ParseFilterSet decodes a JSON-encoded filter map, typically taken from a query parameter
func ParseFilterSet(raw string) (FilterSet, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return FilterSet{}, nil
	}
	var filters FilterSet
	if err := json.Unmarshal([]byte(raw), &filters); err != nil {
		if errors.Is(err, ErrInvalidFilter) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	if filters == nil {
		filters = FilterSet{}
	}
	return filters, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
