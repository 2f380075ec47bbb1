package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleDoc() map[string]interface{} {
	return map[string]interface{}{
		"id": "p-1",
		"properties": map[string]interface{}{
			"color": "red",
			"tags":  []interface{}{"outdoor", "treated"},
			"width": map[string]interface{}{
				"value":           12.0,
				"unit":            "in",
				"normalizedValue": 304.8,
			},
			"length": 96,
		},
		"variants": []interface{}{
			map[string]interface{}{
				"properties": map[string]interface{}{"color": "blue", "thickness": 0.75},
			},
			map[string]interface{}{
				"properties": map[string]interface{}{"color": "green", "thickness": 1.5},
			},
		},
	}
}

func TestMatch(t *testing.T) {
	doc := sampleDoc()
	props := NewPath("properties")
	variants := NewPath("variants")

	tests := []struct {
		name string
		node Node
		want bool
	}{
		{"match all", MatchAll(), true},
		{"string equality", Equals(props.Child("color"), "red"), true},
		{"string inequality", Equals(props.Child("color"), "blue"), false},
		{"int field equals float", Equals(props.Child("length"), 96.0), true},
		{"numeric string is not coerced", Equals(props.Child("length"), "96"), false},
		{"array leaf contains value", Equals(props.Child("tags"), "treated"), true},
		{"missing field", Equals(props.Child("finish"), "matte"), false},
		{"range inside", Range(props.Child("width", "normalizedValue"), Float(300), Float(310)), true},
		{"range outside", Range(props.Child("width", "normalizedValue"), Float(310), nil), false},
		{"open upper bound", Range(props.Child("length"), Float(90), nil), true},
		{"range on object is false", Range(props.Child("width"), Float(0), nil), false},
		{"elem match", ElemMatch(variants, Equals(props.Child("color"), "green")), true},
		{"elem match no element", ElemMatch(variants, Equals(props.Child("color"), "red")), false},
		{
			"elem match requires one element to satisfy all",
			ElemMatch(variants, And(
				Equals(props.Child("color"), "blue"),
				Range(props.Child("thickness"), Float(1), nil),
			)),
			false,
		},
		{"path fans out across arrays", Equals(variants.Child("properties", "color"), "blue"), true},
		{
			"or",
			Or(Equals(props.Child("color"), "blue"), ElemMatch(variants, Equals(props.Child("color"), "blue"))),
			true,
		},
		{
			"and",
			And(Equals(props.Child("color"), "red"), Equals(props.Child("length"), 48)),
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.node, doc))
		})
	}
}

func TestMatch_TypedSlices(t *testing.T) {
	doc := map[string]interface{}{
		"variants": []map[string]interface{}{
			{"properties": map[string]interface{}{"size": "M"}},
		},
	}
	n := ElemMatch(NewPath("variants"), Equals(NewPath("properties", "size"), "M"))
	assert.True(t, Match(n, doc))
}
