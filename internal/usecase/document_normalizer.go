package usecase

import (
	"strings"

	"github.com/spf13/cast"

	"github.com/buildledger/unitfilter/internal/domain"
)

// DocumentNormalizer writes the normalized value next to every unit-bearing
// property of a product so that range and equality filters can run on it
type DocumentNormalizer struct {
	conversion *ConversionService
	parser     *QuantityParser
	layout     Layout
}

// NewDocumentNormalizer creates a normalizer for the given field layout
func NewDocumentNormalizer(conversion *ConversionService, layout Layout) *DocumentNormalizer {
	if conversion == nil {
		conversion = NewConversionService(nil, DefaultTolerance)
	}
	return &DocumentNormalizer{
		conversion: conversion,
		parser:     NewQuantityParser(conversion.Registry()),
		layout:     layout.withDefaults(),
	}
}

// Normalize updates p in place and returns how many property values were normalized.
// Objects whose unit cannot be resolved, and legacy scalar values, are left alone.
func (n *DocumentNormalizer) Normalize(p domain.Product) int {
	if p == nil {
		return 0
	}
	count := n.normalizeRecord(p)
	if variants, ok := p[n.layout.VariantsField].([]interface{}); ok {
		for _, v := range variants {
			if record, ok := v.(map[string]interface{}); ok {
				count += n.normalizeRecord(record)
			}
		}
	}
	return count
}

func (n *DocumentNormalizer) normalizeRecord(record map[string]interface{}) int {
	props, ok := record[n.layout.PropertiesField].(map[string]interface{})
	if !ok {
		return 0
	}
	count := 0
	for _, raw := range props {
		obj, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if n.normalizeProperty(obj) {
			count++
		}
	}
	return count
}

func (n *DocumentNormalizer) normalizeProperty(obj map[string]interface{}) bool {
	unit := strings.TrimSpace(cast.ToString(obj["unit"]))
	var value float64
	switch v := obj["value"].(type) {
	case nil, bool:
		return false
	case string:
		q, ok := n.parser.Parse(v)
		if !ok {
			return false
		}
		value = q.Value
		if unit == "" {
			unit = q.Unit
		}
	default:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return false
		}
		value = f
	}

	result := n.conversion.NormalizeToBase(value, n.parser.CanonicalUnit(unit), "")
	if result.Resolution != Resolved {
		return false
	}
	obj[n.layout.NormalizedField] = result.Value
	return true
}
