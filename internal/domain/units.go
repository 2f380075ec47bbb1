package domain

import "strings"

// MeasurementType partitions units into mutually convertible groups
type MeasurementType string

const (
	MeasurementLength      MeasurementType = "length"
	MeasurementArea        MeasurementType = "area"
	MeasurementVolume      MeasurementType = "volume"
	MeasurementWeight      MeasurementType = "weight"
	MeasurementTemperature MeasurementType = "temperature"
	MeasurementTime        MeasurementType = "time"
	MeasurementCount       MeasurementType = "count"
	MeasurementOther       MeasurementType = "other"
)

// MeasurementTypes lists every known measurement type in display order
var MeasurementTypes = []MeasurementType{
	MeasurementLength,
	MeasurementArea,
	MeasurementVolume,
	MeasurementWeight,
	MeasurementTemperature,
	MeasurementTime,
	MeasurementCount,
	MeasurementOther,
}

// ParseMeasurementType accepts any casing and surrounding whitespace
func ParseMeasurementType(s string) (MeasurementType, bool) {
	mt := MeasurementType(strings.ToLower(strings.TrimSpace(s)))
	return mt, mt.Valid()
}

// Valid reports whether m is one of the known measurement types
func (m MeasurementType) Valid() bool {
	for _, known := range MeasurementTypes {
		if m == known {
			return true
		}
	}
	return false
}

// Convertible reports whether values of this type can be normalized to a base unit
func (m MeasurementType) Convertible() bool {
	return m.Valid() && m != MeasurementOther
}

// UnitSystem is an informational classification tag; it never affects conversion
type UnitSystem string

const (
	SystemImperial UnitSystem = "imperial"
	SystemMetric   UnitSystem = "metric"
	SystemBoth     UnitSystem = "both"
)

// StandardValue is a common discrete magnitude for a unit, e.g. a fractional inch size
type StandardValue struct {
	DisplayValue    string   `json:"displayValue" yaml:"displayValue"`
	NormalizedValue float64  `json:"normalizedValue" yaml:"normalizedValue"`
	Aliases         []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// Matches reports whether s equals the display value or one of the aliases (case-insensitive)
func (v StandardValue) Matches(s string) bool {
	s = strings.TrimSpace(s)
	if strings.EqualFold(v.DisplayValue, s) {
		return true
	}
	for _, alias := range v.Aliases {
		if strings.EqualFold(strings.TrimSpace(alias), s) {
			return true
		}
	}
	return false
}

// Unit is a named, symbol-bearing measurement unit
type Unit struct {
	Code             string          `json:"code" yaml:"code"`
	Name             string          `json:"name,omitempty" yaml:"name,omitempty"`
	Symbol           string          `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	MeasurementType  MeasurementType `json:"measurementType" yaml:"measurementType"`
	System           UnitSystem      `json:"system,omitempty" yaml:"system,omitempty"`
	ConversionFactor float64         `json:"conversionFactor" yaml:"conversionFactor"`
	BaseUnit         string          `json:"baseUnit,omitempty" yaml:"baseUnit,omitempty"`
	StandardValues   []StandardValue `json:"standardValues,omitempty" yaml:"standardValues,omitempty"`
}

// IsBase reports whether the unit is the reference unit of its measurement type
func (u Unit) IsBase() bool {
	return u.BaseUnit != "" && strings.EqualFold(strings.TrimSpace(u.Code), strings.TrimSpace(u.BaseUnit))
}
