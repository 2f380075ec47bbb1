package usecase

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/buildledger/unitfilter/internal/domain"
)

// DefaultTolerance is the absolute epsilon used for equality and range checks
// on normalized values. It is the same for every unit and magnitude.
const DefaultTolerance = 0.01

// defaultDecimals is the precision used by FormatValue
const defaultDecimals = 2

// Resolution describes how a normalization step ended
type Resolution int

const (
	// Resolved means the unit was known and the value was converted
	Resolved Resolution = iota
	// Unresolved means no conversion applied; Value carries the input unchanged
	Unresolved
	// Invalid means the input was not a number and nothing can be compared
	Invalid
)

func (r Resolution) String() string {
	switch r {
	case Resolved:
		return "resolved"
	case Unresolved:
		return "unresolved"
	default:
		return "invalid"
	}
}

// Normalized is the outcome of a conversion
type Normalized struct {
	Value      float64
	Resolution Resolution
}

// OK reports whether Value can be used for comparison
func (n Normalized) OK() bool {
	return n.Resolution != Invalid
}

func resolved(v float64) Normalized   { return Normalized{Value: v, Resolution: Resolved} }
func unresolved(v float64) Normalized { return Normalized{Value: v, Resolution: Unresolved} }
func invalid() Normalized             { return Normalized{Value: math.NaN(), Resolution: Invalid} }

// Bound is one side of a range, with its own unit. An empty unit inherits the
// unit of the value being tested.
type Bound struct {
	Value float64
	Unit  string
}

// ConversionService converts values between units of the same measurement type.
// It holds no mutable state and is safe for concurrent use.
type ConversionService struct {
	registry  *UnitRegistry
	tolerance float64
}

// NewConversionService creates a conversion service; tolerance <= 0 selects DefaultTolerance
func NewConversionService(registry *UnitRegistry, tolerance float64) *ConversionService {
	if registry == nil {
		registry = DefaultUnitRegistry()
	}
	if tolerance <= 0 || math.IsNaN(tolerance) {
		tolerance = DefaultTolerance
	}
	return &ConversionService{registry: registry, tolerance: tolerance}
}

// Registry exposes the unit registry backing the service
func (s *ConversionService) Registry() *UnitRegistry {
	return s.registry
}

// Tolerance returns the epsilon applied to comparisons
func (s *ConversionService) Tolerance() float64 {
	return s.tolerance
}

// NormalizeToBase converts value expressed in unit to the base unit of mt.
//
// An empty unit, an unknown unit, or a unit of another measurement type leaves
// the value unchanged (Unresolved) so that callers degrade to raw comparison.
// An empty mt is inferred from the unit.
func (s *ConversionService) NormalizeToBase(value float64, unit string, mt domain.MeasurementType) Normalized {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return invalid()
	}
	code := normalizeUnitCode(unit)
	if code == "" {
		return unresolved(value)
	}
	mt = s.effectiveType(code, mt)

	if mt == domain.MeasurementTemperature {
		switch code {
		case "f":
			return resolved(FahrenheitToCelsius(value))
		case "c":
			return resolved(value)
		default:
			return unresolved(value)
		}
	}

	factor, ok := s.factorFor(code, mt)
	if !ok {
		return unresolved(value)
	}
	return resolved(value * factor)
}

// ConvertFromBase converts a value in the base unit of mt into targetUnit
func (s *ConversionService) ConvertFromBase(normalized float64, targetUnit string, mt domain.MeasurementType) Normalized {
	if math.IsNaN(normalized) || math.IsInf(normalized, 0) {
		return invalid()
	}
	code := normalizeUnitCode(targetUnit)
	if code == "" {
		return unresolved(normalized)
	}
	mt = s.effectiveType(code, mt)

	if mt == domain.MeasurementTemperature {
		switch code {
		case "f":
			return resolved(CelsiusToFahrenheit(normalized))
		case "c":
			return resolved(normalized)
		default:
			return unresolved(normalized)
		}
	}

	factor, ok := s.factorFor(code, mt)
	if !ok || factor == 0 {
		return unresolved(normalized)
	}
	return resolved(normalized / factor)
}

// Convert expresses value in fromUnit as toUnit. ok is false when the value is not a number.
func (s *ConversionService) Convert(value float64, fromUnit, toUnit string, mt domain.MeasurementType) (float64, bool) {
	n := s.NormalizeToBase(value, fromUnit, mt)
	if !n.OK() {
		return 0, false
	}
	out := s.ConvertFromBase(n.Value, toUnit, mt)
	if !out.OK() {
		return 0, false
	}
	return out.Value, true
}

// CompareValues reports whether two values are equal within the tolerance after normalization
func (s *ConversionService) CompareValues(value1 float64, unit1 string, value2 float64, unit2 string, mt domain.MeasurementType) bool {
	a := s.NormalizeToBase(value1, unit1, mt)
	b := s.NormalizeToBase(value2, unit2, mt)
	if !a.OK() || !b.OK() {
		return false
	}
	return math.Abs(a.Value-b.Value) < s.tolerance
}

// IsInRange reports whether value lies within [min, max] after normalization.
// A nil bound, or one that cannot be normalized, leaves that side unconstrained.
// Each bound is widened by the tolerance.
func (s *ConversionService) IsInRange(value float64, valueUnit string, min, max *Bound, mt domain.MeasurementType) bool {
	v := s.NormalizeToBase(value, valueUnit, mt)
	if !v.OK() {
		return false
	}
	if min != nil {
		lo := s.NormalizeToBase(min.Value, boundUnit(min.Unit, valueUnit), mt)
		if lo.OK() && v.Value < lo.Value-s.tolerance {
			return false
		}
	}
	if max != nil {
		hi := s.NormalizeToBase(max.Value, boundUnit(max.Unit, valueUnit), mt)
		if hi.OK() && v.Value > hi.Value+s.tolerance {
			return false
		}
	}
	return true
}

// FormatValue renders value with two decimals, trailing zeros trimmed, suffixed by unit
func (s *ConversionService) FormatValue(value float64, unit string) string {
	return FormatValue(value, unit, defaultDecimals)
}

// FormatValue renders value rounded to decimals places with trailing zeros trimmed
func FormatValue(value float64, unit string, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return ""
	}
	if decimals < 0 {
		decimals = 0
	}
	text := decimal.NewFromFloat(value).Round(int32(decimals)).String()
	if unit = strings.TrimSpace(unit); unit != "" {
		return text + " " + unit
	}
	return text
}

// FahrenheitToCelsius converts °F to °C
func FahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}

// CelsiusToFahrenheit converts °C to °F
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// effectiveType infers the measurement type from the unit when the caller gave none
func (s *ConversionService) effectiveType(code string, mt domain.MeasurementType) domain.MeasurementType {
	if mt != "" {
		return mt
	}
	if inferred, ok := s.registry.MeasurementTypeOf(code); ok {
		return inferred
	}
	return mt
}

// factorFor returns a linear factor only when the unit belongs to mt
func (s *ConversionService) factorFor(code string, mt domain.MeasurementType) (float64, bool) {
	if !mt.Convertible() {
		return 0, false
	}
	factor, ok := s.registry.ConversionFactor(code)
	if !ok || factor.Affine {
		return 0, false
	}
	if unitType, known := s.registry.MeasurementTypeOf(code); known && unitType != mt {
		return 0, false
	}
	return factor.Value, true
}

func boundUnit(unit, fallback string) string {
	if strings.TrimSpace(unit) == "" {
		return fallback
	}
	return unit
}
