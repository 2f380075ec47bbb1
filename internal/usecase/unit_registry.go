package usecase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/buildledger/unitfilter/internal/domain"
)

// baseUnits is the canonical reference unit per measurement type.
// MeasurementOther deliberately has no entry.
var baseUnits = map[domain.MeasurementType]string{
	domain.MeasurementLength:      "mm",
	domain.MeasurementArea:        "sq_m",
	domain.MeasurementVolume:      "l",
	domain.MeasurementWeight:      "kg",
	domain.MeasurementTemperature: "c",
	domain.MeasurementTime:        "s",
	domain.MeasurementCount:       "ea",
}

type unitDef struct {
	measurementType domain.MeasurementType
	system          domain.UnitSystem
	factor          float64
	affine          bool
}

// unitTable holds the multiplicative factor of each unit to its type's base unit
var unitTable = map[string]unitDef{
	// length (base = mm)
	"in": {measurementType: domain.MeasurementLength, system: domain.SystemImperial, factor: 25.4},
	"ft": {measurementType: domain.MeasurementLength, system: domain.SystemImperial, factor: 304.8},
	"yd": {measurementType: domain.MeasurementLength, system: domain.SystemImperial, factor: 914.4},
	"mi": {measurementType: domain.MeasurementLength, system: domain.SystemImperial, factor: 1609344},
	"mm": {measurementType: domain.MeasurementLength, system: domain.SystemMetric, factor: 1},
	"cm": {measurementType: domain.MeasurementLength, system: domain.SystemMetric, factor: 10},
	"m":  {measurementType: domain.MeasurementLength, system: domain.SystemMetric, factor: 1000},
	"km": {measurementType: domain.MeasurementLength, system: domain.SystemMetric, factor: 1000000},

	// area (base = sq_m)
	"sq_in": {measurementType: domain.MeasurementArea, system: domain.SystemImperial, factor: 0.00064516},
	"sq_ft": {measurementType: domain.MeasurementArea, system: domain.SystemImperial, factor: 0.09290304},
	"sq_yd": {measurementType: domain.MeasurementArea, system: domain.SystemImperial, factor: 0.83612736},
	"sq_m":  {measurementType: domain.MeasurementArea, system: domain.SystemMetric, factor: 1},
	"sq_km": {measurementType: domain.MeasurementArea, system: domain.SystemMetric, factor: 1000000},

	// volume (base = l)
	"gal":   {measurementType: domain.MeasurementVolume, system: domain.SystemImperial, factor: 3.785411784},
	"qt":    {measurementType: domain.MeasurementVolume, system: domain.SystemImperial, factor: 0.946352946},
	"pt":    {measurementType: domain.MeasurementVolume, system: domain.SystemImperial, factor: 0.473176473},
	"fl_oz": {measurementType: domain.MeasurementVolume, system: domain.SystemImperial, factor: 0.0295735295625},
	"l":     {measurementType: domain.MeasurementVolume, system: domain.SystemMetric, factor: 1},
	"ml":    {measurementType: domain.MeasurementVolume, system: domain.SystemMetric, factor: 0.001},

	// weight (base = kg)
	"lb":  {measurementType: domain.MeasurementWeight, system: domain.SystemImperial, factor: 0.45359237},
	"oz":  {measurementType: domain.MeasurementWeight, system: domain.SystemImperial, factor: 0.028349523125},
	"ton": {measurementType: domain.MeasurementWeight, system: domain.SystemImperial, factor: 907.18474},
	"kg":  {measurementType: domain.MeasurementWeight, system: domain.SystemMetric, factor: 1},
	"g":   {measurementType: domain.MeasurementWeight, system: domain.SystemMetric, factor: 0.001},

	// temperature needs an affine transform, see ConversionService
	"c": {measurementType: domain.MeasurementTemperature, system: domain.SystemMetric, affine: true},
	"f": {measurementType: domain.MeasurementTemperature, system: domain.SystemImperial, affine: true},

	// time (base = s)
	"ms":  {measurementType: domain.MeasurementTime, system: domain.SystemBoth, factor: 0.001},
	"s":   {measurementType: domain.MeasurementTime, system: domain.SystemBoth, factor: 1},
	"min": {measurementType: domain.MeasurementTime, system: domain.SystemBoth, factor: 60},
	"hr":  {measurementType: domain.MeasurementTime, system: domain.SystemBoth, factor: 3600},
	"day": {measurementType: domain.MeasurementTime, system: domain.SystemBoth, factor: 86400},
	"wk":  {measurementType: domain.MeasurementTime, system: domain.SystemBoth, factor: 604800},

	// count (base = ea)
	"ea":  {measurementType: domain.MeasurementCount, system: domain.SystemBoth, factor: 1},
	"pcs": {measurementType: domain.MeasurementCount, system: domain.SystemBoth, factor: 1},
	"ct":  {measurementType: domain.MeasurementCount, system: domain.SystemBoth, factor: 1},
}

// Factor is the result of a conversion-factor lookup. Affine units (temperature)
// carry no usable Value and must be converted with an offset formula instead.
type Factor struct {
	Value  float64
	Affine bool
}

// UnitRegistry resolves unit codes to measurement types and conversion factors.
// The static table is always available; an optional catalog adds display
// metadata, standard values and units the table does not know.
// A registry is read-only after construction and safe for concurrent use.
type UnitRegistry struct {
	catalog map[string]domain.Unit
}

// NewUnitRegistry builds a registry, validating any catalog units supplied
func NewUnitRegistry(catalog ...domain.Unit) (*UnitRegistry, error) {
	if err := validateCatalog(catalog); err != nil {
		return nil, err
	}
	r := &UnitRegistry{catalog: make(map[string]domain.Unit, len(catalog))}
	for _, u := range catalog {
		r.catalog[normalizeUnitCode(u.Code)] = u
	}
	return r, nil
}

// DefaultUnitRegistry returns a registry backed by the static table only
func DefaultUnitRegistry() *UnitRegistry {
	return &UnitRegistry{catalog: map[string]domain.Unit{}}
}

// BaseUnitFor returns the canonical unit of a measurement type
func (r *UnitRegistry) BaseUnitFor(mt domain.MeasurementType) (string, bool) {
	code, ok := baseUnits[mt]
	return code, ok
}

// ConversionFactor looks up a unit code (case-insensitive, trimmed).
// ok=false means "cannot normalize"; callers fall back to raw values.
func (r *UnitRegistry) ConversionFactor(code string) (Factor, bool) {
	key := normalizeUnitCode(code)
	if key == "" {
		return Factor{}, false
	}
	if def, ok := unitTable[key]; ok {
		return Factor{Value: def.factor, Affine: def.affine}, true
	}
	if u, ok := r.catalog[key]; ok && u.ConversionFactor > 0 && u.MeasurementType != domain.MeasurementTemperature {
		return Factor{Value: u.ConversionFactor}, true
	}
	return Factor{}, false
}

// MeasurementTypeOf returns the measurement type a unit belongs to
func (r *UnitRegistry) MeasurementTypeOf(code string) (domain.MeasurementType, bool) {
	key := normalizeUnitCode(code)
	if def, ok := unitTable[key]; ok {
		return def.measurementType, true
	}
	if u, ok := r.catalog[key]; ok && u.MeasurementType.Valid() {
		return u.MeasurementType, true
	}
	return "", false
}

// Lookup returns the catalog entry for code, or one synthesized from the static table
func (r *UnitRegistry) Lookup(code string) (domain.Unit, bool) {
	key := normalizeUnitCode(code)
	if u, ok := r.catalog[key]; ok {
		return u, true
	}
	def, ok := unitTable[key]
	if !ok {
		return domain.Unit{}, false
	}
	factor := def.factor
	if def.affine && key == baseUnits[domain.MeasurementTemperature] {
		factor = 1
	}
	return domain.Unit{
		Code:             key,
		Symbol:           key,
		MeasurementType:  def.measurementType,
		System:           def.system,
		ConversionFactor: factor,
		BaseUnit:         baseUnits[def.measurementType],
	}, true
}

// Units lists every known unit, optionally restricted to one measurement type.
// Results are ordered by type, then factor, then code.
func (r *UnitRegistry) Units(mt domain.MeasurementType) []domain.Unit {
	seen := make(map[string]bool, len(unitTable)+len(r.catalog))
	var out []domain.Unit
	add := func(code string) {
		if seen[code] {
			return
		}
		seen[code] = true
		u, ok := r.Lookup(code)
		if !ok {
			return
		}
		if mt != "" && u.MeasurementType != mt {
			return
		}
		out = append(out, u)
	}
	for code := range r.catalog {
		add(code)
	}
	for code := range unitTable {
		add(code)
	}

	order := make(map[domain.MeasurementType]int, len(domain.MeasurementTypes))
	for i, t := range domain.MeasurementTypes {
		order[t] = i
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MeasurementType != out[j].MeasurementType {
			return order[out[i].MeasurementType] < order[out[j].MeasurementType]
		}
		if out[i].ConversionFactor != out[j].ConversionFactor {
			return out[i].ConversionFactor < out[j].ConversionFactor
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// ResolveStandardValue finds a standard value of a unit by display value or alias
func (r *UnitRegistry) ResolveStandardValue(code, display string) (domain.StandardValue, bool) {
	u, ok := r.catalog[normalizeUnitCode(code)]
	if !ok {
		return domain.StandardValue{}, false
	}
	for _, sv := range u.StandardValues {
		if sv.Matches(display) {
			return sv, true
		}
	}
	return domain.StandardValue{}, false
}

// validateCatalog enforces exactly one base unit with factor 1 per measurement type,
// and that it agrees with the hardcoded base used by the conversion math
func validateCatalog(units []domain.Unit) error {
	bases := make(map[domain.MeasurementType][]domain.Unit)
	present := make(map[domain.MeasurementType]bool)
	codes := make(map[string]bool, len(units))

	for _, u := range units {
		code := normalizeUnitCode(u.Code)
		if code == "" {
			return fmt.Errorf("%w: unit with empty code", domain.ErrInvalidCatalog)
		}
		if codes[code] {
			return fmt.Errorf("%w: duplicate unit code %q", domain.ErrInvalidCatalog, code)
		}
		codes[code] = true
		if !u.MeasurementType.Valid() {
			return fmt.Errorf("%w: unit %q has unknown measurement type %q", domain.ErrInvalidCatalog, code, u.MeasurementType)
		}
		if !u.MeasurementType.Convertible() {
			continue
		}
		present[u.MeasurementType] = true
		if u.IsBase() {
			bases[u.MeasurementType] = append(bases[u.MeasurementType], u)
		}
	}

	for mt := range present {
		found := bases[mt]
		if len(found) != 1 {
			return fmt.Errorf("%w: measurement type %q has %d base units, want 1", domain.ErrInvalidCatalog, mt, len(found))
		}
		base := found[0]
		if want := baseUnits[mt]; normalizeUnitCode(base.Code) != want {
			return fmt.Errorf("%w: base unit of %q is %q, want %q", domain.ErrInvalidCatalog, mt, base.Code, want)
		}
		if base.ConversionFactor != 1 {
			return fmt.Errorf("%w: base unit %q has conversion factor %v, want 1", domain.ErrInvalidCatalog, base.Code, base.ConversionFactor)
		}
	}
	return nil
}

func normalizeUnitCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
