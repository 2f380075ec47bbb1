package usecase

import (
	"regexp"
	"strconv"
	"strings"
)

// Compiled patterns for quantity parsing
var (
	// Matches fractions and mixed numbers like "3/4", "1-1/2", "1 1/2"
	mixedFractionPattern = regexp.MustCompile(`^(-)?(?:(\d+)(?:\s+|-))?(\d+)\s*/\s*(\d+)\s*(.*)$`)

	// Matches plain decimals like "12", "0.75", ".5", "-40"
	decimalPattern = regexp.MustCompile(`^(-?(?:\d+(?:\.\d*)?|\.\d+))\s*(.*)$`)

	// Thousands separators between digits
	thousandsPattern = regexp.MustCompile(`(\d),(\d{3})`)

	multipleSpacesPattern = regexp.MustCompile(`\s+`)
)

// unitAliases maps free-form unit spellings to registry codes
var unitAliases = map[string]string{
	`"`: "in", "in.": "in", "inch": "in", "inches": "in", "″": "in",
	"'": "ft", "ft.": "ft", "foot": "ft", "feet": "ft", "′": "ft",
	"yard": "yd", "yards": "yd", "yds": "yd",
	"mile": "mi", "miles": "mi",
	"millimeter": "mm", "millimeters": "mm", "millimetre": "mm", "millimetres": "mm",
	"centimeter": "cm", "centimeters": "cm", "centimetre": "cm", "centimetres": "cm",
	"meter": "m", "meters": "m", "metre": "m", "metres": "m",
	"kilometer": "km", "kilometers": "km", "kilometre": "km", "kilometres": "km",

	"sq in": "sq_in", "in2": "sq_in", "in²": "sq_in", "square inches": "sq_in",
	"sq ft": "sq_ft", "sf": "sq_ft", "ft2": "sq_ft", "ft²": "sq_ft", "square feet": "sq_ft",
	"sq yd": "sq_yd", "yd2": "sq_yd", "yd²": "sq_yd", "square yards": "sq_yd",
	"sq m": "sq_m", "m2": "sq_m", "m²": "sq_m", "square meters": "sq_m", "square metres": "sq_m",
	"sq km": "sq_km", "km2": "sq_km", "km²": "sq_km",

	"gallon": "gal", "gallons": "gal",
	"quart": "qt", "quarts": "qt",
	"pint": "pt", "pints": "pt",
	"fl oz": "fl_oz", "fl. oz": "fl_oz", "fl. oz.": "fl_oz", "floz": "fl_oz", "fluid ounces": "fl_oz",
	"liter": "l", "liters": "l", "litre": "l", "litres": "l",
	"milliliter": "ml", "milliliters": "ml", "millilitre": "ml", "millilitres": "ml",

	"lbs": "lb", "pound": "lb", "pounds": "lb", "#": "lb",
	"ounce": "oz", "ounces": "oz",
	"kilogram": "kg", "kilograms": "kg", "kgs": "kg",
	"gram": "g", "grams": "g",
	"tons": "ton",

	"°f": "f", "degf": "f", "fahrenheit": "f", "deg f": "f",
	"°c": "c", "degc": "c", "celsius": "c", "deg c": "c",

	"sec": "s", "second": "s", "seconds": "s",
	"minute": "min", "minutes": "min", "mins": "min",
	"hour": "hr", "hours": "hr", "hrs": "hr", "h": "hr",
	"days": "day",
	"week": "wk", "weeks": "wk",

	"each": "ea", "pc": "pcs", "piece": "pcs", "pieces": "pcs", "count": "ct",
}

// Quantity is a number with an optional unit code
type Quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// QuantityParser turns strings like `1-1/2"`, "304.8 mm" or "5 gallons" into quantities
type QuantityParser struct {
	registry *UnitRegistry
}

// NewQuantityParser creates a parser that canonicalizes units through registry
func NewQuantityParser(registry *UnitRegistry) *QuantityParser {
	if registry == nil {
		registry = DefaultUnitRegistry()
	}
	return &QuantityParser{registry: registry}
}

// Parse extracts a quantity. ok is false when no leading number is present.
// Unit text the registry does not know is returned lowercased, so callers can
// still degrade to unconverted comparison.
func (p *QuantityParser) Parse(s string) (Quantity, bool) {
	text := strings.TrimSpace(thousandsPattern.ReplaceAllString(s, "$1$2"))
	if text == "" {
		return Quantity{}, false
	}

	if m := mixedFractionPattern.FindStringSubmatch(text); m != nil {
		num, _ := strconv.ParseFloat(m[3], 64)
		den, _ := strconv.ParseFloat(m[4], 64)
		if den == 0 {
			return Quantity{}, false
		}
		value := num / den
		if m[2] != "" {
			whole, _ := strconv.ParseFloat(m[2], 64)
			value += whole
		}
		if m[1] == "-" {
			value = -value
		}
		return Quantity{Value: value, Unit: p.CanonicalUnit(m[5])}, true
	}

	if m := decimalPattern.FindStringSubmatch(text); m != nil {
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Quantity{}, false
		}
		return Quantity{Value: value, Unit: p.CanonicalUnit(m[2])}, true
	}

	return Quantity{}, false
}

// CanonicalUnit maps a unit spelling to its registry code
func (p *QuantityParser) CanonicalUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	u = multipleSpacesPattern.ReplaceAllString(u, " ")
	if u == "" {
		return ""
	}
	if _, ok := p.registry.ConversionFactor(u); ok {
		return u
	}
	if code, ok := unitAliases[u]; ok {
		return code
	}
	if code, ok := unitAliases[strings.TrimSuffix(u, ".")]; ok {
		return code
	}
	underscored := strings.ReplaceAll(u, " ", "_")
	if _, ok := p.registry.ConversionFactor(underscored); ok {
		return underscored
	}
	return u
}
