package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantityParser_Parse(t *testing.T) {
	p := NewQuantityParser(nil)

	tests := []struct {
		input     string
		wantValue float64
		wantUnit  string
		wantOK    bool
	}{
		{"12", 12, "", true},
		{"12 in", 12, "in", true},
		{`12"`, 12, "in", true},
		{"304.8 mm", 304.8, "mm", true},
		{".5 ft", 0.5, "ft", true},
		{"-40 °F", -40, "f", true},
		{"3/4", 0.75, "", true},
		{"3/4 in", 0.75, "in", true},
		{`1-1/2"`, 1.5, "in", true},
		{"1 1/2 inches", 1.5, "in", true},
		{"1,200 sq ft", 1200, "sq_ft", true},
		{"5 Gallons", 5, "gal", true},
		{"2 fl oz", 2, "fl_oz", true},
		{"10 lbs", 10, "lb", true},
		{"3 hours", 3, "hr", true},
		{"4 pieces", 4, "pcs", true},
		{"7 furlongs", 7, "furlongs", true},
		{"1/0 in", 0, "", false},
		{"red", 0, "", false},
		{"", 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			q, ok := p.Parse(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.InDelta(t, tt.wantValue, q.Value, 1e-12)
			assert.Equal(t, tt.wantUnit, q.Unit)
		})
	}
}

func TestQuantityParser_CanonicalUnit(t *testing.T) {
	p := NewQuantityParser(DefaultUnitRegistry())

	assert.Equal(t, "in", p.CanonicalUnit(" IN "))
	assert.Equal(t, "ft", p.CanonicalUnit("ft."))
	assert.Equal(t, "sq_m", p.CanonicalUnit("sq   m"))
	assert.Equal(t, "sq_km", p.CanonicalUnit("SQ KM"))
	assert.Equal(t, "", p.CanonicalUnit("  "))
}
