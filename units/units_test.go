package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semcat/errors"
)

func TestParseSpellings(t *testing.T) {
	// All spellings of the same physical unit must reduce identically.
	tests := []struct {
		name string
		a    string
		b    string
	}{
		{"whitespace vs caret", "m s-1", "m/s"},
		{"dot separator", "m.s-1", "m s-1"},
		{"star and caret", "kg*m/s^2", "kg m s-2"},
		{"double star", "m**2", "m2"},
		{"caret", "m^2", "m2"},
		{"newton equivalence", "N", "kg m s-2"},
		{"pascal equivalence", "Pa", "N/m2"},
		{"joule equivalence", "J", "N m"},
		{"watt equivalence", "W", "J/s"},
		{"volt equivalence", "V", "W/A"},
		{"group divisor", "kg/(m s)", "kg m-1 s-1"},
		{"divisor inside divided group", "kg/(m/s)", "kg s m-1"},
		{"ratio of identical groups", "(m/s)/(m/s)", "1"},
		{"chained division", "kg/m/s", "kg m-1 s-1"},
		{"prefix", "km", "m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Parse(tt.a)
			require.NoError(t, err)
			b, err := Parse(tt.b)
			require.NoError(t, err)
			assert.Equal(t, a.Dimension(), b.Dimension(), "dimension mismatch %q vs %q", tt.a, tt.b)
		})
	}
}

func TestParseScale(t *testing.T) {
	tests := []struct {
		expr  string
		ref   string
		scale float64
	}{
		{"km", "m", 1000},
		{"mm", "m", 0.001},
		{"hPa", "Pa", 100},
		{"mbar", "Pa", 100},
		{"min", "s", 60},
		{"h", "s", 3600},
		{"kW h", "J", 3.6e6},
		{"g", "kg", 0.001},
		{"L", "m3", 0.001},
		{"%", "1", 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			from := MustParse(tt.expr)
			to := MustParse(tt.ref)
			factor, err := ScaleFactor(from, to)
			require.NoError(t, err)
			assert.InEpsilon(t, tt.scale, factor, 1e-9)
		})
	}
}

func TestParseDimensionless(t *testing.T) {
	for _, expr := range []string{"", "1", "dimensionless", "%", "ppm", "rad", "counts"} {
		u, err := Parse(expr)
		require.NoError(t, err, expr)
		assert.True(t, u.Dimensionless(), expr)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"unknown symbol", "furlongs"},
		{"exponent overflow", "m^12"},
		{"glued exponent overflow", "m12"},
		{"affine in compound", "degC/s"},
		{"dangling exponent", "m^"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.expr)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrUnitsUnparseable)
		})
	}
}

func TestConvertible(t *testing.T) {
	assert.True(t, Convertible(MustParse("m/s"), MustParse("km/h")))
	assert.True(t, Convertible(MustParse("Pa"), MustParse("bar")))
	assert.True(t, Convertible(MustParse("K"), MustParse("degC")))
	assert.True(t, Convertible(MustParse("(m/s)/(m/s)"), MustParse("1")))
	assert.False(t, Convertible(MustParse("m/s"), MustParse("m/s2")))
	assert.False(t, Convertible(MustParse("kg"), MustParse("m")))
}

func TestScaleFactorRejectsAffine(t *testing.T) {
	_, err := ScaleFactor(MustParse("degC"), MustParse("K"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnitsIncompatible)
}

func TestConvertTemperature(t *testing.T) {
	got, err := Convert(20, MustParse("degC"), MustParse("K"))
	require.NoError(t, err)
	assert.InDelta(t, 293.15, got, 1e-9)

	got, err = Convert(273.15, MustParse("K"), MustParse("degC"))
	require.NoError(t, err)
	assert.InDelta(t, 0, got, 1e-9)

	got, err = Convert(32, MustParse("degF"), MustParse("degC"))
	require.NoError(t, err)
	assert.InDelta(t, 0, got, 1e-6)
}

func TestConvertSpeed(t *testing.T) {
	got, err := Convert(1, MustParse("m/s"), MustParse("km/h"))
	require.NoError(t, err)
	assert.InDelta(t, 3.6, got, 1e-9)
}

func TestConvertIncompatible(t *testing.T) {
	_, err := Convert(1, MustParse("m"), MustParse("s"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnitsIncompatible)
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		expr     string
		expected string
	}{
		{"N", "kg m s-2"},
		{"J", "kg m2 s-2"},
		{"Pa", "kg m-1 s-2"},
		{"m/s", "m s-1"},
		{"1", "1"},
		{"%", "1"},
		{"V", "kg m2 s-3 A-1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, MustParse(tt.expr).Canonical(), tt.expr)
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(MustParse("N m"), MustParse("J")))
	assert.True(t, Equal(MustParse("m s-1"), MustParse("m/s")))
	assert.False(t, Equal(MustParse("km"), MustParse("m")))
}

func TestDimensionString(t *testing.T) {
	assert.Equal(t, "1", Dimension{}.String())
	assert.Equal(t, "L1 T-2", MustParse("m/s2").Dimension().String())
}
