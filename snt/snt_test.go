package snt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/units"
)

func pivTable(t *testing.T) *Table {
	t.Helper()
	tbl := NewTable("piv", MustParseVersion("v1.2.0"))
	require.NoError(t, tbl.Add("x_velocity", "m/s", "Velocity component in x direction."))
	require.NoError(t, tbl.Add("y_velocity", "m/s", "Velocity component in y direction."))
	require.NoError(t, tbl.Add("x_coordinate", "m", "Position along the x axis."))
	require.NoError(t, tbl.Add("time", "s", "Time since start of recording."))
	require.NoError(t, tbl.Add("static_pressure", "Pa", "Static pressure."))
	require.NoError(t, tbl.Add("seeding_density", "1", "Particles per interrogation window."))
	require.NoError(t, tbl.AddAlias("u", "x_velocity"))
	tbl.SetFrames([]string{"rotating_frame"})
	return tbl
}

func TestCheckSyntax(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"x_velocity", true},
		{"pressure2", true},
		{"t", true},
		{"", false},
		{"X_velocity", false},
		{"2nd_moment", false},
		{"x velocity", false},
		{"x__velocity", false},
		{"x_velocity_", false},
		{"_velocity", false},
	}
	for _, tt := range tests {
		err := CheckSyntax(tt.name)
		if tt.valid {
			assert.NoError(t, err, tt.name)
		} else {
			assert.ErrorIs(t, err, errors.ErrNameSyntax, tt.name)
		}
	}
}

func TestLookupWithAlias(t *testing.T) {
	tbl := pivTable(t)

	sn, ok := tbl.Lookup("x_velocity")
	require.True(t, ok)
	assert.Equal(t, "m/s", sn.UnitsExpr)

	viaAlias, ok := tbl.Lookup("u")
	require.True(t, ok)
	assert.Equal(t, "x_velocity", viaAlias.Name)

	_, ok = tbl.Lookup("no_such_name")
	assert.False(t, ok)
}

func TestAddRejectsBadInput(t *testing.T) {
	tbl := NewTable("test", Version{Major: 1})
	assert.ErrorIs(t, tbl.Add("Bad Name", "m", ""), errors.ErrNameSyntax)
	assert.ErrorIs(t, tbl.Add("velocity", "flurbs/s", ""), errors.ErrUnitsUnparseable)
	assert.ErrorIs(t, tbl.AddAlias("v", "unregistered"), errors.ErrNameUnknown)
}

func TestVerifyAndCheck(t *testing.T) {
	tbl := pivTable(t)

	require.NoError(t, tbl.Verify("x_velocity"))
	require.NoError(t, tbl.Verify("u"))
	assert.ErrorIs(t, tbl.Verify("x_velocty"), errors.ErrNameUnknown)

	require.NoError(t, tbl.Check("x_velocity", "m/s"))
	require.NoError(t, tbl.Check("x_velocity", "km/h"))
	require.NoError(t, tbl.Check("static_pressure", "N/m^2"))
	assert.ErrorIs(t, tbl.Check("x_velocity", "kg"), errors.ErrUnitsIncompatible)
	assert.ErrorIs(t, tbl.Check("x_velocity", "not units"), errors.ErrUnitsUnparseable)
}

func TestSuggest(t *testing.T) {
	tbl := pivTable(t)

	suggestions := tbl.Suggest("x_velocty", 3)
	require.NotEmpty(t, suggestions)
	assert.Equal(t, "x_velocity", suggestions[0])

	// Transposition counts as one edit.
	assert.Contains(t, tbl.Suggest("x_veloicty", 3), "x_velocity")

	// Nothing remotely close.
	assert.Empty(t, tbl.Suggest("zzzzzzzzzzzz", 3))
}

func TestResolveUnknownMentionsSuggestions(t *testing.T) {
	tbl := pivTable(t)
	_, err := tbl.Resolve("x_velocty")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "x_velocity")
}

func TestDerivedNames(t *testing.T) {
	tbl := pivTable(t)

	tests := []struct {
		name          string
		expectedUnits string
	}{
		{"derivative_of_x_velocity_wrt_time", "m/s^2"},
		{"derivative_of_x_velocity_wrt_x_coordinate", "1/s"},
		{"square_of_x_velocity", "m^2/s^2"},
		{"standard_deviation_of_x_velocity", "m/s"},
		{"arithmetic_mean_of_static_pressure", "Pa"},
		{"magnitude_of_x_velocity", "m/s"},
		{"product_of_x_velocity_and_y_velocity", "m^2/s^2"},
		{"ratio_of_x_velocity_and_y_velocity", "1"},
		{"product_of_seeding_density_and_static_pressure", "Pa"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sn, err := tbl.Resolve(tt.name)
			require.NoError(t, err)
			assert.True(t, sn.Derived)
			assert.Equal(t, tt.name, sn.Name)

			expected := units.MustParse(tt.expectedUnits)
			assert.True(t, units.Convertible(sn.Units, expected),
				"units %q not convertible to %q", sn.Units.Expr(), tt.expectedUnits)
		})
	}
}

func TestDerivedNamesNest(t *testing.T) {
	tbl := pivTable(t)

	sn, err := tbl.Resolve("magnitude_of_derivative_of_x_velocity_wrt_time")
	require.NoError(t, err)
	assert.True(t, units.Convertible(sn.Units, units.MustParse("m/s^2")))
}

func TestDerivedNameUnknownOperand(t *testing.T) {
	tbl := pivTable(t)
	_, err := tbl.Resolve("derivative_of_warp_factor_wrt_time")
	assert.ErrorIs(t, err, errors.ErrNameUnknown)
}

func TestFrameSuffix(t *testing.T) {
	tbl := pivTable(t)

	sn, err := tbl.Resolve("x_velocity_in_rotating_frame")
	require.NoError(t, err)
	assert.True(t, sn.Derived)
	assert.Equal(t, "m/s", sn.UnitsExpr)

	_, err = tbl.Resolve("x_velocity_in_unknown_frame")
	assert.ErrorIs(t, err, errors.ErrNameUnknown)
}

func TestCheckDerivedUnits(t *testing.T) {
	tbl := pivTable(t)
	require.NoError(t, tbl.Check("derivative_of_x_velocity_wrt_time", "m/s^2"))
	assert.ErrorIs(t, tbl.Check("derivative_of_x_velocity_wrt_time", "m/s"),
		errors.ErrUnitsIncompatible)
}

func TestVersionParseCompare(t *testing.T) {
	v120 := MustParseVersion("v1.2.0")
	assert.Equal(t, Version{Major: 1, Minor: 2}, v120)
	assert.Equal(t, "v1.2.0", v120.String())

	rc := MustParseVersion("1.2.0rc1")
	assert.Equal(t, "rc1", rc.Suffix)

	assert.True(t, v120.Newer(rc))
	assert.True(t, MustParseVersion("v1.10.0").Newer(MustParseVersion("v1.9.9")))
	assert.Equal(t, 0, v120.Compare(MustParseVersion("1.2.0")))

	_, err := ParseVersion("not-a-version")
	assert.ErrorIs(t, err, errors.ErrParsingFailed)
}
