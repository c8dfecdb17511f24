package convention

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/snt"
	"github.com/c360studio/semcat/vocabulary"
)

func testTable(t *testing.T) *snt.Table {
	t.Helper()
	tbl := snt.NewTable("piv", snt.MustParseVersion("v1.0.0"))
	require.NoError(t, tbl.Add("x_velocity", "m/s", "Velocity component in x direction."))
	require.NoError(t, tbl.Add("time", "s", "Time."))
	return tbl
}

func testConvention(t *testing.T) *Convention {
	t.Helper()
	c := New("piv-convention")
	require.NoError(t, c.AddAttribute(AttributeSpec{
		Name:        "units",
		Required:    true,
		Validator:   "units",
		TargetKinds: []vocabulary.TargetKind{vocabulary.KindDataset},
	}))
	require.NoError(t, c.AddAttribute(AttributeSpec{
		Name:        "standard_name",
		Validator:   "standard_name",
		TargetKinds: []vocabulary.TargetKind{vocabulary.KindDataset},
	}))
	require.NoError(t, c.AddAttribute(AttributeSpec{
		Name:        "long_name",
		Validator:   "non-empty",
		TargetKinds: []vocabulary.TargetKind{vocabulary.KindDataset},
	}))
	require.NoError(t, c.AddAttribute(AttributeSpec{
		Name:        "contact",
		Required:    true,
		Validator:   "orcid",
		TargetKinds: []vocabulary.TargetKind{vocabulary.KindFile},
	}))
	c.SetTable(testTable(t))
	return c
}

func TestValidateCleanDataset(t *testing.T) {
	c := testConvention(t)
	issues := c.Validate(vocabulary.KindDataset, map[string]any{
		"units":         "mm/s",
		"standard_name": "x_velocity",
		"long_name":     "streamwise velocity",
	})
	assert.Empty(t, issues)
}

func TestValidateMissingRequired(t *testing.T) {
	c := testConvention(t)
	issues := c.Validate(vocabulary.KindDataset, map[string]any{})
	require.Len(t, issues, 1)
	assert.Equal(t, "units", issues[0].Attribute)
	assert.Equal(t, SeverityError, issues[0].Severity)
}

func TestValidateMissingWithDefaultIsQuiet(t *testing.T) {
	c := New("defaults")
	require.NoError(t, c.AddAttribute(AttributeSpec{
		Name:     "institution",
		Required: true,
		Default:  "unknown",
	}))
	assert.Empty(t, c.Validate(vocabulary.KindFile, map[string]any{}))
	assert.Equal(t, map[string]any{"institution": "unknown"},
		c.Defaults(vocabulary.KindFile))
}

func TestValidateBadValues(t *testing.T) {
	c := testConvention(t)
	issues := c.Validate(vocabulary.KindDataset, map[string]any{
		"units":         "flurbs",
		"standard_name": "Bad Name",
		"long_name":     "   ",
	})
	attrs := make(map[string]bool)
	for _, issue := range issues {
		attrs[issue.Attribute] = true
		assert.Equal(t, SeverityError, issue.Severity)
	}
	assert.True(t, attrs["units"])
	assert.True(t, attrs["standard_name"])
	assert.True(t, attrs["long_name"])
}

func TestValidateUnitsCrossCheck(t *testing.T) {
	c := testConvention(t)
	issues := c.Validate(vocabulary.KindDataset, map[string]any{
		"units":         "kg",
		"standard_name": "x_velocity",
	})
	require.NotEmpty(t, issues)
	found := false
	for _, issue := range issues {
		if issue.Attribute == "standard_name" &&
			strings.Contains(issue.Message, "not convertible") {
			found = true
		}
	}
	assert.True(t, found, "expected a unit convertibility issue, got %v", issues)
}

func TestValidateStrictFlagsUnknownAttributes(t *testing.T) {
	c := testConvention(t)
	c.Strict = true
	issues := c.Validate(vocabulary.KindDataset, map[string]any{
		"units":      "m/s",
		"fancy_attr": 1,
	})
	require.Len(t, issues, 1)
	assert.Equal(t, "fancy_attr", issues[0].Attribute)
	assert.Equal(t, SeverityWarning, issues[0].Severity)
}

func TestValidateKindScoping(t *testing.T) {
	c := testConvention(t)
	// The dataset attributes do not apply to files; only contact does.
	issues := c.Validate(vocabulary.KindFile, map[string]any{})
	require.Len(t, issues, 1)
	assert.Equal(t, "contact", issues[0].Attribute)
}

func TestValidators(t *testing.T) {
	tests := []struct {
		validator string
		value     any
		valid     bool
	}{
		{"units", "m/s", true},
		{"units", "bogus_unit", false},
		{"units", 42, false},
		{"orcid", "0000-0002-1825-0097", true},
		{"orcid", "https://orcid.org/0000-0002-1825-0097", true},
		{"orcid", "0000-0002-1825-0096", false}, // bad check digit
		{"orcid", "not-an-orcid", false},
		{"url", "https://example.org/data", true},
		{"url", "example.org", false},
		{"date-time", "2024-03-01T12:00:00Z", true},
		{"date-time", "2024-03-01", true},
		{"date-time", "yesterday", false},
		{"non-empty", "x", true},
		{"non-empty", "  ", false},
	}
	for _, tt := range tests {
		v := LookupValidator(tt.validator)
		require.NotNil(t, v, tt.validator)
		err := v(tt.value)
		if tt.valid {
			assert.NoError(t, err, "%s(%v)", tt.validator, tt.value)
		} else {
			assert.ErrorIs(t, err, errors.ErrAttributeInvalid, "%s(%v)", tt.validator, tt.value)
		}
	}
}

func TestRegexValidator(t *testing.T) {
	c := New("regex")
	require.NoError(t, c.AddAttribute(AttributeSpec{
		Name:      "run_id",
		Validator: "regex",
		Pattern:   `^run-\d{4}$`,
	}))
	assert.Empty(t, c.Validate(vocabulary.KindFile, map[string]any{"run_id": "run-0042"}))
	assert.Len(t, c.Validate(vocabulary.KindFile, map[string]any{"run_id": "run42"}), 1)

	err := c.AddAttribute(AttributeSpec{Name: "broken", Validator: "regex", Pattern: "("})
	assert.Error(t, err)
}

func TestEnableAndCurrent(t *testing.T) {
	vocabulary.ClearRegistry()
	defer vocabulary.ClearRegistry()
	defer Disable()

	c := testConvention(t)
	RegisterConvention(c)

	require.NoError(t, Enable("piv-convention"))
	assert.Same(t, c, Current())
	assert.Contains(t, ListConventions(), "piv-convention")

	// Enabling publishes attribute metadata globally.
	meta := vocabulary.GetAttributeMetadata("units")
	require.NotNil(t, meta)
	assert.True(t, meta.RequiredOn(vocabulary.KindDataset))

	assert.ErrorIs(t, Enable("nope"), errors.ErrConventionNotFound)
}
