package vocabulary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLookup(t *testing.T) {
	ClearRegistry()
	defer ClearRegistry()

	Register("standard_name",
		WithDescription("Controlled vocabulary term for the quantity"),
		WithDataType("string"),
		WithValidator("standard_name"),
		WithRequiredFor(KindDataset),
		WithIRI(SsnoHasStandardName))

	meta := GetAttributeMetadata("standard_name")
	require.NotNil(t, meta)
	assert.Equal(t, "standard_name", meta.Name)
	assert.Equal(t, "string", meta.DataType)
	assert.Equal(t, "standard_name", meta.Validator)
	assert.Equal(t, SsnoHasStandardName, meta.StandardIRI)
	assert.True(t, meta.RequiredOn(KindDataset))
	assert.False(t, meta.RequiredOn(KindGroup))
}

func TestLookupUnregisteredReturnsNil(t *testing.T) {
	ClearRegistry()
	defer ClearRegistry()

	assert.Nil(t, GetAttributeMetadata("no_such_attribute"))
}

func TestLookupReturnsCopy(t *testing.T) {
	ClearRegistry()
	defer ClearRegistry()

	Register("units", WithDataType("string"))

	meta := GetAttributeMetadata("units")
	require.NotNil(t, meta)
	meta.DataType = "mutated"

	again := GetAttributeMetadata("units")
	require.NotNil(t, again)
	assert.Equal(t, "string", again.DataType)
}

func TestRegisterOverrides(t *testing.T) {
	ClearRegistry()
	defer ClearRegistry()

	Register("long_name", WithDescription("first"))
	Register("long_name", WithDescription("second"))

	meta := GetAttributeMetadata("long_name")
	require.NotNil(t, meta)
	assert.Equal(t, "second", meta.Description)
}

func TestRequiredAttributes(t *testing.T) {
	ClearRegistry()
	defer ClearRegistry()

	Register("units", WithRequiredFor(KindDataset))
	Register("standard_name", WithRequiredFor(KindDataset))
	Register("title", WithRequiredFor(KindFile))
	Register("comment")

	assert.Equal(t, []string{"standard_name", "units"}, RequiredAttributes(KindDataset))
	assert.Equal(t, []string{"title"}, RequiredAttributes(KindFile))
	assert.Empty(t, RequiredAttributes(KindGroup))
}

func TestTargetKindValidity(t *testing.T) {
	assert.True(t, KindFile.IsValid())
	assert.True(t, KindGroup.IsValid())
	assert.True(t, KindDataset.IsValid())
	assert.False(t, TargetKind("stream").IsValid())
	assert.Equal(t, "dataset", KindDataset.String())
}

func TestExpand(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"dcat:Dataset", DcatDataset},
		{"dcterms:title", DcTitle},
		{"dct:title", DcTitle},
		{"ssno:StandardName", SsnoStandardName},
		{"http://example.org/x", "http://example.org/x"},
		{"unknown:thing", "unknown:thing"},
		{"nocolon", "nocolon"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Expand(tt.in), tt.in)
	}
}

func TestCompact(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{DcatDistribution, "dcat:Distribution"},
		{DcTitle, "dct:title"}, // dct sorts before dcterms
		{SkosPrefLabel, "skos:prefLabel"},
		{"http://example.org/x", "http://example.org/x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Compact(tt.in), tt.in)
	}
}

func TestExpandCompactRoundTrip(t *testing.T) {
	for _, iri := range []string{DcatDataset, SsnoHasStandardName, RdfType, XsdDouble} {
		assert.Equal(t, iri, Expand(Compact(iri)))
	}
}
