package convention

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/vocabulary"
)

const pivConventionYAML = `
name: piv-convention
institution: Institute of Fluid Mechanics
contact: piv@example.org
standard_name_table: https://example.org/tables/piv.yaml
strict: true
attributes:
  units:
    description: Physical units of the dataset.
    target_kinds: [dataset]
    required: true
    validator: units
  standard_name:
    description: Controlled vocabulary term for the quantity.
    target_kinds: [dataset]
    validator: standard_name
    iri: ssno:hasStandardName
  creator_orcid:
    target_kinds: [file]
    validator: orcid
  run_id:
    validator: regex
    pattern: "^run-[0-9]+$"
    default: run-0
`

func TestLoadConvention(t *testing.T) {
	c, err := Load(strings.NewReader(pivConventionYAML))
	require.NoError(t, err)

	assert.Equal(t, "piv-convention", c.Name)
	assert.Equal(t, "https://example.org/tables/piv.yaml", c.TableURL)
	assert.True(t, c.Strict)

	spec, ok := c.Spec("standard_name")
	require.True(t, ok)
	assert.Equal(t, vocabulary.SsnoHasStandardName, spec.IRI)
	assert.Equal(t, []vocabulary.TargetKind{vocabulary.KindDataset}, spec.TargetKinds)

	assert.Equal(t, []string{"units"}, c.RequiredFor(vocabulary.KindDataset))

	runID, ok := c.Spec("run_id")
	require.True(t, ok)
	assert.Equal(t, "run-0", runID.Default)
}

func TestLoadConventionSchemaRejections(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing name", "attributes: {}"},
		{"unknown top-level key", "name: x\nattributes: {}\nextra: 1"},
		{"bad target kind", "name: x\nattributes:\n  a:\n    target_kinds: [stream]"},
		{"unknown validator", "name: x\nattributes:\n  a:\n    validator: telepathy"},
		{"unknown attribute key", "name: x\nattributes:\n  a:\n    mystery: true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidData)
		})
	}
}

func TestLoadConventionBadYAML(t *testing.T) {
	_, err := Load(strings.NewReader("name: [unclosed"))
	require.Error(t, err)
}

func TestLoadConventionBadPattern(t *testing.T) {
	doc := "name: x\nattributes:\n  a:\n    validator: regex\n    pattern: '('"
	_, err := Load(strings.NewReader(doc))
	require.Error(t, err)
}
