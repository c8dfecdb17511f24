package convention

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/vocabulary"
)

// conventionSchema validates convention documents before registration, so
// a malformed YAML file fails with a field-level message instead of a
// half-loaded convention.
const conventionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "attributes"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "institution": {"type": "string"},
    "contact": {"type": "string"},
    "standard_name_table": {"type": "string"},
    "strict": {"type": "boolean"},
    "attributes": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "description": {"type": "string"},
          "target_kinds": {
            "type": "array",
            "items": {"enum": ["file", "group", "dataset"]}
          },
          "required": {"type": "boolean"},
          "validator": {
            "enum": ["units", "standard_name", "regex", "orcid", "url",
                     "date-time", "non-empty", ""]
          },
          "pattern": {"type": "string"},
          "default": {},
          "iri": {"type": "string"}
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

type conventionYAML struct {
	Name        string                   `yaml:"name"`
	Institution string                   `yaml:"institution"`
	Contact     string                   `yaml:"contact"`
	TableURL    string                   `yaml:"standard_name_table"`
	Strict      bool                     `yaml:"strict"`
	Attributes  map[string]attributeYAML `yaml:"attributes"`
}

type attributeYAML struct {
	Description string   `yaml:"description"`
	TargetKinds []string `yaml:"target_kinds"`
	Required    bool     `yaml:"required"`
	Validator   string   `yaml:"validator"`
	Pattern     string   `yaml:"pattern"`
	Default     any      `yaml:"default"`
	IRI         string   `yaml:"iri"`
}

// Load reads a convention document from YAML. The document is checked
// against the convention JSON schema before any spec is built.
func Load(r io.Reader) (*Convention, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "convention", "Load", "read document")
	}

	var generic map[string]any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, errors.WrapInvalid(err, "convention", "Load", "decode YAML")
	}
	if err := validateSchema(generic); err != nil {
		return nil, err
	}

	var doc conventionYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapInvalid(err, "convention", "Load", "decode document")
	}

	c := New(doc.Name)
	c.Institution = doc.Institution
	c.Contact = doc.Contact
	c.TableURL = doc.TableURL
	c.Strict = doc.Strict

	for name, a := range doc.Attributes {
		kinds := make([]vocabulary.TargetKind, 0, len(a.TargetKinds))
		for _, k := range a.TargetKinds {
			kinds = append(kinds, vocabulary.TargetKind(k))
		}
		spec := AttributeSpec{
			Name:        name,
			Description: a.Description,
			TargetKinds: kinds,
			Required:    a.Required,
			Validator:   a.Validator,
			Pattern:     a.Pattern,
			Default:     a.Default,
			IRI:         vocabulary.Expand(a.IRI),
		}
		if err := c.AddAttribute(spec); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// LoadFile reads a convention document from disk.
func LoadFile(path string) (*Convention, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "convention", "LoadFile", "open document")
	}
	defer f.Close()
	return Load(f)
}

func validateSchema(doc map[string]any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(conventionSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return errors.WrapInvalid(err, "convention", "Load", "run schema validation")
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		msgs = append(msgs, re.String())
	}
	return fmt.Errorf("convention.Load: document fails schema: %s: %w",
		strings.Join(msgs, "; "), errors.ErrInvalidData)
}
