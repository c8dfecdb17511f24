package convention

import (
	"fmt"
	"sort"
	"sync"

	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/snt"
	"github.com/c360studio/semcat/vocabulary"
)

// Severity grades a validation issue.
type Severity string

const (
	// SeverityError marks violations of the convention.
	SeverityError Severity = "error"
	// SeverityWarning marks findings that do not violate the convention.
	SeverityWarning Severity = "warning"
)

// Issue is one finding from convention validation.
type Issue struct {
	// Attribute is the attribute name the issue concerns.
	Attribute string

	// Message describes the finding.
	Message string

	// Severity grades the finding.
	Severity Severity
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Attribute, i.Message)
}

// AttributeSpec is one attribute requirement within a convention.
type AttributeSpec struct {
	// Name is the HDF5 attribute name.
	Name string

	// Description is the human-readable meaning.
	Description string

	// TargetKinds lists the object kinds the spec applies to. Empty means
	// all kinds.
	TargetKinds []vocabulary.TargetKind

	// Required makes the attribute mandatory on its target kinds.
	Required bool

	// Validator names the registered validator for values ("units",
	// "standard_name", "regex", "orcid", "url", "date-time", "non-empty").
	// Empty skips value validation.
	Validator string

	// Pattern is the regular expression for the "regex" validator.
	Pattern string

	// Default is applied at creation time when the attribute is absent.
	Default any

	// IRI is the RDF equivalent of the attribute.
	IRI string
}

// AppliesTo reports whether the spec targets the given kind.
func (s AttributeSpec) AppliesTo(kind vocabulary.TargetKind) bool {
	if len(s.TargetKinds) == 0 {
		return true
	}
	for _, k := range s.TargetKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Convention is a named set of attribute requirements.
type Convention struct {
	// Name identifies the convention.
	Name string

	// Institution and Contact identify the maintainer.
	Institution string
	Contact     string

	// TableURL is the standard name table location declared by the
	// convention document, if any.
	TableURL string

	// Strict makes attributes outside the convention a warning.
	Strict bool

	mu         sync.RWMutex
	attributes map[string]AttributeSpec
	table      *snt.Table
}

// New creates an empty convention.
func New(name string) *Convention {
	return &Convention{
		Name:       name,
		attributes: make(map[string]AttributeSpec),
	}
}

// AddAttribute inserts or replaces an attribute spec. Regex validators must
// carry a compilable pattern.
func (c *Convention) AddAttribute(spec AttributeSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("convention.AddAttribute: empty attribute name: %w", errors.ErrInvalidData)
	}
	for _, k := range spec.TargetKinds {
		if !k.IsValid() {
			return fmt.Errorf("convention.AddAttribute: %q has invalid target kind %q: %w",
				spec.Name, k, errors.ErrInvalidData)
		}
	}
	if spec.Validator == "regex" {
		if _, err := regexValidator(spec.Pattern); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.attributes[spec.Name] = spec
	return nil
}

// SetTable binds the standard name table used by the standard_name
// validator and creation-time unit cross-checks.
func (c *Convention) SetTable(t *snt.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table = t
}

// Table returns the bound standard name table, or nil.
func (c *Convention) Table() *snt.Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table
}

// Attributes returns all specs sorted by name.
func (c *Convention) Attributes() []AttributeSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]AttributeSpec, 0, len(c.attributes))
	for _, spec := range c.attributes {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Spec returns the spec for an attribute name.
func (c *Convention) Spec(name string) (AttributeSpec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	spec, ok := c.attributes[name]
	return spec, ok
}

// RequiredFor returns the sorted names of attributes mandatory on the kind.
func (c *Convention) RequiredFor(kind vocabulary.TargetKind) []string {
	var names []string
	for _, spec := range c.Attributes() {
		if spec.Required && spec.AppliesTo(kind) {
			names = append(names, spec.Name)
		}
	}
	return names
}

// Defaults returns the creation-time default values for the kind.
func (c *Convention) Defaults(kind vocabulary.TargetKind) map[string]any {
	out := make(map[string]any)
	for _, spec := range c.Attributes() {
		if spec.Default != nil && spec.AppliesTo(kind) {
			out[spec.Name] = spec.Default
		}
	}
	return out
}

// Validate checks an attribute set against the convention for one target
// kind and returns all findings. Missing required attributes with a
// declared default are not reported; the creation path applies defaults.
func (c *Convention) Validate(kind vocabulary.TargetKind, attrs map[string]any) []Issue {
	var issues []Issue

	specs := c.Attributes()
	table := c.Table()

	for _, spec := range specs {
		if !spec.AppliesTo(kind) {
			continue
		}
		value, present := attrs[spec.Name]
		if !present {
			if spec.Required && spec.Default == nil {
				issues = append(issues, Issue{
					Attribute: spec.Name,
					Message:   fmt.Sprintf("required on %s but missing", kind),
					Severity:  SeverityError,
				})
			}
			continue
		}
		if err := c.validateValue(spec, value, table); err != nil {
			issues = append(issues, Issue{
				Attribute: spec.Name,
				Message:   err.Error(),
				Severity:  SeverityError,
			})
		}
	}

	// Cross-check standard_name against units when both are present and a
	// table is bound.
	if table != nil {
		name, hasName := attrs["standard_name"].(string)
		unitsVal, hasUnits := attrs["units"].(string)
		if hasName && hasUnits {
			if err := table.Check(name, unitsVal); err != nil {
				issues = append(issues, Issue{
					Attribute: "standard_name",
					Message:   err.Error(),
					Severity:  SeverityError,
				})
			}
		}
	}

	if c.Strict {
		known := make(map[string]struct{}, len(specs))
		for _, spec := range specs {
			known[spec.Name] = struct{}{}
		}
		var unknown []string
		for name := range attrs {
			if _, ok := known[name]; !ok {
				unknown = append(unknown, name)
			}
		}
		sort.Strings(unknown)
		for _, name := range unknown {
			issues = append(issues, Issue{
				Attribute: name,
				Message:   "not part of convention " + c.Name,
				Severity:  SeverityWarning,
			})
		}
	}

	return issues
}

func (c *Convention) validateValue(spec AttributeSpec, value any, table *snt.Table) error {
	switch spec.Validator {
	case "":
		return nil
	case "regex":
		v, err := regexValidator(spec.Pattern)
		if err != nil {
			return err
		}
		return v(value)
	case "standard_name":
		s, err := asString(value)
		if err != nil {
			return err
		}
		if err := snt.CheckSyntax(s); err != nil {
			return err
		}
		if table != nil {
			return table.Verify(s)
		}
		return nil
	default:
		v := LookupValidator(spec.Validator)
		if v == nil {
			return fmt.Errorf("validator %q is not registered: %w",
				spec.Validator, errors.ErrInvalidConfig)
		}
		return v(value)
	}
}

// RegisterAttributes publishes the convention's specs into the global
// attribute registry so other subsystems can discover them.
func (c *Convention) RegisterAttributes() {
	for _, spec := range c.Attributes() {
		opts := []vocabulary.Option{
			vocabulary.WithDescription(spec.Description),
			vocabulary.WithValidator(spec.Validator),
			vocabulary.WithIRI(spec.IRI),
		}
		if spec.Default != nil {
			opts = append(opts, vocabulary.WithDefault(spec.Default))
		}
		if spec.Required {
			kinds := spec.TargetKinds
			if len(kinds) == 0 {
				kinds = []vocabulary.TargetKind{
					vocabulary.KindFile, vocabulary.KindGroup, vocabulary.KindDataset,
				}
			}
			opts = append(opts, vocabulary.WithRequiredFor(kinds...))
		}
		vocabulary.Register(spec.Name, opts...)
	}
}

// Global convention registry and current selection.
var (
	conventionMu sync.RWMutex
	conventions  = map[string]*Convention{}
	current      *Convention
)

// RegisterConvention adds a convention to the global registry.
func RegisterConvention(c *Convention) {
	conventionMu.Lock()
	defer conventionMu.Unlock()
	conventions[c.Name] = c
}

// GetConvention returns a registered convention by name.
func GetConvention(name string) (*Convention, bool) {
	conventionMu.RLock()
	defer conventionMu.RUnlock()
	c, ok := conventions[name]
	return c, ok
}

// ListConventions returns the sorted names of registered conventions.
func ListConventions() []string {
	conventionMu.RLock()
	defer conventionMu.RUnlock()
	names := make([]string, 0, len(conventions))
	for name := range conventions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Enable selects the current convention and publishes its attributes into
// the global attribute registry.
func Enable(name string) error {
	conventionMu.Lock()
	c, ok := conventions[name]
	if ok {
		current = c
	}
	conventionMu.Unlock()
	if !ok {
		return fmt.Errorf("convention.Enable: %q: %w", name, errors.ErrConventionNotFound)
	}
	c.RegisterAttributes()
	return nil
}

// Disable clears the current convention selection.
func Disable() {
	conventionMu.Lock()
	defer conventionMu.Unlock()
	current = nil
}

// Current returns the enabled convention, or nil.
func Current() *Convention {
	conventionMu.RLock()
	defer conventionMu.RUnlock()
	return current
}
