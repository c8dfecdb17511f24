package vocabulary

import (
	"sort"
	"sync"
)

// TargetKind identifies the HDF5 object class an attribute applies to.
type TargetKind string

const (
	// KindFile targets the root group of a file.
	KindFile TargetKind = "file"
	// KindGroup targets non-root groups.
	KindGroup TargetKind = "group"
	// KindDataset targets datasets.
	KindDataset TargetKind = "dataset"
)

// IsValid checks if the TargetKind is one of the defined constants.
func (tk TargetKind) IsValid() bool {
	switch tk {
	case KindFile, KindGroup, KindDataset:
		return true
	default:
		return false
	}
}

// String returns the string representation of the target kind.
func (tk TargetKind) String() string {
	return string(tk)
}

// AttributeMetadata describes a registered standard attribute: what it
// means, where it applies, how it is validated, and its RDF equivalent.
type AttributeMetadata struct {
	// Name is the attribute name as stored in HDF5 (e.g., "standard_name").
	Name string

	// Description is the human-readable meaning of the attribute.
	Description string

	// DataType is the expected Go type of the value ("string", "float64", ...).
	DataType string

	// Validator names the validator in the convention registry that checks
	// values of this attribute ("units", "standard_name", "regex", ...).
	Validator string

	// RequiredFor lists the target kinds on which the attribute is
	// mandatory. Empty means optional everywhere.
	RequiredFor []TargetKind

	// Default is the value applied when the attribute is absent at creation
	// time. Nil means no default.
	Default any

	// StandardIRI is the W3C/RDF equivalent IRI for export and
	// interoperability. Use the constants from iris.go.
	StandardIRI string
}

// RequiredOn reports whether the attribute is mandatory for the given kind.
func (am AttributeMetadata) RequiredOn(kind TargetKind) bool {
	for _, k := range am.RequiredFor {
		if k == kind {
			return true
		}
	}
	return false
}

// Global attribute registry
var (
	registryMu        sync.RWMutex
	attributeRegistry = make(map[string]AttributeMetadata)
)

// Option is a functional option for configuring attribute registration.
type Option func(*AttributeMetadata)

// WithDescription sets the human-readable description of the attribute.
func WithDescription(desc string) Option {
	return func(m *AttributeMetadata) {
		m.Description = desc
	}
}

// WithDataType sets the expected Go type for the attribute value.
// Examples: "string", "float64", "int", "bool"
func WithDataType(dataType string) Option {
	return func(m *AttributeMetadata) {
		m.DataType = dataType
	}
}

// WithValidator names the convention validator applied to values.
func WithValidator(name string) Option {
	return func(m *AttributeMetadata) {
		m.Validator = name
	}
}

// WithRequiredFor marks the attribute mandatory on the given target kinds.
func WithRequiredFor(kinds ...TargetKind) Option {
	return func(m *AttributeMetadata) {
		m.RequiredFor = append(m.RequiredFor, kinds...)
	}
}

// WithDefault sets the value applied when the attribute is absent at
// creation time.
func WithDefault(v any) Option {
	return func(m *AttributeMetadata) {
		m.Default = v
	}
}

// WithIRI sets the W3C/RDF equivalent IRI for standards compliance.
// This enables RDF export and semantic web interoperability.
//
// Examples:
//   - WithIRI(SsnoHasStandardName)
//   - WithIRI(DcTitle)
func WithIRI(iri string) Option {
	return func(m *AttributeMetadata) {
		m.StandardIRI = iri
	}
}

// Register registers a standard attribute with its metadata in the global
// registry. This should be called during package initialization (init
// functions) by convention packages.
//
// If an attribute is already registered, it will be overwritten (enables
// convention-specific overrides).
//
// Example:
//
//	Register("standard_name",
//	    WithDescription("Controlled vocabulary term for the quantity"),
//	    WithDataType("string"),
//	    WithValidator("standard_name"),
//	    WithRequiredFor(KindDataset),
//	    WithIRI(SsnoHasStandardName))
func Register(name string, opts ...Option) {
	meta := AttributeMetadata{Name: name}
	for _, opt := range opts {
		opt(&meta)
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	attributeRegistry[name] = meta
}

// RegisterAttribute registers an attribute using the AttributeMetadata
// struct directly. New code should use Register() with functional options.
func RegisterAttribute(meta AttributeMetadata) {
	registryMu.Lock()
	defer registryMu.Unlock()
	attributeRegistry[meta.Name] = meta
}

// GetAttributeMetadata retrieves metadata for an attribute from the
// registry. Returns nil if the attribute is not registered.
// This function is thread-safe and can be called concurrently.
func GetAttributeMetadata(name string) *AttributeMetadata {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if meta, exists := attributeRegistry[name]; exists {
		metaCopy := meta
		return &metaCopy
	}
	return nil
}

// ListRegisteredAttributes returns the sorted names of all registered
// attributes. Useful for debugging and introspection.
func ListRegisteredAttributes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(attributeRegistry))
	for name := range attributeRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RequiredAttributes returns the sorted names of attributes mandatory for
// the given target kind. Creation wrappers use this to enforce presence.
func RequiredAttributes(kind TargetKind) []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var names []string
	for name, meta := range attributeRegistry {
		if meta.RequiredOn(kind) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ClearRegistry clears all registered attributes.
// This is primarily useful for testing.
func ClearRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	attributeRegistry = make(map[string]AttributeMetadata)
}
