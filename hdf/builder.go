// Package hdf wraps the pure-Go HDF5 library with convention enforcement:
// dataset creation refuses attribute sets that violate the enabled
// convention, existing files can be inspected against a convention and a
// standard name table, and CSV tables import as attribute-carrying datasets.
//
// The underlying format writer only attaches attributes at dataset creation
// time, so enforcement happens on the creation path; file- and group-level
// requirements are checked when inspecting finished files.
package hdf

import (
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	hdf5 "github.com/robert-malhotra/go-hdf5/hdf5"

	"github.com/c360studio/semcat/convention"
	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/vocabulary"
)

// CoordinatesAttr is the attribute recording dimension-scale linkage: the
// paths of the coordinate datasets a data variable is plotted against.
const CoordinatesAttr = "coordinates"

// fileMetaDataset carries file-level attributes. The format writer cannot
// attach attributes to groups after creation, so file metadata lives on a
// reserved scalar dataset under the root group.
const fileMetaDataset = ".file_metadata"

// Builder creates convention-conforming HDF5 files.
type Builder struct {
	file   *hdf5.File
	conv   *convention.Convention
	logger *slog.Logger

	// created tracks dataset paths for coordinate validation.
	created map[string]struct{}
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the builder's logger.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) { b.logger = logger }
}

// Create opens a new HDF5 file for writing under the given convention.
// File-level attributes are validated against the convention's file-kind
// requirements (with defaults applied) and stored on a reserved metadata
// dataset. A nil convention disables enforcement.
func Create(filePath string, conv *convention.Convention, fileAttrs map[string]any, opts ...BuilderOption) (*Builder, error) {
	b := &Builder{
		conv:    conv,
		logger:  slog.Default(),
		created: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	merged := mergeDefaults(conv, vocabulary.KindFile, fileAttrs)
	if err := enforce(conv, vocabulary.KindFile, merged); err != nil {
		return nil, err
	}

	f, err := hdf5.Create(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "hdf", "Create", "create file")
	}
	b.file = f

	if len(merged) > 0 {
		dsOpts := attributeOptions(merged)
		if _, err := f.Root().CreateDataset(fileMetaDataset, []int8{0}, dsOpts...); err != nil {
			f.Close()
			return nil, errors.Wrap(err, "hdf", "Create", "write file metadata")
		}
	}

	b.logger.Debug("created file", "path", filePath, "convention", conventionName(conv))
	return b, nil
}

// File exposes the underlying file for read access and flushing.
func (b *Builder) File() *hdf5.File {
	return b.file
}

// Close flushes and closes the file.
func (b *Builder) Close() error {
	if err := b.file.Close(); err != nil {
		return errors.Wrap(err, "hdf", "Close", "close file")
	}
	return nil
}

// CreateGroup creates a group at the given absolute path, creating missing
// parents along the way.
func (b *Builder) CreateGroup(groupPath string) (*hdf5.Group, error) {
	cleaned := hdf5.CleanPath(groupPath)
	if cleaned == "/" {
		return b.file.Root(), nil
	}

	g := b.file.Root()
	for _, part := range hdf5.SplitPath(cleaned) {
		child, err := g.OpenGroup(part)
		if err == nil {
			g = child
			continue
		}
		child, err = g.CreateGroup(part)
		if err != nil {
			return nil, errors.Wrap(err, "hdf", "CreateGroup", fmt.Sprintf("create group %q", part))
		}
		g = child
	}
	return g, nil
}

// CreateDataset creates a dataset at the given absolute path with the
// merged attribute set (convention defaults overlaid by attrs). Creation is
// refused when the attributes violate the convention's dataset-kind
// requirements, including standard_name/units cross-checks when the
// convention carries a standard name table.
//
// Extra dataset options (chunking, compression) pass through to the
// underlying writer.
func (b *Builder) CreateDataset(dsPath string, data any, attrs map[string]any, opts ...hdf5.DatasetOption) (*hdf5.Dataset, error) {
	cleaned := hdf5.CleanPath(dsPath)
	parent, name := path.Split(cleaned)
	if name == "" {
		return nil, fmt.Errorf("hdf.CreateDataset: %q has no dataset name: %w",
			dsPath, errors.ErrInvalidData)
	}

	merged := mergeDefaults(b.conv, vocabulary.KindDataset, attrs)
	if err := enforce(b.conv, vocabulary.KindDataset, merged); err != nil {
		return nil, err
	}
	if err := b.checkCoordinates(merged); err != nil {
		return nil, err
	}

	g, err := b.CreateGroup(parent)
	if err != nil {
		return nil, err
	}

	allOpts := append(attributeOptions(merged), opts...)
	ds, err := g.CreateDataset(name, data, allOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "hdf", "CreateDataset", fmt.Sprintf("create dataset %q", cleaned))
	}
	b.created[cleaned] = struct{}{}

	b.logger.Debug("created dataset", "path", cleaned, "attributes", len(merged))
	return ds, nil
}

// checkCoordinates verifies that a coordinates attribute only references
// datasets already created in this file.
func (b *Builder) checkCoordinates(attrs map[string]any) error {
	raw, ok := attrs[CoordinatesAttr]
	if !ok {
		return nil
	}
	var coords []string
	switch v := raw.(type) {
	case string:
		coords = strings.Fields(v)
	case []string:
		coords = v
	default:
		return fmt.Errorf("hdf.CreateDataset: coordinates must be a string or string slice, got %T: %w",
			raw, errors.ErrAttributeInvalid)
	}
	for _, coord := range coords {
		if _, ok := b.created[hdf5.CleanPath(coord)]; !ok {
			return fmt.Errorf("hdf.CreateDataset: coordinate dataset %q does not exist: %w",
				coord, errors.ErrAttributeInvalid)
		}
	}
	return nil
}

// Coordinates renders coordinate dataset paths as the space-separated
// attribute value the inspection path parses back.
func Coordinates(paths ...string) string {
	return strings.Join(paths, " ")
}

// mergeDefaults overlays caller attributes on the convention's defaults for
// the kind.
func mergeDefaults(conv *convention.Convention, kind vocabulary.TargetKind, attrs map[string]any) map[string]any {
	merged := make(map[string]any)
	if conv != nil {
		for name, value := range conv.Defaults(kind) {
			merged[name] = value
		}
	}
	for name, value := range attrs {
		merged[name] = value
	}
	return merged
}

// enforce runs convention validation and converts error-severity issues
// into a creation-refusing error.
func enforce(conv *convention.Convention, kind vocabulary.TargetKind, attrs map[string]any) error {
	if conv == nil {
		return nil
	}
	var failures []string
	missing := false
	for _, issue := range conv.Validate(kind, attrs) {
		if issue.Severity != convention.SeverityError {
			continue
		}
		failures = append(failures, issue.Attribute+": "+issue.Message)
		if strings.Contains(issue.Message, "missing") {
			missing = true
		}
	}
	if len(failures) == 0 {
		return nil
	}
	sentinel := errors.ErrAttributeInvalid
	if missing {
		sentinel = errors.ErrAttributeMissing
	}
	return fmt.Errorf("hdf: convention %s rejects %s attributes: %s: %w",
		conventionName(conv), kind, strings.Join(failures, "; "), sentinel)
}

// attributeOptions converts an attribute map into creation options in
// deterministic order.
func attributeOptions(attrs map[string]any) []hdf5.DatasetOption {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	opts := make([]hdf5.DatasetOption, 0, len(names))
	for _, name := range names {
		opts = append(opts, hdf5.WithAttribute(name, attrs[name]))
	}
	return opts
}

func conventionName(conv *convention.Convention) string {
	if conv == nil {
		return "(none)"
	}
	return conv.Name
}
