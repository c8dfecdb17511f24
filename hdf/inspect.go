package hdf

import (
	"fmt"
	"sort"

	hdf5 "github.com/robert-malhotra/go-hdf5/hdf5"

	"github.com/c360studio/semcat/convention"
	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/vocabulary"
)

// ObjectReport holds the findings for one object in a file.
type ObjectReport struct {
	// Path is the object path ("/" for the file itself).
	Path string

	// Kind is the target kind the object was validated as.
	Kind vocabulary.TargetKind

	// Issues are the convention findings for the object.
	Issues []convention.Issue
}

// Report is the outcome of inspecting a file against a convention.
type Report struct {
	// File is the inspected file path.
	File string

	// Convention names the convention the file was checked against.
	Convention string

	// Objects lists per-object findings, sorted by path. Objects without
	// findings are omitted.
	Objects []ObjectReport

	// Checked is the number of objects examined.
	Checked int

	// ErrorCount and WarningCount total the findings by severity.
	ErrorCount   int
	WarningCount int
}

// Clean reports whether no error-severity findings were produced.
func (r *Report) Clean() bool {
	return r.ErrorCount == 0
}

// Summary renders a one-line result.
func (r *Report) Summary() string {
	return fmt.Sprintf("%s: %d objects checked, %d errors, %d warnings",
		r.File, r.Checked, r.ErrorCount, r.WarningCount)
}

// Inspect opens an HDF5 file and validates every object's attributes
// against the convention. The root group validates as the file kind; the
// reserved file metadata dataset contributes its attributes to the root.
func Inspect(filePath string, conv *convention.Convention) (*Report, error) {
	f, err := hdf5.Open(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "hdf", "Inspect", "open file")
	}
	defer f.Close()
	return InspectFile(f, conv)
}

// InspectFile validates an already-open file.
func InspectFile(f *hdf5.File, conv *convention.Convention) (*Report, error) {
	report := &Report{
		File:       f.Path(),
		Convention: conventionName(conv),
	}

	type object struct {
		kind  vocabulary.TargetKind
		attrs map[string]any
	}
	objects := make(map[string]*object)

	err := hdf5.Walk(f.Root(), func(objPath string, obj any, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		switch o := obj.(type) {
		case *hdf5.Group:
			kind := vocabulary.KindGroup
			if objPath == "/" {
				kind = vocabulary.KindFile
			}
			objects[objPath] = &object{kind: kind, attrs: readAttrs(o.Attrs(), o.Attr)}
		case *hdf5.Dataset:
			if o.Name() == fileMetaDataset {
				// File metadata rides on the reserved dataset.
				root, ok := objects["/"]
				if !ok {
					root = &object{kind: vocabulary.KindFile, attrs: map[string]any{}}
					objects["/"] = root
				}
				for name, value := range readAttrs(o.Attrs(), o.Attr) {
					root.attrs[name] = value
				}
				return nil
			}
			objects[objPath] = &object{kind: vocabulary.KindDataset, attrs: readAttrs(o.Attrs(), o.Attr)}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "hdf", "Inspect", "walk objects")
	}

	paths := make([]string, 0, len(objects))
	for p := range objects {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		obj := objects[p]
		report.Checked++
		if conv == nil {
			continue
		}
		issues := conv.Validate(obj.kind, obj.attrs)
		if len(issues) == 0 {
			continue
		}
		report.Objects = append(report.Objects, ObjectReport{Path: p, Kind: obj.kind, Issues: issues})
		for _, issue := range issues {
			switch issue.Severity {
			case convention.SeverityError:
				report.ErrorCount++
			case convention.SeverityWarning:
				report.WarningCount++
			}
		}
	}
	return report, nil
}

// readAttrs reads all attributes of an object into a value map. Unreadable
// attributes are skipped; validation reports them as missing rather than
// failing the walk.
func readAttrs(names []string, get func(string) *hdf5.Attribute) map[string]any {
	attrs := make(map[string]any, len(names))
	for _, name := range names {
		attr := get(name)
		if attr == nil {
			continue
		}
		value, err := attr.Value()
		if err != nil {
			continue
		}
		attrs[name] = normalizeAttrValue(value)
	}
	return attrs
}

// normalizeAttrValue unwraps single-element arrays, which the format stores
// for scalar string attributes.
func normalizeAttrValue(v any) any {
	switch s := v.(type) {
	case []string:
		if len(s) == 1 {
			return s[0]
		}
	case []float64:
		if len(s) == 1 {
			return s[0]
		}
	case []int64:
		if len(s) == 1 {
			return s[0]
		}
	}
	return v
}

// ReadAttr reads one attribute using "path@attr" addressing.
func ReadAttr(f *hdf5.File, attrPath string) (any, error) {
	value, err := f.ReadAttr(attrPath)
	if err != nil {
		return nil, errors.Wrap(err, "hdf", "ReadAttr", fmt.Sprintf("read %q", attrPath))
	}
	return normalizeAttrValue(value), nil
}
