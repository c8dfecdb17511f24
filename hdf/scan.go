package hdf

import (
	"fmt"

	hdf5 "github.com/robert-malhotra/go-hdf5/hdf5"

	"github.com/c360studio/semcat/errors"
)

// DatasetInfo summarizes one dataset for registry indexing.
type DatasetInfo struct {
	// Path is the dataset path inside the file.
	Path string

	// Shape is the dataset's dimensions.
	Shape []uint64

	// StandardName, Units and LongName are the dataset's convention
	// attributes, empty when absent.
	StandardName string
	Units        string
	LongName     string

	// Attributes holds all readable attributes of the dataset.
	Attributes map[string]any
}

// Scan lists every dataset in an HDF5 file with its shape and attributes.
// The reserved file metadata dataset is excluded.
func Scan(filePath string) ([]DatasetInfo, error) {
	f, err := hdf5.Open(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "hdf", "Scan", "open file")
	}
	defer f.Close()
	return ScanFile(f)
}

// ScanFile lists the datasets of an already-open file.
func ScanFile(f *hdf5.File) ([]DatasetInfo, error) {
	var infos []DatasetInfo
	err := hdf5.Walk(f.Root(), func(objPath string, obj any, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		d, ok := obj.(*hdf5.Dataset)
		if !ok || d.Name() == fileMetaDataset {
			return nil
		}
		attrs := readAttrs(d.Attrs(), d.Attr)
		infos = append(infos, DatasetInfo{
			Path:         objPath,
			Shape:        d.Shape(),
			StandardName: attrString(attrs, "standard_name"),
			Units:        attrString(attrs, "units"),
			LongName:     attrString(attrs, "long_name"),
			Attributes:   attrs,
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "hdf", "Scan", "walk datasets")
	}
	return infos, nil
}

func attrString(attrs map[string]any, name string) string {
	v, ok := attrs[name]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
