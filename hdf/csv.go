package hdf

import (
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/c360studio/semcat/errors"
)

// CSVImportOptions configures ImportCSV.
type CSVImportOptions struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune

	// GroupPath is the group the column datasets are created under.
	// Empty means the root group.
	GroupPath string

	// Attributes maps sanitized column names to the attribute set for that
	// column's dataset.
	Attributes map[string]map[string]any
}

var nonNameRune = regexp.MustCompile(`[^a-z0-9_]+`)

// SanitizeColumnName converts a CSV header field to a dataset name:
// lowercased, with runs of other characters collapsed to underscores.
func SanitizeColumnName(header string) string {
	name := strings.ToLower(strings.TrimSpace(header))
	name = nonNameRune.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "column"
	}
	return name
}

// ImportCSV reads a delimited table and creates one dataset per column
// under the configured group. Columns whose values all parse as numbers
// import as float64; others import as strings. Per-column attributes pass
// through builder enforcement like any other dataset creation.
func ImportCSV(b *Builder, r io.Reader, opts CSVImportOptions) error {
	reader := csv.NewReader(r)
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return errors.WrapInvalid(err, "hdf", "ImportCSV", "parse table")
	}
	if len(rows) < 2 {
		return fmt.Errorf("hdf.ImportCSV: table needs a header and at least one row: %w",
			errors.ErrInvalidData)
	}

	header := rows[0]
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, field := range header {
		name := SanitizeColumnName(field)
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			seen[name] = 1
		}
		names[i] = name
	}

	group := opts.GroupPath
	if group == "" {
		group = "/"
	}

	for col, name := range names {
		values := make([]string, 0, len(rows)-1)
		for _, row := range rows[1:] {
			if col >= len(row) {
				return fmt.Errorf("hdf.ImportCSV: row has %d fields, header has %d: %w",
					len(row), len(header), errors.ErrInvalidData)
			}
			values = append(values, strings.TrimSpace(row[col]))
		}

		attrs := opts.Attributes[name]
		dsPath := path.Join(group, name)

		if floats, ok := parseFloatColumn(values); ok {
			if _, err := b.CreateDataset(dsPath, floats, attrs); err != nil {
				return err
			}
			continue
		}
		if _, err := b.CreateDataset(dsPath, values, attrs); err != nil {
			return err
		}
	}
	return nil
}

func parseFloatColumn(values []string) ([]float64, bool) {
	out := make([]float64, len(values))
	for i, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}
