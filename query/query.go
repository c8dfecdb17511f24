// Package query provides the query objects the catalog stores execute:
// SPARQL queries with an in-memory evaluator for graph-backed stores, SQL
// queries for the registry, tabular results and federated result merging.
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/c360studio/semcat/errors"
)

// SparqlQuery is a SPARQL SELECT query with an identity for provenance
// tracking across federated execution.
type SparqlQuery struct {
	// ID identifies the query instance in logs and federated results.
	ID string

	// Text is the SPARQL query text.
	Text string
}

// NewSparqlQuery wraps query text with a fresh ID.
func NewSparqlQuery(text string) SparqlQuery {
	return SparqlQuery{ID: uuid.NewString(), Text: text}
}

// SQLQuery is a SQL query with bound arguments for the registry store.
type SQLQuery struct {
	// ID identifies the query instance.
	ID string

	// Text is the SQL statement with placeholders.
	Text string

	// Args are the placeholder arguments.
	Args []any
}

// NewSQLQuery wraps a SQL statement with a fresh ID.
func NewSQLQuery(text string, args ...any) SQLQuery {
	return SQLQuery{ID: uuid.NewString(), Text: text, Args: args}
}

// Result is a tabular query result: ordered columns and typed rows.
type Result struct {
	// Columns are the result column names in projection order.
	Columns []string

	// Rows hold one value per column. Unbound values are nil.
	Rows [][]any
}

// NewResult creates an empty result with the given columns.
func NewResult(columns ...string) *Result {
	return &Result{Columns: columns}
}

// AddRow appends a row. The row length must match the column count.
func (r *Result) AddRow(values ...any) error {
	if len(values) != len(r.Columns) {
		return fmt.Errorf("query.AddRow: got %d values for %d columns: %w",
			len(values), len(r.Columns), errors.ErrInvalidData)
	}
	r.Rows = append(r.Rows, values)
	return nil
}

// Len returns the number of rows.
func (r *Result) Len() int {
	return len(r.Rows)
}

// Column returns the index of a named column, or -1.
func (r *Result) Column(name string) int {
	for i, c := range r.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Merge appends the rows of other, aligning columns by name. Columns
// missing from either side fill with nil.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	index := make(map[string]int, len(r.Columns))
	for i, c := range r.Columns {
		index[c] = i
	}
	for _, c := range other.Columns {
		if _, ok := index[c]; !ok {
			index[c] = len(r.Columns)
			r.Columns = append(r.Columns, c)
			for i := range r.Rows {
				r.Rows[i] = append(r.Rows[i], nil)
			}
		}
	}
	for _, row := range other.Rows {
		merged := make([]any, len(r.Columns))
		for i, c := range other.Columns {
			merged[index[c]] = row[i]
		}
		r.Rows = append(r.Rows, merged)
	}
}

// ToTable renders the result as aligned text for terminal output.
func (r *Result) ToTable() string {
	widths := make([]int, len(r.Columns))
	for i, c := range r.Columns {
		widths[i] = len(c)
	}
	cells := make([][]string, len(r.Rows))
	for ri, row := range r.Rows {
		cells[ri] = make([]string, len(r.Columns))
		for ci := range r.Columns {
			s := ""
			if ci < len(row) && row[ci] != nil {
				s = fmt.Sprintf("%v", row[ci])
			}
			cells[ri][ci] = s
			if len(s) > widths[ci] {
				widths[ci] = len(s)
			}
		}
	}

	var b strings.Builder
	writeRow := func(fields []string) {
		for i, field := range fields {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(field)
			b.WriteString(strings.Repeat(" ", widths[i]-len(field)))
		}
		b.WriteString("\n")
	}
	writeRow(r.Columns)
	dashes := make([]string, len(r.Columns))
	for i, w := range widths {
		dashes[i] = strings.Repeat("-", w)
	}
	writeRow(dashes)
	for _, row := range cells {
		writeRow(row)
	}
	return b.String()
}

// SortBy orders rows by the named column, ascending and stable. Pairs of
// numeric values compare numerically; everything else compares as strings.
func (r *Result) SortBy(column string) error {
	idx := r.Column(column)
	if idx < 0 {
		return fmt.Errorf("query.SortBy: no column %q: %w", column, errors.ErrInvalidData)
	}
	sort.SliceStable(r.Rows, func(i, j int) bool {
		return lessValue(r.Rows[i][idx], r.Rows[j][idx])
	})
	return nil
}

func lessValue(a, b any) bool {
	if x, ok := numeric(a); ok {
		if y, ok := numeric(b); ok {
			return x < y
		}
	}
	return fmt.Sprintf("%v", a) < fmt.Sprintf("%v", b)
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// SourceResult is one store's contribution to a federated query.
type SourceResult struct {
	// Store names the store that produced (or failed to produce) rows.
	Store string

	// Result is the store's rows; nil when the store failed.
	Result *Result

	// Err is the store's failure, if any.
	Err error
}

// FederatedResult combines results from several stores.
type FederatedResult struct {
	// QueryID is the ID of the executed query.
	QueryID string

	// Combined holds all rows from all succeeding stores.
	Combined *Result

	// Sources lists per-store outcomes in execution order.
	Sources []SourceResult

	// Conflicts notes column mismatches observed while merging.
	Conflicts []string
}

// Federate merges per-store results into one combined table. Stores that
// returned errors are recorded but do not fail the federation; a
// federation where every store failed keeps a nil Combined.
func Federate(queryID string, sources []SourceResult) *FederatedResult {
	fr := &FederatedResult{QueryID: queryID, Sources: sources}
	for _, src := range sources {
		if src.Err != nil || src.Result == nil {
			continue
		}
		if fr.Combined == nil {
			fr.Combined = NewResult(src.Result.Columns...)
		} else if !sameColumns(fr.Combined.Columns, src.Result.Columns) {
			fr.Conflicts = append(fr.Conflicts, fmt.Sprintf(
				"store %s returned columns %v, combined has %v",
				src.Store, src.Result.Columns, fr.Combined.Columns))
		}
		fr.Combined.Merge(src.Result)
	}
	return fr
}

// Succeeded returns the number of stores that produced rows.
func (fr *FederatedResult) Succeeded() int {
	n := 0
	for _, src := range fr.Sources {
		if src.Err == nil && src.Result != nil {
			n++
		}
	}
	return n
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
