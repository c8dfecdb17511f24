// Package snt implements versioned standard name tables: controlled
// vocabularies mapping physical quantity names to descriptions and canonical
// units, in the style of the CF standard name table.
//
// A table answers two questions: is this name a valid vocabulary term
// (directly, through an alias, or through a derivation rule like
// derivative_of_x_wrt_y), and are these units convertible to the term's
// canonical units.
package snt

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/units"
)

// namePattern is the allowed syntax for standard names.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// StandardName is one vocabulary entry.
type StandardName struct {
	// Name is the vocabulary term, e.g. "x_velocity".
	Name string

	// Description is the human-readable definition of the quantity.
	Description string

	// UnitsExpr is the canonical units as written in the table ("m/s").
	UnitsExpr string

	// Units is the parsed canonical units.
	Units units.Unit

	// Vector marks quantities with a direction.
	Vector bool

	// Derived marks names accepted through a derivation rule rather than
	// a table entry.
	Derived bool
}

// Table is a versioned standard name table.
//
// Thread Safety:
// All Table methods are safe for concurrent use once construction is done.
// Add/AddAlias during concurrent reads are also safe.
type Table struct {
	// Name identifies the table ("piv", "cf-standard-name-table").
	Name string

	// Version is the table version.
	Version Version

	// Institution and Contact identify the table maintainer.
	Institution string
	Contact     string

	// Modified is the last-modified date as written in the source document.
	Modified string

	mu      sync.RWMutex
	entries map[string]StandardName
	aliases map[string]string
	frames  []string
}

// NewTable creates an empty table.
func NewTable(name string, version Version) *Table {
	return &Table{
		Name:    name,
		Version: version,
		entries: make(map[string]StandardName),
		aliases: make(map[string]string),
	}
}

// Add inserts or replaces an entry. The name must satisfy the standard name
// syntax and the units expression must parse.
func (t *Table) Add(name, unitsExpr, description string) error {
	if err := CheckSyntax(name); err != nil {
		return err
	}
	u, err := units.Parse(unitsExpr)
	if err != nil {
		return errors.WrapInvalid(err, "snt", "Add", fmt.Sprintf("parse canonical units for %q", name))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[name] = StandardName{
		Name:        name,
		Description: description,
		UnitsExpr:   unitsExpr,
		Units:       u,
	}
	return nil
}

// AddEntry inserts a fully populated entry, parsing its units expression.
func (t *Table) AddEntry(sn StandardName) error {
	if err := CheckSyntax(sn.Name); err != nil {
		return err
	}
	u, err := units.Parse(sn.UnitsExpr)
	if err != nil {
		return errors.WrapInvalid(err, "snt", "AddEntry", fmt.Sprintf("parse canonical units for %q", sn.Name))
	}
	sn.Units = u

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[sn.Name] = sn
	return nil
}

// AddAlias maps an alternative spelling to an existing entry.
func (t *Table) AddAlias(alias, target string) error {
	if err := CheckSyntax(alias); err != nil {
		return err
	}
	t.mu.RLock()
	_, ok := t.entries[target]
	t.mu.RUnlock()
	if !ok {
		return fmt.Errorf("snt.AddAlias: alias %q targets unregistered name %q: %w",
			alias, target, errors.ErrNameUnknown)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.aliases[alias] = target
	return nil
}

// SetFrames declares the coordinate frames accepted by the frame-suffix
// derivation rule (name_in_frame).
func (t *Table) SetFrames(frames []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frames = append([]string(nil), frames...)
}

// Frames returns the declared coordinate frames.
func (t *Table) Frames() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.frames...)
}

// Len returns the number of direct entries (aliases excluded).
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Names returns the sorted direct entry names.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Aliases returns a copy of the alias map.
func (t *Table) Aliases() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]string, len(t.aliases))
	for k, v := range t.aliases {
		out[k] = v
	}
	return out
}

// Lookup finds a direct entry, resolving aliases. It does not apply
// derivation rules; use Resolve for that.
func (t *Table) Lookup(name string) (StandardName, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if sn, ok := t.entries[name]; ok {
		return sn, true
	}
	if target, ok := t.aliases[name]; ok {
		sn, ok := t.entries[target]
		return sn, ok
	}
	return StandardName{}, false
}

// Resolve finds an entry for the name: direct, via alias, or via a
// derivation rule. Derived entries carry computed units and descriptions.
func (t *Table) Resolve(name string) (StandardName, error) {
	if err := CheckSyntax(name); err != nil {
		return StandardName{}, err
	}
	if sn, ok := t.Lookup(name); ok {
		return sn, nil
	}
	if sn, ok, err := t.applyTransforms(name); err != nil {
		return StandardName{}, err
	} else if ok {
		return sn, nil
	}

	msg := fmt.Sprintf("snt.Resolve: %q not in table %s %s", name, t.Name, t.Version)
	if suggestions := t.Suggest(name, 3); len(suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(suggestions, ", "))
	}
	return StandardName{}, fmt.Errorf("%s: %w", msg, errors.ErrNameUnknown)
}

// Verify checks that the name is syntactically valid and resolvable.
func (t *Table) Verify(name string) error {
	_, err := t.Resolve(name)
	return err
}

// Check verifies the name and that the given units are convertible to the
// entry's canonical units.
func (t *Table) Check(name, unitsExpr string) error {
	sn, err := t.Resolve(name)
	if err != nil {
		return err
	}
	u, err := units.Parse(unitsExpr)
	if err != nil {
		return errors.WrapInvalid(err, "snt", "Check", fmt.Sprintf("parse units %q", unitsExpr))
	}
	if !units.Convertible(u, sn.Units) {
		return fmt.Errorf("snt.Check: units %q not convertible to canonical %q for %q: %w",
			unitsExpr, sn.UnitsExpr, name, errors.ErrUnitsIncompatible)
	}
	return nil
}

// CheckSyntax validates standard name syntax: lowercase letters, digits and
// single underscores, starting with a letter.
func CheckSyntax(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("snt.CheckSyntax: empty name: %w", errors.ErrNameSyntax)
	case !namePattern.MatchString(name):
		return fmt.Errorf("snt.CheckSyntax: %q must match %s: %w",
			name, namePattern, errors.ErrNameSyntax)
	case strings.Contains(name, "__"):
		return fmt.Errorf("snt.CheckSyntax: %q contains consecutive underscores: %w",
			name, errors.ErrNameSyntax)
	case strings.HasSuffix(name, "_"):
		return fmt.Errorf("snt.CheckSyntax: %q ends with an underscore: %w",
			name, errors.ErrNameSyntax)
	}
	return nil
}
