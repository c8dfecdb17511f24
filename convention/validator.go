// Package convention implements metadata conventions: named sets of
// attribute requirements bound to HDF5 target kinds, with pluggable value
// validators and YAML-defined convention documents.
package convention

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/units"
)

// Validator checks a single attribute value.
type Validator func(value any) error

var (
	validatorMu sync.RWMutex
	validators  = map[string]Validator{}
)

// RegisterValidator adds a named validator to the global registry,
// replacing any previous registration.
func RegisterValidator(name string, v Validator) {
	validatorMu.Lock()
	defer validatorMu.Unlock()
	validators[name] = v
}

// LookupValidator returns the named validator, or nil when unregistered.
func LookupValidator(name string) Validator {
	validatorMu.RLock()
	defer validatorMu.RUnlock()
	return validators[name]
}

func init() {
	RegisterValidator("units", validateUnits)
	RegisterValidator("orcid", validateORCID)
	RegisterValidator("url", validateURL)
	RegisterValidator("date-time", validateDateTime)
	RegisterValidator("non-empty", validateNonEmpty)
}

func asString(value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T: %w", value, errors.ErrAttributeInvalid)
	}
	return s, nil
}

func validateUnits(value any) error {
	s, err := asString(value)
	if err != nil {
		return err
	}
	if _, err := units.Parse(s); err != nil {
		return fmt.Errorf("invalid units %q: %w", s, errors.ErrAttributeInvalid)
	}
	return nil
}

var orcidPattern = regexp.MustCompile(`^(?:https://orcid\.org/)?(\d{4})-(\d{4})-(\d{4})-(\d{3}[\dX])$`)

// validateORCID checks the 19-character ORCID iD format and its ISO 7064
// mod 11-2 check digit. A leading https://orcid.org/ is accepted.
func validateORCID(value any) error {
	s, err := asString(value)
	if err != nil {
		return err
	}
	m := orcidPattern.FindStringSubmatch(s)
	if m == nil {
		return fmt.Errorf("%q is not an ORCID iD: %w", s, errors.ErrAttributeInvalid)
	}
	digits := strings.Join(m[1:], "")
	total := 0
	for _, c := range digits[:15] {
		total = (total + int(c-'0')) * 2
	}
	remainder := total % 11
	check := (12 - remainder) % 11
	expected := byte('0' + check)
	if check == 10 {
		expected = 'X'
	}
	if digits[15] != expected {
		return fmt.Errorf("ORCID %q has a bad check digit: %w", s, errors.ErrAttributeInvalid)
	}
	return nil
}

func validateURL(value any) error {
	s, err := asString(value)
	if err != nil {
		return err
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%q is not an absolute URL: %w", s, errors.ErrAttributeInvalid)
	}
	return nil
}

func validateDateTime(value any) error {
	s, err := asString(value)
	if err != nil {
		return err
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if _, err := time.Parse(layout, s); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%q is not an RFC 3339 date or date-time: %w", s, errors.ErrAttributeInvalid)
}

func validateNonEmpty(value any) error {
	s, err := asString(value)
	if err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("value must not be empty: %w", errors.ErrAttributeInvalid)
	}
	return nil
}

// regexValidator builds a validator from an attribute spec's pattern.
func regexValidator(pattern string) (Validator, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.WrapInvalid(err, "convention", "regexValidator", "compile pattern")
	}
	return func(value any) error {
		s, err := asString(value)
		if err != nil {
			return err
		}
		if !re.MatchString(s) {
			return fmt.Errorf("%q does not match %s: %w", s, pattern, errors.ErrAttributeInvalid)
		}
		return nil
	}, nil
}
