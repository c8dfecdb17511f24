package snt

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/c360studio/semcat/errors"
)

// Version is a table version of the form vMAJOR.MINOR.PATCH with an
// optional pre-release suffix ("v1.2.0", "v1.2.0rc1", "v1.2.0-beta").
type Version struct {
	Major  int
	Minor  int
	Patch  int
	Suffix string
}

var versionPattern = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)(?:-?([0-9A-Za-z.]+))?$`)

// ParseVersion parses a version string. The leading "v" is optional.
func ParseVersion(s string) (Version, error) {
	m := versionPattern.FindStringSubmatch(s)
	if m == nil {
		return Version{}, fmt.Errorf("snt.ParseVersion: %q is not a version: %w", s, errors.ErrParsingFailed)
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch, _ := strconv.Atoi(m[3])
	return Version{Major: major, Minor: minor, Patch: patch, Suffix: m[4]}, nil
}

// MustParseVersion is ParseVersion for trusted literals; it panics on error.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders the version with a leading "v".
func (v Version) String() string {
	s := fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Suffix != "" {
		s += v.Suffix
	}
	return s
}

// Compare returns -1, 0 or 1. A release (empty suffix) orders after any
// pre-release of the same number; otherwise suffixes compare as strings.
func (v Version) Compare(other Version) int {
	if c := cmpInt(v.Major, other.Major); c != 0 {
		return c
	}
	if c := cmpInt(v.Minor, other.Minor); c != 0 {
		return c
	}
	if c := cmpInt(v.Patch, other.Patch); c != 0 {
		return c
	}
	switch {
	case v.Suffix == other.Suffix:
		return 0
	case v.Suffix == "":
		return 1
	case other.Suffix == "":
		return -1
	case v.Suffix < other.Suffix:
		return -1
	default:
		return 1
	}
}

// Newer reports whether v is strictly newer than other.
func (v Version) Newer(other Version) bool {
	return v.Compare(other) > 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
