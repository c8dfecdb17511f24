package rdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/c360studio/semcat/errors"
)

// ParseFile reads a serialized graph document, picking the parser from the
// file extension: .ttl/.turtle Turtle, .nt N-Triples, .jsonld/.json
// JSON-LD.
func ParseFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ttl", ".turtle":
		return ParseTurtle(bytes.NewReader(data))
	case ".nt":
		return ParseNTriples(bytes.NewReader(data))
	case ".jsonld", ".json":
		return ParseJSONLD(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported graph format %q: %w",
			filepath.Ext(path), errors.ErrParsingFailed)
	}
}
