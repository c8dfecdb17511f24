package snt

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/semcat/errors"
)

// fetchTimeout bounds a table download when the caller's context has no
// earlier deadline.
const fetchTimeout = 30 * time.Second

type tableYAML struct {
	Name          string               `yaml:"name"`
	Version       string               `yaml:"version"`
	Institution   string               `yaml:"institution,omitempty"`
	Contact       string               `yaml:"contact,omitempty"`
	LastModified  string               `yaml:"last_modified,omitempty"`
	Frames        []string             `yaml:"reference_frames,omitempty"`
	StandardNames map[string]entryYAML `yaml:"standard_names"`
	Aliases       map[string]string    `yaml:"aliases,omitempty"`
}

type entryYAML struct {
	Units       string `yaml:"units"`
	Description string `yaml:"description,omitempty"`
	Vector      bool   `yaml:"vector,omitempty"`
}

// LoadYAML reads a table from its YAML representation.
func LoadYAML(r io.Reader) (*Table, error) {
	var doc tableYAML
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.WrapInvalid(err, "snt", "LoadYAML", "decode table document")
	}

	version, err := ParseVersion(doc.Version)
	if err != nil {
		return nil, err
	}
	t := NewTable(doc.Name, version)
	t.Institution = doc.Institution
	t.Contact = doc.Contact
	t.Modified = doc.LastModified
	t.SetFrames(doc.Frames)

	for name, e := range doc.StandardNames {
		if err := t.AddEntry(StandardName{
			Name:        name,
			Description: e.Description,
			UnitsExpr:   e.Units,
			Vector:      e.Vector,
		}); err != nil {
			return nil, err
		}
	}
	for alias, target := range doc.Aliases {
		if err := t.AddAlias(alias, target); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// SaveYAML writes the table in the same YAML layout LoadYAML reads.
func (t *Table) SaveYAML(w io.Writer) error {
	t.mu.RLock()
	doc := tableYAML{
		Name:          t.Name,
		Version:       t.Version.String(),
		Institution:   t.Institution,
		Contact:       t.Contact,
		LastModified:  t.Modified,
		Frames:        append([]string(nil), t.frames...),
		StandardNames: make(map[string]entryYAML, len(t.entries)),
		Aliases:       make(map[string]string, len(t.aliases)),
	}
	for name, sn := range t.entries {
		doc.StandardNames[name] = entryYAML{
			Units:       sn.UnitsExpr,
			Description: sn.Description,
			Vector:      sn.Vector,
		}
	}
	for alias, target := range t.aliases {
		doc.Aliases[alias] = target
	}
	t.mu.RUnlock()

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "snt", "SaveYAML", "encode table document")
	}
	return enc.Close()
}

// CF-style XML table document.
type tableXML struct {
	XMLName     xml.Name `xml:"standard_name_table"`
	Name        string   `xml:"name"`
	Version     string   `xml:"version_number"`
	Institution string   `xml:"institution"`
	Contact     string   `xml:"contact"`
	Modified    string   `xml:"last_modified"`
	Entries     []struct {
		ID          string `xml:"id,attr"`
		Units       string `xml:"canonical_units"`
		Description string `xml:"description"`
	} `xml:"entry"`
	Aliases []struct {
		ID      string `xml:"id,attr"`
		EntryID string `xml:"entry_id"`
	} `xml:"alias"`
}

// LoadXML reads a CF-style XML table. CF version numbers are bare integers,
// mapped to vN.0.0.
func LoadXML(r io.Reader) (*Table, error) {
	var doc tableXML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.WrapInvalid(err, "snt", "LoadXML", "decode table document")
	}

	versionStr := strings.TrimSpace(doc.Version)
	if !strings.Contains(versionStr, ".") {
		versionStr = versionStr + ".0.0"
	}
	version, err := ParseVersion(versionStr)
	if err != nil {
		return nil, err
	}

	name := doc.Name
	if name == "" {
		name = "standard_name_table"
	}
	t := NewTable(name, version)
	t.Institution = strings.TrimSpace(doc.Institution)
	t.Contact = strings.TrimSpace(doc.Contact)
	t.Modified = strings.TrimSpace(doc.Modified)

	for _, e := range doc.Entries {
		if err := t.AddEntry(StandardName{
			Name:        e.ID,
			Description: strings.TrimSpace(e.Description),
			UnitsExpr:   strings.TrimSpace(e.Units),
		}); err != nil {
			return nil, err
		}
	}
	// Aliases reference entries, so they load after all entries exist.
	for _, a := range doc.Aliases {
		if err := t.AddAlias(a.ID, a.EntryID); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// LoadFile reads a table from disk, dispatching on extension (.yaml/.yml
// or .xml).
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "snt", "LoadFile", "open table file")
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(f)
	case ".xml":
		return LoadXML(f)
	default:
		return nil, fmt.Errorf("snt.LoadFile: unsupported table format %q: %w",
			filepath.Ext(path), errors.ErrInvalidData)
	}
}

// Fetcher downloads standard name tables over HTTP(S) with an on-disk
// cache. A zero Fetcher works without caching.
type Fetcher struct {
	// CacheDir holds downloaded table documents keyed by URL hash. Empty
	// disables caching.
	CacheDir string

	// Client is the HTTP client. Nil uses http.DefaultClient.
	Client *http.Client

	// Logger for cache and fallback events. Nil uses slog.Default().
	Logger *slog.Logger
}

// Fetch downloads a table document and parses it. The format is taken from
// the Content-Type header or the URL extension, falling back to content
// sniffing (XML documents start with '<'). On a network failure a cached
// copy is used when available.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Table, error) {
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}

	data, err := f.download(ctx, url)
	if err != nil {
		if cached, cerr := f.readCache(url); cerr == nil {
			logger.Warn("table download failed, using cached copy",
				"url", url, "error", err)
			data = cached
		} else {
			return nil, err
		}
	} else if f.CacheDir != "" {
		if cerr := f.writeCache(url, data); cerr != nil {
			logger.Warn("failed to cache table document", "url", url, "error", cerr)
		}
	}

	return parseSniffed(url, data)
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, fetchTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapInvalid(err, "snt", "Fetch", "build request")
	}
	req.Header.Set("Accept", "application/x-yaml, application/xml, text/xml, */*")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.WrapTransient(err, "snt", "Fetch", "download table")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.WrapTransient(
			fmt.Errorf("unexpected status %s", resp.Status),
			"snt", "Fetch", "download table")
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapTransient(err, "snt", "Fetch", "read response body")
	}
	return data, nil
}

func (f *Fetcher) cachePath(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(f.CacheDir, hex.EncodeToString(sum[:8])+".table")
}

func (f *Fetcher) readCache(url string) ([]byte, error) {
	if f.CacheDir == "" {
		return nil, os.ErrNotExist
	}
	return os.ReadFile(f.cachePath(url))
}

func (f *Fetcher) writeCache(url string, data []byte) error {
	if err := os.MkdirAll(f.CacheDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(f.cachePath(url), data, 0o644)
}

// parseSniffed picks the parser from the URL extension, then from the
// document content.
func parseSniffed(url string, data []byte) (*Table, error) {
	lower := strings.ToLower(url)
	switch {
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return LoadYAML(bytes.NewReader(data))
	case strings.HasSuffix(lower, ".xml"):
		return LoadXML(bytes.NewReader(data))
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '<' {
		return LoadXML(bytes.NewReader(data))
	}
	return LoadYAML(bytes.NewReader(data))
}
