// Package filestore provides a dataset registry over a directory tree of
// HDF5 files. Files matching a glob pattern are scanned lazily on first
// lookup and the records cached until Rescan.
package filestore

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/hdf"
	"github.com/c360studio/semcat/store"
)

const defaultPattern = "**/*.{h5,hdf5}"

// Store indexes the HDF5 files under a root directory.
//
// Thread Safety:
// Safe for concurrent use. The first lookup scans under a lock; later
// lookups read the cached index.
type Store struct {
	root    string
	pattern string
	logger  *slog.Logger

	mu      sync.Mutex
	scanned bool
	closed  bool
	// records by distribution ID; the distribution ID of an unregistered
	// file is its path relative to root.
	records map[string][]store.DatasetRecord
}

// Option configures a Store.
type Option func(*Store)

// WithPattern sets the doublestar glob that selects files under the root.
func WithPattern(pattern string) Option {
	return func(s *Store) { s.pattern = pattern }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a store over the directory root.
func New(root string, opts ...Option) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("filestore: root directory required: %w", errors.ErrMissingConfig)
	}
	s := &Store{
		root:    root,
		pattern: defaultPattern,
		logger:  slog.Default(),
		records: make(map[string][]store.DatasetRecord),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Kind reports store.KindFile.
func (s *Store) Kind() store.Kind { return store.KindFile }

// Close marks the store closed and drops the index.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.records = nil
	return nil
}

// RegisterFile scans one file and records it under the distribution ID,
// replacing any previous registration. The file does not need to live
// under the store's root.
func (s *Store) RegisterFile(ctx context.Context, distributionID, filePath string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	records, err := scanOne(distributionID, filePath)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errors.ErrStoreClosed
	}
	s.records[distributionID] = records
	s.logger.Info("file registered",
		"distribution_id", distributionID, "file", filePath, "datasets", len(records))
	return len(records), nil
}

// FindByStandardName returns all records whose standard_name matches.
func (s *Store) FindByStandardName(ctx context.Context, name string) ([]store.DatasetRecord, error) {
	if err := s.ensureScanned(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var matches []store.DatasetRecord
	for _, records := range s.records {
		for _, rec := range records {
			if rec.StandardName == name {
				matches = append(matches, rec)
			}
		}
	}
	return matches, nil
}

// GetDistribution returns the records of one distribution.
func (s *Store) GetDistribution(ctx context.Context, distributionID string) ([]store.DatasetRecord, error) {
	if err := s.ensureScanned(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records, ok := s.records[distributionID]
	if !ok {
		return nil, fmt.Errorf("filestore: distribution %q: %w",
			distributionID, errors.ErrDistributionNotFound)
	}
	return records, nil
}

// Rescan drops the index and rescans the root on the next lookup.
func (s *Store) Rescan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.scanned = false
	s.records = make(map[string][]store.DatasetRecord)
}

// ensureScanned walks the root on first use. Unreadable files are logged
// and skipped so one corrupt file does not hide the rest.
func (s *Store) ensureScanned(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrStoreClosed
	}
	if s.scanned {
		return nil
	}

	matches, err := doublestar.FilepathGlob(
		filepath.ToSlash(s.root)+"/"+s.pattern, doublestar.WithFilesOnly())
	if err != nil {
		return errors.WrapInvalid(err, "filestore", "scan", "glob "+s.pattern)
	}
	for _, match := range matches {
		path := filepath.FromSlash(match)
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			rel = path
		}
		id := filepath.ToSlash(rel)
		if _, registered := s.records[id]; registered {
			continue
		}
		records, err := scanOne(id, path)
		if err != nil {
			s.logger.Warn("skipping unreadable file", "file", path, "error", err)
			continue
		}
		s.records[id] = records
	}
	s.scanned = true
	s.logger.Debug("directory scanned", "root", s.root, "files", len(s.records))
	return nil
}

func scanOne(distributionID, filePath string) ([]store.DatasetRecord, error) {
	infos, err := hdf.Scan(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "filestore", "scan", "scan "+filePath)
	}
	records := make([]store.DatasetRecord, 0, len(infos))
	for _, info := range infos {
		records = append(records, store.DatasetRecord{
			DistributionID: distributionID,
			FilePath:       filePath,
			DatasetPath:    info.Path,
			StandardName:   info.StandardName,
			Units:          info.Units,
			LongName:       info.LongName,
			Shape:          info.Shape,
		})
	}
	return records, nil
}
