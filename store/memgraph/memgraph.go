// Package memgraph provides an in-memory RDF store backed by an indexed
// triple graph. It is the default store for small catalogs and for tests.
package memgraph

import (
	"context"
	"log/slog"
	"sync"

	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/query"
	"github.com/c360studio/semcat/rdf"
	"github.com/c360studio/semcat/store"
)

// Store holds triples in memory and evaluates SPARQL SELECT queries
// directly against the graph.
//
// Thread Safety:
// Safe for concurrent use. The underlying graph serializes writes; Close
// flips a guarded flag.
type Store struct {
	mu     sync.RWMutex
	graph  *rdf.Graph
	closed bool
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates an empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		graph:  rdf.NewGraph(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kind reports store.KindMemory.
func (s *Store) Kind() store.Kind { return store.KindMemory }

// Close marks the store closed. Further operations fail with
// errors.ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Len returns the number of stored triples.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.Len()
}

// Graph exposes the underlying graph for direct traversal.
func (s *Store) Graph() *rdf.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph
}

// IngestGraph merges all triples of g into the store.
func (s *Store) IngestGraph(ctx context.Context, g *rdf.Graph) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.mu.RLock()
	dst := s.graph
	s.mu.RUnlock()
	dst.Merge(g)
	s.logger.Debug("graph ingested", "triples", g.Len(), "total", dst.Len())
	return nil
}

// IngestFile parses a Turtle, N-Triples or JSON-LD document by file
// extension and merges it into the store.
func (s *Store) IngestFile(ctx context.Context, path string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	g, err := rdf.ParseFile(path)
	if err != nil {
		return errors.Wrap(err, "memgraph", "IngestFile", "parse "+path)
	}
	return s.IngestGraph(ctx, g)
}

// ExecuteSelect evaluates a SPARQL SELECT query against the stored graph.
func (s *Store) ExecuteSelect(ctx context.Context, q query.SparqlQuery) (*query.Result, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	g := s.graph
	s.mu.RUnlock()
	result, err := query.ExecuteSelect(g, q)
	if err != nil {
		return nil, errors.WrapInvalid(err, "memgraph", "ExecuteSelect", "evaluate query "+q.ID)
	}
	return result, nil
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.ErrStoreClosed
	}
	return nil
}
