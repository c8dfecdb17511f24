// Package sparqlremote provides an RDF store backed by a remote SPARQL
// endpoint. Queries are POSTed as application/sparql-query and results are
// decoded from the SPARQL 1.1 JSON results format.
//
// The store is read-mostly: ExecuteSelect runs against the endpoint, while
// IngestGraph posts Turtle to the endpoint's graph store when an update URL
// is configured.
package sparqlremote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/query"
	"github.com/c360studio/semcat/rdf"
	"github.com/c360studio/semcat/store"
)

const (
	defaultTimeout = 60 * time.Second

	// Public endpoints throttle aggressively; one request per second with a
	// small burst keeps well under the usual limits.
	defaultRate  = rate.Limit(1)
	defaultBurst = 3
)

// Store executes SPARQL queries against a remote endpoint.
//
// Thread Safety:
// Safe for concurrent use. The rate limiter serializes request admission;
// the HTTP client is shared.
type Store struct {
	queryURL  string
	updateURL string
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	logger    *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Option configures a Store.
type Option func(*Store)

// WithClient sets the HTTP client.
func WithClient(c *http.Client) Option {
	return func(s *Store) {
		if c != nil {
			s.client = c
		}
	}
}

// WithRateLimit sets the request rate limit and burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(s *Store) { s.limiter = rate.NewLimiter(r, burst) }
}

// WithUpdateURL sets the graph-store endpoint used for ingestion.
func WithUpdateURL(url string) Option {
	return func(s *Store) { s.updateURL = url }
}

// WithUserAgent sets the User-Agent header. Public endpoints such as the
// Wikidata query service require a descriptive agent.
func WithUserAgent(ua string) Option {
	return func(s *Store) { s.userAgent = ua }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a store for the given SPARQL query endpoint.
func New(queryURL string, opts ...Option) (*Store, error) {
	if queryURL == "" {
		return nil, fmt.Errorf("sparqlremote: query URL required: %w", errors.ErrMissingConfig)
	}
	s := &Store{
		queryURL:  queryURL,
		client:    &http.Client{Timeout: defaultTimeout},
		limiter:   rate.NewLimiter(defaultRate, defaultBurst),
		userAgent: "semcat/1.0",
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewGraphDB creates a store preset for a GraphDB-style repository: the
// query endpoint is /repositories/<name> and updates go to
// /repositories/<name>/statements.
func NewGraphDB(baseURL, repository string, opts ...Option) (*Store, error) {
	base := strings.TrimRight(baseURL, "/")
	queryURL := base + "/repositories/" + repository
	opts = append([]Option{WithUpdateURL(queryURL + "/statements")}, opts...)
	return New(queryURL, opts...)
}

// NewWikidata creates a read-only store preset for the Wikidata query
// service, rate-limited to its published etiquette.
func NewWikidata(opts ...Option) (*Store, error) {
	opts = append([]Option{
		WithRateLimit(rate.Limit(0.5), 1),
		WithUserAgent("semcat/1.0 (https://github.com/c360studio/semcat)"),
	}, opts...)
	return New("https://query.wikidata.org/sparql", opts...)
}

// Kind reports store.KindSPARQL.
func (s *Store) Kind() store.Kind { return store.KindSPARQL }

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ExecuteSelect POSTs the query to the endpoint and decodes the JSON
// results into a tabular Result.
func (s *Store) ExecuteSelect(ctx context.Context, q query.SparqlQuery) (*query.Result, error) {
	if err := s.admit(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.queryURL,
		strings.NewReader(q.Text))
	if err != nil {
		return nil, errors.WrapInvalid(err, "sparqlremote", "ExecuteSelect", "build request")
	}
	req.Header.Set("Content-Type", "application/sparql-query")
	req.Header.Set("Accept", "application/sparql-results+json")
	req.Header.Set("User-Agent", s.userAgent)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.WrapTransient(err, "sparqlremote", "ExecuteSelect",
			"query "+s.queryURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("sparqlremote: endpoint throttled query %s: %w",
			q.ID, errors.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("sparqlremote: endpoint returned %d: %s: %w",
			resp.StatusCode, strings.TrimSpace(string(body)), errors.ErrEndpointDown)
	}

	result, err := decodeResults(resp.Body)
	if err != nil {
		return nil, errors.WrapInvalid(err, "sparqlremote", "ExecuteSelect", "decode results")
	}
	s.logger.Debug("remote query executed",
		"endpoint", s.queryURL, "query_id", q.ID,
		"rows", result.Len(), "duration", time.Since(start))
	return result, nil
}

// IngestGraph serializes the graph as Turtle and POSTs it to the update
// endpoint. Stores without an update URL are read-only.
func (s *Store) IngestGraph(ctx context.Context, g *rdf.Graph) error {
	if err := s.admit(ctx); err != nil {
		return err
	}
	if s.updateURL == "" {
		return fmt.Errorf("sparqlremote: no update endpoint configured: %w",
			errors.ErrStoreReadOnly)
	}

	var buf bytes.Buffer
	if err := g.WriteTurtle(&buf); err != nil {
		return errors.WrapInvalid(err, "sparqlremote", "IngestGraph", "serialize graph")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.updateURL, &buf)
	if err != nil {
		return errors.WrapInvalid(err, "sparqlremote", "IngestGraph", "build request")
	}
	req.Header.Set("Content-Type", "text/turtle")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.WrapTransient(err, "sparqlremote", "IngestGraph", "post "+s.updateURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sparqlremote: update endpoint returned %d: %w",
			resp.StatusCode, errors.ErrEndpointDown)
	}
	s.logger.Debug("graph posted to endpoint", "endpoint", s.updateURL, "triples", g.Len())
	return nil
}

// IngestFile parses a local graph document and posts it to the update
// endpoint.
func (s *Store) IngestFile(ctx context.Context, path string) error {
	g, err := rdf.ParseFile(path)
	if err != nil {
		return errors.Wrap(err, "sparqlremote", "IngestFile", "parse "+path)
	}
	return s.IngestGraph(ctx, g)
}

func (s *Store) admit(ctx context.Context) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return errors.ErrStoreClosed
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return nil
}

// sparqlJSON is the SPARQL 1.1 query results JSON format.
type sparqlJSON struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]sparqlTerm `json:"bindings"`
	} `json:"results"`
}

type sparqlTerm struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype"`
	Lang     string `json:"xml:lang"`
}

func decodeResults(r io.Reader) (*query.Result, error) {
	var doc sparqlJSON
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	result := query.NewResult(doc.Head.Vars...)
	for _, binding := range doc.Results.Bindings {
		row := make([]any, len(doc.Head.Vars))
		for i, v := range doc.Head.Vars {
			term, ok := binding[v]
			if !ok {
				continue
			}
			row[i] = termValue(term)
		}
		if err := result.AddRow(row...); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func termValue(t sparqlTerm) any {
	switch t.Datatype {
	case "http://www.w3.org/2001/XMLSchema#integer",
		"http://www.w3.org/2001/XMLSchema#long",
		"http://www.w3.org/2001/XMLSchema#int":
		if n, err := strconv.ParseInt(t.Value, 10, 64); err == nil {
			return n
		}
	case "http://www.w3.org/2001/XMLSchema#double",
		"http://www.w3.org/2001/XMLSchema#decimal",
		"http://www.w3.org/2001/XMLSchema#float":
		if f, err := strconv.ParseFloat(t.Value, 64); err == nil {
			return f
		}
	case "http://www.w3.org/2001/XMLSchema#boolean":
		if b, err := strconv.ParseBool(t.Value); err == nil {
			return b
		}
	}
	return t.Value
}
