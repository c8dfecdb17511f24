package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/metric"
	"github.com/c360studio/semcat/query"
	"github.com/c360studio/semcat/rdf"
	"github.com/c360studio/semcat/store"
)

const (
	defaultConcurrency = 4
	defaultTimeout     = 120 * time.Second
)

// NamedRDFStore pairs an RDF store with the name it reports in federated
// results.
type NamedRDFStore struct {
	Name  string
	Store store.RDFStore
}

// Manager mirrors a DCAT catalog: it downloads distributions into a
// working directory, ingests RDF metadata into the attached stores,
// registers HDF5 distributions in the data store and runs federated
// queries.
//
// Thread Safety:
// Safe for concurrent queries. LoadCatalog and the download/ingest
// pipeline mutate manager state and must not run concurrently with each
// other.
type Manager struct {
	workDir     string
	client      *http.Client
	limiter     *rate.Limiter
	concurrency int
	logger      *slog.Logger
	metrics     *metric.Metrics

	rdfStores []NamedRDFStore
	dataStore store.DataStore
	metaStore store.MetadataStore

	mu        sync.RWMutex
	graph     *rdf.Graph
	catalog   *Catalog
	downloads []Download
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithHTTPClient sets the HTTP client used for downloads.
func WithHTTPClient(c *http.Client) ManagerOption {
	return func(m *Manager) {
		if c != nil {
			m.client = c
		}
	}
}

// WithRateLimit sets the download rate limit and burst.
func WithRateLimit(r rate.Limit, burst int) ManagerOption {
	return func(m *Manager) { m.limiter = rate.NewLimiter(r, burst) }
}

// WithConcurrency bounds the number of parallel downloads.
func WithConcurrency(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetrics attaches download and query metrics.
func WithMetrics(metrics *metric.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = metrics }
}

// WithRDFStore attaches a named RDF store. Repeatable.
func WithRDFStore(name string, s store.RDFStore) ManagerOption {
	return func(m *Manager) {
		m.rdfStores = append(m.rdfStores, NamedRDFStore{Name: name, Store: s})
	}
}

// WithDataStore attaches the data store HDF5 distributions register into.
func WithDataStore(s store.DataStore) ManagerOption {
	return func(m *Manager) { m.dataStore = s }
}

// WithMetadataStore attaches a store that receives one mirror record per
// downloaded distribution.
func WithMetadataStore(s store.MetadataStore) ManagerOption {
	return func(m *Manager) { m.metaStore = s }
}

// NewManager creates a manager with the given working directory, creating
// it if needed.
func NewManager(workDir string, opts ...ManagerOption) (*Manager, error) {
	if workDir == "" {
		return nil, fmt.Errorf("catalog: working directory required: %w",
			errors.ErrMissingConfig)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, errors.WrapFatal(err, "catalog", "NewManager", "create working directory")
	}
	m := &Manager{
		workDir:     workDir,
		client:      &http.Client{Timeout: defaultTimeout},
		limiter:     rate.NewLimiter(rate.Limit(4), 8),
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Catalog returns the loaded catalog model, or nil.
func (m *Manager) Catalog() *Catalog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.catalog
}

// Downloads returns the distributions mirrored so far.
func (m *Manager) Downloads() []Download {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Download(nil), m.downloads...)
}

// LoadCatalog parses a catalog document (Turtle, N-Triples or JSON-LD)
// and replaces the manager's model.
func (m *Manager) LoadCatalog(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g, err := rdf.ParseFile(path)
	if err != nil {
		return errors.Wrap(err, "catalog", "LoadCatalog", "parse "+path)
	}
	cat, err := ParseCatalog(g)
	if err != nil {
		return errors.Wrap(err, "catalog", "LoadCatalog", "extract model from "+path)
	}

	m.mu.Lock()
	m.graph = g
	m.catalog = cat
	m.downloads = nil
	m.mu.Unlock()

	m.logger.Info("catalog loaded",
		"path", path, "datasets", len(cat.Datasets),
		"distributions", len(cat.Distributions()))
	return nil
}

// DownloadAll mirrors every distribution with a download URL into the
// working directory. Downloads run concurrently, bounded and
// rate-limited; one failure cancels the rest.
func (m *Manager) DownloadAll(ctx context.Context) ([]Download, error) {
	m.mu.RLock()
	cat := m.catalog
	m.mu.RUnlock()
	if cat == nil {
		return nil, fmt.Errorf("catalog: no catalog loaded: %w", errors.ErrMissingConfig)
	}

	dl := &downloader{
		workDir: m.workDir,
		client:  m.client,
		limiter: m.limiter,
		logger:  m.logger,
	}

	var mu sync.Mutex
	var downloads []Download

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for _, dist := range cat.Distributions() {
		if dist.DownloadURL == "" {
			m.logger.Warn("skipping distribution without download URL", "iri", dist.IRI)
			continue
		}
		g.Go(func() error {
			download, err := dl.fetch(ctx, dist)
			m.recordDownload(download, err)
			if err != nil {
				return err
			}
			mu.Lock()
			downloads = append(downloads, download)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(downloads, func(i, j int) bool {
		return downloads[i].Path < downloads[j].Path
	})
	m.mu.Lock()
	m.downloads = downloads
	m.mu.Unlock()
	return downloads, nil
}

// IngestMetadata merges the catalog graph and every downloaded RDF
// distribution into all attached RDF stores.
func (m *Manager) IngestMetadata(ctx context.Context) error {
	m.mu.RLock()
	g := m.graph
	downloads := m.downloads
	m.mu.RUnlock()
	if g == nil {
		return fmt.Errorf("catalog: no catalog loaded: %w", errors.ErrMissingConfig)
	}

	for _, named := range m.rdfStores {
		if err := named.Store.IngestGraph(ctx, g); err != nil {
			return errors.Wrap(err, "catalog", "IngestMetadata",
				"ingest catalog into "+named.Name)
		}
		for _, download := range downloads {
			if !download.Distribution.IsRDF() {
				continue
			}
			if err := named.Store.IngestFile(ctx, download.Path); err != nil {
				return errors.Wrap(err, "catalog", "IngestMetadata",
					fmt.Sprintf("ingest %s into %s", download.Path, named.Name))
			}
		}
	}
	m.logger.Info("metadata ingested", "stores", len(m.rdfStores))
	return nil
}

// RegisterData registers every downloaded HDF5 distribution in the data
// store. Returns the total number of dataset records created.
func (m *Manager) RegisterData(ctx context.Context) (int, error) {
	if m.dataStore == nil {
		return 0, fmt.Errorf("catalog: no data store attached: %w", errors.ErrMissingConfig)
	}
	m.mu.RLock()
	downloads := m.downloads
	m.mu.RUnlock()

	total := 0
	for _, download := range downloads {
		if !download.Distribution.IsHDF5() {
			continue
		}
		n, err := m.dataStore.RegisterFile(ctx, download.Distribution.IRI, download.Path)
		if err != nil {
			return total, errors.Wrap(err, "catalog", "RegisterData",
				"register "+download.Path)
		}
		total += n
	}
	m.logger.Info("data registered", "records", total)
	return total, nil
}

// MirrorRecord is the document written to the metadata store for each
// mirrored distribution.
type MirrorRecord struct {
	DistributionIRI string    `json:"distribution_iri"`
	Title           string    `json:"title,omitempty"`
	DownloadURL     string    `json:"download_url"`
	MediaType       string    `json:"media_type,omitempty"`
	ByteSize        int64     `json:"byte_size,omitempty"`
	LocalPath       string    `json:"local_path"`
	Cached          bool      `json:"cached"`
	MirroredAt      time.Time `json:"mirrored_at"`
}

// RecordMirror writes one record per mirrored distribution into the
// metadata store, keyed under records/ by a digest of the distribution
// IRI. Re-recording a distribution overwrites its document.
func (m *Manager) RecordMirror(ctx context.Context) error {
	if m.metaStore == nil {
		return fmt.Errorf("catalog: no metadata store attached: %w", errors.ErrMissingConfig)
	}
	m.mu.RLock()
	downloads := m.downloads
	m.mu.RUnlock()

	now := time.Now().UTC()
	for _, download := range downloads {
		rec := MirrorRecord{
			DistributionIRI: download.Distribution.IRI,
			Title:           download.Distribution.Title,
			DownloadURL:     download.Distribution.DownloadURL,
			MediaType:       download.Distribution.MediaType,
			ByteSize:        download.Distribution.ByteSize,
			LocalPath:       download.Path,
			Cached:          download.Cached,
			MirroredAt:      now,
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return errors.WrapInvalid(err, "catalog", "RecordMirror",
				"encode record for "+download.Distribution.IRI)
		}
		key := "records/" + digestKey(download.Distribution.IRI)
		if err := m.metaStore.Put(ctx, key, data); err != nil {
			return errors.Wrap(err, "catalog", "RecordMirror", "store "+key)
		}
	}
	m.logger.Info("mirror recorded", "records", len(downloads))
	return nil
}

// digestKey turns an IRI into a key segment safe for any backend.
func digestKey(iri string) string {
	sum := sha256.Sum256([]byte(iri))
	return hex.EncodeToString(sum[:8])
}

// Sync runs the full pipeline: load, download, ingest, register, record.
func (m *Manager) Sync(ctx context.Context, catalogPath string) error {
	if err := m.LoadCatalog(ctx, catalogPath); err != nil {
		return err
	}
	if _, err := m.DownloadAll(ctx); err != nil {
		return err
	}
	if err := m.IngestMetadata(ctx); err != nil {
		return err
	}
	if m.dataStore != nil {
		if _, err := m.RegisterData(ctx); err != nil {
			return err
		}
	}
	if m.metaStore != nil {
		if err := m.RecordMirror(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Query runs a SPARQL SELECT query against every attached RDF store
// concurrently and federates the results. Store failures are recorded in
// the result rather than failing the federation.
func (m *Manager) Query(ctx context.Context, text string) (*query.FederatedResult, error) {
	if len(m.rdfStores) == 0 {
		return nil, fmt.Errorf("catalog: no RDF stores attached: %w", errors.ErrMissingConfig)
	}
	q := query.NewSparqlQuery(text)

	sources := make([]query.SourceResult, len(m.rdfStores))
	var wg sync.WaitGroup
	for i, named := range m.rdfStores {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			result, err := named.Store.ExecuteSelect(ctx, q)
			if m.metrics != nil {
				m.metrics.RecordQueryDuration(named.Name, time.Since(start))
			}
			sources[i] = query.SourceResult{Store: named.Name, Result: result, Err: err}
			if err != nil {
				m.logger.Warn("store failed federated query",
					"store", named.Name, "query_id", q.ID, "error", err)
			}
		}()
	}
	wg.Wait()

	return query.Federate(q.ID, sources), nil
}

func (m *Manager) recordDownload(download Download, err error) {
	if m.metrics == nil {
		return
	}
	switch {
	case err != nil && stderrors.Is(err, errors.ErrChecksumMismatch):
		m.metrics.RecordDownload("checksum_mismatch", 0)
	case err != nil:
		m.metrics.RecordDownload("failed", 0)
	case download.Cached:
		m.metrics.RecordDownload("cached", 0)
	default:
		m.metrics.RecordDownload("ok", download.Distribution.ByteSize)
	}
}
