// Package store defines the pluggable backend interfaces of the catalog
// subsystem.
//
// Three store families cover the catalog's needs: MetadataStore holds raw
// record documents under keys, DataStore indexes the datasets inside
// registered HDF5 files, and RDFStore holds triples and answers SPARQL
// SELECT queries. Concrete backends live in subpackages (memgraph,
// sparqlremote, sqlregistry, filestore, kvstore).
//
// Thread Safety:
// All implementations must be safe for concurrent use from multiple
// goroutines.
package store

import (
	"context"

	"github.com/c360studio/semcat/query"
	"github.com/c360studio/semcat/rdf"
)

// Kind identifies a backend family.
type Kind string

const (
	// KindMemory is an in-memory RDF graph store.
	KindMemory Kind = "memory"
	// KindSPARQL is a remote SPARQL endpoint.
	KindSPARQL Kind = "sparql"
	// KindSQL is a SQLite-backed dataset registry.
	KindSQL Kind = "sql"
	// KindFile is a directory of HDF5 files.
	KindFile Kind = "file"
	// KindKV is a NATS JetStream key-value bucket.
	KindKV Kind = "kv"
)

// Store is the common lifecycle surface of every backend.
type Store interface {
	// Kind reports the backend family.
	Kind() Kind

	// Close releases backend resources. Operations after Close return
	// errors.ErrStoreClosed.
	Close() error
}

// MetadataStore stores record documents under hierarchical keys.
//
// Keys are strings with "/" separators; values are opaque documents
// (JSON, Turtle, anything the caller serializes).
type MetadataStore interface {
	Store

	// Put stores a document at the key, overwriting any previous value.
	Put(ctx context.Context, key string, data []byte) error

	// Get retrieves the document at the key. A missing key returns
	// errors.ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns all keys with the given prefix in lexicographic order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
}

// DatasetRecord describes one dataset inside a registered HDF5 file.
type DatasetRecord struct {
	// DistributionID identifies the DCAT distribution the file belongs to.
	DistributionID string

	// FilePath is the registered file on disk.
	FilePath string

	// DatasetPath is the object path inside the file.
	DatasetPath string

	// StandardName, Units and LongName are the dataset's convention
	// attributes, empty when absent.
	StandardName string
	Units        string
	LongName     string

	// Shape is the dataset's dimensions.
	Shape []uint64
}

// DataStore indexes the datasets of registered HDF5 files for lookup by
// standard name or distribution.
type DataStore interface {
	Store

	// RegisterFile scans an HDF5 file and records its datasets under the
	// distribution ID. Registration is idempotent: re-registering a
	// distribution replaces its records. Returns the number of datasets
	// recorded.
	RegisterFile(ctx context.Context, distributionID, filePath string) (int, error)

	// FindByStandardName returns all records whose standard_name matches.
	FindByStandardName(ctx context.Context, name string) ([]DatasetRecord, error)

	// GetDistribution returns the records of one distribution. An unknown
	// distribution returns errors.ErrDistributionNotFound.
	GetDistribution(ctx context.Context, distributionID string) ([]DatasetRecord, error)
}

// RDFStore holds triples and answers SPARQL SELECT queries.
type RDFStore interface {
	Store

	// IngestGraph adds all triples of a graph.
	IngestGraph(ctx context.Context, g *rdf.Graph) error

	// IngestFile parses and adds a serialized graph document. The format
	// follows the file extension (.ttl, .nt, .jsonld/.json).
	IngestFile(ctx context.Context, path string) error

	// ExecuteSelect runs a SPARQL SELECT query.
	ExecuteSelect(ctx context.Context, q query.SparqlQuery) (*query.Result, error)
}
