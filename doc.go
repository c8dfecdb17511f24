// Package semcat provides tooling for semantically described research
// data: standard name tables with units checking, attribute conventions
// enforced on HDF5 files, RDF/DCAT catalog stores and federated SPARQL
// queries across them.
//
// # Architecture
//
// The module is organized in three layers:
//
// Naming and validation:
//   - units: dimensional analysis and unit conversion
//   - snt: standard name tables (load, fetch, verify, derived names)
//   - convention: attribute conventions and value validators
//   - hdf: convention-enforcing HDF5 creation and inspection
//   - shacl: shape validation over RDF graphs
//
// Metadata:
//   - rdf: triples, graphs, Turtle/N-Triples/JSON-LD parsing and writing
//   - vocabulary: namespace IRIs and the standard-attribute registry
//   - query: SPARQL and SQL query objects, tabular and federated results
//
// Stores and orchestration:
//   - store: backend interfaces (metadata, data registry, RDF)
//   - store/memgraph, store/sparqlremote, store/sqlregistry,
//     store/filestore, store/kvstore: the concrete backends
//   - catalog: DCAT model and the mirroring/query manager
//
// Ambient packages (errors, config, metric) serve all layers.
//
// # Binary
//
// cmd/semcat exposes the toolchain: standard name table fetching and
// checking, file validation, catalog ingestion, registry scans and
// federated queries.
package semcat
