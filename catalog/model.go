// Package catalog provides the DCAT catalog model and the manager that
// mirrors a catalog locally: downloading distributions, ingesting metadata
// into RDF stores, registering data files and running federated queries.
package catalog

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/rdf"
	"github.com/c360studio/semcat/vocabulary"
)

// Checksum is a distribution content checksum.
type Checksum struct {
	// Algorithm is the lowercase algorithm name ("sha256", "md5", "sha1").
	Algorithm string

	// Value is the hex digest.
	Value string
}

// Distribution is one downloadable form of a dataset.
type Distribution struct {
	IRI         string
	Title       string
	DownloadURL string
	AccessURL   string
	MediaType   string
	ByteSize    int64
	Checksum    *Checksum
}

// IsHDF5 reports whether the distribution carries HDF5 data, by media type
// or download URL extension.
func (d Distribution) IsHDF5() bool {
	switch d.MediaType {
	case "application/x-hdf5", "application/x-hdf":
		return true
	}
	switch strings.ToLower(path.Ext(d.DownloadURL)) {
	case ".h5", ".hdf5":
		return true
	}
	return false
}

// IsRDF reports whether the distribution carries RDF metadata the stores
// can ingest directly.
func (d Distribution) IsRDF() bool {
	switch d.MediaType {
	case "text/turtle", "application/n-triples", "application/ld+json":
		return true
	}
	switch strings.ToLower(path.Ext(d.DownloadURL)) {
	case ".ttl", ".turtle", ".nt", ".jsonld":
		return true
	}
	return false
}

// Dataset is a catalogued dataset with its distributions.
type Dataset struct {
	IRI           string
	Title         string
	Description   string
	Identifier    string
	Keywords      []string
	Distributions []Distribution
}

// Catalog is a DCAT catalog.
type Catalog struct {
	IRI         string
	Title       string
	Description string
	Datasets    []Dataset
}

// Distributions returns all distributions of all datasets.
func (c *Catalog) Distributions() []Distribution {
	var dists []Distribution
	for _, ds := range c.Datasets {
		dists = append(dists, ds.Distributions...)
	}
	return dists
}

// ParseCatalog extracts the DCAT model from a graph. Graphs without a
// dcat:Catalog node yield a synthetic catalog holding every dcat:Dataset
// found.
func ParseCatalog(g *rdf.Graph) (*Catalog, error) {
	catalogs := g.SubjectsOfType(rdf.IRI(vocabulary.DcatCatalog))

	var cat *Catalog
	var datasetIRIs []rdf.Term
	switch len(catalogs) {
	case 0:
		cat = &Catalog{}
		datasetIRIs = g.SubjectsOfType(rdf.IRI(vocabulary.DcatDataset))
		sortTerms(datasetIRIs)
	case 1:
		subject := catalogs[0]
		cat = &Catalog{
			IRI:         subject.Value,
			Title:       firstValue(g, subject, vocabulary.DcTitle),
			Description: firstValue(g, subject, vocabulary.DcDescription),
		}
		datasetIRIs = g.Objects(subject, rdf.IRI(vocabulary.DcatDatasetProp))
		sortTerms(datasetIRIs)
	default:
		return nil, fmt.Errorf("catalog: graph holds %d dcat:Catalog nodes: %w",
			len(catalogs), errors.ErrInvalidData)
	}

	if len(datasetIRIs) == 0 {
		return nil, fmt.Errorf("catalog: no datasets found: %w", errors.ErrInvalidData)
	}

	for _, subject := range datasetIRIs {
		ds := Dataset{
			IRI:         subject.Value,
			Title:       firstValue(g, subject, vocabulary.DcTitle),
			Description: firstValue(g, subject, vocabulary.DcDescription),
			Identifier:  firstValue(g, subject, vocabulary.DcIdentifier),
		}
		for _, kw := range g.Objects(subject, rdf.IRI(vocabulary.DcatKeyword)) {
			ds.Keywords = append(ds.Keywords, kw.Value)
		}
		sort.Strings(ds.Keywords)

		distIRIs := g.Objects(subject, rdf.IRI(vocabulary.DcatDistributionOf))
		sortTerms(distIRIs)
		for _, distSubject := range distIRIs {
			ds.Distributions = append(ds.Distributions, parseDistribution(g, distSubject))
		}
		cat.Datasets = append(cat.Datasets, ds)
	}
	return cat, nil
}

func parseDistribution(g *rdf.Graph, subject rdf.Term) Distribution {
	dist := Distribution{
		IRI:         subject.Value,
		Title:       firstValue(g, subject, vocabulary.DcTitle),
		DownloadURL: firstValue(g, subject, vocabulary.DcatDownloadURL),
		AccessURL:   firstValue(g, subject, vocabulary.DcatAccessURL),
		MediaType:   firstValue(g, subject, vocabulary.DcatMediaType),
	}
	if size, ok := g.FirstObject(subject, rdf.IRI(vocabulary.DcatByteSize)); ok {
		if n, err := size.Int(); err == nil {
			dist.ByteSize = n
		}
	}
	if node, ok := g.FirstObject(subject, rdf.IRI(vocabulary.SpdxChecksum)); ok {
		algo := firstValue(g, node, vocabulary.SpdxAlgorithm)
		value := firstValue(g, node, vocabulary.SpdxChecksumValue)
		if value != "" {
			dist.Checksum = &Checksum{Algorithm: normalizeAlgorithm(algo), Value: value}
		}
	}
	return dist
}

// normalizeAlgorithm maps SPDX algorithm IRIs like
// spdx:checksumAlgorithm_sha256 to bare lowercase names.
func normalizeAlgorithm(algo string) string {
	if i := strings.LastIndex(algo, "_"); i >= 0 {
		algo = algo[i+1:]
	}
	if i := strings.LastIndexAny(algo, "/#"); i >= 0 {
		algo = algo[i+1:]
	}
	return strings.ToLower(algo)
}

// firstValue reads the first object of a predicate, IRI or literal.
func firstValue(g *rdf.Graph, subject rdf.Term, predicate string) string {
	if o, ok := g.FirstObject(subject, rdf.IRI(predicate)); ok {
		return o.Value
	}
	return ""
}

func sortTerms(terms []rdf.Term) {
	sort.Slice(terms, func(i, j int) bool { return terms[i].Value < terms[j].Value })
}
