package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/rdf"
)

const catalogTurtle = `
@prefix dcat: <http://www.w3.org/ns/dcat#> .
@prefix dct:  <http://purl.org/dc/terms/> .
@prefix spdx: <http://spdx.org/rdf/terms#> .
@prefix ex:   <http://example.org/> .

ex:cat a dcat:Catalog ;
    dct:title "Wind tunnel runs" ;
    dcat:dataset ex:ds1 .

ex:ds1 a dcat:Dataset ;
    dct:title "Run 42" ;
    dct:identifier "run-42" ;
    dcat:keyword "piv", "wind-tunnel" ;
    dcat:distribution ex:dist1, ex:dist2 .

ex:dist1 a dcat:Distribution ;
    dcat:downloadURL <http://example.org/files/run42.h5> ;
    dcat:mediaType "application/x-hdf5" ;
    dcat:byteSize 4096 ;
    spdx:checksum [
        spdx:algorithm <http://spdx.org/rdf/terms#checksumAlgorithm_sha256> ;
        spdx:checksumValue "abc123"
    ] .

ex:dist2 a dcat:Distribution ;
    dcat:downloadURL <http://example.org/files/run42.ttl> ;
    dcat:mediaType "text/turtle" .
`

func TestParseCatalog(t *testing.T) {
	g, err := rdf.ParseTurtleString(catalogTurtle)
	require.NoError(t, err)

	cat, err := ParseCatalog(g)
	require.NoError(t, err)
	assert.Equal(t, "http://example.org/cat", cat.IRI)
	assert.Equal(t, "Wind tunnel runs", cat.Title)
	require.Len(t, cat.Datasets, 1)

	ds := cat.Datasets[0]
	assert.Equal(t, "Run 42", ds.Title)
	assert.Equal(t, "run-42", ds.Identifier)
	assert.Equal(t, []string{"piv", "wind-tunnel"}, ds.Keywords)
	require.Len(t, ds.Distributions, 2)

	h5 := ds.Distributions[0]
	assert.Equal(t, "http://example.org/files/run42.h5", h5.DownloadURL)
	assert.Equal(t, int64(4096), h5.ByteSize)
	assert.True(t, h5.IsHDF5())
	assert.False(t, h5.IsRDF())
	require.NotNil(t, h5.Checksum)
	assert.Equal(t, "sha256", h5.Checksum.Algorithm)
	assert.Equal(t, "abc123", h5.Checksum.Value)

	ttl := ds.Distributions[1]
	assert.True(t, ttl.IsRDF())
	assert.False(t, ttl.IsHDF5())
	assert.Nil(t, ttl.Checksum)
}

func TestParseCatalogWithoutCatalogNode(t *testing.T) {
	g, err := rdf.ParseTurtleString(`
@prefix dcat: <http://www.w3.org/ns/dcat#> .
@prefix dct:  <http://purl.org/dc/terms/> .
@prefix ex:   <http://example.org/> .

ex:ds1 a dcat:Dataset ; dct:title "Standalone" .
`)
	require.NoError(t, err)

	cat, err := ParseCatalog(g)
	require.NoError(t, err)
	assert.Empty(t, cat.IRI)
	require.Len(t, cat.Datasets, 1)
	assert.Equal(t, "Standalone", cat.Datasets[0].Title)
}

func TestParseCatalogErrors(t *testing.T) {
	empty := rdf.NewGraph()
	_, err := ParseCatalog(empty)
	assert.ErrorIs(t, err, errors.ErrInvalidData)

	two, err := rdf.ParseTurtleString(`
@prefix dcat: <http://www.w3.org/ns/dcat#> .
@prefix ex:   <http://example.org/> .
ex:a a dcat:Catalog . ex:b a dcat:Catalog .
`)
	require.NoError(t, err)
	_, err = ParseCatalog(two)
	assert.ErrorIs(t, err, errors.ErrInvalidData)
}

func TestNormalizeAlgorithm(t *testing.T) {
	assert.Equal(t, "sha256",
		normalizeAlgorithm("http://spdx.org/rdf/terms#checksumAlgorithm_sha256"))
	assert.Equal(t, "md5", normalizeAlgorithm("MD5"))
	assert.Equal(t, "sha1", normalizeAlgorithm("checksumAlgorithm_SHA1"))
}
