package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/rdf"
)

func catalogGraph(t *testing.T) *rdf.Graph {
	t.Helper()
	doc := `
@prefix dcat: <http://www.w3.org/ns/dcat#> .
@prefix dct:  <http://purl.org/dc/terms/> .
@prefix ex:   <http://example.org/> .

ex:ds1 a dcat:Dataset ;
    dct:title "Velocity field" ;
    dcat:keyword "piv" ;
    dcat:byteSize 2048 .

ex:ds2 a dcat:Dataset ;
    dct:title "Pressure taps" ;
    dcat:keyword "pressure" ;
    dcat:byteSize 1024 .

ex:cat a dcat:Catalog ;
    dcat:dataset ex:ds1, ex:ds2 .
`
	g, err := rdf.ParseTurtleString(doc)
	require.NoError(t, err)
	return g
}

func TestExecuteSelectBasicPattern(t *testing.T) {
	g := catalogGraph(t)
	q := NewSparqlQuery(`
PREFIX dcat: <http://www.w3.org/ns/dcat#>
PREFIX dct:  <http://purl.org/dc/terms/>
SELECT ?ds ?title WHERE {
  ?ds a dcat:Dataset .
  ?ds dct:title ?title .
}
ORDER BY ?title`)

	result, err := ExecuteSelect(g, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"ds", "title"}, result.Columns)
	require.Equal(t, 2, result.Len())
	assert.Equal(t, "Pressure taps", result.Rows[0][1])
	assert.Equal(t, "Velocity field", result.Rows[1][1])
}

func TestExecuteSelectJoin(t *testing.T) {
	g := catalogGraph(t)
	q := NewSparqlQuery(`
PREFIX dcat: <http://www.w3.org/ns/dcat#>
PREFIX dct:  <http://purl.org/dc/terms/>
SELECT ?title WHERE {
  ?cat a dcat:Catalog .
  ?cat dcat:dataset ?ds .
  ?ds dct:title ?title .
}`)

	result, err := ExecuteSelect(g, q)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Len())
}

func TestExecuteSelectFilterEquality(t *testing.T) {
	g := catalogGraph(t)
	q := NewSparqlQuery(`
PREFIX dcat: <http://www.w3.org/ns/dcat#>
SELECT ?ds WHERE {
  ?ds dcat:keyword ?kw .
  FILTER(?kw = "piv")
}`)

	result, err := ExecuteSelect(g, q)
	require.NoError(t, err)
	require.Equal(t, 1, result.Len())
	assert.Equal(t, "http://example.org/ds1", result.Rows[0][0])
}

func TestExecuteSelectFilterRegex(t *testing.T) {
	g := catalogGraph(t)
	q := NewSparqlQuery(`
PREFIX dct: <http://purl.org/dc/terms/>
SELECT ?title WHERE {
  ?ds dct:title ?title .
  FILTER regex(?title, "^velocity", "i")
}`)

	result, err := ExecuteSelect(g, q)
	require.NoError(t, err)
	require.Equal(t, 1, result.Len())
	assert.Equal(t, "Velocity field", result.Rows[0][0])
}

func TestExecuteSelectTypedValuesAndOrder(t *testing.T) {
	g := catalogGraph(t)
	q := NewSparqlQuery(`
PREFIX dcat: <http://www.w3.org/ns/dcat#>
SELECT ?size WHERE {
  ?ds dcat:byteSize ?size .
}
ORDER BY DESC(?size)
LIMIT 1`)

	result, err := ExecuteSelect(g, q)
	require.NoError(t, err)
	require.Equal(t, 1, result.Len())
	assert.Equal(t, int64(2048), result.Rows[0][0])
}

func TestExecuteSelectStar(t *testing.T) {
	g := catalogGraph(t)
	q := NewSparqlQuery(`
PREFIX dcat: <http://www.w3.org/ns/dcat#>
SELECT * WHERE { ?s dcat:keyword ?kw . }`)

	result, err := ExecuteSelect(g, q)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s", "kw"}, result.Columns)
	assert.Equal(t, 2, result.Len())
}

func TestExecuteSelectRepeatedVariable(t *testing.T) {
	g := rdf.NewGraph()
	g.Add(rdf.Triple{Subject: rdf.IRI("semcat:a"), Predicate: rdf.IRI("owl:sameAs"), Object: rdf.IRI("semcat:a")})
	g.Add(rdf.Triple{Subject: rdf.IRI("semcat:a"), Predicate: rdf.IRI("owl:sameAs"), Object: rdf.IRI("semcat:b")})

	q := NewSparqlQuery(`
PREFIX owl: <http://www.w3.org/2002/07/owl#>
SELECT ?x WHERE { ?x owl:sameAs ?x . }`)

	result, err := ExecuteSelect(g, q)
	require.NoError(t, err)
	require.Equal(t, 1, result.Len())
}

func TestExecuteSelectParseErrors(t *testing.T) {
	g := rdf.NewGraph()
	tests := []struct {
		name string
		text string
	}{
		{"no select", "ASK { ?s ?p ?o }"},
		{"no where", "SELECT ?s { ?s ?p ?o }"},
		{"empty pattern", "SELECT ?s WHERE { }"},
		{"unterminated", "SELECT ?s WHERE { ?s ?p ?o ."},
		{"undefined prefix", "SELECT ?s WHERE { ?s nope:p ?o . }"},
		{"optional unsupported", "SELECT ?s WHERE { ?s ?p ?o . OPTIONAL { ?s ?q ?r } }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExecuteSelect(g, NewSparqlQuery(tt.text))
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrParsingFailed)
		})
	}
}
