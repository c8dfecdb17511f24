package sparqlremote

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/query"
	"github.com/c360studio/semcat/rdf"
	"github.com/c360studio/semcat/store"
)

const resultsJSON = `{
  "head": {"vars": ["name", "size"]},
  "results": {"bindings": [
    {"name": {"type": "literal", "value": "x_velocity"},
     "size": {"type": "literal", "value": "2048",
              "datatype": "http://www.w3.org/2001/XMLSchema#integer"}},
    {"name": {"type": "literal", "value": "pressure"}}
  ]}
}`

func newTestStore(t *testing.T, handler http.HandlerFunc, opts ...Option) *Store {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithRateLimit(rate.Inf, 1)}, opts...)
	s, err := New(srv.URL, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestExecuteSelectDecodesResults(t *testing.T) {
	var gotQuery, gotAccept, gotContent string
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotQuery = string(body)
		gotAccept = r.Header.Get("Accept")
		gotContent = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/sparql-results+json")
		w.Write([]byte(resultsJSON))
	})
	assert.Equal(t, store.KindSPARQL, s.Kind())

	q := query.NewSparqlQuery("SELECT ?name ?size WHERE { ?s ?p ?o . }")
	result, err := s.ExecuteSelect(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, q.Text, gotQuery)
	assert.Equal(t, "application/sparql-results+json", gotAccept)
	assert.Equal(t, "application/sparql-query", gotContent)

	assert.Equal(t, []string{"name", "size"}, result.Columns)
	require.Equal(t, 2, result.Len())
	assert.Equal(t, "x_velocity", result.Rows[0][0])
	assert.Equal(t, int64(2048), result.Rows[0][1])
	assert.Nil(t, result.Rows[1][1])
}

func TestExecuteSelectEndpointErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"throttled", http.StatusTooManyRequests, errors.ErrRateLimited},
		{"server error", http.StatusInternalServerError, errors.ErrEndpointDown},
		{"bad query", http.StatusBadRequest, errors.ErrEndpointDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := s.ExecuteSelect(context.Background(),
				query.NewSparqlQuery("SELECT * WHERE { ?s ?p ?o . }"))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIngestGraphPostsTurtle(t *testing.T) {
	var gotContent string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContent = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s, err := New(srv.URL, WithUpdateURL(srv.URL), WithRateLimit(rate.Inf, 1))
	require.NoError(t, err)
	defer s.Close()

	g := rdf.NewGraph()
	g.Add(rdf.Triple{
		Subject:   rdf.IRI("http://example.org/ds1"),
		Predicate: rdf.IRI("dct:title"),
		Object:    rdf.Literal("Velocity field"),
	})
	require.NoError(t, s.IngestGraph(context.Background(), g))
	assert.Equal(t, "text/turtle", gotContent)
	assert.Contains(t, string(gotBody), "Velocity field")
}

func TestIngestGraphReadOnly(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	err := s.IngestGraph(context.Background(), rdf.NewGraph())
	assert.ErrorIs(t, err, errors.ErrStoreReadOnly)
}

func TestStoreClosed(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, _ *http.Request) {})
	require.NoError(t, s.Close())
	_, err := s.ExecuteSelect(context.Background(),
		query.NewSparqlQuery("SELECT * WHERE { ?s ?p ?o . }"))
	assert.ErrorIs(t, err, errors.ErrStoreClosed)
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
}

func TestGraphDBPreset(t *testing.T) {
	s, err := NewGraphDB("http://localhost:7200/", "catalog")
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "http://localhost:7200/repositories/catalog", s.queryURL)
	assert.Equal(t, "http://localhost:7200/repositories/catalog/statements", s.updateURL)
}
