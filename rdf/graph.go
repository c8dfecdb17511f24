package rdf

import (
	"sort"
	"sync"

	"github.com/c360studio/semcat/vocabulary"
)

// Graph is an in-memory RDF graph with set semantics and per-position
// indexes for pattern matching.
//
// Thread Safety:
// All Graph methods are safe for concurrent use from multiple goroutines.
type Graph struct {
	mu      sync.RWMutex
	triples map[string]Triple

	bySubject   map[string]map[string]struct{}
	byPredicate map[string]map[string]struct{}
	byObject    map[string]map[string]struct{}

	namespaces map[string]string
}

// NewGraph creates an empty graph preloaded with the default namespace
// prefixes.
func NewGraph() *Graph {
	return &Graph{
		triples:     make(map[string]Triple),
		bySubject:   make(map[string]map[string]struct{}),
		byPredicate: make(map[string]map[string]struct{}),
		byObject:    make(map[string]map[string]struct{}),
		namespaces:  vocabulary.Prefixes(),
	}
}

// Bind registers a namespace prefix for serialization.
func (g *Graph) Bind(prefix, namespace string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.namespaces[prefix] = namespace
}

// Namespaces returns a copy of the bound prefix table.
func (g *Graph) Namespaces() map[string]string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]string, len(g.namespaces))
	for k, v := range g.namespaces {
		out[k] = v
	}
	return out
}

// Add inserts a triple. Duplicate inserts are no-ops.
func (g *Graph) Add(tr Triple) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addLocked(tr)
}

// AddAll inserts all triples.
func (g *Graph) AddAll(triples []Triple) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, tr := range triples {
		g.addLocked(tr)
	}
}

func (g *Graph) addLocked(tr Triple) {
	key := tr.key()
	if _, exists := g.triples[key]; exists {
		return
	}
	g.triples[key] = tr
	index(g.bySubject, tr.Subject.String(), key)
	index(g.byPredicate, tr.Predicate.String(), key)
	index(g.byObject, tr.Object.String(), key)
}

func index(idx map[string]map[string]struct{}, term, key string) {
	set, ok := idx[term]
	if !ok {
		set = make(map[string]struct{})
		idx[term] = set
	}
	set[key] = struct{}{}
}

func unindex(idx map[string]map[string]struct{}, term, key string) {
	if set, ok := idx[term]; ok {
		delete(set, key)
		if len(set) == 0 {
			delete(idx, term)
		}
	}
}

// Remove deletes a triple. Removing an absent triple is a no-op.
func (g *Graph) Remove(tr Triple) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := tr.key()
	if _, exists := g.triples[key]; !exists {
		return
	}
	delete(g.triples, key)
	unindex(g.bySubject, tr.Subject.String(), key)
	unindex(g.byPredicate, tr.Predicate.String(), key)
	unindex(g.byObject, tr.Object.String(), key)
}

// Len returns the number of triples in the graph.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.triples)
}

// Has reports whether the triple is present.
func (g *Graph) Has(tr Triple) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.triples[tr.key()]
	return ok
}

// Match returns all triples matching the pattern. Nil pattern positions are
// wildcards; an all-nil pattern returns every triple exactly once. Results
// are sorted for deterministic iteration.
func (g *Graph) Match(subject, predicate, object *Term) []Triple {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// Start from the smallest bound index to keep scans short.
	candidates := g.candidateKeys(subject, predicate, object)

	var out []Triple
	for _, key := range candidates {
		tr := g.triples[key]
		if subject != nil && tr.Subject != *subject {
			continue
		}
		if predicate != nil && tr.Predicate != *predicate {
			continue
		}
		if object != nil && tr.Object != *object {
			continue
		}
		out = append(out, tr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key() < out[j].key() })
	return out
}

// candidateKeys picks the tightest index for the bound pattern positions,
// falling back to a full scan when nothing is bound.
func (g *Graph) candidateKeys(subject, predicate, object *Term) []string {
	best := -1
	var bestSet map[string]struct{}
	consider := func(set map[string]struct{}, ok bool) {
		if !ok {
			// Bound term absent from index: empty result.
			bestSet = map[string]struct{}{}
			best = 0
			return
		}
		if best == -1 || len(set) < best {
			best = len(set)
			bestSet = set
		}
	}

	if subject != nil {
		set, ok := g.bySubject[subject.String()]
		consider(set, ok)
	}
	if predicate != nil && best != 0 {
		set, ok := g.byPredicate[predicate.String()]
		consider(set, ok)
	}
	if object != nil && best != 0 {
		set, ok := g.byObject[object.String()]
		consider(set, ok)
	}

	if best == -1 {
		keys := make([]string, 0, len(g.triples))
		for key := range g.triples {
			keys = append(keys, key)
		}
		return keys
	}

	keys := make([]string, 0, len(bestSet))
	for key := range bestSet {
		keys = append(keys, key)
	}
	return keys
}

// Objects returns the objects of all triples with the given subject and
// predicate.
func (g *Graph) Objects(subject, predicate Term) []Term {
	matches := g.Match(&subject, &predicate, nil)
	out := make([]Term, 0, len(matches))
	for _, tr := range matches {
		out = append(out, tr.Object)
	}
	return out
}

// FirstObject returns the object of the first matching triple, or false.
func (g *Graph) FirstObject(subject, predicate Term) (Term, bool) {
	objects := g.Objects(subject, predicate)
	if len(objects) == 0 {
		return Term{}, false
	}
	return objects[0], true
}

// Subjects returns the distinct subjects of all triples with the given
// predicate and object.
func (g *Graph) Subjects(predicate, object Term) []Term {
	matches := g.Match(nil, &predicate, &object)
	seen := make(map[string]struct{}, len(matches))
	var out []Term
	for _, tr := range matches {
		key := tr.Subject.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tr.Subject)
	}
	return out
}

// SubjectsOfType returns the distinct subjects declared with rdf:type of
// the given class IRI.
func (g *Graph) SubjectsOfType(class Term) []Term {
	return g.Subjects(IRI(vocabulary.RdfType), class)
}

// All returns every triple, sorted.
func (g *Graph) All() []Triple {
	return g.Match(nil, nil, nil)
}

// Merge adds every triple of other into g.
func (g *Graph) Merge(other *Graph) {
	for _, tr := range other.All() {
		g.Add(tr)
	}
	for prefix, ns := range other.Namespaces() {
		g.Bind(prefix, ns)
	}
}
