package rdf

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/vocabulary"
)

// ParseJSONLD reads a flat JSON-LD document into a new graph.
//
// This is not a full JSON-LD processor. It handles the shape catalog
// endpoints actually return: a top-level node object or @graph array, an
// optional @context holding prefix mappings and term-to-IRI aliases,
// @id/@type keywords, nested node objects, and @value/@language/@type
// value objects. Lists, reverse properties and remote contexts are not
// supported.
func ParseJSONLD(r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "rdf", "ParseJSONLD", "read input")
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapInvalid(err, "rdf", "ParseJSONLD", "decode JSON")
	}

	p := &jsonldParser{
		context: vocabulary.Prefixes(),
		graph:   NewGraph(),
	}
	if err := p.root(doc); err != nil {
		return nil, err
	}
	return p.graph, nil
}

type jsonldParser struct {
	context  map[string]string
	graph    *Graph
	bnodeSeq int
}

func (p *jsonldParser) errf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("jsonld: %s: %w", msg, errors.ErrParsingFailed)
}

func (p *jsonldParser) root(doc any) error {
	switch v := doc.(type) {
	case []any:
		for _, item := range v {
			node, ok := item.(map[string]any)
			if !ok {
				return p.errf("array element is not a node object")
			}
			if _, err := p.node(node); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		if ctx, ok := v["@context"]; ok {
			if err := p.loadContext(ctx); err != nil {
				return err
			}
		}
		if g, ok := v["@graph"]; ok {
			items, ok := g.([]any)
			if !ok {
				return p.errf("@graph is not an array")
			}
			for _, item := range items {
				node, ok := item.(map[string]any)
				if !ok {
					return p.errf("@graph element is not a node object")
				}
				if _, err := p.node(node); err != nil {
					return err
				}
			}
			return nil
		}
		_, err := p.node(v)
		return err
	default:
		return p.errf("document is neither object nor array")
	}
}

func (p *jsonldParser) loadContext(ctx any) error {
	entries, ok := ctx.(map[string]any)
	if !ok {
		// Remote contexts (string URLs) are ignored; the default prefix
		// table covers the vocabularies the catalogs use.
		return nil
	}
	for term, def := range entries {
		switch d := def.(type) {
		case string:
			p.context[term] = d
		case map[string]any:
			if id, ok := d["@id"].(string); ok {
				p.context[term] = id
			}
		}
	}
	return nil
}

// expand resolves a term or CURIE against the document context.
func (p *jsonldParser) expand(term string) string {
	if strings.HasPrefix(term, "http://") || strings.HasPrefix(term, "https://") {
		return term
	}
	if idx := strings.Index(term, ":"); idx > 0 {
		if ns, ok := p.context[term[:idx]]; ok {
			return ns + term[idx+1:]
		}
		return term
	}
	if iri, ok := p.context[term]; ok {
		return iri
	}
	return term
}

// node emits the triples of one node object and returns its subject term.
func (p *jsonldParser) node(obj map[string]any) (Term, error) {
	var subject Term
	if id, ok := obj["@id"].(string); ok {
		if strings.HasPrefix(id, "_:") {
			subject = Blank(strings.TrimPrefix(id, "_:"))
		} else {
			subject = Term{Kind: KindIRI, Value: p.expand(id)}
		}
	} else {
		p.bnodeSeq++
		subject = Blank(fmt.Sprintf("jl%d", p.bnodeSeq))
	}

	for key, value := range obj {
		switch key {
		case "@id", "@context":
			continue
		case "@type":
			for _, typ := range asSlice(value) {
				name, ok := typ.(string)
				if !ok {
					return Term{}, p.errf("@type value is not a string")
				}
				p.graph.Add(Triple{
					Subject:   subject,
					Predicate: IRI(vocabulary.RdfType),
					Object:    Term{Kind: KindIRI, Value: p.expand(name)},
				})
			}
			continue
		}
		if strings.HasPrefix(key, "@") {
			return Term{}, p.errf("unsupported keyword %q", key)
		}

		predicate := Term{Kind: KindIRI, Value: p.expand(key)}
		for _, raw := range asSlice(value) {
			object, err := p.objectTerm(raw)
			if err != nil {
				return Term{}, err
			}
			p.graph.Add(Triple{Subject: subject, Predicate: predicate, Object: object})
		}
	}
	return subject, nil
}

func (p *jsonldParser) objectTerm(raw any) (Term, error) {
	switch v := raw.(type) {
	case string:
		return Literal(v), nil
	case bool:
		return BoolLiteral(v), nil
	case float64:
		if v == float64(int64(v)) {
			return IntLiteral(int64(v)), nil
		}
		return FloatLiteral(v), nil
	case map[string]any:
		// Value object.
		if val, ok := v["@value"]; ok {
			lexical := fmt.Sprintf("%v", val)
			if lang, ok := v["@language"].(string); ok {
				return LangLiteral(lexical, lang), nil
			}
			if dt, ok := v["@type"].(string); ok {
				return TypedLiteral(lexical, p.expand(dt)), nil
			}
			switch val.(type) {
			case bool:
				return TypedLiteral(lexical, vocabulary.XsdBoolean), nil
			case float64:
				if f := val.(float64); f == float64(int64(f)) {
					return TypedLiteral(lexical, vocabulary.XsdInteger), nil
				}
				return TypedLiteral(lexical, vocabulary.XsdDouble), nil
			}
			return Literal(lexical), nil
		}
		// Reference object {"@id": ...} or nested node.
		if len(v) == 1 {
			if id, ok := v["@id"].(string); ok {
				if strings.HasPrefix(id, "_:") {
					return Blank(strings.TrimPrefix(id, "_:")), nil
				}
				return Term{Kind: KindIRI, Value: p.expand(id)}, nil
			}
		}
		return p.node(v)
	default:
		return Term{}, p.errf("unsupported object value %T", raw)
	}
}

func asSlice(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	return []any{v}
}
