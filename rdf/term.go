// Package rdf provides the triple model and parsers backing the catalog
// stores: IRIs, blank nodes and typed literals, an indexed in-memory graph,
// and readers/writers for the Turtle and N-Triples subsets the catalogs use.
package rdf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/c360studio/semcat/vocabulary"
)

// TermKind discriminates the three kinds of RDF terms.
type TermKind int

const (
	// KindIRI is an IRI reference.
	KindIRI TermKind = iota
	// KindBlank is a blank node.
	KindBlank
	// KindLiteral is a literal with optional datatype or language tag.
	KindLiteral
)

// String returns the string representation of the term kind.
func (k TermKind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindBlank:
		return "blank"
	case KindLiteral:
		return "literal"
	default:
		return "unknown"
	}
}

// Term is an RDF term. The zero value is the empty IRI, which is never a
// valid term; use the constructors.
type Term struct {
	Kind TermKind

	// Value holds the IRI, the blank node label (without "_:"), or the
	// literal lexical form.
	Value string

	// Datatype is the literal datatype IRI. Empty for plain literals,
	// IRIs and blank nodes.
	Datatype string

	// Lang is the literal language tag ("en"). Mutually exclusive with
	// Datatype.
	Lang string
}

// IRI returns an IRI term. CURIEs are expanded against the default prefix
// table so callers can write IRI("dcat:Dataset").
func IRI(value string) Term {
	return Term{Kind: KindIRI, Value: vocabulary.Expand(value)}
}

// Blank returns a blank node term with the given label (no "_:" prefix).
func Blank(label string) Term {
	return Term{Kind: KindBlank, Value: label}
}

// Literal returns a plain string literal.
func Literal(value string) Term {
	return Term{Kind: KindLiteral, Value: value}
}

// TypedLiteral returns a literal with an explicit datatype IRI.
func TypedLiteral(value, datatype string) Term {
	return Term{Kind: KindLiteral, Value: value, Datatype: vocabulary.Expand(datatype)}
}

// LangLiteral returns a language-tagged literal.
func LangLiteral(value, lang string) Term {
	return Term{Kind: KindLiteral, Value: value, Lang: lang}
}

// FloatLiteral returns an xsd:double literal.
func FloatLiteral(v float64) Term {
	return TypedLiteral(strconv.FormatFloat(v, 'g', -1, 64), vocabulary.XsdDouble)
}

// IntLiteral returns an xsd:integer literal.
func IntLiteral(v int64) Term {
	return TypedLiteral(strconv.FormatInt(v, 10), vocabulary.XsdInteger)
}

// BoolLiteral returns an xsd:boolean literal.
func BoolLiteral(v bool) Term {
	return TypedLiteral(strconv.FormatBool(v), vocabulary.XsdBoolean)
}

// IsIRI reports whether the term is an IRI.
func (t Term) IsIRI() bool { return t.Kind == KindIRI }

// IsBlank reports whether the term is a blank node.
func (t Term) IsBlank() bool { return t.Kind == KindBlank }

// IsLiteral reports whether the term is a literal.
func (t Term) IsLiteral() bool { return t.Kind == KindLiteral }

// Float parses the literal lexical form as float64.
func (t Term) Float() (float64, error) {
	if !t.IsLiteral() {
		return 0, fmt.Errorf("term %s is not a literal", t)
	}
	return strconv.ParseFloat(t.Value, 64)
}

// Int parses the literal lexical form as int64.
func (t Term) Int() (int64, error) {
	if !t.IsLiteral() {
		return 0, fmt.Errorf("term %s is not a literal", t)
	}
	return strconv.ParseInt(t.Value, 10, 64)
}

// Bool parses the literal lexical form as bool.
func (t Term) Bool() (bool, error) {
	if !t.IsLiteral() {
		return false, fmt.Errorf("term %s is not a literal", t)
	}
	return strconv.ParseBool(t.Value)
}

// String renders the term in N-Triples syntax.
func (t Term) String() string {
	switch t.Kind {
	case KindIRI:
		return "<" + t.Value + ">"
	case KindBlank:
		return "_:" + t.Value
	default:
		quoted := escapeLiteral(t.Value)
		switch {
		case t.Lang != "":
			return quoted + "@" + t.Lang
		case t.Datatype != "" && t.Datatype != vocabulary.XsdString:
			return quoted + "^^<" + t.Datatype + ">"
		default:
			return quoted
		}
	}
}

// Equal reports term equality.
func (t Term) Equal(other Term) bool {
	return t == other
}

func escapeLiteral(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// Triple is a single RDF statement.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// String renders the triple in N-Triples syntax without the trailing dot.
func (tr Triple) String() string {
	return tr.Subject.String() + " " + tr.Predicate.String() + " " + tr.Object.String()
}

// key returns the canonical map key for set semantics.
func (tr Triple) key() string {
	return tr.String()
}
