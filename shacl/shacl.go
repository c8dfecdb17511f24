// Package shacl validates RDF graphs against a practical subset of the
// Shapes Constraint Language: node shapes targeting a class, with property
// shapes constraining cardinality, datatype, value class, node kind,
// lexical pattern and value enumeration.
package shacl

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/rdf"
	"github.com/c360studio/semcat/vocabulary"
)

// NodeKind restricts the kind of term a property value may be.
type NodeKind string

const (
	// NodeKindAny places no restriction.
	NodeKindAny NodeKind = ""
	// NodeKindIRI requires IRI values.
	NodeKindIRI NodeKind = "iri"
	// NodeKindBlank requires blank node values.
	NodeKindBlank NodeKind = "blank"
	// NodeKindLiteral requires literal values.
	NodeKindLiteral NodeKind = "literal"
)

// PropertyShape constrains the values of one predicate on focus nodes.
type PropertyShape struct {
	// Path is the predicate IRI the shape constrains.
	Path string

	// MinCount and MaxCount bound the number of values. Nil means
	// unconstrained.
	MinCount *int
	MaxCount *int

	// Datatype requires literal values with this datatype IRI.
	Datatype string

	// Class requires IRI/blank values declared rdf:type of this class.
	Class string

	// NodeKind restricts the term kind of values.
	NodeKind NodeKind

	// Pattern is a regular expression literal lexical forms must match.
	Pattern string

	// In enumerates the allowed values.
	In []rdf.Term

	// Message overrides the generated result message.
	Message string
}

// NodeShape applies property shapes to every instance of a target class.
type NodeShape struct {
	// Name identifies the shape (its IRI when loaded from a graph).
	Name string

	// TargetClass selects the focus nodes: all subjects with rdf:type of
	// this class IRI.
	TargetClass string

	// Properties are the property shapes applied to each focus node.
	Properties []PropertyShape
}

// Result is one validation finding.
type Result struct {
	// Focus is the node the finding concerns.
	Focus rdf.Term

	// Path is the constrained predicate IRI.
	Path string

	// Constraint names the violated constraint component ("minCount",
	// "datatype", ...).
	Constraint string

	// Message describes the finding.
	Message string

	// Severity is "violation" for all constraint failures.
	Severity string
}

func (r Result) String() string {
	return fmt.Sprintf("%s %s [%s]: %s", r.Focus, vocabulary.Compact(r.Path), r.Constraint, r.Message)
}

// Report is the outcome of validating a data graph.
type Report struct {
	// Conforms is true when no results were produced.
	Conforms bool

	// Results holds all findings.
	Results []Result
}

// ToGraph serializes the report as sh:ValidationReport triples. Each
// finding becomes a sh:ValidationResult blank node.
func (r *Report) ToGraph() *rdf.Graph {
	g := rdf.NewGraph()
	g.Bind("sh", vocabulary.SH)
	reportNode := rdf.Blank("report")
	g.Add(rdf.Triple{
		Subject:   reportNode,
		Predicate: rdf.IRI(vocabulary.RdfType),
		Object:    rdf.IRI(vocabulary.ShValidationReport),
	})
	g.Add(rdf.Triple{
		Subject:   reportNode,
		Predicate: rdf.IRI(vocabulary.ShConforms),
		Object:    rdf.BoolLiteral(r.Conforms),
	})
	for i, res := range r.Results {
		node := rdf.Blank(fmt.Sprintf("result%d", i))
		g.Add(rdf.Triple{Subject: reportNode, Predicate: rdf.IRI(vocabulary.ShResult), Object: node})
		g.Add(rdf.Triple{Subject: node, Predicate: rdf.IRI(vocabulary.RdfType), Object: rdf.IRI(vocabulary.ShValidationResult)})
		g.Add(rdf.Triple{Subject: node, Predicate: rdf.IRI(vocabulary.ShFocusNode), Object: res.Focus})
		if res.Path != "" {
			g.Add(rdf.Triple{Subject: node, Predicate: rdf.IRI(vocabulary.ShResultPath), Object: rdf.IRI(res.Path)})
		}
		g.Add(rdf.Triple{Subject: node, Predicate: rdf.IRI(vocabulary.ShResultMessage), Object: rdf.Literal(res.Message)})
		g.Add(rdf.Triple{Subject: node, Predicate: rdf.IRI(vocabulary.ShResultSeverity), Object: rdf.IRI(vocabulary.ShViolation)})
		g.Add(rdf.Triple{Subject: node, Predicate: rdf.IRI(vocabulary.ShSourceConstraintComponent), Object: rdf.Literal(res.Constraint)})
	}
	return g
}

// Validate checks the data graph against the shapes and returns a report.
// Shapes with uncompilable patterns return an error.
func Validate(data *rdf.Graph, shapes []NodeShape) (*Report, error) {
	report := &Report{Conforms: true}
	for _, shape := range shapes {
		if err := validateShape(data, shape, report); err != nil {
			return nil, err
		}
	}
	report.Conforms = len(report.Results) == 0
	return report, nil
}

func validateShape(data *rdf.Graph, shape NodeShape, report *Report) error {
	focusNodes := data.SubjectsOfType(rdf.IRI(shape.TargetClass))
	for _, focus := range focusNodes {
		for _, prop := range shape.Properties {
			if err := validateProperty(data, focus, prop, report); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateProperty(data *rdf.Graph, focus rdf.Term, prop PropertyShape, report *Report) error {
	values := data.Objects(focus, rdf.IRI(prop.Path))

	add := func(constraint, message string) {
		if prop.Message != "" {
			message = prop.Message
		}
		report.Results = append(report.Results, Result{
			Focus:      focus,
			Path:       prop.Path,
			Constraint: constraint,
			Message:    message,
			Severity:   "violation",
		})
	}

	if prop.MinCount != nil && len(values) < *prop.MinCount {
		add("minCount", fmt.Sprintf("found %d values, need at least %d", len(values), *prop.MinCount))
	}
	if prop.MaxCount != nil && len(values) > *prop.MaxCount {
		add("maxCount", fmt.Sprintf("found %d values, allowed at most %d", len(values), *prop.MaxCount))
	}

	var re *regexp.Regexp
	if prop.Pattern != "" {
		compiled, err := regexp.Compile(prop.Pattern)
		if err != nil {
			return errors.WrapInvalid(err, "shacl", "Validate",
				fmt.Sprintf("compile pattern for %s", vocabulary.Compact(prop.Path)))
		}
		re = compiled
	}

	for _, value := range values {
		switch prop.NodeKind {
		case NodeKindIRI:
			if !value.IsIRI() {
				add("nodeKind", fmt.Sprintf("value %s is not an IRI", value))
			}
		case NodeKindBlank:
			if !value.IsBlank() {
				add("nodeKind", fmt.Sprintf("value %s is not a blank node", value))
			}
		case NodeKindLiteral:
			if !value.IsLiteral() {
				add("nodeKind", fmt.Sprintf("value %s is not a literal", value))
			}
		}

		if prop.Datatype != "" {
			if !value.IsLiteral() || effectiveDatatype(value) != prop.Datatype {
				add("datatype", fmt.Sprintf("value %s does not have datatype %s",
					value, vocabulary.Compact(prop.Datatype)))
			}
		}

		if prop.Class != "" && !value.IsLiteral() {
			if !data.Has(rdf.Triple{
				Subject:   value,
				Predicate: rdf.IRI(vocabulary.RdfType),
				Object:    rdf.IRI(prop.Class),
			}) {
				add("class", fmt.Sprintf("value %s is not a %s", value, vocabulary.Compact(prop.Class)))
			}
		}

		if re != nil {
			if !value.IsLiteral() || !re.MatchString(value.Value) {
				add("pattern", fmt.Sprintf("value %s does not match %q", value, prop.Pattern))
			}
		}

		if len(prop.In) > 0 {
			allowed := false
			for _, candidate := range prop.In {
				if value.Equal(candidate) {
					allowed = true
					break
				}
			}
			if !allowed {
				add("in", fmt.Sprintf("value %s is not in the allowed set", value))
			}
		}
	}
	return nil
}

// effectiveDatatype treats plain literals as xsd:string, per RDF 1.1.
func effectiveDatatype(t rdf.Term) string {
	if t.Datatype == "" && t.Lang == "" {
		return vocabulary.XsdString
	}
	return t.Datatype
}

// LoadShapes extracts node shapes from a shapes graph. sh:in accepts both
// an RDF list and repeated triples, since the Turtle reader does not parse
// collections.
func LoadShapes(g *rdf.Graph) ([]NodeShape, error) {
	var shapes []NodeShape
	for _, shapeNode := range g.SubjectsOfType(rdf.IRI(vocabulary.ShNodeShape)) {
		target, ok := g.FirstObject(shapeNode, rdf.IRI(vocabulary.ShTargetClass))
		if !ok {
			return nil, fmt.Errorf("shacl.LoadShapes: shape %s has no sh:targetClass: %w",
				shapeNode, errors.ErrInvalidData)
		}
		shape := NodeShape{Name: shapeNode.Value, TargetClass: target.Value}

		for _, propNode := range g.Objects(shapeNode, rdf.IRI(vocabulary.ShProperty)) {
			prop, err := loadPropertyShape(g, propNode)
			if err != nil {
				return nil, err
			}
			shape.Properties = append(shape.Properties, prop)
		}
		shapes = append(shapes, shape)
	}
	return shapes, nil
}

func loadPropertyShape(g *rdf.Graph, node rdf.Term) (PropertyShape, error) {
	path, ok := g.FirstObject(node, rdf.IRI(vocabulary.ShPath))
	if !ok {
		return PropertyShape{}, fmt.Errorf("shacl.LoadShapes: property shape %s has no sh:path: %w",
			node, errors.ErrInvalidData)
	}
	prop := PropertyShape{Path: path.Value}

	if v, ok := g.FirstObject(node, rdf.IRI(vocabulary.ShMinCount)); ok {
		n, err := literalInt(v)
		if err != nil {
			return PropertyShape{}, err
		}
		prop.MinCount = &n
	}
	if v, ok := g.FirstObject(node, rdf.IRI(vocabulary.ShMaxCount)); ok {
		n, err := literalInt(v)
		if err != nil {
			return PropertyShape{}, err
		}
		prop.MaxCount = &n
	}
	if v, ok := g.FirstObject(node, rdf.IRI(vocabulary.ShDatatype)); ok {
		prop.Datatype = v.Value
	}
	if v, ok := g.FirstObject(node, rdf.IRI(vocabulary.ShClass)); ok {
		prop.Class = v.Value
	}
	if v, ok := g.FirstObject(node, rdf.IRI(vocabulary.ShPattern)); ok {
		prop.Pattern = v.Value
	}
	if v, ok := g.FirstObject(node, rdf.IRI(vocabulary.ShMessage)); ok {
		prop.Message = v.Value
	}
	if v, ok := g.FirstObject(node, rdf.IRI(vocabulary.ShNodeKind)); ok {
		switch v.Value {
		case vocabulary.ShIRI:
			prop.NodeKind = NodeKindIRI
		case vocabulary.ShBlankNode:
			prop.NodeKind = NodeKindBlank
		case vocabulary.ShLiteral:
			prop.NodeKind = NodeKindLiteral
		default:
			return PropertyShape{}, fmt.Errorf("shacl.LoadShapes: unsupported sh:nodeKind %s: %w",
				v, errors.ErrInvalidData)
		}
	}

	for _, v := range g.Objects(node, rdf.IRI(vocabulary.ShIn)) {
		if v.IsBlank() {
			// RDF list head.
			prop.In = append(prop.In, walkList(g, v)...)
			continue
		}
		prop.In = append(prop.In, v)
	}
	return prop, nil
}

func walkList(g *rdf.Graph, head rdf.Term) []rdf.Term {
	var out []rdf.Term
	node := head
	for i := 0; i < 1000; i++ {
		if node.IsIRI() && node.Value == vocabulary.RdfNil {
			return out
		}
		first, ok := g.FirstObject(node, rdf.IRI(vocabulary.RdfFirst))
		if !ok {
			return out
		}
		out = append(out, first)
		rest, ok := g.FirstObject(node, rdf.IRI(vocabulary.RdfRest))
		if !ok {
			return out
		}
		node = rest
	}
	return out
}

func literalInt(t rdf.Term) (int, error) {
	n, err := strconv.Atoi(t.Value)
	if err != nil {
		return 0, fmt.Errorf("shacl.LoadShapes: %s is not an integer: %w", t, errors.ErrInvalidData)
	}
	return n, nil
}

// Count returns a pointer for MinCount/MaxCount when building shapes in code.
func Count(n int) *int { return &n }
