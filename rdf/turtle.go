package rdf

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/vocabulary"
)

// ParseTurtle reads a Turtle document into a new graph.
//
// The supported subset covers what DCAT catalogs and standard-name tables
// actually serialize: prefix and base directives, prefixed names, the `a`
// keyword, predicate lists (;), object lists (,), anonymous blank node
// property lists ([...]), short and long string literals, language tags,
// typed literals, numbers and booleans. RDF collections are not supported.
func ParseTurtle(r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "rdf", "ParseTurtle", "read input")
	}
	return parseTurtle(string(data))
}

// ParseTurtleString is ParseTurtle over a string.
func ParseTurtleString(doc string) (*Graph, error) {
	return parseTurtle(doc)
}

// ParseNTriples reads an N-Triples document into a new graph. N-Triples is
// a strict subset of the supported Turtle grammar, so the same parser is
// used.
func ParseNTriples(r io.Reader) (*Graph, error) {
	return ParseTurtle(r)
}

func parseTurtle(doc string) (*Graph, error) {
	p := &ttlParser{
		src:      []rune(doc),
		line:     1,
		prefixes: vocabulary.Prefixes(),
		graph:    NewGraph(),
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	for prefix, ns := range p.prefixes {
		p.graph.Bind(prefix, ns)
	}
	return p.graph, nil
}

type ttlParser struct {
	src      []rune
	pos      int
	line     int
	prefixes map[string]string
	base     string
	graph    *Graph
	bnodeSeq int
}

func (p *ttlParser) errf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("turtle line %d: %s: %w", p.line, msg, errors.ErrParsingFailed)
}

func (p *ttlParser) parse() error {
	for {
		p.skipWS()
		if p.eof() {
			return nil
		}
		if err := p.statement(); err != nil {
			return err
		}
	}
}

func (p *ttlParser) statement() error {
	if p.hasKeyword("@prefix") || p.hasKeyword("PREFIX") {
		return p.prefixDirective()
	}
	if p.hasKeyword("@base") || p.hasKeyword("BASE") {
		return p.baseDirective()
	}
	subject, err := p.subject()
	if err != nil {
		return err
	}
	if err := p.predicateObjectList(subject); err != nil {
		return err
	}
	p.skipWS()
	if !p.consume('.') {
		return p.errf("expected '.' after statement")
	}
	return nil
}

func (p *ttlParser) prefixDirective() error {
	sparqlStyle := p.hasKeyword("PREFIX")
	if sparqlStyle {
		p.pos += len("PREFIX")
	} else {
		p.pos += len("@prefix")
	}
	p.skipWS()

	label, err := p.readPrefixLabel()
	if err != nil {
		return err
	}
	p.skipWS()
	iri, err := p.readIRIRef()
	if err != nil {
		return err
	}
	p.prefixes[label] = iri

	p.skipWS()
	if !sparqlStyle && !p.consume('.') {
		return p.errf("expected '.' after @prefix")
	}
	// SPARQL-style PREFIX takes no dot but tolerate one.
	if sparqlStyle {
		p.consume('.')
	}
	return nil
}

func (p *ttlParser) baseDirective() error {
	sparqlStyle := p.hasKeyword("BASE")
	if sparqlStyle {
		p.pos += len("BASE")
	} else {
		p.pos += len("@base")
	}
	p.skipWS()
	iri, err := p.readIRIRef()
	if err != nil {
		return err
	}
	p.base = iri
	p.skipWS()
	if !sparqlStyle && !p.consume('.') {
		return p.errf("expected '.' after @base")
	}
	if sparqlStyle {
		p.consume('.')
	}
	return nil
}

func (p *ttlParser) subject() (Term, error) {
	p.skipWS()
	switch {
	case p.peek() == '<':
		iri, err := p.readIRIRef()
		if err != nil {
			return Term{}, err
		}
		return Term{Kind: KindIRI, Value: iri}, nil
	case p.peek() == '_':
		return p.readBlankNode()
	case p.peek() == '[':
		return p.blankNodePropertyList()
	default:
		return p.readPrefixedName()
	}
}

func (p *ttlParser) predicateObjectList(subject Term) error {
	for {
		p.skipWS()
		predicate, err := p.predicate()
		if err != nil {
			return err
		}
		if err := p.objectList(subject, predicate); err != nil {
			return err
		}
		p.skipWS()
		if p.consume(';') {
			p.skipWS()
			// Trailing semicolon before '.' or ']' is legal Turtle.
			if p.peek() == '.' || p.peek() == ']' {
				return nil
			}
			continue
		}
		return nil
	}
}

func (p *ttlParser) predicate() (Term, error) {
	if p.peek() == 'a' && p.isDelimAt(p.pos+1) {
		p.pos++
		return IRI(vocabulary.RdfType), nil
	}
	if p.peek() == '<' {
		iri, err := p.readIRIRef()
		if err != nil {
			return Term{}, err
		}
		return Term{Kind: KindIRI, Value: iri}, nil
	}
	return p.readPrefixedName()
}

func (p *ttlParser) objectList(subject, predicate Term) error {
	for {
		p.skipWS()
		object, err := p.object()
		if err != nil {
			return err
		}
		p.graph.Add(Triple{Subject: subject, Predicate: predicate, Object: object})
		p.skipWS()
		if !p.consume(',') {
			return nil
		}
	}
}

func (p *ttlParser) object() (Term, error) {
	switch c := p.peek(); {
	case c == '<':
		iri, err := p.readIRIRef()
		if err != nil {
			return Term{}, err
		}
		return Term{Kind: KindIRI, Value: iri}, nil
	case c == '_':
		return p.readBlankNode()
	case c == '[':
		return p.blankNodePropertyList()
	case c == '(':
		return Term{}, p.errf("RDF collections are not supported")
	case c == '"' || c == '\'':
		return p.readLiteral()
	case c == '+' || c == '-' || unicode.IsDigit(c):
		return p.readNumber()
	default:
		// true/false or prefixed name
		if p.hasKeyword("true") && p.isDelimAt(p.pos+4) {
			p.pos += 4
			return BoolLiteral(true), nil
		}
		if p.hasKeyword("false") && p.isDelimAt(p.pos+5) {
			p.pos += 5
			return BoolLiteral(false), nil
		}
		return p.readPrefixedName()
	}
}

// blankNodePropertyList parses "[ p o ; ... ]" and returns a fresh blank
// node carrying the nested statements.
func (p *ttlParser) blankNodePropertyList() (Term, error) {
	if !p.consume('[') {
		return Term{}, p.errf("expected '['")
	}
	p.bnodeSeq++
	node := Blank(fmt.Sprintf("b%d", p.bnodeSeq))
	p.skipWS()
	if p.consume(']') {
		return node, nil
	}
	if err := p.predicateObjectList(node); err != nil {
		return Term{}, err
	}
	p.skipWS()
	if !p.consume(']') {
		return Term{}, p.errf("expected ']'")
	}
	return node, nil
}

func (p *ttlParser) readBlankNode() (Term, error) {
	if !(p.peek() == '_' && p.peekAt(p.pos+1) == ':') {
		return Term{}, p.errf("expected blank node")
	}
	p.pos += 2
	start := p.pos
	for !p.eof() && isLocalNameRune(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return Term{}, p.errf("empty blank node label")
	}
	return Blank(string(p.src[start:p.pos])), nil
}

func (p *ttlParser) readIRIRef() (string, error) {
	if !p.consume('<') {
		return "", p.errf("expected '<'")
	}
	start := p.pos
	for !p.eof() && p.src[p.pos] != '>' {
		if p.src[p.pos] == '\n' {
			return "", p.errf("newline in IRI")
		}
		p.pos++
	}
	if p.eof() {
		return "", p.errf("unterminated IRI")
	}
	iri := string(p.src[start:p.pos])
	p.pos++ // '>'
	if p.base != "" && !strings.Contains(iri, "://") && !strings.HasPrefix(iri, "urn:") {
		iri = p.base + iri
	}
	return iri, nil
}

func (p *ttlParser) readPrefixLabel() (string, error) {
	start := p.pos
	for !p.eof() && p.src[p.pos] != ':' && !unicode.IsSpace(p.src[p.pos]) {
		p.pos++
	}
	if p.eof() || p.src[p.pos] != ':' {
		return "", p.errf("expected ':' in prefix declaration")
	}
	label := string(p.src[start:p.pos])
	p.pos++ // ':'
	return label, nil
}

func (p *ttlParser) readPrefixedName() (Term, error) {
	start := p.pos
	for !p.eof() && p.src[p.pos] != ':' && isNameStartPart(p.src[p.pos]) {
		p.pos++
	}
	if p.eof() || p.src[p.pos] != ':' {
		return Term{}, p.errf("expected prefixed name near %q", p.context(start))
	}
	prefix := string(p.src[start:p.pos])
	p.pos++ // ':'
	localStart := p.pos
	for !p.eof() && isLocalNameRune(p.src[p.pos]) {
		p.pos++
	}
	// Turtle allows dots inside local names but a trailing dot terminates
	// the statement instead.
	for p.pos > localStart && p.src[p.pos-1] == '.' {
		p.pos--
	}
	local := string(p.src[localStart:p.pos])
	ns, ok := p.prefixes[prefix]
	if !ok {
		return Term{}, p.errf("undefined prefix %q", prefix)
	}
	return Term{Kind: KindIRI, Value: ns + local}, nil
}

func (p *ttlParser) readLiteral() (Term, error) {
	quote := p.peek()
	long := false
	if p.peekAt(p.pos+1) == quote && p.peekAt(p.pos+2) == quote {
		long = true
		p.pos += 3
	} else {
		p.pos++
	}

	var b strings.Builder
	for {
		if p.eof() {
			return Term{}, p.errf("unterminated string literal")
		}
		c := p.src[p.pos]
		if c == '\\' {
			p.pos++
			if p.eof() {
				return Term{}, p.errf("dangling escape")
			}
			switch p.src[p.pos] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '"':
				b.WriteByte('"')
			case '\'':
				b.WriteByte('\'')
			case '\\':
				b.WriteByte('\\')
			default:
				return Term{}, p.errf("unsupported escape \\%c", p.src[p.pos])
			}
			p.pos++
			continue
		}
		if c == quote {
			if !long {
				p.pos++
				break
			}
			if p.peekAt(p.pos+1) == quote && p.peekAt(p.pos+2) == quote {
				p.pos += 3
				break
			}
			b.WriteRune(c)
			p.pos++
			continue
		}
		if c == '\n' {
			if !long {
				return Term{}, p.errf("newline in short string literal")
			}
			p.line++
		}
		b.WriteRune(c)
		p.pos++
	}

	value := b.String()
	// Optional language tag or datatype.
	if p.peek() == '@' {
		p.pos++
		start := p.pos
		for !p.eof() && (unicode.IsLetter(p.src[p.pos]) || p.src[p.pos] == '-' || unicode.IsDigit(p.src[p.pos])) {
			p.pos++
		}
		if p.pos == start {
			return Term{}, p.errf("empty language tag")
		}
		return LangLiteral(value, string(p.src[start:p.pos])), nil
	}
	if p.peek() == '^' && p.peekAt(p.pos+1) == '^' {
		p.pos += 2
		var datatype string
		if p.peek() == '<' {
			iri, err := p.readIRIRef()
			if err != nil {
				return Term{}, err
			}
			datatype = iri
		} else {
			term, err := p.readPrefixedName()
			if err != nil {
				return Term{}, err
			}
			datatype = term.Value
		}
		return TypedLiteral(value, datatype), nil
	}
	return Literal(value), nil
}

func (p *ttlParser) readNumber() (Term, error) {
	start := p.pos
	if p.peek() == '+' || p.peek() == '-' {
		p.pos++
	}
	isDecimal := false
	isDouble := false
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case unicode.IsDigit(c):
			p.pos++
		case c == '.' && !isDecimal && p.pos+1 < len(p.src) && unicode.IsDigit(p.src[p.pos+1]):
			isDecimal = true
			p.pos++
		case c == 'e' || c == 'E':
			isDouble = true
			p.pos++
			if !p.eof() && (p.src[p.pos] == '+' || p.src[p.pos] == '-') {
				p.pos++
			}
		default:
			goto done
		}
	}
done:
	lexical := string(p.src[start:p.pos])
	switch {
	case isDouble:
		return TypedLiteral(lexical, vocabulary.XsdDouble), nil
	case isDecimal:
		return TypedLiteral(lexical, vocabulary.XsdDecimal), nil
	default:
		return TypedLiteral(lexical, vocabulary.XsdInteger), nil
	}
}

// --- low-level cursor helpers ---

func (p *ttlParser) eof() bool { return p.pos >= len(p.src) }

func (p *ttlParser) peek() rune {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *ttlParser) peekAt(i int) rune {
	if i >= len(p.src) {
		return 0
	}
	return p.src[i]
}

func (p *ttlParser) consume(c rune) bool {
	if p.peek() == c {
		p.pos++
		return true
	}
	return false
}

func (p *ttlParser) skipWS() {
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case c == '\n':
			p.line++
			p.pos++
		case unicode.IsSpace(c):
			p.pos++
		case c == '#':
			for !p.eof() && p.src[p.pos] != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *ttlParser) hasKeyword(kw string) bool {
	if p.pos+len(kw) > len(p.src) {
		return false
	}
	return string(p.src[p.pos:p.pos+len(kw)]) == kw
}

func (p *ttlParser) isDelimAt(i int) bool {
	if i >= len(p.src) {
		return true
	}
	c := p.src[i]
	return unicode.IsSpace(c) || c == '<' || c == '"' || c == '\'' || c == '[' || c == '(' || c == '#'
}

func (p *ttlParser) context(start int) string {
	end := start + 20
	if end > len(p.src) {
		end = len(p.src)
	}
	return string(p.src[start:end])
}

func isNameStartPart(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '-'
}

func isLocalNameRune(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '-' || c == '.' || c == '%'
}

// WriteTurtle serializes the graph as Turtle: prefix directives for every
// namespace actually used, then statements grouped by subject with
// predicate lists. Output is deterministic.
func (g *Graph) WriteTurtle(w io.Writer) error {
	triples := g.All()
	namespaces := g.Namespaces()

	// Fixed candidate order keeps the serialization deterministic when
	// bindings overlap: longest namespace wins, ties break on prefix name.
	type binding struct{ prefix, ns string }
	bindings := make([]binding, 0, len(namespaces))
	for prefix, ns := range namespaces {
		bindings = append(bindings, binding{prefix, ns})
	}
	sort.Slice(bindings, func(i, j int) bool {
		if len(bindings[i].ns) != len(bindings[j].ns) {
			return len(bindings[i].ns) > len(bindings[j].ns)
		}
		if bindings[i].ns != bindings[j].ns {
			return bindings[i].ns < bindings[j].ns
		}
		return bindings[i].prefix < bindings[j].prefix
	})

	used := make(map[string]string)
	compact := func(t Term) string {
		if t.Kind == KindIRI {
			for _, b := range bindings {
				prefix, ns := b.prefix, b.ns
				if strings.HasPrefix(t.Value, ns) {
					local := t.Value[len(ns):]
					if local != "" && !strings.ContainsAny(local, "/#:") {
						if existing, ok := used[prefix]; !ok || existing == ns {
							used[prefix] = ns
							return prefix + ":" + local
						}
					}
				}
			}
			return "<" + t.Value + ">"
		}
		if t.Kind == KindLiteral && t.Datatype != "" && t.Datatype != vocabulary.XsdString && t.Lang == "" {
			for _, b := range bindings {
				if strings.HasPrefix(t.Datatype, b.ns) {
					local := t.Datatype[len(b.ns):]
					if local != "" && !strings.ContainsAny(local, "/#:") {
						used[b.prefix] = b.ns
						return escapeLiteral(t.Value) + "^^" + b.prefix + ":" + local
					}
				}
			}
		}
		return t.String()
	}

	// Group by subject preserving sorted order.
	type group struct {
		subject string
		lines   []string
	}
	bySubject := make(map[string][]Triple)
	var order []string
	for _, tr := range triples {
		key := tr.Subject.String()
		if _, ok := bySubject[key]; !ok {
			order = append(order, key)
		}
		bySubject[key] = append(bySubject[key], tr)
	}
	sort.Strings(order)

	var body strings.Builder
	for _, subjectKey := range order {
		trs := bySubject[subjectKey]
		subjectStr := compact(trs[0].Subject)
		body.WriteString(subjectStr)
		for i, tr := range trs {
			predicate := compact(tr.Predicate)
			if tr.Predicate.Value == vocabulary.RdfType {
				predicate = "a"
			}
			if i == 0 {
				body.WriteString(" ")
			} else {
				body.WriteString(" ;\n    ")
			}
			body.WriteString(predicate)
			body.WriteString(" ")
			body.WriteString(compact(tr.Object))
		}
		body.WriteString(" .\n")
	}

	var header strings.Builder
	usedPrefixes := make([]string, 0, len(used))
	for prefix := range used {
		usedPrefixes = append(usedPrefixes, prefix)
	}
	sort.Strings(usedPrefixes)
	for _, prefix := range usedPrefixes {
		fmt.Fprintf(&header, "@prefix %s: <%s> .\n", prefix, used[prefix])
	}
	if header.Len() > 0 {
		header.WriteString("\n")
	}

	if _, err := io.WriteString(w, header.String()); err != nil {
		return errors.Wrap(err, "rdf", "WriteTurtle", "write prefixes")
	}
	if _, err := io.WriteString(w, body.String()); err != nil {
		return errors.Wrap(err, "rdf", "WriteTurtle", "write statements")
	}
	return nil
}

// WriteNTriples serializes the graph as sorted N-Triples.
func (g *Graph) WriteNTriples(w io.Writer) error {
	for _, tr := range g.All() {
		if _, err := fmt.Fprintf(w, "%s .\n", tr.String()); err != nil {
			return errors.Wrap(err, "rdf", "WriteNTriples", "write statement")
		}
	}
	return nil
}
