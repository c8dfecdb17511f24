package query

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/rdf"
	"github.com/c360studio/semcat/vocabulary"
)

// The in-memory evaluator covers the SELECT subset the catalog tooling
// issues: prefix declarations, basic graph patterns, FILTER with
// equality/inequality against constants and regex(), ORDER BY with
// ASC/DESC, and LIMIT. OPTIONAL, UNION and property paths are out.

type patternTerm struct {
	isVar bool
	name  string
	term  rdf.Term
}

type triplePattern struct {
	s, p, o patternTerm
}

type filterKind int

const (
	filterEq filterKind = iota
	filterNe
	filterRegex
)

type filter struct {
	kind    filterKind
	varName string
	term    rdf.Term
	re      *regexp.Regexp
}

type selectQuery struct {
	vars      []string
	star      bool
	patterns  []triplePattern
	filters   []filter
	orderBy   string
	orderDesc bool
	limit     int
}

// ExecuteSelect evaluates a SPARQL SELECT query against an in-memory
// graph and returns a tabular result. Variables are projected without the
// leading question mark.
func ExecuteSelect(g *rdf.Graph, q SparqlQuery) (*Result, error) {
	parsed, err := parseSelect(q.Text)
	if err != nil {
		return nil, err
	}
	return evaluate(g, parsed)
}

func evaluate(g *rdf.Graph, q *selectQuery) (*Result, error) {
	bindings := []map[string]rdf.Term{{}}
	for _, tp := range q.patterns {
		var next []map[string]rdf.Term
		for _, binding := range bindings {
			sp := resolve(tp.s, binding)
			pp := resolve(tp.p, binding)
			op := resolve(tp.o, binding)
			for _, match := range g.Match(sp, pp, op) {
				extended, ok := extend(binding, tp, match)
				if ok {
					next = append(next, extended)
				}
			}
		}
		bindings = next
		if len(bindings) == 0 {
			break
		}
	}

	for _, f := range q.filters {
		var kept []map[string]rdf.Term
		for _, binding := range bindings {
			ok, err := f.accepts(binding)
			if err != nil {
				return nil, err
			}
			if ok {
				kept = append(kept, binding)
			}
		}
		bindings = kept
	}

	columns := q.vars
	if q.star {
		columns = patternVars(q.patterns)
	}

	result := NewResult(columns...)
	for _, binding := range bindings {
		row := make([]any, len(columns))
		for i, name := range columns {
			if term, ok := binding[name]; ok {
				row[i] = termValue(term)
			}
		}
		result.Rows = append(result.Rows, row)
	}

	if q.orderBy != "" {
		if err := result.SortBy(q.orderBy); err != nil {
			return nil, err
		}
		if q.orderDesc {
			for i, j := 0, len(result.Rows)-1; i < j; i, j = i+1, j-1 {
				result.Rows[i], result.Rows[j] = result.Rows[j], result.Rows[i]
			}
		}
	}
	if q.limit >= 0 && len(result.Rows) > q.limit {
		result.Rows = result.Rows[:q.limit]
	}
	return result, nil
}

func resolve(t patternTerm, binding map[string]rdf.Term) *rdf.Term {
	if !t.isVar {
		term := t.term
		return &term
	}
	if bound, ok := binding[t.name]; ok {
		term := bound
		return &term
	}
	return nil
}

// extend binds the pattern's unbound variables from a matched triple,
// rejecting matches that conflict with repeated variables.
func extend(binding map[string]rdf.Term, tp triplePattern, match rdf.Triple) (map[string]rdf.Term, bool) {
	out := make(map[string]rdf.Term, len(binding)+3)
	for k, v := range binding {
		out[k] = v
	}
	bind := func(t patternTerm, value rdf.Term) bool {
		if !t.isVar {
			return true
		}
		if existing, ok := out[t.name]; ok {
			return existing.Equal(value)
		}
		out[t.name] = value
		return true
	}
	if !bind(tp.s, match.Subject) || !bind(tp.p, match.Predicate) || !bind(tp.o, match.Object) {
		return nil, false
	}
	return out, true
}

func (f filter) accepts(binding map[string]rdf.Term) (bool, error) {
	value, bound := binding[f.varName]
	if !bound {
		return false, nil
	}
	switch f.kind {
	case filterEq:
		return termMatches(value, f.term), nil
	case filterNe:
		return !termMatches(value, f.term), nil
	case filterRegex:
		if !value.IsLiteral() {
			return false, nil
		}
		return f.re.MatchString(value.Value), nil
	default:
		return false, fmt.Errorf("query: unknown filter kind %d: %w", f.kind, errors.ErrQueryUnsupported)
	}
}

// termMatches compares a bound term to a filter constant, letting plain
// literals match typed ones with the same lexical form.
func termMatches(a, b rdf.Term) bool {
	if a.Equal(b) {
		return true
	}
	return a.IsLiteral() && b.IsLiteral() && a.Value == b.Value
}

// termValue converts a term to a tabular cell: numeric and boolean
// literals become Go values, everything else its string form.
func termValue(t rdf.Term) any {
	if !t.IsLiteral() {
		if t.IsBlank() {
			return "_:" + t.Value
		}
		return t.Value
	}
	switch t.Datatype {
	case vocabulary.XsdInteger, vocabulary.XsdLong:
		if n, err := t.Int(); err == nil {
			return n
		}
	case vocabulary.XsdDouble, vocabulary.XsdDecimal:
		if f, err := t.Float(); err == nil {
			return f
		}
	case vocabulary.XsdBoolean:
		if b, err := t.Bool(); err == nil {
			return b
		}
	}
	return t.Value
}

func patternVars(patterns []triplePattern) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tp := range patterns {
		for _, t := range []patternTerm{tp.s, tp.p, tp.o} {
			if t.isVar {
				if _, dup := seen[t.name]; !dup {
					seen[t.name] = struct{}{}
					out = append(out, t.name)
				}
			}
		}
	}
	sort.Strings(out)
	return out
}

// --- parser ---

type sparqlParser struct {
	src      []rune
	pos      int
	prefixes map[string]string
}

func parseSelect(text string) (*selectQuery, error) {
	p := &sparqlParser{src: []rune(text), prefixes: vocabulary.Prefixes()}
	q := &selectQuery{limit: -1}

	for {
		p.skipWS()
		if !p.keyword("PREFIX") {
			break
		}
		if err := p.prefixDecl(); err != nil {
			return nil, err
		}
	}

	if !p.keyword("SELECT") {
		return nil, p.errf("expected SELECT")
	}
	p.skipWS()
	if p.peek() == '*' {
		p.pos++
		q.star = true
	} else {
		for {
			p.skipWS()
			if p.peek() != '?' {
				break
			}
			name, err := p.variable()
			if err != nil {
				return nil, err
			}
			q.vars = append(q.vars, name)
		}
		if len(q.vars) == 0 {
			return nil, p.errf("SELECT needs variables or *")
		}
	}

	p.skipWS()
	if !p.keyword("WHERE") {
		return nil, p.errf("expected WHERE")
	}
	p.skipWS()
	if !p.consume('{') {
		return nil, p.errf("expected '{'")
	}

	for {
		p.skipWS()
		if p.consume('}') {
			break
		}
		if p.eof() {
			return nil, p.errf("unterminated WHERE block")
		}
		if p.keyword("FILTER") {
			f, err := p.filterClause()
			if err != nil {
				return nil, err
			}
			q.filters = append(q.filters, f)
			continue
		}
		tp, err := p.triple()
		if err != nil {
			return nil, err
		}
		q.patterns = append(q.patterns, tp)
		p.skipWS()
		p.consume('.')
	}

	p.skipWS()
	if p.keyword("ORDER") {
		p.skipWS()
		if !p.keyword("BY") {
			return nil, p.errf("expected BY after ORDER")
		}
		p.skipWS()
		switch {
		case p.keyword("DESC"):
			q.orderDesc = true
			if err := p.orderVar(q); err != nil {
				return nil, err
			}
		case p.keyword("ASC"):
			if err := p.orderVar(q); err != nil {
				return nil, err
			}
		default:
			name, err := p.variable()
			if err != nil {
				return nil, err
			}
			q.orderBy = name
		}
	}

	p.skipWS()
	if p.keyword("LIMIT") {
		p.skipWS()
		start := p.pos
		for !p.eof() && unicode.IsDigit(p.src[p.pos]) {
			p.pos++
		}
		if p.pos == start {
			return nil, p.errf("LIMIT needs a number")
		}
		n, err := strconv.Atoi(string(p.src[start:p.pos]))
		if err != nil {
			return nil, p.errf("bad LIMIT")
		}
		q.limit = n
	}

	p.skipWS()
	if !p.eof() {
		return nil, p.errf("unsupported trailing syntax %q", p.rest(20))
	}
	if len(q.patterns) == 0 {
		return nil, p.errf("empty graph pattern")
	}
	return q, nil
}

func (p *sparqlParser) orderVar(q *selectQuery) error {
	p.skipWS()
	if !p.consume('(') {
		return p.errf("expected '(' after ORDER BY direction")
	}
	p.skipWS()
	name, err := p.variable()
	if err != nil {
		return err
	}
	q.orderBy = name
	p.skipWS()
	if !p.consume(')') {
		return p.errf("expected ')'")
	}
	return nil
}

func (p *sparqlParser) prefixDecl() error {
	p.skipWS()
	start := p.pos
	for !p.eof() && p.src[p.pos] != ':' {
		p.pos++
	}
	if p.eof() {
		return p.errf("expected ':' in PREFIX")
	}
	label := strings.TrimSpace(string(p.src[start:p.pos]))
	p.pos++
	p.skipWS()
	iri, err := p.iriRef()
	if err != nil {
		return err
	}
	p.prefixes[label] = iri
	return nil
}

func (p *sparqlParser) triple() (triplePattern, error) {
	s, err := p.term(true)
	if err != nil {
		return triplePattern{}, err
	}
	pred, err := p.term(true)
	if err != nil {
		return triplePattern{}, err
	}
	o, err := p.term(false)
	if err != nil {
		return triplePattern{}, err
	}
	return triplePattern{s: s, p: pred, o: o}, nil
}

func (p *sparqlParser) filterClause() (filter, error) {
	p.skipWS()
	if p.keyword("regex") {
		p.skipWS()
		if !p.consume('(') {
			return filter{}, p.errf("expected '(' after regex")
		}
		p.skipWS()
		name, err := p.variable()
		if err != nil {
			return filter{}, err
		}
		p.skipWS()
		if !p.consume(',') {
			return filter{}, p.errf("expected ',' in regex")
		}
		p.skipWS()
		pattern, err := p.stringLiteral()
		if err != nil {
			return filter{}, err
		}
		flags := ""
		p.skipWS()
		if p.consume(',') {
			p.skipWS()
			flags, err = p.stringLiteral()
			if err != nil {
				return filter{}, err
			}
		}
		p.skipWS()
		if !p.consume(')') {
			return filter{}, p.errf("expected ')' after regex")
		}
		if strings.Contains(flags, "i") {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return filter{}, fmt.Errorf("query: bad regex in FILTER: %v: %w", err, errors.ErrParsingFailed)
		}
		return filter{kind: filterRegex, varName: name, re: re}, nil
	}

	if !p.consume('(') {
		return filter{}, p.errf("expected '(' after FILTER")
	}
	p.skipWS()
	name, err := p.variable()
	if err != nil {
		return filter{}, err
	}
	p.skipWS()
	kind := filterEq
	switch {
	case p.consume('='):
		kind = filterEq
	case p.peek() == '!' && p.peekAt(p.pos+1) == '=':
		p.pos += 2
		kind = filterNe
	default:
		return filter{}, p.errf("expected '=' or '!=' in FILTER")
	}
	p.skipWS()
	constant, err := p.term(false)
	if err != nil {
		return filter{}, err
	}
	if constant.isVar {
		return filter{}, fmt.Errorf("query: FILTER against a variable is not supported: %w",
			errors.ErrQueryUnsupported)
	}
	p.skipWS()
	if !p.consume(')') {
		return filter{}, p.errf("expected ')' after FILTER")
	}
	return filter{kind: kind, varName: name, term: constant.term}, nil
}

// term reads one pattern position. subjectPos restricts literals.
func (p *sparqlParser) term(subjectPos bool) (patternTerm, error) {
	p.skipWS()
	switch c := p.peek(); {
	case c == '?':
		name, err := p.variable()
		if err != nil {
			return patternTerm{}, err
		}
		return patternTerm{isVar: true, name: name}, nil
	case c == '<':
		iri, err := p.iriRef()
		if err != nil {
			return patternTerm{}, err
		}
		return patternTerm{term: rdf.Term{Kind: rdf.KindIRI, Value: iri}}, nil
	case c == '"':
		value, err := p.stringLiteral()
		if err != nil {
			return patternTerm{}, err
		}
		if subjectPos {
			return patternTerm{}, p.errf("literal in subject or predicate position")
		}
		term := rdf.Literal(value)
		if p.peek() == '@' {
			p.pos++
			start := p.pos
			for !p.eof() && (unicode.IsLetter(p.src[p.pos]) || p.src[p.pos] == '-') {
				p.pos++
			}
			term = rdf.LangLiteral(value, string(p.src[start:p.pos]))
		} else if p.peek() == '^' && p.peekAt(p.pos+1) == '^' {
			p.pos += 2
			dt, err := p.term(true)
			if err != nil {
				return patternTerm{}, err
			}
			term = rdf.TypedLiteral(value, dt.term.Value)
		}
		return patternTerm{term: term}, nil
	case unicode.IsDigit(c) || c == '-' || c == '+':
		return p.numberTerm(subjectPos)
	default:
		return p.nameTerm()
	}
}

func (p *sparqlParser) numberTerm(subjectPos bool) (patternTerm, error) {
	if subjectPos {
		return patternTerm{}, p.errf("number in subject or predicate position")
	}
	start := p.pos
	if p.peek() == '-' || p.peek() == '+' {
		p.pos++
	}
	decimal := false
	for !p.eof() && (unicode.IsDigit(p.src[p.pos]) || p.src[p.pos] == '.') {
		if p.src[p.pos] == '.' {
			decimal = true
		}
		p.pos++
	}
	lexical := string(p.src[start:p.pos])
	if decimal {
		return patternTerm{term: rdf.TypedLiteral(lexical, vocabulary.XsdDecimal)}, nil
	}
	return patternTerm{term: rdf.TypedLiteral(lexical, vocabulary.XsdInteger)}, nil
}

func (p *sparqlParser) nameTerm() (patternTerm, error) {
	start := p.pos
	for !p.eof() && (unicode.IsLetter(p.src[p.pos]) || unicode.IsDigit(p.src[p.pos]) ||
		p.src[p.pos] == '_' || p.src[p.pos] == '-' || p.src[p.pos] == ':') {
		p.pos++
	}
	token := string(p.src[start:p.pos])
	switch token {
	case "":
		return patternTerm{}, p.errf("unexpected %q", p.rest(10))
	case "a":
		return patternTerm{term: rdf.IRI(vocabulary.RdfType)}, nil
	case "true":
		return patternTerm{term: rdf.BoolLiteral(true)}, nil
	case "false":
		return patternTerm{term: rdf.BoolLiteral(false)}, nil
	}
	idx := strings.Index(token, ":")
	if idx < 0 {
		return patternTerm{}, p.errf("expected a prefixed name, got %q", token)
	}
	ns, ok := p.prefixes[token[:idx]]
	if !ok {
		return patternTerm{}, p.errf("undefined prefix %q", token[:idx])
	}
	return patternTerm{term: rdf.Term{Kind: rdf.KindIRI, Value: ns + token[idx+1:]}}, nil
}

func (p *sparqlParser) variable() (string, error) {
	if !p.consume('?') {
		return "", p.errf("expected variable")
	}
	start := p.pos
	for !p.eof() && (unicode.IsLetter(p.src[p.pos]) || unicode.IsDigit(p.src[p.pos]) || p.src[p.pos] == '_') {
		p.pos++
	}
	if p.pos == start {
		return "", p.errf("empty variable name")
	}
	return string(p.src[start:p.pos]), nil
}

func (p *sparqlParser) iriRef() (string, error) {
	if !p.consume('<') {
		return "", p.errf("expected '<'")
	}
	start := p.pos
	for !p.eof() && p.src[p.pos] != '>' {
		p.pos++
	}
	if p.eof() {
		return "", p.errf("unterminated IRI")
	}
	iri := string(p.src[start:p.pos])
	p.pos++
	return iri, nil
}

func (p *sparqlParser) stringLiteral() (string, error) {
	if !p.consume('"') {
		return "", p.errf("expected string literal")
	}
	var b strings.Builder
	for {
		if p.eof() {
			return "", p.errf("unterminated string literal")
		}
		c := p.src[p.pos]
		if c == '\\' {
			p.pos++
			if p.eof() {
				return "", p.errf("dangling escape")
			}
			switch p.src[p.pos] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			default:
				b.WriteRune(p.src[p.pos])
			}
			p.pos++
			continue
		}
		if c == '"' {
			p.pos++
			return b.String(), nil
		}
		b.WriteRune(c)
		p.pos++
	}
}

func (p *sparqlParser) keyword(kw string) bool {
	p.skipWS()
	if p.pos+len(kw) > len(p.src) {
		return false
	}
	if !strings.EqualFold(string(p.src[p.pos:p.pos+len(kw)]), kw) {
		return false
	}
	// Keywords end at a non-name rune.
	next := p.pos + len(kw)
	if next < len(p.src) {
		c := p.src[next]
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' {
			return false
		}
	}
	p.pos += len(kw)
	return true
}

func (p *sparqlParser) skipWS() {
	for !p.eof() {
		c := p.src[p.pos]
		if c == '#' {
			for !p.eof() && p.src[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		if !unicode.IsSpace(c) {
			return
		}
		p.pos++
	}
}

func (p *sparqlParser) eof() bool { return p.pos >= len(p.src) }

func (p *sparqlParser) peek() rune {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *sparqlParser) peekAt(i int) rune {
	if i >= len(p.src) {
		return 0
	}
	return p.src[i]
}

func (p *sparqlParser) consume(c rune) bool {
	if p.peek() == c {
		p.pos++
		return true
	}
	return false
}

func (p *sparqlParser) rest(n int) string {
	end := p.pos + n
	if end > len(p.src) {
		end = len(p.src)
	}
	return string(p.src[p.pos:end])
}

func (p *sparqlParser) errf(format string, args ...any) error {
	return fmt.Errorf("query: %s (at offset %d): %w",
		fmt.Sprintf(format, args...), p.pos, errors.ErrParsingFailed)
}
