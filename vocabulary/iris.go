// Package vocabulary provides the RDF vocabulary used across the catalog
// subsystem: namespace constants, the DCAT/DCTERMS/SKOS/PROV/QUDT term IRIs
// the stores and the SHACL validator rely on, CURIE expansion, and the
// global standard-attribute registry.
package vocabulary

import "strings"

// Namespace IRIs for the vocabularies the toolbox reads and writes.
const (
	RDF     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFS    = "http://www.w3.org/2000/01/rdf-schema#"
	XSD     = "http://www.w3.org/2001/XMLSchema#"
	OWL     = "http://www.w3.org/2002/07/owl#"
	SKOS    = "http://www.w3.org/2004/02/skos/core#"
	DCAT    = "http://www.w3.org/ns/dcat#"
	DCTERMS = "http://purl.org/dc/terms/"
	PROV    = "http://www.w3.org/ns/prov#"
	FOAF    = "http://xmlns.com/foaf/0.1/"
	SH      = "http://www.w3.org/ns/shacl#"
	QUDT    = "http://qudt.org/schema/qudt/"
	SPDX    = "http://spdx.org/rdf/terms#"

	// SSNO is the standard-name ontology namespace used to describe
	// standard-name tables and their entries in RDF.
	SSNO = "https://matthiasprobst.github.io/ssno#"

	// Base is the namespace for toolbox-minted entity IRIs.
	Base = "https://semcat.c360.io/"
)

// RDF core terms
const (
	RdfType = RDF + "type"

	RdfFirst = RDF + "first"
	RdfRest  = RDF + "rest"
	RdfNil   = RDF + "nil"

	RdfsLabel   = RDFS + "label"
	RdfsComment = RDFS + "comment"

	OwlSameAs = OWL + "sameAs"
)

// DCAT terms used by the catalog model.
const (
	DcatCatalog      = DCAT + "Catalog"
	DcatDataset      = DCAT + "Dataset"
	DcatDistribution = DCAT + "Distribution"

	DcatDatasetProp    = DCAT + "dataset"
	DcatDistributionOf = DCAT + "distribution"
	DcatDownloadURL    = DCAT + "downloadURL"
	DcatAccessURL      = DCAT + "accessURL"
	DcatMediaType      = DCAT + "mediaType"
	DcatByteSize       = DCAT + "byteSize"
	DcatKeyword        = DCAT + "keyword"
)

// Dublin Core terms.
const (
	DcTitle       = DCTERMS + "title"
	DcDescription = DCTERMS + "description"
	DcIdentifier  = DCTERMS + "identifier"
	DcCreator     = DCTERMS + "creator"
	DcCreated     = DCTERMS + "created"
	DcModified    = DCTERMS + "modified"
	DcLicense     = DCTERMS + "license"
	DcFormat      = DCTERMS + "format"
	DcPublisher   = DCTERMS + "publisher"
)

// SKOS terms.
const (
	SkosPrefLabel  = SKOS + "prefLabel"
	SkosAltLabel   = SKOS + "altLabel"
	SkosDefinition = SKOS + "definition"
	SkosBroader    = SKOS + "broader"
	SkosNarrower   = SKOS + "narrower"
)

// PROV-O terms.
const (
	ProvWasGeneratedBy  = PROV + "wasGeneratedBy"
	ProvWasAttributedTo = PROV + "wasAttributedTo"
	ProvWasDerivedFrom  = PROV + "wasDerivedFrom"
	ProvGeneratedAtTime = PROV + "generatedAtTime"
)

// SPDX terms for distribution checksums.
const (
	SpdxChecksum      = SPDX + "checksum"
	SpdxAlgorithm     = SPDX + "algorithm"
	SpdxChecksumValue = SPDX + "checksumValue"
)

// SHACL terms used by the shape validator.
const (
	ShNodeShape   = SH + "NodeShape"
	ShTargetClass = SH + "targetClass"
	ShProperty    = SH + "property"
	ShPath        = SH + "path"
	ShMinCount    = SH + "minCount"
	ShMaxCount    = SH + "maxCount"
	ShDatatype    = SH + "datatype"
	ShClass       = SH + "class"
	ShNodeKind    = SH + "nodeKind"
	ShPattern     = SH + "pattern"
	ShIn          = SH + "in"
	ShMessage     = SH + "message"
	ShSeverity    = SH + "severity"

	ShIRI          = SH + "IRI"
	ShBlankNode    = SH + "BlankNode"
	ShLiteral      = SH + "Literal"
	ShViolation    = SH + "Violation"
	ShWarningLevel = SH + "Warning"

	ShValidationReport          = SH + "ValidationReport"
	ShValidationResult          = SH + "ValidationResult"
	ShConforms                  = SH + "conforms"
	ShResult                    = SH + "result"
	ShFocusNode                 = SH + "focusNode"
	ShResultPath                = SH + "resultPath"
	ShResultMessage             = SH + "resultMessage"
	ShResultSeverity            = SH + "resultSeverity"
	ShSourceConstraintComponent = SH + "sourceConstraintComponent"
)

// QUDT terms for unit annotation.
const (
	QudtUnit  = QUDT + "unit"
	QudtValue = QUDT + "value"
)

// SSNO terms describing standard names.
const (
	SsnoStandardName        = SSNO + "StandardName"
	SsnoStandardNameTable   = SSNO + "StandardNameTable"
	SsnoHasStandardName     = SSNO + "hasStandardName"
	SsnoCanonicalUnits      = SSNO + "unit"
	SsnoStandardNameOf      = SSNO + "standardNameTable"
	SsnoDescription         = SSNO + "description"
	SsnoAliasOf             = SSNO + "alias"
	SsnoHasStandardNameText = SSNO + "hasStandardNameLiteral"
)

// XSD datatype IRIs.
const (
	XsdString   = XSD + "string"
	XsdBoolean  = XSD + "boolean"
	XsdInteger  = XSD + "integer"
	XsdLong     = XSD + "long"
	XsdDouble   = XSD + "double"
	XsdDecimal  = XSD + "decimal"
	XsdDateTime = XSD + "dateTime"
	XsdDate     = XSD + "date"
	XsdAnyURI   = XSD + "anyURI"
)

// prefixes is the default prefix table for CURIE expansion and Turtle
// serialization. Keys are prefix labels without the trailing colon.
var prefixes = map[string]string{
	"rdf":     RDF,
	"rdfs":    RDFS,
	"xsd":     XSD,
	"owl":     OWL,
	"skos":    SKOS,
	"dcat":    DCAT,
	"dcterms": DCTERMS,
	"dct":     DCTERMS,
	"prov":    PROV,
	"foaf":    FOAF,
	"sh":      SH,
	"qudt":    QUDT,
	"spdx":    SPDX,
	"ssno":    SSNO,
	"semcat":  Base,
}

// Prefixes returns a copy of the default prefix table.
func Prefixes() map[string]string {
	out := make(map[string]string, len(prefixes))
	for k, v := range prefixes {
		out[k] = v
	}
	return out
}

// Expand resolves a CURIE ("dcat:Dataset") to a full IRI using the default
// prefix table. Inputs that are already absolute IRIs, or whose prefix is
// unknown, are returned unchanged.
func Expand(curie string) string {
	if strings.HasPrefix(curie, "http://") || strings.HasPrefix(curie, "https://") {
		return curie
	}
	idx := strings.Index(curie, ":")
	if idx <= 0 {
		return curie
	}
	if ns, ok := prefixes[curie[:idx]]; ok {
		return ns + curie[idx+1:]
	}
	return curie
}

// Compact shortens a full IRI to CURIE form when a known namespace matches.
// The longest matching namespace wins. Unknown IRIs are returned unchanged.
func Compact(iri string) string {
	best := ""
	bestPrefix := ""
	for prefix, ns := range prefixes {
		if !strings.HasPrefix(iri, ns) {
			continue
		}
		// Longest namespace wins; ties break on prefix label so aliases
		// like dct/dcterms compact deterministically.
		if len(ns) > len(best) || (len(ns) == len(best) && prefix < bestPrefix) {
			best = ns
			bestPrefix = prefix
		}
	}
	if best == "" {
		return iri
	}
	local := iri[len(best):]
	if local == "" || strings.ContainsAny(local, "/#") {
		return iri
	}
	return bestPrefix + ":" + local
}
