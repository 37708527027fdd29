package ontoenv

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/deiu/rdf2go"

	"github.com/kahefi/ontoenv/errs"
)

// ParsedGraph is what a ParserAdapter extracts from raw bytes, per spec §4.2.
type ParsedGraph struct {
	Triples          []Triple
	DeclaredOntology string // empty if none found
	DeclaredVersion  string // empty if no owl:versionIRI
	RawImports       []string
}

// ParserAdapter wraps an external RDF parser. Concrete syntax grammars
// (Turtle/N-Triples/RDF-XML/JSON-LD/TriG/N-Quads) are out of scope per
// spec §1; this interface is what the core consumes from them.
type ParserAdapter interface {
	Parse(data []byte, formatHint, baseIRI string) (*ParsedGraph, error)
}

// rdf2goParser is the default ParserAdapter, backed by deiu/rdf2go the way
// the teacher's memory_store.go already does (ParseFromTurtle). It supports
// whatever syntaxes rdf2go itself supports (Turtle, N3, JSON-LD via gon3 /
// gojsonld); other declared formats are reported as unsupported parse
// errors rather than silently mis-parsed.
type rdf2goParser struct{}

// NewParserAdapter returns the default rdf2go-backed parser adapter.
func NewParserAdapter() ParserAdapter {
	return rdf2goParser{}
}

var formatToMime = map[string]string{
	"turtle": "text/turtle",
	"n3":     "text/n3",
	"jsonld": "application/ld+json",
}

func (rdf2goParser) Parse(data []byte, formatHint, baseIRI string) (*ParsedGraph, error) {
	mime, ok := formatToMime[formatHint]
	if !ok {
		return nil, errs.Wrap(errs.ErrParse, baseIRI, nil,
			fmt.Errorf("format %q has no registered RDF parser", formatHint))
	}

	g := rdf2go.NewGraph(baseIRI)
	if err := g.Parse(bytes.NewReader(data), mime); err != nil {
		return nil, errs.Wrap(errs.ErrParse, baseIRI, nil, err)
	}

	triples := make([]Triple, 0, g.Len())
	for t := range g.IterTriples() {
		triples = append(triples, Triple{
			Subject:   Term(t.Subject.String()),
			Predicate: Term(t.Predicate.String()),
			Object:    Term(t.Object.String()),
		})
	}

	subj := chooseOntologySubject(triples)
	version := ""
	imports := []string{}
	if subj != "" {
		for _, t := range triples {
			if t.Subject.Value() != subj {
				continue
			}
			switch t.Predicate.Value() {
			case OWLVersionIRI:
				version = t.Object.Value()
			case OWLImports:
				imports = append(imports, t.Object.Value())
			}
		}
	}

	return &ParsedGraph{
		Triples:          triples,
		DeclaredOntology: subj,
		DeclaredVersion:  version,
		RawImports:       imports,
	}, nil
}

// chooseOntologySubject finds every `?s a owl:Ontology` subject and picks
// the lexicographically smallest IRI, per spec §4.2's deterministic tie-break.
func chooseOntologySubject(triples []Triple) string {
	var candidates []string
	for _, t := range triples {
		if t.Predicate.Value() == RDFType && t.Object.Value() == OWLOntology && t.Subject.IsResource() {
			candidates = append(candidates, t.Subject.Value())
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Strings(candidates)
	return candidates[0]
}
