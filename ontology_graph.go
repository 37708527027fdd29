package ontoenv

// The functions in this file are the read/rewrite operations the closure engine and
// ingestor run directly against a graphHandle's triples: extracting the
// declared version/imports of an ontology subject, and stripping or
// rewriting specific predicates when composing a union graph (§4.3, §4.6).
// This is the teacher's OntologyGraph collapsed from a stateful wrapper
// type into plain functions, since every caller here already holds a
// *graphHandle (or a []Triple slice) rather than constructing a long-lived
// ontology object around one.

// ontologyVersion returns the owl:versionIRI object value declared for
// subject within triples, or "" if none is present.
func ontologyVersion(triples []Triple, subject string) string {
	for _, t := range triples {
		if t.Subject.Value() == subject && t.Predicate.Value() == OWLVersionIRI {
			return t.Object.Value()
		}
	}
	return ""
}

// ontologyImports returns every owl:imports object value declared for
// subject within triples, in file order.
func ontologyImports(triples []Triple, subject string) []string {
	var imports []string
	for _, t := range triples {
		if t.Subject.Value() == subject && t.Predicate.Value() == OWLImports {
			imports = append(imports, t.Object.Value())
		}
	}
	return imports
}

// withoutOWLImports returns a copy of triples with every owl:imports
// triple removed, for the RemoveOWLImports union-graph option (§4.6). It
// does not touch the `?s a owl:Ontology` declaration itself — decided in
// SPEC_FULL.md §15 after the Open Question left it unspecified.
func withoutOWLImports(triples []Triple) []Triple {
	out := make([]Triple, 0, len(triples))
	for _, t := range triples {
		if t.Predicate.Value() == OWLImports {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ontologyPrefixesObject returns the sh:prefixes object value declared for
// subject, or "" if none is present — used to find the root ontology's
// prefix-declaration node before a union-graph rewrite.
func ontologyPrefixesObject(triples []Triple, subject string) string {
	for _, t := range triples {
		if t.Subject.Value() == subject && t.Predicate.Value() == SHPrefixes {
			return t.Object.Value()
		}
	}
	return ""
}

// rewriteAllSHPrefixesTo retargets every sh:prefixes triple's object to
// newObj, regardless of what it previously pointed at — used when merging
// several graphs, each with its own prefix-declaration node, into one
// union graph rooted at a single sh:prefixes object (§4.6).
func rewriteAllSHPrefixesTo(triples []Triple, newObj string) []Triple {
	out := make([]Triple, len(triples))
	for i, t := range triples {
		if t.Predicate.Value() == SHPrefixes {
			out[i] = Triple{Subject: t.Subject, Predicate: t.Predicate, Object: NewResourceTerm(newObj)}
			continue
		}
		out[i] = t
	}
	return out
}

