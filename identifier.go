package ontoenv

import "sync"

// GraphIdentifier is the primary key for a cached graph: the ontology IRI
// declared inside it, an optional version IRI, and the location it was
// fetched from. Per spec §3, two ontologies that share a name but differ in
// version or location are distinct identifiers that coexist in the cache.
type GraphIdentifier struct {
	Name     string
	Version  string
	Location Location
}

// NewGraphIdentifier builds a well-formed identifier. If version is empty it
// defaults to name, per spec §3 ("version defaults to name when absent").
func NewGraphIdentifier(name, version string, loc Location) GraphIdentifier {
	if version == "" {
		version = name
	}
	return GraphIdentifier{Name: name, Version: version, Location: loc}
}

// Equal reports whether two identifiers address the same cached graph.
func (id GraphIdentifier) Equal(other GraphIdentifier) bool {
	return id.Name == other.Name && id.Version == other.Version && id.Location.Equal(other.Location)
}

// key returns a comparable Go map key for the identifier.
func (id GraphIdentifier) key() graphIDKey {
	return graphIDKey{name: id.Name, version: id.Version, location: id.Location.String()}
}

type graphIDKey struct {
	name     string
	version  string
	location string
}

// AliasTable maps a raw IRI the user or an import referenced to the
// GraphIdentifier it ultimately resolves to. Aliases are created whenever a
// fetched location's declared ontology IRI differs from the IRI referenced to
// obtain it (spec §3 Alias, §4.3 step 8). Chains are collapsed to their
// terminal identifier at insert time (spec §9 "Alias chain collapse") so
// lookups never need to follow more than one hop.
type AliasTable struct {
	mu   sync.RWMutex
	byIRI map[string]GraphIdentifier
}

// NewAliasTable creates an empty alias table.
func NewAliasTable() *AliasTable {
	return &AliasTable{byIRI: make(map[string]GraphIdentifier)}
}

// Set records that fromIRI resolves to target. If target itself is already an
// alias for some other identifier, the alias is collapsed to that terminal
// identifier instead (acyclic by construction).
func (a *AliasTable) Set(fromIRI string, target GraphIdentifier) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if terminal, ok := a.byIRI[target.Name]; ok {
		target = terminal
	}
	a.byIRI[fromIRI] = target
}

// Lookup returns the identifier an IRI aliases to, if any.
func (a *AliasTable) Lookup(iri string) (GraphIdentifier, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	id, ok := a.byIRI[iri]
	return id, ok
}

// All returns a snapshot of every alias currently registered.
func (a *AliasTable) All() map[string]GraphIdentifier {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]GraphIdentifier, len(a.byIRI))
	for k, v := range a.byIRI {
		out[k] = v
	}
	return out
}

// RemoveTarget removes every alias whose target is the given identifier,
// per spec §3's "dependency integrity" invariant (removing an entry removes
// all aliases whose target is it).
func (a *AliasTable) RemoveTarget(target GraphIdentifier) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for iri, id := range a.byIRI {
		if id.Equal(target) {
			delete(a.byIRI, iri)
		}
	}
}
