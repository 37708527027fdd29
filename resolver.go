package ontoenv

import (
	"sort"
	"time"

	"github.com/kahefi/ontoenv/errs"
)

// ResolveTarget is the argument to Resolver.Resolve: exactly one of its
// constructors should be used (Graph, Versioned, or Located), matching the
// three target shapes of §4.4.
type ResolveTarget struct {
	kind     resolveKind
	nameIRI  string
	version  string
	location Location
}

type resolveKind int

const (
	kindGraph resolveKind = iota
	kindVersioned
	kindLocated
)

// GraphTarget resolves by bare ontology IRI, deferring to the configured
// policy when more than one identifier shares that name.
func GraphTarget(nameIRI string) ResolveTarget {
	return ResolveTarget{kind: kindGraph, nameIRI: nameIRI}
}

// VersionedTarget resolves to the exact (name, version) pair, bypassing
// policy entirely.
func VersionedTarget(nameIRI, versionIRI string) ResolveTarget {
	return ResolveTarget{kind: kindVersioned, nameIRI: nameIRI, version: versionIRI}
}

// LocatedTarget resolves to the exact (name, location) pair, bypassing
// policy entirely.
func LocatedTarget(nameIRI string, loc Location) ResolveTarget {
	return ResolveTarget{kind: kindLocated, nameIRI: nameIRI, location: loc}
}

// candidateSource supplies the Resolver with every known identifier and
// the aliases registered against them; Environment implements this over
// its entry table, kept as an interface here so resolver.go and its tests
// don't need the full facade.
type candidateSource interface {
	candidatesByName(nameIRI string) []*OntologyEntry
	lookupAlias(iri string) (GraphIdentifier, bool)
}

// Resolver maps a raw import IRI or explicit target to a concrete
// GraphIdentifier under one of the three resolution policies (§4.4).
// Resolution is always computed fresh against current state — the Closure
// Engine depends on this "late binding" behavior (§9) rather than caching
// a resolved id at edge-insert time.
type Resolver struct {
	policy ResolutionPolicy
	src    candidateSource
}

// NewResolver creates a resolver reading entries/aliases from src under
// the given policy.
func NewResolver(policy ResolutionPolicy, src candidateSource) *Resolver {
	return &Resolver{policy: policy, src: src}
}

// Resolve maps target to a concrete GraphIdentifier, or errs.ErrNotFound /
// errs.ErrAmbiguous.
func (r *Resolver) Resolve(target ResolveTarget) (GraphIdentifier, error) {
	switch target.kind {
	case kindVersioned:
		for _, e := range r.src.candidatesByName(target.nameIRI) {
			if e.ID.Version == target.version {
				return e.ID, nil
			}
		}
		return GraphIdentifier{}, errs.ErrNotFound
	case kindLocated:
		for _, e := range r.src.candidatesByName(target.nameIRI) {
			if e.ID.Location.Equal(target.location) {
				return e.ID, nil
			}
		}
		return GraphIdentifier{}, errs.ErrNotFound
	default:
		return r.resolveGraph(target.nameIRI)
	}
}

// ResolveRawIRI is the convenience path the Dependency Graph and Ingestor
// use for an owl:imports object value: follow an alias if one matches
// exactly, otherwise fall back to policy-based resolution by name.
func (r *Resolver) ResolveRawIRI(iri string) (GraphIdentifier, error) {
	if id, ok := r.src.lookupAlias(iri); ok {
		return id, nil
	}
	return r.resolveGraph(iri)
}

func (r *Resolver) resolveGraph(nameIRI string) (GraphIdentifier, error) {
	if id, ok := r.src.lookupAlias(nameIRI); ok {
		return id, nil
	}
	candidates := r.src.candidatesByName(nameIRI)
	if len(candidates) == 0 {
		return GraphIdentifier{}, errs.ErrNotFound
	}
	if len(candidates) == 1 {
		return candidates[0].ID, nil
	}

	switch r.policy {
	case PolicyLatest:
		return r.pickLatest(candidates)
	case PolicyVersion:
		// version policy never guesses among ambiguous bare-name hits.
		return GraphIdentifier{}, errs.ErrAmbiguous
	default:
		return r.pickDefault(candidates)
	}
}

// pickDefault implements §4.4's `default` policy: unversioned candidate
// wins, else most recently ingested, else Ambiguous. candidatesByName
// ranges over a Go map, so its order is not stable across calls — when more
// than one unversioned candidate exists (two locations declaring the same
// bare ontology IRI), the winner must still be picked deterministically via
// mostRecent's tie-break rather than by whichever happened to be seen first.
func (r *Resolver) pickDefault(candidates []*OntologyEntry) (GraphIdentifier, error) {
	var unversioned []*OntologyEntry
	for _, e := range candidates {
		if e.ID.Version == e.ID.Name {
			unversioned = append(unversioned, e)
		}
	}
	if len(unversioned) == 1 {
		return unversioned[0].ID, nil
	}
	if len(unversioned) > 1 {
		return r.mostRecent(unversioned)
	}
	return r.mostRecent(candidates)
}

// pickLatest implements §4.4's `latest` policy: lexicographic max of the
// version IRI string, ties broken by most recent ingestion. SPEC_FULL.md
// §15 settles the Open Question about non-numeric suffixes in favor of
// pure byte-wise lexicographic comparison — no numeric-aware splitting.
func (r *Resolver) pickLatest(candidates []*OntologyEntry) (GraphIdentifier, error) {
	sorted := make([]*OntologyEntry, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ID.Version < sorted[j].ID.Version
	})
	best := sorted[len(sorted)-1]
	var tied []*OntologyEntry
	for _, e := range sorted {
		if e.ID.Version == best.ID.Version {
			tied = append(tied, e)
		}
	}
	if len(tied) == 1 {
		return tied[0].ID, nil
	}
	return r.mostRecent(tied)
}

func (r *Resolver) mostRecent(candidates []*OntologyEntry) (GraphIdentifier, error) {
	var best *OntologyEntry
	var bestTime time.Time
	tied := false
	for _, e := range candidates {
		if best == nil || e.LastFetched.After(bestTime) {
			best = e
			bestTime = e.LastFetched
			tied = false
		} else if e.LastFetched.Equal(bestTime) {
			tied = true
		}
	}
	if best == nil || tied {
		return GraphIdentifier{}, errs.ErrAmbiguous
	}
	return best.ID, nil
}
