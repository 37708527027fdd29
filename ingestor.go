package ontoenv

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kahefi/ontoenv/errs"
)

// OverwritePolicy controls what happens when re-ingesting a location whose
// content hash changed (§4.3 step 7).
type OverwritePolicy int

const (
	OverwritePreserve OverwritePolicy = iota // fail HashMismatch
	OverwriteAllow                           // replace triples/metadata
	OverwriteForce                           // like Allow, and also bypasses freshness shortcuts
)

// RefreshStrategy controls whether a cached entry is trusted without
// re-fetching (§4.3 steps 2-3).
type RefreshStrategy int

const (
	RefreshUseCache RefreshStrategy = iota // trust the cache if location is known at all
	RefreshNormal                          // consult Fetcher; honor conditional/TTL shortcuts
	RefreshForce                           // always re-fetch, ignore TTL/conditional shortcuts
)

// AddOptions parameterizes Ingestor.Add / Ingestor.AddNoImports.
type AddOptions struct {
	Overwrite            OverwritePolicy
	Refresh              RefreshStrategy
	FetchImports         bool
	Strict               bool
	RequireOntologyNames bool
	RecursionDepth       int // negative = unbounded
}

// Ingestor orchestrates Fetcher -> Parser adapter -> identifier assignment
// -> Runtime/Persistent Store writes -> Dependency Graph updates, per
// spec.md §4.3's eleven-step add algorithm.
type Ingestor struct {
	fetcher  *Fetcher
	parser   ParserAdapter
	cat      *catalog
	depGraph *DependencyGraph
	runtime  *RuntimeStore
	resolver *Resolver
	persist  func(id GraphIdentifier, triples []Triple) error // nil-safe persistent-store write
	log      *logrus.Entry
}

// NewIngestor wires an Ingestor over the given collaborators. persist may
// be nil (runtime-only environments, e.g. --temporary).
func NewIngestor(fetcher *Fetcher, parser ParserAdapter, cat *catalog, depGraph *DependencyGraph, runtime *RuntimeStore, resolver *Resolver, persist func(GraphIdentifier, []Triple) error, log *logrus.Entry) *Ingestor {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Ingestor{
		fetcher: fetcher, parser: parser, cat: cat, depGraph: depGraph,
		runtime: runtime, resolver: resolver, persist: persist,
		log: log.WithField("component", "ingestor"),
	}
}

// Add ingests location, recursively fetching and ingesting its transitive
// owl:imports breadth-first (§4.3 step 11).
func (ig *Ingestor) Add(locationStr string, opts AddOptions) (GraphIdentifier, error) {
	opts.FetchImports = true
	return ig.addWithPath(locationStr, opts, nil)
}

// AddNoImports ingests location without following its imports.
func (ig *Ingestor) AddNoImports(locationStr string, opts AddOptions) (GraphIdentifier, error) {
	opts.FetchImports = false
	return ig.addWithPath(locationStr, opts, nil)
}

// addWithPath is the shared entry point; path carries the chain of raw
// import IRIs that led to this call, for strict-mode error annotation.
func (ig *Ingestor) addWithPath(locationStr string, opts AddOptions, path []string) (GraphIdentifier, error) {
	id, rawImports, err := ig.ingestOne(locationStr, opts)
	if err != nil {
		return GraphIdentifier{}, errs.Wrap(errOf(err), locationStr, path, err)
	}
	if !opts.FetchImports {
		return id, nil
	}

	depth := opts.RecursionDepth
	type queued struct {
		iri   string
		level int
		path  []string
	}
	var queue []queued
	for _, iri := range rawImports {
		queue = append(queue, queued{iri: iri, level: 1, path: append(append([]string{}, path...), iri)})
	}
	seen := map[string]bool{}
	for _, iri := range rawImports {
		seen[normalizeLocation(iri)] = true
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if depth >= 0 && cur.level > depth {
			continue
		}
		if _, err := ig.resolver.ResolveRawIRI(cur.iri); err == nil {
			continue // already resolvable, nothing to fetch
		}

		childOpts := opts
		childID, childImports, ferr := ig.ingestOne(cur.iri, childOpts)
		if ferr != nil {
			if opts.Strict {
				return GraphIdentifier{}, errs.Wrap(errOf(ferr), cur.iri, cur.path, ferr)
			}
			ig.log.WithField("iri", cur.iri).WithError(ferr).Warn("import left dangling")
			continue
		}
		_ = childID
		for _, childIRI := range childImports {
			norm := normalizeLocation(childIRI)
			if seen[norm] {
				continue
			}
			seen[norm] = true
			queue = append(queue, queued{iri: childIRI, level: cur.level + 1, path: append(append([]string{}, cur.path...), childIRI)})
		}
	}
	return id, nil
}

// errOf recovers the error kind from an error ingestOne already wrapped via
// errs.Wrap, so a strict-mode recursive failure can be re-annotated with
// the full import path without losing its original kind.
func errOf(err error) error {
	if ip, ok := err.(*errs.ImportPath); ok {
		return ip.Kind
	}
	return errs.ErrFetch
}

// ingestOne performs steps 1-10 of §4.3 for a single location, returning
// the resulting identifier and its raw owl:imports IRIs (for the caller's
// recursive fetch, step 11).
func (ig *Ingestor) ingestOne(locationStr string, opts AddOptions) (GraphIdentifier, []string, error) {
	loc := NewLocation(locationStr)

	// Step 2: consult cache by location.
	existing, hasExisting := ig.cat.byLocationString(loc)
	if hasExisting && opts.Refresh == RefreshUseCache {
		return existing.ID, existing.RawImports, nil
	}

	// Step 3: fetch.
	var prevMeta *FetchMetadata
	var lastFetched time.Time
	if hasExisting && opts.Overwrite != OverwriteForce && opts.Refresh != RefreshForce {
		prevMeta = &FetchMetadata{ETag: existing.ETag, LastModified: existing.LastModified, Mtime: existing.SourceMtime}
		lastFetched = existing.LastFetched
	}
	res, ferr := ig.fetcher.Fetch(loc, "", prevMeta, lastFetched)
	if ferr == ErrNotModified {
		existing.Touch(time.Now())
		return existing.ID, existing.RawImports, nil
	}
	if ferr != nil {
		return GraphIdentifier{}, nil, ferr
	}

	// Step 4: parse.
	parsed, perr := ig.parser.Parse(res.Bytes, res.FormatHint, loc.String())
	if perr != nil {
		return GraphIdentifier{}, nil, perr
	}

	// Step 5: determine declared ontology.
	name := parsed.DeclaredOntology
	if name == "" {
		if opts.RequireOntologyNames {
			return GraphIdentifier{}, nil, errs.Wrap(errs.ErrMissingOntologyDeclaration, loc.String(), nil, nil)
		}
		name = loc.String()
	}
	version := parsed.DeclaredVersion
	if version == "" {
		version = name
	}

	// Step 6: content hash.
	hash := contentHash(parsed.Triples, name)

	// Step 7: form candidate identifier, reconcile with any existing entry
	// under that exact identifier (which may differ from the by-location
	// entry when the declared name doesn't match the location).
	id := NewGraphIdentifier(name, version, loc)
	if prior, ok := ig.cat.get(id); ok {
		if prior.ContentHash == hash {
			prior.Touch(time.Now())
			return prior.ID, prior.RawImports, nil
		}
		if opts.Overwrite == OverwritePreserve && opts.Refresh != RefreshForce {
			return GraphIdentifier{}, nil, errs.Wrap(errs.ErrHashMismatch, loc.String(), nil, nil)
		}
		// Allow/Force: replace triples and metadata, bump generation.
		prior.ContentHash = hash
		prior.RawImports = parsed.RawImports
		prior.TripleCount = len(parsed.Triples)
		prior.Generation++
		prior.Touch(time.Now())
		prior.ETag = res.Metadata.ETag
		prior.LastModified = res.Metadata.LastModified
		prior.SourceMtime = res.Metadata.Mtime
		ig.cat.put(prior)
		if err := ig.writeGraph(id, parsed.Triples); err != nil {
			return GraphIdentifier{}, nil, err
		}
		ig.rewireImports(id, parsed.RawImports)
		return id, parsed.RawImports, nil
	}

	entry := &OntologyEntry{
		ID:             id,
		ContentHash:    hash,
		LastFetched:    time.Now(),
		SourceMtime:    res.Metadata.Mtime,
		ETag:           res.Metadata.ETag,
		LastModified:   res.Metadata.LastModified,
		RawImports:     parsed.RawImports,
		TripleCount:    len(parsed.Triples),
		PresentInStore: ig.persist != nil,
		Generation:     0,
	}
	ig.cat.put(entry)

	// Step 8: record alias if the location IRI differs from the declared name.
	if loc.IsURL() && loc.String() != name {
		ig.cat.setAlias(loc.String(), id)
	}

	// Step 9: persist triples.
	if err := ig.writeGraph(id, parsed.Triples); err != nil {
		return GraphIdentifier{}, nil, err
	}

	// Step 10: add node + edges to the Dependency Graph.
	ig.depGraph.AddNode(id)
	for _, raw := range parsed.RawImports {
		ig.depGraph.AddEdge(mustNodeIndex(ig.depGraph, id), raw)
	}

	return id, parsed.RawImports, nil
}

func (ig *Ingestor) writeGraph(id GraphIdentifier, triples []Triple) error {
	ig.runtime.Put(id, triples)
	if ig.persist != nil {
		return ig.persist(id, triples)
	}
	return nil
}

// rewireImports re-adds edges for an updated entry's (possibly changed)
// import list; stale edges from the previous content are left as-is since
// the Dependency Graph only ever grows new edges here — a full edge diff
// is unnecessary because closure traversal always re-resolves live state.
func (ig *Ingestor) rewireImports(id GraphIdentifier, rawImports []string) {
	node := mustNodeIndex(ig.depGraph, id)
	existing := map[string]bool{}
	for _, e := range ig.depGraph.Outgoing(node) {
		existing[e.RawIRI] = true
	}
	for _, raw := range rawImports {
		if !existing[raw] {
			ig.depGraph.AddEdge(node, raw)
		}
	}
}

func mustNodeIndex(g *DependencyGraph, id GraphIdentifier) int {
	n, ok := g.NodeIndex(id)
	if !ok {
		return g.AddNode(id)
	}
	return n
}

// contentHash computes sha256(canonical_nquads(triples)), hex-encoded, per
// §3 and §8's content-hash integrity invariant and entry.go's ContentHash
// doc comment: every triple is scoped to graph (the ontology's own name) as
// a Quad before serializing, so the hash is computed over N-Quads rather
// than bare N-Triples, then sorted for a canonical, order-independent
// encoding.
func contentHash(triples []Triple, graph string) string {
	lines := make([]string, len(triples))
	for i, t := range triples {
		lines[i] = NewQuad(t, graph).String()
	}
	sort.Strings(lines)
	h := sha256.New()
	for _, l := range lines {
		h.Write([]byte(l))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
