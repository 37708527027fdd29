package ontoenv

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v3"
	"github.com/sirupsen/logrus"

	"github.com/kahefi/ontoenv/errs"
	"github.com/kahefi/ontoenv/store"
)

// EnvDirName is the name of the environment directory created under an
// environment's root, per spec §6.
const EnvDirName = ".ontoenv"

const (
	storeFileName  = "store.r5tu"
	configFileName = "config.json"
	cacheDirName   = "cache"
)

type envState int

const (
	stateUninitialized envState = iota
	stateInitialized
	stateLoadedReadWrite
	stateLoadedReadOnly
	stateClosed
)

// Env is the Environment Facade (§4.8): the top-level object composing the
// Fetcher, Parser adapter, Runtime/Persistent Store, Dependency Graph,
// Resolver and Closure Engine, holding configuration and exposing the
// public operations. Its lifecycle follows spec §4.8's state machine:
// Uninitialized -> Initialized -> Loaded(readwrite|readonly) -> Closed.
type Env struct {
	mu    sync.RWMutex
	state envState

	root string
	dir  string
	cfg  Config

	sessionID string
	readOnly  bool

	st       *store.Store // nil for a --temporary, store-less environment
	cat      *catalog
	depGraph *DependencyGraph
	runtime  *RuntimeStore
	resolver *Resolver
	fetcher  *Fetcher
	parser   ParserAdapter
	ingestor *Ingestor
	closureE *ClosureEngine
	cache    *DiskCache
	mirror   *MirrorPublisher

	log *logrus.Entry
}

// Init creates a new environment rooted at root: the `.ontoenv` directory,
// its persisted config.json, and an empty persistent store, then loads it
// read-write. If overwrite is false and `.ontoenv` already exists, Init
// fails rather than clobbering it. A temporary environment (temporary=true)
// never touches disk beyond its config validation: the persistent store is
// skipped entirely and every graph lives only in the runtime store for the
// lifetime of the process (spec §6 CLI `--temporary`).
func Init(root string, cfg Config, overwrite, temporary bool) (*Env, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(absRoot, EnvDirName)

	if !temporary {
		if _, err := os.Stat(dir); err == nil {
			if !overwrite {
				return nil, fmt.Errorf("environment already exists at %s (use overwrite)", dir)
			}
			if err := os.RemoveAll(dir); err != nil {
				return nil, err
			}
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		if err := cfg.Save(dir); err != nil {
			return nil, err
		}
	}

	e, err := newEnvLoaded(absRoot, dir, cfg, false, temporary, true)
	if err != nil {
		return nil, err
	}
	e.log.Info("environment initialized")

	if !cfg.UseCachedOntologies {
		if _, err := e.Update(false); err != nil && cfg.Strict {
			e.Close()
			return nil, err
		}
	}
	return e, nil
}

// Load discovers the nearest `.ontoenv` directory walking up from root (or
// honors ONTOENV_DIR if set, per spec §6) and loads its store and config.
func Load(root string, readOnly bool) (*Env, error) {
	dir, absRoot, err := findEnvDir(root)
	if err != nil {
		return nil, err
	}
	cfg, err := LoadConfig(dir)
	if err != nil {
		return nil, err
	}
	return newEnvLoaded(absRoot, dir, cfg, readOnly, false, false)
}

// findEnvDir implements spec §6's "Environment variable" and walk-up
// discovery rules.
func findEnvDir(root string) (dir, rootOut string, err error) {
	if v := os.Getenv("ONTOENV_DIR"); v != "" {
		abs, err := filepath.Abs(v)
		if err != nil {
			return "", "", err
		}
		if filepath.Base(abs) == EnvDirName {
			return abs, filepath.Dir(abs), nil
		}
		return filepath.Join(abs, EnvDirName), abs, nil
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return "", "", err
	}
	cur := abs
	for {
		candidate := filepath.Join(cur, EnvDirName)
		if info, statErr := os.Stat(candidate); statErr == nil && info.IsDir() {
			return candidate, cur, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", "", fmt.Errorf("%w: no %s found above %s", errs.ErrNotFound, EnvDirName, abs)
		}
		cur = parent
	}
}

// newEnvLoaded wires every collaborator and, unless temporary, opens the
// persistent store under the appropriate lock mode.
func newEnvLoaded(root, dir string, cfg Config, readOnly, temporary, fresh bool) (*Env, error) {
	log := logrus.NewEntry(logrus.StandardLogger()).WithField("component", "env").WithField("root", root)

	e := &Env{
		root:      root,
		dir:       dir,
		cfg:       cfg,
		sessionID: shortuuid.New(),
		readOnly:  readOnly,
		cat:       newCatalog(),
		depGraph:  NewDependencyGraph(),
		runtime:   NewRuntimeStore(256),
		log:       log,
	}

	if !temporary {
		lockTimeout := time.Duration(cfg.LockTimeoutSecs) * time.Second
		var st *store.Store
		var err error
		if readOnly {
			st, err = store.OpenReader(filepath.Join(dir, storeFileName), lockTimeout)
		} else {
			st, err = store.OpenWriter(filepath.Join(dir, storeFileName), lockTimeout)
		}
		if err != nil && !(fresh && os.IsNotExist(err)) {
			return nil, err
		}
		e.st = st

		cacheDir := filepath.Join(dir, cacheDirName)
		cache, err := NewDiskCache(cacheDir)
		if err != nil {
			return nil, err
		}
		e.cache = cache

		if e.st != nil {
			if err := e.hydrateFromStore(); err != nil {
				e.st.Close()
				return nil, err
			}
		}
	}

	httpTimeout := time.Duration(cfg.HTTPTimeoutSecs) * time.Second
	ttl := time.Duration(cfg.RemoteCacheTTLSecs) * time.Second
	e.fetcher = NewFetcher(httpTimeout, cfg.Offline, ttl, log)
	if e.cache != nil {
		e.fetcher.SetCache(e.cache)
	}
	e.parser = NewParserAdapter()
	e.resolver = NewResolver(cfg.ResolutionPolicy, e.cat)
	e.closureE = NewClosureEngine(e.depGraph, e.resolver, e.loadGraph)

	var persist func(GraphIdentifier, []Triple) error
	if e.st != nil {
		persist = e.persistGraph
	}
	e.ingestor = NewIngestor(e.fetcher, e.parser, e.cat, e.depGraph, e.runtime, e.resolver, persist, log)

	if readOnly {
		e.state = stateLoadedReadOnly
	} else {
		e.state = stateLoadedReadWrite
	}
	return e, nil
}

// hydrateFromStore rebuilds the catalog and dependency graph from whatever
// the persistent store already holds, per spec §3's store-consistency
// invariant: "every OntologyEntry marked present in the Persistent Store has
// a corresponding graph present in the runtime store after load."
func (e *Env) hydrateFromStore() error {
	for _, rec := range e.st.ListGraphs() {
		loc := NewLocation(rec.SourceID)
		id := NewGraphIdentifier(rec.GraphName, rec.GraphName, loc)
		entry := &OntologyEntry{
			ID:             id,
			TripleCount:    rec.TripleCount,
			PresentInStore: true,
		}
		triples, err := e.loadGraphFromStore(id)
		if err != nil {
			return err
		}
		entry.ContentHash = contentHash(triples, rec.GraphName)
		subj := chooseOntologySubject(triples)
		if subj == "" {
			subj = rec.GraphName
		}
		entry.RawImports = ontologyImports(triples, subj)
		if v := ontologyVersion(triples, subj); v != "" {
			entry.ID.Version = v
		}
		id = entry.ID
		e.cat.put(entry)
		e.runtime.Put(id, triples)
		if loc.IsURL() && loc.String() != rec.GraphName {
			e.cat.setAlias(loc.String(), id)
		}
		node := e.depGraph.AddNode(id)
		for _, raw := range entry.RawImports {
			e.depGraph.AddEdge(node, raw)
		}
	}
	return nil
}

func (e *Env) checkOpen() error {
	if e.state == stateClosed {
		return errs.ErrClosed
	}
	return nil
}

func (e *Env) checkWritable() error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	if e.readOnly {
		return errs.ErrReadOnlyViolation
	}
	return nil
}

// --- Config accessors (§4.8) ---

// Offline reports the configured offline flag.
func (e *Env) Offline() bool { return e.cfg.Offline }

// Strict reports the configured strict flag.
func (e *Env) Strict() bool { return e.cfg.Strict }

// ResolutionPolicy reports the configured resolution policy.
func (e *Env) ResolutionPolicy() ResolutionPolicy { return e.cfg.ResolutionPolicy }

// RequireOntologyNames reports whether undeclared ontologies are rejected.
func (e *Env) RequireOntologyNames() bool { return e.cfg.RequireOntologyNames }

// NoSearch reports whether discovery is disabled.
func (e *Env) NoSearch() bool { return e.cfg.NoSearch }

// RemoteCacheTTL reports the configured remote cache TTL.
func (e *Env) RemoteCacheTTL() time.Duration {
	return time.Duration(e.cfg.RemoteCacheTTLSecs) * time.Second
}

// Config returns a copy of the environment's current configuration.
func (e *Env) Config() Config { return e.cfg }

// Root returns the environment's root directory.
func (e *Env) Root() string { return e.root }

// SessionID returns a short id unique to this loaded Env instance, useful
// for correlating log lines across a single process's lifetime.
func (e *Env) SessionID() string { return e.sessionID }

// --- Persistence bridge between ontoenv.Triple and store.TripleIDs ---

func (e *Env) persistGraph(id GraphIdentifier, triples []Triple) error {
	if e.st == nil {
		return nil
	}
	dict := e.st.Dictionary()
	ids := make([]store.TripleIDs, len(triples))
	for i, t := range triples {
		ids[i] = store.TripleIDs{
			Subj: dict.Intern(t.Subject.String()),
			Pred: dict.Intern(t.Predicate.String()),
			Obj:  dict.Intern(t.Object.String()),
		}
	}
	return e.st.PutGraph(id.Location.String(), id.Name, ids)
}

func (e *Env) loadGraphFromStore(id GraphIdentifier) ([]Triple, error) {
	if e.st == nil {
		return nil, errs.ErrNotFound
	}
	ids, ok, err := e.st.GetGraph(id.Location.String(), id.Name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.ErrNotFound
	}
	dict := e.st.Dictionary()
	out := make([]Triple, len(ids))
	for i, tid := range ids {
		s, _ := dict.Lookup(tid.Subj)
		p, _ := dict.Lookup(tid.Pred)
		o, _ := dict.Lookup(tid.Obj)
		out[i] = Triple{Subject: Term(s), Predicate: Term(p), Object: Term(o)}
	}
	return out, nil
}

// loadGraph is the ClosureEngine's loader: runtime store first, persistent
// store on a miss, populating the runtime store on the way out.
func (e *Env) loadGraph(id GraphIdentifier) ([]Triple, error) {
	if triples, ok := e.runtime.AllTriples(id); ok {
		return triples, nil
	}
	triples, err := e.loadGraphFromStore(id)
	if err != nil {
		return nil, err
	}
	e.runtime.Put(id, triples)
	return triples, nil
}

// --- Public operations (§4.3-§4.6, §4.8) ---

// Add ingests locationOrIRI, recursively following its owl:imports unless
// noImports is set, per spec §4.3.
func (e *Env) Add(locationOrIRI string, noImports, overwrite bool) (GraphIdentifier, error) {
	if err := e.checkWritable(); err != nil {
		return GraphIdentifier{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	opts := e.defaultAddOptions(overwrite)
	if noImports {
		return e.ingestor.AddNoImports(locationOrIRI, opts)
	}
	return e.ingestor.Add(locationOrIRI, opts)
}

func (e *Env) defaultAddOptions(overwrite bool) AddOptions {
	ovr := OverwritePreserve
	if overwrite {
		ovr = OverwriteAllow
	}
	return AddOptions{
		Overwrite:            ovr,
		Refresh:              RefreshNormal,
		Strict:               e.cfg.Strict,
		RequireOntologyNames: e.cfg.RequireOntologyNames,
		RecursionDepth:       -1,
	}
}

// Remove deletes id from the catalog, runtime store, dependency graph and
// (if present) the persistent store. Incoming edges become dangling rather
// than being removed, per spec §3's dependency-integrity invariant.
func (e *Env) Remove(id GraphIdentifier) error {
	if err := e.checkWritable(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.cat.get(id); !ok {
		return errs.ErrNotFound
	}
	e.cat.remove(id)
	e.runtime.Remove(id)
	if node, ok := e.depGraph.NodeIndex(id); ok {
		e.depGraph.RemoveNode(node)
	}
	if e.st != nil {
		if err := e.st.RemoveGraph(id.Location.String(), id.Name); err != nil && err != errs.ErrNotFound {
			return err
		}
	}
	return nil
}

// GetGraph returns the triples stored for id.
func (e *Env) GetGraph(id GraphIdentifier) ([]Triple, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loadGraph(id)
}

// GetClosure resolves target and returns its BFS import closure, per §4.6.
func (e *Env) GetClosure(target ResolveTarget, depth int) ([]GraphIdentifier, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	id, err := e.resolver.Resolve(target)
	if err != nil {
		return nil, err
	}
	return e.closureE.Closure(id, depth)
}

// GetUnionGraph resolves target, computes its closure, and merges the
// closure's triples under opts, per §4.6.
func (e *Env) GetUnionGraph(target ResolveTarget, depth int, opts ClosureOptions) ([]Triple, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	id, err := e.resolver.Resolve(target)
	if err != nil {
		return nil, err
	}
	ids, err := e.closureE.Closure(id, depth)
	if err != nil {
		return nil, err
	}
	return e.closureE.GetUnionGraph(ids, opts)
}

// ImportDependencies implements §4.6's import_dependencies over an external
// graph the caller owns (not one already tracked by this environment).
func (e *Env) ImportDependencies(external []Triple, fetchMissing bool) ([]Triple, []string, error) {
	if err := e.checkOpen(); err != nil {
		return nil, nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	addFn := func(rawIRI string) (GraphIdentifier, error) {
		if e.readOnly {
			return GraphIdentifier{}, errs.ErrReadOnlyViolation
		}
		return e.ingestor.Add(rawIRI, e.defaultAddOptions(false))
	}
	return e.closureE.ImportDependencies(external, fetchMissing, e.cfg.Strict, addFn)
}

// List returns every known OntologyEntry.
func (e *Env) List() []*OntologyEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entries := e.cat.all()
	out := make([]*OntologyEntry, len(entries))
	for i, ent := range entries {
		out[i] = ent.Clone()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Name < out[j].ID.Name })
	return out
}

// Missing lists every raw import IRI that has no resolved target anywhere
// in the dependency graph (the CLI's `list missing`).
func (e *Env) Missing() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, ent := range e.cat.all() {
		node, ok := e.depGraph.NodeIndex(ent.ID)
		if !ok {
			continue
		}
		for _, edge := range e.depGraph.Outgoing(node) {
			if !edge.Ok && !seen[edge.RawIRI] {
				seen[edge.RawIRI] = true
				out = append(out, edge.RawIRI)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Importers returns the identifiers with a resolved edge pointing directly
// at id (its direct importers).
func (e *Env) Importers(id GraphIdentifier) ([]GraphIdentifier, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	node, ok := e.depGraph.NodeIndex(id)
	if !ok {
		return nil, errs.ErrNotFound
	}
	var out []GraphIdentifier
	for _, from := range e.depGraph.Incoming(node) {
		if gid, ok := e.depGraph.Node(from); ok {
			out = append(out, gid)
		}
	}
	return out, nil
}

// Why walks incoming edges backward from id and returns every distinct
// chain of importers that pulled it into the environment, root first,
// id last (§12 supplement). Cycles are broken by refusing to revisit a
// node already on the current chain.
func (e *Env) Why(id GraphIdentifier) ([][]GraphIdentifier, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	node, ok := e.depGraph.NodeIndex(id)
	if !ok {
		return nil, errs.ErrNotFound
	}

	var chains [][]int
	var walk func(n int, tail []int, onChain map[int]bool)
	walk = func(n int, tail []int, onChain map[int]bool) {
		incoming := e.depGraph.Incoming(n)
		if len(incoming) == 0 {
			chain := append([]int{n}, tail...)
			chains = append(chains, chain)
			return
		}
		for _, from := range incoming {
			if onChain[from] {
				continue // cycle: don't walk back through an ancestor already on this chain
			}
			next := make(map[int]bool, len(onChain)+1)
			for k := range onChain {
				next[k] = true
			}
			next[n] = true
			walk(from, append([]int{n}, tail...), next)
		}
	}
	walk(node, nil, map[int]bool{node: true})

	out := make([][]GraphIdentifier, 0, len(chains))
	for _, chain := range chains {
		ids := make([]GraphIdentifier, 0, len(chain))
		for _, n := range chain {
			if gid, ok := e.depGraph.Node(n); ok {
				ids = append(ids, gid)
			}
		}
		out = append(out, ids)
	}
	return out, nil
}

// UpdateReport summarizes an Update call's outcome.
type UpdateReport struct {
	Updated []GraphIdentifier
	Skipped []string // excluded by include_ontologies/exclude_ontologies
	Failed  []FailedUpdate
}

// FailedUpdate records a location that failed to (re-)ingest during Update.
type FailedUpdate struct {
	Location string
	Err      error
}

// Update rediscovers files under the configured locations and re-ingests
// them: when all is true every known entry is force re-ingested regardless
// of freshness; otherwise entries are re-ingested only when the Fetcher
// decides they're stale (advanced mtime or expired remote TTL), per §4.8.
func (e *Env) Update(all bool) (*UpdateReport, error) {
	if err := e.checkWritable(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	report := &UpdateReport{}
	refresh := RefreshNormal
	if all {
		refresh = RefreshForce
	}
	opts := AddOptions{
		Overwrite:            OverwriteAllow,
		Refresh:              refresh,
		Strict:               e.cfg.Strict,
		RequireOntologyNames: e.cfg.RequireOntologyNames,
		RecursionDepth:       -1,
	}

	includeRx, excludeRx, err := e.ontologyFilters()
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{}
	visit := func(location string) error {
		key := NewLocation(location).String()
		if visited[key] {
			return nil
		}
		visited[key] = true
		id, err := e.ingestor.AddNoImports(location, opts)
		if err != nil {
			report.Failed = append(report.Failed, FailedUpdate{Location: location, Err: err})
			if e.cfg.Strict {
				return err
			}
			return nil
		}
		if !ontologyAllowed(id.Name, includeRx, excludeRx) {
			e.cat.remove(id)
			if node, ok := e.depGraph.NodeIndex(id); ok {
				e.depGraph.RemoveNode(node)
			}
			report.Skipped = append(report.Skipped, id.Name)
			return nil
		}
		report.Updated = append(report.Updated, id)
		return nil
	}

	if !e.cfg.NoSearch && len(e.cfg.Locations) > 0 {
		files, err := discoverFiles(e.cfg.Locations, e.cfg.Includes, e.cfg.Excludes)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if err := visit(f); err != nil {
				return report, err
			}
		}
	}

	// Re-check every already-known entry not visited above (remote entries,
	// and local files outside the configured locations).
	for _, ent := range e.cat.all() {
		if err := visit(ent.ID.Location.String()); err != nil {
			return report, err
		}
	}

	return report, nil
}

func (e *Env) ontologyFilters() (include, exclude []*regexp.Regexp, err error) {
	include, err = compileAll(e.cfg.IncludeOntologies)
	if err != nil {
		return nil, nil, err
	}
	exclude, err = compileAll(e.cfg.ExcludeOntologies)
	if err != nil {
		return nil, nil, err
	}
	return include, exclude, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		rx, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid ontology filter pattern %q: %w", p, err)
		}
		out = append(out, rx)
	}
	return out, nil
}

func ontologyAllowed(name string, include, exclude []*regexp.Regexp) bool {
	for _, rx := range exclude {
		if rx.MatchString(name) {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, rx := range include {
		if rx.MatchString(name) {
			return true
		}
	}
	return false
}

// DoctorReport captures the §8 invariant sweep's findings.
type DoctorReport struct {
	HashMismatches     []GraphIdentifier
	DanglingResolvable []string // raw import IRIs that resolve now but whose edge is still marked dangling
	BrokenAliases      []string // aliases whose target no longer exists
	OrphanedGraphs     []string // persistent-store graphs with no catalog entry
}

// OK reports whether the sweep found no problems.
func (r *DoctorReport) OK() bool {
	return len(r.HashMismatches) == 0 && len(r.DanglingResolvable) == 0 &&
		len(r.BrokenAliases) == 0 && len(r.OrphanedGraphs) == 0
}

// Doctor runs the §8 invariant checks as a callable consistency sweep
// (§12 supplement), rather than only ever verifying them implicitly.
func (e *Env) Doctor() (*DoctorReport, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	report := &DoctorReport{}
	for _, ent := range e.cat.all() {
		triples, err := e.loadGraph(ent.ID)
		if err != nil {
			continue
		}
		if contentHash(triples, ent.ID.Name) != ent.ContentHash {
			report.HashMismatches = append(report.HashMismatches, ent.ID)
		}
		if node, ok := e.depGraph.NodeIndex(ent.ID); ok {
			for _, edge := range e.depGraph.Outgoing(node) {
				if !edge.Ok {
					if _, err := e.resolver.ResolveRawIRI(edge.RawIRI); err == nil {
						report.DanglingResolvable = append(report.DanglingResolvable, edge.RawIRI)
					}
				}
			}
		}
	}

	if e.st != nil {
		for _, rec := range e.st.ListGraphs() {
			ent, ok := e.cat.byLocationString(NewLocation(rec.SourceID))
			if !ok || ent.ID.Name != rec.GraphName {
				report.OrphanedGraphs = append(report.OrphanedGraphs, rec.GraphName)
			}
		}
	}

	for fromIRI, target := range e.cat.allAliases() {
		if _, ok := e.cat.get(target); !ok {
			report.BrokenAliases = append(report.BrokenAliases, fromIRI)
		}
	}
	sort.Strings(report.BrokenAliases)

	return report, nil
}

// DotGraph renders the Dependency Graph as GraphViz DOT source (§12's
// `dep-graph` supplement); the actual rendering to an image is an external
// collaborator's job, per spec §1's out-of-scope list.
func (e *Env) DotGraph() string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var b strings.Builder
	b.WriteString("digraph ontoenv {\n")
	for _, ent := range e.cat.all() {
		node, ok := e.depGraph.NodeIndex(ent.ID)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "  %q;\n", ent.ID.Name)
		for _, edge := range e.depGraph.Outgoing(node) {
			if !edge.Ok {
				fmt.Fprintf(&b, "  %q -> %q [style=dashed];\n", ent.ID.Name, edge.RawIRI)
				continue
			}
			target, _ := e.depGraph.Node(edge.Resolved)
			fmt.Fprintf(&b, "  %q -> %q;\n", ent.ID.Name, target.Name)
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// EnableMirror attaches a SPARQL-endpoint mirror publisher (§12's Mirror
// Publisher supplement) that PublishClosure can push materialized union
// graphs to.
func (e *Env) EnableMirror(hostAddr, namespace string) error {
	m := NewMirrorPublisher(hostAddr, namespace)
	if err := m.EnsureNamespace(); err != nil {
		return err
	}
	e.mirror = m
	return nil
}

// PublishClosure resolves target, materializes its union graph under opts,
// and publishes it to the mirror endpoint under graph IRI target's resolved
// name. Returns errs.ErrNotFound-wrapped error if no mirror is enabled.
func (e *Env) PublishClosure(target ResolveTarget, opts ClosureOptions) error {
	if e.mirror == nil {
		return fmt.Errorf("%w: no mirror configured", errs.ErrNotFound)
	}
	id, err := e.resolver.Resolve(target)
	if err != nil {
		return err
	}
	triples, err := e.GetUnionGraph(target, -1, opts)
	if err != nil {
		return err
	}
	ttl, err := bufferedTurtle(id.Name, triples)
	if err != nil {
		return err
	}
	if err := e.mirror.PublishGraph(id.Name, strings.NewReader(ttl)); err != nil {
		return err
	}
	if len(triples) == 0 {
		return nil
	}
	n, err := e.mirror.GraphSize(id.Name)
	if err != nil {
		return fmt.Errorf("publish verification failed for %q: %w", id.Name, err)
	}
	if n == 0 {
		return fmt.Errorf("publish verification failed: mirror graph %q reports 0 triples after publish", id.Name)
	}
	return nil
}

// Flush atomically persists any staged writes to the persistent store.
// A no-op for temporary (store-less) environments.
func (e *Env) Flush() error {
	if err := e.checkWritable(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st == nil {
		return nil
	}
	return e.st.Flush()
}

// Close flushes (best-effort, ignoring a read-only violation) and releases
// the store's file handle and lock. A Closed Env rejects all further
// operations, per §4.8's state machine.
func (e *Env) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == stateClosed {
		return nil
	}
	var err error
	if e.st != nil {
		if !e.readOnly {
			err = e.st.Flush()
		}
		if cerr := e.st.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	e.state = stateClosed
	return err
}
