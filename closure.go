package ontoenv

import (
	"sort"

	"github.com/kahefi/ontoenv/errs"
)

// ClosureOptions controls the triple-level rewrites get_union_graph may
// apply while merging (§4.6).
type ClosureOptions struct {
	RemoveOWLImports  bool
	RewriteSHPrefixes bool
}

// ClosureEngine computes import closures over a DependencyGraph and
// materializes merged graphs from them. Every edge is re-resolved through
// the Resolver at the moment it is visited rather than trusting whatever
// the graph cached at insert time — spec.md §9's "late resolution" note —
// since the set of known identifiers, and therefore what a raw import IRI
// resolves to, keeps changing as the environment grows.
type ClosureEngine struct {
	graph    *DependencyGraph
	resolver *Resolver
	loader   func(GraphIdentifier) ([]Triple, error)
}

// NewClosureEngine creates a closure engine over graph, resolving edges
// with resolver and loading graph content on demand via loader (typically
// backed by the RuntimeStore with a Persistent Store fallback).
func NewClosureEngine(graph *DependencyGraph, resolver *Resolver, loader func(GraphIdentifier) ([]Triple, error)) *ClosureEngine {
	return &ClosureEngine{graph: graph, resolver: resolver, loader: loader}
}

// Closure performs a breadth-first traversal from rootID following
// declaration-order owl:imports edges, stopping at depth levels beyond the
// root when depth >= 0 (depth == 0 returns just the root). Unresolved
// (dangling) edges are silently skipped — callers that need strict failure
// on a missing import enforce that during ingestion, not here.
func (c *ClosureEngine) Closure(rootID GraphIdentifier, depth int) ([]GraphIdentifier, error) {
	rootNode, ok := c.graph.NodeIndex(rootID)
	if !ok {
		return nil, errs.ErrNotFound
	}

	visited := map[int]bool{rootNode: true}
	order := []GraphIdentifier{rootID}

	type queued struct{ node, level int }
	queue := []queued{{rootNode, 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if depth >= 0 && cur.level >= depth {
			continue
		}
		for _, e := range c.graph.Outgoing(cur.node) {
			target, err := c.resolver.ResolveRawIRI(e.RawIRI)
			if err != nil {
				continue // dangling edge, not yet resolvable
			}
			node, ok := c.graph.NodeIndex(target)
			if !ok || visited[node] {
				continue
			}
			visited[node] = true
			id, _ := c.graph.Node(node)
			order = append(order, id)
			queue = append(queue, queued{node, cur.level + 1})
		}
	}
	return order, nil
}

// GetUnionGraph merges the triples of every graph named in ids into one
// deduplicated slice (union as a set, per spec.md §8's merge-commutativity
// law), applying the requested rewrites. Source graphs are never mutated:
// every per-graph slice is copied before any rewrite runs.
func (c *ClosureEngine) GetUnionGraph(ids []GraphIdentifier, opts ClosureOptions) ([]Triple, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	perGraph := make([][]Triple, len(ids))
	for i, id := range ids {
		triples, err := c.loader(id)
		if err != nil {
			return nil, err
		}
		cp := make([]Triple, len(triples))
		copy(cp, triples)
		perGraph[i] = cp
	}

	var rootPrefixObj string
	if opts.RewriteSHPrefixes {
		rootPrefixObj = ontologyPrefixesObject(perGraph[0], ids[0].Name)
	}

	seen := map[string]bool{}
	var union []Triple
	for _, triples := range perGraph {
		if opts.RemoveOWLImports {
			triples = withoutOWLImports(triples)
		}
		if opts.RewriteSHPrefixes && rootPrefixObj != "" {
			triples = rewriteAllSHPrefixesTo(triples, rootPrefixObj)
		}
		for _, t := range triples {
			k := t.String()
			if seen[k] {
				continue
			}
			seen[k] = true
			union = append(union, t)
		}
	}
	return union, nil
}

// ImportDependencies implements §4.6's import_dependencies: it reads the
// ontology declaration and owl:imports IRIs directly out of external (a
// graph the caller owns, not one already tracked by this environment),
// resolves each import, optionally ingests missing ones via addFn, unions
// in the full closure of whatever resolved, strips owl:imports from the
// result, and returns the sorted set of ontology IRIs that ended up merged.
func (c *ClosureEngine) ImportDependencies(external []Triple, fetchMissing, strict bool, addFn func(rawIRI string) (GraphIdentifier, error)) ([]Triple, []string, error) {
	subject := chooseOntologySubject(external)
	imports := ontologyImports(external, subject)

	merged := map[string]bool{}
	var roots []GraphIdentifier
	for _, iri := range imports {
		id, err := c.resolver.ResolveRawIRI(iri)
		if err != nil {
			if fetchMissing && addFn != nil {
				id, err = addFn(iri)
			}
		}
		if err != nil {
			if strict {
				return nil, nil, errs.Wrap(errs.ErrNotFound, iri, []string{iri}, err)
			}
			continue
		}
		roots = append(roots, id)
		merged[id.Name] = true
	}

	seen := map[string]bool{}
	var extra []Triple
	for _, root := range roots {
		closureIDs, err := c.Closure(root, -1)
		if err != nil {
			if strict {
				return nil, nil, err
			}
			continue
		}
		for _, cid := range closureIDs {
			merged[cid.Name] = true
			triples, err := c.loader(cid)
			if err != nil {
				if strict {
					return nil, nil, err
				}
				continue
			}
			for _, t := range triples {
				k := t.String()
				if seen[k] {
					continue
				}
				seen[k] = true
				extra = append(extra, t)
			}
		}
	}

	result := withoutOWLImports(external)
	result = append(result, withoutOWLImports(extra)...)

	iris := make([]string, 0, len(merged))
	for iri := range merged {
		iris = append(iris, iri)
	}
	sort.Strings(iris)
	return result, iris, nil
}
