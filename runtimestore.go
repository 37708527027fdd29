package ontoenv

import (
	"bytes"
	"fmt"
	"io"

	"github.com/deiu/rdf2go"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kahefi/ontoenv/errs"
)

// graphHandle is a single named graph held in memory, backed by rdf2go the
// way the teacher's MemoryStore was. Adapted here to be addressed by
// GraphIdentifier rather than bare URI, and to live inside a RuntimeStore
// instead of standing alone.
type graphHandle struct {
	uri   string
	graph *rdf2go.Graph
}

func newGraphHandle(uri string) *graphHandle {
	return &graphHandle{uri: uri, graph: rdf2go.NewGraph(uri)}
}

func (h *graphHandle) getAllMatches(subj, pred, obj string) []Triple {
	triples := []Triple{}
	if subj == "" && pred == "" && obj == "" {
		for trp := range h.graph.IterTriples() {
			triples = append(triples, rdfTriple(trp))
		}
		return triples
	}
	for _, trp := range h.graph.All(toRdfTerm(subj), toRdfTerm(pred), toRdfTerm(obj)) {
		triples = append(triples, rdfTriple(trp))
	}
	return triples
}

func (h *graphHandle) addTriple(trp Triple) error {
	found := h.graph.One(toRdfTerm(trp.Subject.String()), toRdfTerm(trp.Predicate.String()), toRdfTerm(trp.Object.String()))
	if found != nil {
		return errs.ErrTripleAlreadyExists
	}
	h.graph.AddTriple(toRdfTerm(trp.Subject.String()), toRdfTerm(trp.Predicate.String()), toRdfTerm(trp.Object.String()))
	return nil
}

func (h *graphHandle) addTripleUnchecked(trp Triple) {
	if err := h.addTriple(trp); err != nil && err != errs.ErrTripleAlreadyExists {
		panic(err) // addTriple only ever returns ErrTripleAlreadyExists
	}
}

func (h *graphHandle) deleteAllMatches(subj, pred, obj string) {
	for _, trp := range h.getAllMatches(subj, pred, obj) {
		rdfTrp := h.graph.One(toRdfTerm(trp.Subject.String()), toRdfTerm(trp.Predicate.String()), toRdfTerm(trp.Object.String()))
		h.graph.Remove(rdfTrp)
	}
}

func (h *graphHandle) size() int {
	return h.graph.Len()
}

func (h *graphHandle) serialize(w io.Writer) error {
	return h.graph.Serialize(w, "text/turtle")
}

func rdfTriple(trp *rdf2go.Triple) Triple {
	return Triple{
		Subject:   Term(trp.Subject.String()),
		Predicate: Term(trp.Predicate.String()),
		Object:    Term(trp.Object.String()),
	}
}

func toRdfTerm(term string) rdf2go.Term {
	if term == "" {
		return nil
	}
	t := Term(term)
	if t.IsResource() {
		return rdf2go.NewResource(t.Value())
	}
	if t.IsBlank() {
		return rdf2go.NewBlankNode(t.Value())
	}
	if t.IsLiteral() {
		if t.Language() != "" {
			return rdf2go.NewLiteralWithLanguage(t.Value(), t.Language())
		}
		if t.Datatype() != "" {
			return rdf2go.NewLiteralWithDatatype(t.Value(), toRdfTerm(NewResourceTerm(t.Datatype()).String()))
		}
		return rdf2go.NewLiteral(t.Value())
	}
	panic(fmt.Sprintf("invalid term %q", term))
}

// RuntimeStore is the in-memory quad store that mirrors a subset of the
// Persistent Store for fast query/merge, per spec §4's component 4
// ("Runtime Store"). Graphs are evicted under an LRU policy so that an
// environment with many cached ontologies doesn't hold every triple in
// memory at once; eviction only drops the runtime copy, never the
// Persistent Store's on-disk copy.
type RuntimeStore struct {
	cache *lru.Cache[graphIDKey, *graphHandle]
}

// NewRuntimeStore creates a runtime store that keeps at most capacity
// distinct graphs resident in memory.
func NewRuntimeStore(capacity int) *RuntimeStore {
	if capacity <= 0 {
		capacity = 256
	}
	c, _ := lru.New[graphIDKey, *graphHandle](capacity)
	return &RuntimeStore{cache: c}
}

// Put installs the triples for id, replacing anything previously held for it.
func (rs *RuntimeStore) Put(id GraphIdentifier, triples []Triple) {
	h := newGraphHandle(id.Name)
	for _, t := range triples {
		h.addTripleUnchecked(t)
	}
	rs.cache.Add(id.key(), h)
}

// Get returns the graph handle for id, loading it lazily via load if absent.
func (rs *RuntimeStore) Get(id GraphIdentifier, load func() ([]Triple, error)) (*graphHandle, error) {
	if h, ok := rs.cache.Get(id.key()); ok {
		return h, nil
	}
	triples, err := load()
	if err != nil {
		return nil, err
	}
	rs.Put(id, triples)
	h, _ := rs.cache.Get(id.key())
	return h, nil
}

// Remove evicts id from the runtime store.
func (rs *RuntimeStore) Remove(id GraphIdentifier) {
	rs.cache.Remove(id.key())
}

// AllTriples returns every triple currently held for id (wildcard query).
func (rs *RuntimeStore) AllTriples(id GraphIdentifier) ([]Triple, bool) {
	h, ok := rs.cache.Get(id.key())
	if !ok {
		return nil, false
	}
	return h.getAllMatches("", "", ""), true
}

// Serialize writes id's graph as Turtle into w.
func (rs *RuntimeStore) Serialize(id GraphIdentifier, w io.Writer) error {
	h, ok := rs.cache.Get(id.key())
	if !ok {
		return errs.ErrNotFound
	}
	return h.serialize(w)
}

// bufferedTurtle is a small helper used by the mirror publisher to get a
// single Turtle payload for a set of triples without allocating a graphHandle
// per call site.
func bufferedTurtle(uri string, triples []Triple) (string, error) {
	h := newGraphHandle(uri)
	for _, t := range triples {
		h.addTripleUnchecked(t)
	}
	var buf bytes.Buffer
	if err := h.serialize(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
