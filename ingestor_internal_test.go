package ontoenv

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/kahefi/ontoenv/errs"
)

// fakeParser lets ingestor tests control exactly what a location "parses
// to" without needing real Turtle bytes on disk; it keys fixtures by the
// normalized location string the Ingestor passes as baseIRI.
type fakeParser struct {
	mu   sync.Mutex
	data map[string]*ParsedGraph
}

func newFakeParser() *fakeParser {
	return &fakeParser{data: map[string]*ParsedGraph{}}
}

func (p *fakeParser) set(loc string, pg *ParsedGraph) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[loc] = pg
}

func (p *fakeParser) unset(loc string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.data, loc)
}

func (p *fakeParser) Parse(data []byte, formatHint, baseIRI string) (*ParsedGraph, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pg, ok := p.data[baseIRI]
	if !ok {
		return nil, errs.Wrap(errs.ErrParse, baseIRI, nil, nil)
	}
	cp := *pg
	return &cp, nil
}

var _ = Describe("Ingestor", func() {

	var (
		dir       string
		parser    *fakeParser
		cat       *catalog
		depGraph  *DependencyGraph
		runtime   *RuntimeStore
		resolver  *Resolver
		persisted map[graphIDKey][]Triple
		ig        *Ingestor
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "ontoenv-ingestor-*")
		Expect(err).NotTo(HaveOccurred())

		parser = newFakeParser()
		cat = newCatalog()
		depGraph = NewDependencyGraph()
		runtime = NewRuntimeStore(16)
		resolver = NewResolver(PolicyDefault, cat)
		persisted = map[graphIDKey][]Triple{}
		persist := func(id GraphIdentifier, triples []Triple) error {
			persisted[id.key()] = append([]Triple(nil), triples...)
			return nil
		}
		ig = NewIngestor(NewFetcher(5*time.Second, false, 0, nil), parser, cat, depGraph, runtime, resolver, persist, nil)
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	writeFixture := func(name string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte("placeholder-"+name), 0644)).To(Succeed())
		return path
	}

	ontologyTriple := func(subj string) Triple {
		return Triple{Subject: NewResourceTerm(subj), Predicate: NewResourceTerm(RDFType), Object: NewResourceTerm(OWLOntology)}
	}

	Describe("Ingesting a single location with no imports", func() {
		It("records a catalog entry, runtime triples, a persisted write and a dependency graph node", func() {
			path := writeFixture("a.ttl")
			loc := NewLocation(path)
			parser.set(loc.String(), &ParsedGraph{
				Triples:          []Triple{ontologyTriple("urn:a")},
				DeclaredOntology: "urn:a",
			})

			id, err := ig.AddNoImports(path, AddOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(id.Name).To(Equal("urn:a"))
			Expect(id.Version).To(Equal("urn:a"))

			entry, ok := cat.get(id)
			Expect(ok).To(BeTrue())
			Expect(entry.TripleCount).To(Equal(1))
			Expect(entry.Generation).To(Equal(uint64(0)))

			triples, ok := runtime.AllTriples(id)
			Expect(ok).To(BeTrue())
			Expect(triples).To(HaveLen(1))

			Expect(persisted[id.key()]).To(HaveLen(1))

			_, ok = depGraph.NodeIndex(id)
			Expect(ok).To(BeTrue())
		})
	})

	Describe("Re-ingesting the same location under the default refresh strategy", func() {
		It("returns the cached identifier without re-parsing", func() {
			path := writeFixture("a.ttl")
			loc := NewLocation(path)
			parser.set(loc.String(), &ParsedGraph{
				Triples:          []Triple{ontologyTriple("urn:a")},
				DeclaredOntology: "urn:a",
			})

			id1, err := ig.AddNoImports(path, AddOptions{})
			Expect(err).NotTo(HaveOccurred())

			// Remove the fixture from the fake parser; if Refresh=UseCache
			// truly short-circuits before any fetch/parse, this must not matter.
			parser.unset(loc.String())

			id2, err := ig.AddNoImports(path, AddOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(id2).To(Equal(id1))
		})
	})

	Describe("Re-ingesting a location whose content changed", func() {
		It("rejects the overwrite under OverwritePreserve", func() {
			path := writeFixture("a.ttl")
			loc := NewLocation(path)
			parser.set(loc.String(), &ParsedGraph{
				Triples:          []Triple{ontologyTriple("urn:a")},
				DeclaredOntology: "urn:a",
			})
			_, err := ig.AddNoImports(path, AddOptions{})
			Expect(err).NotTo(HaveOccurred())

			parser.set(loc.String(), &ParsedGraph{
				Triples:          []Triple{ontologyTriple("urn:a"), ontologyTriple("urn:a-extra")},
				DeclaredOntology: "urn:a",
			})
			// Advance the fixture's mtime so a normal refresh re-reads it
			// instead of taking the unchanged-mtime shortcut.
			future := time.Now().Add(time.Hour)
			Expect(os.Chtimes(path, future, future)).To(Succeed())
			_, err = ig.AddNoImports(path, AddOptions{Refresh: RefreshNormal, Overwrite: OverwritePreserve})
			Expect(err).To(HaveOccurred())
			Expect(err).To(MatchError(errs.ErrHashMismatch))
		})

		It("replaces triples and bumps the generation counter under OverwriteAllow", func() {
			path := writeFixture("a.ttl")
			loc := NewLocation(path)
			parser.set(loc.String(), &ParsedGraph{
				Triples:          []Triple{ontologyTriple("urn:a")},
				DeclaredOntology: "urn:a",
			})
			id1, err := ig.AddNoImports(path, AddOptions{})
			Expect(err).NotTo(HaveOccurred())

			parser.set(loc.String(), &ParsedGraph{
				Triples:          []Triple{ontologyTriple("urn:a"), ontologyTriple("urn:a-extra")},
				DeclaredOntology: "urn:a",
			})
			id2, err := ig.AddNoImports(path, AddOptions{Refresh: RefreshForce, Overwrite: OverwriteAllow})
			Expect(err).NotTo(HaveOccurred())
			Expect(id2).To(Equal(id1))

			entry, ok := cat.get(id1)
			Expect(ok).To(BeTrue())
			Expect(entry.Generation).To(Equal(uint64(1)))
			Expect(entry.TripleCount).To(Equal(2))

			triples, ok := runtime.AllTriples(id1)
			Expect(ok).To(BeTrue())
			Expect(triples).To(HaveLen(2))
		})
	})

	Describe("Ingesting a location that declares no ontology IRI", func() {
		It("falls back to the location string as the name", func() {
			path := writeFixture("anon.ttl")
			loc := NewLocation(path)
			parser.set(loc.String(), &ParsedGraph{Triples: nil})

			id, err := ig.AddNoImports(path, AddOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(id.Name).To(Equal(loc.String()))
		})

		It("errors when RequireOntologyNames is set", func() {
			path := writeFixture("anon.ttl")
			loc := NewLocation(path)
			parser.set(loc.String(), &ParsedGraph{Triples: nil})

			_, err := ig.AddNoImports(path, AddOptions{RequireOntologyNames: true})
			Expect(err).To(HaveOccurred())
			Expect(err).To(MatchError(errs.ErrMissingOntologyDeclaration))
		})
	})

	Describe("Ingesting with imports followed", func() {
		It("recursively ingests each transitive import", func() {
			childPath := writeFixture("child.ttl")
			childLoc := NewLocation(childPath)
			parser.set(childLoc.String(), &ParsedGraph{
				Triples:          []Triple{ontologyTriple("urn:child")},
				DeclaredOntology: "urn:child",
			})

			parentPath := writeFixture("parent.ttl")
			parentLoc := NewLocation(parentPath)
			parser.set(parentLoc.String(), &ParsedGraph{
				Triples:          []Triple{ontologyTriple("urn:parent")},
				DeclaredOntology: "urn:parent",
				RawImports:       []string{childLoc.String()},
			})

			id, err := ig.Add(parentPath, AddOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(id.Name).To(Equal("urn:parent"))

			childID, err := resolver.ResolveRawIRI(childLoc.String())
			Expect(err).NotTo(HaveOccurred())
			Expect(childID.Name).To(Equal("urn:child"))

			_, ok := runtime.AllTriples(childID)
			Expect(ok).To(BeTrue())
		})

		It("in strict mode surfaces a dangling import as an ImportPath error", func() {
			parentPath := writeFixture("parent2.ttl")
			parentLoc := NewLocation(parentPath)
			parser.set(parentLoc.String(), &ParsedGraph{
				Triples:          []Triple{ontologyTriple("urn:parent2")},
				DeclaredOntology: "urn:parent2",
				RawImports:       []string{"urn:does-not-exist-anywhere"},
			})

			_, err := ig.Add(parentPath, AddOptions{Strict: true})
			Expect(err).To(HaveOccurred())
			_, ok := err.(*errs.ImportPath)
			Expect(ok).To(BeTrue())
		})

		It("in non-strict mode logs and skips a dangling import rather than failing", func() {
			parentPath := writeFixture("parent3.ttl")
			parentLoc := NewLocation(parentPath)
			parser.set(parentLoc.String(), &ParsedGraph{
				Triples:          []Triple{ontologyTriple("urn:parent3")},
				DeclaredOntology: "urn:parent3",
				RawImports:       []string{"urn:also-does-not-exist"},
			})

			id, err := ig.Add(parentPath, AddOptions{Strict: false})
			Expect(err).NotTo(HaveOccurred())
			Expect(id.Name).To(Equal("urn:parent3"))
		})
	})

	Describe("contentHash", func() {
		It("hashes the canonical N-Quads form, scoped to the graph name, not bare N-Triples", func() {
			trp := Triple{Subject: NewResourceTerm("urn:s"), Predicate: NewResourceTerm("urn:p"), Object: NewResourceTerm("urn:o")}
			got := contentHash([]Triple{trp}, "urn:graph")

			h := sha256.New()
			h.Write([]byte(NewQuad(trp, "urn:graph").String()))
			h.Write([]byte{'\n'})
			want := hex.EncodeToString(h.Sum(nil))

			Expect(got).To(Equal(want))
			Expect(got).NotTo(Equal(contentHash([]Triple{trp}, "urn:other-graph")))
		})

		It("is independent of input triple order", func() {
			a := Triple{Subject: NewResourceTerm("urn:a"), Predicate: NewResourceTerm("urn:p"), Object: NewResourceTerm("urn:o")}
			b := Triple{Subject: NewResourceTerm("urn:b"), Predicate: NewResourceTerm("urn:p"), Object: NewResourceTerm("urn:o")}
			Expect(contentHash([]Triple{a, b}, "urn:graph")).To(Equal(contentHash([]Triple{b, a}, "urn:graph")))
		})
	})
})

