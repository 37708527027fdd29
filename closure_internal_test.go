package ontoenv

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// closure_internal_test.go exercises ClosureEngine against a real DependencyGraph,
// catalog and Resolver, since wiring those together requires the package's
// unexported constructors.
var _ = Describe("ClosureEngine", func() {

	var (
		graph    *DependencyGraph
		cat      *catalog
		resolver *Resolver
		store    map[graphIDKey][]Triple
		engine   *ClosureEngine
	)

	loader := func(id GraphIdentifier) ([]Triple, error) {
		return store[id.key()], nil
	}

	addGraph := func(name string, imports []string, triples []Triple) GraphIdentifier {
		id := NewGraphIdentifier(name, name, NewLocation(name+".ttl"))
		all := append([]Triple{}, triples...)
		for _, imp := range imports {
			all = append(all, Triple{
				Subject:   NewResourceTerm(name),
				Predicate: NewResourceTerm(OWLImports),
				Object:    NewResourceTerm(imp),
			})
		}
		store[id.key()] = all
		cat.put(&OntologyEntry{ID: id})
		node := graph.AddNode(id)
		for _, imp := range imports {
			graph.AddEdge(node, imp)
		}
		return id
	}

	BeforeEach(func() {
		graph = NewDependencyGraph()
		cat = newCatalog()
		resolver = NewResolver(PolicyDefault, cat)
		store = map[graphIDKey][]Triple{}
		engine = NewClosureEngine(graph, resolver, loader)
	})

	Describe("Computing a closure", func() {
		Context("for a chain of imports", func() {
			It("includes every transitively imported graph", func() {
				c := addGraph("https://example.org/c", nil, nil)
				addGraph("https://example.org/b", []string{c.Name}, nil)
				a := addGraph("https://example.org/a", []string{"https://example.org/b"}, nil)

				ids, err := engine.Closure(a, -1)
				Expect(err).NotTo(HaveOccurred())
				names := make([]string, len(ids))
				for i, id := range ids {
					names[i] = id.Name
				}
				Expect(names).To(ConsistOf(a.Name, "https://example.org/b", c.Name))
			})
		})
		Context("when bounded by depth", func() {
			It("stops following imports beyond the bound", func() {
				addGraph("https://example.org/c", nil, nil)
				addGraph("https://example.org/b", []string{"https://example.org/c"}, nil)
				a := addGraph("https://example.org/a", []string{"https://example.org/b"}, nil)

				ids, err := engine.Closure(a, 1)
				Expect(err).NotTo(HaveOccurred())
				names := make([]string, len(ids))
				for i, id := range ids {
					names[i] = id.Name
				}
				Expect(names).To(ConsistOf(a.Name, "https://example.org/b"))
			})
		})
		Context("when an import never resolves", func() {
			It("silently skips the dangling edge", func() {
				a := addGraph("https://example.org/a", []string{"https://example.org/missing"}, nil)
				ids, err := engine.Closure(a, -1)
				Expect(err).NotTo(HaveOccurred())
				Expect(ids).To(HaveLen(1))
			})
		})
	})

	Describe("Merging a union graph", func() {
		It("deduplicates triples shared across the closure", func() {
			shared := Triple{Subject: NewResourceTerm("https://example.org/x"), Predicate: NewResourceTerm("https://example.org/p"), Object: NewResourceTerm("https://example.org/y")}
			b := addGraph("https://example.org/b", nil, []Triple{shared})
			a := addGraph("https://example.org/a", []string{b.Name}, []Triple{shared})

			ids, err := engine.Closure(a, -1)
			Expect(err).NotTo(HaveOccurred())

			union, err := engine.GetUnionGraph(ids, ClosureOptions{})
			Expect(err).NotTo(HaveOccurred())
			// the shared triple once, plus a's own owl:imports triple
			Expect(union).To(HaveLen(2))
		})
		It("strips owl:imports triples when requested", func() {
			b := addGraph("https://example.org/b", nil, nil)
			a := addGraph("https://example.org/a", []string{b.Name}, nil)
			ids, err := engine.Closure(a, -1)
			Expect(err).NotTo(HaveOccurred())

			union, err := engine.GetUnionGraph(ids, ClosureOptions{RemoveOWLImports: true})
			Expect(err).NotTo(HaveOccurred())
			for _, t := range union {
				Expect(t.Predicate.Value()).NotTo(Equal(OWLImports))
			}
		})

		It("rewrites every sh:prefixes triple to the root graph's node when requested", func() {
			bPrefixes := Triple{Subject: NewResourceTerm("https://example.org/b"), Predicate: NewResourceTerm(SHPrefixes), Object: NewResourceTerm("https://example.org/b#prefixes")}
			aPrefixes := Triple{Subject: NewResourceTerm("https://example.org/a"), Predicate: NewResourceTerm(SHPrefixes), Object: NewResourceTerm("https://example.org/a#prefixes")}
			b := addGraph("https://example.org/b", nil, []Triple{bPrefixes})
			a := addGraph("https://example.org/a", []string{b.Name}, []Triple{aPrefixes})

			ids, err := engine.Closure(a, -1)
			Expect(err).NotTo(HaveOccurred())

			union, err := engine.GetUnionGraph(ids, ClosureOptions{RewriteSHPrefixes: true})
			Expect(err).NotTo(HaveOccurred())

			var prefixTriples []Triple
			for _, t := range union {
				if t.Predicate.Value() == SHPrefixes {
					prefixTriples = append(prefixTriples, t)
				}
			}
			Expect(prefixTriples).To(HaveLen(2))
			for _, t := range prefixTriples {
				Expect(t.Object.Value()).To(Equal("https://example.org/a#prefixes"))
			}
		})
	})

	Describe("ImportDependencies", func() {
		It("merges the closure of every import declared in an external graph", func() {
			depTriple := Triple{Subject: NewResourceTerm("https://example.org/dep"), Predicate: NewResourceTerm("https://example.org/p"), Object: NewResourceTerm("https://example.org/o")}
			dep := addGraph("https://example.org/dep", nil, []Triple{depTriple})

			external := []Triple{
				{Subject: NewResourceTerm("https://example.org/external"), Predicate: NewResourceTerm(RDFType), Object: NewResourceTerm(OWLOntology)},
				{Subject: NewResourceTerm("https://example.org/external"), Predicate: NewResourceTerm(OWLImports), Object: NewResourceTerm(dep.Name)},
			}

			merged, iris, err := engine.ImportDependencies(external, false, false, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(iris).To(ConsistOf(dep.Name))

			var sawOwlImports bool
			var sawDepTriple bool
			for _, t := range merged {
				if t.Predicate.Value() == OWLImports {
					sawOwlImports = true
				}
				if t.String() == depTriple.String() {
					sawDepTriple = true
				}
			}
			Expect(sawOwlImports).To(BeFalse())
			Expect(sawDepTriple).To(BeTrue())
		})

		It("fetches a missing import via addFn when fetchMissing is set", func() {
			external := []Triple{
				{Subject: NewResourceTerm("https://example.org/external2"), Predicate: NewResourceTerm(RDFType), Object: NewResourceTerm(OWLOntology)},
				{Subject: NewResourceTerm("https://example.org/external2"), Predicate: NewResourceTerm(OWLImports), Object: NewResourceTerm("https://example.org/not-yet-known")},
			}
			var addFnCalled string
			addFn := func(rawIRI string) (GraphIdentifier, error) {
				addFnCalled = rawIRI
				return addGraph("https://example.org/not-yet-known", nil, nil), nil
			}

			_, iris, err := engine.ImportDependencies(external, true, false, addFn)
			Expect(err).NotTo(HaveOccurred())
			Expect(addFnCalled).To(Equal("https://example.org/not-yet-known"))
			Expect(iris).To(ConsistOf("https://example.org/not-yet-known"))
		})

		It("fails strictly when an import cannot be resolved and fetchMissing is false", func() {
			external := []Triple{
				{Subject: NewResourceTerm("https://example.org/external3"), Predicate: NewResourceTerm(RDFType), Object: NewResourceTerm(OWLOntology)},
				{Subject: NewResourceTerm("https://example.org/external3"), Predicate: NewResourceTerm(OWLImports), Object: NewResourceTerm("https://example.org/still-missing")},
			}
			_, _, err := engine.ImportDependencies(external, false, true, nil)
			Expect(err).To(HaveOccurred())
		})
	})
})
