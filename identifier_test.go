package ontoenv_test

import (
	. "github.com/kahefi/ontoenv"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/lithammer/shortuuid/v3"
)

var _ = Describe("GraphIdentifier", func() {

	Describe("Creating a new identifier", func() {
		Context("when a version is given", func() {
			It("keeps it", func() {
				loc := NewLocation("https://example.org/a.ttl")
				id := NewGraphIdentifier("https://example.org/onto", "https://example.org/onto/v1", loc)
				Expect(id.Version).To(Equal("https://example.org/onto/v1"))
			})
		})
		Context("when no version is given", func() {
			It("defaults the version to the name", func() {
				loc := NewLocation("https://example.org/a.ttl")
				id := NewGraphIdentifier("https://example.org/onto", "", loc)
				Expect(id.Version).To(Equal(id.Name))
			})
		})
	})

	Describe("Comparing two identifiers", func() {
		loc := NewLocation("https://example.org/a.ttl")
		It("considers identical (name, version, location) triples equal", func() {
			a := NewGraphIdentifier("https://example.org/onto", "v1", loc)
			b := NewGraphIdentifier("https://example.org/onto", "v1", loc)
			Expect(a.Equal(b)).To(BeTrue())
		})
		It("considers a differing version unequal", func() {
			a := NewGraphIdentifier("https://example.org/onto", "v1", loc)
			b := NewGraphIdentifier("https://example.org/onto", "v2", loc)
			Expect(a.Equal(b)).To(BeFalse())
		})
		It("considers a differing location unequal", func() {
			other := NewLocation("https://example.org/b.ttl")
			a := NewGraphIdentifier("https://example.org/onto", "v1", loc)
			b := NewGraphIdentifier("https://example.org/onto", "v1", other)
			Expect(a.Equal(b)).To(BeFalse())
		})
	})
})

var _ = Describe("AliasTable", func() {

	var table *AliasTable
	var target GraphIdentifier

	BeforeEach(func() {
		table = NewAliasTable()
		target = NewGraphIdentifier("https://example.org/"+shortuuid.New(), "", NewLocation("https://example.org/a.ttl"))
	})

	Describe("Setting and looking up an alias", func() {
		It("resolves the aliased IRI to the target", func() {
			table.Set("https://example.org/alias", target)
			got, ok := table.Lookup("https://example.org/alias")
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal(target))
		})
		It("reports unknown IRIs as absent", func() {
			_, ok := table.Lookup("https://example.org/unknown")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Collapsing alias chains", func() {
		It("points a new alias of an alias straight at the terminal identifier", func() {
			table.Set("https://example.org/alias1", target)
			table.Set("https://example.org/alias2", GraphIdentifier{Name: "https://example.org/alias1"})
			got, ok := table.Lookup("https://example.org/alias2")
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal(target))
		})
	})

	Describe("Listing every alias", func() {
		It("returns a snapshot keyed by the aliased IRI", func() {
			table.Set("https://example.org/alias", target)
			all := table.All()
			Expect(all).To(HaveKeyWithValue("https://example.org/alias", target))
		})
	})

	Describe("Removing every alias for a target", func() {
		It("drops only the aliases pointing at that target", func() {
			other := NewGraphIdentifier("https://example.org/"+shortuuid.New(), "", NewLocation("https://example.org/b.ttl"))
			table.Set("https://example.org/alias1", target)
			table.Set("https://example.org/alias2", other)

			table.RemoveTarget(target)

			_, ok := table.Lookup("https://example.org/alias1")
			Expect(ok).To(BeFalse())
			_, ok = table.Lookup("https://example.org/alias2")
			Expect(ok).To(BeTrue())
		})
	})
})
