package store_test

import (
	. "github.com/kahefi/ontoenv/store"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Dictionary", func() {

	var d *Dictionary

	BeforeEach(func() {
		d = NewDictionary()
	})

	Describe("Interning a term", func() {
		It("assigns a new id the first time", func() {
			id := d.Intern("<https://example.org/a>")
			Expect(d.Len()).To(Equal(1))
			got, ok := d.Lookup(id)
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal("<https://example.org/a>"))
		})
		It("returns the same id for the same term", func() {
			id1 := d.Intern("<https://example.org/a>")
			id2 := d.Intern("<https://example.org/a>")
			Expect(id2).To(Equal(id1))
			Expect(d.Len()).To(Equal(1))
		})
		It("assigns distinct ids to distinct terms", func() {
			id1 := d.Intern("<https://example.org/a>")
			id2 := d.Intern("<https://example.org/b>")
			Expect(id2).NotTo(Equal(id1))
		})
	})

	Describe("Looking up an id out of range", func() {
		It("reports absent", func() {
			_, ok := d.Lookup(42)
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Finding a term without interning it", func() {
		It("returns its id when already present", func() {
			id := d.Intern("<https://example.org/a>")
			got, ok := d.Find("<https://example.org/a>")
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal(id))
		})
		It("reports absent without growing the dictionary", func() {
			_, ok := d.Find("<https://example.org/never-interned>")
			Expect(ok).To(BeFalse())
			Expect(d.Len()).To(Equal(0))
		})
	})

	Describe("Listing every interned term", func() {
		It("returns them in id order", func() {
			d.Intern("<https://example.org/a>")
			d.Intern("<https://example.org/b>")
			Expect(d.All()).To(Equal([]string{"<https://example.org/a>", "<https://example.org/b>"}))
		})
	})
})
