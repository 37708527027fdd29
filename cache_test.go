package ontoenv_test

import (
	"os"

	. "github.com/kahefi/ontoenv"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("DiskCache", func() {

	var dir string
	var cache *DiskCache

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "ontoenv-cache-*")
		Expect(err).NotTo(HaveOccurred())
		cache, err = NewDiskCache(dir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	Describe("Writing and reading back an entry", func() {
		It("returns the exact bytes previously stored", func() {
			Expect(cache.Put("https://example.org/a.ttl", []byte("hello"))).NotTo(HaveOccurred())
			data, _, ok := cache.Get("https://example.org/a.ttl")
			Expect(ok).To(BeTrue())
			Expect(data).To(Equal([]byte("hello")))
		})
		It("normalizes the host casing so both URLs hit the same entry", func() {
			Expect(cache.Put("https://Example.org/a.ttl", []byte("hello"))).NotTo(HaveOccurred())
			data, _, ok := cache.Get("https://example.org/a.ttl")
			Expect(ok).To(BeTrue())
			Expect(data).To(Equal([]byte("hello")))
		})
	})

	Describe("Reading a URL never written", func() {
		It("reports a miss", func() {
			_, _, ok := cache.Get("https://example.org/missing.ttl")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Overwriting an existing entry", func() {
		It("replaces the stored bytes", func() {
			Expect(cache.Put("https://example.org/a.ttl", []byte("v1"))).NotTo(HaveOccurred())
			Expect(cache.Put("https://example.org/a.ttl", []byte("v2"))).NotTo(HaveOccurred())
			data, _, ok := cache.Get("https://example.org/a.ttl")
			Expect(ok).To(BeTrue())
			Expect(data).To(Equal([]byte("v2")))
		})
	})
})
