package store

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("R5TU header encoding", func() {

	Describe("Round-tripping a header", func() {
		It("reproduces every field", func() {
			h := header{
				DictOffset: 48, DictLen: 10, DictCRC: 1,
				DirOffset: 58, DirLen: 20, DirCRC: 2,
				DataOffset: 78, DataLen: 30, DataCRC: 3,
				GlobalCRC: 4,
			}
			buf := encodeHeader(h)
			got, err := decodeHeader(buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(h))
		})
	})

	Describe("Decoding a header with a bad magic", func() {
		It("reports corruption", func() {
			buf := make([]byte, headerSize)
			copy(buf, "XXXX")
			_, err := decodeHeader(buf)
			Expect(err).To(MatchError(errCorrupt))
		})
	})

	Describe("Decoding a truncated header", func() {
		It("reports corruption", func() {
			_, err := decodeHeader(make([]byte, 4))
			Expect(err).To(MatchError(errCorrupt))
		})
	})
})

var _ = Describe("Dictionary section encoding", func() {
	Describe("Round-tripping a populated dictionary", func() {
		It("reproduces every interned term", func() {
			d := NewDictionary()
			d.Intern("<https://example.org/a>")
			d.Intern("<https://example.org/b>")

			buf := encodeDictionary(d)
			got, err := decodeDictionary(buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.All()).To(Equal(d.All()))
		})
	})
})

var _ = Describe("Directory section encoding", func() {
	Describe("Round-tripping several entries", func() {
		It("reproduces every field", func() {
			entries := []dirEntry{
				{SourceID: "https://example.org/a.ttl", GraphName: "https://example.org/onto-a", DataOffset: 0, DataLen: 10, TripleCount: 2},
				{SourceID: "https://example.org/b.ttl", GraphName: "https://example.org/onto-b", DataOffset: 10, DataLen: 20, TripleCount: 3},
			}
			buf := encodeDirectory(entries)
			got, err := decodeDirectory(buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(entries))
		})

		It("round-trips zero entries", func() {
			buf := encodeDirectory(nil)
			got, err := decodeDirectory(buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeEmpty())
		})
	})
})
