package store

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("CSR triple block encoding", func() {

	Describe("Round-tripping a set of triples", func() {
		It("reproduces every triple, possibly reordered by subject", func() {
			in := []TripleIDs{
				{Subj: 2, Pred: 10, Obj: 20},
				{Subj: 1, Pred: 11, Obj: 21},
				{Subj: 1, Pred: 12, Obj: 22},
				{Subj: 3, Pred: 13, Obj: 23},
			}
			buf := encodeCSR(in)
			out, err := decodeCSR(buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ConsistOf(in))
		})

		It("round-trips an empty block", func() {
			buf := encodeCSR(nil)
			out, err := decodeCSR(buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(BeEmpty())
		})

		It("groups every triple under its subject contiguously", func() {
			in := []TripleIDs{
				{Subj: 5, Pred: 1, Obj: 1},
				{Subj: 5, Pred: 2, Obj: 2},
				{Subj: 1, Pred: 3, Obj: 3},
			}
			buf := encodeCSR(in)
			out, err := decodeCSR(buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(out[0].Subj).To(Equal(uint32(1)))
			Expect(out[1].Subj).To(Equal(uint32(5)))
			Expect(out[2].Subj).To(Equal(uint32(5)))
		})
	})

	Describe("Decoding a truncated block", func() {
		It("fails rather than panicking", func() {
			_, err := decodeCSR([]byte{1, 2})
			Expect(err).To(HaveOccurred())
		})
	})
})
