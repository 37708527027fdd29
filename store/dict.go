package store

import (
	"github.com/cespare/xxhash/v2"
)

// Dictionary interns term strings (NTriple-encoded, see ontoenv.Term) into
// small integer ids so the CSR triple blocks only ever store uint32s, per
// spec §4.7's "global term dictionary". Lookups by string go through an
// xxhash-keyed posting list to avoid Go's built-in string hashing cost on
// large dictionaries.
type Dictionary struct {
	terms    []string
	postings map[uint64][]uint32
}

// NewDictionary creates an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{postings: make(map[uint64][]uint32)}
}

// Intern returns the id for term, assigning a new one if not already present.
func (d *Dictionary) Intern(term string) uint32 {
	h := xxhash.Sum64String(term)
	for _, id := range d.postings[h] {
		if d.terms[id] == term {
			return id
		}
	}
	id := uint32(len(d.terms))
	d.terms = append(d.terms, term)
	d.postings[h] = append(d.postings[h], id)
	return id
}

// Lookup returns the string for id, false if id is out of range.
func (d *Dictionary) Lookup(id uint32) (string, bool) {
	if int(id) >= len(d.terms) {
		return "", false
	}
	return d.terms[id], true
}

// Find returns the id for term without interning it.
func (d *Dictionary) Find(term string) (uint32, bool) {
	h := xxhash.Sum64String(term)
	for _, id := range d.postings[h] {
		if d.terms[id] == term {
			return id, true
		}
	}
	return 0, false
}

// Len returns the number of distinct interned terms.
func (d *Dictionary) Len() int {
	return len(d.terms)
}

// All returns every interned term, in id order.
func (d *Dictionary) All() []string {
	return d.terms
}
