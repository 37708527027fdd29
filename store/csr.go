package store

import (
	"encoding/binary"
	"sort"
)

// TripleIDs is a dictionary-interned triple: three term ids rather than
// strings, the unit the CSR blocks below are built from.
type TripleIDs struct {
	Subj, Pred, Obj uint32
}

// encodeCSR lays a graph's triples out in compressed-sparse-row form,
// grouped by subject: a sorted array of distinct subject ids, a row-pointer
// array of len(subjects)+1 offsets into parallel predicate/object arrays,
// and the predicate/object arrays themselves. This is the "per-graph
// CSR-encoded triple block" of spec §4.7 — it keeps per-subject triple
// enumeration (the access pattern the closure engine and union-graph
// serialization both use) a single contiguous scan instead of a full-block
// linear search.
func encodeCSR(triples []TripleIDs) []byte {
	bySubj := make(map[uint32][]TripleIDs, len(triples))
	subjOrder := make([]uint32, 0, len(triples))
	for _, t := range triples {
		if _, ok := bySubj[t.Subj]; !ok {
			subjOrder = append(subjOrder, t.Subj)
		}
		bySubj[t.Subj] = append(bySubj[t.Subj], t)
	}
	sort.Slice(subjOrder, func(i, j int) bool { return subjOrder[i] < subjOrder[j] })

	subjects := make([]uint32, len(subjOrder))
	rowPtr := make([]uint32, len(subjOrder)+1)
	preds := make([]uint32, 0, len(triples))
	objs := make([]uint32, 0, len(triples))
	for i, s := range subjOrder {
		subjects[i] = s
		rowPtr[i] = uint32(len(preds))
		for _, t := range bySubj[s] {
			preds = append(preds, t.Pred)
			objs = append(objs, t.Obj)
		}
	}
	rowPtr[len(subjOrder)] = uint32(len(preds))

	buf := make([]byte, 4+4*len(subjects)+4*len(rowPtr)+4*len(preds)+4*len(objs))
	off := 0
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(subjects)))
	off += 4
	off = putUint32Slice(buf, off, subjects)
	off = putUint32Slice(buf, off, rowPtr)
	off = putUint32Slice(buf, off, preds)
	putUint32Slice(buf, off, objs)
	return buf
}

// decodeCSR reverses encodeCSR, returning the flattened triple id list in
// subject order.
func decodeCSR(buf []byte) ([]TripleIDs, error) {
	if len(buf) < 4 {
		return nil, errCorrupt
	}
	n := int(binary.LittleEndian.Uint32(buf))
	off := 4
	subjects, off, err := getUint32Slice(buf, off, n)
	if err != nil {
		return nil, err
	}
	rowPtr, off, err := getUint32Slice(buf, off, n+1)
	if err != nil {
		return nil, err
	}
	m := int(rowPtr[n])
	preds, off, err := getUint32Slice(buf, off, m)
	if err != nil {
		return nil, err
	}
	objs, _, err := getUint32Slice(buf, off, m)
	if err != nil {
		return nil, err
	}

	out := make([]TripleIDs, 0, m)
	for i, s := range subjects {
		for j := rowPtr[i]; j < rowPtr[i+1]; j++ {
			out = append(out, TripleIDs{Subj: s, Pred: preds[j], Obj: objs[j]})
		}
	}
	return out, nil
}

func putUint32Slice(buf []byte, off int, xs []uint32) int {
	for _, x := range xs {
		binary.LittleEndian.PutUint32(buf[off:], x)
		off += 4
	}
	return off
}

func getUint32Slice(buf []byte, off, n int) ([]uint32, int, error) {
	if off+4*n > len(buf) {
		return nil, 0, errCorrupt
	}
	xs := make([]uint32, n)
	for i := 0; i < n; i++ {
		xs[i] = binary.LittleEndian.Uint32(buf[off:])
		off += 4
	}
	return xs, off, nil
}
