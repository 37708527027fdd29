// Package store implements the OntoEnv persistent store: a single
// self-contained file (the "R5TU" format, see format.go) holding a global
// term dictionary, one CSR-encoded triple block per ingested graph, and a
// directory indexing those blocks by (source location, ontology name). It
// is the on-disk counterpart to the in-memory RuntimeStore the rest of the
// module keeps for hot graphs.
//
// A Store is opened either for reading (shared lock, mmap'd, immutable) or
// for writing (exclusive lock, fully decoded into memory, atomically
// rewritten on Flush). Only one writer may hold the file at a time; readers
// never block each other, but a reader's shared lock and a writer's
// exclusive lock exclude each other, so a writer cannot open the store
// while readers hold it open (and vice versa). Flush finalizes via a
// sibling temp file plus rename rather than an in-place write (spec §4.7,
// §5 "Write atomicity").
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kahefi/ontoenv/errs"
)

var errCorrupt = errs.ErrCorruptStore

// Mode selects whether an open Store may be mutated.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

// GraphRecord is a decoded directory entry paired with its triple count,
// returned by ListGraphs for doctor/why-style introspection.
type GraphRecord struct {
	SourceID    string
	GraphName   string
	TripleCount int
}

func graphKey(sourceID, graphName string) string {
	return sourceID + "\x00" + graphName
}

// Store is a handle on one R5TU file, opened either read-only (mmap'd,
// shared lock) or read-write (decoded into memory, exclusive lock).
type Store struct {
	path string
	mode Mode
	lock *Lock

	dict *Dictionary

	// Read-only path: backed by the mmap'd data section; graphs are
	// decoded lazily from the byte ranges named by dir.
	mm      *mmapFile
	dir     []dirEntry
	rawData []byte // data section only, offsets in dir are relative to this

	// Read-write path: every graph is fully materialized in memory and
	// re-encoded wholesale on Flush.
	graphs map[string][]TripleIDs
	order  []string // insertion order of graphKey, for stable directory layout
	dirty  bool
}

// OpenReader opens path for read-only access: a shared advisory lock, an
// mmap'd view of the data section, and the dictionary/directory decoded
// eagerly (they're small compared to triple data). Returns errs.ErrNotFound
// if path does not exist, errs.ErrCorruptStore if any section fails its CRC.
func OpenReader(path string, lockTimeout time.Duration) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errs.ErrNotFound, path)
		}
		return nil, err
	}
	lk, err := OpenLock(lockPath(path))
	if err != nil {
		return nil, err
	}
	if err := lk.AcquireShared(lockTimeout); err != nil {
		lk.Close()
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		lk.Close()
		return nil, err
	}
	defer f.Close()

	mm, err := mmapOpen(f)
	if err != nil {
		lk.Close()
		return nil, err
	}

	s, err := decodeStore(mm.Bytes())
	if err != nil {
		mm.Close()
		lk.Close()
		return nil, err
	}
	s.path = path
	s.mode = ReadOnly
	s.lock = lk
	s.mm = mm
	return s, nil
}

// OpenWriter opens path for read-write access: an exclusive advisory lock,
// then a full decode of any existing content into memory (or an empty store
// if path doesn't exist yet). Mutations land only in memory until Flush.
func OpenWriter(path string, lockTimeout time.Duration) (*Store, error) {
	lk, err := OpenLock(lockPath(path))
	if err != nil {
		return nil, err
	}
	if err := lk.AcquireExclusive(lockTimeout); err != nil {
		lk.Close()
		return nil, err
	}

	s := &Store{
		path:   path,
		mode:   ReadWrite,
		lock:   lk,
		dict:   NewDictionary(),
		graphs: make(map[string][]TripleIDs),
	}

	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		raw, err := os.ReadFile(path)
		if err != nil {
			lk.Close()
			return nil, err
		}
		loaded, err := decodeStore(raw)
		if err != nil {
			lk.Close()
			return nil, err
		}
		s.dict = loaded.dict
		for _, e := range loaded.dir {
			block := sliceAt(loaded.rawData, e.DataOffset, e.DataLen)
			if block == nil {
				lk.Close()
				return nil, fmt.Errorf("%w: graph block out of range", errCorrupt)
			}
			triples, err := decodeCSR(block)
			if err != nil {
				lk.Close()
				return nil, err
			}
			k := graphKey(e.SourceID, e.GraphName)
			s.graphs[k] = triples
			s.order = append(s.order, k)
		}
	} else if err != nil && !os.IsNotExist(err) {
		lk.Close()
		return nil, err
	}

	return s, nil
}

// decodeStore parses header+dictionary+directory from a full file image
// (either mmap'd bytes for a reader, or a freshly-read []byte for a writer
// loading prior content) and verifies every section's CRC.
func decodeStore(raw []byte) (*Store, error) {
	if len(raw) == 0 {
		return &Store{dict: NewDictionary(), graphs: make(map[string][]TripleIDs)}, nil
	}
	h, err := decodeHeader(raw[:headerSize])
	if err != nil {
		return nil, err
	}

	dictBytes := sliceAt(raw, h.DictOffset, h.DictLen)
	dirBytes := sliceAt(raw, h.DirOffset, h.DirLen)
	dataBytes := sliceAt(raw, h.DataOffset, h.DataLen)
	if dictBytes == nil || dirBytes == nil || dataBytes == nil {
		return nil, fmt.Errorf("%w: section out of range", errCorrupt)
	}
	if checksum(dictBytes) != h.DictCRC || checksum(dirBytes) != h.DirCRC || checksum(dataBytes) != h.DataCRC {
		return nil, fmt.Errorf("%w: section checksum mismatch", errCorrupt)
	}
	checkBuf := make([]byte, 0, len(raw)-4)
	checkBuf = append(checkBuf, raw[:headerSize-4]...)
	checkBuf = append(checkBuf, raw[headerSize:]...)
	if checksum(checkBuf) != h.GlobalCRC {
		return nil, fmt.Errorf("%w: global checksum mismatch", errCorrupt)
	}

	dict, err := decodeDictionary(dictBytes)
	if err != nil {
		return nil, err
	}
	dir, err := decodeDirectory(dirBytes)
	if err != nil {
		return nil, err
	}

	s := &Store{dict: dict, dir: dir, graphs: make(map[string][]TripleIDs), rawData: dataBytes}
	return s, nil
}

func sliceAt(raw []byte, off, n uint64) []byte {
	end := off + n
	if end > uint64(len(raw)) || end < off {
		return nil
	}
	return raw[off:end]
}

func lockPath(path string) string {
	return path + ".lock"
}

// Dictionary returns the store's term dictionary, shared by readers and
// writers; callers intern new terms through it before building TripleIDs.
func (s *Store) Dictionary() *Dictionary {
	return s.dict
}

// GetGraph returns the decoded triples for (sourceID, graphName).
func (s *Store) GetGraph(sourceID, graphName string) ([]TripleIDs, bool, error) {
	k := graphKey(sourceID, graphName)
	if s.mode == ReadWrite {
		t, ok := s.graphs[k]
		return t, ok, nil
	}
	for _, e := range s.dir {
		if e.SourceID == sourceID && e.GraphName == graphName {
			block := sliceAt(s.rawData, e.DataOffset, e.DataLen)
			if block == nil {
				return nil, false, fmt.Errorf("%w: graph block out of range", errCorrupt)
			}
			triples, err := decodeCSR(block)
			return triples, true, err
		}
	}
	return nil, false, nil
}

// ListGraphs enumerates every (sourceID, graphName) currently stored.
func (s *Store) ListGraphs() []GraphRecord {
	var out []GraphRecord
	if s.mode == ReadWrite {
		for _, k := range s.order {
			if triples, ok := s.graphs[k]; ok {
				src, name := splitGraphKey(k)
				out = append(out, GraphRecord{SourceID: src, GraphName: name, TripleCount: len(triples)})
			}
		}
		return out
	}
	for _, e := range s.dir {
		out = append(out, GraphRecord{SourceID: e.SourceID, GraphName: e.GraphName, TripleCount: int(e.TripleCount)})
	}
	return out
}

func splitGraphKey(k string) (string, string) {
	for i := 0; i < len(k); i++ {
		if k[i] == 0 {
			return k[:i], k[i+1:]
		}
	}
	return k, ""
}

// PutGraph replaces (or inserts) the triple set for (sourceID, graphName).
// Writer-only; the change is staged in memory until Flush.
func (s *Store) PutGraph(sourceID, graphName string, triples []TripleIDs) error {
	if s.mode != ReadWrite {
		return errs.ErrReadOnlyViolation
	}
	k := graphKey(sourceID, graphName)
	if _, exists := s.graphs[k]; !exists {
		s.order = append(s.order, k)
	}
	cp := make([]TripleIDs, len(triples))
	copy(cp, triples)
	s.graphs[k] = cp
	s.dirty = true
	return nil
}

// RemoveGraph drops (sourceID, graphName) entirely. Writer-only.
func (s *Store) RemoveGraph(sourceID, graphName string) error {
	if s.mode != ReadWrite {
		return errs.ErrReadOnlyViolation
	}
	k := graphKey(sourceID, graphName)
	if _, ok := s.graphs[k]; !ok {
		return errs.ErrNotFound
	}
	delete(s.graphs, k)
	s.dirty = true
	return nil
}

// Flush atomically rewrites the store file from the current in-memory
// state: encode to a temp file in the same directory, fsync, then rename
// over the original. The writer's exclusive lock, held from OpenWriter
// until Close, keeps readers from opening the store while it is rewritten.
func (s *Store) Flush() error {
	if s.mode != ReadWrite {
		return errs.ErrReadOnlyViolation
	}
	if !s.dirty {
		return nil
	}

	dictBytes := encodeDictionary(s.dict)

	var dataBuf []byte
	entries := make([]dirEntry, 0, len(s.order))
	for _, k := range s.order {
		triples, ok := s.graphs[k]
		if !ok {
			continue
		}
		src, name := splitGraphKey(k)
		block := encodeCSR(triples)
		entries = append(entries, dirEntry{
			SourceID:    src,
			GraphName:   name,
			DataOffset:  uint64(len(dataBuf)),
			DataLen:     uint64(len(block)),
			TripleCount: uint32(len(triples)),
		})
		dataBuf = append(dataBuf, block...)
	}
	dirBytes := encodeDirectory(entries)

	h := header{
		DictOffset: uint64(headerSize),
		DictLen:    uint64(len(dictBytes)),
		DictCRC:    checksum(dictBytes),
	}
	h.DirOffset = h.DictOffset + h.DictLen
	h.DirLen = uint64(len(dirBytes))
	h.DirCRC = checksum(dirBytes)
	h.DataOffset = h.DirOffset + h.DirLen
	h.DataLen = uint64(len(dataBuf))
	h.DataCRC = checksum(dataBuf)

	var out []byte
	out = append(out, encodeHeader(h)...)
	out = append(out, dictBytes...)
	out = append(out, dirBytes...)
	out = append(out, dataBuf...)

	// GlobalCRC covers everything except its own field, which sits inside
	// the header rather than at the end of the file.
	checkBuf := make([]byte, 0, len(out)-4)
	checkBuf = append(checkBuf, out[:headerSize-4]...)
	checkBuf = append(checkBuf, out[headerSize:]...)
	h.GlobalCRC = checksum(checkBuf)
	copy(out[headerSize-4:headerSize], encodeHeader(h)[headerSize-4:headerSize])

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".ontoenv-store-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return err
	}

	s.dirty = false
	return nil
}

// Close releases the store's lock (and, for readers, its mmap). It does
// not flush; callers must Flush explicitly before Close to persist writes.
func (s *Store) Close() error {
	var err error
	if s.mm != nil {
		err = s.mm.Close()
	}
	if s.lock != nil {
		if cerr := s.lock.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
