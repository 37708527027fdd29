package store

import (
	"encoding/binary"
	"fmt"
)

// R5TU on-disk layout (little-endian throughout):
//
//	header:
//	  magic       [4]byte  "R5TU"
//	  version     uint32
//	  dictOffset  uint64
//	  dictLen     uint64
//	  dictCRC     uint32
//	  dirOffset   uint64
//	  dirLen      uint64
//	  dirCRC      uint32
//	  dataOffset  uint64
//	  dataLen     uint64
//	  dataCRC     uint32
//	  globalCRC   uint32   (CRC of everything above plus all three sections)
//
//	dictionary section:
//	  count uint32
//	  repeated { length uint32; bytes }
//
//	directory section (keyed two levels deep: source location, then ontology IRI):
//	  count uint32
//	  repeated {
//	    sourceLen uint32; sourceBytes
//	    nameLen   uint32; nameBytes
//	    dataOffset uint64 (relative to data section start)
//	    dataLen    uint64
//	    tripleCount uint32
//	  }
//
//	data section: concatenation of per-graph CSR blocks (see csr.go).
const (
	magic         = "R5TU"
	formatVersion = uint32(1)
	headerSize    = 4 + 4 + 8 + 8 + 4 + 8 + 8 + 4 + 8 + 8 + 4 + 4
)

type header struct {
	DictOffset, DictLen uint64
	DictCRC             uint32
	DirOffset, DirLen   uint64
	DirCRC              uint32
	DataOffset, DataLen uint64
	DataCRC             uint32
	GlobalCRC           uint32
}

func encodeHeader(h header) []byte {
	buf := make([]byte, headerSize)
	off := 0
	copy(buf[off:], magic)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], formatVersion)
	off += 4
	binary.LittleEndian.PutUint64(buf[off:], h.DictOffset)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], h.DictLen)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:], h.DictCRC)
	off += 4
	binary.LittleEndian.PutUint64(buf[off:], h.DirOffset)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], h.DirLen)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:], h.DirCRC)
	off += 4
	binary.LittleEndian.PutUint64(buf[off:], h.DataOffset)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], h.DataLen)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:], h.DataCRC)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], h.GlobalCRC)
	return buf
}

func decodeHeader(buf []byte) (header, error) {
	var h header
	if len(buf) < headerSize {
		return h, fmt.Errorf("%w: truncated header", errCorrupt)
	}
	if string(buf[:4]) != magic {
		return h, fmt.Errorf("%w: bad magic", errCorrupt)
	}
	off := 8 // skip magic + version
	h.DictOffset = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	h.DictLen = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	h.DictCRC = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	h.DirOffset = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	h.DirLen = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	h.DirCRC = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	h.DataOffset = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	h.DataLen = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	h.DataCRC = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	h.GlobalCRC = binary.LittleEndian.Uint32(buf[off:])
	return h, nil
}

func encodeDictionary(d *Dictionary) []byte {
	var buf []byte
	cnt := make([]byte, 4)
	binary.LittleEndian.PutUint32(cnt, uint32(d.Len()))
	buf = append(buf, cnt...)
	for _, term := range d.All() {
		l := make([]byte, 4)
		binary.LittleEndian.PutUint32(l, uint32(len(term)))
		buf = append(buf, l...)
		buf = append(buf, term...)
	}
	return buf
}

func decodeDictionary(buf []byte) (*Dictionary, error) {
	d := NewDictionary()
	if len(buf) < 4 {
		return nil, fmt.Errorf("%w: truncated dictionary", errCorrupt)
	}
	count := binary.LittleEndian.Uint32(buf)
	off := 4
	for i := uint32(0); i < count; i++ {
		if off+4 > len(buf) {
			return nil, fmt.Errorf("%w: truncated dictionary entry", errCorrupt)
		}
		l := binary.LittleEndian.Uint32(buf[off:])
		off += 4
		if off+int(l) > len(buf) {
			return nil, fmt.Errorf("%w: truncated dictionary term", errCorrupt)
		}
		term := string(buf[off : off+int(l)])
		off += int(l)
		d.Intern(term)
	}
	return d, nil
}

// dirEntry is one (source location, ontology IRI) => CSR block mapping.
type dirEntry struct {
	SourceID    string
	GraphName   string
	DataOffset  uint64
	DataLen     uint64
	TripleCount uint32
}

func encodeDirectory(entries []dirEntry) []byte {
	var buf []byte
	cnt := make([]byte, 4)
	binary.LittleEndian.PutUint32(cnt, uint32(len(entries)))
	buf = append(buf, cnt...)
	for _, e := range entries {
		buf = append(buf, lenPrefixed(e.SourceID)...)
		buf = append(buf, lenPrefixed(e.GraphName)...)
		tmp := make([]byte, 20)
		binary.LittleEndian.PutUint64(tmp[0:], e.DataOffset)
		binary.LittleEndian.PutUint64(tmp[8:], e.DataLen)
		binary.LittleEndian.PutUint32(tmp[16:], e.TripleCount)
		buf = append(buf, tmp...)
	}
	return buf
}

func decodeDirectory(buf []byte) ([]dirEntry, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("%w: truncated directory", errCorrupt)
	}
	count := binary.LittleEndian.Uint32(buf)
	off := 4
	entries := make([]dirEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		src, n, err := readLenPrefixed(buf, off)
		if err != nil {
			return nil, err
		}
		off = n
		name, n2, err := readLenPrefixed(buf, off)
		if err != nil {
			return nil, err
		}
		off = n2
		if off+20 > len(buf) {
			return nil, fmt.Errorf("%w: truncated directory entry", errCorrupt)
		}
		e := dirEntry{
			SourceID:    src,
			GraphName:   name,
			DataOffset:  binary.LittleEndian.Uint64(buf[off:]),
			DataLen:     binary.LittleEndian.Uint64(buf[off+8:]),
			TripleCount: binary.LittleEndian.Uint32(buf[off+16:]),
		}
		off += 20
		entries = append(entries, e)
	}
	return entries, nil
}

func lenPrefixed(s string) []byte {
	buf := make([]byte, 4+len(s))
	binary.LittleEndian.PutUint32(buf, uint32(len(s)))
	copy(buf[4:], s)
	return buf
}

func readLenPrefixed(buf []byte, off int) (string, int, error) {
	if off+4 > len(buf) {
		return "", 0, fmt.Errorf("%w: truncated length prefix", errCorrupt)
	}
	l := binary.LittleEndian.Uint32(buf[off:])
	off += 4
	if off+int(l) > len(buf) {
		return "", 0, fmt.Errorf("%w: truncated string", errCorrupt)
	}
	return string(buf[off : off+int(l)]), off + int(l), nil
}
