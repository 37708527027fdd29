package store

import "hash/crc32"

// crcTable is the CRC-32 (IEEE) table used for per-section and global
// checksums, per spec §4.7 "CRC". There is no third-party CRC package in
// the retrieval pack that improves on the standard library's table-driven
// implementation, so hash/crc32 is used directly here (see DESIGN.md).
var crcTable = crc32.MakeTable(crc32.IEEE)

func checksum(b []byte) uint32 {
	return crc32.Checksum(b, crcTable)
}
