//go:build !linux && !darwin

package store

import (
	"io"
	"os"
)

// mmapFile falls back to a plain read on platforms without a POSIX mmap
// (per spec §9's "Cross-process readers and rename" platform note: where
// rename over a mapped file isn't safe, readers should unmap/reopen eagerly
// anyway, so a whole-file copy is an acceptable, simpler substitute here).
type mmapFile struct {
	data []byte
}

func mmapOpen(f *os.File) (*mmapFile, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &mmapFile{data: data}, nil
}

func (m *mmapFile) Bytes() []byte {
	return m.data
}

func (m *mmapFile) Close() error {
	m.data = nil
	return nil
}
