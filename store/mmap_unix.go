//go:build linux || darwin

package store

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmapFile is a read-only memory-mapped view of a file, giving the reader
// zero-copy access to the persistent store's term dictionary and triple
// blocks, per spec §4.7 "Read-only mmap".
type mmapFile struct {
	data []byte
}

func mmapOpen(f *os.File) (*mmapFile, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := int(info.Size())
	if size == 0 {
		return &mmapFile{data: nil}, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	return &mmapFile{data: data}, nil
}

func (m *mmapFile) Bytes() []byte {
	return m.data
}

func (m *mmapFile) Close() error {
	if m.data == nil {
		return nil
	}
	return unix.Munmap(m.data)
}
