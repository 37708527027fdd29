package ontoenv

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/teris-io/shortid"
)

// DiskCache is the optional raw-bytes cache under <root>/.ontoenv/cache/,
// keyed by sha256(normalized URL), per spec §6's directory layout and
// SPEC_FULL.md §12's supplement specifying its write path. It holds the bytes a
// remote fetch last produced so a fresh process (or an offline run) can
// serve a previously-fetched document without a network round trip, ahead
// of whatever freshness bookkeeping the catalog itself tracks.
type DiskCache struct {
	dir string
}

// NewDiskCache creates (if needed) and returns a cache rooted at dir.
func NewDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func cacheKey(url string) string {
	h := sha256.Sum256([]byte(normalizeLocation(url)))
	return hex.EncodeToString(h[:])
}

func (c *DiskCache) path(url string) string {
	return filepath.Join(c.dir, cacheKey(url))
}

// Get returns the cached bytes for url and their age, if present.
func (c *DiskCache) Get(url string) ([]byte, time.Duration, bool) {
	info, err := os.Stat(c.path(url))
	if err != nil {
		return nil, 0, false
	}
	data, err := os.ReadFile(c.path(url))
	if err != nil {
		return nil, 0, false
	}
	return data, time.Since(info.ModTime()), true
}

// Put writes data for url, replacing any prior entry. The write lands in a
// sibling temp file (named with a short unique suffix so concurrent writers
// for the same URL never collide) and is then renamed into place, the same
// atomic-finalize discipline the persistent store uses for its own writes
// (§4.7 "Write atomicity").
func (c *DiskCache) Put(url string, data []byte) error {
	sid, err := shortid.Generate()
	if err != nil {
		return err
	}
	tmpPath := filepath.Join(c.dir, fmt.Sprintf(".%s-%s.tmp", cacheKey(url), sid))
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, c.path(url))
}
