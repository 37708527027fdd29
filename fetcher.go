package ontoenv

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/kahefi/ontoenv/errs"
)

// OriginKind distinguishes where fetched bytes came from.
type OriginKind int

const (
	OriginFile OriginKind = iota
	OriginURL
)

// FetchMetadata carries the freshness headers/mtime needed for conditional
// re-fetches, per spec §4.1.
type FetchMetadata struct {
	ETag         string
	LastModified string
	Mtime        time.Time
}

// FetchResult is returned by a successful, non-cached fetch.
type FetchResult struct {
	Bytes      []byte
	FormatHint string
	Metadata   FetchMetadata
	Origin     OriginKind
}

// ErrNotModified is returned by Fetch instead of a FetchResult when the
// caller already has fresh content; no bytes are returned.
var ErrNotModified = fmt.Errorf("not modified")

// Fetcher retrieves raw bytes + format hint + freshness metadata for a Location,
// per spec §4.1. HTTP behavior (Accept header, redirects, conditional GET) is
// grounded on the teacher's BlazegraphEndpoint HTTP client pattern; retry/backoff
// on retryablehttp, the reference stack's resilient-HTTP dependency.
type Fetcher struct {
	client  *http.Client
	offline bool
	ttl     time.Duration
	log     *logrus.Entry
	cache   *DiskCache
}

// NewFetcher builds a Fetcher with the given timeout, offline flag and remote
// cache TTL.
func NewFetcher(timeout time.Duration, offline bool, ttl time.Duration, log *logrus.Entry) *Fetcher {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.Logger = nil // the teacher's stack logs through logrus at the caller, not inside the HTTP client
	rc.HTTPClient.Timeout = timeout
	std := rc.StandardClient()
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Fetcher{client: std, offline: offline, ttl: ttl, log: log.WithField("component", "fetcher")}
}

// SetCache attaches the environment's on-disk raw-bytes cache (§6 cache/).
// It is consulted when offline, and when no prior metadata is known while
// the cached bytes are younger than the TTL; it is refreshed after every
// successful remote fetch.
func (f *Fetcher) SetCache(c *DiskCache) {
	f.cache = c
}

// Fetch retrieves bytes for loc. If prev is non-nil and still fresh (remote
// TTL not expired, or HTTP 304 / unchanged file mtime), ErrNotModified is
// returned instead of bytes.
func (f *Fetcher) Fetch(loc Location, hint string, prev *FetchMetadata, lastFetched time.Time) (*FetchResult, error) {
	start := time.Now()
	defer func() {
		f.log.WithField("location", loc.String()).WithField("elapsed", time.Since(start)).Info("fetch complete")
	}()

	if loc.IsURL() {
		return f.fetchURL(loc, hint, prev, lastFetched)
	}
	return f.fetchFile(loc, hint, prev)
}

func (f *Fetcher) fetchURL(loc Location, hint string, prev *FetchMetadata, lastFetched time.Time) (*FetchResult, error) {
	if f.offline {
		if f.cache != nil {
			if data, _, ok := f.cache.Get(loc.String()); ok {
				return f.cachedResult(loc, hint, data), nil
			}
		}
		return nil, errs.Wrap(errs.ErrOfflineBlocked, loc.String(), nil, nil)
	}
	if prev != nil && f.ttl > 0 && time.Since(lastFetched) < f.ttl {
		return nil, ErrNotModified
	}
	if prev == nil && f.cache != nil && f.ttl > 0 {
		if data, age, ok := f.cache.Get(loc.String()); ok && age < f.ttl {
			return f.cachedResult(loc, hint, data), nil
		}
	}

	req, err := http.NewRequest(http.MethodGet, loc.String(), nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrFetch, loc.String(), nil, err)
	}
	req.Header.Set("Accept", "text/turtle, application/rdf+xml, application/n-triples, application/ld+json;q=0.9, */*;q=0.1")
	if prev != nil {
		if prev.ETag != "" {
			req.Header.Set("If-None-Match", prev.ETag)
		}
		if prev.LastModified != "" {
			req.Header.Set("If-Modified-Since", prev.LastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		kind := errs.ErrFetch
		for e := err; e != nil; e = errors.Unwrap(e) {
			if t, ok := e.(interface{ Timeout() bool }); ok && t.Timeout() {
				kind = errs.ErrTimeout
				break
			}
		}
		return nil, errs.Wrap(kind, loc.String(), nil, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil, ErrNotModified
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errs.Wrap(errs.ErrFetch, loc.String(), nil, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrFetch, loc.String(), nil, err)
	}

	fh := hint
	if fh == "" {
		fh = formatFromContentType(resp.Header.Get("Content-Type"))
	}
	if fh == "" {
		fh = formatFromExtension(loc.String())
	}

	if f.cache != nil {
		if err := f.cache.Put(loc.String(), data); err != nil {
			f.log.WithField("location", loc.String()).WithError(err).Warn("failed to update disk cache")
		}
	}

	return &FetchResult{
		Bytes:      data,
		FormatHint: fh,
		Origin:     OriginURL,
		Metadata: FetchMetadata{
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		},
	}, nil
}

// cachedResult builds a FetchResult from previously cached bytes, used both
// for offline fallback and for the no-prior-metadata TTL shortcut.
func (f *Fetcher) cachedResult(loc Location, hint string, data []byte) *FetchResult {
	fh := hint
	if fh == "" {
		fh = formatFromExtension(loc.String())
	}
	return &FetchResult{Bytes: data, FormatHint: fh, Origin: OriginURL}
}

func (f *Fetcher) fetchFile(loc Location, hint string, prev *FetchMetadata) (*FetchResult, error) {
	info, err := os.Stat(loc.String())
	if err != nil {
		return nil, errs.Wrap(errs.ErrFetch, loc.String(), nil, err)
	}
	if prev != nil && !prev.Mtime.IsZero() && !info.ModTime().After(prev.Mtime) {
		return nil, ErrNotModified
	}

	data, err := os.ReadFile(loc.String())
	if err != nil {
		return nil, errs.Wrap(errs.ErrFetch, loc.String(), nil, err)
	}

	fh := hint
	if fh == "" {
		fh = formatFromExtension(loc.String())
	}

	return &FetchResult{
		Bytes:      data,
		FormatHint: fh,
		Origin:     OriginFile,
		Metadata:   FetchMetadata{Mtime: info.ModTime()},
	}, nil
}

func formatFromContentType(ct string) string {
	ct = strings.ToLower(strings.SplitN(ct, ";", 2)[0])
	switch strings.TrimSpace(ct) {
	case "text/turtle":
		return "turtle"
	case "application/n-triples":
		return "ntriples"
	case "application/rdf+xml":
		return "rdfxml"
	case "application/ld+json":
		return "jsonld"
	case "application/trig":
		return "trig"
	case "application/n-quads":
		return "nquads"
	case "text/n3":
		return "n3"
	default:
		return ""
	}
}

func formatFromExtension(loc string) string {
	switch strings.ToLower(filepath.Ext(loc)) {
	case ".ttl":
		return "turtle"
	case ".nt":
		return "ntriples"
	case ".xml", ".owl":
		return "rdfxml"
	case ".n3":
		return "n3"
	case ".jsonld":
		return "jsonld"
	case ".trig":
		return "trig"
	case ".nq":
		return "nquads"
	default:
		return ""
	}
}
