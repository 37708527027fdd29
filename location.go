package ontoenv

import (
	"net/url"
	"path/filepath"
	"strings"
)

// Location is a resolvable origin for bytes: an absolute filesystem path or
// absolute URL, normalized per spec §3 (percent-decoded host, lowercased
// scheme, no trailing slash). Two locations are equal iff their normalized
// forms match byte-for-byte.
type Location struct {
	raw string
}

// NewLocation normalizes the given path or URL string into a Location.
func NewLocation(s string) Location {
	return Location{raw: normalizeLocation(s)}
}

// String returns the normalized form of the location.
func (l Location) String() string {
	return l.raw
}

// IsURL reports whether the location is an absolute HTTP(S) URL rather than a filesystem path.
func (l Location) IsURL() bool {
	return strings.HasPrefix(l.raw, "http://") || strings.HasPrefix(l.raw, "https://")
}

// Equal reports whether two locations have identical normalized forms.
func (l Location) Equal(other Location) bool {
	return l.raw == other.raw
}

// normalizeLocation lowercases the scheme, percent-decodes the host and strips
// a single trailing slash, for both URLs and filesystem paths.
func normalizeLocation(s string) string {
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		u, err := url.Parse(s)
		if err != nil {
			return strings.TrimSuffix(s, "/")
		}
		u.Scheme = strings.ToLower(u.Scheme)
		if host, err := url.QueryUnescape(u.Host); err == nil {
			u.Host = host
		}
		u.Host = strings.ToLower(u.Host)
		return strings.TrimSuffix(u.String(), "/")
	}
	abs, err := filepath.Abs(s)
	if err != nil {
		abs = s
	}
	abs = filepath.Clean(abs)
	return abs
}
