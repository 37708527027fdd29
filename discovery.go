package ontoenv

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// discoverFiles walks each configured location recursively and returns the
// file paths that match an include pattern and no exclude pattern, per
// spec §6 "Discovery". Bare directory patterns (no glob metacharacters) are
// expanded with a "/**" suffix so they match everything beneath them.
func discoverFiles(locations, includes, excludes []string) ([]string, error) {
	incs := expandBarePatterns(includes)
	excs := expandBarePatterns(excludes)

	var found []string
	seen := map[string]bool{}
	for _, loc := range locations {
		err := filepath.WalkDir(loc, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, relErr := filepath.Rel(loc, path)
			if relErr != nil {
				rel = path
			}
			if !matchesAny(rel, path, incs) {
				return nil
			}
			if matchesAny(rel, path, excs) {
				return nil
			}
			if !seen[path] {
				seen[path] = true
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return found, nil
}

func expandBarePatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if !strings.ContainsAny(p, "*?[") {
			p = strings.TrimSuffix(p, "/") + "/**"
		}
		out = append(out, p)
	}
	return out
}

// matchesAny applies gitignore-style doublestar matching: "**" matches any
// number of path segments, single-segment globs use filepath.Match semantics.
func matchesAny(rel, full string, patterns []string) bool {
	for _, p := range patterns {
		if globMatch(p, rel) || globMatch(p, filepath.Base(full)) {
			return true
		}
	}
	return false
}

// globMatch implements a minimal "**"-aware glob: "**" matches zero or more
// path segments (including the separator), everything else is delegated to
// filepath.Match per segment. No third-party doublestar matcher appears
// anywhere in the retrieval pack, so this small hand-rolled matcher is the
// idiomatic fallback (see DESIGN.md).
func globMatch(pattern, name string) bool {
	if !strings.Contains(pattern, "**") {
		ok, _ := filepath.Match(pattern, name)
		if ok {
			return true
		}
		// Also allow the pattern to match just the trailing segment.
		ok, _ = filepath.Match(pattern, filepath.Base(name))
		return ok
	}
	parts := strings.SplitN(pattern, "**", 2)
	prefix := strings.TrimSuffix(parts[0], "/")
	suffix := strings.TrimPrefix(parts[1], "/")
	if prefix != "" && !strings.HasPrefix(name, prefix) {
		// Allow prefix to itself be a glob segment.
		ok, _ := filepath.Match(prefix+"*", name)
		if !ok {
			return false
		}
	}
	if suffix == "" {
		return true
	}
	ok, _ := filepath.Match(suffix, filepath.Base(name))
	if ok {
		return true
	}
	return strings.HasSuffix(name, suffix)
}
