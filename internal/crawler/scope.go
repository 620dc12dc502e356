package crawler

import (
	"net/url"
	"path/filepath"
	"strings"
)

// scope filters discovered links by path patterns.
type scope struct {
	ignore []string
	follow []string
}

// allows reports whether address should be queued:
//  1. a match in ignore rejects it;
//  2. with follow patterns set, only a match accepts it;
//  3. otherwise it is accepted.
func (s scope) allows(address string) bool {
	if len(s.ignore) == 0 && len(s.follow) == 0 {
		return true
	}

	u, err := url.Parse(address)
	if err != nil {
		return false
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range s.ignore {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(s.follow) > 0 {
		for _, pattern := range s.follow {
			if matchPattern(pattern, path) {
				return true
			}
		}
		return false
	}

	return true
}

// matchPattern checks a path against a glob pattern:
//   - "/admin/*" matches "/admin" and everything below it
//   - "*.pdf" matches any path ending in .pdf
//   - other patterns use filepath.Match, and patterns without a slash are
//     also tried against the last path segment
func matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") && strings.HasSuffix(path, strings.TrimPrefix(pattern, "*")) {
		return true
	}

	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}

	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}

	return false
}
