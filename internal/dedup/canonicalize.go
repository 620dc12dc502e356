package dedup

import (
	"net/url"
	"strings"

	whatwgUrl "github.com/nlnwa/whatwg-url/url"
)

var urlParser = whatwgUrl.NewParser(whatwgUrl.WithPercentEncodeSinglePercentSign())

// Canonicalize returns the canonical form of address: scheme and host
// lowercased, default ports removed, dot segments resolved, fragment and
// empty query dropped, and an empty path replaced by "/". Input that cannot
// be parsed as an absolute URL is returned trimmed but otherwise unchanged.
// Canonicalize is idempotent and performs no I/O.
func Canonicalize(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return address
	}

	parsed, err := urlParser.Parse(address)
	if err != nil {
		return address
	}

	u, err := url.Parse(parsed.Href(true))
	if err != nil {
		return address
	}
	if u.Host == "" && u.Opaque != "" {
		return u.String()
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.ForceQuery = false
	if u.Path == "" && u.RawPath == "" && u.Host != "" {
		u.Path = "/"
	}
	return u.String()
}
