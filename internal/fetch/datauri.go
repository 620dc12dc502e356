package fetch

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

func isDataURI(address string) bool {
	return len(address) >= 5 && strings.EqualFold(address[:5], "data:")
}

// decodeDataURI returns the payload of an RFC 2397 data URI, either base64
// or percent-encoded.
func decodeDataURI(address string) ([]byte, error) {
	rest := address[len("data:"):]
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return nil, fmt.Errorf("%w: missing comma", ErrInvalidDataURI)
	}
	header, payload := rest[:comma], rest[comma+1:]

	var data []byte
	if strings.HasSuffix(strings.ToLower(header), ";base64") {
		payload = strings.Map(func(r rune) rune {
			switch r {
			case ' ', '\t', '\n', '\r':
				return -1
			}
			return r
		}, payload)
		if unescaped, err := url.PathUnescape(payload); err == nil {
			payload = unescaped
		}

		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			decoded, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidDataURI, err)
			}
		}
		data = decoded
	} else {
		decoded, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDataURI, err)
		}
		data = []byte(decoded)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: data URI", ErrEmptyBody)
	}
	return data, nil
}
