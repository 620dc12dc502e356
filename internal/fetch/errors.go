package fetch

import "errors"

var (
	// ErrUnexpectedStatus is returned when a binary or image download does
	// not answer 200 OK.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrEmptyBody is returned when a binary or image download has no payload.
	ErrEmptyBody = errors.New("empty response body")

	// ErrInvalidProxyAddress is returned when the proxy address is not in
	// "host:port" format.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrBodyTooLarge is returned when a response body exceeds the
	// configured maximum size.
	ErrBodyTooLarge = errors.New("response body exceeds maximum size")

	// ErrUnsupportedScheme is returned for addresses that are neither http
	// nor https.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")

	// ErrInvalidDataURI is returned when an inline data: image cannot be
	// decoded.
	ErrInvalidDataURI = errors.New("invalid data URI")

	// ErrProxyUnreachable is returned by CheckProxy when no TCP connection
	// to the proxy can be made.
	ErrProxyUnreachable = errors.New("cannot connect to proxy")

	// ErrProxyNotSOCKS5 is returned by CheckProxy when the proxy answers but
	// does not speak SOCKS5 without authentication.
	ErrProxyNotSOCKS5 = errors.New("proxy is not a SOCKS5 proxy")
)
