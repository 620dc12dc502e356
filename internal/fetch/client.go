// Package fetch downloads pages, documents and images over HTTP.
//
// A Client is shared by every crawl worker. It optionally routes traffic
// through a SOCKS5 proxy and optionally caps the global request rate; the
// cap applies to all hosts together, not per host.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a whole request including the body.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize caps the bytes read from one response.
	DefaultMaxBodySize int64 = 10 << 20

	// DefaultUserAgent identifies the crawler.
	DefaultUserAgent = "gocrawler/1.0 (+https://github.com/nao1215/gocrawler)"

	// maxRedirects stops redirect loops.
	maxRedirects = 10
)

// Client fetches resources for the crawler.
type Client struct {
	httpClient   *http.Client
	userAgent    string
	maxBodySize  int64
	timeout      time.Duration
	proxyAddress string
	rateLimit    float64
	limiter      *rate.Limiter
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout. It has no effect together with
// WithHTTPClient.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithMaxBodySize caps the size of a response body. Longer bodies fail
// with ErrBodyTooLarge.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// WithProxy routes every connection through the SOCKS5 proxy at address,
// given as "host:port". An empty address disables the proxy.
func WithProxy(address string) Option {
	return func(c *Client) {
		c.proxyAddress = address
	}
}

// WithRateLimit caps the number of requests per second across all workers
// and hosts. Zero disables the cap.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(c *Client) {
		if requestsPerSecond >= 0 {
			c.rateLimit = requestsPerSecond
		}
	}
}

// WithHTTPClient replaces the HTTP client. Timeout and proxy options are
// then the caller's responsibility.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client. It validates the proxy address but does not contact
// the proxy; call CheckProxy for that.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		timeout:     DefaultTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		httpClient, err := c.newHTTPClient()
		if err != nil {
			return nil, err
		}
		c.httpClient = httpClient
	}

	if c.rateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(c.rateLimit), 1)
	}

	return c, nil
}

// newHTTPClient builds the transport, dialing through the proxy when one is
// configured.
func (c *Client) newHTTPClient() (*http.Client, error) {
	dialer := &net.Dialer{
		Timeout:   c.timeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:               nil,
		DialContext:         dialer.DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if c.proxyAddress != "" {
		if !isValidProxyAddress(c.proxyAddress) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, c.proxyAddress)
		}
		socks, err := proxy.SOCKS5("tcp", c.proxyAddress, nil, dialer)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.DialContext = contextDialer(socks)
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Transport: transport,
		Timeout:   c.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// contextDialer adapts a proxy.Dialer to the transport's DialContext.
func contextDialer(d proxy.Dialer) func(ctx context.Context, network, address string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}

	return func(ctx context.Context, network, address string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		resultCh := make(chan dialResult, 1)
		go func() {
			conn, err := d.Dial(network, address)
			resultCh <- dialResult{conn, err}
		}()

		select {
		case result := <-resultCh:
			return result.conn, result.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// isValidProxyAddress checks the "host:port" format with a port in 1..65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// ProxyAddress returns the configured proxy address, or "" when none is set.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// Fetch downloads address and returns its body and status code. A non-2xx
// status is not an error; the caller decides what to do with it.
func (c *Client) Fetch(ctx context.Context, address string) ([]byte, int, error) {
	resp, err := c.get(ctx, address)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := c.readBody(resp)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read body of %s: %w", address, err)
	}
	return body, resp.StatusCode, nil
}

// FetchBinary downloads a document. Anything but 200 OK is an error, and so
// is an empty payload.
func (c *Client) FetchBinary(ctx context.Context, address string) ([]byte, error) {
	resp, err := c.get(ctx, address)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxBodySize)) //nolint:errcheck // best effort
		return nil, fmt.Errorf("%w: %d for %s", ErrUnexpectedStatus, resp.StatusCode, address)
	}

	body, err := c.readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", address, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyBody, address)
	}
	return body, nil
}

// FetchImage returns the bytes of an image referenced by the page at
// pageAddress. Relative image addresses are resolved against the page and
// inline data: images are decoded without network access.
func (c *Client) FetchImage(ctx context.Context, pageAddress, imageAddress string) ([]byte, error) {
	imageAddress = strings.TrimSpace(imageAddress)
	if isDataURI(imageAddress) {
		return decodeDataURI(imageAddress)
	}

	resolved, err := resolve(pageAddress, imageAddress)
	if err != nil {
		return nil, err
	}
	return c.FetchBinary(ctx, resolved)
}

// get issues a GET after waiting for the global rate limiter.
func (c *Client) get(ctx context.Context, address string) (*http.Response, error) {
	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("failed to parse address %q: %w", address, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, address)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", address, err)
	}

	c.logger.Debug("fetched",
		"url", address,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return resp, nil
}

// readBody reads the whole body, failing with ErrBodyTooLarge when it is
// longer than maxBodySize. A truncated body is never returned.
func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, c.maxBodySize)
	}
	return body, nil
}

// resolve resolves ref against base.
func resolve(base, ref string) (string, error) {
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("failed to parse image address %q: %w", ref, err)
	}
	if refURL.IsAbs() {
		return refURL.String(), nil
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("failed to parse page address %q: %w", base, err)
	}
	return baseURL.ResolveReference(refURL).String(), nil
}
