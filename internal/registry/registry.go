// Package registry maps host names to site identifiers.
//
// Every page belongs to exactly one site, keyed by the lowercased host of
// its address (including a non-default port). The Registry fronts the
// store with an in-memory cache, and concurrent first sightings of the same
// host are collapsed into a single store call so that all callers observe
// one identifier.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrNoHost is returned when an address carries no host.
var ErrNoHost = errors.New("address has no host")

// SiteStore persists sites. GetOrCreateSite must be atomic: concurrent calls
// for the same host return the same identifier.
type SiteStore interface {
	GetOrCreateSite(ctx context.Context, host string) (int64, error)
}

// Registry resolves hosts to site identifiers.
type Registry struct {
	store  SiteStore
	logger *slog.Logger

	mu    sync.RWMutex
	sites map[string]int64

	group singleflight.Group
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Registry backed by store.
func New(store SiteStore, opts ...Option) *Registry {
	r := &Registry{
		store:  store,
		logger: slog.Default(),
		sites:  make(map[string]int64),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreate returns the identifier of host, creating the site on first
// sight. It is idempotent and safe for concurrent use.
func (r *Registry) GetOrCreate(ctx context.Context, host string) (int64, error) {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return 0, ErrNoHost
	}

	if id, ok := r.lookup(host); ok {
		return id, nil
	}

	// The shared flight outlives a cancelled caller; each caller stops
	// waiting when its own ctx ends.
	flightCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(host, func() (any, error) {
		// Another flight may have finished between lookup and DoChan.
		if id, ok := r.lookup(host); ok {
			return id, nil
		}

		id, err := r.store.GetOrCreateSite(flightCtx, host)
		if err != nil {
			return int64(0), err
		}

		r.mu.Lock()
		r.sites[host] = id
		r.mu.Unlock()

		r.logger.Debug("registered site", "host", host, "site_id", id)
		return id, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return 0, fmt.Errorf("failed to register site %s: %w", host, res.Err)
		}
		return res.Val.(int64), nil
	case <-ctx.Done():
		return 0, fmt.Errorf("failed to register site %s: %w", host, ctx.Err())
	}
}

// SiteID resolves the site of address.
func (r *Registry) SiteID(ctx context.Context, address string) (int64, error) {
	host, err := Host(address)
	if err != nil {
		return 0, err
	}
	return r.GetOrCreate(ctx, host)
}

// Len returns the number of cached sites.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sites)
}

func (r *Registry) lookup(host string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.sites[host]
	return id, ok
}

// Host returns the lowercased host[:port] of address. Default ports are
// dropped so that http://a.test:80 and http://a.test share a site.
func Host(address string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(address))
	if err != nil {
		return "", fmt.Errorf("failed to parse address %q: %w", address, err)
	}

	hostname := strings.ToLower(u.Hostname())
	if hostname == "" {
		return "", fmt.Errorf("%w: %s", ErrNoHost, address)
	}

	port := u.Port()
	switch {
	case port == "":
	case port == "80" && u.Scheme == "http", port == "443" && u.Scheme == "https":
		port = ""
	default:
		if _, err := strconv.Atoi(port); err != nil {
			return "", fmt.Errorf("failed to parse port of %q: %w", address, err)
		}
	}

	if strings.Contains(hostname, ":") {
		hostname = "[" + hostname + "]"
	}
	if port == "" {
		return hostname, nil
	}
	return hostname + ":" + port, nil
}
