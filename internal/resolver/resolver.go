// Package resolver turns the operator's robot address (a dotted quad,
// a DNS name or a .local name) into an IPv4 address.
//
// Lookups run in the background.  Only the most recent request is
// remembered; results for anything older are dropped on arrival, so a
// slow lookup can never overwrite a newer answer.
package resolver

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"robolink/util"
)

// LookupFunc resolves a host name to a list of address strings.
// net.DefaultResolver.LookupHost has this shape.
type LookupFunc func(ctx context.Context, host string) ([]string, error)

// Result is delivered once per successful background lookup.
type Result struct {
	Address string // the string passed to Resolve
	IP      net.IP
	Kind    Kind
}

// Config tunes a Resolver.  Zero fields take defaults.
type Config struct {
	// Timeout bounds each background lookup (default 2s).
	Timeout time.Duration
	// CacheTTL is how long successful lookups are reused (default 10s,
	// negative disables the cache).
	CacheTTL time.Duration
	// DNS resolves plain host names (default net.DefaultResolver).
	DNS LookupFunc
	// MDNS resolves .local names.  The default races a multicast query
	// against the system resolver, which covers hosts whose stack
	// already speaks mDNS.
	MDNS LookupFunc
}

// Resolver classifies and resolves addresses.  It is safe for
// concurrent use; onResolved runs on a background goroutine.
type Resolver struct {
	cfg        Config
	logger     *util.Logger
	onResolved func(Result)
	cache      *cache

	mu      sync.Mutex
	token   uint64
	current string
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a resolver that reports background results to onResolved.
func New(cfg Config, logger *util.Logger, onResolved func(Result)) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 10 * time.Second
	}
	if cfg.DNS == nil {
		cfg.DNS = net.DefaultResolver.LookupHost
	}
	if cfg.MDNS == nil {
		mc := &MulticastLookup{Timeout: cfg.Timeout}
		cfg.MDNS = func(ctx context.Context, host string) ([]string, error) {
			return firstOf(ctx, host, mc.LookupHost, net.DefaultResolver.LookupHost)
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Resolver{
		cfg:        cfg,
		logger:     logger.With("resolver"),
		onResolved: onResolved,
		cache:      newCache(cfg.CacheTTL),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Resolve starts resolving address and supersedes any request still in
// flight.  A dotted quad resolves immediately and is returned with
// ok=true; nothing is delivered to onResolved for it.  Names are looked
// up in the background and ok is false.  A failed lookup delivers
// nothing; callers own their timeouts.
func (r *Resolver) Resolve(address string) (ip net.IP, ok bool) {
	address = strings.TrimSpace(address)
	kind := Classify(address)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, false
	}
	r.token++
	tok := r.token
	r.current = address
	r.mu.Unlock()

	switch kind {
	case Unknown:
		return nil, false
	case Static:
		if ip := net.ParseIP(address).To4(); ip != nil {
			return ip, true
		}
		r.logger.Debug("%q looks static but does not parse", address)
		return nil, false
	}

	go r.lookup(tok, address, kind)
	return nil, false
}

// Current returns the address of the most recent request.
func (r *Resolver) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Close abandons in-flight lookups.  Later results are dropped.
func (r *Resolver) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
}

func (r *Resolver) lookup(tok uint64, address string, kind Kind) {
	addrs, hit := r.cache.get(address)
	if !hit {
		ctx, cancel := context.WithTimeout(r.ctx, r.cfg.Timeout)
		fn := r.cfg.DNS
		if kind == MDNS {
			fn = r.cfg.MDNS
		}
		var err error
		addrs, err = fn(ctx, address)
		cancel()
		if err != nil {
			r.logger.Debug("%s lookup %q: %v", kind, address, err)
		}
	}

	ip := firstIPv4(addrs)
	if ip == nil {
		r.logger.Debug("%s lookup %q: no IPv4 address", kind, address)
		return
	}
	if !hit {
		r.cache.put(address, addrs)
	}

	r.mu.Lock()
	stale := tok != r.token || r.closed
	r.mu.Unlock()
	if stale {
		r.logger.Debug("dropping stale result %s for %q", ip, address)
		return
	}

	r.logger.Verbose("%s resolved to %s (%s)", address, ip, kind)
	if r.onResolved != nil {
		r.onResolved(Result{Address: address, IP: ip, Kind: kind})
	}
}

// firstIPv4 returns the first entry that is itself a dotted quad.
func firstIPv4(addrs []string) net.IP {
	for _, a := range addrs {
		if Classify(a) != Static {
			continue
		}
		if ip := net.ParseIP(a).To4(); ip != nil {
			return ip
		}
	}
	return nil
}

// ── cache ────────────────────────────────────────────────────────────

type cacheEntry struct {
	addrs   []string
	expires time.Time
}

type cache struct {
	ttl time.Duration
	mu  sync.Mutex
	m   map[string]cacheEntry
}

func newCache(ttl time.Duration) *cache {
	return &cache{ttl: ttl, m: make(map[string]cacheEntry)}
}

func (c *cache) get(host string) ([]string, bool) {
	if c.ttl < 0 {
		return nil, false
	}
	key := strings.ToLower(host)
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		delete(c.m, key)
		return nil, false
	}
	return e.addrs, true
}

func (c *cache) put(host string, addrs []string) {
	if c.ttl < 0 {
		return
	}
	c.mu.Lock()
	c.m[strings.ToLower(host)] = cacheEntry{addrs: addrs, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}
