// Package httpclient implements the HTTP Client Pool & Cloud Tokens (C6):
// a reusable per-target *http.Client pool plus a TokenCache for cloud
// consumers that require OAuth-style access tokens.
//
// Grounded on poller/pool.go's mutex-guarded registry-per-target shape
// (Get/Put/Discard, idle timeout, semaphore-bounded concurrency),
// retargeted from *gosnmp.GoSNMP sessions to *http.Client instances.
package httpclient

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// PoolOptions configures Pool.
type PoolOptions struct {
	// RequestTimeout bounds every request issued through a pooled client
	// (default 30s, per spec §5: "30 s for poller endpoints").
	RequestTimeout time.Duration
	// MaxIdlePerTarget bounds idle connection reuse per target host.
	MaxIdlePerTarget int
}

func (o PoolOptions) withDefaults() PoolOptions {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}
	if o.MaxIdlePerTarget <= 0 {
		o.MaxIdlePerTarget = 2
	}
	return o
}

// Pool hands out a shared *http.Client per target ("host:port"), so
// connection pooling (keep-alive) is reused across poll cycles for the same
// device instead of dialing fresh every time.
type Pool struct {
	opts PoolOptions

	mu      sync.RWMutex
	clients map[string]*http.Client
}

// NewPool constructs a Pool.
func NewPool(opts PoolOptions) *Pool {
	return &Pool{
		opts:    opts.withDefaults(),
		clients: map[string]*http.Client{},
	}
}

// Get returns the shared *http.Client for target, creating one on first
// use.
func (p *Pool) Get(target string) *http.Client {
	p.mu.RLock()
	c, ok := p.clients[target]
	p.mu.RUnlock()
	if ok {
		return c
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[target]; ok {
		return c
	}
	c = &http.Client{
		Timeout: p.opts.RequestTimeout,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: p.opts.MaxIdlePerTarget,
		},
	}
	p.clients[target] = c
	return c
}

// Discard removes target's client, forcing a fresh one (and fresh
// connections) on next Get, used when a target's TLS config changes.
func (p *Pool) Discard(target string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.clients, target)
}

// Close releases all pooled clients' idle connections.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.clients {
		if t, ok := c.Transport.(*http.Transport); ok {
			t.CloseIdleConnections()
		}
	}
	p.clients = map[string]*http.Client{}
	return nil
}

// MetadataClient returns a one-shot *http.Client suitable for GCP instance
// metadata requests: keep-alive disabled (the socket must not be reused)
// and capped at a 5s total wait (§4.5).
func MetadataClient() *http.Client {
	return &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			DisableKeepAlives: true,
		},
	}
}

// TargetKey formats a (host, port) pair into the pool's target key.
func TargetKey(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
