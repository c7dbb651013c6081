package store

import (
	"context"
	"net"
	"net/url"
	"sync"
	"time"
)

// Reachability is a DNS pre-check for the store host. Results are cached per
// host for ttl so a transient resolver failure in a long-lived server does
// not disable reads for the rest of the process.
type Reachability struct {
	ttl    time.Duration
	lookup func(ctx context.Context, host string) ([]string, error)
	now    func() time.Time

	mu      sync.Mutex
	results map[string]reachResult
}

type reachResult struct {
	ok        bool
	checkedAt time.Time
}

// NewReachability returns a checker backed by the default resolver.
func NewReachability(ttl time.Duration) *Reachability {
	return &Reachability{
		ttl:     ttl,
		lookup:  net.DefaultResolver.LookupHost,
		now:     time.Now,
		results: make(map[string]reachResult),
	}
}

// Reachable reports whether the host of rawURL resolves.
func (r *Reachability) Reachable(ctx context.Context, rawURL string) bool {
	if rawURL == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := u.Hostname()

	r.mu.Lock()
	res, ok := r.results[host]
	r.mu.Unlock()
	if ok && r.now().Sub(res.checkedAt) < r.ttl {
		return res.ok
	}

	// The lookup runs unlocked so one slow resolve does not hold up callers
	// with a fresh cached answer.
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err = r.lookup(ctx, host)

	r.mu.Lock()
	r.results[host] = reachResult{ok: err == nil, checkedAt: r.now()}
	r.mu.Unlock()
	return err == nil
}
