// Package pool implements the health-aware server pool (C1): address
// normalization, round-robin selection among healthy entries, and
// time-based recovery of failed servers.
package pool

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ccccccmd/nacos-config-sdk/internal/ferr"
)

// recoveryWindow is how long a server must stay failed before select()
// will attempt it again when the healthy list is otherwise empty.
const recoveryWindow = 10 * time.Second

// unhealthyThreshold is the failure count at which a server is considered
// unhealthy.
const unhealthyThreshold = int32(3)

// health is the per-address accounting described in spec.md's
// ServerHealth. failureCount is mutated only via atomic ops so markFailed
// can run concurrently with select().
type health struct {
	failureCount    atomic.Int32
	lastFailureTime atomic.Int64 // unix nanos, 0 means never failed
}

func (h *health) isHealthy() bool {
	return h.failureCount.Load() < unhealthyThreshold
}

// Pool is a round-robin, health-aware set of server base URLs.
type Pool struct {
	addrs   []string // immutable, normalized
	healthM map[string]*health

	mu           sync.Mutex
	healthyCache []string // guarded by mu, rebuilt on boundary transitions

	counter atomic.Uint64
}

// New normalizes addrs and builds the pool. Fails with
// ferr.ErrConfigurationError when addrs is empty.
func New(addrs []string) (*Pool, error) {
	if len(addrs) == 0 {
		return nil, ferr.ErrConfigurationError
	}

	normalized := make([]string, 0, len(addrs))
	for _, a := range addrs {
		normalized = append(normalized, normalize(a))
	}

	p := &Pool{
		addrs:   normalized,
		healthM: make(map[string]*health, len(normalized)),
	}
	for _, a := range normalized {
		p.healthM[a] = &health{}
	}
	p.healthyCache = append([]string{}, normalized...)
	return p, nil
}

func normalize(addr string) string {
	addr = strings.TrimRight(strings.TrimSpace(addr), "/")
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return addr
}

// Select returns the next server via round-robin among healthy entries.
// If none are healthy, it attempts recovery of long-failed entries and
// falls back to the first configured address as a last resort.
func (p *Pool) Select() string {
	healthy := p.snapshotHealthy()
	if len(healthy) == 0 {
		p.attemptRecovery()
		healthy = p.snapshotHealthy()
	}
	if len(healthy) == 0 {
		return p.addrs[0]
	}

	idx := p.counter.Add(1) % uint64(len(healthy))
	return healthy[idx]
}

func (p *Pool) snapshotHealthy() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.healthyCache...)
}

// attemptRecovery resets any server whose last failure is older than
// recoveryWindow and rebuilds the healthy cache if anything changed.
func (p *Pool) attemptRecovery() {
	now := time.Now().UnixNano()
	changed := false
	for _, addr := range p.addrs {
		h := p.healthM[addr]
		last := h.lastFailureTime.Load()
		if last != 0 && time.Duration(now-last) >= recoveryWindow && !h.isHealthy() {
			h.failureCount.Store(0)
			changed = true
		}
	}
	if changed {
		p.rebuildHealthyCache()
	}
}

// MarkFailed records a failed send against addr.
func (p *Pool) MarkFailed(addr string) {
	h, ok := p.healthM[addr]
	if !ok {
		return
	}
	wasHealthy := h.isHealthy()
	h.failureCount.Add(1)
	h.lastFailureTime.Store(time.Now().UnixNano())
	if wasHealthy && !h.isHealthy() {
		p.rebuildHealthyCache()
	}
}

// MarkHealthy resets addr's failure counter to zero.
func (p *Pool) MarkHealthy(addr string) {
	h, ok := p.healthM[addr]
	if !ok {
		return
	}
	wasHealthy := h.isHealthy()
	h.failureCount.Store(0)
	if !wasHealthy {
		p.rebuildHealthyCache()
	}
}

// rebuildHealthyCache recomputes the healthy list under the lock on every
// call; callers invoke it only when a health boundary is actually crossed,
// so ordinary failures and successes don't churn the cache.
func (p *Pool) rebuildHealthyCache() {
	p.mu.Lock()
	defer p.mu.Unlock()

	rebuilt := make([]string, 0, len(p.addrs))
	for _, addr := range p.addrs {
		if p.healthM[addr].isHealthy() {
			rebuilt = append(rebuilt, addr)
		}
	}
	p.healthyCache = rebuilt
}

// Addresses returns the immutable, normalized address list.
func (p *Pool) Addresses() []string {
	return append([]string{}, p.addrs...)
}
