// Package pool caches live cluster clients and evicts the ones left idle, so
// broker-side resources are freed for clusters the user is not actively
// working with.
package pool

import (
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultIdleThreshold is how long an entry may go untouched before the
	// next sweep disconnects it.
	DefaultIdleThreshold = 5 * time.Minute

	// DefaultSweepInterval is how often the eviction sweep runs.
	DefaultSweepInterval = time.Minute
)

// Connection is anything the pool can disconnect.
type Connection interface {
	Close()
}

// entry wraps a pooled connection with its usage bookkeeping.
type entry struct {
	conn       Connection
	lastUsedAt time.Time
	useCount   int64
	connected  bool
}

// Pool is an idle-evicting cache of cluster connections keyed by cluster
// name. A disconnected entry is never returned to callers; it is removed so
// the owner can reconnect from scratch.
type Pool struct {
	idleThreshold time.Duration
	sweepInterval time.Duration
	now           func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	stopCh  chan struct{}
	stopped bool
}

// Option configures a Pool.
type Option func(*Pool)

// WithIdleThreshold overrides the idle eviction threshold.
func WithIdleThreshold(d time.Duration) Option {
	return func(p *Pool) { p.idleThreshold = d }
}

// WithSweepInterval overrides the sweep interval.
func WithSweepInterval(d time.Duration) Option {
	return func(p *Pool) { p.sweepInterval = d }
}

// New creates a pool and starts its background eviction sweep.
func New(opts ...Option) *Pool {
	p := &Pool{
		idleThreshold: DefaultIdleThreshold,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
		entries:       make(map[string]*entry),
		stopCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	go p.sweepLoop()
	return p
}

// Get returns the pooled connection for key, touching its usage counters.
// The second result is false when no connected entry exists.
func (p *Pool) Get(key string) (Connection, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[key]
	if !ok || !e.connected {
		return nil, false
	}
	e.lastUsedAt = p.now()
	e.useCount++
	return e.conn, true
}

// Put stores a freshly created connection under key, replacing (and closing)
// any previous entry.
func (p *Pool) Put(key string, conn Connection) {
	p.mu.Lock()
	prev, hadPrev := p.entries[key]
	p.entries[key] = &entry{conn: conn, lastUsedAt: p.now(), useCount: 1, connected: true}
	p.mu.Unlock()

	if hadPrev {
		closeQuietly(key, prev.conn)
	}
}

// Remove disconnects and deletes the entry for key, if any.
func (p *Pool) Remove(key string) {
	p.mu.Lock()
	e, ok := p.entries[key]
	delete(p.entries, key)
	p.mu.Unlock()

	if ok {
		closeQuietly(key, e.conn)
	}
}

// Len returns the number of pooled entries.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// UseCount returns how many times the entry for key was handed out.
func (p *Pool) UseCount(key string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[key]; ok {
		return e.useCount
	}
	return 0
}

// Sweep disconnects and removes every entry idle longer than the threshold.
// Individual disconnect failures are logged and do not block the rest.
func (p *Pool) Sweep() {
	cutoff := p.now().Add(-p.idleThreshold)

	p.mu.Lock()
	var evicted []struct {
		key  string
		conn Connection
	}
	for key, e := range p.entries {
		if e.lastUsedAt.Before(cutoff) {
			e.connected = false
			evicted = append(evicted, struct {
				key  string
				conn Connection
			}{key, e.conn})
			delete(p.entries, key)
		}
	}
	p.mu.Unlock()

	for _, ev := range evicted {
		slog.Info("Evicting idle cluster connection", "cluster", ev.key)
		closeQuietly(ev.key, ev.conn)
	}
}

// Stop halts the sweep loop and disconnects every entry. Per-entry failures
// do not abort teardown of the rest.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.stopCh)
	remaining := p.entries
	p.entries = make(map[string]*entry)
	p.mu.Unlock()

	for key, e := range remaining {
		closeQuietly(key, e.conn)
	}
}

func (p *Pool) sweepLoop() {
	ticker := time.NewTicker(p.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.Sweep()
		case <-p.stopCh:
			return
		}
	}
}

// closeQuietly disconnects one entry, containing panics from misbehaving
// clients so one bad cluster cannot block cleanup of others.
func closeQuietly(key string, conn Connection) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic while disconnecting pooled connection", "cluster", key, "panic", r)
		}
	}()
	conn.Close()
}
