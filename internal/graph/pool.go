package graph

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Eviction thresholds for a pooled connection, grounded in the
// original analyzer's connection pool design: a connection this old,
// this idle, or this unreliable is no longer worth keeping warm.
const (
	maxConnAge      = time.Hour
	maxConnIdle     = 5 * time.Minute
	maxConnFailures = 3
)

type pooledConn struct {
	exporter  *MemgraphExporter
	createdAt time.Time
	lastUsed  time.Time
	failures  int
}

func (c *pooledConn) stale(now time.Time) bool {
	return now.Sub(c.createdAt) > maxConnAge ||
		now.Sub(c.lastUsed) > maxConnIdle ||
		c.failures > maxConnFailures
}

// Pool maintains a small set of warm MemgraphExporter connections,
// evicting and replacing ones that age out, go idle too long, or
// accumulate failures, and periodically health-checking the rest
// (SPEC_FULL.md §4 supplement, §4.7).
type Pool struct {
	mu      sync.Mutex
	cfg     Config
	conns   []*pooledConn
	minWarm int
	log     *zap.SugaredLogger

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewPool opens minWarm connections up front and returns a ready pool.
func NewPool(cfg Config, minWarm int, log *zap.SugaredLogger) (*Pool, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if minWarm <= 0 {
		minWarm = 1
	}
	p := &Pool{cfg: cfg, minWarm: minWarm, log: log, stopCh: make(chan struct{})}
	for i := 0; i < minWarm; i++ {
		c, err := p.newConn()
		if err != nil {
			return nil, err
		}
		p.conns = append(p.conns, c)
	}
	return p, nil
}

func (p *Pool) newConn() (*pooledConn, error) {
	e, err := NewMemgraphExporter(p.cfg, p.log)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &pooledConn{exporter: e, createdAt: now, lastUsed: now}, nil
}

// Acquire returns a warm exporter, evicting any stale connections
// first and opening a fresh one if the pool is empty.
func (p *Pool) Acquire(ctx context.Context) (*MemgraphExporter, error) {
	p.mu.Lock()
	p.evictStaleLocked(ctx)
	if len(p.conns) > 0 {
		c := p.conns[len(p.conns)-1]
		p.conns = p.conns[:len(p.conns)-1]
		p.mu.Unlock()
		c.lastUsed = time.Now()
		return c.exporter, nil
	}
	p.mu.Unlock()

	c, err := p.newConn()
	if err != nil {
		return nil, err
	}
	return c.exporter, nil
}

// Release returns e to the pool. err, if non-nil, is the outcome of
// the caller's last operation on e and increments its failure count;
// a connection over the failure threshold is evicted on its next
// Acquire-time sweep rather than immediately, to avoid blocking the
// releasing caller on a network round trip.
func (p *Pool) Release(e *MemgraphExporter, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.conns {
		if c.exporter == e {
			c.lastUsed = time.Now()
			if err != nil {
				c.failures++
			}
			return
		}
	}
	failures := 0
	if err != nil {
		failures = 1
	}
	p.conns = append(p.conns, &pooledConn{exporter: e, createdAt: time.Now(), lastUsed: time.Now(), failures: failures})
}

func (p *Pool) evictStaleLocked(ctx context.Context) {
	now := time.Now()
	kept := p.conns[:0]
	for _, c := range p.conns {
		if c.stale(now) {
			if err := c.exporter.Close(ctx); err != nil {
				p.log.Warnw("closing stale graph connection", "error", err)
			}
			continue
		}
		kept = append(kept, c)
	}
	p.conns = kept
}

// StartHealthCheckLoop periodically pings every pooled connection,
// evicting ones that fail and topping the pool back up to minWarm.
// It runs until the returned stop function is called or ctx is done.
func (p *Pool) StartHealthCheckLoop(ctx context.Context, interval time.Duration) func() {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			case <-ticker.C:
				p.healthCheckOnce(ctx)
			}
		}
	}()
	return func() {
		p.stopOnce.Do(func() { close(p.stopCh) })
	}
}

func (p *Pool) healthCheckOnce(ctx context.Context) {
	p.mu.Lock()
	conns := append([]*pooledConn(nil), p.conns...)
	p.mu.Unlock()

	for _, c := range conns {
		if err := c.exporter.TestConnection(ctx); err != nil {
			p.mu.Lock()
			c.failures++
			p.mu.Unlock()
		}
	}

	p.mu.Lock()
	p.evictStaleLocked(ctx)
	deficit := p.minWarm - len(p.conns)
	p.mu.Unlock()

	for i := 0; i < deficit; i++ {
		c, err := p.newConn()
		if err != nil {
			p.log.Warnw("failed to warm graph connection", "error", err)
			return
		}
		p.mu.Lock()
		p.conns = append(p.conns, c)
		p.mu.Unlock()
	}
}

// Close shuts down every pooled connection.
func (p *Pool) Close(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for _, c := range p.conns {
		if err := c.exporter.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.conns = nil
	return firstErr
}
