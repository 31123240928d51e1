// Package resolver caches torrent handles by magnet locator. Concurrent
// requests for the same locator share one swarm join, failed joins are never
// cached, and resident handles are bounded by an LRU cap.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"filmstream/internal/domain"
	"filmstream/internal/domain/ports"
	"filmstream/internal/metrics"
)

type Config struct {
	// ResolveTimeout bounds a single swarm join (metadata fetch). 0 = no
	// deadline beyond the caller's context.
	ResolveTimeout time.Duration

	// MaxResident caps cached handles; the least recently used handle is
	// dropped when the cap is exceeded. 0 = unlimited.
	MaxResident int
}

type entry struct {
	handle     ports.TorrentHandle
	lastAccess time.Time
}

type Resolver struct {
	joiner ports.Joiner
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	group   singleflight.Group
	mu      sync.Mutex
	handles map[string]*entry
}

func New(joiner ports.Joiner, cfg Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		joiner:  joiner,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		handles: make(map[string]*entry),
	}
}

// Resolve returns the cached handle for locator, or joins the swarm and
// waits for metadata. Callers arriving while a join is in flight await the
// same join rather than issuing a second one. A failed join leaves no cache
// entry, so the next call is a fresh attempt.
func (r *Resolver) Resolve(ctx context.Context, locator string) (ports.TorrentHandle, error) {
	if handle, ok := r.lookup(locator); ok {
		return handle, nil
	}

	ch := r.group.DoChan(locator, func() (any, error) {
		return r.join(ctx, locator)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(ports.TorrentHandle), nil
	case <-ctx.Done():
		// The join keeps running for other waiters; only this caller gives up.
		return nil, ctx.Err()
	}
}

func (r *Resolver) join(ctx context.Context, locator string) (ports.TorrentHandle, error) {
	// Detach from the initiating request so one client disconnect does not
	// abort a join other callers are waiting on. The resolve deadline still
	// bounds the metadata fetch.
	joinCtx := context.WithoutCancel(ctx)
	if r.cfg.ResolveTimeout > 0 {
		var cancel context.CancelFunc
		joinCtx, cancel = context.WithTimeout(joinCtx, r.cfg.ResolveTimeout)
		defer cancel()
	}

	start := r.now()
	handle, err := r.joiner.Join(joinCtx, locator)
	if err != nil {
		metrics.ResolveFailuresTotal.Inc()
		r.logger.Warn("torrent resolution failed",
			slog.String("locator", truncateLocator(locator)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %v", domain.ErrResolution, err)
	}
	metrics.ResolveDuration.Observe(r.now().Sub(start).Seconds())

	r.store(locator, handle)
	return handle, nil
}

func (r *Resolver) lookup(locator string) (ports.TorrentHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.handles[locator]
	if !ok {
		return nil, false
	}
	e.lastAccess = r.now()
	return e.handle, true
}

func (r *Resolver) store(locator string, handle ports.TorrentHandle) {
	var evicted ports.TorrentHandle

	r.mu.Lock()
	r.handles[locator] = &entry{handle: handle, lastAccess: r.now()}
	if r.cfg.MaxResident > 0 && len(r.handles) > r.cfg.MaxResident {
		evicted = r.evictOldestLocked(locator)
	}
	metrics.ResidentTorrents.Set(float64(len(r.handles)))
	r.mu.Unlock()

	// Drop outside the lock: releasing a torrent can block on engine state.
	if evicted != nil {
		metrics.TorrentEvictionsTotal.Inc()
		r.joiner.Drop(evicted)
	}
}

// evictOldestLocked removes the least recently used handle, never the one
// just stored. Caller holds r.mu.
func (r *Resolver) evictOldestLocked(keep string) ports.TorrentHandle {
	var oldestKey string
	var oldestAt time.Time
	found := false

	for key, e := range r.handles {
		if key == keep {
			continue
		}
		if !found || e.lastAccess.Before(oldestAt) {
			oldestKey = key
			oldestAt = e.lastAccess
			found = true
		}
	}
	if !found {
		return nil
	}

	evicted := r.handles[oldestKey].handle
	delete(r.handles, oldestKey)
	r.logger.Info("evicted resident torrent",
		slog.String("locator", truncateLocator(oldestKey)),
		slog.Int("resident", len(r.handles)),
	)
	return evicted
}

// ResidentCount reports how many handles are currently cached.
func (r *Resolver) ResidentCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Stats reports a snapshot of every resident torrent.
func (r *Resolver) Stats() []ports.SwarmStat {
	return r.joiner.Stats()
}

// Close drops every resident handle and shuts down the underlying engine.
func (r *Resolver) Close() error {
	r.mu.Lock()
	handles := make([]ports.TorrentHandle, 0, len(r.handles))
	for _, e := range r.handles {
		handles = append(handles, e.handle)
	}
	r.handles = make(map[string]*entry)
	r.mu.Unlock()

	for _, h := range handles {
		r.joiner.Drop(h)
	}
	return r.joiner.Close()
}

// truncateLocator keeps log lines readable; magnet URIs can carry long
// tracker lists.
func truncateLocator(locator string) string {
	const limit = 80
	if len(locator) <= limit {
		return locator
	}
	return locator[:limit] + "..."
}
