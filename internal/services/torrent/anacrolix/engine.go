// Package anacrolix adapts the anacrolix/torrent client to the ports.Joiner
// capability. One Engine owns the process-wide torrent client; it is
// constructed and closed explicitly rather than living in a global.
package anacrolix

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/anacrolix/torrent"

	"filmstream/internal/domain/ports"
)

// addMagnetTimeout caps the time we wait for the client to accept a magnet
// link. AddMagnet can block on an internal client mutex while the client is
// busy resolving metadata for another torrent.
const addMagnetTimeout = 10 * time.Second

type Config struct {
	DataDir string
}

type Engine struct {
	client *torrent.Client
	logger *slog.Logger

	mu       sync.RWMutex
	torrents map[string]*torrent.Torrent // keyed by locator
}

func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	clientConfig := torrent.NewDefaultClientConfig()
	if cfg.DataDir != "" {
		clientConfig.DataDir = cfg.DataDir
	}

	client, err := torrent.NewClient(clientConfig)
	if err != nil {
		return nil, err
	}
	return NewWithClient(client, logger), nil
}

func NewWithClient(client *torrent.Client, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		client:   client,
		logger:   logger,
		torrents: make(map[string]*torrent.Torrent),
	}
}

// Join adds the magnet to the swarm and blocks until metadata (file list and
// lengths) is known or ctx is done. Full content download is not awaited;
// a torrent is streamable as soon as its metadata arrives.
func (e *Engine) Join(ctx context.Context, locator string) (ports.TorrentHandle, error) {
	if e.client == nil {
		return nil, errors.New("torrent client not configured")
	}

	t, err := e.addMagnet(ctx, locator)
	if err != nil {
		return nil, err
	}

	select {
	case <-t.GotInfo():
	case <-ctx.Done():
		e.forget(locator, t)
		return nil, ctx.Err()
	case <-t.Closed():
		e.forget(locator, t)
		return nil, errors.New("torrent closed before metadata arrived")
	}

	// Pull pieces for the whole torrent; readers raise priority on the spans
	// they actually consume.
	t.DownloadAll()

	e.mu.Lock()
	e.torrents[locator] = t
	e.mu.Unlock()

	e.logger.Info("torrent metadata ready",
		slog.String("name", t.Name()),
		slog.String("infoHash", t.InfoHash().HexString()),
		slog.Int("files", len(t.Files())),
	)

	return &Handle{torrent: t, locator: locator}, nil
}

// addMagnet runs AddMagnet in a goroutine with a timeout so a busy client
// never blocks the HTTP handler indefinitely.
func (e *Engine) addMagnet(ctx context.Context, locator string) (*torrent.Torrent, error) {
	type addResult struct {
		t   *torrent.Torrent
		err error
	}
	ch := make(chan addResult, 1)
	go func() {
		t, err := e.client.AddMagnet(locator)
		ch <- addResult{t, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.t, nil
	case <-time.After(addMagnetTimeout):
		// AddMagnet may still complete later; drop the orphan when it does.
		go func() {
			if res := <-ch; res.t != nil {
				res.t.Drop()
			}
		}()
		return nil, errors.New("torrent client busy, try again later")
	case <-ctx.Done():
		go func() {
			if res := <-ch; res.t != nil {
				res.t.Drop()
			}
		}()
		return nil, ctx.Err()
	}
}

func (e *Engine) Drop(handle ports.TorrentHandle) {
	h, ok := handle.(*Handle)
	if !ok || h.torrent == nil {
		return
	}
	e.forget(h.locator, h.torrent)
}

func (e *Engine) forget(locator string, t *torrent.Torrent) {
	e.mu.Lock()
	if existing, ok := e.torrents[locator]; ok && existing == t {
		delete(e.torrents, locator)
	}
	e.mu.Unlock()
	t.Drop()
	// Return freed piece memory to the OS promptly; without this the GC may
	// hold it long enough to OOM memory-constrained hosts.
	runtime.GC()
	debug.FreeOSMemory()
}

func (e *Engine) Stats() []ports.SwarmStat {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := make([]ports.SwarmStat, 0, len(e.torrents))
	for locator, t := range e.torrents {
		stat := ports.SwarmStat{
			Locator: locator,
			Peers:   t.Stats().ActivePeers,
		}
		if infoReady(t) {
			stat.Name = t.Name()
			stat.TotalBytes = t.Length()
			stat.BytesCompleted = t.BytesCompleted()
			if stat.TotalBytes > 0 {
				stat.Progress = float64(stat.BytesCompleted) / float64(stat.TotalBytes)
			}
		}
		stats = append(stats, stat)
	}
	return stats
}

func (e *Engine) Close() error {
	if e.client == nil {
		return nil
	}
	errList := e.client.Close()
	if len(errList) > 0 {
		return errList[0]
	}
	return nil
}

func infoReady(t *torrent.Torrent) bool {
	select {
	case <-t.GotInfo():
		return true
	default:
		return false
	}
}
