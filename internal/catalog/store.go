// Package catalog reads the film collection the streaming core serves from.
// The collection is owned by an external collaborator; this store only loads
// its JSON file and keeps an in-memory snapshot fresh.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"filmstream/internal/domain"
)

type Store struct {
	path   string
	logger *slog.Logger

	mu    sync.RWMutex
	films []domain.Film

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewStore loads the catalog file and starts watching its directory for
// changes. A missing or malformed file is not fatal: the store starts empty
// and picks the collection up on the next write.
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		path:   path,
		logger: logger,
		done:   make(chan struct{}),
	}

	if err := s.reload(); err != nil {
		logger.Warn("catalog initial load failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory, not the file: editors and atomic writers replace
	// the file inode, which silently drops a file-level watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}
	s.watcher = watcher
	go s.watch()

	return s, nil
}

func (s *Store) List(ctx context.Context) ([]domain.Film, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Film(nil), s.films...), nil
}

func (s *Store) Get(ctx context.Context, id string) (domain.Film, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, film := range s.films {
		if film.ID == id {
			return film, nil
		}
	}
	return domain.Film{}, domain.ErrNotFound
}

func (s *Store) Close() error {
	close(s.done)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *Store) reload() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	var films []domain.Film
	if err := json.Unmarshal(raw, &films); err != nil {
		return err
	}

	s.mu.Lock()
	s.films = films
	s.mu.Unlock()

	s.logger.Debug("catalog loaded",
		slog.String("path", s.path),
		slog.Int("films", len(films)),
	)
	return nil
}

func (s *Store) watch() {
	target := filepath.Clean(s.path)
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := s.reload(); err != nil {
				s.logger.Warn("catalog reload failed",
					slog.String("path", s.path),
					slog.String("error", err.Error()),
				)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("catalog watcher error", slog.String("error", err.Error()))
		}
	}
}
