package content

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 100 * time.Millisecond

// Store holds the current site document and can reload it from disk.
type Store struct {
	path   string
	logger *zap.Logger

	mu       sync.RWMutex
	site     *Site
	onReload []func(*Site)
}

// NewStore loads path, or the embedded document when path is empty.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{path: path, logger: logger}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Site returns the current document. Callers must not modify it.
func (s *Store) Site() *Site {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.site
}

// OnReload registers fn to run after every successful reload.
func (s *Store) OnReload(fn func(*Site)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReload = append(s.onReload, fn)
}

// Reload re-reads the document. On error the previous document stays live.
func (s *Store) Reload() error {
	var (
		site *Site
		err  error
	)
	if s.path == "" {
		site, err = Default()
	} else {
		site, err = Load(s.path)
	}
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.site = site
	hooks := slices.Clone(s.onReload)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn(site)
	}
	return nil
}

// Watch reloads the document whenever its file changes, until ctx ends.
// Editors often replace files by rename, so the parent directory is watched.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("content: watch: %w", err)
	}
	target, err := filepath.Abs(s.path)
	if err != nil {
		target = s.path
	}
	if err := w.Add(filepath.Dir(target)); err != nil {
		w.Close()
		return fmt.Errorf("content: watch %s: %w", filepath.Dir(target), err)
	}

	go func() {
		defer w.Close()
		var debounce <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					debounce = time.After(reloadDebounce)
				}
			case <-debounce:
				debounce = nil
				if err := s.Reload(); err != nil {
					s.logger.Warn("content reload failed; keeping previous version", zap.String("path", s.path), zap.Error(err))
					continue
				}
				s.logger.Info("content reloaded", zap.String("path", s.path))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Debug("content watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
