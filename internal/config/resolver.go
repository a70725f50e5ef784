package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Resolver holds the current configuration snapshot and swaps it atomically
// when the backing file changes on disk. Callers read a fresh snapshot per
// evaluation, so reloaded settings take effect on the next call without any
// coordination.
type Resolver struct {
	path string

	current *Config
	mu      sync.RWMutex

	logger zerolog.Logger
}

// NewResolver loads the configuration at path and returns a resolver for it.
func NewResolver(path string, logger zerolog.Logger) (*Resolver, error) {
	cfg, err := LoadConfigFromPath(path)
	if err != nil {
		return nil, err
	}

	return &Resolver{
		path:    path,
		current: cfg,
		logger:  logger.With().Str("component", "config").Logger(),
	}, nil
}

// Snapshot returns a copy of the current configuration.
func (r *Resolver) Snapshot() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return *r.current
}

// Watch reloads the configuration whenever the backing file is rewritten.
// It blocks until ctx is cancelled. A reload that fails to parse keeps the
// previous snapshot.
func (r *Resolver) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory rather than the file itself: editors and config
	// management tools replace files, which drops a direct file watch.
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher channel closed")
			}
			if filepath.Clean(event.Name) != filepath.Clean(r.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			r.reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			r.logger.Warn().Err(err).Msg("config watcher error")
		}
	}
}

// reload swaps in the on-disk configuration, keeping the previous snapshot
// if the file no longer parses.
func (r *Resolver) reload() {
	cfg, err := LoadConfigFromPath(r.path)
	if err != nil {
		r.logger.Warn().Err(err).Str("path", r.path).Msg("config reload failed, keeping previous configuration")
		return
	}

	r.mu.Lock()
	r.current = cfg
	r.mu.Unlock()

	r.logger.Info().
		Str("path", r.path).
		Str("policy_topic", cfg.PolicyTopic).
		Int("policy_timeout_ms", cfg.PolicyTimeoutMs).
		Msg("configuration reloaded")
}
