package services

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/yungbote/postbridge-backend/internal/platform/logger"
)

// GuardWatcher reloads the guard pattern file when it changes on disk. A file
// that fails to parse leaves the current rules in place.
type GuardWatcher struct {
	log     *logger.Logger
	guard   *Guard
	path    string
	base    GuardConfig
	watcher *fsnotify.Watcher
}

// NewGuardWatcher watches path. base supplies values the file leaves unset.
func NewGuardWatcher(log *logger.Logger, guard *Guard, path string, base GuardConfig) (*GuardWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Editors often replace the file, so watch the directory.
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	return &GuardWatcher{
		log:     log.With("service", "GuardWatcher"),
		guard:   guard,
		path:    filepath.Clean(path),
		base:    base,
		watcher: w,
	}, nil
}

// Run blocks until ctx is done.
func (gw *GuardWatcher) Run(ctx context.Context) {
	defer gw.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-gw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != gw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			gw.reload()
		case err, ok := <-gw.watcher.Errors:
			if !ok {
				return
			}
			gw.log.Warn("Guard watcher error", "error", err)
		}
	}
}

func (gw *GuardWatcher) reload() {
	cfg, err := LoadGuardConfig(gw.path)
	if err != nil {
		gw.log.Warn("Guard config reload failed; keeping previous rules", "path", gw.path, "error", err)
		return
	}
	// Truncate-then-write shows up as an empty file first.
	if cfg.MaxQueryChars == 0 && len(cfg.ForbiddenPatterns) == 0 {
		return
	}
	gw.guard.Replace(MergeGuardConfig(gw.base, cfg))
	gw.log.Info("Guard config reloaded", "path", gw.path, "patterns", len(cfg.ForbiddenPatterns))
}

// MergeGuardConfig overlays the non-zero fields of override onto base.
func MergeGuardConfig(base, override GuardConfig) GuardConfig {
	out := base
	if override.MaxQueryChars > 0 {
		out.MaxQueryChars = override.MaxQueryChars
	}
	if len(override.ForbiddenPatterns) > 0 {
		out.ForbiddenPatterns = override.ForbiddenPatterns
	}
	return out
}
