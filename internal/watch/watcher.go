// Package watch re-renders reports whenever watched log files change.
// Glob patterns are expanded with doublestar and the containing
// directories are watched with fsnotify, so files created after startup
// are picked up as long as they match a pattern.
package watch

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Event represents a change to a file matching one of the patterns.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Watcher monitors log files for changes using OS-level notifications.
type Watcher struct {
	fsw      *fsnotify.Watcher
	log      *zap.Logger
	patterns []string // absolute, slash-separated
	Events   chan Event
	paths    []string
}

// New creates a Watcher for the given glob patterns. Patterns are
// expanded at startup; matched files are reported through Events along
// with later changes inside the watched directories.
func New(patterns []string, log *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:    fsw,
		log:    log,
		Events: make(chan Event, 256),
	}

	watched := make(map[string]bool)
	addDir := func(dir string) {
		if dir == "" || watched[dir] {
			return
		}
		if err := fsw.Add(dir); err != nil {
			w.log.Warn("cannot watch directory", zap.String("dir", dir), zap.Error(err))
			return
		}
		watched[dir] = true
	}

	for _, pattern := range patterns {
		abs := absPattern(pattern)
		w.patterns = append(w.patterns, abs)

		matches, err := doublestar.FilepathGlob(filepath.FromSlash(abs),
			doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
		if err != nil {
			w.log.Warn("cannot expand pattern", zap.String("pattern", pattern), zap.Error(err))
			continue
		}
		for _, m := range matches {
			w.paths = append(w.paths, m)
			addDir(filepath.Dir(m))
		}

		// Watch the static prefix of the pattern too, so files created
		// later in an empty directory still show up.
		base, _ := doublestar.SplitPattern(abs)
		addDir(filepath.FromSlash(base))
	}

	return w, nil
}

// absPattern rewrites a glob pattern as absolute and slash-separated.
func absPattern(pattern string) string {
	p := filepath.ToSlash(pattern)
	if filepath.IsAbs(pattern) {
		return p
	}
	wd, err := os.Getwd()
	if err != nil {
		return p
	}
	return filepath.ToSlash(wd) + "/" + p
}

// matches reports whether a path is covered by any pattern.
func (w *Watcher) matches(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, pattern := range w.patterns {
		ok, err := doublestar.Match(pattern, slashed)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// Start forwards matching file events. Blocks until the context is
// cancelled.
func (w *Watcher) Start(ctx context.Context) {
	defer w.fsw.Close()
	defer close(w.Events)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !w.matches(ev.Name) {
				continue
			}
			w.Events <- Event{Path: ev.Name, Op: ev.Op}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

// Paths returns the files matched when the watcher started.
func (w *Watcher) Paths() []string {
	return w.paths
}
