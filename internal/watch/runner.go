package watch

import (
	"context"
	"crypto/sha256"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kilnhq/kiln/internal/parser"
	"github.com/kilnhq/kiln/internal/pipeline"
	"github.com/kilnhq/kiln/internal/report"
)

const defaultDebounce = 200 * time.Millisecond

// Runner consumes watcher events and renders one report per changed
// file, under <outDir>/<file stem>/.
type Runner struct {
	watcher  *Watcher
	outDir   string
	debounce time.Duration
	log      *zap.Logger
	onResult func(path string, res *pipeline.Result)

	mu      sync.Mutex
	pending map[string]*time.Timer
	seen    map[string][sha256.Size]byte
}

// NewRunner wires a Runner to a Watcher. onResult, when non-nil, runs
// after every successful render.
func NewRunner(w *Watcher, outDir string, debounce time.Duration, log *zap.Logger, onResult func(string, *pipeline.Result)) *Runner {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Runner{
		watcher:  w,
		outDir:   outDir,
		debounce: debounce,
		log:      log,
		onResult: onResult,
		pending:  make(map[string]*time.Timer),
		seen:     make(map[string][sha256.Size]byte),
	}
}

// Start renders every initially matched file, then keeps re-rendering as
// changes come in. Blocks until the context is cancelled.
func (r *Runner) Start(ctx context.Context) {
	for _, p := range r.watcher.Paths() {
		r.process(ctx, p)
	}

	for {
		select {
		case <-ctx.Done():
			r.stopTimers()
			return
		case ev, ok := <-r.watcher.Events:
			if !ok {
				r.stopTimers()
				return
			}
			r.handleEvent(ctx, ev)
		}
	}
}

func (r *Runner) handleEvent(ctx context.Context, ev Event) {
	switch {
	case ev.Op&fsnotify.Write != 0, ev.Op&fsnotify.Create != 0:
		r.schedule(ctx, ev.Path)
	case ev.Op&fsnotify.Remove != 0, ev.Op&fsnotify.Rename != 0:
		// Forget the content hash so a recreated file renders again.
		r.forget(ev.Path)
	}
}

// schedule coalesces bursts of writes into one render per debounce window.
func (r *Runner) schedule(ctx context.Context, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.pending[path]; ok {
		t.Reset(r.debounce)
		return
	}
	r.pending[path] = time.AfterFunc(r.debounce, func() {
		r.mu.Lock()
		delete(r.pending, path)
		r.mu.Unlock()
		r.process(ctx, path)
	})
}

func (r *Runner) forget(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.seen, path)
	if t, ok := r.pending[path]; ok {
		t.Stop()
		delete(r.pending, path)
	}
}

func (r *Runner) stopTimers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for path, t := range r.pending {
		t.Stop()
		delete(r.pending, path)
	}
}

// process renders one file. Content identical to the last successful
// render is skipped.
func (r *Runner) process(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		r.log.Warn("cannot read file", zap.String("file", path), zap.Error(err))
		return
	}

	sum := sha256.Sum256(data)
	r.mu.Lock()
	prev, rendered := r.seen[path]
	r.mu.Unlock()
	if rendered && prev == sum {
		r.log.Debug("content unchanged", zap.String("file", path))
		return
	}

	format, err := parser.DetectFormat(path)
	if err != nil {
		r.log.Warn("skipping file with unknown format", zap.String("file", path))
		return
	}

	res, err := pipeline.Run(ctx, pipeline.Input{
		Source: filepath.Base(path),
		Format: format,
		Data:   data,
	}, nil)
	if err != nil {
		r.log.Warn("render failed", zap.String("file", path), zap.Error(err))
		return
	}

	dir := filepath.Join(r.outDir, stem(path))
	if err := report.WriteDir(dir, res.Report); err != nil {
		r.log.Error("write report", zap.String("dir", dir), zap.Error(err))
		return
	}

	r.mu.Lock()
	r.seen[path] = sum
	r.mu.Unlock()

	r.log.Info("report rendered",
		zap.String("file", path),
		zap.String("dir", dir),
		zap.Int("records", res.Summary.TotalRecords))

	if r.onResult != nil {
		r.onResult(path, res)
	}
}

// stem returns the file name without its extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
