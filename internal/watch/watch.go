// Package watch rebuilds the site when the source tree changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/dgallion1/docpress/internal/pipeline"
)

// Submitter queues a build.
type Submitter interface {
	Submit(trigger string) (*pipeline.Run, error)
}

// Options configure a Watcher.
type Options struct {
	SourceDir string
	// OutputDir is ignored when it lies inside SourceDir.
	OutputDir string
	// Excludes are name globs, as for the source reader.
	Excludes []string
	// ErrorsSuffix marks error sidecars, which builds write into the source
	// tree and which must not trigger another build.
	ErrorsSuffix string
	Debounce     time.Duration
}

// Watcher turns bursts of filesystem events into single build requests.
type Watcher struct {
	opts   Options
	builds Submitter
	log    *slog.Logger
}

func New(opts Options, builds Submitter, log *slog.Logger) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if abs, err := filepath.Abs(opts.SourceDir); err == nil {
		opts.SourceDir = abs
	}
	if opts.OutputDir != "" {
		if abs, err := filepath.Abs(opts.OutputDir); err == nil {
			opts.OutputDir = abs
		}
	}
	return &Watcher{opts: opts, builds: builds, log: log}
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := w.addTree(watcher, w.opts.SourceDir); err != nil {
		return err
	}
	w.log.Info("watching source tree", "dir", w.opts.SourceDir, "debounce", w.opts.Debounce.String())

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	pending := ""

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("watcher events channel closed")
			}
			if w.ignored(event) {
				continue
			}
			w.log.Debug("source changed", "path", event.Name, "op", event.Op.String())
			if event.Has(fsnotify.Create) {
				// New folders are watched too; errors mean it is a file.
				_ = w.addTree(watcher, event.Name)
			}
			pending = event.Name
			timer.Reset(w.opts.Debounce)

		case <-timer.C:
			w.submit(pending)
			pending = ""

		case werr, ok := <-watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("watcher errors channel closed")
			}
			w.log.Error("fsnotify error", "error", werr)
		}
	}
}

func (w *Watcher) submit(path string) {
	run, err := w.builds.Submit("watch")
	switch {
	case errors.Is(err, pipeline.ErrQueueFull):
		// A queued build will pick the change up.
		w.log.Debug("build already pending", "path", path)
	case err != nil:
		w.log.Error("rebuild not queued", "error", err)
	default:
		w.log.Info("rebuild queued", "build_request", run.ID, "path", path)
	}
}

// addTree watches dir and every non-excluded folder below it.
func (w *Watcher) addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.opts.SourceDir && w.skip(path) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) ignored(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return true
	}
	if w.opts.ErrorsSuffix != "" && strings.HasSuffix(event.Name, w.opts.ErrorsSuffix) {
		return true
	}
	return w.skip(event.Name)
}

// skip reports whether path is the output folder, lies below it, or has an
// excluded component below the source root.
func (w *Watcher) skip(path string) bool {
	if w.opts.OutputDir != "" {
		if path == w.opts.OutputDir || strings.HasPrefix(path, w.opts.OutputDir+string(filepath.Separator)) {
			return true
		}
	}
	rel, err := filepath.Rel(w.opts.SourceDir, path)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		for _, pattern := range w.opts.Excludes {
			if ok, _ := doublestar.Match(pattern, part); ok {
				return true
			}
		}
	}
	return false
}
