package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docpress/internal/pipeline"
)

type fakeBuilds struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeBuilds) Submit(trigger string) (*pipeline.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return &pipeline.Run{ID: "run", Trigger: trigger}, nil
}

func (f *fakeBuilds) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func startWatcher(t *testing.T, opts Options) *fakeBuilds {
	t.Helper()
	builds := &fakeBuilds{}
	w := New(opts, builds, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	// Give the watcher time to register the tree.
	time.Sleep(100 * time.Millisecond)
	return builds
}

func TestWatcherDebouncesBursts(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "01 Chapters"), 0o755))
	builds := startWatcher(t, Options{SourceDir: src, Debounce: 100 * time.Millisecond})

	for i := range 5 {
		path := filepath.Join(src, "01 Chapters", "a.md")
		require.NoError(t, os.WriteFile(path, []byte{byte('a' + i)}, 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return builds.count() == 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, builds.count())
}

func TestWatcherIgnoresSidecarsOutputAndExcludes(t *testing.T) {
	src := t.TempDir()
	out := filepath.Join(src, "site")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "01 Chapters"), 0o755))
	require.NoError(t, os.MkdirAll(out, 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "tmp"), 0o755))

	builds := startWatcher(t, Options{
		SourceDir:    src,
		OutputDir:    out,
		Excludes:     []string{"tmp*", "~*"},
		ErrorsSuffix: ".errors.txt",
		Debounce:     50 * time.Millisecond,
	})

	require.NoError(t, os.WriteFile(filepath.Join(src, "01 Chapters", "a.errors.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(out, "a.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "tmp", "draft.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "01 Chapters", "~$lock.docx"), []byte("x"), 0o644))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 0, builds.count())
}

func TestWatcherFollowsNewFolders(t *testing.T) {
	src := t.TempDir()
	builds := startWatcher(t, Options{SourceDir: src, Debounce: 50 * time.Millisecond})

	dir := filepath.Join(src, "02 Appendix")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.Eventually(t, func() bool { return builds.count() == 1 }, 5*time.Second, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("# B"), 0o644))
	require.Eventually(t, func() bool { return builds.count() == 2 }, 5*time.Second, 10*time.Millisecond)
}

func TestSkip(t *testing.T) {
	w := New(Options{SourceDir: "/src", OutputDir: "/src/out", Excludes: []string{".*"}}, &fakeBuilds{}, slog.Default())
	assert.True(t, w.skip("/src/out"))
	assert.True(t, w.skip("/src/out/pdf/a.pdf"))
	assert.True(t, w.skip("/src/01 A/.git/index"))
	assert.False(t, w.skip("/src/01 A/a.docx"))
	assert.False(t, w.skip("/src/output.md"))
	assert.True(t, w.ignored(fsnotify.Event{Name: "/src/01 A/a.docx", Op: fsnotify.Chmod}))
}
