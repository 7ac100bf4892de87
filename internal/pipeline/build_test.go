package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docpress/internal/config"
	"github.com/dgallion1/docpress/internal/nav"
	"github.com/dgallion1/docpress/internal/source"
	"github.com/dgallion1/docpress/internal/testutil"
)

const recommendationsMD = `---
title: Recommendations
authors: [Editors]
keywords: [summary]
---

Our recommendations follow.
`

const computeMD = `---
title: Compute
authors: [Ada Lovelace]
keywords: [hpc]
---

# Compute

Computing is everywhere [1].

## Recommendations

Invest in edge computing [1].

## Outlook

Later.

## References

[1] Edge report 2024
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// sourceTree lays out two sections: an introduction holding the
// recommendations target and a chapters section with a markdown chapter, a
// docx chapter lacking a recommendation excerpt and a corrupt docx.
func sourceTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "00 Introduction", "recommendations.md"), recommendationsMD)
	writeFile(t, filepath.Join(root, "01 Chapters", "compute.md"), computeMD)
	testutil.WriteDOCX(t, filepath.Join(root, "01 Chapters", "memory.docx"), testutil.DOCX{
		Title:    "Memory",
		Creator:  "Grace Hopper",
		Keywords: "memory, dram",
		Body: []string{
			testutil.P("Heading1", testutil.R("Memory")),
			testutil.P("", testutil.R("The memory wall.")),
		},
	})
	writeFile(t, filepath.Join(root, "01 Chapters", "broken.docx"), "not a zip archive")
	writeFile(t, filepath.Join(root, "tmp-drafts", "draft.md"), "# Draft\n")
	return root
}

func testConfig(t *testing.T, src string) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.SourceDir = src
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.Formats = []string{"md", "html", "pdf"}
	cfg.Excludes = nil
	cfg.WorkerCount = 2
	cfg.Book.Path = ""
	cfg.EPUB.Path = ""
	return cfg
}

func newTestPipeline(t *testing.T, cfg config.Config) *Pipeline {
	t.Helper()
	p, err := New(cfg, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return p
}

func readOut(t *testing.T, cfg config.Config, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func TestBuild_EndToEnd(t *testing.T) {
	src := sourceTree(t)
	cfg := testConfig(t, src)

	// A stale sidecar for a document that now builds cleanly.
	stale := filepath.Join(src, "01 Chapters", "compute.errors.txt")
	writeFile(t, stale, "metadata: no authors found\n")

	report, err := newTestPipeline(t, cfg).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Sections)
	assert.Len(t, report.Documents, 4, "sidecars and excluded folders are not sources")
	assert.Equal(t, 1, report.Failed)
	assert.False(t, report.OK())
	assert.Contains(t, report.Artifacts, SidebarFile)

	broken, ok := report.Document("01 Chapters/broken.docx")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, broken.Status)
	assert.Empty(t, broken.Artifacts)

	compute, ok := report.Document("01 Chapters/compute.md")
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, compute.Status, "errors: %v", compute.Errors)
	assert.Equal(t, "chapters--compute", compute.Slug)
	assert.ElementsMatch(t, []string{"chapters--compute.md", "html/chapters--compute.html", "pdf/chapters--compute.pdf"}, compute.Artifacts)

	memory, ok := report.Document("01 Chapters/memory.docx")
	require.True(t, ok)
	assert.Equal(t, StatusPartial, memory.Status)

	// Navigation crosses sections and skips the failed document.
	md := readOut(t, cfg, "chapters--compute.md")
	assert.Contains(t, md, "link: /introduction--recommendations")
	assert.Contains(t, md, "link: /chapters--memory")
	assert.Contains(t, md, "Computing is everywhere [^1].")
	assert.Contains(t, md, "[^1]: Edge report 2024")

	// Recommendation excerpts land in the target with their references.
	target := readOut(t, cfg, "introduction--recommendations.md")
	assert.Contains(t, target, "## Compute")
	assert.Contains(t, target, "Invest in edge computing [^1].")
	assert.Contains(t, target, "[^1]: Edge report 2024")
	assert.NotContains(t, target, "Later.")

	assert.Contains(t, readOut(t, cfg, "html/chapters--compute.html"), "<h1>Compute</h1>")
	assert.Contains(t, readOut(t, cfg, "pdf/chapters--compute.pdf"), "%PDF")

	var sidebar []nav.SidebarSection
	require.NoError(t, json.Unmarshal([]byte(readOut(t, cfg, SidebarFile)), &sidebar))
	require.Len(t, sidebar, 2)
	assert.Equal(t, "Introduction", sidebar[0].Text)
	assert.False(t, sidebar[0].Collapsed)
	assert.Equal(t, "Chapters", sidebar[1].Text)
	assert.True(t, sidebar[1].Collapsed)
	require.Len(t, sidebar[1].Items, 2)
	assert.Equal(t, nav.SidebarItem{Text: "Compute", Link: "chapters--compute"}, sidebar[1].Items[0])
	assert.Equal(t, nav.SidebarItem{Text: "Memory", Link: "chapters--memory"}, sidebar[1].Items[1])

	var onDisk Report
	require.NoError(t, json.Unmarshal([]byte(readOut(t, cfg, ReportFile)), &onDisk))
	assert.Equal(t, report.RunID, onDisk.RunID)

	// Error sidecars.
	assert.NoFileExists(t, stale)
	assert.NoFileExists(t, filepath.Join(src, "00 Introduction", "recommendations.errors.txt"))
	data, err := os.ReadFile(filepath.Join(src, "01 Chapters", "memory.errors.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "recommendation: no recommendation excerpt found")
	data, err = os.ReadFile(filepath.Join(src, "01 Chapters", "broken.errors.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "parse: ")
}

func TestBuild_Idempotent(t *testing.T) {
	src := sourceTree(t)
	cfg := testConfig(t, src)
	p := newTestPipeline(t, cfg)

	_, err := p.Build(context.Background())
	require.NoError(t, err)
	first := readOut(t, cfg, "chapters--compute.md")
	firstPDF := readOut(t, cfg, "pdf/chapters--memory.pdf")

	report, err := p.Build(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Documents, 4)
	assert.Equal(t, first, readOut(t, cfg, "chapters--compute.md"))
	assert.Equal(t, firstPDF, readOut(t, cfg, "pdf/chapters--memory.pdf"))

	job := p.Jobs().Get(JobID("01 Chapters/compute.md"))
	require.NotNil(t, job)
	assert.Equal(t, report.RunID, job.Snapshot().RunID)
}

func TestBuild_BookAndEPUB(t *testing.T) {
	src := sourceTree(t)
	cfg := testConfig(t, src)
	cfg.Formats = []string{"md"}
	cfg.Book.Path = "book.pdf"
	cfg.EPUB.Path = "book.epub"
	cfg.EPUB.Title = "Vision"

	report, err := newTestPipeline(t, cfg).Build(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Errors)
	assert.Contains(t, report.Artifacts, "book.pdf")
	assert.Contains(t, report.Artifacts, "book.epub")
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "book.pdf"))
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "book.epub"))
}

func TestBuild_OutputInsideSourceIsSkipped(t *testing.T) {
	src := sourceTree(t)
	cfg := testConfig(t, src)
	cfg.OutputDir = filepath.Join(src, "site")

	p := newTestPipeline(t, cfg)
	_, err := p.Build(context.Background())
	require.NoError(t, err)
	report, err := p.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Sections)
}

func TestBuild_NoSections(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	_, err := newTestPipeline(t, cfg).Build(context.Background())
	assert.ErrorIs(t, err, source.ErrNoSections)
}

func TestBuild_Cancelled(t *testing.T) {
	cfg := testConfig(t, sourceTree(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestPipeline(t, cfg).Build(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.Formats = []string{"docx"}
	_, err := New(cfg, nil, nil)
	assert.Error(t, err)
}

func TestOrchestrator_SubmitRunsBuild(t *testing.T) {
	cfg := testConfig(t, sourceTree(t))
	o := NewOrchestrator(newTestPipeline(t, cfg), 2, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	o.Start(context.Background())
	defer o.Stop()

	run, err := o.Submit("test")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return run.Snapshot().Status == RunCompleted
	}, 30*time.Second, 20*time.Millisecond)

	report := o.LastReport()
	require.NotNil(t, report)
	assert.Equal(t, report.RunID, run.Snapshot().BuildID)
	assert.Same(t, run, o.GetRun(run.ID))
	assert.NotNil(t, o.GetJob(JobID("01 Chapters/compute.md")))
	assert.Equal(t, 1, o.BuildStats().Count)
	assert.Equal(t, 4, o.DocumentStats().Count)
}

func TestOrchestrator_QueueFullAndStopped(t *testing.T) {
	cfg := testConfig(t, sourceTree(t))
	o := NewOrchestrator(newTestPipeline(t, cfg), 1, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := o.Submit("first")
	require.NoError(t, err)
	_, err = o.Submit("second")
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 1, o.QueueDepth())

	o.Stop()
	_, err = o.Submit("late")
	assert.ErrorIs(t, err, ErrStopped)
}

func TestOrchestrator_BuildNowFailure(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	o := NewOrchestrator(newTestPipeline(t, cfg), 1, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := o.BuildNow(context.Background(), "cli")
	assert.Error(t, err)
	assert.Nil(t, o.LastReport())
}
