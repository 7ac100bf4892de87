package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docpress/internal/config"
	"github.com/dgallion1/docpress/internal/doctree"
	"github.com/dgallion1/docpress/internal/extract"
	"github.com/dgallion1/docpress/internal/nav"
	"github.com/dgallion1/docpress/internal/recommend"
	"github.com/dgallion1/docpress/internal/render"
	"github.com/dgallion1/docpress/internal/source"
)

const (
	SidebarFile = "sidebar.json"
	ReportFile  = "report.json"
)

// Pipeline runs whole-tree builds: classification of every source, the
// navigation and recommendation passes, rendering and the batch artifacts.
type Pipeline struct {
	cfg     config.Config
	formats []render.Format
	worker  *Worker
	jobs    *JobStore
	stats   *DurationStats
	log     *slog.Logger
}

// New validates cfg and prepares a pipeline. jobs may be shared with an
// orchestrator; nil creates a private store.
func New(cfg config.Config, jobs *JobStore, log *slog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	styles, err := cfg.StyleTable()
	if err != nil {
		return nil, err
	}
	formats, err := cfg.RenderFormats()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	if jobs == nil {
		jobs = NewJobStore(cfg.JobTTL)
	}
	builder := extract.NewBuilder(styles, log)
	return &Pipeline{
		cfg:     cfg,
		formats: formats,
		worker:  NewWorker(builder, log, cfg.OutputDir, cfg.AllowUnicodeSlugs, cfg.PDFFallbackPdftotext),
		jobs:    jobs,
		stats:   NewDurationStats(cfg.JobTTL),
		log:     log,
	}, nil
}

// Jobs returns the store holding the per-document jobs of recent builds.
func (p *Pipeline) Jobs() *JobStore { return p.jobs }

// DocumentStats returns classification timings of recent builds.
func (p *Pipeline) DocumentStats() StatsSnapshot { return p.stats.Snapshot() }

type unit struct {
	job     *Job
	item    *doctree.Item
	section string
}

// Build runs one full batch. Per-document failures are recorded in the
// report and never abort the batch; an error is returned only when the
// source tree cannot be read or ctx is cancelled.
func (p *Pipeline) Build(ctx context.Context) (*Report, error) {
	started := time.Now()
	runID := uuid.Must(uuid.NewV7()).String()
	log := p.log.With("run_id", runID)

	tree, err := source.Read(p.cfg.SourceDir, source.Options{Excludes: p.Excludes()})
	if err != nil {
		return nil, err
	}

	var units []unit
	for _, s := range tree.Sections {
		for _, it := range s.Items {
			job := NewJob(runID, it.RelPath, s.Title)
			p.jobs.Put(job)
			units = append(units, unit{job: job, item: it, section: s.Title})
		}
	}
	log.Info("build started", "sections", len(tree.Sections), "documents", len(units))

	// Phase 1: classify every document independently.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.WorkerCount)
	for _, u := range units {
		g.Go(func() error {
			t0 := time.Now()
			p.worker.Process(gctx, u.job, u.item, u.section)
			p.stats.Record(time.Since(t0), u.item.Document == nil)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 2: whole-tree passes, strictly after classification.
	checkSlugs(units)
	nav.Link(tree)
	recommend.Run(tree, recommend.Options{
		SourceSection: p.cfg.Recommend.SourceSection,
		TargetSection: p.cfg.Recommend.TargetSection,
		TargetTitle:   p.cfg.Recommend.TargetTitle,
	}, log)
	for _, u := range units {
		if d := u.item.Document; d != nil {
			for _, e := range d.Errors {
				u.job.AddError(e)
			}
		}
	}

	// Phase 3: render.
	report := &Report{RunID: runID, StartedAt: started, Sections: len(tree.Sections)}
	chapters := make([][]byte, len(units))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.WorkerCount)
	for i, u := range units {
		if u.item.Document == nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			u.job.SetStatus(StatusRendering, "rendering")
			p.renderDocument(u.job, u.item.Document)
			if p.cfg.Book.Path != "" {
				data, err := render.PDF(u.item.Document, render.Options{AssetRoot: p.cfg.OutputDir, ForBook: true})
				if err != nil {
					u.job.AddError(fmt.Sprintf("render book chapter: %s", err))
				} else {
					chapters[i] = data
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 4: batch artifacts.
	if data, err := nav.SidebarJSON(tree); err != nil {
		report.addError("sidebar: %s", err)
	} else if err := p.writeArtifact(SidebarFile, data); err != nil {
		report.addError("sidebar: %s", err)
	} else {
		report.Artifacts = append(report.Artifacts, SidebarFile)
	}
	p.writeBook(report, chapters)
	p.writeEPUB(report, tree.Documents())

	// Phase 5: settle jobs and error sidecars.
	for _, u := range units {
		u.job.Finish()
		if err := p.writeSidecar(u.item.SourcePath, u.job.Errors()); err != nil {
			log.Warn("error sidecar not written", "doc", u.item.RelPath, "error", err)
			report.addError("sidecar %s: %s", u.item.RelPath, err)
		}
		report.add(u.job.Snapshot())
	}

	report.FinishedAt = time.Now()
	report.DurationMs = report.FinishedAt.Sub(started).Milliseconds()
	if data, err := report.JSON(); err == nil {
		if err := p.writeArtifact(ReportFile, data); err != nil {
			log.Warn("report not written", "error", err)
		}
	}

	log.Info("build finished",
		"completed", report.Completed,
		"partial", report.Partial,
		"failed", report.Failed,
		"duration_ms", report.DurationMs,
	)
	return report, nil
}

// Excludes returns the configured exclude globs plus the sidecar pattern,
// and the output folder when it sits directly in the source root, so neither
// is read back as a source.
func (p *Pipeline) Excludes() []string {
	ex := append([]string(nil), p.cfg.Excludes...)
	if len(ex) == 0 {
		ex = append(ex, source.DefaultExcludes...)
	}
	ex = append(ex, "*"+p.cfg.ErrorsSuffix)

	src, err1 := filepath.Abs(p.cfg.SourceDir)
	out, err2 := filepath.Abs(p.cfg.OutputDir)
	if err1 == nil && err2 == nil && filepath.Dir(out) == src {
		ex = append(ex, filepath.Base(out))
	}
	return ex
}

// checkSlugs records a collision on every document whose slug repeats an
// earlier one; the later document's artifacts replace the earlier ones.
func checkSlugs(units []unit) {
	seen := map[string]string{}
	for _, u := range units {
		d := u.item.Document
		if d == nil {
			continue
		}
		if prev, ok := seen[d.Slug]; ok {
			d.AddError(fmt.Sprintf("slug: %q is also used by %s", d.Slug, prev))
			continue
		}
		seen[d.Slug] = u.item.RelPath
	}
}

// ArtifactPath returns where a document's output of format f is written,
// relative to the output directory.
func ArtifactPath(f render.Format, slug string) string {
	switch f {
	case render.FormatMarkdown:
		return slug + f.Ext()
	default:
		return path.Join(string(f), slug+f.Ext())
	}
}

func (p *Pipeline) renderOptions(f render.Format) render.Options {
	opts := render.Options{
		AssetRoot:    p.cfg.OutputDir,
		Frontmatter:  p.cfg.Frontmatter,
		LegacyHTML:   p.cfg.LegacyHTML,
		RunningTitle: p.cfg.RunningTitle,
	}
	if f == render.FormatHTML {
		opts.AssetPrefix = "../"
	}
	if slices.Contains(p.formats, render.FormatPDF) {
		opts.PDFBadge = p.cfg.PDFBadge
	}
	return opts
}

func (p *Pipeline) renderDocument(job *Job, doc *doctree.Document) {
	for _, f := range p.formats {
		data, err := render.Render(doc, f, p.renderOptions(f))
		if err != nil {
			p.log.Error("render failed", "doc", job.RelPath, "format", f, "error", err)
			job.AddError(fmt.Sprintf("render %s: %s", f, err))
			continue
		}
		rel := ArtifactPath(f, doc.Slug)
		if err := p.writeArtifact(rel, data); err != nil {
			job.AddError(fmt.Sprintf("render %s: %s", f, err))
			continue
		}
		job.AddArtifact(rel)
	}
}

func (p *Pipeline) writeBook(report *Report, chapters [][]byte) {
	if p.cfg.Book.Path == "" {
		return
	}
	var parts [][]byte
	for _, c := range chapters {
		if c != nil {
			parts = append(parts, c)
		}
	}
	data, err := render.Book(parts)
	if err == nil {
		err = p.writeArtifact(p.cfg.Book.Path, data)
	}
	if err != nil {
		report.addError("book: %s", err)
		return
	}
	report.Artifacts = append(report.Artifacts, filepath.ToSlash(p.cfg.Book.Path))
}

func (p *Pipeline) writeEPUB(report *Report, docs []*doctree.Document) {
	if p.cfg.EPUB.Path == "" {
		return
	}
	data, err := render.EPUB(docs, render.EPUBOptions{
		Title:     p.cfg.EPUB.Title,
		Author:    p.cfg.EPUB.Author,
		Lang:      p.cfg.EPUB.Lang,
		AssetRoot: p.cfg.OutputDir,
	})
	if err == nil {
		err = p.writeArtifact(p.cfg.EPUB.Path, data)
	}
	if err != nil {
		report.addError("epub: %s", err)
		return
	}
	report.Artifacts = append(report.Artifacts, filepath.ToSlash(p.cfg.EPUB.Path))
}

// writeArtifact writes data under the output directory, or at rel itself
// when it is absolute. Unchanged files are left untouched.
func (p *Pipeline) writeArtifact(rel string, data []byte) error {
	dst := rel
	if !filepath.IsAbs(dst) {
		dst = filepath.Join(p.cfg.OutputDir, filepath.FromSlash(rel))
	}
	return writeIfChanged(dst, data)
}

// writeSidecar writes one error per line next to the source, or removes a
// stale sidecar when there is nothing to report.
func (p *Pipeline) writeSidecar(sourcePath string, errs []string) error {
	dst := SidecarPath(sourcePath, p.cfg.ErrorsSuffix)
	if len(errs) == 0 {
		if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	lines := make([]string, len(errs))
	for i, e := range errs {
		lines[i] = strings.ReplaceAll(e, "\n", " ")
	}
	return writeIfChanged(dst, []byte(strings.Join(lines, "\n")+"\n"))
}

func writeIfChanged(dst string, data []byte) error {
	if existing, err := os.ReadFile(dst); err == nil && bytes.Equal(existing, data) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(dst), err)
	}
	return nil
}
