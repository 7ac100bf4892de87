package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/docpress/internal/doctree"
	"github.com/dgallion1/docpress/internal/extract"
	"github.com/dgallion1/docpress/internal/parser"
)

// Worker classifies single source documents. It holds no per-document state
// and is safe for concurrent use.
type Worker struct {
	builder      *extract.Builder
	log          *slog.Logger
	outDir       string
	allowUnicode bool
	pdfFallback  bool
}

func NewWorker(builder *extract.Builder, log *slog.Logger, outDir string, allowUnicode, pdfFallback bool) *Worker {
	return &Worker{
		builder:      builder,
		log:          log,
		outDir:       outDir,
		allowUnicode: allowUnicode,
		pdfFallback:  pdfFallback,
	}
}

// Process reads, parses and classifies the source of item and stores the
// result in item.Document. On failure the job is marked failed and
// item.Document stays nil.
func (w *Worker) Process(ctx context.Context, job *Job, item *doctree.Item, section string) {
	log := w.log.With("job_id", job.ID, "doc", item.RelPath)
	item.Document = nil

	if err := ctx.Err(); err != nil {
		job.Fail("reading", err)
		return
	}

	// Phase 1: Read
	job.SetStatus(StatusReading, "reading")
	data, err := os.ReadFile(item.SourcePath)
	if err != nil {
		log.Error("read failed", "error", err)
		job.Fail("read", err)
		return
	}
	info, err := os.Stat(item.SourcePath)
	if err != nil {
		job.Fail("read", err)
		return
	}
	job.SetContentHash(ContentHashHex(data))

	p, err := parser.ForFile(item.SourcePath)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.Fail("parse", err)
		return
	}
	if pp, ok := p.(*parser.PDFParser); ok {
		pp.FallbackPdftotext = w.pdfFallback
	}
	src, err := p.Parse(bytes.NewReader(data), item.SourcePath)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.Fail("parse", err)
		return
	}

	// Phase 2: Classify
	job.SetStatus(StatusClassifying, "classifying")
	meta := src.Meta
	override, overrideErr := extract.LoadOverride(OverridePath(item.SourcePath))
	if overrideErr != nil {
		log.Warn("metadata override ignored", "error", overrideErr)
	}
	meta = override.Apply(meta)

	res := w.builder.Build(src, extract.NewDirAssets(w.outDir, item.RelPath))
	doc := extract.Assemble(extract.Input{
		Name:         item.Name,
		Section:      section,
		Meta:         meta,
		ModTime:      info.ModTime().UTC().Truncate(time.Second),
		AllowUnicode: w.allowUnicode,
	}, res)
	if overrideErr != nil {
		doc.AddError(fmt.Sprintf("metadata: %s", overrideErr))
	}

	item.Document = doc
	job.SetDocument(doc.Slug, doc.Title)
	log.Info("classified document",
		"slug", doc.Slug,
		"elements", len(doc.Elements),
		"references", len(doc.References),
		"warnings", len(doc.Errors),
	)
}

// OverridePath names the JSON metadata override that may sit next to a source.
func OverridePath(sourcePath string) string {
	return strings.TrimSuffix(sourcePath, filepath.Ext(sourcePath)) + ".json"
}

// SidecarPath names the error sidecar of a source.
func SidecarPath(sourcePath, suffix string) string {
	return strings.TrimSuffix(sourcePath, filepath.Ext(sourcePath)) + suffix
}
