package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docpress/internal/render"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DOCPRESS_CONFIG", "DOCPRESS_SOURCE_DIR", "DOCPRESS_OUTPUT_DIR", "DOCPRESS_FORMATS", "PORT", "DOCPRESS_API_KEY", "DOCPRESS_WORKER_COUNT"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.SourceDir)
	assert.Equal(t, "build", cfg.OutputDir)
	assert.Equal(t, []string{"md", "pdf"}, cfg.Formats)
	assert.Equal(t, ".errors.txt", cfg.ErrorsSuffix)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce)
	assert.Equal(t, "Recommendations", cfg.Recommend.TargetTitle)
	assert.Empty(t, cfg.APIKey)
	require.NoError(t, cfg.Validate())

	formats, err := cfg.RenderFormats()
	require.NoError(t, err)
	assert.Equal(t, []render.Format{render.FormatMarkdown, render.FormatPDF}, formats)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "docpress.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source_dir: /docs/vision
output_dir: /srv/site
formats: [md, html]
running_title: Vision 2030
worker_count: 2
watch_debounce: 2s
styles:
  Epigraph: quote
recommend:
  target_title: Summary
epub:
  path: vision.epub
`), 0o644))

	t.Setenv("DOCPRESS_OUTPUT_DIR", "/tmp/site")
	t.Setenv("DOCPRESS_API_KEY", "k")
	t.Setenv("PORT", "9000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/docs/vision", cfg.SourceDir)
	assert.Equal(t, "/tmp/site", cfg.OutputDir, "env wins over file")
	assert.Equal(t, []string{"md", "html"}, cfg.Formats)
	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, 2*time.Second, cfg.WatchDebounce)
	assert.Equal(t, "Summary", cfg.Recommend.TargetTitle)
	assert.Equal(t, "Introduction", cfg.Recommend.TargetSection, "unset keys keep defaults")
	assert.Equal(t, "Vision 2030", cfg.EPUB.Title, "e-book title falls back to the running title")
	assert.Equal(t, "k", cfg.APIKey)
	assert.Equal(t, "9000", cfg.Port)
	require.NoError(t, cfg.Validate())

	styles, err := cfg.StyleTable()
	require.NoError(t, err)
	kind, _ := styles.Resolve("Epigraph")
	assert.Equal(t, "quote", kind.String())
}

func TestLoadConfigFromEnvPath(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output_dir: out\n"), 0o644))
	t.Setenv("DOCPRESS_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "out", cfg.OutputDir)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("formats: {"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestEnvListAndFallbacks(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOCPRESS_FORMATS", " md , ,html")
	t.Setenv("DOCPRESS_WORKER_COUNT", "many")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"md", "html"}, cfg.Formats)
	assert.Equal(t, 4, cfg.WorkerCount, "unparsable numbers keep the default")
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown format", func(c *Config) { c.Formats = []string{"docx"} }, "docx"},
		{"no formats", func(c *Config) { c.Formats = nil }, "Formats"},
		{"bad exclude", func(c *Config) { c.Excludes = []string{"[unclosed"} }, "invalid exclude pattern"},
		{"unknown style kind", func(c *Config) { c.Styles = map[string]string{"Epigraph": "poem"} }, "unknown style kind"},
		{"suffix with slash", func(c *Config) { c.ErrorsSuffix = "logs/err.txt" }, "file name suffix"},
		{"no workers", func(c *Config) { c.WorkerCount = 0 }, "WorkerCount"},
		{"negative workers", func(c *Config) { c.WorkerCount = -2 }, "WorkerCount"},
		{"bad port", func(c *Config) { c.Port = "http" }, "Port"},
		{"epub without title", func(c *Config) { c.EPUB.Path = "book.epub"; c.EPUB.Title = "" }, "Title"},
		{"no recommendation target", func(c *Config) { c.Recommend.TargetSection = "" }, "TargetSection"},
		{"no source", func(c *Config) { c.SourceDir = "" }, "SourceDir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.Styles = nil
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
