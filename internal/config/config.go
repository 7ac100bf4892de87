package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docpress/internal/extract"
	"github.com/dgallion1/docpress/internal/render"
	"github.com/dgallion1/docpress/internal/source"
)

type Config struct {
	// Input and output
	SourceDir string   `yaml:"source_dir"`
	OutputDir string   `yaml:"output_dir"`
	Formats   []string `yaml:"formats"`
	Excludes  []string `yaml:"excludes"`

	// Extraction
	AllowUnicodeSlugs bool              `yaml:"allow_unicode_slugs"`
	Styles            map[string]string `yaml:"styles"`
	ErrorsSuffix      string            `yaml:"errors_suffix"`

	// Rendering
	Frontmatter  bool   `yaml:"frontmatter"`
	PDFBadge     bool   `yaml:"pdf_badge"`
	LegacyHTML   bool   `yaml:"legacy_html"`
	RunningTitle string `yaml:"running_title"`

	// Recommendation aggregation
	Recommend RecommendConfig `yaml:"recommend"`

	// Whole-book outputs, skipped when the path is empty
	EPUB EPUBConfig `yaml:"epub"`
	Book BookConfig `yaml:"book"`

	// Worker pool
	WorkerCount  int `yaml:"worker_count"`
	MaxQueueSize int `yaml:"max_queue_size"`

	// Preview server
	Port   string `yaml:"port"`
	APIKey string `yaml:"-"`

	// Watch mode
	WatchDebounce time.Duration `yaml:"watch_debounce"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl"`

	// PDF sources
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`
}

type RecommendConfig struct {
	SourceSection string `yaml:"source_section"`
	TargetSection string `yaml:"target_section"`
	TargetTitle   string `yaml:"target_title"`
}

type EPUBConfig struct {
	Path   string `yaml:"path"`
	Title  string `yaml:"title"`
	Author string `yaml:"author"`
	Lang   string `yaml:"lang"`
}

type BookConfig struct {
	Path string `yaml:"path"`
}

func defaults() Config {
	return Config{
		SourceDir:    ".",
		OutputDir:    "build",
		Formats:      []string{"md", "pdf"},
		Excludes:     append([]string(nil), source.DefaultExcludes...),
		ErrorsSuffix: ".errors.txt",
		Frontmatter:  true,
		PDFBadge:     true,
		Recommend: RecommendConfig{
			SourceSection: "Chapters",
			TargetSection: "Introduction",
			TargetTitle:   "Recommendations",
		},
		EPUB:          EPUBConfig{Lang: "en"},
		WorkerCount:   4,
		MaxQueueSize:  8,
		Port:          "8090",
		WatchDebounce: 500 * time.Millisecond,
		JobTTL:        1 * time.Hour,

		PDFFallbackPdftotext: true,
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and DOCPRESS_* environment variables, in increasing precedence.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path == "" {
		path = os.Getenv("DOCPRESS_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.SourceDir = envOr("DOCPRESS_SOURCE_DIR", cfg.SourceDir)
	cfg.OutputDir = envOr("DOCPRESS_OUTPUT_DIR", cfg.OutputDir)
	cfg.Formats = envList("DOCPRESS_FORMATS", cfg.Formats)
	cfg.Excludes = envList("DOCPRESS_EXCLUDES", cfg.Excludes)

	cfg.AllowUnicodeSlugs = envBool("DOCPRESS_ALLOW_UNICODE_SLUGS", cfg.AllowUnicodeSlugs)
	cfg.ErrorsSuffix = envOr("DOCPRESS_ERRORS_SUFFIX", cfg.ErrorsSuffix)

	cfg.Frontmatter = envBool("DOCPRESS_FRONTMATTER", cfg.Frontmatter)
	cfg.PDFBadge = envBool("DOCPRESS_PDF_BADGE", cfg.PDFBadge)
	cfg.LegacyHTML = envBool("DOCPRESS_LEGACY_HTML", cfg.LegacyHTML)
	cfg.RunningTitle = envOr("DOCPRESS_RUNNING_TITLE", cfg.RunningTitle)

	cfg.Recommend.SourceSection = envOr("DOCPRESS_RECOMMEND_SOURCE", cfg.Recommend.SourceSection)
	cfg.Recommend.TargetSection = envOr("DOCPRESS_RECOMMEND_TARGET_SECTION", cfg.Recommend.TargetSection)
	cfg.Recommend.TargetTitle = envOr("DOCPRESS_RECOMMEND_TARGET_TITLE", cfg.Recommend.TargetTitle)

	cfg.EPUB.Path = envOr("DOCPRESS_EPUB_PATH", cfg.EPUB.Path)
	cfg.EPUB.Title = envOr("DOCPRESS_EPUB_TITLE", cfg.EPUB.Title)
	cfg.EPUB.Author = envOr("DOCPRESS_EPUB_AUTHOR", cfg.EPUB.Author)
	cfg.Book.Path = envOr("DOCPRESS_BOOK_PATH", cfg.Book.Path)

	cfg.WorkerCount = envInt("DOCPRESS_WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("DOCPRESS_MAX_QUEUE_SIZE", cfg.MaxQueueSize)

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = os.Getenv("DOCPRESS_API_KEY")

	cfg.WatchDebounce = envDuration("DOCPRESS_WATCH_DEBOUNCE", cfg.WatchDebounce)
	cfg.JobTTL = envDuration("DOCPRESS_JOB_TTL", cfg.JobTTL)
	cfg.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 8
	}
	if cfg.WatchDebounce <= 0 {
		cfg.WatchDebounce = 500 * time.Millisecond
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.EPUB.Title == "" {
		cfg.EPUB.Title = cfg.RunningTitle
	}

	return cfg, nil
}

// Validate checks the settings a build depends on.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SourceDir, validation.Required),
		validation.Field(&c.OutputDir, validation.Required),
		validation.Field(&c.Formats, validation.Required, validation.By(func(value any) error {
			_, err := render.ParseFormats(value.([]string))
			return err
		})),
		validation.Field(&c.Excludes, validation.By(func(value any) error {
			return source.ValidatePatterns(value.([]string))
		})),
		validation.Field(&c.Styles, validation.By(func(value any) error {
			_, err := extract.DefaultStyles().WithOverrides(value.(map[string]string))
			return err
		})),
		validation.Field(&c.ErrorsSuffix, validation.Required, validation.By(func(value any) error {
			if s := value.(string); strings.ContainsAny(s, `/\`) {
				return errors.New("must be a file name suffix")
			}
			return nil
		})),
		validation.Field(&c.Recommend),
		validation.Field(&c.EPUB),
		validation.Field(&c.WorkerCount, validation.Required, validation.Min(1)),
		validation.Field(&c.Port, validation.Required, is.Port),
	)
}

func (r RecommendConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SourceSection, validation.Required),
		validation.Field(&r.TargetSection, validation.Required),
		validation.Field(&r.TargetTitle, validation.Required),
	)
}

func (e EPUBConfig) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Title, validation.When(e.Path != "", validation.Required)),
	)
}

// StyleTable returns the default style table with the configured overrides.
func (c Config) StyleTable() (extract.StyleTable, error) {
	return extract.DefaultStyles().WithOverrides(c.Styles)
}

// RenderFormats returns the validated per-document output formats.
func (c Config) RenderFormats() ([]render.Format, error) {
	return render.ParseFormats(c.Formats)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList reads a comma-separated list.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
