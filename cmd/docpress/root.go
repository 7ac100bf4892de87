package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docpress/internal/config"
)

var (
	configPath string
	verbose    bool
	logFormat  string
	sourceDir  string
	outputDir  string

	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "docpress",
	Short: "Publish a folder of chapter documents as a linked documentation site",
	Long: `docpress reads a tree of numbered section folders holding Word, PDF and
Markdown chapters, extracts their metadata and structure, and renders a
navigable site with sidebar, recommendations page and optional book outputs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		opts := &slog.HandlerOptions{Level: level}
		switch logFormat {
		case "json":
			log = slog.New(slog.NewJSONHandler(os.Stderr, opts))
		case "text":
			log = slog.New(slog.NewTextHandler(os.Stderr, opts))
		default:
			return fmt.Errorf("unknown log format %q (want json or text)", logFormat)
		}
		slog.SetDefault(log)
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML config file (default $DOCPRESS_CONFIG)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&logFormat, "log-format", "json", "Log output format: json or text")
	flags.StringVarP(&sourceDir, "source", "s", "", "Source folder, overrides the config")
	flags.StringVarP(&outputDir, "out", "o", "", "Output folder, overrides the config")
}

// loadConfig applies command-line overrides on top of config.Load.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if sourceDir != "" {
		cfg.SourceDir = sourceDir
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	return cfg, nil
}
