package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docpress/internal/pipeline"
)

var strict bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the site once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p, err := pipeline.New(cfg, nil, log)
		if err != nil {
			return err
		}
		orch := pipeline.NewOrchestrator(p, 1, cfg.JobTTL, log)

		report, err := orch.BuildNow(cmd.Context(), "cli")
		if err != nil {
			return fmt.Errorf("build: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d sections, %d documents: %d completed, %d partial, %d failed (%s)\n",
			report.Sections, len(report.Documents), report.Completed, report.Partial, report.Failed,
			time.Duration(report.DurationMs)*time.Millisecond)
		for _, d := range report.Documents {
			if d.Status == pipeline.StatusCompleted {
				continue
			}
			fmt.Fprintf(out, "  %-9s %s\n", d.Status, d.RelPath)
			for _, e := range d.Errors {
				fmt.Fprintf(out, "            %s\n", e)
			}
		}
		for _, e := range report.Errors {
			fmt.Fprintf(out, "  error     %s\n", e)
		}

		if !report.OK() || (strict && report.Partial > 0) {
			return errors.New("build finished with errors")
		}
		return nil
	},
}

func init() {
	buildCmd.Flags().BoolVar(&strict, "strict", false, "Fail when any document has recoverable errors")
	rootCmd.AddCommand(buildCmd)
}
