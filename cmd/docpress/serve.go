package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docpress/internal/api"
	"github.com/dgallion1/docpress/internal/config"
	"github.com/dgallion1/docpress/internal/pipeline"
	"github.com/dgallion1/docpress/internal/watch"
)

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build the site and serve it with the build API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return run(cmd.Context(), cfg, true, serveWatch)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild the site whenever the source folder changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return run(cmd.Context(), cfg, false, true)
	},
}

func init() {
	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "Also rebuild on source changes")
	rootCmd.AddCommand(serveCmd, watchCmd)
}

// run performs an initial build, then serves and/or watches until SIGINT or
// SIGTERM.
func run(parent context.Context, cfg config.Config, serve, watching bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.New(cfg, nil, log)
	if err != nil {
		return err
	}
	orch := pipeline.NewOrchestrator(p, cfg.MaxQueueSize, cfg.JobTTL, log)
	if _, err := orch.BuildNow(ctx, "startup"); err != nil {
		// The server still starts so a later build can recover.
		log.Error("initial build failed", "error", err)
	}
	orch.Start(ctx)
	defer orch.Stop()

	g, gctx := errgroup.WithContext(ctx)

	if watching {
		w := watch.New(watch.Options{
			SourceDir:    cfg.SourceDir,
			OutputDir:    cfg.OutputDir,
			Excludes:     p.Excludes(),
			ErrorsSuffix: cfg.ErrorsSuffix,
			Debounce:     cfg.WatchDebounce,
		}, orch, log)
		g.Go(func() error { return w.Run(gctx) })
	}

	if serve {
		httpServer := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      api.NewServer(orch, log, cfg),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		g.Go(func() error {
			log.Info("starting docpress", "port", cfg.Port, "output", cfg.OutputDir)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			log.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("stopped")
	return nil
}
