package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/varekai/opsmind/internal/adapters/duckdb"
	"github.com/varekai/opsmind/internal/config"
	"github.com/varekai/opsmind/pkg/reportd"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve stored task results and traces over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	logger := newLogger()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if cfg.Storage.Path == "" {
		return fmt.Errorf("storage.path is required to serve reports")
	}

	repo, err := duckdb.NewRepository(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := reportd.NewServer(logger, repo, cfg.Report.Listen)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	logger.Info("report server running", "addr", cfg.Report.Listen, "db", cfg.Storage.Path)
	return g.Wait()
}
