package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/terra-clan/scheme-connect/internal/advisor"
	"github.com/terra-clan/scheme-connect/internal/api"
	"github.com/terra-clan/scheme-connect/internal/catalog"
	"github.com/terra-clan/scheme-connect/internal/cleanup"
	"github.com/terra-clan/scheme-connect/internal/config"
	"github.com/terra-clan/scheme-connect/internal/ingest"
	"github.com/terra-clan/scheme-connect/internal/logger"
	"github.com/terra-clan/scheme-connect/internal/models"
)

const shutdownTimeout = 30 * time.Second

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting schemeconnect",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	seed, err := loadSeed(cfg.Catalog)
	if err != nil {
		return fmt.Errorf("failed to load seed catalog: %w", err)
	}

	store := catalog.NewStore(seed, log)
	importer := ingest.NewImporter(store, log)
	manager := advisor.NewManager(store, advisor.Options{
		TypingDelay: cfg.Chat.TypingDelay,
		TTL:         cfg.Sessions.TTL,
	}, log)
	cleaner := cleanup.NewCleaner(manager, cfg.Sessions.CleanupInterval, log)

	server := api.NewServer(cfg, store, importer, manager, log)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           server.Router(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Sessions.CleanupInterval > 0 {
		g.Go(func() error {
			cleaner.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		log.Info("HTTP server starting", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}
		return nil
	})

	err = g.Wait()

	if cerr := manager.Close(); cerr != nil {
		log.Error("advisor close error", zap.Error(cerr))
	}

	log.Info("schemeconnect stopped")
	return err
}

func loadSeed(cfg config.CatalogConfig) ([]models.Scheme, error) {
	if cfg.SeedFile == "" {
		return catalog.DefaultSeed()
	}
	return catalog.LoadSeedFile(cfg.SeedFile)
}
