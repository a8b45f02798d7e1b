package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"caseintake/internal/database"
	"caseintake/internal/handlers"
	"caseintake/internal/intake"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the intake gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx := context.Background()

	var drafts intake.DraftStore = intake.NewMemoryDrafts()
	if cfg.PostgresURI != "" {
		if err := database.InitDB(cfg); err != nil {
			logger.Error().Err(err).Msg("failed to connect to database")
			return err
		}
		drafts = database.NewDrafts(database.DB)
		logger.Info().Msg("connected to database")
	} else {
		logger.Warn().Msg("POSTGRES_URI not set, drafts are kept in memory")
	}

	svc, err := newServices(ctx, cfg, logger, intake.WithDrafts(drafts))
	if err != nil {
		logger.Error().Err(err).Msg("failed to open bucket")
		return err
	}
	defer svc.Close()

	h := handlers.New(svc.manager, svc.api, logger)
	routerConf := handlers.RouterConfig{
		CORSOrigins:    cfg.CORSOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Development:    cfg.IsDev(),
	}
	if cfg.ServesFiles() {
		routerConf.Files = svc.bucket
	}
	router := handlers.NewRouter(h, routerConf)

	srv := &http.Server{
		Addr:              ":" + cfg.ListenPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.ListenPort).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	svc.manager.Wait()
	logger.Info().Msg("server stopped")
	return nil
}
