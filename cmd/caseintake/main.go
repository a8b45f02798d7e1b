package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"caseintake/internal/apiclient"
	"caseintake/internal/config"
	"caseintake/internal/database"
	"caseintake/internal/intake"
	"caseintake/internal/storage"
	"caseintake/internal/upload"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "caseintake",
		Short: "Orthodontic case intake gateway",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(uploadCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// services holds what serve and upload share.
type services struct {
	bucket  *storage.Bucket
	api     *apiclient.Client
	manager *intake.Manager
}

func (s *services) Close() error {
	return s.bucket.Close()
}

func newServices(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts ...intake.ManagerOption) (*services, error) {
	bucket, err := storage.Open(ctx, cfg.BucketURL, cfg.PublicBaseURL)
	if err != nil {
		return nil, err
	}
	api := apiclient.New(cfg.APIBaseURL, cfg.APITimeout)
	pipeline := upload.New(bucket, cfg.UploadCategory, logger.With().Str("component", "upload").Logger())
	categories := intake.NewCategoryCache(api, cfg.CategoryCacheTTL)
	manager := intake.NewManager(api, categories, pipeline, logger, append(opts, intake.WithFetchTimeout(cfg.APITimeout))...)
	return &services{bucket: bucket, api: api, manager: manager}, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the draft tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			if err := database.InitDB(cfg); err != nil {
				logger.Error().Err(err).Msg("failed to connect to database")
				return err
			}
			if err := database.Migrate(database.DB); err != nil {
				logger.Error().Err(err).Msg("migration failed")
				return err
			}
			logger.Info().Msg("migrations applied")
			return nil
		},
	}
}
