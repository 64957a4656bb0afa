package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"creativegen/internal/adapter/repo"
	"creativegen/internal/bootstrap"
	"creativegen/internal/infra"
	"creativegen/internal/infra/credentials"
	"creativegen/internal/ledger"
	"creativegen/internal/storage"
	"creativegen/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.LogOptions("worker"))
	if err := cfg.RequireDatabase(); err != nil {
		logger.Fatal().Err(err).Msg("worker: invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := infra.Migrate(ctx, cfg.DatabaseURL, logger); err != nil {
		logger.Fatal().Err(err).Msg("worker: migrations failed")
	}

	pool, err := infra.NewDBPool(ctx, cfg, "worker")
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)

	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	fileStore, err := storage.NewFileStore(storagePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	creds := credentials.NewStore(runner)
	videoKey, err := creds.Resolve(ctx, credentials.ProviderVideo, cfg.VideoAPIKey)
	if err != nil {
		logger.Warn().Err(err).Msg("worker: failed to load video api key from store")
	}
	openaiKey, err := creds.Resolve(ctx, credentials.ProviderOpenAI, cfg.OpenAIAPIKey)
	if err != nil {
		logger.Warn().Err(err).Msg("worker: failed to load openai api key from store")
	}

	orch, err := bootstrap.Orchestrator(ctx, cfg,
		bootstrap.Keys{Video: videoKey, OpenAI: openaiKey},
		bootstrap.Deps{Store: ledger.NewPostgresStore(runner)},
		&logger,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure pipeline")
	}

	w, err := worker.New(worker.Options{
		Requests:     repo.NewRequestRepository(runner),
		Generator:    orch,
		Artifacts:    fileStore,
		IdleInterval: cfg.WorkerIdleInterval,
		Logger:       &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure worker")
	}

	if _, err := w.Recover(ctx); err != nil {
		logger.Error().Err(err).Msg("worker: orphan recovery failed")
	}
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}
