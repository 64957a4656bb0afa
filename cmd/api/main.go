package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"creativegen/internal/adapter/repo"
	"creativegen/internal/http/handlers"
	httpapi "creativegen/internal/http/httpapi"
	"creativegen/internal/infra"
	"creativegen/internal/ledger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.LogOptions("api"))
	if err := cfg.RequireDatabase(); err != nil {
		logger.Fatal().Err(err).Msg("api: invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := infra.Migrate(ctx, cfg.DatabaseURL, logger); err != nil {
		logger.Fatal().Err(err).Msg("api: migrations failed")
	}

	dbpool, err := infra.NewDBPool(ctx, cfg, "api")
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)
	app := &handlers.App{
		Requests:  repo.NewRequestRepository(runner),
		Spend:     ledger.NewPostgresStore(runner),
		Budget:    cfg.MonthlyBudget,
		WarnRatio: cfg.BudgetWarnRatio,
		Ping:      dbpool.Ping,
		Logger:    &logger,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		RateLimitPerMinute: cfg.APIRateLimitPerMin,
		AllowedOrigins:     cfg.CORSAllowedOrigins,
	})
	if err := infra.NewHTTPServer(cfg, router, logger).Run(ctx); err != nil {
		logger.Error().Err(err).Msg("api: server stopped with error")
		return
	}
	logger.Info().Msg("api: stopped")
}
