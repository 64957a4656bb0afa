package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbConnectTimeout = 10 * time.Second

// NewDBPool opens the Postgres pool for service and pings it once.
func NewDBPool(ctx context.Context, cfg *Config, service string) (*pgxpool.Pool, error) {
	poolCfg, err := dbPoolConfig(cfg, service)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, dbConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("infra: connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("infra: ping database: %w", err)
	}
	return pool, nil
}

func dbPoolConfig(cfg *Config, service string) (*pgxpool.Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("infra: config is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("infra: parse database url: %w", err)
	}

	if cfg.DBMaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.DBMaxConns)
	}
	if cfg.DBMinConns >= 0 && int32(cfg.DBMinConns) <= poolCfg.MaxConns {
		poolCfg.MinConns = int32(cfg.DBMinConns)
	}
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute
	if service != "" {
		// Shows up in pg_stat_activity.
		poolCfg.ConnConfig.RuntimeParams["application_name"] = "creativegen-" + service
	}
	return poolCfg, nil
}
