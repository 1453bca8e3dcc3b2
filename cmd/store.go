package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dealbook/internal/config"
	"github.com/sells-group/dealbook/internal/projection"
	"github.com/sells-group/dealbook/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "dealbook.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func projectionSettings(p config.ProjectionConfig) projection.Settings {
	return projection.Settings{
		LookbackDays:        p.LookbackDays,
		MinBenchmarkSamples: p.MinBenchmarkSamples,
		HistoryDepth:        p.HistoryDepth,
		FactBatchSize:       p.FactBatchSize,
		FetchConcurrency:    p.FetchConcurrency,
		CacheTTL:            p.CacheTTL,
	}
}
