// Command reindex rebuilds the search projection from the published
// declarations.
package main

import (
	"context"
	"log/slog"
	"os"

	declarationStore "parite/internal/declaration/store"
	"parite/internal/platform/config"
	"parite/internal/platform/logger"
	"parite/internal/platform/postgres"
	"parite/internal/search"
)

func main() {
	log := logger.New(slog.LevelInfo)
	ctx := context.Background()

	pool, err := postgres.Connect(ctx, config.FromEnv().Database)
	if err != nil {
		log.Error("connect database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	service, err := search.New(search.NewPostgres(pool), search.WithLogger(log))
	if err != nil {
		log.Error("create search service", "error", err)
		os.Exit(1)
	}
	if err := service.Reindex(ctx, declarationStore.NewPostgres(pool)); err != nil {
		log.Error("reindex failed", "error", err)
		os.Exit(1)
	}
	log.Info("reindex complete", "rows", service.Reindexed())
}
