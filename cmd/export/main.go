// Command export dumps the published declarations, as the regulator CSV or
// as a full JSON array.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	declarationStore "parite/internal/declaration/store"
	"parite/internal/export"
	"parite/internal/platform/config"
	"parite/internal/platform/logger"
	"parite/internal/platform/postgres"
)

func main() {
	format := flag.String("format", "csv", "output format: csv or json")
	flag.Parse()

	log := logger.New(slog.LevelInfo)
	ctx := context.Background()

	pool, err := postgres.Connect(ctx, config.FromEnv().Database)
	if err != nil {
		log.Error("connect database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := declarationStore.NewPostgres(pool)
	switch *format {
	case "csv":
		err = export.CSV(ctx, store, os.Stdout)
	case "json":
		err = export.JSON(ctx, store, os.Stdout)
	default:
		log.Error("unknown format", "format", *format)
		os.Exit(2)
	}
	if err != nil {
		log.Error("export failed", "error", err)
		os.Exit(1)
	}
}
