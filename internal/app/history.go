package app

import (
	"context"
	"fmt"
	"log/slog"

	"meteolink/internal/config"
	"meteolink/internal/db"
	"meteolink/internal/db/migrate"
	"meteolink/internal/modules/weather/repository"
)

// openHistory returns the configured history backend and a func releasing
// its resources.
func openHistory(ctx context.Context, cfg config.Config, logger *slog.Logger) (repository.HistoryRepository, func(), error) {
	switch cfg.HistoryBackend {
	case config.BackendFile:
		slog.Info("history backend: file", "path", cfg.HistoryPath, "capacity", cfg.HistoryCapacity)
		return repository.NewFileRepository(cfg.HistoryPath, cfg.HistoryCapacity), func() {}, nil

	case config.BackendSQLite:
		dbConn, err := db.Open(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if closeErr := db.Close(dbConn); closeErr != nil {
				slog.Error("db close", "error", closeErr)
			}
		}
		if err := migrate.Run(ctx, dbConn); err != nil {
			closeDB()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		slog.Info("history backend: sqlite", "path", cfg.Path, "capacity", cfg.HistoryCapacity)
		return repository.NewSQLiteRepository(dbConn, cfg.HistoryCapacity), closeDB, nil

	default:
		return nil, nil, fmt.Errorf("unknown history backend %q", cfg.HistoryBackend)
	}
}
