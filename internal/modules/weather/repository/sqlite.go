package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"meteolink/internal/modules/weather/types"
)

//go:embed sql/insert-record.sql
var insertRecordSQL string

//go:embed sql/trim-records.sql
var trimRecordsSQL string

//go:embed sql/count-records.sql
var countRecordsSQL string

//go:embed sql/get-records.sql
var getRecordsSQL string

//go:embed sql/get-latest-record.sql
var getLatestRecordSQL string

// sqliteRepository stores one row per record with the record JSON as payload.
// Append inserts and trims in a single transaction.
type sqliteRepository struct {
	db       *sql.DB
	capacity int
}

// NewSQLiteRepository expects the weather_records table from the migrate
// package to exist.
func NewSQLiteRepository(db *sql.DB, capacity int) HistoryRepository {
	return &sqliteRepository{db: db, capacity: capacityOrDefault(capacity)}
}

func (r *sqliteRepository) Append(ctx context.Context, rec types.WeatherRecord) (int, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("encode record: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("rollback append", "error", err)
		}
	}()

	if _, err := tx.ExecContext(ctx, insertRecordSQL, rec.WSID, rec.ReceivedAt, string(payload)); err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	if _, err := tx.ExecContext(ctx, trimRecordsSQL, r.capacity); err != nil {
		return 0, fmt.Errorf("trim history: %w", err)
	}
	var n int
	if err := tx.QueryRowContext(ctx, countRecordsSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func (r *sqliteRepository) LoadAll(ctx context.Context) []types.WeatherRecord {
	out := []types.WeatherRecord{}
	rows, err := r.db.QueryContext(ctx, getRecordsSQL)
	if err != nil {
		slog.Error("load history", "error", err)
		return out
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close history rows", "error", err)
		}
	}()

	for rows.Next() {
		var (
			id      int64
			payload string
		)
		if err := rows.Scan(&id, &payload); err != nil {
			slog.Error("scan history row", "error", err)
			return []types.WeatherRecord{}
		}
		var rec types.WeatherRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			slog.Warn("skipping undecodable history row", "id", id, "error", err)
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		slog.Error("iterate history rows", "error", err)
		return []types.WeatherRecord{}
	}
	return out
}

// LoadLatest returns the newest decodable record, so it agrees with the
// last element of LoadAll.
func (r *sqliteRepository) LoadLatest(ctx context.Context) (types.WeatherRecord, bool) {
	rows, err := r.db.QueryContext(ctx, getLatestRecordSQL)
	if err != nil {
		slog.Error("load latest record", "error", err)
		return types.WeatherRecord{}, false
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close latest rows", "error", err)
		}
	}()

	for rows.Next() {
		var (
			id      int64
			payload string
		)
		if err := rows.Scan(&id, &payload); err != nil {
			slog.Error("scan latest row", "error", err)
			return types.WeatherRecord{}, false
		}
		var rec types.WeatherRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			slog.Warn("skipping undecodable history row", "id", id, "error", err)
			continue
		}
		return rec, true
	}
	if err := rows.Err(); err != nil {
		slog.Error("iterate latest rows", "error", err)
	}
	return types.WeatherRecord{}, false
}

func (r *sqliteRepository) Ping(ctx context.Context) error {
	var ok int
	if err := r.db.QueryRowContext(ctx, `SELECT 1`).Scan(&ok); err != nil {
		return fmt.Errorf("sqlite ping: %w", err)
	}
	return nil
}
