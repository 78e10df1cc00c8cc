package repository

import (
	"context"

	"meteolink/internal/modules/weather/types"
)

// DefaultCapacity is the number of records kept when none is configured.
const DefaultCapacity = 1000

// HistoryRepository is the bounded, arrival-ordered record history.
//
// Read failures are not reported: missing or unreadable state reads as an
// empty history. Write failures are returned from Append.
type HistoryRepository interface {
	// Append adds rec after the newest record, drops the oldest records
	// beyond capacity and persists the result as a whole. It returns the
	// history length after the append.
	Append(ctx context.Context, rec types.WeatherRecord) (int, error)
	// LoadAll returns every stored record, oldest first. Never nil.
	LoadAll(ctx context.Context) []types.WeatherRecord
	// LoadLatest returns the newest record, or false when empty.
	LoadLatest(ctx context.Context) (types.WeatherRecord, bool)
	Ping(ctx context.Context) error
}

// keepNewest returns the last capacity records of records.
func keepNewest(records []types.WeatherRecord, capacity int) []types.WeatherRecord {
	if capacity <= 0 || len(records) <= capacity {
		return records
	}
	return records[len(records)-capacity:]
}

func capacityOrDefault(capacity int) int {
	if capacity <= 0 {
		return DefaultCapacity
	}
	return capacity
}
