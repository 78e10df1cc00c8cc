package service

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"meteolink/internal/metrics"
	"meteolink/internal/modules/weather/ingest"
	"meteolink/internal/modules/weather/repository"
	"meteolink/internal/modules/weather/types"
)

// IngestResult reports what happened to one push. The push is acknowledged
// to the station either way; Err is set when it was not persisted.
type IngestResult struct {
	Record     types.WeatherRecord
	Persisted  bool
	HistoryLen int
	Err        error
}

type Service struct {
	repository repository.HistoryRepository
	metrics    *metrics.Ingest
	now        func() time.Time

	publisher    Publisher
	publishTopic string

	// publishMu orders publishWG.Add against Wait; no publish starts once
	// closed is set.
	publishMu sync.Mutex
	closed    bool
	publishWG sync.WaitGroup
}

// NewService returns a service over repo. m may be nil.
func NewService(repo repository.HistoryRepository, m *metrics.Ingest) *Service {
	return &Service{repository: repo, metrics: m, now: time.Now}
}

// Ingest normalizes one push, appends it to the history and fans it out to
// the publisher when one is attached.
func (s *Service) Ingest(ctx context.Context, values url.Values) IngestResult {
	start := s.now()
	rec := ingest.Parse(values, start)
	slog.Debug("weather push received", "wsid", rec.WSID, "params", values.Encode())

	n, err := s.repository.Append(ctx, rec)
	res := IngestResult{Record: rec, Persisted: err == nil, HistoryLen: n, Err: err}
	s.metrics.ObserveIngest(res.Persisted, n, time.Since(start))

	if err != nil {
		slog.Error("weather push not persisted", "wsid", rec.WSID, "error", err)
	} else {
		attrs := []any{
			"wsid", rec.WSID,
			"history_len", n,
			"lightning", rec.HasLightning(),
		}
		if soil := rec.Soil(); soil != nil && soil.Temp != nil {
			attrs = append(attrs, "soil_temp", *soil.Temp)
		}
		slog.Info("weather push stored", attrs...)
	}

	s.publish(rec)
	return res
}

func (s *Service) History(ctx context.Context) []types.WeatherRecord {
	return s.repository.LoadAll(ctx)
}

func (s *Service) Latest(ctx context.Context) (types.WeatherRecord, bool) {
	return s.repository.LoadLatest(ctx)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repository.Ping(ctx)
}

// Wait stops new publishes and blocks until in-flight ones finish. Ingest
// keeps persisting afterwards; records are just no longer published.
func (s *Service) Wait() {
	s.publishMu.Lock()
	s.closed = true
	s.publishMu.Unlock()
	s.publishWG.Wait()
}
