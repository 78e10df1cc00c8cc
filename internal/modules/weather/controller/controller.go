package controller

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"meteolink/internal/modules/weather/service"
	"meteolink/internal/modules/weather/types"
)

// WeatherService is what the HTTP layer needs from the weather service.
type WeatherService interface {
	Ingest(ctx context.Context, values url.Values) service.IngestResult
	History(ctx context.Context) []types.WeatherRecord
	Latest(ctx context.Context) (types.WeatherRecord, bool)
}

type WeatherController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type weatherControllerImpl struct {
	service WeatherService
	now     func() time.Time
}

func NewWeatherController(svc WeatherService) WeatherController {
	return &weatherControllerImpl{service: svc, now: time.Now}
}

func (c *weatherControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /data/upload.php", c.handleUpload)
	mux.HandleFunc("GET /api/data", c.handleData)
	mux.HandleFunc("GET /api/latest", c.handleLatest)
	mux.HandleFunc("GET /api/export.csv", c.handleExport)
	mux.HandleFunc("GET /", c.handleDashboard)
}
