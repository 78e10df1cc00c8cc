package controller

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"

	"meteolink/internal/modules/weather/types"
	"meteolink/internal/modules/weather/views"
	"meteolink/internal/utils"
)

// handleUpload acknowledges every push with "OK", including pushes that
// could not be persisted. Stations retry on anything else. Persistence
// finishes even if the station hangs up first.
func (c *weatherControllerImpl) handleUpload(w http.ResponseWriter, r *http.Request) {
	res := c.service.Ingest(context.WithoutCancel(r.Context()), r.URL.Query())
	if res.Err != nil {
		slog.Warn("upload acknowledged without persisting", "wsid", res.Record.WSID, "error", res.Err)
	}
	utils.WriteText(w, http.StatusOK, "OK")
}

func (c *weatherControllerImpl) handleData(w http.ResponseWriter, r *http.Request) {
	records := c.service.History(r.Context())
	if records == nil {
		records = []types.WeatherRecord{}
	}
	utils.WriteJSON(w, http.StatusOK, records)
}

func (c *weatherControllerImpl) handleLatest(w http.ResponseWriter, r *http.Request) {
	latest, ok := c.service.Latest(r.Context())
	if !ok {
		utils.WriteJSON(w, http.StatusOK, struct{}{})
		return
	}
	utils.WriteJSON(w, http.StatusOK, latest)
}

func (c *weatherControllerImpl) handleExport(w http.ResponseWriter, r *http.Request) {
	records := c.service.History(r.Context())

	var buf bytes.Buffer
	if err := writeCSV(&buf, records); err != nil {
		slog.Error("export: csv encode failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to export data")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename(c.now())+`"`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("export: write response failed", "error", err)
	}
}

func (c *weatherControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	records := c.service.History(r.Context())
	var latest types.WeatherRecord
	if len(records) > 0 {
		latest = records[len(records)-1]
	}
	data := views.NewDashboardData(latest, len(records) > 0, len(records))

	var buf bytes.Buffer
	if err := views.RenderDashboard(&buf, data); err != nil {
		slog.Error("dashboard template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("dashboard: write response failed", "error", err)
	}
}
