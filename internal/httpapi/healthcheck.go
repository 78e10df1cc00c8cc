package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"meteolink/internal/utils"
)

// Pinger reports whether the history store is usable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	pinger Pinger
}

func NewHealthchecker(p Pinger) healthchecker {
	return &healthcheckerImpl{pinger: p}
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.pinger.Ping(r.Context()); err != nil {
		slog.Error("failed to check history store", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to check history store")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func registerHealthcheck(mux *http.ServeMux, p Pinger) {
	healthchecker := NewHealthchecker(p)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
