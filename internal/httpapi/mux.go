package httpapi

import (
	"net/http"
)

// NewMux returns a mux with /healthz and, when metrics is non-nil, /metrics.
func NewMux(p Pinger, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, p)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	return mux
}
