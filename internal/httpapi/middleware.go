package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const uploadPath = "/data/upload.php"

// quietPaths are polled by probes and scrapers; they log at debug.
var quietPaths = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

// requestLogger logs one line per request. Station uploads carry the
// station id; probe endpoints log at debug.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)

		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
			slog.Int("status", sr.status),
			slog.Int("bytes", sr.bytes),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		if r.URL.Path == uploadPath {
			wsid := r.URL.Query().Get("wsid")
			if wsid == "" {
				wsid = "unknown"
			}
			attrs = append(attrs, slog.String("wsid", wsid))
		}

		level := slog.LevelInfo
		if quietPaths[r.URL.Path] {
			level = slog.LevelDebug
		}
		slog.LogAttrs(context.Background(), level, "http request", attrs...)
	})
}
