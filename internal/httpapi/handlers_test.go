package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"meteolink/internal/config"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

func newTestServer(t *testing.T, p Pinger, metrics http.Handler) *httptest.Server {
	t.Helper()

	srv := NewServer(config.Config{HTTPAddr: ":0"}, NewMux(p, metrics))
	ts := httptest.NewServer(srv.Handler)

	t.Cleanup(ts.Close)
	return ts
}

func mustGetJSON[T any](t *testing.T, client *http.Client, url string, out *T) *http.Response {
	t.Helper()

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	return resp
}

func TestHealthz(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		ts := newTestServer(t, stubPinger{}, nil)

		var body map[string]string
		resp := mustGetJSON(t, ts.Client(), ts.URL+"/healthz", &body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d; want 200", resp.StatusCode)
		}
		if body["status"] != "ok" {
			t.Errorf("status field = %q; want ok", body["status"])
		}
	})

	t.Run("store failure", func(t *testing.T) {
		ts := newTestServer(t, stubPinger{err: errors.New("disk gone")}, nil)

		var body map[string]any
		resp := mustGetJSON(t, ts.Client(), ts.URL+"/healthz", &body)
		if resp.StatusCode != http.StatusInternalServerError {
			t.Fatalf("status = %d; want 500", resp.StatusCode)
		}
		if body["message"] != "failed to check history store" {
			t.Errorf("message = %v", body["message"])
		}
	})
}

func TestMetricsRoute(t *testing.T) {
	t.Run("absent when disabled", func(t *testing.T) {
		ts := newTestServer(t, stubPinger{}, nil)
		resp, err := ts.Client().Get(ts.URL + "/metrics")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d; want 404", resp.StatusCode)
		}
	})

	t.Run("served when enabled", func(t *testing.T) {
		called := false
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		})
		ts := newTestServer(t, stubPinger{}, h)
		resp, err := ts.Client().Get(ts.URL + "/metrics")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK || !called {
			t.Errorf("status = %d, called = %v; want 200 and handler called", resp.StatusCode, called)
		}
	})
}

func TestNewServer_addr(t *testing.T) {
	srv := NewServer(config.Config{HTTPAddr: "127.0.0.1:8000"}, http.NewServeMux())
	if srv.Addr != "127.0.0.1:8000" {
		t.Errorf("Addr = %q; want 127.0.0.1:8000", srv.Addr)
	}
	if srv.ReadHeaderTimeout == 0 {
		t.Error("ReadHeaderTimeout not set")
	}
}
