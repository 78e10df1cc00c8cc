package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"meteolink/internal/modules/weather/service"
	"meteolink/internal/modules/weather/types"
	"meteolink/internal/modules/weather/views"
)

type mockService struct {
	records   []types.WeatherRecord
	ingestErr error
	ingested  []url.Values
	ctxErrs   []error
}

func (m *mockService) Ingest(ctx context.Context, values url.Values) service.IngestResult {
	m.ingested = append(m.ingested, values)
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	rec := types.WeatherRecord{WSID: values.Get("wsid")}
	if m.ingestErr != nil {
		return service.IngestResult{Record: rec, Err: m.ingestErr}
	}
	m.records = append(m.records, rec)
	return service.IngestResult{Record: rec, Persisted: true, HistoryLen: len(m.records)}
}

func (m *mockService) History(ctx context.Context) []types.WeatherRecord {
	return m.records
}

func (m *mockService) Latest(ctx context.Context) (types.WeatherRecord, bool) {
	if len(m.records) == 0 {
		return types.WeatherRecord{}, false
	}
	return m.records[len(m.records)-1], true
}

func ptrFloat(v float64) *float64 { return &v }
func ptrInt(v int) *int           { return &v }

func newTestMux(svc WeatherService) *http.ServeMux {
	mux := http.NewServeMux()
	ctrl := NewWeatherController(svc).(*weatherControllerImpl)
	ctrl.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	ctrl.RegisterRoutes(mux)
	return mux
}

func serve(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func Test_handleUpload(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		ingestErr error
	}{
		{name: "full push", target: "/data/upload.php?wsid=ST1&t1tem=21.5&t1hum=40"},
		{name: "no parameters", target: "/data/upload.php"},
		{name: "garbage parameters", target: "/data/upload.php?t1tem=abc&foo=bar"},
		{name: "persistence failure", target: "/data/upload.php?wsid=ST1", ingestErr: errors.New("disk full")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{ingestErr: tt.ingestErr}
			rec := serve(newTestMux(svc), http.MethodGet, tt.target)

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d; want %d", rec.Code, http.StatusOK)
			}
			if rec.Body.String() != "OK" {
				t.Errorf("body = %q; want \"OK\"", rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
				t.Errorf("Content-Type = %q; want text/plain", ct)
			}
			if len(svc.ingested) != 1 {
				t.Fatalf("Ingest called %d times; want 1", len(svc.ingested))
			}
		})
	}

	t.Run("passes query values through", func(t *testing.T) {
		svc := &mockService{}
		serve(newTestMux(svc), http.MethodGet, "/data/upload.php?wsid=ST9&t1tem=1&t1tem=2")
		if got := svc.ingested[0]["t1tem"]; len(got) != 2 || got[0] != "1" {
			t.Errorf("t1tem values = %v; want [1 2]", got)
		}
	})

	t.Run("persists after the station disconnects", func(t *testing.T) {
		svc := &mockService{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req := httptest.NewRequest(http.MethodGet, "/data/upload.php?wsid=ST1", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		newTestMux(svc).ServeHTTP(rec, req)

		if len(svc.ctxErrs) != 1 || svc.ctxErrs[0] != nil {
			t.Errorf("Ingest context errors = %v; want [nil]", svc.ctxErrs)
		}
		if rec.Body.String() != "OK" {
			t.Errorf("body = %q; want OK", rec.Body.String())
		}
	})

	t.Run("rejects POST", func(t *testing.T) {
		rec := serve(newTestMux(&mockService{}), http.MethodPost, "/data/upload.php")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusMethodNotAllowed)
		}
	})
}

func Test_handleData(t *testing.T) {
	t.Run("empty history is an empty array", func(t *testing.T) {
		rec := serve(newTestMux(&mockService{}), http.MethodGet, "/api/data")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want 200", rec.Code)
		}
		if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
			t.Errorf("body = %q; want []", got)
		}
	})

	t.Run("returns records oldest first", func(t *testing.T) {
		svc := &mockService{records: []types.WeatherRecord{{WSID: "a"}, {WSID: "b"}}}
		rec := serve(newTestMux(svc), http.MethodGet, "/api/data")

		var got []map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if len(got) != 2 || got[0]["wsid"] != "a" || got[1]["wsid"] != "b" {
			t.Errorf("body = %v; want records a then b", got)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Errorf("Content-Type = %q; want application/json", ct)
		}
	})
}

func Test_handleLatest(t *testing.T) {
	t.Run("empty history is an empty object", func(t *testing.T) {
		rec := serve(newTestMux(&mockService{}), http.MethodGet, "/api/latest")
		if got := strings.TrimSpace(rec.Body.String()); got != "{}" {
			t.Errorf("body = %q; want {}", got)
		}
	})

	t.Run("returns the newest record", func(t *testing.T) {
		svc := &mockService{records: []types.WeatherRecord{
			{WSID: "old"},
			{WSID: "new", OutdoorTemp: ptrFloat(3.5)},
		}}
		rec := serve(newTestMux(svc), http.MethodGet, "/api/latest")

		var got map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if got["wsid"] != "new" || got["outdoor_temp"] != 3.5 {
			t.Errorf("body = %v; want newest record", got)
		}
		if v, ok := got["indoor_temp"]; !ok || v != nil {
			t.Errorf("indoor_temp = %v (present %v); want null", v, ok)
		}
	})

	t.Run("upload then latest", func(t *testing.T) {
		svc := &mockService{}
		mux := newTestMux(svc)
		serve(mux, http.MethodGet, "/data/upload.php?wsid=ABC")
		rec := serve(mux, http.MethodGet, "/api/latest")
		if !strings.Contains(rec.Body.String(), `"wsid":"ABC"`) {
			t.Errorf("body = %q; want wsid ABC", rec.Body.String())
		}
	})
}

func Test_handleExport(t *testing.T) {
	svc := &mockService{records: []types.WeatherRecord{
		{ReceivedAt: "2025-06-01T10:00:00.000000Z", OutdoorTemp: ptrFloat(21.5), OutdoorHumidity: ptrInt(0)},
		{ReceivedAt: "2025-06-01T10:01:00.000000Z", LightningDistanceKm: ptrInt(12)},
	}}
	rec := serve(newTestMux(svc), http.MethodGet, "/api/export.csv")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q; want text/csv", ct)
	}
	wantDisp := `attachment; filename="meteodata_2025-06-01.csv"`
	if got := rec.Header().Get("Content-Disposition"); got != wantDisp {
		t.Errorf("Content-Disposition = %q; want %q", got, wantDisp)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines; want header + 2 rows: %q", len(lines), rec.Body.String())
	}
	if !strings.HasPrefix(lines[0], "received_at,outdoor_temp,outdoor_humidity,") {
		t.Errorf("header = %q", lines[0])
	}
	if want := "2025-06-01T10:00:00.000000Z,21.5,0,,,,,,,,,,,"; lines[1] != want {
		t.Errorf("row 1 = %q; want %q", lines[1], want)
	}
	if want := "2025-06-01T10:01:00.000000Z,,,,,,,,,,,,,12"; lines[2] != want {
		t.Errorf("row 2 = %q; want %q", lines[2], want)
	}
}

func Test_writeCSV_empty(t *testing.T) {
	var buf bytes.Buffer
	if err := writeCSV(&buf, nil); err != nil {
		t.Fatalf("writeCSV(nil) = %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != strings.Join(exportHeader, ",") {
		t.Errorf("writeCSV(nil) = %q; want header only", got)
	}
}

func Test_handleDashboard(t *testing.T) {
	if err := views.LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates(): %v", err)
	}

	t.Run("returns 404 when path is not /", func(t *testing.T) {
		rec := serve(newTestMux(&mockService{}), http.MethodGet, "/dashboard")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("renders empty state", func(t *testing.T) {
		rec := serve(newTestMux(&mockService{}), http.MethodGet, "/")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want 200", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("Content-Type = %q; want text/html", ct)
		}
		if !strings.Contains(rec.Body.String(), "No data received yet") {
			t.Error("body missing empty state message")
		}
	})

	t.Run("renders latest record", func(t *testing.T) {
		svc := &mockService{records: []types.WeatherRecord{
			{WSID: "OLD"},
			{WSID: "NEWEST", OutdoorTemp: ptrFloat(-4.25)},
		}}
		rec := serve(newTestMux(svc), http.MethodGet, "/")
		body := rec.Body.String()
		if !strings.Contains(body, "NEWEST") || !strings.Contains(body, "-4.2") {
			t.Errorf("body missing latest reading")
		}
		if strings.Contains(body, "OLD<") {
			t.Errorf("body shows an older record")
		}
	})
}
