package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomePersisted     = "persisted"
	OutcomePersistFailed = "persist_failed"
)

// Ingest holds the ingestion collectors.
type Ingest struct {
	total    *prometheus.CounterVec
	history  prometheus.Gauge
	duration prometheus.Histogram
	mqtt     *prometheus.CounterVec
}

// NewIngest creates the collectors and registers them with reg.
func NewIngest(reg prometheus.Registerer) *Ingest {
	m := &Ingest{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meteolink_ingest_total",
			Help: "Station pushes acknowledged, by persistence outcome.",
		}, []string{"outcome"}),
		history: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "meteolink_history_records",
			Help: "Records in the history after the last successful append.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "meteolink_ingest_duration_seconds",
			Help:    "Time spent persisting one push.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		mqtt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meteolink_mqtt_messages_total",
			Help: "MQTT messages handled, by direction and result.",
		}, []string{"direction", "result"}),
	}
	m.total.WithLabelValues(OutcomePersisted)
	m.total.WithLabelValues(OutcomePersistFailed)
	reg.MustRegister(m.total, m.history, m.duration, m.mqtt)
	return m
}

// ObserveIngest records one push. historyLen is ignored when persistence failed.
func (m *Ingest) ObserveIngest(persisted bool, historyLen int, took time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(took.Seconds())
	if !persisted {
		m.total.WithLabelValues(OutcomePersistFailed).Inc()
		return
	}
	m.total.WithLabelValues(OutcomePersisted).Inc()
	m.history.Set(float64(historyLen))
}

// ObserveMQTT counts a received or published MQTT message.
func (m *Ingest) ObserveMQTT(direction string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.mqtt.WithLabelValues(direction, result).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
