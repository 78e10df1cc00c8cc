package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"meteolink/internal/modules/weather/ingest"
	"meteolink/internal/modules/weather/types"
)

// Publisher sends a payload to an MQTT topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Subscriber delivers upload payloads relayed over MQTT.
type Subscriber interface {
	SetMessageHandler(handler func(topic string, payload []byte) error)
}

const uploadTimeout = 10 * time.Second

var topicReplacer = strings.NewReplacer("/", "_", "+", "_", "#", "_")

// WithPublisher makes every ingested record get published to topic, where
// {wsid} is replaced by the station id.
func (s *Service) WithPublisher(p Publisher, topic string) *Service {
	s.publisher = p
	s.publishTopic = topic
	return s
}

// Register routes MQTT upload messages through Ingest.
func (s *Service) Register(sub Subscriber) {
	sub.SetMessageHandler(s.handleUpload)
}

func (s *Service) handleUpload(topic string, payload []byte) error {
	values, err := ingest.ValuesFromPayload(payload)
	if err != nil {
		s.metrics.ObserveMQTT("in", false)
		return err
	}
	s.metrics.ObserveMQTT("in", true)

	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()
	res := s.Ingest(ctx, values)
	slog.Debug("mqtt upload ingested", "topic", topic, "wsid", res.Record.WSID, "persisted", res.Persisted)
	return nil
}

// PublishTopic returns the topic a record from wsid is published to.
func (s *Service) PublishTopic(wsid string) string {
	return strings.ReplaceAll(s.publishTopic, "{wsid}", topicReplacer.Replace(wsid))
}

func (s *Service) publish(rec types.WeatherRecord) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		slog.Error("encode record for mqtt", "wsid", rec.WSID, "error", err)
		return
	}
	topic := s.PublishTopic(rec.WSID)

	s.publishMu.Lock()
	if s.closed {
		s.publishMu.Unlock()
		slog.Debug("publish skipped after shutdown", "topic", topic)
		return
	}
	s.publishWG.Add(1)
	s.publishMu.Unlock()

	go func() {
		defer s.publishWG.Done()
		if err := s.publisher.Publish(topic, payload); err != nil {
			s.metrics.ObserveMQTT("out", false)
			slog.Warn("publish weather record failed", "topic", topic, "error", err)
			return
		}
		s.metrics.ObserveMQTT("out", true)
	}()
}
