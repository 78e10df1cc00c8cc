package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"meteolink/internal/config"
	httpapi "meteolink/internal/httpapi"
	"meteolink/internal/metrics"
	weather "meteolink/internal/modules/weather"
	"meteolink/internal/modules/weather/service"
	weatherviews "meteolink/internal/modules/weather/views"
	"meteolink/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config) error {
	logger := slog.Default()
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"historyBackend", cfg.HistoryBackend,
		"historyPath", cfg.HistoryPath,
		"historyCapacity", cfg.HistoryCapacity,
		"sqlitePath", cfg.Path,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttUploadTopic", cfg.MQTTUploadTopic,
		"mqttPublishTopic", cfg.MQTTPublishTopic,
		"metricsEnabled", cfg.MetricsEnabled,
	)

	history, closeHistory, err := openHistory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeHistory()

	if err := weatherviews.LoadTemplates(); err != nil {
		return err
	}

	var ingestMetrics *metrics.Ingest
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		ingestMetrics = metrics.NewIngest(reg)
		metricsHandler = metrics.Handler(reg)
	}

	weatherService := service.NewService(history, ingestMetrics)

	var mqttClient *mqtt.Client
	// Runs on every exit path, before the history closes. Wait first so no
	// publish starts after the client is gone.
	defer func() {
		weatherService.Wait()
		if mqttClient != nil {
			slog.Info("mqtt disconnecting")
			mqttClient.Disconnect()
		}
	}()
	if cfg.MQTTEnabled() {
		mqttClient = mqtt.NewClient(cfg, logger)
		// Register before Connect: the broker may deliver right after CONNACK.
		weatherService.Register(mqttClient)
		weatherService.WithPublisher(mqttClient, cfg.MQTTPublishTopic)

		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = mqttClient.Connect(connectCtx)
		connectCancel()
		if err != nil {
			slog.Warn("mqtt connection failed (continuing, client keeps retrying)", "error", err)
		}
	}

	mux := httpapi.NewMux(weatherService, metricsHandler)
	weather.RegisterFeature(mux, weatherService)

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
