package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	HistoryBackend  string
	HistoryPath     string
	HistoryCapacity int

	Driver          string
	DSN             string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogSQL          bool

	// MQTTBroker empty disables the MQTT bridge.
	MQTTBroker       string
	MQTTPort         int
	MQTTClientID     string
	MQTTUploadTopic  string
	MQTTPublishTopic string

	MetricsEnabled bool
}

// MQTTEnabled reports whether a broker is configured.
func (c Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

// LoadFromEnv reads configuration from the environment. When CONFIG_FILE
// names a YAML file its values act as defaults; environment variables win.
func LoadFromEnv() (Config, error) {
	file := map[string]string{}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		var err error
		file, err = loadFile(path)
		if err != nil {
			return Config{}, err
		}
	}
	get := func(key string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		return strings.TrimSpace(file[key])
	}

	appEnv := get("APP_ENV")
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := get("LOG_LEVEL")
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	httpAddr := get("HTTP_ADDR")
	if httpAddr == "" {
		port := get("PORT")
		if port == "" {
			port = "8000"
		}
		if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
			return Config{}, fmt.Errorf("invalid PORT %q", port)
		}
		httpAddr = net.JoinHostPort(get("HTTP_HOST"), port)
	}

	backend := strings.ToLower(get("HISTORY_BACKEND"))
	if backend == "" {
		backend = BackendFile
	}
	switch backend {
	case BackendFile, BackendSQLite:
	default:
		return Config{}, fmt.Errorf("invalid HISTORY_BACKEND %q (allowed: file, sqlite)", backend)
	}

	historyPath := get("HISTORY_PATH")
	if historyPath == "" {
		historyPath = "meteo_data.json"
	}

	capacityStr := get("HISTORY_CAPACITY")
	if capacityStr == "" {
		capacityStr = "1000"
	}
	capacity, err := strconv.Atoi(capacityStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid HISTORY_CAPACITY %q: %w", capacityStr, err)
	}
	if capacity <= 0 {
		return Config{}, fmt.Errorf("invalid HISTORY_CAPACITY %q: must be > 0", capacityStr)
	}

	driver := get("DB_DRIVER")
	if driver == "" {
		driver = "sqlite3"
	}
	dsn := get("DB_DSN")
	path := get("SQLITE_PATH")
	if path == "" {
		path = "data/meteolink.db"
	}

	maxOpenConnsStr := get("DB_MAX_OPEN_CONNS")
	if maxOpenConnsStr == "" {
		maxOpenConnsStr = "1"
	}
	maxOpenConns, err := strconv.Atoi(maxOpenConnsStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_MAX_OPEN_CONNS %q: %w", maxOpenConnsStr, err)
	}

	maxIdleConnsStr := get("DB_MAX_IDLE_CONNS")
	if maxIdleConnsStr == "" {
		maxIdleConnsStr = "1"
	}
	maxIdleConns, err := strconv.Atoi(maxIdleConnsStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_MAX_IDLE_CONNS %q: %w", maxIdleConnsStr, err)
	}

	connMaxLifetimeStr := get("DB_CONN_MAX_LIFETIME")
	if connMaxLifetimeStr == "" {
		connMaxLifetimeStr = "0s"
	}
	connMaxLifetime, err := time.ParseDuration(connMaxLifetimeStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", connMaxLifetimeStr, err)
	}

	logSQL, err := parseBool("DB_LOG_SQL", get("DB_LOG_SQL"), false)
	if err != nil {
		return Config{}, err
	}

	mqttPortStr := get("MQTT_PORT")
	if mqttPortStr == "" {
		mqttPortStr = "1883"
	}
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}

	clientID := get("MQTT_CLIENT_ID")
	if clientID == "" {
		clientID = "meteolink-" + uuid.NewString()
	}

	uploadTopic := get("MQTT_UPLOAD_TOPIC")
	if uploadTopic == "" {
		uploadTopic = "meteolink/upload"
	}
	publishTopic := get("MQTT_PUBLISH_TOPIC")
	if publishTopic == "" {
		publishTopic = "meteolink/records/{wsid}"
	}

	metricsEnabled, err := parseBool("METRICS_ENABLED", get("METRICS_ENABLED"), true)
	if err != nil {
		return Config{}, err
	}

	return Config{
		AppEnv:           appEnv,
		LogLevel:         level,
		HTTPAddr:         httpAddr,
		HistoryBackend:   backend,
		HistoryPath:      historyPath,
		HistoryCapacity:  capacity,
		Driver:           driver,
		DSN:              dsn,
		Path:             path,
		MaxOpenConns:     maxOpenConns,
		MaxIdleConns:     maxIdleConns,
		ConnMaxLifetime:  connMaxLifetime,
		LogSQL:           logSQL,
		MQTTBroker:       get("MQTT_BROKER"),
		MQTTPort:         mqttPort,
		MQTTClientID:     clientID,
		MQTTUploadTopic:  uploadTopic,
		MQTTPublishTopic: publishTopic,
		MetricsEnabled:   metricsEnabled,
	}, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func parseBool(key, s string, def bool) (bool, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}
