package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML layout. Scalars are decoded as strings and
// go through the same parsing as their environment variables.
type fileConfig struct {
	AppEnv   string `yaml:"app_env"`
	LogLevel string `yaml:"log_level"`

	HTTP struct {
		Addr string `yaml:"addr"`
		Host string `yaml:"host"`
		Port string `yaml:"port"`
	} `yaml:"http"`

	History struct {
		Backend  string `yaml:"backend"`
		Path     string `yaml:"path"`
		Capacity string `yaml:"capacity"`
	} `yaml:"history"`

	SQLite struct {
		Driver          string `yaml:"driver"`
		DSN             string `yaml:"dsn"`
		Path            string `yaml:"path"`
		MaxOpenConns    string `yaml:"max_open_conns"`
		MaxIdleConns    string `yaml:"max_idle_conns"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		LogSQL          string `yaml:"log_sql"`
	} `yaml:"sqlite"`

	MQTT struct {
		Broker       string `yaml:"broker"`
		Port         string `yaml:"port"`
		ClientID     string `yaml:"client_id"`
		UploadTopic  string `yaml:"upload_topic"`
		PublishTopic string `yaml:"publish_topic"`
	} `yaml:"mqtt"`

	Metrics struct {
		Enabled string `yaml:"enabled"`
	} `yaml:"metrics"`
}

// loadFile reads a YAML config file and returns its values keyed by the
// matching environment variable names.
func loadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CONFIG_FILE %q: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse CONFIG_FILE %q: %w", path, err)
	}
	return map[string]string{
		"APP_ENV":              fc.AppEnv,
		"LOG_LEVEL":            fc.LogLevel,
		"HTTP_ADDR":            fc.HTTP.Addr,
		"HTTP_HOST":            fc.HTTP.Host,
		"PORT":                 fc.HTTP.Port,
		"HISTORY_BACKEND":      fc.History.Backend,
		"HISTORY_PATH":         fc.History.Path,
		"HISTORY_CAPACITY":     fc.History.Capacity,
		"DB_DRIVER":            fc.SQLite.Driver,
		"DB_DSN":               fc.SQLite.DSN,
		"SQLITE_PATH":          fc.SQLite.Path,
		"DB_MAX_OPEN_CONNS":    fc.SQLite.MaxOpenConns,
		"DB_MAX_IDLE_CONNS":    fc.SQLite.MaxIdleConns,
		"DB_CONN_MAX_LIFETIME": fc.SQLite.ConnMaxLifetime,
		"DB_LOG_SQL":           fc.SQLite.LogSQL,
		"MQTT_BROKER":          fc.MQTT.Broker,
		"MQTT_PORT":            fc.MQTT.Port,
		"MQTT_CLIENT_ID":       fc.MQTT.ClientID,
		"MQTT_UPLOAD_TOPIC":    fc.MQTT.UploadTopic,
		"MQTT_PUBLISH_TOPIC":   fc.MQTT.PublishTopic,
		"METRICS_ENABLED":      fc.Metrics.Enabled,
	}, nil
}
