package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Indigo    IndigoConfig    `yaml:"indigo"`
	Hass      HassConfig      `yaml:"hass"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Features  FeaturesConfig  `yaml:"features"`
	Customize CustomizeConfig `yaml:"customize"`
	History   HistoryConfig   `yaml:"history"`
	API       APIConfig       `yaml:"api"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// StatusTopic carries the bridge's own availability (LWT target).
	StatusTopic string `yaml:"status_topic"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// IndigoConfig locates the MQTT uplink the Indigo-side publisher
// maintains. Device snapshots arrive retained on
// {topic_prefix}/devices/{id}, variables on
// {topic_prefix}/variables/{id}, observed protocol commands on
// {topic_prefix}/commands, and device actions are published back to
// {topic_prefix}/actions.
type IndigoConfig struct {
	TopicPrefix string `yaml:"topic_prefix"`
}

// HassConfig contains Home Assistant REST API settings.
type HassConfig struct {
	// URL is the base URL of the Home Assistant instance. A trailing
	// slash is stripped on load.
	URL string `yaml:"url"`

	// AccessToken is a Home Assistant long-lived access token. It is
	// sanity-checked at startup but an unparseable token is not fatal:
	// event delivery simply fails with 401s until it is fixed.
	AccessToken string `yaml:"access_token"`

	// Timeout for REST calls, in seconds.
	Timeout int `yaml:"timeout"`
}

// DiscoveryConfig controls the MQTT discovery topic namespace.
type DiscoveryConfig struct {
	Prefix      string `yaml:"prefix"`
	EventPrefix string `yaml:"event_prefix"`
}

// FeaturesConfig toggles optional generated entities.
type FeaturesConfig struct {
	CreateBatterySensors     bool `yaml:"create_battery_sensors"`
	CreateLEDBacklightLights bool `yaml:"create_led_backlight_lights"`
	InsteonNoCommMinutes     int  `yaml:"insteon_no_comm_minutes"`
}

// CustomizeConfig points at the per-device/per-variable override file.
type CustomizeConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// HistoryConfig controls the local state-change log.
type HistoryConfig struct {
	Enabled       bool         `yaml:"enabled"`
	Path          string       `yaml:"path"`
	RetentionDays int          `yaml:"retention_days"`
	Influx        InfluxConfig `yaml:"influx"`
}

// InfluxConfig contains the optional InfluxDB state sink settings.
type InfluxConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"` // seconds
}

// APIConfig contains the diagnostics HTTP server settings.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// RefreshConfig controls the periodic synchronisation loop.
type RefreshConfig struct {
	Interval int `yaml:"interval"` // seconds
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from the YAML file at path, applies
// environment variable overrides (HASSBRIDGE_SECTION_KEY) and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	cfg.Hass.URL = strings.TrimRight(cfg.Hass.URL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "hassbridge-" + uuid.NewString()[:8],
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			StatusTopic: "hassbridge/status",
		},
		Indigo: IndigoConfig{
			TopicPrefix: "indigo",
		},
		Hass: HassConfig{
			URL:     "http://localhost:8123",
			Timeout: 10,
		},
		Discovery: DiscoveryConfig{
			Prefix:      "homeassistant",
			EventPrefix: "indigo_hassbridge",
		},
		Features: FeaturesConfig{
			InsteonNoCommMinutes: 1440,
		},
		History: HistoryConfig{
			Path:          "./data/hassbridge.db",
			RetentionDays: 30,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8099,
		},
		Refresh: RefreshConfig{
			Interval: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HASSBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HASSBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HASSBRIDGE_MQTT_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = p
		}
	}
	if v := os.Getenv("HASSBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HASSBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("HASSBRIDGE_HASS_URL"); v != "" {
		cfg.Hass.URL = v
	}
	if v := os.Getenv("HASSBRIDGE_HASS_ACCESS_TOKEN"); v != "" {
		cfg.Hass.AccessToken = v
	}
	if v := os.Getenv("HASSBRIDGE_HISTORY_INFLUX_TOKEN"); v != "" {
		cfg.History.Influx.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.Indigo.TopicPrefix == "" {
		errs = append(errs, "indigo.topic_prefix is required")
	}
	if c.Hass.URL == "" {
		errs = append(errs, "hass.url is required")
	}
	if c.Customize.Enabled && c.Customize.Path == "" {
		errs = append(errs, "customize.path is required when customize.enabled is true")
	}
	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, "history.path is required when history.enabled is true")
	}
	if c.History.Influx.Enabled {
		if c.History.Influx.URL == "" {
			errs = append(errs, "history.influx.url is required when history.influx.enabled is true")
		}
		if c.History.Influx.Bucket == "" {
			errs = append(errs, "history.influx.bucket is required when history.influx.enabled is true")
		}
	}
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.Refresh.Interval < 1 {
		errs = append(errs, "refresh.interval must be at least 1 second")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// CheckAccessToken parses the configured Home Assistant access token
// without verifying its signature. Long-lived access tokens are JWTs;
// a token that does not parse is almost certainly a copy/paste error.
// The result is advisory: callers should log a warning, not abort.
func (c *Config) CheckAccessToken() error {
	if c.Hass.AccessToken == "" {
		return nil
	}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(c.Hass.AccessToken, jwt.MapClaims{}); err != nil {
		return fmt.Errorf("access token does not appear to be valid: %w", err)
	}
	return nil
}

// GetHassTimeout returns the Home Assistant REST timeout as a Duration.
func (c *Config) GetHassTimeout() time.Duration {
	return time.Duration(c.Hass.Timeout) * time.Second
}

// GetRefreshInterval returns the periodic sync interval as a Duration.
func (c *Config) GetRefreshInterval() time.Duration {
	return time.Duration(c.Refresh.Interval) * time.Second
}

// String returns a human-readable summary with secrets redacted.
func (c *Config) String() string {
	return fmt.Sprintf("mqtt=%s:%d hass=%s discovery=%s api_enabled=%t history_enabled=%t",
		c.MQTT.Broker.Host, c.MQTT.Broker.Port, c.Hass.URL, c.Discovery.Prefix,
		c.API.Enabled, c.History.Enabled)
}
