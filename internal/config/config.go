package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath         = "roilabel.yaml"
	defaultHTTPTimeoutSeconds = 30
	defaultRangeKey           = "range"
	defaultServePort          = "8888"
	defaultProxyListen        = ":5050"
	defaultWebClientURL       = "http://127.0.0.1:4080"
	defaultDevServerURL       = "http://127.0.0.1:3000"
	defaultLogLevel           = "info"
)

type Config struct {
	ServerURL          string `yaml:"server_url"`
	SessionID          string `yaml:"session_id"`
	CSRFToken          string `yaml:"csrf_token"`
	HTTPTimeoutSeconds int    `yaml:"http_timeout_seconds"`

	DatasetID       int64  `yaml:"dataset_id"`
	RefreshSchedule string `yaml:"refresh_schedule"`
	RangeKey        string `yaml:"range_key"`

	ServePort string `yaml:"serve_port"`

	ProxyListen  string `yaml:"proxy_listen"`
	WebClientURL string `yaml:"web_client_url"`
	DevServerURL string `yaml:"dev_server_url"`

	LogLevel string `yaml:"log_level"`
}

// Load reads .env, the optional YAML file and ROILABEL_* environment
// overrides, then fills defaults. path may be empty.
func Load(path string) (Config, error) {
	var cfg Config

	// .env is optional
	_ = godotenv.Load()

	if path == "" {
		path = defaultConfigPath
		if envPath := os.Getenv("ROILABEL_CONFIG"); envPath != "" {
			path = envPath
		}
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		slog.Debug("Loaded config", "path", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("failed to read %s: %w", path, err)
	}

	envOverride(&cfg.ServerURL, "ROILABEL_SERVER_URL")
	envOverride(&cfg.SessionID, "ROILABEL_SESSION_ID")
	envOverride(&cfg.CSRFToken, "ROILABEL_CSRF_TOKEN")
	envOverrideInt(&cfg.HTTPTimeoutSeconds, "ROILABEL_HTTP_TIMEOUT_SECONDS")
	envOverrideInt64(&cfg.DatasetID, "ROILABEL_DATASET_ID")
	envOverride(&cfg.RefreshSchedule, "ROILABEL_REFRESH_SCHEDULE")
	envOverride(&cfg.RangeKey, "ROILABEL_RANGE_KEY")
	envOverride(&cfg.ServePort, "ROILABEL_SERVE_PORT")
	envOverride(&cfg.ProxyListen, "ROILABEL_PROXY_LISTEN")
	envOverride(&cfg.WebClientURL, "ROILABEL_WEB_CLIENT_URL")
	envOverride(&cfg.DevServerURL, "ROILABEL_DEV_SERVER_URL")
	envOverride(&cfg.LogLevel, "ROILABEL_LOG_LEVEL")

	cfg.ServerURL = strings.TrimRight(strings.TrimSpace(cfg.ServerURL), "/")

	if cfg.HTTPTimeoutSeconds == 0 {
		cfg.HTTPTimeoutSeconds = defaultHTTPTimeoutSeconds
	}
	if cfg.RangeKey == "" {
		cfg.RangeKey = defaultRangeKey
	}
	if cfg.ServePort == "" {
		cfg.ServePort = defaultServePort
	}
	if cfg.ProxyListen == "" {
		cfg.ProxyListen = defaultProxyListen
	}
	if cfg.WebClientURL == "" {
		cfg.WebClientURL = defaultWebClientURL
	}
	if cfg.DevServerURL == "" {
		cfg.DevServerURL = defaultDevServerURL
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}

	return cfg, nil
}

// HTTPTimeout is the per-request timeout of the backend gateway
func (c Config) HTTPTimeout() time.Duration {
	if c.HTTPTimeoutSeconds <= 0 {
		return defaultHTTPTimeoutSeconds * time.Second
	}
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// RequireBackend reports the settings missing for talking to the viewer
// backend
func (c Config) RequireBackend() error {
	var missing []string
	if c.ServerURL == "" {
		missing = append(missing, "server_url")
	}
	if c.SessionID == "" {
		missing = append(missing, "session_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required config not set (via roilabel.yaml or env var): %s", strings.Join(missing, ", "))
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, info when unrecognised
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOverride(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func envOverrideInt(target *int, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Ignoring invalid integer env var", "key", key, "value", v)
		return
	}
	*target = n
}

func envOverrideInt64(target *int64, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("Ignoring invalid integer env var", "key", key, "value", v)
		return
	}
	*target = n
}
