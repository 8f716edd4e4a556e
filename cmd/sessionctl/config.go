package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gofinances/sessionkit"
	"github.com/joho/godotenv"
)

type config struct {
	Backend     string `env:"SESSIONKIT_BACKEND" envDefault:"bbolt"`
	DataPath    string `env:"SESSIONKIT_DATA_PATH" envDefault:"sessionkit.db"`
	RedisAddr   string `env:"SESSIONKIT_REDIS_ADDR"`
	RedisPrefix string `env:"SESSIONKIT_REDIS_PREFIX" envDefault:"sessionkit"`

	Namespace     string        `env:"SESSIONKIT_NAMESPACE" envDefault:"@gofinances"`
	RemoteURL     string        `env:"SESSIONKIT_REMOTE_URL" envDefault:"http://localhost:3333"`
	RemoteTimeout time.Duration `env:"SESSIONKIT_REMOTE_TIMEOUT" envDefault:"10s"`

	Audit   bool `env:"SESSIONKIT_AUDIT" envDefault:"false"`
	Metrics bool `env:"SESSIONKIT_METRICS" envDefault:"true"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// loadConfig reads envFile, if it exists, underneath environ. Variables
// already present in environ win over the file.
func loadConfig(envFile string, environ map[string]string) (config, error) {
	merged := make(map[string]string, len(environ))
	if envFile != "" {
		fileVars, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return config{}, fmt.Errorf("read %s: %w", envFile, err)
		}
		maps.Copy(merged, fileVars)
	}
	maps.Copy(merged, environ)

	cfg, err := env.ParseAsWithOptions[config](env.Options{Environment: merged})
	if err != nil {
		return config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	switch cfg.Backend {
	case backendBolt, backendSQLite, backendRedis, backendMemory:
	default:
		return config{}, fmt.Errorf("unknown SESSIONKIT_BACKEND %q", cfg.Backend)
	}
	return cfg, nil
}

func (c config) sessionConfig() sessionkit.Config {
	out := sessionkit.DefaultConfig()
	out.Storage.Namespace = c.Namespace
	out.Remote.BaseURL = c.RemoteURL
	out.Remote.Timeout = c.RemoteTimeout
	out.Audit.Enabled = c.Audit
	out.Metrics.Enabled = c.Metrics
	out.Metrics.EnableLatencyHistograms = c.Metrics
	return out
}

func newLogger(level, format string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
