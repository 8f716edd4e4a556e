package sessionkit

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofinances/sessionkit/storage"
)

// Builder assembles a [Store]. It is single-use.
type Builder struct {
	config Config

	storage   storage.Storage
	lookup    Lookup
	auditSink AuditSink
	logger    *slog.Logger

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStorage sets the durable backend. Required.
func (b *Builder) WithStorage(s storage.Storage) *Builder {
	b.storage = s
	return b
}

// WithLookup sets the remote user lookup. Required.
func (b *Builder) WithLookup(l Lookup) *Builder {
	b.lookup = l
	return b
}

// WithAuditSink sets where audit events go when Audit is enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the sign-in latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a Store in the Loading
// state. Call [Store.Initialize] or [Store.Start] next.
func (b *Builder) Build() (*Store, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.storage == nil {
		return nil, errors.New("storage required")
	}
	if b.lookup == nil {
		return nil, errors.New("lookup required")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	store := &Store{
		config:  cfg,
		key:     cfg.UserKey(),
		storage: b.storage,
		lookup:  b.lookup,
		logger:  logger.With("component", "sessionkit"),
		metrics: NewMetrics(cfg.Metrics),
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink),
		now:     time.Now,
		state:   State{Loading: true},
		ready:   make(chan struct{}),
	}

	for _, w := range cfg.Lint() {
		logger.Warn("session config lint", "code", w.Code, "message", w.Message)
	}

	b.built = true

	return store, nil
}
