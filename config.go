package sessionkit

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config holds every tunable of a [Store].
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Storage StorageConfig
	Remote  RemoteConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageConfig controls how the user record is keyed in durable storage.
type StorageConfig struct {
	// Namespace prefixes the record key: "<Namespace>:user".
	Namespace string
}

/*
====================================
REMOTE CONFIG
====================================
*/

// RemoteConfig describes the session lookup endpoint. The Store itself only
// validates it; the remote package consumes it.
type RemoteConfig struct {
	BaseURL          string
	SessionsPath     string
	Timeout          time.Duration
	MaxResponseBytes int64
}

// AuditConfig controls the asynchronous audit stream.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Namespace: "@gofinances",
		},
		Remote: RemoteConfig{
			BaseURL:          "http://localhost:3333",
			SessionsPath:     "/sessions",
			Timeout:          10 * time.Second,
			MaxResponseBytes: 64 << 10,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the configuration a mobile client ships with.
func DefaultConfig() Config {
	return defaultConfig()
}

// UserKey returns the durable storage key for the cached user.
func (c Config) UserKey() string {
	return c.Storage.Namespace + ":user"
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error in the sections the
// [Store] reads. The Remote section belongs to whichever [Lookup] uses it;
// see [RemoteConfig.Validate].
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Storage.Namespace) == "" {
		return errors.New("Storage Namespace must not be empty")
	}
	if strings.Contains(c.Storage.Namespace, ":user") {
		return errors.New("Storage Namespace must not contain the record suffix")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

// Validate reports the first error in an HTTP lookup configuration.
func (r RemoteConfig) Validate() error {
	if r.BaseURL == "" {
		return errors.New("Remote BaseURL must be set")
	}
	u, err := url.Parse(r.BaseURL)
	if err != nil {
		return errors.New("Remote BaseURL is not a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("Remote BaseURL scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("Remote BaseURL must include a host")
	}
	if !strings.HasPrefix(r.SessionsPath, "/") {
		return errors.New("Remote SessionsPath must start with /")
	}
	if r.Timeout < 0 {
		return errors.New("Remote Timeout must be >= 0")
	}
	if r.MaxResponseBytes <= 0 {
		return errors.New("Remote MaxResponseBytes must be > 0")
	}
	return nil
}

/*
====================================
LINT
====================================
*/

// LintWarning is a non-fatal configuration observation.
type LintWarning struct {
	Code    string
	Message string
}

// Lint returns advisory warnings for configurations that validate but are
// probably not what a production client wants.
func (c *Config) Lint() []LintWarning {
	var out []LintWarning

	// An unset Remote means the lookup is not the HTTP client.
	if c.Remote.BaseURL != "" {
		if u, err := url.Parse(c.Remote.BaseURL); err == nil && u.Scheme == "http" && !isLoopback(u.Hostname()) {
			out = append(out, LintWarning{
				Code:    "remote_plain_http",
				Message: "Remote BaseURL uses plain http for a non-loopback host; the email is sent in clear text",
			})
		}
		if c.Remote.Timeout == 0 {
			out = append(out, LintWarning{
				Code:    "remote_no_timeout",
				Message: "Remote Timeout is 0; a stalled lookup blocks sign-in indefinitely",
			})
		}
	}
	if c.Audit.Enabled && !c.Audit.DropIfFull {
		out = append(out, LintWarning{
			Code:    "audit_blocking",
			Message: "Audit DropIfFull is false; a slow sink will block sign-in and sign-out",
		})
	}

	return out
}

func isLoopback(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
