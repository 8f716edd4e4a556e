// Command sessionctl drives a sessionkit store from the shell.
//
// Usage:
//
//	sessionctl [-env-file path] [-metrics] whoami
//	sessionctl [-env-file path] [-metrics] signin -email user@example.com
//	sessionctl [-env-file path] [-metrics] signout
//
// Configuration comes from SESSIONKIT_* variables, optionally read from a
// .env file. SESSIONKIT_BACKEND selects bbolt (default), sqlite, redis, or
// memory. The redis backend starts an in-process miniredis when
// SESSIONKIT_REDIS_ADDR is empty.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/caarlos0/env/v11"
	"github.com/gofinances/sessionkit"
	otelexport "github.com/gofinances/sessionkit/metrics/export/otel"
	"github.com/gofinances/sessionkit/remote"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type command func(ctx context.Context, args []string, stdout io.Writer) error

var commands = map[string]command{
	"whoami":  runWhoAmI,
	"signin":  runSignIn,
	"signout": runSignOut,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], env.ToMap(os.Environ()), os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, environ map[string]string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sessionctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	envFile := fs.String("env-file", ".env", "optional dotenv file")
	showMetrics := fs.Bool("metrics", false, "print session metrics after the command")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stderr, "usage: sessionctl [flags] whoami|signin|signout")
		return 2
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", rest[0])
		return 2
	}

	cfg, err := loadConfig(*envFile, environ)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 2
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, stderr)

	store, cleanup, err := openSession(ctx, cfg, logger, stderr)
	if err != nil {
		logger.Error("open session store", "error", err)
		return 1
	}
	defer cleanup()

	unsubscribe := store.Subscribe(func(st sessionkit.State) {
		logger.Debug("session state changed", "phase", st.Phase().String())
	})
	defer unsubscribe()

	store.Start(ctx)
	if err := store.Wait(ctx); err != nil {
		logger.Error("session restore interrupted", "error", err)
		return 1
	}

	code := 0
	if err := cmd(sessionkit.WithStore(ctx, store), rest[1:], stdout); err != nil {
		logger.Error(rest[0]+" failed", "error", err)
		code = 1
	}

	if *showMetrics {
		if err := writeMetrics(ctx, store, stdout); err != nil {
			logger.Warn("collect metrics", "error", err)
		}
	}
	return code
}

// openSession wires storage, the remote lookup, and the store. cleanup
// flushes audit events before releasing the backend.
func openSession(ctx context.Context, cfg config, logger *slog.Logger, auditOut io.Writer) (*sessionkit.Store, func(), error) {
	backend, closeBackend, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	sessCfg := cfg.sessionConfig()
	lookup, err := remote.NewClient(sessCfg.Remote, remote.WithUserAgent("sessionctl"))
	if err != nil {
		closeBackend()
		return nil, nil, err
	}

	builder := sessionkit.New().
		WithConfig(sessCfg).
		WithStorage(backend).
		WithLookup(lookup).
		WithLogger(logger)
	if cfg.Audit {
		builder = builder.WithAuditSink(sessionkit.NewJSONWriterSink(auditOut))
	}
	store, err := builder.Build()
	if err != nil {
		closeBackend()
		return nil, nil, err
	}

	return store, func() {
		store.Close()
		closeBackend()
	}, nil
}

type whoAmIOutput struct {
	Phase string           `json:"phase"`
	User  *sessionkit.User `json:"user,omitempty"`
}

func writeState(w io.Writer, st sessionkit.State) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(whoAmIOutput{Phase: st.Phase().String(), User: st.User})
}

func runWhoAmI(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) != 0 {
		return errors.New("whoami takes no arguments")
	}
	return writeState(stdout, sessionkit.MustFromContext(ctx).State())
}

func runSignIn(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("signin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store := sessionkit.MustFromContext(ctx)
	if err := store.SignIn(ctx, sessionkit.Credentials{Email: *email}); err != nil {
		return err
	}
	return writeState(stdout, store.State())
}

func runSignOut(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) != 0 {
		return errors.New("signout takes no arguments")
	}
	store := sessionkit.MustFromContext(ctx)
	if err := store.SignOut(ctx); err != nil {
		return err
	}
	return writeState(stdout, store.State())
}

// writeMetrics collects the store's counters through a manual OTel reader
// and prints one "name value" line per instrument.
func writeMetrics(ctx context.Context, store *sessionkit.Store, w io.Writer) error {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.WithoutCancel(ctx)) }()

	exp, err := otelexport.NewExporter(provider.Meter("sessionctl"), store)
	if err != nil {
		return err
	}
	defer exp.Close()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return err
	}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					fmt.Fprintf(w, "%s %d\n", m.Name, dp.Value)
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					fmt.Fprintf(w, "%s %d\n", m.Name, dp.Value)
				}
			}
		}
	}
	return nil
}
