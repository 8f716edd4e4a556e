// Command lookup-stub serves the session lookup endpoint for local
// development.
//
//	POST /sessions  {"email":"..."} -> {"id","name","email"} or 404
//	GET  /metrics   Prometheus scrape
//
// Run:
//
//	go run ./cmd/lookup-stub -seed 'ana@example.com=Ana' -auto-provision
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	var (
		addr          = flag.String("addr", ":3333", "listen address")
		seed          = flag.String("seed", "", "comma separated email=Name pairs")
		autoProvision = flag.Bool("auto-provision", false, "create unknown users on first lookup")
		delay         = flag.Duration("delay", 0, "artificial latency per lookup")
		logFormat     = flag.String("log-format", "text", "text or json")
	)
	flag.Parse()

	var handler slog.Handler = slog.NewTextHandler(os.Stdout, nil)
	if *logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, nil)
	}
	logger := slog.New(handler)

	users, err := parseSeed(*seed, uuid.NewString)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	dir := newDirectory(*autoProvision)
	for _, u := range users {
		dir.put(u)
		logger.Info("seeded user", "user_id", u.ID, "email", u.Email)
	}

	reg := prometheus.NewRegistry()
	s := &server{
		dir:     dir,
		metrics: newStubMetrics(reg),
		logger:  logger,
		delay:   *delay,
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newRouter(s, reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
