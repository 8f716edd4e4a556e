package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofinances/sessionkit"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxRequestBytes = 4 << 10

// directory is the stub's user table keyed by lower-cased email.
type directory struct {
	mu            sync.RWMutex
	byEmail       map[string]sessionkit.User
	autoProvision bool
	newID         func() string
}

func newDirectory(autoProvision bool) *directory {
	return &directory{
		byEmail:       make(map[string]sessionkit.User),
		autoProvision: autoProvision,
		newID:         uuid.NewString,
	}
}

func (d *directory) put(u sessionkit.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byEmail[strings.ToLower(u.Email)] = u
}

// lookup returns the user for email, creating one when auto-provisioning is
// on. created reports whether the user was new.
func (d *directory) lookup(email string) (u sessionkit.User, found, created bool) {
	key := strings.ToLower(email)

	d.mu.RLock()
	u, found = d.byEmail[key]
	d.mu.RUnlock()
	if found || !d.autoProvision {
		return u, found, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if u, found = d.byEmail[key]; found {
		return u, true, false
	}
	u = sessionkit.User{ID: d.newID(), Name: nameFromEmail(email), Email: email}
	d.byEmail[key] = u
	return u, true, true
}

func nameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// parseSeed reads "email=Name" pairs separated by commas. Seeded users get
// random ids.
func parseSeed(raw string, newID func() string) ([]sessionkit.User, error) {
	var users []sessionkit.User
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		email, name, ok := strings.Cut(entry, "=")
		email = strings.TrimSpace(email)
		if !strings.Contains(email, "@") {
			return nil, fmt.Errorf("seed entry %q: invalid email", entry)
		}
		if !ok || strings.TrimSpace(name) == "" {
			name = nameFromEmail(email)
		}
		users = append(users, sessionkit.User{ID: newID(), Name: strings.TrimSpace(name), Email: email})
	}
	return users, nil
}

type stubMetrics struct {
	requests *prometheus.CounterVec
	latency  prometheus.Histogram
	created  prometheus.Counter
}

func newStubMetrics(reg prometheus.Registerer) *stubMetrics {
	m := &stubMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lookup_stub_requests_total",
			Help: "Session lookups by response status.",
		}, []string{"status_code"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lookup_stub_request_seconds",
			Help:    "Session lookup handling time.",
			Buckets: prometheus.DefBuckets,
		}),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lookup_stub_users_provisioned_total",
			Help: "Users created by auto-provisioning.",
		}),
	}
	reg.MustRegister(m.requests, m.latency, m.created)
	return m
}

type server struct {
	dir     *directory
	metrics *stubMetrics
	logger  *slog.Logger
	delay   time.Duration
}

type errorBody struct {
	Message string `json:"message"`
}

func newRouter(s *server, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Post("/sessions", s.createSession)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

// createSession handles POST /sessions.
func (s *server) createSession(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer func() {
		s.metrics.requests.WithLabelValues(strconv.Itoa(status)).Inc()
		s.metrics.latency.Observe(time.Since(start).Seconds())
	}()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-r.Context().Done():
			status = http.StatusServiceUnavailable
			return
		}
	}

	var body struct {
		Email string `json:"email"`
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&body); err != nil {
		status = http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorBody{Message: "invalid request body"})
		return
	}
	email := strings.TrimSpace(body.Email)
	if email == "" {
		status = http.StatusBadRequest
		writeJSON(w, status, errorBody{Message: "email is required"})
		return
	}

	user, found, created := s.dir.lookup(email)
	if !found {
		status = http.StatusNotFound
		s.logger.Info("lookup miss", "email", email)
		writeJSON(w, status, errorBody{Message: "user not found"})
		return
	}
	if created {
		s.metrics.created.Inc()
		s.logger.Info("user provisioned", "user_id", user.ID)
	}
	writeJSON(w, status, user)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
