package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofinances/sessionkit"
	"github.com/gofinances/sessionkit/remote"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestServer(t *testing.T, autoProvision bool) (*httptest.Server, *server) {
	t.Helper()
	dir := newDirectory(autoProvision)
	n := 0
	dir.newID = func() string {
		n++
		return "gen-" + string(rune('0'+n))
	}
	dir.put(sessionkit.User{ID: "u-1", Name: "Ana", Email: "ana@example.com"})

	reg := prometheus.NewRegistry()
	s := &server{
		dir:     dir,
		metrics: newStubMetrics(reg),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	srv := httptest.NewServer(newRouter(s, reg))
	t.Cleanup(srv.Close)
	return srv, s
}

func newClient(t *testing.T, baseURL string) *remote.Client {
	t.Helper()
	c, err := remote.NewClient(sessionkit.RemoteConfig{BaseURL: baseURL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestKnownEmailReturnsUser(t *testing.T) {
	srv, _ := newTestServer(t, false)

	u, err := newClient(t, srv.URL).LookupSession(context.Background(), sessionkit.Credentials{Email: "ANA@example.com"})
	if err != nil {
		t.Fatalf("LookupSession: %v", err)
	}
	if u.ID != "u-1" || u.Name != "Ana" {
		t.Fatalf("unexpected user %+v", u)
	}
}

func TestUnknownEmailIsRejected(t *testing.T) {
	srv, s := newTestServer(t, false)

	_, err := newClient(t, srv.URL).LookupSession(context.Background(), sessionkit.Credentials{Email: "bob@example.com"})
	if !errors.Is(err, sessionkit.ErrRemoteRejection) {
		t.Fatalf("expected ErrRemoteRejection, got %v", err)
	}
	var se *remote.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound || se.Message != "user not found" {
		t.Fatalf("expected 404 status error, got %#v", err)
	}
	if got := testutil.ToFloat64(s.metrics.requests.WithLabelValues("404")); got != 1 {
		t.Fatalf("expected one 404 counted, got %v", got)
	}
}

func TestAutoProvisionCreatesOnce(t *testing.T) {
	srv, s := newTestServer(t, true)
	client := newClient(t, srv.URL)

	first, err := client.LookupSession(context.Background(), sessionkit.Credentials{Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	second, err := client.LookupSession(context.Background(), sessionkit.Credentials{Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if first.ID != "gen-1" || second.ID != first.ID || first.Name != "bob" {
		t.Fatalf("expected stable provisioned user, got %+v then %+v", first, second)
	}
	if got := testutil.ToFloat64(s.metrics.created); got != 1 {
		t.Fatalf("expected one provisioned user, got %v", got)
	}
}

func TestBadRequests(t *testing.T) {
	srv, _ := newTestServer(t, true)

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "not json", body: "nope", want: http.StatusBadRequest},
		{name: "blank email", body: `{"email":"  "}`, want: http.StatusBadRequest},
		{name: "too large", body: `{"email":"` + strings.Repeat("a", maxRequestBytes) + `"}`, want: http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/sessions", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, false)
	_, _ = newClient(t, srv.URL).LookupSession(context.Background(), sessionkit.Credentials{Email: "ana@example.com"})

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `lookup_stub_requests_total{status_code="200"} 1`) {
		t.Fatalf("expected request counter in scrape:\n%s", body)
	}
}

func TestParseSeed(t *testing.T) {
	users, err := parseSeed(" ana@example.com=Ana , bob@example.com ,", func() string { return "id" })
	if err != nil {
		t.Fatalf("parseSeed: %v", err)
	}
	if len(users) != 2 || users[0].Name != "Ana" || users[1].Name != "bob" {
		t.Fatalf("unexpected users %+v", users)
	}
	if _, err := parseSeed("not-an-email=X", func() string { return "id" }); err == nil {
		t.Fatal("expected invalid email error")
	}
}
