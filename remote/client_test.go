package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofinances/sessionkit"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := sessionkit.DefaultConfig().Remote
	cfg.BaseURL = srv.URL
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestLookupSessionPostsEmail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/sessions" {
			t.Errorf("expected /sessions, got %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %q", ct)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if len(body) != 1 || body["email"] != "b@x.com" {
			t.Errorf("expected only the email in the body, got %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"2","name":"Beto","email":"b@x.com"}`))
	})

	user, err := client.LookupSession(context.Background(), sessionkit.Credentials{Email: "b@x.com"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	want := sessionkit.User{ID: "2", Name: "Beto", Email: "b@x.com"}
	if user != want {
		t.Fatalf("expected %+v, got %+v", want, user)
	}
}

func TestLookupSessionRejections(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "not found with message",
			status: http.StatusNotFound,
			body:   `{"message":"user not found"}`,
			check: func(t *testing.T, err error) {
				var se *StatusError
				if !errors.As(err, &se) {
					t.Fatalf("expected StatusError, got %T", err)
				}
				if se.StatusCode != http.StatusNotFound || se.Message != "user not found" {
					t.Fatalf("unexpected status error %+v", se)
				}
			},
		},
		{
			name:   "server error plain text",
			status: http.StatusInternalServerError,
			body:   "boom\n",
			check: func(t *testing.T, err error) {
				var se *StatusError
				if !errors.As(err, &se) || se.Message != "boom" {
					t.Fatalf("expected trimmed message, got %v", err)
				}
			},
		},
		{
			name:   "malformed success body",
			status: http.StatusOK,
			body:   `not json`,
		},
		{
			name:   "success without id",
			status: http.StatusOK,
			body:   `{"name":"Ana"}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := client.LookupSession(context.Background(), sessionkit.Credentials{Email: "a@x.com"})
			if !errors.Is(err, sessionkit.ErrRemoteRejection) {
				t.Fatalf("expected ErrRemoteRejection, got %v", err)
			}
			if errors.Is(err, sessionkit.ErrNetwork) {
				t.Fatal("rejection must not be classified as network error")
			}
			if tc.check != nil {
				tc.check(t, err)
			}
		})
	}
}

func TestLookupSessionOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"1","name":"` + strings.Repeat("a", 256) + `"}`))
	}))
	defer srv.Close()

	client, err := NewClient(sessionkit.RemoteConfig{BaseURL: srv.URL, MaxResponseBytes: 64})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.LookupSession(context.Background(), sessionkit.Credentials{Email: "a@x.com"})
	if !errors.Is(err, sessionkit.ErrRemoteRejection) {
		t.Fatalf("expected ErrRemoteRejection, got %v", err)
	}
}

func TestLookupSessionNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client, err := NewClient(sessionkit.RemoteConfig{BaseURL: url, Timeout: time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.LookupSession(context.Background(), sessionkit.Credentials{Email: "a@x.com"})
	if !errors.Is(err, sessionkit.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestLookupSessionHonoursContext(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.LookupSession(ctx, sessionkit.Credentials{Email: "a@x.com"})
	if !errors.Is(err, sessionkit.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline to be preserved in chain, got %v", err)
	}
}

func TestNewClientEndpoint(t *testing.T) {
	client, err := NewClient(sessionkit.RemoteConfig{BaseURL: "https://api.example.com/v1/", SessionsPath: "/sessions"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if got := client.Endpoint(); got != "https://api.example.com/v1/sessions" {
		t.Fatalf("unexpected endpoint %q", got)
	}
	if _, err := NewClient(sessionkit.RemoteConfig{}); err == nil {
		t.Fatal("expected error for empty base url")
	}
}

func TestNewClientValidatesRemoteConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  sessionkit.RemoteConfig
	}{
		{"bad scheme", sessionkit.RemoteConfig{BaseURL: "ftp://api.example.com"}},
		{"no host", sessionkit.RemoteConfig{BaseURL: "http://"}},
		{"relative path", sessionkit.RemoteConfig{BaseURL: "http://localhost", SessionsPath: "sessions"}},
		{"negative timeout", sessionkit.RemoteConfig{BaseURL: "http://localhost", Timeout: -time.Second}},
		{"negative response cap", sessionkit.RemoteConfig{BaseURL: "http://localhost", MaxResponseBytes: -1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewClient(tc.cfg); err == nil {
				t.Fatal("expected config error")
			}
		})
	}

	client, err := NewClient(sessionkit.RemoteConfig{BaseURL: "http://localhost:3333"})
	if err != nil {
		t.Fatalf("expected defaults to fill path and cap, got %v", err)
	}
	if got := client.Endpoint(); got != "http://localhost:3333/sessions" {
		t.Fatalf("unexpected endpoint %q", got)
	}
}
