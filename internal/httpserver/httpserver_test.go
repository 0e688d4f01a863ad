package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"status-relay/internal/middleware"
	"status-relay/pkg/log"
	"status-relay/pkg/response"
)

type fakeWebhook struct {
	calls atomic.Int32
}

func (f *fakeWebhook) HandleGitHubWebhook(c *gin.Context) {
	f.calls.Add(1)
	response.OK(c, gin.H{"outcome": "handled"})
}

type fakePending struct {
	waited atomic.Bool
}

func (f *fakePending) Wait(ctx context.Context) error {
	f.waited.Store(true)
	return nil
}

func newServer(t *testing.T, pending *fakePending) (*HTTPServer, *fakeWebhook) {
	t.Helper()
	wh := &fakeWebhook{}
	cfg := Config{
		Logger:         log.NewNop(),
		Port:           8080,
		Mode:           gin.TestMode,
		Environment:    "test",
		WebhookHandler: wh,
	}
	if pending != nil {
		cfg.Pending = pending
	}
	srv, err := New(log.NewNop(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv, wh
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing mode", Config{Port: 8080, WebhookHandler: &fakeWebhook{}}},
		{"missing port", Config{Mode: gin.TestMode, WebhookHandler: &fakeWebhook{}}},
		{"missing webhook handler", Config{Port: 8080, Mode: gin.TestMode}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(log.NewNop(), tt.cfg); err == nil {
				t.Fatal("New succeeded, want error")
			}
		})
	}
	if _, err := New(nil, Config{Port: 8080, Mode: gin.TestMode, WebhookHandler: &fakeWebhook{}}); err == nil {
		t.Error("New without logger succeeded")
	}
}

func TestRoutes(t *testing.T) {
	srv, wh := newServer(t, nil)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusOK},
		{http.MethodGet, "/live", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodPost, "/webhook/github", http.StatusOK},
		{http.MethodPost, "/api/github", http.StatusOK},
		{http.MethodGet, "/webhook/github", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{}`)))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if w.Header().Get(middleware.HeaderRequestID) == "" {
				t.Error("response carries no request id")
			}
		})
	}
	if got := wh.calls.Load(); got != 2 {
		t.Errorf("webhook calls = %d, want 2", got)
	}
}

func TestHealthBody(t *testing.T) {
	srv, _ := newServer(t, nil)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data["service"] != ServiceName || resp.Data["status"] != "healthy" {
		t.Errorf("data = %v", resp.Data)
	}
}

func TestReadyWhileDraining(t *testing.T) {
	srv, _ := newServer(t, nil)
	srv.draining.Store(true)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestServe_GracefulShutdown(t *testing.T) {
	pending := &fakePending{}
	srv, _ := newServer(t, pending)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, listener) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/live")
	if err != nil {
		t.Fatalf("GET /live: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if !pending.waited.Load() {
		t.Error("pending work was not drained")
	}
	if !srv.draining.Load() {
		t.Error("server not marked draining")
	}
}
