package httpserver

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"status-relay/internal/middleware"
	"status-relay/pkg/log"
)

const defaultShutdownTimeout = 30 * time.Second

// HTTPServer holds all dependencies for the HTTP server.
type HTTPServer struct {
	// Server
	gin             *gin.Engine
	l               log.Logger
	port            int
	mode            string
	environment     string
	shutdownTimeout time.Duration
	mw              middleware.Middleware
	draining        *atomic.Bool

	// Webhook domain
	webhookHandler interface {
		HandleGitHubWebhook(c *gin.Context)
	}

	// Background status work still running when the listener closes.
	pending interface {
		Wait(ctx context.Context) error
	}
}

// Config is the dependency bag passed to New().
type Config struct {
	Logger          log.Logger
	Port            int
	Mode            string
	Environment     string
	ShutdownTimeout time.Duration

	// Webhook domain
	WebhookHandler interface {
		HandleGitHubWebhook(c *gin.Context)
	}

	// Pending is drained after the listener stops. Optional.
	Pending interface {
		Wait(ctx context.Context) error
	}
}

// New creates a new HTTPServer instance.
func New(logger log.Logger, cfg Config) (*HTTPServer, error) {
	gin.SetMode(cfg.Mode)

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	srv := &HTTPServer{
		l:               logger,
		gin:             gin.New(),
		port:            cfg.Port,
		mode:            cfg.Mode,
		environment:     cfg.Environment,
		shutdownTimeout: cfg.ShutdownTimeout,
		mw:              middleware.New(logger),
		draining:        &atomic.Bool{},
		webhookHandler:  cfg.WebhookHandler,
		pending:         cfg.Pending,
	}

	if err := srv.validate(); err != nil {
		return nil, err
	}

	if err := srv.mapHandlers(); err != nil {
		return nil, err
	}

	return srv, nil
}

func (srv HTTPServer) validate() error {
	if srv.l == nil {
		return errors.New("logger is required")
	}
	if srv.mode == "" {
		return errors.New("mode is required")
	}
	if srv.port == 0 {
		return errors.New("port is required")
	}
	if srv.webhookHandler == nil {
		return errors.New("webhook handler is required")
	}
	return nil
}
