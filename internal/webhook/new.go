package webhook

import (
	"context"
	"time"

	"status-relay/internal/status"
	pkgLog "status-relay/pkg/log"
)

type Handler struct {
	router            *Router
	security          *SecurityValidator
	processingTimeout time.Duration
	maxBodyBytes      int64
	l                 pkgLog.Logger
}

func NewHandler(
	uc status.UseCase,
	cfg Config,
	l pkgLog.Logger,
) *Handler {
	if cfg.ProcessingTimeout <= 0 {
		cfg.ProcessingTimeout = defaultProcessingTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	security := NewSecurityValidator(cfg.Security)
	if !security.SignatureEnabled() {
		l.Warnf(context.Background(), "internal.webhook.NewHandler: no webhook secret configured, signature verification is DISABLED")
	}
	return &Handler{
		router:            NewRouter(l, security, uc, cfg.DedupWindow),
		security:          security,
		processingTimeout: cfg.ProcessingTimeout,
		maxBodyBytes:      cfg.MaxBodyBytes,
		l:                 l,
	}
}
