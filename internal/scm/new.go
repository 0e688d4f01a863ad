package scm

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"status-relay/internal/model"
	pkgLog "status-relay/pkg/log"
)

// Config configures the GitHub adapter.
type Config struct {
	BaseURL         string
	CommitCacheSize int
	CommitCacheTTL  time.Duration
}

type implService struct {
	l       pkgLog.Logger
	auth    Authorizer
	baseURL string
	commits *expirable.LRU[string, model.CommitNode]
}

var _ Service = (*implService)(nil)

// New creates the GitHub adapter.
func New(l pkgLog.Logger, auth Authorizer, cfg Config) *implService {
	if cfg.CommitCacheSize <= 0 {
		cfg.CommitCacheSize = 4096
	}
	if cfg.CommitCacheTTL <= 0 {
		cfg.CommitCacheTTL = time.Hour
	}
	return &implService{
		l:       l,
		auth:    auth,
		baseURL: cfg.BaseURL,
		commits: expirable.NewLRU[string, model.CommitNode](cfg.CommitCacheSize, nil, cfg.CommitCacheTTL),
	}
}
