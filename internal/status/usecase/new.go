package usecase

import (
	"context"
	"sync"

	"status-relay/internal/credential"
	"status-relay/internal/graph"
	"status-relay/internal/model"
	"status-relay/internal/scm"
	"status-relay/internal/status"
	"status-relay/pkg/batches"
	pkgLog "status-relay/pkg/log"
)

// Broker resolves the credential identity for an event.
type Broker interface {
	Resolve(ctx context.Context, ev model.WebhookEvent) (credential.Identity, error)
}

// Resolver finds the base branch of a commit.
type Resolver interface {
	Resolve(ctx context.Context, src graph.CommitSource, start string, tips model.BranchTips) (graph.Resolution, error)
}

type implUseCase struct {
	l        pkgLog.Logger
	cfg      status.Config
	broker   Broker
	github   scm.Service
	batches  batches.IBatches
	resolver Resolver

	wg sync.WaitGroup
}

var _ status.UseCase = (*implUseCase)(nil)

// New creates a new status UseCase instance.
func New(
	l pkgLog.Logger,
	cfg status.Config,
	broker Broker,
	github scm.Service,
	batchClient batches.IBatches,
	resolver Resolver,
) *implUseCase {
	if cfg.Context == "" {
		cfg.Context = status.DefaultContext
	}
	if len(cfg.CIPrefixes) == 0 {
		cfg.CIPrefixes = status.DefaultCIPrefixes
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = status.DefaultMaxWait
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = status.DefaultPollInterval
	}
	if cfg.BatchGrace <= 0 {
		cfg.BatchGrace = status.DefaultBatchGrace
	}
	cfg.BatchGrace = min(cfg.BatchGrace, cfg.MaxWait/2)
	return &implUseCase{
		l:        l,
		cfg:      cfg,
		broker:   broker,
		github:   github,
		batches:  batchClient,
		resolver: resolver,
	}
}

// Wait blocks until background result polling has finished.
func (uc *implUseCase) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		uc.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
