package graph

import (
	"context"

	"status-relay/internal/metrics"
	"status-relay/internal/model"
	pkgLog "status-relay/pkg/log"
)

// Resolver finds the branch a pushed commit descends from.
type Resolver struct {
	l   pkgLog.Logger
	cfg Config
}

// New creates a Resolver.
func New(l pkgLog.Logger, cfg Config) *Resolver {
	return &Resolver{l: l, cfg: cfg}
}

// Resolve walks the ancestry of start breadth-first and returns the first
// ancestor that is a branch tip, so the nearest ancestor wins. start itself is
// never matched. Running out of budget yields an exhausted, not-found result.
func (r *Resolver) Resolve(ctx context.Context, src CommitSource, start string, tips model.BranchTips) (Resolution, error) {
	budgetCtx := ctx
	if r.cfg.MaxDuration > 0 {
		var cancel context.CancelFunc
		budgetCtx, cancel = context.WithTimeout(ctx, r.cfg.MaxDuration)
		defer cancel()
	}

	var res Resolution
	defer func() { metrics.GraphResolutionSteps.Observe(float64(res.Steps)) }()

	seen := map[string]struct{}{start: {}}
	queue := []string{start}
	first := true

	for len(queue) > 0 {
		sha := queue[0]
		queue = queue[1:]

		if !first {
			if name, ok := tips[sha]; ok {
				res.Branch, res.SHA, res.Found = name, sha, true
				return res, nil
			}
		}
		first = false

		if r.cfg.MaxSteps > 0 && res.Steps >= r.cfg.MaxSteps {
			return r.exhausted(ctx, res, start, "step budget")
		}
		if err := ctx.Err(); err != nil {
			return res, &ResolutionError{SHA: sha, Err: err}
		}
		if budgetCtx.Err() != nil {
			return r.exhausted(ctx, res, start, "time budget")
		}

		node, err := src.GetCommit(budgetCtx, sha)
		res.Steps++
		if err != nil {
			if ctx.Err() == nil && budgetCtx.Err() != nil {
				return r.exhausted(ctx, res, start, "time budget")
			}
			return res, &ResolutionError{SHA: sha, Err: err}
		}

		for _, p := range node.Parents {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			queue = append(queue, p)
		}
	}
	return res, nil
}

func (r *Resolver) exhausted(ctx context.Context, res Resolution, start, reason string) (Resolution, error) {
	r.l.Warnf(ctx, "internal.graph.Resolve: %s exhausted after %d commits from %s", reason, res.Steps, start)
	res.Exhausted = true
	return res, nil
}
