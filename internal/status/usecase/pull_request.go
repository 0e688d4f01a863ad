package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"status-relay/internal/credential"
	"status-relay/internal/model"
	"status-relay/internal/status"
)

const terminalWriteTimeout = 30 * time.Second

// ReportPullRequest handles opened, reopened, synchronize and merged-closed actions.
func (uc *implUseCase) ReportPullRequest(ctx context.Context, ev model.PullRequestEvent) (status.Result, error) {
	switch ev.Action {
	case model.ActionOpened, model.ActionReopened, model.ActionSynchronize:
		return uc.startPullRequest(ctx, ev)
	case model.ActionClosed:
		return uc.closePullRequest(ctx, ev)
	}
	return skipped(ev.HeadSHA, "action "+ev.Action+" is not reported"), nil
}

func (uc *implUseCase) startPullRequest(ctx context.Context, ev model.PullRequestEvent) (status.Result, error) {
	if ev.HeadSHA == "" {
		return status.Result{}, status.ErrMissingSHA
	}

	id, skip, err := uc.identity(ctx, ev)
	if err != nil {
		return status.Result{}, err
	}
	if skip {
		return skipped(ev.HeadSHA, "no installation"), nil
	}

	res, err := uc.write(ctx, id, ev.Repo(), ev.HeadSHA, model.StatePending, status.DescRunning, uc.cfg.AppURL)
	if err != nil || !uc.cfg.AwaitResults {
		return res, err
	}

	uc.wg.Add(1)
	go uc.awaitResults(context.WithoutCancel(ctx), id, ev)

	res.Disposition = status.DispositionScheduled
	return res, nil
}

// awaitResults polls the batch service until the batch settles or MaxWait
// passes, then writes the terminal status. A commit with no batch yet is
// polled for BatchGrace before it settles as "No tests available".
func (uc *implUseCase) awaitResults(ctx context.Context, id credential.Identity, ev model.PullRequestEvent) {
	defer uc.wg.Done()

	pollCtx, cancel := context.WithTimeout(ctx, uc.cfg.MaxWait)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = uc.cfg.PollInterval
	b.MaxInterval = uc.cfg.PollInterval * 8
	b.MaxElapsedTime = uc.cfg.MaxWait
	b.Reset()

	var (
		state     model.CommitState
		desc      string
		targetURL string
		lastErr   error
		started   = time.Now()
	)
	op := func() error {
		r, err := uc.summarize(pollCtx, ev.HeadSHA)
		if r.targetURL != "" {
			targetURL = r.targetURL
		}
		if err != nil {
			lastErr = err
			uc.l.Warnf(pollCtx, "internal.status.awaitResults: %s#%d: batch lookup: %v", ev.Repo().FullName, ev.Number, err)
			return err
		}
		lastErr = nil
		if r.running {
			return status.ErrStillRunning
		}
		if !r.found && time.Since(started) < uc.cfg.BatchGrace {
			return status.ErrStillRunning
		}
		state, desc = r.state, r.desc
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(b, pollCtx)); err != nil {
		state = model.StateError
		desc = status.DescWaitTimedOut
		if lastErr != nil && !errors.Is(lastErr, context.DeadlineExceeded) {
			desc = status.DescError
		}
		uc.l.Warnf(ctx, "internal.status.awaitResults: %s#%d: giving up: %v", ev.Repo().FullName, ev.Number, err)
	}
	if targetURL == "" {
		targetURL = uc.cfg.AppURL
	}

	// The terminal write gets its own deadline; pollCtx may already be spent.
	writeCtx, cancelWrite := context.WithTimeout(ctx, terminalWriteTimeout)
	defer cancelWrite()
	if _, err := uc.write(writeCtx, id, ev.Repo(), ev.HeadSHA, state, desc, targetURL); err != nil {
		uc.l.Errorf(ctx, "internal.status.awaitResults: %s#%d: %v", ev.Repo().FullName, ev.Number, err)
	}
}

func (uc *implUseCase) closePullRequest(ctx context.Context, ev model.PullRequestEvent) (status.Result, error) {
	if !ev.Merged || !uncleanMerge(ev) {
		return skipped(ev.HeadSHA, "closed without a failed merge"), nil
	}

	sha := ev.MergeCommitSHA
	if sha == "" {
		sha = ev.HeadSHA
	}
	if sha == "" {
		return status.Result{}, status.ErrMissingSHA
	}

	id, skip, err := uc.identity(ctx, ev)
	if err != nil {
		return status.Result{}, err
	}
	if skip {
		return skipped(sha, "no installation"), nil
	}
	return uc.write(ctx, id, ev.Repo(), sha, model.StateFailure, status.DescMergeFailed, uc.cfg.AppURL)
}

func uncleanMerge(ev model.PullRequestEvent) bool {
	if ev.Mergeable != nil && !*ev.Mergeable {
		return true
	}
	return ev.MergeableState == "dirty"
}
