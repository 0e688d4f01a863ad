package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"status-relay/internal/credential"
	"status-relay/internal/model"
	"status-relay/internal/status"
)

// identity resolves credentials for ev. A missing installation is reported
// as skip=true with no error.
func (uc *implUseCase) identity(ctx context.Context, ev model.WebhookEvent) (credential.Identity, bool, error) {
	id, err := uc.broker.Resolve(ctx, ev)
	if errors.Is(err, credential.ErrNoInstallation) {
		uc.l.Infof(ctx, "internal.status.identity: %s: no installation, skipping", ev.Repo().FullName)
		return credential.Identity{}, true, nil
	}
	if err != nil {
		return credential.Identity{}, false, err
	}
	return id, false, nil
}

func (uc *implUseCase) write(ctx context.Context, id credential.Identity, repo model.Repository, sha string, state model.CommitState, desc, targetURL string) (status.Result, error) {
	report := model.CommitStatusReport{
		State:       state,
		Description: desc,
		TargetURL:   targetURL,
		Context:     uc.cfg.Context,
	}
	if err := uc.github.CreateStatus(ctx, id, repo, sha, report); err != nil {
		uc.l.Errorf(ctx, "internal.status.write: %s@%s %s: %v", repo.FullName, sha, state, err)
		return status.Result{SHA: sha, Report: report}, fmt.Errorf("writing %s status: %w", state, err)
	}
	return status.Result{Disposition: status.DispositionWritten, SHA: sha, Report: report}, nil
}

// batchReport is the batch service's view of a commit.
type batchReport struct {
	state     model.CommitState
	desc      string
	targetURL string
	running   bool // tests still executing
	found     bool // a batch with a summary exists for the commit
}

// summarize looks up the batch for ref and maps it onto a terminal report.
// On error targetURL is filled in when the batch id was already known.
func (uc *implUseCase) summarize(ctx context.Context, ref string) (batchReport, error) {
	batchID, ok, err := uc.batches.GetBatchID(ctx, ref)
	if err != nil {
		return batchReport{}, err
	}
	if !ok {
		return batchReport{state: model.StateSuccess, desc: status.DescNoTests, targetURL: uc.cfg.AppURL}, nil
	}

	r := batchReport{targetURL: uc.batchURL(batchID)}
	sum, ok, err := uc.batches.GetBatchSummary(ctx, batchID)
	if err != nil {
		return r, err
	}
	if !ok {
		r.state, r.desc = model.StateSuccess, status.DescNoTests
		return r, nil
	}

	r.state, r.desc = status.MapSummary(sum)
	r.running, r.found = sum.Running(), true
	return r, nil
}

func (uc *implUseCase) batchURL(batchID string) string {
	if uc.cfg.AppURL == "" {
		return ""
	}
	return strings.TrimSuffix(uc.cfg.AppURL, "/") + "/app/batches/" + batchID
}

func (uc *implUseCase) isCIContext(ctx string) bool {
	if ctx == uc.cfg.Context {
		return false
	}
	for _, p := range uc.cfg.CIPrefixes {
		if strings.HasPrefix(ctx, p) {
			return true
		}
	}
	return false
}

func skipped(sha, reason string) status.Result {
	return status.Result{Disposition: status.DispositionSkipped, SHA: sha, Reason: reason}
}
