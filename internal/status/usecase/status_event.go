package usecase

import (
	"context"

	"status-relay/internal/model"
	"status-relay/internal/status"
)

// ReportStatus mirrors a CI status onto this integration's context. Lookup
// faults never prevent the write; they turn into an error status.
func (uc *implUseCase) ReportStatus(ctx context.Context, ev model.StatusEvent) (status.Result, error) {
	if !uc.isCIContext(ev.Context) {
		return skipped(ev.SHA, "context "+ev.Context+" is not a CI context"), nil
	}
	if ev.SHA == "" {
		return status.Result{}, status.ErrMissingSHA
	}

	id, skip, err := uc.identity(ctx, ev)
	if err != nil {
		return status.Result{}, err
	}
	if skip {
		return skipped(ev.SHA, "no installation"), nil
	}

	state, desc, targetURL := uc.mapStatusEvent(ctx, ev)
	return uc.write(ctx, id, ev.Repo(), ev.SHA, state, desc, targetURL)
}

func (uc *implUseCase) mapStatusEvent(ctx context.Context, ev model.StatusEvent) (model.CommitState, string, string) {
	if ev.State == model.StatePending {
		// The batch link is a convenience here; pending is mirrored regardless.
		targetURL := uc.cfg.AppURL
		if batchID, ok, err := uc.batches.GetBatchID(ctx, ev.SHA); err != nil {
			uc.l.Warnf(ctx, "internal.status.ReportStatus: %s@%s: batch lookup: %v", ev.Repo().FullName, ev.SHA, err)
		} else if ok {
			targetURL = uc.batchURL(batchID)
		}
		return model.StatePending, status.DescRunning, targetURL
	}

	r, err := uc.summarize(ctx, ev.SHA)
	if err != nil {
		uc.l.Errorf(ctx, "internal.status.ReportStatus: %s@%s: batch lookup: %v", ev.Repo().FullName, ev.SHA, err)
		if r.targetURL == "" {
			r.targetURL = uc.cfg.AppURL
		}
		return model.StateError, status.DescError, r.targetURL
	}
	return r.state, r.desc, r.targetURL
}
