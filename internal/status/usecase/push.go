package usecase

import (
	"context"
	"fmt"
	"strings"

	"status-relay/internal/model"
	"status-relay/internal/status"
)

// ReportPush marks the head of a push pending, naming the branch it was cut
// from when the ancestry walk finds one.
func (uc *implUseCase) ReportPush(ctx context.Context, ev model.PushEvent) (status.Result, error) {
	head, ok := ev.HeadCommit()
	if ev.Deleted || isZeroSHA(ev.After) || !ok {
		return skipped(ev.After, "nothing pushed"), nil
	}

	id, skip, err := uc.identity(ctx, ev)
	if err != nil {
		return status.Result{}, err
	}
	if skip {
		return skipped(head.SHA, "no installation"), nil
	}

	tips, err := uc.github.ListBranchTips(ctx, id, ev.Repo())
	if err != nil {
		uc.l.Errorf(ctx, "internal.status.ReportPush: %s: listing branches: %v", ev.Repo().FullName, err)
		return uc.write(ctx, id, ev.Repo(), head.SHA, model.StateError, status.DescError, uc.cfg.AppURL)
	}

	res, err := uc.resolver.Resolve(ctx, uc.github.Commits(id, ev.Repo()), head.SHA, tips)
	if err != nil {
		uc.l.Errorf(ctx, "internal.status.ReportPush: %s@%s: %v", ev.Repo().FullName, head.SHA, err)
		return uc.write(ctx, id, ev.Repo(), head.SHA, model.StateError, status.DescError, uc.cfg.AppURL)
	}

	desc := status.DescRunning
	if res.Found {
		desc = fmt.Sprintf(status.DescRunningOn, res.Branch)
		uc.l.Infof(ctx, "internal.status.ReportPush: %s@%s branched from %s", ev.Repo().FullName, head.SHA, res.Branch)
	} else {
		uc.l.Infof(ctx, "internal.status.ReportPush: %s@%s: no base branch (exhausted=%t, steps=%d)", ev.Repo().FullName, head.SHA, res.Exhausted, res.Steps)
	}
	return uc.write(ctx, id, ev.Repo(), head.SHA, model.StatePending, desc, uc.cfg.AppURL)
}

func isZeroSHA(sha string) bool {
	return sha != "" && strings.Trim(sha, "0") == ""
}
