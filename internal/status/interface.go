package status

import (
	"context"

	"status-relay/internal/model"
)

// UseCase turns webhook events into commit statuses.
type UseCase interface {
	// ReportPullRequest marks a pull request's head commit as pending and, when
	// configured, schedules the terminal write once the test batch settles.
	ReportPullRequest(ctx context.Context, ev model.PullRequestEvent) (Result, error)

	// ReportStatus maps a CI status event onto this integration's own status.
	ReportStatus(ctx context.Context, ev model.StatusEvent) (Result, error)

	// ReportPush resolves the base branch of a push and marks its head commit pending.
	ReportPush(ctx context.Context, ev model.PushEvent) (Result, error)

	// Wait blocks until scheduled background writes finish or ctx ends.
	Wait(ctx context.Context) error
}
