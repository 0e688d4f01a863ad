package webhook

import (
	"fmt"
	"time"

	"github.com/google/go-github/v68/github"

	"status-relay/internal/model"
)

// Parse decodes body strictly by its declared event type.
func Parse(eventType string, body []byte, deliveryID string, receivedAt time.Time) (model.WebhookEvent, error) {
	switch model.EventKind(eventType) {
	case model.EventPullRequest, model.EventPush, model.EventStatus, model.EventPing:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, eventType)
	}

	raw, err := github.ParseWebHook(eventType, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	switch e := raw.(type) {
	case *github.PullRequestEvent:
		return parsePullRequest(e, deliveryID, receivedAt)
	case *github.PushEvent:
		return parsePush(e, deliveryID, receivedAt)
	case *github.StatusEvent:
		return parseStatus(e, deliveryID, receivedAt)
	case *github.PingEvent:
		return model.PingEvent{
			EventMeta: model.EventMeta{
				InstallationRef: installationRef(e.GetInstallation()),
				DeliveryID:      deliveryID,
				ReceivedAt:      receivedAt,
			},
			Zen:    e.GetZen(),
			HookID: e.GetHookID(),
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, eventType)
}

func parsePullRequest(e *github.PullRequestEvent, deliveryID string, receivedAt time.Time) (model.WebhookEvent, error) {
	if e.Repo == nil || e.PullRequest == nil {
		return nil, fmt.Errorf("%w: pull_request without repository or pull_request", ErrMalformedPayload)
	}
	pr := e.GetPullRequest()
	return model.PullRequestEvent{
		EventMeta:      meta(repository(e.GetRepo()), e.GetInstallation(), deliveryID, receivedAt),
		Action:         e.GetAction(),
		Number:         e.GetNumber(),
		HeadSHA:        pr.GetHead().GetSHA(),
		HeadRef:        pr.GetHead().GetRef(),
		MergeCommitSHA: pr.GetMergeCommitSHA(),
		Merged:         pr.GetMerged(),
		Mergeable:      pr.Mergeable,
		MergeableState: pr.GetMergeableState(),
	}, nil
}

func parsePush(e *github.PushEvent, deliveryID string, receivedAt time.Time) (model.WebhookEvent, error) {
	if e.Repo == nil {
		return nil, fmt.Errorf("%w: push without repository", ErrMalformedPayload)
	}
	r := e.GetRepo()
	repo := model.Repository{
		ID:       r.GetID(),
		OwnerID:  r.GetOwner().GetID(),
		Owner:    r.GetOwner().GetLogin(),
		Name:     r.GetName(),
		FullName: r.GetFullName(),
	}
	if repo.Owner == "" {
		// Pushes from some integrations only fill the owner's name.
		repo.Owner = r.GetOwner().GetName()
	}

	ev := model.PushEvent{
		EventMeta: meta(repo, e.GetInstallation(), deliveryID, receivedAt),
		Ref:       e.GetRef(),
		Before:    e.GetBefore(),
		After:     e.GetAfter(),
		Deleted:   e.GetDeleted(),
		Commits:   make([]model.PushedCommit, 0, len(e.Commits)),
	}
	for _, c := range e.Commits {
		ev.Commits = append(ev.Commits, pushedCommit(c))
	}
	// A force push of existing commits lists none but still moves the head.
	if len(ev.Commits) == 0 && e.HeadCommit != nil && !ev.Deleted {
		ev.Commits = append(ev.Commits, pushedCommit(e.HeadCommit))
	}
	return ev, nil
}

func parseStatus(e *github.StatusEvent, deliveryID string, receivedAt time.Time) (model.WebhookEvent, error) {
	if e.Repo == nil || e.GetSHA() == "" {
		return nil, fmt.Errorf("%w: status without repository or sha", ErrMalformedPayload)
	}
	state := model.CommitState(e.GetState())
	if !state.Valid() {
		return nil, fmt.Errorf("%w: status state %q", ErrMalformedPayload, e.GetState())
	}
	return model.StatusEvent{
		EventMeta: meta(repository(e.GetRepo()), e.GetInstallation(), deliveryID, receivedAt),
		SHA:       e.GetSHA(),
		State:     state,
		Context:   e.GetContext(),
		TargetURL: e.GetTargetURL(),
	}, nil
}

func meta(repo model.Repository, inst *github.Installation, deliveryID string, receivedAt time.Time) model.EventMeta {
	return model.EventMeta{
		Repository:      repo,
		InstallationRef: installationRef(inst),
		DeliveryID:      deliveryID,
		ReceivedAt:      receivedAt,
	}
}

func repository(r *github.Repository) model.Repository {
	return model.Repository{
		ID:       r.GetID(),
		OwnerID:  r.GetOwner().GetID(),
		Owner:    r.GetOwner().GetLogin(),
		Name:     r.GetName(),
		FullName: r.GetFullName(),
	}
}

func installationRef(inst *github.Installation) *model.InstallationRef {
	if inst.GetID() == 0 {
		return nil
	}
	return &model.InstallationRef{ID: inst.GetID()}
}

func pushedCommit(c *github.HeadCommit) model.PushedCommit {
	return model.PushedCommit{
		SHA:     c.GetID(),
		Message: c.GetMessage(),
		Author:  c.GetAuthor().GetName(),
	}
}
