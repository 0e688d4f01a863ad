package model

import "time"

// EventKind is the declared webhook event type (the X-GitHub-Event header).
type EventKind string

const (
	EventPullRequest EventKind = "pull_request"
	EventPush        EventKind = "push"
	EventStatus      EventKind = "status"
	EventPing        EventKind = "ping"
)

// Pull request actions the relay reacts to.
const (
	ActionOpened      = "opened"
	ActionReopened    = "reopened"
	ActionSynchronize = "synchronize"
	ActionClosed      = "closed"
)

// Repository identifies the repository an event belongs to.
type Repository struct {
	ID       int64
	OwnerID  int64
	Owner    string // owner login
	Name     string
	FullName string
}

// InstallationRef is the optional installation carried by an event.
type InstallationRef struct {
	ID int64
}

// WebhookEvent is the tagged union of inbound events. The concrete variants are
// PullRequestEvent, PushEvent, StatusEvent and PingEvent. Values are immutable
// once parsed and live for one request.
type WebhookEvent interface {
	Kind() EventKind
	Repo() Repository
	Installation() *InstallationRef
}

// EventMeta holds the fields shared by every variant.
type EventMeta struct {
	Repository      Repository
	InstallationRef *InstallationRef
	DeliveryID      string
	ReceivedAt      time.Time
}

func (m EventMeta) Repo() Repository               { return m.Repository }
func (m EventMeta) Installation() *InstallationRef { return m.InstallationRef }

// PullRequestEvent is a pull_request delivery.
type PullRequestEvent struct {
	EventMeta
	Action         string
	Number         int
	HeadSHA        string
	HeadRef        string
	MergeCommitSHA string
	Merged         bool
	Mergeable      *bool // nil while GitHub is still computing it
	MergeableState string
}

func (PullRequestEvent) Kind() EventKind { return EventPullRequest }

// PushedCommit is one entry of a push event's commit list.
type PushedCommit struct {
	SHA     string
	Message string
	Author  string
}

// PushEvent is a push delivery. Commits are in push order, oldest first.
type PushEvent struct {
	EventMeta
	Ref     string
	Before  string
	After   string
	Deleted bool
	Commits []PushedCommit
}

func (PushEvent) Kind() EventKind { return EventPush }

// Branch returns the branch name of Ref (refs/heads/main -> main).
func (e PushEvent) Branch() string {
	const prefix = "refs/heads/"
	if len(e.Ref) > len(prefix) && e.Ref[:len(prefix)] == prefix {
		return e.Ref[len(prefix):]
	}
	return e.Ref
}

// HeadCommit returns the last commit of the push, if any.
func (e PushEvent) HeadCommit() (PushedCommit, bool) {
	if len(e.Commits) == 0 {
		return PushedCommit{}, false
	}
	return e.Commits[len(e.Commits)-1], true
}

// StatusEvent is a status delivery reported by another integration.
type StatusEvent struct {
	EventMeta
	SHA       string
	State     CommitState
	Context   string
	TargetURL string
}

func (StatusEvent) Kind() EventKind { return EventStatus }

// PingEvent is sent by GitHub when a hook is created.
type PingEvent struct {
	EventMeta
	Zen    string
	HookID int64
}

func (PingEvent) Kind() EventKind { return EventPing }
