package scm

import (
	"context"
	"net/http"

	"status-relay/internal/credential"
	"status-relay/internal/model"
)

// Authorizer supplies authenticated HTTP clients. Implemented by credential.Broker.
type Authorizer interface {
	HTTPClient(ctx context.Context, id credential.Identity) *http.Client
	Invalidate(id credential.Identity)
}

// StatusWriter publishes commit statuses.
type StatusWriter interface {
	CreateStatus(ctx context.Context, id credential.Identity, repo model.Repository, sha string, report model.CommitStatusReport) error
}

// CommitReader reads the commit graph and branch heads of a repository.
type CommitReader interface {
	GetCommit(ctx context.Context, id credential.Identity, repo model.Repository, sha string) (model.CommitNode, error)
	ListBranchTips(ctx context.Context, id credential.Identity, repo model.Repository) (model.BranchTips, error)
}

// Service is the full GitHub surface the relay needs.
type Service interface {
	StatusWriter
	CommitReader
	Commits(id credential.Identity, repo model.Repository) *CommitSource
}
