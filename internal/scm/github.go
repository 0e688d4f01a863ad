package scm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v68/github"

	"status-relay/internal/credential"
	"status-relay/internal/metrics"
	"status-relay/internal/model"
)

func (s *implService) client(ctx context.Context, id credential.Identity) (*github.Client, error) {
	return credential.NewGitHubClient(s.baseURL, s.auth.HTTPClient(ctx, id))
}

// CreateStatus writes report against sha. A 401 drops the cached token and
// retries once with a fresh one.
func (s *implService) CreateStatus(ctx context.Context, id credential.Identity, repo model.Repository, sha string, report model.CommitStatusReport) error {
	status := &github.RepoStatus{
		State:       github.Ptr(string(report.State)),
		Description: github.Ptr(report.Description),
		Context:     github.Ptr(report.Context),
	}
	if report.TargetURL != "" {
		status.TargetURL = github.Ptr(report.TargetURL)
	}

	err := s.createStatus(ctx, id, repo, sha, status)
	if isUnauthorized(err) {
		s.l.Warnf(ctx, "internal.scm.CreateStatus: %s@%s: token rejected, retrying with a fresh one", repo.FullName, sha)
		s.auth.Invalidate(id)
		err = s.createStatus(ctx, id, repo, sha, status)
	}
	metrics.StatusWrites.WithLabelValues(string(report.State), metrics.Result(err)).Inc()
	if err != nil {
		return err
	}

	s.l.Infof(ctx, "internal.scm.CreateStatus: %s@%s state=%s description=%q", repo.FullName, sha, report.State, report.Description)
	return nil
}

func (s *implService) createStatus(ctx context.Context, id credential.Identity, repo model.Repository, sha string, status *github.RepoStatus) error {
	gh, err := s.client(ctx, id)
	if err != nil {
		return err
	}
	_, _, err = gh.Repositories.CreateStatus(ctx, repo.Owner, repo.Name, sha, status)
	if err != nil {
		return wrap(ErrStatusWrite, err)
	}
	return nil
}

// GetCommit returns the commit node for sha. Nodes are immutable so they are cached.
func (s *implService) GetCommit(ctx context.Context, id credential.Identity, repo model.Repository, sha string) (model.CommitNode, error) {
	key := repo.FullName + "@" + sha
	if node, ok := s.commits.Get(key); ok {
		return node, nil
	}

	gh, err := s.client(ctx, id)
	if err != nil {
		return model.CommitNode{}, err
	}
	commit, _, err := gh.Git.GetCommit(ctx, repo.Owner, repo.Name, sha)
	if err != nil {
		return model.CommitNode{}, wrap(ErrCommitFetch, err)
	}

	node := model.CommitNode{SHA: commit.GetSHA(), Parents: make([]string, 0, len(commit.Parents))}
	if node.SHA == "" {
		node.SHA = sha
	}
	for _, p := range commit.Parents {
		node.Parents = append(node.Parents, p.GetSHA())
	}
	s.commits.Add(key, node)
	return node, nil
}

// ListBranchTips lists every branch head. When several branches share a
// tip, the first one listed is kept.
func (s *implService) ListBranchTips(ctx context.Context, id credential.Identity, repo model.Repository) (model.BranchTips, error) {
	gh, err := s.client(ctx, id)
	if err != nil {
		return nil, err
	}

	tips := make(model.BranchTips)
	opts := &github.BranchListOptions{ListOptions: github.ListOptions{PerPage: 100}}
	for {
		branches, resp, err := gh.Repositories.ListBranches(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, wrap(ErrBranchList, err)
		}
		for _, b := range branches {
			sha := b.GetCommit().GetSHA()
			if sha == "" {
				continue
			}
			if _, dup := tips[sha]; !dup {
				tips[sha] = b.GetName()
			}
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return tips, nil
}

// Commits binds the reader to one identity and repository.
func (s *implService) Commits(id credential.Identity, repo model.Repository) *CommitSource {
	return NewCommitSource(s, id, repo)
}

// NewCommitSource binds reader to one identity and repository.
func NewCommitSource(reader CommitReader, id credential.Identity, repo model.Repository) *CommitSource {
	return &CommitSource{reader: reader, id: id, repo: repo}
}

// CommitSource fetches commit nodes of one repository.
type CommitSource struct {
	reader CommitReader
	id     credential.Identity
	repo   model.Repository
}

func (c *CommitSource) GetCommit(ctx context.Context, sha string) (model.CommitNode, error) {
	return c.reader.GetCommit(ctx, c.id, c.repo, sha)
}

func wrap(sentinel, err error) error {
	return fmt.Errorf("%w: %w", sentinel, err)
}

// isUnauthorized reports a 401 from the API itself, as opposed to a failed token exchange.
func isUnauthorized(err error) bool {
	if err == nil || credential.IsUpstreamAuth(err) {
		return false
	}
	var ghErr *github.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusUnauthorized
}
