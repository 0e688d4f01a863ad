package usecase_test

import (
	"context"
	"fmt"
	"sync"

	"status-relay/internal/credential"
	"status-relay/internal/model"
	"status-relay/internal/scm"
	"status-relay/pkg/batches"
)

// Mock logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, arg ...any)                    {}
func (m *mockLogger) Debugf(ctx context.Context, template string, arg ...any)  {}
func (m *mockLogger) Info(ctx context.Context, arg ...any)                     {}
func (m *mockLogger) Infof(ctx context.Context, template string, arg ...any)   {}
func (m *mockLogger) Warn(ctx context.Context, arg ...any)                     {}
func (m *mockLogger) Warnf(ctx context.Context, template string, arg ...any)   {}
func (m *mockLogger) Error(ctx context.Context, arg ...any)                    {}
func (m *mockLogger) Errorf(ctx context.Context, template string, arg ...any)  {}
func (m *mockLogger) Fatal(ctx context.Context, arg ...any)                    {}
func (m *mockLogger) Fatalf(ctx context.Context, template string, arg ...any)  {}
func (m *mockLogger) DPanic(ctx context.Context, arg ...any)                   {}
func (m *mockLogger) DPanicf(ctx context.Context, template string, arg ...any) {}
func (m *mockLogger) Panic(ctx context.Context, arg ...any)                    {}
func (m *mockLogger) Panicf(ctx context.Context, template string, arg ...any)  {}

var (
	testRepo = model.Repository{ID: 101, OwnerID: 7, Owner: "acme", Name: "web", FullName: "acme/web"}
	testID   = credential.Identity{Mode: credential.ModeApp, InstallationID: 55}
)

type fakeBroker struct {
	id  credential.Identity
	err error
}

func (b *fakeBroker) Resolve(ctx context.Context, ev model.WebhookEvent) (credential.Identity, error) {
	return b.id, b.err
}

type statusWrite struct {
	Repo   model.Repository
	SHA    string
	Report model.CommitStatusReport
}

// recordingGitHub records status writes and serves a fixed commit graph.
type recordingGitHub struct {
	mu       sync.Mutex
	writes   []statusWrite
	writeErr error

	tips    model.BranchTips
	tipsErr error
	parents map[string][]string
}

func (g *recordingGitHub) CreateStatus(ctx context.Context, id credential.Identity, repo model.Repository, sha string, report model.CommitStatusReport) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.writeErr != nil {
		return g.writeErr
	}
	g.writes = append(g.writes, statusWrite{Repo: repo, SHA: sha, Report: report})
	return nil
}

func (g *recordingGitHub) GetCommit(ctx context.Context, id credential.Identity, repo model.Repository, sha string) (model.CommitNode, error) {
	p, ok := g.parents[sha]
	if !ok {
		return model.CommitNode{}, fmt.Errorf("%w: %s", scm.ErrCommitFetch, sha)
	}
	return model.CommitNode{SHA: sha, Parents: p}, nil
}

func (g *recordingGitHub) ListBranchTips(ctx context.Context, id credential.Identity, repo model.Repository) (model.BranchTips, error) {
	return g.tips, g.tipsErr
}

func (g *recordingGitHub) Commits(id credential.Identity, repo model.Repository) *scm.CommitSource {
	return scm.NewCommitSource(g, id, repo)
}

func (g *recordingGitHub) Writes() []statusWrite {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]statusWrite(nil), g.writes...)
}

// fakeBatches answers lookups through optional funcs; nil means "no batch".
type fakeBatches struct {
	idFunc      func(ref string) (string, bool, error)
	summaryFunc func(id string) (batches.BatchSummary, bool, error)
}

func (f *fakeBatches) GetBatchID(ctx context.Context, ref string) (string, bool, error) {
	if f.idFunc == nil {
		return "", false, nil
	}
	return f.idFunc(ref)
}

func (f *fakeBatches) GetBatchSummary(ctx context.Context, id string) (batches.BatchSummary, bool, error) {
	if f.summaryFunc == nil {
		return batches.BatchSummary{}, false, nil
	}
	return f.summaryFunc(id)
}

func batchFor(id string) func(string) (string, bool, error) {
	return func(string) (string, bool, error) { return id, true, nil }
}

func summaryOf(sum batches.BatchSummary) func(string) (batches.BatchSummary, bool, error) {
	return func(string) (batches.BatchSummary, bool, error) { return sum, true, nil }
}
