package webhook

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"status-relay/internal/model"
)

const repoJSON = `"repository":{"id":101,"name":"web","full_name":"acme/web","owner":{"id":7,"login":"acme"}}`

var (
	parsedRepo = model.Repository{ID: 101, OwnerID: 7, Owner: "acme", Name: "web", FullName: "acme/web"}
	receivedAt = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
)

func TestParse(t *testing.T) {
	notMergeable := false

	tests := []struct {
		name  string
		event string
		body  string
		want  model.WebhookEvent
	}{
		{
			name:  "pull request",
			event: "pull_request",
			body: `{"action":"closed","number":17,"installation":{"id":55},` + repoJSON + `,
				"pull_request":{"head":{"sha":"abc","ref":"feature"},"merged":true,"mergeable":false,
				"mergeable_state":"dirty","merge_commit_sha":"m1"}}`,
			want: model.PullRequestEvent{
				EventMeta:      model.EventMeta{Repository: parsedRepo, InstallationRef: &model.InstallationRef{ID: 55}, DeliveryID: "d1", ReceivedAt: receivedAt},
				Action:         "closed",
				Number:         17,
				HeadSHA:        "abc",
				HeadRef:        "feature",
				MergeCommitSHA: "m1",
				Merged:         true,
				Mergeable:      &notMergeable,
				MergeableState: "dirty",
			},
		},
		{
			name:  "status",
			event: "status",
			body:  `{"sha":"def","state":"success","context":"ci/build","target_url":"https://ci/1",` + repoJSON + `}`,
			want: model.StatusEvent{
				EventMeta: model.EventMeta{Repository: parsedRepo, DeliveryID: "d1", ReceivedAt: receivedAt},
				SHA:       "def",
				State:     model.StateSuccess,
				Context:   "ci/build",
				TargetURL: "https://ci/1",
			},
		},
		{
			name:  "push keeps commit order",
			event: "push",
			body: `{"ref":"refs/heads/feature","before":"b0","after":"c2",` + repoJSON + `,
				"commits":[{"id":"c1","message":"one","author":{"name":"Ana"}},{"id":"c2","message":"two","author":{"name":"Bo"}}]}`,
			want: model.PushEvent{
				EventMeta: model.EventMeta{Repository: parsedRepo, DeliveryID: "d1", ReceivedAt: receivedAt},
				Ref:       "refs/heads/feature",
				Before:    "b0",
				After:     "c2",
				Commits:   []model.PushedCommit{{SHA: "c1", Message: "one", Author: "Ana"}, {SHA: "c2", Message: "two", Author: "Bo"}},
			},
		},
		{
			name:  "force push falls back to head commit",
			event: "push",
			body:  `{"ref":"refs/heads/main","after":"c9","commits":[],"head_commit":{"id":"c9","message":"m"},` + repoJSON + `}`,
			want: model.PushEvent{
				EventMeta: model.EventMeta{Repository: parsedRepo, DeliveryID: "d1", ReceivedAt: receivedAt},
				Ref:       "refs/heads/main",
				After:     "c9",
				Commits:   []model.PushedCommit{{SHA: "c9", Message: "m"}},
			},
		},
		{
			name:  "ping",
			event: "ping",
			body:  `{"zen":"Keep it logically awesome.","hook_id":42}`,
			want: model.PingEvent{
				EventMeta: model.EventMeta{DeliveryID: "d1", ReceivedAt: receivedAt},
				Zen:       "Keep it logically awesome.",
				HookID:    42,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.event, []byte(tt.body), "d1", receivedAt)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("event mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		event   string
		body    string
		wantErr error
	}{
		{"unknown type", "issues", `{"action":"opened"}`, ErrUnknownEvent},
		{"empty type", "", `{}`, ErrUnknownEvent},
		{"invalid json", "status", `{"sha":`, ErrMalformedPayload},
		{"status without sha", "status", `{"state":"success",` + repoJSON + `}`, ErrMalformedPayload},
		{"status with unknown state", "status", `{"sha":"a","state":"queued",` + repoJSON + `}`, ErrMalformedPayload},
		{"pull request without repository", "pull_request", `{"action":"opened","pull_request":{}}`, ErrMalformedPayload},
		{"push without repository", "push", `{"ref":"refs/heads/main"}`, ErrMalformedPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.event, []byte(tt.body), "", receivedAt)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
