package batches

import (
	"strconv"
	"strings"
	"time"
)

// Config configures the batch service client.
type Config struct {
	BaseURL string
	// Credentials is a raw query fragment appended to every request, e.g. "apiKey=xyz".
	Credentials          string
	Timeout              time.Duration
	MaxRetries           uint64
	RetryInitialInterval time.Duration
}

// BatchSummary aggregates the outcome counts of one test batch.
type BatchSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
	Revision int    `json:"revision"`
	RowKey   string `json:"rowKey"`

	IsCandidate bool `json:"isCandidate"`

	RunningCount      int `json:"runningCount"`
	AbortedCount      int `json:"abortedCount"`
	DifferentCount    int `json:"differentCount"`
	NewCount          int `json:"newCount"`
	DiffResolvedCount int `json:"diffResolvedCount"`
	CompletedCount    int `json:"completedCount"`
	PassedCount       int `json:"passedCount"`
	FailedCount       int `json:"failedCount"`
	UnresolvedCount   int `json:"unresolvedCount"`
	ChangedCount      int `json:"changedCount"`
	StarredCount      int `json:"starredCount"`
	NewMismatchCount  int `json:"newMismatchCount"`
	NewRemarkCount    int `json:"newRemarkCount"`
}

// Passed reports whether nothing failed and nothing is left unresolved.
func (b BatchSummary) Passed() bool {
	return b.FailedCount == 0 && b.UnresolvedCount == 0
}

// Running reports whether tests of the batch are still executing.
func (b BatchSummary) Running() bool {
	return b.RunningCount > 0
}

// Breakdown renders the non-zero counts, e.g. "5 passed, 2 failed, 1 unresolved".
func (b BatchSummary) Breakdown() string {
	parts := make([]string, 0, 4)
	for _, c := range []struct {
		n     int
		label string
	}{
		{b.RunningCount, "running"},
		{b.PassedCount, "passed"},
		{b.FailedCount, "failed"},
		{b.UnresolvedCount, "unresolved"},
	} {
		if c.n > 0 {
			parts = append(parts, strconv.Itoa(c.n)+" "+c.label)
		}
	}
	return strings.Join(parts, ", ")
}

type batchIDResponse struct {
	BatchID string `json:"batchId"`
}

type batchListResponse struct {
	Batches []BatchSummary `json:"batches"`
}
