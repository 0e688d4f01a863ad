package status

import (
	"time"

	"status-relay/internal/model"
	"status-relay/pkg/batches"
)

// Disposition says what a report call did.
type Disposition int

const (
	// DispositionSkipped means the event needed no status.
	DispositionSkipped Disposition = iota
	// DispositionWritten means a status was published.
	DispositionWritten
	// DispositionScheduled means a status was published and a follow-up write is pending.
	DispositionScheduled
)

func (d Disposition) String() string {
	switch d {
	case DispositionWritten:
		return "written"
	case DispositionScheduled:
		return "scheduled"
	}
	return "skipped"
}

// Result describes the outcome of one report call.
type Result struct {
	Disposition Disposition
	SHA         string
	Report      model.CommitStatusReport
	Reason      string // why nothing was written
}

// Config configures the reporter.
type Config struct {
	// Context labels this integration's statuses.
	Context string
	// CIPrefixes select which incoming status contexts are mirrored.
	CIPrefixes []string
	// AppURL is the batch service UI root used for target URLs.
	AppURL string

	AwaitResults bool
	MaxWait      time.Duration
	PollInterval time.Duration
	// BatchGrace is how long a pull request poll waits for a batch to be
	// registered before settling on "No tests available". Capped at MaxWait/2.
	BatchGrace time.Duration
}

// Status descriptions.
const (
	DescRunning      = "The test is running"
	DescRunningOn    = "The test is running against %s"
	DescNoTests      = "No tests available"
	DescAllPassed    = "All tests passed"
	DescError        = "An error has occurred"
	DescMergeFailed  = "Test branch failed to merge"
	DescWaitTimedOut = "Timed out waiting for test results"
)

const (
	DefaultContext      = "tests/visual"
	DefaultMaxWait      = 10 * time.Minute
	DefaultPollInterval = 5 * time.Second
	DefaultBatchGrace   = time.Minute
)

// DefaultCIPrefixes are the contexts mirrored when none are configured.
var DefaultCIPrefixes = []string{"continuous-integration/", "ci/"}

// MapSummary maps a batch summary onto a terminal commit state.
func MapSummary(sum batches.BatchSummary) (model.CommitState, string) {
	if sum.Passed() {
		return model.StateSuccess, DescAllPassed
	}
	return model.StateFailure, sum.Breakdown()
}
