package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"status-relay/internal/model"
)

// CommitSource fetches a single commit with its parents.
type CommitSource interface {
	GetCommit(ctx context.Context, sha string) (model.CommitNode, error)
}

// Config bounds a search. Zero values mean unbounded.
type Config struct {
	MaxDuration time.Duration
	MaxSteps    int
}

// Resolution is the outcome of a search. Not finding a branch is not an error.
type Resolution struct {
	Branch    string
	SHA       string // tip that matched
	Found     bool
	Exhausted bool // budget ran out before the history did
	Steps     int  // commits fetched
}

// ErrResolution is matched by every *ResolutionError.
var ErrResolution = errors.New("graph: resolution failed")

// ResolutionError is a fetch failure that aborted the search.
type ResolutionError struct {
	SHA string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("graph: fetching commit %s: %v", e.SHA, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

func (e *ResolutionError) Is(target error) bool { return target == ErrResolution }
