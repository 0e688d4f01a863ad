package status

import "errors"

var (
	ErrMissingSHA   = errors.New("status: event carries no commit sha")
	ErrStillRunning = errors.New("status: test batch still running")
)
