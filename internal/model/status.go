package model

// CommitState is the state of a commit status.
type CommitState string

const (
	StatePending CommitState = "pending"
	StateSuccess CommitState = "success"
	StateFailure CommitState = "failure"
	StateError   CommitState = "error"
)

// IsTerminal reports whether s ends the pending -> terminal state machine.
func (s CommitState) IsTerminal() bool {
	return s == StateSuccess || s == StateFailure || s == StateError
}

// Valid reports whether s is one of the four known states.
func (s CommitState) Valid() bool {
	return s == StatePending || s.IsTerminal()
}

// CommitStatusReport is what gets published against a commit. Write-only.
type CommitStatusReport struct {
	State       CommitState
	Description string
	TargetURL   string
	Context     string
}
