package api

import "fmt"

// RunState is the lifecycle state of one submission.
type RunState string

const (
	RunStateIdle      RunState = "idle"
	RunStateRunning   RunState = "running"
	RunStateSucceeded RunState = "succeeded"
	RunStateFailed    RunState = "failed"
	RunStateTimedOut  RunState = "timed_out"
	RunStateReported  RunState = "reported"
)

// RunStateForStatus maps a finished run's status to its terminal run state.
func RunStateForStatus(s Status) RunState {
	switch s {
	case StatusSuccess:
		return RunStateSucceeded
	case StatusTimeout:
		return RunStateTimedOut
	default:
		return RunStateFailed
	}
}

// ValidateRunTransition checks whether a run state transition is valid.
// Reported is terminal; there are no retries at this layer.
func ValidateRunTransition(from, to RunState) *APIError {
	valid := map[RunState][]RunState{
		RunStateIdle:      {RunStateRunning},
		RunStateRunning:   {RunStateSucceeded, RunStateFailed, RunStateTimedOut},
		RunStateSucceeded: {RunStateReported},
		RunStateFailed:    {RunStateReported},
		RunStateTimedOut:  {RunStateReported},
		RunStateReported:  {}, // terminal
	}

	allowed, exists := valid[from]
	if !exists {
		return NewInvalidRequestError("state",
			fmt.Sprintf("invalid transition from %s to %s", from, to))
	}

	for _, s := range allowed {
		if s == to {
			return nil
		}
	}

	return NewInvalidRequestError("state",
		fmt.Sprintf("invalid transition from %s to %s", from, to))
}
