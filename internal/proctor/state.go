package proctor

// State is the exam-session lifecycle visible to the candidate.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// Phase is the monitoring subsystem's own lifecycle. Transitions only move forward.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSampling   Phase = "sampling"
	PhaseFinalizing Phase = "finalizing"
	PhaseDone       Phase = "done"
)
