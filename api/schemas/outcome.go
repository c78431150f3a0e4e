package schemas

import "time"

// OutcomeKind is the terminal classification of an agent run.
type OutcomeKind string

const (
	OutcomeTeeTimesFound    OutcomeKind = "tee_times_found"
	OutcomeBookingConfirmed OutcomeKind = "booking_confirmed"
	OutcomeBookingFailed    OutcomeKind = "booking_failed"
	OutcomeStalled          OutcomeKind = "stalled"
)

// AgentOutcome is what a control-loop run ends with. Observation is always the last
// page state the agent saw, for diagnostics and resumption.
type AgentOutcome struct {
	Kind            OutcomeKind      `json:"kind"`
	TeeTimes        []TeeTimeRecord  `json:"teeTimes,omitempty"`
	ConfirmationURL string           `json:"confirmationUrl,omitempty"`
	Reason          string           `json:"reason,omitempty"`
	RedirectURL     string           `json:"redirectUrl,omitempty"`
	Status          string           `json:"status"`
	Thought         string           `json:"thought"`
	Trace           []StepRecord     `json:"trace,omitempty"`
	Iterations      int              `json:"iterations"`
	Observation     *PageObservation `json:"observation,omitempty"`
}

// StepRecord is one observe/decide/act cycle in the diagnostic trace.
type StepRecord struct {
	Iteration int     `json:"iteration"`
	Action    *Action `json:"action,omitempty"`
	Result    string  `json:"result"`
	ErrorCode string  `json:"errorCode,omitempty"`
	Error     string  `json:"error,omitempty"`
	URL       string  `json:"url,omitempty"`
}

// RunRecord is the audit row written for every finished agent invocation.
type RunRecord struct {
	ID         string      `json:"id"`
	SessionID  string      `json:"sessionId"`
	Flow       string      `json:"flow"`
	Outcome    OutcomeKind `json:"outcome"`
	Iterations int         `json:"iterations"`
	Status     string      `json:"status"`
	FinalURL   string      `json:"finalUrl,omitempty"`
	TeeTimes   int         `json:"teeTimes"`
	Error      string      `json:"error,omitempty"`
	StartedAt  time.Time   `json:"startedAt"`
	FinishedAt time.Time   `json:"finishedAt"`
	// Steps is the diagnostic trace; not loaded by run listings.
	Steps []StepRecord `json:"steps,omitempty"`
}
