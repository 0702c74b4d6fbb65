package flow

import (
	"time"

	"github.com/google/uuid"
)

// Event is emitted on the run's event stream. For every run exactly one
// FlowStarted is emitted first and exactly one FlowCompleted last; each
// launched step contributes a StepStarted followed by a StepCompleted.
// Across different steps no ordering is guaranteed.
type Event interface {
	// When returns the event's wall-clock UTC timestamp.
	When() time.Time
}

// FlowStarted is emitted once when flow execution begins.
type FlowStarted struct {
	RunID     uuid.UUID `json:"run_id"`
	FlowName  string    `json:"flow_name"`
	Timestamp time.Time `json:"timestamp"`
}

// When returns the event timestamp.
func (e FlowStarted) When() time.Time { return e.Timestamp }

// StepStarted is emitted at the instant a step is launched.
type StepStarted struct {
	RunID     uuid.UUID `json:"run_id"`
	StepID    uuid.UUID `json:"step_id"`
	StepType  StepType  `json:"step_type"`
	Timestamp time.Time `json:"timestamp"`
}

// When returns the event timestamp.
func (e StepStarted) When() time.Time { return e.Timestamp }

// StepCompleted is emitted exactly once per completed step.
//
// StateSnapshot is a shallow copy of the state values taken after the step
// returned but before routing; nested containers may keep mutating if later
// steps write through shared references.
type StepCompleted struct {
	RunID         uuid.UUID      `json:"run_id"`
	StepID        uuid.UUID      `json:"step_id"`
	Result        *StepResult    `json:"result"`
	DurationMS    float64        `json:"duration_ms"`
	StateSnapshot map[string]any `json:"state_snapshot,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// When returns the event timestamp.
func (e StepCompleted) When() time.Time { return e.Timestamp }

// FlowCompleted is emitted once at the end of the run. Status is
// "succeeded" iff every recorded step result succeeded.
type FlowCompleted struct {
	RunID     uuid.UUID `json:"run_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// When returns the event timestamp.
func (e FlowCompleted) When() time.Time { return e.Timestamp }

func now() time.Time { return time.Now().UTC() }
