package flow

import (
	"context"

	"github.com/google/uuid"
)

// Output declares a state key a step promises to produce. Declarations feed
// the validator and UI tooling; the runner never enforces them.
type Output struct {
	Key         string    `json:"key" yaml:"key"`
	Type        StateType `json:"type" yaml:"type"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// StepError carries error information from a failed step execution.
type StepError struct {
	Message string         `json:"message"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// StepResult is the outcome of one step execution.
type StepResult struct {
	// StepID is the ID of the executed step.
	StepID uuid.UUID `json:"step_id"`

	// Status is success or error.
	Status Status `json:"status"`

	// FiredPorts lists the output ports to route along. Defaults to
	// ["default"].
	FiredPorts []string `json:"fired_ports"`

	// ContinueWithoutWaiting suppresses routing to successors
	// (fire-and-forget).
	ContinueWithoutWaiting bool `json:"continue_without_waiting"`

	// OutputData is an optional map of values the step produced.
	OutputData map[string]any `json:"output_data,omitempty"`

	// Err holds failure details when Status is error.
	Err *StepError `json:"error,omitempty"`
}

// Success creates a successful result. An empty ports list fires "default".
func Success(stepID uuid.UUID, ports []string, output map[string]any) *StepResult {
	if len(ports) == 0 {
		ports = []string{DefaultPort}
	}
	return &StepResult{
		StepID:     stepID,
		Status:     StatusSuccess,
		FiredPorts: ports,
		OutputData: output,
	}
}

// Failure creates a failed result. An empty ports list fires "default";
// steps that declare an error port pass it explicitly, and the runner's
// execution-error path derives it from the step's live ports.
func Failure(stepID uuid.UUID, message, code string, ports []string) *StepResult {
	if len(ports) == 0 {
		ports = []string{DefaultPort}
	}
	return &StepResult{
		StepID:     stepID,
		Status:     StatusError,
		FiredPorts: ports,
		Err:        &StepError{Message: message, Code: code},
	}
}

// Step is a node in a flow.
//
// Ports must report the live port list: steps with dynamic ports (switch)
// recompute it from config on every call, and both the runner and the
// validator read it at the moment they need it. Run receives the shared
// state and a resolved copy of the step's configuration with all {{path}}
// references substituted; it is the only authoritative producer of results.
type Step interface {
	ID() uuid.UUID
	Type() StepType
	JoinMode() JoinMode
	IsTrigger() bool
	Ports() []string
	Outputs() []Output
	Config() Config
	Schema() Schema
	Run(ctx context.Context, st *State, cfg Config) (*StepResult, error)
}

// Base carries the identity and routing attributes common to all steps.
// Step implementations embed it and override what they need.
type Base struct {
	StepID  uuid.UUID
	Mode    JoinMode
	Trigger bool
	RawCfg  Config
}

// NewBase creates a Base with a fresh ID and the default join mode.
func NewBase(cfg Config) Base {
	if cfg == nil {
		cfg = Config{}
	}
	return Base{StepID: uuid.New(), Mode: JoinNoWait, RawCfg: cfg}
}

// ID returns the step's stable identity.
func (b *Base) ID() uuid.UUID { return b.StepID }

// JoinMode returns how the step joins converging edges.
func (b *Base) JoinMode() JoinMode { return b.Mode }

// SetJoinMode overrides the step's join mode. Used by definition loading.
func (b *Base) SetJoinMode(m JoinMode) { b.Mode = m }

// IsTrigger reports whether the step is a flow entry point.
func (b *Base) IsTrigger() bool { return b.Trigger }

// Ports returns the static default port list. Steps with other or dynamic
// ports override this.
func (b *Base) Ports() []string { return []string{DefaultPort} }

// Outputs returns no declared outputs by default.
func (b *Base) Outputs() []Output { return nil }

// Config returns the step's raw (unresolved) configuration.
func (b *Base) Config() Config { return b.RawCfg }

// Schema returns an empty schema by default.
func (b *Base) Schema() Schema { return nil }
