package flow

// StateType classifies values held in a state slot.
type StateType string

// State slot types.
const (
	TypeAny     StateType = "any"
	TypeText    StateType = "text"
	TypeNumber  StateType = "number"
	TypeBoolean StateType = "boolean"
	TypeObject  StateType = "object"
	TypeArray   StateType = "array"
)

// JoinMode determines how a step with multiple incoming edges decides
// when to launch.
type JoinMode string

const (
	// JoinNoWait launches the step on every arrival independently (default).
	JoinNoWait JoinMode = "no_wait"
	// JoinAllSuccess waits for all incoming sources and requires every
	// recorded result to be a success.
	JoinAllSuccess JoinMode = "all_success"
	// JoinAllDone waits for all incoming sources regardless of status.
	JoinAllDone JoinMode = "all_done"
	// JoinFirstSuccess launches as soon as any recorded result succeeded.
	JoinFirstSuccess JoinMode = "first_success"
)

// Valid join modes for parsing.
var validJoinModes = map[JoinMode]bool{
	JoinNoWait:       true,
	JoinAllSuccess:   true,
	JoinAllDone:      true,
	JoinFirstSuccess: true,
}

// IsValid checks if a join mode is one of the known tokens.
func (m JoinMode) IsValid() bool {
	return validJoinModes[m]
}

// StepType identifies a step implementation.
type StepType string

// Step type tokens.
const (
	// Triggers (entry points)
	StepTriggerWebhook  StepType = "trigger_webhook"
	StepTriggerSchedule StepType = "trigger_schedule"
	StepTriggerEvent    StepType = "trigger_event"

	// Execution steps
	StepRequest     StepType = "request"
	StepSetState    StepType = "set_state"
	StepConditional StepType = "conditional"
	StepTransform   StepType = "transform"
	StepSubFlow     StepType = "sub_flow"
	StepDelay       StepType = "delay"
	StepSwitch      StepType = "switch"

	// Conversation steps
	StepConversationStart StepType = "conversation_start"
	StepUserMessage       StepType = "user_message"
	StepReply             StepType = "reply"
)

// Status is the result status of a step execution.
type Status string

const (
	// StatusSuccess indicates the step completed normally.
	StatusSuccess Status = "success"
	// StatusError indicates the step failed.
	StatusError Status = "error"
)

// Flow run statuses reported by FlowCompleted.
const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// DefaultPort is the port edges attach to when none is given.
const DefaultPort = "default"

// ErrorPort is the conventional port fired by failing steps that declare it.
const ErrorPort = "error"
