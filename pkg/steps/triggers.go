package steps

import (
	"context"

	"github.com/flowrun/flowrun/pkg/flow"
)

// WebhookTrigger starts a flow when an HTTP request is received.
//
// The webhook handler seeds request data into state before the run starts:
// body, headers, method and query. The trigger itself only fires its
// default port.
type WebhookTrigger struct {
	flow.Base
}

// NewWebhookTrigger creates a webhook trigger. Config keys: method (one of
// GET, POST, PUT, DELETE; default POST), path (webhook endpoint path).
func NewWebhookTrigger(cfg flow.Config) *WebhookTrigger {
	b := flow.NewBase(cfg)
	b.Trigger = true
	return &WebhookTrigger{Base: b}
}

func (s *WebhookTrigger) Type() flow.StepType { return flow.StepTriggerWebhook }

func (s *WebhookTrigger) Outputs() []flow.Output {
	return []flow.Output{
		{Key: "body", Type: flow.TypeAny, Description: "Request body"},
		{Key: "headers", Type: flow.TypeObject, Description: "Request headers"},
		{Key: "method", Type: flow.TypeText, Description: "HTTP method"},
		{Key: "query", Type: flow.TypeObject, Description: "Query parameters"},
	}
}

func (s *WebhookTrigger) Run(ctx context.Context, st *flow.State, cfg flow.Config) (*flow.StepResult, error) {
	// Request data was seeded into state before the run.
	return flow.Success(s.ID(), nil, nil), nil
}

// ScheduleTrigger starts a flow on a cron schedule.
//
// The scheduler seeds scheduled_time and actual_time into state before the
// run starts.
type ScheduleTrigger struct {
	flow.Base
}

// NewScheduleTrigger creates a schedule trigger. Config keys: cron (cron
// expression), timezone (default UTC).
func NewScheduleTrigger(cfg flow.Config) *ScheduleTrigger {
	b := flow.NewBase(cfg)
	b.Trigger = true
	return &ScheduleTrigger{Base: b}
}

func (s *ScheduleTrigger) Type() flow.StepType { return flow.StepTriggerSchedule }

func (s *ScheduleTrigger) Outputs() []flow.Output {
	return []flow.Output{
		{Key: "scheduled_time", Type: flow.TypeText, Description: "Scheduled execution time (ISO)"},
		{Key: "actual_time", Type: flow.TypeText, Description: "Actual execution time (ISO)"},
	}
}

func (s *ScheduleTrigger) Run(ctx context.Context, st *flow.State, cfg flow.Config) (*flow.StepResult, error) {
	return flow.Success(s.ID(), nil, nil), nil
}

// EventTrigger starts a flow when a named event fires.
//
// The event dispatcher seeds event_name, event_data and event_timestamp into
// state before the run starts.
type EventTrigger struct {
	flow.Base
}

// NewEventTrigger creates an event trigger. Config keys: event_name (name of
// the event to listen for).
func NewEventTrigger(cfg flow.Config) *EventTrigger {
	b := flow.NewBase(cfg)
	b.Trigger = true
	return &EventTrigger{Base: b}
}

func (s *EventTrigger) Type() flow.StepType { return flow.StepTriggerEvent }

func (s *EventTrigger) Outputs() []flow.Output {
	return []flow.Output{
		{Key: "event_name", Type: flow.TypeText, Description: "Name of the event"},
		{Key: "event_data", Type: flow.TypeAny, Description: "Event payload data"},
		{Key: "event_timestamp", Type: flow.TypeText, Description: "Event timestamp (ISO)"},
	}
}

func (s *EventTrigger) Run(ctx context.Context, st *flow.State, cfg flow.Config) (*flow.StepResult, error) {
	return flow.Success(s.ID(), nil, nil), nil
}
