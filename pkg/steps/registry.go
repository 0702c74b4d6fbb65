// Package steps provides the built-in step implementations for flowrun
// flows: triggers, HTTP requests, state writes, branching, transforms and
// conversation steps.
package steps

import (
	"fmt"
	"sort"

	"github.com/flowrun/flowrun/pkg/flow"
)

// Factory constructs a step from its raw configuration.
type Factory func(cfg flow.Config) (flow.Step, error)

// Registry maps step type tokens to factories. It satisfies flow.Registry
// so flow definitions can be built against it.
type Registry struct {
	factories map[flow.StepType]Factory
}

// NewRegistry creates a registry with all built-in step types registered.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[flow.StepType]Factory)}

	// Triggers
	r.Register(flow.StepTriggerWebhook, func(cfg flow.Config) (flow.Step, error) {
		return NewWebhookTrigger(cfg), nil
	})
	r.Register(flow.StepTriggerSchedule, func(cfg flow.Config) (flow.Step, error) {
		return NewScheduleTrigger(cfg), nil
	})
	r.Register(flow.StepTriggerEvent, func(cfg flow.Config) (flow.Step, error) {
		return NewEventTrigger(cfg), nil
	})

	// Execution steps
	r.Register(flow.StepDelay, func(cfg flow.Config) (flow.Step, error) {
		return NewDelay(cfg), nil
	})
	r.Register(flow.StepRequest, func(cfg flow.Config) (flow.Step, error) {
		return NewRequest(cfg)
	})
	r.Register(flow.StepSetState, func(cfg flow.Config) (flow.Step, error) {
		return NewSetState(cfg)
	})
	r.Register(flow.StepConditional, func(cfg flow.Config) (flow.Step, error) {
		return NewConditional(cfg)
	})
	r.Register(flow.StepSwitch, func(cfg flow.Config) (flow.Step, error) {
		return NewSwitch(cfg), nil
	})
	r.Register(flow.StepTransform, func(cfg flow.Config) (flow.Step, error) {
		return NewTransform(cfg)
	})
	r.Register(flow.StepReply, func(cfg flow.Config) (flow.Step, error) {
		return NewReply(cfg), nil
	})

	// Conversation steps
	r.Register(flow.StepConversationStart, func(cfg flow.Config) (flow.Step, error) {
		return NewConversationStart(cfg), nil
	})
	r.Register(flow.StepUserMessage, func(cfg flow.Config) (flow.Step, error) {
		return NewUserMessage(cfg), nil
	})

	return r
}

// Register adds or replaces a factory for a step type.
func (r *Registry) Register(t flow.StepType, f Factory) {
	r.factories[t] = f
}

// New constructs a step by type token.
func (r *Registry) New(t flow.StepType, cfg flow.Config) (flow.Step, error) {
	f, ok := r.factories[t]
	if !ok {
		return nil, fmt.Errorf("unknown step type: %s", t)
	}
	return f(cfg)
}

// Types returns the registered type tokens in sorted order.
func (r *Registry) Types() []flow.StepType {
	types := make([]flow.StepType, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
