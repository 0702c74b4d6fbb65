package flow

import "context"

// testStep is a configurable step used across the package tests.
type testStep struct {
	Base
	typ     StepType
	ports   []string
	outputs []Output
	schema  Schema
	runFn   func(ctx context.Context, st *State, cfg Config) (*StepResult, error)
}

func newTestStep(typ StepType) *testStep {
	return &testStep{Base: NewBase(nil), typ: typ}
}

func (s *testStep) Type() StepType { return s.typ }

func (s *testStep) Ports() []string {
	if s.ports != nil {
		return s.ports
	}
	return []string{DefaultPort}
}

func (s *testStep) Outputs() []Output { return s.outputs }

func (s *testStep) Schema() Schema { return s.schema }

func (s *testStep) Run(ctx context.Context, st *State, cfg Config) (*StepResult, error) {
	if s.runFn != nil {
		return s.runFn(ctx, st, cfg)
	}
	return Success(s.ID(), nil, nil), nil
}

// newTrigger returns a trigger step that fires its default port.
func newTrigger() *testStep {
	s := newTestStep("test_trigger")
	s.Trigger = true
	return s
}
