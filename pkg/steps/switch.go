package steps

import (
	"context"

	"github.com/flowrun/flowrun/pkg/flow"
)

// ElsePort is the fallback port fired when no switch case matches.
const ElsePort = "else"

// Switch routes flow based on matching a value against configured cases.
//
// The step has dynamic ports: the output port list is derived from the
// configured case names plus an "else" port, recomputed from the raw config
// on every call so edits to cases are reflected immediately.
type Switch struct {
	flow.Base
}

// NewSwitch creates a switch step. Config keys: value (interpolated, the
// value to switch on), cases (list of {name, value} with value
// interpolated).
func NewSwitch(cfg flow.Config) *Switch {
	return &Switch{Base: flow.NewBase(cfg)}
}

func (s *Switch) Type() flow.StepType { return flow.StepSwitch }

// Ports derives the port list from the configured cases.
func (s *Switch) Ports() []string {
	cases := s.RawCfg.ListOr("cases", nil)
	ports := make([]string, 0, len(cases)+1)
	for _, c := range cases {
		if m, ok := c.(map[string]any); ok {
			if name, ok := m["name"].(string); ok && name != "" {
				ports = append(ports, name)
			}
		}
	}
	return append(ports, ElsePort)
}

func (s *Switch) Schema() flow.Schema {
	return flow.Schema{
		{Name: "value", Type: flow.FieldString, Interpolated: true},
		{Name: "cases", Fields: flow.Schema{
			{Name: "value", Type: flow.FieldString, Interpolated: true},
		}},
	}
}

func (s *Switch) Run(ctx context.Context, st *flow.State, cfg flow.Config) (*flow.StepResult, error) {
	value := flow.Stringify(cfg["value"])

	for _, c := range cfg.ListOr("cases", nil) {
		m, ok := c.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		if name == "" {
			continue
		}
		if value == flow.Stringify(m["value"]) {
			return flow.Success(s.ID(), []string{name}, map[string]any{"matched_case": name}), nil
		}
	}

	return flow.Success(s.ID(), []string{ElsePort}, map[string]any{"matched_case": nil}), nil
}
