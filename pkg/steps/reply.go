package steps

import (
	"context"

	"github.com/flowrun/flowrun/pkg/flow"
)

// Reply generates a reply message from a template.
type Reply struct {
	flow.Base
}

// NewReply creates a reply step. Config keys: template (interpolated reply
// text).
func NewReply(cfg flow.Config) *Reply {
	return &Reply{Base: flow.NewBase(cfg)}
}

func (s *Reply) Type() flow.StepType { return flow.StepReply }

func (s *Reply) Schema() flow.Schema {
	return flow.Schema{
		{Name: "template", Type: flow.FieldString, Interpolated: true},
	}
}

func (s *Reply) Outputs() []flow.Output {
	return []flow.Output{
		{Key: "reply", Type: flow.TypeText, Description: "Generated reply"},
	}
}

func (s *Reply) Run(ctx context.Context, st *flow.State, cfg flow.Config) (*flow.StepResult, error) {
	reply := cfg.StringOr("template", "")

	if err := st.Set("reply", reply); err != nil {
		return nil, err
	}

	return flow.Success(s.ID(), nil, map[string]any{"reply": reply}), nil
}
