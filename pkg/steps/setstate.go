package steps

import (
	"context"

	"github.com/flowrun/flowrun/pkg/errors"
	"github.com/flowrun/flowrun/pkg/flow"
)

// SetState saves a value to the state container.
//
// The output key is user-defined via config, so the step declares no
// outputs; the validator reads the key field directly instead.
type SetState struct {
	flow.Base
}

// NewSetState creates a set_state step. Config keys: key (state key to set),
// value (interpolated).
func NewSetState(cfg flow.Config) (*SetState, error) {
	if cfg.StringOr("key", "") == "" {
		return nil, &errors.ValidationError{
			Field:      "key",
			Message:    "set_state requires a key",
			Suggestion: "add a 'key' field naming the state key to write",
		}
	}
	return &SetState{Base: flow.NewBase(cfg)}, nil
}

func (s *SetState) Type() flow.StepType { return flow.StepSetState }

func (s *SetState) Schema() flow.Schema {
	return flow.Schema{
		{Name: "value", Type: flow.FieldString, Interpolated: true},
	}
}

func (s *SetState) Run(ctx context.Context, st *flow.State, cfg flow.Config) (*flow.StepResult, error) {
	key := cfg.StringOr("key", "")
	value := cfg["value"]

	if err := st.Set(key, value); err != nil {
		return nil, err
	}

	return flow.Success(s.ID(), nil, map[string]any{key: value}), nil
}
