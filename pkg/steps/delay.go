package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/flowrun/flowrun/pkg/flow"
)

// Delay bounds in seconds.
const (
	delayDefaultSeconds = 1.0
	delayMaxSeconds     = 300.0
)

// Delay pauses flow execution for a configured number of seconds.
type Delay struct {
	flow.Base
}

// NewDelay creates a delay step. Config keys: seconds (0 to 300, default 1,
// interpolated).
func NewDelay(cfg flow.Config) *Delay {
	return &Delay{Base: flow.NewBase(cfg)}
}

func (s *Delay) Type() flow.StepType { return flow.StepDelay }

func (s *Delay) Schema() flow.Schema {
	return flow.Schema{
		{Name: "seconds", Type: flow.FieldFloat, Interpolated: true},
	}
}

func (s *Delay) Outputs() []flow.Output {
	return []flow.Output{
		{Key: "delayed_seconds", Type: flow.TypeNumber, Description: "Actual delay duration"},
	}
}

func (s *Delay) Run(ctx context.Context, st *flow.State, cfg flow.Config) (*flow.StepResult, error) {
	seconds := cfg.FloatOr("seconds", delayDefaultSeconds)
	if seconds < 0 || seconds > delayMaxSeconds {
		return flow.Failure(s.ID(),
			fmt.Sprintf("seconds must be between 0 and %v, got %v", delayMaxSeconds, seconds),
			"INVALID_CONFIG", nil), nil
	}

	timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := st.Set("delayed_seconds", seconds); err != nil {
		return nil, err
	}

	return flow.Success(s.ID(), nil, map[string]any{"delayed_seconds": seconds}), nil
}
