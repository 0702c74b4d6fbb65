package steps

import (
	"context"
	"strconv"
	"strings"

	"github.com/flowrun/flowrun/pkg/errors"
	"github.com/flowrun/flowrun/pkg/flow"
	"github.com/flowrun/flowrun/pkg/flow/expression"
)

// Condition ports.
const (
	PortTrue  = "true"
	PortFalse = "false"
)

var validOperators = map[string]bool{
	"equals":       true,
	"not_equals":   true,
	"contains":     true,
	"not_contains": true,
	"greater_than": true,
	"less_than":    true,
}

// Conditional branches flow execution based on a condition.
//
// Two modes are supported. Comparison mode evaluates left/operator/right
// with both sides interpolated. Expression mode evaluates a boolean
// expression against the full state; the expression itself is never
// interpolated, so state values cannot inject expression code.
type Conditional struct {
	flow.Base
	eval *expression.Evaluator
}

// NewConditional creates a conditional step. Config keys: either expression
// (boolean expression over state keys) or left (interpolated), operator
// (default equals) and right (interpolated).
func NewConditional(cfg flow.Config) (*Conditional, error) {
	if cfg.StringOr("expression", "") == "" {
		op := cfg.StringOr("operator", "equals")
		if !validOperators[op] {
			return nil, &errors.ValidationError{
				Field:      "operator",
				Message:    "invalid operator: " + op,
				Suggestion: "use equals, not_equals, contains, not_contains, greater_than or less_than",
			}
		}
	}
	return &Conditional{Base: flow.NewBase(cfg), eval: expression.New()}, nil
}

func (s *Conditional) Type() flow.StepType { return flow.StepConditional }

func (s *Conditional) Ports() []string { return []string{PortTrue, PortFalse} }

func (s *Conditional) Schema() flow.Schema {
	return flow.Schema{
		{Name: "left", Type: flow.FieldString, Interpolated: true},
		{Name: "right", Type: flow.FieldString, Interpolated: true},
	}
}

func (s *Conditional) Run(ctx context.Context, st *flow.State, cfg flow.Config) (*flow.StepResult, error) {
	var result bool
	if expr := cfg.StringOr("expression", ""); expr != "" {
		ok, err := s.eval.Evaluate(expr, st.Snapshot())
		if err != nil {
			return nil, err
		}
		result = ok
	} else {
		result = evaluateCondition(
			flow.Stringify(cfg["left"]),
			cfg.StringOr("operator", "equals"),
			flow.Stringify(cfg["right"]),
		)
	}

	port := PortFalse
	if result {
		port = PortTrue
	}
	return flow.Success(s.ID(), []string{port}, map[string]any{"condition_result": result}), nil
}

// evaluateCondition applies a comparison operator to two resolved strings.
// Ordering operators compare numerically when both sides parse as numbers,
// lexicographically otherwise.
func evaluateCondition(left, operator, right string) bool {
	switch operator {
	case "equals":
		return left == right
	case "not_equals":
		return left != right
	case "contains":
		return strings.Contains(left, right)
	case "not_contains":
		return !strings.Contains(left, right)
	case "greater_than":
		if l, r, ok := parseBoth(left, right); ok {
			return l > r
		}
		return left > right
	case "less_than":
		if l, r, ok := parseBoth(left, right); ok {
			return l < r
		}
		return left < right
	}
	return false
}

func parseBoth(left, right string) (float64, float64, bool) {
	l, err := strconv.ParseFloat(left, 64)
	if err != nil {
		return 0, 0, false
	}
	r, err := strconv.ParseFloat(right, 64)
	if err != nil {
		return 0, 0, false
	}
	return l, r, true
}
