package steps

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"

	"github.com/flowrun/flowrun/pkg/errors"
	"github.com/flowrun/flowrun/pkg/flow"
)

// CodeTransformError marks a failed jq evaluation.
const CodeTransformError = "TRANSFORM_ERROR"

// Transform reshapes data with a jq expression.
//
// The expression is compiled once at construction and is never interpolated,
// so state values cannot inject query code. The optional input field is
// interpolated; when present it is JSON-parsed (falling back to the raw
// string) and used as the query input, otherwise the query runs against the
// full state snapshot.
type Transform struct {
	flow.Base
	code *gojq.Code
}

// NewTransform creates a transform step. Config keys: expression (jq query,
// required, not interpolated), input (interpolated, optional).
func NewTransform(cfg flow.Config) (*Transform, error) {
	expr := cfg.StringOr("expression", "")
	if expr == "" {
		return nil, &errors.ValidationError{
			Field:      "expression",
			Message:    "transform requires a jq expression",
			Suggestion: "add an 'expression' field with a jq query like '.items | length'",
		}
	}

	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, &errors.ValidationError{
			Field:      "expression",
			Message:    fmt.Sprintf("invalid jq expression: %v", err),
			Suggestion: "check the jq query syntax",
		}
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, &errors.ValidationError{
			Field:      "expression",
			Message:    fmt.Sprintf("failed to compile jq expression: %v", err),
			Suggestion: "check the jq query syntax",
		}
	}

	return &Transform{Base: flow.NewBase(cfg), code: code}, nil
}

func (s *Transform) Type() flow.StepType { return flow.StepTransform }

func (s *Transform) Schema() flow.Schema {
	return flow.Schema{
		{Name: "input", Type: flow.FieldString, Interpolated: true},
		// expression is deliberately not interpolated.
	}
}

func (s *Transform) Outputs() []flow.Output {
	return []flow.Output{
		{Key: "transformed", Type: flow.TypeAny, Description: "Transform result"},
	}
}

func (s *Transform) Run(ctx context.Context, st *flow.State, cfg flow.Config) (*flow.StepResult, error) {
	var input any
	if raw, ok := cfg["input"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &input); err != nil {
			input = raw
		}
	} else {
		input = st.Snapshot()
	}

	var outputs []any
	iter := s.code.RunWithContext(ctx, input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return flow.Failure(s.ID(), fmt.Sprintf("transform failed: %v", err), CodeTransformError, nil), nil
		}
		outputs = append(outputs, v)
	}

	// A single result is stored bare; multiple results become an array.
	var result any
	switch len(outputs) {
	case 0:
		result = nil
	case 1:
		result = outputs[0]
	default:
		result = outputs
	}

	if err := st.Set("transformed", result); err != nil {
		return nil, err
	}

	return flow.Success(s.ID(), nil, map[string]any{"transformed": result}), nil
}
