package flow

import (
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/flowrun/flowrun/pkg/errors"
)

// Definition represents a YAML-based flow definition.
// It names the steps, the edges between their ports, and the state slots a
// flow declares, and can be built into an executable Flow with a Registry
// that knows how to construct each step type.
type Definition struct {
	// Name is the flow identifier
	Name string `yaml:"name" json:"name"`

	// Description provides human-readable context about the flow
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// State declares the typed slots of the flow's state container
	State []SlotDefinition `yaml:"state,omitempty" json:"state,omitempty"`

	// Steps are the nodes of the flow graph
	Steps []StepDefinition `yaml:"steps" json:"steps"`

	// Edges connect step output ports to downstream steps
	Edges []EdgeDefinition `yaml:"edges,omitempty" json:"edges,omitempty"`
}

// SlotDefinition declares one typed state slot.
type SlotDefinition struct {
	Name        string    `yaml:"name" json:"name"`
	Type        StateType `yaml:"type,omitempty" json:"type,omitempty"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
}

// StepDefinition represents a single step in a flow definition.
//
// ID is a handle local to the definition; edges reference it. The step's
// runtime identity is assigned when the definition is built.
type StepDefinition struct {
	// ID is the unique step handle within this flow
	ID string `yaml:"id" json:"id"`

	// Type selects the step implementation (request, set_state, switch, ...)
	Type StepType `yaml:"type" json:"type"`

	// JoinMode controls how the step joins converging edges (default: no_wait)
	JoinMode JoinMode `yaml:"join_mode,omitempty" json:"join_mode,omitempty"`

	// Config is the step's raw configuration, {{path}} references included
	Config map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// EdgeDefinition connects two steps by their definition handles.
type EdgeDefinition struct {
	From     string `yaml:"from" json:"from"`
	FromPort string `yaml:"from_port,omitempty" json:"from_port,omitempty"`
	To       string `yaml:"to" json:"to"`
	ToPort   string `yaml:"to_port,omitempty" json:"to_port,omitempty"`
}

// Registry constructs step implementations by type token.
type Registry interface {
	New(stepType StepType, cfg Config) (Step, error)
}

// ParseDefinition parses a flow definition from YAML bytes.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse flow definition: %w", err)
	}

	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flow definition: %w", err)
	}

	return &def, nil
}

// Validate checks if the flow definition is structurally valid.
// Reference availability is checked separately, after building, by the
// validation pass over the assembled flow.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return &errors.ValidationError{
			Field:      "name",
			Message:    "flow name is required",
			Suggestion: "add a descriptive name for the flow",
		}
	}

	if len(d.Steps) == 0 {
		return &errors.ValidationError{
			Field:      "steps",
			Message:    "flow must have at least one step",
			Suggestion: "add at least one step to the flow definition",
		}
	}

	stepIDs := make(map[string]bool)
	for _, step := range d.Steps {
		if step.ID == "" {
			return &errors.ValidationError{
				Field:      "id",
				Message:    "step ID is required",
				Suggestion: "add an 'id' field to each step",
			}
		}
		if stepIDs[step.ID] {
			return &errors.ValidationError{
				Field:      "id",
				Message:    fmt.Sprintf("duplicate step ID: %s", step.ID),
				Suggestion: "ensure each step has a unique ID",
			}
		}
		stepIDs[step.ID] = true

		if step.Type == "" {
			return &errors.ValidationError{
				Field:      "type",
				Message:    fmt.Sprintf("step %s has no type", step.ID),
				Suggestion: "add a 'type' field naming a registered step type",
			}
		}
		if step.JoinMode != "" && !step.JoinMode.IsValid() {
			return &errors.ValidationError{
				Field:      "join_mode",
				Message:    fmt.Sprintf("step %s has invalid join mode: %s", step.ID, step.JoinMode),
				Suggestion: "use no_wait, all_success, all_done or first_success",
			}
		}
	}

	for i, edge := range d.Edges {
		if !stepIDs[edge.From] {
			return &errors.ValidationError{
				Field:      "edges",
				Message:    fmt.Sprintf("edge %d references unknown source step: %s", i, edge.From),
				Suggestion: "edges must reference step IDs defined in this flow",
			}
		}
		if !stepIDs[edge.To] {
			return &errors.ValidationError{
				Field:      "edges",
				Message:    fmt.Sprintf("edge %d references unknown target step: %s", i, edge.To),
				Suggestion: "edges must reference step IDs defined in this flow",
			}
		}
	}

	for _, slot := range d.State {
		if slot.Name == "" {
			return &errors.ValidationError{
				Field:      "state",
				Message:    "state slot name is required",
				Suggestion: "add a 'name' field to each state slot",
			}
		}
	}

	return nil
}

// Build assembles an executable Flow and its initial State from the
// definition, constructing each step through the registry.
//
// Step handles are mapped to the runtime IDs the registry-built steps carry.
// Edge port validation happens here via AddEdge, against each source step's
// live port list.
func (d *Definition) Build(reg Registry) (*Flow, *State, error) {
	f := New(d.Name)

	handles := make(map[string]uuid.UUID, len(d.Steps))
	for _, sd := range d.Steps {
		step, err := reg.New(sd.Type, Config(sd.Config))
		if err != nil {
			return nil, nil, fmt.Errorf("step %s: %w", sd.ID, err)
		}
		if sd.JoinMode != "" {
			if setter, ok := step.(interface{ SetJoinMode(JoinMode) }); ok {
				setter.SetJoinMode(sd.JoinMode)
			}
		}
		f.AddStep(step)
		handles[sd.ID] = step.ID()
	}

	for _, ed := range d.Edges {
		if _, err := f.AddEdge(handles[ed.From], handles[ed.To], ed.FromPort, ed.ToPort); err != nil {
			return nil, nil, fmt.Errorf("edge %s -> %s: %w", ed.From, ed.To, err)
		}
	}

	st := NewState()
	for _, slot := range d.State {
		typ := slot.Type
		if typ == "" {
			typ = TypeAny
		}
		st.Define(slot.Name, typ, slot.Description)
	}

	return f, st, nil
}
