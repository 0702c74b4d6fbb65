package flow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Finding levels.
const (
	LevelError   = "error"
	LevelWarning = "warning"
)

// Finding is a single validation result.
type Finding struct {
	StepID    uuid.UUID `json:"step_id"`
	Field     string    `json:"field"`
	Reference string    `json:"reference"`
	Message   string    `json:"message"`
	Level     string    `json:"level"`
}

// AvailableKeysBefore computes the state keys available to a step's
// references: the declared outputs of every upstream step, plus the
// configured key of any upstream set_state step.
//
// Because StepsBefore ignores port filters this is an over-approximation:
// outputs on branches that cannot actually reach the step still count.
func AvailableKeysBefore(f *Flow, step Step) map[string]bool {
	keys := make(map[string]bool)
	for _, upstream := range f.StepsBefore(step) {
		for _, out := range upstream.Outputs() {
			keys[out.Key] = true
		}
		if upstream.Type() == StepSetState {
			if key := upstream.Config().StringOr("key", ""); key != "" {
				keys[key] = true
			}
		}
	}
	return keys
}

// ValidateReferences checks that every {{path}} reference in every step's
// configuration has its root key available at that point in the flow.
//
// Trigger steps add their own declared outputs to the available set, since
// their data is injected into state before the run begins.
func ValidateReferences(f *Flow) []Finding {
	var findings []Finding

	for _, step := range f.Steps {
		available := AvailableKeysBefore(f, step)
		if step.IsTrigger() {
			for _, out := range step.Outputs() {
				available[out.Key] = true
			}
		}

		for _, ref := range ExtractRefs(step.Config(), step.Schema()) {
			root := ref.Path
			if i := strings.Index(root, "."); i >= 0 {
				root = root[:i]
			}
			if available[root] {
				continue
			}
			findings = append(findings, Finding{
				StepID:    step.ID(),
				Field:     ref.Field,
				Reference: ref.Path,
				Message:   fmt.Sprintf("%q not found. Available: %v", ref.Path, sortedKeys(available)),
				Level:     LevelError,
			})
		}
	}

	return findings
}

// ValidateEdges checks that every edge references existing steps and that
// its source port exists on the source step's current port list.
func ValidateEdges(f *Flow) []Finding {
	var findings []Finding

	for _, edge := range f.Edges {
		sourceStep := f.GetStep(edge.SourceStepID)
		if sourceStep == nil {
			findings = append(findings, Finding{
				StepID:    edge.SourceStepID,
				Field:     "edge",
				Reference: edge.ID.String(),
				Message:   fmt.Sprintf("source step %s not found", edge.SourceStepID),
				Level:     LevelError,
			})
			continue
		}

		if f.GetStep(edge.TargetStepID) == nil {
			findings = append(findings, Finding{
				StepID:    edge.TargetStepID,
				Field:     "edge",
				Reference: edge.ID.String(),
				Message:   fmt.Sprintf("target step %s not found", edge.TargetStepID),
				Level:     LevelError,
			})
			continue
		}

		if ports := sourceStep.Ports(); !containsString(ports, edge.SourcePort) {
			findings = append(findings, Finding{
				StepID:    edge.SourceStepID,
				Field:     "source_port",
				Reference: edge.SourcePort,
				Message:   fmt.Sprintf("port %q not found. Available: %v", edge.SourcePort, ports),
				Level:     LevelError,
			})
		}
	}

	return findings
}

// ValidateTriggers warns when the flow has no trigger step.
func ValidateTriggers(f *Flow) []Finding {
	if len(f.TriggerSteps()) > 0 {
		return nil
	}

	stepID := uuid.Nil
	if len(f.Steps) > 0 {
		stepID = f.Steps[0].ID()
	}
	return []Finding{{
		StepID:    stepID,
		Field:     "flow",
		Reference: "triggers",
		Message:   "flow has no trigger steps",
		Level:     LevelWarning,
	}}
}

// ValidateAll runs every validation pass and returns the combined findings.
// Validation is static: no step is executed.
func ValidateAll(f *Flow) []Finding {
	var findings []Finding
	findings = append(findings, ValidateReferences(f)...)
	findings = append(findings, ValidateEdges(f)...)
	findings = append(findings, ValidateTriggers(f)...)
	return findings
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
