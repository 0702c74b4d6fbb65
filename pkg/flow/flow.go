// Package flow implements a port-routed workflow engine.
//
// A Flow is a directed graph of steps connected by edges that attach to
// named output ports. The Runner executes a flow from a trigger step,
// fanning out concurrently along fired ports, joining converging edges
// according to each step's join mode, and resolving {{path}} references in
// step configurations against a shared State immediately before each step
// runs. The Validate functions reconstruct, statically, which state keys are
// available at each step and flag references that cannot be satisfied.
package flow

import (
	"fmt"

	"github.com/google/uuid"
)

// Edge routes execution from a source step's output port to a target step's
// input port. Edges are not deduplicated; parallel edges are allowed.
type Edge struct {
	ID           uuid.UUID `json:"id"`
	SourceStepID uuid.UUID `json:"source_step_id"`
	SourcePort   string    `json:"source_port"`
	TargetStepID uuid.UUID `json:"target_step_id"`
	TargetPort   string    `json:"target_port"`
}

// Flow is a named graph of steps and edges.
//
// Steps and edges are assembled by the embedder before a run and never
// mutated during execution. The graph is assumed acyclic: cycles are not
// rejected, but they replay nodes.
type Flow struct {
	ID    uuid.UUID
	Name  string
	Steps []Step
	Edges []Edge

	index map[uuid.UUID]Step
}

// New creates an empty flow with the given name.
func New(name string) *Flow {
	return &Flow{
		ID:    uuid.New(),
		Name:  name,
		index: make(map[uuid.UUID]Step),
	}
}

// AddStep adds a step to the flow and indexes it.
func (f *Flow) AddStep(step Step) {
	f.Steps = append(f.Steps, step)
	if f.index == nil {
		f.index = make(map[uuid.UUID]Step)
	}
	f.index[step.ID()] = step
}

// AddEdge connects two steps and returns the created edge.
//
// The source step must exist and expose sourcePort in its current port list;
// the target step must exist. Port arguments default to "default" when
// empty.
func (f *Flow) AddEdge(source, target uuid.UUID, sourcePort, targetPort string) (*Edge, error) {
	if sourcePort == "" {
		sourcePort = DefaultPort
	}
	if targetPort == "" {
		targetPort = DefaultPort
	}

	sourceStep := f.GetStep(source)
	if sourceStep == nil {
		return nil, fmt.Errorf("source step %s not found in flow", source)
	}
	ports := sourceStep.Ports()
	if !containsString(ports, sourcePort) {
		return nil, fmt.Errorf("port %q not found on step %s, available ports: %v", sourcePort, source, ports)
	}
	if f.GetStep(target) == nil {
		return nil, fmt.Errorf("target step %s not found in flow", target)
	}

	edge := Edge{
		ID:           uuid.New(),
		SourceStepID: source,
		SourcePort:   sourcePort,
		TargetStepID: target,
		TargetPort:   targetPort,
	}
	f.Edges = append(f.Edges, edge)
	return &f.Edges[len(f.Edges)-1], nil
}

// Connect is AddEdge between two steps on the default ports.
func (f *Flow) Connect(source, target Step) (*Edge, error) {
	return f.AddEdge(source.ID(), target.ID(), DefaultPort, DefaultPort)
}

// GetStep finds a step by ID, or nil.
func (f *Flow) GetStep(id uuid.UUID) Step {
	return f.index[id]
}

// EdgesFrom returns the edges originating from a step, optionally filtered
// by source port (empty port means all).
func (f *Flow) EdgesFrom(id uuid.UUID, port string) []Edge {
	var edges []Edge
	for _, e := range f.Edges {
		if e.SourceStepID != id {
			continue
		}
		if port != "" && e.SourcePort != port {
			continue
		}
		edges = append(edges, e)
	}
	return edges
}

// EdgesTo returns the edges targeting a step.
func (f *Flow) EdgesTo(id uuid.UUID) []Edge {
	var edges []Edge
	for _, e := range f.Edges {
		if e.TargetStepID == id {
			edges = append(edges, e)
		}
	}
	return edges
}

// TriggerSteps returns the steps marked as entry points.
func (f *Flow) TriggerSteps() []Step {
	var triggers []Step
	for _, s := range f.Steps {
		if s.IsTrigger() {
			triggers = append(triggers, s)
		}
	}
	return triggers
}

// StepsBefore returns every step upstream of step, found by BFS backward
// over incoming edges.
//
// The traversal ignores port filters, so availability computed from it is an
// over-approximation: outputs behind a conditional branch that cannot
// actually reach the step still count as available.
func (f *Flow) StepsBefore(step Step) []Step {
	visited := make(map[uuid.UUID]bool)
	var result []Step

	var queue []uuid.UUID
	for _, e := range f.EdgesTo(step.ID()) {
		queue = append(queue, e.SourceStepID)
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		upstream := f.GetStep(id)
		if upstream == nil {
			continue
		}
		result = append(result, upstream)
		for _, e := range f.EdgesTo(id) {
			queue = append(queue, e.SourceStepID)
		}
	}

	return result
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
