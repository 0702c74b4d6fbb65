package flow

import (
	"testing"

	"github.com/google/uuid"
)

func TestAddEdge(t *testing.T) {
	f := New("test")
	a := newTrigger()
	b := newTestStep("work")
	f.AddStep(a)
	f.AddStep(b)

	edge, err := f.AddEdge(a.ID(), b.ID(), "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if edge.SourcePort != DefaultPort || edge.TargetPort != DefaultPort {
		t.Errorf("empty ports should default, got %q -> %q", edge.SourcePort, edge.TargetPort)
	}
}

func TestAddEdge_UnknownSourcePort(t *testing.T) {
	f := New("test")
	a := newTrigger()
	b := newTestStep("work")
	f.AddStep(a)
	f.AddStep(b)

	if _, err := f.AddEdge(a.ID(), b.ID(), "nope", ""); err == nil {
		t.Error("expected error for unknown source port")
	}
}

func TestAddEdge_MissingSteps(t *testing.T) {
	f := New("test")
	a := newTrigger()
	f.AddStep(a)

	if _, err := f.AddEdge(uuid.New(), a.ID(), "", ""); err == nil {
		t.Error("expected error for missing source")
	}
	if _, err := f.AddEdge(a.ID(), uuid.New(), "", ""); err == nil {
		t.Error("expected error for missing target")
	}
}

func TestAddEdge_ParallelEdgesAllowed(t *testing.T) {
	f := New("test")
	a := newTrigger()
	b := newTestStep("work")
	f.AddStep(a)
	f.AddStep(b)

	f.Connect(a, b)
	f.Connect(a, b)

	if len(f.EdgesFrom(a.ID(), DefaultPort)) != 2 {
		t.Errorf("parallel edges should not deduplicate, got %d", len(f.Edges))
	}
}

func TestEdgesFromPortFilter(t *testing.T) {
	f := New("test")
	a := newTestStep("branch")
	a.ports = []string{"true", "false"}
	b := newTestStep("work")
	c := newTestStep("work")
	f.AddStep(a)
	f.AddStep(b)
	f.AddStep(c)

	f.AddEdge(a.ID(), b.ID(), "true", "")
	f.AddEdge(a.ID(), c.ID(), "false", "")

	if got := f.EdgesFrom(a.ID(), "true"); len(got) != 1 || got[0].TargetStepID != b.ID() {
		t.Errorf("port filter mismatch: %v", got)
	}
	if got := f.EdgesFrom(a.ID(), ""); len(got) != 2 {
		t.Errorf("empty port should return all edges, got %d", len(got))
	}
}

func TestTriggerSteps(t *testing.T) {
	f := New("test")
	a := newTrigger()
	b := newTestStep("work")
	f.AddStep(a)
	f.AddStep(b)

	triggers := f.TriggerSteps()
	if len(triggers) != 1 || triggers[0].ID() != a.ID() {
		t.Errorf("expected only the trigger, got %v", triggers)
	}
}

func TestStepsBefore(t *testing.T) {
	f := New("test")
	a := newTrigger()
	b := newTestStep("work")
	c := newTestStep("work")
	d := newTestStep("join")
	for _, s := range []*testStep{a, b, c, d} {
		f.AddStep(s)
	}
	f.Connect(a, b)
	f.Connect(a, c)
	f.Connect(b, d)
	f.Connect(c, d)

	before := f.StepsBefore(d)
	ids := make(map[uuid.UUID]bool)
	for _, s := range before {
		ids[s.ID()] = true
	}
	if len(before) != 3 || !ids[a.ID()] || !ids[b.ID()] || !ids[c.ID()] {
		t.Errorf("expected a, b, c upstream of d, got %d steps", len(before))
	}

	if got := f.StepsBefore(a); len(got) != 0 {
		t.Errorf("trigger should have no upstream steps, got %d", len(got))
	}
}

func TestStepsBefore_IgnoresPorts(t *testing.T) {
	// Availability is an over-approximation: both branches of a conditional
	// count as upstream even though only one can fire.
	f := New("test")
	cond := newTestStep("branch")
	cond.ports = []string{"true", "false"}
	b := newTestStep("work")
	c := newTestStep("work")
	d := newTestStep("end")
	for _, s := range []*testStep{cond, b, c, d} {
		f.AddStep(s)
	}
	f.AddEdge(cond.ID(), b.ID(), "true", "")
	f.AddEdge(cond.ID(), c.ID(), "false", "")
	f.Connect(b, d)

	before := f.StepsBefore(d)
	if len(before) != 2 {
		t.Errorf("expected b and cond upstream of d, got %d", len(before))
	}
}
