package flow

import (
	"strings"
	"testing"
)

func TestValidateReferences_Satisfied(t *testing.T) {
	f := New("valid")
	trigger := newTrigger()
	trigger.outputs = []Output{{Key: "body", Type: TypeAny}}
	consumer := newTestStep("work")
	consumer.schema = Schema{{Name: "v", Type: FieldString, Interpolated: true}}
	consumer.RawCfg = Config{"v": "{{body.id}}"}
	f.AddStep(trigger)
	f.AddStep(consumer)
	f.Connect(trigger, consumer)

	if findings := ValidateReferences(f); len(findings) != 0 {
		t.Errorf("expected no findings, got %v", findings)
	}
}

func TestValidateReferences_Unsatisfied(t *testing.T) {
	f := New("invalid")
	trigger := newTrigger()
	trigger.outputs = []Output{{Key: "body", Type: TypeAny}}
	consumer := newTestStep("work")
	consumer.schema = Schema{{Name: "v", Type: FieldString, Interpolated: true}}
	consumer.RawCfg = Config{"v": "{{nonexistent.key}}"}
	f.AddStep(trigger)
	f.AddStep(consumer)
	f.Connect(trigger, consumer)

	findings := ValidateReferences(f)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	finding := findings[0]
	if finding.Level != LevelError || finding.StepID != consumer.ID() {
		t.Errorf("unexpected finding: %+v", finding)
	}
	if finding.Reference != "nonexistent.key" {
		t.Errorf("expected full path in reference, got %q", finding.Reference)
	}
	if !strings.Contains(finding.Message, "body") {
		t.Errorf("message should list available keys, got %q", finding.Message)
	}
}

func TestValidateReferences_TriggerSeesOwnOutputs(t *testing.T) {
	f := New("trigger-refs")
	trigger := newTrigger()
	trigger.outputs = []Output{{Key: "body", Type: TypeAny}}
	trigger.schema = Schema{{Name: "v", Type: FieldString, Interpolated: true}}
	trigger.RawCfg = Config{"v": "{{body}}"}
	f.AddStep(trigger)

	if findings := ValidateReferences(f); len(findings) != 0 {
		t.Errorf("trigger should see its own outputs, got %v", findings)
	}
}

func TestValidateReferences_SetStateKeyCountsDownstream(t *testing.T) {
	f := New("setstate")
	trigger := newTrigger()
	setter := newTestStep(StepSetState)
	setter.RawCfg = Config{"key": "my_var", "value": "1"}
	consumer := newTestStep("work")
	consumer.schema = Schema{{Name: "v", Type: FieldString, Interpolated: true}}
	consumer.RawCfg = Config{"v": "{{my_var}}"}
	for _, s := range []*testStep{trigger, setter, consumer} {
		f.AddStep(s)
	}
	f.Connect(trigger, setter)
	f.Connect(setter, consumer)

	if findings := ValidateReferences(f); len(findings) != 0 {
		t.Errorf("set_state key should be available downstream, got %v", findings)
	}
}

func TestValidateReferences_RootSegmentOnly(t *testing.T) {
	// Only the root key is checked; nested paths below a declared output
	// cannot be verified statically.
	f := New("root")
	trigger := newTrigger()
	trigger.outputs = []Output{{Key: "body", Type: TypeAny}}
	consumer := newTestStep("work")
	consumer.schema = Schema{{Name: "v", Type: FieldString, Interpolated: true}}
	consumer.RawCfg = Config{"v": "{{body.deeply.unknown.path}}"}
	f.AddStep(trigger)
	f.AddStep(consumer)
	f.Connect(trigger, consumer)

	if findings := ValidateReferences(f); len(findings) != 0 {
		t.Errorf("nested path under available root should pass, got %v", findings)
	}
}

func TestValidateEdges_BadSourcePort(t *testing.T) {
	f := New("edges")
	a := newTrigger()
	b := newTestStep("work")
	f.AddStep(a)
	f.AddStep(b)
	f.Connect(a, b)

	// Shrink the port list after the edge exists, as a config edit would.
	a.ports = []string{"other"}

	findings := ValidateEdges(f)
	if len(findings) != 1 || findings[0].Field != "source_port" {
		t.Errorf("expected source_port finding, got %v", findings)
	}
}

func TestValidateTriggers(t *testing.T) {
	f := New("no-triggers")
	f.AddStep(newTestStep("work"))

	findings := ValidateTriggers(f)
	if len(findings) != 1 || findings[0].Level != LevelWarning {
		t.Errorf("expected a warning, got %v", findings)
	}

	f2 := New("with-trigger")
	f2.AddStep(newTrigger())
	if findings := ValidateTriggers(f2); len(findings) != 0 {
		t.Errorf("expected no findings, got %v", findings)
	}
}

func TestValidateAll_Combined(t *testing.T) {
	f := New("all")
	orphan := newTestStep("work")
	orphan.schema = Schema{{Name: "v", Type: FieldString, Interpolated: true}}
	orphan.RawCfg = Config{"v": "{{missing}}"}
	f.AddStep(orphan)

	findings := ValidateAll(f)
	var errs, warnings int
	for _, finding := range findings {
		switch finding.Level {
		case LevelError:
			errs++
		case LevelWarning:
			warnings++
		}
	}
	if errs != 1 || warnings != 1 {
		t.Errorf("expected 1 error and 1 warning, got %d/%d: %v", errs, warnings, findings)
	}
}
