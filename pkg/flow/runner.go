package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flowrun/flowrun/internal/log"
	"github.com/flowrun/flowrun/internal/metrics"
)

// Error codes attached to runner-generated failure results.
const (
	// CodeConfigResolution marks a failure to resolve a step's
	// configuration. The step is never routed.
	CodeConfigResolution = "CONFIG_RESOLUTION_ERROR"
	// CodeExecution marks an error or panic escaping a step body.
	CodeExecution = "EXECUTION_ERROR"
)

// joinTracker records, per source step, the most recent result delivered
// along any incoming edge. Keying on the source step rather than the edge
// coalesces parallel edges from the same source.
type joinTracker struct {
	arrivals map[uuid.UUID]*StepResult
}

func newJoinTracker() *joinTracker {
	return &joinTracker{arrivals: make(map[uuid.UUID]*StepResult)}
}

// record notes that an edge delivered a result.
func (t *joinTracker) record(result *StepResult, edge Edge) {
	t.arrivals[edge.SourceStepID] = result
}

// ready applies the join-mode readiness predicate against the incoming edge
// list.
func (t *joinTracker) ready(mode JoinMode, incoming []Edge) bool {
	switch mode {
	case JoinNoWait:
		return len(t.arrivals) > 0

	case JoinAllSuccess:
		if !t.allArrived(incoming) {
			return false
		}
		for _, r := range t.arrivals {
			if r.Status != StatusSuccess {
				return false
			}
		}
		return true

	case JoinAllDone:
		return t.allArrived(incoming)

	case JoinFirstSuccess:
		for _, r := range t.arrivals {
			if r.Status == StatusSuccess {
				return true
			}
		}
		return false
	}
	return false
}

// allArrived reports whether every distinct source step in the incoming
// edge set has delivered.
func (t *joinTracker) allArrived(incoming []Edge) bool {
	for _, e := range incoming {
		if _, ok := t.arrivals[e.SourceStepID]; !ok {
			return false
		}
	}
	return true
}

// FlowRunResult summarizes a completed run.
type FlowRunResult struct {
	Status      string
	StepResults []*StepResult
	FinalState  *State
}

// Runner executes a flow to quiescence.
//
// A single driver goroutine owns all scheduling state (pending set, running
// map, join trackers); step bodies run on their own goroutines and report
// back over a completion channel. The shared State is the only resource
// step goroutines touch concurrently.
type Runner struct {
	flow   *Flow
	logger *slog.Logger
}

// NewRunner creates a runner for the given flow.
func NewRunner(f *Flow) *Runner {
	return &Runner{flow: f, logger: slog.Default()}
}

// WithLogger sets a custom logger for the runner.
func (r *Runner) WithLogger(logger *slog.Logger) *Runner {
	r.logger = logger
	return r
}

// completion is a finished step reported by its goroutine.
type completion struct {
	stepID uuid.UUID
	result *StepResult
}

// Run executes the flow starting from the trigger step and returns the
// event stream.
//
// The channel is unbuffered: a slow consumer pauses the driver, so
// backpressure propagates rather than buffering without bound. The channel
// is closed after FlowCompleted. Trigger inputs must be seeded into st
// before calling Run; the runner does not synthesize them.
//
// The context is handed to step bodies. The driver itself always proceeds
// to quiescence; a canceled step should return its error, which surfaces as
// an EXECUTION_ERROR result.
func (r *Runner) Run(ctx context.Context, triggerID uuid.UUID, st *State) <-chan Event {
	if st == nil {
		st = NewState()
	}
	events := make(chan Event)
	go r.drive(ctx, triggerID, st, events)
	return events
}

// RunSync executes the flow and drains the event stream, returning the
// final result.
func (r *Runner) RunSync(ctx context.Context, triggerID uuid.UUID, st *State) (*FlowRunResult, error) {
	if st == nil {
		st = NewState()
	}
	result := &FlowRunResult{FinalState: st}
	for ev := range r.Run(ctx, triggerID, st) {
		switch e := ev.(type) {
		case StepCompleted:
			result.StepResults = append(result.StepResults, e.Result)
		case FlowCompleted:
			result.Status = e.Status
		}
	}
	return result, nil
}

// drive is the scheduling loop. It runs until no pending or running work
// remains.
func (r *Runner) drive(ctx context.Context, triggerID uuid.UUID, st *State, events chan<- Event) {
	defer close(events)

	runID := uuid.New()
	logger := r.logger.With(slog.String(log.RunIDKey, runID.String()), slog.String(log.FlowKey, r.flow.Name))

	pending := map[uuid.UUID]struct{}{triggerID: {}}
	running := make(map[uuid.UUID]struct{})
	trackers := make(map[uuid.UUID]*joinTracker)
	startTimes := make(map[uuid.UUID]time.Time)
	var results []*StepResult

	done := make(chan completion)

	events <- FlowStarted{RunID: runID, FlowName: r.flow.Name, Timestamp: now()}
	logger.Info("flow started", slog.Int("steps", len(r.flow.Steps)))

	for len(pending) > 0 || len(running) > 0 {
		// Select launchable steps.
		var launch []uuid.UUID
		for id := range pending {
			step := r.flow.GetStep(id)
			if step == nil {
				// Corrupt reference; discard silently.
				delete(pending, id)
				continue
			}
			incoming := r.flow.EdgesTo(id)
			if len(incoming) > 0 && step.JoinMode() != JoinNoWait {
				tracker := trackers[id]
				if tracker == nil || !tracker.ready(step.JoinMode(), incoming) {
					continue
				}
			}
			launch = append(launch, id)
		}

		// Launch them.
		for _, id := range launch {
			delete(pending, id)
			step := r.flow.GetStep(id)

			events <- StepStarted{RunID: runID, StepID: id, StepType: step.Type(), Timestamp: now()}
			logger.Debug("step started", slog.String(log.StepIDKey, id.String()), slog.String("step_type", string(step.Type())))

			// Resolve config before execution. A resolution failure is
			// terminal for the step: no ports fire, no routing happens.
			resolved, err := ResolveConfig(step.Config(), step.Schema(), st)
			if err != nil {
				result := Failure(id, fmt.Sprintf("config resolution failed: %v", err), CodeConfigResolution, nil)
				results = append(results, result)
				metrics.RecordStep(string(step.Type()), string(StatusError), 0)
				logger.Warn("config resolution failed", slog.String(log.StepIDKey, id.String()), slog.Any("error", err))
				events <- StepCompleted{
					RunID:         runID,
					StepID:        id,
					Result:        result,
					DurationMS:    0,
					StateSnapshot: st.Snapshot(),
					Timestamp:     now(),
				}
				continue
			}

			startTimes[id] = time.Now()
			running[id] = struct{}{}
			go func(step Step, cfg Config) {
				done <- completion{stepID: step.ID(), result: executeStep(ctx, step, st, cfg)}
			}(step, resolved)
		}

		if len(running) == 0 {
			break
		}

		// Wait for any step to finish, then route before the next round of
		// launches so successors never launch ahead of their arrivals.
		c := <-done
		delete(running, c.stepID)
		results = append(results, c.result)

		duration := time.Since(startTimes[c.stepID])
		delete(startTimes, c.stepID)

		step := r.flow.GetStep(c.stepID)
		metrics.RecordStep(string(step.Type()), string(c.result.Status), duration)
		logger.Debug("step completed",
			slog.String("step_id", c.stepID.String()),
			slog.String("status", string(c.result.Status)),
			slog.Int64("duration_ms", duration.Milliseconds()))

		events <- StepCompleted{
			RunID:         runID,
			StepID:        c.stepID,
			Result:        c.result,
			DurationMS:    float64(duration) / float64(time.Millisecond),
			StateSnapshot: st.Snapshot(),
			Timestamp:     now(),
		}

		if c.result.ContinueWithoutWaiting {
			continue
		}

		for _, port := range c.result.FiredPorts {
			for _, edge := range r.flow.EdgesFrom(c.stepID, port) {
				tracker := trackers[edge.TargetStepID]
				if tracker == nil {
					tracker = newJoinTracker()
					trackers[edge.TargetStepID] = tracker
				}
				tracker.record(c.result, edge)
				pending[edge.TargetStepID] = struct{}{}
			}
		}
	}

	status := RunSucceeded
	for _, res := range results {
		if res.Status != StatusSuccess {
			status = RunFailed
			break
		}
	}
	metrics.RecordRun(status)
	logger.Info("flow completed", slog.String("status", status), slog.Int("steps_run", len(results)))

	events <- FlowCompleted{RunID: runID, Status: status, Timestamp: now()}
}

// executeStep invokes a step body, converting escaping errors and panics
// into ERROR results with code EXECUTION_ERROR. The failure fires the
// step's error port when it declares one, default otherwise.
func executeStep(ctx context.Context, step Step, st *State, cfg Config) (result *StepResult) {
	defer func() {
		if rec := recover(); rec != nil {
			result = executionFailure(step, fmt.Sprintf("step execution failed: %v", rec), "panic")
		}
	}()

	res, err := step.Run(ctx, st, cfg)
	if err != nil {
		return executionFailure(step, fmt.Sprintf("step execution failed: %v", err), fmt.Sprintf("%T", err))
	}
	if res == nil {
		return executionFailure(step, "step returned no result", "nil_result")
	}
	return res
}

func executionFailure(step Step, message, errType string) *StepResult {
	ports := []string{DefaultPort}
	if containsString(step.Ports(), ErrorPort) {
		ports = []string{ErrorPort}
	}
	result := Failure(step.ID(), message, CodeExecution, ports)
	result.Err.Details = map[string]any{"error_type": errType}
	return result
}
