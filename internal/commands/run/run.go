// Copyright 2025 The flowrun Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package run implements the flowrun run command.
package run

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flowrun/flowrun/pkg/flow"
	"github.com/flowrun/flowrun/pkg/steps"
)

// NewCommand creates the run command.
func NewCommand() *cobra.Command {
	var (
		inputs  []string
		trigger string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "run <flow.yaml>",
		Short: "Run a flow to completion",
		Long: `Run loads a flow definition, seeds trigger inputs into state, and
executes the flow from its trigger step until no work remains.

Inputs are passed with --set key=value and stored in state before the run
starts. Values that parse as JSON are stored typed; anything else is stored
as a string.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read flow definition: %w", err)
			}

			def, err := flow.ParseDefinition(data)
			if err != nil {
				return err
			}

			f, st, err := def.Build(steps.NewRegistry())
			if err != nil {
				return fmt.Errorf("build flow: %w", err)
			}

			seed, err := parseInputs(inputs)
			if err != nil {
				return err
			}
			if err := st.Seed(seed); err != nil {
				return fmt.Errorf("seed inputs: %w", err)
			}

			triggerStep, err := selectTrigger(def, f, trigger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runner := flow.NewRunner(f).WithLogger(slog.Default())

			status := flow.RunFailed
			for ev := range runner.Run(ctx, triggerStep.ID(), st) {
				if done, ok := ev.(flow.FlowCompleted); ok {
					status = done.Status
				}
				if err := printEvent(cmd, ev, jsonOut); err != nil {
					return err
				}
			}

			if !jsonOut {
				finalState, err := json.MarshalIndent(st.Snapshot(), "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "final state: %s\n", finalState)
			}

			if status != flow.RunSucceeded {
				return fmt.Errorf("flow run %s", status)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&inputs, "set", nil, "Seed a state key before the run (key=value, repeatable)")
	cmd.Flags().StringVar(&trigger, "trigger", "", "Step ID of the trigger to start from (default: first trigger)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output events as JSON")

	return cmd
}

// parseInputs converts --set key=value pairs into a seed map. Values that
// parse as JSON are stored typed.
func parseInputs(pairs []string) (map[string]any, error) {
	seed := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set value %q, expected key=value", pair)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		seed[key] = v
	}
	return seed, nil
}

// selectTrigger resolves the trigger step to start from, by definition
// handle when given, first declared trigger otherwise.
func selectTrigger(def *flow.Definition, f *flow.Flow, handle string) (flow.Step, error) {
	if handle != "" {
		// Built steps keep definition order, so handles map by index.
		for i, sd := range def.Steps {
			if sd.ID == handle {
				return f.Steps[i], nil
			}
		}
		return nil, fmt.Errorf("trigger step %q not found in flow", handle)
	}

	triggers := f.TriggerSteps()
	if len(triggers) == 0 {
		return nil, fmt.Errorf("flow %q has no trigger steps", def.Name)
	}
	return triggers[0], nil
}

func printEvent(cmd *cobra.Command, ev flow.Event, jsonOut bool) error {
	out := cmd.OutOrStdout()

	if jsonOut {
		payload := map[string]any{"type": eventType(ev), "event": ev}
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(encoded))
		return nil
	}

	switch e := ev.(type) {
	case flow.FlowStarted:
		fmt.Fprintf(out, "flow %q started (run %s)\n", e.FlowName, e.RunID)
	case flow.StepStarted:
		fmt.Fprintf(out, "  step %s (%s) started\n", e.StepID, e.StepType)
	case flow.StepCompleted:
		if e.Result.Status == flow.StatusSuccess {
			fmt.Fprintf(out, "  step %s completed in %.1fms, fired %v\n", e.StepID, e.DurationMS, e.Result.FiredPorts)
		} else {
			fmt.Fprintf(out, "  step %s failed in %.1fms: %s\n", e.StepID, e.DurationMS, e.Result.Err.Message)
		}
	case flow.FlowCompleted:
		fmt.Fprintf(out, "flow %s\n", e.Status)
	}
	return nil
}

func eventType(ev flow.Event) string {
	switch ev.(type) {
	case flow.FlowStarted:
		return "flow_started"
	case flow.StepStarted:
		return "step_started"
	case flow.StepCompleted:
		return "step_completed"
	case flow.FlowCompleted:
		return "flow_completed"
	default:
		return "unknown"
	}
}
