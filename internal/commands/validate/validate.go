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

// Package validate implements the flowrun validate command.
package validate

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowrun/flowrun/pkg/flow"
	"github.com/flowrun/flowrun/pkg/steps"
)

// NewCommand creates the validate command.
func NewCommand() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "validate <flow.yaml>",
		Short: "Validate a flow definition",
		Long: `Validate parses a flow definition, builds the flow graph, and runs the
static validation passes: reference availability, edge integrity and
trigger presence. No step is executed.`,
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

			f, _, err := def.Build(steps.NewRegistry())
			if err != nil {
				return fmt.Errorf("build flow: %w", err)
			}

			findings := flow.ValidateAll(f)

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(findings); err != nil {
					return err
				}
			} else {
				for _, finding := range findings {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: step %s, field %s: %s\n",
						finding.Level, finding.StepID, finding.Field, finding.Message)
				}
			}

			errCount := 0
			for _, finding := range findings {
				if finding.Level == flow.LevelError {
					errCount++
				}
			}
			if errCount > 0 {
				return fmt.Errorf("flow %q has %d validation error(s)", def.Name, errCount)
			}

			if !jsonOut {
				fmt.Fprintf(cmd.OutOrStdout(), "flow %q is valid\n", def.Name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output findings as JSON")

	return cmd
}
