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

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	runcmd "github.com/flowrun/flowrun/internal/commands/run"
	validatecmd "github.com/flowrun/flowrun/internal/commands/validate"
	"github.com/flowrun/flowrun/internal/log"
)

// Version information (injected via ldflags at build time)
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:   "flowrun",
		Short: "Flowrun - port-routed workflow engine",
		Long: `Flowrun executes workflow graphs of typed steps connected by ports.
Flows are defined in YAML, validated statically for unsatisfiable state
references, and run concurrently to quiescence.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	logLevel := root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := root.PersistentFlags().String("log-format", "", "Log format (json, text)")

	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cfg := log.FromEnv()
		if *logLevel != "" {
			cfg.Level = *logLevel
		}
		if *logFormat != "" {
			cfg.Format = log.Format(*logFormat)
		}
		slog.SetDefault(log.New(cfg))
	}

	root.AddCommand(validatecmd.NewCommand())
	root.AddCommand(runcmd.NewCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
