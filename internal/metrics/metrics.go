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

// Package metrics exposes Prometheus counters for flow execution.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowrun_runs_total",
			Help: "Total flow runs by final status",
		},
		[]string{"status"},
	)

	stepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowrun_steps_total",
			Help: "Total step executions by step type and result status",
		},
		[]string{"step_type", "status"},
	)

	stepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowrun_step_duration_seconds",
			Help:    "Step execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step_type"},
	)
)

// RecordRun increments the run counter for a final status
// ("succeeded" or "failed").
func RecordRun(status string) {
	runsTotal.WithLabelValues(status).Inc()
}

// RecordStep records one step execution with its result status and
// duration.
func RecordStep(stepType, status string, duration time.Duration) {
	stepsTotal.WithLabelValues(stepType, status).Inc()
	stepDuration.WithLabelValues(stepType).Observe(duration.Seconds())
}
