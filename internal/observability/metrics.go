/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	// WorkloadsSeen tracks the number of workloads evaluated in the last tick.
	WorkloadsSeen = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "downscaler_workloads_seen",
		Help: "Number of workloads evaluated in the last reconciliation tick",
	})

	// WorkloadsPatched tracks the number of workloads scaled in the last tick.
	WorkloadsPatched = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "downscaler_workloads_patched",
		Help: "Number of workloads scaled up or down in the last reconciliation tick",
	})

	// WorkloadsFailed tracks the number of workloads that errored in the last tick.
	WorkloadsFailed = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "downscaler_workloads_failed",
		Help: "Number of workloads that failed to process in the last reconciliation tick",
	})

	// TickDuration tracks the wall-clock duration of a full reconciliation tick.
	TickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "downscaler_tick_duration_seconds",
		Help:    "Duration of a full reconciliation tick in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// TicksTotal counts every tick run, successful or not.
	TicksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "downscaler_ticks_total",
		Help: "Total number of reconciliation ticks run",
	})

	// ScaleActionsTotal counts scale-down and scale-up actions by kind and direction.
	ScaleActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "downscaler_scale_actions_total",
			Help: "Total number of scale actions applied, by workload kind and direction",
		},
		[]string{"kind", "direction"},
	)
)

func init() {
	RegisterMetrics()
}

// RegisterMetrics registers the downscaler's metrics with the
// controller-runtime metrics registry. Register (not MustRegister) is used
// so re-registration during tests does not panic.
func RegisterMetrics() {
	metrics.Registry.Register(WorkloadsSeen)
	metrics.Registry.Register(WorkloadsPatched)
	metrics.Registry.Register(WorkloadsFailed)
	metrics.Registry.Register(TickDuration)
	metrics.Registry.Register(TicksTotal)
	metrics.Registry.Register(ScaleActionsTotal)
}

// Metrics implements reconcile.MetricsSink, reporting one tick's outcome to
// the registered prometheus collectors.
type Metrics struct{}

// ObserveTick records the duration and per-tick counters for one
// reconciliation pass.
func (Metrics) ObserveTick(duration time.Duration, seen, patched, failed int) {
	TicksTotal.Inc()
	TickDuration.Observe(duration.Seconds())
	WorkloadsSeen.Set(float64(seen))
	WorkloadsPatched.Set(float64(patched))
	WorkloadsFailed.Set(float64(failed))
}

// ObserveScaleAction increments the per-kind, per-direction scale counter.
// The driver calls it on every applied patch, independent of whether event
// emission is enabled.
func (Metrics) ObserveScaleAction(kind, direction string) {
	ScaleActionsTotal.WithLabelValues(kind, direction).Inc()
}
