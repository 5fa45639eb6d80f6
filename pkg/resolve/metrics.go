// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package resolve

import "github.com/prometheus/client_golang/prometheus"

// Metrics exports per-run Statistics as Prometheus gauges/counters. A nil
// *Metrics is never dereferenced by Coordinator; metrics are optional.
//
// Grounded on the teacher's cmd/cie/index.go, which registers a
// promhttp.Handler and feeds it counters gathered during indexing.
type Metrics struct {
	runsTotal       prometheus.Counter
	edgesByLevel    *prometheus.CounterVec
	chaReduction    prometheus.Gauge
	droppedCallers  prometheus.Counter
	runDuration     prometheus.Histogram
}

// NewMetrics registers a fresh set of collectors against reg. Pass
// prometheus.NewRegistry() for an isolated registry, or
// prometheus.DefaultRegisterer wrapped appropriately for the process-wide
// one.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "callweave_resolve_runs_total",
			Help: "Total number of Coordinator.Run invocations.",
		}),
		edgesByLevel: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "callweave_resolve_edges_total",
			Help: "Edges produced per resolution level, cumulative across runs.",
		}, []string{"level"}),
		chaReduction: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "callweave_resolve_cha_reduction_rate",
			Help: "Fraction of CHA candidate sets RTA strictly narrowed in the most recent run.",
		}),
		droppedCallers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "callweave_resolve_dropped_caller_unknown_total",
			Help: "Edges dropped because their caller id was absent from the function index.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "callweave_resolve_run_duration_seconds",
			Help:    "Wall-clock duration of a full Coordinator.Run.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.runsTotal, m.edgesByLevel, m.chaReduction, m.droppedCallers, m.runDuration)
	return m
}

// ObserveRun records one completed run's statistics.
func (m *Metrics) ObserveRun(stats Statistics) {
	if m == nil {
		return
	}
	m.runsTotal.Inc()
	m.edgesByLevel.WithLabelValues(LevelLocalExact.String()).Add(float64(stats.LocalEdges))
	m.edgesByLevel.WithLabelValues(LevelImportExact.String()).Add(float64(stats.ImportEdges))
	m.edgesByLevel.WithLabelValues(LevelCHAResolved.String()).Add(float64(stats.CHAEdges))
	m.edgesByLevel.WithLabelValues(LevelRTAResolved.String()).Add(float64(stats.RTAEdges))
	m.edgesByLevel.WithLabelValues(LevelRuntimeConfirmed.String()).Add(float64(stats.RuntimeConfirmed))
	m.chaReduction.Set(stats.CHAReductionRate)
	m.droppedCallers.Add(float64(stats.DroppedCallerUnknown))
	m.runDuration.Observe(stats.TotalDuration.Seconds())
}
