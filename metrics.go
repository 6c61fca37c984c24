// Copyright 2011 Google Inc. All Rights Reserved.
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

package cbob

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics generalizes the teacher's ad hoc Metrics/ScopedMetric pair
// (metrics.go's METRIC_RECORD("node stat") style scoped timers) into a
// real, queryable Prometheus registry instead of the teacher's
// in-process-only, dump-at-exit report.
type Metrics struct {
	ProbeDuration   prometheus.Histogram
	CompileDuration prometheus.Histogram
	LinkDuration    prometheus.Histogram
	EdgesStarted    prometheus.Counter
	EdgesFinished   prometheus.Counter
	EdgesFailed     prometheus.Counter
}

// NewMetrics registers a fresh set of cbob build metrics on reg. Callers
// that don't want metrics (e.g. most tests) can simply not call this
// and pass a nil *Metrics everywhere; every method below is a no-op on
// a nil receiver.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ProbeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "cbob_probe_duration_seconds",
			Help: "Time spent tracing a source's header inclusion set.",
		}),
		CompileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "cbob_compile_duration_seconds",
			Help: "Time spent compiling a single translation unit.",
		}),
		LinkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "cbob_link_duration_seconds",
			Help: "Time spent in the final link step.",
		}),
		EdgesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cbob_edges_started_total",
			Help: "Number of compile jobs started.",
		}),
		EdgesFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cbob_edges_finished_total",
			Help: "Number of compile jobs that finished, whether or not they succeeded.",
		}),
		EdgesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cbob_edges_failed_total",
			Help: "Number of compile jobs that exited non-zero.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ProbeDuration, m.CompileDuration, m.LinkDuration, m.EdgesStarted, m.EdgesFinished, m.EdgesFailed)
	}
	return m
}

func (m *Metrics) recordProbe(d time.Duration) {
	if m == nil {
		return
	}
	m.ProbeDuration.Observe(d.Seconds())
}

func (m *Metrics) recordCompile(d time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.CompileDuration.Observe(d.Seconds())
	m.EdgesFinished.Inc()
	if !ok {
		m.EdgesFailed.Inc()
	}
}

func (m *Metrics) recordLink(d time.Duration) {
	if m == nil {
		return
	}
	m.LinkDuration.Observe(d.Seconds())
}

// MetricsProber wraps a Prober, timing every probe into m. It is how
// the orchestrator opts into metrics without the probe implementation
// itself needing to know about Prometheus, the same decorator shape the
// teacher reaches for with its ScopedMetric RAII timers.
type MetricsProber struct {
	Prober
	Metrics *Metrics
}

func (p *MetricsProber) Probe(ctx context.Context, sourcePath string) ([]IncludeTraceEntry, error) {
	start := time.Now()
	entries, err := p.Prober.Probe(ctx, sourcePath)
	p.Metrics.recordProbe(time.Since(start))
	return entries, err
}
