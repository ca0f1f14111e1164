/*
Copyright 2025 The KGCL Authors.

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

// Package metrics implements the engine's Prometheus surface: a
// tick-duration histogram, a hooks-fired counter, and a convergence
// gauge, exposed over HTTP with go-chi/chi + go-chi/cors at /healthz
// and /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kgcl-io/kgcl-core/pkg/tick"
)

// Prometheus implements tick.Metrics (pkg/tick's observability seam)
// against a dedicated registry, so a process hosting multiple
// Orchestrators can run one Prometheus per workflow without label
// collisions.
type Prometheus struct {
	registry       *prometheus.Registry
	tickDuration   prometheus.Histogram
	tickCount      *prometheus.CounterVec
	hooksFired     prometheus.Counter
	convergence    prometheus.Gauge
	rulesFiredHist prometheus.Histogram

	lastTickStart time.Time
}

// New constructs a Prometheus metrics sink and registers its
// collectors on a fresh registry scoped to namespace (typically the
// workflow ID).
func New(namespace string) *Prometheus {
	reg := prometheus.NewRegistry()
	p := &Prometheus{
		registry: reg,
		tickDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: "kgcl",
			Subsystem: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall-clock duration of one TickController.ExecuteTick call.",
			Buckets:   prometheus.DefBuckets,
		}),
		tickCount: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "kgcl",
			Subsystem: namespace,
			Name:      "ticks_total",
			Help:      "Ticks executed, partitioned by whether they converged.",
		}, []string{"converged"}),
		hooksFired: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "kgcl",
			Subsystem: namespace,
			Name:      "hooks_fired_total",
			Help:      "Knowledge hook receipts produced across all ticks.",
		}),
		convergence: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "kgcl",
			Subsystem: namespace,
			Name:      "converged",
			Help:      "1 if the most recent tick converged (no rule fired), 0 otherwise.",
		}),
		rulesFiredHist: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: "kgcl",
			Subsystem: namespace,
			Name:      "rules_fired_per_tick",
			Help:      "Number of rules that reported a non-zero delta in one tick.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
		}),
	}
	return p
}

// StartTick records the wall-clock start of a tick; pair with
// ObserveTick to populate tickDuration.
func (p *Prometheus) StartTick() { p.lastTickStart = time.Now() }

// ObserveTick implements tick.Metrics.
func (p *Prometheus) ObserveTick(converged bool, rulesFiredCount, hookReceiptsCount int) {
	if !p.lastTickStart.IsZero() {
		p.tickDuration.Observe(time.Since(p.lastTickStart).Seconds())
	}
	label := "false"
	conv := 0.0
	if converged {
		label = "true"
		conv = 1.0
	}
	p.tickCount.WithLabelValues(label).Inc()
	p.convergence.Set(conv)
	p.rulesFiredHist.Observe(float64(rulesFiredCount))
	p.hooksFired.Add(float64(hookReceiptsCount))
}

var _ tick.Metrics = (*Prometheus)(nil)

// Handler builds the /healthz + /metrics HTTP surface.
func (p *Prometheus) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
	return r
}
