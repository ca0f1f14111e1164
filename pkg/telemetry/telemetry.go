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

// Package telemetry centralizes the module's go.opentelemetry.io/otel
// tracer and meter so every package that wants a span or an instrument
// goes through one name. No SDK/exporter is wired here — the concrete
// exporter is an adapter concern above the core; this package works
// against the global no-op providers out
// of the box and against a real SDK transparently once an
// orchestrator-level adapter calls otel.SetTracerProvider /
// otel.SetMeterProvider.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/kgcl-io/kgcl-core"

// Tracer returns the module-wide tracer used to start spans around the
// tick phases, lockchain appends, and temporal
// store compaction.
func Tracer() trace.Tracer { return otel.Tracer(instrumentationName) }

// Meter returns the module-wide meter instruments are created against.
func Meter() metric.Meter { return otel.Meter(instrumentationName) }

// tickCounter counts every ExecuteTick call, labeled by convergence,
// independent of the pkg/metrics Prometheus sink.
var tickCounter, _ = Meter().Int64Counter(
	"kgcl.ticks",
	metric.WithDescription("Ticks executed by any TickController, labeled by convergence."),
)

// RecordTick increments the OTel tick counter for one completed tick.
func RecordTick(ctx context.Context, converged bool) {
	tickCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("converged", converged)))
}
