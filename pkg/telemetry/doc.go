// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry wires OpenTelemetry tracing and metrics for flowadmin.
//
// The CLI and the sandbox server both call Init once at startup. After that
// otel.Tracer() and otel.Meter() are configured and the helpers in this
// package (StartSpan, RecordError, NewMetrics) can be used anywhere.
//
// # Trace Backend (default: none for the CLI, otlp for the sandbox)
//
// Spans are exported over OTLP gRPC to any compatible collector. "stdout"
// pretty-prints spans, which is handy when debugging a single CLI call.
//
// # Metrics Backend (default: prometheus)
//
// The Prometheus exporter registers with the default registry. The sandbox
// server exposes it at /metrics through MetricsHandler.
//
// # Environment Variables
//
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint (default: localhost:4317)
//   - OTEL_TRACES_EXPORTER: otlp, stdout, or none
//   - OTEL_METRICS_EXPORTER: prometheus, stdout, or none
//   - FLOWADMIN_ENV: environment name (default: development)
//
// # Thread Safety
//
// All exported functions are safe for concurrent use after Init returns.
package telemetry
