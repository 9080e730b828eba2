// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics contains the instruments recorded by the management client.
//
// Description:
//
//	All instruments use the "flowadmin_" prefix. A nil *Metrics is valid and
//	records nothing, so callers never need to guard.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// RequestsTotal counts API calls by method, route, and status.
	RequestsTotal metric.Int64Counter

	// RequestDuration records API call latency in seconds.
	RequestDuration metric.Float64Histogram

	// PollChecksTotal counts status checks of asynchronous requests.
	PollChecksTotal metric.Int64Counter

	// PollOutcomesTotal counts tracked requests by terminal state.
	PollOutcomesTotal metric.Int64Counter
}

// NewMetrics registers the client instruments with meter.
//
// Example:
//
//	metrics, err := telemetry.NewMetrics(otel.Meter("flowadmin/client"))
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.RequestsTotal, err = meter.Int64Counter(
		"flowadmin_client_requests_total",
		metric.WithDescription("Total management API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create client_requests_total: %w", err)
	}

	m.RequestDuration, err = meter.Float64Histogram(
		"flowadmin_client_request_duration_seconds",
		metric.WithDescription("Management API request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create client_request_duration: %w", err)
	}

	m.PollChecksTotal, err = meter.Int64Counter(
		"flowadmin_poll_checks_total",
		metric.WithDescription("Status checks issued for asynchronous requests"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create poll_checks_total: %w", err)
	}

	m.PollOutcomesTotal, err = meter.Int64Counter(
		"flowadmin_poll_outcomes_total",
		metric.WithDescription("Asynchronous requests by terminal state"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create poll_outcomes_total: %w", err)
	}

	return m, nil
}

// RecordRequest records one API call.
func (m *Metrics) RecordRequest(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	m.RequestsTotal.Add(ctx, 1, attrs)
	m.RequestDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordPollCheck records one status check of kind ("apply", "fetch").
func (m *Metrics) RecordPollCheck(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.PollChecksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordPollOutcome records the terminal state of a tracked request.
func (m *Metrics) RecordPollOutcome(ctx context.Context, kind, state string) {
	if m == nil {
		return
	}
	m.PollOutcomesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("state", state),
	))
}
