// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the sandbox API.
//
// # Metrics
//
//	flowadmin_sandbox_requests_total{route,method,status}
//	flowadmin_sandbox_request_duration_seconds{route,method}
//	flowadmin_sandbox_apply_requests_total{event}
//	flowadmin_sandbox_apply_requests_active
//
// Routes are Gin route templates ("/parameter-providers/:id"), never raw
// paths, so label cardinality stays bounded.
package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "flowadmin"
	sandboxSubsystem = "sandbox"
)

// ApplyEvent labels apply request lifecycle counts.
type ApplyEvent string

const (
	ApplySubmitted ApplyEvent = "submitted"
	ApplyCompleted ApplyEvent = "completed"
	ApplyDeleted   ApplyEvent = "deleted"
)

// Metrics holds the sandbox collectors.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ApplyTotal      *prometheus.CounterVec
	ApplyActive     prometheus.Gauge
}

// NewMetrics registers the collectors with reg.
//
// # Description
//
// Pass prometheus.DefaultRegisterer in the server so the metrics appear
// next to the OpenTelemetry exporter's, or a fresh prometheus.NewRegistry()
// in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: sandboxSubsystem,
				Name:      "requests_total",
				Help:      "Total API requests by route, method and status code",
			},
			[]string{"route", "method", "status"},
		),

		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: sandboxSubsystem,
				Name:      "request_duration_seconds",
				Help:      "API request latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"route", "method"},
		),

		ApplyTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: sandboxSubsystem,
				Name:      "apply_requests_total",
				Help:      "Apply parameter requests by lifecycle event",
			},
			[]string{"event"},
		),

		ApplyActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: sandboxSubsystem,
				Name:      "apply_requests_active",
				Help:      "Apply parameter requests not yet deleted",
			},
		),
	}
}

// Middleware records one request count and latency observation per request.
// Unmatched routes are labelled "unmatched".
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

// RecordApply counts an apply lifecycle event and sets the active gauge.
func (m *Metrics) RecordApply(event ApplyEvent, active int) {
	m.ApplyTotal.WithLabelValues(string(event)).Inc()
	m.ApplyActive.Set(float64(active))
}
