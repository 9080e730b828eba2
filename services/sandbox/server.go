// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sandbox is an in-memory emulator of the dataflow management API.
//
// # Problem Statement
//
// The console's behaviour depends on how the API answers: revision
// conflicts, apply requests that take several polls, inherited policies,
// clustered and standalone diagnostics. Exercising that against a real
// cluster is slow and hard to repeat.
//
// # Solution
//
//	┌──────────────────────────── gin.Engine ─────────────────────────────┐
//	│ Recovery → otelgin → RequestLogger → Metrics                        │
//	│                                                                     │
//	│  /health    /metrics (Prometheus)                                   │
//	│  /flowadmin-api/… → AuthMiddleware → Audit → handlers → store.Store │
//	└─────────────────────────────────────────────────────────────────────┘
//	                          ▲
//	       seed.yaml ── fsnotify ── store.Load
//
// The store starts from a YAML seed (or store.DefaultSeed) and is reloaded
// whenever the seed file changes.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/flowadmin/flowadmin/services/sandbox/handlers"
	"github.com/flowadmin/flowadmin/services/sandbox/middleware"
	"github.com/flowadmin/flowadmin/services/sandbox/observability"
	"github.com/flowadmin/flowadmin/services/sandbox/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const (
	// ServiceName names the sandbox in traces and logs.
	ServiceName = "flowadmin-sandbox"

	// BasePath is where the management API is mounted.
	BasePath = "/flowadmin-api"

	shutdownTimeout = 5 * time.Second
)

// Config configures a Server.
type Config struct {
	// Addr is the listen address for Run.
	Addr string

	// SeedFile is an optional YAML seed, watched for changes.
	SeedFile string

	// CompleteAfter applies when the seed does not set complete_after.
	CompleteAfter int

	// Token enables bearer auth when non-empty.
	Token []byte

	// AuditCapacity bounds the in-memory history served at /flow/history.
	AuditCapacity int

	Logger *slog.Logger

	// Registerer and Gatherer default to the Prometheus globals.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// Server is a configured sandbox.
type Server struct {
	cfg     Config
	store   *store.Store
	router  *gin.Engine
	watcher *store.SeedWatcher
	audit   *middleware.MemoryAuditLogger
	logger  *slog.Logger
}

// New builds the store and router. The seed file, when set, must parse.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	seed := store.DefaultSeed()
	if cfg.SeedFile != "" {
		var err error
		if seed, err = store.LoadSeed(cfg.SeedFile); err != nil {
			return nil, err
		}
	}
	if seed.CompleteAfter == nil {
		n := cfg.CompleteAfter
		seed.CompleteAfter = &n
	}

	s := &Server{
		cfg:    cfg,
		store:  store.New(seed),
		audit:  middleware.NewMemoryAuditLogger(cfg.AuditCapacity),
		logger: cfg.Logger,
	}
	s.router = s.newRouter()
	return s, nil
}

func (s *Server) newRouter() *gin.Engine {
	metrics := observability.NewMetrics(s.cfg.Registerer)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(ServiceName))
	router.Use(middleware.RequestLogger(s.logger))
	router.Use(metrics.Middleware())

	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{})))

	var auth middleware.Authenticator = middleware.Anonymous{}
	if len(s.cfg.Token) > 0 {
		auth = middleware.StaticToken{Token: s.cfg.Token}
	}
	api := router.Group(BasePath)
	api.Use(middleware.AuthMiddleware(auth))
	api.Use(middleware.AuditMiddleware(s.audit, BasePath))
	api.GET("/flow/history", handlers.FlowHistory(s.audit))
	SetupRoutes(api, handlers.New(s.store, metrics))
	return router
}

// Handler returns the HTTP handler, for httptest or embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Store returns the backing store.
func (s *Server) Store() *store.Store {
	return s.store
}

// Run serves on cfg.Addr until ctx is done, then shuts down gracefully.
// The seed file is watched while running.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.SeedFile != "" {
		w, err := store.NewSeedWatcher(s.cfg.SeedFile, s.store, s.logger, nil)
		if err != nil {
			s.logger.Warn("seed file will not be reloaded", "path", s.cfg.SeedFile, "error", err)
		} else {
			s.watcher = w
			defer w.Stop()
			go w.Start(ctx)
		}
	}

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("sandbox listening", "addr", s.cfg.Addr, "base_path", BasePath,
			"auth", len(s.cfg.Token) > 0)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("sandbox server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("sandbox shutdown: %w", err)
	}
	s.logger.Info("sandbox stopped")
	return nil
}
