// Package api exposes the HTTP surface: auth endpoints, the owner-scoped
// CRUD resources, CSV imports, the AI flows and the wizard.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/letteros/letteros/internal/assembler"
	"github.com/letteros/letteros/internal/auth"
	"github.com/letteros/letteros/internal/config"
	"github.com/letteros/letteros/internal/importer"
	"github.com/letteros/letteros/internal/planning"
	"github.com/letteros/letteros/internal/service/launchcontent"
	"github.com/letteros/letteros/internal/service/newsletter"
	"github.com/letteros/letteros/internal/service/subscriber"
	"github.com/letteros/letteros/internal/wizard"
)

// Deps are the services the handlers call.
type Deps struct {
	Auth        *auth.Manager
	Products    *launchcontent.Service
	Newsletters *newsletter.Service
	Subscribers *subscriber.Service
	Imports     *importer.Service
	Planner     *planning.Orchestrator
	Generator   *assembler.Generator
	Wizards     *wizard.Service
	Health      *HealthChecker
}

// Server represents the API server
type Server struct {
	config  config.ServerConfig
	handler http.Handler
	server  *http.Server
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	return &Server{
		config:  cfg,
		handler: SetupRoutes(NewHandlers(deps), cfg.AllowedOrigins),
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.handler,
		// Generation calls can take most of a minute.
		ReadTimeout:       2 * time.Minute,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
