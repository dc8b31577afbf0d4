package main

import (
	"fmt"
	"time"

	"github.com/JaimeStill/proctor/internal/api"
	"github.com/JaimeStill/proctor/internal/config"
	"github.com/JaimeStill/proctor/internal/infrastructure"
)

// Server owns the infrastructure, the mounted API module, and the listener.
type Server struct {
	infra *infrastructure.Infrastructure
	http  *httpServer
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, fmt.Errorf("api module: %w", err)
	}

	router := buildRouter(infra, cfg.Version)
	router.Mount(apiModule)

	infra.Logger.Info(
		"proctor configured",
		"addr", cfg.Server.Addr(),
		"api", cfg.API.BasePath,
		"version", cfg.Version,
		"env", cfg.Env(),
		"text_mode", cfg.Text.Mode,
	)

	return &Server{
		infra: infra,
		http:  newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

// Start registers infrastructure hooks, binds the listener, and logs
// readiness once startup hooks have run.
func (s *Server) Start() error {
	if err := s.infra.Start(); err != nil {
		return err
	}
	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go func() {
		lc := s.infra.Lifecycle
		lc.WaitForStartup()
		if err := lc.Check(lc.Context()); err != nil {
			s.infra.Logger.Warn("started with failing readiness checks", "error", err)
			return
		}
		s.infra.Logger.Info("all subsystems ready")
	}()

	return nil
}

// Shutdown cancels the lifecycle context and waits for every shutdown hook:
// live sessions stop sampling, the journal drains, and monitor sockets close.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("shutting down", "timeout", timeout)
	if err := s.infra.Lifecycle.Shutdown(timeout); err != nil {
		return err
	}
	s.infra.Logger.Info("proctor stopped")
	return nil
}
