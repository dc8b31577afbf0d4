// Package api assembles the API module: exam sessions, the live monitor
// socket, and the report archive browser.
package api

import (
	"net/http"

	"github.com/JaimeStill/proctor/internal/config"
	"github.com/JaimeStill/proctor/internal/infrastructure"
	"github.com/JaimeStill/proctor/pkg/middleware"
	"github.com/JaimeStill/proctor/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain, err := NewDomain(cfg, runtime)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	for _, pattern := range registerRoutes(mux, domain, runtime) {
		runtime.Logger.Debug("route registered", "pattern", cfg.API.BasePath+" "+pattern)
	}

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.Recover(runtime.Logger))
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger, runtime.Metrics.ObserveRequest))

	return m, nil
}
