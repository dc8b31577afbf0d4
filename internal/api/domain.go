package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/proctor/internal/config"
	"github.com/JaimeStill/proctor/internal/detectors"
	"github.com/JaimeStill/proctor/internal/monitor"
	"github.com/JaimeStill/proctor/internal/proctor"
	"github.com/JaimeStill/proctor/internal/sessions"
	"github.com/JaimeStill/proctor/internal/textanalysis"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Sessions sessions.System
	Monitor  *monitor.Hub
	Text     *textanalysis.Analyzer
}

// NewDomain creates the domain systems and registers their lifecycle hooks.
func NewDomain(cfg *config.Config, runtime *Runtime) (*Domain, error) {
	client, err := detectors.New(
		cfg.Detectors,
		&http.Client{Timeout: cfg.Detectors.TimeoutDuration()},
		runtime.Logger,
	)
	if err != nil {
		return nil, fmt.Errorf("detectors: %w", err)
	}

	var completer textanalysis.Completer
	if cfg.Text.Mode == textanalysis.ModeAgent {
		completer = textanalysis.NewAgentCompleter(cfg.Agent)
	}
	analyzer := textanalysis.New(cfg.Text, completer, runtime.Logger)

	hub := monitor.New(cfg.Monitor, runtime.Logger)

	sessionsSystem := sessions.New(
		runtime.Database.Connection(),
		runtime.Storage,
		cfg.Detection,
		cfg.Sessions,
		proctor.Deps{
			Face:     client,
			Objects:  client,
			Text:     analyzer,
			Notifier: hub,
			Metrics:  runtime.Metrics,
			Logger:   runtime.Logger,
		},
		runtime.Logger,
		runtime.Pagination,
	)

	hub.Start(runtime.Lifecycle)
	sessionsSystem.Start(runtime.Lifecycle)

	return &Domain{
		Sessions: sessionsSystem,
		Monitor:  hub,
		Text:     analyzer,
	}, nil
}
