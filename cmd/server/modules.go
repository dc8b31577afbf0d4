package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JaimeStill/proctor/internal/infrastructure"
	"github.com/JaimeStill/proctor/pkg/lifecycle"
	"github.com/JaimeStill/proctor/pkg/module"
)

// buildRouter serves the operational endpoints outside any module.
func buildRouter(infra *infrastructure.Infrastructure, version string) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{"status": "ok", "version": version})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		err := infra.Lifecycle.Check(r.Context())
		switch {
		case errors.Is(err, lifecycle.ErrStarting):
			writeStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		case err != nil:
			writeStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
		default:
			writeStatus(w, http.StatusOK, map[string]string{"status": "ready"})
		}
	})

	metrics := infra.Metrics.Handler()
	router.HandleNative("GET /metrics", metrics.ServeHTTP)

	return router
}

func writeStatus(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
