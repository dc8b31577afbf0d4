package api

import (
	"net/http"

	"github.com/JaimeStill/proctor/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	runtime *Runtime,
) []string {
	archives := newArchiveHandler(
		runtime.Storage,
		runtime.Logger,
		runtime.MaxListSize,
	)

	return routes.Register(
		mux,
		domain.Sessions.Handler(runtime.MaxFrameSize).Routes(),
		archives.routes(),
		routes.Group{
			Prefix: "/monitor",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "/{id}", Handler: domain.Monitor.Handler},
			},
		},
	)
}
