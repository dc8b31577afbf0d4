// Package module mounts self-contained HTTP handlers under single-segment
// path prefixes, each with its own middleware chain.
package module

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/JaimeStill/proctor/pkg/middleware"
)

// Module serves its inner handler with the prefix removed from the path.
type Module struct {
	prefix string
	inner  http.Handler
	chain  middleware.Chain
}

// New panics unless prefix is a single segment such as "/api".
func New(prefix string, inner http.Handler) *Module {
	if err := validatePrefix(prefix); err != nil {
		panic(err)
	}
	return &Module{prefix: prefix, inner: inner}
}

func (m *Module) Prefix() string {
	return m.prefix
}

// Use appends middleware. Calls after Mount have no effect on the mounted
// handler.
func (m *Module) Use(mw middleware.Middleware) {
	m.chain.Use(mw)
}

// Handler is the inner handler wrapped in the module's middleware. Paths it
// receives are relative to the prefix.
func (m *Module) Handler() http.Handler {
	return m.chain.Then(m.inner)
}

// Serve handles a request whose path still carries the module prefix.
func (m *Module) Serve(w http.ResponseWriter, r *http.Request) {
	stripPrefix(m.prefix, m.Handler()).ServeHTTP(w, r)
}

// stripPrefix is http.StripPrefix except that the bare prefix maps to "/".
func stripPrefix(prefix string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest, ok := strings.CutPrefix(r.URL.Path, prefix)
		if !ok {
			http.NotFound(w, r)
			return
		}
		if rest == "" {
			rest = "/"
		}

		r2 := r.Clone(r.Context())
		r2.URL.Path = rest
		r2.URL.RawPath = ""
		h.ServeHTTP(w, r2)
	})
}

func validatePrefix(prefix string) error {
	switch {
	case prefix == "":
		return fmt.Errorf("module prefix cannot be empty")
	case prefix[0] != '/':
		return fmt.Errorf("module prefix must start with /: %s", prefix)
	case len(prefix) == 1 || strings.Contains(prefix[1:], "/"):
		return fmt.Errorf("module prefix must be a single path segment: %s", prefix)
	}
	return nil
}
