package module

import (
	"net/http"
	"strings"
)

// Router serves mounted modules and native handlers from one ServeMux.
// Trailing slashes are trimmed before dispatch.
type Router struct {
	mux *http.ServeMux
}

func NewRouter() *Router {
	return &Router{mux: http.NewServeMux()}
}

// HandleNative registers a handler outside any module. Pattern follows
// ServeMux syntax, including an optional method.
func (r *Router) HandleNative(pattern string, handler http.HandlerFunc) {
	r.mux.HandleFunc(pattern, handler)
}

// Mount routes the module prefix and everything beneath it to m. Registering
// two modules with the same prefix panics.
func (r *Router) Mount(m *Module) {
	h := stripPrefix(m.prefix, m.Handler())
	r.mux.Handle(m.prefix, h)
	r.mux.Handle(m.prefix+"/", h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if p := req.URL.Path; len(p) > 1 && strings.HasSuffix(p, "/") {
		req.URL.Path = strings.TrimRight(p, "/")
		if req.URL.Path == "" {
			req.URL.Path = "/"
		}
		req.URL.RawPath = ""
	}
	r.mux.ServeHTTP(w, req)
}
