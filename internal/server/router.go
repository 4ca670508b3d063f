// Package server implements the HTTP server and routing logic.
package server

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/maruel/todod/frontend"
	"github.com/maruel/todod/internal/server/dto"
	"github.com/maruel/todod/internal/server/handlers"
	"github.com/maruel/todod/internal/server/ipgeo"
	"github.com/maruel/todod/internal/server/ratelimit"
)

// Config holds the settings shared by every route.
type Config struct {
	// Version is reported by /api/health.
	Version string
	// MaxRequestBodyBytes limits request bodies. 0 means unlimited.
	MaxRequestBodyBytes int64
	// Limiters may be nil to disable rate limiting.
	Limiters *ratelimit.Limiters
	// IPGeo may be nil.
	IPGeo *ipgeo.Checker
}

// NewRouter creates and configures the HTTP router.
// Serves API endpoints at /api/* and the todo page at /.
func NewRouter(store handlers.TodoStore, cfg *Config) (http.Handler, error) {
	dist, err := fs.Sub(frontend.Files, "dist")
	if err != nil {
		return nil, err
	}
	mux := &http.ServeMux{}
	th := handlers.NewTodoHandler(store)
	hh := handlers.NewHealthHandler(cfg.Version)

	mux.Handle("GET /api/health", Wrap(hh.Health, cfg))
	mux.Handle("GET /api/schema", Wrap(handlers.Schema, cfg))

	mux.Handle("GET /api/todos", Wrap(th.ListTodos, cfg))
	mux.Handle("POST /api/todos", Wrap(th.CreateTodo, cfg))
	mux.Handle("PUT /api/todos/{id}", Wrap(th.UpdateTodo, cfg))
	mux.Handle("DELETE /api/todos/{id}", Wrap(th.DeleteTodo, cfg))

	// Unknown API routes get a JSON error rather than the page.
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		if allow := allowedMethods(mux, r); len(allow) != 0 {
			w.Header().Set("Allow", strings.Join(allow, ", "))
			writeError(r.Context(), w, dto.MethodNotAllowed(r.Method).WithDetail("path", r.URL.Path))
			return
		}
		writeError(r.Context(), w, dto.NotFound("Endpoint").WithDetail("path", r.URL.Path))
	})

	mux.Handle("/", handlers.NewHome(dist))
	return AccessLog(cfg.IPGeo)(mux), nil
}

// apiMethods are the methods probed when building an Allow header.
var apiMethods = []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

// allowedMethods returns the methods for which mux routes r's path to a
// pattern other than the /api/ catch-all.
func allowedMethods(mux *http.ServeMux, r *http.Request) []string {
	var allow []string
	for _, m := range apiMethods {
		if m == r.Method {
			continue
		}
		probe := r.Clone(r.Context())
		probe.Method = m
		if _, pattern := mux.Handler(probe); pattern != "" && pattern != "/api/" {
			allow = append(allow, m)
		}
	}
	return allow
}

// Close releases the limiters and the geolocation database.
func (c *Config) Close() error {
	c.Limiters.Close()
	return c.IPGeo.Close()
}
