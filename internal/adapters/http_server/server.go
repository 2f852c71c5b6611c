package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

const DefaultTimeout = 15 * time.Second

type Server struct{ mux *chi.Mux }

// New builds the read-only reporting router. timeout <= 0 uses DefaultTimeout.
func New(timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	m := chi.NewRouter()

	// middlewares must be registered before any route
	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(Timeout(timeout))
	m.Use(Metrics)
	m.Use(Logger(log.Logger))

	m.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})
	m.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "the API is read-only")
	})

	return &Server{mux: m}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches an extra handler such as /metrics.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
