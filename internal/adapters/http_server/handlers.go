// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"fintech_reviews/internal/app"
	"fintech_reviews/internal/domain"
)

type Handlers struct{ Q *app.QueryService }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/sources", h.listSources)
	s.mux.Get("/v1/sources/{name}/report", h.sourceReport)
	s.mux.Get("/v1/report", h.overview)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeQueryError maps domain.ErrNotFound to 404 and anything else to 500.
func writeQueryError(w http.ResponseWriter, r *http.Request, err error, what string) {
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", what+" not found")
		return
	}
	log.Error().Err(err).Str("path", r.URL.Path).Msg("query failed")
	writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "could not load "+what)
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCached writes v as JSON with a weak ETag, answering 304 when the client already has it.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "could not encode response")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func (h *Handlers) listSources(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.Totals(r.Context())
	if err != nil {
		writeQueryError(w, r, err, "sources")
		return
	}
	if out == nil {
		out = []domain.SourceTotals{}
	}
	writeCached(w, r, out)
}

func (h *Handlers) sourceReport(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid source", "source name is required")
		return
	}
	out, err := h.Q.SourceReport(r.Context(), name)
	if err != nil {
		writeQueryError(w, r, err, "source")
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) overview(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.Overview(r.Context())
	if err != nil {
		writeQueryError(w, r, err, "report")
		return
	}
	writeCached(w, r, out)
}
