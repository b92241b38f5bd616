package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"budget/internal/auth"
	"budget/internal/log"
	"budget/internal/storage"
)

// layout is embedded in every page's data for the shared header.
type layout struct {
	Title string
	User  auth.Principal
}

func newLayout(title string, p auth.Principal) layout {
	return layout{Title: title, User: p}
}

func (s *Server) page(name string, data any) *PageResponse {
	return NewPageResponse(s.templates, name, data)
}

// fail maps a service error to a response. storage.ErrNotFound covers
// both missing rows and rows owned by someone else.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		NotFoundError().Write(w)
		return
	}
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
		log.FieldOperation, op,
		log.FieldError, err.Error())
	InternalServerError().Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed",
				log.FieldError, err.Error())
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("database unavailable"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
