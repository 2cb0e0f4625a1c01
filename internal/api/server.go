// Package api exposes the intake flow over HTTP: the form endpoints drive
// the cascading selection per session, the admin endpoints cover the
// history screen.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luisalpizar/crm-intake/internal/intake"
	"github.com/luisalpizar/crm-intake/internal/session"
)

const sessionCookie = "intake_session"

// Server provides the HTTP surface of the intake service.
type Server struct {
	svc        *intake.Service
	sessions   session.Store
	adminToken string
	log        *slog.Logger
	server     *http.Server
}

// NewServer wires routes onto a fresh mux.
func NewServer(
	svc *intake.Service,
	sessions session.Store,
	adminToken string,
	port int,
	log *slog.Logger,
) *Server {
	mux := http.NewServeMux()
	s := &Server{
		svc:        svc,
		sessions:   sessions,
		adminToken: adminToken,
		log:        log,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("GET /api/form", s.handleGetForm)
	mux.HandleFunc("POST /api/form/{field}", s.handleSetField)
	mux.HandleFunc("POST /api/requests", s.handleSubmit)
	mux.HandleFunc("POST /api/requests/{id}/satisfaction", s.handleSatisfaction)

	mux.HandleFunc("POST /api/admin/login", s.handleAdminLogin)
	mux.HandleFunc("POST /api/admin/logout", s.handleAdminLogout)
	mux.HandleFunc("GET /api/admin/requests", s.requireAdmin(s.handleAdminList))
	mux.HandleFunc("DELETE /api/admin/requests/{id}", s.requireAdmin(s.handleAdminDelete))
	mux.HandleFunc("PATCH /api/admin/requests/{id}/status", s.requireAdmin(s.handleAdminStatus))

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// loadSession finds the visitor's session or starts a new one, setting the
// cookie on the way out.
func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (*session.State, error) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		state, err := s.sessions.Get(r.Context(), cookie.Value)
		if err == nil {
			return state, nil
		}
		if err != session.ErrNotFound {
			return nil, err
		}
	}

	state := session.NewState()
	if err := s.sessions.Save(r.Context(), state); err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    state.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return state, nil
}

func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := s.loadSession(w, r)
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		if !state.AdminAuthed {
			writeError(w, http.StatusUnauthorized, "admin login required")
			return
		}
		next(w, r)
	}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error("Request failed", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
