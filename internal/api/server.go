// Package api exposes the listener-management and control endpoints. None
// of the handlers block on a pipeline run; a manual check is handed to the
// background orchestrator and acknowledged immediately.
package api

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/TheOneAtFault/auction-monitor/internal/notify"
	"github.com/TheOneAtFault/auction-monitor/internal/observability"
	"github.com/TheOneAtFault/auction-monitor/internal/storage"
)

type Server struct {
	repo     storage.Repository
	notifier notify.Notifier
	trigger  func()
	logger   *observability.Logger
}

// NewServer builds the API surface. trigger starts a background auction
// check and must return immediately.
func NewServer(repo storage.Repository, notifier notify.Notifier, trigger func(), logger *observability.Logger) *Server {
	return &Server{
		repo:     repo,
		notifier: notifier,
		trigger:  trigger,
		logger:   logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/listeners", s.handleAddListener)
		r.Get("/listeners/{email}", s.handleGetListeners)
		r.Delete("/listeners/{id}", s.handleDeleteListener)
		r.Post("/test-email", s.handleTestEmail)
		r.Post("/manual-check", s.handleManualCheck)
		r.Get("/stats", s.handleStats)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "running",
		"message": "Auction Monitor API is running",
	})
}

type listenerRequest struct {
	Email      string `json:"email"`
	SearchTerm string `json:"search_term"`
}

type listenerResponse struct {
	ID         int64  `json:"id"`
	Email      string `json:"email"`
	SearchTerm string `json:"search_term"`
	CreatedAt  string `json:"created_at,omitempty"`
	Active     bool   `json:"active"`
}

func (s *Server) handleAddListener(w http.ResponseWriter, r *http.Request) {
	var req listenerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	term := strings.TrimSpace(req.SearchTerm)

	if email == "" || term == "" {
		writeError(w, http.StatusBadRequest, "email and search term are required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}
	if len(term) < 2 {
		writeError(w, http.StatusBadRequest, "search term must be at least 2 characters long")
		return
	}

	listener, created, err := s.repo.CreateListener(r.Context(), email, term)
	if err != nil {
		s.logger.Error("Failed to create listener", "email", email, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !created {
		writeError(w, http.StatusConflict, "this email and search term combination already exists")
		return
	}

	s.logger.Info("New listener added", "email", email, "term", term)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "listener added successfully",
		"listener": listenerResponse{
			ID:         listener.ID,
			Email:      listener.Email,
			SearchTerm: listener.SearchTerm,
			Active:     listener.Active,
		},
	})
}

func (s *Server) handleGetListeners(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if _, err := mail.ParseAddress(email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}

	listeners, err := s.repo.GetListenersByEmail(r.Context(), email)
	if err != nil {
		s.logger.Error("Failed to list listeners", "email", email, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]listenerResponse, 0, len(listeners))
	for _, l := range listeners {
		resp = append(resp, listenerResponse{
			ID:         l.ID,
			Email:      l.Email,
			SearchTerm: l.SearchTerm,
			CreatedAt:  l.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			Active:     l.Active,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"listeners": resp})
}

func (s *Server) handleDeleteListener(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid listener id")
		return
	}

	deleted, err := s.repo.DeactivateListener(r.Context(), id)
	if err != nil {
		s.logger.Error("Failed to delete listener", "id", id, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "listener not found")
		return
	}

	s.logger.Info("Listener deactivated", "id", id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "listener deleted successfully"})
}

func (s *Server) handleTestEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}

	if err := s.notifier.SendTest(strings.TrimSpace(req.Email)); err != nil {
		s.logger.Error("Test email failed", "recipient", req.Email, "error", err.Error())
		writeError(w, http.StatusBadGateway, "failed to send test email")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "test email sent"})
}

func (s *Server) handleManualCheck(w http.ResponseWriter, _ *http.Request) {
	s.trigger()
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "auction check started"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	listeners, err := s.repo.GetActiveListeners(ctx)
	if err != nil {
		s.logger.Error("Failed to load stats", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	items, err := s.repo.CountItems(ctx)
	if err != nil {
		s.logger.Error("Failed to load stats", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	notifications, err := s.repo.CountNotifications(ctx)
	if err != nil {
		s.logger.Error("Failed to load stats", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"active_listeners":   len(listeners),
		"auction_items":      items,
		"notifications_sent": notifications,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
