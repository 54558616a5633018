// Package api exposes the points engine over HTTP. It is a thin layer: it
// resolves the caller identity from the X-Caller-ID header, delegates to the
// economy engine, and maps domain errors onto HTTP status codes. No business
// rule lives here.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/guildnet/guildpoints/internal/app/economy"
	"github.com/guildnet/guildpoints/internal/domain"
)

// Server is the guildpoints HTTP API server.
type Server struct {
	engine         *economy.Service
	metricsEnabled bool
	ledgerHub      *LedgerHub
}

// NewServer creates a new API server around the economy engine.
func NewServer(engine *economy.Service) *Server {
	return &Server{engine: engine, ledgerHub: NewLedgerHub()}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// LedgerHub returns the live ledger feed hub.
func (s *Server) LedgerHub() *LedgerHub { return s.ledgerHub }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": "0.1.0"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Accounts
		r.Post("/accounts", s.handleEnsureAccount)
		r.Get("/accounts", s.handleListAccounts)
		r.Get("/accounts/{id}", s.handleGetAccount)
		r.Get("/accounts/{id}/balance", s.handleBalance)
		r.Get("/accounts/{id}/ledger", s.handleStatement)
		r.Post("/accounts/{id}/promote", s.handlePromote)
		r.Post("/accounts/{id}/demote", s.handleDemote)
		r.Post("/accounts/{id}/move-tasks", s.handleGrantMoveTasks)
		r.Post("/accounts/{id}/adjust", s.handleAdjustPoints)
		r.Get("/accounts/{id}/requests", s.handleRequestsBy)

		// Task board
		r.Get("/tasks", s.handleBoard)
		r.Post("/tasks", s.handleCreateTask)
		r.Post("/tasks/{id}/assign", s.handleAssign)
		r.Post("/tasks/{id}/transition", s.handleTransition)
		r.Post("/tasks/{id}/complete", s.handleComplete)

		// Partner requests
		r.Post("/requests", s.handleSubmitRequest)
		r.Get("/requests/pending", s.handlePendingRequests)
		r.Post("/requests/{id}/approve", s.handleApproveRequest)

		// Shop
		r.Get("/products", s.handleCatalog)
		r.Post("/products", s.handleCreateProduct)
		r.Put("/products/{id}", s.handleUpdateProduct)
		r.Delete("/products/{id}", s.handleDeactivateProduct)
		r.Post("/products/{id}/purchase", s.handlePurchase)

		// Admin views
		r.Get("/ledger/recent", s.handleRecentTransactions)
		r.Get("/audit", s.handleAuditTrail)

		// Live ledger feed
		r.Get("/ledger/live", s.ledgerHub.HandleSSE)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// callerID resolves the authenticated identity. Identity issuance is
// external; the engine trusts the gateway that set the header.
func callerID(r *http.Request) string {
	return r.Header.Get("X-Caller-ID")
}

// requireCaller writes a 401 and returns "" if no identity was supplied.
func requireCaller(w http.ResponseWriter, r *http.Request) string {
	id := callerID(r)
	if id == "" {
		writeError(w, http.StatusUnauthorized, "missing X-Caller-ID header")
	}
	return id
}

// writeDomainError maps an engine error onto an HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrPrecondition):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeBody decodes a JSON request body, rejecting malformed input.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Caller-ID")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
