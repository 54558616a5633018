package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/guildnet/guildpoints/internal/domain"
)

// ─── Account Handlers ───────────────────────────────────────────────────────

// handleEnsureAccount registers an externally issued identity.
// POST /api/v1/accounts
func (s *Server) handleEnsureAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Role     string `json:"role"`
		Category string `json:"category"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	role := domain.Role(req.Role)
	if role == "" {
		role = domain.RoleMember
	}
	category := domain.Category(req.Category)
	if category == "" {
		category = domain.CategoryJunior
	}

	a, err := s.engine.EnsureAccount(r.Context(), req.ID, req.Name, role, category)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// GET /api/v1/accounts
func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.engine.ListAccounts(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

// GET /api/v1/accounts/{id}
func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := s.engine.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// GET /api/v1/accounts/{id}/balance
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	bal, err := s.engine.BalanceOf(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account_id": id, "balance": bal})
}

// GET /api/v1/accounts/{id}/ledger
func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	caller := requireCaller(w, r)
	if caller == "" {
		return
	}
	entries, err := s.engine.AccountStatement(r.Context(), chi.URLParam(r, "id"), caller)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// POST /api/v1/accounts/{id}/promote
func (s *Server) handlePromote(w http.ResponseWriter, r *http.Request) {
	caller := requireCaller(w, r)
	if caller == "" {
		return
	}
	if err := s.engine.PromoteToAdmin(r.Context(), chi.URLParam(r, "id"), caller); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// POST /api/v1/accounts/{id}/demote
func (s *Server) handleDemote(w http.ResponseWriter, r *http.Request) {
	caller := requireCaller(w, r)
	if caller == "" {
		return
	}
	if err := s.engine.DemoteToMember(r.Context(), chi.URLParam(r, "id"), caller); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// POST /api/v1/accounts/{id}/move-tasks
func (s *Server) handleGrantMoveTasks(w http.ResponseWriter, r *http.Request) {
	caller := requireCaller(w, r)
	if caller == "" {
		return
	}
	var req struct {
		CanMoveTasks bool `json:"can_move_tasks"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.engine.GrantMoveTasks(r.Context(), chi.URLParam(r, "id"), req.CanMoveTasks, caller); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// POST /api/v1/accounts/{id}/adjust
func (s *Server) handleAdjustPoints(w http.ResponseWriter, r *http.Request) {
	caller := requireCaller(w, r)
	if caller == "" {
		return
	}
	var req struct {
		Delta int64  `json:"delta"`
		Note  string `json:"note"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	entry, err := s.engine.AdjustPoints(r.Context(), chi.URLParam(r, "id"), req.Delta, req.Note, caller)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.ledgerHub.BroadcastEntry(*entry)
	writeJSON(w, http.StatusOK, entry)
}

// GET /api/v1/accounts/{id}/requests
func (s *Server) handleRequestsBy(w http.ResponseWriter, r *http.Request) {
	caller := requireCaller(w, r)
	if caller == "" {
		return
	}
	tasks, err := s.engine.RequestsBy(r.Context(), chi.URLParam(r, "id"), caller)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": tasks})
}

// ─── Task Board Handlers ────────────────────────────────────────────────────

// GET /api/v1/tasks
func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.engine.BoardTasks(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// POST /api/v1/tasks
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	caller := requireCaller(w, r)
	if caller == "" {
		return
	}
	var req struct {
		Title            string `json:"title"`
		Description      string `json:"description"`
		PointsReward     int64  `json:"points_reward"`
		CategoryRequired string `json:"category_required"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := s.engine.CreateTask(r.Context(), req.Title, req.Description, req.PointsReward, domain.Category(req.CategoryRequired), caller)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// POST /api/v1/tasks/{id}/assign
func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	caller := requireCaller(w, r)
	if caller == "" {
		return
	}
	var req struct {
		AccountID string `json:"account_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := s.engine.Assign(r.Context(), chi.URLParam(r, "id"), req.AccountID, caller)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// POST /api/v1/tasks/{id}/transition
func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	caller := requireCaller(w, r)
	if caller == "" {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := s.engine.Transition(r.Context(), chi.URLParam(r, "id"), domain.TaskStatus(req.Status), caller)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// POST /api/v1/tasks/{id}/complete
func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	caller := requireCaller(w, r)
	if caller == "" {
		return
	}
	out, err := s.engine.Complete(r.Context(), chi.URLParam(r, "id"), caller)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.ledgerHub.BroadcastEntry(out.Entry)
	writeJSON(w, http.StatusOK, out)
}

// ─── Partner Request Handlers ───────────────────────────────────────────────

// POST /api/v1/requests
func (s *Server) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	caller := requireCaller(w, r)
	if caller == "" {
		return
	}
	var req struct {
		Title           string `json:"title"`
		Description     string `json:"description"`
		SuggestedReward int64  `json:"suggested_reward"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := s.engine.SubmitRequest(r.Context(), req.Title, req.Description, req.SuggestedReward, caller)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// GET /api/v1/requests/pending
func (s *Server) handlePendingRequests(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.engine.PendingRequests(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": tasks})
}

// POST /api/v1/requests/{id}/approve
func (s *Server) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	caller := requireCaller(w, r)
	if caller == "" {
		return
	}
	var req struct {
		FinalReward int64 `json:"final_reward"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := s.engine.ApproveRequest(r.Context(), chi.URLParam(r, "id"), req.FinalReward, caller)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ─── Shop Handlers ──────────────────────────────────────────────────────────

// GET /api/v1/products
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	products, err := s.engine.Catalog(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

// POST /api/v1/products
func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	caller := requireCaller(w, r)
	if caller == "" {
		return
	}
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		PricePoints int64  `json:"price_points"`
		Stock       int64  `json:"stock"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := s.engine.CreateProduct(r.Context(), req.Name, req.Description, req.PricePoints, req.Stock, caller)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// PUT /api/v1/products/{id}
func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	caller := requireCaller(w, r)
	if caller == "" {
		return
	}
	var p domain.Product
	if !decodeBody(w, r, &p) {
		return
	}
	p.ID = chi.URLParam(r, "id")
	if err := s.engine.UpdateProduct(r.Context(), p, caller); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DELETE /api/v1/products/{id}
func (s *Server) handleDeactivateProduct(w http.ResponseWriter, r *http.Request) {
	caller := requireCaller(w, r)
	if caller == "" {
		return
	}
	if err := s.engine.DeactivateProduct(r.Context(), chi.URLParam(r, "id"), caller); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePurchase exchanges points for one unit of stock. Business failures
// (insufficient points, out of stock) are a 200 with success=false; only
// infrastructure and authorization problems use error statuses.
// POST /api/v1/products/{id}/purchase
func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	caller := requireCaller(w, r)
	if caller == "" {
		return
	}
	res, err := s.engine.Purchase(r.Context(), chi.URLParam(r, "id"), caller)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if res.Success && res.Entry != nil {
		s.ledgerHub.BroadcastEntry(*res.Entry)
	}
	writeJSON(w, http.StatusOK, res)
}

// ─── Admin View Handlers ────────────────────────────────────────────────────

// GET /api/v1/ledger/recent
func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	caller := requireCaller(w, r)
	if caller == "" {
		return
	}
	entries, err := s.engine.RecentTransactions(r.Context(), caller)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// GET /api/v1/audit?limit=N
func (s *Server) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	caller := requireCaller(w, r)
	if caller == "" {
		return
	}
	records, err := s.engine.AuditTrail(r.Context(), caller)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 && n < len(records) {
			records = records[:n]
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}
