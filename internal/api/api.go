// CLAUDE:SUMMARY Core API struct and shared HTTP plumbing — auth endpoints, route registration, engine error mapping, JSON helpers
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/veragraph/veragraph/internal/auth"
	"github.com/veragraph/veragraph/internal/db"
	"github.com/veragraph/veragraph/internal/engine"
	"github.com/veragraph/veragraph/pkg/audit"
)

// handleRe validates handle format: ASCII alphanumeric, underscore, hyphen only.
var handleRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// maxBodySize is the maximum HTTP body size for mutation endpoints.
const maxBodySize = 200 * 1024 // 200KB

// MutationRateLimiter bounds fact-mutation endpoints (60 req/60s per IP).
var MutationRateLimiter = NewRateLimiter(60, 60*time.Second)

type API struct {
	db      *db.DB
	engine  *engine.Engine
	auth    *auth.Auth
	auditor audit.Logger
}

func New(database *db.DB, eng *engine.Engine, a *auth.Auth) *API {
	return &API{db: database, engine: eng, auth: a}
}

// SetAuditor enables transport-level audit logging of mutations.
func (a *API) SetAuditor(l audit.Logger) {
	a.auditor = l
}

func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", a.handleHealth)

	// Auth
	mux.HandleFunc("POST /api/register", a.handleRegister)
	mux.HandleFunc("POST /api/login", a.handleLogin)

	// Graph content
	mux.HandleFunc("POST /api/graphs", a.handleCreateGraph)
	mux.HandleFunc("GET /api/graph/{id}", a.handleGetGraph)
	mux.HandleFunc("GET /api/graph/{id}/lineage", a.handleGraphLineage)
	mux.HandleFunc("POST /api/graph/{id}/nodes", a.handleCreateNode)
	mux.HandleFunc("POST /api/graph/{id}/edges", a.handleCreateEdge)
	mux.HandleFunc("POST /api/sources", a.handleCreateSource)
	mux.HandleFunc("POST /api/source/{id}/refresh", a.handleRefreshSource)
	mux.HandleFunc("POST /api/workflows", a.handleCreateWorkflow)

	// Facts
	rl := func(h http.HandlerFunc) http.HandlerFunc { return RateLimitMiddleware(MutationRateLimiter, h) }
	mux.HandleFunc("POST /api/evidence", rl(a.handleSubmitEvidence))
	mux.HandleFunc("POST /api/evidence/{id}/verification", rl(a.handleVerifyEvidence))
	mux.HandleFunc("POST /api/votes", rl(a.handleCastVote))
	mux.HandleFunc("POST /api/challenges", rl(a.handleRaiseChallenge))
	mux.HandleFunc("POST /api/challenge/{id}/status", rl(a.handleChallengeStatus))
	mux.HandleFunc("POST /api/graph/{id}/steps/{stepID}", rl(a.handleCompleteStep))
	mux.HandleFunc("POST /api/graph/{id}/override", a.handleManualOverride)

	// Derived state
	mux.HandleFunc("GET /api/score/{kind}/{id}", a.handleGetVeracity)
	mux.HandleFunc("GET /api/score/{kind}/{id}/history", a.handleScoreHistory)
	mux.HandleFunc("GET /api/graph/{id}/eligibility", a.handleGetEligibility)
	mux.HandleFunc("GET /api/graph/{id}/promotions", a.handlePromotionHistory)
	mux.HandleFunc("GET /api/graph/{id}/audit", a.handleReviewAudit)
	mux.HandleFunc("GET /api/user/{id}/reputation", a.handleGetReputation)
	mux.HandleFunc("POST /api/user/{id}/reputation/recalculate", a.handleRecalcReputation)
}

// handleHealth verifies the database connection is alive.
func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.db.Ping(); err != nil {
		jsonError(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	jsonResp(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Handle   string `json:"handle"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Handle == "" || req.Password == "" {
		jsonError(w, "handle and password are required", http.StatusBadRequest)
		return
	}
	if len(req.Handle) < 3 || len(req.Handle) > 30 {
		jsonError(w, "handle must be 3-30 characters", http.StatusBadRequest)
		return
	}
	if !handleRe.MatchString(req.Handle) {
		jsonError(w, "handle must contain only ASCII letters, digits, underscore or hyphen", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		jsonError(w, "password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	hash, err := a.auth.HashPassword(req.Password)
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	user, err := a.db.CreateUser(db.CreateUserInput{
		Handle:       req.Handle,
		Email:        req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			jsonError(w, "handle or email already taken", http.StatusConflict)
			return
		}
		slog.Error("creating user", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	token, err := a.auth.GenerateToken(user.ID, user.Handle)
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	jsonResp(w, http.StatusCreated, map[string]any{
		"user":  user,
		"token": token,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Handle   string `json:"handle"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, passwordHash, err := a.db.GetUserByHandle(req.Handle)
	if err != nil {
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if !a.auth.CheckPassword(passwordHash, req.Password) {
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := a.auth.GenerateToken(user.ID, user.Handle)
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	jsonResp(w, http.StatusOK, map[string]any{
		"user":  user,
		"token": token,
	})
}

// engineError maps the engine's error taxonomy onto HTTP statuses. Unknown
// errors are internal and never leak their message.
func engineError(w http.ResponseWriter, err error) {
	switch engine.CodeOf(err) {
	case engine.CodeValidation:
		jsonError(w, err.Error(), http.StatusBadRequest)
	case engine.CodeNotFound:
		jsonError(w, err.Error(), http.StatusNotFound)
	case engine.CodeStateViolation:
		jsonError(w, err.Error(), http.StatusConflict)
	default:
		slog.Error("engine call failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

// auditMutation records a completed mutation on the transport audit trail.
func (a *API) auditMutation(r *http.Request, action, userID string, err error) {
	if a.auditor == nil {
		return
	}
	entry := &audit.Entry{
		Action:    action,
		Transport: "http",
		UserID:    userID,
		RequestID: r.Header.Get("X-Request-Id"),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	a.auditor.LogAsync(entry)
}

func jsonResp(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
