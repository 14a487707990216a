// CLAUDE:SUMMARY Derived-state read endpoints — veracity scores, score history paging, eligibility, promotion history, audit ledger, reputation
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/veragraph/veragraph/internal/db"
)

// parsePaging reads the after/limit pair used by history endpoints. The
// sequence is restartable: clients pass the last seen timestamp to resume.
func parsePaging(r *http.Request) (time.Time, int) {
	var after time.Time
	if s := r.URL.Query().Get("after"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			after = t
		}
	}
	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	return after, limit
}

func (a *API) handleGetVeracity(w http.ResponseWriter, r *http.Request) {
	result, err := a.engine.GetVeracityScore(r.Context(), r.PathValue("kind"), r.PathValue("id"))
	if err != nil {
		engineError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, result)
}

func (a *API) handleScoreHistory(w http.ResponseWriter, r *http.Request) {
	after, limit := parsePaging(r)
	entries, err := a.engine.GetScoreHistory(r.Context(), r.PathValue("kind"), r.PathValue("id"), after, limit)
	if err != nil {
		engineError(w, err)
		return
	}
	if entries == nil {
		entries = []*db.VeracityHistoryEntry{}
	}
	jsonResp(w, http.StatusOK, map[string]any{"history": entries})
}

func (a *API) handleGetEligibility(w http.ResponseWriter, r *http.Request) {
	result, err := a.engine.GetPromotionEligibility(r.Context(), r.PathValue("id"))
	if err != nil {
		engineError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, result)
}

func (a *API) handlePromotionHistory(w http.ResponseWriter, r *http.Request) {
	events, err := a.engine.GetPromotionHistory(r.Context(), r.PathValue("id"))
	if err != nil {
		engineError(w, err)
		return
	}
	if events == nil {
		events = []*db.PromotionEvent{}
	}
	jsonResp(w, http.StatusOK, map[string]any{"events": events})
}

func (a *API) handleReviewAudit(w http.ResponseWriter, r *http.Request) {
	after, limit := parsePaging(r)
	entries, err := a.engine.GetReviewAudit(r.Context(), r.PathValue("id"), after, limit)
	if err != nil {
		engineError(w, err)
		return
	}
	if entries == nil {
		entries = []*db.ReviewAuditEntry{}
	}
	jsonResp(w, http.StatusOK, map[string]any{"entries": entries})
}

func (a *API) handleGetReputation(w http.ResponseWriter, r *http.Request) {
	metrics, err := a.engine.GetReputation(r.Context(), r.PathValue("id"))
	if err != nil {
		engineError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, metrics)
}

func (a *API) handleRecalcReputation(w http.ResponseWriter, r *http.Request) {
	claims := a.auth.ExtractClaims(r)
	if claims == nil {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	metrics, err := a.engine.RecalculateReputation(r.Context(), r.PathValue("id"))
	if err != nil {
		engineError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, metrics)
}
