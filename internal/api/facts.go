// CLAUDE:SUMMARY Fact mutation endpoints — evidence, verification, votes, challenges, workflow steps, manual promotion override
package api

import (
	"encoding/json"
	"net/http"

	"github.com/veragraph/veragraph/internal/engine"
)

func (a *API) handleSubmitEvidence(w http.ResponseWriter, r *http.Request) {
	claims := a.auth.ExtractClaims(r)
	if claims == nil {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req struct {
		TargetKind    string  `json:"target_kind"`
		TargetID      string  `json:"target_id"`
		SourceID      string  `json:"source_id"`
		EvidenceType  string  `json:"evidence_type"`
		BaseWeight    float64 `json:"base_weight"`
		Confidence    float64 `json:"confidence"`
		TimeSensitive bool    `json:"time_sensitive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := a.engine.SubmitEvidence(r.Context(), engine.SubmitEvidenceInput{
		TargetKind:    req.TargetKind,
		TargetID:      req.TargetID,
		SourceID:      req.SourceID,
		EvidenceType:  req.EvidenceType,
		BaseWeight:    req.BaseWeight,
		Confidence:    req.Confidence,
		TimeSensitive: req.TimeSensitive,
		SubmittedBy:   claims.UserID,
	})
	a.auditMutation(r, "submit_evidence", claims.UserID, err)
	if err != nil {
		engineError(w, err)
		return
	}
	jsonResp(w, http.StatusCreated, result)
}

func (a *API) handleVerifyEvidence(w http.ResponseWriter, r *http.Request) {
	claims := a.auth.ExtractClaims(r)
	if claims == nil {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := a.engine.UpdateEvidenceVerification(r.Context(), r.PathValue("id"), req.State, claims.UserID)
	a.auditMutation(r, "verify_evidence", claims.UserID, err)
	if err != nil {
		engineError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, result)
}

func (a *API) handleCastVote(w http.ResponseWriter, r *http.Request) {
	claims := a.auth.ExtractClaims(r)
	if claims == nil {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		TargetKind string  `json:"target_kind"`
		TargetID   string  `json:"target_id"`
		Value      float64 `json:"value"`
		Reasoning  string  `json:"reasoning"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := a.engine.CastVote(r.Context(), engine.CastVoteInput{
		TargetKind: req.TargetKind,
		TargetID:   req.TargetID,
		VoterID:    claims.UserID,
		Value:      req.Value,
		Reasoning:  req.Reasoning,
	})
	a.auditMutation(r, "cast_vote", claims.UserID, err)
	if err != nil {
		engineError(w, err)
		return
	}
	jsonResp(w, http.StatusCreated, result)
}

func (a *API) handleRaiseChallenge(w http.ResponseWriter, r *http.Request) {
	claims := a.auth.ExtractClaims(r)
	if claims == nil {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		TargetKind    string `json:"target_kind"`
		TargetID      string `json:"target_id"`
		ChallengeType string `json:"challenge_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := a.engine.RaiseChallenge(r.Context(), engine.RaiseChallengeInput{
		TargetKind:    req.TargetKind,
		TargetID:      req.TargetID,
		ChallengeType: req.ChallengeType,
		RaisedBy:      claims.UserID,
	})
	a.auditMutation(r, "raise_challenge", claims.UserID, err)
	if err != nil {
		engineError(w, err)
		return
	}
	jsonResp(w, http.StatusCreated, result)
}

func (a *API) handleChallengeStatus(w http.ResponseWriter, r *http.Request) {
	claims := a.auth.ExtractClaims(r)
	if claims == nil {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		Status     string `json:"status"`
		Resolution string `json:"resolution"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := a.engine.UpdateChallengeStatus(r.Context(), r.PathValue("id"), req.Status, req.Resolution, claims.UserID)
	a.auditMutation(r, "update_challenge_status", claims.UserID, err)
	if err != nil {
		engineError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, result)
}

func (a *API) handleCompleteStep(w http.ResponseWriter, r *http.Request) {
	claims := a.auth.ExtractClaims(r)
	if claims == nil {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	result, err := a.engine.CompleteWorkflowStep(r.Context(), r.PathValue("id"), r.PathValue("stepID"), claims.UserID)
	a.auditMutation(r, "complete_workflow_step", claims.UserID, err)
	if err != nil {
		engineError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, result)
}

func (a *API) handleManualOverride(w http.ResponseWriter, r *http.Request) {
	claims := a.auth.ExtractClaims(r)
	if claims == nil {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		Action        string `json:"action"`
		Justification string `json:"justification"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := a.engine.ManualOverride(r.Context(), engine.OverrideInput{
		GraphID:       r.PathValue("id"),
		Action:        req.Action,
		ActorID:       claims.UserID,
		Justification: req.Justification,
	})
	a.auditMutation(r, "manual_override", claims.UserID, err)
	if err != nil {
		engineError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, result)
}
