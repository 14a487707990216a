// CLAUDE:SUMMARY Full promotion lifecycle over HTTP — workflow, graph, evidence, votes, step completion, auto-promotion
package e2e

import (
	"net/http"
	"testing"
)

// TestPromotionLifecycle walks a graph from draft to trusted through the
// public API: methodology workflow, claim node, accepted evidence, a
// consensus vote, and step completions that trigger auto-promotion.
func TestPromotionLifecycle(t *testing.T) {
	h := ensureHarness(t)

	aliceToken, _ := h.Register(t, Users.Alice.Handle, Users.Alice.Password)
	bobToken, _ := h.Register(t, Users.Bob.Handle, Users.Bob.Password)

	// Methodology workflow with two required steps.
	var workflow struct {
		ID    string `json:"id"`
		Steps []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"steps"`
	}
	resp, err := h.JSON("POST", "/api/workflows", map[string]interface{}{
		"name":  "peer review",
		"steps": []string{"source review", "cross check"},
	}, aliceToken, &workflow)
	if err != nil {
		t.Fatalf("create workflow: %v", err)
	}
	RequireStatus(t, resp, http.StatusCreated)
	if len(workflow.Steps) != 2 {
		t.Fatalf("workflow steps = %d, want 2", len(workflow.Steps))
	}

	graphID := h.CreateGraph(t, aliceToken, "climate claims", workflow.ID)
	nodeID := h.CreateNode(t, aliceToken, graphID, ClaimSimple)
	sourceID := h.CreateSource(t, aliceToken, "document")

	// Supporting evidence lands a veracity score synchronously.
	var evResult struct {
		Veracity *struct {
			Value          float64 `json:"value"`
			ConsensusScore float64 `json:"consensus_score"`
		} `json:"veracity"`
		Promoted bool `json:"promoted"`
	}
	resp, err = h.JSON("POST", "/api/evidence", map[string]interface{}{
		"target_kind":   "node",
		"target_id":     nodeID,
		"source_id":     sourceID,
		"evidence_type": "supporting",
		"base_weight":   1.0,
		"confidence":    1.0,
	}, aliceToken, &evResult)
	if err != nil {
		t.Fatalf("submit evidence: %v", err)
	}
	RequireStatus(t, resp, http.StatusCreated)
	if evResult.Veracity == nil {
		t.Fatal("evidence response carried no veracity score")
	}
	if evResult.Veracity.Value != 1.0 {
		t.Errorf("veracity after unopposed supporting evidence = %v, want 1.0", evResult.Veracity.Value)
	}
	if evResult.Promoted {
		t.Error("graph promoted before methodology completion")
	}

	// Evidence ID comes back on the evidence leg of the response.
	var evID string
	{
		var full struct {
			Evidence struct {
				ID string `json:"id"`
			} `json:"evidence"`
		}
		resp2, err := h.JSON("POST", "/api/evidence", map[string]interface{}{
			"target_kind":   "node",
			"target_id":     nodeID,
			"source_id":     sourceID,
			"evidence_type": "supporting",
			"base_weight":   0.8,
			"confidence":    0.9,
		}, aliceToken, &full)
		if err != nil {
			t.Fatalf("second evidence: %v", err)
		}
		RequireStatus(t, resp2, http.StatusCreated)
		evID = full.Evidence.ID
	}

	resp, err = h.JSON("POST", "/api/evidence/"+evID+"/verification", map[string]string{
		"state": "accepted",
	}, bobToken, nil)
	if err != nil {
		t.Fatalf("verify evidence: %v", err)
	}
	RequireStatus(t, resp, http.StatusOK)

	// Bob agrees with the claim.
	resp, err = h.JSON("POST", "/api/votes", map[string]interface{}{
		"target_kind": "node",
		"target_id":   nodeID,
		"value":       1.0,
	}, bobToken, nil)
	if err != nil {
		t.Fatalf("cast vote: %v", err)
	}
	RequireStatus(t, resp, http.StatusCreated)

	// Methodology incomplete: eligibility blocked.
	var elig struct {
		State            string   `json:"state"`
		IsEligible       bool     `json:"is_eligible"`
		MethodologyScore float64  `json:"methodology_score"`
		BlockingIssues   []string `json:"blocking_issues"`
	}
	resp, err = h.JSON("GET", "/api/graph/"+graphID+"/eligibility", nil, "", &elig)
	if err != nil {
		t.Fatalf("get eligibility: %v", err)
	}
	RequireStatus(t, resp, http.StatusOK)
	if elig.IsEligible {
		t.Error("graph eligible before any workflow step completed")
	}

	// Completing all steps triggers auto-promotion on the last one.
	var promoted bool
	for _, step := range workflow.Steps {
		var stepResult struct {
			Promoted bool `json:"promoted"`
		}
		resp, err = h.JSON("POST", "/api/graph/"+graphID+"/steps/"+step.ID, nil, aliceToken, &stepResult)
		if err != nil {
			t.Fatalf("complete step %s: %v", step.Name, err)
		}
		RequireStatus(t, resp, http.StatusOK)
		promoted = stepResult.Promoted
	}
	if !promoted {
		t.Fatal("graph not promoted after completing all workflow steps")
	}

	var graph struct {
		Level      int     `json:"level"`
		PromotedAt *string `json:"promoted_at"`
	}
	resp, err = h.JSON("GET", "/api/graph/"+graphID, nil, "", &graph)
	if err != nil {
		t.Fatalf("get graph: %v", err)
	}
	RequireStatus(t, resp, http.StatusOK)
	if graph.Level != 0 {
		t.Errorf("promoted graph level = %d, want 0", graph.Level)
	}
	if graph.PromotedAt == nil {
		t.Error("promoted graph has no promoted_at timestamp")
	}

	// Promoted graphs refuse structural mutation.
	resp, err = h.Do("POST", "/api/graph/"+graphID+"/nodes", map[string]string{
		"label": ClaimContested,
	}, aliceToken)
	if err != nil {
		t.Fatalf("mutate promoted graph: %v", err)
	}
	RequireStatus(t, resp, http.StatusConflict)
	resp.Body.Close()

	// The promotion itself is on the record.
	var events struct {
		Events []struct {
			Event string `json:"event"`
		} `json:"events"`
	}
	resp, err = h.JSON("GET", "/api/graph/"+graphID+"/promotions", nil, "", &events)
	if err != nil {
		t.Fatalf("promotion history: %v", err)
	}
	RequireStatus(t, resp, http.StatusOK)
	if len(events.Events) != 1 || events.Events[0].Event != "auto_promotion" {
		t.Errorf("promotion events = %+v, want one auto_promotion", events.Events)
	}

	// Every fact that touched the graph is in the review ledger.
	var ledger struct {
		Entries []struct {
			FactKind string `json:"fact_kind"`
		} `json:"entries"`
	}
	resp, err = h.JSON("GET", "/api/graph/"+graphID+"/audit", nil, "", &ledger)
	if err != nil {
		t.Fatalf("review audit: %v", err)
	}
	RequireStatus(t, resp, http.StatusOK)
	// 2 evidence + 1 verification + 1 vote + 2 steps
	if len(ledger.Entries) < 6 {
		t.Errorf("review ledger has %d entries, want at least 6", len(ledger.Entries))
	}
}

// TestChallengeOverHTTP raises and resolves a dispute and watches the
// veracity score move both ways.
func TestChallengeOverHTTP(t *testing.T) {
	h := ensureHarness(t)

	carolToken, _ := h.Register(t, Users.Carol.Handle, Users.Carol.Password)

	// An uncompleted workflow keeps the graph draft-side so challenge
	// effects stay observable on a mutable graph.
	var workflow struct {
		ID string `json:"id"`
	}
	resp0, err := h.JSON("POST", "/api/workflows", map[string]interface{}{
		"name":  "replication",
		"steps": []string{"independent replication"},
	}, carolToken, &workflow)
	if err != nil {
		t.Fatalf("create workflow: %v", err)
	}
	RequireStatus(t, resp0, http.StatusCreated)

	graphID := h.CreateGraph(t, carolToken, "contested claims", workflow.ID)
	nodeID := h.CreateNode(t, carolToken, graphID, ClaimContested)
	sourceID := h.CreateSource(t, carolToken, "url")

	resp, err := h.Do("POST", "/api/evidence", map[string]interface{}{
		"target_kind":   "node",
		"target_id":     nodeID,
		"source_id":     sourceID,
		"evidence_type": "supporting",
		"base_weight":   1.0,
		"confidence":    1.0,
	}, carolToken)
	if err != nil {
		t.Fatalf("submit evidence: %v", err)
	}
	RequireStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	var chResult struct {
		Challenge struct {
			ID string `json:"id"`
		} `json:"challenge"`
		Veracity struct {
			Value           float64 `json:"value"`
			ChallengeImpact float64 `json:"challenge_impact"`
		} `json:"veracity"`
	}
	resp, err = h.JSON("POST", "/api/challenges", map[string]interface{}{
		"target_kind":    "node",
		"target_id":      nodeID,
		"challenge_type": "factual_dispute",
	}, carolToken, &chResult)
	if err != nil {
		t.Fatalf("raise challenge: %v", err)
	}
	RequireStatus(t, resp, http.StatusCreated)
	if chResult.Veracity.Value != 0.95 {
		t.Errorf("veracity under one open challenge = %v, want 0.95", chResult.Veracity.Value)
	}

	var resolved struct {
		Veracity struct {
			Value float64 `json:"value"`
		} `json:"veracity"`
	}
	resp, err = h.JSON("POST", "/api/challenge/"+chResult.Challenge.ID+"/status", map[string]string{
		"status":     "rejected",
		"resolution": "no credible counter-source provided",
	}, carolToken, &resolved)
	if err != nil {
		t.Fatalf("resolve challenge: %v", err)
	}
	RequireStatus(t, resp, http.StatusOK)
	if resolved.Veracity.Value != 1.0 {
		t.Errorf("veracity after resolution = %v, want 1.0", resolved.Veracity.Value)
	}

	// Score history recorded both transitions plus the initial evidence.
	var history struct {
		History []struct {
			Reason string `json:"reason"`
		} `json:"history"`
	}
	resp, err = h.JSON("GET", "/api/score/node/"+nodeID+"/history", nil, "", &history)
	if err != nil {
		t.Fatalf("score history: %v", err)
	}
	RequireStatus(t, resp, http.StatusOK)
	if len(history.History) != 3 {
		t.Errorf("history entries = %d, want 3", len(history.History))
	}
}
