// CLAUDE:SUMMARY Promotion persistence — eligibility record per graph, append-only promotion history and review-audit ledger
package db

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Promotion states.
const (
	StateDraft      = "draft"
	StateIneligible = "ineligible"
	StateEligible   = "eligible"
	StatePromoted   = "promoted"
)

// Promotion events.
const (
	EventAutoPromotion  = "auto_promotion"
	EventManualPromote  = "manual_promotion"
	EventManualDemotion = "manual_demotion"
)

type PromotionEligibility struct {
	GraphID             string    `json:"graph_id"`
	MethodologyScore    float64   `json:"methodology_score"`
	ConsensusScore      float64   `json:"consensus_score"`
	EvidenceQuality     float64   `json:"evidence_quality"`
	ChallengeResolution float64   `json:"challenge_resolution"`
	OverallScore        float64   `json:"overall_score"`
	IsEligible          bool      `json:"is_eligible"`
	BlockingIssues      []string  `json:"blocking_issues"`
	State               string    `json:"state"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type PromotionEvent struct {
	ID                  string    `json:"id"`
	GraphID             string    `json:"graph_id"`
	Event               string    `json:"event"`
	MethodologyScore    float64   `json:"methodology_score"`
	ConsensusScore      float64   `json:"consensus_score"`
	EvidenceQuality     float64   `json:"evidence_quality"`
	ChallengeResolution float64   `json:"challenge_resolution"`
	OverallScore        float64   `json:"overall_score"`
	ActorID             *string   `json:"actor_id,omitempty"`
	Justification       *string   `json:"justification,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

type ReviewAuditEntry struct {
	ID        string    `json:"id"`
	GraphID   string    `json:"graph_id"`
	FactKind  string    `json:"fact_kind"`
	FactID    string    `json:"fact_id"`
	ActorID   *string   `json:"actor_id,omitempty"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// GetPromotionEligibility returns the stored record, or nil before the first
// evaluation.
func GetPromotionEligibility(q Queryer, graphID string) (*PromotionEligibility, error) {
	p := &PromotionEligibility{}
	var eligible int
	var blocking string
	err := q.QueryRow(`
		SELECT graph_id, methodology_score, consensus_score, evidence_quality, challenge_resolution,
			overall_score, is_eligible, blocking_issues, state, updated_at
		FROM promotion_eligibility WHERE graph_id = ?`, graphID).Scan(
		&p.GraphID, &p.MethodologyScore, &p.ConsensusScore, &p.EvidenceQuality, &p.ChallengeResolution,
		&p.OverallScore, &eligible, &blocking, &p.State, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.IsEligible = eligible == 1
	if err := json.Unmarshal([]byte(blocking), &p.BlockingIssues); err != nil {
		p.BlockingIssues = nil
	}
	return p, nil
}

// UpsertPromotionEligibility writes the evaluated record in place. Callers
// must never invoke this for a graph already in the promoted state.
func UpsertPromotionEligibility(q Queryer, p *PromotionEligibility) error {
	blocking, err := json.Marshal(p.BlockingIssues)
	if err != nil {
		return err
	}
	if p.BlockingIssues == nil {
		blocking = []byte("[]")
	}
	_, err = q.Exec(`
		INSERT INTO promotion_eligibility (graph_id, methodology_score, consensus_score, evidence_quality,
			challenge_resolution, overall_score, is_eligible, blocking_issues, state, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(graph_id) DO UPDATE SET
			methodology_score = excluded.methodology_score,
			consensus_score = excluded.consensus_score,
			evidence_quality = excluded.evidence_quality,
			challenge_resolution = excluded.challenge_resolution,
			overall_score = excluded.overall_score,
			is_eligible = excluded.is_eligible,
			blocking_issues = excluded.blocking_issues,
			state = excluded.state,
			updated_at = datetime('now')`,
		p.GraphID, p.MethodologyScore, p.ConsensusScore, p.EvidenceQuality, p.ChallengeResolution,
		p.OverallScore, boolToInt(p.IsEligible), string(blocking), p.State)
	return err
}

// AppendPromotionEvent adds one append-only promotion history row.
func AppendPromotionEvent(q Queryer, e *PromotionEvent) error {
	if e.ID == "" {
		e.ID = NewID()
	}
	_, err := q.Exec(`
		INSERT INTO promotion_history (id, graph_id, event, methodology_score, consensus_score,
			evidence_quality, challenge_resolution, overall_score, actor_id, justification)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.GraphID, e.Event, e.MethodologyScore, e.ConsensusScore,
		e.EvidenceQuality, e.ChallengeResolution, e.OverallScore, e.ActorID, e.Justification)
	return err
}

// PromotionHistory returns all promotion events for a graph, oldest first.
func PromotionHistory(q Queryer, graphID string) ([]*PromotionEvent, error) {
	rows, err := q.Query(`
		SELECT id, graph_id, event, methodology_score, consensus_score, evidence_quality,
			challenge_resolution, overall_score, actor_id, justification, created_at
		FROM promotion_history WHERE graph_id = ?
		ORDER BY created_at ASC, rowid ASC`, graphID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*PromotionEvent
	for rows.Next() {
		e := &PromotionEvent{}
		var actor, justification sql.NullString
		if err := rows.Scan(&e.ID, &e.GraphID, &e.Event, &e.MethodologyScore, &e.ConsensusScore,
			&e.EvidenceQuality, &e.ChallengeResolution, &e.OverallScore, &actor, &justification, &e.CreatedAt); err != nil {
			return nil, err
		}
		if actor.Valid {
			e.ActorID = &actor.String
		}
		if justification.Valid {
			e.Justification = &justification.String
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// AppendReviewAudit adds one transparency-ledger row. One row per evaluated
// event, outcome change or not; same transaction as the triggering mutation.
func AppendReviewAudit(q Queryer, graphID, factKind, factID string, actorID *string, detail any) error {
	detailJSON := "{}"
	if detail != nil {
		if b, err := json.Marshal(detail); err == nil {
			detailJSON = string(b)
		}
	}
	_, err := q.Exec(`
		INSERT INTO promotion_review_audit (id, graph_id, fact_kind, fact_id, actor_id, detail)
		VALUES (?, ?, ?, ?, ?, ?)`,
		NewID(), graphID, factKind, factID, actorID, detailJSON)
	return err
}

// ReviewAudit pages the transparency ledger for a graph by timestamp.
func ReviewAudit(q Queryer, graphID string, after time.Time, limit int) ([]*ReviewAuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.Query(`
		SELECT id, graph_id, fact_kind, fact_id, actor_id, detail, created_at
		FROM promotion_review_audit
		WHERE graph_id = ? AND created_at > ?
		ORDER BY created_at ASC, rowid ASC
		LIMIT ?`, graphID, after.UTC().Format(cursorTimeFormat), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*ReviewAuditEntry
	for rows.Next() {
		e := &ReviewAuditEntry{}
		var actor sql.NullString
		if err := rows.Scan(&e.ID, &e.GraphID, &e.FactKind, &e.FactID, &actor, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		if actor.Valid {
			e.ActorID = &actor.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountPromotionEvents returns the promotion history row count for a graph.
func CountPromotionEvents(q Queryer, graphID string) (int, error) {
	var count int
	err := q.QueryRow(`SELECT COUNT(*) FROM promotion_history WHERE graph_id = ?`, graphID).Scan(&count)
	return count, err
}
