// CLAUDE:SUMMARY Veracity score persistence — materialised score per node/edge plus append-only recomputation history
package db

import (
	"database/sql"
	"time"
)

type VeracityScore struct {
	TargetKind      string     `json:"target_kind"`
	TargetID        string     `json:"target_id"`
	GraphID         string     `json:"graph_id"`
	Value           float64    `json:"value"`
	ConsensusScore  float64    `json:"consensus_score"`
	EvidenceQuality float64    `json:"evidence_quality"`
	ChallengeImpact float64    `json:"challenge_impact"`
	CalculatedAt    time.Time  `json:"calculated_at"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

type VeracityHistoryEntry struct {
	ID         string    `json:"id"`
	TargetKind string    `json:"target_kind"`
	TargetID   string    `json:"target_id"`
	OldValue   *float64  `json:"old_value,omitempty"`
	NewValue   float64   `json:"new_value"`
	Delta      float64   `json:"delta"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// GetVeracityScore returns the stored score, or nil when no relevant fact
// has ever touched the target.
func GetVeracityScore(q Queryer, kind, id string) (*VeracityScore, error) {
	v := &VeracityScore{}
	var expires sql.NullTime
	err := q.QueryRow(`
		SELECT target_kind, target_id, graph_id, value, consensus_score, evidence_quality, challenge_impact, calculated_at, expires_at
		FROM veracity_scores WHERE target_kind = ? AND target_id = ?`, kind, id).Scan(
		&v.TargetKind, &v.TargetID, &v.GraphID, &v.Value, &v.ConsensusScore, &v.EvidenceQuality,
		&v.ChallengeImpact, &v.CalculatedAt, &expires)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if expires.Valid {
		v.ExpiresAt = &expires.Time
	}
	return v, nil
}

// UpsertVeracityScore writes the recomputed score in place. Created on first
// relevant fact, recomputed thereafter, never deleted while the target exists.
func UpsertVeracityScore(q Queryer, v *VeracityScore) error {
	_, err := q.Exec(`
		INSERT INTO veracity_scores (target_kind, target_id, graph_id, value, consensus_score, evidence_quality, challenge_impact, calculated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, datetime('now'), ?)
		ON CONFLICT(target_kind, target_id) DO UPDATE SET
			value = excluded.value,
			consensus_score = excluded.consensus_score,
			evidence_quality = excluded.evidence_quality,
			challenge_impact = excluded.challenge_impact,
			calculated_at = datetime('now'),
			expires_at = excluded.expires_at`,
		v.TargetKind, v.TargetID, v.GraphID, v.Value, v.ConsensusScore, v.EvidenceQuality,
		v.ChallengeImpact, v.ExpiresAt)
	return err
}

// AppendVeracityHistory adds one append-only history row.
func AppendVeracityHistory(q Queryer, e *VeracityHistoryEntry) error {
	if e.ID == "" {
		e.ID = NewID()
	}
	_, err := q.Exec(`
		INSERT INTO veracity_score_history (id, target_kind, target_id, old_value, new_value, delta, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TargetKind, e.TargetID, e.OldValue, e.NewValue, e.Delta, e.Reason)
	return err
}

// VeracityHistory pages history entries for one target by timestamp,
// oldest first. Pass a zero time to start from the beginning.
func VeracityHistory(q Queryer, kind, id string, after time.Time, limit int) ([]*VeracityHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.Query(`
		SELECT id, target_kind, target_id, old_value, new_value, delta, reason, created_at
		FROM veracity_score_history
		WHERE target_kind = ? AND target_id = ? AND created_at > ?
		ORDER BY created_at ASC, rowid ASC
		LIMIT ?`, kind, id, after.UTC().Format(cursorTimeFormat), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*VeracityHistoryEntry
	for rows.Next() {
		e := &VeracityHistoryEntry{}
		var old sql.NullFloat64
		if err := rows.Scan(&e.ID, &e.TargetKind, &e.TargetID, &old, &e.NewValue, &e.Delta, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		if old.Valid {
			e.OldValue = &old.Float64
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountVeracityHistory returns the history row count for a target.
func CountVeracityHistory(q Queryer, kind, id string) (int, error) {
	var count int
	err := q.QueryRow(`
		SELECT COUNT(*) FROM veracity_score_history WHERE target_kind = ? AND target_id = ?`,
		kind, id).Scan(&count)
	return count, err
}
