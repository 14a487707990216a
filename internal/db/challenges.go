// CLAUDE:SUMMARY Challenge records — disputes against nodes/edges, status transitions, open-challenge counts per target and graph
package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Challenge statuses. "pending" is the only non-terminal state; every
// challenge must reach a terminal status before its graph can promote.
const (
	ChallengePending  = "pending"
	ChallengeAccepted = "accepted"
	ChallengeRejected = "rejected"
	ChallengeResolved = "resolved"
)

type Challenge struct {
	ID            string     `json:"id"`
	GraphID       string     `json:"graph_id"`
	TargetKind    string     `json:"target_kind"`
	TargetID      string     `json:"target_id"`
	ChallengeType string     `json:"challenge_type"`
	Status        string     `json:"status"`
	RaisedBy      string     `json:"raised_by"`
	Resolution    *string    `json:"resolution,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

type InsertChallengeInput struct {
	GraphID       string
	TargetKind    string
	TargetID      string
	ChallengeType string
	RaisedBy      string
}

func InsertChallenge(q Queryer, in InsertChallengeInput) (string, error) {
	id := NewID()
	_, err := q.Exec(`
		INSERT INTO challenges (id, graph_id, target_kind, target_id, challenge_type, status, raised_by)
		VALUES (?, ?, ?, ?, ?, 'pending', ?)`,
		id, in.GraphID, in.TargetKind, in.TargetID, in.ChallengeType, in.RaisedBy)
	if err != nil {
		return "", fmt.Errorf("inserting challenge: %w", err)
	}
	return id, nil
}

func GetChallenge(q Queryer, id string) (*Challenge, error) {
	c := &Challenge{}
	var resolution sql.NullString
	var resolvedAt sql.NullTime
	err := q.QueryRow(`
		SELECT id, graph_id, target_kind, target_id, challenge_type, status, raised_by, resolution, created_at, resolved_at
		FROM challenges WHERE id = ?`, id).Scan(
		&c.ID, &c.GraphID, &c.TargetKind, &c.TargetID, &c.ChallengeType, &c.Status, &c.RaisedBy,
		&resolution, &c.CreatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	if resolution.Valid {
		c.Resolution = &resolution.String
	}
	if resolvedAt.Valid {
		c.ResolvedAt = &resolvedAt.Time
	}
	return c, nil
}

// SetChallengeStatus transitions a challenge. Terminal transitions stamp
// resolved_at.
func SetChallengeStatus(q Queryer, id, status string, resolution *string) error {
	var res sql.Result
	var err error
	if status == ChallengePending {
		res, err = q.Exec(`UPDATE challenges SET status = ?, resolution = NULL, resolved_at = NULL WHERE id = ?`, status, id)
	} else {
		res, err = q.Exec(`UPDATE challenges SET status = ?, resolution = ?, resolved_at = datetime('now') WHERE id = ?`,
			status, resolution, id)
	}
	if err != nil {
		return fmt.Errorf("updating challenge status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// OpenChallengesForTarget counts pending challenges against one node/edge.
func OpenChallengesForTarget(q Queryer, kind, id string) (int, error) {
	var count int
	err := q.QueryRow(`
		SELECT COUNT(*) FROM challenges
		WHERE target_kind = ? AND target_id = ? AND status = 'pending'`, kind, id).Scan(&count)
	return count, err
}

// OpenChallengesForGraph counts pending challenges anywhere in a graph.
func OpenChallengesForGraph(q Queryer, graphID string) (int, error) {
	var count int
	err := q.QueryRow(`
		SELECT COUNT(*) FROM challenges
		WHERE graph_id = ? AND status = 'pending'`, graphID).Scan(&count)
	return count, err
}
