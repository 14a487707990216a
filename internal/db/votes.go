package db

import (
	"database/sql"
	"fmt"
	"time"
)

// ConsensusVote is one vote on a node, edge or graph. The weight column is a
// cast-time reputation snapshot; it is never recomputed.
type ConsensusVote struct {
	ID         string    `json:"id"`
	GraphID    string    `json:"graph_id"`
	TargetKind string    `json:"target_kind"`
	TargetID   string    `json:"target_id"`
	VoterID    string    `json:"voter_id"`
	Value      float64   `json:"value"`
	Weight     float64   `json:"weight"`
	Reasoning  *string   `json:"reasoning,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type InsertVoteInput struct {
	GraphID    string
	TargetKind string
	TargetID   string
	VoterID    string
	Value      float64
	Weight     float64
	Reasoning  *string
}

// ErrDuplicateVote reports a second vote by the same voter on the same target.
var ErrDuplicateVote = fmt.Errorf("vote already exists for this voter and target")

// InsertVote writes one vote inside the caller's transaction. The UNIQUE
// constraint on (voter, target) maps to ErrDuplicateVote.
func InsertVote(q Queryer, in InsertVoteInput) (string, error) {
	var existing int
	err := q.QueryRow(`
		SELECT COUNT(*) FROM consensus_votes
		WHERE voter_id = ? AND target_kind = ? AND target_id = ?`,
		in.VoterID, in.TargetKind, in.TargetID).Scan(&existing)
	if err != nil {
		return "", err
	}
	if existing > 0 {
		return "", ErrDuplicateVote
	}

	id := NewID()
	_, err = q.Exec(`
		INSERT INTO consensus_votes (id, graph_id, target_kind, target_id, voter_id, value, weight, reasoning)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.GraphID, in.TargetKind, in.TargetID, in.VoterID, in.Value, in.Weight, in.Reasoning)
	if err != nil {
		return "", fmt.Errorf("inserting vote: %w", err)
	}
	return id, nil
}

func GetVote(q Queryer, id string) (*ConsensusVote, error) {
	v := &ConsensusVote{}
	var reasoning sql.NullString
	err := q.QueryRow(`
		SELECT id, graph_id, target_kind, target_id, voter_id, value, weight, reasoning, created_at
		FROM consensus_votes WHERE id = ?`, id).Scan(
		&v.ID, &v.GraphID, &v.TargetKind, &v.TargetID, &v.VoterID, &v.Value, &v.Weight, &reasoning, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	if reasoning.Valid {
		v.Reasoning = &reasoning.String
	}
	return v, nil
}

// VotesForGraph reads every vote scoped to a graph for the promotion
// consensus component.
func VotesForGraph(q Queryer, graphID string) ([]*ConsensusVote, error) {
	rows, err := q.Query(`
		SELECT id, graph_id, target_kind, target_id, voter_id, value, weight, reasoning, created_at
		FROM consensus_votes WHERE graph_id = ?
		ORDER BY created_at ASC`, graphID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVotes(rows)
}

func scanVotes(rows *sql.Rows) ([]*ConsensusVote, error) {
	var votes []*ConsensusVote
	for rows.Next() {
		v := &ConsensusVote{}
		var reasoning sql.NullString
		if err := rows.Scan(&v.ID, &v.GraphID, &v.TargetKind, &v.TargetID, &v.VoterID,
			&v.Value, &v.Weight, &reasoning, &v.CreatedAt); err != nil {
			return nil, err
		}
		if reasoning.Valid {
			v.Reasoning = &reasoning.String
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}
