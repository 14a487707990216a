// CLAUDE:SUMMARY Evidence and source records — submission, verification transitions, snapshot reads, source credibility refresh
package db

import (
	"database/sql"
	"fmt"
	"time"
)

type Evidence struct {
	ID            string    `json:"id"`
	GraphID       string    `json:"graph_id"`
	TargetKind    string    `json:"target_kind"`
	TargetID      string    `json:"target_id"`
	SourceID      string    `json:"source_id"`
	EvidenceType  string    `json:"evidence_type"`
	BaseWeight    float64   `json:"base_weight"`
	Confidence    float64   `json:"confidence"`
	Verification  string    `json:"verification"`
	TimeSensitive bool      `json:"time_sensitive"`
	SubmittedBy   string    `json:"submitted_by"`
	CreatedAt     time.Time `json:"created_at"`
}

type Source struct {
	ID              string     `json:"id"`
	Kind            string     `json:"kind"`
	URL             *string    `json:"url,omitempty"`
	Title           *string    `json:"title,omitempty"`
	Credibility     float64    `json:"credibility"`
	CredibilityAsOf *time.Time `json:"credibility_as_of,omitempty"`
	CreatedBy       string     `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
}

type InsertEvidenceInput struct {
	GraphID       string
	TargetKind    string
	TargetID      string
	SourceID      string
	EvidenceType  string
	BaseWeight    float64
	Confidence    float64
	TimeSensitive bool
	SubmittedBy   string
}

// InsertEvidence writes one evidence row inside the caller's transaction.
func InsertEvidence(q Queryer, in InsertEvidenceInput) (string, error) {
	id := NewID()
	_, err := q.Exec(`
		INSERT INTO evidence (id, graph_id, target_kind, target_id, source_id, evidence_type,
			base_weight, confidence, time_sensitive, submitted_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.GraphID, in.TargetKind, in.TargetID, in.SourceID, in.EvidenceType,
		in.BaseWeight, in.Confidence, boolToInt(in.TimeSensitive), in.SubmittedBy)
	if err != nil {
		return "", fmt.Errorf("inserting evidence: %w", err)
	}
	return id, nil
}

func GetEvidence(q Queryer, id string) (*Evidence, error) {
	return scanEvidence(q.QueryRow(`
		SELECT id, graph_id, target_kind, target_id, source_id, evidence_type,
			base_weight, confidence, verification, time_sensitive, submitted_by, created_at
		FROM evidence WHERE id = ?`, id))
}

// SetEvidenceVerification transitions an evidence row's verification state.
// Everything else on a verified row is immutable.
func SetEvidenceVerification(q Queryer, id, state string) error {
	res, err := q.Exec(`UPDATE evidence SET verification = ? WHERE id = ?`, state, id)
	if err != nil {
		return fmt.Errorf("updating verification: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// EvidenceForTarget reads all evidence rows targeting one node or edge,
// joined with the current source credibility. Part of the fact snapshot.
func EvidenceForTarget(q Queryer, kind, id string) ([]*Evidence, []float64, error) {
	rows, err := q.Query(`
		SELECT e.id, e.graph_id, e.target_kind, e.target_id, e.source_id, e.evidence_type,
			e.base_weight, e.confidence, e.verification, e.time_sensitive, e.submitted_by, e.created_at,
			s.credibility
		FROM evidence e JOIN sources s ON s.id = e.source_id
		WHERE e.target_kind = ? AND e.target_id = ?
		ORDER BY e.created_at ASC`, kind, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	return scanEvidenceWithCredibility(rows)
}

// EvidenceForGraph reads all evidence scoped to a graph, with source
// credibility, for the promotion evidence-quality component.
func EvidenceForGraph(q Queryer, graphID string) ([]*Evidence, []float64, error) {
	rows, err := q.Query(`
		SELECT e.id, e.graph_id, e.target_kind, e.target_id, e.source_id, e.evidence_type,
			e.base_weight, e.confidence, e.verification, e.time_sensitive, e.submitted_by, e.created_at,
			s.credibility
		FROM evidence e JOIN sources s ON s.id = e.source_id
		WHERE e.graph_id = ?
		ORDER BY e.created_at ASC`, graphID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	return scanEvidenceWithCredibility(rows)
}

func scanEvidenceWithCredibility(rows *sql.Rows) ([]*Evidence, []float64, error) {
	var evidence []*Evidence
	var credibility []float64
	for rows.Next() {
		e := &Evidence{}
		var timeSensitive int
		var cred float64
		if err := rows.Scan(
			&e.ID, &e.GraphID, &e.TargetKind, &e.TargetID, &e.SourceID, &e.EvidenceType,
			&e.BaseWeight, &e.Confidence, &e.Verification, &timeSensitive, &e.SubmittedBy, &e.CreatedAt,
			&cred); err != nil {
			return nil, nil, err
		}
		e.TimeSensitive = timeSensitive == 1
		evidence = append(evidence, e)
		credibility = append(credibility, cred)
	}
	return evidence, credibility, rows.Err()
}

func scanEvidence(s interface{ Scan(...any) error }) (*Evidence, error) {
	e := &Evidence{}
	var timeSensitive int
	err := s.Scan(
		&e.ID, &e.GraphID, &e.TargetKind, &e.TargetID, &e.SourceID, &e.EvidenceType,
		&e.BaseWeight, &e.Confidence, &e.Verification, &timeSensitive, &e.SubmittedBy, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.TimeSensitive = timeSensitive == 1
	return e, nil
}

// --- Sources ---

func (db *DB) CreateSource(kind string, url, title *string, createdBy string) (*Source, error) {
	id := NewID()
	_, err := db.Exec(`
		INSERT INTO sources (id, kind, url, title, created_by)
		VALUES (?, ?, ?, ?, ?)`, id, kind, url, title, createdBy)
	if err != nil {
		return nil, fmt.Errorf("creating source: %w", err)
	}
	return db.GetSource(id)
}

func (db *DB) GetSource(id string) (*Source, error) {
	return GetSource(db, id)
}

func GetSource(q Queryer, id string) (*Source, error) {
	s := &Source{}
	var url, title sql.NullString
	var asOf sql.NullTime
	err := q.QueryRow(`
		SELECT id, kind, url, title, credibility, credibility_as_of, created_by, created_at
		FROM sources WHERE id = ?`, id).Scan(
		&s.ID, &s.Kind, &url, &title, &s.Credibility, &asOf, &s.CreatedBy, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	if url.Valid {
		s.URL = &url.String
	}
	if title.Valid {
		s.Title = &title.String
	}
	if asOf.Valid {
		s.CredibilityAsOf = &asOf.Time
	}
	return s, nil
}

// SetSourceCredibility stores a recomputed credibility with its as-of stamp.
func SetSourceCredibility(q Queryer, sourceID string, credibility float64) error {
	_, err := q.Exec(`
		UPDATE sources SET credibility = ?, credibility_as_of = datetime('now')
		WHERE id = ?`, credibility, sourceID)
	return err
}

// SourceVerificationCounts aggregates verification outcomes of evidence
// drawn from a source, the input to the credibility refresh.
type SourceVerificationCounts struct {
	Total    int
	Accepted int
	Disputed int
	Rejected int
}

func CountSourceVerifications(q Queryer, sourceID string) (*SourceVerificationCounts, error) {
	c := &SourceVerificationCounts{}
	err := q.QueryRow(`
		SELECT COUNT(*),
		       SUM(CASE WHEN verification = 'accepted' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN verification = 'disputed' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN verification = 'rejected' THEN 1 ELSE 0 END)
		FROM evidence WHERE source_id = ?`, sourceID).Scan(
		&c.Total, nullInt(&c.Accepted), nullInt(&c.Disputed), nullInt(&c.Rejected))
	if err != nil {
		return nil, err
	}
	return c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
