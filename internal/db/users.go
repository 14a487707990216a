package db

import (
	"database/sql"
	"fmt"
	"time"
)

type User struct {
	ID         string     `json:"id"`
	Handle     string     `json:"handle"`
	Email      *string    `json:"email,omitempty"`
	Role       string     `json:"role"`
	CreatedAt  time.Time  `json:"created_at"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

type CreateUserInput struct {
	Handle       string
	Email        string
	PasswordHash string
}

func (db *DB) CreateUser(input CreateUserInput) (*User, error) {
	id := NewID()
	var emailPtr *string
	if input.Email != "" {
		emailPtr = &input.Email
	}
	_, err := db.Exec(`
		INSERT INTO users (id, handle, email, password_hash)
		VALUES (?, ?, ?, ?)`, id, input.Handle, emailPtr, input.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return &User{
		ID:     id,
		Handle: input.Handle,
		Email:  emailPtr,
		Role:   "user",
	}, nil
}

func (db *DB) GetUserByHandle(handle string) (*User, string, error) {
	u := &User{}
	var email sql.NullString
	var lastSeen sql.NullTime
	var passwordHash string
	err := db.QueryRow(`
		SELECT id, handle, email, password_hash, role, created_at, last_seen_at
		FROM users WHERE handle = ?`, handle).Scan(
		&u.ID, &u.Handle, &email, &passwordHash, &u.Role, &u.CreatedAt, &lastSeen)
	if err != nil {
		return nil, "", err
	}
	if email.Valid {
		u.Email = &email.String
	}
	if lastSeen.Valid {
		u.LastSeenAt = &lastSeen.Time
	}
	return u, passwordHash, nil
}

func (db *DB) GetUserByID(id string) (*User, error) {
	u := &User{}
	var email sql.NullString
	var lastSeen sql.NullTime
	err := db.QueryRow(`
		SELECT id, handle, email, role, created_at, last_seen_at
		FROM users WHERE id = ?`, id).Scan(
		&u.ID, &u.Handle, &email, &u.Role, &u.CreatedAt, &lastSeen)
	if err != nil {
		return nil, err
	}
	if email.Valid {
		u.Email = &email.String
	}
	if lastSeen.Valid {
		u.LastSeenAt = &lastSeen.Time
	}
	return u, nil
}

// TouchLastSeen updates the user's last_seen_at timestamp.
func (db *DB) TouchLastSeen(userID string) error {
	_, err := db.Exec("UPDATE users SET last_seen_at = datetime('now') WHERE id = ?", userID)
	return err
}

// ReputationMetrics is the persisted snapshot of a user's reputation and its
// weighted sub-components, with the as-of timestamp it was computed at.
type ReputationMetrics struct {
	UserID            string    `json:"user_id"`
	Overall           float64   `json:"overall"`
	EvidenceQuality   float64   `json:"evidence_quality"`
	ConsensusAccuracy float64   `json:"consensus_accuracy"`
	MethodologyRate   float64   `json:"methodology_rate"`
	ChallengeQuality  float64   `json:"challenge_quality"`
	CalculatedAt      time.Time `json:"calculated_at"`
}

// GetReputation returns the stored snapshot, or nil if the user has never
// been scored.
func GetReputation(q Queryer, userID string) (*ReputationMetrics, error) {
	m := &ReputationMetrics{}
	err := q.QueryRow(`
		SELECT user_id, overall, evidence_quality, consensus_accuracy, methodology_rate, challenge_quality, calculated_at
		FROM user_reputation WHERE user_id = ?`, userID).Scan(
		&m.UserID, &m.Overall, &m.EvidenceQuality, &m.ConsensusAccuracy, &m.MethodologyRate, &m.ChallengeQuality, &m.CalculatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// UpsertReputation persists a freshly computed reputation snapshot.
func UpsertReputation(q Queryer, m *ReputationMetrics) error {
	_, err := q.Exec(`
		INSERT INTO user_reputation (user_id, overall, evidence_quality, consensus_accuracy, methodology_rate, challenge_quality, calculated_at)
		VALUES (?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(user_id) DO UPDATE SET
			overall = excluded.overall,
			evidence_quality = excluded.evidence_quality,
			consensus_accuracy = excluded.consensus_accuracy,
			methodology_rate = excluded.methodology_rate,
			challenge_quality = excluded.challenge_quality,
			calculated_at = datetime('now')`,
		m.UserID, m.Overall, m.EvidenceQuality, m.ConsensusAccuracy, m.MethodologyRate, m.ChallengeQuality)
	return err
}

// ReputationAggregates are the raw per-user contribution counts the tracker
// condenses into sub-component scores.
type ReputationAggregates struct {
	EvidenceTotal      int
	EvidenceAccepted   int
	EvidenceRejected   int
	VotesTotal         int
	VotesWithMajority  int
	StepsCompleted     int
	GraphsContributed  int
	ChallengesRaised   int
	ChallengesAccepted int
}

// LoadReputationAggregates gathers a user's contribution history. Empty
// source tables produce zero aggregates, not errors.
func LoadReputationAggregates(q Queryer, userID string) (*ReputationAggregates, error) {
	a := &ReputationAggregates{}

	err := q.QueryRow(`
		SELECT COUNT(*),
		       SUM(CASE WHEN verification = 'accepted' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN verification = 'rejected' THEN 1 ELSE 0 END)
		FROM evidence WHERE submitted_by = ?`, userID).Scan(
		&a.EvidenceTotal, nullInt(&a.EvidenceAccepted), nullInt(&a.EvidenceRejected))
	if err != nil {
		return nil, fmt.Errorf("aggregating evidence: %w", err)
	}

	// A vote "agrees with the majority" when its sign matches the sign of
	// the weighted sum of all other votes on the same target.
	err = q.QueryRow(`
		SELECT COUNT(*),
		       SUM(CASE WHEN v.value * COALESCE((
		           SELECT SUM(o.value * o.weight) FROM consensus_votes o
		           WHERE o.target_kind = v.target_kind AND o.target_id = v.target_id AND o.voter_id != v.voter_id
		       ), v.value) > 0 THEN 1 ELSE 0 END)
		FROM consensus_votes v WHERE v.voter_id = ?`, userID).Scan(
		&a.VotesTotal, nullInt(&a.VotesWithMajority))
	if err != nil {
		return nil, fmt.Errorf("aggregating votes: %w", err)
	}

	err = q.QueryRow(`
		SELECT COUNT(*), COUNT(DISTINCT graph_id)
		FROM methodology_completion WHERE completed_by = ?`, userID).Scan(
		&a.StepsCompleted, &a.GraphsContributed)
	if err != nil {
		return nil, fmt.Errorf("aggregating methodology: %w", err)
	}

	err = q.QueryRow(`
		SELECT COUNT(*),
		       SUM(CASE WHEN status = 'accepted' THEN 1 ELSE 0 END)
		FROM challenges WHERE raised_by = ?`, userID).Scan(
		&a.ChallengesRaised, nullInt(&a.ChallengesAccepted))
	if err != nil {
		return nil, fmt.Errorf("aggregating challenges: %w", err)
	}

	return a, nil
}

// nullInt scans a nullable aggregate into an int, treating NULL as 0.
func nullInt(dst *int) *nullIntScanner {
	return &nullIntScanner{dst: dst}
}

type nullIntScanner struct{ dst *int }

func (s *nullIntScanner) Scan(src any) error {
	if src == nil {
		*s.dst = 0
		return nil
	}
	switch v := src.(type) {
	case int64:
		*s.dst = int(v)
	case float64:
		*s.dst = int(v)
	default:
		return fmt.Errorf("unexpected aggregate type %T", src)
	}
	return nil
}
