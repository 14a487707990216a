// CLAUDE:SUMMARY Engine core — construction, options, score-consuming reads (veracity, eligibility, history, audit ledger)
package engine

import (
	"context"
	"database/sql"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/veragraph/veragraph/internal/db"
	"github.com/veragraph/veragraph/internal/scoring"
	"github.com/veragraph/veragraph/pkg/trace"
)

// Engine owns the derived trust state: veracity scores, promotion
// eligibility, reputation snapshots and their audit trails. Every fact
// mutation recomputes its dependent records synchronously, inside the
// mutation's transaction.
type Engine struct {
	db       *db.DB
	halfLife time.Duration
	repCache *cache.Cache
	traces   *trace.Store
}

// Options tunes the non-formula knobs. Formula constants live in the scoring
// package and are not configurable.
type Options struct {
	// TemporalHalfLife is the decay half-life for time-sensitive evidence.
	// Zero disables decay.
	TemporalHalfLife time.Duration
	// ReputationCacheTTL bounds how long a vote-weight lookup may serve a
	// cached reputation snapshot. Zero means 5 minutes.
	ReputationCacheTTL time.Duration
	// Traces, when set, receives one record per dispatched recomputation.
	Traces *trace.Store
}

func New(database *db.DB, opts Options) *Engine {
	ttl := opts.ReputationCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Engine{
		db:       database,
		halfLife: opts.TemporalHalfLife,
		repCache: cache.New(ttl, 2*ttl),
		traces:   opts.Traces,
	}
}

// VeracityResult is the read-side view of a veracity score.
type VeracityResult struct {
	*db.VeracityScore
	// Stale is set when an expiry was recorded for a time-sensitive claim
	// and has passed.
	Stale bool `json:"stale,omitempty"`
}

// GetVeracityScore returns the materialised score for a node or edge. For a
// target no fact has ever touched, the neutral default is computed from the
// live (empty) snapshot without persisting anything.
func (e *Engine) GetVeracityScore(ctx context.Context, kind, id string) (*VeracityResult, error) {
	if err := validTargetKind(kind); err != nil {
		return nil, err
	}
	stored, err := db.GetVeracityScore(e.db, kind, id)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		graphID, err := db.ResolveTarget(e.db, kind, id)
		if err == sql.ErrNoRows {
			return nil, notFoundErr("%s %s not found", kind, id)
		}
		if err != nil {
			return nil, err
		}
		value, comps := scoring.Veracity(scoring.Snapshot{HalfLife: e.halfLife})
		return &VeracityResult{VeracityScore: &db.VeracityScore{
			TargetKind:      kind,
			TargetID:        id,
			GraphID:         graphID,
			Value:           value,
			ConsensusScore:  comps.Consensus,
			EvidenceQuality: comps.EvidenceQuality,
			ChallengeImpact: comps.ChallengeImpact,
			CalculatedAt:    time.Now().UTC(),
		}}, nil
	}
	res := &VeracityResult{VeracityScore: stored}
	if stored.ExpiresAt != nil && stored.ExpiresAt.Before(time.Now()) {
		res.Stale = true
	}
	return res, nil
}

// GetPromotionEligibility returns the stored eligibility record. A graph
// that has never been evaluated reports the draft state.
func (e *Engine) GetPromotionEligibility(ctx context.Context, graphID string) (*db.PromotionEligibility, error) {
	if _, err := db.GetGraph(e.db, graphID); err != nil {
		if err == sql.ErrNoRows {
			return nil, notFoundErr("graph %s not found", graphID)
		}
		return nil, err
	}
	stored, err := db.GetPromotionEligibility(e.db, graphID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return &db.PromotionEligibility{
			GraphID:        graphID,
			State:          db.StateDraft,
			BlockingIssues: []string{},
		}, nil
	}
	return stored, nil
}

// GetScoreHistory pages a target's recomputation history by timestamp,
// oldest first. The sequence is finite and restartable: pass the last seen
// timestamp to resume.
func (e *Engine) GetScoreHistory(ctx context.Context, kind, id string, after time.Time, limit int) ([]*db.VeracityHistoryEntry, error) {
	if err := validTargetKind(kind); err != nil {
		return nil, err
	}
	return db.VeracityHistory(e.db, kind, id, after, limit)
}

// GetPromotionHistory returns all promotion events for a graph.
func (e *Engine) GetPromotionHistory(ctx context.Context, graphID string) ([]*db.PromotionEvent, error) {
	return db.PromotionHistory(e.db, graphID)
}

// GetReviewAudit pages the public transparency ledger for a graph.
func (e *Engine) GetReviewAudit(ctx context.Context, graphID string, after time.Time, limit int) ([]*db.ReviewAuditEntry, error) {
	return db.ReviewAudit(e.db, graphID, after, limit)
}

// EnsureMutable rejects content mutation on promoted (Level 0) graphs.
// Graph CRUD collaborators call this before writing.
func (e *Engine) EnsureMutable(ctx context.Context, graphID string) error {
	g, err := db.GetGraph(e.db, graphID)
	if err != nil {
		if err == sql.ErrNoRows {
			return notFoundErr("graph %s not found", graphID)
		}
		return err
	}
	if g.Level == db.LevelTrusted {
		return stateErr("graph %s is promoted and read-only", graphID)
	}
	return nil
}

func validTargetKind(kind string) error {
	if kind != "node" && kind != "edge" {
		return validationErr("target kind must be node or edge, got %q", kind)
	}
	return nil
}

func (e *Engine) record(fact FactKind, derived string, start time.Time, err error) {
	if e.traces != nil {
		e.traces.Record(string(fact), derived, time.Since(start), err)
	}
}
