// CLAUDE:SUMMARY Reputation tracker — aggregate-driven recomputation, cached vote-weight snapshots, source credibility refresh
package engine

import (
	"context"
	"database/sql"
	"time"

	"github.com/veragraph/veragraph/internal/db"
	"github.com/veragraph/veragraph/internal/scoring"
)

// reputationInput condenses raw contribution aggregates into the four
// normalised sub-components. Users with no history in a sub-component score
// the neutral default there rather than zero, so newcomers start at the
// default reputation instead of the floor.
func reputationInput(a *db.ReputationAggregates) scoring.ReputationInput {
	in := scoring.ReputationInput{
		EvidenceQuality:   scoring.DefaultReputation,
		ConsensusAccuracy: scoring.DefaultReputation,
		MethodologyRate:   scoring.DefaultReputation,
		ChallengeQuality:  scoring.DefaultReputation,
	}
	if a.EvidenceTotal > 0 {
		neither := a.EvidenceTotal - a.EvidenceAccepted - a.EvidenceRejected
		in.EvidenceQuality = (float64(a.EvidenceAccepted) + 0.5*float64(neither)) / float64(a.EvidenceTotal)
	}
	if a.VotesTotal > 0 {
		in.ConsensusAccuracy = float64(a.VotesWithMajority) / float64(a.VotesTotal)
	}
	if a.StepsCompleted > 0 {
		// Participation ramp: each completed step adds a little until the
		// component saturates.
		in.MethodologyRate = scoring.Clamp(0.5+0.05*float64(a.StepsCompleted), 0, 1)
	}
	if a.ChallengesRaised > 0 {
		in.ChallengeQuality = float64(a.ChallengesAccepted) / float64(a.ChallengesRaised)
	}
	return in
}

// RecalculateReputation recomputes and persists a user's reputation snapshot
// from their full contribution history, and invalidates the cached
// vote-weight entry so the next cast sees the fresh value.
func (e *Engine) RecalculateReputation(ctx context.Context, userID string) (*db.ReputationMetrics, error) {
	if _, err := e.db.GetUserByID(userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, notFoundErr("user %s not found", userID)
		}
		return nil, err
	}

	var metrics *db.ReputationMetrics
	err := e.db.InTx(func(tx *sql.Tx) error {
		agg, err := db.LoadReputationAggregates(tx, userID)
		if err != nil {
			return err
		}
		in := reputationInput(agg)
		metrics = &db.ReputationMetrics{
			UserID:            userID,
			Overall:           scoring.Reputation(in),
			EvidenceQuality:   in.EvidenceQuality,
			ConsensusAccuracy: in.ConsensusAccuracy,
			MethodologyRate:   in.MethodologyRate,
			ChallengeQuality:  in.ChallengeQuality,
			CalculatedAt:      time.Now().UTC(),
		}
		return db.UpsertReputation(tx, metrics)
	})
	if err != nil {
		return nil, err
	}
	e.repCache.Delete(userID)
	return metrics, nil
}

// GetReputation returns the stored snapshot, computing and persisting one on
// first access.
func (e *Engine) GetReputation(ctx context.Context, userID string) (*db.ReputationMetrics, error) {
	stored, err := db.GetReputation(e.db, userID)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		return stored, nil
	}
	return e.RecalculateReputation(ctx, userID)
}

// VoteWeight resolves the voter's current vote-weight multiplier. Snapshots
// are cached briefly: the weight frozen into a vote only needs to reflect
// reputation as of roughly cast time, and the cache keeps hot voters from
// re-aggregating their whole history on every vote.
func (e *Engine) VoteWeight(ctx context.Context, userID string) (float64, error) {
	if w, ok := e.repCache.Get(userID); ok {
		return w.(float64), nil
	}
	m, err := e.GetReputation(ctx, userID)
	if err != nil {
		return 0, err
	}
	w := scoring.VoteWeight(m.Overall)
	e.repCache.SetDefault(userID, w)
	return w, nil
}

// RefreshSourceCredibility recomputes a source's credibility from the
// verification record of evidence drawn from it: accepted raises, rejected
// lowers, disputed drags halfway down. A source with no verified evidence
// keeps the default. Dependent veracity scores are not recomputed eagerly;
// they pick up the new credibility on their next fact-triggered
// recalculation.
func (e *Engine) RefreshSourceCredibility(ctx context.Context, sourceID string) (*db.Source, error) {
	var src *db.Source
	err := e.db.InTx(func(tx *sql.Tx) error {
		if _, err := db.GetSource(tx, sourceID); err != nil {
			if err == sql.ErrNoRows {
				return notFoundErr("source %s not found", sourceID)
			}
			return err
		}
		c, err := db.CountSourceVerifications(tx, sourceID)
		if err != nil {
			return err
		}

		credibility := scoring.DefaultSourceCredibility
		if judged := c.Accepted + c.Disputed + c.Rejected; judged > 0 {
			credibility = (float64(c.Accepted) + 0.25*float64(c.Disputed)) / float64(judged)
		}
		if err := db.SetSourceCredibility(tx, sourceID, scoring.Clamp(credibility, 0, 1)); err != nil {
			return err
		}
		src, err = db.GetSource(tx, sourceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return src, nil
}
