// CLAUDE:SUMMARY Veracity materialiser — snapshot reads, score recomputation, no-op suppression, append-only history
package engine

import (
	"database/sql"
	"math"
	"time"

	"github.com/veragraph/veragraph/internal/db"
	"github.com/veragraph/veragraph/internal/scoring"
)

// scoreEpsilon suppresses history noise from float round-trips through the
// REAL column. Genuine recomputations move scores by far more than this.
const scoreEpsilon = 1e-9

// snapshotTarget reads the complete fact set for one node or edge inside tx.
func (e *Engine) snapshotTarget(tx *sql.Tx, kind, id string) (scoring.Snapshot, error) {
	now := time.Now()

	evidence, credibility, err := db.EvidenceForTarget(tx, kind, id)
	if err != nil {
		return scoring.Snapshot{}, err
	}
	facts := make([]scoring.EvidenceFact, len(evidence))
	for i, ev := range evidence {
		facts[i] = scoring.EvidenceFact{
			Type:              ev.EvidenceType,
			BaseWeight:        ev.BaseWeight,
			Confidence:        ev.Confidence,
			SourceCredibility: credibility[i],
			Verification:      ev.Verification,
			TimeSensitive:     ev.TimeSensitive,
			Age:               now.Sub(ev.CreatedAt),
		}
	}

	open, err := db.OpenChallengesForTarget(tx, kind, id)
	if err != nil {
		return scoring.Snapshot{}, err
	}

	return scoring.Snapshot{
		Evidence:       facts,
		OpenChallenges: open,
		HalfLife:       e.halfLife,
	}, nil
}

// materializeVeracity recomputes and persists the score for one target from
// the transaction's snapshot. When the recomputed value matches the stored
// one the write and the history entry are both skipped, keeping retried and
// redundant triggers idempotent.
func (e *Engine) materializeVeracity(tx *sql.Tx, graphID, kind, id, reason string) (*db.VeracityScore, error) {
	snap, err := e.snapshotTarget(tx, kind, id)
	if err != nil {
		return nil, err
	}
	value, comps := scoring.Veracity(snap)

	prev, err := db.GetVeracityScore(tx, kind, id)
	if err != nil {
		return nil, err
	}
	if prev != nil &&
		math.Abs(prev.Value-value) < scoreEpsilon &&
		math.Abs(prev.ConsensusScore-comps.Consensus) < scoreEpsilon &&
		math.Abs(prev.EvidenceQuality-comps.EvidenceQuality) < scoreEpsilon &&
		math.Abs(prev.ChallengeImpact-comps.ChallengeImpact) < scoreEpsilon {
		return prev, nil
	}

	score := &db.VeracityScore{
		TargetKind:      kind,
		TargetID:        id,
		GraphID:         graphID,
		Value:           value,
		ConsensusScore:  comps.Consensus,
		EvidenceQuality: comps.EvidenceQuality,
		ChallengeImpact: comps.ChallengeImpact,
		CalculatedAt:    time.Now().UTC(),
		ExpiresAt:       scoreExpiry(snap, e.halfLife),
	}
	if err := db.UpsertVeracityScore(tx, score); err != nil {
		return nil, err
	}

	entry := &db.VeracityHistoryEntry{
		ID:         db.NewID(),
		TargetKind: kind,
		TargetID:   id,
		NewValue:   value,
		Delta:      value,
		Reason:     reason,
	}
	if prev != nil {
		old := prev.Value
		entry.OldValue = &old
		entry.Delta = value - old
	}
	if err := db.AppendVeracityHistory(tx, entry); err != nil {
		return nil, err
	}
	return score, nil
}

// scoreExpiry stamps a freshness horizon when any time-sensitive evidence
// contributes to the score: one half-life from now, after which reads flag
// the score as stale until the next recomputation.
func scoreExpiry(snap scoring.Snapshot, halfLife time.Duration) *time.Time {
	if halfLife <= 0 {
		return nil
	}
	for _, ev := range snap.Evidence {
		if ev.TimeSensitive {
			t := time.Now().UTC().Add(halfLife)
			return &t
		}
	}
	return nil
}
