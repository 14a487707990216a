// CLAUDE:SUMMARY Promotion engine — graph-level eligibility evaluation, same-transaction auto-promotion, manual override
package engine

import (
	"context"
	"database/sql"
	"time"

	"github.com/veragraph/veragraph/internal/db"
	"github.com/veragraph/veragraph/internal/scoring"
)

// snapshotGraph reads the graph-level promotion inputs inside tx.
func (e *Engine) snapshotGraph(tx *sql.Tx, graphID string) (scoring.PromotionInput, error) {
	now := time.Now()
	in := scoring.PromotionInput{HalfLife: e.halfLife}

	var err error
	in.CompletedSteps, in.RequiredSteps, err = db.MethodologyProgress(tx, graphID)
	if err != nil {
		return in, err
	}
	in.OpenChallenges, err = db.OpenChallengesForGraph(tx, graphID)
	if err != nil {
		return in, err
	}

	votes, err := db.VotesForGraph(tx, graphID)
	if err != nil {
		return in, err
	}
	in.Votes = make([]scoring.VoteFact, len(votes))
	for i, v := range votes {
		in.Votes[i] = scoring.VoteFact{Value: v.Value, Weight: v.Weight}
	}

	evidence, credibility, err := db.EvidenceForGraph(tx, graphID)
	if err != nil {
		return in, err
	}
	in.Evidence = make([]scoring.EvidenceFact, len(evidence))
	for i, ev := range evidence {
		in.Evidence[i] = scoring.EvidenceFact{
			Type:              ev.EvidenceType,
			BaseWeight:        ev.BaseWeight,
			Confidence:        ev.Confidence,
			SourceCredibility: credibility[i],
			Verification:      ev.Verification,
			TimeSensitive:     ev.TimeSensitive,
			Age:               now.Sub(ev.CreatedAt),
		}
	}
	return in, nil
}

// evaluatePromotion recomputes a graph's eligibility from the transaction's
// snapshot. An eligible determination promotes the graph in the same
// transaction: the eligibility row moves to the terminal promoted state, the
// graph flips to the trusted level and exactly one auto-promotion event is
// appended. The promoted return reports whether that happened on this call.
func (e *Engine) evaluatePromotion(tx *sql.Tx, graphID, actorID string) (*db.PromotionEligibility, bool, error) {
	current, err := db.GetPromotionEligibility(tx, graphID)
	if err != nil {
		return nil, false, err
	}
	// Promoted is terminal. The dispatcher filters this too, but manual
	// override and direct re-evaluation paths land here.
	if current != nil && current.State == db.StatePromoted {
		return current, false, nil
	}

	in, err := e.snapshotGraph(tx, graphID)
	if err != nil {
		return nil, false, err
	}
	r := scoring.EvaluatePromotion(in)

	p := &db.PromotionEligibility{
		GraphID:             graphID,
		MethodologyScore:    r.Methodology,
		ConsensusScore:      r.Consensus,
		EvidenceQuality:     r.EvidenceQuality,
		ChallengeResolution: r.ChallengeResolution,
		OverallScore:        r.Overall,
		IsEligible:          r.Eligible,
		BlockingIssues:      r.BlockingIssues,
		State:               db.StateIneligible,
	}
	if r.Eligible {
		p.State = db.StatePromoted
		p.BlockingIssues = []string{}
	}
	if err := db.UpsertPromotionEligibility(tx, p); err != nil {
		return nil, false, err
	}
	if !r.Eligible {
		return p, false, nil
	}

	var actor *string
	if actorID != "" {
		actor = &actorID
	}
	if err := db.AppendPromotionEvent(tx, &db.PromotionEvent{
		GraphID:             graphID,
		Event:               db.EventAutoPromotion,
		MethodologyScore:    r.Methodology,
		ConsensusScore:      r.Consensus,
		EvidenceQuality:     r.EvidenceQuality,
		ChallengeResolution: r.ChallengeResolution,
		OverallScore:        r.Overall,
		ActorID:             actor,
	}); err != nil {
		return nil, false, err
	}
	if err := db.MarkGraphPromoted(tx, graphID); err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// OverrideInput parameterises a manual promotion decision.
type OverrideInput struct {
	GraphID       string `json:"graph_id"`
	Action        string `json:"action"` // "promote" or "demote"
	ActorID       string `json:"actor_id"`
	Justification string `json:"justification"`
}

// Override actions.
const (
	OverridePromote = "promote"
	OverrideDemote  = "demote"
)

// ManualOverride promotes or demotes a graph outside the automatic path. A
// justification is mandatory; the decision lands in the promotion history
// with the score snapshot current at override time. Promoting an already
// promoted graph, or demoting an unpromoted one, is a state violation.
func (e *Engine) ManualOverride(ctx context.Context, in OverrideInput) (*db.PromotionEligibility, error) {
	if in.Justification == "" {
		return nil, validationErr("manual override requires a justification")
	}
	if in.ActorID == "" {
		return nil, validationErr("actor_id is required")
	}
	if in.Action != OverridePromote && in.Action != OverrideDemote {
		return nil, validationErr("action must be promote or demote, got %q", in.Action)
	}

	var result *db.PromotionEligibility
	err := e.db.InTx(func(tx *sql.Tx) error {
		g, err := db.GetGraph(tx, in.GraphID)
		if err == sql.ErrNoRows {
			return notFoundErr("graph %s not found", in.GraphID)
		}
		if err != nil {
			return err
		}
		current, err := db.GetPromotionEligibility(tx, in.GraphID)
		if err != nil {
			return err
		}

		snap, err := e.snapshotGraph(tx, in.GraphID)
		if err != nil {
			return err
		}
		r := scoring.EvaluatePromotion(snap)

		switch in.Action {
		case OverridePromote:
			if g.Level == db.LevelTrusted || (current != nil && current.State == db.StatePromoted) {
				return stateErr("graph %s is already promoted", in.GraphID)
			}
			if err := db.MarkGraphPromoted(tx, in.GraphID); err != nil {
				return err
			}
			result = &db.PromotionEligibility{
				GraphID:             in.GraphID,
				MethodologyScore:    r.Methodology,
				ConsensusScore:      r.Consensus,
				EvidenceQuality:     r.EvidenceQuality,
				ChallengeResolution: r.ChallengeResolution,
				OverallScore:        r.Overall,
				IsEligible:          r.Eligible,
				BlockingIssues:      []string{},
				State:               db.StatePromoted,
			}
		case OverrideDemote:
			if g.Level != db.LevelTrusted {
				return stateErr("graph %s is not promoted", in.GraphID)
			}
			if err := db.MarkGraphDemoted(tx, in.GraphID); err != nil {
				return err
			}
			result = &db.PromotionEligibility{
				GraphID:             in.GraphID,
				MethodologyScore:    r.Methodology,
				ConsensusScore:      r.Consensus,
				EvidenceQuality:     r.EvidenceQuality,
				ChallengeResolution: r.ChallengeResolution,
				OverallScore:        r.Overall,
				IsEligible:          r.Eligible,
				BlockingIssues:      r.BlockingIssues,
				State:               db.StateIneligible,
			}
			if r.Eligible {
				result.State = db.StateEligible
			}
		}
		if err := db.UpsertPromotionEligibility(tx, result); err != nil {
			return err
		}

		event := db.EventManualPromote
		if in.Action == OverrideDemote {
			event = db.EventManualDemotion
		}
		actor := in.ActorID
		just := in.Justification
		if err := db.AppendPromotionEvent(tx, &db.PromotionEvent{
			GraphID:             in.GraphID,
			Event:               event,
			MethodologyScore:    r.Methodology,
			ConsensusScore:      r.Consensus,
			EvidenceQuality:     r.EvidenceQuality,
			ChallengeResolution: r.ChallengeResolution,
			OverallScore:        r.Overall,
			ActorID:             &actor,
			Justification:       &just,
		}); err != nil {
			return err
		}
		return db.AppendReviewAudit(tx, in.GraphID, string(FactManualOverride), result.GraphID, &actor,
			map[string]string{"action": in.Action})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
