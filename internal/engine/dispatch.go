// CLAUDE:SUMMARY Recalculation dispatcher — fact mutation entrypoints, explicit fact→derived dispatch table, atomic recompute orchestration
package engine

import (
	"context"
	"database/sql"
	"time"

	"github.com/veragraph/veragraph/internal/db"
	"github.com/veragraph/veragraph/internal/scoring"
)

// FactKind identifies a mutation class observed by the dispatcher.
type FactKind string

const (
	FactEvidence        FactKind = "evidence_submitted"
	FactVerification    FactKind = "evidence_verification"
	FactVote            FactKind = "vote_cast"
	FactChallenge       FactKind = "challenge_raised"
	FactChallengeStatus FactKind = "challenge_status"
	FactWorkflowStep    FactKind = "workflow_step"
	FactManualOverride  FactKind = "manual_override"
)

// Derived record kinds.
const (
	DerivedVeracity  = "veracity_score"
	DerivedPromotion = "promotion_eligibility"
)

// dispatchTable maps each fact kind to the derived records it can affect.
// The fan-out is bounded and acyclic: recomputing a derived record never
// mutates facts, so no entry can re-enter the table.
var dispatchTable = map[FactKind][]string{
	FactEvidence:        {DerivedVeracity, DerivedPromotion},
	FactVerification:    {DerivedVeracity, DerivedPromotion},
	FactVote:            {DerivedVeracity, DerivedPromotion},
	FactChallenge:       {DerivedVeracity, DerivedPromotion},
	FactChallengeStatus: {DerivedVeracity, DerivedPromotion},
	FactWorkflowStep:    {DerivedPromotion},
	FactManualOverride:  {DerivedPromotion},
}

// factRef locates the fact and its affected target within one dispatch.
type factRef struct {
	Kind       FactKind
	FactID     string
	GraphID    string
	TargetKind string // "" when the fact is graph-scoped only
	TargetID   string
	ActorID    string
}

// MutationResult carries the freshly recomputed derived state returned with
// every successful fact mutation.
type MutationResult struct {
	Veracity    *db.VeracityScore        `json:"veracity,omitempty"`
	Eligibility *db.PromotionEligibility `json:"eligibility"`
	Promoted    bool                     `json:"promoted"`
}

// dispatch runs the recalculation fan-out for one fact inside tx: one review
// audit row per evaluated event, then each derived record in table order.
// Promoted graphs are terminal — the fact is recorded in the ledger but no
// derived record is touched.
func (e *Engine) dispatch(tx *sql.Tx, ref factRef) (*MutationResult, error) {
	var actor *string
	if ref.ActorID != "" {
		actor = &ref.ActorID
	}
	if err := db.AppendReviewAudit(tx, ref.GraphID, string(ref.Kind), ref.FactID, actor, nil); err != nil {
		return nil, err
	}

	current, err := db.GetPromotionEligibility(tx, ref.GraphID)
	if err != nil {
		return nil, err
	}
	if current != nil && current.State == db.StatePromoted {
		return &MutationResult{Eligibility: current}, nil
	}

	res := &MutationResult{}
	for _, derived := range dispatchTable[ref.Kind] {
		start := time.Now()
		switch derived {
		case DerivedVeracity:
			if ref.TargetKind != "node" && ref.TargetKind != "edge" {
				continue
			}
			res.Veracity, err = e.materializeVeracity(tx, ref.GraphID, ref.TargetKind, ref.TargetID, string(ref.Kind))
		case DerivedPromotion:
			res.Eligibility, res.Promoted, err = e.evaluatePromotion(tx, ref.GraphID, ref.ActorID)
		}
		e.record(ref.Kind, derived, start, err)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

// --- Fact-producing interface ---

type SubmitEvidenceInput struct {
	TargetKind    string  `json:"target_kind"`
	TargetID      string  `json:"target_id"`
	SourceID      string  `json:"source_id"`
	EvidenceType  string  `json:"evidence_type"`
	BaseWeight    float64 `json:"base_weight"`
	Confidence    float64 `json:"confidence"`
	TimeSensitive bool    `json:"time_sensitive"`
	SubmittedBy   string  `json:"submitted_by"`
}

type SubmitEvidenceResult struct {
	Evidence *db.Evidence `json:"evidence"`
	MutationResult
}

// SubmitEvidence records one evidence fact and recomputes its dependents in
// the same transaction.
func (e *Engine) SubmitEvidence(ctx context.Context, in SubmitEvidenceInput) (*SubmitEvidenceResult, error) {
	if err := validTargetKind(in.TargetKind); err != nil {
		return nil, err
	}
	switch in.EvidenceType {
	case scoring.EvidenceSupporting, scoring.EvidenceRefuting, scoring.EvidenceNeutral, scoring.EvidenceClarifying:
	default:
		return nil, validationErr("unknown evidence type %q", in.EvidenceType)
	}
	if in.BaseWeight < 0 || in.BaseWeight > 1 {
		return nil, validationErr("base weight %v out of [0,1]", in.BaseWeight)
	}
	if in.Confidence < 0 || in.Confidence > 1 {
		return nil, validationErr("confidence %v out of [0,1]", in.Confidence)
	}
	if in.SubmittedBy == "" {
		return nil, validationErr("submitted_by is required")
	}

	result := &SubmitEvidenceResult{}
	err := e.db.InTx(func(tx *sql.Tx) error {
		graphID, err := db.ResolveTarget(tx, in.TargetKind, in.TargetID)
		if err == sql.ErrNoRows {
			return notFoundErr("%s %s not found", in.TargetKind, in.TargetID)
		}
		if err != nil {
			return err
		}
		if _, err := db.GetSource(tx, in.SourceID); err != nil {
			if err == sql.ErrNoRows {
				return notFoundErr("source %s not found", in.SourceID)
			}
			return err
		}

		factID, err := db.InsertEvidence(tx, db.InsertEvidenceInput{
			GraphID:       graphID,
			TargetKind:    in.TargetKind,
			TargetID:      in.TargetID,
			SourceID:      in.SourceID,
			EvidenceType:  in.EvidenceType,
			BaseWeight:    in.BaseWeight,
			Confidence:    in.Confidence,
			TimeSensitive: in.TimeSensitive,
			SubmittedBy:   in.SubmittedBy,
		})
		if err != nil {
			return err
		}

		mr, err := e.dispatch(tx, factRef{
			Kind: FactEvidence, FactID: factID, GraphID: graphID,
			TargetKind: in.TargetKind, TargetID: in.TargetID, ActorID: in.SubmittedBy,
		})
		if err != nil {
			return err
		}
		result.MutationResult = *mr
		result.Evidence, err = db.GetEvidence(tx, factID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateEvidenceVerification transitions an evidence row's verification
// state and recomputes its dependents.
func (e *Engine) UpdateEvidenceVerification(ctx context.Context, evidenceID, state, reviewerID string) (*SubmitEvidenceResult, error) {
	switch state {
	case scoring.VerificationPending, scoring.VerificationAccepted, scoring.VerificationDisputed, scoring.VerificationRejected:
	default:
		return nil, validationErr("unknown verification state %q", state)
	}

	result := &SubmitEvidenceResult{}
	err := e.db.InTx(func(tx *sql.Tx) error {
		ev, err := db.GetEvidence(tx, evidenceID)
		if err == sql.ErrNoRows {
			return notFoundErr("evidence %s not found", evidenceID)
		}
		if err != nil {
			return err
		}
		if err := db.SetEvidenceVerification(tx, evidenceID, state); err != nil {
			return err
		}

		mr, err := e.dispatch(tx, factRef{
			Kind: FactVerification, FactID: evidenceID, GraphID: ev.GraphID,
			TargetKind: ev.TargetKind, TargetID: ev.TargetID, ActorID: reviewerID,
		})
		if err != nil {
			return err
		}
		result.MutationResult = *mr
		result.Evidence, err = db.GetEvidence(tx, evidenceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type CastVoteInput struct {
	TargetKind string  `json:"target_kind"`
	TargetID   string  `json:"target_id"`
	VoterID    string  `json:"voter_id"`
	Value      float64 `json:"value"`
	Reasoning  string  `json:"reasoning"`
}

type CastVoteResult struct {
	Vote *db.ConsensusVote `json:"vote"`
	MutationResult
}

// CastVote records one consensus vote with the voter's cast-time weight
// snapshot. A second vote on the same target by the same voter is rejected.
func (e *Engine) CastVote(ctx context.Context, in CastVoteInput) (*CastVoteResult, error) {
	if in.TargetKind != "node" && in.TargetKind != "edge" && in.TargetKind != "graph" {
		return nil, validationErr("target kind must be node, edge or graph, got %q", in.TargetKind)
	}
	if in.Value < -1 || in.Value > 1 {
		return nil, validationErr("vote value %v out of [-1,1]", in.Value)
	}
	if in.VoterID == "" {
		return nil, validationErr("voter_id is required")
	}

	// The weight snapshot binds the voter's reputation at cast time.
	weight, err := e.VoteWeight(ctx, in.VoterID)
	if err != nil {
		return nil, err
	}

	result := &CastVoteResult{}
	err = e.db.InTx(func(tx *sql.Tx) error {
		graphID, err := db.ResolveTarget(tx, in.TargetKind, in.TargetID)
		if err == sql.ErrNoRows {
			return notFoundErr("%s %s not found", in.TargetKind, in.TargetID)
		}
		if err != nil {
			return err
		}

		var reasoning *string
		if in.Reasoning != "" {
			reasoning = &in.Reasoning
		}
		factID, err := db.InsertVote(tx, db.InsertVoteInput{
			GraphID:    graphID,
			TargetKind: in.TargetKind,
			TargetID:   in.TargetID,
			VoterID:    in.VoterID,
			Value:      in.Value,
			Weight:     weight,
			Reasoning:  reasoning,
		})
		if err == db.ErrDuplicateVote {
			return validationErr("duplicate vote on %s %s by %s", in.TargetKind, in.TargetID, in.VoterID)
		}
		if err != nil {
			return err
		}

		mr, err := e.dispatch(tx, factRef{
			Kind: FactVote, FactID: factID, GraphID: graphID,
			TargetKind: in.TargetKind, TargetID: in.TargetID, ActorID: in.VoterID,
		})
		if err != nil {
			return err
		}
		result.MutationResult = *mr
		result.Vote, err = db.GetVote(tx, factID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type RaiseChallengeInput struct {
	TargetKind    string `json:"target_kind"`
	TargetID      string `json:"target_id"`
	ChallengeType string `json:"challenge_type"`
	RaisedBy      string `json:"raised_by"`
}

type ChallengeResult struct {
	Challenge *db.Challenge `json:"challenge"`
	MutationResult
}

// RaiseChallenge opens a dispute against a node or edge. Open challenges
// depress veracity and block promotion until they reach a terminal status.
func (e *Engine) RaiseChallenge(ctx context.Context, in RaiseChallengeInput) (*ChallengeResult, error) {
	if err := validTargetKind(in.TargetKind); err != nil {
		return nil, err
	}
	if in.ChallengeType == "" {
		return nil, validationErr("challenge_type is required")
	}
	if in.RaisedBy == "" {
		return nil, validationErr("raised_by is required")
	}

	result := &ChallengeResult{}
	err := e.db.InTx(func(tx *sql.Tx) error {
		graphID, err := db.ResolveTarget(tx, in.TargetKind, in.TargetID)
		if err == sql.ErrNoRows {
			return notFoundErr("%s %s not found", in.TargetKind, in.TargetID)
		}
		if err != nil {
			return err
		}

		factID, err := db.InsertChallenge(tx, db.InsertChallengeInput{
			GraphID:       graphID,
			TargetKind:    in.TargetKind,
			TargetID:      in.TargetID,
			ChallengeType: in.ChallengeType,
			RaisedBy:      in.RaisedBy,
		})
		if err != nil {
			return err
		}

		mr, err := e.dispatch(tx, factRef{
			Kind: FactChallenge, FactID: factID, GraphID: graphID,
			TargetKind: in.TargetKind, TargetID: in.TargetID, ActorID: in.RaisedBy,
		})
		if err != nil {
			return err
		}
		result.MutationResult = *mr
		result.Challenge, err = db.GetChallenge(tx, factID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateChallengeStatus transitions a challenge and recomputes dependents.
// Reopening a terminal challenge back to pending is allowed while the graph
// is unpromoted; the recomputation detects the regression.
func (e *Engine) UpdateChallengeStatus(ctx context.Context, challengeID, status string, resolution, actorID string) (*ChallengeResult, error) {
	switch status {
	case db.ChallengePending, db.ChallengeAccepted, db.ChallengeRejected, db.ChallengeResolved:
	default:
		return nil, validationErr("unknown challenge status %q", status)
	}

	result := &ChallengeResult{}
	err := e.db.InTx(func(tx *sql.Tx) error {
		ch, err := db.GetChallenge(tx, challengeID)
		if err == sql.ErrNoRows {
			return notFoundErr("challenge %s not found", challengeID)
		}
		if err != nil {
			return err
		}

		var res *string
		if resolution != "" {
			res = &resolution
		}
		if err := db.SetChallengeStatus(tx, challengeID, status, res); err != nil {
			return err
		}

		mr, err := e.dispatch(tx, factRef{
			Kind: FactChallengeStatus, FactID: challengeID, GraphID: ch.GraphID,
			TargetKind: ch.TargetKind, TargetID: ch.TargetID, ActorID: actorID,
		})
		if err != nil {
			return err
		}
		result.MutationResult = *mr
		result.Challenge, err = db.GetChallenge(tx, challengeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type CompleteStepResult struct {
	AlreadyComplete bool `json:"already_complete"`
	MutationResult
}

// CompleteWorkflowStep marks one methodology step done for a graph and
// re-evaluates promotion eligibility. Completing an already-complete step is
// an idempotent no-op that still lands in the review ledger.
func (e *Engine) CompleteWorkflowStep(ctx context.Context, graphID, stepID, userID string) (*CompleteStepResult, error) {
	if userID == "" {
		return nil, validationErr("user_id is required")
	}

	result := &CompleteStepResult{}
	err := e.db.InTx(func(tx *sql.Tx) error {
		g, err := db.GetGraph(tx, graphID)
		if err == sql.ErrNoRows {
			return notFoundErr("graph %s not found", graphID)
		}
		if err != nil {
			return err
		}
		step, err := db.GetStep(tx, stepID)
		if err == sql.ErrNoRows {
			return notFoundErr("workflow step %s not found", stepID)
		}
		if err != nil {
			return err
		}
		if g.WorkflowID == nil || *g.WorkflowID != step.WorkflowID {
			return validationErr("step %s does not belong to graph %s's workflow", stepID, graphID)
		}

		inserted, err := db.InsertStepCompletion(tx, graphID, stepID, userID)
		if err != nil {
			return err
		}
		result.AlreadyComplete = !inserted

		mr, err := e.dispatch(tx, factRef{
			Kind: FactWorkflowStep, FactID: stepID, GraphID: graphID, ActorID: userID,
		})
		if err != nil {
			return err
		}
		result.MutationResult = *mr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
