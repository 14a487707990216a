// CLAUDE:SUMMARY Pure score calculator — effective evidence weight, consensus, challenge impact, veracity, reputation, promotion formula
package scoring

import (
	"math"
	"sort"
	"time"
)

// Formula constants. Every derived value must be a deterministic function of
// the fact snapshot and these constants: recomputing from an unchanged
// snapshot yields a bit-identical result.
const (
	// Promotion component weights (sum to 1.0).
	WeightMethodology         = 0.30
	WeightConsensus           = 0.30
	WeightEvidenceQuality     = 0.25
	WeightChallengeResolution = 0.15

	// PromotionThreshold is the minimum overall score for eligibility.
	PromotionThreshold = 0.80

	// ChallengePenalty is subtracted per open challenge, down to ChallengeFloor.
	ChallengePenalty = 0.05
	ChallengeFloor   = -0.5

	// NeutralConsensus is the fallback when no signed evidence or votes exist.
	NeutralConsensus = 0.5

	// DefaultSourceCredibility is used for sources with no track record.
	DefaultSourceCredibility = 0.5

	// DefaultReputation is assigned to users with no contribution history.
	// It maps to vote weight 1.0.
	DefaultReputation = 0.5

	// Reputation sub-component weights (sum to 1.0).
	RepWeightEvidenceQuality   = 0.40
	RepWeightConsensusAccuracy = 0.30
	RepWeightMethodologyRate   = 0.20
	RepWeightChallengeQuality  = 0.10

	// Vote weight bounds: weight = clamp(0.5 + reputation*1.5, 0.5, 2.0).
	VoteWeightMin = 0.5
	VoteWeightMax = 2.0
)

// Peer-review multipliers by evidence verification state.
const (
	MultiplierAccepted = 1.2
	MultiplierPending  = 1.0
	MultiplierDisputed = 0.8
	MultiplierRejected = 0.5
)

// Evidence types.
const (
	EvidenceSupporting = "supporting"
	EvidenceRefuting   = "refuting"
	EvidenceNeutral    = "neutral"
	EvidenceClarifying = "clarifying"
)

// Verification states.
const (
	VerificationPending  = "pending"
	VerificationAccepted = "accepted"
	VerificationDisputed = "disputed"
	VerificationRejected = "rejected"
)

// EvidenceFact is one evidence row as seen by the calculator.
type EvidenceFact struct {
	Type              string
	BaseWeight        float64 // [0,1]
	Confidence        float64 // [0,1]
	SourceCredibility float64 // [0,1]
	Verification      string
	TimeSensitive     bool
	Age               time.Duration
}

// VoteFact is one consensus vote with its cast-time weight snapshot.
type VoteFact struct {
	Value  float64 // [-1,1]
	Weight float64 // [VoteWeightMin, VoteWeightMax]
}

// Snapshot is the full fact set for one target, read inside the caller's
// transaction so every component sees the same state.
// Snapshot carries the target-level facts veracity depends on. Votes never
// appear here: they feed graph-level promotion consensus and voter
// reputation, not per-claim veracity, whose consensus comes from the signed
// evidence balance.
type Snapshot struct {
	Evidence       []EvidenceFact
	OpenChallenges int
	HalfLife       time.Duration // temporal decay half-life for time-sensitive evidence
}

// Components is the persisted breakdown of a veracity score.
type Components struct {
	Consensus       float64 `json:"consensus"`
	EvidenceQuality float64 `json:"evidence_quality"`
	ChallengeImpact float64 `json:"challenge_impact"`
}

func Clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// PeerReviewMultiplier returns the verification-state multiplier.
// Unknown states are treated as pending.
func PeerReviewMultiplier(state string) float64 {
	switch state {
	case VerificationAccepted:
		return MultiplierAccepted
	case VerificationDisputed:
		return MultiplierDisputed
	case VerificationRejected:
		return MultiplierRejected
	default:
		return MultiplierPending
	}
}

// TemporalRelevance decays exponentially with age for time-sensitive
// evidence: 0.5^(age/halfLife). Evidence that is not time-sensitive, and any
// evidence when no half-life is configured, keeps full relevance.
func TemporalRelevance(timeSensitive bool, age, halfLife time.Duration) float64 {
	if !timeSensitive || halfLife <= 0 {
		return 1.0
	}
	if age <= 0 {
		return 1.0
	}
	return math.Pow(0.5, float64(age)/float64(halfLife))
}

// EffectiveWeight is base_weight x confidence x temporal_relevance x
// source_credibility x peer_review_multiplier.
func EffectiveWeight(e EvidenceFact, halfLife time.Duration) float64 {
	return e.BaseWeight * e.Confidence *
		TemporalRelevance(e.TimeSensitive, e.Age, halfLife) *
		e.SourceCredibility *
		PeerReviewMultiplier(e.Verification)
}

// EvidenceQuality is the weighted mean of effective weights across all
// evidence, clamped to [0,1]. Returns 0 for an empty evidence set.
func EvidenceQuality(evidence []EvidenceFact, halfLife time.Duration) float64 {
	if len(evidence) == 0 {
		return 0
	}
	var sum float64
	for _, e := range evidence {
		sum += EffectiveWeight(e, halfLife)
	}
	return Clamp(sum/float64(len(evidence)), 0, 1)
}

// EvidenceConsensus is supporting_weight / (supporting_weight +
// refuting_weight) over effective weights. Neutral and clarifying evidence
// carries no sign. Falls back to NeutralConsensus when no signed evidence
// exists (the division-by-zero guard).
func EvidenceConsensus(evidence []EvidenceFact, halfLife time.Duration) float64 {
	var supporting, refuting float64
	for _, e := range evidence {
		switch e.Type {
		case EvidenceSupporting:
			supporting += EffectiveWeight(e, halfLife)
		case EvidenceRefuting:
			refuting += EffectiveWeight(e, halfLife)
		}
	}
	total := supporting + refuting
	if total == 0 {
		return NeutralConsensus
	}
	return supporting / total
}

// VoteConsensus aggregates weighted vote values into [0,1]. Vote values are
// [-1,1]; the weighted mean is mapped linearly so that all-positive votes
// yield 1.0, all-negative 0.0 and an empty or balanced set NeutralConsensus.
func VoteConsensus(votes []VoteFact) float64 {
	var weighted, total float64
	for _, v := range votes {
		weighted += Clamp(v.Value, -1, 1) * v.Weight
		total += v.Weight
	}
	if total == 0 {
		return NeutralConsensus
	}
	return Clamp((weighted/total+1)/2, 0, 1)
}

// ChallengeImpact is -ChallengePenalty per open challenge, floored at
// ChallengeFloor.
func ChallengeImpact(openChallenges int) float64 {
	impact := -ChallengePenalty * float64(openChallenges)
	if impact < ChallengeFloor {
		return ChallengeFloor
	}
	return impact
}

// Veracity computes the component breakdown and final value for one target.
// value = clamp(consensus + challenge_impact, 0, 1).
func Veracity(s Snapshot) (float64, Components) {
	c := Components{
		Consensus:       EvidenceConsensus(s.Evidence, s.HalfLife),
		EvidenceQuality: EvidenceQuality(s.Evidence, s.HalfLife),
		ChallengeImpact: ChallengeImpact(s.OpenChallenges),
	}
	return Clamp(c.Consensus+c.ChallengeImpact, 0, 1), c
}

// MethodologyCompletion is completed/required for the graph's workflow.
// A graph with no required steps has trivially complete methodology.
func MethodologyCompletion(completed, required int) float64 {
	if required <= 0 {
		return 1.0
	}
	if completed >= required {
		return 1.0
	}
	return float64(completed) / float64(required)
}

// ChallengeResolution is 1.0 only when no challenges remain open.
func ChallengeResolution(openChallenges int) float64 {
	if openChallenges == 0 {
		return 1.0
	}
	return 0.0
}

// Blocking issue codes reported on unmet promotion requirements.
const (
	BlockIncompleteMethodology = "incomplete_methodology"
	BlockOpenChallenges        = "open_challenges"
	BlockScoreBelowThreshold   = "overall_score_below_threshold"
)

// PromotionInput carries the four graph-level component inputs.
type PromotionInput struct {
	CompletedSteps int
	RequiredSteps  int
	OpenChallenges int
	Votes          []VoteFact
	Evidence       []EvidenceFact
	HalfLife       time.Duration
}

// PromotionResult is the evaluated eligibility determination.
type PromotionResult struct {
	Methodology         float64  `json:"methodology_score"`
	Consensus           float64  `json:"consensus_score"`
	EvidenceQuality     float64  `json:"evidence_quality_score"`
	ChallengeResolution float64  `json:"challenge_resolution_score"`
	Overall             float64  `json:"overall_score"`
	Eligible            bool     `json:"is_eligible"`
	BlockingIssues      []string `json:"blocking_issues"`
}

// EvaluatePromotion applies the promotion formula:
//
//	overall = 0.30*methodology + 0.30*consensus + 0.25*evidence_quality + 0.15*challenge_resolution
//
// Eligibility additionally requires the two hard requirements at their
// maximum: methodology == 1.0 and challenge_resolution == 1.0. Every unmet
// requirement is reported as a blocking issue even when the weighted overall
// score clears the threshold.
func EvaluatePromotion(in PromotionInput) PromotionResult {
	r := PromotionResult{
		Methodology:         MethodologyCompletion(in.CompletedSteps, in.RequiredSteps),
		Consensus:           VoteConsensus(in.Votes),
		EvidenceQuality:     EvidenceQuality(in.Evidence, in.HalfLife),
		ChallengeResolution: ChallengeResolution(in.OpenChallenges),
	}
	r.Overall = WeightMethodology*r.Methodology +
		WeightConsensus*r.Consensus +
		WeightEvidenceQuality*r.EvidenceQuality +
		WeightChallengeResolution*r.ChallengeResolution

	if r.Methodology < 1.0 {
		r.BlockingIssues = append(r.BlockingIssues, BlockIncompleteMethodology)
	}
	if r.ChallengeResolution < 1.0 {
		r.BlockingIssues = append(r.BlockingIssues, BlockOpenChallenges)
	}
	if r.Overall < PromotionThreshold {
		r.BlockingIssues = append(r.BlockingIssues, BlockScoreBelowThreshold)
	}
	sort.Strings(r.BlockingIssues)
	r.Eligible = len(r.BlockingIssues) == 0
	return r
}

// ReputationInput carries a user's historical contribution aggregates, each
// already normalised to [0,1].
type ReputationInput struct {
	EvidenceQuality   float64
	ConsensusAccuracy float64
	MethodologyRate   float64
	ChallengeQuality  float64
}

// Reputation = 0.40*evidence + 0.30*consensus + 0.20*methodology + 0.10*challenge.
func Reputation(in ReputationInput) float64 {
	return Clamp(
		RepWeightEvidenceQuality*in.EvidenceQuality+
			RepWeightConsensusAccuracy*in.ConsensusAccuracy+
			RepWeightMethodologyRate*in.MethodologyRate+
			RepWeightChallengeQuality*in.ChallengeQuality,
		0, 1)
}

// VoteWeight maps reputation to a bounded vote multiplier, monotonic and
// anchored so the default reputation carries unit weight:
//
//	0.0 -> 0.5    0.5 -> 1.0    1.0 -> 2.0
//
// Piecewise linear between the anchors, clamped to [0.5, 2.0].
func VoteWeight(reputation float64) float64 {
	r := Clamp(reputation, 0, 1)
	if r <= DefaultReputation {
		return VoteWeightMin + r
	}
	return 1.0 + (r-DefaultReputation)*2.0
}
