package scoring

import (
	"math"
	"testing"
	"time"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPeerReviewMultipliers(t *testing.T) {
	cases := map[string]float64{
		VerificationAccepted: 1.2,
		VerificationPending:  1.0,
		VerificationDisputed: 0.8,
		VerificationRejected: 0.5,
		"unknown":            1.0,
	}
	for state, want := range cases {
		if got := PeerReviewMultiplier(state); got != want {
			t.Errorf("multiplier(%s) = %v, want %v", state, got, want)
		}
	}
}

func TestEffectiveWeight(t *testing.T) {
	e := EvidenceFact{
		Type:              EvidenceSupporting,
		BaseWeight:        0.8,
		Confidence:        0.5,
		SourceCredibility: 0.5,
		Verification:      VerificationAccepted,
	}
	want := 0.8 * 0.5 * 1.0 * 0.5 * 1.2
	if got := EffectiveWeight(e, 0); !almostEqual(got, want) {
		t.Errorf("EffectiveWeight = %v, want %v", got, want)
	}
}

func TestTemporalRelevance(t *testing.T) {
	halfLife := 30 * 24 * time.Hour

	if got := TemporalRelevance(false, 365*24*time.Hour, halfLife); got != 1.0 {
		t.Errorf("non-time-sensitive evidence must not decay, got %v", got)
	}
	if got := TemporalRelevance(true, 0, halfLife); got != 1.0 {
		t.Errorf("fresh evidence must have full relevance, got %v", got)
	}
	if got := TemporalRelevance(true, halfLife, halfLife); !almostEqual(got, 0.5) {
		t.Errorf("relevance at one half-life = %v, want 0.5", got)
	}
	if got := TemporalRelevance(true, 10*halfLife, halfLife); got >= 0.01 {
		t.Errorf("old time-sensitive evidence should be nearly irrelevant, got %v", got)
	}
}

// Scenario A: a target with no evidence is neutral.
func TestVeracityNoEvidence(t *testing.T) {
	value, c := Veracity(Snapshot{})
	if value != 0.5 {
		t.Errorf("veracity = %v, want 0.5", value)
	}
	if c.Consensus != 0.5 {
		t.Errorf("consensus = %v, want neutral 0.5", c.Consensus)
	}
	if c.ChallengeImpact != 0 {
		t.Errorf("challenge impact = %v, want 0", c.ChallengeImpact)
	}
}

// weightedEvidence builds an evidence fact whose effective weight equals w.
func weightedEvidence(typ string, w float64) EvidenceFact {
	return EvidenceFact{
		Type:              typ,
		BaseWeight:        w,
		Confidence:        1.0,
		SourceCredibility: 1.0,
		Verification:      VerificationPending,
	}
}

// Scenarios B and C: supporting weight 8, refuting weight 2.
func TestVeracityWeightedConsensus(t *testing.T) {
	snap := Snapshot{
		Evidence: []EvidenceFact{
			weightedEvidence(EvidenceSupporting, 4.0),
			weightedEvidence(EvidenceSupporting, 4.0),
			weightedEvidence(EvidenceRefuting, 2.0),
		},
	}

	value, c := Veracity(snap)
	if !almostEqual(c.Consensus, 0.8) {
		t.Errorf("consensus = %v, want 0.8", c.Consensus)
	}
	if !almostEqual(value, 0.8) {
		t.Errorf("veracity = %v, want 0.8", value)
	}

	// Two open challenges depress the value by 0.10.
	snap.OpenChallenges = 2
	value, c = Veracity(snap)
	if !almostEqual(c.ChallengeImpact, -0.10) {
		t.Errorf("challenge impact = %v, want -0.10", c.ChallengeImpact)
	}
	if !almostEqual(value, 0.70) {
		t.Errorf("veracity = %v, want 0.70", value)
	}
}

func TestChallengeImpactFloor(t *testing.T) {
	if got := ChallengeImpact(100); got != ChallengeFloor {
		t.Errorf("impact for 100 open challenges = %v, want floor %v", got, ChallengeFloor)
	}
	if got := ChallengeImpact(0); got != 0 {
		t.Errorf("impact for 0 open challenges = %v, want 0", got)
	}
}

func TestVeracityBoundsAndIdempotence(t *testing.T) {
	snap := Snapshot{
		Evidence: []EvidenceFact{
			weightedEvidence(EvidenceRefuting, 0.9),
			weightedEvidence(EvidenceRefuting, 0.7),
		},
		OpenChallenges: 5,
	}
	v1, _ := Veracity(snap)
	v2, _ := Veracity(snap)
	if v1 != v2 {
		t.Errorf("recompute from unchanged snapshot differs: %v vs %v", v1, v2)
	}
	if v1 < 0 || v1 > 1 {
		t.Errorf("veracity out of bounds: %v", v1)
	}
}

func TestNeutralEvidenceCarriesNoSign(t *testing.T) {
	ev := []EvidenceFact{
		weightedEvidence(EvidenceNeutral, 1.0),
		weightedEvidence(EvidenceClarifying, 1.0),
	}
	if got := EvidenceConsensus(ev, 0); got != NeutralConsensus {
		t.Errorf("consensus over unsigned evidence = %v, want %v", got, NeutralConsensus)
	}
}

func TestVoteConsensus(t *testing.T) {
	if got := VoteConsensus(nil); got != 0.5 {
		t.Errorf("empty vote set = %v, want 0.5", got)
	}
	allFor := []VoteFact{{Value: 1, Weight: 1.0}, {Value: 1, Weight: 2.0}}
	if got := VoteConsensus(allFor); !almostEqual(got, 1.0) {
		t.Errorf("unanimous support = %v, want 1.0", got)
	}
	allAgainst := []VoteFact{{Value: -1, Weight: 0.5}}
	if got := VoteConsensus(allAgainst); !almostEqual(got, 0.0) {
		t.Errorf("unanimous opposition = %v, want 0.0", got)
	}
	// Higher-weight voter dominates.
	split := []VoteFact{{Value: 1, Weight: 2.0}, {Value: -1, Weight: 1.0}}
	got := VoteConsensus(split)
	if got <= 0.5 {
		t.Errorf("weighted majority should exceed neutral, got %v", got)
	}
}

func TestVoteWeightAnchors(t *testing.T) {
	cases := []struct{ rep, want float64 }{
		{0.0, 0.5},
		{0.5, 1.0},
		{1.0, 2.0},
	}
	for _, c := range cases {
		if got := VoteWeight(c.rep); !almostEqual(got, c.want) {
			t.Errorf("VoteWeight(%v) = %v, want %v", c.rep, got, c.want)
		}
	}
}

func TestVoteWeightMonotonicBounded(t *testing.T) {
	prev := -1.0
	for r := -0.5; r <= 1.5; r += 0.05 {
		w := VoteWeight(r)
		if w < VoteWeightMin || w > VoteWeightMax {
			t.Fatalf("VoteWeight(%v) = %v out of [%v,%v]", r, w, VoteWeightMin, VoteWeightMax)
		}
		if w < prev {
			t.Fatalf("VoteWeight not monotonic at %v: %v < %v", r, w, prev)
		}
		prev = w
	}
}

func TestMethodologyCompletion(t *testing.T) {
	if got := MethodologyCompletion(3, 4); !almostEqual(got, 0.75) {
		t.Errorf("3/4 steps = %v, want 0.75", got)
	}
	if got := MethodologyCompletion(4, 4); got != 1.0 {
		t.Errorf("all steps = %v, want 1.0", got)
	}
	if got := MethodologyCompletion(0, 0); got != 1.0 {
		t.Errorf("no required steps = %v, want 1.0", got)
	}
}

// Scenario D: methodology 1.0, consensus 0.75, evidence 0.70, challenges resolved.
// 0.30*1.0 + 0.30*0.75 + 0.25*0.70 + 0.15*1.0 = 0.85. (Some written
// walkthroughs of this scenario quote 0.9250, which no weighting of these
// components produces; the formula weights are authoritative.)
func TestPromotionEligible(t *testing.T) {
	r := EvaluatePromotion(PromotionInput{
		CompletedSteps: 4,
		RequiredSteps:  4,
		OpenChallenges: 0,
		// Weighted mean vote value 0.5 maps to consensus 0.75.
		Votes: []VoteFact{{Value: 0.5, Weight: 1.0}},
		// Single evidence with effective weight 0.70.
		Evidence: []EvidenceFact{weightedEvidence(EvidenceSupporting, 0.70)},
	})
	if !almostEqual(r.Overall, 0.85) {
		t.Errorf("overall = %v, want 0.85", r.Overall)
	}
	if !r.Eligible {
		t.Errorf("expected eligible, blocking issues: %v", r.BlockingIssues)
	}
}

// Scenario E: same inputs but one open challenge. The weighted score stays
// high, yet the hard requirement dominates. The open challenge zeroes the
// challenge_resolution component, so overall drops to 0.70 (not the 0.7750
// some scenario write-ups quote).
func TestPromotionHardRequirementDominates(t *testing.T) {
	r := EvaluatePromotion(PromotionInput{
		CompletedSteps: 4,
		RequiredSteps:  4,
		OpenChallenges: 1,
		Votes:          []VoteFact{{Value: 0.5, Weight: 1.0}},
		Evidence:       []EvidenceFact{weightedEvidence(EvidenceSupporting, 0.70)},
	})
	if !almostEqual(r.Overall, 0.70) {
		t.Errorf("overall = %v, want 0.70", r.Overall)
	}
	if r.Eligible {
		t.Error("expected ineligible despite high weighted score")
	}
	found := false
	for _, b := range r.BlockingIssues {
		if b == BlockOpenChallenges {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %q in blocking issues, got %v", BlockOpenChallenges, r.BlockingIssues)
	}
}

func TestPromotionBlocksBelowThreshold(t *testing.T) {
	r := EvaluatePromotion(PromotionInput{
		CompletedSteps: 4,
		RequiredSteps:  4,
		OpenChallenges: 0,
		Votes:          []VoteFact{{Value: -1, Weight: 1.0}},
	})
	if r.Eligible {
		t.Error("expected ineligible with hostile consensus and no evidence")
	}
	found := false
	for _, b := range r.BlockingIssues {
		if b == BlockScoreBelowThreshold {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %q in blocking issues, got %v", BlockScoreBelowThreshold, r.BlockingIssues)
	}
}

func TestReputation(t *testing.T) {
	got := Reputation(ReputationInput{
		EvidenceQuality:   1.0,
		ConsensusAccuracy: 1.0,
		MethodologyRate:   1.0,
		ChallengeQuality:  1.0,
	})
	if !almostEqual(got, 1.0) {
		t.Errorf("perfect history = %v, want 1.0", got)
	}

	got = Reputation(ReputationInput{
		EvidenceQuality:   0.5,
		ConsensusAccuracy: 0.5,
		MethodologyRate:   0.5,
		ChallengeQuality:  0.5,
	})
	if !almostEqual(got, 0.5) {
		t.Errorf("uniform 0.5 history = %v, want 0.5", got)
	}

	got = Reputation(ReputationInput{EvidenceQuality: 1.0})
	if !almostEqual(got, RepWeightEvidenceQuality) {
		t.Errorf("evidence-only history = %v, want %v", got, RepWeightEvidenceQuality)
	}
}
