// CLAUDE:SUMMARY Storage tests — lineage traversal, vote uniqueness, challenge transitions, history paging, eligibility round-trip
package db

import (
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	database, err := OpenMemory()
	if err != nil {
		t.Fatalf("opening memory db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func testUser(t *testing.T, database *DB, handle string) *User {
	t.Helper()
	u, err := database.CreateUser(CreateUserInput{Handle: handle, PasswordHash: "x"})
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}
	return u
}

func TestGraphLineage(t *testing.T) {
	database := testDB(t)
	u := testUser(t, database, "alice")

	root, err := database.CreateGraph(CreateGraphInput{Name: "root", CreatedBy: u.ID})
	if err != nil {
		t.Fatalf("creating root: %v", err)
	}
	child, err := database.CreateGraph(CreateGraphInput{Name: "child", ParentGraphID: &root.ID, CreatedBy: u.ID})
	if err != nil {
		t.Fatalf("creating child: %v", err)
	}
	grandchild, err := database.CreateGraph(CreateGraphInput{Name: "grandchild", ParentGraphID: &child.ID, CreatedBy: u.ID})
	if err != nil {
		t.Fatalf("creating grandchild: %v", err)
	}

	lineage, err := database.GraphLineage(grandchild.ID)
	if err != nil {
		t.Fatalf("reading lineage: %v", err)
	}
	if len(lineage) != 3 {
		t.Fatalf("lineage length = %d, want 3", len(lineage))
	}
	if lineage[0].ID != grandchild.ID || lineage[2].ID != root.ID {
		t.Errorf("lineage order = [%s, %s, %s], want child-to-root", lineage[0].Name, lineage[1].Name, lineage[2].Name)
	}
}

func TestGraphLineageCycleTerminates(t *testing.T) {
	database := testDB(t)
	u := testUser(t, database, "alice")

	a, _ := database.CreateGraph(CreateGraphInput{Name: "a", CreatedBy: u.ID})
	b, _ := database.CreateGraph(CreateGraphInput{Name: "b", ParentGraphID: &a.ID, CreatedBy: u.ID})

	// Force a cycle directly; the application never writes one.
	if _, err := database.Exec(`UPDATE graphs SET parent_graph_id = ? WHERE id = ?`, b.ID, a.ID); err != nil {
		t.Fatalf("forcing cycle: %v", err)
	}

	lineage, err := database.GraphLineage(a.ID)
	if err != nil {
		t.Fatalf("lineage with cycle: %v", err)
	}
	if len(lineage) != 2 {
		t.Errorf("cyclic lineage length = %d, want 2 (each graph once)", len(lineage))
	}
}

func TestInsertVoteRejectsDuplicate(t *testing.T) {
	database := testDB(t)
	u := testUser(t, database, "alice")
	g, _ := database.CreateGraph(CreateGraphInput{Name: "g", CreatedBy: u.ID})
	n, _ := database.CreateNode(g.ID, "claim", "", u.ID)

	in := InsertVoteInput{
		GraphID: g.ID, TargetKind: "node", TargetID: n.ID,
		VoterID: u.ID, Value: 1, Weight: 1,
	}
	if _, err := InsertVote(database, in); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if _, err := InsertVote(database, in); err != ErrDuplicateVote {
		t.Fatalf("second vote error = %v, want ErrDuplicateVote", err)
	}

	// Same voter may still vote on a different target.
	n2, _ := database.CreateNode(g.ID, "other", "", u.ID)
	in.TargetID = n2.ID
	if _, err := InsertVote(database, in); err != nil {
		t.Errorf("vote on second target: %v", err)
	}
}

func TestChallengeStatusTransitions(t *testing.T) {
	database := testDB(t)
	u := testUser(t, database, "alice")
	g, _ := database.CreateGraph(CreateGraphInput{Name: "g", CreatedBy: u.ID})
	n, _ := database.CreateNode(g.ID, "claim", "", u.ID)

	id, err := InsertChallenge(database, InsertChallengeInput{
		GraphID: g.ID, TargetKind: "node", TargetID: n.ID,
		ChallengeType: "factual_dispute", RaisedBy: u.ID,
	})
	if err != nil {
		t.Fatalf("inserting challenge: %v", err)
	}

	resolution := "source corrected"
	if err := SetChallengeStatus(database, id, ChallengeAccepted, &resolution); err != nil {
		t.Fatalf("accepting challenge: %v", err)
	}
	ch, _ := GetChallenge(database, id)
	if ch.Status != ChallengeAccepted || ch.ResolvedAt == nil || ch.Resolution == nil {
		t.Fatalf("accepted challenge = %+v, want terminal with resolution", ch)
	}

	// Reopening clears the resolution fields.
	if err := SetChallengeStatus(database, id, ChallengePending, nil); err != nil {
		t.Fatalf("reopening challenge: %v", err)
	}
	ch, _ = GetChallenge(database, id)
	if ch.Status != ChallengePending || ch.ResolvedAt != nil || ch.Resolution != nil {
		t.Fatalf("reopened challenge = %+v, want pending with cleared resolution", ch)
	}

	open, err := OpenChallengesForTarget(database, "node", n.ID)
	if err != nil {
		t.Fatalf("counting open challenges: %v", err)
	}
	if open != 1 {
		t.Errorf("open challenges = %d, want 1", open)
	}
}

func TestVeracityHistoryPaging(t *testing.T) {
	database := testDB(t)
	u := testUser(t, database, "alice")
	g, _ := database.CreateGraph(CreateGraphInput{Name: "g", CreatedBy: u.ID})
	n, _ := database.CreateNode(g.ID, "claim", "", u.ID)

	for i := 0; i < 5; i++ {
		err := AppendVeracityHistory(database, &VeracityHistoryEntry{
			ID: NewID(), TargetKind: "node", TargetID: n.ID,
			NewValue: float64(i) / 10, Delta: 0.1, Reason: "vote_cast",
		})
		if err != nil {
			t.Fatalf("appending history %d: %v", i, err)
		}
	}

	page, err := VeracityHistory(database, "node", n.ID, time.Time{}, 3)
	if err != nil {
		t.Fatalf("reading first page: %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("first page = %d entries, want 3", len(page))
	}

	n2, err := CountVeracityHistory(database, "node", n.ID)
	if err != nil {
		t.Fatalf("counting history: %v", err)
	}
	if n2 != 5 {
		t.Errorf("history count = %d, want 5", n2)
	}
}

func TestPromotionEligibilityRoundTrip(t *testing.T) {
	database := testDB(t)
	u := testUser(t, database, "alice")
	g, _ := database.CreateGraph(CreateGraphInput{Name: "g", CreatedBy: u.ID})

	got, err := GetPromotionEligibility(database, g.ID)
	if err != nil {
		t.Fatalf("reading before first evaluation: %v", err)
	}
	if got != nil {
		t.Fatalf("unevaluated graph returned %+v, want nil", got)
	}

	p := &PromotionEligibility{
		GraphID:             g.ID,
		MethodologyScore:    1.0,
		ConsensusScore:      0.9,
		EvidenceQuality:     0.8,
		ChallengeResolution: 1.0,
		OverallScore:        0.92,
		IsEligible:          false,
		BlockingIssues:      []string{"open_challenges"},
		State:               StateIneligible,
	}
	if err := UpsertPromotionEligibility(database, p); err != nil {
		t.Fatalf("upserting eligibility: %v", err)
	}

	got, err = GetPromotionEligibility(database, g.ID)
	if err != nil {
		t.Fatalf("reading eligibility: %v", err)
	}
	if got.State != StateIneligible || len(got.BlockingIssues) != 1 || got.BlockingIssues[0] != "open_challenges" {
		t.Errorf("round-tripped eligibility = %+v", got)
	}

	// Upsert replaces in place: still one row per graph.
	p.State = StateEligible
	p.IsEligible = true
	p.BlockingIssues = nil
	if err := UpsertPromotionEligibility(database, p); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	got, _ = GetPromotionEligibility(database, g.ID)
	if got.State != StateEligible || len(got.BlockingIssues) != 0 {
		t.Errorf("updated eligibility = %+v", got)
	}
}

func TestPromotionHistoryPreservesInsertionOrder(t *testing.T) {
	database := testDB(t)
	u := testUser(t, database, "alice")
	g, _ := database.CreateGraph(CreateGraphInput{Name: "g", CreatedBy: u.ID})

	// Back-to-back appends land within the same clock tick; the read must
	// still return them in insertion order.
	order := []string{EventAutoPromotion, EventManualDemotion, EventManualPromote}
	for _, event := range order {
		err := AppendPromotionEvent(database, &PromotionEvent{
			GraphID: g.ID, Event: event, OverallScore: 0.9,
		})
		if err != nil {
			t.Fatalf("appending %s: %v", event, err)
		}
	}

	events, err := PromotionHistory(database, g.ID)
	if err != nil {
		t.Fatalf("reading history: %v", err)
	}
	if len(events) != len(order) {
		t.Fatalf("history = %d events, want %d", len(events), len(order))
	}
	for i, event := range order {
		if events[i].Event != event {
			t.Errorf("events[%d] = %s, want %s", i, events[i].Event, event)
		}
	}
}

func TestEvidenceForTargetReturnsCredibility(t *testing.T) {
	database := testDB(t)
	u := testUser(t, database, "alice")
	g, _ := database.CreateGraph(CreateGraphInput{Name: "g", CreatedBy: u.ID})
	n, _ := database.CreateNode(g.ID, "claim", "", u.ID)
	src, _ := database.CreateSource("document", nil, nil, u.ID)

	if err := SetSourceCredibility(database, src.ID, 0.9); err != nil {
		t.Fatalf("setting credibility: %v", err)
	}
	if _, err := InsertEvidence(database, InsertEvidenceInput{
		GraphID: g.ID, TargetKind: "node", TargetID: n.ID, SourceID: src.ID,
		EvidenceType: "supporting", BaseWeight: 1, Confidence: 1, SubmittedBy: u.ID,
	}); err != nil {
		t.Fatalf("inserting evidence: %v", err)
	}

	evidence, credibility, err := EvidenceForTarget(database, "node", n.ID)
	if err != nil {
		t.Fatalf("reading evidence: %v", err)
	}
	if len(evidence) != 1 || len(credibility) != 1 {
		t.Fatalf("evidence = %d rows, credibility = %d, want 1/1", len(evidence), len(credibility))
	}
	if credibility[0] != 0.9 {
		t.Errorf("credibility = %v, want 0.9", credibility[0])
	}
	if evidence[0].Verification != "pending" {
		t.Errorf("fresh evidence verification = %q, want pending", evidence[0].Verification)
	}
}

func TestReputationAggregates(t *testing.T) {
	database := testDB(t)
	alice := testUser(t, database, "alice")
	bob := testUser(t, database, "bob")
	g, _ := database.CreateGraph(CreateGraphInput{Name: "g", CreatedBy: alice.ID})
	n, _ := database.CreateNode(g.ID, "claim", "", alice.ID)
	src, _ := database.CreateSource("document", nil, nil, alice.ID)

	evID, _ := InsertEvidence(database, InsertEvidenceInput{
		GraphID: g.ID, TargetKind: "node", TargetID: n.ID, SourceID: src.ID,
		EvidenceType: "supporting", BaseWeight: 1, Confidence: 1, SubmittedBy: alice.ID,
	})
	if err := SetEvidenceVerification(database, evID, "accepted"); err != nil {
		t.Fatalf("accepting evidence: %v", err)
	}

	// Alice and Bob agree on the node: both count as majority votes.
	for _, voter := range []*User{alice, bob} {
		if _, err := InsertVote(database, InsertVoteInput{
			GraphID: g.ID, TargetKind: "node", TargetID: n.ID,
			VoterID: voter.ID, Value: 1, Weight: 1,
		}); err != nil {
			t.Fatalf("vote by %s: %v", voter.Handle, err)
		}
	}

	agg, err := LoadReputationAggregates(database, alice.ID)
	if err != nil {
		t.Fatalf("loading aggregates: %v", err)
	}
	if agg.EvidenceTotal != 1 || agg.EvidenceAccepted != 1 {
		t.Errorf("evidence aggregates = %+v", agg)
	}
	if agg.VotesTotal != 1 || agg.VotesWithMajority != 1 {
		t.Errorf("vote aggregates = %+v", agg)
	}

	// A user with no history aggregates to zeros, not errors.
	empty := testUser(t, database, "carol")
	agg, err = LoadReputationAggregates(database, empty.ID)
	if err != nil {
		t.Fatalf("empty aggregates: %v", err)
	}
	if agg.EvidenceTotal != 0 || agg.VotesTotal != 0 || agg.ChallengesRaised != 0 {
		t.Errorf("empty user aggregates = %+v, want zeros", agg)
	}
}
