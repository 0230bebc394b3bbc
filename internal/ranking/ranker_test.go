package ranking

import (
	"testing"
	"time"

	"medbot-ai/internal/retrieval"
)

var rankNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func doc(id, source, text string, sim float64, age time.Duration) retrieval.Document {
	return retrieval.Document{
		SourceID:   id,
		SourceName: source,
		Text:       text,
		Similarity: sim,
		UpdatedAt:  rankNow.Add(-age),
	}
}

func TestRanker_Rank_Empty(t *testing.T) {
	ranker := NewRanker(0.5, 4000, 0)
	rc := ranker.Rank(nil, "", rankNow)
	if !rc.Empty() {
		t.Error("expected empty context")
	}
	if rc.MeanSimilarity() != 0 || rc.MeanCredibility() != 0 {
		t.Error("empty context statistics should be zero")
	}
}

func TestRanker_Rank_RecencyFilter(t *testing.T) {
	ranker := NewRanker(0.5, 4000, 30)
	docs := []retrieval.Document{
		doc("fresh", "cdc", "recent guidance on influenza vaccination", 0.9, 10*24*time.Hour),
		doc("stale", "cdc", "outdated guidance on influenza vaccination timing", 0.95, 120*24*time.Hour),
		{SourceID: "undated", SourceName: "who", Text: "general vaccination principles", Similarity: 0.5},
	}

	rc := ranker.Rank(docs, "", rankNow)
	for _, d := range rc.Documents {
		if d.SourceID == "stale" {
			t.Error("passage older than the cutoff should be dropped")
		}
	}
	var keptUndated bool
	for _, d := range rc.Documents {
		if d.SourceID == "undated" {
			keptUndated = true
		}
	}
	if !keptUndated {
		t.Error("passage without a timestamp should survive the recency filter")
	}
}

func TestRanker_Rank_DedupeBySourceAndSpan(t *testing.T) {
	ranker := NewRanker(0.5, 4000, 0)
	docs := []retrieval.Document{
		doc("a1", "cdc", "Warfarin interacts with aspirin.", 0.8, 0),
		doc("a2", "cdc", "warfarin  interacts with aspirin", 0.9, 0), // same span, formatting differs
		doc("b", "who", "Aspirin can raise warfarin bleeding risk.", 0.7, 0),
	}

	rc := ranker.Rank(docs, "", rankNow)
	if len(rc.Documents) != 2 {
		t.Fatalf("expected 2 documents after dedupe, got %d", len(rc.Documents))
	}
	for _, d := range rc.Documents {
		if d.SourceName == "cdc" && d.SourceID != "a2" {
			t.Errorf("dedupe should keep the higher-similarity copy, kept %s", d.SourceID)
		}
	}
	if rc.SourceDiversity != 2 {
		t.Errorf("source diversity = %d, want 2", rc.SourceDiversity)
	}
}

func TestRanker_Rank_DiversityDropsNearDuplicates(t *testing.T) {
	ranker := NewRanker(0.5, 4000, 0)
	docs := []retrieval.Document{
		doc("a", "cdc", "metformin is first line treatment for type 2 diabetes in adults", 0.9, 0),
		doc("b", "who", "metformin is first line treatment for type 2 diabetes in most adults", 0.4, 0),
		doc("c", "medlineplus", "regular exercise improves insulin sensitivity", 0.6, 0),
	}

	rc := ranker.Rank(docs, "", rankNow)
	for _, d := range rc.Documents {
		if d.SourceID == "b" {
			t.Error("low-similarity near-duplicate should be dropped by the diversity pass")
		}
	}
	var keptDistinct bool
	for _, d := range rc.Documents {
		if d.SourceID == "c" {
			keptDistinct = true
		}
	}
	if !keptDistinct {
		t.Error("distinct passage should survive the diversity pass")
	}
}

func TestRanker_Rank_BlendedOrder(t *testing.T) {
	ranker := NewRanker(0.5, 4000, 0)
	docs := []retrieval.Document{
		{SourceID: "low-cred", SourceName: "random-blog", Text: "take more medication when symptoms persist", Similarity: 0.8, UpdatedAt: rankNow},
		{SourceID: "high-cred", SourceName: "cdc", Text: "consult your prescriber before changing any dose", Similarity: 0.75, UpdatedAt: rankNow},
	}

	rc := ranker.Rank(docs, "", rankNow)
	if len(rc.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(rc.Documents))
	}
	if rc.Documents[0].SourceID != "high-cred" {
		t.Errorf("credible source should outrank slightly more similar uncredible one, got %s first", rc.Documents[0].SourceID)
	}
}

func TestRanker_Rank_CategoryBoost(t *testing.T) {
	ranker := NewRanker(0.5, 4000, 0)
	a := retrieval.Document{SourceID: "match", SourceName: "cdc", Category: "symptom", Text: "fever management at home", Similarity: 0.7, UpdatedAt: rankNow}
	b := retrieval.Document{SourceID: "other", SourceName: "cdc", Category: "general", Text: "choosing a primary care doctor", Similarity: 0.72, UpdatedAt: rankNow}

	rc := ranker.Rank([]retrieval.Document{a, b}, "symptom", rankNow)
	if rc.Documents[0].SourceID != "match" {
		t.Errorf("category match should win, got %s first", rc.Documents[0].SourceID)
	}
}

func TestRanker_Rank_CharBudget(t *testing.T) {
	ranker := NewRanker(0.5, 60, 0)
	docs := []retrieval.Document{
		doc("a", "cdc", "first passage about hydration during fever episodes", 0.9, 0),
		doc("b", "who", "second passage about rest and recovery practices", 0.8, 0),
		doc("c", "medlineplus", "third passage about over the counter antipyretics", 0.7, 0),
	}

	rc := ranker.Rank(docs, "", rankNow)
	if len(rc.Documents) != 1 {
		t.Fatalf("expected budget to keep only the top passage, got %d", len(rc.Documents))
	}
	if rc.Documents[0].SourceID != "a" {
		t.Errorf("truncation should drop lowest-scored first, kept %s", rc.Documents[0].SourceID)
	}
}

func TestRanker_Rank_Idempotent(t *testing.T) {
	ranker := NewRanker(0.5, 4000, 30)
	docs := []retrieval.Document{
		doc("a", "cdc", "metformin is first line treatment for type 2 diabetes", 0.9, 24*time.Hour),
		doc("b", "who", "regular exercise improves insulin sensitivity", 0.6, 48*time.Hour),
		doc("c", "drugbank", "metformin can interact with contrast agents", 0.7, 24*time.Hour),
	}

	once := ranker.Rank(docs, "chronic_care", rankNow)
	twice := ranker.Rank(once.Documents, "chronic_care", rankNow)

	if len(once.Documents) != len(twice.Documents) {
		t.Fatalf("re-ranking changed document count: %d vs %d", len(once.Documents), len(twice.Documents))
	}
	for i := range once.Documents {
		if once.Documents[i].SourceID != twice.Documents[i].SourceID {
			t.Errorf("re-ranking changed order at %d: %s vs %s", i, once.Documents[i].SourceID, twice.Documents[i].SourceID)
		}
	}
}

func TestRanker_Rank_OrderIndependentOfArrival(t *testing.T) {
	ranker := NewRanker(0.5, 4000, 0)
	docs := []retrieval.Document{
		doc("a", "cdc", "passage about safe acetaminophen dosing intervals", 0.9, 0),
		doc("b", "who", "passage about hydration and rest for fevers", 0.6, 0),
		doc("c", "drugbank", "passage about ibuprofen and kidney function", 0.7, 0),
	}
	reversed := []retrieval.Document{docs[2], docs[1], docs[0]}

	forward := ranker.Rank(docs, "", rankNow)
	backward := ranker.Rank(reversed, "", rankNow)

	if len(forward.Documents) != len(backward.Documents) {
		t.Fatalf("arrival order changed document count")
	}
	for i := range forward.Documents {
		if forward.Documents[i].SourceID != backward.Documents[i].SourceID {
			t.Errorf("arrival order changed ranking at %d", i)
		}
	}
}

func TestCredibilityFor(t *testing.T) {
	if CredibilityFor("CDC") != 0.95 {
		t.Error("lookup should be case-insensitive")
	}
	if CredibilityFor("random-blog") != defaultCredibility {
		t.Error("unknown source should get the default weight")
	}
	if !IsCredibleSource("internal_kb") {
		t.Error("internal_kb should be credible")
	}
	if IsCredibleSource("random-blog") {
		t.Error("unknown source should not be credible")
	}
}
