package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"medbot-ai/internal/escalation"
	"medbot-ai/internal/kb"
	"medbot-ai/internal/llm"
	"medbot-ai/internal/query"
	"medbot-ai/internal/ranking"
	"medbot-ai/internal/retrieval"
	"medbot-ai/internal/storage"
	"medbot-ai/internal/vectorstore"
)

type recordingRouter struct {
	inner      *retrieval.Router
	escalation []bool
}

func (r *recordingRouter) Route(q query.Query, cls query.Classification, escalated bool) retrieval.Route {
	r.escalation = append(r.escalation, escalated)
	return r.inner.Route(q, cls, escalated)
}

type fakeRetriever struct {
	docs  []retrieval.Document
	err   error
	calls int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, requests []retrieval.Request) ([]retrieval.Document, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

type fakeKB struct {
	interactions map[string]*kb.Fact
	protocols    map[string]*kb.Fact
}

func (f *fakeKB) LookupInteraction(ctx context.Context, medA, medB string) (*kb.Fact, error) {
	if fact, ok := f.interactions[kb.PairKey(medA, medB)]; ok {
		return fact, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeKB) LookupProtocol(ctx context.Context, condition string) (*kb.Fact, error) {
	if fact, ok := f.protocols[kb.ConditionKey(condition)]; ok {
		return fact, nil
	}
	return nil, storage.ErrNotFound
}

type fakeGenerator struct {
	replies []string
	errs    []error
	calls   int
}

func (f *fakeGenerator) ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return f.replies[len(f.replies)-1], nil
}

type fakeNotifier struct {
	events []escalation.Event
}

func (f *fakeNotifier) Notify(ctx context.Context, event escalation.Event) {
	f.events = append(f.events, event)
}

type testEnv struct {
	router    *recordingRouter
	retriever *fakeRetriever
	kbase     *fakeKB
	generator *fakeGenerator
	notifier  *fakeNotifier
	pipeline  *Pipeline
}

func newTestEnv(retriever *fakeRetriever, kbase *fakeKB, generator *fakeGenerator) *testEnv {
	env := &testEnv{
		router:    &recordingRouter{inner: retrieval.NewRouter(0)},
		retriever: retriever,
		kbase:     kbase,
		generator: generator,
		notifier:  &fakeNotifier{},
	}
	env.pipeline = New(
		env.router,
		env.retriever,
		ranking.NewRanker(0.5, 4000, 0),
		env.kbase,
		env.generator,
		env.notifier,
		Options{
			ConfidenceThreshold: 0.5,
			MaxReroutes:         2,
			CallTimeout:         time.Second,
			RetryCount:          1,
			BackoffBase:         time.Millisecond,
		},
	)
	return env
}

const safeCitedReply = "These medications can interact [S1]. Consult your doctor or another healthcare professional before combining them."

func emptyKB() *fakeKB {
	return &fakeKB{interactions: map[string]*kb.Fact{}, protocols: map[string]*kb.Fact{}}
}

func TestPipeline_Answer_EmergencyShortCircuit(t *testing.T) {
	env := newTestEnv(&fakeRetriever{}, emptyKB(), &fakeGenerator{replies: []string{"ignored"}})

	resp, err := env.pipeline.Answer(context.Background(), query.Query{
		Text: "I have crushing chest pain right now",
	})
	if err != nil {
		t.Fatalf("Answer() unexpected error: %v", err)
	}

	if !resp.Emergency {
		t.Error("expected emergency flag")
	}
	if resp.Trigger == "" {
		t.Error("expected recorded trigger")
	}
	if resp.Confidence != 1 {
		t.Errorf("confidence = %f, want 1", resp.Confidence)
	}
	if !strings.Contains(resp.Answer, "911") {
		t.Errorf("expected escalation instructions, got: %s", resp.Answer)
	}
	if len(env.notifier.events) != 1 {
		t.Fatalf("expected 1 escalation event, got %d", len(env.notifier.events))
	}
	if env.retriever.calls != 0 || env.generator.calls != 0 {
		t.Error("emergency must skip retrieval and generation")
	}
}

func TestPipeline_Answer_KBPrecisionSkipsRetrieval(t *testing.T) {
	kbase := emptyKB()
	kbase.interactions[kb.PairKey("warfarin", "aspirin")] = &kb.Fact{
		Kind:   kb.FactInteraction,
		Title:  "warfarin + aspirin",
		Text:   "Increased bleeding risk.",
		Source: "internal_kb",
	}
	env := newTestEnv(&fakeRetriever{}, kbase, &fakeGenerator{replies: []string{safeCitedReply}})

	resp, err := env.pipeline.Answer(context.Background(), query.Query{
		Text:   "can I take warfarin with aspirin?",
		Intent: "ask_interaction",
		Entities: query.Entities{
			Medications: []string{"warfarin", "aspirin"},
		},
	})
	if err != nil {
		t.Fatalf("Answer() unexpected error: %v", err)
	}

	if env.retriever.calls != 0 {
		t.Error("knowledge-base hit should skip the vector index")
	}
	if resp.Confidence < 0.5 {
		t.Errorf("exact-match answer should clear the gate, confidence = %f", resp.Confidence)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Name != "internal_kb" {
		t.Errorf("sources = %+v, want internal_kb", resp.Sources)
	}
}

func TestPipeline_Answer_RetrievalFailureFallsBackToKB(t *testing.T) {
	kbase := emptyKB()
	kbase.protocols[kb.ConditionKey("diabetes")] = &kb.Fact{
		Kind:   kb.FactProtocol,
		Title:  "diabetes",
		Text:   "Monitor blood glucose and follow your care plan.",
		Source: "internal_kb",
	}
	retriever := &fakeRetriever{err: fmt.Errorf("%w: index down", vectorstore.ErrUnavailable)}
	env := newTestEnv(retriever, kbase, &fakeGenerator{replies: []string{safeCitedReply}})

	resp, err := env.pipeline.Answer(context.Background(), query.Query{
		Text:   "how do I manage my diabetes day to day?",
		Intent: "chronic_care",
		Entities: query.Entities{
			Conditions: []string{"diabetes"},
		},
	})
	if err != nil {
		t.Fatalf("Answer() unexpected error: %v", err)
	}

	if retriever.calls == 0 {
		t.Error("hybrid strategy should attempt retrieval")
	}
	if resp.Answer == fallbackAnswer {
		t.Error("knowledge-base facts should avert the generic fallback")
	}
	if len(resp.Sources) == 0 || resp.Sources[0].Name != "internal_kb" {
		t.Errorf("sources = %+v, want internal_kb", resp.Sources)
	}
}

func TestPipeline_Answer_RetrievalFailureWithoutKBIsFallback(t *testing.T) {
	retriever := &fakeRetriever{err: fmt.Errorf("%w: index down", vectorstore.ErrUnavailable)}
	env := newTestEnv(retriever, emptyKB(), &fakeGenerator{replies: []string{safeCitedReply}})

	resp, err := env.pipeline.Answer(context.Background(), query.Query{
		Text:   "I have had a mild headache for two days",
		Intent: "symptom_check",
	})
	if err != nil {
		t.Fatalf("Answer() unexpected error: %v", err)
	}

	if resp.Answer != fallbackAnswer {
		t.Errorf("expected the generic fallback, got: %s", resp.Answer)
	}
	if resp.Confidence != 0 {
		t.Errorf("fallback confidence = %f, want 0", resp.Confidence)
	}
	if env.generator.calls != 0 {
		t.Error("no-context state must not call the model")
	}
}

func TestPipeline_Answer_HardFailReroutesEscalated(t *testing.T) {
	docs := []retrieval.Document{
		{SourceID: "p1", SourceName: "cdc", Text: "Hydration and rest help most mild fevers.", Similarity: 0.9, Credibility: 0.95},
	}
	generator := &fakeGenerator{replies: []string{
		"Stop taking your medication and the fever will pass.",
		"Hydration and rest help most mild fevers [S1]. Consult a doctor or healthcare professional if it persists.",
	}}
	env := newTestEnv(&fakeRetriever{docs: docs}, emptyKB(), generator)

	resp, err := env.pipeline.Answer(context.Background(), query.Query{
		Text:   "what helps with a mild fever?",
		Intent: "symptom_check",
	})
	if err != nil {
		t.Fatalf("Answer() unexpected error: %v", err)
	}

	if generator.calls != 2 {
		t.Fatalf("generator called %d times, want 2", generator.calls)
	}
	if len(env.router.escalation) != 2 || env.router.escalation[0] || !env.router.escalation[1] {
		t.Errorf("escalation flags = %v, want [false true]", env.router.escalation)
	}
	if resp.Answer == fallbackAnswer {
		t.Error("second attempt should have produced a real answer")
	}
	if !strings.Contains(resp.Answer, "[S1]") {
		t.Errorf("expected cited answer, got: %s", resp.Answer)
	}
}

func TestPipeline_Answer_RerouteBoundTerminates(t *testing.T) {
	docs := []retrieval.Document{
		{SourceID: "p1", SourceName: "cdc", Text: "Hydration and rest help most mild fevers.", Similarity: 0.9, Credibility: 0.95},
	}
	generator := &fakeGenerator{replies: []string{
		"Stop taking your medication immediately.",
	}}
	env := newTestEnv(&fakeRetriever{docs: docs}, emptyKB(), generator)

	resp, err := env.pipeline.Answer(context.Background(), query.Query{
		Text:   "what helps with a mild fever?",
		Intent: "symptom_check",
	})
	if err != nil {
		t.Fatalf("Answer() unexpected error: %v", err)
	}

	// Initial attempt plus two bounded re-routes.
	if generator.calls != 3 {
		t.Errorf("generator called %d times, want 3", generator.calls)
	}
	if resp.Answer != fallbackAnswer {
		t.Errorf("exhausted re-routes must yield the fallback, got: %s", resp.Answer)
	}
	if resp.Confidence != 0 {
		t.Errorf("fallback confidence = %f, want 0", resp.Confidence)
	}
}

func TestPipeline_Answer_LowConfidenceGetsQualifier(t *testing.T) {
	docs := []retrieval.Document{
		{SourceID: "p1", SourceName: "random-blog", Text: "Some people find ginger tea soothing.", Similarity: 0.2, Credibility: 0.3},
	}
	generator := &fakeGenerator{replies: []string{
		"Ginger tea may feel soothing [S1]. Consult a doctor or healthcare professional if symptoms persist.",
	}}
	env := newTestEnv(&fakeRetriever{docs: docs}, emptyKB(), generator)

	resp, err := env.pipeline.Answer(context.Background(), query.Query{
		Text:   "does ginger tea help with nausea?",
		Intent: "symptom_check",
	})
	if err != nil {
		t.Fatalf("Answer() unexpected error: %v", err)
	}

	if resp.Confidence >= 0.5 {
		t.Errorf("confidence = %f, want below threshold", resp.Confidence)
	}
	if !strings.Contains(resp.Answer, "consult a healthcare professional to confirm") {
		t.Errorf("expected forced consultation qualifier, got: %s", resp.Answer)
	}
}

func TestPipeline_Answer_GenerationRetriesTransient(t *testing.T) {
	docs := []retrieval.Document{
		{SourceID: "p1", SourceName: "cdc", Text: "Hydration and rest help most mild fevers.", Similarity: 0.9, Credibility: 0.95},
	}
	generator := &fakeGenerator{
		errs: []error{llm.ErrRateLimited},
		replies: []string{
			"",
			"Hydration and rest help most mild fevers [S1]. Consult a doctor or healthcare professional if it persists.",
		},
	}
	env := newTestEnv(&fakeRetriever{docs: docs}, emptyKB(), generator)

	resp, err := env.pipeline.Answer(context.Background(), query.Query{
		Text:   "what helps with a mild fever?",
		Intent: "symptom_check",
	})
	if err != nil {
		t.Fatalf("Answer() unexpected error: %v", err)
	}

	if generator.calls != 2 {
		t.Errorf("generator called %d times, want 2 (one retry)", generator.calls)
	}
	if resp.Answer == fallbackAnswer {
		t.Error("transient failure should be retried, not degraded")
	}
}

func TestPipeline_Answer_PermanentGenerationFailureIsFallback(t *testing.T) {
	docs := []retrieval.Document{
		{SourceID: "p1", SourceName: "cdc", Text: "Hydration and rest help most mild fevers.", Similarity: 0.9, Credibility: 0.95},
	}
	generator := &fakeGenerator{errs: []error{errors.New("model crashed")}, replies: []string{""}}
	env := newTestEnv(&fakeRetriever{docs: docs}, emptyKB(), generator)

	resp, err := env.pipeline.Answer(context.Background(), query.Query{
		Text:   "what helps with a mild fever?",
		Intent: "symptom_check",
	})
	if err != nil {
		t.Fatalf("Answer() unexpected error: %v", err)
	}

	if generator.calls != 1 {
		t.Errorf("permanent failure retried %d times, want 1 call", generator.calls)
	}
	if resp.Answer != fallbackAnswer || resp.Confidence != 0 {
		t.Errorf("expected fallback response, got %+v", resp)
	}
}
