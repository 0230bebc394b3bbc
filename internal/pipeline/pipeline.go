package pipeline

import (
	"context"
	"fmt"
	"time"

	"medbot-ai/internal/contextutil"
	"medbot-ai/internal/escalation"
	"medbot-ai/internal/kb"
	"medbot-ai/internal/llm"
	"medbot-ai/internal/prompt"
	"medbot-ai/internal/query"
	"medbot-ai/internal/ranking"
	"medbot-ai/internal/retrieval"
	"medbot-ai/internal/safety"
)

// Router routes a classified query. Re-entry from the feedback loop sets
// escalated.
type Router interface {
	Route(q query.Query, cls query.Classification, escalated bool) retrieval.Route
}

// Retriever runs routed requests against the vector index.
type Retriever interface {
	Retrieve(ctx context.Context, requests []retrieval.Request) ([]retrieval.Document, error)
}

// Ranker orders retrieved passages into a bounded context.
type Ranker interface {
	Rank(docs []retrieval.Document, queryCategory string, now time.Time) ranking.RankedContext
}

// KnowledgeBase is the exact-match fact store.
type KnowledgeBase interface {
	LookupInteraction(ctx context.Context, medA, medB string) (*kb.Fact, error)
	LookupProtocol(ctx context.Context, condition string) (*kb.Fact, error)
}

// Generator produces the answer text from the assembled prompt.
type Generator interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Source is one entry in a response's provenance list.
type Source struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Response is the terminal artifact returned to the caller.
type Response struct {
	Answer     string   `json:"answer"`
	Sources    []Source `json:"sources"`
	Confidence float64  `json:"confidence"`
	Emergency  bool     `json:"emergency"`
	Trigger    string   `json:"trigger,omitempty"`
}

// Options holds the pipeline's policy knobs.
type Options struct {
	ConfidenceThreshold float64
	MaxReroutes         int
	CallTimeout         time.Duration
	RetryCount          int
	BackoffBase         time.Duration
}

// Pipeline wires emergency detection, classification, routing, retrieval,
// ranking, generation, and validation into the end-to-end answer flow.
type Pipeline struct {
	router    Router
	retriever Retriever
	ranker    Ranker
	kbase     KnowledgeBase
	generator Generator
	validator *safety.Validator
	notifier  escalation.Notifier
	opts      Options

	now func() time.Time
}

// New creates a pipeline.
func New(router Router, retriever Retriever, ranker Ranker, kbase KnowledgeBase, generator Generator, notifier escalation.Notifier, opts Options) *Pipeline {
	return &Pipeline{
		router:    router,
		retriever: retriever,
		ranker:    ranker,
		kbase:     kbase,
		generator: generator,
		validator: safety.NewValidator(),
		notifier:  notifier,
		opts:      opts,
		now:       time.Now,
	}
}

const emergencyAnswer = "Your message mentions signs of a possible medical emergency. Please call your local emergency number (911/999/112) or go to the nearest emergency room now. Do not wait for an online answer."

const fallbackAnswer = "I'm unable to confidently answer this question. Please consult a doctor or another qualified healthcare professional for personalized guidance."

// Answer runs one query through the full pipeline. Emergencies short-circuit
// before any retrieval or generation. Hard validation failures re-enter the
// router with an escalation flag at most MaxReroutes times; exhausting the
// bound yields a safe generic fallback rather than looping.
func (p *Pipeline) Answer(ctx context.Context, q query.Query) (Response, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if detection := query.DetectEmergency(q); detection.Detected {
		logger.WarnContext(ctx, "emergency detected", "trigger", detection.Trigger)
		p.notifier.Notify(ctx, escalation.Event{
			QueryText:  q.Text,
			Trigger:    detection.Trigger,
			DetectedAt: p.now().UTC(),
		})
		return Response{
			Answer:     emergencyAnswer + "\n\n" + safety.DisclaimerFor(query.CategoryEmergency),
			Confidence: 1,
			Emergency:  true,
			Trigger:    detection.Trigger,
		}, nil
	}

	cls := query.Classify(q)
	logger.InfoContext(ctx, "query classified", "category", cls.Category, "rule", cls.RuleID)

	for attempt := 0; attempt <= p.opts.MaxReroutes; attempt++ {
		response, verdict, err := p.attempt(ctx, q, cls, attempt > 0)
		if err != nil {
			return p.fallback(), nil
		}
		if verdict == safety.VerdictHardFail {
			logger.WarnContext(ctx, "validation hard failure, re-routing", "attempt", attempt, "category", cls.Category)
			continue
		}
		return response, nil
	}

	logger.WarnContext(ctx, "re-route bound exhausted", "category", cls.Category, "max_reroutes", p.opts.MaxReroutes)
	return p.fallback(), nil
}

// attempt runs one routing/retrieval/generation/validation round.
func (p *Pipeline) attempt(ctx context.Context, q query.Query, cls query.Classification, escalated bool) (Response, safety.Verdict, error) {
	logger := contextutil.LoggerFromContext(ctx)

	route := p.router.Route(q, cls, escalated)
	facts := p.lookupFacts(ctx, q, cls, route)

	// A knowledge-base hit on an interaction query answers the question
	// exactly; skip the index entirely.
	skipRetrieval := route.Strategy == retrieval.StrategyInteractionFocused && len(facts) > 0

	var docs []retrieval.Document
	if len(route.Requests) > 0 && !skipRetrieval {
		var err error
		docs, err = p.retriever.Retrieve(ctx, route.Requests)
		if err != nil {
			if len(facts) == 0 {
				logger.ErrorContext(ctx, "retrieval failed with no knowledge-base fallback", "error", err)
				return Response{}, "", fmt.Errorf("%w: %w", ErrNoContext, err)
			}
			logger.WarnContext(ctx, "retrieval failed, continuing with knowledge base only", "error", err)
			docs = nil
		}
	}

	rc := p.ranker.Rank(docs, string(cls.Category), p.now())
	built := prompt.Build(q, facts, rc)

	text, err := p.generate(ctx, built)
	if err != nil {
		logger.ErrorContext(ctx, "generation failed", "error", err)
		return Response{}, "", fmt.Errorf("%w: %w", ErrGenerationFailure, err)
	}

	result := p.validator.Validate(text, built, cls)
	if result.Verdict == safety.VerdictHardFail {
		return Response{}, result.Verdict, nil
	}

	score := safety.ScoreConfidence(scoringContext(facts, rc), result)
	result = safety.ApplyConfidenceGate(result, score, p.opts.ConfidenceThreshold)

	logger.InfoContext(ctx, "answer validated",
		"verdict", result.Verdict,
		"confidence", score.Value,
		"sources", rc.SourceDiversity,
		"kb_facts", len(facts))

	return Response{
		Answer:     result.Text,
		Sources:    sourceList(facts, rc),
		Confidence: score.Value,
	}, result.Verdict, nil
}

// lookupFacts queries the knowledge base per the routing decision. Misses
// are silent; only real failures are logged.
func (p *Pipeline) lookupFacts(ctx context.Context, q query.Query, cls query.Classification, route retrieval.Route) []kb.Fact {
	if !route.UseKB {
		return nil
	}
	logger := contextutil.LoggerFromContext(ctx)
	var facts []kb.Fact

	if cls.Category == query.CategoryDrugInteraction {
		meds := q.Entities.Medications
		for i := 0; i < len(meds); i++ {
			for j := i + 1; j < len(meds); j++ {
				fact, err := p.kbase.LookupInteraction(ctx, meds[i], meds[j])
				if err != nil {
					continue
				}
				facts = append(facts, *fact)
			}
		}
		if len(facts) == 0 && len(meds) > 0 {
			logger.InfoContext(ctx, "no knowledge-base interaction entry", "medications", meds)
		}
	}

	if cls.Category == query.CategoryChronicCare {
		for _, condition := range q.Entities.Conditions {
			fact, err := p.kbase.LookupProtocol(ctx, condition)
			if err != nil {
				continue
			}
			facts = append(facts, *fact)
		}
	}

	return facts
}

// generate calls the model under the per-call timeout, retrying transient
// failures with exponential backoff. Content-policy rejections and other
// permanent failures are not retried.
func (p *Pipeline) generate(ctx context.Context, built prompt.Prompt) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= p.opts.RetryCount; attempt++ {
		if attempt > 0 {
			backoff := p.opts.BackoffBase << (attempt - 1)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, p.opts.CallTimeout)
		text, err := p.generator.ChatWithMessages(callCtx, built.Messages(), llm.ChatParams{})
		cancel()
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !llm.IsTransient(err) {
			return "", err
		}
	}
	return "", lastErr
}

func (p *Pipeline) fallback() Response {
	return Response{
		Answer:     fallbackAnswer,
		Confidence: 0,
	}
}

// scoringContext folds knowledge-base facts into the context statistics used
// for confidence. An exact-match fact is full-similarity grounding; without
// this, a knowledge-base-only answer would always score as if ungrounded.
func scoringContext(facts []kb.Fact, rc ranking.RankedContext) ranking.RankedContext {
	if len(facts) == 0 {
		return rc
	}
	docs := make([]retrieval.Document, 0, len(facts)+len(rc.Documents))
	for _, fact := range facts {
		docs = append(docs, retrieval.Document{
			SourceName:  fact.Source,
			Text:        fact.Text,
			Similarity:  1,
			Credibility: ranking.CredibilityFor(fact.Source),
		})
	}
	docs = append(docs, rc.Documents...)
	return ranking.RankedContext{Documents: docs, SourceDiversity: rc.SourceDiversity}
}

// sourceList builds the per-source provenance list: knowledge-base facts
// carry their source's trust weight, passages carry their similarity.
func sourceList(facts []kb.Fact, rc ranking.RankedContext) []Source {
	var sources []Source
	index := make(map[string]int)

	add := func(name string, confidence float64) {
		if name == "" {
			return
		}
		if i, ok := index[name]; ok {
			if confidence > sources[i].Confidence {
				sources[i].Confidence = confidence
			}
			return
		}
		index[name] = len(sources)
		sources = append(sources, Source{Name: name, Confidence: confidence})
	}

	for _, fact := range facts {
		add(fact.Source, ranking.CredibilityFor(fact.Source))
	}
	for _, doc := range rc.Documents {
		add(doc.SourceName, doc.Similarity)
	}
	return sources
}
