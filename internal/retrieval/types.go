package retrieval

import (
	"time"

	"medbot-ai/internal/vectorstore"
)

// Strategy identifies how a routed query should be answered.
type Strategy string

const (
	// StrategyInteractionFocused checks the knowledge base for the exact
	// medication pair first, then searches passages filtered to those
	// medications.
	StrategyInteractionFocused Strategy = "interaction_focused"

	// StrategySymptomFocused searches passages filtered to the query's
	// category, with a recency window when one is configured.
	StrategySymptomFocused Strategy = "symptom_focused"

	// StrategyHybrid combines knowledge-base lookups with one passage
	// search per extracted condition.
	StrategyHybrid Strategy = "hybrid"

	// StrategyKBOnly skips the vector index entirely.
	StrategyKBOnly Strategy = "kb_only"
)

// Request describes one similarity query against the vector index.
// A routing decision may produce several (multi-condition queries fan out
// into one request per condition). Requests are discarded after retrieval.
type Request struct {
	Text     string
	Filter   vectorstore.Filter
	TopK     int
	Strategy Strategy
}

// Document is one scored passage returned by the vector index.
// It is read-only once produced; ranking and prompt building never mutate it.
type Document struct {
	SourceID    string
	SourceName  string
	Text        string
	Heading     string
	Category    string
	Similarity  float64
	Credibility float64
	UpdatedAt   time.Time
}
