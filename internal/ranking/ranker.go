package ranking

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"medbot-ai/internal/retrieval"
)

// Blended score weights. These are policy defaults, not a contract; the
// relative order (similarity over credibility over recency) is what matters.
const (
	similarityWeight  = 0.6
	credibilityWeight = 0.3
	recencyWeight     = 0.1

	// categoryBoost nudges passages whose category matches the query's.
	categoryBoost = 0.05

	// recencyHalfLifeDays controls the exponential decay of the recency
	// term: a passage this old scores half the recency weight.
	recencyHalfLifeDays = 365.0
)

// Ranker orders retrieved passages into a bounded context window.
type Ranker struct {
	lambda            float64
	charBudget        int
	recencyCutoffDays int
}

// NewRanker creates a ranker. lambda balances relevance against diversity in
// the marginal-relevance pass, charBudget bounds the total context size in
// characters, and recencyCutoffDays drops older passages when positive.
func NewRanker(lambda float64, charBudget, recencyCutoffDays int) *Ranker {
	return &Ranker{
		lambda:            lambda,
		charBudget:        charBudget,
		recencyCutoffDays: recencyCutoffDays,
	}
}

// RankedContext is the ordered, deduplicated, budget-bounded passage set
// handed to prompt building, plus the aggregate statistics confidence
// scoring needs.
type RankedContext struct {
	Documents       []retrieval.Document
	SourceDiversity int
	Oldest          time.Time
	Newest          time.Time
}

// Empty reports whether no passages survived filtering. Downstream treats
// this differently from "present but weak" context.
func (rc RankedContext) Empty() bool {
	return len(rc.Documents) == 0
}

// MeanSimilarity averages the similarity scores; zero when empty.
func (rc RankedContext) MeanSimilarity() float64 {
	if len(rc.Documents) == 0 {
		return 0
	}
	var sum float64
	for _, doc := range rc.Documents {
		sum += doc.Similarity
	}
	return sum / float64(len(rc.Documents))
}

// MeanCredibility averages the credibility weights; zero when empty.
func (rc RankedContext) MeanCredibility() float64 {
	if len(rc.Documents) == 0 {
		return 0
	}
	var sum float64
	for _, doc := range rc.Documents {
		sum += credibilityOf(doc)
	}
	return sum / float64(len(rc.Documents))
}

// Rank filters, deduplicates, diversifies, reranks, and truncates the
// retrieved passages. The result depends only on document content, never on
// input arrival order beyond tie-breaking, and ranking an already ranked
// context again yields the same context.
func (r *Ranker) Rank(docs []retrieval.Document, queryCategory string, now time.Time) RankedContext {
	candidates := r.filterRecency(docs, now)
	candidates = dedupe(candidates)
	candidates = r.diversify(candidates)

	sort.SliceStable(candidates, func(a, b int) bool {
		return r.blendedScore(candidates[a], queryCategory, now) > r.blendedScore(candidates[b], queryCategory, now)
	})

	candidates = r.truncate(candidates)
	return buildContext(candidates)
}

// filterRecency drops passages older than the cutoff. Passages without a
// timestamp are kept; an unknown age is not evidence of staleness.
func (r *Ranker) filterRecency(docs []retrieval.Document, now time.Time) []retrieval.Document {
	if r.recencyCutoffDays <= 0 {
		return append([]retrieval.Document(nil), docs...)
	}
	cutoff := now.AddDate(0, 0, -r.recencyCutoffDays)
	kept := make([]retrieval.Document, 0, len(docs))
	for _, doc := range docs {
		if doc.UpdatedAt.IsZero() || !doc.UpdatedAt.Before(cutoff) {
			kept = append(kept, doc)
		}
	}
	return kept
}

// dedupe removes passages with the same source and normalized text span,
// keeping the higher-similarity copy.
func dedupe(docs []retrieval.Document) []retrieval.Document {
	seen := make(map[string]int, len(docs))
	kept := make([]retrieval.Document, 0, len(docs))
	for _, doc := range docs {
		key := strings.ToLower(doc.SourceName) + "\x00" + normalizeSpan(doc.Text)
		if idx, dup := seen[key]; dup {
			if doc.Similarity > kept[idx].Similarity {
				kept[idx] = doc
			}
			continue
		}
		seen[key] = len(kept)
		kept = append(kept, doc)
	}
	return kept
}

// diversify runs maximal-marginal-relevance selection: it repeatedly picks
// the candidate maximizing lambda*similarity - (1-lambda)*max_overlap_to_selected
// and drops candidates whose marginal score goes negative, so near-duplicate
// passages cannot dominate the context.
func (r *Ranker) diversify(docs []retrieval.Document) []retrieval.Document {
	if len(docs) <= 1 {
		return docs
	}

	tokens := make([]map[string]struct{}, len(docs))
	for i, doc := range docs {
		tokens[i] = tokenSet(doc.Text)
	}

	selected := make([]retrieval.Document, 0, len(docs))
	selectedTokens := make([]map[string]struct{}, 0, len(docs))
	remaining := make([]int, len(docs))
	for i := range docs {
		remaining[i] = i
	}

	for len(remaining) > 0 {
		bestPos := -1
		bestScore := math.Inf(-1)
		for pos, idx := range remaining {
			redundancy := 0.0
			for _, sel := range selectedTokens {
				if overlap := tokenOverlap(tokens[idx], sel); overlap > redundancy {
					redundancy = overlap
				}
			}
			score := r.lambda*docs[idx].Similarity - (1-r.lambda)*redundancy
			if score > bestScore {
				bestScore = score
				bestPos = pos
			}
		}

		if bestScore < 0 && len(selected) > 0 {
			break
		}

		idx := remaining[bestPos]
		selected = append(selected, docs[idx])
		selectedTokens = append(selectedTokens, tokens[idx])
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	return selected
}

// blendedScore combines similarity, credibility, and recency decay, with a
// small boost for passages in the query's own category. Clamped to [0,1].
func (r *Ranker) blendedScore(doc retrieval.Document, queryCategory string, now time.Time) float64 {
	score := similarityWeight*doc.Similarity +
		credibilityWeight*credibilityOf(doc) +
		recencyWeight*recencyDecay(doc.UpdatedAt, now)
	if queryCategory != "" && doc.Category == queryCategory {
		score += categoryBoost
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// truncate enforces the character budget, dropping the lowest-scored
// passages first. The input is already ordered best-first.
func (r *Ranker) truncate(docs []retrieval.Document) []retrieval.Document {
	if r.charBudget <= 0 {
		return docs
	}
	total := 0
	for i, doc := range docs {
		total += len(doc.Text)
		if total > r.charBudget {
			return docs[:i]
		}
	}
	return docs
}

func buildContext(docs []retrieval.Document) RankedContext {
	rc := RankedContext{Documents: docs}
	sources := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		sources[strings.ToLower(doc.SourceName)] = struct{}{}
		if !doc.UpdatedAt.IsZero() {
			if rc.Oldest.IsZero() || doc.UpdatedAt.Before(rc.Oldest) {
				rc.Oldest = doc.UpdatedAt
			}
			if rc.Newest.IsZero() || doc.UpdatedAt.After(rc.Newest) {
				rc.Newest = doc.UpdatedAt
			}
		}
	}
	rc.SourceDiversity = len(sources)
	return rc
}

// credibilityOf prefers the weight carried by the passage itself, falling
// back to the source table.
func credibilityOf(doc retrieval.Document) float64 {
	if doc.Credibility > 0 {
		return doc.Credibility
	}
	return CredibilityFor(doc.SourceName)
}

// recencyDecay is an exponential decay over the passage's age. Passages
// without a timestamp get a neutral middle value.
func recencyDecay(updatedAt, now time.Time) float64 {
	if updatedAt.IsZero() {
		return 0.5
	}
	ageDays := now.Sub(updatedAt).Hours() / 24
	if ageDays <= 0 {
		return 1
	}
	return math.Exp(-math.Ln2 * ageDays / recencyHalfLifeDays)
}

// normalizeSpan collapses a text span to its token stream so formatting
// differences do not defeat deduplication.
func normalizeSpan(text string) string {
	return strings.Join(tokenize(text), " ")
}

func tokenize(text string) []string {
	if text == "" {
		return nil
	}
	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	return strings.Fields(builder.String())
}

func tokenSet(text string) map[string]struct{} {
	tokens := tokenize(text)
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

// tokenOverlap is the overlap coefficient between two token sets.
func tokenOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	var shared int
	for token := range small {
		if _, ok := large[token]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(small))
}
