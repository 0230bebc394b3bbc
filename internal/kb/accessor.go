package kb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"medbot-ai/internal/contextutil"
	"medbot-ai/internal/storage"
)

// FactKind distinguishes the structured fact types the KB can answer with.
type FactKind string

const (
	FactInteraction FactKind = "interaction"
	FactProtocol    FactKind = "protocol"
)

// Fact is a structured knowledge base entry. Exact match only: the accessor
// never returns partial or fuzzy results.
type Fact struct {
	Kind      FactKind
	Title     string
	Text      string
	Source    string
	Severity  string
	UpdatedAt time.Time
}

// Accessor provides exact-key lookups against the knowledge base. The
// underlying store is read-mostly, seeded at startup, and safe for
// concurrent readers.
type Accessor struct {
	store storage.KBStore
}

// NewAccessor creates a new knowledge base accessor.
func NewAccessor(store storage.KBStore) *Accessor {
	return &Accessor{store: store}
}

// PairKey normalizes a medication pair into the canonical lookup key:
// lowercased, trimmed, sorted, joined with "+". Order of arguments does
// not matter.
func PairKey(medA, medB string) string {
	pair := []string{
		strings.ToLower(strings.TrimSpace(medA)),
		strings.ToLower(strings.TrimSpace(medB)),
	}
	sort.Strings(pair)
	return pair[0] + "+" + pair[1]
}

// ConditionKey normalizes a condition name into the canonical lookup key.
func ConditionKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// LookupInteraction returns the interaction fact for a medication pair.
// Returns storage.ErrNotFound when the pair is not in the KB.
func (a *Accessor) LookupInteraction(ctx context.Context, medA, medB string) (*Fact, error) {
	logger := contextutil.LoggerFromContext(ctx)

	key := PairKey(medA, medB)
	rec, err := a.store.GetInteraction(ctx, key)
	if err != nil {
		if err == storage.ErrNotFound {
			logger.DebugContext(ctx, "KB interaction miss", "pair_key", key)
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up interaction: %w", err)
	}

	logger.InfoContext(ctx, "KB interaction hit", "pair_key", key, "severity", rec.Severity)
	return &Fact{
		Kind:      FactInteraction,
		Title:     fmt.Sprintf("Interaction: %s + %s", rec.MedA, rec.MedB),
		Text:      rec.Description,
		Source:    rec.Source,
		Severity:  rec.Severity,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

// LookupProtocol returns the management protocol fact for a condition.
// Returns storage.ErrNotFound when the condition is not in the KB.
func (a *Accessor) LookupProtocol(ctx context.Context, condition string) (*Fact, error) {
	logger := contextutil.LoggerFromContext(ctx)

	key := ConditionKey(condition)
	rec, err := a.store.GetProtocol(ctx, key)
	if err != nil {
		if err == storage.ErrNotFound {
			logger.DebugContext(ctx, "KB protocol miss", "condition_key", key)
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up protocol: %w", err)
	}

	logger.InfoContext(ctx, "KB protocol hit", "condition_key", key)
	return &Fact{
		Kind:      FactProtocol,
		Title:     fmt.Sprintf("Protocol: %s", rec.ConditionName),
		Text:      rec.Guidance,
		Source:    rec.Source,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

// Stats returns the number of interaction and protocol entries.
func (a *Accessor) Stats(ctx context.Context) (interactions int, protocols int, err error) {
	return a.store.CountEntries(ctx)
}
