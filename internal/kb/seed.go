package kb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"medbot-ai/internal/contextutil"
	"medbot-ai/internal/storage"
)

// seedFile is the on-disk JSON shape of a knowledge base export.
type seedFile struct {
	// Interactions maps "drug1,drug2" keys to interaction entries.
	Interactions map[string]seedInteraction `json:"interactions"`
	// ChronicConditions maps condition names to protocol entries.
	ChronicConditions map[string]seedProtocol `json:"chronic_conditions"`
}

type seedInteraction struct {
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Source      string `json:"source"`
}

type seedProtocol struct {
	Guidance string `json:"guidance"`
	Source   string `json:"source"`
}

// Seed loads a JSON knowledge base export into the store. It is idempotent:
// existing entries are replaced. Missing files are an error; the caller
// decides whether seeding is required.
func Seed(ctx context.Context, store storage.KBStore, path string) error {
	logger := contextutil.LoggerFromContext(ctx)

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read knowledge base file: %w", err)
	}

	var file seedFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("failed to parse knowledge base file: %w", err)
	}

	for pair, entry := range file.Interactions {
		meds := strings.SplitN(pair, ",", 2)
		if len(meds) != 2 {
			logger.WarnContext(ctx, "skipping malformed interaction key", "key", pair)
			continue
		}
		medA := strings.TrimSpace(meds[0])
		medB := strings.TrimSpace(meds[1])
		source := entry.Source
		if source == "" {
			source = "internal_kb"
		}
		rec := &storage.InteractionRecord{
			PairKey:     PairKey(medA, medB),
			MedA:        strings.ToLower(medA),
			MedB:        strings.ToLower(medB),
			Severity:    entry.Severity,
			Description: entry.Description,
			Source:      source,
		}
		if err := store.UpsertInteraction(ctx, rec); err != nil {
			return fmt.Errorf("failed to seed interaction %q: %w", pair, err)
		}
	}

	for condition, entry := range file.ChronicConditions {
		source := entry.Source
		if source == "" {
			source = "internal_kb"
		}
		rec := &storage.ProtocolRecord{
			ConditionKey:  ConditionKey(condition),
			ConditionName: condition,
			Guidance:      entry.Guidance,
			Source:        source,
		}
		if err := store.UpsertProtocol(ctx, rec); err != nil {
			return fmt.Errorf("failed to seed protocol %q: %w", condition, err)
		}
	}

	logger.InfoContext(ctx, "knowledge base seeded",
		"interactions", len(file.Interactions),
		"protocols", len(file.ChronicConditions),
	)
	return nil
}
