package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_kb_store.go -package=mocks medbot-ai/internal/storage KBStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// KBStore defines the interface for knowledge base storage operations.
type KBStore interface {
	// GetInteraction gets an interaction by its normalized pair key.
	// Returns nil and ErrNotFound if not found.
	GetInteraction(ctx context.Context, pairKey string) (*InteractionRecord, error)
	// GetProtocol gets a condition protocol by its normalized condition key.
	// Returns nil and ErrNotFound if not found.
	GetProtocol(ctx context.Context, conditionKey string) (*ProtocolRecord, error)
	// UpsertInteraction inserts or replaces an interaction record.
	UpsertInteraction(ctx context.Context, rec *InteractionRecord) error
	// UpsertProtocol inserts or replaces a protocol record.
	UpsertProtocol(ctx context.Context, rec *ProtocolRecord) error
	// CountEntries returns the number of interaction and protocol records.
	CountEntries(ctx context.Context) (interactions int, protocols int, err error)
}

// KBRepo provides methods for knowledge base operations.
// It implements the KBStore interface.
type KBRepo struct {
	db *sql.DB
}

// NewKBRepo creates a new KBRepo.
func NewKBRepo(db *sql.DB) *KBRepo {
	return &KBRepo{db: db}
}

// GetInteraction gets an interaction by its normalized pair key.
// Returns nil and ErrNotFound if not found.
func (r *KBRepo) GetInteraction(ctx context.Context, pairKey string) (*InteractionRecord, error) {
	var rec InteractionRecord
	var updatedAtStr string

	err := r.db.QueryRowContext(ctx,
		"SELECT pair_key, med_a, med_b, severity, description, source, updated_at FROM interactions WHERE pair_key = ?",
		pairKey,
	).Scan(&rec.PairKey, &rec.MedA, &rec.MedB, &rec.Severity, &rec.Description, &rec.Source, &updatedAtStr)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query interaction: %w", err)
	}

	rec.UpdatedAt = parseTimestamp(updatedAtStr)
	return &rec, nil
}

// GetProtocol gets a condition protocol by its normalized condition key.
// Returns nil and ErrNotFound if not found.
func (r *KBRepo) GetProtocol(ctx context.Context, conditionKey string) (*ProtocolRecord, error) {
	var rec ProtocolRecord
	var updatedAtStr string

	err := r.db.QueryRowContext(ctx,
		"SELECT condition_key, condition_name, guidance, source, updated_at FROM protocols WHERE condition_key = ?",
		conditionKey,
	).Scan(&rec.ConditionKey, &rec.ConditionName, &rec.Guidance, &rec.Source, &updatedAtStr)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query protocol: %w", err)
	}

	rec.UpdatedAt = parseTimestamp(updatedAtStr)
	return &rec, nil
}

// UpsertInteraction inserts or replaces an interaction record.
func (r *KBRepo) UpsertInteraction(ctx context.Context, rec *InteractionRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO interactions (pair_key, med_a, med_b, severity, description, source, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(pair_key) DO UPDATE SET
		   med_a = excluded.med_a, med_b = excluded.med_b, severity = excluded.severity,
		   description = excluded.description, source = excluded.source, updated_at = CURRENT_TIMESTAMP`,
		rec.PairKey, rec.MedA, rec.MedB, rec.Severity, rec.Description, rec.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert interaction: %w", err)
	}
	return nil
}

// UpsertProtocol inserts or replaces a protocol record.
func (r *KBRepo) UpsertProtocol(ctx context.Context, rec *ProtocolRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO protocols (condition_key, condition_name, guidance, source, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(condition_key) DO UPDATE SET
		   condition_name = excluded.condition_name, guidance = excluded.guidance,
		   source = excluded.source, updated_at = CURRENT_TIMESTAMP`,
		rec.ConditionKey, rec.ConditionName, rec.Guidance, rec.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert protocol: %w", err)
	}
	return nil
}

// CountEntries returns the number of interaction and protocol records.
func (r *KBRepo) CountEntries(ctx context.Context) (int, int, error) {
	var interactions, protocols int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM interactions").Scan(&interactions); err != nil {
		return 0, 0, fmt.Errorf("failed to count interactions: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM protocols").Scan(&protocols); err != nil {
		return 0, 0, fmt.Errorf("failed to count protocols: %w", err)
	}
	return interactions, protocols, nil
}

// parseTimestamp parses a SQLite DATETIME string, tolerating both the default
// format and RFC3339. A zero time is returned for unparseable values.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
