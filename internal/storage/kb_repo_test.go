package storage

import (
	"context"
	"errors"
	"testing"
)

func openTestDB(t *testing.T) *KBRepo {
	t.Helper()
	db, err := New(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewKBRepo(db)
}

func TestKBRepo_InteractionRoundTrip(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	rec := &InteractionRecord{
		PairKey:     "aspirin+warfarin",
		MedA:        "aspirin",
		MedB:        "warfarin",
		Severity:    "major",
		Description: "Increased bleeding risk when combined.",
		Source:      "drugbank",
	}
	if err := repo.UpsertInteraction(ctx, rec); err != nil {
		t.Fatalf("UpsertInteraction() error = %v", err)
	}

	got, err := repo.GetInteraction(ctx, "aspirin+warfarin")
	if err != nil {
		t.Fatalf("GetInteraction() error = %v", err)
	}
	if got.MedA != "aspirin" || got.MedB != "warfarin" {
		t.Errorf("unexpected medications: %s, %s", got.MedA, got.MedB)
	}
	if got.Severity != "major" {
		t.Errorf("expected severity major, got %s", got.Severity)
	}
	if got.UpdatedAt.IsZero() {
		t.Errorf("expected updated_at to be set")
	}
}

func TestKBRepo_InteractionNotFound(t *testing.T) {
	repo := openTestDB(t)

	_, err := repo.GetInteraction(context.Background(), "aspirin+ibuprofen")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestKBRepo_InteractionUpsertReplaces(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	rec := &InteractionRecord{
		PairKey: "aspirin+warfarin", MedA: "aspirin", MedB: "warfarin",
		Severity: "moderate", Description: "old", Source: "internal_kb",
	}
	if err := repo.UpsertInteraction(ctx, rec); err != nil {
		t.Fatalf("UpsertInteraction() error = %v", err)
	}
	rec.Severity = "major"
	rec.Description = "new"
	if err := repo.UpsertInteraction(ctx, rec); err != nil {
		t.Fatalf("UpsertInteraction() second error = %v", err)
	}

	got, err := repo.GetInteraction(ctx, "aspirin+warfarin")
	if err != nil {
		t.Fatalf("GetInteraction() error = %v", err)
	}
	if got.Severity != "major" || got.Description != "new" {
		t.Errorf("upsert did not replace: %+v", got)
	}
}

func TestKBRepo_ProtocolRoundTrip(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	rec := &ProtocolRecord{
		ConditionKey:  "diabetes",
		ConditionName: "Diabetes",
		Guidance:      "Monitor blood glucose; maintain diet and exercise plan.",
		Source:        "internal_kb",
	}
	if err := repo.UpsertProtocol(ctx, rec); err != nil {
		t.Fatalf("UpsertProtocol() error = %v", err)
	}

	got, err := repo.GetProtocol(ctx, "diabetes")
	if err != nil {
		t.Fatalf("GetProtocol() error = %v", err)
	}
	if got.ConditionName != "Diabetes" {
		t.Errorf("unexpected condition name: %s", got.ConditionName)
	}

	if _, err := repo.GetProtocol(ctx, "asthma"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown condition, got %v", err)
	}
}

func TestKBRepo_CountEntries(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	interactions, protocols, err := repo.CountEntries(ctx)
	if err != nil {
		t.Fatalf("CountEntries() error = %v", err)
	}
	if interactions != 0 || protocols != 0 {
		t.Fatalf("expected empty KB, got %d/%d", interactions, protocols)
	}

	_ = repo.UpsertInteraction(ctx, &InteractionRecord{
		PairKey: "a+b", MedA: "a", MedB: "b", Severity: "minor", Description: "d", Source: "s",
	})
	_ = repo.UpsertProtocol(ctx, &ProtocolRecord{
		ConditionKey: "c", ConditionName: "C", Guidance: "g", Source: "s",
	})

	interactions, protocols, err = repo.CountEntries(ctx)
	if err != nil {
		t.Fatalf("CountEntries() error = %v", err)
	}
	if interactions != 1 || protocols != 1 {
		t.Errorf("expected 1/1, got %d/%d", interactions, protocols)
	}
}
