package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks medbot-ai/internal/storage DocumentStore
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_passage_store.go -package=mocks medbot-ai/internal/storage PassageStore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// DocumentStore defines the interface for guideline document registry operations.
type DocumentStore interface {
	// GetByPath gets a document by its relative path.
	// Returns nil and ErrNotFound if not found.
	GetByPath(ctx context.Context, relPath string) (*DocumentRecord, error)
	// Upsert inserts a new document or updates an existing one.
	// A missing ID is assigned a new UUID.
	Upsert(ctx context.Context, doc *DocumentRecord) error
	// Count returns the number of registered documents.
	Count(ctx context.Context) (int, error)
}

// PassageStore defines the interface for passage storage operations.
type PassageStore interface {
	// Insert inserts a single passage. The passage.ID must be set (UUID).
	Insert(ctx context.Context, passage *PassageRecord) error
	// DeleteByDocument deletes all passages for a given document ID.
	DeleteByDocument(ctx context.Context, documentID string) error
	// ListIDsByDocument returns all passage IDs for a document, ordered by chunk_index.
	ListIDsByDocument(ctx context.Context, documentID string) ([]string, error)
	// GetByID gets a passage by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*PassageRecord, error)
}

// DocumentRepo provides methods for document registry operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// GetByPath gets a document by its relative path.
// Returns nil and ErrNotFound if not found.
func (r *DocumentRepo) GetByPath(ctx context.Context, relPath string) (*DocumentRecord, error) {
	var doc DocumentRecord
	var updatedAtStr string

	err := r.db.QueryRowContext(ctx,
		"SELECT id, rel_path, title, source, category, credibility, updated_at, hash FROM documents WHERE rel_path = ?",
		relPath,
	).Scan(&doc.ID, &doc.RelPath, &doc.Title, &doc.Source, &doc.Category, &doc.Credibility, &updatedAtStr, &doc.Hash)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	doc.UpdatedAt = parseTimestamp(updatedAtStr)
	return &doc, nil
}

// Upsert inserts a new document or updates an existing one.
func (r *DocumentRepo) Upsert(ctx context.Context, doc *DocumentRecord) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (id, rel_path, title, source, category, credibility, updated_at, hash)
		 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, ?)
		 ON CONFLICT(rel_path) DO UPDATE SET
		   title = excluded.title, source = excluded.source, category = excluded.category,
		   credibility = excluded.credibility, updated_at = CURRENT_TIMESTAMP, hash = excluded.hash`,
		doc.ID, doc.RelPath, doc.Title, doc.Source, doc.Category, doc.Credibility, doc.Hash,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// Count returns the number of registered documents.
func (r *DocumentRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// PassageRepo provides methods for passage operations.
// It implements the PassageStore interface.
type PassageRepo struct {
	db *sql.DB
}

// NewPassageRepo creates a new PassageRepo.
func NewPassageRepo(db *sql.DB) *PassageRepo {
	return &PassageRepo{db: db}
}

// Insert inserts a single passage. The passage.ID must be set (UUID).
func (r *PassageRepo) Insert(ctx context.Context, passage *PassageRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO passages (id, document_id, chunk_index, heading_path, text) VALUES (?, ?, ?, ?, ?)",
		passage.ID, passage.DocumentID, passage.ChunkIndex, passage.HeadingPath, passage.Text,
	)
	if err != nil {
		return fmt.Errorf("failed to insert passage: %w", err)
	}
	return nil
}

// DeleteByDocument deletes all passages for a given document ID.
// Used when re-indexing a document to remove old passages first.
func (r *PassageRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM passages WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("failed to delete passages by document: %w", err)
	}
	return nil
}

// ListIDsByDocument returns all passage IDs for a document, ordered by chunk_index.
// Returns an empty slice if no passages exist (not an error).
// Used to get Qdrant point IDs for deletion before re-indexing.
func (r *PassageRepo) ListIDsByDocument(ctx context.Context, documentID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM passages WHERE document_id = ? ORDER BY chunk_index",
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query passage IDs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan passage ID: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ids, nil
}

// GetByID gets a passage by its ID. Returns ErrNotFound if not found.
func (r *PassageRepo) GetByID(ctx context.Context, id string) (*PassageRecord, error) {
	var passage PassageRecord
	err := r.db.QueryRowContext(ctx,
		"SELECT id, document_id, chunk_index, heading_path, text FROM passages WHERE id = ?",
		id,
	).Scan(&passage.ID, &passage.DocumentID, &passage.ChunkIndex, &passage.HeadingPath, &passage.Text)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query passage: %w", err)
	}

	return &passage, nil
}
