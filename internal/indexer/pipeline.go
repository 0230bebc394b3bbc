package indexer

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"medbot-ai/internal/contextutil"
	"medbot-ai/internal/ranking"
	"medbot-ai/internal/retrieval"
	"medbot-ai/internal/storage"
	"medbot-ai/internal/vectorstore"
)

// Pipeline ingests guideline markdown into the document registry and the
// vector index. Unchanged files (matched by content hash) are skipped.
type Pipeline struct {
	root         string
	documentRepo storage.DocumentStore
	passageRepo  storage.PassageStore
	embedder     retrieval.Embedder
	vectorStore  vectorstore.VectorStore
	collection   string
	chunker      *GuidelineChunker

	now func() time.Time
}

// NewPipeline creates an ingestion pipeline rooted at the guidelines
// directory.
func NewPipeline(root string, documentRepo storage.DocumentStore, passageRepo storage.PassageStore, embedder retrieval.Embedder, vectorStore vectorstore.VectorStore, collection string) *Pipeline {
	return &Pipeline{
		root:         root,
		documentRepo: documentRepo,
		passageRepo:  passageRepo,
		embedder:     embedder,
		vectorStore:  vectorStore,
		collection:   collection,
		chunker:      NewGuidelineChunker(),
		now:          time.Now,
	}
}

// IndexFile ingests a single guideline file: hash check, chunking, embedding,
// passage registry, and vector upsert. Re-ingesting a changed file replaces
// its old passages in both stores.
func (p *Pipeline) IndexFile(ctx context.Context, file GuidelineFile) error {
	logger := contextutil.LoggerFromContext(ctx)

	content, err := os.ReadFile(file.AbsPath)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", file.AbsPath, err)
	}
	hash := fmt.Sprintf("%x", sha256.Sum256(content))

	existing, err := p.documentRepo.GetByPath(ctx, file.RelPath)
	if err != nil && err != storage.ErrNotFound {
		return fmt.Errorf("failed to check existing document: %w", err)
	}
	if existing != nil && existing.Hash == hash {
		logger.DebugContext(ctx, "skipping unchanged guideline", "rel_path", file.RelPath)
		return nil
	}

	title, chunks, err := p.chunker.Chunk(content, file.RelPath)
	if err != nil {
		return fmt.Errorf("failed to chunk guideline: %w", err)
	}
	if len(chunks) == 0 {
		logger.WarnContext(ctx, "guideline produced no passages", "rel_path", file.RelPath)
		return nil
	}

	doc := &storage.DocumentRecord{
		RelPath:     file.RelPath,
		Title:       title,
		Source:      file.Source,
		Category:    file.Category,
		Credibility: ranking.CredibilityFor(file.Source),
		Hash:        hash,
	}
	if existing != nil {
		doc.ID = existing.ID
	}
	if err := p.documentRepo.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	if existing != nil {
		oldIDs, err := p.passageRepo.ListIDsByDocument(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("failed to list old passages: %w", err)
		}
		if len(oldIDs) > 0 {
			if err := p.vectorStore.Delete(ctx, p.collection, oldIDs); err != nil {
				logger.WarnContext(ctx, "failed to delete old vectors", "rel_path", file.RelPath, "error", err)
			}
			if err := p.passageRepo.DeleteByDocument(ctx, doc.ID); err != nil {
				return fmt.Errorf("failed to delete old passages: %w", err)
			}
		}
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	embeddings, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed passages: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(embeddings))
	}

	medications, conditions := topicTags(file)
	updatedAt := float64(p.now().Unix())

	points := make([]vectorstore.Point, len(chunks))
	for i, chunk := range chunks {
		passageID := uuid.New().String()

		if err := p.passageRepo.Insert(ctx, &storage.PassageRecord{
			ID:          passageID,
			DocumentID:  doc.ID,
			ChunkIndex:  chunk.Index,
			HeadingPath: chunk.HeadingPath,
			Text:        chunk.Text,
		}); err != nil {
			return fmt.Errorf("failed to insert passage: %w", err)
		}

		points[i] = vectorstore.Point{
			ID:  passageID,
			Vec: embeddings[i],
			Meta: map[string]any{
				"document_id":  doc.ID,
				"title":        title,
				"source":       file.Source,
				"category":     file.Category,
				"credibility":  doc.Credibility,
				"updated_at":   updatedAt,
				"heading_path": chunk.HeadingPath,
				"chunk_index":  chunk.Index,
				"text":         chunk.Text,
				"medications":  medications,
				"conditions":   conditions,
			},
		}
	}

	if err := p.vectorStore.Upsert(ctx, p.collection, points); err != nil {
		return fmt.Errorf("failed to upsert vectors: %w", err)
	}

	logger.InfoContext(ctx, "indexed guideline", "rel_path", file.RelPath, "passages", len(chunks), "title", title)
	return nil
}

// IndexAll scans the guidelines root and ingests every file. Per-file
// failures are logged and counted but do not stop the run.
func (p *Pipeline) IndexAll(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	files, err := ScanGuidelines(p.root)
	if err != nil {
		return fmt.Errorf("failed to scan guidelines: %w", err)
	}
	logger.InfoContext(ctx, "starting ingestion", "files", len(files))

	var errorCount int
	for _, file := range files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := p.IndexFile(ctx, file); err != nil {
			errorCount++
			logger.ErrorContext(ctx, "failed to index guideline", "rel_path", file.RelPath, "error", err)
		}
	}

	logger.InfoContext(ctx, "ingestion completed", "files", len(files), "errors", errorCount)
	if errorCount > 0 {
		return fmt.Errorf("ingestion completed with %d errors", errorCount)
	}
	return nil
}

// topicTags derives the filter tags from a file's topic and category. An
// interaction guideline named "warfarin-aspirin.md" tags both medications; a
// chronic-care guideline named "diabetes.md" tags the condition.
func topicTags(file GuidelineFile) (medications []any, conditions []any) {
	parts := strings.FieldsFunc(file.Topic, func(r rune) bool {
		return r == '-' || r == '_' || r == '+'
	})

	switch file.Category {
	case "drug_interaction":
		for _, part := range parts {
			medications = append(medications, part)
		}
	case "chronic_care", "symptom", "mental_health":
		for _, part := range parts {
			conditions = append(conditions, part)
		}
	}
	return medications, conditions
}
