package storage

import "time"

// InteractionRecord is a known drug-pair interaction in the knowledge base.
type InteractionRecord struct {
	PairKey     string // Normalized "meda+medb" key, medications sorted
	MedA        string
	MedB        string
	Severity    string // e.g. "major", "moderate", "minor"
	Description string
	Source      string // e.g. "drugbank", "internal_kb"
	UpdatedAt   time.Time
}

// ProtocolRecord is a chronic-condition management protocol in the knowledge base.
type ProtocolRecord struct {
	ConditionKey  string // Lowercased condition name
	ConditionName string
	Guidance      string
	Source        string
	UpdatedAt     time.Time
}

// DocumentRecord is a guideline document registered by the ingestion pipeline.
type DocumentRecord struct {
	ID          string // UUID
	RelPath     string // Relative path from the guidelines root
	Title       string // Extracted title from markdown
	Source      string // e.g. "cdc", "who", "drugbank"
	Category    string // e.g. "drug_interaction", "symptom", "chronic_care"
	Credibility float64
	UpdatedAt   time.Time
	Hash        string // SHA256 hex string of file content
}

// PassageRecord is a chunk of a guideline document, indexed for vector search.
type PassageRecord struct {
	ID          string // UUID (same as Qdrant point ID)
	DocumentID  string // UUID (foreign key to documents.id)
	ChunkIndex  int    // Index within document (starts at 0)
	HeadingPath string // Format: "# Heading1 > ## Heading2"
	Text        string
}
