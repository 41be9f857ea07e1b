package store

import "time"

// MessageRecord is one member-submitted message as delivered by the
// ingestion API. Records are immutable once ingested; the pipeline only
// reads them.
type MessageRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"` // display name, may contain non-ASCII
	Timestamp time.Time `json:"timestamp"` // UTC
	Message   string    `json:"message"`

	// Embedding is the cached vector for Message, computed at ingestion
	// time so queries never re-embed the corpus.
	Embedding     []float32 `json:"-"`
	EmbeddingJSON string    `json:"-"` // stored as a JSON string in the DB
}
