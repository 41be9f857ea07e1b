package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL,
        user_name TEXT NOT NULL,
        timestamp DATETIME NOT NULL,
        message TEXT NOT NULL,
        embedding_json TEXT -- JSON string of []float32, may be empty
    );

    CREATE INDEX IF NOT EXISTS idx_messages_user_id ON messages (user_id);
    `
	_, err := s.db.Exec(schema)
	return err
}

// UpsertMessage inserts a record or replaces an existing one with the same
// id. Re-ingesting a record keeps its embedding unless a new one is given.
func (s *SQLiteStore) UpsertMessage(rec *MessageRecord) error {
	embeddingJSON := rec.EmbeddingJSON
	if embeddingJSON == "" && len(rec.Embedding) > 0 {
		b, err := json.Marshal(rec.Embedding)
		if err != nil {
			return fmt.Errorf("failed to marshal embedding: %w", err)
		}
		embeddingJSON = string(b)
		rec.EmbeddingJSON = embeddingJSON
	}

	stmt, err := s.db.Prepare(`
        INSERT INTO messages (id, user_id, user_name, timestamp, message, embedding_json)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            user_id = excluded.user_id,
            user_name = excluded.user_name,
            timestamp = excluded.timestamp,
            message = excluded.message,
            embedding_json = CASE WHEN excluded.embedding_json != '' THEN excluded.embedding_json ELSE messages.embedding_json END
    `)
	if err != nil {
		return fmt.Errorf("failed to prepare message upsert: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(rec.ID, rec.UserID, rec.UserName, rec.Timestamp.UTC(), rec.Message, embeddingJSON)
	if err != nil {
		return fmt.Errorf("failed to execute message upsert: %w", err)
	}
	return nil
}

// GetAllMessages loads the full corpus, most recent first. Records with an
// undecodable embedding are kept with a nil embedding rather than dropped;
// the retriever degrades to lexical scoring for them.
func (s *SQLiteStore) GetAllMessages() ([]MessageRecord, error) {
	rows, err := s.db.Query("SELECT id, user_id, user_name, timestamp, message, embedding_json FROM messages ORDER BY timestamp DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var records []MessageRecord
	for rows.Next() {
		var rec MessageRecord
		var embeddingJSON sql.NullString
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.UserName, &rec.Timestamp, &rec.Message, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		if embeddingJSON.Valid && embeddingJSON.String != "" {
			rec.EmbeddingJSON = embeddingJSON.String
			if err := json.Unmarshal([]byte(embeddingJSON.String), &rec.Embedding); err != nil {
				log.Printf("Warning: failed to unmarshal embedding for message %s: %v. Embedding will be empty.", rec.ID, err)
				rec.Embedding = nil
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// KnownIDs returns the set of message ids already persisted, used by the
// refresher to ingest only new records.
func (s *SQLiteStore) KnownIDs() (map[string]struct{}, error) {
	rows, err := s.db.Query("SELECT id FROM messages")
	if err != nil {
		return nil, fmt.Errorf("failed to query message ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id row: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) CountMessages() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}
