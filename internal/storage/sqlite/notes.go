package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// NotesRecord represents a generated study-notes document in the database.
// Document holds the JSON-encoded notes document as produced by the
// formatter.
type NotesRecord struct {
	ID          int64           `json:"id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Document    json.RawMessage `json:"document"`
}

// NotesStorage handles storage of generated notes documents
type NotesStorage struct {
	db *sql.DB
}

// NewNotesStorage creates a new SQLite notes storage
func NewNotesStorage(db *DB) (*NotesStorage, error) {
	storage := &NotesStorage{db: db.GetDB()}

	if err := storage.initDB(); err != nil {
		return nil, fmt.Errorf("failed to initialize notes storage: %w", err)
	}

	return storage, nil
}

func (s *NotesStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			generated_at TIMESTAMP NOT NULL,
			document TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create notes table: %w", err)
	}
	return nil
}

// StoreNotes stores a generated notes document
func (s *NotesStorage) StoreNotes(document any, generatedAt time.Time) (int64, error) {
	encoded, err := json.Marshal(document)
	if err != nil {
		return 0, fmt.Errorf("failed to encode notes document: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO notes (generated_at, document) VALUES (?, ?)`,
		generatedAt.Format(time.RFC3339),
		string(encoded),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert notes: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return id, nil
}

// GetNotes returns stored notes documents with pagination, newest first
func (s *NotesStorage) GetNotes(limit, offset int) ([]*NotesRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, generated_at, document
		FROM notes
		ORDER BY generated_at DESC
		LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var records []*NotesRecord
	for rows.Next() {
		var record NotesRecord
		var generatedAt, document string

		if err := rows.Scan(&record.ID, &generatedAt, &document); err != nil {
			return nil, fmt.Errorf("failed to scan notes record: %w", err)
		}

		parsed, err := time.Parse(time.RFC3339, generatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse generated_at: %w", err)
		}
		record.GeneratedAt = parsed
		record.Document = json.RawMessage(document)

		records = append(records, &record)
	}
	return records, rows.Err()
}
