package sqlite

import (
	"database/sql"
	"fmt"
	"time"
)

// SegmentRecord represents a finalized transcript segment in the database.
// Source is "dictation" for live segments and "upload" for batch results.
type SegmentRecord struct {
	ID        int64     `json:"id"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"timestamp"`
	Content   string    `json:"text"`
}

// SegmentStorage handles storage of transcript segments
type SegmentStorage struct {
	db *sql.DB
}

// NewSegmentStorage creates a new SQLite segment storage
func NewSegmentStorage(db *DB) (*SegmentStorage, error) {
	storage := &SegmentStorage{db: db.GetDB()}

	if err := storage.initDB(); err != nil {
		return nil, fmt.Errorf("failed to initialize segment storage: %w", err)
	}

	return storage, nil
}

// initDB initializes the database tables
func (s *SegmentStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS segments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			content TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create segments table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_segments_created_at ON segments(created_at)`)
	if err != nil {
		return fmt.Errorf("failed to create created_at index: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_segments_source ON segments(source)`)
	if err != nil {
		return fmt.Errorf("failed to create source index: %w", err)
	}

	return nil
}

// StoreSegment stores a finalized transcript segment
func (s *SegmentStorage) StoreSegment(source, content string, createdAt time.Time) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO segments (source, created_at, content) VALUES (?, ?, ?)`,
		source,
		createdAt.Format(time.RFC3339),
		content,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert segment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return id, nil
}

// GetSegments returns stored segments with pagination, newest first
func (s *SegmentStorage) GetSegments(limit, offset int) ([]*SegmentRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, source, created_at, content
		FROM segments
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()

	return scanSegments(rows)
}

// GetSegmentsBySource returns stored segments for a specific source
func (s *SegmentStorage) GetSegmentsBySource(source string, limit, offset int) ([]*SegmentRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, source, created_at, content
		FROM segments
		WHERE source = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`,
		source, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments by source: %w", err)
	}
	defer rows.Close()

	return scanSegments(rows)
}

// ClearSegments removes all stored segments
func (s *SegmentStorage) ClearSegments() error {
	if _, err := s.db.Exec(`DELETE FROM segments`); err != nil {
		return fmt.Errorf("failed to clear segments: %w", err)
	}
	return nil
}

func scanSegments(rows *sql.Rows) ([]*SegmentRecord, error) {
	var records []*SegmentRecord
	for rows.Next() {
		var record SegmentRecord
		var createdAt string

		if err := rows.Scan(&record.ID, &record.Source, &createdAt, &record.Content); err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}

		parsed, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		record.CreatedAt = parsed

		records = append(records, &record)
	}
	return records, rows.Err()
}
