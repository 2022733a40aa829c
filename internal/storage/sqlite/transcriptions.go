package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yegors/streamscribe/pkg/logger"
)

// Open opens (or creates) the SQLite database at path
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// TranscriptionStorage handles persistence of transcription records
type TranscriptionStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewTranscriptionStorage creates a new SQLite transcription storage
func NewTranscriptionStorage(db *sql.DB, log *logger.Logger) (*TranscriptionStorage, error) {
	storage := &TranscriptionStorage{
		db:     db,
		logger: log.Named("sqlite"),
	}

	// Initialize database
	if err := storage.initDB(); err != nil {
		return nil, fmt.Errorf("failed to initialize transcription storage: %w", err)
	}

	return storage, nil
}

// initDB initializes the database tables
func (s *TranscriptionStorage) initDB() error {
	// Create transcriptions table
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS transcriptions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			status TEXT NOT NULL,
			text TEXT NOT NULL,
			raw TEXT,
			created_at TIMESTAMP NOT NULL,
			UNIQUE (session_id, seq)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create transcriptions table: %w", err)
	}

	// Create indexes for performance
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_transcriptions_session ON transcriptions(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transcriptions_status ON transcriptions(status)`,
		`CREATE INDEX IF NOT EXISTS idx_transcriptions_created_at ON transcriptions(created_at)`,
	}

	for _, indexSQL := range indexes {
		_, err = s.db.Exec(indexSQL)
		if err != nil {
			return fmt.Errorf("failed to create transcription index: %w", err)
		}
	}

	return nil
}

// StoreRecord stores a transcription record and returns its row ID
func (s *TranscriptionStorage) StoreRecord(row *TranscriptionRow) (int64, error) {
	// Insert record
	result, err := s.db.Exec(
		`INSERT INTO transcriptions
		(session_id, seq, status, text, raw, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		row.SessionID,
		row.Seq,
		row.Status,
		row.Text,
		row.Raw,
		row.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transcription: %w", err)
	}

	// Get ID
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return id, nil
}

// GetBySession returns all records of a session in sequence order
func (s *TranscriptionStorage) GetBySession(sessionID string) ([]*TranscriptionRow, error) {
	// Query records
	rows, err := s.db.Query(
		`SELECT id, session_id, seq, status, text, raw, created_at
		FROM transcriptions
		WHERE session_id = ?
		ORDER BY seq ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcriptions by session: %w", err)
	}
	defer rows.Close()

	return s.scanTranscriptionRows(rows)
}

// GetRecent returns the most recent records across all sessions
func (s *TranscriptionStorage) GetRecent(limit int) ([]*TranscriptionRow, error) {
	// Query records
	rows, err := s.db.Query(
		`SELECT id, session_id, seq, status, text, raw, created_at
		FROM transcriptions
		ORDER BY id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent transcriptions: %w", err)
	}
	defer rows.Close()

	return s.scanTranscriptionRows(rows)
}

// scanTranscriptionRows scans database rows into TranscriptionRow structs
func (s *TranscriptionStorage) scanTranscriptionRows(rows *sql.Rows) ([]*TranscriptionRow, error) {
	var records []*TranscriptionRow
	for rows.Next() {
		var record TranscriptionRow
		var createdAt string
		var raw sql.NullString

		if err := rows.Scan(
			&record.ID,
			&record.SessionID,
			&record.Seq,
			&record.Status,
			&record.Text,
			&raw,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transcription: %w", err)
		}

		// Parse timestamps
		var err error
		record.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		// Handle nullable raw field
		if raw.Valid {
			record.Raw = raw.String
		}

		records = append(records, &record)
	}

	return records, rows.Err()
}
